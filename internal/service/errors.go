package service

import "errors"

var (
	// ErrVoterNotFound indicates the requested voter does not exist.
	ErrVoterNotFound = errors.New("voter not found")
	// ErrVoterExists indicates the student id or e-mail is already registered.
	ErrVoterExists = errors.New("a voter with this student id or email already exists")
	// ErrPositionNotFound indicates the requested position does not exist.
	ErrPositionNotFound = errors.New("position not found")
	// ErrPositionExists indicates another position already uses the name.
	ErrPositionExists = errors.New("a position with this name already exists")
	// ErrPositionInUse indicates candidates still run for the position.
	ErrPositionInUse = errors.New("position still has candidates")
	// ErrCandidateNotFound indicates the requested candidate does not exist.
	ErrCandidateNotFound = errors.New("candidate not found")
	// ErrAdminNotFound indicates the requested admin does not exist.
	ErrAdminNotFound = errors.New("admin not found")
	// ErrAdminExists indicates the e-mail already belongs to an admin.
	ErrAdminExists = errors.New("an admin with this email already exists")
	// ErrLastSuperadmin prevents removing the only superadmin.
	ErrLastSuperadmin = errors.New("the last superadmin cannot be deleted")
	// ErrSelfDelete prevents admins from deleting their own account.
	ErrSelfDelete = errors.New("admins cannot delete their own account")
	// ErrInvalidCredentials is returned for any failed login, whichever credential was wrong.
	ErrInvalidCredentials = errors.New("invalid email or password")
	// ErrReceiptNotFound indicates the voter has not cast a ballot.
	ErrReceiptNotFound = errors.New("no ballot has been cast by this voter")
	// ErrResultsNotPublished hides results until the committee publishes them.
	ErrResultsNotPublished = errors.New("results have not been published yet")
	// ErrAnnouncementNotFound indicates the requested announcement does not exist.
	ErrAnnouncementNotFound = errors.New("announcement not found")
)
