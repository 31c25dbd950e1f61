package election

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// VerificationTokenTTL is how long an approval e-mail link stays valid.
const VerificationTokenTTL = 24 * time.Hour

// Approve moves a pending voter to approved_pending_verification. expiration must be a
// calendar date strictly after the date of now.
func Approve(v models.Voter, expiration, now time.Time) (models.Voter, error) {
	if v.Status != models.VoterStatusPending {
		return v, fmt.Errorf("cannot approve a %s voter: %w", v.Status, ErrInvalidTransition)
	}
	if expiration.IsZero() || !dateOf(expiration, now.Location()).After(dateOf(now, now.Location())) {
		return v, NewValidationError("expiration_date", "must be a future date")
	}

	exp := dateOf(expiration, now.Location())
	v.Status = models.VoterStatusApprovedPendingVerification
	v.ExpirationDate = &exp
	v.RejectionReason = ""
	return v, nil
}

// NewVerificationToken builds the single-use token issued on approval.
func NewVerificationToken(v models.Voter, token string, now time.Time) models.EmailVerificationToken {
	return models.EmailVerificationToken{
		VoterID:   v.ID,
		Email:     v.Email,
		Token:     token,
		CreatedAt: now,
		ExpiresAt: now.Add(VerificationTokenTTL),
	}
}

// Reject deactivates a pending registration.
func Reject(v models.Voter, reason string) (models.Voter, error) {
	if v.Status != models.VoterStatusPending {
		return v, fmt.Errorf("cannot reject a %s voter: %w", v.Status, ErrInvalidTransition)
	}
	v.Status = models.VoterStatusDeactivated
	v.RejectionReason = strings.TrimSpace(reason)
	return v, nil
}

// VerifyEmail consumes token and completes the voter's registration.
func VerifyEmail(v models.Voter, token models.EmailVerificationToken, now time.Time) (models.Voter, models.EmailVerificationToken, error) {
	if token.VoterID != v.ID {
		return v, token, ErrTokenInvalid
	}
	if token.Used {
		return v, token, ErrTokenAlreadyUsed
	}
	if now.After(token.ExpiresAt) {
		return v, token, ErrTokenExpired
	}
	if v.Status != models.VoterStatusApprovedPendingVerification {
		return v, token, fmt.Errorf("cannot verify a %s voter: %w", v.Status, ErrInvalidTransition)
	}

	token.Used = true
	v.Status = models.VoterStatusRegistered
	v.EmailVerified = true
	return v, token, nil
}

// Reactivate restores a registered or deactivated voter. Voters who never verified their
// e-mail go back to pending.
func Reactivate(v models.Voter) (models.Voter, error) {
	if v.Status != models.VoterStatusRegistered && v.Status != models.VoterStatusDeactivated {
		return v, fmt.Errorf("cannot reactivate a %s voter: %w", v.Status, ErrInvalidTransition)
	}
	if v.EmailVerified {
		v.Status = models.VoterStatusRegistered
	} else {
		v.Status = models.VoterStatusPending
	}
	return v, nil
}

// CanVote reports whether the voter may sign in and cast a ballot.
func CanVote(v models.Voter, now time.Time) error {
	switch v.Status {
	case models.VoterStatusPending:
		return &EligibilityError{Status: v.Status, Reason: "Your registration is still awaiting approval."}
	case models.VoterStatusApprovedPendingVerification:
		return &EligibilityError{Status: v.Status, Reason: "Please verify your email address before signing in."}
	case models.VoterStatusDeactivated:
		return &EligibilityError{Status: v.Status, Reason: "Your account has been deactivated. Please contact the election committee."}
	case models.VoterStatusRegistered:
	default:
		return &EligibilityError{Status: v.Status, Reason: "Your account cannot be used to vote."}
	}

	if !v.EmailVerified {
		return &EligibilityError{Status: v.Status, Reason: "Please verify your email address before signing in."}
	}
	if accessExpired(v, now) {
		return &EligibilityError{Status: v.Status, Reason: "Your voter access has expired."}
	}
	return nil
}

// dateOf keeps t's own calendar date and anchors it at midnight in loc.
// accessExpired reports whether now falls on a day after the voter's expiration date.
func accessExpired(v models.Voter, now time.Time) bool {
	return v.ExpirationDate != nil && dateOf(now, now.Location()).After(dateOf(*v.ExpirationDate, now.Location()))
}

func dateOf(t time.Time, loc *time.Location) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, loc)
}
