package dto

import (
	"time"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// VoterRegisterRequest captures the self-registration form.
type VoterRegisterRequest struct {
	FullName  string `json:"full_name" form:"full_name" validate:"required,min=2,max=255"`
	StudentID string `json:"student_id" form:"student_id" validate:"required,min=3,max=64"`
	Email     string `json:"email" form:"email" validate:"required,email"`
	Password  string `json:"password" form:"password" validate:"required,min=8,max=72"`
	Birthdate string `json:"birthdate" form:"birthdate" validate:"omitempty,datetime=2006-01-02"`
	YearLevel string `json:"year_level" form:"year_level" validate:"omitempty,max=32"`
	School    string `json:"school" form:"school" validate:"required,max=255"`
}

// VoterListRequest defines filters for listing voters.
type VoterListRequest struct {
	Page     int
	PageSize int
	Search   string
	Status   string
	School   string
	HasVoted *bool
	Sort     string
}

// VoterApproveRequest carries the access expiration chosen by the approving admin.
type VoterApproveRequest struct {
	ExpirationDate string `json:"expiration_date" validate:"required,datetime=2006-01-02"`
}

// VoterRejectRequest carries an optional rejection reason.
type VoterRejectRequest struct {
	Reason string `json:"reason" validate:"omitempty,max=1000"`
}

// VerifyEmailRequest carries the token from the approval e-mail.
type VerifyEmailRequest struct {
	Token string `json:"token" validate:"required,max=128"`
}

// VoterResponse serializes voter data for admin endpoints.
type VoterResponse struct {
	ID                 uint       `json:"id"`
	FullName           string     `json:"full_name"`
	StudentID          string     `json:"student_id"`
	Email              string     `json:"email"`
	Birthdate          *time.Time `json:"birthdate,omitempty"`
	YearLevel          string     `json:"year_level"`
	School             string     `json:"school"`
	Status             string     `json:"status"`
	EmailVerified      bool       `json:"email_verified"`
	HasVoted           bool       `json:"has_voted"`
	VotedAt            *time.Time `json:"voted_at,omitempty"`
	ExpirationDate     *time.Time `json:"expiration_date,omitempty"`
	VerificationDocURL string     `json:"verification_doc_url,omitempty"`
	RejectionReason    string     `json:"rejection_reason,omitempty"`
	CreatedAt          time.Time  `json:"created_at"`
}

// NewVoterResponse converts a voter model into a DTO.
func NewVoterResponse(voter models.Voter) VoterResponse {
	return VoterResponse{
		ID:                 voter.ID,
		FullName:           voter.FullName,
		StudentID:          voter.StudentID,
		Email:              voter.Email,
		Birthdate:          voter.Birthdate,
		YearLevel:          voter.YearLevel,
		School:             voter.School,
		Status:             string(voter.Status),
		EmailVerified:      voter.EmailVerified,
		HasVoted:           voter.HasVoted,
		VotedAt:            voter.VotedAt,
		ExpirationDate:     voter.ExpirationDate,
		VerificationDocURL: voter.VerificationDocURL,
		RejectionReason:    voter.RejectionReason,
		CreatedAt:          voter.CreatedAt,
	}
}

// VoterListResponse wraps a paginated voter response.
type VoterListResponse struct {
	Items      []VoterResponse `json:"items"`
	Pagination PaginationMeta  `json:"pagination"`
}

// VoterActionResponse returns the updated voter plus non-blocking notices, such as a
// notification e-mail that could not be sent.
type VoterActionResponse struct {
	Voter    VoterResponse `json:"voter"`
	Warnings []string      `json:"warnings"`
}

// DeletionStep records the outcome of one cleanup step.
type DeletionStep struct {
	Step     string `json:"step"`
	OK       bool   `json:"ok"`
	Affected int64  `json:"affected"`
	Error    string `json:"error,omitempty"`
}

// DeletionReport summarises a permanent voter deletion.
type DeletionReport struct {
	VoterID   uint           `json:"voter_id"`
	Completed bool           `json:"completed"`
	Steps     []DeletionStep `json:"steps"`
}
