package election

import (
	"errors"
	"fmt"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// State precondition errors. Each has a stable identity checked with errors.Is.
var (
	ErrAlreadyVoted         = errors.New("a ballot has already been submitted for this voter")
	ErrVotingClosed         = errors.New("voting is not open")
	ErrNotEligible          = errors.New("voter is not eligible to vote")
	ErrTokenExpired         = errors.New("verification link has expired")
	ErrTokenAlreadyUsed     = errors.New("verification link has already been used")
	ErrTokenInvalid         = errors.New("verification link is invalid")
	ErrInvalidTransition    = errors.New("operation not allowed in the current state")
	ErrElectionActive       = errors.New("operation not allowed while voting is active")
	ErrConfirmationRequired = errors.New("explicit confirmation is required")
)

// ValidationError reports input that is outside the operation's contract.
type ValidationError struct {
	Field   string
	Message string
}

func (e *ValidationError) Error() string {
	if e.Field == "" {
		return e.Message
	}
	return fmt.Sprintf("%s: %s", e.Field, e.Message)
}

// NewValidationError builds a ValidationError for the given field.
func NewValidationError(field, message string) *ValidationError {
	return &ValidationError{Field: field, Message: message}
}

// IsValidationError reports whether err wraps a ValidationError.
func IsValidationError(err error) bool {
	var target *ValidationError
	return errors.As(err, &target)
}

// EligibilityError explains why a voter may not sign in or vote.
// The reason is safe to show to the voter.
type EligibilityError struct {
	Status models.VoterStatus
	Reason string
}

func (e *EligibilityError) Error() string { return e.Reason }

func (e *EligibilityError) Unwrap() error { return ErrNotEligible }
