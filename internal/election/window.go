package election

import (
	"fmt"
	"strings"
	"time"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// VotingStatus is derived from the election state and the current time.
type VotingStatus string

const (
	VotingStatusUpcoming VotingStatus = "upcoming"
	VotingStatusActive   VotingStatus = "active"
	VotingStatusClosed   VotingStatus = "closed"
)

// Voting window bounds in hours.
const (
	MinDurationHours = 1
	MaxDurationHours = 168
)

// ResetConfirmationPhrase must be typed by the operator before a reset runs.
const ResetConfirmationPhrase = "RESET ELECTION"

// DeriveVotingStatus reports whether ballots may be cast at now.
func DeriveVotingStatus(e models.Election, now time.Time) VotingStatus {
	if e.StartTime != nil && now.Before(*e.StartTime) &&
		(e.Status == models.ElectionStatusDraft || e.Status == models.ElectionStatusActive) {
		return VotingStatusUpcoming
	}

	if e.Status == models.ElectionStatusActive && e.StartTime != nil && e.EndTime != nil &&
		!now.Before(*e.StartTime) && !now.After(*e.EndTime) {
		return VotingStatusActive
	}

	return VotingStatusClosed
}

// Start opens a voting window of durationHours beginning at now.
func Start(e models.Election, now time.Time, durationHours int, confirmed bool) (models.Election, error) {
	if durationHours < MinDurationHours || durationHours > MaxDurationHours {
		return e, NewValidationError("duration_hours", fmt.Sprintf("must be between %d and %d hours", MinDurationHours, MaxDurationHours))
	}
	if !confirmed {
		return e, NewValidationError("confirm", "voting session start must be confirmed")
	}
	if e.Status == models.ElectionStatusActive {
		return e, fmt.Errorf("voting session already active: %w", ErrInvalidTransition)
	}

	start := now
	end := now.Add(time.Duration(durationHours) * time.Hour)
	hours := durationHours

	e.Status = models.ElectionStatusActive
	e.StartTime = &start
	e.EndTime = &end
	e.DurationHours = &hours
	e.ClosedAt = nil
	e.ResultsPublished = false
	e.PublishedAt = nil
	e.Snapshot = nil
	return e, nil
}

// Close ends an active voting window. Closing a closed election is a no-op and
// reports changed=false so callers skip the tally side effects.
func Close(e models.Election, now time.Time) (models.Election, bool, error) {
	switch e.Status {
	case models.ElectionStatusClosed:
		return e, false, nil
	case models.ElectionStatusActive:
		closedAt := now
		e.Status = models.ElectionStatusClosed
		e.ClosedAt = &closedAt
		return e, true, nil
	default:
		return e, false, fmt.Errorf("cannot close a %s election: %w", e.Status, ErrInvalidTransition)
	}
}

// Publish makes the results of a closed election visible. Publication is one-way.
func Publish(e models.Election, now time.Time) (models.Election, error) {
	switch e.Status {
	case models.ElectionStatusActive:
		return e, ErrElectionActive
	case models.ElectionStatusClosed:
		if e.ResultsPublished {
			return e, nil
		}
		published := now
		e.ResultsPublished = true
		e.PublishedAt = &published
		return e, nil
	default:
		return e, fmt.Errorf("cannot publish a %s election: %w", e.Status, ErrInvalidTransition)
	}
}

// Reset returns the election to a blank closed state. The caller is responsible for
// deleting votes and receipts in the same transaction.
func Reset(e models.Election, confirmation string) (models.Election, error) {
	if e.Status == models.ElectionStatusActive {
		return e, ErrElectionActive
	}
	if strings.TrimSpace(confirmation) != ResetConfirmationPhrase {
		return e, fmt.Errorf("type %q to reset the election: %w", ResetConfirmationPhrase, ErrConfirmationRequired)
	}

	return models.Election{
		ID:        e.ID,
		Status:    models.ElectionStatusClosed,
		CreatedAt: e.CreatedAt,
	}, nil
}

// ShouldAutoClose reports whether an active window has run past its end time.
func ShouldAutoClose(e models.Election, now time.Time) bool {
	return e.Status == models.ElectionStatusActive && e.EndTime != nil && now.After(*e.EndTime)
}

// CanResolveTies reports whether manual winners may be selected.
func CanResolveTies(e models.Election) bool {
	return e.Status == models.ElectionStatusClosed && !e.ResultsPublished
}
