package election

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

func activeElection(start time.Time, hours int) models.Election {
	end := start.Add(time.Duration(hours) * time.Hour)
	return models.Election{ID: models.CurrentElectionID, Status: models.ElectionStatusActive, StartTime: &start, EndTime: &end}
}

func TestDeriveVotingStatus(t *testing.T) {
	now := time.Date(2025, 3, 10, 12, 0, 0, 0, time.UTC)
	election := activeElection(now, 2)

	require.Equal(t, VotingStatusUpcoming, DeriveVotingStatus(election, now.Add(-time.Minute)))
	require.Equal(t, VotingStatusActive, DeriveVotingStatus(election, now))
	require.Equal(t, VotingStatusActive, DeriveVotingStatus(election, now.Add(2*time.Hour)))
	require.Equal(t, VotingStatusClosed, DeriveVotingStatus(election, now.Add(2*time.Hour+time.Second)))

	draft := election
	draft.Status = models.ElectionStatusDraft
	require.Equal(t, VotingStatusUpcoming, DeriveVotingStatus(draft, now.Add(-time.Minute)))
	require.Equal(t, VotingStatusClosed, DeriveVotingStatus(draft, now.Add(time.Minute)))

	closed := election
	closed.Status = models.ElectionStatusClosed
	require.Equal(t, VotingStatusClosed, DeriveVotingStatus(closed, now.Add(time.Minute)))

	require.Equal(t, VotingStatusClosed, DeriveVotingStatus(models.Election{Status: models.ElectionStatusClosed}, now))
}

func TestStartValidatesDuration(t *testing.T) {
	now := time.Now()
	base := models.Election{ID: models.CurrentElectionID, Status: models.ElectionStatusDraft}

	for _, hours := range []int{0, -1, 169} {
		_, err := Start(base, now, hours, true)
		require.True(t, IsValidationError(err), "hours=%d", hours)
	}

	_, err := Start(base, now, 2, false)
	require.True(t, IsValidationError(err))

	started, err := Start(base, now, 168, true)
	require.NoError(t, err)
	require.Equal(t, models.ElectionStatusActive, started.Status)
	require.Equal(t, now, *started.StartTime)
	require.Equal(t, now.Add(168*time.Hour), *started.EndTime)
	require.Equal(t, 168, *started.DurationHours)

	_, err = Start(started, now, 2, true)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestCloseIsIdempotent(t *testing.T) {
	now := time.Now()
	election := activeElection(now.Add(-time.Hour), 2)

	closed, changed, err := Close(election, now)
	require.NoError(t, err)
	require.True(t, changed)
	require.Equal(t, models.ElectionStatusClosed, closed.Status)
	require.NotNil(t, closed.ClosedAt)

	again, changed, err := Close(closed, now.Add(time.Minute))
	require.NoError(t, err)
	require.False(t, changed)
	require.Equal(t, closed, again)

	_, _, err = Close(models.Election{Status: models.ElectionStatusDraft}, now)
	require.ErrorIs(t, err, ErrInvalidTransition)
}

func TestPublishRequiresClosedElection(t *testing.T) {
	now := time.Now()
	election := activeElection(now, 1)

	_, err := Publish(election, now)
	require.True(t, errors.Is(err, ErrElectionActive))

	closed, _, err := Close(election, now)
	require.NoError(t, err)

	published, err := Publish(closed, now)
	require.NoError(t, err)
	require.True(t, published.ResultsPublished)
	require.Equal(t, now, *published.PublishedAt)

	republished, err := Publish(published, now.Add(time.Hour))
	require.NoError(t, err)
	require.Equal(t, now, *republished.PublishedAt)
}

func TestResetRequiresPhraseAndInactiveElection(t *testing.T) {
	now := time.Now()
	election := activeElection(now, 1)

	_, err := Reset(election, ResetConfirmationPhrase)
	require.ErrorIs(t, err, ErrElectionActive)

	closed, _, err := Close(election, now)
	require.NoError(t, err)

	_, err = Reset(closed, "yes")
	require.ErrorIs(t, err, ErrConfirmationRequired)

	reset, err := Reset(closed, "  RESET ELECTION ")
	require.NoError(t, err)
	require.Equal(t, models.ElectionStatusClosed, reset.Status)
	require.Nil(t, reset.StartTime)
	require.Nil(t, reset.EndTime)
	require.Nil(t, reset.DurationHours)
	require.False(t, reset.ResultsPublished)
	require.Equal(t, models.CurrentElectionID, reset.ID)
}

func TestShouldAutoClose(t *testing.T) {
	now := time.Now()
	election := activeElection(now.Add(-2*time.Hour), 1)
	require.True(t, ShouldAutoClose(election, now))
	require.False(t, ShouldAutoClose(election, now.Add(-90*time.Minute)))

	closed, _, _ := Close(election, now)
	require.False(t, ShouldAutoClose(closed, now))
	require.True(t, CanResolveTies(closed))
}
