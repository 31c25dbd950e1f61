package election

import (
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

func TestCheckBallotPreconditions(t *testing.T) {
	now := time.Now()
	open := activeElection(now.Add(-time.Minute), 1)
	voter := models.Voter{ID: 1, Status: models.VoterStatusRegistered, EmailVerified: true}

	require.NoError(t, CheckBallotPreconditions(&voter, open, now))
	require.ErrorIs(t, CheckBallotPreconditions(nil, open, now), ErrNotEligible)

	pending := voter
	pending.Status = models.VoterStatusPending
	require.ErrorIs(t, CheckBallotPreconditions(&pending, open, now), ErrNotEligible)

	voted := voter
	voted.HasVoted = true
	require.ErrorIs(t, CheckBallotPreconditions(&voted, open, now), ErrAlreadyVoted)

	require.ErrorIs(t, CheckBallotPreconditions(&voter, open, now.Add(2*time.Hour)), ErrVotingClosed)
	require.ErrorIs(t, CheckBallotPreconditions(&voter, models.Election{Status: models.ElectionStatusClosed}, now), ErrVotingClosed)
}

func TestCheckBallotPreconditionsRejectsExpiredAccess(t *testing.T) {
	now := time.Date(2026, 3, 10, 12, 0, 0, 0, time.UTC)
	open := activeElection(now.Add(-time.Minute), 1)
	yesterday := now.AddDate(0, 0, -1)
	voter := models.Voter{ID: 1, Status: models.VoterStatusRegistered, EmailVerified: true, ExpirationDate: &yesterday}

	err := CheckBallotPreconditions(&voter, open, now)
	require.ErrorIs(t, err, ErrNotEligible)

	today := now
	voter.ExpirationDate = &today
	require.NoError(t, CheckBallotPreconditions(&voter, open, now))
}

func TestBuildBallot(t *testing.T) {
	positions := []models.Position{
		{ID: 1, Name: "President", MaxSelection: 1},
		{ID: 2, Name: "Senator", MaxSelection: 2},
	}
	candidates := []models.Candidate{
		{ID: 10, Name: "Alice", PositionID: 1},
		{ID: 11, Name: "Bob", PositionID: 1},
		{ID: 20, Name: "Cara", PositionID: 2},
		{ID: 21, Name: "Dan", PositionID: 2},
		{ID: 22, Name: "Eve", PositionID: 2},
	}

	votes, receipt, err := BuildBallot(positions, candidates, []Selection{
		{PositionID: 1, CandidateID: 10},
		{PositionID: 2, CandidateID: 20},
		{PositionID: 2, CandidateID: 22},
	})
	require.NoError(t, err)
	require.Len(t, votes, 3)
	require.Len(t, receipt, 3)
	require.Equal(t, "Senator", receipt[2].PositionName)
	require.Equal(t, "Eve", receipt[2].CandidateName)

	invalid := [][]Selection{
		nil,
		{{PositionID: 1, CandidateID: 99}},
		{{PositionID: 2, CandidateID: 10}},
		{{PositionID: 1, CandidateID: 10}, {PositionID: 1, CandidateID: 11}},
		{{PositionID: 2, CandidateID: 20}, {PositionID: 2, CandidateID: 20}},
		{{PositionID: 2, CandidateID: 20}, {PositionID: 2, CandidateID: 21}, {PositionID: 2, CandidateID: 22}},
	}
	for _, selections := range invalid {
		_, _, err := BuildBallot(positions, candidates, selections)
		require.True(t, IsValidationError(err), "selections=%v", selections)
	}
}
