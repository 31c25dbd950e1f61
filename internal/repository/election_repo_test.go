package repository

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
)

func TestElectionRepositoryGetOrCreateSeedsSingleton(t *testing.T) {
	db := newTestDB(t)
	repo := NewElectionRepository(db)
	ctx := context.Background()

	first, err := repo.GetOrCreate(ctx)
	require.NoError(t, err)
	require.Equal(t, models.CurrentElectionID, first.ID)
	require.Equal(t, models.ElectionStatusDraft, first.Status)

	second, err := repo.GetOrCreate(ctx)
	require.NoError(t, err)
	require.Equal(t, first.ID, second.ID)

	var count int64
	require.NoError(t, db.Model(&models.Election{}).Count(&count).Error)
	require.Equal(t, int64(1), count)
}

func TestElectionRepositoryCloseWithTallyRunsOnce(t *testing.T) {
	db := newTestDB(t)
	repo := NewElectionRepository(db)
	ballots := NewBallotRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	current := seedActiveElection(t, db, now)
	position, candidates := seedBallotLayout(t, db)
	for i, choice := range []models.Candidate{candidates[0], candidates[0], candidates[1]} {
		voter := seedVoter(t, db, fmt.Sprintf("tally%d@example.com", i), models.VoterStatusRegistered)
		votes := []models.Vote{{CandidateID: choice.ID, PositionID: position.ID}}
		require.NoError(t, ballots.Submit(ctx, voter.ID, votes, &models.VoteReceipt{}, now))
	}

	closed, changed, err := election.Close(current, now)
	require.NoError(t, err)
	require.True(t, changed)

	results, ok, err := repo.CloseWithTally(ctx, &closed)
	require.NoError(t, err)
	require.True(t, ok)
	require.Len(t, results, 1)
	require.Equal(t, int64(3), results[0].TotalVotes)
	require.NotEmpty(t, closed.Snapshot)

	var alice models.Candidate
	require.NoError(t, db.First(&alice, candidates[0].ID).Error)
	require.Equal(t, int64(2), alice.VoteCount)

	_, ok, err = repo.CloseWithTally(ctx, &closed)
	require.NoError(t, err)
	require.False(t, ok, "a closed election is not tallied twice")

	require.NoError(t, db.First(&alice, candidates[0].ID).Error)
	require.Equal(t, int64(2), alice.VoteCount)

	stored, err := repo.GetOrCreate(ctx)
	require.NoError(t, err)
	require.Equal(t, models.ElectionStatusClosed, stored.Status)
	require.NotNil(t, stored.ClosedAt)
	require.JSONEq(t, string(closed.Snapshot), string(stored.Snapshot))

	late := seedVoter(t, db, "late@example.com", models.VoterStatusRegistered)
	err = ballots.Submit(ctx, late.ID, []models.Vote{{CandidateID: candidates[1].ID, PositionID: position.ID}}, &models.VoteReceipt{}, now)
	require.ErrorIs(t, err, election.ErrVotingClosed)

	var total int64
	require.NoError(t, db.Model(&models.Vote{}).Count(&total).Error)
	require.Equal(t, int64(3), total)
}

func TestElectionRepositoryResetClearsBallots(t *testing.T) {
	db := newTestDB(t)
	repo := NewElectionRepository(db)
	ballots := NewBallotRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	current := seedActiveElection(t, db, now)
	position, candidates := seedBallotLayout(t, db)
	voter := seedVoter(t, db, "gina@example.com", models.VoterStatusRegistered)

	require.NoError(t, ballots.Submit(ctx, voter.ID, []models.Vote{{CandidateID: candidates[0].ID, PositionID: position.ID}}, &models.VoteReceipt{}, now))

	blank, err := election.Reset(current, election.ResetConfirmationPhrase)
	require.ErrorIs(t, err, election.ErrElectionActive)
	require.ErrorIs(t, repo.Reset(ctx, &current), election.ErrElectionActive)

	closed, _, err := election.Close(current, now)
	require.NoError(t, err)
	_, _, err = repo.CloseWithTally(ctx, &closed)
	require.NoError(t, err)
	_, err = NewCandidateRepository(db).SelectWinner(ctx, candidates[1].ID, now)
	require.NoError(t, err)

	blank, err = election.Reset(closed, election.ResetConfirmationPhrase)
	require.NoError(t, err)
	require.NoError(t, repo.Reset(ctx, &blank))

	var votes, receipts int64
	require.NoError(t, db.Model(&models.Vote{}).Count(&votes).Error)
	require.NoError(t, db.Model(&models.VoteReceipt{}).Count(&receipts).Error)
	require.Zero(t, votes)
	require.Zero(t, receipts)

	var reloaded models.Voter
	require.NoError(t, db.First(&reloaded, voter.ID).Error)
	require.False(t, reloaded.HasVoted)
	require.Nil(t, reloaded.VotedAt)
	require.Equal(t, models.VoterStatusRegistered, reloaded.Status)

	var stored []models.Candidate
	require.NoError(t, db.Find(&stored).Error)
	for _, candidate := range stored {
		require.Zero(t, candidate.VoteCount)
		require.False(t, candidate.ManuallySelectedWinner)
	}

	after, err := repo.GetOrCreate(ctx)
	require.NoError(t, err)
	require.Equal(t, models.ElectionStatusClosed, after.Status)
	require.Nil(t, after.StartTime)
	require.Nil(t, after.EndTime)
	require.False(t, after.ResultsPublished)
}
