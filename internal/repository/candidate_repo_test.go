package repository

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

func TestCandidateRepositorySelectWinnerClearsOthers(t *testing.T) {
	db := newTestDB(t)
	repo := NewCandidateRepository(db)
	ctx := context.Background()
	now := time.Now().UTC()

	position, candidates := seedBallotLayout(t, db)
	other := models.Position{Name: "Treasurer", MaxSelection: 1, Order: 2}
	require.NoError(t, db.Create(&other).Error)
	outsider := models.Candidate{Name: "Zed", PositionID: other.ID}
	require.NoError(t, repo.Create(ctx, &outsider))

	_, err := repo.SelectWinner(ctx, outsider.ID, now)
	require.NoError(t, err)

	_, err = repo.SelectWinner(ctx, candidates[0].ID, now)
	require.NoError(t, err)

	selected, err := repo.SelectWinner(ctx, candidates[1].ID, now)
	require.NoError(t, err)
	require.True(t, selected.ManuallySelectedWinner)
	require.NotNil(t, selected.SelectedAt)

	positionID := position.ID
	inPosition, total, err := repo.List(ctx, CandidateFilter{PositionID: &positionID})
	require.NoError(t, err)
	require.Equal(t, int64(2), total)

	winners := 0
	for _, candidate := range inPosition {
		if candidate.ManuallySelectedWinner {
			winners++
			require.Equal(t, candidates[1].ID, candidate.ID)
		}
	}
	require.Equal(t, 1, winners)

	stored, err := repo.GetByID(ctx, outsider.ID)
	require.NoError(t, err)
	require.True(t, stored.ManuallySelectedWinner, "other positions are untouched")

	_, err = repo.SelectWinner(ctx, 9999, now)
	require.ErrorIs(t, err, gorm.ErrRecordNotFound)
}

func TestCandidateAndPositionRepositories(t *testing.T) {
	db := newTestDB(t)
	candidates := NewCandidateRepository(db)
	positions := NewPositionRepository(db)
	ctx := context.Background()

	senator := models.Position{Name: "Senator", MaxSelection: 3, Order: 2}
	president := models.Position{Name: "President", MaxSelection: 1, Order: 1}
	require.NoError(t, positions.Create(ctx, &senator))
	require.NoError(t, positions.Create(ctx, &president))

	ordered, err := positions.List(ctx)
	require.NoError(t, err)
	require.Equal(t, "President", ordered[0].Name)

	byName, err := positions.GetByName(ctx, " senator ")
	require.NoError(t, err)
	require.Equal(t, senator.ID, byName.ID)

	candidate := models.Candidate{Name: "Liam", Partylist: "Blue Party", PositionID: senator.ID}
	require.NoError(t, candidates.Create(ctx, &candidate))

	count, err := candidates.CountByPosition(ctx, senator.ID)
	require.NoError(t, err)
	require.Equal(t, int64(1), count)

	found, total, err := candidates.List(ctx, CandidateFilter{Search: "blue"})
	require.NoError(t, err)
	require.Equal(t, int64(1), total)
	require.Equal(t, "Liam", found[0].Name)

	require.NoError(t, candidates.Delete(ctx, candidate.ID))
	require.ErrorIs(t, candidates.Delete(ctx, candidate.ID), gorm.ErrRecordNotFound)
	require.NoError(t, positions.Delete(ctx, senator.ID))
}
