package repository

import (
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/database"
	"github.com/noah-isme/campus-evote-api/internal/models"
)

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func seedVoter(t *testing.T, db *gorm.DB, email string, status models.VoterStatus) models.Voter {
	t.Helper()
	voter := models.Voter{
		FullName:      "Voter " + email,
		StudentID:     "S-" + email,
		Email:         email,
		PasswordHash:  "hash",
		School:        "Engineering",
		Status:        status,
		EmailVerified: status == models.VoterStatusRegistered,
	}
	require.NoError(t, db.Create(&voter).Error)
	return voter
}

func seedActiveElection(t *testing.T, db *gorm.DB, now time.Time) models.Election {
	t.Helper()
	start := now.Add(-time.Hour)
	end := now.Add(time.Hour)
	hours := 2
	current := models.Election{
		ID:            models.CurrentElectionID,
		Status:        models.ElectionStatusActive,
		StartTime:     &start,
		EndTime:       &end,
		DurationHours: &hours,
	}
	require.NoError(t, db.Save(&current).Error)
	return current
}

func seedBallotLayout(t *testing.T, db *gorm.DB) (models.Position, []models.Candidate) {
	t.Helper()
	position := models.Position{Name: "President", MaxSelection: 1, Order: 1}
	require.NoError(t, db.Create(&position).Error)

	candidates := []models.Candidate{
		{Name: "Alice", PositionID: position.ID},
		{Name: "Bob", PositionID: position.ID},
	}
	require.NoError(t, db.Create(&candidates).Error)
	return position, candidates
}
