package contract_test

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/handler"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/repository"
	"github.com/noah-isme/campus-evote-api/internal/service"
)

func seedClosedElection(t *testing.T, db *gorm.DB, published bool) {
	t.Helper()
	start := time.Now().UTC().Add(-10 * time.Hour)
	end := start.Add(8 * time.Hour)
	hours := 8
	e := models.Election{
		ID:               models.CurrentElectionID,
		Status:           models.ElectionStatusClosed,
		StartTime:        &start,
		EndTime:          &end,
		DurationHours:    &hours,
		ClosedAt:         &end,
		ResultsPublished: published,
	}
	if published {
		now := time.Now().UTC()
		e.PublishedAt = &now
	}
	require.NoError(t, db.Create(&e).Error)

	president := models.Position{Name: "President", MaxSelection: 1, Order: 1}
	senators := models.Position{Name: "Senator", MaxSelection: 2, Order: 2}
	require.NoError(t, db.Create(&president).Error)
	require.NoError(t, db.Create(&senators).Error)

	candidates := []models.Candidate{
		{Name: "Alice", PositionID: president.ID, Partylist: "Blue"},
		{Name: "Bob", PositionID: president.ID, Partylist: "Red"},
		{Name: "Carla", PositionID: senators.ID},
		{Name: "Dan", PositionID: senators.ID},
		{Name: "Eve", PositionID: senators.ID},
	}
	require.NoError(t, db.Create(&candidates).Error)

	// President is tied 2-2, Senate is clear.
	votes := map[uint]int{candidates[0].ID: 2, candidates[1].ID: 2, candidates[2].ID: 3, candidates[3].ID: 2, candidates[4].ID: 1}
	for candidateID, count := range votes {
		var positionID uint
		for _, c := range candidates {
			if c.ID == candidateID {
				positionID = c.PositionID
			}
		}
		for i := 0; i < count; i++ {
			require.NoError(t, db.Create(&models.Vote{CandidateID: candidateID, PositionID: positionID}).Error)
		}
	}
}

func resultsStack(db *gorm.DB) (service.ResultsService, service.ElectionService) {
	logger := zerolog.Nop()
	validate := validator.New(validator.WithRequiredStructEnabled())
	elections := repository.NewElectionRepository(db)
	results := service.NewResultsService(
		elections,
		repository.NewPositionRepository(db),
		repository.NewCandidateRepository(db),
		repository.NewBallotRepository(db),
		nil, 0, validate, nil, nil, logger,
	)
	return results, service.NewElectionService(elections, results, validate, nil, nil, logger)
}

func TestPublishedResultsContract(t *testing.T) {
	db := openDB(t)
	seedClosedElection(t, db, true)

	results, _ := resultsStack(db)
	app := fiber.New()
	handler.NewResultsHandler(results, nil, nil, zerolog.Nop(), time.Minute).RegisterPublic(app.Group("/api/v1/results"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/results", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	validateBody(t, compileSchema(t, "results.schema.json"), resp)
}

func TestElectionStatusContract(t *testing.T) {
	db := openDB(t)
	seedClosedElection(t, db, false)

	_, elections := resultsStack(db)
	app := fiber.New()
	handler.NewElectionHandler(elections, zerolog.Nop()).RegisterPublic(app.Group("/api/v1/election"))

	resp, err := app.Test(httptest.NewRequest(http.MethodGet, "/api/v1/election/status", nil))
	require.NoError(t, err)
	require.Equal(t, http.StatusOK, resp.StatusCode)

	validateBody(t, compileSchema(t, "election_status.schema.json"), resp)
}
