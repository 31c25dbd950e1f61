package handler_test

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/handler"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/service"
)

type mockBallotService struct {
	voterID   uint
	submitted *dto.BallotSubmitRequest
	err       error
}

func (m *mockBallotService) Ballot(context.Context) ([]dto.BallotPositionResponse, error) {
	return []dto.BallotPositionResponse{{ID: 1, Name: "President", MaxSelection: 1, Candidates: []dto.CandidateResponse{{ID: 3, Name: "Alice"}}}}, m.err
}

func (m *mockBallotService) Submit(_ context.Context, voterID uint, req dto.BallotSubmitRequest) (dto.ReceiptResponse, error) {
	m.voterID = voterID
	m.submitted = &req
	if m.err != nil {
		return dto.ReceiptResponse{}, m.err
	}
	return dto.ReceiptResponse{
		ID:         11,
		Selections: []models.ReceiptSelection{{CandidateID: 3, CandidateName: "Alice", PositionName: "President"}},
		CastAt:     time.Date(2026, 3, 2, 9, 0, 0, 0, time.UTC),
	}, nil
}

func (m *mockBallotService) Receipt(_ context.Context, voterID uint) (dto.ReceiptResponse, error) {
	m.voterID = voterID
	return dto.ReceiptResponse{ID: 11}, m.err
}

func ballotApp(svc *mockBallotService, identity fiber.Handler) *fiber.App {
	app := fiber.New()
	group := app.Group("/api/v1")
	if identity != nil {
		group.Use(identity)
	}
	passthrough := func(c *fiber.Ctx) error { return c.Next() }
	handler.NewBallotHandler(svc, discardLogger()).Register(group, passthrough)
	return app
}

func submitRequest(body string) *http.Request {
	req := httptest.NewRequest(http.MethodPost, "/api/v1/ballots", strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	return req
}

func TestBallotHandler_SubmitCreatesReceipt(t *testing.T) {
	svc := &mockBallotService{}
	resp, err := ballotApp(svc, as(42, "voter")).Test(submitRequest(`{"selections":[{"position_id":1,"candidate_id":3}]}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	body := decodeEnvelope(t, resp)
	require.True(t, body.Success)

	var receipt dto.ReceiptResponse
	require.NoError(t, json.Unmarshal(body.Data, &receipt))
	require.Equal(t, uint(11), receipt.ID)
	require.Equal(t, uint(42), svc.voterID)
	require.Len(t, svc.submitted.Selections, 1)
	require.Equal(t, election.Selection{PositionID: 1, CandidateID: 3}, svc.submitted.Selections[0])
}

func TestBallotHandler_SubmitMapsDomainErrors(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"already voted": {election.ErrAlreadyVoted, fiber.StatusConflict},
		"closed":        {election.ErrVotingClosed, fiber.StatusConflict},
		"ineligible":    {&election.EligibilityError{Status: models.VoterStatusPending, Reason: "registration is awaiting approval"}, fiber.StatusForbidden},
		"too many":      {election.NewValidationError("selections", "too many candidates selected for President"), fiber.StatusBadRequest},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			resp, err := ballotApp(&mockBallotService{err: tc.err}, as(42, "voter")).Test(submitRequest(`{"selections":[]}`))
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)

			body := decodeEnvelope(t, resp)
			require.False(t, body.Success)
		})
	}
}

func TestBallotHandler_SubmitWithoutIdentity(t *testing.T) {
	svc := &mockBallotService{}
	resp, err := ballotApp(svc, nil).Test(submitRequest(`{"selections":[]}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusUnauthorized, resp.StatusCode)
	require.Nil(t, svc.submitted)
}

func TestBallotHandler_AdminTokenCannotVote(t *testing.T) {
	svc := &mockBallotService{}
	resp, err := ballotApp(svc, as(1, "superadmin")).Test(submitRequest(`{"selections":[]}`))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Nil(t, svc.submitted)
}

func TestBallotHandler_ReceiptNotFound(t *testing.T) {
	svc := &mockBallotService{err: service.ErrReceiptNotFound}
	resp, err := ballotApp(svc, as(7, "voter")).Test(httptest.NewRequest(http.MethodGet, "/api/v1/ballots/receipt", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusNotFound, resp.StatusCode)
	require.Equal(t, uint(7), svc.voterID)
}
