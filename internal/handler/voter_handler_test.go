package handler_test

import (
	"bytes"
	"context"
	"mime/multipart"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/gofiber/fiber/v2"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/handler"
	"github.com/noah-isme/campus-evote-api/internal/service"
)

type mockVoterService struct {
	registered   *dto.VoterRegisterRequest
	documentName string
	approvedID   uint
	actor        service.ActivityActor
	listReq      dto.VoterListRequest
	report       dto.DeletionReport
	err          error
}

func (m *mockVoterService) Register(_ context.Context, req dto.VoterRegisterRequest, document *multipart.FileHeader) (dto.VoterResponse, error) {
	m.registered = &req
	if document != nil {
		m.documentName = document.Filename
	}
	if m.err != nil {
		return dto.VoterResponse{}, m.err
	}
	return dto.VoterResponse{ID: 1, FullName: req.FullName, Status: "pending"}, nil
}

func (m *mockVoterService) List(_ context.Context, req dto.VoterListRequest) (dto.VoterListResponse, error) {
	m.listReq = req
	return dto.VoterListResponse{Items: []dto.VoterResponse{}, Pagination: dto.PaginationMeta{Page: 1, PageSize: 20}}, m.err
}

func (m *mockVoterService) Get(_ context.Context, id uint) (dto.VoterResponse, error) {
	return dto.VoterResponse{ID: id}, m.err
}

func (m *mockVoterService) Approve(_ context.Context, actor service.ActivityActor, id uint, _ dto.VoterApproveRequest) (dto.VoterActionResponse, error) {
	m.approvedID = id
	m.actor = actor
	if m.err != nil {
		return dto.VoterActionResponse{}, m.err
	}
	return dto.VoterActionResponse{Voter: dto.VoterResponse{ID: id, Status: "approved_pending_verification"}, Warnings: []string{"approval e-mail could not be sent"}}, nil
}

func (m *mockVoterService) Reject(_ context.Context, _ service.ActivityActor, id uint, _ dto.VoterRejectRequest) (dto.VoterActionResponse, error) {
	return dto.VoterActionResponse{Voter: dto.VoterResponse{ID: id}}, m.err
}

func (m *mockVoterService) VerifyEmail(context.Context, dto.VerifyEmailRequest) (dto.VoterResponse, error) {
	return dto.VoterResponse{}, m.err
}

func (m *mockVoterService) Reactivate(_ context.Context, _ service.ActivityActor, id uint) (dto.VoterResponse, error) {
	return dto.VoterResponse{ID: id}, m.err
}

func (m *mockVoterService) Delete(_ context.Context, _ service.ActivityActor, id uint) (dto.DeletionReport, error) {
	report := m.report
	report.VoterID = id
	return report, m.err
}

func voterApp(svc *mockVoterService, role string) *fiber.App {
	app := fiber.New()
	h := handler.NewVoterHandler(svc, discardLogger())
	h.RegisterPublic(app.Group("/api/v1/voters"))
	h.RegisterAdmin(app.Group("/api/v1/admin/voters", as(5, role)))
	return app
}

func TestVoterHandler_RegisterMultipart(t *testing.T) {
	var buf bytes.Buffer
	writer := multipart.NewWriter(&buf)
	fields := map[string]string{
		"full_name":  "Maria Santos",
		"student_id": "2024-0001",
		"email":      "maria@example.edu",
		"password":   "correct-horse",
		"school":     "Engineering",
	}
	for key, value := range fields {
		require.NoError(t, writer.WriteField(key, value))
	}
	part, err := writer.CreateFormFile("document", "id-card.png")
	require.NoError(t, err)
	_, err = part.Write([]byte("fake image bytes"))
	require.NoError(t, err)
	require.NoError(t, writer.Close())

	req := httptest.NewRequest(http.MethodPost, "/api/v1/voters/register", &buf)
	req.Header.Set("Content-Type", writer.FormDataContentType())

	svc := &mockVoterService{}
	resp, err := voterApp(svc, "superadmin").Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusCreated, resp.StatusCode)

	require.NotNil(t, svc.registered)
	require.Equal(t, "Maria Santos", svc.registered.FullName)
	require.Equal(t, "2024-0001", svc.registered.StudentID)
	require.Equal(t, "id-card.png", svc.documentName)
}

func TestVoterHandler_VerifyEmailStatuses(t *testing.T) {
	cases := map[string]struct {
		err    error
		status int
	}{
		"expired":      {election.ErrTokenExpired, fiber.StatusGone},
		"already used": {election.ErrTokenAlreadyUsed, fiber.StatusConflict},
		"unknown":      {election.ErrTokenInvalid, fiber.StatusBadRequest},
		"ok":           {nil, fiber.StatusOK},
	}

	for name, tc := range cases {
		t.Run(name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/v1/voters/verify-email", strings.NewReader(`{"token":"abc"}`))
			req.Header.Set("Content-Type", "application/json")

			resp, err := voterApp(&mockVoterService{err: tc.err}, "superadmin").Test(req)
			require.NoError(t, err)
			require.Equal(t, tc.status, resp.StatusCode)
		})
	}
}

func TestVoterHandler_ApproveRequiresEditPermission(t *testing.T) {
	request := func() *http.Request {
		req := httptest.NewRequest(http.MethodPost, "/api/v1/admin/voters/12/approve", strings.NewReader(`{"expiration_date":"2026-12-31"}`))
		req.Header.Set("Content-Type", "application/json")
		return req
	}

	svc := &mockVoterService{}
	resp, err := voterApp(svc, "moderator").Test(request())
	require.NoError(t, err)
	require.Equal(t, fiber.StatusForbidden, resp.StatusCode)
	require.Zero(t, svc.approvedID)

	resp, err = voterApp(svc, "superadmin").Test(request())
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)
	require.Equal(t, uint(12), svc.approvedID)
	require.Equal(t, service.ActivityActor{ID: 5, Role: "superadmin"}, svc.actor)

	body := decodeEnvelope(t, resp)
	require.Contains(t, string(body.Data), "approval e-mail could not be sent")
}

func TestVoterHandler_ListParsesFilters(t *testing.T) {
	svc := &mockVoterService{}
	req := httptest.NewRequest(http.MethodGet, "/api/v1/admin/voters?status=pending&has_voted=false&search=maria&page=2", nil)

	resp, err := voterApp(svc, "superadmin").Test(req)
	require.NoError(t, err)
	require.Equal(t, fiber.StatusOK, resp.StatusCode)

	require.Equal(t, "pending", svc.listReq.Status)
	require.Equal(t, "maria", svc.listReq.Search)
	require.Equal(t, 2, svc.listReq.Page)
	require.NotNil(t, svc.listReq.HasVoted)
	require.False(t, *svc.listReq.HasVoted)

	resp, err = voterApp(svc, "superadmin").Test(httptest.NewRequest(http.MethodGet, "/api/v1/admin/voters?has_voted=maybe", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusBadRequest, resp.StatusCode)
}

func TestVoterHandler_DeleteReportsIncompleteCleanup(t *testing.T) {
	svc := &mockVoterService{report: dto.DeletionReport{
		Completed: false,
		Steps: []dto.DeletionStep{
			{Step: "verification_tokens", OK: true},
			{Step: "voter_record", OK: false, Error: "database unavailable"},
		},
	}}

	resp, err := voterApp(svc, "superadmin").Test(httptest.NewRequest(http.MethodDelete, "/api/v1/admin/voters/3", nil))
	require.NoError(t, err)
	require.Equal(t, fiber.StatusInternalServerError, resp.StatusCode)

	var body struct {
		Success bool               `json:"success"`
		Details dto.DeletionReport `json:"details"`
	}
	decodeResponse(t, resp, &body)
	require.False(t, body.Success)
	require.Equal(t, uint(3), body.Details.VoterID)
	require.Len(t, body.Details.Steps, 2)
}
