package integration_test

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/config"
	"github.com/noah-isme/campus-evote-api/internal/database"
	"github.com/noah-isme/campus-evote-api/internal/handler"
	"github.com/noah-isme/campus-evote-api/internal/middleware"
	"github.com/noah-isme/campus-evote-api/internal/repository"
	"github.com/noah-isme/campus-evote-api/internal/router"
	"github.com/noah-isme/campus-evote-api/internal/service"
)

const (
	testSecret        = "integration-secret"
	testAdminEmail    = "committee@campus.test"
	testAdminPassword = "committee-pass"
)

type memoryStorage struct{}

func (memoryStorage) Upload(_ context.Context, name string, _ io.Reader) (string, string, error) {
	return "https://files.test/" + name, "evote/" + name, nil
}

func (memoryStorage) Delete(context.Context, string) error { return nil }

// outbox keeps every message the services tried to send.
type outbox struct {
	mu       sync.Mutex
	messages []service.MailMessage
}

func (o *outbox) Send(_ context.Context, message service.MailMessage) error {
	o.mu.Lock()
	defer o.mu.Unlock()
	o.messages = append(o.messages, message)
	return nil
}

func (o *outbox) last(t *testing.T) service.MailMessage {
	t.Helper()
	o.mu.Lock()
	defer o.mu.Unlock()
	require.NotEmpty(t, o.messages)
	return o.messages[len(o.messages)-1]
}

type testEnv struct {
	app  *fiber.App
	db   *gorm.DB
	live service.LiveService
	mail *outbox
}

func newTestEnv(t *testing.T) *testEnv {
	t.Helper()

	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:integration_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)
	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })
	require.NoError(t, database.Migrate(db))

	validate := validator.New(validator.WithRequiredStructEnabled())
	logger := zerolog.New(io.Discard)
	cfg := config.Config{AppName: "Campus eVote", JWTSecret: testSecret, JWTTTL: time.Hour, LoginRateLimit: 100, StreamKeepAlive: time.Second}

	voterRepo := repository.NewVoterRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	electionRepo := repository.NewElectionRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	candidateRepo := repository.NewCandidateRepository(db)
	ballotRepo := repository.NewBallotRepository(db)

	mail := &outbox{}
	activity := service.NewActivityService(repository.NewActivityLogRepository(db), logger)
	live := service.NewLiveService(nil, "", nil, logger)
	uploads := service.NewUploadService(memoryStorage{}, repository.NewUploadRepository(db), 2, logger)

	results := service.NewResultsService(electionRepo, positionRepo, candidateRepo, ballotRepo, nil, 0, validate, activity, live, logger)
	elections := service.NewElectionService(electionRepo, results, validate, activity, live, logger)
	ballots := service.NewBallotService(voterRepo, electionRepo, positionRepo, candidateRepo, ballotRepo, results, validate, live, logger)
	voters := service.NewVoterService(voterRepo, repository.NewVerificationTokenRepository(db), ballotRepo, uploads, mail, validate, activity, service.VoterServiceConfig{PublicBaseURL: "https://vote.campus.test"}, logger)
	admins := service.NewAdminService(adminRepo, validate, activity, logger)
	announcements := service.NewAnnouncementService(repository.NewAnnouncementRepository(db), nil, 0, validate, activity, logger)

	created, err := admins.Bootstrap(context.Background(), "Election Committee", testAdminEmail, testAdminPassword)
	require.NoError(t, err)
	require.True(t, created)

	app := fiber.New()
	middleware.Register(app, middleware.Config{Logger: &logger})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:              handler.NewAuthHandler(service.NewAuthService(voterRepo, adminRepo, validate, cfg.JWTSecret, cfg.JWTTTL, logger), logger),
		VoterHandler:             handler.NewVoterHandler(voters, logger),
		BallotHandler:            handler.NewBallotHandler(ballots, logger),
		ElectionHandler:          handler.NewElectionHandler(elections, logger),
		ResultsHandler:           handler.NewResultsHandler(results, service.NewExportService(results, activity, logger), live, logger, cfg.StreamKeepAlive),
		CandidateHandler:         handler.NewCandidateHandler(service.NewCandidateService(electionRepo, positionRepo, candidateRepo, uploads, results, validate, activity, logger), logger),
		AnnouncementHandler:      handler.NewAnnouncementHandler(announcements, logger),
		AdminAnnouncementHandler: handler.NewAdminAnnouncementHandler(announcements, logger),
		AdminHandler:             handler.NewAdminHandler(admins, logger),
		AdminActivityHandler:     handler.NewAdminActivityHandler(activity, logger),
		Health:                   handler.HealthDependencies{DB: db},
		JWTMiddleware:            middleware.JWTProtected(cfg.JWTSecret),
		AdminJWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret, true),
		AdminResolver:            middleware.ResolveAdmin(adminRepo),
		LoginRateLimit:           cfg.LoginRateLimit,
	})

	return &testEnv{app: app, db: db, live: live, mail: mail}
}

type envelope struct {
	Success bool            `json:"success"`
	Data    json.RawMessage `json:"data"`
	Message string          `json:"message"`
	Details json.RawMessage `json:"details"`
}

func (e *testEnv) do(t *testing.T, method, path, token string, payload interface{}) (int, envelope) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		require.NoError(t, err)
		body = bytes.NewReader(raw)
	}

	req := httptest.NewRequest(method, path, body)
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	return e.send(t, req)
}

func (e *testEnv) send(t *testing.T, req *http.Request) (int, envelope) {
	t.Helper()

	resp, err := e.app.Test(req, -1)
	require.NoError(t, err)
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	var env envelope
	require.NoError(t, json.Unmarshal(raw, &env), string(raw))
	return resp.StatusCode, env
}

func decodeData[T any](t *testing.T, env envelope) T {
	t.Helper()
	var out T
	require.NoError(t, json.Unmarshal(env.Data, &out), string(env.Data))
	return out
}

func (e *testEnv) login(t *testing.T, path, email, password string) string {
	t.Helper()
	status, env := e.do(t, http.MethodPost, path, "", map[string]string{"email": email, "password": password})
	require.Equal(t, http.StatusOK, status, env.Message)
	return decodeData[struct {
		Token string `json:"token"`
	}](t, env).Token
}

func (e *testEnv) adminToken(t *testing.T) string {
	return e.login(t, "/api/v1/auth/admins/login", testAdminEmail, testAdminPassword)
}

func startFiberServer(t *testing.T, app *fiber.App) (string, func()) {
	t.Helper()

	listener, err := net.Listen("tcp", "127.0.0.1:0")
	require.NoError(t, err)

	done := make(chan struct{})
	go func() {
		if err := app.Listener(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			t.Logf("fiber listener stopped: %v", err)
		}
		close(done)
	}()

	time.Sleep(50 * time.Millisecond)

	shutdown := func() {
		_ = app.Shutdown()
		_ = listener.Close()
		select {
		case <-done:
		case <-time.After(100 * time.Millisecond):
		}
	}

	return listener.Addr().String(), shutdown
}
