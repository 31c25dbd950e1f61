package service

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"mime/multipart"
	"net/textproto"
	"strings"
	"sync"
	"testing"
	"time"

	miniredis "github.com/alicebob/miniredis/v2"
	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/database"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/repository"
)

var pngHeader = []byte{0x89, 0x50, 0x4E, 0x47, 0x0D, 0x0A, 0x1A, 0x0A, 0x00, 0x00, 0x00, 0x0D, 0x49, 0x48, 0x44, 0x52}

func testLogger() zerolog.Logger {
	return zerolog.Nop()
}

func testValidator() *validator.Validate {
	return validator.New(validator.WithRequiredStructEnabled())
}

func newServiceDB(t *testing.T) *gorm.DB {
	t.Helper()
	name := strings.NewReplacer("/", "_", " ", "_").Replace(t.Name())
	db, err := gorm.Open(sqlite.Open(fmt.Sprintf("file:svc_%s?mode=memory&cache=shared", name)), &gorm.Config{})
	require.NoError(t, err)

	sqlDB, err := db.DB()
	require.NoError(t, err)
	sqlDB.SetMaxOpenConns(1)
	t.Cleanup(func() { _ = sqlDB.Close() })

	require.NoError(t, database.Migrate(db))
	return db
}

func newTestRedis(t *testing.T) (*miniredis.Miniredis, *redis.Client) {
	t.Helper()
	server, err := miniredis.Run()
	require.NoError(t, err)
	t.Cleanup(server.Close)

	client := redis.NewClient(&redis.Options{Addr: server.Addr()})
	t.Cleanup(func() { _ = client.Close() })
	return server, client
}

type memoryStorage struct {
	mu        sync.Mutex
	files     map[string][]byte
	uploadErr error
	deleteErr error
	deleted   []string
}

func newMemoryStorage() *memoryStorage {
	return &memoryStorage{files: make(map[string][]byte)}
}

func (m *memoryStorage) Upload(ctx context.Context, name string, reader io.Reader) (string, string, error) {
	if m.uploadErr != nil {
		return "", "", m.uploadErr
	}
	data, err := io.ReadAll(reader)
	if err != nil {
		return "", "", err
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	publicID := fmt.Sprintf("evote/%d-%s", len(m.files)+1, name)
	m.files[publicID] = data
	return "https://cdn.example.com/" + publicID, publicID, nil
}

func (m *memoryStorage) Delete(ctx context.Context, publicID string) error {
	if m.deleteErr != nil {
		return m.deleteErr
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.files, publicID)
	m.deleted = append(m.deleted, publicID)
	return nil
}

func (m *memoryStorage) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.files)
}

type recordingMailer struct {
	mu       sync.Mutex
	messages []MailMessage
	err      error
}

func (r *recordingMailer) Send(ctx context.Context, message MailMessage) error {
	if r.err != nil {
		return r.err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.messages = append(r.messages, message)
	return nil
}

var (
	errMailDown    = errors.New("smtp relay unavailable")
	errStorageDown = errors.New("blob store unavailable")
)

// testEnv wires every service against one in-memory database.
type testEnv struct {
	db      *gorm.DB
	storage *memoryStorage
	mailer  *recordingMailer
	live    LiveService

	voterRepo     repository.VoterRepository
	tokenRepo     repository.VerificationTokenRepository
	electionRepo  repository.ElectionRepository
	positionRepo  repository.PositionRepository
	candidateRepo repository.CandidateRepository
	ballotRepo    repository.BallotRepository
	adminRepo     repository.AdminRepository
	activityRepo  repository.ActivityLogRepository

	activity   ActivityService
	uploads    UploadService
	results    ResultsService
	elections  ElectionService
	ballots    BallotService
	voters     VoterService
	candidates CandidateService
	admins     AdminService
	auth       AuthService
}

func newTestEnv(t *testing.T, cache *redis.Client) *testEnv {
	t.Helper()
	db := newServiceDB(t)
	logger := testLogger()
	validate := testValidator()

	env := &testEnv{
		db:            db,
		storage:       newMemoryStorage(),
		mailer:        &recordingMailer{},
		live:          NewLiveService(nil, "", nil, logger),
		voterRepo:     repository.NewVoterRepository(db),
		tokenRepo:     repository.NewVerificationTokenRepository(db),
		electionRepo:  repository.NewElectionRepository(db),
		positionRepo:  repository.NewPositionRepository(db),
		candidateRepo: repository.NewCandidateRepository(db),
		ballotRepo:    repository.NewBallotRepository(db),
		adminRepo:     repository.NewAdminRepository(db),
		activityRepo:  repository.NewActivityLogRepository(db),
	}

	env.activity = NewActivityService(env.activityRepo, logger)
	env.uploads = NewUploadService(env.storage, repository.NewUploadRepository(db), 1, logger)
	env.results = NewResultsService(env.electionRepo, env.positionRepo, env.candidateRepo, env.ballotRepo, cache, time.Minute, validate, env.activity, env.live, logger)
	env.elections = NewElectionService(env.electionRepo, env.results, validate, env.activity, env.live, logger)
	env.ballots = NewBallotService(env.voterRepo, env.electionRepo, env.positionRepo, env.candidateRepo, env.ballotRepo, env.results, validate, env.live, logger)
	env.voters = NewVoterService(env.voterRepo, env.tokenRepo, env.ballotRepo, env.uploads, env.mailer, validate, env.activity, VoterServiceConfig{PublicBaseURL: "https://vote.example.edu"}, logger)
	env.candidates = NewCandidateService(env.electionRepo, env.positionRepo, env.candidateRepo, env.uploads, env.results, validate, env.activity, logger)
	env.admins = NewAdminService(env.adminRepo, validate, env.activity, logger)
	env.auth = NewAuthService(env.voterRepo, env.adminRepo, validate, "test-secret", time.Hour, logger)
	return env
}

var superadmin = ActivityActor{ID: 1, Role: "superadmin"}

func (e *testEnv) seedLayout(t *testing.T) (models.Position, []models.Candidate) {
	t.Helper()
	position := models.Position{Name: "President", MaxSelection: 1, Order: 1}
	require.NoError(t, e.db.Create(&position).Error)

	candidates := []models.Candidate{
		{Name: "Alice", PositionID: position.ID, Partylist: "Blue"},
		{Name: "Bob", PositionID: position.ID, Partylist: "Red"},
	}
	require.NoError(t, e.db.Create(&candidates).Error)
	return position, candidates
}

func (e *testEnv) seedRegisteredVoter(t *testing.T, email string) models.Voter {
	t.Helper()
	voter := models.Voter{
		FullName:      "Voter " + email,
		StudentID:     "S-" + email,
		Email:         email,
		PasswordHash:  "hash",
		School:        "Engineering",
		Status:        models.VoterStatusRegistered,
		EmailVerified: true,
	}
	require.NoError(t, e.db.Create(&voter).Error)
	return voter
}

func (e *testEnv) seedElection(t *testing.T, status models.ElectionStatus, start, end time.Time) models.Election {
	t.Helper()
	hours := int(end.Sub(start).Hours())
	current := models.Election{
		ID:            models.CurrentElectionID,
		Status:        status,
		StartTime:     &start,
		EndTime:       &end,
		DurationHours: &hours,
	}
	require.NoError(t, e.db.Save(&current).Error)
	return current
}

func (e *testEnv) seedVotes(t *testing.T, positionID uint, counts map[uint]int) {
	t.Helper()
	for candidateID, n := range counts {
		for i := 0; i < n; i++ {
			require.NoError(t, e.db.Create(&models.Vote{CandidateID: candidateID, PositionID: positionID}).Error)
		}
	}
}

func (e *testEnv) activityActions(t *testing.T) []string {
	t.Helper()
	var logs []models.ActivityLog
	require.NoError(t, e.db.Order("id").Find(&logs).Error)
	actions := make([]string, 0, len(logs))
	for _, log := range logs {
		actions = append(actions, log.Action)
	}
	return actions
}

func buildFileHeader(t *testing.T, filename string, content []byte) *multipart.FileHeader {
	t.Helper()
	body := &bytes.Buffer{}
	writer := multipart.NewWriter(body)
	part, err := writer.CreatePart(textproto.MIMEHeader{
		"Content-Disposition": {"form-data; name=\"file\"; filename=\"" + filename + "\""},
		"Content-Type":        {"application/octet-stream"},
	})
	require.NoError(t, err)
	_, err = part.Write(content)
	require.NoError(t, err)
	writer.Close()

	reader := multipart.NewReader(body, writer.Boundary())
	form, err := reader.ReadForm(int64(len(content) + 1024))
	require.NoError(t, err)
	files := form.File["file"]
	require.Len(t, files, 1)
	return files[0]
}
