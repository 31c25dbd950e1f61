package service

import (
	"context"
	"crypto/rand"
	"encoding/base64"
	"errors"
	"fmt"
	"mime/multipart"
	"net/url"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/microcosm-cc/bluemonday"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/repository"
)

const dateLayout = "2006-01-02"

// VoterService manages registration, approval and removal of voters.
type VoterService interface {
	Register(ctx context.Context, req dto.VoterRegisterRequest, document *multipart.FileHeader) (dto.VoterResponse, error)
	List(ctx context.Context, req dto.VoterListRequest) (dto.VoterListResponse, error)
	Get(ctx context.Context, id uint) (dto.VoterResponse, error)
	Approve(ctx context.Context, actor ActivityActor, id uint, req dto.VoterApproveRequest) (dto.VoterActionResponse, error)
	Reject(ctx context.Context, actor ActivityActor, id uint, req dto.VoterRejectRequest) (dto.VoterActionResponse, error)
	VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) (dto.VoterResponse, error)
	Reactivate(ctx context.Context, actor ActivityActor, id uint) (dto.VoterResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) (dto.DeletionReport, error)
}

// VoterServiceConfig holds the settings the voter service needs from configuration.
type VoterServiceConfig struct {
	PublicBaseURL string
}

type voterService struct {
	voters    repository.VoterRepository
	tokens    repository.VerificationTokenRepository
	ballots   repository.BallotRepository
	uploads   UploadService
	mailer    Mailer
	validator *validator.Validate
	activity  ActivityRecorder
	policy    *bluemonday.Policy
	cfg       VoterServiceConfig
	logger    zerolog.Logger
	now       func() time.Time
	newToken  func() (string, error)
}

// NewVoterService constructs the voter service.
func NewVoterService(
	voters repository.VoterRepository,
	tokens repository.VerificationTokenRepository,
	ballots repository.BallotRepository,
	uploads UploadService,
	mailer Mailer,
	validate *validator.Validate,
	activity ActivityRecorder,
	cfg VoterServiceConfig,
	logger zerolog.Logger,
) VoterService {
	return &voterService{
		voters:    voters,
		tokens:    tokens,
		ballots:   ballots,
		uploads:   uploads,
		mailer:    mailer,
		validator: validate,
		activity:  activity,
		policy:    bluemonday.StrictPolicy(),
		cfg:       cfg,
		logger:    logger.With().Str("component", "voter_service").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
		newToken:  generateVerificationToken,
	}
}

func (s *voterService) Register(ctx context.Context, req dto.VoterRegisterRequest, document *multipart.FileHeader) (dto.VoterResponse, error) {
	req.FullName = strings.TrimSpace(req.FullName)
	req.StudentID = strings.TrimSpace(req.StudentID)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.School = strings.TrimSpace(req.School)
	req.YearLevel = strings.TrimSpace(req.YearLevel)

	if err := s.validator.Struct(req); err != nil {
		return dto.VoterResponse{}, err
	}
	if document == nil {
		return dto.VoterResponse{}, ErrUploadRequired
	}

	exists, err := s.voters.ExistsByIdentity(ctx, req.StudentID, req.Email)
	if err != nil {
		return dto.VoterResponse{}, err
	}
	if exists {
		return dto.VoterResponse{}, ErrVoterExists
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(req.Password), bcrypt.DefaultCost)
	if err != nil {
		return dto.VoterResponse{}, fmt.Errorf("hash password: %w", err)
	}

	voter := models.Voter{
		FullName:     req.FullName,
		StudentID:    req.StudentID,
		Email:        req.Email,
		PasswordHash: string(hash),
		YearLevel:    req.YearLevel,
		School:       req.School,
		Status:       models.VoterStatusPending,
	}
	if req.Birthdate != "" {
		birthdate, err := time.ParseInLocation(dateLayout, req.Birthdate, time.UTC)
		if err != nil {
			return dto.VoterResponse{}, election.NewValidationError("birthdate", "must use the YYYY-MM-DD format")
		}
		voter.Birthdate = &birthdate
	}

	if err := s.voters.Create(ctx, &voter); err != nil {
		return dto.VoterResponse{}, err
	}

	upload, err := s.uploads.Store(ctx, document, models.UploadOwnerVoter, voter.ID, UploadKindImage, UploadKindPDF)
	if err != nil {
		if deleteErr := s.voters.Delete(ctx, voter.ID); deleteErr != nil {
			s.logger.Error().Err(deleteErr).Uint("voter_id", voter.ID).Msg("failed to roll back registration")
		}
		return dto.VoterResponse{}, err
	}

	voter.VerificationDocURL = upload.URL
	if err := s.voters.Save(ctx, &voter); err != nil {
		return dto.VoterResponse{}, err
	}

	s.logger.Info().Uint("voter_id", voter.ID).Msg("voter registered")
	return dto.NewVoterResponse(voter), nil
}

func (s *voterService) List(ctx context.Context, req dto.VoterListRequest) (dto.VoterListResponse, error) {
	filter := repository.VoterFilter{
		Search:   strings.TrimSpace(req.Search),
		School:   strings.TrimSpace(req.School),
		HasVoted: req.HasVoted,
		Sort:     req.Sort,
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if status := strings.TrimSpace(req.Status); status != "" {
		parsed, err := models.ParseVoterStatus(status)
		if err != nil {
			return dto.VoterListResponse{}, election.NewValidationError("status", err.Error())
		}
		filter.Status = string(parsed)
	}

	voters, total, err := s.voters.List(ctx, filter)
	if err != nil {
		return dto.VoterListResponse{}, err
	}

	items := make([]dto.VoterResponse, 0, len(voters))
	for _, voter := range voters {
		items = append(items, dto.NewVoterResponse(voter))
	}

	return dto.VoterListResponse{Items: items, Pagination: paginate(req.Page, req.PageSize, total)}, nil
}

func (s *voterService) Get(ctx context.Context, id uint) (dto.VoterResponse, error) {
	voter, err := s.load(ctx, id)
	if err != nil {
		return dto.VoterResponse{}, err
	}
	return dto.NewVoterResponse(voter), nil
}

func (s *voterService) Approve(ctx context.Context, actor ActivityActor, id uint, req dto.VoterApproveRequest) (dto.VoterActionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.VoterActionResponse{}, err
	}

	expiration, err := time.ParseInLocation(dateLayout, req.ExpirationDate, time.UTC)
	if err != nil {
		return dto.VoterActionResponse{}, election.NewValidationError("expiration_date", "must use the YYYY-MM-DD format")
	}

	voter, err := s.load(ctx, id)
	if err != nil {
		return dto.VoterActionResponse{}, err
	}

	now := s.now()
	approved, err := election.Approve(voter, expiration, now)
	if err != nil {
		return dto.VoterActionResponse{}, err
	}

	secret, err := s.newToken()
	if err != nil {
		return dto.VoterActionResponse{}, fmt.Errorf("generate verification token: %w", err)
	}

	if _, err := s.tokens.DeleteByVoter(ctx, voter.ID); err != nil {
		return dto.VoterActionResponse{}, err
	}
	token := election.NewVerificationToken(approved, secret, now)
	if err := s.tokens.Create(ctx, &token); err != nil {
		return dto.VoterActionResponse{}, err
	}

	if err := s.voters.Save(ctx, &approved); err != nil {
		if _, cleanupErr := s.tokens.DeleteByVoter(ctx, voter.ID); cleanupErr != nil {
			s.logger.Warn().Err(cleanupErr).Uint("voter_id", voter.ID).Msg("failed to discard verification token")
		}
		return dto.VoterActionResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "voter.approve", "voter", uintPtr(approved.ID), map[string]interface{}{
		"expiration_date": approved.ExpirationDate.Format(dateLayout),
	})

	message := approvalMail(approved.FullName, approved.Email, s.verifyURL(secret), approved.ExpirationDate.Format(dateLayout))
	warnings := deliverMail(ctx, s.mailer, s.logger, message)

	return dto.VoterActionResponse{Voter: dto.NewVoterResponse(approved), Warnings: nonNilStrings(warnings)}, nil
}

func (s *voterService) Reject(ctx context.Context, actor ActivityActor, id uint, req dto.VoterRejectRequest) (dto.VoterActionResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.VoterActionResponse{}, err
	}

	voter, err := s.load(ctx, id)
	if err != nil {
		return dto.VoterActionResponse{}, err
	}

	rejected, err := election.Reject(voter, s.policy.Sanitize(req.Reason))
	if err != nil {
		return dto.VoterActionResponse{}, err
	}

	if err := s.voters.Save(ctx, &rejected); err != nil {
		return dto.VoterActionResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "voter.reject", "voter", uintPtr(rejected.ID), map[string]interface{}{
		"reason": rejected.RejectionReason,
	})

	warnings := deliverMail(ctx, s.mailer, s.logger, rejectionMail(rejected.FullName, rejected.Email, rejected.RejectionReason))

	return dto.VoterActionResponse{Voter: dto.NewVoterResponse(rejected), Warnings: nonNilStrings(warnings)}, nil
}

func (s *voterService) VerifyEmail(ctx context.Context, req dto.VerifyEmailRequest) (dto.VoterResponse, error) {
	req.Token = strings.TrimSpace(req.Token)
	if err := s.validator.Struct(req); err != nil {
		return dto.VoterResponse{}, err
	}

	token, err := s.tokens.GetByToken(ctx, req.Token)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.VoterResponse{}, election.ErrTokenInvalid
		}
		return dto.VoterResponse{}, err
	}

	voter, err := s.voters.GetByID(ctx, token.VoterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.VoterResponse{}, election.ErrTokenInvalid
		}
		return dto.VoterResponse{}, err
	}

	verified, consumed, err := election.VerifyEmail(voter, token, s.now())
	if err != nil {
		return dto.VoterResponse{}, err
	}

	if err := s.tokens.Consume(ctx, consumed, verified); err != nil {
		return dto.VoterResponse{}, err
	}

	s.logger.Info().Uint("voter_id", verified.ID).Msg("voter e-mail verified")
	return dto.NewVoterResponse(verified), nil
}

func (s *voterService) Reactivate(ctx context.Context, actor ActivityActor, id uint) (dto.VoterResponse, error) {
	voter, err := s.load(ctx, id)
	if err != nil {
		return dto.VoterResponse{}, err
	}

	reactivated, err := election.Reactivate(voter)
	if err != nil {
		return dto.VoterResponse{}, err
	}

	if err := s.voters.Save(ctx, &reactivated); err != nil {
		return dto.VoterResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "voter.reactivate", "voter", uintPtr(reactivated.ID), map[string]interface{}{
		"previous_status": string(voter.Status),
		"status":          string(reactivated.Status),
	})

	return dto.NewVoterResponse(reactivated), nil
}

// Delete removes the voter and everything linked to their identity. Anonymous votes stay in
// the tally. Every step runs even if an earlier one failed; the report says which did.
func (s *voterService) Delete(ctx context.Context, actor ActivityActor, id uint) (dto.DeletionReport, error) {
	voter, err := s.load(ctx, id)
	if err != nil {
		return dto.DeletionReport{}, err
	}

	report := dto.DeletionReport{VoterID: voter.ID, Steps: make([]dto.DeletionStep, 0, 4)}
	step := func(name string, affected int64, err error) {
		entry := dto.DeletionStep{Step: name, OK: err == nil, Affected: affected}
		if err != nil {
			entry.Error = err.Error()
			s.logger.Warn().Err(err).Uint("voter_id", voter.ID).Str("step", name).Msg("voter deletion step failed")
		}
		report.Steps = append(report.Steps, entry)
	}

	affected, err := s.tokens.DeleteByVoter(ctx, voter.ID)
	step("verification_tokens", affected, err)

	affected, err = s.ballots.DeleteReceiptByVoter(ctx, voter.ID)
	step("vote_receipt", affected, err)

	removed, failures := s.uploads.RemoveOwned(ctx, models.UploadOwnerVoter, voter.ID)
	step("uploaded_documents", removed, errors.Join(failures...))

	err = s.voters.Delete(ctx, voter.ID)
	if errors.Is(err, gorm.ErrRecordNotFound) {
		err = nil
	}
	affected = 0
	if err == nil {
		affected = 1
	}
	step("voter_record", affected, err)
	report.Completed = err == nil

	recordActivity(ctx, s.activity, s.logger, actor, "voter.delete", "voter", uintPtr(voter.ID), map[string]interface{}{
		"student_id": voter.StudentID,
		"completed":  report.Completed,
		"has_voted":  voter.HasVoted,
	})

	return report, nil
}

func (s *voterService) load(ctx context.Context, id uint) (models.Voter, error) {
	voter, err := s.voters.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Voter{}, ErrVoterNotFound
		}
		return models.Voter{}, err
	}
	return voter, nil
}

func (s *voterService) verifyURL(token string) string {
	base := strings.TrimRight(s.cfg.PublicBaseURL, "/")
	return base + "/verify-email?token=" + url.QueryEscape(token)
}

func generateVerificationToken() (string, error) {
	b := make([]byte, 32)
	if _, err := rand.Read(b); err != nil {
		return "", err
	}
	return base64.RawURLEncoding.EncodeToString(b), nil
}

func nonNilStrings(values []string) []string {
	if values == nil {
		return []string{}
	}
	return values
}
