package service

import (
	"context"
	"errors"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/observability"
	"github.com/noah-isme/campus-evote-api/internal/repository"
)

// BallotService accepts ballots and serves the ballot layout and receipts to voters.
type BallotService interface {
	Ballot(ctx context.Context) ([]dto.BallotPositionResponse, error)
	Submit(ctx context.Context, voterID uint, req dto.BallotSubmitRequest) (dto.ReceiptResponse, error)
	Receipt(ctx context.Context, voterID uint) (dto.ReceiptResponse, error)
}

type ballotService struct {
	voters     repository.VoterRepository
	elections  repository.ElectionRepository
	positions  repository.PositionRepository
	candidates repository.CandidateRepository
	ballots    repository.BallotRepository
	results    ResultsService
	validator  *validator.Validate
	live       LiveService
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewBallotService constructs the ballot service.
func NewBallotService(
	voters repository.VoterRepository,
	elections repository.ElectionRepository,
	positions repository.PositionRepository,
	candidates repository.CandidateRepository,
	ballots repository.BallotRepository,
	results ResultsService,
	validate *validator.Validate,
	live LiveService,
	logger zerolog.Logger,
) BallotService {
	return &ballotService{
		voters:     voters,
		elections:  elections,
		positions:  positions,
		candidates: candidates,
		ballots:    ballots,
		results:    results,
		validator:  validate,
		live:       live,
		logger:     logger.With().Str("component", "ballot_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/campus-evote-api/internal/service/ballot"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *ballotService) Ballot(ctx context.Context) ([]dto.BallotPositionResponse, error) {
	positions, err := s.positions.List(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidates.All(ctx)
	if err != nil {
		return nil, err
	}

	byPosition := make(map[uint][]dto.CandidateResponse, len(positions))
	for _, candidate := range candidates {
		item := dto.NewCandidateResponse(candidate)
		// Running tallies stay hidden from voters.
		item.VoteCount = 0
		item.ManuallySelectedWinner = false
		item.SelectedAt = nil
		byPosition[candidate.PositionID] = append(byPosition[candidate.PositionID], item)
	}

	layout := make([]dto.BallotPositionResponse, 0, len(positions))
	for _, position := range positions {
		items := byPosition[position.ID]
		if items == nil {
			items = []dto.CandidateResponse{}
		}
		layout = append(layout, dto.BallotPositionResponse{
			ID:           position.ID,
			Name:         position.Name,
			MaxSelection: maxInt(position.MaxSelection, 1),
			Candidates:   items,
		})
	}
	return layout, nil
}

func (s *ballotService) Submit(ctx context.Context, voterID uint, req dto.BallotSubmitRequest) (dto.ReceiptResponse, error) {
	ctx, span := s.tracer.Start(ctx, "ballot.submit", trace.WithAttributes(attribute.Int("ballot.selections", len(req.Selections))))
	defer span.End()

	started := time.Now()
	outcome := "error"
	defer func() {
		observability.Ballots().WithLabelValues(outcome).Inc()
		observability.BallotLatency().Observe(time.Since(started).Seconds())
	}()

	if err := s.validator.Struct(req); err != nil {
		outcome = "invalid"
		return dto.ReceiptResponse{}, err
	}

	now := s.now()

	var voter *models.Voter
	loaded, err := s.voters.GetByID(ctx, voterID)
	switch {
	case err == nil:
		voter = &loaded
	case errors.Is(err, gorm.ErrRecordNotFound):
	default:
		span.RecordError(err)
		return dto.ReceiptResponse{}, err
	}

	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		span.RecordError(err)
		return dto.ReceiptResponse{}, err
	}

	if err := election.CheckBallotPreconditions(voter, current, now); err != nil {
		outcome = ballotOutcome(err)
		span.SetStatus(codes.Error, outcome)
		return dto.ReceiptResponse{}, err
	}

	positions, err := s.positions.List(ctx)
	if err != nil {
		return dto.ReceiptResponse{}, err
	}
	candidates, err := s.candidates.All(ctx)
	if err != nil {
		return dto.ReceiptResponse{}, err
	}

	votes, selections, err := election.BuildBallot(positions, candidates, req.Selections)
	if err != nil {
		outcome = "invalid"
		return dto.ReceiptResponse{}, err
	}

	receipt := models.VoteReceipt{
		VoterID:    voterID,
		Selections: datatypes.JSONSlice[models.ReceiptSelection](selections),
		CreatedAt:  now,
	}

	if err := s.ballots.Submit(ctx, voterID, votes, &receipt, now); err != nil {
		outcome = ballotOutcome(err)
		span.RecordError(err)
		span.SetStatus(codes.Error, outcome)
		return dto.ReceiptResponse{}, err
	}

	outcome = "accepted"
	s.results.Invalidate(ctx)

	if s.live != nil {
		payload := map[string]interface{}{"selections": len(votes), "cast_at": now}
		if err := s.live.Publish(ctx, LiveTopicResults, LiveEventBallotCast, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish ballot event")
		}
	}

	s.logger.Info().Int("selections", len(votes)).Msg("ballot accepted")
	return dto.NewReceiptResponse(receipt), nil
}

func (s *ballotService) Receipt(ctx context.Context, voterID uint) (dto.ReceiptResponse, error) {
	receipt, err := s.ballots.ReceiptByVoter(ctx, voterID)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ReceiptResponse{}, ErrReceiptNotFound
		}
		return dto.ReceiptResponse{}, err
	}
	return dto.NewReceiptResponse(receipt), nil
}

func ballotOutcome(err error) string {
	switch {
	case errors.Is(err, election.ErrAlreadyVoted):
		return "already_voted"
	case errors.Is(err, election.ErrVotingClosed):
		return "voting_closed"
	case errors.Is(err, election.ErrNotEligible):
		return "not_eligible"
	case election.IsValidationError(err):
		return "invalid"
	default:
		return "error"
	}
}
