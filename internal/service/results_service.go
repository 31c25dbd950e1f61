package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/redis/go-redis/v9"
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

const resultsCacheKey = "results:current"

// ResultsService computes, caches and publishes election results.
type ResultsService interface {
	Current(ctx context.Context) (dto.ResultsResponse, error)
	Published(ctx context.Context) (dto.ResultsResponse, error)
	Compute(ctx context.Context) ([]election.PositionResult, error)
	Ties(ctx context.Context) ([]election.PositionResult, error)
	ResolveTie(ctx context.Context, actor ActivityActor, req dto.TieResolutionRequest) (dto.ResultsResponse, error)
	Invalidate(ctx context.Context)
}

type resultsService struct {
	elections  repository.ElectionRepository
	positions  repository.PositionRepository
	candidates repository.CandidateRepository
	ballots    repository.BallotRepository
	cache      *redis.Client
	cacheTTL   time.Duration
	validator  *validator.Validate
	activity   ActivityRecorder
	live       LiveService
	logger     zerolog.Logger
	tracer     trace.Tracer
	now        func() time.Time
}

// NewResultsService constructs the results service. The cache is optional.
func NewResultsService(
	elections repository.ElectionRepository,
	positions repository.PositionRepository,
	candidates repository.CandidateRepository,
	ballots repository.BallotRepository,
	cache *redis.Client,
	cacheTTL time.Duration,
	validate *validator.Validate,
	activity ActivityRecorder,
	live LiveService,
	logger zerolog.Logger,
) ResultsService {
	if cacheTTL <= 0 {
		cacheTTL = 30 * time.Second
	}
	return &resultsService{
		elections:  elections,
		positions:  positions,
		candidates: candidates,
		ballots:    ballots,
		cache:      cache,
		cacheTTL:   cacheTTL,
		validator:  validate,
		activity:   activity,
		live:       live,
		logger:     logger.With().Str("component", "results_service").Logger(),
		tracer:     otel.Tracer("github.com/noah-isme/campus-evote-api/internal/service/results"),
		now:        func() time.Time { return time.Now().UTC() },
	}
}

func (s *resultsService) Current(ctx context.Context) (dto.ResultsResponse, error) {
	ctx, span := s.tracer.Start(ctx, "results.current")
	defer span.End()

	if s.cache != nil {
		cached, err := s.cache.Get(ctx, resultsCacheKey).Result()
		if err == nil {
			var response dto.ResultsResponse
			if unmarshalErr := json.Unmarshal([]byte(cached), &response); unmarshalErr == nil {
				response.CacheHit = true
				observability.ResultsCache().WithLabelValues("hit").Inc()
				span.SetAttributes(attribute.Bool("results.cache_hit", true))
				return response, nil
			}
		} else if !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read results cache")
			span.RecordError(err)
		}
		observability.ResultsCache().WithLabelValues("miss").Inc()
	}

	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "load_election_failed")
		return dto.ResultsResponse{}, err
	}

	results, err := s.Compute(ctx)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "compute_failed")
		return dto.ResultsResponse{}, err
	}

	response, err := s.respond(ctx, current, results)
	if err != nil {
		return dto.ResultsResponse{}, err
	}

	if s.cache != nil {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, resultsCacheKey, payload, s.cacheTTL).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to store results cache")
				span.RecordError(err)
			}
		}
	}

	return response, nil
}

func (s *resultsService) Published(ctx context.Context) (dto.ResultsResponse, error) {
	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		return dto.ResultsResponse{}, err
	}

	if !current.ResultsPublished {
		return dto.ResultsResponse{}, ErrResultsNotPublished
	}

	results, err := decodeSnapshot(current.Snapshot)
	if err != nil {
		s.logger.Warn().Err(err).Msg("unreadable results snapshot, recomputing")
		results = nil
	}
	if results == nil {
		if results, err = s.Compute(ctx); err != nil {
			return dto.ResultsResponse{}, err
		}
	}

	return s.respond(ctx, current, results)
}

func (s *resultsService) Compute(ctx context.Context) ([]election.PositionResult, error) {
	positions, err := s.positions.List(ctx)
	if err != nil {
		return nil, err
	}

	candidates, err := s.candidates.All(ctx)
	if err != nil {
		return nil, err
	}

	votes, err := s.ballots.ListVotes(ctx)
	if err != nil {
		return nil, err
	}

	return election.ComputeResults(positions, candidates, votes), nil
}

func (s *resultsService) Ties(ctx context.Context) ([]election.PositionResult, error) {
	results, err := s.Compute(ctx)
	if err != nil {
		return nil, err
	}
	return election.Ties(results), nil
}

func (s *resultsService) ResolveTie(ctx context.Context, actor ActivityActor, req dto.TieResolutionRequest) (dto.ResultsResponse, error) {
	if err := s.validator.Struct(req); err != nil {
		return dto.ResultsResponse{}, err
	}

	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		return dto.ResultsResponse{}, err
	}

	if !election.CanResolveTies(current) {
		return dto.ResultsResponse{}, fmt.Errorf("ties can only be resolved after voting closes and before results are published: %w", election.ErrInvalidTransition)
	}

	results, err := s.Compute(ctx)
	if err != nil {
		return dto.ResultsResponse{}, err
	}

	position, ok := findCandidatePosition(results, req.CandidateID)
	if !ok {
		return dto.ResultsResponse{}, ErrCandidateNotFound
	}

	if position.Tie == nil || !containsID(position.Tie.CandidateIDs, req.CandidateID) {
		return dto.ResultsResponse{}, election.NewValidationError("candidate_id", "candidate is not part of a tie")
	}

	winner, err := s.candidates.SelectWinner(ctx, req.CandidateID, s.now())
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.ResultsResponse{}, ErrCandidateNotFound
		}
		return dto.ResultsResponse{}, err
	}

	resolved, err := s.Compute(ctx)
	if err != nil {
		return dto.ResultsResponse{}, err
	}

	snapshot, err := encodeSnapshot(resolved)
	if err != nil {
		return dto.ResultsResponse{}, err
	}
	current.Snapshot = snapshot
	if err := s.elections.Save(ctx, &current); err != nil {
		return dto.ResultsResponse{}, err
	}

	s.Invalidate(ctx)

	recordActivity(ctx, s.activity, s.logger, actor, "results.resolve_tie", "candidate", uintPtr(winner.ID), map[string]interface{}{
		"position_id": position.PositionID,
		"position":    position.PositionName,
		"threshold":   position.Tie.Threshold,
		"tied":        position.Tie.CandidateIDs,
	})

	if s.live != nil {
		payload := map[string]interface{}{"position_id": position.PositionID, "candidate_id": winner.ID}
		if err := s.live.Publish(ctx, LiveTopicResults, LiveEventTieResolved, payload); err != nil {
			s.logger.Warn().Err(err).Msg("failed to publish tie resolution")
		}
	}

	return s.respond(ctx, current, resolved)
}

func (s *resultsService) Invalidate(ctx context.Context) {
	if s.cache == nil {
		return
	}
	if err := s.cache.Del(ctx, resultsCacheKey).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to invalidate results cache")
	}
}

func (s *resultsService) respond(ctx context.Context, current models.Election, results []election.PositionResult) (dto.ResultsResponse, error) {
	total, err := s.ballots.CountBallots(ctx)
	if err != nil {
		return dto.ResultsResponse{}, err
	}

	if results == nil {
		results = []election.PositionResult{}
	}

	return dto.ResultsResponse{
		ElectionStatus: string(current.Status),
		Published:      current.ResultsPublished,
		TotalBallots:   total,
		Positions:      results,
		GeneratedAt:    s.now(),
	}, nil
}

func encodeSnapshot(results []election.PositionResult) (datatypes.JSON, error) {
	payload, err := json.Marshal(results)
	if err != nil {
		return nil, fmt.Errorf("encode results snapshot: %w", err)
	}
	return datatypes.JSON(payload), nil
}

func decodeSnapshot(snapshot datatypes.JSON) ([]election.PositionResult, error) {
	if len(snapshot) == 0 {
		return nil, nil
	}
	var results []election.PositionResult
	if err := json.Unmarshal(snapshot, &results); err != nil {
		return nil, err
	}
	return results, nil
}

func findCandidatePosition(results []election.PositionResult, candidateID uint) (election.PositionResult, bool) {
	for _, position := range results {
		for _, candidate := range position.Candidates {
			if candidate.CandidateID == candidateID {
				return position, true
			}
		}
	}
	return election.PositionResult{}, false
}

func containsID(ids []uint, id uint) bool {
	for _, candidate := range ids {
		if candidate == id {
			return true
		}
	}
	return false
}
