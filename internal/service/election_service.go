package service

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/observability"
	"github.com/noah-isme/campus-evote-api/internal/repository"
)

// Close triggers recorded in metrics and the audit log.
const (
	CloseTriggerManual = "manual"
	CloseTriggerAuto   = "auto"
)

// ElectionService drives the voting window and result publication.
type ElectionService interface {
	Status(ctx context.Context) (dto.ElectionStatusResponse, error)
	Start(ctx context.Context, actor ActivityActor, req dto.StartVotingRequest) (dto.ElectionStatusResponse, error)
	Close(ctx context.Context, actor ActivityActor) (dto.ElectionStatusResponse, error)
	Publish(ctx context.Context, actor ActivityActor) (dto.ElectionStatusResponse, error)
	Reset(ctx context.Context, actor ActivityActor, req dto.ResetElectionRequest) (dto.ElectionStatusResponse, error)
	AutoClose(ctx context.Context) (bool, error)
}

type electionService struct {
	elections repository.ElectionRepository
	results   ResultsService
	validator *validator.Validate
	activity  ActivityRecorder
	live      LiveService
	logger    zerolog.Logger
	tracer    trace.Tracer
	now       func() time.Time

	mu              sync.Mutex
	lastAutoCloseAt time.Time
}

// NewElectionService constructs the election service.
func NewElectionService(
	elections repository.ElectionRepository,
	results ResultsService,
	validate *validator.Validate,
	activity ActivityRecorder,
	live LiveService,
	logger zerolog.Logger,
) ElectionService {
	return &electionService{
		elections: elections,
		results:   results,
		validator: validate,
		activity:  activity,
		live:      live,
		logger:    logger.With().Str("component", "election_service").Logger(),
		tracer:    otel.Tracer("github.com/noah-isme/campus-evote-api/internal/service/election"),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *electionService) Status(ctx context.Context) (dto.ElectionStatusResponse, error) {
	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		return dto.ElectionStatusResponse{}, err
	}
	return s.toStatus(current), nil
}

func (s *electionService) Start(ctx context.Context, actor ActivityActor, req dto.StartVotingRequest) (dto.ElectionStatusResponse, error) {
	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		return dto.ElectionStatusResponse{}, err
	}

	started, err := election.Start(current, s.now(), req.DurationHours, req.Confirm)
	if err != nil {
		return dto.ElectionStatusResponse{}, err
	}

	if err := s.elections.Save(ctx, &started); err != nil {
		return dto.ElectionStatusResponse{}, err
	}

	observability.ElectionTransitions().WithLabelValues("start", CloseTriggerManual).Inc()
	s.results.Invalidate(ctx)

	recordActivity(ctx, s.activity, s.logger, actor, "election.start", "election", uintPtr(started.ID), map[string]interface{}{
		"duration_hours": req.DurationHours,
		"end_time":       started.EndTime,
	})
	s.broadcast(ctx, LiveEventElectionStarted, started)

	s.logger.Info().Int("duration_hours", req.DurationHours).Time("end_time", *started.EndTime).Msg("voting started")
	return s.toStatus(started), nil
}

func (s *electionService) Close(ctx context.Context, actor ActivityActor) (dto.ElectionStatusResponse, error) {
	current, _, err := s.close(ctx, actor, CloseTriggerManual)
	if err != nil {
		return dto.ElectionStatusResponse{}, err
	}
	return s.toStatus(current), nil
}

// AutoClose closes an expired voting window once per end time. It reports whether this call
// performed the close.
func (s *electionService) AutoClose(ctx context.Context) (bool, error) {
	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		return false, err
	}

	if !election.ShouldAutoClose(current, s.now()) {
		return false, nil
	}

	s.mu.Lock()
	if !s.lastAutoCloseAt.IsZero() && s.lastAutoCloseAt.Equal(*current.EndTime) {
		s.mu.Unlock()
		return false, nil
	}
	previous := s.lastAutoCloseAt
	s.lastAutoCloseAt = *current.EndTime
	s.mu.Unlock()

	_, changed, err := s.close(ctx, SystemActor, CloseTriggerAuto)
	if err != nil {
		// Let the next tick retry this window.
		s.mu.Lock()
		if s.lastAutoCloseAt.Equal(*current.EndTime) {
			s.lastAutoCloseAt = previous
		}
		s.mu.Unlock()
		s.logger.Error().Err(err).Time("end_time", *current.EndTime).Msg("auto-close failed")
		return false, err
	}
	return changed, nil
}

func (s *electionService) close(ctx context.Context, actor ActivityActor, trigger string) (models.Election, bool, error) {
	ctx, span := s.tracer.Start(ctx, "election.close", trace.WithAttributes(attribute.String("election.trigger", trigger)))
	defer span.End()

	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		span.RecordError(err)
		return models.Election{}, false, err
	}

	closed, changed, err := election.Close(current, s.now())
	if err != nil {
		span.SetStatus(codes.Error, "invalid_transition")
		return models.Election{}, false, err
	}
	if !changed {
		return closed, false, nil
	}

	results, applied, err := s.elections.CloseWithTally(ctx, &closed)
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "close_failed")
		return models.Election{}, false, err
	}
	if !applied {
		// Another request closed the window first.
		latest, err := s.elections.GetOrCreate(ctx)
		if err != nil {
			return models.Election{}, false, err
		}
		return latest, false, nil
	}

	observability.ElectionTransitions().WithLabelValues("close", trigger).Inc()
	s.results.Invalidate(ctx)

	recordActivity(ctx, s.activity, s.logger, actor, "election.close", "election", uintPtr(closed.ID), map[string]interface{}{
		"trigger":   trigger,
		"positions": len(results),
		"ties":      len(election.Ties(results)),
	})
	s.broadcast(ctx, LiveEventElectionClosed, closed)

	s.logger.Info().Str("trigger", trigger).Msg("voting closed")
	return closed, true, nil
}

func (s *electionService) Publish(ctx context.Context, actor ActivityActor) (dto.ElectionStatusResponse, error) {
	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		return dto.ElectionStatusResponse{}, err
	}

	if current.ResultsPublished {
		return s.toStatus(current), nil
	}

	published, err := election.Publish(current, s.now())
	if err != nil {
		return dto.ElectionStatusResponse{}, err
	}

	results, err := s.results.Compute(ctx)
	if err != nil {
		return dto.ElectionStatusResponse{}, err
	}
	snapshot, err := encodeSnapshot(results)
	if err != nil {
		return dto.ElectionStatusResponse{}, err
	}
	published.Snapshot = snapshot

	if err := s.elections.Save(ctx, &published); err != nil {
		return dto.ElectionStatusResponse{}, err
	}

	observability.ElectionTransitions().WithLabelValues("publish", CloseTriggerManual).Inc()
	s.results.Invalidate(ctx)

	recordActivity(ctx, s.activity, s.logger, actor, "election.publish", "election", uintPtr(published.ID), map[string]interface{}{
		"unresolved_ties": len(election.Ties(results)),
	})
	s.broadcast(ctx, LiveEventResultsPublished, published)

	return s.toStatus(published), nil
}

func (s *electionService) Reset(ctx context.Context, actor ActivityActor, req dto.ResetElectionRequest) (dto.ElectionStatusResponse, error) {
	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		return dto.ElectionStatusResponse{}, err
	}

	blank, err := election.Reset(current, req.Confirmation)
	if err != nil {
		return dto.ElectionStatusResponse{}, err
	}

	if err := s.elections.Reset(ctx, &blank); err != nil {
		return dto.ElectionStatusResponse{}, err
	}

	s.mu.Lock()
	s.lastAutoCloseAt = time.Time{}
	s.mu.Unlock()

	observability.ElectionTransitions().WithLabelValues("reset", CloseTriggerManual).Inc()
	s.results.Invalidate(ctx)

	recordActivity(ctx, s.activity, s.logger, actor, "election.reset", "election", uintPtr(blank.ID), map[string]interface{}{
		"previous_status": string(current.Status),
		"was_published":   current.ResultsPublished,
	})
	s.broadcast(ctx, LiveEventElectionReset, blank)

	s.logger.Warn().Uint("actor_id", actor.ID).Msg("election reset")
	return s.toStatus(blank), nil
}

func (s *electionService) broadcast(ctx context.Context, eventType string, current models.Election) {
	if s.live == nil {
		return
	}

	status := s.toStatus(current)
	for _, topic := range []string{LiveTopicElection, LiveTopicResults} {
		if err := s.live.Publish(ctx, topic, eventType, status); err != nil {
			s.logger.Warn().Err(err).Str("event", eventType).Msg("failed to publish election event")
		}
	}
}

func (s *electionService) toStatus(current models.Election) dto.ElectionStatusResponse {
	now := s.now()
	return dto.ElectionStatusResponse{
		Status:           string(current.Status),
		VotingStatus:     string(election.DeriveVotingStatus(current, now)),
		StartTime:        current.StartTime,
		EndTime:          current.EndTime,
		DurationHours:    current.DurationHours,
		ResultsPublished: current.ResultsPublished,
		PublishedAt:      current.PublishedAt,
		ClosedAt:         current.ClosedAt,
		ServerTime:       now,
	}
}

// AutoCloser polls the election and closes it once its voting window has ended.
type AutoCloser struct {
	elections ElectionService
	interval  time.Duration
	logger    zerolog.Logger
}

// NewAutoCloser constructs an auto-closer polling at interval.
func NewAutoCloser(elections ElectionService, interval time.Duration, logger zerolog.Logger) *AutoCloser {
	if interval <= 0 {
		interval = time.Second
	}
	return &AutoCloser{
		elections: elections,
		interval:  interval,
		logger:    logger.With().Str("component", "auto_closer").Logger(),
	}
}

// Run blocks until ctx is cancelled.
func (a *AutoCloser) Run(ctx context.Context) {
	ticker := time.NewTicker(a.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			closed, err := a.elections.AutoClose(ctx)
			if err != nil && !errors.Is(err, context.Canceled) {
				a.logger.Warn().Err(err).Msg("auto-close tick failed")
				continue
			}
			if closed {
				a.logger.Info().Msg("voting window expired, election closed")
			}
		}
	}
}
