package service

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/microcosm-cc/bluemonday"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/observability"
	"github.com/noah-isme/campus-evote-api/internal/repository"
)

const announcementCachePrefix = "announcements:active:v1:"

// AnnouncementService publishes committee notices.
type AnnouncementService interface {
	ListActive(ctx context.Context, page, pageSize int) (dto.AnnouncementListResponse, error)
	List(ctx context.Context, page, pageSize int) (dto.AnnouncementListResponse, error)
	Create(ctx context.Context, actor ActivityActor, req dto.AnnouncementRequest) (dto.AnnouncementResponse, error)
	Update(ctx context.Context, actor ActivityActor, id uint, req dto.AnnouncementRequest) (dto.AnnouncementResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
}

type announcementService struct {
	repo      repository.AnnouncementRepository
	cache     *redis.Client
	ttl       time.Duration
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
	policy    *bluemonday.Policy
	now       func() time.Time
}

// NewAnnouncementService constructs the announcement service.
func NewAnnouncementService(repo repository.AnnouncementRepository, cache *redis.Client, ttl time.Duration, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AnnouncementService {
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	policy := bluemonday.UGCPolicy()
	policy.AllowElements("p", "strong", "em", "a", "ul", "ol", "li", "br")
	policy.AllowAttrs("href", "title", "target").OnElements("a")
	return &announcementService{
		repo:      repo,
		cache:     cache,
		ttl:       ttl,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "announcement_service").Logger(),
		policy:    policy,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *announcementService) ListActive(ctx context.Context, page, pageSize int) (dto.AnnouncementListResponse, error) {
	start := time.Now()
	defer func() {
		observability.AnnouncementsLatency().Observe(time.Since(start).Seconds())
	}()

	page = maxInt(page, 1)
	pageSize = clampPageSize(pageSize)

	cacheKey := ""
	if s.cache != nil {
		cacheKey = fmt.Sprintf("%s%d:%d", announcementCachePrefix, page, pageSize)
		if cached, err := s.cache.Get(ctx, cacheKey).Result(); err == nil && cached != "" {
			var response dto.AnnouncementListResponse
			if err := json.Unmarshal([]byte(cached), &response); err == nil {
				response.CacheHit = true
				observability.AnnouncementsRequests().WithLabelValues("hit").Inc()
				return response, nil
			}
		} else if err != nil && !errors.Is(err, redis.Nil) {
			s.logger.Warn().Err(err).Msg("failed to read announcement cache")
		}
	}

	response, err := s.list(ctx, repository.AnnouncementFilter{Page: page, PageSize: pageSize, ActiveOnly: true, Now: s.now()})
	if err != nil {
		observability.AnnouncementsRequests().WithLabelValues("error").Inc()
		return dto.AnnouncementListResponse{}, err
	}

	if cacheKey != "" {
		if payload, err := json.Marshal(response); err == nil {
			if err := s.cache.Set(ctx, cacheKey, payload, s.ttl).Err(); err != nil {
				s.logger.Warn().Err(err).Msg("failed to cache announcements")
			}
		}
	}

	observability.AnnouncementsRequests().WithLabelValues("miss").Inc()
	return response, nil
}

func (s *announcementService) List(ctx context.Context, page, pageSize int) (dto.AnnouncementListResponse, error) {
	return s.list(ctx, repository.AnnouncementFilter{Page: maxInt(page, 1), PageSize: clampPageSize(pageSize)})
}

func (s *announcementService) Create(ctx context.Context, actor ActivityActor, req dto.AnnouncementRequest) (dto.AnnouncementResponse, error) {
	model := models.Announcement{Slug: generateSlug(req.Title)}
	if err := s.apply(&model, req); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	if err := s.repo.Create(ctx, &model); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	s.changed(ctx, actor, "announcement.create", model)
	return dto.NewAnnouncementResponse(model), nil
}

func (s *announcementService) Update(ctx context.Context, actor ActivityActor, id uint, req dto.AnnouncementRequest) (dto.AnnouncementResponse, error) {
	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.AnnouncementResponse{}, ErrAnnouncementNotFound
		}
		return dto.AnnouncementResponse{}, err
	}

	if err := s.apply(&model, req); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	if err := s.repo.Save(ctx, &model); err != nil {
		return dto.AnnouncementResponse{}, err
	}

	s.changed(ctx, actor, "announcement.update", model)
	return dto.NewAnnouncementResponse(model), nil
}

func (s *announcementService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	model, err := s.repo.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAnnouncementNotFound
		}
		return err
	}

	if err := s.repo.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAnnouncementNotFound
		}
		return err
	}

	s.changed(ctx, actor, "announcement.delete", model)
	return nil
}

func (s *announcementService) apply(model *models.Announcement, req dto.AnnouncementRequest) error {
	req.Title = strings.TrimSpace(req.Title)
	req.Body = strings.TrimSpace(s.policy.Sanitize(req.Body))
	if err := s.validator.Struct(req); err != nil {
		return err
	}

	startsAt := s.now()
	if req.StartsAt != nil {
		startsAt = req.StartsAt.UTC()
	}
	if req.EndsAt != nil && !req.EndsAt.After(startsAt) {
		return election.NewValidationError("ends_at", "must be after starts_at")
	}

	model.Title = req.Title
	model.Body = req.Body
	model.StartsAt = startsAt
	model.EndsAt = req.EndsAt
	model.IsPinned = req.IsPinned
	return nil
}

func (s *announcementService) list(ctx context.Context, filter repository.AnnouncementFilter) (dto.AnnouncementListResponse, error) {
	items, total, err := s.repo.List(ctx, filter)
	if err != nil {
		return dto.AnnouncementListResponse{}, err
	}

	responses := make([]dto.AnnouncementResponse, 0, len(items))
	for _, item := range items {
		responses = append(responses, dto.NewAnnouncementResponse(item))
	}

	return dto.AnnouncementListResponse{Items: responses, Pagination: paginate(filter.Page, filter.PageSize, total)}, nil
}

func (s *announcementService) changed(ctx context.Context, actor ActivityActor, action string, model models.Announcement) {
	s.flushCache(ctx)
	recordActivity(ctx, s.activity, s.logger, actor, action, "announcement", uintPtr(model.ID), map[string]interface{}{
		"slug":      model.Slug,
		"is_pinned": model.IsPinned,
	})
}

func (s *announcementService) flushCache(ctx context.Context) {
	if s.cache == nil {
		return
	}

	iter := s.cache.Scan(ctx, 0, announcementCachePrefix+"*", 100).Iterator()
	keys := make([]string, 0)
	for iter.Next(ctx) {
		keys = append(keys, iter.Val())
	}
	if err := iter.Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to scan announcement cache")
		return
	}
	if len(keys) == 0 {
		return
	}
	if err := s.cache.Del(ctx, keys...).Err(); err != nil {
		s.logger.Warn().Err(err).Msg("failed to flush announcement cache")
	}
}

func clampPageSize(size int) int {
	if size <= 0 {
		return 20
	}
	if size > 100 {
		return 100
	}
	return size
}

func generateSlug(title string) string {
	base := strings.ToLower(strings.TrimSpace(title))

	slug := make([]rune, 0, len(base))
	for _, r := range base {
		switch {
		case (r >= 'a' && r <= 'z') || (r >= '0' && r <= '9'):
			slug = append(slug, r)
		case r == ' ' || r == '-' || r == '_' || r == '.':
			if len(slug) == 0 || slug[len(slug)-1] == '-' {
				continue
			}
			slug = append(slug, '-')
		}
	}
	trimmed := strings.Trim(string(slug), "-")
	if trimmed == "" {
		trimmed = "announcement"
	}
	return trimmed + "-" + uuid.NewString()[:8]
}
