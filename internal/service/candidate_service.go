package service

import (
	"context"
	"errors"
	"mime/multipart"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/repository"
)

// CandidateService manages the ballot layout: positions and the candidates running for them.
type CandidateService interface {
	ListPositions(ctx context.Context) ([]dto.PositionResponse, error)
	CreatePosition(ctx context.Context, actor ActivityActor, req dto.PositionRequest) (dto.PositionResponse, error)
	UpdatePosition(ctx context.Context, actor ActivityActor, id uint, req dto.PositionRequest) (dto.PositionResponse, error)
	DeletePosition(ctx context.Context, actor ActivityActor, id uint) error

	ListCandidates(ctx context.Context, req dto.CandidateListRequest) (dto.CandidateListResponse, error)
	GetCandidate(ctx context.Context, id uint) (dto.CandidateResponse, error)
	CreateCandidate(ctx context.Context, actor ActivityActor, req dto.CandidateRequest, photo *multipart.FileHeader) (dto.CandidateResponse, error)
	UpdateCandidate(ctx context.Context, actor ActivityActor, id uint, req dto.CandidateRequest, photo *multipart.FileHeader) (dto.CandidateResponse, error)
	DeleteCandidate(ctx context.Context, actor ActivityActor, id uint) error
}

type candidateService struct {
	elections  repository.ElectionRepository
	positions  repository.PositionRepository
	candidates repository.CandidateRepository
	uploads    UploadService
	results    ResultsService
	validator  *validator.Validate
	activity   ActivityRecorder
	logger     zerolog.Logger
}

// NewCandidateService constructs the candidate service.
func NewCandidateService(
	elections repository.ElectionRepository,
	positions repository.PositionRepository,
	candidates repository.CandidateRepository,
	uploads UploadService,
	results ResultsService,
	validate *validator.Validate,
	activity ActivityRecorder,
	logger zerolog.Logger,
) CandidateService {
	return &candidateService{
		elections:  elections,
		positions:  positions,
		candidates: candidates,
		uploads:    uploads,
		results:    results,
		validator:  validate,
		activity:   activity,
		logger:     logger.With().Str("component", "candidate_service").Logger(),
	}
}

func (s *candidateService) ListPositions(ctx context.Context) ([]dto.PositionResponse, error) {
	positions, err := s.positions.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]dto.PositionResponse, 0, len(positions))
	for _, position := range positions {
		items = append(items, dto.NewPositionResponse(position))
	}
	return items, nil
}

func (s *candidateService) CreatePosition(ctx context.Context, actor ActivityActor, req dto.PositionRequest) (dto.PositionResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return dto.PositionResponse{}, err
	}
	if err := s.ensureEditable(ctx); err != nil {
		return dto.PositionResponse{}, err
	}
	if err := s.ensurePositionNameFree(ctx, req.Name, 0); err != nil {
		return dto.PositionResponse{}, err
	}

	position := models.Position{Name: req.Name, MaxSelection: req.MaxSelection, Order: req.Order}
	if err := s.positions.Create(ctx, &position); err != nil {
		return dto.PositionResponse{}, err
	}

	s.changed(ctx, actor, "position.create", "position", position.ID, map[string]interface{}{"name": position.Name})
	return dto.NewPositionResponse(position), nil
}

func (s *candidateService) UpdatePosition(ctx context.Context, actor ActivityActor, id uint, req dto.PositionRequest) (dto.PositionResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	if err := s.validator.Struct(req); err != nil {
		return dto.PositionResponse{}, err
	}
	if err := s.ensureEditable(ctx); err != nil {
		return dto.PositionResponse{}, err
	}

	position, err := s.loadPosition(ctx, id)
	if err != nil {
		return dto.PositionResponse{}, err
	}
	if err := s.ensurePositionNameFree(ctx, req.Name, position.ID); err != nil {
		return dto.PositionResponse{}, err
	}

	position.Name = req.Name
	position.MaxSelection = req.MaxSelection
	position.Order = req.Order
	if err := s.positions.Save(ctx, &position); err != nil {
		return dto.PositionResponse{}, err
	}

	s.changed(ctx, actor, "position.update", "position", position.ID, map[string]interface{}{"name": position.Name})
	return dto.NewPositionResponse(position), nil
}

func (s *candidateService) DeletePosition(ctx context.Context, actor ActivityActor, id uint) error {
	if err := s.ensureEditable(ctx); err != nil {
		return err
	}

	position, err := s.loadPosition(ctx, id)
	if err != nil {
		return err
	}

	count, err := s.candidates.CountByPosition(ctx, position.ID)
	if err != nil {
		return err
	}
	if count > 0 {
		return ErrPositionInUse
	}

	if err := s.positions.Delete(ctx, position.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrPositionNotFound
		}
		return err
	}

	s.changed(ctx, actor, "position.delete", "position", position.ID, map[string]interface{}{"name": position.Name})
	return nil
}

func (s *candidateService) ListCandidates(ctx context.Context, req dto.CandidateListRequest) (dto.CandidateListResponse, error) {
	filter := repository.CandidateFilter{
		Search:   strings.TrimSpace(req.Search),
		Page:     req.Page,
		PageSize: req.PageSize,
	}
	if req.PositionID > 0 {
		filter.PositionID = &req.PositionID
	}

	candidates, total, err := s.candidates.List(ctx, filter)
	if err != nil {
		return dto.CandidateListResponse{}, err
	}

	items := make([]dto.CandidateResponse, 0, len(candidates))
	for _, candidate := range candidates {
		items = append(items, dto.NewCandidateResponse(candidate))
	}

	return dto.CandidateListResponse{Items: items, Pagination: paginate(req.Page, req.PageSize, total)}, nil
}

func (s *candidateService) GetCandidate(ctx context.Context, id uint) (dto.CandidateResponse, error) {
	candidate, err := s.loadCandidate(ctx, id)
	if err != nil {
		return dto.CandidateResponse{}, err
	}
	return dto.NewCandidateResponse(candidate), nil
}

func (s *candidateService) CreateCandidate(ctx context.Context, actor ActivityActor, req dto.CandidateRequest, photo *multipart.FileHeader) (dto.CandidateResponse, error) {
	req = trimCandidateRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return dto.CandidateResponse{}, err
	}
	if err := s.ensureEditable(ctx); err != nil {
		return dto.CandidateResponse{}, err
	}

	position, err := s.resolvePosition(ctx, req)
	if err != nil {
		return dto.CandidateResponse{}, err
	}

	candidate := models.Candidate{
		Name:       req.Name,
		PositionID: position.ID,
		Partylist:  req.Partylist,
		School:     req.School,
	}
	if err := s.candidates.Create(ctx, &candidate); err != nil {
		return dto.CandidateResponse{}, err
	}

	if photo != nil {
		if err := s.attachPhoto(ctx, &candidate, photo); err != nil {
			return dto.CandidateResponse{}, err
		}
	}

	s.changed(ctx, actor, "candidate.create", "candidate", candidate.ID, map[string]interface{}{
		"name":     candidate.Name,
		"position": position.Name,
	})
	return dto.NewCandidateResponse(candidate), nil
}

func (s *candidateService) UpdateCandidate(ctx context.Context, actor ActivityActor, id uint, req dto.CandidateRequest, photo *multipart.FileHeader) (dto.CandidateResponse, error) {
	req = trimCandidateRequest(req)
	if err := s.validator.Struct(req); err != nil {
		return dto.CandidateResponse{}, err
	}
	if err := s.ensureEditable(ctx); err != nil {
		return dto.CandidateResponse{}, err
	}

	candidate, err := s.loadCandidate(ctx, id)
	if err != nil {
		return dto.CandidateResponse{}, err
	}

	position, err := s.resolvePosition(ctx, req)
	if err != nil {
		return dto.CandidateResponse{}, err
	}

	candidate.Name = req.Name
	candidate.PositionID = position.ID
	candidate.Partylist = req.Partylist
	candidate.School = req.School

	if photo != nil {
		if err := s.attachPhoto(ctx, &candidate, photo); err != nil {
			return dto.CandidateResponse{}, err
		}
	} else if err := s.candidates.Save(ctx, &candidate); err != nil {
		return dto.CandidateResponse{}, err
	}

	s.changed(ctx, actor, "candidate.update", "candidate", candidate.ID, map[string]interface{}{
		"name":     candidate.Name,
		"position": position.Name,
	})
	return dto.NewCandidateResponse(candidate), nil
}

func (s *candidateService) DeleteCandidate(ctx context.Context, actor ActivityActor, id uint) error {
	if err := s.ensureEditable(ctx); err != nil {
		return err
	}

	candidate, err := s.loadCandidate(ctx, id)
	if err != nil {
		return err
	}

	if err := s.candidates.Delete(ctx, candidate.ID); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrCandidateNotFound
		}
		return err
	}

	if _, failures := s.uploads.RemoveOwned(ctx, models.UploadOwnerCandidate, candidate.ID); len(failures) > 0 {
		s.logger.Warn().Err(errors.Join(failures...)).Uint("candidate_id", candidate.ID).Msg("candidate photo cleanup incomplete")
	}

	s.changed(ctx, actor, "candidate.delete", "candidate", candidate.ID, map[string]interface{}{"name": candidate.Name})
	return nil
}

// attachPhoto replaces the candidate's photo and saves the candidate.
func (s *candidateService) attachPhoto(ctx context.Context, candidate *models.Candidate, photo *multipart.FileHeader) error {
	if _, failures := s.uploads.RemoveOwned(ctx, models.UploadOwnerCandidate, candidate.ID); len(failures) > 0 {
		s.logger.Warn().Err(errors.Join(failures...)).Uint("candidate_id", candidate.ID).Msg("previous candidate photo not removed")
	}

	upload, err := s.uploads.Store(ctx, photo, models.UploadOwnerCandidate, candidate.ID, UploadKindImage)
	if err != nil {
		return err
	}

	candidate.PhotoURL = upload.URL
	return s.candidates.Save(ctx, candidate)
}

// ensureEditable refuses ballot layout changes while voting is open.
func (s *candidateService) ensureEditable(ctx context.Context) error {
	current, err := s.elections.GetOrCreate(ctx)
	if err != nil {
		return err
	}
	if current.Status == models.ElectionStatusActive {
		return election.ErrElectionActive
	}
	return nil
}

func (s *candidateService) ensurePositionNameFree(ctx context.Context, name string, selfID uint) error {
	existing, err := s.positions.GetByName(ctx, name)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil
		}
		return err
	}
	if existing.ID != selfID {
		return ErrPositionExists
	}
	return nil
}

func (s *candidateService) resolvePosition(ctx context.Context, req dto.CandidateRequest) (models.Position, error) {
	switch {
	case req.PositionID > 0:
		return s.loadPosition(ctx, req.PositionID)
	case req.Position != "":
		position, err := s.positions.GetByName(ctx, req.Position)
		if err != nil {
			if errors.Is(err, gorm.ErrRecordNotFound) {
				return models.Position{}, ErrPositionNotFound
			}
			return models.Position{}, err
		}
		return position, nil
	default:
		return models.Position{}, election.NewValidationError("position", "position id or name is required")
	}
}

func (s *candidateService) loadPosition(ctx context.Context, id uint) (models.Position, error) {
	position, err := s.positions.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Position{}, ErrPositionNotFound
		}
		return models.Position{}, err
	}
	return position, nil
}

func (s *candidateService) loadCandidate(ctx context.Context, id uint) (models.Candidate, error) {
	candidate, err := s.candidates.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return models.Candidate{}, ErrCandidateNotFound
		}
		return models.Candidate{}, err
	}
	return candidate, nil
}

func (s *candidateService) changed(ctx context.Context, actor ActivityActor, action, entityType string, id uint, metadata map[string]interface{}) {
	if s.results != nil {
		s.results.Invalidate(ctx)
	}
	recordActivity(ctx, s.activity, s.logger, actor, action, entityType, uintPtr(id), metadata)
}

func trimCandidateRequest(req dto.CandidateRequest) dto.CandidateRequest {
	req.Name = strings.TrimSpace(req.Name)
	req.Position = strings.TrimSpace(req.Position)
	req.Partylist = strings.TrimSpace(req.Partylist)
	req.School = strings.TrimSpace(req.School)
	return req
}
