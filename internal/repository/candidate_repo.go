package repository

import (
	"context"
	"strings"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// CandidateFilter narrows candidate list queries.
type CandidateFilter struct {
	PositionID *uint
	Search     string
	Page       int
	PageSize   int
}

// CandidateRepository exposes persistence helpers for candidates.
type CandidateRepository interface {
	List(ctx context.Context, filter CandidateFilter) ([]models.Candidate, int64, error)
	All(ctx context.Context) ([]models.Candidate, error)
	GetByID(ctx context.Context, id uint) (models.Candidate, error)
	CountByPosition(ctx context.Context, positionID uint) (int64, error)
	Create(ctx context.Context, candidate *models.Candidate) error
	Save(ctx context.Context, candidate *models.Candidate) error
	Delete(ctx context.Context, id uint) error
	SelectWinner(ctx context.Context, candidateID uint, at time.Time) (models.Candidate, error)
}

type candidateRepository struct {
	db *gorm.DB
}

// NewCandidateRepository constructs the candidate repository.
func NewCandidateRepository(db *gorm.DB) CandidateRepository {
	return &candidateRepository{db: db}
}

func (r *candidateRepository) List(ctx context.Context, filter CandidateFilter) ([]models.Candidate, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Candidate{})

	if filter.PositionID != nil {
		query = query.Where("position_id = ?", *filter.PositionID)
	}

	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(name) LIKE ? OR LOWER(partylist) LIKE ?", like, like)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Offset(offset).Limit(filter.PageSize)
	}

	var candidates []models.Candidate
	if err := query.Order("position_id ASC").Order("id ASC").Find(&candidates).Error; err != nil {
		return nil, 0, err
	}

	return candidates, total, nil
}

func (r *candidateRepository) All(ctx context.Context) ([]models.Candidate, error) {
	var candidates []models.Candidate
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&candidates).Error; err != nil {
		return nil, err
	}

	return candidates, nil
}

func (r *candidateRepository) GetByID(ctx context.Context, id uint) (models.Candidate, error) {
	var candidate models.Candidate
	if err := r.db.WithContext(ctx).First(&candidate, id).Error; err != nil {
		return models.Candidate{}, err
	}

	return candidate, nil
}

func (r *candidateRepository) CountByPosition(ctx context.Context, positionID uint) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Candidate{}).Where("position_id = ?", positionID).Count(&total).Error
	return total, err
}

func (r *candidateRepository) Create(ctx context.Context, candidate *models.Candidate) error {
	return r.db.WithContext(ctx).Create(candidate).Error
}

func (r *candidateRepository) Save(ctx context.Context, candidate *models.Candidate) error {
	return r.db.WithContext(ctx).Save(candidate).Error
}

func (r *candidateRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Candidate{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

// SelectWinner clears any manual winner of the candidate's position and marks the
// candidate as the winner, in one transaction.
func (r *candidateRepository) SelectWinner(ctx context.Context, candidateID uint, at time.Time) (models.Candidate, error) {
	var selected models.Candidate
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.First(&selected, candidateID).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Candidate{}).
			Where("position_id = ?", selected.PositionID).
			Updates(map[string]interface{}{"manually_selected_winner": false, "selected_at": nil}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Candidate{}).
			Where("id = ?", selected.ID).
			Updates(map[string]interface{}{"manually_selected_winner": true, "selected_at": at}).Error; err != nil {
			return err
		}

		selected.ManuallySelectedWinner = true
		selected.SelectedAt = &at
		return nil
	})
	if err != nil {
		return models.Candidate{}, err
	}

	return selected, nil
}
