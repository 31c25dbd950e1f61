package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// PositionRepository exposes persistence helpers for ballot positions.
type PositionRepository interface {
	List(ctx context.Context) ([]models.Position, error)
	GetByID(ctx context.Context, id uint) (models.Position, error)
	GetByName(ctx context.Context, name string) (models.Position, error)
	Create(ctx context.Context, position *models.Position) error
	Save(ctx context.Context, position *models.Position) error
	Delete(ctx context.Context, id uint) error
}

type positionRepository struct {
	db *gorm.DB
}

// NewPositionRepository constructs the position repository.
func NewPositionRepository(db *gorm.DB) PositionRepository {
	return &positionRepository{db: db}
}

func (r *positionRepository) List(ctx context.Context) ([]models.Position, error) {
	var positions []models.Position
	if err := r.db.WithContext(ctx).Order("display_order ASC").Order("id ASC").Find(&positions).Error; err != nil {
		return nil, err
	}

	return positions, nil
}

func (r *positionRepository) GetByID(ctx context.Context, id uint) (models.Position, error) {
	var position models.Position
	if err := r.db.WithContext(ctx).First(&position, id).Error; err != nil {
		return models.Position{}, err
	}

	return position, nil
}

func (r *positionRepository) GetByName(ctx context.Context, name string) (models.Position, error) {
	var position models.Position
	err := r.db.WithContext(ctx).
		Where("LOWER(name) = ?", strings.ToLower(strings.TrimSpace(name))).
		First(&position).Error
	if err != nil {
		return models.Position{}, err
	}

	return position, nil
}

func (r *positionRepository) Create(ctx context.Context, position *models.Position) error {
	return r.db.WithContext(ctx).Create(position).Error
}

func (r *positionRepository) Save(ctx context.Context, position *models.Position) error {
	return r.db.WithContext(ctx).Save(position).Error
}

func (r *positionRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Position{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
