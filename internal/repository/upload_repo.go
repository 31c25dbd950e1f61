package repository

import (
	"context"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// UploadRepository persists metadata about uploaded files.
type UploadRepository interface {
	Create(ctx context.Context, record *models.UploadRecord) error
	ListByOwner(ctx context.Context, ownerType string, ownerID uint) ([]models.UploadRecord, error)
	Delete(ctx context.Context, id uint) error
}

type uploadRepository struct {
	db *gorm.DB
}

// NewUploadRepository constructs a repository for upload records.
func NewUploadRepository(db *gorm.DB) UploadRepository {
	return &uploadRepository{db: db}
}

func (r *uploadRepository) Create(ctx context.Context, record *models.UploadRecord) error {
	return r.db.WithContext(ctx).Create(record).Error
}

func (r *uploadRepository) ListByOwner(ctx context.Context, ownerType string, ownerID uint) ([]models.UploadRecord, error) {
	var records []models.UploadRecord
	err := r.db.WithContext(ctx).
		Where("owner_type = ? AND owner_id = ?", ownerType, ownerID).
		Order("id ASC").
		Find(&records).Error
	if err != nil {
		return nil, err
	}

	return records, nil
}

func (r *uploadRepository) Delete(ctx context.Context, id uint) error {
	return r.db.WithContext(ctx).Delete(&models.UploadRecord{}, id).Error
}
