package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// AdminRepository exposes persistence helpers for committee accounts.
type AdminRepository interface {
	List(ctx context.Context) ([]models.Admin, error)
	GetByID(ctx context.Context, id uint) (models.Admin, error)
	GetByEmail(ctx context.Context, email string) (models.Admin, error)
	CountByRole(ctx context.Context, role models.Role) (int64, error)
	Create(ctx context.Context, admin *models.Admin) error
	Delete(ctx context.Context, id uint) error
}

type adminRepository struct {
	db *gorm.DB
}

// NewAdminRepository constructs the admin repository.
func NewAdminRepository(db *gorm.DB) AdminRepository {
	return &adminRepository{db: db}
}

func (r *adminRepository) List(ctx context.Context) ([]models.Admin, error) {
	var admins []models.Admin
	if err := r.db.WithContext(ctx).Order("created_at ASC").Order("id ASC").Find(&admins).Error; err != nil {
		return nil, err
	}

	return admins, nil
}

func (r *adminRepository) GetByID(ctx context.Context, id uint) (models.Admin, error) {
	var admin models.Admin
	if err := r.db.WithContext(ctx).First(&admin, id).Error; err != nil {
		return models.Admin{}, err
	}

	return admin, nil
}

func (r *adminRepository) GetByEmail(ctx context.Context, email string) (models.Admin, error) {
	var admin models.Admin
	err := r.db.WithContext(ctx).
		Where("LOWER(email) = ?", strings.ToLower(strings.TrimSpace(email))).
		First(&admin).Error
	if err != nil {
		return models.Admin{}, err
	}

	return admin, nil
}

func (r *adminRepository) CountByRole(ctx context.Context, role models.Role) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.Admin{}).Where("role = ?", role).Count(&total).Error
	return total, err
}

func (r *adminRepository) Create(ctx context.Context, admin *models.Admin) error {
	return r.db.WithContext(ctx).Create(admin).Error
}

func (r *adminRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Admin{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
