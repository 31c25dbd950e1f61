package repository

import (
	"context"
	"time"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// AnnouncementFilter filters announcement list queries.
type AnnouncementFilter struct {
	Page       int
	PageSize   int
	ActiveOnly bool
	Now        time.Time
}

// AnnouncementRepository exposes persistence helpers for announcements.
type AnnouncementRepository interface {
	List(ctx context.Context, filter AnnouncementFilter) ([]models.Announcement, int64, error)
	GetByID(ctx context.Context, id uint) (models.Announcement, error)
	Create(ctx context.Context, item *models.Announcement) error
	Save(ctx context.Context, item *models.Announcement) error
	Delete(ctx context.Context, id uint) error
}

type announcementRepository struct {
	db *gorm.DB
}

// NewAnnouncementRepository constructs the repository implementation.
func NewAnnouncementRepository(db *gorm.DB) AnnouncementRepository {
	return &announcementRepository{db: db}
}

func (r *announcementRepository) List(ctx context.Context, filter AnnouncementFilter) ([]models.Announcement, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Announcement{})
	if filter.ActiveOnly {
		now := filter.Now
		if now.IsZero() {
			now = time.Now()
		}
		query = query.Where("is_pinned = ? OR (starts_at <= ? AND (ends_at IS NULL OR ends_at >= ?))", true, now, now)
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

	var items []models.Announcement
	if err := query.Order("is_pinned DESC, starts_at DESC").Order("id DESC").Find(&items).Error; err != nil {
		return nil, 0, err
	}

	return items, total, nil
}

func (r *announcementRepository) GetByID(ctx context.Context, id uint) (models.Announcement, error) {
	var item models.Announcement
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return models.Announcement{}, err
	}

	return item, nil
}

func (r *announcementRepository) Create(ctx context.Context, item *models.Announcement) error {
	return r.db.WithContext(ctx).Create(item).Error
}

func (r *announcementRepository) Save(ctx context.Context, item *models.Announcement) error {
	return r.db.WithContext(ctx).Save(item).Error
}

func (r *announcementRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Announcement{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}
