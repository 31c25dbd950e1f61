package repository

import (
	"context"
	"strings"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// VoterFilter defines filters for listing voters from the admin console.
type VoterFilter struct {
	Search   string
	Status   string
	School   string
	HasVoted *bool
	Sort     string
	Page     int
	PageSize int
}

// VoterRepository exposes persistence helpers for voter records.
type VoterRepository interface {
	List(ctx context.Context, filter VoterFilter) ([]models.Voter, int64, error)
	GetByID(ctx context.Context, id uint) (models.Voter, error)
	GetByEmail(ctx context.Context, email string) (models.Voter, error)
	ExistsByIdentity(ctx context.Context, studentID, email string) (bool, error)
	Create(ctx context.Context, voter *models.Voter) error
	Save(ctx context.Context, voter *models.Voter) error
	Delete(ctx context.Context, id uint) error
	CountByStatus(ctx context.Context) (map[models.VoterStatus]int64, error)
}

type voterRepository struct {
	db *gorm.DB
}

// NewVoterRepository constructs the voter repository.
func NewVoterRepository(db *gorm.DB) VoterRepository {
	return &voterRepository{db: db}
}

var voterSortColumns = map[string]string{
	"created_at":  "created_at DESC",
	"-created_at": "created_at ASC",
	"name":        "full_name ASC",
	"-name":       "full_name DESC",
	"voted_at":    "voted_at DESC",
}

func (r *voterRepository) List(ctx context.Context, filter VoterFilter) ([]models.Voter, int64, error) {
	query := r.db.WithContext(ctx).Model(&models.Voter{})

	if filter.Search != "" {
		like := "%" + strings.ToLower(filter.Search) + "%"
		query = query.Where("LOWER(full_name) LIKE ? OR LOWER(email) LIKE ? OR LOWER(student_id) LIKE ?", like, like, like)
	}

	if filter.Status != "" {
		query = query.Where("status = ?", filter.Status)
	}

	if filter.School != "" {
		query = query.Where("school = ?", filter.School)
	}

	if filter.HasVoted != nil {
		query = query.Where("has_voted = ?", *filter.HasVoted)
	}

	countQuery := query.Session(&gorm.Session{})
	var total int64
	if err := countQuery.Count(&total).Error; err != nil {
		return nil, 0, err
	}

	sort, ok := voterSortColumns[filter.Sort]
	if !ok {
		sort = "created_at DESC"
	}
	query = query.Order(sort).Order("id ASC")

	if filter.PageSize > 0 {
		page := filter.Page
		if page <= 0 {
			page = 1
		}
		offset := (page - 1) * filter.PageSize
		query = query.Limit(filter.PageSize).Offset(offset)
	}

	var voters []models.Voter
	if err := query.Find(&voters).Error; err != nil {
		return nil, 0, err
	}

	return voters, total, nil
}

func (r *voterRepository) GetByID(ctx context.Context, id uint) (models.Voter, error) {
	var voter models.Voter
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&voter).Error; err != nil {
		return models.Voter{}, err
	}

	return voter, nil
}

func (r *voterRepository) GetByEmail(ctx context.Context, email string) (models.Voter, error) {
	var voter models.Voter
	normalized := strings.ToLower(strings.TrimSpace(email))
	if err := r.db.WithContext(ctx).Where("LOWER(email) = ?", normalized).First(&voter).Error; err != nil {
		return models.Voter{}, err
	}

	return voter, nil
}

func (r *voterRepository) ExistsByIdentity(ctx context.Context, studentID, email string) (bool, error) {
	var count int64
	err := r.db.WithContext(ctx).Model(&models.Voter{}).
		Where("student_id = ? OR LOWER(email) = ?", strings.TrimSpace(studentID), strings.ToLower(strings.TrimSpace(email))).
		Count(&count).Error
	if err != nil {
		return false, err
	}

	return count > 0, nil
}

func (r *voterRepository) Create(ctx context.Context, voter *models.Voter) error {
	return r.db.WithContext(ctx).Create(voter).Error
}

func (r *voterRepository) Save(ctx context.Context, voter *models.Voter) error {
	return r.db.WithContext(ctx).Save(voter).Error
}

func (r *voterRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&models.Voter{}, id)
	if result.Error != nil {
		return result.Error
	}

	if result.RowsAffected == 0 {
		return gorm.ErrRecordNotFound
	}

	return nil
}

func (r *voterRepository) CountByStatus(ctx context.Context) (map[models.VoterStatus]int64, error) {
	var rows []struct {
		Status models.VoterStatus
		Total  int64
	}

	err := r.db.WithContext(ctx).Model(&models.Voter{}).
		Select("status, COUNT(*) AS total").
		Group("status").
		Scan(&rows).Error
	if err != nil {
		return nil, err
	}

	counts := make(map[models.VoterStatus]int64, len(rows))
	for _, row := range rows {
		counts[row.Status] = row.Total
	}

	return counts, nil
}
