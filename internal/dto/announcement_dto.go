package dto

import (
	"time"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// AnnouncementRequest captures payloads for publishing an announcement.
type AnnouncementRequest struct {
	Title    string     `json:"title" validate:"required,min=3,max=255"`
	Body     string     `json:"body" validate:"required"`
	StartsAt *time.Time `json:"starts_at"`
	EndsAt   *time.Time `json:"ends_at"`
	IsPinned bool       `json:"is_pinned"`
}

// AnnouncementResponse represents an announcement payload returned to clients.
type AnnouncementResponse struct {
	ID        uint       `json:"id"`
	Slug      string     `json:"slug"`
	Title     string     `json:"title"`
	Body      string     `json:"body"`
	StartsAt  time.Time  `json:"starts_at"`
	EndsAt    *time.Time `json:"ends_at"`
	IsPinned  bool       `json:"is_pinned"`
	CreatedAt time.Time  `json:"created_at"`
}

// NewAnnouncementResponse converts an announcement model into a DTO.
func NewAnnouncementResponse(item models.Announcement) AnnouncementResponse {
	return AnnouncementResponse{
		ID:        item.ID,
		Slug:      item.Slug,
		Title:     item.Title,
		Body:      item.Body,
		StartsAt:  item.StartsAt,
		EndsAt:    item.EndsAt,
		IsPinned:  item.IsPinned,
		CreatedAt: item.CreatedAt,
	}
}

// AnnouncementListResponse contains paginated announcements.
type AnnouncementListResponse struct {
	Items      []AnnouncementResponse `json:"items"`
	Pagination PaginationMeta         `json:"pagination"`
	CacheHit   bool                   `json:"cache_hit"`
}
