package models

import "time"

// Announcement is a notice published by the election committee.
type Announcement struct {
	ID        uint       `gorm:"primaryKey" json:"id"`
	Slug      string     `gorm:"size:128;uniqueIndex" json:"slug"`
	Title     string     `gorm:"size:255;not null" json:"title"`
	Body      string     `gorm:"type:text;not null" json:"body"`
	StartsAt  time.Time  `gorm:"index" json:"starts_at"`
	EndsAt    *time.Time `gorm:"index" json:"ends_at"`
	IsPinned  bool       `gorm:"index" json:"is_pinned"`
	CreatedAt time.Time  `json:"created_at"`
	UpdatedAt time.Time  `json:"updated_at"`
}

// Upload owner types.
const (
	UploadOwnerVoter     = "voter"
	UploadOwnerCandidate = "candidate"
)

// UploadRecord indexes a blob stored in the file store so it can be found and removed later.
type UploadRecord struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	OwnerType string    `gorm:"size:32;not null;index:idx_upload_owner" json:"owner_type"`
	OwnerID   uint      `gorm:"not null;index:idx_upload_owner" json:"owner_id"`
	FileName  string    `gorm:"size:255;not null" json:"file_name"`
	URL       string    `gorm:"size:512;not null" json:"url"`
	PublicID  string    `gorm:"size:255" json:"public_id"`
	MimeType  string    `gorm:"size:128;not null" json:"mime_type"`
	SizeBytes int64     `gorm:"not null" json:"size_bytes"`
	Checksum  string    `gorm:"size:128;index" json:"checksum"`
	CreatedAt time.Time `json:"created_at"`
}
