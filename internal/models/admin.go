package models

import (
	"time"

	"gorm.io/datatypes"
)

// Admin is a member of the election committee with console access.
type Admin struct {
	ID           uint                        `gorm:"primaryKey" json:"id"`
	Name         string                      `gorm:"size:255;not null" json:"name"`
	Email        string                      `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash string                      `gorm:"size:255;not null" json:"-"`
	Role         Role                        `gorm:"size:32;not null" json:"role"`
	Permissions  datatypes.JSONSlice[string] `json:"permissions"`
	CreatedAt    time.Time                   `json:"created_at"`
	UpdatedAt    time.Time                   `json:"updated_at"`
}
