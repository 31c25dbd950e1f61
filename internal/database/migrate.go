package database

import (
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// Migrate creates or updates the tables used by the API.
func Migrate(db *gorm.DB) error {
	if err := db.AutoMigrate(
		&models.Voter{},
		&models.EmailVerificationToken{},
		&models.Election{},
		&models.Position{},
		&models.Candidate{},
		&models.Vote{},
		&models.VoteReceipt{},
		&models.Admin{},
		&models.ActivityLog{},
		&models.Announcement{},
		&models.UploadRecord{},
	); err != nil {
		return fmt.Errorf("auto migrate: %w", err)
	}
	return nil
}
