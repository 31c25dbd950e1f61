package repository

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
)

// VerificationTokenRepository persists e-mail verification tokens.
type VerificationTokenRepository interface {
	Create(ctx context.Context, token *models.EmailVerificationToken) error
	GetByToken(ctx context.Context, token string) (models.EmailVerificationToken, error)
	Consume(ctx context.Context, token models.EmailVerificationToken, voter models.Voter) error
	DeleteByVoter(ctx context.Context, voterID uint) (int64, error)
}

type verificationTokenRepository struct {
	db *gorm.DB
}

// NewVerificationTokenRepository constructs the verification token repository.
func NewVerificationTokenRepository(db *gorm.DB) VerificationTokenRepository {
	return &verificationTokenRepository{db: db}
}

func (r *verificationTokenRepository) Create(ctx context.Context, token *models.EmailVerificationToken) error {
	return r.db.WithContext(ctx).Create(token).Error
}

func (r *verificationTokenRepository) GetByToken(ctx context.Context, token string) (models.EmailVerificationToken, error) {
	var record models.EmailVerificationToken
	if err := r.db.WithContext(ctx).Where("token = ?", token).First(&record).Error; err != nil {
		return models.EmailVerificationToken{}, err
	}

	return record, nil
}

// Consume marks the token used and stores the verified voter in one transaction. The
// token update is conditional on used = false so only one caller can consume it, and the
// voter update only applies while the voter still awaits verification.
func (r *verificationTokenRepository) Consume(ctx context.Context, token models.EmailVerificationToken, voter models.Voter) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.EmailVerificationToken{}).
			Where("id = ? AND used = ?", token.ID, false).
			Update("used", true)
		if update.Error != nil {
			return update.Error
		}

		if update.RowsAffected == 0 {
			return election.ErrTokenAlreadyUsed
		}

		promote := tx.Model(&models.Voter{}).
			Where("id = ? AND status = ?", voter.ID, models.VoterStatusApprovedPendingVerification).
			Updates(map[string]interface{}{
				"status":         voter.Status,
				"email_verified": voter.EmailVerified,
			})
		if promote.Error != nil {
			return promote.Error
		}

		// The voter changed state after the token was read; the token stays unused.
		if promote.RowsAffected == 0 {
			return fmt.Errorf("voter is no longer awaiting verification: %w", election.ErrInvalidTransition)
		}
		return nil
	})
}

func (r *verificationTokenRepository) DeleteByVoter(ctx context.Context, voterID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("voter_id = ?", voterID).Delete(&models.EmailVerificationToken{})
	return result.RowsAffected, result.Error
}
