package repository

import (
	"context"
	"errors"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
)

// BallotRepository persists anonymous votes and voter receipts.
type BallotRepository interface {
	Submit(ctx context.Context, voterID uint, votes []models.Vote, receipt *models.VoteReceipt, at time.Time) error
	ListVotes(ctx context.Context) ([]models.Vote, error)
	CountBallots(ctx context.Context) (int64, error)
	ReceiptByVoter(ctx context.Context, voterID uint) (models.VoteReceipt, error)
	DeleteReceiptByVoter(ctx context.Context, voterID uint) (int64, error)
}

type ballotRepository struct {
	db *gorm.DB
}

// NewBallotRepository constructs the ballot repository.
func NewBallotRepository(db *gorm.DB) BallotRepository {
	return &ballotRepository{db: db}
}

// Submit records a ballot in one transaction. The voter's has_voted flag is flipped with a
// conditional update, so a concurrent second submission affects no rows, returns
// election.ErrAlreadyVoted and rolls back its votes.
func (r *ballotRepository) Submit(ctx context.Context, voterID uint, votes []models.Vote, receipt *models.VoteReceipt, at time.Time) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		// The shared lock holds off a concurrent close until this ballot commits.
		var current models.Election
		err := tx.Clauses(clause.Locking{Strength: "SHARE"}).First(&current, models.CurrentElectionID).Error
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return election.ErrVotingClosed
		}
		if err != nil {
			return err
		}

		if current.Status != models.ElectionStatusActive || current.StartTime == nil || current.EndTime == nil ||
			at.Before(*current.StartTime) || at.After(*current.EndTime) {
			return election.ErrVotingClosed
		}

		update := tx.Model(&models.Voter{}).
			Where("id = ? AND has_voted = ?", voterID, false).
			Updates(map[string]interface{}{"has_voted": true, "voted_at": at})
		if update.Error != nil {
			return update.Error
		}

		if update.RowsAffected == 0 {
			return election.ErrAlreadyVoted
		}

		for i := range votes {
			votes[i].CreatedAt = at
		}

		if len(votes) > 0 {
			if err := tx.Create(&votes).Error; err != nil {
				return err
			}
		}

		receipt.VoterID = voterID
		receipt.CreatedAt = at
		return tx.Create(receipt).Error
	})
}

func (r *ballotRepository) ListVotes(ctx context.Context) ([]models.Vote, error) {
	var votes []models.Vote
	if err := r.db.WithContext(ctx).Order("id ASC").Find(&votes).Error; err != nil {
		return nil, err
	}

	return votes, nil
}

func (r *ballotRepository) CountBallots(ctx context.Context) (int64, error) {
	var total int64
	err := r.db.WithContext(ctx).Model(&models.VoteReceipt{}).Count(&total).Error
	return total, err
}

func (r *ballotRepository) ReceiptByVoter(ctx context.Context, voterID uint) (models.VoteReceipt, error) {
	var receipt models.VoteReceipt
	if err := r.db.WithContext(ctx).Where("voter_id = ?", voterID).First(&receipt).Error; err != nil {
		return models.VoteReceipt{}, err
	}

	return receipt, nil
}

func (r *ballotRepository) DeleteReceiptByVoter(ctx context.Context, voterID uint) (int64, error) {
	result := r.db.WithContext(ctx).Where("voter_id = ?", voterID).Delete(&models.VoteReceipt{})
	return result.RowsAffected, result.Error
}
