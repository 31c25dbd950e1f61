package repository

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"gorm.io/datatypes"
	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
)

// ElectionRepository persists the singleton election row and the writes that must
// happen together with a state change.
type ElectionRepository interface {
	GetOrCreate(ctx context.Context) (models.Election, error)
	Save(ctx context.Context, e *models.Election) error
	CloseWithTally(ctx context.Context, e *models.Election) ([]election.PositionResult, bool, error)
	Reset(ctx context.Context, e *models.Election) error
}

type electionRepository struct {
	db *gorm.DB
}

// NewElectionRepository constructs the election repository.
func NewElectionRepository(db *gorm.DB) ElectionRepository {
	return &electionRepository{db: db}
}

func (r *electionRepository) GetOrCreate(ctx context.Context) (models.Election, error) {
	var current models.Election
	err := r.db.WithContext(ctx).First(&current, models.CurrentElectionID).Error
	if err == nil {
		return current, nil
	}

	if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Election{}, err
	}

	seed := models.Election{ID: models.CurrentElectionID, Status: models.ElectionStatusDraft}
	if err := r.db.WithContext(ctx).Clauses(clause.OnConflict{DoNothing: true}).Create(&seed).Error; err != nil {
		return models.Election{}, err
	}

	if err := r.db.WithContext(ctx).First(&current, models.CurrentElectionID).Error; err != nil {
		return models.Election{}, err
	}

	return current, nil
}

func (r *electionRepository) Save(ctx context.Context, e *models.Election) error {
	return r.db.WithContext(ctx).Save(e).Error
}

// CloseWithTally closes the election, then tallies the ballots and stores the results
// snapshot inside the same transaction. It reports false when another caller closed the
// election first.
func (r *electionRepository) CloseWithTally(ctx context.Context, e *models.Election) ([]election.PositionResult, bool, error) {
	var results []election.PositionResult
	changed := false
	err := r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Election{}).
			Where("id = ? AND status = ?", e.ID, models.ElectionStatusActive).
			Updates(map[string]interface{}{
				"status":     e.Status,
				"closed_at":  e.ClosedAt,
				"updated_at": time.Now(),
			})
		if update.Error != nil {
			return update.Error
		}

		if update.RowsAffected == 0 {
			return nil
		}

		var positions []models.Position
		if err := tx.Order("display_order ASC").Order("id ASC").Find(&positions).Error; err != nil {
			return err
		}

		var candidates []models.Candidate
		if err := tx.Order("id ASC").Find(&candidates).Error; err != nil {
			return err
		}

		var votes []models.Vote
		if err := tx.Order("id ASC").Find(&votes).Error; err != nil {
			return err
		}

		results = election.ComputeResults(positions, candidates, votes)
		snapshot, err := json.Marshal(results)
		if err != nil {
			return fmt.Errorf("encode results snapshot: %w", err)
		}
		e.Snapshot = datatypes.JSON(snapshot)

		if err := tx.Model(&models.Election{}).Where("id = ?", e.ID).Update("snapshot", e.Snapshot).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Candidate{}).Where("1 = 1").Update("vote_count", 0).Error; err != nil {
			return err
		}

		for candidateID, count := range election.Tally(results) {
			if err := tx.Model(&models.Candidate{}).Where("id = ?", candidateID).Update("vote_count", count).Error; err != nil {
				return err
			}
		}

		changed = true
		return nil
	})
	if err != nil {
		return nil, false, err
	}

	return results, changed, nil
}

// Reset wipes every ballot and returns the election to e in one transaction. Voter
// accounts are kept; only their participation flags are cleared.
func (r *electionRepository) Reset(ctx context.Context, e *models.Election) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		update := tx.Model(&models.Election{}).
			Where("id = ? AND status <> ?", e.ID, models.ElectionStatusActive).
			Select("*").
			Updates(e)
		if update.Error != nil {
			return update.Error
		}

		if update.RowsAffected == 0 {
			return election.ErrElectionActive
		}

		if err := tx.Where("1 = 1").Delete(&models.Vote{}).Error; err != nil {
			return err
		}

		if err := tx.Where("1 = 1").Delete(&models.VoteReceipt{}).Error; err != nil {
			return err
		}

		if err := tx.Model(&models.Candidate{}).Where("1 = 1").Updates(map[string]interface{}{
			"vote_count":               0,
			"manually_selected_winner": false,
			"selected_at":              nil,
		}).Error; err != nil {
			return err
		}

		return tx.Model(&models.Voter{}).Where("has_voted = ?", true).Updates(map[string]interface{}{
			"has_voted": false,
			"voted_at":  nil,
		}).Error
	})
}
