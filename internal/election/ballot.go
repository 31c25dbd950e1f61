package election

import (
	"fmt"
	"time"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// Selection is one candidate chosen on a ballot.
type Selection struct {
	PositionID  uint `json:"position_id" validate:"required"`
	CandidateID uint `json:"candidate_id" validate:"required"`
}

// CheckBallotPreconditions verifies that voter may submit a ballot now.
// A nil voter means the voter does not exist.
func CheckBallotPreconditions(voter *models.Voter, e models.Election, now time.Time) error {
	if voter == nil {
		return ErrNotEligible
	}
	if voter.Status != models.VoterStatusRegistered || !voter.EmailVerified {
		return fmt.Errorf("voter status %s: %w", voter.Status, ErrNotEligible)
	}
	if accessExpired(*voter, now) {
		return fmt.Errorf("voter access expired: %w", ErrNotEligible)
	}
	if voter.HasVoted {
		return ErrAlreadyVoted
	}
	if DeriveVotingStatus(e, now) != VotingStatusActive {
		return ErrVotingClosed
	}
	return nil
}

// BuildBallot validates selections against the ballot layout and returns the anonymous
// votes and the receipt lines to persist.
func BuildBallot(positions []models.Position, candidates []models.Candidate, selections []Selection) ([]models.Vote, []models.ReceiptSelection, error) {
	if len(selections) == 0 {
		return nil, nil, NewValidationError("selections", "ballot must contain at least one selection")
	}

	positionByID := make(map[uint]models.Position, len(positions))
	for _, position := range positions {
		positionByID[position.ID] = position
	}
	candidateByID := make(map[uint]models.Candidate, len(candidates))
	for _, candidate := range candidates {
		candidateByID[candidate.ID] = candidate
	}

	perPosition := make(map[uint]int)
	seen := make(map[uint]struct{}, len(selections))
	votes := make([]models.Vote, 0, len(selections))
	receipt := make([]models.ReceiptSelection, 0, len(selections))

	for _, selection := range selections {
		candidate, ok := candidateByID[selection.CandidateID]
		if !ok {
			return nil, nil, NewValidationError("selections", fmt.Sprintf("candidate %d does not exist", selection.CandidateID))
		}
		if candidate.PositionID != selection.PositionID {
			return nil, nil, NewValidationError("selections", fmt.Sprintf("candidate %d is not running for position %d", selection.CandidateID, selection.PositionID))
		}
		position, ok := positionByID[selection.PositionID]
		if !ok {
			return nil, nil, NewValidationError("selections", fmt.Sprintf("position %d does not exist", selection.PositionID))
		}
		if _, dup := seen[candidate.ID]; dup {
			return nil, nil, NewValidationError("selections", fmt.Sprintf("candidate %d selected more than once", candidate.ID))
		}
		seen[candidate.ID] = struct{}{}

		perPosition[position.ID]++
		limit := position.MaxSelection
		if limit < 1 {
			limit = 1
		}
		if perPosition[position.ID] > limit {
			return nil, nil, NewValidationError("selections", fmt.Sprintf("at most %d selection(s) allowed for %s", limit, position.Name))
		}

		votes = append(votes, models.Vote{CandidateID: candidate.ID, PositionID: position.ID})
		receipt = append(receipt, models.ReceiptSelection{
			CandidateID:   candidate.ID,
			CandidateName: candidate.Name,
			PositionName:  position.Name,
		})
	}

	return votes, receipt, nil
}
