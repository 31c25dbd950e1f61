package dto

import (
	"time"

	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
)

// BallotSubmitRequest carries the voter's selections.
type BallotSubmitRequest struct {
	Selections []election.Selection `json:"selections" validate:"required,min=1,dive"`
}

// ReceiptResponse is returned to the voter after casting a ballot.
type ReceiptResponse struct {
	ID         uint                      `json:"id"`
	Selections []models.ReceiptSelection `json:"selections"`
	CastAt     time.Time                 `json:"cast_at"`
}

// NewReceiptResponse converts a receipt model into a DTO.
func NewReceiptResponse(receipt models.VoteReceipt) ReceiptResponse {
	selections := []models.ReceiptSelection(receipt.Selections)
	if selections == nil {
		selections = []models.ReceiptSelection{}
	}

	return ReceiptResponse{
		ID:         receipt.ID,
		Selections: selections,
		CastAt:     receipt.CreatedAt,
	}
}

// BallotPositionResponse lists the candidates a voter can choose for a position.
type BallotPositionResponse struct {
	ID           uint                `json:"id"`
	Name         string              `json:"name"`
	MaxSelection int                 `json:"max_selection"`
	Candidates   []CandidateResponse `json:"candidates"`
}
