package dto

import (
	"time"

	"github.com/noah-isme/campus-evote-api/internal/models"
)

// PositionRequest captures payloads for creating or updating a position.
type PositionRequest struct {
	Name         string `json:"name" validate:"required,min=2,max=128"`
	MaxSelection int    `json:"max_selection" validate:"required,min=1,max=50"`
	Order        int    `json:"order" validate:"min=0"`
}

// PositionResponse serializes a position.
type PositionResponse struct {
	ID           uint   `json:"id"`
	Name         string `json:"name"`
	MaxSelection int    `json:"max_selection"`
	Order        int    `json:"order"`
}

// NewPositionResponse converts a position model into a DTO.
func NewPositionResponse(position models.Position) PositionResponse {
	return PositionResponse{
		ID:           position.ID,
		Name:         position.Name,
		MaxSelection: position.MaxSelection,
		Order:        position.Order,
	}
}

// CandidateRequest captures candidate fields. The position may be given by id or by name.
type CandidateRequest struct {
	Name       string `json:"name" form:"name" validate:"required,min=2,max=255"`
	PositionID uint   `json:"position_id" form:"position_id"`
	Position   string `json:"position" form:"position" validate:"omitempty,max=128"`
	Partylist  string `json:"partylist" form:"partylist" validate:"omitempty,max=255"`
	School     string `json:"school" form:"school" validate:"omitempty,max=255"`
}

// CandidateListRequest defines filters for listing candidates.
type CandidateListRequest struct {
	Page       int
	PageSize   int
	PositionID uint
	Search     string
}

// CandidateResponse serializes a candidate.
type CandidateResponse struct {
	ID                     uint       `json:"id"`
	Name                   string     `json:"name"`
	PositionID             uint       `json:"position_id"`
	Partylist              string     `json:"partylist"`
	School                 string     `json:"school"`
	PhotoURL               string     `json:"photo_url"`
	VoteCount              int64      `json:"vote_count"`
	ManuallySelectedWinner bool       `json:"manually_selected_winner"`
	SelectedAt             *time.Time `json:"selected_at,omitempty"`
}

// NewCandidateResponse converts a candidate model into a DTO.
func NewCandidateResponse(candidate models.Candidate) CandidateResponse {
	return CandidateResponse{
		ID:                     candidate.ID,
		Name:                   candidate.Name,
		PositionID:             candidate.PositionID,
		Partylist:              candidate.Partylist,
		School:                 candidate.School,
		PhotoURL:               candidate.PhotoURL,
		VoteCount:              candidate.VoteCount,
		ManuallySelectedWinner: candidate.ManuallySelectedWinner,
		SelectedAt:             candidate.SelectedAt,
	}
}

// CandidateListResponse wraps a paginated candidate response.
type CandidateListResponse struct {
	Items      []CandidateResponse `json:"items"`
	Pagination PaginationMeta      `json:"pagination"`
}
