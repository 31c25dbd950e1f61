package dto

import (
	"time"

	"github.com/noah-isme/campus-evote-api/internal/election"
)

// ResultsResponse is the ranked outcome of every position.
type ResultsResponse struct {
	ElectionStatus string                    `json:"election_status"`
	Published      bool                      `json:"published"`
	TotalBallots   int64                     `json:"total_ballots"`
	Positions      []election.PositionResult `json:"positions"`
	GeneratedAt    time.Time                 `json:"generated_at"`
	CacheHit       bool                      `json:"cache_hit"`
}

// TieResolutionRequest names the candidate chosen to break a tie.
type TieResolutionRequest struct {
	CandidateID uint `json:"candidate_id" validate:"required"`
}
