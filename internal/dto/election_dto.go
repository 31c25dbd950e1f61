package dto

import "time"

// ElectionStatusResponse describes the voting window and publication state.
type ElectionStatusResponse struct {
	Status           string     `json:"status"`
	VotingStatus     string     `json:"voting_status"`
	StartTime        *time.Time `json:"start_time"`
	EndTime          *time.Time `json:"end_time"`
	DurationHours    *int       `json:"duration_hours"`
	ResultsPublished bool       `json:"results_published"`
	PublishedAt      *time.Time `json:"published_at"`
	ClosedAt         *time.Time `json:"closed_at"`
	ServerTime       time.Time  `json:"server_time"`
}

// StartVotingRequest opens a voting window.
type StartVotingRequest struct {
	DurationHours int  `json:"duration_hours" validate:"required"`
	Confirm       bool `json:"confirm"`
}

// ResetElectionRequest carries the typed confirmation phrase.
type ResetElectionRequest struct {
	Confirmation string `json:"confirmation" validate:"required"`
}
