package models

import (
	"time"

	"gorm.io/datatypes"
)

// CurrentElectionID is the fixed key of the singleton election row.
const CurrentElectionID uint = 1

// Election holds the voting window and publication state.
type Election struct {
	ID               uint           `gorm:"primaryKey" json:"id"`
	Status           ElectionStatus `gorm:"size:16;not null" json:"status"`
	StartTime        *time.Time     `json:"start_time"`
	EndTime          *time.Time     `json:"end_time"`
	DurationHours    *int           `json:"duration_hours"`
	ResultsPublished bool           `gorm:"not null;default:false" json:"results_published"`
	PublishedAt      *time.Time     `json:"published_at"`
	ClosedAt         *time.Time     `json:"closed_at"`
	Snapshot         datatypes.JSON `json:"snapshot,omitempty"`
	CreatedAt        time.Time      `json:"created_at"`
	UpdatedAt        time.Time      `json:"updated_at"`
}

// Position is an office on the ballot.
type Position struct {
	ID           uint      `gorm:"primaryKey" json:"id"`
	Name         string    `gorm:"size:128;uniqueIndex;not null" json:"name"`
	MaxSelection int       `gorm:"not null;default:1" json:"max_selection"`
	Order        int       `gorm:"column:display_order;not null;default:0" json:"order"`
	CreatedAt    time.Time `json:"created_at"`
	UpdatedAt    time.Time `json:"updated_at"`
}

// Candidate runs for a single position.
type Candidate struct {
	ID                     uint       `gorm:"primaryKey" json:"id"`
	Name                   string     `gorm:"size:255;not null" json:"name"`
	PositionID             uint       `gorm:"not null;index" json:"position_id"`
	Partylist              string     `gorm:"size:255" json:"partylist"`
	School                 string     `gorm:"size:255" json:"school"`
	PhotoURL               string     `gorm:"size:512" json:"photo_url"`
	VoteCount              int64      `gorm:"not null;default:0" json:"vote_count"`
	ManuallySelectedWinner bool       `gorm:"not null;default:false" json:"manually_selected_winner"`
	SelectedAt             *time.Time `json:"selected_at"`
	CreatedAt              time.Time  `json:"created_at"`
	UpdatedAt              time.Time  `json:"updated_at"`
}
