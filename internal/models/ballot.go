package models

import (
	"time"

	"gorm.io/datatypes"
)

// Vote is an anonymous selection of one candidate. It never carries voter identity.
type Vote struct {
	ID          uint      `gorm:"primaryKey" json:"id"`
	CandidateID uint      `gorm:"not null;index" json:"candidate_id"`
	PositionID  uint      `gorm:"not null;index" json:"position_id"`
	CreatedAt   time.Time `json:"created_at"`
}

// ReceiptSelection is the human readable part of a receipt.
type ReceiptSelection struct {
	CandidateID   uint   `json:"candidate_id"`
	CandidateName string `json:"candidate_name"`
	PositionName  string `json:"position_name"`
}

// VoteReceipt proves that a voter took part, kept apart from the anonymous votes.
type VoteReceipt struct {
	ID         uint                                  `gorm:"primaryKey" json:"id"`
	VoterID    uint                                  `gorm:"not null;uniqueIndex" json:"voter_id"`
	Selections datatypes.JSONSlice[ReceiptSelection] `json:"selections"`
	CreatedAt  time.Time                             `json:"created_at"`
}
