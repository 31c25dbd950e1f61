package models

import "time"

// Voter is a student registered to take part in the election.
type Voter struct {
	ID                 uint        `gorm:"primaryKey" json:"id"`
	FullName           string      `gorm:"size:255;not null" json:"full_name"`
	StudentID          string      `gorm:"size:64;uniqueIndex;not null" json:"student_id"`
	Email              string      `gorm:"size:255;uniqueIndex;not null" json:"email"`
	PasswordHash       string      `gorm:"size:255;not null" json:"-"`
	Birthdate          *time.Time  `json:"birthdate"`
	YearLevel          string      `gorm:"size:32" json:"year_level"`
	School             string      `gorm:"size:255" json:"school"`
	Status             VoterStatus `gorm:"size:48;not null;index" json:"status"`
	EmailVerified      bool        `gorm:"not null;default:false" json:"email_verified"`
	HasVoted           bool        `gorm:"not null;default:false;index" json:"has_voted"`
	VotedAt            *time.Time  `json:"voted_at"`
	ExpirationDate     *time.Time  `json:"expiration_date"`
	VerificationDocURL string      `gorm:"size:512" json:"verification_doc_url"`
	RejectionReason    string      `gorm:"type:text" json:"rejection_reason"`
	CreatedAt          time.Time   `json:"created_at"`
	UpdatedAt          time.Time   `json:"updated_at"`
}

// EmailVerificationToken is a single-use, time-boxed token sent after approval.
type EmailVerificationToken struct {
	ID        uint      `gorm:"primaryKey" json:"id"`
	VoterID   uint      `gorm:"not null;index" json:"voter_id"`
	Email     string    `gorm:"size:255;not null" json:"email"`
	Token     string    `gorm:"size:128;uniqueIndex;not null" json:"-"`
	CreatedAt time.Time `json:"created_at"`
	ExpiresAt time.Time `gorm:"not null" json:"expires_at"`
	Used      bool      `gorm:"not null;default:false" json:"used"`
}
