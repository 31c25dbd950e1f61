package dto

import "time"

// LoginRequest captures e-mail and password credentials.
type LoginRequest struct {
	Email    string `json:"email" validate:"required,email"`
	Password string `json:"password" validate:"required"`
}

// LoginResponse carries the signed access token.
type LoginResponse struct {
	Token     string      `json:"token"`
	TokenType string      `json:"token_type"`
	ExpiresAt time.Time   `json:"expires_at"`
	Role      string      `json:"role"`
	Profile   interface{} `json:"profile"`
}
