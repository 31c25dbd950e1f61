package service

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/golang-jwt/jwt/v5"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/repository"
)

// RoleVoter is the token role carried by voters. Admin tokens carry their admin role.
const RoleVoter = "voter"

// AuthService signs voters and committee members in.
type AuthService interface {
	LoginVoter(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
	LoginAdmin(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error)
}

type authService struct {
	voters    repository.VoterRepository
	admins    repository.AdminRepository
	validator *validator.Validate
	secret    []byte
	ttl       time.Duration
	logger    zerolog.Logger
	now       func() time.Time
}

// NewAuthService constructs the authentication service.
func NewAuthService(voters repository.VoterRepository, admins repository.AdminRepository, validate *validator.Validate, secret string, ttl time.Duration, logger zerolog.Logger) AuthService {
	if ttl <= 0 {
		ttl = 12 * time.Hour
	}
	return &authService{
		voters:    voters,
		admins:    admins,
		validator: validate,
		secret:    []byte(secret),
		ttl:       ttl,
		logger:    logger.With().Str("component", "auth_service").Logger(),
		now:       func() time.Time { return time.Now().UTC() },
	}
}

func (s *authService) LoginVoter(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	voter, err := s.voters.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(voter.PasswordHash), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	if err := election.CanVote(voter, s.now()); err != nil {
		s.logger.Info().Uint("voter_id", voter.ID).Str("status", string(voter.Status)).Msg("voter login refused")
		return dto.LoginResponse{}, err
	}

	return s.issue(voter.ID, RoleVoter, dto.NewVoterResponse(voter))
}

func (s *authService) LoginAdmin(ctx context.Context, req dto.LoginRequest) (dto.LoginResponse, error) {
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	if err := s.validator.Struct(req); err != nil {
		return dto.LoginResponse{}, err
	}

	admin, err := s.admins.GetByEmail(ctx, req.Email)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return dto.LoginResponse{}, ErrInvalidCredentials
		}
		return dto.LoginResponse{}, err
	}

	if err := bcrypt.CompareHashAndPassword([]byte(admin.PasswordHash), []byte(req.Password)); err != nil {
		return dto.LoginResponse{}, ErrInvalidCredentials
	}

	return s.issue(admin.ID, string(admin.Role), dto.NewAdminResponse(admin))
}

func (s *authService) issue(subject uint, role string, profile interface{}) (dto.LoginResponse, error) {
	now := s.now()
	expires := now.Add(s.ttl)

	claims := jwt.MapClaims{
		"sub":  strconv.FormatUint(uint64(subject), 10),
		"role": role,
		"iat":  now.Unix(),
		"exp":  expires.Unix(),
	}

	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.secret)
	if err != nil {
		return dto.LoginResponse{}, fmt.Errorf("sign token: %w", err)
	}

	return dto.LoginResponse{
		Token:     signed,
		TokenType: "Bearer",
		ExpiresAt: expires,
		Role:      role,
		Profile:   profile,
	}, nil
}
