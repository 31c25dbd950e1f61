package service

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/rs/zerolog"
	"golang.org/x/crypto/bcrypt"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/repository"
)

// AdminService manages committee accounts.
type AdminService interface {
	List(ctx context.Context) ([]dto.AdminResponse, error)
	Create(ctx context.Context, actor ActivityActor, req dto.AdminCreateRequest) (dto.AdminResponse, error)
	Delete(ctx context.Context, actor ActivityActor, id uint) error
	Bootstrap(ctx context.Context, name, email, password string) (bool, error)
}

type adminService struct {
	admins    repository.AdminRepository
	validator *validator.Validate
	activity  ActivityRecorder
	logger    zerolog.Logger
}

// NewAdminService constructs the admin account service.
func NewAdminService(admins repository.AdminRepository, validate *validator.Validate, activity ActivityRecorder, logger zerolog.Logger) AdminService {
	return &adminService{
		admins:    admins,
		validator: validate,
		activity:  activity,
		logger:    logger.With().Str("component", "admin_service").Logger(),
	}
}

func (s *adminService) List(ctx context.Context) ([]dto.AdminResponse, error) {
	admins, err := s.admins.List(ctx)
	if err != nil {
		return nil, err
	}

	items := make([]dto.AdminResponse, 0, len(admins))
	for _, admin := range admins {
		items = append(items, dto.NewAdminResponse(admin))
	}
	return items, nil
}

func (s *adminService) Create(ctx context.Context, actor ActivityActor, req dto.AdminCreateRequest) (dto.AdminResponse, error) {
	req.Name = strings.TrimSpace(req.Name)
	req.Email = strings.ToLower(strings.TrimSpace(req.Email))
	req.Role = strings.ToLower(strings.TrimSpace(req.Role))
	if err := s.validator.Struct(req); err != nil {
		return dto.AdminResponse{}, err
	}

	role, err := models.ParseRole(req.Role)
	if err != nil {
		return dto.AdminResponse{}, election.NewValidationError("role", err.Error())
	}

	admin, err := s.create(ctx, req.Name, req.Email, req.Password, role)
	if err != nil {
		return dto.AdminResponse{}, err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "admin.create", "admin", uintPtr(admin.ID), map[string]interface{}{
		"role":  string(admin.Role),
		"email": admin.Email,
	})

	return dto.NewAdminResponse(admin), nil
}

func (s *adminService) Delete(ctx context.Context, actor ActivityActor, id uint) error {
	if actor.ID == id {
		return ErrSelfDelete
	}

	admin, err := s.admins.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminNotFound
		}
		return err
	}

	if admin.Role == models.RoleSuperadmin {
		count, err := s.admins.CountByRole(ctx, models.RoleSuperadmin)
		if err != nil {
			return err
		}
		if count <= 1 {
			return ErrLastSuperadmin
		}
	}

	if err := s.admins.Delete(ctx, id); err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return ErrAdminNotFound
		}
		return err
	}

	recordActivity(ctx, s.activity, s.logger, actor, "admin.delete", "admin", uintPtr(id), map[string]interface{}{
		"role": string(admin.Role),
	})
	return nil
}

// Bootstrap creates the first superadmin when the committee has no superadmin yet.
func (s *adminService) Bootstrap(ctx context.Context, name, email, password string) (bool, error) {
	email = strings.ToLower(strings.TrimSpace(email))
	if email == "" || password == "" {
		return false, nil
	}

	count, err := s.admins.CountByRole(ctx, models.RoleSuperadmin)
	if err != nil {
		return false, err
	}
	if count > 0 {
		return false, nil
	}

	if strings.TrimSpace(name) == "" {
		name = "Election Committee"
	}

	admin, err := s.create(ctx, name, email, password, models.RoleSuperadmin)
	if err != nil {
		return false, err
	}

	s.logger.Info().Uint("admin_id", admin.ID).Msg("bootstrap superadmin created")
	return true, nil
}

func (s *adminService) create(ctx context.Context, name, email, password string, role models.Role) (models.Admin, error) {
	if _, err := s.admins.GetByEmail(ctx, email); err == nil {
		return models.Admin{}, ErrAdminExists
	} else if !errors.Is(err, gorm.ErrRecordNotFound) {
		return models.Admin{}, err
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), bcrypt.DefaultCost)
	if err != nil {
		return models.Admin{}, fmt.Errorf("hash password: %w", err)
	}

	admin := models.Admin{
		Name:         name,
		Email:        email,
		PasswordHash: string(hash),
		Role:         role,
		Permissions:  datatypes.JSONSlice[string](election.PermissionsFor(role)),
	}
	if err := s.admins.Create(ctx, &admin); err != nil {
		return models.Admin{}, err
	}
	return admin, nil
}
