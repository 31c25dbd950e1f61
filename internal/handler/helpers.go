package handler

import (
	"errors"
	"fmt"
	"strconv"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/middleware"
	"github.com/noah-isme/campus-evote-api/internal/service"
	"github.com/noah-isme/campus-evote-api/internal/utils"
)

func parseQueryInt(c *fiber.Ctx, key string) (int, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return 0, nil
	}
	parsed, err := strconv.Atoi(value)
	if err != nil {
		return 0, err
	}
	return parsed, nil
}

func parseQueryBool(c *fiber.Ctx, key string) (*bool, error) {
	value := strings.TrimSpace(c.Query(key))
	if value == "" {
		return nil, nil
	}
	parsed, err := strconv.ParseBool(value)
	if err != nil {
		return nil, err
	}
	return &parsed, nil
}

func parseUintParam(c *fiber.Ctx, key string) (uint, error) {
	raw := strings.TrimSpace(c.Params(key))
	parsed, err := strconv.ParseUint(raw, 10, 64)
	if err != nil || parsed == 0 {
		return 0, fmt.Errorf("invalid %s", key)
	}
	return uint(parsed), nil
}

func userIDFromContext(c *fiber.Ctx) uint {
	if v := c.Locals("user_id"); v != nil {
		if id, ok := v.(uint); ok {
			return id
		}
	}
	return 0
}

func userRoleFromContext(c *fiber.Ctx) string {
	if v := c.Locals("user_role"); v != nil {
		if role, ok := v.(string); ok {
			return role
		}
	}
	return ""
}

func activityActorFromContext(c *fiber.Ctx) service.ActivityActor {
	return service.ActivityActor{
		ID:   userIDFromContext(c),
		Role: userRoleFromContext(c),
	}
}

func requestLogger(base zerolog.Logger, c *fiber.Ctx) *zerolog.Logger {
	logger := base
	if c != nil {
		if correlation := middleware.GetCorrelationID(c); correlation != "" {
			logger = base.With().Str("correlation_id", correlation).Logger()
		}
	}
	return &logger
}

// fieldErrors flattens validator output into field -> rule pairs.
func fieldErrors(err error) map[string]string {
	var validationErrors validator.ValidationErrors
	if errors.As(err, &validationErrors) {
		details := make(map[string]string, len(validationErrors))
		for _, fe := range validationErrors {
			details[fe.Field()] = fe.Tag()
		}
		return details
	}

	var domainErr *election.ValidationError
	if errors.As(err, &domainErr) {
		return map[string]string{domainErr.Field: domainErr.Message}
	}

	return nil
}

// errorStatus maps service and domain errors onto HTTP statuses. Unknown errors are 500.
func errorStatus(err error) int {
	switch {
	case fieldErrors(err) != nil,
		errors.Is(err, service.ErrUploadRequired),
		errors.Is(err, service.ErrUploadTypeNotAllowed),
		errors.Is(err, election.ErrTokenInvalid),
		errors.Is(err, election.ErrConfirmationRequired):
		return fiber.StatusBadRequest
	case errors.Is(err, service.ErrUploadTooLarge):
		return fiber.StatusRequestEntityTooLarge
	case errors.Is(err, service.ErrInvalidCredentials):
		return fiber.StatusUnauthorized
	case errors.Is(err, election.ErrNotEligible),
		errors.Is(err, service.ErrResultsNotPublished):
		return fiber.StatusForbidden
	case errors.Is(err, service.ErrVoterNotFound),
		errors.Is(err, service.ErrPositionNotFound),
		errors.Is(err, service.ErrCandidateNotFound),
		errors.Is(err, service.ErrAdminNotFound),
		errors.Is(err, service.ErrReceiptNotFound),
		errors.Is(err, service.ErrAnnouncementNotFound):
		return fiber.StatusNotFound
	case errors.Is(err, election.ErrAlreadyVoted),
		errors.Is(err, election.ErrVotingClosed),
		errors.Is(err, election.ErrInvalidTransition),
		errors.Is(err, election.ErrElectionActive),
		errors.Is(err, election.ErrTokenAlreadyUsed),
		errors.Is(err, service.ErrVoterExists),
		errors.Is(err, service.ErrPositionExists),
		errors.Is(err, service.ErrPositionInUse),
		errors.Is(err, service.ErrAdminExists),
		errors.Is(err, service.ErrLastSuperadmin),
		errors.Is(err, service.ErrSelfDelete):
		return fiber.StatusConflict
	case errors.Is(err, election.ErrTokenExpired):
		return fiber.StatusGone
	default:
		return fiber.StatusInternalServerError
	}
}

// handleError writes err as a JSON failure. Internal errors are logged and replaced with
// fallback so storage details never reach the client.
func handleError(c *fiber.Ctx, logger zerolog.Logger, err error, fallback string) error {
	status := errorStatus(err)
	if status == fiber.StatusInternalServerError {
		requestLogger(logger, c).Error().Err(err).Str("path", c.Path()).Msg(fallback)
		return utils.SendError(c, status, fallback)
	}

	if details := fieldErrors(err); details != nil {
		return utils.Fail(c, status, "validation failed", details)
	}

	return utils.SendError(c, status, err.Error())
}
