package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/service"
	"github.com/noah-isme/campus-evote-api/internal/utils"
)

// AuthHandler issues access tokens for voters and committee members.
type AuthHandler struct {
	service service.AuthService
	logger  zerolog.Logger
}

// NewAuthHandler constructs the handler.
func NewAuthHandler(service service.AuthService, logger zerolog.Logger) *AuthHandler {
	return &AuthHandler{
		service: service,
		logger:  logger.With().Str("component", "auth_handler").Logger(),
	}
}

// Register wires login routes.
func (h *AuthHandler) Register(router fiber.Router) {
	router.Post("/voters/login", h.loginVoter)
	router.Post("/admins/login", h.loginAdmin)
}

func (h *AuthHandler) loginVoter(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.LoginVoter(c.UserContext(), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to log in")
	}

	return utils.SendSuccess(c, "login successful", result)
}

func (h *AuthHandler) loginAdmin(c *fiber.Ctx) error {
	var payload dto.LoginRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.LoginAdmin(c.UserContext(), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to log in")
	}

	return utils.SendSuccess(c, "login successful", result)
}
