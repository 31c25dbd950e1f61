package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/middleware"
	"github.com/noah-isme/campus-evote-api/internal/service"
	"github.com/noah-isme/campus-evote-api/internal/utils"
)

// AdminHandler manages committee accounts.
type AdminHandler struct {
	service service.AdminService
	logger  zerolog.Logger
}

// NewAdminHandler constructs the handler.
func NewAdminHandler(service service.AdminService, logger zerolog.Logger) *AdminHandler {
	return &AdminHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AdminHandler) Register(router fiber.Router) {
	router.Get("", middleware.RequirePermission(election.ResourceAdmins, election.ActionView), h.list)
	router.Post("", middleware.RequirePermission(election.ResourceAdmins, election.ActionCreate), h.create)
	router.Delete("/:id", middleware.RequirePermission(election.ResourceAdmins, election.ActionDelete), h.delete)
}

func (h *AdminHandler) list(c *fiber.Ctx) error {
	admins, err := h.service.List(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err, "failed to list admins")
	}

	return utils.SendSuccess(c, "admins retrieved", admins)
}

func (h *AdminHandler) create(c *fiber.Ctx) error {
	var payload dto.AdminCreateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	admin, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create admin")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "admin created", admin)
}

func (h *AdminHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err, "failed to delete admin")
	}

	return utils.SendSuccess(c, "admin deleted", nil)
}
