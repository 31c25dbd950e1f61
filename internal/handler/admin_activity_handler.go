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

// AdminActivityHandler exposes the committee audit trail.
type AdminActivityHandler struct {
	service service.ActivityService
	logger  zerolog.Logger
}

// NewAdminActivityHandler constructs the handler.
func NewAdminActivityHandler(service service.ActivityService, logger zerolog.Logger) *AdminActivityHandler {
	return &AdminActivityHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_activity_handler").Logger(),
	}
}

// Register attaches activity log routes to the router group.
func (h *AdminActivityHandler) Register(router fiber.Router) {
	router.Get("", middleware.RequirePermission(election.ResourceDashboard, election.ActionView), h.list)
}

func (h *AdminActivityHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	if page <= 0 {
		page = 1
	}

	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	if pageSize <= 0 {
		pageSize = 25
	} else if pageSize > 200 {
		pageSize = 200
	}

	actorID, err := parseQueryInt(c, "actor_id")
	if err != nil || actorID < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid actor id")
	}
	entityID, err := parseQueryInt(c, "entity_id")
	if err != nil || entityID < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid entity id")
	}

	req := dto.AdminActivityListRequest{
		Page:       page,
		PageSize:   pageSize,
		ActorID:    uint(actorID),
		Action:     c.Query("action"),
		EntityType: c.Query("entity_type"),
		EntityID:   uint(entityID),
	}

	response, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list activity logs")
	}

	meta := fiber.Map{"pagination": response.Pagination}
	return utils.OK(c, response.Items, "activity logs", meta)
}
