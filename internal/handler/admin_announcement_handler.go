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

// AdminAnnouncementHandler manages admin announcement routes.
type AdminAnnouncementHandler struct {
	service service.AnnouncementService
	logger  zerolog.Logger
}

// NewAdminAnnouncementHandler constructs the handler.
func NewAdminAnnouncementHandler(service service.AnnouncementService, logger zerolog.Logger) *AdminAnnouncementHandler {
	return &AdminAnnouncementHandler{
		service: service,
		logger:  logger.With().Str("component", "admin_announcement_handler").Logger(),
	}
}

// Register attaches routes.
func (h *AdminAnnouncementHandler) Register(router fiber.Router) {
	router.Get("", middleware.RequirePermission(election.ResourceAnnouncements, election.ActionView), h.list)
	router.Post("", middleware.RequirePermission(election.ResourceAnnouncements, election.ActionCreate), h.create)
	router.Put("/:id", middleware.RequirePermission(election.ResourceAnnouncements, election.ActionEdit), h.update)
	router.Delete("/:id", middleware.RequirePermission(election.ResourceAnnouncements, election.ActionDelete), h.delete)
}

func (h *AdminAnnouncementHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}

	result, err := h.service.List(c.UserContext(), page, pageSize)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list announcements")
	}

	return utils.OK(c, result.Items, "announcements retrieved", fiber.Map{"pagination": result.Pagination})
}

func (h *AdminAnnouncementHandler) create(c *fiber.Ctx) error {
	var payload dto.AnnouncementRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	announcement, err := h.service.Create(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create announcement")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "announcement created", announcement)
}

func (h *AdminAnnouncementHandler) update(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.AnnouncementRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	announcement, err := h.service.Update(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update announcement")
	}

	return utils.SendSuccess(c, "announcement updated", announcement)
}

func (h *AdminAnnouncementHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.Delete(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err, "failed to delete announcement")
	}

	return utils.SendSuccess(c, "announcement deleted", nil)
}
