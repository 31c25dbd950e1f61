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

// CandidateHandler manages positions and the candidates running for them.
type CandidateHandler struct {
	service service.CandidateService
	logger  zerolog.Logger
}

// NewCandidateHandler constructs the handler.
func NewCandidateHandler(service service.CandidateService, logger zerolog.Logger) *CandidateHandler {
	return &CandidateHandler{
		service: service,
		logger:  logger.With().Str("component", "candidate_handler").Logger(),
	}
}

// RegisterPositions wires position routes.
func (h *CandidateHandler) RegisterPositions(router fiber.Router) {
	router.Get("", middleware.RequirePermission(election.ResourceCandidates, election.ActionView), h.listPositions)
	router.Post("", middleware.RequirePermission(election.ResourceCandidates, election.ActionCreate), h.createPosition)
	router.Put("/:id", middleware.RequirePermission(election.ResourceCandidates, election.ActionEdit), h.updatePosition)
	router.Delete("/:id", middleware.RequirePermission(election.ResourceCandidates, election.ActionDelete), h.deletePosition)
}

// RegisterCandidates wires candidate routes. Create and update accept multipart forms with
// an optional photo.
func (h *CandidateHandler) RegisterCandidates(router fiber.Router) {
	view := middleware.RequirePermission(election.ResourceCandidates, election.ActionView)

	router.Get("", view, h.listCandidates)
	router.Get("/:id", view, h.getCandidate)
	router.Post("", middleware.RequirePermission(election.ResourceCandidates, election.ActionCreate), h.createCandidate)
	router.Put("/:id", middleware.RequirePermission(election.ResourceCandidates, election.ActionEdit), h.updateCandidate)
	router.Delete("/:id", middleware.RequirePermission(election.ResourceCandidates, election.ActionDelete), h.deleteCandidate)
}

func (h *CandidateHandler) listPositions(c *fiber.Ctx) error {
	positions, err := h.service.ListPositions(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err, "failed to list positions")
	}

	return utils.SendSuccess(c, "positions retrieved", positions)
}

func (h *CandidateHandler) createPosition(c *fiber.Ctx) error {
	var payload dto.PositionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	position, err := h.service.CreatePosition(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create position")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "position created", position)
}

func (h *CandidateHandler) updatePosition(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.PositionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	position, err := h.service.UpdatePosition(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update position")
	}

	return utils.SendSuccess(c, "position updated", position)
}

func (h *CandidateHandler) deletePosition(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeletePosition(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err, "failed to delete position")
	}

	return utils.SendSuccess(c, "position deleted", nil)
}

func (h *CandidateHandler) listCandidates(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	positionID, err := parseQueryInt(c, "position_id")
	if err != nil || positionID < 0 {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid position id")
	}

	req := dto.CandidateListRequest{
		Page:       page,
		PageSize:   pageSize,
		PositionID: uint(positionID),
		Search:     c.Query("search"),
	}

	result, err := h.service.ListCandidates(c.UserContext(), req)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list candidates")
	}

	meta := fiber.Map{"pagination": result.Pagination, "filters": fiber.Map{"search": req.Search, "position_id": req.PositionID}}
	return utils.OK(c, result.Items, "candidates retrieved", meta)
}

func (h *CandidateHandler) getCandidate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	candidate, err := h.service.GetCandidate(c.UserContext(), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load candidate")
	}

	return utils.SendSuccess(c, "candidate retrieved", candidate)
}

func (h *CandidateHandler) createCandidate(c *fiber.Ctx) error {
	var payload dto.CandidateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	photo, err := c.FormFile("photo")
	if err != nil {
		photo = nil
	}

	candidate, err := h.service.CreateCandidate(c.UserContext(), activityActorFromContext(c), payload, photo)
	if err != nil {
		return handleError(c, h.logger, err, "failed to create candidate")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "candidate created", candidate)
}

func (h *CandidateHandler) updateCandidate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.CandidateRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	photo, err := c.FormFile("photo")
	if err != nil {
		photo = nil
	}

	candidate, err := h.service.UpdateCandidate(c.UserContext(), activityActorFromContext(c), id, payload, photo)
	if err != nil {
		return handleError(c, h.logger, err, "failed to update candidate")
	}

	return utils.SendSuccess(c, "candidate updated", candidate)
}

func (h *CandidateHandler) deleteCandidate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	if err := h.service.DeleteCandidate(c.UserContext(), activityActorFromContext(c), id); err != nil {
		return handleError(c, h.logger, err, "failed to delete candidate")
	}

	return utils.SendSuccess(c, "candidate deleted", nil)
}
