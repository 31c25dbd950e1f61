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

// VoterHandler serves self-registration, e-mail verification and the committee's voter
// management screens.
type VoterHandler struct {
	service service.VoterService
	logger  zerolog.Logger
}

// NewVoterHandler constructs the handler.
func NewVoterHandler(service service.VoterService, logger zerolog.Logger) *VoterHandler {
	return &VoterHandler{
		service: service,
		logger:  logger.With().Str("component", "voter_handler").Logger(),
	}
}

// RegisterPublic wires the unauthenticated registration routes.
func (h *VoterHandler) RegisterPublic(router fiber.Router) {
	router.Post("/register", h.register)
	router.Post("/verify-email", h.verifyEmail)
}

// RegisterAdmin wires voter management routes. Callers must resolve the admin first.
func (h *VoterHandler) RegisterAdmin(router fiber.Router) {
	view := middleware.RequirePermission(election.ResourceVoters, election.ActionView)
	edit := middleware.RequirePermission(election.ResourceVoters, election.ActionEdit)

	router.Get("", view, h.list)
	router.Get("/:id", view, h.get)
	router.Post("/:id/approve", edit, h.approve)
	router.Post("/:id/reject", edit, h.reject)
	router.Post("/:id/reactivate", edit, h.reactivate)
	router.Delete("/:id", middleware.RequirePermission(election.ResourceVoters, election.ActionDelete), h.delete)
}

func (h *VoterHandler) register(c *fiber.Ctx) error {
	var payload dto.VoterRegisterRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	document, err := c.FormFile("document")
	if err != nil {
		document = nil
	}

	voter, err := h.service.Register(c.UserContext(), payload, document)
	if err != nil {
		return handleError(c, h.logger, err, "failed to register voter")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "registration received", voter)
}

func (h *VoterHandler) verifyEmail(c *fiber.Ctx) error {
	var payload dto.VerifyEmailRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	voter, err := h.service.VerifyEmail(c.UserContext(), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to verify e-mail")
	}

	return utils.SendSuccess(c, "e-mail verified", voter)
}

func (h *VoterHandler) list(c *fiber.Ctx) error {
	page, err := parseQueryInt(c, "page")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page")
	}
	pageSize, err := parseQueryInt(c, "page_size")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid page size")
	}
	hasVoted, err := parseQueryBool(c, "has_voted")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid has_voted filter")
	}

	req := dto.VoterListRequest{
		Page:     page,
		PageSize: pageSize,
		Search:   c.Query("search"),
		Status:   c.Query("status"),
		School:   c.Query("school"),
		HasVoted: hasVoted,
		Sort:     c.Query("sort"),
	}

	result, err := h.service.List(c.UserContext(), req)
	if err != nil {
		return handleError(c, h.logger, err, "failed to list voters")
	}

	meta := fiber.Map{
		"pagination": result.Pagination,
		"filters":    fiber.Map{"search": req.Search, "status": req.Status, "school": req.School, "has_voted": req.HasVoted},
	}
	return utils.OK(c, result.Items, "voters retrieved", meta)
}

func (h *VoterHandler) get(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	voter, err := h.service.Get(c.UserContext(), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load voter")
	}

	return utils.SendSuccess(c, "voter retrieved", voter)
}

func (h *VoterHandler) approve(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.VoterApproveRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	result, err := h.service.Approve(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to approve voter")
	}

	return utils.SendSuccess(c, "voter approved", result)
}

func (h *VoterHandler) reject(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	var payload dto.VoterRejectRequest
	if len(c.Body()) > 0 {
		if err := c.BodyParser(&payload); err != nil {
			return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
		}
	}

	result, err := h.service.Reject(c.UserContext(), activityActorFromContext(c), id, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to reject voter")
	}

	return utils.SendSuccess(c, "voter rejected", result)
}

func (h *VoterHandler) reactivate(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	voter, err := h.service.Reactivate(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to reactivate voter")
	}

	return utils.SendSuccess(c, "voter reactivated", voter)
}

func (h *VoterHandler) delete(c *fiber.Ctx) error {
	id, err := parseUintParam(c, "id")
	if err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, err.Error())
	}

	report, err := h.service.Delete(c.UserContext(), activityActorFromContext(c), id)
	if err != nil {
		return handleError(c, h.logger, err, "failed to delete voter")
	}

	if !report.Completed {
		return utils.Fail(c, fiber.StatusInternalServerError, "voter deletion incomplete", report)
	}
	return utils.SendSuccess(c, "voter deleted", report)
}
