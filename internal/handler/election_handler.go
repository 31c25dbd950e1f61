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

// ElectionHandler exposes the voting window and the committee's voting controls.
type ElectionHandler struct {
	service service.ElectionService
	logger  zerolog.Logger
}

// NewElectionHandler constructs the handler.
func NewElectionHandler(service service.ElectionService, logger zerolog.Logger) *ElectionHandler {
	return &ElectionHandler{
		service: service,
		logger:  logger.With().Str("component", "election_handler").Logger(),
	}
}

// RegisterPublic wires the public status route.
func (h *ElectionHandler) RegisterPublic(router fiber.Router) {
	router.Get("/status", h.status)
}

// RegisterAdmin wires voting-control routes.
func (h *ElectionHandler) RegisterAdmin(router fiber.Router) {
	edit := middleware.RequirePermission(election.ResourceVotingControl, election.ActionEdit)

	router.Get("", middleware.RequirePermission(election.ResourceVotingControl, election.ActionView), h.status)
	router.Post("/start", edit, h.start)
	router.Post("/close", edit, h.close)
	router.Post("/publish", edit, h.publish)
	router.Post("/reset", edit, h.reset)
}

func (h *ElectionHandler) status(c *fiber.Ctx) error {
	status, err := h.service.Status(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err, "failed to load election status")
	}

	return utils.SendSuccess(c, "election status", status)
}

func (h *ElectionHandler) start(c *fiber.Ctx) error {
	var payload dto.StartVotingRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	status, err := h.service.Start(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to start voting")
	}

	return utils.SendSuccess(c, "voting started", status)
}

func (h *ElectionHandler) close(c *fiber.Ctx) error {
	status, err := h.service.Close(c.UserContext(), activityActorFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to close voting")
	}

	return utils.SendSuccess(c, "voting closed", status)
}

func (h *ElectionHandler) publish(c *fiber.Ctx) error {
	status, err := h.service.Publish(c.UserContext(), activityActorFromContext(c))
	if err != nil {
		return handleError(c, h.logger, err, "failed to publish results")
	}

	return utils.SendSuccess(c, "results published", status)
}

func (h *ElectionHandler) reset(c *fiber.Ctx) error {
	var payload dto.ResetElectionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	status, err := h.service.Reset(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to reset election")
	}

	return utils.SendSuccess(c, "election reset", status)
}
