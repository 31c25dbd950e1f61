package handler

import (
	"github.com/gofiber/fiber/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/middleware"
	"github.com/noah-isme/campus-evote-api/internal/service"
	"github.com/noah-isme/campus-evote-api/internal/utils"
)

// BallotHandler serves the voter-facing ballot routes.
type BallotHandler struct {
	service service.BallotService
	logger  zerolog.Logger
}

// NewBallotHandler constructs the handler.
func NewBallotHandler(service service.BallotService, logger zerolog.Logger) *BallotHandler {
	return &BallotHandler{
		service: service,
		logger:  logger.With().Str("component", "ballot_handler").Logger(),
	}
}

// Register wires ballot routes behind auth, which must populate the caller's identity.
func (h *BallotHandler) Register(router fiber.Router, auth fiber.Handler) {
	voterOnly := func(next fiber.Handler) fiber.Handler {
		return middleware.WithAuth(next, middleware.AuthOptions{Role: middleware.AuthRoleVoter})
	}

	router.Get("/positions", auth, voterOnly(h.layout))
	router.Post("/ballots", auth, voterOnly(h.submit))
	router.Get("/ballots/receipt", auth, voterOnly(h.receipt))
}

func (h *BallotHandler) layout(c *fiber.Ctx) error {
	positions, err := h.service.Ballot(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err, "failed to load ballot")
	}

	return utils.SendSuccess(c, "ballot retrieved", positions)
}

func (h *BallotHandler) submit(c *fiber.Ctx) error {
	voterID := userIDFromContext(c)
	if voterID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	var payload dto.BallotSubmitRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	receipt, err := h.service.Submit(c.UserContext(), voterID, payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to submit ballot")
	}

	return utils.SendSuccessWithStatus(c, fiber.StatusCreated, "ballot submitted", receipt)
}

func (h *BallotHandler) receipt(c *fiber.Ctx) error {
	voterID := userIDFromContext(c)
	if voterID == 0 {
		return utils.SendError(c, fiber.StatusUnauthorized, "user not authenticated")
	}

	receipt, err := h.service.Receipt(c.UserContext(), voterID)
	if err != nil {
		return handleError(c, h.logger, err, "failed to load receipt")
	}

	return utils.SendSuccess(c, "receipt retrieved", receipt)
}
