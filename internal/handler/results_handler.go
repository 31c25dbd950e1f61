package handler

import (
	"bufio"
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/websocket/v2"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-evote-api/internal/dto"
	"github.com/noah-isme/campus-evote-api/internal/election"
	"github.com/noah-isme/campus-evote-api/internal/middleware"
	"github.com/noah-isme/campus-evote-api/internal/service"
	"github.com/noah-isme/campus-evote-api/internal/utils"
)

const streamWriteTimeout = 10 * time.Second

// liveUpdate is the frame pushed to results streams: the change that happened plus the
// tallies after it.
type liveUpdate struct {
	Event   service.LiveEvent    `json:"event"`
	Results *dto.ResultsResponse `json:"results,omitempty"`
}

// ResultsHandler serves published results, the committee's live tallies, tie resolution
// and exports.
type ResultsHandler struct {
	results   service.ResultsService
	exports   service.ExportService
	live      service.LiveService
	logger    zerolog.Logger
	keepAlive time.Duration
}

// NewResultsHandler constructs the handler.
func NewResultsHandler(results service.ResultsService, exports service.ExportService, live service.LiveService, logger zerolog.Logger, keepAlive time.Duration) *ResultsHandler {
	if keepAlive <= 0 {
		keepAlive = 30 * time.Second
	}
	return &ResultsHandler{
		results:   results,
		exports:   exports,
		live:      live,
		logger:    logger.With().Str("component", "results_handler").Logger(),
		keepAlive: keepAlive,
	}
}

// RegisterPublic wires the published results route.
func (h *ResultsHandler) RegisterPublic(router fiber.Router) {
	router.Get("", h.published)
}

// RegisterAdmin wires committee result routes.
func (h *ResultsHandler) RegisterAdmin(router fiber.Router) {
	view := middleware.RequirePermission(election.ResourceResults, election.ActionView)

	router.Use("/ws", func(c *fiber.Ctx) error {
		if websocket.IsWebSocketUpgrade(c) {
			return c.Next()
		}
		return fiber.ErrUpgradeRequired
	})

	router.Get("", view, h.current)
	router.Get("/ties", view, h.ties)
	router.Post("/ties/resolve", middleware.RequirePermission(election.ResourceResults, election.ActionEdit), h.resolveTie)
	router.Get("/export", view, h.export)
	router.Get("/stream", view, h.stream)
	router.Get("/ws", view, websocket.New(h.socket))
}

func (h *ResultsHandler) published(c *fiber.Ctx) error {
	results, err := h.results.Published(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err, "failed to load results")
	}

	return utils.SendSuccess(c, "results retrieved", results)
}

func (h *ResultsHandler) current(c *fiber.Ctx) error {
	results, err := h.results.Current(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err, "failed to load results")
	}

	if results.CacheHit {
		c.Set("X-Cache-Hit", "true")
	} else {
		c.Set("X-Cache-Hit", "false")
	}
	return utils.SendSuccess(c, "results retrieved", results)
}

func (h *ResultsHandler) ties(c *fiber.Ctx) error {
	ties, err := h.results.Ties(c.UserContext())
	if err != nil {
		return handleError(c, h.logger, err, "failed to load ties")
	}

	return utils.OK(c, ties, "ties retrieved", fiber.Map{"count": len(ties)})
}

func (h *ResultsHandler) resolveTie(c *fiber.Ctx) error {
	var payload dto.TieResolutionRequest
	if err := c.BodyParser(&payload); err != nil {
		return utils.SendError(c, fiber.StatusBadRequest, "invalid payload")
	}

	results, err := h.results.ResolveTie(c.UserContext(), activityActorFromContext(c), payload)
	if err != nil {
		return handleError(c, h.logger, err, "failed to resolve tie")
	}

	return utils.SendSuccess(c, "tie resolved", results)
}

func (h *ResultsHandler) export(c *fiber.Ctx) error {
	file, err := h.exports.Export(c.UserContext(), activityActorFromContext(c), c.Query("format", service.ExportFormatCSV))
	if err != nil {
		return handleError(c, h.logger, err, "failed to export results")
	}

	c.Set(fiber.HeaderContentType, file.ContentType)
	c.Set(fiber.HeaderContentDisposition, fmt.Sprintf("attachment; filename=%q", file.FileName))
	return c.Status(fiber.StatusOK).Send(file.Data)
}

func (h *ResultsHandler) stream(c *fiber.Ctx) error {
	c.Set("Content-Type", "text/event-stream")
	c.Set("Cache-Control", "no-cache")
	c.Set("Connection", "keep-alive")
	c.Set("X-Accel-Buffering", "no")

	ctx := middleware.ContextWithCorrelation(context.Background(), middleware.GetCorrelationID(c))
	ctx, cancel := context.WithCancel(ctx)
	subscription := h.live.Watch(service.LiveTopicResults)
	logger := requestLogger(h.logger, c)

	c.Context().SetBodyStreamWriter(func(w *bufio.Writer) {
		defer func() {
			subscription.Cancel()
			cancel()
		}()

		if err := writeSSE(w, "snapshot", h.snapshot(ctx, service.LiveEvent{Type: "snapshot", SentAt: time.Now().UTC()})); err != nil {
			return
		}

		ticker := time.NewTicker(h.keepAlive / 2)
		defer ticker.Stop()

		for {
			select {
			case event, ok := <-subscription.C:
				if !ok {
					return
				}
				if err := writeSSE(w, event.Type, h.snapshot(ctx, event)); err != nil {
					logger.Debug().Err(err).Msg("results stream closed")
					return
				}
			case <-ticker.C:
				if err := writeKeepAlive(w); err != nil {
					logger.Debug().Err(err).Msg("results stream keepalive failed")
					return
				}
			case <-ctx.Done():
				return
			}
		}
	})

	return nil
}

func (h *ResultsHandler) socket(conn *websocket.Conn) {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	subscription := h.live.Watch(service.LiveTopicResults)
	defer subscription.Cancel()

	// Clients only listen; a read error means they went away.
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.ReadMessage(); err != nil {
				return
			}
		}
	}()

	send := func(update liveUpdate) error {
		_ = conn.SetWriteDeadline(time.Now().Add(streamWriteTimeout))
		return conn.WriteJSON(update)
	}

	if err := send(h.snapshot(ctx, service.LiveEvent{Type: "snapshot", SentAt: time.Now().UTC()})); err != nil {
		return
	}

	ticker := time.NewTicker(h.keepAlive / 2)
	defer ticker.Stop()

	for {
		select {
		case event, ok := <-subscription.C:
			if !ok {
				return
			}
			if err := send(h.snapshot(ctx, event)); err != nil {
				h.logger.Debug().Err(err).Msg("results websocket closed")
				return
			}
		case <-ticker.C:
			if err := conn.WriteControl(websocket.PingMessage, nil, time.Now().Add(streamWriteTimeout)); err != nil {
				return
			}
		case <-ctx.Done():
			return
		}
	}
}

// snapshot pairs event with fresh tallies. A failed tally still delivers the event.
func (h *ResultsHandler) snapshot(ctx context.Context, event service.LiveEvent) liveUpdate {
	update := liveUpdate{Event: event}
	results, err := h.results.Current(ctx)
	if err != nil {
		h.logger.Warn().Err(err).Str("event", event.Type).Msg("failed to load results for live update")
		return update
	}
	update.Results = &results
	return update
}

func writeSSE(w *bufio.Writer, eventType string, payload interface{}) error {
	data, err := json.Marshal(payload)
	if err != nil {
		return err
	}

	if _, err := fmt.Fprintf(w, "event: %s\ndata: %s\n\n", eventType, data); err != nil {
		return err
	}
	return w.Flush()
}

func writeKeepAlive(w *bufio.Writer) error {
	if _, err := fmt.Fprintf(w, ": keep-alive %s\n\n", time.Now().UTC().Format(time.RFC3339)); err != nil {
		return err
	}
	return w.Flush()
}
