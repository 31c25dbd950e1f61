package router

import (
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/noah-isme/campus-evote-api/internal/config"
	"github.com/noah-isme/campus-evote-api/internal/handler"
	"github.com/noah-isme/campus-evote-api/internal/middleware"
	"github.com/noah-isme/campus-evote-api/internal/models"
	"github.com/noah-isme/campus-evote-api/internal/observability"
)

// Dependencies groups router dependencies for registration.
type Dependencies struct {
	AuthHandler              *handler.AuthHandler
	VoterHandler             *handler.VoterHandler
	BallotHandler            *handler.BallotHandler
	ElectionHandler          *handler.ElectionHandler
	ResultsHandler           *handler.ResultsHandler
	CandidateHandler         *handler.CandidateHandler
	AnnouncementHandler      *handler.AnnouncementHandler
	AdminAnnouncementHandler *handler.AdminAnnouncementHandler
	AdminHandler             *handler.AdminHandler
	AdminActivityHandler     *handler.AdminActivityHandler
	Health                   handler.HealthDependencies

	// JWTMiddleware authenticates voter routes. AdminJWTMiddleware also accepts the
	// access_token query parameter used by browser stream clients.
	JWTMiddleware      fiber.Handler
	AdminJWTMiddleware fiber.Handler
	// AdminResolver reloads the committee account behind an admin token.
	AdminResolver fiber.Handler

	LoginRateLimit int
}

// Register wires the HTTP routes into the fiber application.
func Register(app *fiber.App, cfg config.Config, deps Dependencies) {
	app.Get("/metrics", observability.MetricsHandler())

	api := app.Group("/api/v1", func(c *fiber.Ctx) error {
		c.Set("X-Application", cfg.AppName)
		return c.Next()
	})
	api.Get("/health", handler.HealthCheck(cfg, deps.Health))

	noop := func(c *fiber.Ctx) error { return c.Next() }
	jwtMiddleware := deps.JWTMiddleware
	if jwtMiddleware == nil {
		jwtMiddleware = noop
	}
	adminJWT := deps.AdminJWTMiddleware
	if adminJWT == nil {
		adminJWT = jwtMiddleware
	}
	adminResolver := deps.AdminResolver
	if adminResolver == nil {
		adminResolver = noop
	}

	if deps.AuthHandler != nil {
		auth := api.Group("/auth", middleware.RateLimit("login", deps.LoginRateLimit, time.Minute))
		deps.AuthHandler.Register(auth)
	}

	if deps.VoterHandler != nil {
		deps.VoterHandler.RegisterPublic(api.Group("/voters", middleware.RateLimit("voters", deps.LoginRateLimit, time.Minute)))
	}
	if deps.ElectionHandler != nil {
		deps.ElectionHandler.RegisterPublic(api.Group("/election"))
	}
	if deps.ResultsHandler != nil {
		deps.ResultsHandler.RegisterPublic(api.Group("/results"))
	}
	if deps.AnnouncementHandler != nil {
		deps.AnnouncementHandler.Register(api.Group("/announcements"))
	}

	// Voter routes carry their own guard so unknown /api/v1 paths still 404.
	if deps.BallotHandler != nil {
		deps.BallotHandler.Register(api, jwtMiddleware)
	}

	admin := api.Group("/admin", adminJWT, adminResolver)
	if deps.VoterHandler != nil {
		deps.VoterHandler.RegisterAdmin(admin.Group("/voters"))
	}
	if deps.CandidateHandler != nil {
		deps.CandidateHandler.RegisterPositions(admin.Group("/positions"))
		deps.CandidateHandler.RegisterCandidates(admin.Group("/candidates"))
	}
	if deps.ElectionHandler != nil {
		deps.ElectionHandler.RegisterAdmin(admin.Group("/voting-control"))
	}
	if deps.ResultsHandler != nil {
		deps.ResultsHandler.RegisterAdmin(admin.Group("/results"))
	}
	if deps.AdminAnnouncementHandler != nil {
		deps.AdminAnnouncementHandler.Register(admin.Group("/announcements"))
	}
	if deps.AdminHandler != nil {
		deps.AdminHandler.Register(admin.Group("/admins", middleware.RequireRole(string(models.RoleSuperadmin))))
	}
	if deps.AdminActivityHandler != nil {
		deps.AdminActivityHandler.Register(admin.Group("/activity"))
	}
}
