package main

import (
	"context"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v2"
	"github.com/nats-io/nats.go"
	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/noah-isme/campus-evote-api/internal/config"
	"github.com/noah-isme/campus-evote-api/internal/database"
	"github.com/noah-isme/campus-evote-api/internal/handler"
	"github.com/noah-isme/campus-evote-api/internal/middleware"
	"github.com/noah-isme/campus-evote-api/internal/repository"
	"github.com/noah-isme/campus-evote-api/internal/router"
	"github.com/noah-isme/campus-evote-api/internal/service"
	cloud "github.com/noah-isme/campus-evote-api/pkg/cloudinary"
)

func main() {
	logger := zerolog.New(os.Stdout).With().Timestamp().Str("service", "campus-evote-api").Logger()

	cfg, err := config.Load()
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to load configuration")
	}
	if cfg.AppEnv == "development" {
		logger = logger.Output(zerolog.ConsoleWriter{Out: os.Stdout, TimeFormat: time.RFC3339})
	}

	db, err := database.ConnectPostgres(cfg.DatabaseURL)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to connect to database")
	}
	if err := database.Migrate(db); err != nil {
		logger.Fatal().Err(err).Msg("failed to migrate database")
	}

	var redisClient *redis.Client
	if cfg.RedisURL != "" {
		redisClient, err = database.ConnectRedis(cfg.RedisURL)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to redis")
		}
		defer redisClient.Close()
	} else {
		logger.Warn().Msg("redis disabled: results are computed on every request and live events stay on this node")
	}

	var natsConn *nats.Conn
	if cfg.NATSURL != "" {
		natsConn, err = database.ConnectNATS(cfg.NATSURL, cfg.AppName)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to connect to nats")
		}
		defer natsConn.Drain()
	}

	storage, err := cloud.New(cloud.Config{
		CloudName: cfg.CloudinaryCloudName,
		APIKey:    cfg.CloudinaryAPIKey,
		APISecret: cfg.CloudinaryAPISecret,
		Folder:    cfg.CloudinaryUploadFolder,
	}, logger)
	if err != nil {
		logger.Fatal().Err(err).Msg("failed to create cloudinary client")
	}

	validate := validator.New(validator.WithRequiredStructEnabled())

	voterRepo := repository.NewVoterRepository(db)
	tokenRepo := repository.NewVerificationTokenRepository(db)
	adminRepo := repository.NewAdminRepository(db)
	electionRepo := repository.NewElectionRepository(db)
	positionRepo := repository.NewPositionRepository(db)
	candidateRepo := repository.NewCandidateRepository(db)
	ballotRepo := repository.NewBallotRepository(db)
	announcementRepo := repository.NewAnnouncementRepository(db)
	uploadRepo := repository.NewUploadRepository(db)
	activityRepo := repository.NewActivityLogRepository(db)

	activityService := service.NewActivityService(activityRepo, logger)
	liveService := service.NewLiveService(redisClient, cfg.LiveChannel, natsConn, logger)
	uploadService := service.NewUploadService(storage, uploadRepo, cfg.UploadMaxMB, logger)
	mailer := service.NewLogMailer(cfg.MailFrom, logger)

	resultsService := service.NewResultsService(electionRepo, positionRepo, candidateRepo, ballotRepo, redisClient, cfg.ResultsCacheTTL, validate, activityService, liveService, logger)
	electionService := service.NewElectionService(electionRepo, resultsService, validate, activityService, liveService, logger)
	ballotService := service.NewBallotService(voterRepo, electionRepo, positionRepo, candidateRepo, ballotRepo, resultsService, validate, liveService, logger)
	voterService := service.NewVoterService(voterRepo, tokenRepo, ballotRepo, uploadService, mailer, validate, activityService, service.VoterServiceConfig{PublicBaseURL: cfg.PublicBaseURL}, logger)
	authService := service.NewAuthService(voterRepo, adminRepo, validate, cfg.JWTSecret, cfg.JWTTTL, logger)
	adminService := service.NewAdminService(adminRepo, validate, activityService, logger)
	candidateService := service.NewCandidateService(electionRepo, positionRepo, candidateRepo, uploadService, resultsService, validate, activityService, logger)
	announcementService := service.NewAnnouncementService(announcementRepo, redisClient, cfg.ResultsCacheTTL, validate, activityService, logger)
	exportService := service.NewExportService(resultsService, activityService, logger)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	if cfg.BootstrapAdminEmail != "" {
		created, err := adminService.Bootstrap(ctx, cfg.BootstrapAdminName, cfg.BootstrapAdminEmail, cfg.BootstrapAdminPassword)
		if err != nil {
			logger.Fatal().Err(err).Msg("failed to bootstrap superadmin")
		}
		if created {
			logger.Info().Str("email", cfg.BootstrapAdminEmail).Msg("bootstrap superadmin created")
		}
	}

	liveService.Start(ctx)
	go service.NewAutoCloser(electionService, cfg.AutoCloseInterval, logger).Run(ctx)

	app := fiber.New(fiber.Config{
		AppName:      cfg.AppName,
		ServerHeader: cfg.AppName,
		BodyLimit:    (cfg.UploadMaxMB + 1) * 1024 * 1024,
	})

	middleware.Register(app, middleware.Config{Logger: &logger, AllowOrigins: cfg.CORSAllowOrigins})
	router.Register(app, cfg, router.Dependencies{
		AuthHandler:              handler.NewAuthHandler(authService, logger),
		VoterHandler:             handler.NewVoterHandler(voterService, logger),
		BallotHandler:            handler.NewBallotHandler(ballotService, logger),
		ElectionHandler:          handler.NewElectionHandler(electionService, logger),
		ResultsHandler:           handler.NewResultsHandler(resultsService, exportService, liveService, logger, cfg.StreamKeepAlive),
		CandidateHandler:         handler.NewCandidateHandler(candidateService, logger),
		AnnouncementHandler:      handler.NewAnnouncementHandler(announcementService, logger),
		AdminAnnouncementHandler: handler.NewAdminAnnouncementHandler(announcementService, logger),
		AdminHandler:             handler.NewAdminHandler(adminService, logger),
		AdminActivityHandler:     handler.NewAdminActivityHandler(activityService, logger),
		Health:                   handler.HealthDependencies{DB: db, Redis: redisClient},
		JWTMiddleware:            middleware.JWTProtected(cfg.JWTSecret),
		AdminJWTMiddleware:       middleware.JWTProtected(cfg.JWTSecret, true),
		AdminResolver:            middleware.ResolveAdmin(adminRepo),
		LoginRateLimit:           cfg.LoginRateLimit,
	})

	go func() {
		if err := app.Listen(cfg.HTTPAddress()); err != nil {
			logger.Fatal().Err(err).Msg("failed to start server")
		}
	}()

	waitForShutdown(ctx, app, logger)
}

func waitForShutdown(ctx context.Context, app *fiber.App, logger zerolog.Logger) {
	<-ctx.Done()

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()

	if err := app.ShutdownWithContext(shutdownCtx); err != nil {
		logger.Error().Err(err).Msg("graceful shutdown failed")
	}

	logger.Info().Msg("server stopped")
}
