package handler

import (
	"context"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/noah-isme/campus-evote-api/internal/config"
	"github.com/noah-isme/campus-evote-api/internal/utils"
)

// HealthResponse represents the payload returned by the health endpoint.
type HealthResponse struct {
	Status      string            `json:"status"`
	Timestamp   time.Time         `json:"timestamp"`
	Service     string            `json:"service"`
	Environment string            `json:"environment"`
	Checks      map[string]string `json:"checks"`
}

// HealthDependencies are checked on every health request. Nil members are reported as disabled.
type HealthDependencies struct {
	DB    *gorm.DB
	Redis *redis.Client
}

// HealthCheck returns a handler that reports application health information.
func HealthCheck(cfg config.Config, deps HealthDependencies) fiber.Handler {
	return func(c *fiber.Ctx) error {
		ctx, cancel := context.WithTimeout(c.UserContext(), 2*time.Second)
		defer cancel()

		payload := HealthResponse{
			Status:      "ok",
			Timestamp:   time.Now().UTC(),
			Service:     cfg.AppName,
			Environment: cfg.AppEnv,
			Checks:      map[string]string{"database": "disabled", "redis": "disabled"},
		}

		if deps.DB != nil {
			payload.Checks["database"] = "ok"
			sqlDB, err := deps.DB.DB()
			if err == nil {
				err = sqlDB.PingContext(ctx)
			}
			if err != nil {
				payload.Checks["database"] = "unavailable"
				payload.Status = "degraded"
			}
		}
		if deps.Redis != nil {
			payload.Checks["redis"] = "ok"
			if err := deps.Redis.Ping(ctx).Err(); err != nil {
				payload.Checks["redis"] = "unavailable"
				payload.Status = "degraded"
			}
		}

		if payload.Status != "ok" {
			return utils.Fail(c, fiber.StatusServiceUnavailable, "service degraded", payload)
		}
		return utils.SendSuccess(c, "service healthy", payload)
	}
}
