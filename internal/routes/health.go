package routes

import (
	"context"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"

	"github.com/shopdesk/shopdesk/internal/logging"
)

const (
	healthTimeout     = 2 * time.Second
	statusUnavailable = "unavailable"
)

// RegisterHealthRoutes adds a readiness endpoint that pings the configured stores.
func RegisterHealthRoutes(app *fiber.App, d Deps) {
	app.Get("/healthz", func(c *fiber.Ctx) error {
		dbStatus := "disabled"
		redisStatus := "disabled"

		ctx, cancel := context.WithTimeout(c.UserContext(), healthTimeout)
		defer cancel()
		if d.DB != nil {
			dbStatus = "ok"
			if err := d.DB.Ping(ctx); err != nil {
				logging.LogError(d.Logger, "postgres health check failed", err)
				dbStatus = statusUnavailable
			}
		}
		if d.Cache != nil {
			redisStatus = "ok"
			if err := d.Cache.Ping(ctx).Err(); err != nil {
				logging.LogError(d.Logger, "redis health check failed", err)
				redisStatus = statusUnavailable
			}
		}

		status := http.StatusOK
		if !healthy(dbStatus) || !healthy(redisStatus) {
			status = http.StatusServiceUnavailable
		}
		return c.Status(status).JSON(fiber.Map{
			"status":             fiber.Map{"postgres": dbStatus, "redis": redisStatus},
			"registration_store": d.Cfg.RegistrationStore,
			"timestamp":          time.Now().UTC().Format(time.RFC3339Nano),
		})
	})
}

func healthy(status string) bool {
	return status == "ok" || status == "disabled"
}
