package routes

import (
	"context"
	"log/slog"
	"net/http"
	"time"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/gofiber/fiber/v2/middleware/logger"
	"github.com/gofiber/fiber/v2/middleware/recover"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/account"
	"github.com/shopdesk/shopdesk/internal/app"
	"github.com/shopdesk/shopdesk/internal/auth"
	"github.com/shopdesk/shopdesk/internal/config"
	"github.com/shopdesk/shopdesk/internal/logging"
	"github.com/shopdesk/shopdesk/internal/middleware"
	"github.com/shopdesk/shopdesk/internal/notification"
	"github.com/shopdesk/shopdesk/internal/observability"
	"github.com/shopdesk/shopdesk/internal/otp"
	"github.com/shopdesk/shopdesk/internal/registration"
)

// Deps aggregates shared dependencies required to wire routes.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Notifier notification.Notifier
	Codes    otp.Generator
}

// Setup configures middlewares and all application routes.
func Setup(fiberApp *fiber.App, d Deps) error {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}
	if !d.Cfg.IsDev() {
		if d.DB == nil {
			return oops.Errorf("database is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
		if d.Cache == nil {
			return oops.Errorf("redis is required when APP_ENV=%s", d.Cfg.AppEnv)
		}
	}

	container, err := app.Build(context.Background(), app.Deps{
		Cfg:      d.Cfg,
		DB:       d.DB,
		Cache:    d.Cache,
		Logger:   d.Logger,
		Metrics:  d.Metrics,
		Notifier: d.Notifier,
		Codes:    d.Codes,
	})
	if err != nil {
		return err
	}

	fiberApp.Use(recover.New())
	fiberApp.Use(middleware.RequestID())
	// Plain text access log: [HH:MM:SS] 200 -  145ms METHOD /path
	fiberApp.Use(logger.New(logger.Config{
		Format:     "[${time}] ${status} -  ${latency} ${method} ${path}\n",
		TimeFormat: "15:04:05",
		TimeZone:   "Local",
	}))
	fiberApp.Use(middleware.Audit(d.Logger))

	RegisterHealthRoutes(fiberApp, d)
	fiberApp.Get("/metrics", adaptor.HTTPHandler(d.Metrics.Handler()))

	api := fiberApp.Group("/api/v1")
	api.Get("/ping", func(c *fiber.Ctx) error {
		return c.Status(http.StatusOK).JSON(fiber.Map{
			"status":     "ok",
			"request_id": middleware.RequestIDFrom(c),
			"timestamp":  time.Now().UTC().Format(time.RFC3339Nano),
		})
	})

	var idempotency fiber.Handler
	if d.Cache != nil {
		idempotency = middleware.Idempotency(d.Cache, d.Cfg.IdempotencyTTL, d.Logger)
	}

	RegisterRegistrationRoutes(api, registration.NewHandler(container.Registration), idempotency)
	RegisterAuthRoutes(api, auth.NewHandler(container.Auth))

	protected := api.Group("", middleware.JWTAuth(container.Tokens))
	RegisterAccountRoutes(protected, account.NewHandler(container.AccountSvc))

	return nil
}
