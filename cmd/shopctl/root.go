package main

import (
	"context"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"
	"github.com/spf13/cobra"

	"github.com/shopdesk/shopdesk/internal/app"
	"github.com/shopdesk/shopdesk/internal/config"
	"github.com/shopdesk/shopdesk/internal/infra"
	"github.com/shopdesk/shopdesk/internal/logging"
)

// NewRootCmd creates the root command for the shopctl CLI.
func NewRootCmd() *cobra.Command {
	cmd := &cobra.Command{
		Use:           "shopctl",
		Short:         "ShopDesk operator tool",
		SilenceUsage:  true,
		SilenceErrors: true,
	}

	cmd.AddCommand(NewMigrateCmd())
	cmd.AddCommand(NewAccountsCmd())
	cmd.AddCommand(NewRegistrationsCmd())
	return cmd
}

// loadContainer connects to the configured stores and wires the services.
// The returned cleanup closes the connections.
func loadContainer(ctx context.Context) (*app.Container, func(), error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, nil, oops.Code("CONFIG_INVALID").Wrap(err)
	}
	if cfg.DatabaseURL == "" {
		return nil, nil, oops.Code("CONFIG_INVALID").Errorf("DATABASE_URL is required")
	}

	logger := logging.New(cfg.LogLevel)

	var (
		db    *pgxpool.Pool
		cache *redis.Client
	)
	cleanup := func() {
		if cache != nil {
			_ = cache.Close()
		}
		if db != nil {
			db.Close()
		}
	}

	if db, err = infra.NewPostgresPool(ctx, cfg.DatabaseURL); err != nil {
		return nil, nil, oops.Code("DB_CONNECT_FAILED").Wrap(err)
	}
	if cfg.RedisURL != "" {
		if cache, err = infra.NewRedisClient(ctx, cfg.RedisURL); err != nil {
			cleanup()
			return nil, nil, oops.Code("REDIS_CONNECT_FAILED").Wrap(err)
		}
	}

	container, err := app.Build(ctx, app.Deps{Cfg: cfg, DB: db, Cache: cache, Logger: logger})
	if err != nil {
		cleanup()
		return nil, nil, err
	}
	return container, cleanup, nil
}
