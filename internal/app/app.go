// Package app assembles the stores and services selected by configuration.
// The HTTP server and the operator CLI share it.
package app

import (
	"context"
	"log/slog"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/redis/go-redis/v9"
	"github.com/samber/oops"

	"github.com/shopdesk/shopdesk/internal/account"
	"github.com/shopdesk/shopdesk/internal/auth"
	"github.com/shopdesk/shopdesk/internal/config"
	"github.com/shopdesk/shopdesk/internal/credential"
	"github.com/shopdesk/shopdesk/internal/logging"
	"github.com/shopdesk/shopdesk/internal/notification"
	"github.com/shopdesk/shopdesk/internal/observability"
	"github.com/shopdesk/shopdesk/internal/otp"
	"github.com/shopdesk/shopdesk/internal/registration"
)

// Deps are the connections and overrides the container is built from. DB and
// Cache may be nil in development; Notifier and Codes default from config.
type Deps struct {
	Cfg      config.Config
	DB       *pgxpool.Pool
	Cache    *redis.Client
	Logger   *slog.Logger
	Metrics  *observability.Metrics
	Notifier notification.Notifier
	Codes    otp.Generator
}

// Container holds the wired services.
type Container struct {
	Accounts     account.Repository
	Pending      registration.Repository
	AccountSvc   *account.Service
	Registration *registration.Service
	Auth         *auth.Service
	Tokens       *auth.TokenManager
	Metrics      *observability.Metrics
}

// Build selects the stores named by d.Cfg and wires the services over them.
func Build(ctx context.Context, d Deps) (*Container, error) {
	if d.Logger == nil {
		d.Logger = logging.Discard()
	}

	hasher, err := credential.New(d.Cfg.PasswordHasher, d.Cfg.BcryptCost)
	if err != nil {
		return nil, err
	}

	notifier := d.Notifier
	if notifier == nil {
		if notifier, err = newNotifier(ctx, d.Cfg, d.Logger); err != nil {
			return nil, err
		}
	}

	var accounts account.Repository
	if d.DB != nil {
		accounts = account.NewPostgresRepository(d.DB)
	} else {
		accounts = account.NewMemoryRepository()
	}

	var (
		pending  registration.Repository
		promoter registration.Promoter
	)
	switch d.Cfg.RegistrationStore {
	case config.StorePostgres:
		if d.DB == nil {
			return nil, oops.Errorf("registration store %q requires a database", d.Cfg.RegistrationStore)
		}
		pending = registration.NewPostgresRepository(d.DB)
		promoter = registration.NewTxPromoter(d.DB)
	case config.StoreRedis:
		if d.Cache == nil {
			return nil, oops.Errorf("registration store %q requires redis", d.Cfg.RegistrationStore)
		}
		pending = registration.NewRedisRepository(d.Cache, d.Cfg.OTPTTL+d.Cfg.PendingRetention)
	default:
		pending = registration.NewMemoryRepository()
	}

	registrationSvc, err := registration.NewService(registration.Deps{
		Pending:  pending,
		Accounts: accounts,
		Promoter: promoter,
		Hasher:   hasher,
		Codes:    d.Codes,
		Notifier: notifier,
		Logger:   d.Logger,
		Metrics:  d.Metrics,
	}, registration.Config{AppName: d.Cfg.AppName, OTPTTL: d.Cfg.OTPTTL})
	if err != nil {
		return nil, err
	}

	tokens := auth.NewTokenManager(d.Cfg.JWTSecret, d.Cfg.JWTIssuer, d.Cfg.AccessTokenTTL)
	authSvc, err := auth.NewService(accounts, hasher, tokens, auth.Options{
		RevealUnknownAccount: d.Cfg.RevealUnknownAccount,
		Logger:               d.Logger,
		Metrics:              d.Metrics,
	})
	if err != nil {
		return nil, err
	}

	return &Container{
		Accounts:     accounts,
		Pending:      pending,
		AccountSvc:   account.NewService(accounts),
		Registration: registrationSvc,
		Auth:         authSvc,
		Tokens:       tokens,
		Metrics:      d.Metrics,
	}, nil
}

func newNotifier(ctx context.Context, cfg config.Config, logger *slog.Logger) (notification.Notifier, error) {
	if cfg.SMSProvider == config.SMSProviderSNS {
		return notification.NewSNSNotifier(ctx, cfg.AWSRegion, cfg.SMSSenderID)
	}
	return notification.NewLoggerNotifier(logger), nil
}
