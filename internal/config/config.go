package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName          = "ShopDesk"
	defaultAppEnv           = "development"
	defaultPort             = "8080"
	defaultLogLevel         = "info"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultJWTIssuer        = "shopdesk"
	defaultAccessTokenTTL   = time.Hour
	defaultOTPTTL           = 10 * time.Minute
	defaultPendingRetention = 24 * time.Hour
	defaultBcryptCost       = 10
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
)

// Registration store backends.
const (
	StorePostgres = "postgres"
	StoreRedis    = "redis"
	StoreMemory   = "memory"
)

// SMS providers.
const (
	SMSProviderLog = "log"
	SMSProviderSNS = "sns"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName        string
	AppEnv         string
	Port           string
	LogLevel       string
	DatabaseURL    string
	RedisURL       string
	ShutdownPeriod time.Duration
	IdempotencyTTL time.Duration

	JWTSecret      string
	JWTIssuer      string
	AccessTokenTTL time.Duration

	OTPTTL            time.Duration
	PendingRetention  time.Duration
	RegistrationStore string

	PasswordHasher string
	BcryptCost     int

	SMSProvider string
	AWSRegion   string
	SMSSenderID string

	RevealUnknownAccount bool
	AutoMigrate          bool
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:           getEnv("APP_NAME", defaultAppName),
		AppEnv:            strings.ToLower(getEnv("APP_ENV", defaultAppEnv)),
		Port:              getEnv("PORT", defaultPort),
		LogLevel:          strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:       os.Getenv("DATABASE_URL"),
		RedisURL:          os.Getenv("REDIS_URL"),
		ShutdownPeriod:    defaultShutdownDelay,
		IdempotencyTTL:    defaultIdempotencyTTL,
		JWTSecret:         strings.TrimSpace(os.Getenv("JWT_SECRET")),
		JWTIssuer:         getEnv("JWT_ISSUER", defaultJWTIssuer),
		RegistrationStore: strings.ToLower(os.Getenv("REGISTRATION_STORE")),
		PasswordHasher:    strings.ToLower(getEnv("PASSWORD_HASHER", "bcrypt")),
		SMSProvider:       strings.ToLower(os.Getenv("SMS_PROVIDER")),
		AWSRegion:         getEnv("AWS_REGION", "ap-south-1"),
		SMSSenderID:       os.Getenv("SMS_SENDER_ID"),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.AccessTokenTTL, err = durationFromEnv("", "ACCESS_TOKEN_TTL", defaultAccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.OTPTTL, err = durationFromEnv("", "OTP_TTL", defaultOTPTTL); err != nil {
		return Config{}, err
	}
	if cfg.PendingRetention, err = durationFromEnv("", "PENDING_RETENTION", defaultPendingRetention); err != nil {
		return Config{}, err
	}
	if cfg.BcryptCost, err = intFromEnv("BCRYPT_COST", defaultBcryptCost); err != nil {
		return Config{}, err
	}
	if cfg.RevealUnknownAccount, err = boolFromEnv("AUTH_REVEAL_UNKNOWN_ACCOUNT", false); err != nil {
		return Config{}, err
	}
	if cfg.AutoMigrate, err = boolFromEnv("AUTO_MIGRATE", false); err != nil {
		return Config{}, err
	}

	if cfg.SMSProvider == "" {
		cfg.SMSProvider = SMSProviderSNS
		if cfg.IsDev() {
			cfg.SMSProvider = SMSProviderLog
		}
	}

	if cfg.RegistrationStore == "" {
		cfg.RegistrationStore = StorePostgres
		if cfg.DatabaseURL == "" {
			cfg.RegistrationStore = StoreMemory
		}
	}

	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if c.JWTSecret == "" {
		return fmt.Errorf("JWT_SECRET must be set")
	}
	if !c.IsDev() {
		if c.DatabaseURL == "" {
			return fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", c.AppEnv)
		}
		if c.RedisURL == "" {
			return fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", c.AppEnv)
		}
	}
	switch c.RegistrationStore {
	case StorePostgres:
		if c.DatabaseURL == "" {
			return fmt.Errorf("REGISTRATION_STORE=postgres requires DATABASE_URL")
		}
	case StoreRedis:
		if c.RedisURL == "" {
			return fmt.Errorf("REGISTRATION_STORE=redis requires REDIS_URL")
		}
	case StoreMemory:
	default:
		return fmt.Errorf("invalid REGISTRATION_STORE %q", c.RegistrationStore)
	}
	switch c.SMSProvider {
	case SMSProviderSNS:
	case SMSProviderLog:
		if !c.IsDev() {
			return fmt.Errorf("SMS_PROVIDER=log writes codes to the log and is only allowed in development")
		}
	default:
		return fmt.Errorf("invalid SMS_PROVIDER %q", c.SMSProvider)
	}
	if c.OTPTTL <= 0 {
		return fmt.Errorf("OTP_TTL must be positive")
	}
	if c.AccessTokenTTL <= 0 {
		return fmt.Errorf("ACCESS_TOKEN_TTL must be positive")
	}
	return nil
}

// IsDev reports whether the service runs in a local development environment.
func (c Config) IsDev() bool {
	switch c.AppEnv {
	case "dev", "development", "local", "test":
		return true
	default:
		return false
	}
}

// Address returns the listen address in the format Fiber expects.
func (c Config) Address() string {
	if strings.HasPrefix(c.Port, ":") {
		return c.Port
	}
	return fmt.Sprintf(":%s", c.Port)
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}

// durationFromEnv prefers the integer-seconds variable over the duration variable.
func durationFromEnv(secondsKey, durationKey string, fallback time.Duration) (time.Duration, error) {
	if secondsKey != "" {
		if v := os.Getenv(secondsKey); v != "" {
			seconds, err := strconv.Atoi(v)
			if err != nil {
				return 0, fmt.Errorf("invalid %s: %w", secondsKey, err)
			}
			return time.Duration(seconds) * time.Second, nil
		}
	}
	if v := os.Getenv(durationKey); v != "" {
		d, err := time.ParseDuration(v)
		if err != nil {
			return 0, fmt.Errorf("invalid %s: %w", durationKey, err)
		}
		return d, nil
	}
	return fallback, nil
}

func intFromEnv(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	i, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return i, nil
}

func boolFromEnv(key string, fallback bool) (bool, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	b, err := strconv.ParseBool(v)
	if err != nil {
		return false, fmt.Errorf("invalid %s: %w", key, err)
	}
	return b, nil
}
