package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"
)

const (
	defaultAppName        = "GreenPay"
	defaultAppEnv         = "development"
	defaultPort           = "8080"
	defaultLogLevel       = "info"
	defaultShutdownDelay  = 10 * time.Second
	defaultIdempotencyTTL = 24 * time.Hour
	defaultAccessTTL      = 15 * time.Minute
	defaultRefreshTTL     = 720 * time.Hour
	defaultSettleDelay    = 5 * time.Second
	defaultSettlePoll     = 2 * time.Second
	defaultRateTimeout    = 5 * time.Second
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName  string
	AppEnv   string
	Port     string
	LogLevel string

	DatabaseURL string
	RedisURL    string

	JWTSecret       string
	RefreshSecret   string
	AccessTokenTTL  time.Duration
	RefreshTokenTTL time.Duration

	IdempotencyTTL time.Duration
	ShutdownPeriod time.Duration

	// Settlement worker knobs: how long a processing transaction waits before
	// completion, and how often the worker scans for due transactions.
	SettlementDelay        time.Duration
	SettlementPollInterval time.Duration

	// Rate resolver knobs. LenientRateFallback preserves the legacy
	// return-1-when-unknown behaviour; the default is to fail loudly.
	RateAPIURL          string
	RateRequestTimeout  time.Duration
	LenientRateFallback bool

	// WhatsApp Business API credentials for the outbound notifier. Empty
	// values disable the channel and notifications fall back to the logger.
	WhatsAppAPIURL string
	WhatsAppToken  string
}

// Load reads configuration values from the environment and populates a Config instance.
func Load() (Config, error) {
	cfg := Config{
		AppName:                getEnv("APP_NAME", defaultAppName),
		AppEnv:                 getEnv("APP_ENV", defaultAppEnv),
		Port:                   getEnv("PORT", defaultPort),
		LogLevel:               strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		DatabaseURL:            os.Getenv("DATABASE_URL"),
		RedisURL:               os.Getenv("REDIS_URL"),
		JWTSecret:              getEnv("JWT_SECRET", "dev-secret"),
		RefreshSecret:          getEnv("REFRESH_SECRET", "dev-refresh-secret"),
		AccessTokenTTL:         defaultAccessTTL,
		RefreshTokenTTL:        defaultRefreshTTL,
		IdempotencyTTL:         defaultIdempotencyTTL,
		ShutdownPeriod:         defaultShutdownDelay,
		SettlementDelay:        defaultSettleDelay,
		SettlementPollInterval: defaultSettlePoll,
		RateAPIURL:             os.Getenv("RATE_API_URL"),
		RateRequestTimeout:     defaultRateTimeout,
		WhatsAppAPIURL:         os.Getenv("WHATSAPP_API_URL"),
		WhatsAppToken:          os.Getenv("WHATSAPP_TOKEN"),
	}

	var err error
	if cfg.AccessTokenTTL, err = durationEnv("ACCESS_TOKEN_TTL", cfg.AccessTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.RefreshTokenTTL, err = durationEnv("REFRESH_TOKEN_TTL", cfg.RefreshTokenTTL); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationEnv("IDEMPOTENCY_TTL", cfg.IdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.ShutdownPeriod, err = durationEnv("SHUTDOWN_TIMEOUT", cfg.ShutdownPeriod); err != nil {
		return Config{}, err
	}
	if cfg.SettlementDelay, err = durationEnv("SETTLEMENT_DELAY", cfg.SettlementDelay); err != nil {
		return Config{}, err
	}
	if cfg.SettlementPollInterval, err = durationEnv("SETTLEMENT_POLL_INTERVAL", cfg.SettlementPollInterval); err != nil {
		return Config{}, err
	}
	if cfg.RateRequestTimeout, err = durationEnv("RATE_REQUEST_TIMEOUT", cfg.RateRequestTimeout); err != nil {
		return Config{}, err
	}

	if v := os.Getenv("LENIENT_RATE_FALLBACK"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return Config{}, fmt.Errorf("invalid LENIENT_RATE_FALLBACK: %w", err)
		}
		cfg.LenientRateFallback = b
	}

	if !cfg.IsDev() {
		if cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the app runs in a development environment, where
// in-memory stores may substitute for Postgres and Redis.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
	case "dev", "development", "local":
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

func durationEnv(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	if seconds, err := strconv.Atoi(v); err == nil {
		return time.Duration(seconds) * time.Second, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return d, nil
}

func getEnv(key, fallback string) string {
	if value := os.Getenv(key); value != "" {
		return value
	}
	return fallback
}
