package config

import (
	"errors"
	"fmt"
	"io/fs"
	"math"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/joho/godotenv"

	"github.com/payfast/payfast/internal/money"
	"github.com/payfast/payfast/internal/payid"
)

const (
	defaultAppName          = "PayFast"
	defaultAppEnv           = "development"
	defaultPort             = "5000"
	defaultLogLevel         = "info"
	defaultLogFormat        = "json"
	defaultShutdownDelay    = 10 * time.Second
	defaultIdempotencyTTL   = 24 * time.Hour
	defaultTransferTimeout  = 5 * time.Second
	defaultPayIDNamespace   = "payfast"
	defaultPayIDMaxAttempts = 1000
	defaultStartingBalance  = "125000"
	defaultRateLimitMax     = 100
	defaultRateLimitWindow  = 15 * time.Minute
	defaultNotifyChannel    = "payfast:notifications"
	idemTTLSecondsEnvVar    = "IDEMPOTENCY_TTL_SECONDS"
	idemTTLDurEnvVar        = "IDEMPOTENCY_TTL"
	shutdownSecondsEnvVar   = "SHUTDOWN_TIMEOUT_SECONDS"
	shutdownDurationEnvVar  = "SHUTDOWN_TIMEOUT"
)

// Config captures application runtime configuration loaded from environment variables.
type Config struct {
	AppName          string
	AppEnv           string
	Port             string
	LogLevel         string
	LogFormat        string
	DatabaseURL      string
	RedisURL         string
	ShutdownPeriod   time.Duration
	IdempotencyTTL   time.Duration
	TransferTimeout  time.Duration
	PayIDNamespace   string
	PayIDMaxAttempts int
	// StartingBalance is credited to every new account, in minor units.
	StartingBalance int64
	RateLimitMax    int
	RateLimitWindow time.Duration
	NotifyChannel   string
	// DBMaxConns and DBMinConns size the Postgres pool; zero keeps the driver default.
	DBMaxConns int32
	DBMinConns int32
}

// Backends names the external stores a process cannot run without outside the development
// profile.
type Backends struct {
	Database bool
	Redis    bool
}

// ServerBackends is what the HTTP service needs in production.
var ServerBackends = Backends{Database: true, Redis: true}

// Load reads an optional .env file and then the environment into a Config.
func Load() (Config, error) {
	return LoadFor(ServerBackends)
}

// LoadFor is Load for a process that needs only the given backends.
func LoadFor(required Backends) (Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return Config{}, fmt.Errorf("load .env: %w", err)
	}
	return FromEnvFor(required)
}

// FromEnv populates a Config from the process environment only.
func FromEnv() (Config, error) {
	return FromEnvFor(ServerBackends)
}

// FromEnvFor is FromEnv for a process that needs only the given backends.
func FromEnvFor(required Backends) (Config, error) {
	cfg := Config{
		AppName:        getEnv("APP_NAME", defaultAppName),
		AppEnv:         getEnv("APP_ENV", defaultAppEnv),
		Port:           getEnv("PORT", defaultPort),
		LogLevel:       strings.ToLower(getEnv("LOG_LEVEL", defaultLogLevel)),
		LogFormat:      strings.ToLower(getEnv("LOG_FORMAT", defaultLogFormat)),
		DatabaseURL:    os.Getenv("DATABASE_URL"),
		RedisURL:       os.Getenv("REDIS_URL"),
		PayIDNamespace: getEnv("PAYID_NAMESPACE", defaultPayIDNamespace),
		NotifyChannel:  getEnv("NOTIFY_CHANNEL", defaultNotifyChannel),
	}

	var err error
	if cfg.ShutdownPeriod, err = durationFromEnv(shutdownSecondsEnvVar, shutdownDurationEnvVar, defaultShutdownDelay); err != nil {
		return Config{}, err
	}
	if cfg.IdempotencyTTL, err = durationFromEnv(idemTTLSecondsEnvVar, idemTTLDurEnvVar, defaultIdempotencyTTL); err != nil {
		return Config{}, err
	}
	if cfg.TransferTimeout, err = durationFromEnv("", "TRANSFER_TIMEOUT", defaultTransferTimeout); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitWindow, err = durationFromEnv("", "RATE_LIMIT_WINDOW", defaultRateLimitWindow); err != nil {
		return Config{}, err
	}
	if cfg.PayIDMaxAttempts, err = intFromEnv("PAYID_MAX_ATTEMPTS", defaultPayIDMaxAttempts); err != nil {
		return Config{}, err
	}
	if cfg.RateLimitMax, err = intFromEnv("RATE_LIMIT_MAX", defaultRateLimitMax); err != nil {
		return Config{}, err
	}
	maxConns, err := intFromEnv("DB_MAX_CONNS", 0)
	if err != nil {
		return Config{}, err
	}
	minConns, err := intFromEnv("DB_MIN_CONNS", 0)
	if err != nil {
		return Config{}, err
	}
	if maxConns < 0 || minConns < 0 || maxConns > math.MaxInt32 || minConns > math.MaxInt32 {
		return Config{}, fmt.Errorf("DB_MAX_CONNS and DB_MIN_CONNS must be between 0 and %d", math.MaxInt32)
	}
	if maxConns > 0 && minConns > maxConns {
		return Config{}, fmt.Errorf("DB_MIN_CONNS (%d) exceeds DB_MAX_CONNS (%d)", minConns, maxConns)
	}
	cfg.DBMaxConns, cfg.DBMinConns = int32(maxConns), int32(minConns)

	cfg.StartingBalance, err = money.Parse(getEnv("STARTING_BALANCE", defaultStartingBalance))
	if err != nil {
		return Config{}, fmt.Errorf("invalid STARTING_BALANCE: %w", err)
	}
	if cfg.StartingBalance < 0 {
		return Config{}, fmt.Errorf("STARTING_BALANCE must not be negative")
	}
	if cfg.PayIDMaxAttempts <= 0 {
		return Config{}, fmt.Errorf("PAYID_MAX_ATTEMPTS must be positive")
	}
	if err := payid.ValidateNamespace(cfg.PayIDNamespace); err != nil {
		return Config{}, fmt.Errorf("invalid PAYID_NAMESPACE: %w", err)
	}

	if !cfg.IsDev() {
		if required.Database && cfg.DatabaseURL == "" {
			return Config{}, fmt.Errorf("DATABASE_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
		if required.Redis && cfg.RedisURL == "" {
			return Config{}, fmt.Errorf("REDIS_URL must be set when APP_ENV=%s", cfg.AppEnv)
		}
	}

	return cfg, nil
}

// IsDev reports whether the development profile is active. Only this profile may run
// without Postgres and Redis.
func (c Config) IsDev() bool {
	switch strings.ToLower(c.AppEnv) {
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
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid %s: %w", key, err)
	}
	return n, nil
}
