// Package config loads all runtime configuration from environment variables
// so main stays lean.
package config

import (
	"fmt"
	"log/slog"
	"os"
	"strconv"
	"strings"
	"time"
)

// Config contains every parameter the server consumes.
type Config struct {
	// Addr is the HTTP listen address.
	Addr string
	// Production toggles secure cookies and suppresses error detail.
	Production bool
	// LogLevel is the slog level (debug, info, warn, error).
	LogLevel slog.Level
	// LogFormat is json or text.
	LogFormat string

	// AccessSecret signs access tokens; RefreshSecret signs refresh tokens.
	// The two must differ so a token minted for one kind never verifies
	// under the other.
	AccessSecret  string
	RefreshSecret string

	// DatabaseURL is the postgres connection string. Empty selects the
	// in-memory stores (development only).
	DatabaseURL string
	// RedisURL enables the login lockout store when set.
	RedisURL string
	// GeoDBPath points at a local MaxMind mmdb file. Empty disables
	// geolocation; records are still written without geo data.
	GeoDBPath string
	// KafkaBrokers enables the best-effort activity mirror when set.
	KafkaBrokers []string
	// KafkaTopic is the topic the activity mirror produces to.
	KafkaTopic string

	// AuditQueueSize bounds the activity recorder queue; overflow drops.
	AuditQueueSize int
	// AuditWorkers is the number of persistence workers.
	AuditWorkers int

	ReadHeaderTimeout time.Duration
	ShutdownTimeout   time.Duration
}

// Load builds a Config from environment variables, applying defaults and
// validating the values that have no safe default.
func Load() (*Config, error) {
	cfg := &Config{
		Addr:              getEnvDefault("REGISTRA_ADDR", ":8080"),
		Production:        os.Getenv("REGISTRA_ENV") == "production",
		LogFormat:         getEnvDefault("REGISTRA_LOG_FORMAT", "json"),
		AccessSecret:      os.Getenv("JWT_ACCESS_SECRET"),
		RefreshSecret:     os.Getenv("JWT_REFRESH_SECRET"),
		DatabaseURL:       os.Getenv("REGISTRA_DATABASE_URL"),
		RedisURL:          os.Getenv("REGISTRA_REDIS_URL"),
		GeoDBPath:         os.Getenv("REGISTRA_GEOIP_DB"),
		KafkaTopic:        getEnvDefault("REGISTRA_AUDIT_TOPIC", "registra.activity"),
		ReadHeaderTimeout: 5 * time.Second,
	}

	var err error
	if cfg.LogLevel, err = parseLogLevel(getEnvDefault("REGISTRA_LOG_LEVEL", "info")); err != nil {
		return nil, fmt.Errorf("REGISTRA_LOG_LEVEL: %w", err)
	}
	if cfg.LogFormat != "json" && cfg.LogFormat != "text" {
		return nil, fmt.Errorf("REGISTRA_LOG_FORMAT: unsupported format %q", cfg.LogFormat)
	}

	if cfg.AccessSecret == "" || cfg.RefreshSecret == "" {
		if cfg.Production {
			return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET are required in production")
		}
		// Development defaults; distinct on purpose.
		if cfg.AccessSecret == "" {
			cfg.AccessSecret = "dev-access-secret-change-me"
		}
		if cfg.RefreshSecret == "" {
			cfg.RefreshSecret = "dev-refresh-secret-change-me"
		}
	}
	if cfg.AccessSecret == cfg.RefreshSecret {
		return nil, fmt.Errorf("JWT_ACCESS_SECRET and JWT_REFRESH_SECRET must differ")
	}

	if brokers := os.Getenv("REGISTRA_KAFKA_BROKERS"); brokers != "" {
		for _, b := range strings.Split(brokers, ",") {
			if b = strings.TrimSpace(b); b != "" {
				cfg.KafkaBrokers = append(cfg.KafkaBrokers, b)
			}
		}
	}

	if cfg.AuditQueueSize, err = getEnvInt("REGISTRA_AUDIT_QUEUE_SIZE", 1024); err != nil {
		return nil, fmt.Errorf("REGISTRA_AUDIT_QUEUE_SIZE: %w", err)
	}
	if cfg.AuditWorkers, err = getEnvInt("REGISTRA_AUDIT_WORKERS", 4); err != nil {
		return nil, fmt.Errorf("REGISTRA_AUDIT_WORKERS: %w", err)
	}
	if cfg.ShutdownTimeout, err = getEnvDuration("REGISTRA_SHUTDOWN_TIMEOUT", 10*time.Second); err != nil {
		return nil, fmt.Errorf("REGISTRA_SHUTDOWN_TIMEOUT: %w", err)
	}

	return cfg, nil
}

func getEnvDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}

func getEnvInt(key string, fallback int) (int, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	n, err := strconv.Atoi(v)
	if err != nil {
		return 0, fmt.Errorf("invalid integer %q", v)
	}
	if n <= 0 {
		return 0, fmt.Errorf("must be positive, got %d", n)
	}
	return n, nil
}

func getEnvDuration(key string, fallback time.Duration) (time.Duration, error) {
	v := os.Getenv(key)
	if v == "" {
		return fallback, nil
	}
	d, err := time.ParseDuration(v)
	if err != nil {
		return 0, fmt.Errorf("invalid duration %q", v)
	}
	return d, nil
}

func parseLogLevel(level string) (slog.Level, error) {
	switch strings.ToLower(level) {
	case "debug":
		return slog.LevelDebug, nil
	case "info":
		return slog.LevelInfo, nil
	case "warn":
		return slog.LevelWarn, nil
	case "error":
		return slog.LevelError, nil
	default:
		return 0, fmt.Errorf("unknown level %q", level)
	}
}
