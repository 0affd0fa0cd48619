// Package config reads process configuration from the environment.
package config

import (
	"fmt"
	"os"
	"strconv"

	"github.com/neomorfeo/idledger/internal/app"
)

// Event sinks accepted in Config.Events.
const (
	EventsLog   = "log"
	EventsRiver = "river"
	EventsNone  = "none"
)

type Config struct {
	DatabasePath string
	MaxAttempts  int
	Events       string

	LogLevel  string
	LogFormat string
	LogFile   string

	Port string
}

// Load builds a Config from IDLEDGER_* variables (and PORT for the daemon).
func Load() (Config, error) {
	cfg := Config{
		DatabasePath: envOrDefault("IDLEDGER_DATABASE_PATH", "idledger.db"),
		MaxAttempts:  app.DefaultMaxAttempts,
		Events:       envOrDefault("IDLEDGER_EVENTS", EventsLog),
		LogLevel:     envOrDefault("IDLEDGER_LOG_LEVEL", "warn"),
		LogFormat:    envOrDefault("IDLEDGER_LOG_FORMAT", "text"),
		LogFile:      os.Getenv("IDLEDGER_LOG_FILE"),
		Port:         envOrDefault("PORT", "8080"),
	}

	if v := os.Getenv("IDLEDGER_MAX_ATTEMPTS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil || n < 1 {
			return Config{}, fmt.Errorf("IDLEDGER_MAX_ATTEMPTS: must be a positive integer, got %q", v)
		}
		cfg.MaxAttempts = n
	}

	switch cfg.Events {
	case EventsLog, EventsRiver, EventsNone:
	default:
		return Config{}, fmt.Errorf("IDLEDGER_EVENTS: unsupported sink %q (use %q, %q or %q)", cfg.Events, EventsLog, EventsRiver, EventsNone)
	}

	return cfg, nil
}

func envOrDefault(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
