// Package logging configures the process-wide zerolog logger.
package logging

import (
	"io"
	"os"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	Level      zerolog.Level
	Format     string // "json" or "console"
	TimeFormat string
}

// DefaultConfig returns sensible defaults.
func DefaultConfig() Config {
	return Config{
		Level:      zerolog.InfoLevel,
		Format:     "console",
		TimeFormat: time.RFC3339,
	}
}

// New creates a zerolog logger with the given configuration.
func New(cfg Config) zerolog.Logger {
	var output io.Writer = os.Stderr

	if cfg.Format == "console" {
		output = zerolog.ConsoleWriter{
			Out:        os.Stderr,
			TimeFormat: cfg.TimeFormat,
		}
	}

	return zerolog.New(output).
		Level(cfg.Level).
		With().
		Timestamp().
		Logger()
}

// NewFromEnv creates a logger based on environment variables.
// RADIOD_LOG_LEVEL: trace, debug, info, warn, error (default: info)
// RADIOD_LOG_FORMAT: json, console (default: console)
func NewFromEnv() zerolog.Logger {
	cfg := DefaultConfig()

	if level := os.Getenv("RADIOD_LOG_LEVEL"); level != "" {
		if parsed, err := zerolog.ParseLevel(level); err == nil {
			cfg.Level = parsed
		}
	}
	if format := os.Getenv("RADIOD_LOG_FORMAT"); format == "json" || format == "console" {
		cfg.Format = format
	}
	return New(cfg)
}
