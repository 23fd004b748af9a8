// Package logging provides structured logging configuration using zerolog.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/google/uuid"
	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs debug messages and above.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs info messages and above.
	LevelInfo LogLevel = "info"

	// LevelWarn logs warning messages and above.
	LevelWarn LogLevel = "warn"

	// LevelError logs error messages only.
	LevelError LogLevel = "error"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
	// Data files are never written here.
	Output io.Writer
}

// DefaultConfig returns a default logger configuration.
func DefaultConfig() Config {
	return Config{
		Level:  LevelInfo,
		Pretty: false,
		Output: os.Stderr,
	}
}

// Setup configures the global zerolog logger.
func Setup(cfg Config) zerolog.Logger {
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))

	output := cfg.Output
	if output == nil {
		output = os.Stderr
	}
	if cfg.Pretty {
		output = zerolog.ConsoleWriter{Out: output}
	}

	logger := zerolog.New(output).With().Timestamp().Logger()
	log.Logger = logger

	return logger
}

// parseLevel converts LogLevel to zerolog.Level.
func parseLevel(level LogLevel) zerolog.Level {
	switch strings.ToLower(string(level)) {
	case "debug":
		return zerolog.DebugLevel
	case "info":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// NewLogger creates a new logger with the given component name.
func NewLogger(component string) zerolog.Logger {
	return log.With().Str("component", component).Logger()
}

// NewRunLogger creates a component logger tagged with a fresh run_id so that
// all lines of one pipeline run can be correlated.
func NewRunLogger(component string) (zerolog.Logger, string) {
	runID := uuid.NewString()
	return log.With().Str("component", component).Str("run_id", runID).Logger(), runID
}

// Log Level Guidelines:
//
// Debug: per-request detail
//   - request URL, status, body size
//   - script candidates rejected during extraction
//
// Info: run milestones
//   - run start/finish, totals
//   - progress every 50 completed slugs
//   - registry page fetched (page, cursor, new records)
//
// Warn: recoverable failures
//   - slug fetch or parse failure (slug, reason)
//   - registry traversal ended early by a transport failure
//
// Error: fatal paths
//   - malformed registry page
//   - output file could not be written
//
// Context Fields:
//   - component: pulsemcp, registry, http-client, output
//   - run_id: per-run correlation id
//   - slug, reason: slug fetcher outcomes
//   - page, cursor: registry pagination state
//   - url, status_code, error_class, duration: HTTP requests
