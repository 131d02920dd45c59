// Package logging configures the zerolog logger shared by the pokedex packages.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
	"github.com/rs/zerolog/log"
)

// LogLevel represents the logging level.
type LogLevel string

const (
	// LevelDebug logs per-request and per-entry detail.
	LevelDebug LogLevel = "debug"

	// LevelInfo logs one line per page.
	LevelInfo LogLevel = "info"

	// LevelWarn logs failed requests.
	LevelWarn LogLevel = "warn"

	// LevelError logs failed pages only.
	LevelError LogLevel = "error"
)

// Component names used in the "component" field.
const (
	ComponentClient  = "pokeapi-client"
	ComponentFetcher = "pokedex-fetcher"
	ComponentScroll  = "scroll-trigger"
	ComponentAssets  = "assets"
	ComponentCLI     = "pokedex"
)

// Config holds logger configuration.
type Config struct {
	// Level is the minimum log level to output.
	Level LogLevel

	// Pretty enables human-readable console output (default: false for JSON).
	Pretty bool

	// Output is the writer to output logs to (default: os.Stderr).
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

// Setup configures the global zerolog logger and returns it.
// Loggers derived with NewLogger after Setup inherit its output.
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

// ParseLevel validates a level name such as a flag value.
func ParseLevel(s string) (LogLevel, error) {
	switch strings.ToLower(strings.TrimSpace(s)) {
	case "debug":
		return LevelDebug, nil
	case "info", "":
		return LevelInfo, nil
	case "warn", "warning":
		return LevelWarn, nil
	case "error":
		return LevelError, nil
	default:
		return "", fmt.Errorf("unknown log level %q", s)
	}
}

// parseLevel converts LogLevel to zerolog.Level, defaulting to info.
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

// Log Level Guidelines:
//
// Debug: one line per unit of work
//   - PokeAPI requests (method, url, endpoint)
//   - Image asset resolution
//   - Dropped listing entries and their cause
//   - Scroll trigger transitions
//
// Info: one line per page
//   - Page fetched (records, dropped, next offset, duration)
//   - Run start/finish in the CLI
//
// Warn: failed requests that do not fail a page
//   - 4xx/5xx responses
//   - Transport errors
//
// Error: a page yielded nothing
//   - Listing request failed or was undecodable
//   - Output could not be written
//
// Context Fields:
//   - component: emitting package
//   - endpoint: metric label of the request (/pokemon, /pokemon/{id})
//   - status: HTTP status code
//   - error_class: client, server, network, decode
//   - offset, next_offset, total: pagination window
//   - records, dropped: page outcome
