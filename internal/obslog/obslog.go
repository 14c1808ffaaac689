// Package obslog builds the daemon's structured logger, following the same
// pattern as RedClaus-cortex/apps/cortex-avatar/internal/logging/logger.go:
// one zerolog.Logger built once at startup from a level string, handed out
// as per-component sub-loggers via .With().Str("component", ...).
package obslog

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// ParseLevel maps a case-insensitive level name to a zerolog.Level,
// defaulting to InfoLevel for an empty or unrecognized string.
func ParseLevel(level string) zerolog.Level {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel
	case "debug":
		return zerolog.DebugLevel
	case "info", "":
		return zerolog.InfoLevel
	case "warn", "warning":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}

// New builds the base logger for the daemon process, writing to w (os.Stderr
// in production, a discard writer or bytes.Buffer in tests).
func New(w io.Writer, level string) zerolog.Logger {
	if w == nil {
		w = os.Stderr
	}
	return zerolog.New(w).Level(ParseLevel(level)).With().Timestamp().Logger()
}

// Component returns a sub-logger tagged with a component name.
func Component(base zerolog.Logger, name string) zerolog.Logger {
	return base.With().Str("component", name).Logger()
}

// Discard is a logger that drops everything, for tests that don't assert on
// log output.
func Discard() zerolog.Logger {
	return zerolog.New(io.Discard)
}
