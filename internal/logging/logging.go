// Package logging constructs the process logger. There is no package-level
// logger; callers receive a zerolog.Logger and pass it down explicitly.
package logging

import (
	"io"
	"os"
	"strings"

	"github.com/rs/zerolog"
)

// Config holds logger construction options.
type Config struct {
	// Level is the minimum level: "debug", "info", "warn", or "error".
	Level string
	// Format is "json" or "console".
	Format string
	// Output defaults to os.Stdout.
	Output io.Writer
}

// New builds the root logger. Unknown levels fall back to info rather than
// failing startup; config validation rejects them earlier.
func New(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stdout
	}
	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out}
	}

	return zerolog.New(out).
		Level(parseLevel(cfg.Level)).
		With().
		Timestamp().
		Logger()
}

func parseLevel(level string) zerolog.Level {
	switch strings.ToLower(level) {
	case "debug":
		return zerolog.DebugLevel
	case "warn":
		return zerolog.WarnLevel
	case "error":
		return zerolog.ErrorLevel
	default:
		return zerolog.InfoLevel
	}
}
