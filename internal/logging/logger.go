// Package logging provides structured logging for foldline using zerolog.
package logging

import (
	"fmt"
	"io"
	"os"
	"strings"
	"time"

	"github.com/rs/zerolog"
)

// Logger is the global logger instance. Component loggers derive from it at creation time, so
// Init must run before long-lived components are constructed.
var Logger zerolog.Logger

// Config holds logging configuration.
type Config struct {
	Level        string
	Format       string // console or json
	Output       io.Writer
	EnableCaller bool
}

// DefaultConfig logs info and above to stderr in console format.
func DefaultConfig() Config {
	return Config{
		Level:  "info",
		Format: "console",
		Output: os.Stderr,
	}
}

// FromConfig builds a Config from loaded settings, keeping defaults for empty values.
func FromConfig(level, format string, enableCaller bool, output io.Writer) Config {
	cfg := DefaultConfig()
	if level != "" {
		cfg.Level = level
	}
	if format != "" {
		cfg.Format = format
	}
	if output != nil {
		cfg.Output = output
	}
	cfg.EnableCaller = enableCaller
	return cfg
}

// Init replaces the global logger.
func Init(cfg Config) {
	level, err := ParseLevel(cfg.Level)
	if err != nil {
		level = zerolog.InfoLevel
	}
	zerolog.SetGlobalLevel(level)
	zerolog.TimeFieldFormat = time.RFC3339

	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	if cfg.Format != "json" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	ctx := zerolog.New(out).With().Timestamp()
	if cfg.EnableCaller {
		ctx = ctx.Caller()
	}
	Logger = ctx.Logger()
}

// ParseLevel maps a level name to zerolog. "warning" is accepted for "warn".
func ParseLevel(level string) (zerolog.Level, error) {
	switch strings.ToLower(strings.TrimSpace(level)) {
	case "trace":
		return zerolog.TraceLevel, nil
	case "debug":
		return zerolog.DebugLevel, nil
	case "", "info":
		return zerolog.InfoLevel, nil
	case "warn", "warning":
		return zerolog.WarnLevel, nil
	case "error":
		return zerolog.ErrorLevel, nil
	case "disabled", "off":
		return zerolog.Disabled, nil
	}
	return zerolog.InfoLevel, fmt.Errorf("unknown log level %q", level)
}

// Component creates a logger with a component field.
func Component(name string) zerolog.Logger {
	return Logger.With().Str("component", name).Logger()
}

// ForRoom creates a component logger that also carries the room id.
func ForRoom(component, roomID string) zerolog.Logger {
	ctx := Logger.With().Str("component", component)
	if roomID != "" {
		ctx = ctx.Str("room_id", roomID)
	}
	return ctx.Logger()
}

func init() {
	Init(DefaultConfig())
}
