// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Package logging provides the process-wide zerolog logger for Snipcheck.
//
// Call Init once from main, then log through the package helpers:
//
//	logging.Init(logging.Config{Level: "info", Format: "json", Service: "snipcheck"})
//	logging.Info().Str("snippet_id", id).Msg("Lint request published")
//	logging.Ctx(ctx).Warn().Err(err).Msg("Reconcile failed")
//
// Bridges are provided for log/slog (used by the supervisor tree) and for
// Watermill's LoggerAdapter (used by the stream publisher), so every component
// writes to the same structured output.
package logging

import (
	"io"
	"os"
	"strings"
	"sync"
	"time"

	"github.com/rs/zerolog"
)

// Config holds logging configuration.
type Config struct {
	// Level is the minimum level name understood by zerolog, plus "warning".
	// Unknown names fall back to info.
	Level string

	// Format is json or console.
	Format string

	// Service, when set, is attached to every line as "service".
	Service string

	Caller    bool
	Timestamp bool

	// Output defaults to os.Stderr.
	Output io.Writer
}

// DefaultConfig returns the default logging configuration.
func DefaultConfig() Config {
	return Config{
		Level:     "info",
		Format:    "json",
		Timestamp: true,
		Output:    os.Stderr,
	}
}

var (
	mu     sync.RWMutex
	global = build(DefaultConfig())
)

// Init replaces the global logger. It is safe to call more than once.
func Init(cfg Config) {
	l := build(cfg)
	mu.Lock()
	global = l
	mu.Unlock()
}

func build(cfg Config) zerolog.Logger {
	out := cfg.Output
	if out == nil {
		out = os.Stderr
	}
	zerolog.SetGlobalLevel(parseLevel(cfg.Level))
	zerolog.TimeFieldFormat = time.RFC3339
	zerolog.TimestampFieldName = "time"
	zerolog.MessageFieldName = "message"

	if cfg.Format == "console" {
		out = zerolog.ConsoleWriter{Out: out, TimeFormat: "15:04:05"}
	}

	c := zerolog.New(out).With()
	if cfg.Timestamp {
		c = c.Timestamp()
	}
	if cfg.Caller {
		c = c.Caller()
	}
	if cfg.Service != "" {
		c = c.Str("service", cfg.Service)
	}
	return c.Logger()
}

func parseLevel(level string) zerolog.Level {
	level = strings.ToLower(strings.TrimSpace(level))
	if level == "warning" {
		return zerolog.WarnLevel
	}
	if level == "" {
		return zerolog.InfoLevel
	}
	l, err := zerolog.ParseLevel(level)
	if err != nil || l == zerolog.NoLevel {
		return zerolog.InfoLevel
	}
	return l
}

// Logger returns a copy of the global logger.
func Logger() zerolog.Logger {
	mu.RLock()
	defer mu.RUnlock()
	return global
}

// SetLogger replaces the global logger without touching levels. Tests use it
// to capture output.
//
//nolint:gocritic // zerolog.Logger is passed by value
func SetLogger(l zerolog.Logger) {
	mu.Lock()
	global = l
	mu.Unlock()
}

// current returns a pointer to a private copy, since zerolog's level methods
// have pointer receivers.
func current() *zerolog.Logger {
	l := Logger()
	return &l
}

// Debug, Info, Warn and Error start an event at that level.
func Debug() *zerolog.Event { return current().Debug() }
func Info() *zerolog.Event { return current().Info() }
func Warn() *zerolog.Event { return current().Warn() }
func Error() *zerolog.Event { return current().Error() }

// Err starts an error-level event carrying err, or an info-level event
// when err is nil.
func Err(err error) *zerolog.Event { return current().Err(err) }

// Fatal exits the process with status 1 after the event is written.
func Fatal() *zerolog.Event { return current().Fatal() }

// WithComponent returns a child logger tagged with component.
func WithComponent(component string) zerolog.Logger {
	return Logger().With().Str("component", component).Logger()
}

// NewTestLogger writes JSON lines to w.
func NewTestLogger(w io.Writer) zerolog.Logger {
	return zerolog.New(w).With().Timestamp().Logger()
}
