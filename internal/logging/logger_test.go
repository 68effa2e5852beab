// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package logging

import (
	"bytes"
	"context"
	"errors"
	"log/slog"
	"strings"
	"testing"

	"github.com/ThreeDotsLabs/watermill"
	"github.com/rs/zerolog"
)

// captureGlobal swaps the global logger for one writing to a buffer.
func captureGlobal(t *testing.T) *bytes.Buffer {
	t.Helper()
	var buf bytes.Buffer
	prev := Logger()
	prevLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	SetLogger(NewTestLogger(&buf))
	t.Cleanup(func() {
		SetLogger(prev)
		zerolog.SetGlobalLevel(prevLevel)
	})
	return &buf
}

func TestInit(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "debug", Format: "json", Timestamp: true, Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Info().Str("snippet_id", "snip-1").Msg("test message")

	out := buf.String()
	if !strings.Contains(out, `"message":"test message"`) {
		t.Errorf("missing message: %s", out)
	}
	if !strings.Contains(out, `"snippet_id":"snip-1"`) {
		t.Errorf("missing field: %s", out)
	}
}

func TestInit_ServiceField(t *testing.T) {
	var buf bytes.Buffer
	Init(Config{Level: "info", Service: "snipcheck", Output: &buf})
	t.Cleanup(func() { Init(DefaultConfig()) })

	Warn().Msg("tagged")
	if !strings.Contains(buf.String(), `"service":"snipcheck"`) {
		t.Errorf("missing service field: %s", buf.String())
	}
}

func TestParseLevel(t *testing.T) {
	tests := map[string]zerolog.Level{
		"debug":   zerolog.DebugLevel,
		"WARN":    zerolog.WarnLevel,
		"warning": zerolog.WarnLevel,
		"error":   zerolog.ErrorLevel,
		"bogus":   zerolog.InfoLevel,
		"trace":   zerolog.TraceLevel,
		"":        zerolog.InfoLevel,
	}
	for in, want := range tests {
		if got := parseLevel(in); got != want {
			t.Errorf("parseLevel(%q) = %v, want %v", in, got, want)
		}
	}
}

func TestCtx(t *testing.T) {
	buf := captureGlobal(t)

	ctx := ContextWithRequestID(context.Background(), "req-123")
	ctx = ContextWithCorrelationID(ctx, "corr-1")
	Ctx(ctx).Info().Msg("with context")

	out := buf.String()
	if !strings.Contains(out, `"request_id":"req-123"`) || !strings.Contains(out, `"correlation_id":"corr-1"`) {
		t.Errorf("context fields missing: %s", out)
	}
	if CorrelationIDFromContext(context.Background()) != "" {
		t.Error("expected empty correlation id")
	}
	if len(GenerateCorrelationID()) != 8 {
		t.Error("correlation id should be 8 characters")
	}
}

func TestSlogHandler(t *testing.T) {
	var buf bytes.Buffer
	logger := slog.New(NewSlogHandler(NewTestLogger(&buf)))

	logger.With("supervisor", "snipcheck").WithGroup("event").Warn("service failed",
		"service", "result-consumer", "restarts", 2)

	out := buf.String()
	for _, want := range []string{
		`"level":"warn"`,
		`"supervisor":"snipcheck"`,
		`"event.service":"result-consumer"`,
		`"event.restarts":2`,
		`"message":"service failed"`,
	} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}

func TestWatermillAdapter(t *testing.T) {
	var buf bytes.Buffer
	prevLevel := zerolog.GlobalLevel()
	zerolog.SetGlobalLevel(zerolog.TraceLevel)
	t.Cleanup(func() { zerolog.SetGlobalLevel(prevLevel) })

	var adapter watermill.LoggerAdapter = NewWatermillAdapter(NewTestLogger(&buf))
	adapter = adapter.With(watermill.LogFields{"topic": "lint-requests"})
	adapter.Error("publish failed", errors.New("nats: timeout"), watermill.LogFields{"uuid": "abc"})

	out := buf.String()
	for _, want := range []string{`"topic":"lint-requests"`, `"uuid":"abc"`, `"error":"nats: timeout"`, `"level":"error"`} {
		if !strings.Contains(out, want) {
			t.Errorf("output missing %s: %s", want, out)
		}
	}
}
