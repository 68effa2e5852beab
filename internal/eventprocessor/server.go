// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/nats-io/nats-server/v2/server"
	"github.com/rs/zerolog"

	"github.com/tomtom215/snipcheck/internal/logging"
)

// EmbeddedServer is an in-process NATS JetStream broker for single-node
// deployments and tests. Its log output goes to the global zerolog logger.
type EmbeddedServer struct {
	server *server.Server
	config ServerConfig
}

// NewEmbeddedServer starts a broker and waits up to cfg.ReadyTimeout for it
// to accept connections.
func NewEmbeddedServer(cfg *ServerConfig) (*EmbeddedServer, error) {
	readyTimeout := cfg.ReadyTimeout
	if readyTimeout <= 0 {
		readyTimeout = 30 * time.Second
	}

	ns, err := server.NewServer(&server.Options{
		ServerName:         "snipcheck",
		Host:               cfg.Host,
		Port:               cfg.Port,
		JetStream:          true,
		StoreDir:           cfg.StoreDir,
		JetStreamMaxMemory: cfg.JetStreamMaxMem,
		JetStreamMaxStore:  cfg.JetStreamMaxStore,
		MaxPayload:         cfg.MaxPayload,
		NoSigs:             true,
	})
	if err != nil {
		return nil, fmt.Errorf("create NATS server: %w", err)
	}
	ns.SetLogger(&natsLogger{log: logging.WithComponent("nats-server")}, false, false)

	go ns.Start()
	if !ns.ReadyForConnections(readyTimeout) {
		ns.Shutdown()
		return nil, fmt.Errorf("NATS server not ready within %s", readyTimeout)
	}

	logging.Info().
		Str("url", ns.ClientURL()).
		Str("store_dir", cfg.StoreDir).
		Msg("Embedded NATS server started")
	return &EmbeddedServer{server: ns, config: *cfg}, nil
}

// ClientURL returns the URL clients connect to.
func (s *EmbeddedServer) ClientURL() string {
	return s.server.ClientURL()
}

// Shutdown stops the server and waits for it to finish or for ctx to end.
func (s *EmbeddedServer) Shutdown(ctx context.Context) error {
	s.server.Shutdown()

	done := make(chan struct{})
	go func() {
		s.server.WaitForShutdown()
		close(done)
	}()
	select {
	case <-done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// HealthCheck reports the broker as unhealthy once it stops running or
// loses JetStream.
func (s *EmbeddedServer) HealthCheck(_ context.Context) ComponentHealth {
	h := ComponentHealth{
		Name:      "nats_server",
		Healthy:   s.server.Running() && s.server.JetStreamEnabled(),
		LastCheck: time.Now(),
	}
	if !h.Healthy {
		h.Error = "embedded NATS server not running with JetStream"
	}
	return h
}

// natsLogger adapts server.Logger to zerolog.
type natsLogger struct {
	log zerolog.Logger
}

func (l *natsLogger) Noticef(format string, v ...interface{}) { l.log.Info().Msgf(format, v...) }
func (l *natsLogger) Warnf(format string, v ...interface{}) { l.log.Warn().Msgf(format, v...) }
func (l *natsLogger) Errorf(format string, v ...interface{}) { l.log.Error().Msgf(format, v...) }
func (l *natsLogger) Debugf(format string, v ...interface{}) { l.log.Debug().Msgf(format, v...) }
func (l *natsLogger) Tracef(format string, v ...interface{}) { l.log.Trace().Msgf(format, v...) }

// Fatalf is logged at error level; the server handles its own shutdown.
func (l *natsLogger) Fatalf(format string, v ...interface{}) { l.log.Error().Msgf(format, v...) }
