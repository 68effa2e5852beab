// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/snipcheck/internal/logging"
)

// Connection is the NATS connection used for stream provisioning and result
// consumption. Publishing goes through Watermill, which owns its own
// connection.
type Connection struct {
	NC *natsgo.Conn
	JS jetstream.JetStream
}

// Connect dials url and opens a JetStream context.
func Connect(url, name string) (*Connection, error) {
	nc, err := natsgo.Connect(url,
		natsgo.Name(name),
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(-1),
		natsgo.ReconnectWait(2*time.Second),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logging.Warn().Err(err).Msg("NATS disconnected")
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logging.Info().Str("url", nc.ConnectedUrl()).Msg("NATS reconnected")
		}),
	)
	if err != nil {
		return nil, fmt.Errorf("connect to NATS at %s: %w", url, err)
	}

	js, err := jetstream.New(nc)
	if err != nil {
		nc.Close()
		return nil, fmt.Errorf("create JetStream context: %w", err)
	}
	return &Connection{NC: nc, JS: js}, nil
}

// Close drains the connection so pending acks are flushed.
func (c *Connection) Close() error {
	if c == nil || c.NC == nil {
		return nil
	}
	return c.NC.Drain()
}
