// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package main

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/snipcheck/internal/compliance"
	"github.com/tomtom215/snipcheck/internal/config"
	"github.com/tomtom215/snipcheck/internal/database"
	"github.com/tomtom215/snipcheck/internal/eventprocessor"
	"github.com/tomtom215/snipcheck/internal/logging"
)

// MessagingComponents holds the broker side of the service: the optional
// embedded server, the JetStream connection, the request publisher and the
// result consumer.
type MessagingComponents struct {
	server      *eventprocessor.EmbeddedServer
	conn        *eventprocessor.Connection
	publisher   *eventprocessor.Publisher
	consumer    *eventprocessor.ResultConsumer
	deadLetters *eventprocessor.DeadLetterService
	streams     *eventprocessor.StreamInitializer
}

// InitMessaging provisions the stream and consumer group and wires the
// publisher, dead-letter routing and result consumer. reconciler is the
// only compliance writer.
func InitMessaging(ctx context.Context, cfg *config.Config, db *database.DB, reconciler *compliance.Reconciler) (*MessagingComponents, error) {
	settings := eventprocessor.SettingsFrom(&cfg.NATS)
	mc := &MessagingComponents{}

	url := cfg.NATS.URL
	if cfg.NATS.EmbeddedServer {
		serverCfg, err := eventprocessor.ServerConfigFrom(&cfg.NATS)
		if err != nil {
			return nil, err
		}
		srv, err := eventprocessor.NewEmbeddedServer(&serverCfg)
		if err != nil {
			return nil, fmt.Errorf("start embedded NATS: %w", err)
		}
		mc.server = srv
		url = srv.ClientURL()
		logging.Info().Str("url", url).Str("store_dir", serverCfg.StoreDir).Msg("Embedded NATS server started")
	}

	conn, err := eventprocessor.Connect(url, "snipcheck")
	if err != nil {
		mc.Shutdown(ctx)
		return nil, err
	}
	mc.conn = conn

	streams, err := eventprocessor.NewStreamInitializer(conn.JS, &settings.Stream)
	if err != nil {
		mc.Shutdown(ctx)
		return nil, err
	}
	if err := streams.EnsureStream(ctx); err != nil {
		mc.Shutdown(ctx)
		return nil, err
	}
	mc.streams = streams

	group, err := streams.EnsureConsumerGroup(ctx, settings.Group)
	if err != nil {
		mc.Shutdown(ctx)
		return nil, err
	}

	pubCfg := settings.Publisher
	pubCfg.URL = url
	publisher, err := eventprocessor.NewPublisher(pubCfg, logging.NewWatermillAdapter(logging.WithComponent("publisher")))
	if err != nil {
		mc.Shutdown(ctx)
		return nil, err
	}
	publisher.SetCircuitBreaker(eventprocessor.NewCircuitBreaker(settings.CircuitBreaker))
	mc.publisher = publisher

	var dlqPublisher eventprocessor.DeadLetterPublisher
	if settings.PublishDeadLetters {
		dlqPublisher = publisher
	}
	router := eventprocessor.NewDeadLetterRouter(db, dlqPublisher)
	mc.deadLetters = eventprocessor.NewDeadLetterService(db, publisher)

	consumer, err := eventprocessor.NewResultConsumer(
		eventprocessor.NewJetStreamSource(group), reconciler, router, settings.Consumer)
	if err != nil {
		mc.Shutdown(ctx)
		return nil, err
	}
	mc.consumer = consumer

	logging.Info().
		Str("stream", settings.Stream.Name).
		Str("group", settings.Group.Durable).
		Str("consumer", consumer.Name()).
		Int("max_deliver", settings.Consumer.MaxDeliver).
		Msg("Messaging initialized")
	return mc, nil
}

// RegisterHealth adds the messaging components to hc.
func (mc *MessagingComponents) RegisterHealth(hc *eventprocessor.HealthChecker) {
	hc.RegisterComponent("publisher", mc.publisher)
	hc.RegisterComponent("result_consumer", mc.consumer)
	if mc.server != nil {
		hc.RegisterComponent("nats_server", mc.server)
	}
	hc.RegisterComponent("stream", eventprocessor.HealthCheckFunc(func(ctx context.Context) eventprocessor.ComponentHealth {
		h := eventprocessor.ComponentHealth{
			Name:      "stream",
			Healthy:   mc.streams.IsHealthy(ctx),
			LastCheck: time.Now(),
		}
		if !h.Healthy {
			h.Error = "stream " + mc.streams.Config().Name + " unavailable"
		}
		return h
	}))
}

// Shutdown releases everything InitMessaging created, in reverse order.
// The consumer loop must already have stopped.
func (mc *MessagingComponents) Shutdown(ctx context.Context) {
	var errs []error
	if mc.publisher != nil {
		errs = append(errs, mc.publisher.Close())
	}
	if mc.conn != nil {
		errs = append(errs, mc.conn.Close())
	}
	if mc.server != nil {
		errs = append(errs, mc.server.Shutdown(ctx))
	}
	if err := errors.Join(errs...); err != nil {
		logging.Warn().Err(err).Msg("Messaging shutdown incomplete")
	}
}
