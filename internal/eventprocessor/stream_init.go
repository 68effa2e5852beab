// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"os"

	"github.com/google/uuid"
	"github.com/nats-io/nats.go/jetstream"

	"github.com/tomtom215/snipcheck/internal/logging"
)

// JetStreamContext is the subset of jetstream.JetStream used to provision the
// stream and the consumer group.
type JetStreamContext interface {
	Stream(ctx context.Context, name string) (jetstream.Stream, error)
	CreateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	UpdateStream(ctx context.Context, cfg jetstream.StreamConfig) (jetstream.Stream, error)
	CreateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error)
	UpdateConsumer(ctx context.Context, stream string, cfg jetstream.ConsumerConfig) (jetstream.Consumer, error)
	Consumer(ctx context.Context, stream string, name string) (jetstream.Consumer, error)
}

// StreamInitializer provisions the snippets stream and the result consumer
// group before publishers and consumers start.
type StreamInitializer struct {
	js     JetStreamContext
	config StreamConfig
}

// NewStreamInitializer creates a stream initializer.
func NewStreamInitializer(js JetStreamContext, cfg *StreamConfig) (*StreamInitializer, error) {
	if js == nil {
		return nil, fmt.Errorf("%w: JetStream context required", ErrInvalidConfig)
	}
	if cfg == nil || cfg.Name == "" {
		return nil, fmt.Errorf("%w: stream name required", ErrInvalidConfig)
	}
	return &StreamInitializer{js: js, config: *cfg}, nil
}

func (s *StreamInitializer) streamConfig() jetstream.StreamConfig {
	return jetstream.StreamConfig{
		Name:       s.config.Name,
		Subjects:   s.config.Subjects,
		Retention:  jetstream.LimitsPolicy,
		MaxAge:     s.config.MaxAge,
		Duplicates: s.config.DuplicateWindow,
		Replicas:   s.config.Replicas,
		Storage:    jetstream.FileStorage,
		Discard:    jetstream.DiscardOld,
	}
}

// EnsureStream creates the stream, or updates it when it already exists.
// Safe to call from every instance on startup.
func (s *StreamInitializer) EnsureStream(ctx context.Context) error {
	cfg := s.streamConfig()

	_, err := s.js.Stream(ctx, s.config.Name)
	switch {
	case err == nil:
		if _, err := s.js.UpdateStream(ctx, cfg); err != nil {
			return fmt.Errorf("update stream %s: %w", s.config.Name, err)
		}
		return nil
	case errors.Is(err, jetstream.ErrStreamNotFound):
		if _, err := s.js.CreateStream(ctx, cfg); err != nil {
			return fmt.Errorf("create stream %s: %w", s.config.Name, err)
		}
		logging.Info().Str("stream", s.config.Name).Strs("subjects", s.config.Subjects).Msg("Stream created")
		return nil
	default:
		return fmt.Errorf("check stream %s: %w", s.config.Name, err)
	}
}

// EnsureConsumerGroup creates the durable pull consumer described by group.
// A group that already exists with a different configuration is updated in
// place, so a redelivery bound left over from an older deployment does not
// outlive the upgrade. When the update is refused the existing group is
// reused as is. Racing instances both succeed.
func (s *StreamInitializer) EnsureConsumerGroup(ctx context.Context, group ConsumerGroupConfig) (jetstream.Consumer, error) {
	if group.Durable == "" {
		return nil, fmt.Errorf("%w: consumer group name required", ErrInvalidConfig)
	}
	stream := group.Stream
	if stream == "" {
		stream = s.config.Name
	}

	cfg := jetstream.ConsumerConfig{
		Durable:       group.Durable,
		AckPolicy:     jetstream.AckExplicitPolicy,
		DeliverPolicy: jetstream.DeliverAllPolicy,
		FilterSubject: group.FilterSubject,
		MaxDeliver:    group.MaxDeliver,
		AckWait:       group.AckWait,
	}

	consumer, err := s.js.CreateConsumer(ctx, stream, cfg)
	if err == nil {
		logging.Info().Str("stream", stream).Str("group", group.Durable).Msg("Consumer group created")
		return consumer, nil
	}
	if !errors.Is(err, jetstream.ErrConsumerExists) {
		return nil, fmt.Errorf("create consumer group %s: %w", group.Durable, err)
	}

	consumer, err = s.js.UpdateConsumer(ctx, stream, cfg)
	if err == nil {
		logging.Info().Str("stream", stream).Str("group", group.Durable).Int("max_deliver", cfg.MaxDeliver).
			Msg("Consumer group updated")
		return consumer, nil
	}
	logging.Warn().Err(err).Str("group", group.Durable).Msg("Consumer group exists and could not be updated, binding as is")
	consumer, err = s.js.Consumer(ctx, stream, group.Durable)
	if err != nil {
		return nil, fmt.Errorf("bind consumer group %s: %w", group.Durable, err)
	}
	return consumer, nil
}

// IsHealthy reports whether the stream can be looked up.
func (s *StreamInitializer) IsHealthy(ctx context.Context) bool {
	_, err := s.js.Stream(ctx, s.config.Name)
	return err == nil
}

// Config returns the stream configuration.
func (s *StreamInitializer) Config() StreamConfig {
	return s.config
}

// ConsumerName returns a per-instance consumer name of the form
// "<hostname>-<8 hex chars>".
func ConsumerName() string {
	host, err := os.Hostname()
	if err != nil || host == "" {
		host = "snipcheck"
	}
	return host + "-" + uuid.NewString()[:8]
}
