// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"fmt"
	"net/url"
	"strconv"
	"time"

	"github.com/tomtom215/snipcheck/internal/config"
	"github.com/tomtom215/snipcheck/internal/models"
)

// ServerConfig holds embedded NATS server configuration.
type ServerConfig struct {
	Host              string
	Port              int
	StoreDir          string
	JetStreamMaxMem   int64
	JetStreamMaxStore int64
	// MaxPayload caps one message; request payloads carry whole snippets.
	MaxPayload   int32
	ReadyTimeout time.Duration
}

// DefaultServerConfig returns production defaults for the embedded server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Host:              "127.0.0.1",
		Port:              4222,
		StoreDir:          "/data/nats/jetstream",
		JetStreamMaxMem:   1 << 30,  // 1GB
		JetStreamMaxStore: 10 << 30, // 10GB
		MaxPayload:        8 << 20,
		ReadyTimeout:      30 * time.Second,
	}
}

// ServerConfigFrom derives the embedded server settings from the broker URL
// so clients and server agree on the listen address.
func ServerConfigFrom(cfg *config.NATSConfig) (ServerConfig, error) {
	sc := DefaultServerConfig()
	u, err := url.Parse(cfg.URL)
	if err != nil {
		return sc, fmt.Errorf("%w: nats url: %v", ErrInvalidConfig, err)
	}
	if h := u.Hostname(); h != "" {
		sc.Host = h
	}
	if p := u.Port(); p != "" {
		port, err := strconv.Atoi(p)
		if err != nil {
			return sc, fmt.Errorf("%w: nats port %q", ErrInvalidConfig, p)
		}
		sc.Port = port
	}
	if cfg.StoreDir != "" {
		sc.StoreDir = cfg.StoreDir
	}
	if cfg.MaxMemory > 0 {
		sc.JetStreamMaxMem = cfg.MaxMemory
	}
	if cfg.MaxStore > 0 {
		sc.JetStreamMaxStore = cfg.MaxStore
	}
	return sc, nil
}

// PublisherConfig holds publisher configuration.
type PublisherConfig struct {
	URL             string
	MaxReconnects   int
	ReconnectWait   time.Duration
	ReconnectBuffer int
	// PublishTimeout bounds a single publish including broker acknowledgement.
	PublishTimeout time.Duration
}

// DefaultPublisherConfig returns production defaults for the publisher.
func DefaultPublisherConfig(url string) PublisherConfig {
	return PublisherConfig{
		URL:             url,
		MaxReconnects:   -1, // Unlimited
		ReconnectWait:   2 * time.Second,
		ReconnectBuffer: 8 * 1024 * 1024, // 8MB
		PublishTimeout:  5 * time.Second,
	}
}

// StreamConfig defines the snippets stream.
type StreamConfig struct {
	Name            string
	Subjects        []string
	MaxAge          time.Duration
	DuplicateWindow time.Duration
	Replicas        int
}

// DefaultStreamConfig returns the stream carrying every snippet subject.
func DefaultStreamConfig() StreamConfig {
	return StreamConfig{
		Name: "SNIPPETS",
		Subjects: []string{
			models.TopicLintRequests,
			models.TopicFormatRequests,
			models.TopicLintResults,
			models.TopicLintResultsDLQ,
		},
		MaxAge:          7 * 24 * time.Hour,
		DuplicateWindow: 2 * time.Minute,
		Replicas:        1,
	}
}

// UnlimitedDeliveries disables the broker-side redelivery bound.
const UnlimitedDeliveries = -1

// ConsumerGroupConfig describes the durable consumer shared by all instances.
type ConsumerGroupConfig struct {
	Stream        string
	Durable       string
	FilterSubject string
	// MaxDeliver is the broker redelivery bound. It must stay above
	// ConsumerConfig.MaxDeliver, or a batch whose dead-letter write fails on
	// the last delivery is never seen again.
	MaxDeliver int
	AckWait    time.Duration
}

// ConsumerConfig tunes the result consumer loop.
type ConsumerConfig struct {
	FetchBatch       int
	PollTimeout      time.Duration
	PollErrorBackoff time.Duration
	// MaxDeliver is the delivery count at which a failing batch is
	// dead-lettered instead of retried.
	MaxDeliver int
	NakDelay   time.Duration
	// HandleTimeout bounds processing of one delivery. Processing is detached
	// from shutdown so an in-flight batch finishes before the loop exits.
	HandleTimeout time.Duration
}

// DefaultConsumerConfig returns production defaults.
func DefaultConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		FetchBatch:       10,
		PollTimeout:      500 * time.Millisecond,
		PollErrorBackoff: time.Second,
		MaxDeliver:       5,
		NakDelay:         2 * time.Second,
		HandleTimeout:    30 * time.Second,
	}
}

// CircuitBreakerConfig holds circuit breaker settings.
type CircuitBreakerConfig struct {
	Name             string
	MaxRequests      uint32        // Allowed in half-open state
	Interval         time.Duration // Reset interval for counts
	Timeout          time.Duration // Time to stay open
	FailureThreshold uint32        // Consecutive failures before opening
}

// DefaultCircuitBreakerConfig returns production defaults.
func DefaultCircuitBreakerConfig(name string) CircuitBreakerConfig {
	return CircuitBreakerConfig{
		Name:             name,
		MaxRequests:      3,
		Interval:         30 * time.Second,
		Timeout:          30 * time.Second,
		FailureThreshold: 5,
	}
}

// Settings bundles every eventprocessor configuration derived from the
// application config.
type Settings struct {
	Stream         StreamConfig
	Group          ConsumerGroupConfig
	Consumer       ConsumerConfig
	Publisher      PublisherConfig
	CircuitBreaker CircuitBreakerConfig
	// PublishDeadLetters enables best-effort publishing on lint-results-dlq.
	PublishDeadLetters bool
}

// SettingsFrom maps the application NATS config onto eventprocessor settings.
func SettingsFrom(cfg *config.NATSConfig) Settings {
	stream := DefaultStreamConfig()
	if cfg.StreamName != "" {
		stream.Name = cfg.StreamName
	}
	if cfg.StreamRetention > 0 {
		stream.MaxAge = cfg.StreamRetention
	}

	consumer := DefaultConsumerConfig()
	if cfg.FetchBatch > 0 {
		consumer.FetchBatch = cfg.FetchBatch
	}
	if cfg.PollTimeout > 0 {
		consumer.PollTimeout = cfg.PollTimeout
	}
	if cfg.PollErrorBackoff > 0 {
		consumer.PollErrorBackoff = cfg.PollErrorBackoff
	}
	if cfg.MaxDeliver > 0 {
		consumer.MaxDeliver = cfg.MaxDeliver
	}
	if cfg.NakDelay > 0 {
		consumer.NakDelay = cfg.NakDelay
	}

	group := ConsumerGroupConfig{
		Stream:        stream.Name,
		Durable:       cfg.ConsumerGroup,
		FilterSubject: models.TopicLintResults,
		MaxDeliver:    UnlimitedDeliveries,
		AckWait:       cfg.AckWait,
	}

	pub := DefaultPublisherConfig(cfg.URL)
	if cfg.PublishTimeout > 0 {
		pub.PublishTimeout = cfg.PublishTimeout
	}

	cb := DefaultCircuitBreakerConfig("nats-publisher")
	if cfg.CircuitBreakerThreshold > 0 {
		cb.FailureThreshold = cfg.CircuitBreakerThreshold
	}
	if cfg.CircuitBreakerTimeout > 0 {
		cb.Timeout = cfg.CircuitBreakerTimeout
	}

	return Settings{
		Stream:             stream,
		Group:              group,
		Consumer:           consumer,
		Publisher:          pub,
		CircuitBreaker:     cb,
		PublishDeadLetters: cfg.PublishDeadLetters,
	}
}
