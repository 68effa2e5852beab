// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"context"
	"fmt"
	"strconv"
	"sync"
	"time"

	"github.com/ThreeDotsLabs/watermill"
	wmNats "github.com/ThreeDotsLabs/watermill-nats/v2/pkg/nats"
	"github.com/ThreeDotsLabs/watermill/message"
	natsgo "github.com/nats-io/nats.go"
	gobreaker "github.com/sony/gobreaker/v2"

	"github.com/tomtom215/snipcheck/internal/metrics"
	"github.com/tomtom215/snipcheck/internal/models"
)

// Metadata keys set on published messages.
const (
	MetadataSnippetID  = "snippet_id"
	MetadataKind       = "kind"
	MetadataError      = "error"
	MetadataCategory   = "category"
	MetadataDeliveries = "deliveries"
	MetadataOriginalID = "original_message_id"
)

// Publisher wraps a Watermill publisher with a circuit breaker and a
// per-publish timeout.
type Publisher struct {
	publisher      message.Publisher
	circuitBreaker *gobreaker.CircuitBreaker[interface{}]
	timeout        time.Duration
	mu             sync.RWMutex
	closed         bool
	logger         watermill.LoggerAdapter
	now            func() time.Time
}

// NewPublisher creates a Watermill NATS JetStream publisher. The stream is
// provisioned separately by StreamInitializer.
func NewPublisher(cfg PublisherConfig, logger watermill.LoggerAdapter) (*Publisher, error) {
	if logger == nil {
		logger = watermill.NopLogger{}
	}

	natsOpts := []natsgo.Option{
		natsgo.RetryOnFailedConnect(true),
		natsgo.MaxReconnects(cfg.MaxReconnects),
		natsgo.ReconnectWait(cfg.ReconnectWait),
		natsgo.ReconnectBufSize(cfg.ReconnectBuffer),
		natsgo.DisconnectErrHandler(func(_ *natsgo.Conn, err error) {
			if err != nil {
				logger.Error("NATS publisher disconnected", err, nil)
			}
		}),
		natsgo.ReconnectHandler(func(nc *natsgo.Conn) {
			logger.Info("NATS publisher reconnected", watermill.LogFields{"url": nc.ConnectedUrl()})
		}),
	}

	wmConfig := wmNats.PublisherConfig{
		URL:         cfg.URL,
		NatsOptions: natsOpts,
		Marshaler:   &wmNats.NATSMarshaler{},
		JetStream: wmNats.JetStreamConfig{
			Disabled:      false,
			AutoProvision: false,
			TrackMsgId:    true,
			PublishOptions: []natsgo.PubOpt{
				natsgo.RetryAttempts(3),
				natsgo.RetryWait(100 * time.Millisecond),
			},
		},
	}

	pub, err := wmNats.NewPublisher(wmConfig, logger)
	if err != nil {
		return nil, fmt.Errorf("create watermill publisher: %w", err)
	}
	return NewPublisherFromWatermill(pub, cfg.PublishTimeout, logger)
}

// NewPublisherFromWatermill wraps any Watermill publisher, e.g. a GoChannel
// in tests.
func NewPublisherFromWatermill(pub message.Publisher, timeout time.Duration, logger watermill.LoggerAdapter) (*Publisher, error) {
	if pub == nil {
		return nil, ErrNilPublisher
	}
	if logger == nil {
		logger = watermill.NopLogger{}
	}
	if timeout <= 0 {
		timeout = DefaultPublisherConfig("").PublishTimeout
	}
	return &Publisher{
		publisher: pub,
		timeout:   timeout,
		logger:    logger,
		now:       time.Now,
	}, nil
}

// SetCircuitBreaker configures the circuit breaker for publish operations.
func (p *Publisher) SetCircuitBreaker(cb *gobreaker.CircuitBreaker[interface{}]) {
	p.circuitBreaker = cb
}

// Publish sends msg to topic. The message UUID doubles as Nats-Msg-Id so the
// stream drops duplicates within its dedup window.
func (p *Publisher) Publish(ctx context.Context, topic string, msg *message.Message) error {
	p.mu.RLock()
	defer p.mu.RUnlock()
	if p.closed {
		return models.ErrPublisherClosed
	}

	if msg.Metadata.Get(natsgo.MsgIdHdr) == "" {
		msg.Metadata.Set(natsgo.MsgIdHdr, msg.UUID)
	}

	start := time.Now()
	var err error
	if p.circuitBreaker != nil {
		_, err = p.circuitBreaker.Execute(func() (interface{}, error) {
			return nil, p.publishWithTimeout(ctx, topic, msg)
		})
	} else {
		err = p.publishWithTimeout(ctx, topic, msg)
	}
	metrics.RecordPublish(topic, time.Since(start), err)
	return err
}

// publishWithTimeout bounds a Watermill publish, which takes no context.
func (p *Publisher) publishWithTimeout(ctx context.Context, topic string, msg *message.Message) error {
	ctx, cancel := context.WithTimeout(ctx, p.timeout)
	defer cancel()
	msg.SetContext(ctx)

	errCh := make(chan error, 1)
	go func() {
		errCh <- p.publisher.Publish(topic, msg)
	}()

	select {
	case err := <-errCh:
		if err != nil {
			return fmt.Errorf("publish to %s: %w", topic, err)
		}
		return nil
	case <-ctx.Done():
		return fmt.Errorf("publish to %s: %w", topic, ctx.Err())
	}
}

// PublishRequest publishes an evaluation request on the topic for its kind
// and returns the delivery id.
func (p *Publisher) PublishRequest(ctx context.Context, req *models.EvaluationRequest) (string, error) {
	if req.RequestedAt == 0 {
		req.RequestedAt = p.now().UnixMilli()
	}
	data, err := EncodeRequest(req)
	if err != nil {
		return "", err
	}

	msg := message.NewMessage(watermill.NewUUID(), data)
	msg.Metadata.Set(MetadataSnippetID, req.SnippetID)
	msg.Metadata.Set(MetadataKind, string(req.Kind))

	topic := models.RequestTopic(req.Kind)
	if err := p.Publish(ctx, topic, msg); err != nil {
		return "", err
	}
	return msg.UUID, nil
}

// PublishResultBatch publishes a result batch on lint-results. Used when
// redriving dead letters.
func (p *Publisher) PublishResultBatch(ctx context.Context, payload []byte) (string, error) {
	msg := message.NewMessage(watermill.NewUUID(), payload)
	if id := peekSnippetID(payload); id != "" {
		msg.Metadata.Set(MetadataSnippetID, id)
	}
	if err := p.Publish(ctx, models.TopicLintResults, msg); err != nil {
		return "", err
	}
	return msg.UUID, nil
}

// PublishDeadLetter publishes the original payload of a dead letter on
// lint-results-dlq with the failure recorded in metadata.
func (p *Publisher) PublishDeadLetter(ctx context.Context, dl *models.DeadLetter) error {
	msg := message.NewMessage(dl.ID, dl.Payload)
	msg.Metadata.Set(MetadataSnippetID, dl.SnippetID)
	msg.Metadata.Set(MetadataError, dl.Error)
	msg.Metadata.Set(MetadataCategory, dl.Category)
	msg.Metadata.Set(MetadataDeliveries, strconv.Itoa(dl.Deliveries))
	msg.Metadata.Set(MetadataOriginalID, dl.MessageID)
	return p.Publish(ctx, models.TopicLintResultsDLQ, msg)
}

// Close shuts down the publisher. Further publishes fail with
// models.ErrPublisherClosed.
func (p *Publisher) Close() error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if p.closed {
		return nil
	}
	p.closed = true
	return p.publisher.Close()
}

// HealthCheck reports the publisher and breaker state.
func (p *Publisher) HealthCheck(_ context.Context) ComponentHealth {
	p.mu.RLock()
	closed := p.closed
	p.mu.RUnlock()

	h := ComponentHealth{
		Name:      "publisher",
		Healthy:   !closed,
		LastCheck: time.Now(),
		Details:   map[string]interface{}{},
	}
	if closed {
		h.Error = "publisher is closed"
		return h
	}
	if p.circuitBreaker != nil {
		state := CircuitBreakerState(p.circuitBreaker)
		h.Details["circuit_breaker"] = state
		switch p.circuitBreaker.State() {
		case gobreaker.StateOpen:
			h.Healthy = false
			h.Error = "circuit breaker open"
		case gobreaker.StateHalfOpen:
			h.Degraded = true
			h.Message = "circuit breaker half-open"
		}
	}
	return h
}
