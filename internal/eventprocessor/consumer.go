// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"sync/atomic"
	"time"

	"github.com/ThreeDotsLabs/watermill/message"
	"github.com/ThreeDotsLabs/watermill/message/router/middleware"

	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/metrics"
	"github.com/tomtom215/snipcheck/internal/models"
)

// Delivery outcomes, used as metric labels.
const (
	OutcomeAcked        = "acked"
	OutcomeRetried      = "retried"
	OutcomeDeadLettered = "dead_lettered"
	OutcomeAckFailed    = "ack_failed"
)

// ResultHandler reconciles one result batch. Implemented by
// *compliance.Reconciler.
type ResultHandler interface {
	CreateOrUpdate(ctx context.Context, snippetID string, results []models.ResultEntry) (*models.ComplianceRecord, error)
}

// ResultConsumer drains lint-results into the compliance store.
type ResultConsumer struct {
	source  ResultSource
	handler ResultHandler
	router  *DeadLetterRouter
	cfg     ConsumerConfig
	name    string

	// reconcile is the handler chain run for each delivery.
	reconcile message.HandlerFunc

	running      atomic.Bool
	processed    atomic.Int64
	retried      atomic.Int64
	deadLettered atomic.Int64
	lastError    atomic.Value // string
	lastPoll     atomic.Int64 // unix nanos
}

// NewResultConsumer wires a consumer. router is required: without it a
// poisoned batch would be redelivered forever.
func NewResultConsumer(source ResultSource, handler ResultHandler, router *DeadLetterRouter, cfg ConsumerConfig) (*ResultConsumer, error) {
	if source == nil || handler == nil || router == nil {
		return nil, fmt.Errorf("%w: source, handler and dead-letter router are required", ErrInvalidConfig)
	}
	def := DefaultConsumerConfig()
	if cfg.FetchBatch <= 0 {
		cfg.FetchBatch = def.FetchBatch
	}
	if cfg.PollTimeout <= 0 {
		cfg.PollTimeout = def.PollTimeout
	}
	if cfg.PollErrorBackoff <= 0 {
		cfg.PollErrorBackoff = def.PollErrorBackoff
	}
	if cfg.MaxDeliver <= 0 {
		cfg.MaxDeliver = def.MaxDeliver
	}
	if cfg.HandleTimeout <= 0 {
		cfg.HandleTimeout = def.HandleTimeout
	}
	c := &ResultConsumer{
		source:  source,
		handler: handler,
		router:  router,
		cfg:     cfg,
		name:    ConsumerName(),
	}
	c.reconcile = middleware.Recoverer(c.handleMessage)
	return c, nil
}

// Name returns the per-instance consumer name.
func (c *ResultConsumer) Name() string { return c.name }

// Run polls until ctx is canceled. Deliveries already received when ctx is
// canceled are still processed and acknowledged. Returns ctx.Err().
func (c *ResultConsumer) Run(ctx context.Context) error {
	c.running.Store(true)
	metrics.ConsumerRunning.Set(1)
	defer func() {
		c.running.Store(false)
		metrics.ConsumerRunning.Set(0)
	}()

	log := logging.Ctx(ctx).With().Str("consumer", c.name).Logger()
	log.Info().Msg("Result consumer started")

	for {
		if err := ctx.Err(); err != nil {
			log.Info().Msg("Result consumer stopped")
			return err
		}

		deliveries, err := c.source.Receive(ctx, c.cfg.FetchBatch, c.cfg.PollTimeout)
		c.lastPoll.Store(time.Now().UnixNano())
		if err != nil {
			if ctx.Err() != nil {
				continue
			}
			metrics.ConsumerPollErrors.Inc()
			c.lastError.Store(err.Error())
			log.Warn().Err(err).Dur("backoff", c.cfg.PollErrorBackoff).Msg("Poll failed")
			select {
			case <-ctx.Done():
			case <-time.After(c.cfg.PollErrorBackoff):
			}
			continue
		}

		for _, d := range deliveries {
			c.Handle(ctx, d)
		}
	}
}

// Handle processes a single delivery and settles it: Ack on success, Nak for
// retryable failures, Term after a successful dead-letter write.
func (c *ResultConsumer) Handle(ctx context.Context, d Delivery) string {
	procCtx, cancel := context.WithTimeout(context.WithoutCancel(ctx), c.cfg.HandleTimeout)
	defer cancel()

	log := logging.Ctx(ctx).With().
		Str("message_id", d.ID()).
		Int("deliveries", d.NumDelivered()).
		Logger()

	outcome := c.settle(procCtx, d, c.process(procCtx, d))
	metrics.RecordResultOutcome(outcome)

	switch outcome {
	case OutcomeAcked:
		c.processed.Add(1)
		log.Debug().Msg("Result batch reconciled")
	case OutcomeRetried:
		c.retried.Add(1)
	case OutcomeDeadLettered:
		c.deadLettered.Add(1)
	}
	return outcome
}

// process runs d through the handler chain. A panic in the handler is
// recovered and dead-lettered without redelivery.
func (c *ResultConsumer) process(ctx context.Context, d Delivery) error {
	msg := message.NewMessage(d.ID(), d.Data())
	msg.SetContext(ctx)

	_, err := c.reconcile(msg)
	var panicErr middleware.RecoveredPanicError
	if errors.As(err, &panicErr) {
		logging.Ctx(ctx).Error().
			Str("message_id", d.ID()).
			Str("stacktrace", panicErr.Stacktrace).
			Msg("Result handler panicked")
		return &PermanentError{
			Message:  "result handler panicked",
			Cause:    fmt.Errorf("%v", panicErr.V),
			Category: ErrorCategoryPanic,
		}
	}
	return err
}

// handleMessage decodes and reconciles one batch. Errors are classified as
// permanent or retryable.
func (c *ResultConsumer) handleMessage(msg *message.Message) ([]*message.Message, error) {
	return nil, c.reconcileBatch(msg.Context(), msg.Payload)
}

func (c *ResultConsumer) reconcileBatch(ctx context.Context, payload []byte) error {
	batch, err := DecodeResultBatch(payload)
	if err != nil {
		return err
	}

	_, err = c.handler.CreateOrUpdate(ctx, batch.SnippetID, batch.Results)
	switch {
	case err == nil:
		return nil
	case errors.Is(err, models.ErrNotFound):
		return NewPermanentError("unknown snippet "+batch.SnippetID, err)
	default:
		return NewRetryableError("reconcile snippet "+batch.SnippetID, err)
	}
}

func (c *ResultConsumer) settle(ctx context.Context, d Delivery, procErr error) string {
	log := logging.Ctx(ctx).With().Str("message_id", d.ID()).Logger()

	if procErr == nil {
		if err := d.Ack(); err != nil {
			// Redelivery is harmless: reconciliation is idempotent.
			log.Warn().Err(err).Msg("Ack failed, batch will be redelivered")
			c.lastError.Store(err.Error())
			return OutcomeAckFailed
		}
		return OutcomeAcked
	}

	c.lastError.Store(procErr.Error())

	if !IsRetryable(procErr) || d.NumDelivered() >= c.cfg.MaxDeliver {
		if _, err := c.router.Route(ctx, d, procErr); err != nil {
			log.Error().Err(err).AnErr("cause", procErr).Msg("Dead-letter write failed, requesting redelivery")
			if nakErr := d.Nak(c.cfg.NakDelay); nakErr != nil {
				log.Warn().Err(nakErr).Msg("Nak failed")
			}
			return OutcomeRetried
		}
		if err := d.Term(); err != nil {
			log.Warn().Err(err).Msg("Term failed after dead-lettering")
		}
		return OutcomeDeadLettered
	}

	log.Warn().Err(procErr).Int("deliveries", d.NumDelivered()).Msg("Result batch failed, requesting redelivery")
	if err := d.Nak(c.cfg.NakDelay); err != nil {
		log.Warn().Err(err).Msg("Nak failed")
	}
	return OutcomeRetried
}

// ConsumerStats is a snapshot of consumer counters.
type ConsumerStats struct {
	Running      bool      `json:"running"`
	Processed    int64     `json:"processed"`
	Retried      int64     `json:"retried"`
	DeadLettered int64     `json:"dead_lettered"`
	LastError    string    `json:"last_error,omitempty"`
	LastPoll     time.Time `json:"last_poll"`
}

// Stats returns the current counters.
func (c *ResultConsumer) Stats() ConsumerStats {
	s := ConsumerStats{
		Running:      c.running.Load(),
		Processed:    c.processed.Load(),
		Retried:      c.retried.Load(),
		DeadLettered: c.deadLettered.Load(),
	}
	if v, ok := c.lastError.Load().(string); ok {
		s.LastError = v
	}
	if n := c.lastPoll.Load(); n > 0 {
		s.LastPoll = time.Unix(0, n)
	}
	return s
}

// HealthCheck reports unhealthy when the loop is not running.
func (c *ResultConsumer) HealthCheck(_ context.Context) ComponentHealth {
	stats := c.Stats()
	h := ComponentHealth{
		Name:      "result_consumer",
		Healthy:   stats.Running,
		LastCheck: time.Now(),
		Details: map[string]interface{}{
			"consumer":      c.name,
			"processed":     stats.Processed,
			"retried":       stats.Retried,
			"dead_lettered": stats.DeadLettered,
		},
	}
	if !stats.Running {
		h.Error = "consumer loop not running"
	}
	if stats.LastError != "" {
		h.Message = stats.LastError
	}
	return h
}
