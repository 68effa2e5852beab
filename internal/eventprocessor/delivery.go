// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"time"

	natsgo "github.com/nats-io/nats.go"
	"github.com/nats-io/nats.go/jetstream"
)

// Delivery is one received message together with its acknowledgement
// controls.
type Delivery interface {
	// ID identifies the message across redeliveries.
	ID() string
	Subject() string
	Data() []byte
	// NumDelivered is 1 on first delivery.
	NumDelivered() int
	Ack() error
	// Nak requests redelivery after delay.
	Nak(delay time.Duration) error
	// Term stops redelivery.
	Term() error
}

// ResultSource yields result deliveries. Receive returns after at most wait,
// possibly with no deliveries.
type ResultSource interface {
	Receive(ctx context.Context, max int, wait time.Duration) ([]Delivery, error)
}

// JetStreamSource pulls from a durable JetStream consumer.
type JetStreamSource struct {
	consumer jetstream.Consumer
}

// NewJetStreamSource wraps a consumer returned by EnsureConsumerGroup.
func NewJetStreamSource(consumer jetstream.Consumer) *JetStreamSource {
	return &JetStreamSource{consumer: consumer}
}

// Receive fetches up to max messages, waiting at most wait.
func (s *JetStreamSource) Receive(ctx context.Context, max int, wait time.Duration) ([]Delivery, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	batch, err := s.consumer.Fetch(max, jetstream.FetchMaxWait(wait))
	if err != nil {
		return nil, fmt.Errorf("fetch: %w", err)
	}

	var out []Delivery
	for msg := range batch.Messages() {
		out = append(out, &jetStreamDelivery{msg: msg})
	}
	if err := batch.Error(); err != nil && len(out) == 0 && !isFetchTimeout(err) {
		return nil, fmt.Errorf("fetch: %w", err)
	}
	return out, nil
}

func isFetchTimeout(err error) bool {
	return errors.Is(err, natsgo.ErrTimeout) || errors.Is(err, context.DeadlineExceeded)
}

type jetStreamDelivery struct {
	msg jetstream.Msg
}

func (d *jetStreamDelivery) ID() string {
	if id := d.msg.Headers().Get(natsgo.MsgIdHdr); id != "" {
		return id
	}
	if md, err := d.msg.Metadata(); err == nil {
		return fmt.Sprintf("%s:%d", md.Stream, md.Sequence.Stream)
	}
	return ""
}

func (d *jetStreamDelivery) Subject() string { return d.msg.Subject() }

func (d *jetStreamDelivery) Data() []byte { return d.msg.Data() }

func (d *jetStreamDelivery) NumDelivered() int {
	md, err := d.msg.Metadata()
	if err != nil {
		return 1
	}
	return int(md.NumDelivered)
}

func (d *jetStreamDelivery) Ack() error { return d.msg.Ack() }

func (d *jetStreamDelivery) Nak(delay time.Duration) error {
	if delay > 0 {
		return d.msg.NakWithDelay(delay)
	}
	return d.msg.Nak()
}

func (d *jetStreamDelivery) Term() error { return d.msg.Term() }
