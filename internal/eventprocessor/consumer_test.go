// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/tomtom215/snipcheck/internal/models"
)

type fakeDelivery struct {
	id        string
	data      []byte
	delivered int

	mu     sync.Mutex
	acked  bool
	naked  bool
	termed bool
	ackErr error
}

func newFakeDelivery(id, payload string, delivered int) *fakeDelivery {
	return &fakeDelivery{id: id, data: []byte(payload), delivered: delivered}
}

func (d *fakeDelivery) ID() string        { return d.id }
func (d *fakeDelivery) Subject() string   { return models.TopicLintResults }
func (d *fakeDelivery) Data() []byte      { return d.data }
func (d *fakeDelivery) NumDelivered() int { return d.delivered }

func (d *fakeDelivery) Ack() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.ackErr != nil {
		return d.ackErr
	}
	d.acked = true
	return nil
}

func (d *fakeDelivery) Nak(time.Duration) error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.naked = true
	return nil
}

func (d *fakeDelivery) Term() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	d.termed = true
	return nil
}

func (d *fakeDelivery) settled() (acked, naked, termed bool) {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.acked, d.naked, d.termed
}

// fakeSource hands out queued batches, then blocks for wait.
type fakeSource struct {
	mu      sync.Mutex
	batches [][]Delivery
	errs    []error
}

func (s *fakeSource) Receive(ctx context.Context, _ int, wait time.Duration) ([]Delivery, error) {
	s.mu.Lock()
	if len(s.errs) > 0 {
		err := s.errs[0]
		s.errs = s.errs[1:]
		s.mu.Unlock()
		return nil, err
	}
	if len(s.batches) > 0 {
		b := s.batches[0]
		s.batches = s.batches[1:]
		s.mu.Unlock()
		return b, nil
	}
	s.mu.Unlock()

	select {
	case <-ctx.Done():
		return nil, ctx.Err()
	case <-time.After(wait):
		return nil, nil
	}
}

type fakeHandler struct {
	mu    sync.Mutex
	err   error
	calls map[string][]models.ResultEntry
	// gate, when set, blocks CreateOrUpdate until closed.
	gate chan struct{}
}

func (h *fakeHandler) CreateOrUpdate(ctx context.Context, snippetID string, results []models.ResultEntry) (*models.ComplianceRecord, error) {
	if h.gate != nil {
		<-h.gate
	}
	if ctx.Err() != nil {
		return nil, ctx.Err()
	}
	h.mu.Lock()
	defer h.mu.Unlock()
	if h.err != nil {
		return nil, h.err
	}
	if h.calls == nil {
		h.calls = make(map[string][]models.ResultEntry)
	}
	h.calls[snippetID] = results
	return &models.ComplianceRecord{SnippetID: snippetID, Type: models.DeriveComplianceType(results)}, nil
}

func (h *fakeHandler) setErr(err error) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.err = err
}

func (h *fakeHandler) callCount() int {
	h.mu.Lock()
	defer h.mu.Unlock()
	return len(h.calls)
}

type memDeadLetters struct {
	mu      sync.Mutex
	entries map[string]*models.DeadLetter
	saveErr error
}

func newMemDeadLetters() *memDeadLetters {
	return &memDeadLetters{entries: make(map[string]*models.DeadLetter)}
}

func (m *memDeadLetters) SaveDeadLetter(_ context.Context, dl *models.DeadLetter) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.saveErr != nil {
		return m.saveErr
	}
	cp := *dl
	m.entries[dl.ID] = &cp
	return nil
}

func (m *memDeadLetters) setSaveErr(err error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saveErr = err
}

func (m *memDeadLetters) count() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

func (m *memDeadLetters) GetDeadLetter(_ context.Context, id string) (*models.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	dl, ok := m.entries[id]
	if !ok {
		return nil, fmt.Errorf("dead letter %s: %w", id, models.ErrNotFound)
	}
	cp := *dl
	return &cp, nil
}

func (m *memDeadLetters) ListDeadLetters(_ context.Context, _ int) ([]models.DeadLetter, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	out := make([]models.DeadLetter, 0, len(m.entries))
	for _, dl := range m.entries {
		out = append(out, *dl)
	}
	return out, nil
}

func (m *memDeadLetters) DeleteDeadLetter(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if _, ok := m.entries[id]; !ok {
		return fmt.Errorf("dead letter %s: %w", id, models.ErrNotFound)
	}
	delete(m.entries, id)
	return nil
}

func (m *memDeadLetters) only(t *testing.T) *models.DeadLetter {
	t.Helper()
	m.mu.Lock()
	defer m.mu.Unlock()
	if len(m.entries) != 1 {
		t.Fatalf("dead letters = %d, want 1", len(m.entries))
	}
	for _, dl := range m.entries {
		return dl
	}
	return nil
}

type recordingDLQPublisher struct {
	mu        sync.Mutex
	published []string
	err       error
}

func (p *recordingDLQPublisher) PublishDeadLetter(_ context.Context, dl *models.DeadLetter) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.published = append(p.published, dl.ID)
	return nil
}

func testConsumerConfig() ConsumerConfig {
	return ConsumerConfig{
		FetchBatch:       10,
		PollTimeout:      10 * time.Millisecond,
		PollErrorBackoff: 5 * time.Millisecond,
		MaxDeliver:       3,
		NakDelay:         time.Millisecond,
		HandleTimeout:    time.Second,
	}
}

func newTestConsumer(t *testing.T, source ResultSource, handler ResultHandler, store DeadLetterStore, pub DeadLetterPublisher) *ResultConsumer {
	t.Helper()
	c, err := NewResultConsumer(source, handler, NewDeadLetterRouter(store, pub), testConsumerConfig())
	if err != nil {
		t.Fatalf("NewResultConsumer() error = %v", err)
	}
	return c
}

const cleanBatch = `{"snippetId":"s1","results":[]}`

func TestHandle_SuccessAcks(t *testing.T) {
	handler := &fakeHandler{}
	store := newMemDeadLetters()
	c := newTestConsumer(t, &fakeSource{}, handler, store, nil)

	d := newFakeDelivery("m1", `{"snippetId":"s1","results":[{"message":"bad","line":2,"column":1}]}`, 1)
	if got := c.Handle(context.Background(), d); got != OutcomeAcked {
		t.Fatalf("outcome = %s, want acked", got)
	}
	acked, naked, termed := d.settled()
	if !acked || naked || termed {
		t.Errorf("settled acked=%v naked=%v termed=%v", acked, naked, termed)
	}
	if len(handler.calls["s1"]) != 1 {
		t.Errorf("handler got %v", handler.calls)
	}
	if c.Stats().Processed != 1 {
		t.Errorf("Processed = %d", c.Stats().Processed)
	}
}

func TestHandle_EmptyResultsStillReconciled(t *testing.T) {
	handler := &fakeHandler{}
	c := newTestConsumer(t, &fakeSource{}, handler, newMemDeadLetters(), nil)

	c.Handle(context.Background(), newFakeDelivery("m1", `{"snippetId":"s1"}`, 1))
	results, ok := handler.calls["s1"]
	if !ok || results == nil || len(results) != 0 {
		t.Errorf("handler results = %#v, want empty non-nil slice", results)
	}
}

func TestHandle_MalformedPayloadDeadLettered(t *testing.T) {
	store := newMemDeadLetters()
	dlqPub := &recordingDLQPublisher{}
	c := newTestConsumer(t, &fakeSource{}, &fakeHandler{}, store, dlqPub)

	d := newFakeDelivery("m1", `not json`, 1)
	if got := c.Handle(context.Background(), d); got != OutcomeDeadLettered {
		t.Fatalf("outcome = %s, want dead_lettered", got)
	}
	acked, _, termed := d.settled()
	if acked || !termed {
		t.Errorf("acked=%v termed=%v, want term only", acked, termed)
	}
	dl := store.only(t)
	if dl.Category != "validation" || dl.MessageID != "m1" || string(dl.Payload) != "not json" {
		t.Errorf("dead letter = %+v", dl)
	}
	if len(dlqPub.published) != 1 {
		t.Errorf("DLQ publishes = %d, want 1", len(dlqPub.published))
	}
}

func TestHandle_UnknownSnippetDeadLettered(t *testing.T) {
	store := newMemDeadLetters()
	handler := &fakeHandler{err: fmt.Errorf("snippet s1: %w", models.ErrNotFound)}
	c := newTestConsumer(t, &fakeSource{}, handler, store, nil)

	d := newFakeDelivery("m1", cleanBatch, 1)
	if got := c.Handle(context.Background(), d); got != OutcomeDeadLettered {
		t.Fatalf("outcome = %s, want dead_lettered", got)
	}
	dl := store.only(t)
	if dl.Category != "not_found" || dl.SnippetID != "s1" {
		t.Errorf("dead letter = %+v", dl)
	}
}

func TestHandle_TransientFailureNaks(t *testing.T) {
	store := newMemDeadLetters()
	handler := &fakeHandler{err: errors.Join(models.ErrConflict, errors.New("tx"))}
	c := newTestConsumer(t, &fakeSource{}, handler, store, nil)

	d := newFakeDelivery("m1", cleanBatch, 1)
	if got := c.Handle(context.Background(), d); got != OutcomeRetried {
		t.Fatalf("outcome = %s, want retried", got)
	}
	acked, naked, termed := d.settled()
	if acked || !naked || termed {
		t.Errorf("acked=%v naked=%v termed=%v, want nak only", acked, naked, termed)
	}
	if len(store.entries) != 0 {
		t.Error("transient failure must not be dead-lettered")
	}
}

func TestHandle_ExhaustedRedeliveriesDeadLettered(t *testing.T) {
	store := newMemDeadLetters()
	handler := &fakeHandler{err: errors.New("duckdb: io error")}
	c := newTestConsumer(t, &fakeSource{}, handler, store, nil)

	d := newFakeDelivery("m1", cleanBatch, 3)
	if got := c.Handle(context.Background(), d); got != OutcomeDeadLettered {
		t.Fatalf("outcome = %s, want dead_lettered", got)
	}
	dl := store.only(t)
	if dl.Category != "exhausted" || dl.Deliveries != 3 {
		t.Errorf("dead letter = %+v", dl)
	}
}

func TestHandle_DeadLetterSaveFailureNaks(t *testing.T) {
	store := newMemDeadLetters()
	store.saveErr = errors.New("database is locked")
	c := newTestConsumer(t, &fakeSource{}, &fakeHandler{}, store, nil)

	d := newFakeDelivery("m1", `garbage`, 1)
	if got := c.Handle(context.Background(), d); got != OutcomeRetried {
		t.Fatalf("outcome = %s, want retried", got)
	}
	acked, naked, termed := d.settled()
	if acked || termed || !naked {
		t.Errorf("acked=%v naked=%v termed=%v; message must stay in the stream", acked, naked, termed)
	}
}

func TestHandle_DeadLetterSaveFailureOnLastDeliveryNaks(t *testing.T) {
	store := newMemDeadLetters()
	store.saveErr = errors.New("database is locked")
	handler := &fakeHandler{err: errors.New("database is locked")}
	c := newTestConsumer(t, &fakeSource{}, handler, store, nil)

	// Past the dead-letter threshold the batch keeps coming back until either
	// the reconcile or the dead-letter write succeeds.
	for delivered := 3; delivered <= 5; delivered++ {
		d := newFakeDelivery("m1", cleanBatch, delivered)
		if got := c.Handle(context.Background(), d); got != OutcomeRetried {
			t.Fatalf("delivery %d: outcome = %s, want retried", delivered, got)
		}
		if _, naked, termed := d.settled(); !naked || termed {
			t.Fatalf("delivery %d: naked=%v termed=%v", delivered, naked, termed)
		}
	}

	store.setSaveErr(nil)
	d := newFakeDelivery("m1", cleanBatch, 6)
	if got := c.Handle(context.Background(), d); got != OutcomeDeadLettered {
		t.Fatalf("outcome = %s, want dead_lettered", got)
	}
	if dl := store.only(t); dl.Deliveries != 6 {
		t.Errorf("deliveries = %d, want 6", dl.Deliveries)
	}
}

type panickingHandler struct{}

func (panickingHandler) CreateOrUpdate(context.Context, string, []models.ResultEntry) (*models.ComplianceRecord, error) {
	panic("assignment to entry in nil map")
}

func TestHandle_HandlerPanicDeadLettered(t *testing.T) {
	store := newMemDeadLetters()
	c := newTestConsumer(t, &fakeSource{}, panickingHandler{}, store, nil)

	d := newFakeDelivery("m1", cleanBatch, 1)
	if got := c.Handle(context.Background(), d); got != OutcomeDeadLettered {
		t.Fatalf("outcome = %s, want dead_lettered", got)
	}
	if acked, naked, termed := d.settled(); acked || naked || !termed {
		t.Errorf("acked=%v naked=%v termed=%v", acked, naked, termed)
	}
	dl := store.only(t)
	if dl.Category != "panic" || !strings.Contains(dl.Error, "assignment to entry in nil map") {
		t.Errorf("dead letter = %+v", dl)
	}
	if dl.Deliveries != 1 {
		t.Errorf("deliveries = %d, a panic should not be retried", dl.Deliveries)
	}
}

func TestHandle_DLQPublishFailureIsBestEffort(t *testing.T) {
	store := newMemDeadLetters()
	c := newTestConsumer(t, &fakeSource{}, &fakeHandler{}, store, &recordingDLQPublisher{err: errors.New("breaker open")})

	d := newFakeDelivery("m1", `garbage`, 1)
	if got := c.Handle(context.Background(), d); got != OutcomeDeadLettered {
		t.Fatalf("outcome = %s, want dead_lettered", got)
	}
	store.only(t)
}

func TestHandle_AckFailure(t *testing.T) {
	c := newTestConsumer(t, &fakeSource{}, &fakeHandler{}, newMemDeadLetters(), nil)
	d := newFakeDelivery("m1", cleanBatch, 1)
	d.ackErr = errors.New("nats: connection closed")

	if got := c.Handle(context.Background(), d); got != OutcomeAckFailed {
		t.Fatalf("outcome = %s, want ack_failed", got)
	}
	if c.Stats().LastError == "" {
		t.Error("LastError should record the ack failure")
	}
}

func TestRun_ProcessesAndStops(t *testing.T) {
	d1 := newFakeDelivery("m1", cleanBatch, 1)
	d2 := newFakeDelivery("m2", `{"snippetId":"s2","results":[]}`, 1)
	source := &fakeSource{
		errs:    []error{errors.New("nats: timeout")},
		batches: [][]Delivery{{d1, d2}},
	}
	handler := &fakeHandler{}
	c := newTestConsumer(t, source, handler, newMemDeadLetters(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	deadline := time.Now().Add(2 * time.Second)
	for handler.callCount() < 2 && time.Now().Before(deadline) {
		time.Sleep(5 * time.Millisecond)
	}
	if handler.callCount() != 2 {
		t.Fatalf("handled %d batches, want 2", handler.callCount())
	}
	if !c.Stats().Running {
		t.Error("Running = false while loop is active")
	}

	cancel()
	select {
	case err := <-done:
		if !errors.Is(err, context.Canceled) {
			t.Errorf("Run() = %v, want context.Canceled", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop after cancel")
	}
	if c.Stats().Running {
		t.Error("Running = true after stop")
	}
	if a1, _, _ := d1.settled(); !a1 {
		t.Error("m1 not acked")
	}
}

func TestRun_InFlightBatchFinishesAfterCancel(t *testing.T) {
	d := newFakeDelivery("m1", cleanBatch, 1)
	source := &fakeSource{batches: [][]Delivery{{d}}}
	handler := &fakeHandler{gate: make(chan struct{})}
	c := newTestConsumer(t, source, handler, newMemDeadLetters(), nil)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- c.Run(ctx) }()

	// Give the loop time to pick up the delivery and block in the handler.
	time.Sleep(30 * time.Millisecond)
	cancel()
	close(handler.gate)

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Run did not stop")
	}
	if acked, _, _ := d.settled(); !acked {
		t.Error("in-flight batch should be acked despite shutdown")
	}
}

func TestNewResultConsumer_RequiresDependencies(t *testing.T) {
	if _, err := NewResultConsumer(nil, &fakeHandler{}, NewDeadLetterRouter(newMemDeadLetters(), nil), ConsumerConfig{}); !errors.Is(err, ErrInvalidConfig) {
		t.Errorf("error = %v, want ErrInvalidConfig", err)
	}
}

func TestConsumerHealthCheck(t *testing.T) {
	c := newTestConsumer(t, &fakeSource{}, &fakeHandler{}, newMemDeadLetters(), nil)
	h := c.HealthCheck(context.Background())
	if h.Healthy {
		t.Error("consumer that never ran should be unhealthy")
	}
	if h.Details["consumer"] != c.Name() {
		t.Errorf("details = %v", h.Details)
	}
}
