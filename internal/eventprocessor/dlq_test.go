// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"context"
	"errors"
	"testing"

	"github.com/tomtom215/snipcheck/internal/models"
)

type stubRepublisher struct {
	payloads [][]byte
	err      error
}

func (s *stubRepublisher) PublishResultBatch(_ context.Context, payload []byte) (string, error) {
	if s.err != nil {
		return "", s.err
	}
	s.payloads = append(s.payloads, payload)
	return "new-msg", nil
}

func seedDeadLetter(t *testing.T, store *memDeadLetters) *models.DeadLetter {
	t.Helper()
	router := NewDeadLetterRouter(store, nil)
	dl, err := router.Route(context.Background(), newFakeDelivery("m1", cleanBatch, 5), errors.New("duckdb: io error"))
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	return dl
}

func TestDeadLetterService_Redrive(t *testing.T) {
	store := newMemDeadLetters()
	dl := seedDeadLetter(t, store)
	repub := &stubRepublisher{}
	svc := NewDeadLetterService(store, repub)
	ctx := context.Background()

	msgID, err := svc.Redrive(ctx, dl.ID)
	if err != nil {
		t.Fatalf("Redrive() error = %v", err)
	}
	if msgID != "new-msg" {
		t.Errorf("msgID = %q", msgID)
	}
	if len(repub.payloads) != 1 || string(repub.payloads[0]) != cleanBatch {
		t.Errorf("republished = %q", repub.payloads)
	}
	if _, err := svc.Get(ctx, dl.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("redriven entry should be removed, Get() error = %v", err)
	}
}

func TestDeadLetterService_RedriveKeepsEntryOnPublishFailure(t *testing.T) {
	store := newMemDeadLetters()
	dl := seedDeadLetter(t, store)
	svc := NewDeadLetterService(store, &stubRepublisher{err: errors.New("breaker open")})

	if _, err := svc.Redrive(context.Background(), dl.ID); err == nil {
		t.Fatal("expected error")
	}
	if _, err := svc.Get(context.Background(), dl.ID); err != nil {
		t.Errorf("entry should be kept, Get() error = %v", err)
	}
}

func TestDeadLetterService_ListAndDelete(t *testing.T) {
	store := newMemDeadLetters()
	dl := seedDeadLetter(t, store)
	svc := NewDeadLetterService(store, &stubRepublisher{})
	ctx := context.Background()

	list, err := svc.List(ctx, 10)
	if err != nil || len(list) != 1 {
		t.Fatalf("List() = %v, %v", list, err)
	}
	if err := svc.Delete(ctx, dl.ID); err != nil {
		t.Fatalf("Delete() error = %v", err)
	}
	if err := svc.Delete(ctx, dl.ID); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("second Delete() error = %v, want ErrNotFound", err)
	}
	if _, err := svc.Redrive(ctx, "missing"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("Redrive(missing) error = %v, want ErrNotFound", err)
	}
}

// A message redelivered after its Term was lost is routed again. It must
// update its existing dead letter rather than add a second one.
func TestDeadLetterRouter_RedeliveredMessageKeepsOneEntry(t *testing.T) {
	store := newMemDeadLetters()
	router := NewDeadLetterRouter(store, nil)
	ctx := context.Background()

	first, err := router.Route(ctx, newFakeDelivery("SNIPPETS:17", cleanBatch, 3), errors.New("duckdb: io error"))
	if err != nil {
		t.Fatalf("Route() error = %v", err)
	}
	second, err := router.Route(ctx, newFakeDelivery("SNIPPETS:17", cleanBatch, 4), errors.New("duckdb: disk full"))
	if err != nil {
		t.Fatalf("second Route() error = %v", err)
	}

	if first.ID != second.ID {
		t.Errorf("dead letter ids differ: %s and %s", first.ID, second.ID)
	}
	dl := store.only(t)
	if dl.Deliveries != 4 || dl.Error != "duckdb: disk full" || dl.MessageID != "SNIPPETS:17" {
		t.Errorf("dead letter = %+v", dl)
	}
}

func TestDeadLetterID(t *testing.T) {
	if DeadLetterID("m1") != DeadLetterID("m1") {
		t.Error("same message id should map to the same dead letter id")
	}
	if DeadLetterID("m1") == DeadLetterID("m2") {
		t.Error("distinct message ids should not collide")
	}
	if DeadLetterID("") == DeadLetterID("") {
		t.Error("empty message ids should get random dead letter ids")
	}
}
