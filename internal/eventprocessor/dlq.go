// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/metrics"
	"github.com/tomtom215/snipcheck/internal/models"
)

// DeadLetterStore persists dead letters. Implemented by *database.DB.
type DeadLetterStore interface {
	SaveDeadLetter(ctx context.Context, dl *models.DeadLetter) error
	GetDeadLetter(ctx context.Context, id string) (*models.DeadLetter, error)
	ListDeadLetters(ctx context.Context, limit int) ([]models.DeadLetter, error)
	DeleteDeadLetter(ctx context.Context, id string) error
}

// DeadLetterPublisher announces dead letters on lint-results-dlq.
type DeadLetterPublisher interface {
	PublishDeadLetter(ctx context.Context, dl *models.DeadLetter) error
}

// ResultRepublisher puts a payload back on lint-results.
type ResultRepublisher interface {
	PublishResultBatch(ctx context.Context, payload []byte) (string, error)
}

// DeadLetterRouter records deliveries that will not be retried.
type DeadLetterRouter struct {
	store     DeadLetterStore
	publisher DeadLetterPublisher
	now       func() time.Time
}

// NewDeadLetterRouter creates a router. publisher may be nil, in which case
// dead letters are only stored.
func NewDeadLetterRouter(store DeadLetterStore, publisher DeadLetterPublisher) *DeadLetterRouter {
	return &DeadLetterRouter{
		store:     store,
		publisher: publisher,
		now:       func() time.Time { return time.Now().UTC() },
	}
}

// Route stores d as a dead letter. The delivery must only be terminated when
// Route returns nil; otherwise the message would be lost.
// Publishing on the DLQ topic is best effort.
func (r *DeadLetterRouter) Route(ctx context.Context, d Delivery, cause error) (*models.DeadLetter, error) {
	category := ErrorCategoryExhausted
	if IsPermanent(cause) {
		category = CategoryOf(cause)
	}

	dl := &models.DeadLetter{
		ID:         DeadLetterID(d.ID()),
		MessageID:  d.ID(),
		Subject:    d.Subject(),
		SnippetID:  peekSnippetID(d.Data()),
		Payload:    d.Data(),
		Error:      cause.Error(),
		Category:   category.String(),
		Deliveries: d.NumDelivered(),
		CreatedAt:  r.now(),
	}

	if err := r.store.SaveDeadLetter(ctx, dl); err != nil {
		return nil, fmt.Errorf("save dead letter: %w", err)
	}
	metrics.RecordDeadLetter(dl.Category)

	if r.publisher != nil {
		if err := r.publisher.PublishDeadLetter(ctx, dl); err != nil {
			logging.Ctx(ctx).Warn().Err(err).
				Str("dead_letter_id", dl.ID).
				Msg("Failed to publish dead letter, stored only")
		}
	}

	logging.Ctx(ctx).Warn().
		Str("dead_letter_id", dl.ID).
		Str("message_id", dl.MessageID).
		Str("snippet_id", dl.SnippetID).
		Str("category", dl.Category).
		Int("deliveries", dl.Deliveries).
		Str("error", dl.Error).
		Msg("Result batch dead-lettered")
	return dl, nil
}

// DeadLetterID maps a message id onto a stable dead-letter id, so routing
// the same message twice updates one entry. An empty message id gets a
// random id.
func DeadLetterID(messageID string) string {
	if messageID == "" {
		return uuid.NewString()
	}
	return uuid.NewSHA1(uuid.NameSpaceOID, []byte("snipcheck/dead-letter/"+messageID)).String()
}

// DeadLetterService exposes stored dead letters to operators.
type DeadLetterService struct {
	store       DeadLetterStore
	republisher ResultRepublisher
}

// NewDeadLetterService creates the admin service.
func NewDeadLetterService(store DeadLetterStore, republisher ResultRepublisher) *DeadLetterService {
	return &DeadLetterService{store: store, republisher: republisher}
}

// List returns the newest dead letters, at most limit.
func (s *DeadLetterService) List(ctx context.Context, limit int) ([]models.DeadLetter, error) {
	return s.store.ListDeadLetters(ctx, limit)
}

// Get returns one dead letter or models.ErrNotFound.
func (s *DeadLetterService) Get(ctx context.Context, id string) (*models.DeadLetter, error) {
	return s.store.GetDeadLetter(ctx, id)
}

// Redrive republishes the original payload on lint-results and removes the
// dead letter. The entry is kept when publishing fails.
func (s *DeadLetterService) Redrive(ctx context.Context, id string) (string, error) {
	dl, err := s.store.GetDeadLetter(ctx, id)
	if err != nil {
		return "", err
	}
	msgID, err := s.republisher.PublishResultBatch(ctx, dl.Payload)
	if err != nil {
		return "", fmt.Errorf("redrive dead letter %s: %w", id, err)
	}
	if err := s.store.DeleteDeadLetter(ctx, id); err != nil {
		return msgID, fmt.Errorf("delete redriven dead letter %s: %w", id, err)
	}
	logging.Ctx(ctx).Info().Str("dead_letter_id", id).Str("message_id", msgID).Msg("Dead letter redriven")
	return msgID, nil
}

// Delete discards a dead letter.
func (s *DeadLetterService) Delete(ctx context.Context, id string) error {
	return s.store.DeleteDeadLetter(ctx, id)
}
