// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Package compliance owns the compliance state of snippets.
//
// The Reconciler is the only writer of compliance records. Each result batch
// replaces the snippet's record in full, so applying the same batch twice
// leaves the same state behind (apart from LintedAt).
package compliance

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/metrics"
	"github.com/tomtom215/snipcheck/internal/models"
)

// Store is the persistence the reconciler needs.
// Implemented by *database.DB.
type Store interface {
	// UpsertCompliance atomically replaces the record of rec.SnippetID.
	// It returns models.ErrNotFound for unknown snippets and
	// models.ErrConflict when a concurrent write won.
	UpsertCompliance(ctx context.Context, rec *models.ComplianceRecord) error

	// FindComplianceBySnippetID returns nil when no record exists.
	FindComplianceBySnippetID(ctx context.Context, snippetID string) (*models.ComplianceRecord, error)

	FindSnippetByID(ctx context.Context, id string) (*models.Snippet, error)
}

// Config tunes conflict handling.
type Config struct {
	// MaxConflictRetries is how many times a conflicting upsert is retried.
	MaxConflictRetries int

	// ConflictBackoff is the pause before each retry.
	ConflictBackoff time.Duration
}

// DefaultConfig returns production defaults.
func DefaultConfig() Config {
	return Config{
		MaxConflictRetries: 3,
		ConflictBackoff:    10 * time.Millisecond,
	}
}

// Reconciler turns result batches into the authoritative compliance record.
type Reconciler struct {
	store Store
	cfg   Config
	now   func() time.Time
}

// NewReconciler creates a reconciler over store.
func NewReconciler(store Store, cfg Config) *Reconciler {
	if cfg.MaxConflictRetries < 0 {
		cfg.MaxConflictRetries = 0
	}
	return &Reconciler{
		store: store,
		cfg:   cfg,
		now:   func() time.Time { return time.Now().UTC() },
	}
}

// CreateOrUpdate replaces the compliance record of snippetID with one derived
// from results: COMPLIANT when results is empty, NON_COMPLIANT otherwise.
//
// Returns models.ErrNotFound if the snippet does not exist.
func (r *Reconciler) CreateOrUpdate(ctx context.Context, snippetID string, results []models.ResultEntry) (*models.ComplianceRecord, error) {
	if results == nil {
		results = []models.ResultEntry{}
	}
	typ := models.DeriveComplianceType(results)
	return r.write(ctx, snippetID, func() *models.ComplianceRecord {
		return &models.ComplianceRecord{
			ID:        uuid.NewString(),
			SnippetID: snippetID,
			Type:      typ,
			LintedAt:  r.now(),
			Errors:    results,
		}
	})
}

// MarkFailed records that evaluation of snippetID could not complete.
func (r *Reconciler) MarkFailed(ctx context.Context, snippetID, reason string) (*models.ComplianceRecord, error) {
	return r.write(ctx, snippetID, func() *models.ComplianceRecord {
		return &models.ComplianceRecord{
			ID:            uuid.NewString(),
			SnippetID:     snippetID,
			Type:          models.ComplianceFailed,
			LintedAt:      r.now(),
			Errors:        []models.ResultEntry{},
			FailureReason: reason,
		}
	})
}

// write upserts a freshly built record, retrying on write conflicts.
// A new record is built for every attempt so LintedAt reflects the write.
func (r *Reconciler) write(ctx context.Context, snippetID string, build func() *models.ComplianceRecord) (*models.ComplianceRecord, error) {
	if snippetID == "" {
		return nil, fmt.Errorf("snippet id is required: %w", models.ErrNotFound)
	}

	start := time.Now()
	var rec *models.ComplianceRecord
	var err error
	for attempt := 0; ; attempt++ {
		rec = build()
		err = r.store.UpsertCompliance(ctx, rec)
		if err == nil || !errors.Is(err, models.ErrConflict) || attempt >= r.cfg.MaxConflictRetries {
			break
		}
		metrics.ReconcileConflictRetries.Inc()
		logging.Ctx(ctx).Debug().
			Str("snippet_id", snippetID).
			Int("attempt", attempt+1).
			Msg("Compliance write conflict, retrying")

		select {
		case <-ctx.Done():
			return nil, ctx.Err()
		case <-time.After(r.cfg.ConflictBackoff):
		}
	}

	metrics.RecordReconcile(string(rec.Type), time.Since(start), err)
	if err != nil {
		return nil, fmt.Errorf("reconcile compliance for snippet %s: %w", snippetID, err)
	}

	logging.Ctx(ctx).Debug().
		Str("snippet_id", snippetID).
		Str("compliance_type", string(rec.Type)).
		Int("errors", len(rec.Errors)).
		Msg("Compliance record replaced")
	return rec, nil
}
