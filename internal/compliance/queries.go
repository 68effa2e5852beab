// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package compliance

import (
	"context"

	"github.com/tomtom215/snipcheck/internal/models"
)

// Get returns the current record of snippetID, or nil if the snippet exists
// but has not been reconciled yet. Unknown snippets yield models.ErrNotFound.
func (r *Reconciler) Get(ctx context.Context, snippetID string) (*models.ComplianceRecord, error) {
	rec, err := r.store.FindComplianceBySnippetID(ctx, snippetID)
	if err != nil {
		return nil, err
	}
	if rec != nil {
		return rec, nil
	}
	if _, err := r.store.FindSnippetByID(ctx, snippetID); err != nil {
		return nil, err
	}
	return nil, nil
}

// State returns the tagged compliance state of snippetID.
func (r *Reconciler) State(ctx context.Context, snippetID string) (models.ComplianceState, error) {
	rec, err := r.Get(ctx, snippetID)
	if err != nil {
		return nil, err
	}
	return rec.State(), nil
}

// Type returns the compliance type; PENDING when never reconciled.
func (r *Reconciler) Type(ctx context.Context, snippetID string) (models.ComplianceType, error) {
	state, err := r.State(ctx, snippetID)
	if err != nil {
		return "", err
	}
	return state.Type(), nil
}

// Errors returns the findings of the last result batch. The slice is empty,
// never nil, when there are none.
func (r *Reconciler) Errors(ctx context.Context, snippetID string) ([]models.ResultEntry, error) {
	state, err := r.State(ctx, snippetID)
	if err != nil {
		return nil, err
	}
	return models.StateErrors(state), nil
}

// Passes reports whether snippetID is COMPLIANT or PENDING.
func (r *Reconciler) Passes(ctx context.Context, snippetID string) (bool, error) {
	typ, err := r.Type(ctx, snippetID)
	if err != nil {
		return false, err
	}
	return typ.Passes(), nil
}
