// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/snipcheck/internal/auth"
	"github.com/tomtom215/snipcheck/internal/models"
	"github.com/tomtom215/snipcheck/internal/orchestrator"
)

// LintSnippet handles POST /snippets/{id}/lint.
func (h *Handler) LintSnippet(w http.ResponseWriter, r *http.Request) {
	h.triggerSingle(w, r, h.triggers.LintSingleSnippet)
}

// FormatSnippet handles POST /snippets/{id}/format.
func (h *Handler) FormatSnippet(w http.ResponseWriter, r *http.Request) {
	h.triggerSingle(w, r, h.triggers.FormatSingleSnippet)
}

// LintBatch handles POST /snippets/lint.
func (h *Handler) LintBatch(w http.ResponseWriter, r *http.Request) {
	h.triggerBatch(w, r, h.triggers.LintUserSnippets, h.triggers.LintSnippets)
}

// FormatBatch handles POST /snippets/format.
func (h *Handler) FormatBatch(w http.ResponseWriter, r *http.Request) {
	h.triggerBatch(w, r, h.triggers.FormatUserSnippets, h.triggers.FormatSnippets)
}

type singleTrigger func(ctx context.Context, snippetID, userID string) (*models.TriggerResponse, error)

type userTrigger func(ctx context.Context, userID string) (*orchestrator.BatchResult, error)

type idsTrigger func(ctx context.Context, snippetIDs []string, userID string) (*orchestrator.BatchResult, error)

func (h *Handler) triggerSingle(w http.ResponseWriter, r *http.Request, trigger singleTrigger) {
	start := time.Now()
	resp, err := trigger(r.Context(), chi.URLParam(r, "id"), auth.UserID(r.Context()))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusAccepted, resp, start)
}

func (h *Handler) triggerBatch(w http.ResponseWriter, r *http.Request, all userTrigger, some idsTrigger) {
	start := time.Now()
	userID := auth.UserID(r.Context())

	var req BatchTriggerRequest
	if err := decodeJSON(w, r, &req); err != nil && !errors.Is(err, errEmptyBody) {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	var (
		result *orchestrator.BatchResult
		err    error
	)
	if len(req.SnippetIDs) == 0 {
		result, err = all(r.Context(), userID)
	} else {
		result, err = some(r.Context(), req.SnippetIDs, userID)
	}
	if err != nil {
		var details map[string]interface{}
		if result != nil {
			resp := result.Response()
			details = map[string]interface{}{
				"published": resp.Published,
				"failures":  resp.Failures,
			}
		}
		respondServiceErrorWithDetails(w, err, details)
		return
	}
	respondSuccess(w, http.StatusAccepted, result.Response(), start)
}
