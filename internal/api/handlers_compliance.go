// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/models"
)

// complianceView is the JSON form of a ComplianceState.
type complianceView struct {
	SnippetID string                `json:"snippet_id"`
	Type      models.ComplianceType `json:"compliance_type"`
	Passes    bool                  `json:"passes"`
	Errors    []models.ResultEntry  `json:"errors"`
	Reason    string                `json:"failure_reason,omitempty"`
	LintedAt  *time.Time            `json:"linted_at,omitempty"`
}

func newComplianceView(snippetID string, state models.ComplianceState) *complianceView {
	v := &complianceView{
		SnippetID: snippetID,
		Type:      state.Type(),
		Passes:    state.Type().Passes(),
		Errors:    models.StateErrors(state),
	}
	if f, ok := state.(models.Failed); ok {
		v.Reason = f.Reason
	}
	return v
}

// PutCompliance handles PUT /snippets/{id}/compliance, the synchronous
// result path. It goes through the same reconciler as the consumer.
func (h *Handler) PutCompliance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snippet := h.loadSnippet(w, r, accessWrite)
	if snippet == nil {
		return
	}

	var req ComplianceResultRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	var (
		record *models.ComplianceRecord
		err    error
	)
	if req.Failed {
		record, err = h.compliance.MarkFailed(r.Context(), snippet.ID, req.Reason)
	} else {
		record, err = h.compliance.CreateOrUpdate(r.Context(), snippet.ID, req.Results)
	}
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("snippet_id", snippet.ID).
		Str("compliance_type", string(record.Type)).
		Int("errors", len(record.Errors)).
		Msg("Compliance recorded via API")

	view := newComplianceView(snippet.ID, record.State())
	lintedAt := record.LintedAt
	view.LintedAt = &lintedAt
	respondSuccess(w, http.StatusOK, view, start)
}

// GetCompliance handles GET /snippets/{id}/compliance.
func (h *Handler) GetCompliance(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snippet := h.loadSnippet(w, r, accessRead)
	if snippet == nil {
		return
	}
	state, err := h.compliance.State(r.Context(), snippet.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, newComplianceView(snippet.ID, state), start)
}

// GetComplianceType handles GET /snippets/{id}/compliance/type.
func (h *Handler) GetComplianceType(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snippet := h.loadSnippet(w, r, accessRead)
	if snippet == nil {
		return
	}
	t, err := h.compliance.Type(r.Context(), snippet.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"snippet_id":      snippet.ID,
		"compliance_type": t,
	}, start)
}

// GetComplianceErrors handles GET /snippets/{id}/compliance/errors.
func (h *Handler) GetComplianceErrors(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snippet := h.loadSnippet(w, r, accessRead)
	if snippet == nil {
		return
	}
	errs, err := h.compliance.Errors(r.Context(), snippet.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, errs, start)
}

// GetCompliancePasses handles GET /snippets/{id}/compliance/passes.
func (h *Handler) GetCompliancePasses(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snippet := h.loadSnippet(w, r, accessRead)
	if snippet == nil {
		return
	}
	t, err := h.compliance.Type(r.Context(), snippet.ID)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, &models.PassesResponse{
		SnippetID: snippet.ID,
		Type:      t,
		Passes:    t.Passes(),
	}, start)
}
