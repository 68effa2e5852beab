// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package api

import (
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/snipcheck/internal/auth"
	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/models"
)

// Compliance filters for GET /snippets
const (
	filterPassing = "passing"
	filterFailing = "failing"
)

// accessMode distinguishes read access, which the authorization service can
// grant, from write access, which only the owner or an admin has.
type accessMode int

const (
	accessRead accessMode = iota
	accessWrite
)

// loadSnippet resolves the {id} path parameter and checks that the caller
// may access it. On failure the error response has been written and nil is
// returned.
func (h *Handler) loadSnippet(w http.ResponseWriter, r *http.Request, mode accessMode) *models.Snippet {
	id := chi.URLParam(r, "id")
	snippet, err := h.store.FindSnippetByID(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return nil
	}

	subject := auth.GetSubject(r.Context())
	if subject.IsAdmin() || snippet.OwnerID == subject.ID {
		return snippet
	}
	if mode == accessRead && h.access != nil {
		ok, err := h.access.CanRead(r.Context(), subject.ID, snippet.ID)
		if err != nil {
			respondServiceError(w, err)
			return nil
		}
		if ok {
			return snippet
		}
	}
	respondServiceError(w, fmt.Errorf("snippet %s: %w", snippet.ID, models.ErrForbidden))
	return nil
}

// RegisterSnippet handles POST /snippets.
func (h *Handler) RegisterSnippet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RegisterSnippetRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	snippet := &models.Snippet{
		OwnerID: auth.UserID(r.Context()),
		Title:   strings.TrimSpace(req.Title),
		LanguageVersion: models.LanguageVersion{
			Language: strings.TrimSpace(req.Language),
			Version:  strings.TrimSpace(req.Version),
		},
	}
	if err := h.store.CreateSnippet(r.Context(), snippet); err != nil {
		respondServiceError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("snippet_id", snippet.ID).
		Str("owner_id", snippet.OwnerID).
		Msg("Snippet registered")
	respondSuccess(w, http.StatusCreated, snippet, start)
}

// ListSnippets handles GET /snippets with an optional compliance filter.
func (h *Handler) ListSnippets(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	filter := r.URL.Query().Get("compliance")
	if filter != "" && filter != filterPassing && filter != filterFailing {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "compliance must be one of: passing failing", nil)
		return
	}

	var types []models.ComplianceType
	switch filter {
	case filterPassing:
		types = []models.ComplianceType{models.ComplianceCompliant, models.CompliancePending}
	case filterFailing:
		types = []models.ComplianceType{models.ComplianceNonCompliant, models.ComplianceFailed}
	}

	out, err := h.store.ListSnippetsWithCompliance(r.Context(), auth.UserID(r.Context()), types...)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, out, start)
}

// GetSnippet handles GET /snippets/{id}.
func (h *Handler) GetSnippet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snippet := h.loadSnippet(w, r, accessRead)
	if snippet == nil {
		return
	}
	respondSuccess(w, http.StatusOK, snippet, start)
}

// DeleteSnippet handles DELETE /snippets/{id}. The compliance record goes
// with it.
func (h *Handler) DeleteSnippet(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	snippet := h.loadSnippet(w, r, accessWrite)
	if snippet == nil {
		return
	}
	if err := h.store.DeleteSnippet(r.Context(), snippet.ID); err != nil {
		respondServiceError(w, err)
		return
	}
	if f, ok := h.access.(interface{ Forget(snippetID string) }); ok {
		f.Forget(snippet.ID)
	}
	respondSuccess(w, http.StatusOK, map[string]string{"deleted": snippet.ID}, start)
}
