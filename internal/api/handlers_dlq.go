// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/models"
)

const (
	defaultDeadLetterLimit = 100
	maxDeadLetterLimit     = 1000
)

// DeadLettersResponse is the response for listing dead letters.
type DeadLettersResponse struct {
	Entries []models.DeadLetter `json:"entries"`
	Count   int                 `json:"count"`
	Limit   int                 `json:"limit"`
}

// RedriveResponse reports the new delivery of a redriven dead letter.
type RedriveResponse struct {
	ID         string `json:"id"`
	DeliveryID string `json:"delivery_id"`
}

func (h *Handler) deadLettersEnabled(w http.ResponseWriter) bool {
	if h.deadLetters == nil {
		respondError(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Dead-letter store not configured", nil)
		return false
	}
	return true
}

// ListDeadLetters handles GET /admin/dead-letters?limit=.
func (h *Handler) ListDeadLetters(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.deadLettersEnabled(w) {
		return
	}

	limit := getIntParam(r, "limit", defaultDeadLetterLimit)
	if limit < 1 || limit > maxDeadLetterLimit {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, "limit must be between 1 and 1000", nil)
		return
	}

	entries, err := h.deadLetters.List(r.Context(), limit)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	if entries == nil {
		entries = []models.DeadLetter{}
	}
	respondSuccess(w, http.StatusOK, &DeadLettersResponse{Entries: entries, Count: len(entries), Limit: limit}, start)
}

// GetDeadLetter handles GET /admin/dead-letters/{id}.
func (h *Handler) GetDeadLetter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.deadLettersEnabled(w) {
		return
	}
	dl, err := h.deadLetters.Get(r.Context(), chi.URLParam(r, "id"))
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, dl, start)
}

// RedriveDeadLetter handles POST /admin/dead-letters/{id}/redrive.
func (h *Handler) RedriveDeadLetter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.deadLettersEnabled(w) {
		return
	}
	id := chi.URLParam(r, "id")
	deliveryID, err := h.deadLetters.Redrive(r.Context(), id)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	logging.Ctx(r.Context()).Info().
		Str("dead_letter_id", id).
		Str("delivery_id", deliveryID).
		Msg("Dead letter redriven")
	respondSuccess(w, http.StatusAccepted, &RedriveResponse{ID: id, DeliveryID: deliveryID}, start)
}

// DeleteDeadLetter handles DELETE /admin/dead-letters/{id}.
func (h *Handler) DeleteDeadLetter(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	if !h.deadLettersEnabled(w) {
		return
	}
	id := chi.URLParam(r, "id")
	if err := h.deadLetters.Delete(r.Context(), id); err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"deleted": id}, start)
}
