// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package api

import (
	"net/http"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/tomtom215/snipcheck/internal/auth"
	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/models"
)

// ListRules handles GET /rules?kind=.
func (h *Handler) ListRules(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	kind, err := parseKind(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}
	rules, err := h.store.ListRules(r.Context(), kind)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, rules, start)
}

// ListRuleConfigs handles GET /rules/config?kind=, the caller's active rules.
func (h *Handler) ListRuleConfigs(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	kind, err := parseKind(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}
	configs, err := h.store.ListUserRuleConfigs(r.Context(), auth.UserID(r.Context()), kind)
	if err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, configs, start)
}

// PutRuleConfig handles PUT /rules/config. Activation is idempotent; a second
// call updates the value.
func (h *Handler) PutRuleConfig(w http.ResponseWriter, r *http.Request) {
	start := time.Now()

	var req RuleConfigRequest
	if err := decodeJSON(w, r, &req); err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeBadRequest, err.Error(), nil)
		return
	}
	if apiErr := validateRequest(&req); apiErr != nil {
		respondValidationError(w, apiErr)
		return
	}

	userID := auth.UserID(r.Context())
	cfg, err := h.store.UpsertUserRuleConfig(r.Context(), userID, models.RuleKind(req.Kind), req.RuleName, req.Value)
	if err != nil {
		respondServiceError(w, err)
		return
	}

	logging.Ctx(r.Context()).Info().
		Str("user_id", userID).
		Str("kind", req.Kind).
		Str("rule", req.RuleName).
		Msg("Rule activated")
	respondSuccess(w, http.StatusOK, cfg, start)
}

// DeleteRuleConfig handles DELETE /rules/config/{ruleName}?kind=.
func (h *Handler) DeleteRuleConfig(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	kind, err := parseKind(r)
	if err != nil {
		respondError(w, http.StatusBadRequest, ErrCodeValidation, err.Error(), nil)
		return
	}
	ruleName := chi.URLParam(r, "ruleName")
	if err := h.store.DeleteUserRuleConfig(r.Context(), auth.UserID(r.Context()), kind, ruleName); err != nil {
		respondServiceError(w, err)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]string{"deactivated": ruleName}, start)
}
