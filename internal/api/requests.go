// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package api

import (
	"bytes"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strconv"

	"github.com/goccy/go-json"

	"github.com/tomtom215/snipcheck/internal/models"
)

// maxBodyBytes bounds request bodies. Result batches are the largest payload.
const maxBodyBytes = 4 << 20

// errEmptyBody is returned by decodeJSON for a missing body.
var errEmptyBody = errors.New("request body is empty")

// RegisterSnippetRequest registers snippet metadata. The content lives in the
// asset store; only the language version matters here.
type RegisterSnippetRequest struct {
	Title    string `json:"title" validate:"required,notblank,max=200"`
	Language string `json:"language" validate:"required,notblank,max=50"`
	Version  string `json:"version" validate:"required,notblank,max=20"`
}

// BatchTriggerRequest selects snippets explicitly. An empty list or missing
// body means every snippet the caller owns.
type BatchTriggerRequest struct {
	SnippetIDs []string `json:"snippetIds" validate:"max=500,dive,required,max=100"`
}

// ComplianceResultRequest is the synchronous result path. A worker that
// could not evaluate the snippet sets Failed with a Reason.
type ComplianceResultRequest struct {
	Results []models.ResultEntry `json:"results" validate:"max=10000,dive"`
	Failed  bool                 `json:"failed"`
	Reason  string               `json:"reason" validate:"required_if=Failed true,max=2000"`
}

// RuleConfigRequest activates a rule for the caller or updates its value.
type RuleConfigRequest struct {
	Kind     string  `json:"kind" validate:"required,rulekind"`
	RuleName string  `json:"ruleName" validate:"required,notblank,max=100"`
	Value    *string `json:"value,omitempty" validate:"omitempty,max=100"`
}

// decodeJSON reads a bounded JSON body into v.
func decodeJSON(w http.ResponseWriter, r *http.Request, v interface{}) error {
	body, err := io.ReadAll(http.MaxBytesReader(w, r.Body, maxBodyBytes))
	if err != nil {
		return fmt.Errorf("read body: %w", err)
	}
	if len(bytes.TrimSpace(body)) == 0 {
		return errEmptyBody
	}
	if err := json.Unmarshal(body, v); err != nil {
		return fmt.Errorf("invalid JSON: %w", err)
	}
	return nil
}

// parseKind reads the kind query parameter.
func parseKind(r *http.Request) (models.RuleKind, error) {
	raw := r.URL.Query().Get("kind")
	if raw == "" {
		return "", errors.New("kind query parameter is required (lint or format)")
	}
	return models.ParseRuleKind(raw)
}

// getIntParam extracts an integer query parameter with a default value
func getIntParam(r *http.Request, key string, defaultValue int) int {
	value := r.URL.Query().Get(key)
	if value == "" {
		return defaultValue
	}
	n, err := strconv.Atoi(value)
	if err != nil {
		return defaultValue
	}
	return n
}
