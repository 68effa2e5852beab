// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"errors"
	"fmt"
	"strings"

	"github.com/goccy/go-json"

	"github.com/tomtom215/snipcheck/internal/models"
	"github.com/tomtom215/snipcheck/internal/validation"
)

// EncodeRequest marshals an evaluation request into its stream payload.
func EncodeRequest(req *models.EvaluationRequest) ([]byte, error) {
	if req == nil {
		return nil, errors.New("nil evaluation request")
	}
	if req.SnippetID == "" {
		return nil, errors.New("evaluation request without snippet id")
	}
	if req.UserRules == nil {
		req.UserRules = []models.UserRule{}
	}
	if req.AllRules == nil {
		req.AllRules = []string{}
	}
	data, err := json.Marshal(req)
	if err != nil {
		return nil, fmt.Errorf("marshal evaluation request: %w", err)
	}
	return data, nil
}

// DecodeRequest unmarshals a request payload. Used by workers and tests.
func DecodeRequest(data []byte) (*models.EvaluationRequest, error) {
	var req models.EvaluationRequest
	if err := json.Unmarshal(data, &req); err != nil {
		return nil, fmt.Errorf("unmarshal evaluation request: %w", err)
	}
	return &req, nil
}

// DecodeResultBatch unmarshals and validates a result batch. Every failure is
// a PermanentError: no redelivery can fix a malformed payload.
func DecodeResultBatch(data []byte) (*models.ResultBatch, error) {
	var batch models.ResultBatch
	if err := json.Unmarshal(data, &batch); err != nil {
		return nil, NewPermanentError("malformed result batch", err)
	}
	if strings.TrimSpace(batch.SnippetID) == "" {
		return nil, NewPermanentError("invalid result batch", errors.New("snippetId is required"))
	}
	for i := range batch.Results {
		if verr := validation.ValidateStruct(&batch.Results[i]); verr != nil {
			return nil, NewPermanentError(fmt.Sprintf("invalid result entry %d", i), verr)
		}
	}
	if batch.Results == nil {
		batch.Results = []models.ResultEntry{}
	}
	return &batch, nil
}

// EncodeResultBatch marshals a result batch. Used by tests and redrive tooling.
func EncodeResultBatch(batch *models.ResultBatch) ([]byte, error) {
	data, err := json.Marshal(batch)
	if err != nil {
		return nil, fmt.Errorf("marshal result batch: %w", err)
	}
	return data, nil
}

// peekSnippetID extracts snippetId from a payload that may not fully decode.
func peekSnippetID(data []byte) string {
	var probe struct {
		SnippetID string `json:"snippetId"`
	}
	if err := json.Unmarshal(data, &probe); err != nil {
		return ""
	}
	return probe.SnippetID
}
