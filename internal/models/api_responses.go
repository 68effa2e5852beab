// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package models

import "time"

// APIResponse is the envelope returned by every HTTP endpoint.
//
// Status is "success" with Data populated, or "error" with Error populated.
type APIResponse struct {
	Status   string      `json:"status"`
	Data     interface{} `json:"data"`
	Metadata Metadata    `json:"metadata"`
	Error    *APIError   `json:"error,omitempty"`
}

// Metadata carries response timing information.
type Metadata struct {
	Timestamp   time.Time `json:"timestamp"`
	QueryTimeMS int64     `json:"query_time_ms,omitempty"`
}

// APIError is the structured error body.
//
// Common codes: VALIDATION_ERROR, NOT_FOUND, AUTHENTICATION_ERROR,
// AUTHORIZATION_ERROR, PUBLISH_FAILED, DATABASE_ERROR, INTERNAL_ERROR.
type APIError struct {
	Code    string                 `json:"code"`
	Message string                 `json:"message"`
	Details map[string]interface{} `json:"details,omitempty"`
}

// TriggerResponse is returned by the single-snippet lint and format triggers.
type TriggerResponse struct {
	SnippetID  string `json:"snippet_id"`
	DeliveryID string `json:"delivery_id"`
	Message    string `json:"message"`
}

// BatchTriggerResponse is returned by the batch lint and format triggers.
type BatchTriggerResponse struct {
	Published []PublishedRequest `json:"published"`
	Failures  []SnippetFailure   `json:"failures"`
}

// PublishedRequest identifies one request appended to the stream.
type PublishedRequest struct {
	SnippetID  string `json:"snippet_id"`
	DeliveryID string `json:"delivery_id"`
}

// SnippetFailure records why a snippet in a batch was not published.
type SnippetFailure struct {
	SnippetID string `json:"snippet_id"`
	Reason    string `json:"reason"`
}

// PassesResponse is returned by the compliance pass check.
type PassesResponse struct {
	SnippetID string         `json:"snippet_id"`
	Type      ComplianceType `json:"compliance_type"`
	Passes    bool           `json:"passes"`
}
