// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package models

// Stream topics. Each topic is a JetStream subject inside the snippets stream.
const (
	TopicLintRequests   = "lint-requests"
	TopicFormatRequests = "formatting-requests"
	TopicLintResults    = "lint-results"
	TopicLintResultsDLQ = "lint-results-dlq"
)

// RequestTopic returns the topic a request of the given kind is published on.
func RequestTopic(kind RuleKind) string {
	if kind == RuleKindFormat {
		return TopicFormatRequests
	}
	return TopicLintRequests
}

// UserRule is one (ruleName, value) pair of an evaluation request.
// Value is a string for lint requests and an int for format requests.
type UserRule struct {
	RuleName string      `json:"ruleName"`
	Value    interface{} `json:"value"`
}

// EvaluationRequest is the stream payload asking a worker to lint or format a
// snippet. It is never persisted.
//
// AllRules is a snapshot of the full catalog at request time, and the names in
// UserRules are always a subset of it.
type EvaluationRequest struct {
	Kind           RuleKind   `json:"-"`
	SnippetID      string     `json:"snippetId"`
	SnippetVersion string     `json:"snippetVersion"`
	UserRules      []UserRule `json:"userRules"`
	AllRules       []string   `json:"allRules"`
	RequestedAt    int64      `json:"requestedAt"`
}

// ResultEntry is a single finding reported by a worker.
type ResultEntry struct {
	Message string `json:"message" validate:"required,max=2000"`
	Line    int    `json:"line" validate:"gte=0"`
	Column  int    `json:"column" validate:"gte=0"`
}

// ResultBatch is the worker output for one snippet.
// An empty Results slice means the snippet is compliant.
type ResultBatch struct {
	SnippetID string        `json:"snippetId"`
	Results   []ResultEntry `json:"results"`
}
