// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package models

import "time"

// DeadLetter is a result batch that could not be reconciled and was removed
// from the stream. Payload holds the raw message body, which may not be valid JSON.
type DeadLetter struct {
	ID         string    `json:"id"`
	MessageID  string    `json:"message_id"`
	Subject    string    `json:"subject"`
	SnippetID  string    `json:"snippet_id,omitempty"`
	Payload    []byte    `json:"payload"`
	Error      string    `json:"error"`
	Category   string    `json:"category"`
	Deliveries int       `json:"deliveries"`
	CreatedAt  time.Time `json:"created_at"`
}
