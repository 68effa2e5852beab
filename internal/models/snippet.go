// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package models

import "time"

// LanguageVersion identifies the language and version a snippet is written in.
type LanguageVersion struct {
	Language string `json:"language"`
	Version  string `json:"version"`
}

// Snippet is a stored unit of user code. Content lives in the external asset
// store; only metadata is kept here.
type Snippet struct {
	ID              string          `json:"id"`
	OwnerID         string          `json:"owner_id"`
	Title           string          `json:"title"`
	LanguageVersion LanguageVersion `json:"language_version"`
	CreatedAt       time.Time       `json:"created_at"`
}
