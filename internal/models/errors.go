// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package models

import "errors"

var (
	// ErrNotFound is returned when a snippet, rule, or rule config does not exist.
	ErrNotFound = errors.New("not found")

	// ErrInvalidRuleValue is returned when a rule value violates the rule definition.
	ErrInvalidRuleValue = errors.New("invalid rule value")

	// ErrPublisherClosed is returned when publishing after shutdown.
	ErrPublisherClosed = errors.New("publisher is closed")

	// ErrConflict marks a write that lost an optimistic-concurrency race.
	// The whole operation may be retried.
	ErrConflict = errors.New("write conflict")

	// ErrForbidden is returned when the authorization service denies access.
	ErrForbidden = errors.New("forbidden")
)
