// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package database

import (
	"errors"

	"github.com/tomtom215/snipcheck/internal/models"
)

func isNotFound(err error) bool {
	return errors.Is(err, models.ErrNotFound)
}

func strPtr(s string) *string {
	return &s
}
