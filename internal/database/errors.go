// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package database

import (
	"errors"
	"io"
	"strings"

	"github.com/tomtom215/snipcheck/internal/models"
)

// closeQuietly closes a resource in error paths where Close errors are not actionable.
func closeQuietly(closer io.Closer) {
	if closer != nil {
		_ = closer.Close() //nolint:errcheck // best-effort cleanup
	}
}

// isTransactionConflict checks if an error is a DuckDB transaction conflict
func isTransactionConflict(err error) bool {
	if err == nil {
		return false
	}
	errStr := err.Error()
	return strings.Contains(errStr, "Transaction conflict") ||
		strings.Contains(errStr, "Conflict on update") ||
		strings.Contains(errStr, "conflict on tuple")
}

// classifyWriteError marks DuckDB conflict errors with models.ErrConflict.
func classifyWriteError(err error) error {
	if isTransactionConflict(err) {
		return errors.Join(models.ErrConflict, err)
	}
	return err
}
