// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package database

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/goccy/go-json"

	"github.com/tomtom215/snipcheck/internal/models"
)

// UpsertCompliance stores rec as the only compliance record of its snippet,
// replacing any previous record in a single statement.
//
// Returns models.ErrNotFound if the snippet does not exist and models.ErrConflict
// (joined with the driver error) when a concurrent writer won the race.
func (db *DB) UpsertCompliance(ctx context.Context, rec *models.ComplianceRecord) error {
	findings := rec.Errors
	if findings == nil {
		findings = []models.ResultEntry{}
	}
	errorsJSON, err := json.Marshal(findings)
	if err != nil {
		return fmt.Errorf("marshal compliance errors: %w", err)
	}

	return db.withTx(ctx, func(tx *sql.Tx) error {
		var exists int
		err := tx.QueryRowContext(ctx, `SELECT COUNT(*) FROM snippets WHERE id = ?`, rec.SnippetID).Scan(&exists)
		if err != nil {
			return fmt.Errorf("check snippet: %w", err)
		}
		if exists == 0 {
			return fmt.Errorf("snippet %s: %w", rec.SnippetID, models.ErrNotFound)
		}

		_, err = tx.ExecContext(ctx, `
			INSERT INTO compliance_records (snippet_id, id, compliance_type, errors, failure_reason, linted_at)
			VALUES (?, ?, ?, ?, ?, ?)
			ON CONFLICT (snippet_id) DO UPDATE SET
				id = EXCLUDED.id,
				compliance_type = EXCLUDED.compliance_type,
				errors = EXCLUDED.errors,
				failure_reason = EXCLUDED.failure_reason,
				linted_at = EXCLUDED.linted_at`,
			rec.SnippetID, rec.ID, string(rec.Type), string(errorsJSON), rec.FailureReason, rec.LintedAt.UTC())
		if err != nil {
			return fmt.Errorf("upsert compliance for %s: %w", rec.SnippetID, classifyWriteError(err))
		}
		return nil
	})
}

// FindComplianceBySnippetID returns the current record, or nil if the snippet
// has never been reconciled.
func (db *DB) FindComplianceBySnippetID(ctx context.Context, snippetID string) (*models.ComplianceRecord, error) {
	var rec models.ComplianceRecord
	var typ, errorsJSON string
	err := db.conn.QueryRowContext(ctx, `
		SELECT snippet_id, id, compliance_type, CAST(errors AS VARCHAR), failure_reason, linted_at
		FROM compliance_records WHERE snippet_id = ?`, snippetID).
		Scan(&rec.SnippetID, &rec.ID, &typ, &errorsJSON, &rec.FailureReason, &rec.LintedAt)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, nil
	}
	if err != nil {
		return nil, fmt.Errorf("find compliance for %s: %w", snippetID, err)
	}

	if rec.Type, err = models.ParseComplianceType(typ); err != nil {
		return nil, err
	}
	if err := json.Unmarshal([]byte(errorsJSON), &rec.Errors); err != nil {
		return nil, fmt.Errorf("unmarshal compliance errors: %w", err)
	}
	if rec.Errors == nil {
		rec.Errors = []models.ResultEntry{}
	}
	return &rec, nil
}

// DeleteComplianceBySnippetID removes the record of a snippet, if any.
func (db *DB) DeleteComplianceBySnippetID(ctx context.Context, snippetID string) error {
	if _, err := db.conn.ExecContext(ctx, `DELETE FROM compliance_records WHERE snippet_id = ?`, snippetID); err != nil {
		return fmt.Errorf("delete compliance for %s: %w", snippetID, err)
	}
	return nil
}

// CountComplianceRecords returns how many records exist for snippetID.
// The schema guarantees the answer is 0 or 1.
func (db *DB) CountComplianceRecords(ctx context.Context, snippetID string) (int, error) {
	var n int
	err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM compliance_records WHERE snippet_id = ?`, snippetID).Scan(&n)
	if err != nil {
		return 0, fmt.Errorf("count compliance records: %w", err)
	}
	return n, nil
}
