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
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/snipcheck/internal/database/query"
	"github.com/tomtom215/snipcheck/internal/models"
)

// SnippetCompliance pairs a snippet with its current compliance type.
// Snippets without a record report PENDING.
type SnippetCompliance struct {
	Snippet models.Snippet        `json:"snippet"`
	Type    models.ComplianceType `json:"compliance_type"`
}

// CreateSnippet stores snippet metadata, assigning an id and creation time if unset.
func (db *DB) CreateSnippet(ctx context.Context, s *models.Snippet) error {
	if s.ID == "" {
		s.ID = uuid.NewString()
	}
	if s.CreatedAt.IsZero() {
		s.CreatedAt = time.Now().UTC()
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO snippets (id, owner_id, title, language, version, created_at)
		VALUES (?, ?, ?, ?, ?, ?)`,
		s.ID, s.OwnerID, s.Title, s.LanguageVersion.Language, s.LanguageVersion.Version, s.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("create snippet: %w", err)
	}
	return nil
}

// FindSnippetByID returns models.ErrNotFound when the snippet does not exist.
func (db *DB) FindSnippetByID(ctx context.Context, id string) (*models.Snippet, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, owner_id, title, language, version, created_at
		FROM snippets WHERE id = ?`, id)
	s, err := scanSnippet(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("snippet %s: %w", id, models.ErrNotFound)
	}
	return s, err
}

// FindSnippetsByOwner returns the snippets owned by ownerID, oldest first.
func (db *DB) FindSnippetsByOwner(ctx context.Context, ownerID string) ([]models.Snippet, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, owner_id, title, language, version, created_at
		FROM snippets WHERE owner_id = ? ORDER BY created_at, id`, ownerID)
	if err != nil {
		return nil, fmt.Errorf("find snippets by owner: %w", err)
	}
	defer rows.Close()

	snippets := []models.Snippet{}
	for rows.Next() {
		s, err := scanSnippet(rows)
		if err != nil {
			return nil, err
		}
		snippets = append(snippets, *s)
	}
	return snippets, rows.Err()
}

// ListSnippetsWithCompliance returns the owner's snippets with their
// compliance type. When types is non-empty only snippets in one of those
// states are returned.
func (db *DB) ListSnippetsWithCompliance(ctx context.Context, ownerID string, types ...models.ComplianceType) ([]SnippetCompliance, error) {
	names := make([]string, len(types))
	for i, t := range types {
		names[i] = string(t)
	}
	where, whereArgs := query.NewWhereBuilder().
		AddClause("s.owner_id = ?", ownerID).
		AddIn("COALESCE(c.compliance_type, '"+string(models.CompliancePending)+"')", names...).
		BuildWithPrefix()

	args := append([]interface{}{string(models.CompliancePending)}, whereArgs...)
	rows, err := db.conn.QueryContext(ctx, `
		SELECT s.id, s.owner_id, s.title, s.language, s.version, s.created_at,
			COALESCE(c.compliance_type, ?)
		FROM snippets s
		LEFT JOIN compliance_records c ON c.snippet_id = s.id
		`+where+`
		ORDER BY s.created_at, s.id`, args...)
	if err != nil {
		return nil, fmt.Errorf("list snippets with compliance: %w", err)
	}
	defer rows.Close()

	out := []SnippetCompliance{}
	for rows.Next() {
		var sc SnippetCompliance
		var typ string
		if err := rows.Scan(&sc.Snippet.ID, &sc.Snippet.OwnerID, &sc.Snippet.Title,
			&sc.Snippet.LanguageVersion.Language, &sc.Snippet.LanguageVersion.Version,
			&sc.Snippet.CreatedAt, &typ); err != nil {
			return nil, fmt.Errorf("scan snippet compliance: %w", err)
		}
		if sc.Type, err = models.ParseComplianceType(typ); err != nil {
			return nil, err
		}
		out = append(out, sc)
	}
	return out, rows.Err()
}

// DeleteSnippet removes a snippet together with its compliance record.
func (db *DB) DeleteSnippet(ctx context.Context, id string) error {
	return db.withTx(ctx, func(tx *sql.Tx) error {
		if _, err := tx.ExecContext(ctx, `DELETE FROM compliance_records WHERE snippet_id = ?`, id); err != nil {
			return fmt.Errorf("delete compliance record: %w", err)
		}
		res, err := tx.ExecContext(ctx, `DELETE FROM snippets WHERE id = ?`, id)
		if err != nil {
			return fmt.Errorf("delete snippet: %w", err)
		}
		if n, err := res.RowsAffected(); err == nil && n == 0 {
			return fmt.Errorf("snippet %s: %w", id, models.ErrNotFound)
		}
		return nil
	})
}

func scanSnippet(row rowScanner) (*models.Snippet, error) {
	var s models.Snippet
	err := row.Scan(&s.ID, &s.OwnerID, &s.Title, &s.LanguageVersion.Language, &s.LanguageVersion.Version, &s.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan snippet: %w", err)
	}
	return &s, nil
}
