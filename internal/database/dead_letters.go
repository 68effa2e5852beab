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

	"github.com/tomtom215/snipcheck/internal/models"
)

// SaveDeadLetter stores a dead letter. Saving the same id twice updates the
// error and delivery count. Ids are derived from the message id, so a message
// redelivered after its Term was lost lands on its existing entry.
func (db *DB) SaveDeadLetter(ctx context.Context, dl *models.DeadLetter) error {
	if dl.CreatedAt.IsZero() {
		dl.CreatedAt = time.Now().UTC()
	}
	payload := dl.Payload
	if payload == nil {
		payload = []byte{}
	}
	_, err := db.conn.ExecContext(ctx, `
		INSERT INTO dead_letters (id, message_id, subject, snippet_id, payload, error, category, deliveries, created_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT (id) DO UPDATE SET
			error = EXCLUDED.error,
			category = EXCLUDED.category,
			deliveries = EXCLUDED.deliveries`,
		dl.ID, dl.MessageID, dl.Subject, dl.SnippetID, payload, dl.Error, dl.Category, dl.Deliveries, dl.CreatedAt.UTC())
	if err != nil {
		return fmt.Errorf("save dead letter %s: %w", dl.ID, err)
	}
	return nil
}

// GetDeadLetter returns models.ErrNotFound when id is unknown.
func (db *DB) GetDeadLetter(ctx context.Context, id string) (*models.DeadLetter, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, message_id, subject, snippet_id, payload, error, category, deliveries, created_at
		FROM dead_letters WHERE id = ?`, id)
	dl, err := scanDeadLetter(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("dead letter %s: %w", id, models.ErrNotFound)
	}
	return dl, err
}

// ListDeadLetters returns up to limit dead letters, newest first.
func (db *DB) ListDeadLetters(ctx context.Context, limit int) ([]models.DeadLetter, error) {
	if limit <= 0 {
		limit = 100
	}
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, message_id, subject, snippet_id, payload, error, category, deliveries, created_at
		FROM dead_letters ORDER BY created_at DESC, id LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("list dead letters: %w", err)
	}
	defer rows.Close()

	out := []models.DeadLetter{}
	for rows.Next() {
		dl, err := scanDeadLetter(rows)
		if err != nil {
			return nil, err
		}
		out = append(out, *dl)
	}
	return out, rows.Err()
}

// DeleteDeadLetter returns models.ErrNotFound when id is unknown.
func (db *DB) DeleteDeadLetter(ctx context.Context, id string) error {
	res, err := db.conn.ExecContext(ctx, `DELETE FROM dead_letters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete dead letter: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("dead letter %s: %w", id, models.ErrNotFound)
	}
	return nil
}

// CountDeadLetters returns the number of stored dead letters.
func (db *DB) CountDeadLetters(ctx context.Context) (int, error) {
	var n int
	if err := db.conn.QueryRowContext(ctx, `SELECT COUNT(*) FROM dead_letters`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count dead letters: %w", err)
	}
	return n, nil
}

func scanDeadLetter(row rowScanner) (*models.DeadLetter, error) {
	var dl models.DeadLetter
	err := row.Scan(&dl.ID, &dl.MessageID, &dl.Subject, &dl.SnippetID, &dl.Payload,
		&dl.Error, &dl.Category, &dl.Deliveries, &dl.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan dead letter: %w", err)
	}
	return &dl, nil
}
