// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package database

import (
	"context"
	"fmt"
)

// schemaStatements are applied in order on every start. All are idempotent.
//
// There are no foreign keys: DuckDB rejects UPDATE on referenced rows and
// catalog reseeding updates rules. Referential checks live in the write paths.
var schemaStatements = []string{
	`CREATE TABLE IF NOT EXISTS snippets (
		id VARCHAR PRIMARY KEY,
		owner_id VARCHAR NOT NULL,
		title VARCHAR NOT NULL,
		language VARCHAR NOT NULL,
		version VARCHAR NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
	`CREATE INDEX IF NOT EXISTS idx_snippets_owner ON snippets(owner_id)`,

	`CREATE TABLE IF NOT EXISTS rules (
		id VARCHAR PRIMARY KEY,
		kind VARCHAR NOT NULL,
		name VARCHAR NOT NULL,
		description VARCHAR NOT NULL DEFAULT '',
		has_value BOOLEAN NOT NULL DEFAULT false,
		value_options JSON NOT NULL DEFAULT '[]',
		UNIQUE (kind, name)
	)`,

	`CREATE TABLE IF NOT EXISTS user_rule_configs (
		id VARCHAR PRIMARY KEY,
		user_id VARCHAR NOT NULL,
		rule_id VARCHAR NOT NULL,
		value VARCHAR,
		updated_at TIMESTAMP NOT NULL,
		UNIQUE (user_id, rule_id)
	)`,

	// One row per snippet. snippet_id is the only indexed column so the
	// ON CONFLICT update never touches an index.
	`CREATE TABLE IF NOT EXISTS compliance_records (
		snippet_id VARCHAR PRIMARY KEY,
		id VARCHAR NOT NULL,
		compliance_type VARCHAR NOT NULL,
		errors JSON NOT NULL DEFAULT '[]',
		failure_reason VARCHAR NOT NULL DEFAULT '',
		linted_at TIMESTAMP NOT NULL
	)`,

	`CREATE TABLE IF NOT EXISTS dead_letters (
		id VARCHAR PRIMARY KEY,
		message_id VARCHAR NOT NULL,
		subject VARCHAR NOT NULL,
		snippet_id VARCHAR NOT NULL DEFAULT '',
		payload BLOB NOT NULL,
		error VARCHAR NOT NULL,
		category VARCHAR NOT NULL,
		deliveries INTEGER NOT NULL,
		created_at TIMESTAMP NOT NULL
	)`,
}

func (db *DB) createSchema(ctx context.Context) error {
	for _, stmt := range schemaStatements {
		if _, err := db.conn.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("apply schema: %w", err)
		}
	}
	// Checkpoint so the schema survives a crash before the first write.
	if _, err := db.conn.ExecContext(ctx, "CHECKPOINT"); err != nil {
		return fmt.Errorf("checkpoint schema: %w", err)
	}
	return nil
}
