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
	"github.com/google/uuid"

	"github.com/tomtom215/snipcheck/internal/models"
)

// UpsertRule inserts a catalog rule or corrects its description and value
// options if a rule with the same kind and name exists. The rule id is kept.
func (db *DB) UpsertRule(ctx context.Context, rule *models.Rule) error {
	if !rule.Kind.Valid() {
		return fmt.Errorf("invalid rule kind %q", rule.Kind)
	}
	options := rule.ValueOptions
	if options == nil {
		options = []string{}
	}
	optionsJSON, err := json.Marshal(options)
	if err != nil {
		return fmt.Errorf("marshal value options: %w", err)
	}
	if rule.ID == "" {
		rule.ID = uuid.NewString()
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO rules (id, kind, name, description, has_value, value_options)
		VALUES (?, ?, ?, ?, ?, ?)
		ON CONFLICT (kind, name) DO UPDATE SET
			description = EXCLUDED.description,
			has_value = EXCLUDED.has_value,
			value_options = EXCLUDED.value_options`,
		rule.ID, string(rule.Kind), rule.Name, rule.Description, rule.HasValue, string(optionsJSON))
	if err != nil {
		return fmt.Errorf("upsert rule %s/%s: %w", rule.Kind, rule.Name, err)
	}
	return nil
}

// ListRules returns the full catalog for kind ordered by name.
func (db *DB) ListRules(ctx context.Context, kind models.RuleKind) ([]models.Rule, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT id, kind, name, description, has_value, CAST(value_options AS VARCHAR)
		FROM rules WHERE kind = ? ORDER BY name`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list rules: %w", err)
	}
	defer rows.Close()

	rules := []models.Rule{}
	for rows.Next() {
		rule, err := scanRule(rows)
		if err != nil {
			return nil, err
		}
		rules = append(rules, *rule)
	}
	return rules, rows.Err()
}

// ListRuleNames returns the names of every rule of kind, ordered by name.
func (db *DB) ListRuleNames(ctx context.Context, kind models.RuleKind) ([]string, error) {
	rows, err := db.conn.QueryContext(ctx, `SELECT name FROM rules WHERE kind = ? ORDER BY name`, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list rule names: %w", err)
	}
	defer rows.Close()

	names := []string{}
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("scan rule name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// FindRuleByName returns models.ErrNotFound when the rule does not exist.
func (db *DB) FindRuleByName(ctx context.Context, kind models.RuleKind, name string) (*models.Rule, error) {
	row := db.conn.QueryRowContext(ctx, `
		SELECT id, kind, name, description, has_value, CAST(value_options AS VARCHAR)
		FROM rules WHERE kind = ? AND name = ?`, string(kind), name)
	rule, err := scanRule(row)
	if errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("rule %s/%s: %w", kind, name, models.ErrNotFound)
	}
	return rule, err
}

type rowScanner interface {
	Scan(dest ...interface{}) error
}

func scanRule(row rowScanner) (*models.Rule, error) {
	var rule models.Rule
	var kind, options string
	if err := row.Scan(&rule.ID, &kind, &rule.Name, &rule.Description, &rule.HasValue, &options); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, err
		}
		return nil, fmt.Errorf("scan rule: %w", err)
	}
	rule.Kind = models.RuleKind(kind)
	if err := json.Unmarshal([]byte(options), &rule.ValueOptions); err != nil {
		return nil, fmt.Errorf("unmarshal value options of %s: %w", rule.Name, err)
	}
	if rule.ValueOptions == nil {
		rule.ValueOptions = []string{}
	}
	return &rule, nil
}
