// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package database

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	"github.com/google/uuid"

	"github.com/tomtom215/snipcheck/internal/models"
)

// UpsertUserRuleConfig activates ruleName for userID, or updates its value if
// already active. The value is validated against the rule definition.
func (db *DB) UpsertUserRuleConfig(ctx context.Context, userID string, kind models.RuleKind, ruleName string, value *string) (*models.UserRuleConfig, error) {
	rule, err := db.FindRuleByName(ctx, kind, ruleName)
	if err != nil {
		return nil, err
	}
	if err := rule.ValidateValue(value); err != nil {
		return nil, err
	}

	var stored sql.NullString
	if rule.HasValue && value != nil {
		stored = sql.NullString{String: *value, Valid: true}
	}

	_, err = db.conn.ExecContext(ctx, `
		INSERT INTO user_rule_configs (id, user_id, rule_id, value, updated_at)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT (user_id, rule_id) DO UPDATE SET
			value = EXCLUDED.value,
			updated_at = EXCLUDED.updated_at`,
		uuid.NewString(), userID, rule.ID, stored, time.Now().UTC())
	if err != nil {
		return nil, fmt.Errorf("upsert rule config %s for user %s: %w", ruleName, userID, classifyWriteError(err))
	}

	var cfg models.UserRuleConfig
	err = db.conn.QueryRowContext(ctx, `
		SELECT id FROM user_rule_configs WHERE user_id = ? AND rule_id = ?`, userID, rule.ID).Scan(&cfg.ID)
	if err != nil {
		return nil, fmt.Errorf("read rule config: %w", err)
	}
	cfg.UserID = userID
	cfg.RuleID = rule.ID
	cfg.RuleName = rule.Name
	cfg.Kind = rule.Kind
	if stored.Valid {
		v := stored.String
		cfg.Value = &v
	}
	return &cfg, nil
}

// DeleteUserRuleConfig deactivates ruleName for userID.
// Returns models.ErrNotFound when the rule was not active.
func (db *DB) DeleteUserRuleConfig(ctx context.Context, userID string, kind models.RuleKind, ruleName string) error {
	rule, err := db.FindRuleByName(ctx, kind, ruleName)
	if err != nil {
		return err
	}
	res, err := db.conn.ExecContext(ctx, `
		DELETE FROM user_rule_configs WHERE user_id = ? AND rule_id = ?`, userID, rule.ID)
	if err != nil {
		return fmt.Errorf("delete rule config: %w", err)
	}
	if n, err := res.RowsAffected(); err == nil && n == 0 {
		return fmt.Errorf("rule config %s for user %s: %w", ruleName, userID, models.ErrNotFound)
	}
	return nil
}

// ListUserRuleConfigs returns the active configs of userID for kind, ordered by rule name.
func (db *DB) ListUserRuleConfigs(ctx context.Context, userID string, kind models.RuleKind) ([]models.UserRuleConfig, error) {
	rows, err := db.conn.QueryContext(ctx, `
		SELECT c.id, c.user_id, c.rule_id, r.name, r.kind, c.value
		FROM user_rule_configs c
		JOIN rules r ON r.id = c.rule_id
		WHERE c.user_id = ? AND r.kind = ?
		ORDER BY r.name`, userID, string(kind))
	if err != nil {
		return nil, fmt.Errorf("list rule configs: %w", err)
	}
	defer rows.Close()

	configs := []models.UserRuleConfig{}
	for rows.Next() {
		var cfg models.UserRuleConfig
		var ruleKind string
		var value sql.NullString
		if err := rows.Scan(&cfg.ID, &cfg.UserID, &cfg.RuleID, &cfg.RuleName, &ruleKind, &value); err != nil {
			return nil, fmt.Errorf("scan rule config: %w", err)
		}
		cfg.Kind = models.RuleKind(ruleKind)
		if value.Valid {
			v := value.String
			cfg.Value = &v
		}
		configs = append(configs, cfg)
	}
	return configs, rows.Err()
}

// FindActiveRules returns (ruleName, value) for every rule of kind active for userID.
func (db *DB) FindActiveRules(ctx context.Context, userID string, kind models.RuleKind) ([]models.ActiveRule, error) {
	configs, err := db.ListUserRuleConfigs(ctx, userID, kind)
	if err != nil {
		return nil, err
	}
	active := make([]models.ActiveRule, 0, len(configs))
	for _, cfg := range configs {
		active = append(active, models.ActiveRule{RuleName: cfg.RuleName, Value: cfg.Value})
	}
	return active, nil
}
