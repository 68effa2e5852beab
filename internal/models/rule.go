// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package models

import (
	"fmt"
	"strconv"
	"strings"
)

// RuleKind distinguishes the lint and format rule catalogs.
// Both catalogs share the same Rule shape.
type RuleKind string

const (
	// RuleKindLint identifies static-analysis rules evaluated by the lint worker.
	RuleKindLint RuleKind = "lint"

	// RuleKindFormat identifies formatting rules applied by the format worker.
	RuleKindFormat RuleKind = "format"
)

// Valid reports whether k is a known rule kind.
func (k RuleKind) Valid() bool {
	return k == RuleKindLint || k == RuleKindFormat
}

// ParseRuleKind converts a query or config string into a RuleKind.
func ParseRuleKind(s string) (RuleKind, error) {
	k := RuleKind(strings.ToLower(strings.TrimSpace(s)))
	if !k.Valid() {
		return "", fmt.Errorf("unknown rule kind %q", s)
	}
	return k, nil
}

// Rule is a named lint or format check from the catalog.
//
// Rules are created by the catalog seeding step and are immutable afterwards,
// except that ValueOptions may be corrected when the catalog is reseeded.
type Rule struct {
	ID           string   `json:"id"`
	Kind         RuleKind `json:"kind"`
	Name         string   `json:"name"`
	Description  string   `json:"description"`
	HasValue     bool     `json:"has_value"`
	ValueOptions []string `json:"value_options"`
}

// ValidateValue checks a user-supplied value against the rule definition.
// A nil value is always accepted for rules without a value and rejected for
// rules that require one.
func (r *Rule) ValidateValue(value *string) error {
	if !r.HasValue {
		if value != nil && *value != "" {
			return fmt.Errorf("%w: rule %s does not take a value", ErrInvalidRuleValue, r.Name)
		}
		return nil
	}
	if value == nil {
		return fmt.Errorf("%w: rule %s requires a value", ErrInvalidRuleValue, r.Name)
	}
	if r.Kind == RuleKindFormat {
		if _, err := strconv.Atoi(*value); err != nil {
			return fmt.Errorf("%w: rule %s requires an integer value", ErrInvalidRuleValue, r.Name)
		}
	}
	if len(r.ValueOptions) == 0 {
		return nil
	}
	for _, opt := range r.ValueOptions {
		if opt == *value {
			return nil
		}
	}
	return fmt.Errorf("%w: %q is not one of %v for rule %s", ErrInvalidRuleValue, *value, r.ValueOptions, r.Name)
}

// UserRuleConfig is the activation of one catalog rule for one user.
// The absence of a config for (user, rule) means the rule is inactive.
// Value is set only when the rule takes a value.
type UserRuleConfig struct {
	ID       string   `json:"id"`
	UserID   string   `json:"user_id"`
	RuleID   string   `json:"rule_id"`
	RuleName string   `json:"rule_name"`
	Kind     RuleKind `json:"kind"`
	Value    *string  `json:"value,omitempty"`
}

// ActiveRule is the read-side projection of a UserRuleConfig consumed by the
// request composer.
type ActiveRule struct {
	RuleName string
	Value    *string
}
