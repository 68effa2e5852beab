// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package orchestrator

import (
	"context"
	"fmt"
	"strconv"
	"time"

	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/models"
)

// RuleReader reads the rule catalog and per-user activations.
// Implemented by *database.DB.
type RuleReader interface {
	FindActiveRules(ctx context.Context, userID string, kind models.RuleKind) ([]models.ActiveRule, error)
	ListRuleNames(ctx context.Context, kind models.RuleKind) ([]string, error)
}

// RuleSet is the rule part of an evaluation request: the caller's active
// rules and a snapshot of the whole catalog. One RuleSet is computed per
// trigger call and shared by every snippet in it.
type RuleSet struct {
	Kind      models.RuleKind
	UserRules []models.UserRule
	AllRules  []string
}

// Composer builds evaluation requests.
type Composer struct {
	rules RuleReader
	now   func() time.Time
}

// NewComposer creates a composer over rules.
func NewComposer(rules RuleReader) *Composer {
	return &Composer{rules: rules, now: time.Now}
}

// Rules computes the RuleSet for userID. A rule without a value is sent as
// "" for lint and 0 for format; workers rely on that encoding.
func (c *Composer) Rules(ctx context.Context, userID string, kind models.RuleKind) (*RuleSet, error) {
	if !kind.Valid() {
		return nil, fmt.Errorf("unknown rule kind %q", kind)
	}

	active, err := c.rules.FindActiveRules(ctx, userID, kind)
	if err != nil {
		return nil, fmt.Errorf("load active %s rules for user %s: %w", kind, userID, err)
	}
	all, err := c.rules.ListRuleNames(ctx, kind)
	if err != nil {
		return nil, fmt.Errorf("load %s rule catalog: %w", kind, err)
	}
	if all == nil {
		all = []string{}
	}

	known := make(map[string]struct{}, len(all))
	for _, name := range all {
		known[name] = struct{}{}
	}

	userRules := make([]models.UserRule, 0, len(active))
	for _, a := range active {
		if _, ok := known[a.RuleName]; !ok {
			logging.Ctx(ctx).Warn().
				Str("user_id", userID).
				Str("rule", a.RuleName).
				Msg("Active rule missing from catalog, skipped")
			continue
		}
		value, err := wireValue(kind, a.Value)
		if err != nil {
			return nil, fmt.Errorf("rule %s for user %s: %w", a.RuleName, userID, err)
		}
		userRules = append(userRules, models.UserRule{RuleName: a.RuleName, Value: value})
	}

	return &RuleSet{Kind: kind, UserRules: userRules, AllRules: all}, nil
}

// wireValue converts a stored value into the payload encoding for kind.
func wireValue(kind models.RuleKind, value *string) (interface{}, error) {
	if kind == models.RuleKindFormat {
		if value == nil || *value == "" {
			return 0, nil
		}
		n, err := strconv.Atoi(*value)
		if err != nil {
			return nil, fmt.Errorf("%w: %q is not an integer", models.ErrInvalidRuleValue, *value)
		}
		return n, nil
	}
	if value == nil {
		return "", nil
	}
	return *value, nil
}

// Compose assembles the request for one snippet from a precomputed RuleSet.
func (c *Composer) Compose(snippet *models.Snippet, rules *RuleSet) *models.EvaluationRequest {
	return &models.EvaluationRequest{
		Kind:           rules.Kind,
		SnippetID:      snippet.ID,
		SnippetVersion: snippet.LanguageVersion.Version,
		UserRules:      rules.UserRules,
		AllRules:       rules.AllRules,
		RequestedAt:    c.now().UnixMilli(),
	}
}
