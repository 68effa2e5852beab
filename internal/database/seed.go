// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package database

import (
	"context"
	"fmt"

	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/models"
)

// DefaultRuleCatalog is the built-in lint and format catalog.
func DefaultRuleCatalog() []models.Rule {
	return []models.Rule{
		{Kind: models.RuleKindLint, Name: "identifier_format",
			Description: "Identifiers must follow the selected naming convention",
			HasValue:    true, ValueOptions: []string{"camel case", "snake case"}},
		{Kind: models.RuleKindLint, Name: "mandatory-variable-or-literal-in-println",
			Description: "println may only be called with a variable or a literal"},
		{Kind: models.RuleKindLint, Name: "mandatory-variable-or-literal-in-readInput",
			Description: "readInput may only be called with a variable or a literal"},

		{Kind: models.RuleKindFormat, Name: "space_before_colon",
			Description: "Require a space before ':' in declarations"},
		{Kind: models.RuleKindFormat, Name: "space_after_colon",
			Description: "Require a space after ':' in declarations"},
		{Kind: models.RuleKindFormat, Name: "space_around_equals",
			Description: "Require spaces around '=' in assignments"},
		{Kind: models.RuleKindFormat, Name: "space_around_operators",
			Description: "Require spaces around binary operators"},
		{Kind: models.RuleKindFormat, Name: "newline_before_println",
			Description: "Number of blank lines before each println",
			HasValue:    true, ValueOptions: []string{"0", "1", "2"}},
		{Kind: models.RuleKindFormat, Name: "indent_inside_if",
			Description: "Indentation width inside if blocks",
			HasValue:    true, ValueOptions: []string{"2", "4"}},
	}
}

// SeedRules upserts every rule in catalog. Running it again is a no-op apart
// from correcting descriptions and value options.
func (db *DB) SeedRules(ctx context.Context, catalog []models.Rule) error {
	for i := range catalog {
		rule := catalog[i]
		if err := db.UpsertRule(ctx, &rule); err != nil {
			return fmt.Errorf("seed rule catalog: %w", err)
		}
	}
	logging.Info().Int("rules", len(catalog)).Msg("Rule catalog seeded")
	return nil
}
