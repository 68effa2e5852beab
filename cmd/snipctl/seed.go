// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package main

import (
	"fmt"
	"strings"
	"text/tabwriter"

	"github.com/spf13/cobra"

	"github.com/tomtom215/snipcheck/internal/database"
	"github.com/tomtom215/snipcheck/internal/models"
)

func newSeedCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "seed",
		Short: "Seed the built-in lint and format rule catalog",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(flags)
			if err != nil {
				return err
			}
			defer closeDB(db)

			catalog := database.DefaultRuleCatalog()
			if err := db.SeedRules(cmd.Context(), catalog); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Seeded %d rules\n", len(catalog))
			return nil
		},
	}
}

func newRulesCmd(flags *rootFlags) *cobra.Command {
	var kind string

	cmd := &cobra.Command{
		Use:   "rules",
		Short: "List the rule catalog for a kind",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			k, err := models.ParseRuleKind(kind)
			if err != nil {
				return err
			}
			db, err := openDB(flags)
			if err != nil {
				return err
			}
			defer closeDB(db)

			rules, err := db.ListRules(cmd.Context(), k)
			if err != nil {
				return err
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "NAME\tVALUE\tDESCRIPTION")
			for _, r := range rules {
				value := "-"
				if r.HasValue {
					value = "any"
					if len(r.ValueOptions) > 0 {
						value = strings.Join(r.ValueOptions, "|")
					}
				}
				fmt.Fprintf(tw, "%s\t%s\t%s\n", r.Name, value, r.Description)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().StringVar(&kind, "kind", "lint", "Rule kind (lint or format)")
	return cmd
}
