// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package main

import (
	"errors"
	"fmt"
	"io"
	"os"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/snipcheck/internal/compliance"
	"github.com/tomtom215/snipcheck/internal/models"
)

type reconcileOptions struct {
	snippetID string
	file      string
	failed    bool
	reason    string
}

func newReconcileCmd(flags *rootFlags) *cobra.Command {
	opts := &reconcileOptions{}

	cmd := &cobra.Command{
		Use:   "reconcile",
		Short: "Apply a result batch (or a failure) to a snippet's compliance record",
		Long: `Apply lint results to a snippet's compliance record through the same
reconciler the result consumer uses.

--file takes a JSON array of {"message","line","column"} entries, or "-" for
stdin. An empty array marks the snippet COMPLIANT. --failed --reason marks
the evaluation itself as failed.`,
		Args: cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return runReconcile(cmd, flags, opts)
		},
	}

	cmd.Flags().StringVar(&opts.snippetID, "snippet", "", "Snippet id")
	cmd.Flags().StringVar(&opts.file, "file", "", "Results file (JSON array, - for stdin)")
	cmd.Flags().BoolVar(&opts.failed, "failed", false, "Mark the evaluation as failed")
	cmd.Flags().StringVar(&opts.reason, "reason", "", "Failure reason (with --failed)")
	_ = cmd.MarkFlagRequired("snippet")
	cmd.MarkFlagsMutuallyExclusive("file", "failed")

	return cmd
}

func runReconcile(cmd *cobra.Command, flags *rootFlags, opts *reconcileOptions) error {
	if !opts.failed && opts.file == "" {
		return errors.New("one of --file or --failed is required")
	}
	if opts.failed && opts.reason == "" {
		return errors.New("--reason is required with --failed")
	}

	var results []models.ResultEntry
	if !opts.failed {
		var err error
		if results, err = readResults(cmd.InOrStdin(), opts.file); err != nil {
			return err
		}
	}

	db, err := openDB(flags)
	if err != nil {
		return err
	}
	defer closeDB(db)

	reconciler := compliance.NewReconciler(db, compliance.DefaultConfig())
	var rec *models.ComplianceRecord
	if opts.failed {
		rec, err = reconciler.MarkFailed(cmd.Context(), opts.snippetID, opts.reason)
	} else {
		rec, err = reconciler.CreateOrUpdate(cmd.Context(), opts.snippetID, results)
	}
	if err != nil {
		return err
	}

	fmt.Fprintf(cmd.OutOrStdout(), "%s: %s (%d findings)\n", rec.SnippetID, rec.Type, len(rec.Errors))
	return nil
}

func readResults(stdin io.Reader, path string) ([]models.ResultEntry, error) {
	var r io.Reader = stdin
	if path != "-" {
		f, err := os.Open(path) //nolint:gosec // operator-supplied path
		if err != nil {
			return nil, fmt.Errorf("open results file: %w", err)
		}
		defer f.Close()
		r = f
	}

	var results []models.ResultEntry
	if err := json.NewDecoder(r).Decode(&results); err != nil {
		return nil, fmt.Errorf("decode results: %w", err)
	}
	if results == nil {
		results = []models.ResultEntry{}
	}
	return results, nil
}
