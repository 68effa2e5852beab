// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package main

import (
	"fmt"
	"os"
	"text/tabwriter"

	"github.com/goccy/go-json"
	"github.com/spf13/cobra"

	"github.com/tomtom215/snipcheck/internal/eventprocessor"
	"github.com/tomtom215/snipcheck/internal/logging"
)

func newDeadLettersCmd(flags *rootFlags) *cobra.Command {
	cmd := &cobra.Command{
		Use:     "dead-letters",
		Aliases: []string{"dlq"},
		Short:   "Inspect and redrive dead-lettered result batches",
	}
	cmd.AddCommand(newDeadLettersListCmd(flags))
	cmd.AddCommand(newDeadLettersRedriveCmd(flags))
	cmd.AddCommand(newDeadLettersDeleteCmd(flags))
	return cmd
}

func newDeadLettersListCmd(flags *rootFlags) *cobra.Command {
	var (
		limit      int
		jsonOutput bool
	)

	cmd := &cobra.Command{
		Use:   "list",
		Short: "List dead letters, newest first",
		Args:  cobra.NoArgs,
		RunE: func(cmd *cobra.Command, _ []string) error {
			db, err := openDB(flags)
			if err != nil {
				return err
			}
			defer closeDB(db)

			entries, err := db.ListDeadLetters(cmd.Context(), limit)
			if err != nil {
				return err
			}

			if jsonOutput {
				enc := json.NewEncoder(cmd.OutOrStdout())
				enc.SetIndent("", "  ")
				return enc.Encode(entries)
			}
			if len(entries) == 0 {
				fmt.Fprintln(cmd.OutOrStdout(), "No dead letters")
				return nil
			}

			tw := tabwriter.NewWriter(cmd.OutOrStdout(), 0, 4, 2, ' ', 0)
			fmt.Fprintln(tw, "ID\tSNIPPET\tCATEGORY\tDELIVERIES\tCREATED\tERROR")
			for _, dl := range entries {
				fmt.Fprintf(tw, "%s\t%s\t%s\t%d\t%s\t%s\n",
					dl.ID, dl.SnippetID, dl.Category, dl.Deliveries,
					dl.CreatedAt.Format("2006-01-02 15:04:05"), dl.Error)
			}
			return tw.Flush()
		},
	}

	cmd.Flags().IntVar(&limit, "limit", 100, "Maximum entries to list")
	cmd.Flags().BoolVar(&jsonOutput, "json", false, "Output in JSON format")
	return cmd
}

func newDeadLettersRedriveCmd(flags *rootFlags) *cobra.Command {
	var natsURL string

	cmd := &cobra.Command{
		Use:   "redrive ID",
		Short: "Republish a dead letter onto lint-results and remove it",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(flags)
			if err != nil {
				return err
			}
			defer closeDB(db)

			pub, err := eventprocessor.NewPublisher(eventprocessor.DefaultPublisherConfig(natsURL),
				logging.NewWatermillAdapter(logging.WithComponent("snipctl")))
			if err != nil {
				return err
			}
			defer func() { _ = pub.Close() }()

			deliveryID, err := eventprocessor.NewDeadLetterService(db, pub).Redrive(cmd.Context(), args[0])
			if err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Redrove %s as %s\n", args[0], deliveryID)
			return nil
		},
	}

	defaultURL := os.Getenv("NATS_URL")
	if defaultURL == "" {
		defaultURL = "nats://127.0.0.1:4222"
	}
	cmd.Flags().StringVar(&natsURL, "nats-url", defaultURL, "NATS server URL")
	return cmd
}

func newDeadLettersDeleteCmd(flags *rootFlags) *cobra.Command {
	return &cobra.Command{
		Use:   "delete ID",
		Short: "Discard a dead letter",
		Args:  cobra.ExactArgs(1),
		RunE: func(cmd *cobra.Command, args []string) error {
			db, err := openDB(flags)
			if err != nil {
				return err
			}
			defer closeDB(db)

			if err := db.DeleteDeadLetter(cmd.Context(), args[0]); err != nil {
				return err
			}
			fmt.Fprintf(cmd.OutOrStdout(), "Deleted %s\n", args[0])
			return nil
		},
	}
}
