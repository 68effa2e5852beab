// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package main

import (
	"io"
	"os"

	"github.com/spf13/cobra"

	"github.com/tomtom215/snipcheck/internal/config"
	"github.com/tomtom215/snipcheck/internal/database"
	"github.com/tomtom215/snipcheck/internal/logging"
)

type rootFlags struct {
	dbPath   string
	logLevel string
}

func newRootCmd() *cobra.Command {
	flags := &rootFlags{}

	cmd := &cobra.Command{
		Use:           "snipctl",
		Short:         "Administer a snipcheck deployment",
		SilenceUsage:  true,
		SilenceErrors: true,
		PersistentPreRun: func(cmd *cobra.Command, _ []string) {
			initLogging(cmd.ErrOrStderr(), flags.logLevel)
		},
	}

	defaultDB := os.Getenv("DUCKDB_PATH")
	if defaultDB == "" {
		defaultDB = "./data/snipcheck.duckdb"
	}
	cmd.PersistentFlags().StringVar(&flags.dbPath, "db", defaultDB, "DuckDB database path")
	cmd.PersistentFlags().StringVar(&flags.logLevel, "log-level", "warn", "Log level")

	cmd.AddCommand(newSeedCmd(flags))
	cmd.AddCommand(newRulesCmd(flags))
	cmd.AddCommand(newDeadLettersCmd(flags))
	cmd.AddCommand(newReconcileCmd(flags))
	cmd.AddCommand(newTokenCmd())

	return cmd
}

func initLogging(w io.Writer, level string) {
	cfg := logging.DefaultConfig()
	cfg.Level = level
	cfg.Format = "console"
	cfg.Output = w
	logging.Init(cfg)
}

func openDB(flags *rootFlags) (*database.DB, error) {
	return database.New(&config.DatabaseConfig{Path: flags.dbPath})
}

func closeDB(db *database.DB) {
	if err := db.Close(); err != nil {
		logging.Warn().Err(err).Msg("Error closing database")
	}
}
