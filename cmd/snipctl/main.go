// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Command snipctl administers a snipcheck deployment: seeding the rule
// catalog, inspecting and redriving dead letters, applying result batches
// by hand and minting development tokens.
package main

import (
	"fmt"
	"os"
)

func main() {
	if err := newRootCmd().Execute(); err != nil {
		fmt.Fprintln(os.Stderr, "error:", err)
		os.Exit(1)
	}
}
