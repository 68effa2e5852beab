// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Package services adapts snipcheck's blocking components to suture.Service.
//
// HTTPServerService turns ListenAndServe/Shutdown into Serve(ctx).
// ConsumerService runs the result consumer's poll loop and stops it with the
// context.
package services
