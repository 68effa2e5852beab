// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Package middleware provides the HTTP middleware shared by every route:
// request ids wired into the logging context and Prometheus request
// instrumentation labelled by chi route pattern.
package middleware
