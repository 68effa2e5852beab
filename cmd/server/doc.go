// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Package main is the snipcheck server.
//
// Startup order:
//
//  1. Configuration (koanf: defaults, config.yaml, environment)
//  2. Logging (zerolog)
//  3. DuckDB store, seeding the rule catalog when SEED_RULES is set
//  4. Messaging: embedded NATS (optional), stream and consumer group,
//     publisher with circuit breaker, dead-letter routing, result consumer
//  5. Authorization client (optional) and the trigger orchestrator
//  6. HTTP API (chi)
//  7. Supervisor tree running the result consumer and the HTTP server
//
// SIGINT and SIGTERM cancel the tree. The consumer finishes the batch it is
// reconciling, the HTTP server drains, then the publisher, the NATS
// connection and the embedded server are closed.
//
// Development setup with an embedded broker and trusted headers:
//
//	export NATS_EMBEDDED=true
//	export AUTH_MODE=header
//	export SEED_RULES=true
//	./snipcheck
package main
