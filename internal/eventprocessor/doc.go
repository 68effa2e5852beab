// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Package eventprocessor moves evaluation requests and results across NATS
// JetStream.
//
// # Topology
//
// A single stream (SNIPPETS by default) carries four subjects:
//
//	lint-requests        orchestrator -> lint workers
//	formatting-requests  orchestrator -> format workers
//	lint-results         workers -> ResultConsumer
//	lint-results-dlq     ResultConsumer -> operators
//
// Requests are published through Watermill's NATS publisher wrapped in a
// gobreaker circuit breaker. Results are pulled by a durable consumer shared
// by every instance (the consumer group), so each result batch is handled by
// exactly one instance at a time.
//
// # Delivery semantics
//
// A result batch is acknowledged only after the compliance record is stored.
// Transient failures are negatively acknowledged and redelivered after a
// delay. Malformed payloads, unknown snippets, and batches that exhausted
// their redeliveries are written to the dead_letters table, published on
// lint-results-dlq, and terminated.
package eventprocessor
