// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Package metrics exposes Prometheus instrumentation for request publishing,
// result consumption, compliance reconciliation, and the HTTP API.
package metrics

import (
	"strings"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	// Publishing
	RequestsPublished = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipcheck_requests_published_total",
			Help: "Evaluation requests appended to the stream",
		},
		[]string{"topic"},
	)

	PublishFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipcheck_publish_failures_total",
			Help: "Evaluation requests that failed to publish",
		},
		[]string{"topic"},
	)

	PublishDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snipcheck_publish_duration_seconds",
			Help:    "Time spent appending a request to the stream",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"topic"},
	)

	BatchSkipped = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipcheck_batch_snippets_skipped_total",
			Help: "Snippets skipped in batch triggers, by reason",
		},
		[]string{"kind", "reason"},
	)

	// Consumption
	ResultsConsumed = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipcheck_results_consumed_total",
			Help: "Result batches handled by the consumer, by outcome (acked, nacked, dead_lettered)",
		},
		[]string{"outcome"},
	)

	ConsumerPollErrors = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snipcheck_consumer_poll_errors_total",
			Help: "Errors returned while polling the result stream",
		},
	)

	ConsumerRunning = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snipcheck_consumer_running",
			Help: "1 while the result consumer loop is running",
		},
	)

	// Reconciliation
	ReconcileDuration = promauto.NewHistogram(
		prometheus.HistogramOpts{
			Name:    "snipcheck_reconcile_duration_seconds",
			Help:    "Duration of compliance upserts",
			Buckets: []float64{0.001, 0.005, 0.01, 0.025, 0.05, 0.1, 0.25, 0.5, 1},
		},
	)

	ReconcileTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipcheck_reconcile_total",
			Help: "Compliance upserts by resulting compliance type, or error",
		},
		[]string{"result"},
	)

	ReconcileConflictRetries = promauto.NewCounter(
		prometheus.CounterOpts{
			Name: "snipcheck_reconcile_conflict_retries_total",
			Help: "Compliance upserts retried after a transaction conflict",
		},
	)

	DeadLetters = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipcheck_dead_letters_total",
			Help: "Result batches moved to the dead-letter store, by category",
		},
		[]string{"category"},
	)

	// Circuit breaker
	CircuitBreakerState = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Name: "snipcheck_circuit_breaker_state",
			Help: "Circuit breaker state (0=closed, 1=half-open, 2=open)",
		},
		[]string{"name"},
	)

	// Authorization service
	AuthzDecisions = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipcheck_authz_decisions_total",
			Help: "Snippet read permission decisions by result (allowed, denied, error) and source (remote, cache)",
		},
		[]string{"result", "source"},
	)

	// API
	APIRequestsTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Name: "snipcheck_api_requests_total",
			Help: "HTTP requests by method, route and status",
		},
		[]string{"method", "route", "status"},
	)

	APIActiveRequests = promauto.NewGauge(
		prometheus.GaugeOpts{
			Name: "snipcheck_api_active_requests",
			Help: "HTTP requests currently being served",
		},
	)

	APIRequestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Name:    "snipcheck_api_request_duration_seconds",
			Help:    "HTTP request latency",
			Buckets: prometheus.DefBuckets,
		},
		[]string{"method", "route"},
	)
)

// RecordPublish records the outcome of one stream append.
func RecordPublish(topic string, duration time.Duration, err error) {
	PublishDuration.WithLabelValues(topic).Observe(duration.Seconds())
	if err != nil {
		PublishFailures.WithLabelValues(topic).Inc()
		return
	}
	RequestsPublished.WithLabelValues(topic).Inc()
}

// RecordReconcile records a compliance upsert. result is the compliance type
// written, ignored when err is non-nil.
func RecordReconcile(result string, duration time.Duration, err error) {
	ReconcileDuration.Observe(duration.Seconds())
	if err != nil {
		ReconcileTotal.WithLabelValues("error").Inc()
		return
	}
	ReconcileTotal.WithLabelValues(strings.ToLower(result)).Inc()
}

// RecordResultOutcome records what the consumer did with one delivery.
func RecordResultOutcome(outcome string) {
	ResultsConsumed.WithLabelValues(outcome).Inc()
}

// RecordDeadLetter records a result batch moved to the dead-letter store.
func RecordDeadLetter(category string) {
	DeadLetters.WithLabelValues(category).Inc()
}

// RecordAuthzDecision records one permission decision.
func RecordAuthzDecision(result, source string) {
	AuthzDecisions.WithLabelValues(result, source).Inc()
}

// RecordAPIRequest records an HTTP request.
func RecordAPIRequest(method, route, status string, duration time.Duration) {
	APIRequestsTotal.WithLabelValues(method, route, status).Inc()
	APIRequestDuration.WithLabelValues(method, route).Observe(duration.Seconds())
}

// TrackActiveRequest adjusts the in-flight request gauge.
func TrackActiveRequest(start bool) {
	if start {
		APIActiveRequests.Inc()
		return
	}
	APIActiveRequests.Dec()
}
