// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package api

import (
	"context"
	"time"

	"github.com/tomtom215/snipcheck/internal/database"
	"github.com/tomtom215/snipcheck/internal/eventprocessor"
	"github.com/tomtom215/snipcheck/internal/models"
	"github.com/tomtom215/snipcheck/internal/orchestrator"
)

// Store is the persistence the handlers read and write directly.
// Implemented by *database.DB.
type Store interface {
	CreateSnippet(ctx context.Context, s *models.Snippet) error
	FindSnippetByID(ctx context.Context, id string) (*models.Snippet, error)
	ListSnippetsWithCompliance(ctx context.Context, ownerID string, types ...models.ComplianceType) ([]database.SnippetCompliance, error)
	DeleteSnippet(ctx context.Context, id string) error

	ListRules(ctx context.Context, kind models.RuleKind) ([]models.Rule, error)
	ListUserRuleConfigs(ctx context.Context, userID string, kind models.RuleKind) ([]models.UserRuleConfig, error)
	UpsertUserRuleConfig(ctx context.Context, userID string, kind models.RuleKind, ruleName string, value *string) (*models.UserRuleConfig, error)
	DeleteUserRuleConfig(ctx context.Context, userID string, kind models.RuleKind, ruleName string) error

	Ping(ctx context.Context) error
}

// Triggers publishes lint and format requests. Implemented by
// *orchestrator.Service.
type Triggers interface {
	LintSingleSnippet(ctx context.Context, snippetID, userID string) (*models.TriggerResponse, error)
	FormatSingleSnippet(ctx context.Context, snippetID, userID string) (*models.TriggerResponse, error)
	LintUserSnippets(ctx context.Context, userID string) (*orchestrator.BatchResult, error)
	FormatUserSnippets(ctx context.Context, userID string) (*orchestrator.BatchResult, error)
	LintSnippets(ctx context.Context, snippetIDs []string, userID string) (*orchestrator.BatchResult, error)
	FormatSnippets(ctx context.Context, snippetIDs []string, userID string) (*orchestrator.BatchResult, error)
}

// Compliance writes and reads compliance records. Implemented by
// *compliance.Reconciler.
type Compliance interface {
	CreateOrUpdate(ctx context.Context, snippetID string, results []models.ResultEntry) (*models.ComplianceRecord, error)
	MarkFailed(ctx context.Context, snippetID, reason string) (*models.ComplianceRecord, error)
	State(ctx context.Context, snippetID string) (models.ComplianceState, error)
	Type(ctx context.Context, snippetID string) (models.ComplianceType, error)
	Errors(ctx context.Context, snippetID string) ([]models.ResultEntry, error)
	Passes(ctx context.Context, snippetID string) (bool, error)
}

// DeadLetters administers dead-lettered result batches. Implemented by
// *eventprocessor.DeadLetterService.
type DeadLetters interface {
	List(ctx context.Context, limit int) ([]models.DeadLetter, error)
	Get(ctx context.Context, id string) (*models.DeadLetter, error)
	Redrive(ctx context.Context, id string) (string, error)
	Delete(ctx context.Context, id string) error
}

// AccessChecker grants read access to snippets the caller does not own.
// Implemented by *authz.Client. If the checker also has a
// Forget(snippetID string) method, DeleteSnippet calls it.
type AccessChecker interface {
	CanRead(ctx context.Context, userID, snippetID string) (bool, error)
}

// Handler contains dependencies for API handlers.
//
// Handler methods are split across files:
//   - handlers_snippets.go: snippet registration and listing
//   - handlers_triggers.go: lint and format triggers
//   - handlers_compliance.go: synchronous results and compliance reads
//   - handlers_rules.go: rule catalog and per-user rule configuration
//   - handlers_dlq.go: dead-letter administration
//   - handlers_health.go: health probes
type Handler struct {
	store       Store
	triggers    Triggers
	compliance  Compliance
	deadLetters DeadLetters
	access      AccessChecker
	health      *eventprocessor.HealthChecker
	startTime   time.Time
}

// HandlerOption configures optional handler dependencies.
type HandlerOption func(*Handler)

// WithDeadLetters enables the dead-letter admin endpoints.
func WithDeadLetters(dl DeadLetters) HandlerOption {
	return func(h *Handler) { h.deadLetters = dl }
}

// WithAccessChecker consults the authorization service for snippets the
// caller does not own.
func WithAccessChecker(a AccessChecker) HandlerOption {
	return func(h *Handler) { h.access = a }
}

// WithHealthChecker reports component health on /health.
func WithHealthChecker(hc *eventprocessor.HealthChecker) HandlerOption {
	return func(h *Handler) { h.health = hc }
}

// NewHandler creates the API handler.
func NewHandler(store Store, triggers Triggers, compliance Compliance, opts ...HandlerOption) *Handler {
	h := &Handler{
		store:      store,
		triggers:   triggers,
		compliance: compliance,
		startTime:  time.Now(),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}
