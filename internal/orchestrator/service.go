// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Package orchestrator turns lint and format triggers into evaluation
// requests on the stream.
//
// Every trigger computes the caller's RuleSet once, then composes and
// publishes one request per snippet. Snippet resolution failures follow the
// batch policy; publish failures are collected per snippet.
package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/tomtom215/snipcheck/internal/config"
	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/metrics"
	"github.com/tomtom215/snipcheck/internal/models"
)

// ErrPublishFailed marks a trigger that could not append its request to the
// stream.
var ErrPublishFailed = errors.New("publish failed")

// SnippetReader resolves snippets. Implemented by *database.DB.
type SnippetReader interface {
	FindSnippetByID(ctx context.Context, id string) (*models.Snippet, error)
	FindSnippetsByOwner(ctx context.Context, ownerID string) ([]models.Snippet, error)
}

// RequestPublisher appends a request to the stream and returns its delivery
// id. Implemented by *eventprocessor.Publisher.
type RequestPublisher interface {
	PublishRequest(ctx context.Context, req *models.EvaluationRequest) (string, error)
}

// AccessChecker asks the authorization service whether a user may read a
// snippet. Implemented by *authz.Client.
type AccessChecker interface {
	CanRead(ctx context.Context, userID, snippetID string) (bool, error)
}

// BatchResult is the outcome of a batch trigger.
type BatchResult struct {
	Kind      models.RuleKind
	Published []models.PublishedRequest
	Failures  []models.SnippetFailure
}

// Response converts the result into its API shape.
func (r *BatchResult) Response() *models.BatchTriggerResponse {
	resp := &models.BatchTriggerResponse{
		Published: r.Published,
		Failures:  r.Failures,
	}
	if resp.Published == nil {
		resp.Published = []models.PublishedRequest{}
	}
	if resp.Failures == nil {
		resp.Failures = []models.SnippetFailure{}
	}
	return resp
}

// Service implements the lint and format triggers.
type Service struct {
	snippets  SnippetReader
	composer  *Composer
	publisher RequestPublisher
	access    AccessChecker
	policy    string
}

// Option configures a Service.
type Option func(*Service)

// WithBatchPolicy sets config.BatchPolicyAbort or config.BatchPolicyContinue.
func WithBatchPolicy(policy string) Option {
	return func(s *Service) { s.policy = policy }
}

// WithAccessChecker delegates snippet access decisions to an external
// authorization service. Without one, only the owner may trigger.
func WithAccessChecker(a AccessChecker) Option {
	return func(s *Service) { s.access = a }
}

// WithClock overrides the request timestamp source.
func WithClock(now func() time.Time) Option {
	return func(s *Service) { s.composer.now = now }
}

// NewService creates the trigger service.
func NewService(snippets SnippetReader, rules RuleReader, publisher RequestPublisher, opts ...Option) *Service {
	s := &Service{
		snippets:  snippets,
		composer:  NewComposer(rules),
		publisher: publisher,
		policy:    config.BatchPolicyAbort,
	}
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// LintSingleSnippet publishes one lint request for snippetID.
func (s *Service) LintSingleSnippet(ctx context.Context, snippetID, userID string) (*models.TriggerResponse, error) {
	return s.single(ctx, models.RuleKindLint, snippetID, userID)
}

// FormatSingleSnippet publishes one format request for snippetID.
func (s *Service) FormatSingleSnippet(ctx context.Context, snippetID, userID string) (*models.TriggerResponse, error) {
	return s.single(ctx, models.RuleKindFormat, snippetID, userID)
}

// LintUserSnippets publishes a lint request for every snippet owned by userID.
func (s *Service) LintUserSnippets(ctx context.Context, userID string) (*BatchResult, error) {
	return s.userBatch(ctx, models.RuleKindLint, userID)
}

// FormatUserSnippets publishes a format request for every snippet owned by userID.
func (s *Service) FormatUserSnippets(ctx context.Context, userID string) (*BatchResult, error) {
	return s.userBatch(ctx, models.RuleKindFormat, userID)
}

// LintSnippets publishes lint requests for an explicit list of snippets.
func (s *Service) LintSnippets(ctx context.Context, snippetIDs []string, userID string) (*BatchResult, error) {
	return s.idBatch(ctx, models.RuleKindLint, snippetIDs, userID)
}

// FormatSnippets publishes format requests for an explicit list of snippets.
func (s *Service) FormatSnippets(ctx context.Context, snippetIDs []string, userID string) (*BatchResult, error) {
	return s.idBatch(ctx, models.RuleKindFormat, snippetIDs, userID)
}

func confirmation(kind models.RuleKind, snippetID string) string {
	if kind == models.RuleKindFormat {
		return "Format request published for snippet " + snippetID
	}
	return "Lint request published for snippet " + snippetID
}

func (s *Service) single(ctx context.Context, kind models.RuleKind, snippetID, userID string) (*models.TriggerResponse, error) {
	snippet, err := s.resolve(ctx, snippetID, userID)
	if err != nil {
		return nil, err
	}
	rules, err := s.composer.Rules(ctx, userID, kind)
	if err != nil {
		return nil, err
	}

	deliveryID, err := s.publisher.PublishRequest(ctx, s.composer.Compose(snippet, rules))
	if err != nil {
		return nil, fmt.Errorf("%w: %s request for snippet %s: %w", ErrPublishFailed, kind, snippetID, err)
	}

	logging.Ctx(ctx).Info().
		Str("kind", string(kind)).
		Str("snippet_id", snippetID).
		Str("delivery_id", deliveryID).
		Msg("Evaluation request published")

	return &models.TriggerResponse{
		SnippetID:  snippetID,
		DeliveryID: deliveryID,
		Message:    confirmation(kind, snippetID),
	}, nil
}

// resolve loads snippetID and checks that userID may trigger it.
func (s *Service) resolve(ctx context.Context, snippetID, userID string) (*models.Snippet, error) {
	snippet, err := s.snippets.FindSnippetByID(ctx, snippetID)
	if err != nil {
		return nil, err
	}
	if err := s.checkAccess(ctx, snippet, userID); err != nil {
		return nil, err
	}
	return snippet, nil
}

func (s *Service) checkAccess(ctx context.Context, snippet *models.Snippet, userID string) error {
	if s.access == nil {
		if snippet.OwnerID != userID {
			return fmt.Errorf("snippet %s: %w", snippet.ID, models.ErrForbidden)
		}
		return nil
	}
	ok, err := s.access.CanRead(ctx, userID, snippet.ID)
	if err != nil {
		return fmt.Errorf("check access to snippet %s: %w", snippet.ID, err)
	}
	if !ok {
		return fmt.Errorf("snippet %s: %w", snippet.ID, models.ErrForbidden)
	}
	return nil
}

func (s *Service) userBatch(ctx context.Context, kind models.RuleKind, userID string) (*BatchResult, error) {
	snippets, err := s.snippets.FindSnippetsByOwner(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("list snippets of user %s: %w", userID, err)
	}
	if len(snippets) == 0 {
		return &BatchResult{Kind: kind}, nil
	}

	rules, err := s.composer.Rules(ctx, userID, kind)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Kind: kind}
	publishFailures := 0
	for i := range snippets {
		if !s.publishInto(ctx, result, &snippets[i], rules) {
			publishFailures++
		}
	}
	return s.finish(ctx, result, userID, publishFailures)
}

func (s *Service) idBatch(ctx context.Context, kind models.RuleKind, snippetIDs []string, userID string) (*BatchResult, error) {
	if len(snippetIDs) == 0 {
		return &BatchResult{Kind: kind}, nil
	}

	rules, err := s.composer.Rules(ctx, userID, kind)
	if err != nil {
		return nil, err
	}

	result := &BatchResult{Kind: kind}
	publishFailures := 0
	for _, id := range snippetIDs {
		snippet, err := s.resolve(ctx, id, userID)
		if err != nil {
			if !errors.Is(err, models.ErrNotFound) && !errors.Is(err, models.ErrForbidden) {
				return result, err
			}
			reason := "not_found"
			if errors.Is(err, models.ErrForbidden) {
				reason = "forbidden"
			}
			metrics.BatchSkipped.WithLabelValues(string(kind), reason).Inc()

			if s.policy != config.BatchPolicyContinue {
				logging.Ctx(ctx).Warn().Err(err).
					Str("kind", string(kind)).
					Str("snippet_id", id).
					Int("published", len(result.Published)).
					Msg("Batch aborted on unresolvable snippet")
				return result, err
			}
			result.Failures = append(result.Failures, models.SnippetFailure{SnippetID: id, Reason: err.Error()})
			continue
		}
		if !s.publishInto(ctx, result, snippet, rules) {
			publishFailures++
		}
	}
	return s.finish(ctx, result, userID, publishFailures)
}

// publishInto publishes one request and records the outcome in result.
// Returns false on publish failure.
func (s *Service) publishInto(ctx context.Context, result *BatchResult, snippet *models.Snippet, rules *RuleSet) bool {
	deliveryID, err := s.publisher.PublishRequest(ctx, s.composer.Compose(snippet, rules))
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("kind", string(rules.Kind)).
			Str("snippet_id", snippet.ID).
			Msg("Publish failed, continuing batch")
		result.Failures = append(result.Failures, models.SnippetFailure{SnippetID: snippet.ID, Reason: err.Error()})
		return false
	}
	result.Published = append(result.Published, models.PublishedRequest{SnippetID: snippet.ID, DeliveryID: deliveryID})
	return true
}

func (s *Service) finish(ctx context.Context, result *BatchResult, userID string, publishFailures int) (*BatchResult, error) {
	logging.Ctx(ctx).Info().
		Str("kind", string(result.Kind)).
		Str("user_id", userID).
		Int("published", len(result.Published)).
		Int("failures", len(result.Failures)).
		Msg("Batch trigger completed")

	if len(result.Published) == 0 && publishFailures > 0 {
		return result, fmt.Errorf("%w: all %d %s requests failed", ErrPublishFailed, publishFailures, result.Kind)
	}
	return result, nil
}
