// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package orchestrator

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/tomtom215/snipcheck/internal/config"
	"github.com/tomtom215/snipcheck/internal/models"
)

type fakeSnippets struct {
	byID map[string]models.Snippet
}

func newFakeSnippets(snippets ...models.Snippet) *fakeSnippets {
	f := &fakeSnippets{byID: make(map[string]models.Snippet)}
	for _, s := range snippets {
		f.byID[s.ID] = s
	}
	return f
}

func (f *fakeSnippets) FindSnippetByID(_ context.Context, id string) (*models.Snippet, error) {
	s, ok := f.byID[id]
	if !ok {
		return nil, fmt.Errorf("snippet %s: %w", id, models.ErrNotFound)
	}
	return &s, nil
}

func (f *fakeSnippets) FindSnippetsByOwner(_ context.Context, owner string) ([]models.Snippet, error) {
	var out []models.Snippet
	for _, id := range []string{"a", "b", "c", "d", "e", "snip-1", "snip-2", "snip-3"} {
		if s, ok := f.byID[id]; ok && s.OwnerID == owner {
			out = append(out, s)
		}
	}
	return out, nil
}

// fakeRules counts catalog reads so tests can assert one computation per call.
type fakeRules struct {
	active      map[models.RuleKind][]models.ActiveRule
	catalog     map[models.RuleKind][]string
	activeCalls atomic.Int32
	namesCalls  atomic.Int32
	err         error
}

func (f *fakeRules) FindActiveRules(_ context.Context, _ string, kind models.RuleKind) ([]models.ActiveRule, error) {
	f.activeCalls.Add(1)
	if f.err != nil {
		return nil, f.err
	}
	return f.active[kind], nil
}

func (f *fakeRules) ListRuleNames(_ context.Context, kind models.RuleKind) ([]string, error) {
	f.namesCalls.Add(1)
	return f.catalog[kind], nil
}

type fakePublisher struct {
	mu       sync.Mutex
	requests []*models.EvaluationRequest
	failFor  map[string]bool
	failAll  bool
}

func (f *fakePublisher) PublishRequest(_ context.Context, req *models.EvaluationRequest) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failAll || f.failFor[req.SnippetID] {
		return "", errors.New("nats: no responders available")
	}
	f.requests = append(f.requests, req)
	return fmt.Sprintf("delivery-%d", len(f.requests)), nil
}

type fakeAccess struct {
	allowed map[string]bool
	err     error
}

func (f *fakeAccess) CanRead(_ context.Context, _ string, snippetID string) (bool, error) {
	return f.allowed[snippetID], f.err
}

func strPtr(s string) *string { return &s }

func snippet(id, owner string) models.Snippet {
	return models.Snippet{
		ID:              id,
		OwnerID:         owner,
		LanguageVersion: models.LanguageVersion{Language: "printscript", Version: "1.1"},
	}
}

func testRules() *fakeRules {
	return &fakeRules{
		active: map[models.RuleKind][]models.ActiveRule{
			models.RuleKindLint: {
				{RuleName: "identifier_format", Value: strPtr("camel case")},
				{RuleName: "mandatory-variable-or-literal-in-println"},
			},
			models.RuleKindFormat: {
				{RuleName: "indent_inside_if", Value: strPtr("4")},
				{RuleName: "space_before_colon"},
			},
		},
		catalog: map[models.RuleKind][]string{
			models.RuleKindLint: {
				"identifier_format",
				"mandatory-variable-or-literal-in-println",
				"mandatory-variable-or-literal-in-readInput",
			},
			models.RuleKindFormat: {"indent_inside_if", "newline_before_println", "space_before_colon"},
		},
	}
}

var fixedNow = time.Date(2026, 5, 1, 9, 30, 0, 0, time.UTC)

func newTestService(snippets SnippetReader, rules RuleReader, pub RequestPublisher, opts ...Option) *Service {
	opts = append(opts, WithClock(func() time.Time { return fixedNow }))
	return NewService(snippets, rules, pub, opts...)
}

// Three owned snippets and two active rules yield three requests carrying the
// same rules and the full catalog.
func TestLintUserSnippets_ThreeSnippetsTwoRules(t *testing.T) {
	snippets := newFakeSnippets(
		snippet("snip-1", "user-42"),
		snippet("snip-2", "user-42"),
		snippet("snip-3", "user-42"),
		snippet("a", "someone-else"),
	)
	rules := testRules()
	pub := &fakePublisher{}
	svc := newTestService(snippets, rules, pub)

	result, err := svc.LintUserSnippets(context.Background(), "user-42")
	if err != nil {
		t.Fatalf("LintUserSnippets() error = %v", err)
	}
	if len(pub.requests) != 3 || len(result.Published) != 3 {
		t.Fatalf("published %d requests (result %d), want 3", len(pub.requests), len(result.Published))
	}
	if rules.activeCalls.Load() != 1 || rules.namesCalls.Load() != 1 {
		t.Errorf("rule lookups = %d active / %d catalog, want 1/1", rules.activeCalls.Load(), rules.namesCalls.Load())
	}

	wantUserRules := []models.UserRule{
		{RuleName: "identifier_format", Value: "camel case"},
		{RuleName: "mandatory-variable-or-literal-in-println", Value: ""},
	}
	for i, req := range pub.requests {
		if req.Kind != models.RuleKindLint {
			t.Errorf("request %d kind = %s", i, req.Kind)
		}
		if !reflect.DeepEqual(req.UserRules, wantUserRules) {
			t.Errorf("request %d userRules = %+v", i, req.UserRules)
		}
		if !reflect.DeepEqual(req.AllRules, rules.catalog[models.RuleKindLint]) {
			t.Errorf("request %d allRules = %v", i, req.AllRules)
		}
		if req.SnippetVersion != "1.1" || req.RequestedAt != fixedNow.UnixMilli() {
			t.Errorf("request %d = %+v", i, req)
		}
	}
	if pub.requests[0].SnippetID != "snip-1" || pub.requests[2].SnippetID != "snip-3" {
		t.Errorf("snippet order = %s..%s", pub.requests[0].SnippetID, pub.requests[2].SnippetID)
	}
}

func TestFormatUserSnippets_IntegerValues(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(newFakeSnippets(snippet("a", "u1")), testRules(), pub)

	if _, err := svc.FormatUserSnippets(context.Background(), "u1"); err != nil {
		t.Fatalf("FormatUserSnippets() error = %v", err)
	}
	got := pub.requests[0].UserRules
	want := []models.UserRule{
		{RuleName: "indent_inside_if", Value: 4},
		{RuleName: "space_before_colon", Value: 0},
	}
	if !reflect.DeepEqual(got, want) {
		t.Errorf("userRules = %#v, want %#v", got, want)
	}
}

func TestUserBatch_NoSnippets(t *testing.T) {
	rules := testRules()
	pub := &fakePublisher{}
	svc := newTestService(newFakeSnippets(), rules, pub)

	result, err := svc.LintUserSnippets(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(result.Published) != 0 || len(pub.requests) != 0 {
		t.Error("nothing should be published")
	}
	resp := result.Response()
	if resp.Published == nil || resp.Failures == nil {
		t.Error("response slices must be non-nil")
	}
}

// An unresolvable id in a 2-item batch fails the call before the second
// publish under the default policy.
func TestLintSnippets_AbortOnUnresolvable(t *testing.T) {
	tests := []struct {
		name string
		ids  []string
	}{
		{"missing first", []string{"ghost", "a"}},
		{"missing second", []string{"a", "ghost"}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			pub := &fakePublisher{}
			svc := newTestService(newFakeSnippets(snippet("a", "u1")), testRules(), pub)

			_, err := svc.LintSnippets(context.Background(), tt.ids, "u1")
			if !errors.Is(err, models.ErrNotFound) {
				t.Fatalf("error = %v, want ErrNotFound", err)
			}
			if n := len(pub.requests); n > 1 {
				t.Errorf("published %d requests, want 0 or 1", n)
			}
		})
	}
}

func TestLintSnippets_ContinuePolicy(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(
		newFakeSnippets(snippet("a", "u1"), snippet("b", "u1"), snippet("c", "other")),
		testRules(), pub,
		WithBatchPolicy(config.BatchPolicyContinue),
	)

	result, err := svc.LintSnippets(context.Background(), []string{"a", "ghost", "c", "b"}, "u1")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(result.Published) != 2 {
		t.Errorf("published = %+v, want a and b", result.Published)
	}
	if len(result.Failures) != 2 || result.Failures[0].SnippetID != "ghost" || result.Failures[1].SnippetID != "c" {
		t.Errorf("failures = %+v, want ghost and c", result.Failures)
	}
}

func TestBatch_PublishFailuresCollected(t *testing.T) {
	pub := &fakePublisher{failFor: map[string]bool{"b": true}}
	svc := newTestService(newFakeSnippets(snippet("a", "u1"), snippet("b", "u1"), snippet("c", "u1")), testRules(), pub)

	result, err := svc.FormatSnippets(context.Background(), []string{"a", "b", "c"}, "u1")
	if err != nil {
		t.Fatalf("error = %v", err)
	}
	if len(result.Published) != 2 || len(result.Failures) != 1 || result.Failures[0].SnippetID != "b" {
		t.Errorf("result = %+v", result)
	}
}

func TestBatch_AllPublishesFailed(t *testing.T) {
	pub := &fakePublisher{failAll: true}
	svc := newTestService(newFakeSnippets(snippet("a", "u1"), snippet("b", "u1")), testRules(), pub)

	result, err := svc.LintUserSnippets(context.Background(), "u1")
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("error = %v, want ErrPublishFailed", err)
	}
	if len(result.Failures) != 2 {
		t.Errorf("failures = %d, want 2", len(result.Failures))
	}
}

func TestSingleSnippet(t *testing.T) {
	pub := &fakePublisher{}
	svc := newTestService(newFakeSnippets(snippet("a", "u1")), testRules(), pub)
	ctx := context.Background()

	resp, err := svc.LintSingleSnippet(ctx, "a", "u1")
	if err != nil {
		t.Fatalf("LintSingleSnippet() error = %v", err)
	}
	if resp.Message != "Lint request published for snippet a" || resp.DeliveryID == "" {
		t.Errorf("response = %+v", resp)
	}

	resp, err = svc.FormatSingleSnippet(ctx, "a", "u1")
	if err != nil {
		t.Fatalf("FormatSingleSnippet() error = %v", err)
	}
	if resp.Message != "Format request published for snippet a" {
		t.Errorf("message = %q", resp.Message)
	}
	if pub.requests[1].Kind != models.RuleKindFormat {
		t.Errorf("second request kind = %s", pub.requests[1].Kind)
	}

	if _, err := svc.LintSingleSnippet(ctx, "ghost", "u1"); !errors.Is(err, models.ErrNotFound) {
		t.Errorf("unknown snippet error = %v", err)
	}
	if _, err := svc.LintSingleSnippet(ctx, "a", "intruder"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("foreign snippet error = %v", err)
	}
}

func TestSingleSnippet_PublishFailure(t *testing.T) {
	svc := newTestService(newFakeSnippets(snippet("a", "u1")), testRules(), &fakePublisher{failAll: true})
	_, err := svc.LintSingleSnippet(context.Background(), "a", "u1")
	if !errors.Is(err, ErrPublishFailed) {
		t.Fatalf("error = %v, want ErrPublishFailed", err)
	}
}

func TestAccessChecker(t *testing.T) {
	access := &fakeAccess{allowed: map[string]bool{"shared": true}}
	svc := newTestService(
		newFakeSnippets(snippet("shared", "owner"), snippet("private", "owner")),
		testRules(), &fakePublisher{},
		WithAccessChecker(access),
	)
	ctx := context.Background()

	if _, err := svc.LintSingleSnippet(ctx, "shared", "reader"); err != nil {
		t.Errorf("shared snippet error = %v", err)
	}
	if _, err := svc.LintSingleSnippet(ctx, "private", "reader"); !errors.Is(err, models.ErrForbidden) {
		t.Errorf("private snippet error = %v, want ErrForbidden", err)
	}

	access.err = errors.New("authz unavailable")
	_, err := svc.LintSingleSnippet(ctx, "shared", "reader")
	if err == nil || errors.Is(err, models.ErrForbidden) {
		t.Errorf("authz failure should surface as a plain error, got %v", err)
	}
}

func TestRuleLoadFailure(t *testing.T) {
	rules := testRules()
	rules.err = errors.New("duckdb: connection closed")
	pub := &fakePublisher{}
	svc := newTestService(newFakeSnippets(snippet("a", "u1")), rules, pub)

	if _, err := svc.LintUserSnippets(context.Background(), "u1"); err == nil {
		t.Fatal("expected error")
	}
	if len(pub.requests) != 0 {
		t.Error("nothing should be published when rules cannot be loaded")
	}
}
