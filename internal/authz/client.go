// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

// Package authz is a client for the external authorization service that
// decides whether a user may read a snippet.
//
// Calls authenticate with a client-credentials token held by a TokenHolder,
// are throttled by a token-bucket limiter, and pass through a circuit breaker
// that opens after consecutive transport or 5xx failures. A denial is a
// normal answer and never trips the breaker. Answers may be cached for a
// short TTL; failures are never cached.
package authz

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/goccy/go-json"
	gobreaker "github.com/sony/gobreaker/v2"
	"golang.org/x/time/rate"

	"github.com/tomtom215/snipcheck/internal/config"
	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/metrics"
)

const (
	breakerName      = "authz"
	breakerThreshold = 5
	maxErrorBodySize = 4 * 1024
)

// ErrUnavailable wraps failures to reach the authorization service.
var ErrUnavailable = errors.New("authorization service unavailable")

// Client checks snippet permissions.
type Client struct {
	baseURL string
	http    *http.Client
	tokens  *TokenHolder
	limiter *rate.Limiter
	cb      *gobreaker.CircuitBreaker[bool]
	cache   *decisionCache
}

type permissionResponse struct {
	Allowed bool `json:"allowed"`
}

// New creates a client from cfg.
func New(cfg *config.AuthzConfig) (*Client, error) {
	if cfg.URL == "" {
		return nil, errors.New("authz: url is required")
	}
	if _, err := url.Parse(cfg.URL); err != nil {
		return nil, fmt.Errorf("authz: invalid url: %w", err)
	}

	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	httpClient := &http.Client{Timeout: timeout}

	limit := rate.Inf
	if cfg.RequestsPerSecond > 0 {
		limit = rate.Limit(cfg.RequestsPerSecond)
	}
	burst := cfg.Burst
	if burst < 1 {
		burst = 1
	}

	return &Client{
		baseURL: strings.TrimRight(cfg.URL, "/"),
		http:    httpClient,
		tokens:  NewTokenHolder(ClientCredentials(httpClient, cfg.TokenURL, cfg.ClientID, cfg.ClientSecret, cfg.Audience)),
		limiter: rate.NewLimiter(limit, burst),
		cb:      newBreaker(),
		cache:   newDecisionCache(cfg.CacheTTL),
	}, nil
}

func newBreaker() *gobreaker.CircuitBreaker[bool] {
	metrics.CircuitBreakerState.WithLabelValues(breakerName).Set(0)
	return gobreaker.NewCircuitBreaker[bool](gobreaker.Settings{
		Name:        breakerName,
		MaxRequests: 1,
		Timeout:     30 * time.Second,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= breakerThreshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			var v float64
			switch to {
			case gobreaker.StateHalfOpen:
				v = 1
			case gobreaker.StateOpen:
				v = 2
			}
			metrics.CircuitBreakerState.WithLabelValues(name).Set(v)
			logging.Warn().Str("breaker", name).Str("from", from.String()).Str("to", to.String()).
				Msg("Circuit breaker state changed")
		},
	})
}

// CanRead reports whether userID may read snippetID.
func (c *Client) CanRead(ctx context.Context, userID, snippetID string) (bool, error) {
	if allowed, ok := c.cache.get(userID, snippetID); ok {
		metrics.RecordAuthzDecision(decisionLabel(allowed), "cache")
		return allowed, nil
	}

	if err := c.limiter.Wait(ctx); err != nil {
		return false, fmt.Errorf("authz rate limit: %w", err)
	}

	allowed, err := c.cb.Execute(func() (bool, error) {
		return c.check(ctx, userID, snippetID, true)
	})
	if err != nil {
		logging.Ctx(ctx).Warn().Err(err).
			Str("user_id", userID).
			Str("snippet_id", snippetID).
			Msg("Permission check failed")
		metrics.RecordAuthzDecision("error", "remote")
		return false, fmt.Errorf("%w: %w", ErrUnavailable, err)
	}
	c.cache.set(userID, snippetID, allowed)
	metrics.RecordAuthzDecision(decisionLabel(allowed), "remote")
	return allowed, nil
}

// Forget drops cached decisions about snippetID, e.g. after it is deleted.
func (c *Client) Forget(snippetID string) {
	c.cache.invalidateSnippet(snippetID)
}

func decisionLabel(allowed bool) string {
	if allowed {
		return "allowed"
	}
	return "denied"
}

// check performs one permission request. A 401 invalidates the cached token
// and is retried once when retryAuth is set.
func (c *Client) check(ctx context.Context, userID, snippetID string, retryAuth bool) (bool, error) {
	token, err := c.tokens.Token(ctx)
	if err != nil {
		return false, err
	}

	endpoint := fmt.Sprintf("%s/permissions/snippets/%s/read?%s",
		c.baseURL, url.PathEscape(snippetID), url.Values{"userId": {userID}}.Encode())
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint, http.NoBody)
	if err != nil {
		return false, fmt.Errorf("create permission request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		return false, fmt.Errorf("permission request failed: %w", err)
	}
	defer resp.Body.Close()

	switch {
	case resp.StatusCode == http.StatusOK:
		var pr permissionResponse
		if err := json.NewDecoder(resp.Body).Decode(&pr); err != nil {
			return false, fmt.Errorf("decode permission response: %w", err)
		}
		return pr.Allowed, nil
	case resp.StatusCode == http.StatusForbidden || resp.StatusCode == http.StatusNotFound:
		return false, nil
	case resp.StatusCode == http.StatusUnauthorized && retryAuth:
		c.tokens.Invalidate()
		return c.check(ctx, userID, snippetID, false)
	default:
		return false, fmt.Errorf("permission endpoint returned status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
	}
}

// HealthCheck reports an open breaker as unhealthy.
func (c *Client) HealthCheck(_ context.Context) error {
	if c.cb.State() == gobreaker.StateOpen {
		return fmt.Errorf("%w: circuit open", ErrUnavailable)
	}
	return nil
}

// readBodyForError reads at most maxErrorBodySize bytes for error messages.
func readBodyForError(r io.Reader) string {
	body, err := io.ReadAll(io.LimitReader(r, maxErrorBodySize))
	if err != nil {
		return "(failed to read response body)"
	}
	return strings.TrimSpace(string(body))
}
