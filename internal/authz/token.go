// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package authz

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"
	"time"

	"github.com/goccy/go-json"
)

// expirySkew refreshes a token slightly before the issuer considers it expired.
const expirySkew = 30 * time.Second

// FetchFunc obtains a new access token and its lifetime.
type FetchFunc func(ctx context.Context) (token string, ttl time.Duration, err error)

// TokenHolder caches a single access token and refreshes it on expiry.
// Safe for concurrent use; concurrent callers share one refresh.
type TokenHolder struct {
	mu     sync.Mutex
	token  string
	expiry time.Time
	fetch  FetchFunc
	now    func() time.Time
}

// NewTokenHolder creates a holder that calls fetch when the token is missing
// or expired.
func NewTokenHolder(fetch FetchFunc) *TokenHolder {
	return &TokenHolder{fetch: fetch, now: time.Now}
}

// Token returns a valid access token, fetching a new one if needed.
func (h *TokenHolder) Token(ctx context.Context) (string, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	if h.token != "" && h.now().Before(h.expiry) {
		return h.token, nil
	}

	token, ttl, err := h.fetch(ctx)
	if err != nil {
		return "", fmt.Errorf("fetch access token: %w", err)
	}
	if token == "" {
		return "", errors.New("fetch access token: empty token")
	}

	skew := expirySkew
	if ttl < 2*skew {
		skew = ttl / 2
	}
	h.token = token
	h.expiry = h.now().Add(ttl - skew)
	return token, nil
}

// Invalidate drops the cached token so the next call fetches a new one.
func (h *TokenHolder) Invalidate() {
	h.mu.Lock()
	h.token = ""
	h.expiry = time.Time{}
	h.mu.Unlock()
}

// Expiry reports when the cached token will be refreshed. Zero if none.
func (h *TokenHolder) Expiry() time.Time {
	h.mu.Lock()
	defer h.mu.Unlock()
	return h.expiry
}

type tokenRequest struct {
	GrantType    string `json:"grant_type"`
	ClientID     string `json:"client_id"`
	ClientSecret string `json:"client_secret"`
	Audience     string `json:"audience,omitempty"`
}

type tokenResponse struct {
	AccessToken string `json:"access_token"`
	ExpiresIn   int64  `json:"expires_in"`
	TokenType   string `json:"token_type"`
}

// ClientCredentials returns a FetchFunc for the OAuth2 client credentials
// grant against tokenURL.
func ClientCredentials(client *http.Client, tokenURL, clientID, clientSecret, audience string) FetchFunc {
	return func(ctx context.Context) (string, time.Duration, error) {
		body, err := json.Marshal(tokenRequest{
			GrantType:    "client_credentials",
			ClientID:     clientID,
			ClientSecret: clientSecret,
			Audience:     audience,
		})
		if err != nil {
			return "", 0, fmt.Errorf("encode token request: %w", err)
		}

		req, err := http.NewRequestWithContext(ctx, http.MethodPost, tokenURL, bytes.NewReader(body))
		if err != nil {
			return "", 0, fmt.Errorf("create token request: %w", err)
		}
		req.Header.Set("Content-Type", "application/json")

		resp, err := client.Do(req)
		if err != nil {
			return "", 0, fmt.Errorf("token request failed: %w", err)
		}
		defer resp.Body.Close()

		if resp.StatusCode != http.StatusOK {
			return "", 0, fmt.Errorf("token endpoint returned status %d: %s", resp.StatusCode, readBodyForError(resp.Body))
		}

		var tr tokenResponse
		if err := json.NewDecoder(resp.Body).Decode(&tr); err != nil {
			return "", 0, fmt.Errorf("decode token response: %w", err)
		}
		return tr.AccessToken, time.Duration(tr.ExpiresIn) * time.Second, nil
	}
}
