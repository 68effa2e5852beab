// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package authz

import (
	"sync"
	"time"
)

// decisionCache remembers read decisions per user and snippet for ttl.
// Expired entries are swept on write.
type decisionCache struct {
	ttl   time.Duration
	now   func() time.Time
	mu    sync.RWMutex
	items map[decisionKey]decision
}

type decisionKey struct {
	userID    string
	snippetID string
}

type decision struct {
	allowed   bool
	expiresAt time.Time
}

// newDecisionCache returns nil when ttl is not positive, which disables caching.
func newDecisionCache(ttl time.Duration) *decisionCache {
	if ttl <= 0 {
		return nil
	}
	return &decisionCache{
		ttl:   ttl,
		now:   time.Now,
		items: make(map[decisionKey]decision),
	}
}

func (c *decisionCache) get(userID, snippetID string) (allowed, ok bool) {
	if c == nil {
		return false, false
	}
	c.mu.RLock()
	defer c.mu.RUnlock()

	d, found := c.items[decisionKey{userID, snippetID}]
	if !found || !c.now().Before(d.expiresAt) {
		return false, false
	}
	return d.allowed, true
}

func (c *decisionCache) set(userID, snippetID string, allowed bool) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	now := c.now()
	for k, d := range c.items {
		if !now.Before(d.expiresAt) {
			delete(c.items, k)
		}
	}
	c.items[decisionKey{userID, snippetID}] = decision{allowed: allowed, expiresAt: now.Add(c.ttl)}
}

// invalidateSnippet drops every decision about snippetID.
func (c *decisionCache) invalidateSnippet(snippetID string) {
	if c == nil {
		return
	}
	c.mu.Lock()
	defer c.mu.Unlock()

	for k := range c.items {
		if k.snippetID == snippetID {
			delete(c.items, k)
		}
	}
}

func (c *decisionCache) len() int {
	if c == nil {
		return 0
	}
	c.mu.RLock()
	defer c.mu.RUnlock()
	return len(c.items)
}
