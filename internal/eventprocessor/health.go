// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package eventprocessor

import (
	"context"
	"sort"
	"sync"
	"time"
)

// HealthStatusType represents the overall health status.
type HealthStatusType string

const (
	HealthStatusHealthy   HealthStatusType = "healthy"
	HealthStatusDegraded  HealthStatusType = "degraded"
	HealthStatusUnhealthy HealthStatusType = "unhealthy"
)

// ComponentHealth is the health of a single component.
type ComponentHealth struct {
	Healthy   bool                   `json:"healthy"`
	Degraded  bool                   `json:"degraded,omitempty"`
	Name      string                 `json:"name"`
	Message   string                 `json:"message,omitempty"`
	Error     string                 `json:"error,omitempty"`
	LastCheck time.Time              `json:"last_check"`
	Details   map[string]interface{} `json:"details,omitempty"`
}

// HealthCheckable is implemented by components that report health.
type HealthCheckable interface {
	HealthCheck(ctx context.Context) ComponentHealth
}

// HealthCheckFunc adapts a function to HealthCheckable.
type HealthCheckFunc func(ctx context.Context) ComponentHealth

// HealthCheck calls f.
func (f HealthCheckFunc) HealthCheck(ctx context.Context) ComponentHealth { return f(ctx) }

// OverallHealth aggregates component health.
type OverallHealth struct {
	Healthy    bool                       `json:"healthy"`
	Status     HealthStatusType           `json:"status"`
	Timestamp  time.Time                  `json:"timestamp"`
	Components map[string]ComponentHealth `json:"components"`
}

// HealthChecker runs health checks for registered components.
type HealthChecker struct {
	timeout    time.Duration
	mu         sync.RWMutex
	components map[string]HealthCheckable
}

// NewHealthChecker creates a checker whose checks are bounded by timeout.
func NewHealthChecker(timeout time.Duration) *HealthChecker {
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	return &HealthChecker{
		timeout:    timeout,
		components: make(map[string]HealthCheckable),
	}
}

// RegisterComponent registers a component under name.
func (h *HealthChecker) RegisterComponent(name string, component HealthCheckable) {
	h.mu.Lock()
	defer h.mu.Unlock()
	h.components[name] = component
}

// Names returns the registered component names in sorted order.
func (h *HealthChecker) Names() []string {
	h.mu.RLock()
	defer h.mu.RUnlock()
	names := make([]string, 0, len(h.components))
	for name := range h.components {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// CheckAll runs every check. Any unhealthy component makes the result
// unhealthy; degraded components make it degraded.
func (h *HealthChecker) CheckAll(ctx context.Context) OverallHealth {
	h.mu.RLock()
	components := make(map[string]HealthCheckable, len(h.components))
	for name, comp := range h.components {
		components[name] = comp
	}
	h.mu.RUnlock()

	ctx, cancel := context.WithTimeout(ctx, h.timeout)
	defer cancel()

	overall := OverallHealth{
		Healthy:    true,
		Status:     HealthStatusHealthy,
		Timestamp:  time.Now(),
		Components: make(map[string]ComponentHealth, len(components)),
	}
	for name, comp := range components {
		ch := comp.HealthCheck(ctx)
		if ch.Name == "" {
			ch.Name = name
		}
		overall.Components[name] = ch

		switch {
		case !ch.Healthy:
			overall.Healthy = false
			overall.Status = HealthStatusUnhealthy
		case ch.Degraded && overall.Status == HealthStatusHealthy:
			overall.Status = HealthStatusDegraded
		}
	}
	return overall
}
