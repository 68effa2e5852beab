// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package api

import (
	"net/http"
	"time"

	"github.com/tomtom215/snipcheck/internal/eventprocessor"
)

// Health handles GET /health: every registered component plus the database.
// Always 200; the body carries the status.
func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, h.checkHealth(r), start)
}

// HealthLive handles GET /health/live. 200 while the process serves HTTP.
func (h *Handler) HealthLive(w http.ResponseWriter, _ *http.Request) {
	start := time.Now()
	respondSuccess(w, http.StatusOK, map[string]interface{}{
		"alive":  true,
		"uptime": time.Since(h.startTime).Seconds(),
	}, start)
}

// HealthReady handles GET /health/ready. 503 unless every component is
// healthy.
func (h *Handler) HealthReady(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	health := h.checkHealth(r)
	if !health.Healthy {
		respondErrorWithDetails(w, http.StatusServiceUnavailable, ErrCodeServiceUnavailable, "Service not ready",
			map[string]interface{}{"status": health.Status, "components": health.Components}, nil)
		return
	}
	respondSuccess(w, http.StatusOK, map[string]interface{}{"ready": true}, start)
}

func (h *Handler) checkHealth(r *http.Request) eventprocessor.OverallHealth {
	var overall eventprocessor.OverallHealth
	if h.health != nil {
		overall = h.health.CheckAll(r.Context())
	} else {
		overall = eventprocessor.OverallHealth{
			Healthy:    true,
			Status:     eventprocessor.HealthStatusHealthy,
			Timestamp:  time.Now(),
			Components: map[string]eventprocessor.ComponentHealth{},
		}
	}

	db := eventprocessor.ComponentHealth{Name: "database", Healthy: true, LastCheck: time.Now()}
	if err := h.store.Ping(r.Context()); err != nil {
		db.Healthy = false
		db.Error = err.Error()
		overall.Healthy = false
		overall.Status = eventprocessor.HealthStatusUnhealthy
	}
	overall.Components["database"] = db
	return overall
}
