// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package api

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	chimiddleware "github.com/go-chi/chi/v5/middleware"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/tomtom215/snipcheck/internal/auth"
	"github.com/tomtom215/snipcheck/internal/middleware"
)

// Router wires handlers to routes.
type Router struct {
	handler       *Handler
	auth          *auth.Middleware
	chiMiddleware *ChiMiddleware
}

// NewRouter creates a router.
func NewRouter(handler *Handler, authMiddleware *auth.Middleware, chiMW *ChiMiddleware) *Router {
	return &Router{handler: handler, auth: authMiddleware, chiMiddleware: chiMW}
}

// SetupChi configures all HTTP routes.
func (router *Router) SetupChi() http.Handler {
	r := chi.NewRouter()
	h := router.handler

	r.Use(middleware.RequestID)
	r.Use(chimiddleware.RealIP)
	r.Use(chimiddleware.Recoverer)
	r.Use(router.chiMiddleware.CORS())
	r.Use(middleware.PrometheusMetrics)

	r.NotFound(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusNotFound, ErrCodeNotFound, "Route not found", nil)
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, _ *http.Request) {
		respondError(w, http.StatusMethodNotAllowed, "METHOD_NOT_ALLOWED", "Method not allowed", nil)
	})

	r.Handle("/metrics", promhttp.Handler())

	r.Route("/api/v1/health", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimitHealth())
		r.Use(APISecurityHeaders())
		r.Get("/", h.Health)
		r.Get("/live", h.HealthLive)
		r.Get("/ready", h.HealthReady)
	})

	r.Route("/api/v1", func(r chi.Router) {
		r.Use(router.chiMiddleware.RateLimit())
		r.Use(APISecurityHeaders())
		r.Use(router.auth.Authenticate)

		r.Route("/snippets", func(r chi.Router) {
			r.Post("/", h.RegisterSnippet)
			r.Get("/", h.ListSnippets)

			r.With(router.chiMiddleware.RateLimitTrigger()).Post("/lint", h.LintBatch)
			r.With(router.chiMiddleware.RateLimitTrigger()).Post("/format", h.FormatBatch)

			r.Route("/{id}", func(r chi.Router) {
				r.Get("/", h.GetSnippet)
				r.Delete("/", h.DeleteSnippet)

				r.With(router.chiMiddleware.RateLimitTrigger()).Post("/lint", h.LintSnippet)
				r.With(router.chiMiddleware.RateLimitTrigger()).Post("/format", h.FormatSnippet)

				r.Put("/compliance", h.PutCompliance)
				r.Get("/compliance", h.GetCompliance)
				r.Get("/compliance/type", h.GetComplianceType)
				r.Get("/compliance/errors", h.GetComplianceErrors)
				r.Get("/compliance/passes", h.GetCompliancePasses)
			})
		})

		r.Get("/rules", h.ListRules)
		r.Get("/rules/config", h.ListRuleConfigs)
		r.Put("/rules/config", h.PutRuleConfig)
		r.Delete("/rules/config/{ruleName}", h.DeleteRuleConfig)

		r.Route("/admin", func(r chi.Router) {
			r.Use(auth.RequireAdmin)
			r.Get("/dead-letters", h.ListDeadLetters)
			r.Get("/dead-letters/{id}", h.GetDeadLetter)
			r.Post("/dead-letters/{id}/redrive", h.RedriveDeadLetter)
			r.Delete("/dead-letters/{id}", h.DeleteDeadLetter)
		})
	})

	return r
}
