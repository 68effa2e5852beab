// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package main

import (
	"context"
	"errors"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/tomtom215/snipcheck/internal/api"
	"github.com/tomtom215/snipcheck/internal/auth"
	"github.com/tomtom215/snipcheck/internal/authz"
	"github.com/tomtom215/snipcheck/internal/compliance"
	"github.com/tomtom215/snipcheck/internal/config"
	"github.com/tomtom215/snipcheck/internal/database"
	"github.com/tomtom215/snipcheck/internal/eventprocessor"
	"github.com/tomtom215/snipcheck/internal/logging"
	"github.com/tomtom215/snipcheck/internal/orchestrator"
	"github.com/tomtom215/snipcheck/internal/supervisor"
	"github.com/tomtom215/snipcheck/internal/supervisor/services"
)

func main() {
	cfg, err := config.LoadWithKoanf()
	if err != nil {
		logging.Fatal().Err(err).Msg("Failed to load configuration")
	}

	logging.Init(logging.Config{
		Level:     cfg.Logging.Level,
		Format:    cfg.Logging.Format,
		Caller:    cfg.Logging.Caller,
		Timestamp: true,
		Service:   "snipcheck",
	})
	logging.Info().
		Str("db_path", cfg.Database.Path).
		Str("auth_mode", cfg.Security.AuthMode).
		Str("batch_policy", cfg.Orchestrator.BatchPolicy).
		Bool("authz_enabled", cfg.Authz.Enabled).
		Msg("Configuration loaded")

	if err := run(cfg); err != nil {
		logging.Fatal().Err(err).Msg("Server failed")
	}
	logging.Info().Msg("Application stopped gracefully")
}

//nolint:gocyclo // sequential startup
func run(cfg *config.Config) error {
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	db, err := database.New(&cfg.Database)
	if err != nil {
		return err
	}
	defer func() {
		if err := db.Close(); err != nil {
			logging.Error().Err(err).Msg("Error closing database")
		}
	}()
	if cfg.Database.SeedRules {
		if err := db.SeedRules(ctx, database.DefaultRuleCatalog()); err != nil {
			return err
		}
		logging.Info().Msg("Rule catalog seeded")
	}

	reconciler := compliance.NewReconciler(db, compliance.DefaultConfig())

	messaging, err := InitMessaging(ctx, cfg, db, reconciler)
	if err != nil {
		return err
	}

	health := eventprocessor.NewHealthChecker(5 * time.Second)
	messaging.RegisterHealth(health)

	orchOpts := []orchestrator.Option{orchestrator.WithBatchPolicy(cfg.Orchestrator.BatchPolicy)}
	handlerOpts := []api.HandlerOption{
		api.WithDeadLetters(messaging.deadLetters),
		api.WithHealthChecker(health),
	}
	if cfg.Authz.Enabled {
		authzClient, err := authz.New(&cfg.Authz)
		if err != nil {
			messaging.Shutdown(ctx)
			return err
		}
		orchOpts = append(orchOpts, orchestrator.WithAccessChecker(authzClient))
		handlerOpts = append(handlerOpts, api.WithAccessChecker(authzClient))
		health.RegisterComponent("authz", eventprocessor.HealthCheckFunc(func(ctx context.Context) eventprocessor.ComponentHealth {
			h := eventprocessor.ComponentHealth{Name: "authz", Healthy: true, LastCheck: time.Now()}
			if err := authzClient.HealthCheck(ctx); err != nil {
				h.Healthy = false
				h.Error = err.Error()
			}
			return h
		}))
		logging.Info().Str("url", cfg.Authz.URL).Msg("Authorization service enabled")
	}

	triggers := orchestrator.NewService(db, db, messaging.publisher, orchOpts...)

	authMiddleware, err := auth.NewMiddleware(&cfg.Security)
	if err != nil {
		messaging.Shutdown(ctx)
		return err
	}
	if cfg.Security.AuthMode == config.AuthModeHeader {
		logging.Warn().Msg("Header authentication trusts X-User-ID; run behind an authenticating proxy")
	}
	if cfg.Security.RateLimitDisabled {
		logging.Warn().Msg("Rate limiting is disabled")
	}

	handler := api.NewHandler(db, triggers, reconciler, handlerOpts...)
	router := api.NewRouter(handler, authMiddleware, api.NewChiMiddleware(api.ChiMiddlewareConfigFrom(&cfg.Security)))
	server := newHTTPServer(&cfg.Server, router.SetupChi())

	tree, err := supervisor.NewSupervisorTree(logging.NewSlogLogger(), supervisor.TreeConfig{
		ShutdownTimeout: cfg.Server.ShutdownTimeout,
	})
	if err != nil {
		messaging.Shutdown(ctx)
		return err
	}
	tree.Add(supervisor.LayerMessaging, services.NewConsumerService(messaging.consumer))
	tree.Add(supervisor.LayerAPI, services.NewHTTPServerService(server, cfg.Server.ShutdownTimeout))
	logging.Info().Str("addr", server.Addr).Msg("HTTP server service added")

	sigCh := make(chan os.Signal, 1)
	signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
	go func() {
		sig := <-sigCh
		logging.Info().Str("signal", sig.String()).Msg("Received shutdown signal")
		cancel()
	}()

	logging.Info().Msg("Starting supervisor tree")
	// suture sends exactly one result and never closes the channel.
	if err := <-tree.ServeBackground(ctx); err != nil && !errors.Is(err, context.Canceled) {
		logging.Error().Err(err).Msg("Supervisor tree error")
	}

	if unstopped, _ := tree.UnstoppedServiceReport(); len(unstopped) > 0 {
		for _, svc := range unstopped {
			logging.Warn().Str("service", svc.Name).Msg("Service failed to stop")
		}
	}

	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), cfg.Server.ShutdownTimeout)
	defer shutdownCancel()
	messaging.Shutdown(shutdownCtx)
	return nil
}

func newHTTPServer(cfg *config.ServerConfig, handler http.Handler) *http.Server {
	return &http.Server{
		Addr:              cfg.Addr(),
		Handler:           handler,
		ReadTimeout:       cfg.ReadTimeout,
		ReadHeaderTimeout: 10 * time.Second,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       60 * time.Second,
	}
}
