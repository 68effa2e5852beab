// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package config

import (
	"fmt"
	"strings"
	"time"
)

// minJWTSecretLength is the minimum HS256 secret length accepted in jwt mode.
const minJWTSecretLength = 32

// Validate checks that required configuration is present and valid
func (c *Config) Validate() error {
	if err := c.validateServer(); err != nil {
		return err
	}
	if err := c.validateDatabase(); err != nil {
		return err
	}
	if err := c.validateNATS(); err != nil {
		return err
	}
	if err := c.validateOrchestrator(); err != nil {
		return err
	}
	if err := c.validateSecurity(); err != nil {
		return err
	}
	if err := c.validateAuthz(); err != nil {
		return err
	}
	return c.validateLogging()
}

func (c *Config) validateServer() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("HTTP_PORT must be between 1 and 65535, got %d", c.Server.Port)
	}
	return nil
}

func (c *Config) validateDatabase() error {
	if strings.TrimSpace(c.Database.Path) == "" {
		return fmt.Errorf("DUCKDB_PATH is required")
	}
	if c.Database.Threads < 0 {
		return fmt.Errorf("DUCKDB_THREADS must be >= 0, got %d", c.Database.Threads)
	}
	return nil
}

func (c *Config) validateNATS() error {
	n := c.NATS
	if !n.EmbeddedServer && n.URL == "" {
		return fmt.Errorf("NATS_URL is required when the embedded server is disabled")
	}
	if n.StreamName == "" {
		return fmt.Errorf("NATS_STREAM_NAME is required")
	}
	if n.ConsumerGroup == "" {
		return fmt.Errorf("NATS_CONSUMER_GROUP is required")
	}
	if n.PollTimeout < 10*time.Millisecond || n.PollTimeout > 30*time.Second {
		return fmt.Errorf("NATS_POLL_TIMEOUT must be between 10ms and 30s, got %v", n.PollTimeout)
	}
	if n.MaxDeliver < 1 {
		return fmt.Errorf("NATS_MAX_DELIVER must be at least 1, got %d", n.MaxDeliver)
	}
	if n.FetchBatch < 1 {
		return fmt.Errorf("NATS_FETCH_BATCH must be at least 1, got %d", n.FetchBatch)
	}
	if n.AckWait <= 0 {
		return fmt.Errorf("NATS_ACK_WAIT must be positive")
	}
	if n.PublishTimeout <= 0 {
		return fmt.Errorf("NATS_PUBLISH_TIMEOUT must be positive")
	}
	return nil
}

func (c *Config) validateOrchestrator() error {
	switch c.Orchestrator.BatchPolicy {
	case BatchPolicyAbort, BatchPolicyContinue:
		return nil
	default:
		return fmt.Errorf("BATCH_POLICY must be %q or %q, got %q",
			BatchPolicyAbort, BatchPolicyContinue, c.Orchestrator.BatchPolicy)
	}
}

func (c *Config) validateSecurity() error {
	switch c.Security.AuthMode {
	case AuthModeJWT:
		if len(c.Security.JWTSecret) < minJWTSecretLength {
			return fmt.Errorf("JWT_SECRET must be at least %d characters when AUTH_MODE=jwt", minJWTSecretLength)
		}
	case AuthModeHeader:
	default:
		return fmt.Errorf("AUTH_MODE must be %q or %q, got %q", AuthModeJWT, AuthModeHeader, c.Security.AuthMode)
	}
	if !c.Security.RateLimitDisabled && c.Security.RateLimitRequests < 1 {
		return fmt.Errorf("RATE_LIMIT_REQUESTS must be at least 1")
	}
	return nil
}

func (c *Config) validateAuthz() error {
	if !c.Authz.Enabled {
		return nil
	}
	if c.Authz.URL == "" {
		return fmt.Errorf("AUTHZ_URL is required when AUTHZ_ENABLED=true")
	}
	if c.Authz.TokenURL == "" || c.Authz.ClientID == "" || c.Authz.ClientSecret == "" {
		return fmt.Errorf("AUTHZ_TOKEN_URL, AUTHZ_CLIENT_ID and AUTHZ_CLIENT_SECRET are required when AUTHZ_ENABLED=true")
	}
	if c.Authz.RequestsPerSecond <= 0 {
		return fmt.Errorf("AUTHZ_REQUESTS_PER_SECOND must be positive")
	}
	if c.Authz.CacheTTL < 0 {
		return fmt.Errorf("AUTHZ_CACHE_TTL must not be negative")
	}
	return nil
}

func (c *Config) validateLogging() error {
	switch strings.ToLower(c.Logging.Level) {
	case "trace", "debug", "info", "warn", "warning", "error", "fatal", "panic", "disabled":
	default:
		return fmt.Errorf("LOG_LEVEL %q is not a valid level", c.Logging.Level)
	}
	switch c.Logging.Format {
	case "json", "console":
		return nil
	default:
		return fmt.Errorf("LOG_FORMAT must be json or console, got %q", c.Logging.Format)
	}
}

// Addr returns the HTTP listen address.
func (s ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", s.Host, s.Port)
}
