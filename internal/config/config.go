// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package config

import "time"

// Config holds all application configuration.
//
// Values are layered by LoadWithKoanf: struct defaults, then an optional YAML
// file, then environment variables.
type Config struct {
	Server       ServerConfig       `koanf:"server"`
	Database     DatabaseConfig     `koanf:"database"`
	NATS         NATSConfig         `koanf:"nats"`
	Orchestrator OrchestratorConfig `koanf:"orchestrator"`
	Security     SecurityConfig     `koanf:"security"`
	Authz        AuthzConfig        `koanf:"authz"`
	Logging      LoggingConfig      `koanf:"logging"`
}

// ServerConfig holds HTTP server settings
type ServerConfig struct {
	Host            string        `koanf:"host"`
	Port            int           `koanf:"port"`
	ReadTimeout     time.Duration `koanf:"read_timeout"`
	WriteTimeout    time.Duration `koanf:"write_timeout"`
	ShutdownTimeout time.Duration `koanf:"shutdown_timeout"`
}

// DatabaseConfig holds DuckDB settings
type DatabaseConfig struct {
	Path      string `koanf:"path"`
	MaxMemory string `koanf:"max_memory"`
	Threads   int    `koanf:"threads"`    // 0 = use NumCPU
	SeedRules bool   `koanf:"seed_rules"` // seed the rule catalog on startup
}

// NATSConfig holds broker, stream and consumer group settings.
type NATSConfig struct {
	URL            string `koanf:"url"`
	EmbeddedServer bool   `koanf:"embedded_server"`
	StoreDir       string `koanf:"store_dir"`
	MaxMemory      int64  `koanf:"max_memory"`
	MaxStore       int64  `koanf:"max_store"`

	StreamName      string        `koanf:"stream_name"`
	StreamRetention time.Duration `koanf:"stream_retention"`

	// ConsumerGroup is the durable consumer name shared by all instances.
	ConsumerGroup string `koanf:"consumer_group"`

	// PollTimeout bounds each fetch so the loop can observe shutdown.
	PollTimeout      time.Duration `koanf:"poll_timeout"`
	PollErrorBackoff time.Duration `koanf:"poll_error_backoff"`
	FetchBatch       int           `koanf:"fetch_batch"`

	// MaxDeliver bounds redelivery before a result batch is dead-lettered.
	MaxDeliver int           `koanf:"max_deliver"`
	AckWait    time.Duration `koanf:"ack_wait"`
	NakDelay   time.Duration `koanf:"nak_delay"`

	PublishDeadLetters bool `koanf:"publish_dead_letters"`

	PublishTimeout          time.Duration `koanf:"publish_timeout"`
	CircuitBreakerThreshold uint32        `koanf:"circuit_breaker_threshold"`
	CircuitBreakerTimeout   time.Duration `koanf:"circuit_breaker_timeout"`
}

// OrchestratorConfig holds batch trigger settings
type OrchestratorConfig struct {
	// BatchPolicy is "abort" (first unresolvable snippet fails the batch)
	// or "continue" (skip it and report it as a failure).
	BatchPolicy string `koanf:"batch_policy"`
}

// SecurityConfig holds authentication and HTTP hardening settings
type SecurityConfig struct {
	// AuthMode is "jwt" (Bearer HS256) or "header" (trusted X-User-ID).
	AuthMode          string        `koanf:"auth_mode"`
	JWTSecret         string        `koanf:"jwt_secret"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
}

// AuthzConfig holds settings for the external authorization service.
type AuthzConfig struct {
	Enabled           bool          `koanf:"enabled"`
	URL               string        `koanf:"url"`
	TokenURL          string        `koanf:"token_url"`
	ClientID          string        `koanf:"client_id"`
	ClientSecret      string        `koanf:"client_secret"`
	Audience          string        `koanf:"audience"`
	Timeout           time.Duration `koanf:"timeout"`
	RequestsPerSecond float64       `koanf:"requests_per_second"`
	Burst             int           `koanf:"burst"`
	// CacheTTL keeps decisions for repeated checks; 0 disables caching.
	CacheTTL          time.Duration `koanf:"cache_ttl"`
}

// LoggingConfig holds logging settings
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Batch policies
const (
	BatchPolicyAbort    = "abort"
	BatchPolicyContinue = "continue"
)

// Auth modes
const (
	AuthModeJWT    = "jwt"
	AuthModeHeader = "header"
)
