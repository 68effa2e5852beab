// Snipcheck - Snippet Lint and Format Orchestration
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/snipcheck

package config

import (
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/knadh/koanf/parsers/yaml"
	"github.com/knadh/koanf/providers/env"
	"github.com/knadh/koanf/providers/file"
	"github.com/knadh/koanf/providers/structs"
	"github.com/knadh/koanf/v2"
)

// DefaultConfigPaths lists the paths where config files are searched in order of priority.
// The first file found will be used.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/snipcheck/config.yaml",
	"/etc/snipcheck/config.yml",
}

// ConfigPathEnvVar is the environment variable that can override the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// sliceConfigPaths are keys that accept comma-separated values from the environment.
var sliceConfigPaths = []string{
	"security.cors_origins",
}

// defaultConfig returns a Config struct with all defaults applied.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:            "0.0.0.0",
			Port:            8080,
			ReadTimeout:     15 * time.Second,
			WriteTimeout:    30 * time.Second,
			ShutdownTimeout: 10 * time.Second,
		},
		Database: DatabaseConfig{
			Path:      "/data/snipcheck.duckdb",
			MaxMemory: "1GB",
			Threads:   0,
			SeedRules: true,
		},
		NATS: NATSConfig{
			URL:                     "nats://127.0.0.1:4222",
			EmbeddedServer:          true,
			StoreDir:                "/data/nats/jetstream",
			MaxMemory:               256 << 20, // 256MB
			MaxStore:                2 << 30,   // 2GB
			StreamName:              "SNIPPETS",
			StreamRetention:         7 * 24 * time.Hour,
			ConsumerGroup:           "snippet-compliance",
			PollTimeout:             500 * time.Millisecond,
			PollErrorBackoff:        time.Second,
			FetchBatch:              10,
			MaxDeliver:              5,
			AckWait:                 30 * time.Second,
			NakDelay:                2 * time.Second,
			PublishDeadLetters:      true,
			PublishTimeout:          5 * time.Second,
			CircuitBreakerThreshold: 5,
			CircuitBreakerTimeout:   30 * time.Second,
		},
		Orchestrator: OrchestratorConfig{
			BatchPolicy: BatchPolicyAbort,
		},
		Security: SecurityConfig{
			AuthMode:          AuthModeJWT,
			JWTSecret:         "",
			CORSOrigins:       []string{"*"},
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
		},
		Authz: AuthzConfig{
			Enabled:           false,
			Timeout:           5 * time.Second,
			RequestsPerSecond: 20,
			Burst:             40,
			CacheTTL:          30 * time.Second,
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
		},
	}
}

// LoadWithKoanf loads configuration from defaults, an optional config file,
// and environment variables, in that order of precedence.
func LoadWithKoanf() (*Config, error) {
	k := koanf.New(".")

	// Layer 1: defaults
	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	// Layer 2: config file (optional)
	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Layer 3: environment variables
	// NATS_URL -> nats.url, BATCH_POLICY -> orchestrator.batch_policy
	if err := k.Load(env.Provider("", ".", envTransformFunc), nil); err != nil {
		return nil, fmt.Errorf("failed to load environment variables: %w", err)
	}

	if err := processSliceFields(k); err != nil {
		return nil, fmt.Errorf("failed to process slice fields: %w", err)
	}

	cfg := &Config{}
	if err := k.Unmarshal("", cfg); err != nil {
		return nil, fmt.Errorf("failed to unmarshal configuration: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("configuration validation failed: %w", err)
	}

	return cfg, nil
}

// findConfigFile returns the first existing config file, or "".
func findConfigFile() string {
	if envPath := os.Getenv(ConfigPathEnvVar); envPath != "" {
		if _, err := os.Stat(envPath); err == nil {
			return envPath
		}
	}

	for _, path := range DefaultConfigPaths {
		if _, err := os.Stat(path); err == nil {
			return path
		}
	}

	return ""
}

// processSliceFields splits comma-separated environment values into slices.
// Values already loaded as slices from YAML are left untouched.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		strVal, ok := k.Get(path).(string)
		if !ok || strVal == "" {
			continue
		}

		parts := strings.Split(strVal, ",")
		trimmed := make([]string, 0, len(parts))
		for _, p := range parts {
			if p = strings.TrimSpace(p); p != "" {
				trimmed = append(trimmed, p)
			}
		}
		if len(trimmed) == 0 {
			continue
		}
		if err := k.Set(path, trimmed); err != nil {
			return fmt.Errorf("failed to set %s: %w", path, err)
		}
	}
	return nil
}

// envMappings maps lowercased environment variable names to config keys.
var envMappings = map[string]string{
	// Server
	"http_host":             "server.host",
	"http_port":             "server.port",
	"http_read_timeout":     "server.read_timeout",
	"http_write_timeout":    "server.write_timeout",
	"http_shutdown_timeout": "server.shutdown_timeout",

	// Database
	"duckdb_path":       "database.path",
	"duckdb_max_memory": "database.max_memory",
	"duckdb_threads":    "database.threads",
	"seed_rules":        "database.seed_rules",

	// NATS
	"nats_url":                       "nats.url",
	"nats_embedded":                  "nats.embedded_server",
	"nats_store_dir":                 "nats.store_dir",
	"nats_max_memory":                "nats.max_memory",
	"nats_max_store":                 "nats.max_store",
	"nats_stream_name":               "nats.stream_name",
	"nats_stream_retention":          "nats.stream_retention",
	"nats_consumer_group":            "nats.consumer_group",
	"nats_poll_timeout":              "nats.poll_timeout",
	"nats_poll_error_backoff":        "nats.poll_error_backoff",
	"nats_fetch_batch":               "nats.fetch_batch",
	"nats_max_deliver":               "nats.max_deliver",
	"nats_ack_wait":                  "nats.ack_wait",
	"nats_nak_delay":                 "nats.nak_delay",
	"nats_publish_dead_letters":      "nats.publish_dead_letters",
	"nats_publish_timeout":           "nats.publish_timeout",
	"nats_circuit_breaker_threshold": "nats.circuit_breaker_threshold",
	"nats_circuit_breaker_timeout":   "nats.circuit_breaker_timeout",

	// Orchestrator
	"batch_policy": "orchestrator.batch_policy",

	// Security
	"auth_mode":           "security.auth_mode",
	"jwt_secret":          "security.jwt_secret",
	"cors_origins":        "security.cors_origins",
	"rate_limit_requests": "security.rate_limit_requests",
	"rate_limit_window":   "security.rate_limit_window",
	"disable_rate_limit":  "security.rate_limit_disabled",

	// Authorization service
	"authz_enabled":             "authz.enabled",
	"authz_url":                 "authz.url",
	"authz_token_url":           "authz.token_url",
	"authz_client_id":           "authz.client_id",
	"authz_client_secret":       "authz.client_secret",
	"authz_audience":            "authz.audience",
	"authz_timeout":             "authz.timeout",
	"authz_requests_per_second": "authz.requests_per_second",
	"authz_burst":               "authz.burst",
	"authz_cache_ttl":           "authz.cache_ttl",

	// Logging
	"log_level":  "logging.level",
	"log_format": "logging.format",
	"log_caller": "logging.caller",
}

// envTransformFunc maps environment variable names to koanf paths.
// Unmapped variables return "" and are skipped.
func envTransformFunc(key string) string {
	return envMappings[strings.ToLower(key)]
}
