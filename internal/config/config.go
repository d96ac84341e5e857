// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

// Package config provides centralized configuration for the MachineMate backend.
//
// Configuration is loaded via Koanf v2 with layered sources (highest priority wins):
//  1. Built-in defaults
//  2. Optional YAML config file (config.yaml)
//  3. Environment variables
//
// Config is immutable after Load() and safe for concurrent read access.
package config

import (
	"fmt"
	"time"
)

// Config holds all application configuration.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Database DatabaseConfig `koanf:"database"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	VLM      VLMConfig      `koanf:"vlm"`
	Prompt   PromptConfig   `koanf:"prompt"`
	Trace    TraceConfig    `koanf:"trace"`
	Auth     AuthConfig     `koanf:"auth"`
	Storage  StorageConfig  `koanf:"storage"`
	API      APIConfig      `koanf:"api"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
//
// Environment Variables:
//   - HTTP_HOST, HTTP_PORT, HTTP_TIMEOUT, ENVIRONMENT
type ServerConfig struct {
	Host        string        `koanf:"host"`
	Port        int           `koanf:"port"`
	Timeout     time.Duration `koanf:"timeout"`
	Environment string        `koanf:"environment"`
}

// DatabaseConfig holds DuckDB settings.
//
// Environment Variables:
//   - DUCKDB_PATH: database file path (":memory:" for ephemeral)
//   - DUCKDB_MAX_MEMORY, DUCKDB_THREADS
//   - DATABASE_SEED_FROM_CATALOG: insert catalog machines at startup if missing
type DatabaseConfig struct {
	Path            string `koanf:"path"`
	MaxMemory       string `koanf:"max_memory"`
	Threads         int    `koanf:"threads"`
	SeedFromCatalog bool   `koanf:"seed_from_catalog"`
}

// CatalogConfig locates the machine catalog file.
type CatalogConfig struct {
	Path string `koanf:"path"`
}

// VLMConfig holds upstream vision model settings.
//
// Environment Variables:
//   - VLM_API_BASE_URL: OpenAI-compatible chat completions base URL (empty disables live calls)
//   - VLM_API_KEY, VLM_MODEL
//   - VLM_REQUEST_TIMEOUT: upstream call timeout (default 20s)
//   - ENABLE_MOCK_RESPONSES: synthesize a fallback result when the model is unavailable
type VLMConfig struct {
	BaseURL             string        `koanf:"base_url"`
	APIKey              string        `koanf:"api_key"`
	Model               string        `koanf:"model"`
	RequestTimeout      time.Duration `koanf:"request_timeout"`
	MockFallbackEnabled bool          `koanf:"mock_fallback_enabled"`
	// RateLimitPerSecond throttles upstream calls; 0 disables throttling.
	RateLimitPerSecond float64 `koanf:"rate_limit_per_second"`
}

// PromptConfig selects the prompt-building strategy.
//
// Variant is one of: baseline, few_shot, chain_of_thought. Unrecognized values
// fall back to baseline with a logged warning. When ABTestingEnabled is true the
// variant is chosen uniformly at random instead.
type PromptConfig struct {
	Variant          string `koanf:"variant"`
	MetadataEnabled  bool   `koanf:"metadata_enabled"`
	ABTestingEnabled bool   `koanf:"ab_testing_enabled"`
}

// TraceConfig bounds the in-memory trace store.
type TraceConfig struct {
	Capacity int `koanf:"capacity"`
}

// AuthConfig holds Supabase JWT verification settings.
//
// Environment Variables:
//   - REQUIRE_AUTH: enforce bearer tokens on user-scoped endpoints
//   - SUPABASE_JWT_JWKS_URL: JWKS endpoint for RS256 verification
//   - SUPABASE_JWT_SECRET: shared secret for HS256 verification (legacy projects)
//   - SUPABASE_JWT_AUDIENCE, SUPABASE_JWT_ISSUER, SUPABASE_SERVICE_ROLE_KEY
type AuthConfig struct {
	Required       bool          `koanf:"required"`
	JWKSURL        string        `koanf:"jwks_url"`
	JWTSecret      string        `koanf:"jwt_secret"`
	Audience       string        `koanf:"audience"`
	Issuer         string        `koanf:"issuer"`
	ServiceRoleKey string        `koanf:"service_role_key"`
	JWKSCacheTTL   time.Duration `koanf:"jwks_cache_ttl"`
}

// StorageConfig holds Supabase Storage settings for media upload proxying.
type StorageConfig struct {
	BaseURL           string        `koanf:"base_url"`
	ServiceKey        string        `koanf:"service_key"`
	PublicBaseURL     string        `koanf:"public_base_url"`
	BucketUserUploads string        `koanf:"bucket_user_uploads"`
	Timeout           time.Duration `koanf:"timeout"`
}

// APIConfig holds pagination and rate limiting settings.
type APIConfig struct {
	DefaultPageSize   int           `koanf:"default_page_size"`
	MaxPageSize       int           `koanf:"max_page_size"`
	RateLimitRequests int           `koanf:"rate_limit_requests"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	CORSOrigins       []string      `koanf:"cors_origins"`
	// MaxUploadBytes bounds identify/media multipart payloads.
	MaxUploadBytes int64 `koanf:"max_upload_bytes"`
}

// LoggingConfig holds log output settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks the configuration for invalid combinations.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.VLM.RequestTimeout <= 0 {
		return fmt.Errorf("vlm.request_timeout must be positive, got %s", c.VLM.RequestTimeout)
	}
	if c.Trace.Capacity <= 0 {
		return fmt.Errorf("trace.capacity must be positive, got %d", c.Trace.Capacity)
	}
	if c.API.DefaultPageSize < 1 || c.API.DefaultPageSize > c.API.MaxPageSize {
		return fmt.Errorf("api.default_page_size %d must be in [1, max_page_size %d]",
			c.API.DefaultPageSize, c.API.MaxPageSize)
	}
	if c.Auth.Required && c.Auth.JWKSURL == "" && c.Auth.JWTSecret == "" {
		return fmt.Errorf("auth.required is set but neither auth.jwks_url nor auth.jwt_secret is configured")
	}
	return nil
}

// Addr returns the host:port listen address for the HTTP server.
func (c *ServerConfig) Addr() string {
	return fmt.Sprintf("%s:%d", c.Host, c.Port)
}
