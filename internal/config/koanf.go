// MachineMate - Gym Machine Identification Backend
// Copyright 2026 MachineMate Authors
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/machinemate/machinemate

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

// DefaultConfigPaths lists where config files are searched, in priority order.
var DefaultConfigPaths = []string{
	"config.yaml",
	"config.yml",
	"/etc/machinemate/config.yaml",
	"/etc/machinemate/config.yml",
}

// ConfigPathEnvVar overrides the config file path.
const ConfigPathEnvVar = "CONFIG_PATH"

// defaultConfig returns a Config with all default values. Defaults are applied
// first, then overridden by the config file and environment variables.
func defaultConfig() *Config {
	return &Config{
		Server: ServerConfig{
			Host:        "0.0.0.0",
			Port:        8000,
			Timeout:     30 * time.Second,
			Environment: "development",
		},
		Database: DatabaseConfig{
			Path:            "/data/machinemate.duckdb",
			MaxMemory:       "1GB",
			Threads:         0, // 0 = runtime.NumCPU()
			SeedFromCatalog: true,
		},
		Catalog: CatalogConfig{
			Path: "data/machines.json",
		},
		VLM: VLMConfig{
			BaseURL:             "",
			APIKey:              "",
			Model:               "qwen-vl-chat",
			RequestTimeout:      20 * time.Second,
			MockFallbackEnabled: true,
			RateLimitPerSecond:  0,
		},
		Prompt: PromptConfig{
			Variant:          "baseline",
			MetadataEnabled:  true,
			ABTestingEnabled: false,
		},
		Trace: TraceConfig{
			Capacity: 100,
		},
		Auth: AuthConfig{
			Required:     true,
			Audience:     "authenticated",
			JWKSCacheTTL: 15 * time.Minute,
		},
		Storage: StorageConfig{
			BucketUserUploads: "user-uploads",
			Timeout:           30 * time.Second,
		},
		API: APIConfig{
			DefaultPageSize:   20,
			MaxPageSize:       100,
			RateLimitRequests: 100,
			RateLimitWindow:   time.Minute,
			CORSOrigins:       []string{"*"},
			MaxUploadBytes:    10 << 20, // 10MB
		},
		Logging: LoggingConfig{
			Level:  "info",
			Format: "json",
			Caller: false,
		},
	}
}

// Load loads configuration using Koanf v2 with layered sources:
//  1. Defaults: built-in sensible defaults
//  2. Config file: optional YAML file (if present)
//  3. Environment variables (highest priority)
func Load() (*Config, error) {
	k := koanf.New(".")

	if err := k.Load(structs.Provider(defaultConfig(), "koanf"), nil); err != nil {
		return nil, fmt.Errorf("failed to load defaults: %w", err)
	}

	if configPath := findConfigFile(); configPath != "" {
		if err := k.Load(file.Provider(configPath), yaml.Parser()); err != nil {
			return nil, fmt.Errorf("failed to load config file %s: %w", configPath, err)
		}
	}

	// Transform environment variable names to koanf paths:
	// VLM_API_BASE_URL -> vlm.base_url, REQUIRE_AUTH -> auth.required
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

// findConfigFile returns the path of the first config file found, or "".
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

// sliceConfigPaths lists config paths parsed as comma-separated slices when
// supplied via environment variables.
var sliceConfigPaths = []string{
	"api.cors_origins",
}

// processSliceFields converts comma-separated string values to slices for known
// slice fields. Env vars arrive as strings but the config expects slices.
func processSliceFields(k *koanf.Koanf) error {
	for _, path := range sliceConfigPaths {
		val := k.Get(path)
		if val == nil {
			continue
		}
		if _, ok := val.([]interface{}); ok {
			continue
		}
		if _, ok := val.([]string); ok {
			continue
		}
		strVal, ok := val.(string)
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
		if len(trimmed) > 0 {
			if err := k.Set(path, trimmed); err != nil {
				return fmt.Errorf("failed to set %s: %w", path, err)
			}
		}
	}
	return nil
}

// envTransformFunc maps environment variable names to koanf config paths.
// Unrecognized variables are dropped so unrelated environment noise cannot
// leak into the configuration.
func envTransformFunc(key string) string {
	mappings := map[string]string{
		// Server
		"HTTP_HOST":    "server.host",
		"HTTP_PORT":    "server.port",
		"HTTP_TIMEOUT": "server.timeout",
		"ENVIRONMENT":  "server.environment",

		// Database
		"DUCKDB_PATH":               "database.path",
		"DUCKDB_MAX_MEMORY":         "database.max_memory",
		"DUCKDB_THREADS":            "database.threads",
		"DATABASE_SEED_FROM_CATALOG": "database.seed_from_catalog",

		// Catalog
		"MACHINES_CATALOG_PATH": "catalog.path",

		// Upstream vision model
		"VLM_API_BASE_URL":      "vlm.base_url",
		"VLM_API_KEY":           "vlm.api_key",
		"VLM_MODEL":             "vlm.model",
		"VLM_REQUEST_TIMEOUT":   "vlm.request_timeout",
		"ENABLE_MOCK_RESPONSES": "vlm.mock_fallback_enabled",
		"VLM_RATE_LIMIT":        "vlm.rate_limit_per_second",

		// Prompt engineering
		"PROMPT_VARIANT":            "prompt.variant",
		"ENABLE_PROMPT_METADATA":    "prompt.metadata_enabled",
		"PROMPT_AB_TESTING_ENABLED": "prompt.ab_testing_enabled",

		// Trace store
		"TRACE_STORE_CAPACITY": "trace.capacity",

		// Supabase auth
		"REQUIRE_AUTH":              "auth.required",
		"SUPABASE_JWT_JWKS_URL":     "auth.jwks_url",
		"SUPABASE_JWT_SECRET":       "auth.jwt_secret",
		"SUPABASE_JWT_AUDIENCE":     "auth.audience",
		"SUPABASE_JWT_ISSUER":       "auth.issuer",
		"SUPABASE_SERVICE_ROLE_KEY": "auth.service_role_key",
		"JWKS_CACHE_TTL":            "auth.jwks_cache_ttl",

		// Supabase storage
		"STORAGE_BASE_URL":            "storage.base_url",
		"STORAGE_SERVICE_KEY":         "storage.service_key",
		"MEDIA_PUBLIC_BASE_URL":       "storage.public_base_url",
		"STORAGE_BUCKET_USER_UPLOADS": "storage.bucket_user_uploads",
		"STORAGE_TIMEOUT":             "storage.timeout",

		// API
		"API_DEFAULT_PAGE_SIZE": "api.default_page_size",
		"API_MAX_PAGE_SIZE":     "api.max_page_size",
		"RATE_LIMIT_REQUESTS":   "api.rate_limit_requests",
		"RATE_LIMIT_WINDOW":     "api.rate_limit_window",
		"CORS_ORIGINS":          "api.cors_origins",
		"MAX_UPLOAD_BYTES":      "api.max_upload_bytes",

		// Logging
		"LOG_LEVEL":  "logging.level",
		"LOG_FORMAT": "logging.format",
		"LOG_CALLER": "logging.caller",
	}

	if path, ok := mappings[strings.ToUpper(key)]; ok {
		return path
	}
	return ""
}
