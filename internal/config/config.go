// Projectionist - Self-Hosted Media Catalog with Synchronized Viewing
// Copyright 2026 Tom F. (tomtom215)
// SPDX-License-Identifier: AGPL-3.0-or-later
// https://github.com/tomtom215/projectionist

// Package config provides layered configuration loading for Projectionist.
//
// Configuration is resolved in precedence order ENV > file > defaults using
// Koanf v2. See LoadWithKoanf for the loading pipeline and envTransformFunc
// for the environment variable mapping table.
package config

import (
	"fmt"
	"time"
)

// Config is the root configuration structure.
type Config struct {
	Server   ServerConfig   `koanf:"server"`
	Catalog  CatalogConfig  `koanf:"catalog"`
	Progress ProgressConfig `koanf:"progress"`
	Auth     AuthConfig     `koanf:"auth"`
	Security SecurityConfig `koanf:"security"`
	Logging  LoggingConfig  `koanf:"logging"`
}

// ServerConfig holds HTTP server settings.
type ServerConfig struct {
	Host    string        `koanf:"host"`
	Port    int           `koanf:"port"`
	Timeout time.Duration `koanf:"timeout"` // Read/write timeout for the HTTP server
}

// CatalogConfig controls media indexing, listing and per-session ordering.
type CatalogConfig struct {
	// CategoriesFile is the JSON registry of media categories.
	CategoriesFile string `koanf:"categories_file"`

	// CacheExpiry is how long an index snapshot is considered fresh.
	CacheExpiry time.Duration `koanf:"cache_expiry"`

	// SessionExpiry is how long an idle viewer session's ordering state
	// is retained before it becomes eligible for eviction.
	SessionExpiry time.Duration `koanf:"session_expiry"`

	DefaultPageSize int `koanf:"default_page_size"`
	MaxPageSize     int `koanf:"max_page_size"`

	// MaxCacheEntries bounds the number of category listing caches.
	MaxCacheEntries int `koanf:"max_cache_entries"`

	// MaxSessionsPerCategory bounds per-category session ordering state.
	MaxSessionsPerCategory int `koanf:"max_sessions_per_category"`

	// LargeDirectoryThreshold is the entry count above which indexing
	// moves to the background worker pool.
	LargeDirectoryThreshold int `koanf:"large_directory_threshold"`

	// IndexWorkers is the background indexing worker pool size.
	IndexWorkers int `koanf:"index_workers"`

	// ShuffleDefault selects randomized ordering when a request does not
	// say otherwise.
	ShuffleDefault bool `koanf:"shuffle_default"`
}

// ProgressConfig controls persisted playback positions.
type ProgressConfig struct {
	// Enabled persists the last viewed index per category across restarts.
	Enabled bool `koanf:"enabled"`

	// Path is the BadgerDB directory for the progress store.
	Path string `koanf:"path"`
}

// AuthConfig holds the optional shared-password gate settings.
type AuthConfig struct {
	// SessionPassword, when non-empty, requires visitors to pass the gate
	// before using the API.
	SessionPassword string `koanf:"session_password"`

	// GateSecret signs the gate cookie. Generated at startup when empty.
	GateSecret string `koanf:"gate_secret"`

	// GateTTL is the lifetime of an issued gate cookie.
	GateTTL time.Duration `koanf:"gate_ttl"`
}

// SecurityConfig holds rate limiting and CORS settings.
type SecurityConfig struct {
	RateLimitReqs     int           `koanf:"rate_limit_reqs"`
	RateLimitWindow   time.Duration `koanf:"rate_limit_window"`
	RateLimitDisabled bool          `koanf:"rate_limit_disabled"`
	CORSOrigins       []string      `koanf:"cors_origins"`
}

// LoggingConfig holds logging settings.
type LoggingConfig struct {
	Level  string `koanf:"level"`
	Format string `koanf:"format"`
	Caller bool   `koanf:"caller"`
}

// Validate checks configuration invariants that cannot be expressed as
// simple defaults. Returns the first violation found.
func (c *Config) Validate() error {
	if c.Server.Port < 1 || c.Server.Port > 65535 {
		return fmt.Errorf("server.port must be in [1, 65535], got %d", c.Server.Port)
	}
	if c.Server.Timeout <= 0 {
		return fmt.Errorf("server.timeout must be positive, got %s", c.Server.Timeout)
	}
	if c.Catalog.CategoriesFile == "" {
		return fmt.Errorf("catalog.categories_file must not be empty")
	}
	if c.Catalog.CacheExpiry <= 0 {
		return fmt.Errorf("catalog.cache_expiry must be positive, got %s", c.Catalog.CacheExpiry)
	}
	if c.Catalog.SessionExpiry <= 0 {
		return fmt.Errorf("catalog.session_expiry must be positive, got %s", c.Catalog.SessionExpiry)
	}
	if c.Catalog.DefaultPageSize < 1 || c.Catalog.DefaultPageSize > c.Catalog.MaxPageSize {
		return fmt.Errorf("catalog.default_page_size must be in [1, %d], got %d",
			c.Catalog.MaxPageSize, c.Catalog.DefaultPageSize)
	}
	if c.Catalog.MaxPageSize < 1 {
		return fmt.Errorf("catalog.max_page_size must be positive, got %d", c.Catalog.MaxPageSize)
	}
	if c.Catalog.MaxCacheEntries < 1 {
		return fmt.Errorf("catalog.max_cache_entries must be positive, got %d", c.Catalog.MaxCacheEntries)
	}
	if c.Catalog.MaxSessionsPerCategory < 1 {
		return fmt.Errorf("catalog.max_sessions_per_category must be positive, got %d",
			c.Catalog.MaxSessionsPerCategory)
	}
	if c.Catalog.LargeDirectoryThreshold < 1 {
		return fmt.Errorf("catalog.large_directory_threshold must be positive, got %d",
			c.Catalog.LargeDirectoryThreshold)
	}
	if c.Catalog.IndexWorkers < 1 {
		return fmt.Errorf("catalog.index_workers must be positive, got %d", c.Catalog.IndexWorkers)
	}
	if c.Progress.Enabled && c.Progress.Path == "" {
		return fmt.Errorf("progress.path must be set when progress.enabled is true")
	}
	if !c.Security.RateLimitDisabled {
		if c.Security.RateLimitReqs < 1 {
			return fmt.Errorf("security.rate_limit_reqs must be positive, got %d", c.Security.RateLimitReqs)
		}
		if c.Security.RateLimitWindow <= 0 {
			return fmt.Errorf("security.rate_limit_window must be positive, got %s", c.Security.RateLimitWindow)
		}
	}
	return nil
}
