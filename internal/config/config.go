// Package config loads runtime settings for the offline agent: defaults
// first, then an optional JSON file, then command-line flags, with later
// sources taking precedence.
package config

import "time"

// Config holds runtime settings for the offline cache agent.
type Config struct {
	// ServerBaseURL is the scheme://host of the backend API.
	ServerBaseURL string

	// APIBasePath prefixes every endpoint, e.g. "/api".
	APIBasePath string

	// DatabaseDSN locates the local SQLite database.
	DatabaseDSN string

	// OnlineCheckInterval is how often the probe watcher checks server
	// reachability.
	OnlineCheckInterval time.Duration

	// RequestTimeout bounds individual remote calls.
	RequestTimeout time.Duration

	// DefaultCacheTTL applies to cached responses without an explicit
	// lifetime.
	DefaultCacheTTL time.Duration

	// MaxSyncRetries is the queue retry ceiling before eviction.
	MaxSyncRetries int
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.ServerBaseURL = "http://127.0.0.1:8000"
	c.APIBasePath = "/api"
	c.DatabaseDSN = "invextry-offline.db"
	c.OnlineCheckInterval = 3 * time.Second
	c.RequestTimeout = 10 * time.Second
	c.DefaultCacheTTL = 30 * time.Minute
	c.MaxSyncRetries = 3
}

// LoadConfig constructs a Config, applies defaults, then overlays values
// from JSON (if present) and command-line flags (if present).
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
