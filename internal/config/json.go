package config

import (
	"encoding/json"
	"os"

	"github.com/nazarialireza/invextry-offline/internal/flagx"
	"github.com/nazarialireza/invextry-offline/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. Durations
// accept "3s"-style strings or integer nanoseconds via timex.Duration.
type JsonConfig struct {
	ServerBaseURL       string         `json:"server_base_url"`
	APIBasePath         string         `json:"api_base_path"`
	DatabaseDSN         string         `json:"database_dsn"`
	OnlineCheckInterval timex.Duration `json:"online_check_interval"`
	RequestTimeout      timex.Duration `json:"request_timeout"`
	DefaultCacheTTL     timex.Duration `json:"default_cache_ttl"`
	MaxSyncRetries      int            `json:"max_sync_retries"`
}

// parseJson overlays cfg with values from the file named by -c/-config.
// Missing flag means no JSON is loaded. Empty JSON fields leave the current
// value in place.
func parseJson(cfg *Config) {
	jsonConfigFile := flagx.JsonConfigFlags()
	if jsonConfigFile == "" {
		return
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.ServerBaseURL != "" {
		cfg.ServerBaseURL = jc.ServerBaseURL
	}
	if jc.APIBasePath != "" {
		cfg.APIBasePath = jc.APIBasePath
	}
	if jc.DatabaseDSN != "" {
		cfg.DatabaseDSN = jc.DatabaseDSN
	}
	if jc.OnlineCheckInterval.Duration > 0 {
		cfg.OnlineCheckInterval = jc.OnlineCheckInterval.Duration
	}
	if jc.RequestTimeout.Duration > 0 {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DefaultCacheTTL.Duration > 0 {
		cfg.DefaultCacheTTL = jc.DefaultCacheTTL.Duration
	}
	if jc.MaxSyncRetries > 0 {
		cfg.MaxSyncRetries = jc.MaxSyncRetries
	}
}
