package config

import (
	"encoding/json"
	"os"

	"github.com/jobrefme/jobrefme-cli/internal/flagx"
	"github.com/jobrefme/jobrefme-cli/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling. It relies on
// timex.Duration so JSON can specify intervals either as strings like "30s"
// or as integer nanoseconds. After parsing, values are copied into the
// runtime Config (which uses time.Duration).
type JsonConfig struct {
	APIBaseURL   string         `json:"api_base_url"`
	CallbackURL  string         `json:"callback_url"`
	StoreBackend string         `json:"store_backend"`
	StorePath    string         `json:"store_path"`
	RedisURL     string         `json:"redis_url"`
	RedisPrefix  string         `json:"redis_prefix"`
	AgentAddr    string         `json:"agent_addr"`
	KeyfilePath  string         `json:"keyfile_path"`
	HTTPTimeout  timex.Duration `json:"http_timeout"`
}

// parseJson overlays Config with values loaded from a JSON file selected via
// the -c or -config flags. No file selected means no overlay. Read or
// unmarshal errors panic; the config stage has no sensible recovery.
func parseJson(cfg *Config) {
	path := flagx.JsonConfigFlags()
	if path == "" {
		return
	}

	data, err := os.ReadFile(path)
	if err != nil {
		panic(err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		panic(err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.CallbackURL != "" {
		cfg.CallbackURL = jc.CallbackURL
	}
	if jc.StoreBackend != "" {
		cfg.StoreBackend = jc.StoreBackend
	}
	if jc.StorePath != "" {
		cfg.StorePath = jc.StorePath
	}
	if jc.RedisURL != "" {
		cfg.RedisURL = jc.RedisURL
	}
	if jc.RedisPrefix != "" {
		cfg.RedisPrefix = jc.RedisPrefix
	}
	if jc.AgentAddr != "" {
		cfg.AgentAddr = jc.AgentAddr
	}
	if jc.KeyfilePath != "" {
		cfg.KeyfilePath = jc.KeyfilePath
	}
	if jc.HTTPTimeout.Duration != 0 {
		cfg.HTTPTimeout = jc.HTTPTimeout.Duration
	}
}
