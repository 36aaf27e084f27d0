package config

import "time"

// Backend names accepted for Config.StoreBackend.
const (
	BackendSQLite = "sqlite"
	BackendRedis  = "redis"
)

// Config holds runtime settings shared by the JobRefMe CLI and agent.
//
// Fields:
//   - APIBaseURL:   base URL of the JobRefMe backend.
//   - CallbackURL:  redirect target shown to the identity provider; the
//     token from the redirect is pasted back via the callback command.
//   - StoreBackend: "sqlite" or "redis".
//   - StorePath:    SQLite database file (sqlite backend).
//   - RedisURL:     redis:// connection URL (redis backend).
//   - RedisPrefix:  key prefix isolating this app's keys (redis backend).
//   - AgentAddr:    localhost address the agent listens on for page and
//     content notifications.
//   - KeyfilePath:  machine-local secret used to seal the stored token.
//   - HTTPTimeout:  per-request timeout for backend calls.
type Config struct {
	APIBaseURL   string
	CallbackURL  string
	StoreBackend string
	StorePath    string
	RedisURL     string
	RedisPrefix  string
	AgentAddr    string
	KeyfilePath  string
	HTTPTimeout  time.Duration
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "https://api.jobrefme.com"
	c.CallbackURL = "http://127.0.0.1:9218/auth/callback"
	c.StoreBackend = BackendSQLite
	c.StorePath = "jobrefme.db"
	c.RedisURL = "redis://127.0.0.1:6379/0"
	c.RedisPrefix = "jobrefme"
	c.AgentAddr = "127.0.0.1:9217"
	c.KeyfilePath = "jobrefme.key"
	c.HTTPTimeout = 30 * time.Second
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// JSON (if present) and command-line flags (if present). Later sources take
// precedence over earlier ones.
func LoadConfig() *Config {
	cfg := &Config{}
	cfg.LoadDefaults()
	parseJson(cfg)
	parseFlags(cfg)
	return cfg
}
