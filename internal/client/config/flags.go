package config

import (
	"flag"
	"os"
	"time"

	"github.com/jobrefme/jobrefme-cli/internal/flagx"
)

// parseFlags populates selected Config fields from command-line flags.
//
// Supported flags (short forms):
//
//	-a string   base URL of the JobRefMe backend
//	-u string   OAuth callback (redirect) URL
//	-b string   store backend: sqlite or redis
//	-s string   SQLite database file
//	-r string   Redis connection URL
//	-l string   agent listen address (host:port)
//	-k string   token sealing keyfile
//	-t int      backend request timeout (in seconds)
//
// Note: The function filters os.Args to only include the flags it knows
// about, using flagx.FilterArgs, to avoid interference with other components.
func parseFlags(cfg *Config) {
	args := flagx.FilterArgs(os.Args[1:], []string{"-a", "-u", "-b", "-s", "-r", "-l", "-k", "-t"})

	fs := flag.NewFlagSet("main", flag.ContinueOnError)

	fs.StringVar(&cfg.APIBaseURL, "a", cfg.APIBaseURL, "base URL of the JobRefMe backend")
	fs.StringVar(&cfg.CallbackURL, "u", cfg.CallbackURL, "OAuth callback (redirect) URL")
	fs.StringVar(&cfg.StoreBackend, "b", cfg.StoreBackend, "store backend: sqlite or redis")
	fs.StringVar(&cfg.StorePath, "s", cfg.StorePath, "SQLite database file")
	fs.StringVar(&cfg.RedisURL, "r", cfg.RedisURL, "Redis connection URL")
	fs.StringVar(&cfg.AgentAddr, "l", cfg.AgentAddr, "agent listen address (host:port)")
	fs.StringVar(&cfg.KeyfilePath, "k", cfg.KeyfilePath, "token sealing keyfile")
	httpTimeout := fs.Int("t", int(cfg.HTTPTimeout.Seconds()), "backend request timeout (in seconds)")

	if err := fs.Parse(args); err != nil {
		panic(err)
	}

	cfg.HTTPTimeout = time.Duration(*httpTimeout) * time.Second
}
