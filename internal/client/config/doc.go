// Package config loads runtime configuration for the JobRefMe CLI and agent.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  3. Command-line flags (see parseFlags), which override earlier values.
//
// # JSON schema
//
// The JSON loader uses timex.Duration for intervals, so values can be either
// strings like "30s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "https://api.jobrefme.com",
//	  "store_backend": "sqlite",
//	  "store_path": "jobrefme.db",
//	  "agent_addr": "127.0.0.1:9217",
//	  "http_timeout": "30s"
//	}
//
// Note: This package does not read environment variables; use the JSON file
// or flags to configure values.
package config
