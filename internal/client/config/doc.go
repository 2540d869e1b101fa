// Package config loads runtime configuration for the storefront CLI.
//
// Sources & precedence
//
//  1. Built-in defaults (see (*Config).LoadDefaults).
//  2. Environment: a .env file in the working directory, if present, then
//     STOREFRONT_* variables (see parseEnv).
//  3. Optional JSON file (see parseJson) selected via flags: -c or -config.
//  4. Command-line flags (see parseFlags), which override earlier values.
//
// Supported flags
//
//	-a string   base URL of the storefront API
//	-t int      request timeout (seconds)
//	-d string   data directory
//	-l string   log level
//	-m string   metrics listen address
//
// # JSON schema
//
// The JSON loader uses timex.Duration for the timeout, so it can be either a
// string like "30s" or integer nanoseconds:
//
//	{
//	  "api_base_url": "http://localhost:8000",
//	  "request_timeout": "30s",
//	  "data_dir": "/home/me/.config/storefront",
//	  "log_level": "info",
//	  "log_format": "text",
//	  "seal_session": true,
//	  "requests_per_second": 5,
//	  "openapi_spec": "openapi.json",
//	  "metrics_addr": "127.0.0.1:9100"
//	}
package config
