package config

import (
	"os"
	"path/filepath"
	"time"
)

// Config holds runtime settings for the storefront CLI.
//
// Fields:
//   - APIBaseURL: base URL of the storefront HTTP API.
//   - RequestTimeout: uniform timeout applied to every API request.
//   - DataDir: directory holding the local database and the sealing key.
//   - LogLevel, LogFormat: diagnostics verbosity ("debug".."error") and
//     handler ("text" or "json").
//   - SealSession: encrypt the stored session at rest.
//   - RequestsPerSecond: client-side request rate limit; 0 disables it.
//   - OpenAPISpec: path of the API's OpenAPI document; when set, responses
//     are checked against it and mismatches are logged.
//   - MetricsAddr: listen address for the Prometheus /metrics endpoint;
//     empty disables it.
type Config struct {
	APIBaseURL        string
	RequestTimeout    time.Duration
	DataDir           string
	LogLevel          string
	LogFormat         string
	SealSession       bool
	RequestsPerSecond float64
	OpenAPISpec       string
	MetricsAddr       string
}

// LoadDefaults populates c with sensible defaults.
func (c *Config) LoadDefaults() {
	c.APIBaseURL = "http://localhost:8000"
	c.RequestTimeout = 30 * time.Second
	c.DataDir = defaultDataDir()
	c.LogLevel = "info"
	c.LogFormat = "text"
	c.SealSession = false
	c.RequestsPerSecond = 0
	c.OpenAPISpec = ""
	c.MetricsAddr = ""
}

func defaultDataDir() string {
	if dir, err := os.UserConfigDir(); err == nil {
		return filepath.Join(dir, "storefront")
	}
	return ".storefront"
}

// DatabasePath is the SQLite file inside DataDir.
func (c *Config) DatabasePath() string {
	return filepath.Join(c.DataDir, "storefront.db")
}

// KeyPath is the session sealing key file inside DataDir.
func (c *Config) KeyPath() string {
	return filepath.Join(c.DataDir, "session.key")
}

// LoadConfig constructs a Config, applies defaults, then overlays values from
// the environment (and a .env file, if present), JSON (if -c/-config is
// given) and command-line flags. Later sources take precedence over earlier
// ones. args excludes the program name.
func LoadConfig(args []string) (*Config, error) {
	cfg := &Config{}
	cfg.LoadDefaults()
	if err := parseEnv(cfg, ".env"); err != nil {
		return nil, err
	}
	if err := parseJson(cfg, args); err != nil {
		return nil, err
	}
	if err := parseFlags(cfg, args); err != nil {
		return nil, err
	}
	return cfg, nil
}
