package config

import (
	"errors"
	"fmt"
	"io/fs"
	"os"
	"strconv"
	"time"

	"github.com/joho/godotenv"
)

const envPrefix = "STOREFRONT_"

// parseEnv loads envFile into the process environment when it exists (values
// already set in the environment win) and overlays STOREFRONT_* variables.
//
// STOREFRONT_REQUEST_TIMEOUT accepts a duration ("15s") or whole seconds.
func parseEnv(cfg *Config, envFile string) error {
	if envFile != "" {
		if err := godotenv.Load(envFile); err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("load %s: %w", envFile, err)
		}
	}

	if v, ok := lookup("API_BASE_URL"); ok {
		cfg.APIBaseURL = v
	}
	if v, ok := lookup("REQUEST_TIMEOUT"); ok {
		d, err := parseSeconds(v)
		if err != nil {
			return fmt.Errorf("%sREQUEST_TIMEOUT: %w", envPrefix, err)
		}
		cfg.RequestTimeout = d
	}
	if v, ok := lookup("DATA_DIR"); ok {
		cfg.DataDir = v
	}
	if v, ok := lookup("LOG_LEVEL"); ok {
		cfg.LogLevel = v
	}
	if v, ok := lookup("LOG_FORMAT"); ok {
		cfg.LogFormat = v
	}
	if v, ok := lookup("SEAL_SESSION"); ok {
		b, err := strconv.ParseBool(v)
		if err != nil {
			return fmt.Errorf("%sSEAL_SESSION: %w", envPrefix, err)
		}
		cfg.SealSession = b
	}
	if v, ok := lookup("REQUESTS_PER_SECOND"); ok {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return fmt.Errorf("%sREQUESTS_PER_SECOND: %w", envPrefix, err)
		}
		cfg.RequestsPerSecond = f
	}
	if v, ok := lookup("OPENAPI_SPEC"); ok {
		cfg.OpenAPISpec = v
	}
	if v, ok := lookup("METRICS_ADDR"); ok {
		cfg.MetricsAddr = v
	}
	return nil
}

func lookup(name string) (string, bool) {
	v, ok := os.LookupEnv(envPrefix + name)
	if !ok || v == "" {
		return "", false
	}
	return v, true
}

func parseSeconds(v string) (time.Duration, error) {
	if n, err := strconv.Atoi(v); err == nil {
		return time.Duration(n) * time.Second, nil
	}
	return time.ParseDuration(v)
}
