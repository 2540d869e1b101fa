package config

import (
	"encoding/json"
	"fmt"
	"os"

	"github.com/dmitrijs2005/storefront/internal/flagx"
	"github.com/dmitrijs2005/storefront/internal/timex"
)

// JsonConfig is a DTO used exclusively for JSON unmarshalling.
// It relies on timex.Duration so JSON can specify the timeout either as a
// string like "30s" or as integer nanoseconds. Absent fields leave the
// current value untouched.
type JsonConfig struct {
	APIBaseURL        string          `json:"api_base_url"`
	RequestTimeout    *timex.Duration `json:"request_timeout"`
	DataDir           string          `json:"data_dir"`
	LogLevel          string          `json:"log_level"`
	LogFormat         string          `json:"log_format"`
	SealSession       *bool           `json:"seal_session"`
	RequestsPerSecond *float64        `json:"requests_per_second"`
	OpenAPISpec       string          `json:"openapi_spec"`
	MetricsAddr       string          `json:"metrics_addr"`
}

// parseJson overlays Config with values loaded from the JSON file named by
// -c or -config in args. Without either flag it does nothing.
func parseJson(cfg *Config, args []string) error {
	jsonConfigFile := flagx.ConfigFileFlag(args)
	if jsonConfigFile == "" {
		return nil
	}

	data, err := os.ReadFile(jsonConfigFile)
	if err != nil {
		return fmt.Errorf("read config file: %w", err)
	}

	var jc JsonConfig
	if err := json.Unmarshal(data, &jc); err != nil {
		return fmt.Errorf("parse config file %s: %w", jsonConfigFile, err)
	}

	if jc.APIBaseURL != "" {
		cfg.APIBaseURL = jc.APIBaseURL
	}
	if jc.RequestTimeout != nil {
		cfg.RequestTimeout = jc.RequestTimeout.Duration
	}
	if jc.DataDir != "" {
		cfg.DataDir = jc.DataDir
	}
	if jc.LogLevel != "" {
		cfg.LogLevel = jc.LogLevel
	}
	if jc.LogFormat != "" {
		cfg.LogFormat = jc.LogFormat
	}
	if jc.SealSession != nil {
		cfg.SealSession = *jc.SealSession
	}
	if jc.RequestsPerSecond != nil {
		cfg.RequestsPerSecond = *jc.RequestsPerSecond
	}
	if jc.OpenAPISpec != "" {
		cfg.OpenAPISpec = jc.OpenAPISpec
	}
	if jc.MetricsAddr != "" {
		cfg.MetricsAddr = jc.MetricsAddr
	}
	return nil
}
