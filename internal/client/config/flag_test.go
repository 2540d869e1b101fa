package config

import (
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParseFlags(t *testing.T) {
	tests := []struct {
		expected *Config
		name     string
		args     []string
		wantErr  bool
	}{
		{
			name: "all flags",
			args: []string{"-a", "http://127.0.0.1:9090", "-t", "10", "-d", "/tmp/sf", "-l", "debug", "-m", ":9100"},
			expected: &Config{
				APIBaseURL:     "http://127.0.0.1:9090",
				RequestTimeout: 10 * time.Second,
				DataDir:        "/tmp/sf",
				LogLevel:       "debug",
				MetricsAddr:    ":9100",
			},
		},
		{
			name:     "foreign flags are ignored",
			args:     []string{"-c", "cfg.json", "-x", "-t", "5"},
			expected: &Config{RequestTimeout: 5 * time.Second},
		},
		{name: "no flags", args: nil, expected: &Config{}},
		{name: "incorrect timeout", args: []string{"-t", "abc"}, wantErr: true, expected: &Config{}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := &Config{}
			err := parseFlags(cfg, tt.args)
			if tt.wantErr {
				require.Error(t, err)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, cmp.Diff(tt.expected, cfg))
		})
	}
}

func TestParseFlags_KeepsTimeoutWithoutFlag(t *testing.T) {
	cfg := &Config{RequestTimeout: 1500 * time.Millisecond}
	require.NoError(t, parseFlags(cfg, []string{"-l", "warn"}))
	assert.Equal(t, 1500*time.Millisecond, cfg.RequestTimeout)
	assert.Equal(t, "warn", cfg.LogLevel)
}
