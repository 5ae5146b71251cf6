package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfig(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "config.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadConfig(t *testing.T) {
	path := writeConfig(t, `{
		"input": "tanks.xlsx",
		"polygon": "polygon_site.txt",
		"output_dir": "out",
		"query_timeout": "30s",
		"max_retries": 2,
		"verbose": true
	}`)

	cfg, err := LoadConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "tanks.xlsx", cfg.Input)
	assert.Equal(t, "polygon_site.txt", cfg.Polygon)
	assert.Equal(t, 2, cfg.MaxRetries)
	assert.True(t, cfg.Verbose)

	timeout, err := cfg.ParsedQueryTimeout()
	require.NoError(t, err)
	assert.Equal(t, 30*time.Second, timeout)
}

func TestLoadConfigErrors(t *testing.T) {
	t.Run("empty path", func(t *testing.T) {
		_, err := LoadConfig("")
		assert.Error(t, err)
	})

	t.Run("missing file", func(t *testing.T) {
		_, err := LoadConfig(filepath.Join(t.TempDir(), "missing.json"))
		assert.Error(t, err)
	})

	t.Run("malformed json", func(t *testing.T) {
		path := writeConfig(t, `{not json`)
		_, err := LoadConfig(path)
		assert.Error(t, err)
	})
}

func TestValidate(t *testing.T) {
	dir := t.TempDir()
	input := filepath.Join(dir, "tanks.csv")
	require.NoError(t, os.WriteFile(input, []byte("Site Name\n"), 0o644))

	tests := []struct {
		name    string
		cfg     Config
		wantErr string
	}{
		{
			name: "valid",
			cfg:  Config{Input: input, MaxRetries: 2, QueryTimeout: "45s"},
		},
		{
			name:    "input missing",
			cfg:     Config{Input: filepath.Join(dir, "gone.csv")},
			wantErr: "input file not found",
		},
		{
			name:    "polygon missing",
			cfg:     Config{Polygon: filepath.Join(dir, "gone.txt")},
			wantErr: "polygon file not found",
		},
		{
			name:    "retries out of range",
			cfg:     Config{MaxRetries: 10},
			wantErr: "config error",
		},
		{
			name:    "bad timeout",
			cfg:     Config{QueryTimeout: "soon"},
			wantErr: "invalid query_timeout",
		},
		{
			name:    "negative backoff",
			cfg:     Config{RetryBackoff: "-5s"},
			wantErr: "must be positive",
		},
		{
			name:    "bad calculator url",
			cfg:     Config{CalculatorURL: "not a url"},
			wantErr: "config error",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.cfg.Validate()
			if tt.wantErr == "" {
				assert.NoError(t, err)
			} else {
				require.Error(t, err)
				assert.Contains(t, err.Error(), tt.wantErr)
			}
		})
	}
}

func TestMergeWithDefaults(t *testing.T) {
	cfg := Config{Input: "cli.xlsx", MaxRetries: 1}
	defaults := Config{
		Input:        "file.xlsx",
		OutputDir:    "out",
		MaxRetries:   3,
		QueryTimeout: "45s",
		Workers:      2,
	}

	merged := cfg.MergeWithDefaults(defaults)

	// CLI value wins over default.
	assert.Equal(t, "cli.xlsx", merged.Input)
	assert.Equal(t, 1, merged.MaxRetries)
	// Unset values fall back.
	assert.Equal(t, "out", merged.OutputDir)
	assert.Equal(t, "45s", merged.QueryTimeout)
	assert.Equal(t, 2, merged.Workers)
}
