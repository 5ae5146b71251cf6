// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/go-playground/validator/v10"
)

var validate = validator.New()

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via
// CLI flags.
type Config struct {
	// Paths
	Input     string `json:"input,omitempty"`      // Path to tank spreadsheet (.xlsx/.csv) or geographic archive (.kmz/.kml)
	Polygon   string `json:"polygon,omitempty"`    // Path to boundary polygon file (one "lon,lat" per line)
	OutputDir string `json:"output_dir,omitempty"` // Directory for artifacts; defaults to ./output

	// Calculator
	CalculatorURL  string  `json:"calculator_url,omitempty" validate:"omitempty,url"` // Override for the HUD calculator URL
	QueryTimeout   string  `json:"query_timeout,omitempty"`                           // Per-tank query budget, e.g. "45s"
	MaxRetries     int     `json:"max_retries,omitempty" validate:"min=0,max=5"`      // Extra attempts per tank after the first
	RetryBackoff   string  `json:"retry_backoff,omitempty"`                           // Base backoff between attempts, e.g. "5s"
	MinTankGallons float64 `json:"min_tank_gallons,omitempty" validate:"min=0"`       // Skip tanks below this volume

	// Behavior
	APIKey      string `json:"api_key,omitempty"`                              // Gemini API key for ambiguous capacity text
	DatabaseURL string `json:"database_url,omitempty"`                         // Optional PostgreSQL archive
	Verbose     bool   `json:"verbose,omitempty"`                              // Print detailed progress boxes
	Workers     int    `json:"workers,omitempty" validate:"omitempty,min=1,max=8"` // Concurrent calculator sessions
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Required fields are handled by CLI flag validation after merging.
func (c *Config) Validate() error {
	if err := validate.Struct(c); err != nil {
		return fmt.Errorf("config error: %w", err)
	}

	if c.Input != "" {
		if _, err := os.Stat(c.Input); os.IsNotExist(err) {
			return fmt.Errorf("config error: input file not found: %s", c.Input)
		}
	}
	if c.Polygon != "" {
		if _, err := os.Stat(c.Polygon); os.IsNotExist(err) {
			return fmt.Errorf("config error: polygon file not found: %s", c.Polygon)
		}
	}
	if _, err := c.ParsedQueryTimeout(); err != nil {
		return err
	}
	if _, err := c.ParsedRetryBackoff(); err != nil {
		return err
	}
	return nil
}

// ParsedQueryTimeout returns the per-tank query budget, or zero when unset.
func (c *Config) ParsedQueryTimeout() (time.Duration, error) {
	return parseDuration("query_timeout", c.QueryTimeout)
}

// ParsedRetryBackoff returns the base retry backoff, or zero when unset.
func (c *Config) ParsedRetryBackoff() (time.Duration, error) {
	return parseDuration("retry_backoff", c.RetryBackoff)
}

func parseDuration(field, value string) (time.Duration, error) {
	if value == "" {
		return 0, nil
	}
	d, err := time.ParseDuration(value)
	if err != nil {
		return 0, fmt.Errorf("config error: invalid %s %q: %w", field, value, err)
	}
	if d <= 0 {
		return 0, fmt.Errorf("config error: %s must be positive", field)
	}
	return d, nil
}

// MergeWithDefaults returns a new Config with empty fields filled from
// defaults. This applies config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	if result.Input == "" {
		result.Input = defaults.Input
	}
	if result.Polygon == "" {
		result.Polygon = defaults.Polygon
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.CalculatorURL == "" {
		result.CalculatorURL = defaults.CalculatorURL
	}
	if result.QueryTimeout == "" {
		result.QueryTimeout = defaults.QueryTimeout
	}
	if result.RetryBackoff == "" {
		result.RetryBackoff = defaults.RetryBackoff
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.DatabaseURL == "" {
		result.DatabaseURL = defaults.DatabaseURL
	}

	if result.MaxRetries == 0 {
		result.MaxRetries = defaults.MaxRetries
	}
	if result.MinTankGallons == 0 {
		result.MinTankGallons = defaults.MinTankGallons
	}
	if result.Workers == 0 {
		result.Workers = defaults.Workers
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
