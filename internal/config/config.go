package config

import (
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/alvmarrod/site-spider/internal/profile"
	"github.com/alvmarrod/site-spider/internal/version"
)

// DefaultPath is the config file read when no --config flag is given
const DefaultPath = "spider.json"

// Config holds all runtime configuration parameters
type Config struct {
	ConcurrentWorkers int               `json:"concurrent_workers"`
	RequestTimeoutMs  int               `json:"request_timeout_ms"`
	UserAgent         string            `json:"user_agent"`
	MaxBodyBytes      int               `json:"max_body_bytes"`
	LedgerPath        string            `json:"ledger_path"`
	MetricsPath       string            `json:"metrics_path"`
	LogLevel          string            `json:"log_level"`
	ProgressEverySec  int               `json:"progress_every_sec"`
	Profiles          []profile.Profile `json:"profiles"`
}

// Default returns a configuration with every default applied
func Default() *Config {
	cfg := &Config{}
	applyDefaults(cfg)
	return cfg
}

// LoadConfig reads and validates configuration from a JSON file. A missing
// file at the default path is not an error; defaults are used instead.
func LoadConfig(path string) (*Config, error) {
	file, err := os.Open(path)
	if errors.Is(err, fs.ErrNotExist) && path == DefaultPath {
		return Default(), nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to open config file: %w", err)
	}
	defer file.Close()

	var cfg Config
	decoder := json.NewDecoder(file)
	decoder.DisallowUnknownFields()
	if err := decoder.Decode(&cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	// Apply defaults for missing values
	applyDefaults(&cfg)

	// Validate configuration
	if err := validate(&cfg); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return &cfg, nil
}

// Registry returns the builtin profiles plus any defined in the config
func (c *Config) Registry() (*profile.Registry, error) {
	reg := profile.NewRegistry()
	for _, p := range c.Profiles {
		if err := reg.Register(p); err != nil {
			return nil, err
		}
	}
	return reg, nil
}

// LedgerFor returns the ledger database path for a crawl. Unless configured,
// it sits next to the profile's output directory so the directory itself
// only ever holds page records.
func (c *Config) LedgerFor(outputRoot, profileName string) string {
	if c.LedgerPath != "" {
		return c.LedgerPath
	}
	return filepath.Join(outputRoot, profileName+".db")
}

// MetricsFor returns the metrics file path for a crawl
func (c *Config) MetricsFor(outputRoot, profileName string) string {
	if c.MetricsPath != "" {
		return c.MetricsPath
	}
	return filepath.Join(outputRoot, profileName+".metrics.json")
}

// applyDefaults sets default values for unspecified fields
func applyDefaults(cfg *Config) {
	if cfg.ConcurrentWorkers == 0 {
		cfg.ConcurrentWorkers = 8
	}
	if cfg.RequestTimeoutMs == 0 {
		cfg.RequestTimeoutMs = 10000
	}
	if cfg.UserAgent == "" {
		cfg.UserAgent = version.UserAgent()
	}
	if cfg.MaxBodyBytes == 0 {
		cfg.MaxBodyBytes = 10 * 1024 * 1024
	}
	if cfg.LogLevel == "" {
		cfg.LogLevel = "warning"
	}
	if cfg.ProgressEverySec == 0 {
		cfg.ProgressEverySec = 10
	}
}

// validate checks that required fields are present and values are sensible
func validate(cfg *Config) error {
	if cfg.ConcurrentWorkers < 1 {
		return fmt.Errorf("concurrent_workers must be >= 1")
	}
	if cfg.RequestTimeoutMs < 1000 {
		return fmt.Errorf("request_timeout_ms must be >= 1000")
	}
	if cfg.MaxBodyBytes < 0 {
		return fmt.Errorf("max_body_bytes must be >= 0")
	}
	if cfg.ProgressEverySec < 1 {
		return fmt.Errorf("progress_every_sec must be >= 1")
	}
	for _, p := range cfg.Profiles {
		if err := p.Validate(); err != nil {
			return fmt.Errorf("profiles: %w", err)
		}
	}
	return nil
}
