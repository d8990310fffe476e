// Package config loads the analysis configuration from YAML with
// environment overrides.
package config

import (
	"fmt"
	"os"
	"strconv"

	"gopkg.in/yaml.v3"
)

// WatchedFund is one watchlist entry.
type WatchedFund struct {
	Name    string   `yaml:"name"`
	CIK     string   `yaml:"cik"`
	Tier    string   `yaml:"tier"`
	Aliases []string `yaml:"aliases"`
}

// Config is the full application configuration.
type Config struct {
	Watchlist []WatchedFund `yaml:"watchlist"`

	Analysis struct {
		MinFundsForCrowd     int     `yaml:"min_funds_for_crowd"`
		MinFundsForConsensus int     `yaml:"min_funds_for_consensus"`
		OptionsAUMThreshold  float64 `yaml:"options_aum_threshold"`
		BaselineMinQuarters  int     `yaml:"baseline_min_quarters"`
		TopFindings          int     `yaml:"top_findings"`
		Workers              int     `yaml:"workers"`
	} `yaml:"analysis"`

	Postgres struct {
		DSN string `yaml:"dsn"`
	} `yaml:"postgres"`

	ClickHouse struct {
		DSN string `yaml:"dsn"`
	} `yaml:"clickhouse"`

	Logging struct {
		Level  string `yaml:"level"`
		Format string `yaml:"format"`
	} `yaml:"logging"`

	Metrics struct {
		Enabled bool   `yaml:"enabled"`
		Addr    string `yaml:"addr"`
	} `yaml:"metrics"`

	Output struct {
		Dir string `yaml:"dir"`
	} `yaml:"output"`
}

// Default returns the configuration used when no file is given.
func Default() *Config {
	var c Config
	c.Analysis.MinFundsForCrowd = 3
	c.Analysis.MinFundsForConsensus = 3
	c.Analysis.OptionsAUMThreshold = 0.005
	c.Analysis.BaselineMinQuarters = 3
	c.Analysis.TopFindings = 5
	c.Analysis.Workers = 4
	c.Logging.Level = "info"
	c.Logging.Format = "console"
	c.Output.Dir = "output"
	return &c
}

// Load reads and parses a YAML configuration file.
func Load(path string) (*Config, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read config: %w", err)
	}

	c := Default()
	if err := yaml.Unmarshal(b, c); err != nil {
		return nil, fmt.Errorf("parse config: %w", err)
	}

	if err := c.Validate(); err != nil {
		return nil, fmt.Errorf("validate config: %w", err)
	}

	return c, nil
}

// LoadWithEnv loads config from YAML and overrides with FT13F_* environment
// variables.
func LoadWithEnv(path string) (*Config, error) {
	c, err := Load(path)
	if err != nil {
		return nil, err
	}

	if v := os.Getenv("FT13F_POSTGRES_DSN"); v != "" {
		c.Postgres.DSN = v
	}
	if v := os.Getenv("FT13F_CLICKHOUSE_DSN"); v != "" {
		c.ClickHouse.DSN = v
	}
	if v := os.Getenv("FT13F_LOG_LEVEL"); v != "" {
		c.Logging.Level = v
	}
	if v := os.Getenv("FT13F_METRICS_ADDR"); v != "" {
		c.Metrics.Enabled = true
		c.Metrics.Addr = v
	}
	if v := os.Getenv("FT13F_OUTPUT_DIR"); v != "" {
		c.Output.Dir = v
	}
	if v := os.Getenv("FT13F_WORKERS"); v != "" {
		n, err := strconv.Atoi(v)
		if err != nil {
			return nil, fmt.Errorf("parse FT13F_WORKERS: %w", err)
		}
		c.Analysis.Workers = n
	}

	return c, nil
}

// Validate checks if the configuration is valid.
func (c *Config) Validate() error {
	for i, f := range c.Watchlist {
		if f.Name == "" {
			return fmt.Errorf("watchlist[%d]: name is required", i)
		}
		if f.CIK == "" {
			return fmt.Errorf("watchlist[%d] (%s): cik is required", i, f.Name)
		}
	}
	if c.Analysis.MinFundsForCrowd < 1 {
		return fmt.Errorf("analysis.min_funds_for_crowd must be positive")
	}
	if c.Analysis.MinFundsForConsensus < 1 {
		return fmt.Errorf("analysis.min_funds_for_consensus must be positive")
	}
	if c.Analysis.Workers < 1 {
		return fmt.Errorf("analysis.workers must be positive")
	}
	return nil
}
