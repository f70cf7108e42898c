// Package config loads the YAML configuration of the paper wallet service.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

type Config struct {
	Wallet struct {
		Path             string  `yaml:"path"`
		DefaultBalance   float64 `yaml:"default_balance"`
		StrategyFraction float64 `yaml:"strategy_fraction"`
	} `yaml:"wallet"`
	Journal struct {
		Path    string `yaml:"path"`
		Enabled bool   `yaml:"enabled"`
	} `yaml:"journal"`
	Exchange struct {
		Name         string `yaml:"name"`
		RESTEndpoint string `yaml:"rest_endpoint"`
		WSEndpoint   string `yaml:"ws_endpoint"`
		Category     string `yaml:"category"`
	} `yaml:"exchange"`
	Monitor struct {
		Symbols    []string `yaml:"symbols"`
		IntervalMs int      `yaml:"interval_ms"`
		UseWS      bool     `yaml:"use_ws"`
	} `yaml:"monitor"`
	Logging struct {
		Level string `yaml:"level"`
		File  string `yaml:"file"`
	} `yaml:"logging"`
	Server struct {
		Port int `yaml:"port"`
	} `yaml:"server"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	cfg := &Config{}
	cfg.applyDefaults()
	cfg.Journal.Enabled = true
	return cfg
}

// Load reads path and backfills zero values with defaults.
func Load(path string) (*Config, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	cfg := &Config{}
	decoder := yaml.NewDecoder(f)
	if err := decoder.Decode(cfg); err != nil {
		return nil, fmt.Errorf("failed to decode %s: %w", path, err)
	}
	cfg.applyDefaults()
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

func (c *Config) applyDefaults() {
	if c.Wallet.Path == "" {
		c.Wallet.Path = "data/paper_wallet.json"
	}
	if c.Wallet.DefaultBalance == 0 {
		c.Wallet.DefaultBalance = 10000.0
	}
	if c.Wallet.StrategyFraction == 0 {
		c.Wallet.StrategyFraction = 0.1
	}
	if c.Journal.Path == "" {
		c.Journal.Path = "data/journal.db"
	}
	if c.Exchange.Name == "" {
		c.Exchange.Name = "bybit"
	}
	if c.Exchange.Category == "" {
		c.Exchange.Category = "linear"
	}
	if c.Monitor.IntervalMs == 0 {
		c.Monitor.IntervalMs = 5000
	}
	if c.Logging.Level == "" {
		c.Logging.Level = "info"
	}
	if c.Server.Port == 0 {
		c.Server.Port = 8080
	}
}

func (c *Config) Validate() error {
	if c.Wallet.DefaultBalance < 0 {
		return fmt.Errorf("wallet.default_balance must be positive, got %v", c.Wallet.DefaultBalance)
	}
	if c.Wallet.StrategyFraction < 0 || c.Wallet.StrategyFraction > 1 {
		return fmt.Errorf("wallet.strategy_fraction must be in (0,1], got %v", c.Wallet.StrategyFraction)
	}
	if c.Monitor.IntervalMs < 0 {
		return fmt.Errorf("monitor.interval_ms must be positive, got %d", c.Monitor.IntervalMs)
	}
	if c.Exchange.Name != "bybit" {
		return fmt.Errorf("unsupported exchange %q", c.Exchange.Name)
	}
	return nil
}

func (c *Config) MonitorInterval() time.Duration {
	return time.Duration(c.Monitor.IntervalMs) * time.Millisecond
}
