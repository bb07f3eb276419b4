package config

import (
	"fmt"
	"os"
	"strings"

	"github.com/BurntSushi/toml"
)

// Bootstrap seeds governance parameters on first start. Values are applied
// only when the parameter store has never been initialised; later changes go
// through governance calls, never through this file.
type Bootstrap struct {
	Governance     string `toml:"Governance"`
	Admin          string `toml:"Admin"`
	PriceThreshold string `toml:"PriceThreshold"`
}

// Config drives the rebalancing daemon: where to serve health and metrics,
// where to keep state, which contracts to talk to, and how often to check
// each collateral market.
type Config struct {
	ListenAddress   string            `toml:"ListenAddress"`
	GatewayURL      string            `toml:"GatewayURL"`
	DataDir         string            `toml:"DataDir"`
	Environment     string            `toml:"Environment"`
	IntervalSeconds int               `toml:"IntervalSeconds"`
	Collaterals     []string          `toml:"Collaterals"`
	Registry        map[string]string `toml:"Registry"`
	Bootstrap       Bootstrap         `toml:"Bootstrap"`
}

// Default returns the configuration used when no file is present.
func Default() *Config {
	return &Config{
		ListenAddress:   "127.0.0.1:8645",
		GatewayURL:      "http://127.0.0.1:9080",
		DataDir:         "./data",
		IntervalSeconds: 30,
		Collaterals:     []string{},
		Registry:        map[string]string{},
	}
}

// Load loads the configuration from the given path. A missing file yields the
// defaults.
func Load(path string) (*Config, error) {
	cfg := Default()
	if _, err := os.Stat(path); os.IsNotExist(err) {
		return cfg, nil
	}
	if _, err := toml.DecodeFile(path, cfg); err != nil {
		return nil, fmt.Errorf("config: decode %s: %w", path, err)
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate rejects configurations the daemon cannot run with.
func (c *Config) Validate() error {
	if strings.TrimSpace(c.ListenAddress) == "" {
		return fmt.Errorf("config: ListenAddress must not be empty")
	}
	if strings.TrimSpace(c.DataDir) == "" {
		return fmt.Errorf("config: DataDir must not be empty")
	}
	if strings.TrimSpace(c.GatewayURL) == "" {
		return fmt.Errorf("config: GatewayURL must not be empty")
	}
	if c.IntervalSeconds <= 0 {
		return fmt.Errorf("config: IntervalSeconds must be positive")
	}
	for _, symbol := range c.Collaterals {
		if strings.TrimSpace(symbol) == "" {
			return fmt.Errorf("config: Collaterals must not contain empty symbols")
		}
	}
	return nil
}
