package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// ProviderConfig configures one upstream market-data vendor.
type ProviderConfig struct {
	Name       string        `yaml:"name"`
	BaseURL    string        `yaml:"base_url"`
	APIKeyEnv  string        `yaml:"api_key_env"` // env var holding the key, never the key itself
	Priority   int           `yaml:"priority"`    // lower tries first
	RateLimit  float64       `yaml:"rate_limit"`  // requests per second, 0 = unlimited
	Burst      int           `yaml:"burst"`
	Timeout    time.Duration `yaml:"timeout"`
	Reputation float64       `yaml:"reputation"` // static quality prior, [0,1]
	Enabled    bool          `yaml:"enabled"`
}

// APIKey resolves the configured key from the environment.
func (p *ProviderConfig) APIKey() string {
	if p.APIKeyEnv == "" {
		return ""
	}
	return os.Getenv(p.APIKeyEnv)
}

// ProvidersConfig is the full provider chain setup.
type ProvidersConfig struct {
	Providers []ProviderConfig `yaml:"providers"`
}

// LoadProviders loads and validates the provider chain configuration.
func LoadProviders(path string) (ProvidersConfig, error) {
	var cfg ProvidersConfig
	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read providers config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse providers config: %w", err)
	}
	if err := cfg.Validate(); err != nil {
		return cfg, fmt.Errorf("invalid providers config: %w", err)
	}
	return cfg, nil
}

// Validate rejects chains with no usable provider.
func (c *ProvidersConfig) Validate() error {
	enabled := 0
	seen := make(map[string]bool)
	for _, p := range c.Providers {
		if p.Name == "" {
			return fmt.Errorf("provider with empty name")
		}
		if seen[p.Name] {
			return fmt.Errorf("duplicate provider name %q", p.Name)
		}
		seen[p.Name] = true
		if p.BaseURL == "" {
			return fmt.Errorf("provider %s: base_url cannot be empty", p.Name)
		}
		if p.Reputation < 0 || p.Reputation > 1 {
			return fmt.Errorf("provider %s: reputation must be in [0,1], got %f", p.Name, p.Reputation)
		}
		if p.RateLimit < 0 {
			return fmt.Errorf("provider %s: rate_limit cannot be negative", p.Name)
		}
		if p.Enabled {
			enabled++
		}
	}
	if enabled == 0 {
		return fmt.Errorf("no enabled providers")
	}
	return nil
}

// Enabled returns the enabled providers in configured order.
func (c *ProvidersConfig) Enabled() []ProviderConfig {
	out := make([]ProviderConfig, 0, len(c.Providers))
	for _, p := range c.Providers {
		if p.Enabled {
			out = append(out, p)
		}
	}
	return out
}
