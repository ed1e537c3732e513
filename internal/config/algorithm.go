// Package config loads and validates the scoring algorithm configuration.
package config

import (
	"fmt"
	"os"
	"time"

	"gopkg.in/yaml.v3"
)

// Selection policy kinds.
const (
	PolicyTopN      = "topN"
	PolicyRank      = "rank"
	PolicyQuantile  = "quantile"
	PolicyThreshold = "threshold"
)

// FactorWeight binds one factor id to its weight in the composite. Weights
// need not sum to 1; the engine renormalizes over the factors that computed.
type FactorWeight struct {
	ID      string  `yaml:"id"`
	Weight  float64 `yaml:"weight"`
	Enabled bool    `yaml:"enabled"`
}

// SelectionConfig picks which scored symbols survive into the result.
type SelectionConfig struct {
	Policy    string  `yaml:"policy"`
	TopN      int     `yaml:"top_n"`
	Quantile  float64 `yaml:"quantile"`  // top fraction by count, (0,1]
	Threshold float64 `yaml:"threshold"` // minimum score, [0,1]
}

// RiskConfig caps position and sector concentration.
type RiskConfig struct {
	MaxPositionWeight float64 `yaml:"max_position_weight"`
	MaxSectorWeight   float64 `yaml:"max_sector_weight"`
}

// UniverseConfig constrains which symbols a run may evaluate.
type UniverseConfig struct {
	Symbols      []string `yaml:"symbols"` // explicit list, takes precedence
	Sectors      []string `yaml:"sectors"` // allow-list, empty = all
	Exchanges    []string `yaml:"exchanges"`
	Exclusions   []string `yaml:"exclusions"`
	MinMarketCap float64  `yaml:"min_market_cap"`
	MaxMarketCap float64  `yaml:"max_market_cap"`
	MaxSize      int      `yaml:"max_size"`
}

// RunConfig tunes the orchestration mechanics.
type RunConfig struct {
	BatchSize int           `yaml:"batch_size"`
	Timeout   time.Duration `yaml:"timeout"`
}

// CacheTTLConfig overrides the per-class cache TTLs.
type CacheTTLConfig struct {
	RealTime     time.Duration `yaml:"real_time"`
	Scores       time.Duration `yaml:"scores"`
	Fundamentals time.Duration `yaml:"fundamentals"`
	Universe     time.Duration `yaml:"universe"`
}

// AlgorithmConfiguration is the complete scoring and selection setup for
// one run or one scheduled job.
type AlgorithmConfiguration struct {
	Name      string          `yaml:"name"`
	Factors   []FactorWeight  `yaml:"factors"`
	Selection SelectionConfig `yaml:"selection"`
	Risk      RiskConfig      `yaml:"risk"`
	Universe  UniverseConfig  `yaml:"universe"`
	Run       RunConfig       `yaml:"run"`
	CacheTTL  CacheTTLConfig  `yaml:"cache_ttl"`
}

// DefaultAlgorithm returns a balanced single-composite configuration.
func DefaultAlgorithm() AlgorithmConfiguration {
	return AlgorithmConfiguration{
		Name: "balanced",
		Factors: []FactorWeight{
			{ID: "composite", Weight: 1.0, Enabled: true},
		},
		Selection: SelectionConfig{Policy: PolicyTopN, TopN: 10},
		Risk: RiskConfig{
			MaxPositionWeight: 0.10,
			MaxSectorWeight:   0.30,
		},
		Universe: UniverseConfig{MaxSize: 100},
		Run: RunConfig{
			BatchSize: 10,
			Timeout:   5 * time.Minute,
		},
	}
}

// LoadAlgorithm loads an algorithm configuration from YAML, layered on the
// defaults, and validates it against the known factor ids.
func LoadAlgorithm(path string, knownFactor func(id string) bool) (AlgorithmConfiguration, error) {
	cfg := DefaultAlgorithm()

	data, err := os.ReadFile(path)
	if err != nil {
		return cfg, fmt.Errorf("failed to read algorithm config: %w", err)
	}
	if err := yaml.Unmarshal(data, &cfg); err != nil {
		return cfg, fmt.Errorf("failed to parse algorithm config: %w", err)
	}
	if err := cfg.Validate(knownFactor); err != nil {
		return cfg, fmt.Errorf("invalid algorithm config: %w", err)
	}
	return cfg, nil
}

// Validate rejects malformed configuration before any run starts. Zero
// enabled factors is legal (the engine scores neutral); unknown factor ids
// and an impossible universe are not.
func (c *AlgorithmConfiguration) Validate(knownFactor func(id string) bool) error {
	for _, f := range c.Factors {
		if f.ID == "" {
			return fmt.Errorf("factor with empty id")
		}
		if knownFactor != nil && !knownFactor(f.ID) {
			return fmt.Errorf("unknown factor id %q", f.ID)
		}
		if f.Weight < 0 {
			return fmt.Errorf("factor %s: weight must be non-negative, got %f", f.ID, f.Weight)
		}
	}

	switch c.Selection.Policy {
	case PolicyTopN, PolicyRank:
		if c.Selection.TopN < 0 {
			return fmt.Errorf("selection top_n cannot be negative, got %d", c.Selection.TopN)
		}
	case PolicyQuantile:
		if c.Selection.Quantile <= 0 || c.Selection.Quantile > 1 {
			return fmt.Errorf("selection quantile must be in (0,1], got %f", c.Selection.Quantile)
		}
	case PolicyThreshold:
		if c.Selection.Threshold < 0 || c.Selection.Threshold > 1 {
			return fmt.Errorf("selection threshold must be in [0,1], got %f", c.Selection.Threshold)
		}
	default:
		return fmt.Errorf("unknown selection policy %q", c.Selection.Policy)
	}

	if c.Risk.MaxPositionWeight <= 0 || c.Risk.MaxPositionWeight > 1 {
		return fmt.Errorf("risk max_position_weight must be in (0,1], got %f", c.Risk.MaxPositionWeight)
	}
	if c.Risk.MaxSectorWeight <= 0 || c.Risk.MaxSectorWeight > 1 {
		return fmt.Errorf("risk max_sector_weight must be in (0,1], got %f", c.Risk.MaxSectorWeight)
	}

	if err := c.Universe.Validate(); err != nil {
		return fmt.Errorf("universe: %w", err)
	}

	if c.Run.BatchSize <= 0 {
		return fmt.Errorf("run batch_size must be positive, got %d", c.Run.BatchSize)
	}
	if c.Run.Timeout <= 0 {
		return fmt.Errorf("run timeout must be positive, got %s", c.Run.Timeout)
	}
	return nil
}

// Validate rejects universes that cannot resolve to any symbol.
func (u *UniverseConfig) Validate() error {
	if u.MaxSize <= 0 {
		return fmt.Errorf("max_size must be positive, got %d", u.MaxSize)
	}
	if u.MaxMarketCap > 0 && u.MinMarketCap > u.MaxMarketCap {
		return fmt.Errorf("min_market_cap (%f) exceeds max_market_cap (%f)", u.MinMarketCap, u.MaxMarketCap)
	}
	excluded := make(map[string]bool, len(u.Exclusions))
	for _, s := range u.Exclusions {
		excluded[s] = true
	}
	if len(u.Symbols) > 0 {
		all := true
		for _, s := range u.Symbols {
			if !excluded[s] {
				all = false
				break
			}
		}
		if all {
			return fmt.Errorf("every explicit symbol is excluded")
		}
	}
	return nil
}

// EnabledFactors returns the enabled factor weights in configured order.
func (c *AlgorithmConfiguration) EnabledFactors() []FactorWeight {
	enabled := make([]FactorWeight, 0, len(c.Factors))
	for _, f := range c.Factors {
		if f.Enabled && f.Weight > 0 {
			enabled = append(enabled, f)
		}
	}
	return enabled
}
