package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func knownIDs(ids ...string) func(string) bool {
	set := make(map[string]bool, len(ids))
	for _, id := range ids {
		set[id] = true
	}
	return func(id string) bool { return set[id] }
}

func TestDefaultAlgorithm_IsValid(t *testing.T) {
	cfg := DefaultAlgorithm()
	require.NoError(t, cfg.Validate(knownIDs("composite")))
	assert.Equal(t, PolicyTopN, cfg.Selection.Policy)
}

func TestValidate_UnknownFactorRejected(t *testing.T) {
	cfg := DefaultAlgorithm()
	cfg.Factors = []FactorWeight{{ID: "made_up_factor", Weight: 1, Enabled: true}}
	err := cfg.Validate(knownIDs("composite"))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "made_up_factor")
}

func TestValidate_ZeroEnabledFactorsAllowed(t *testing.T) {
	// An all-disabled factor list is legal: the engine scores neutral.
	cfg := DefaultAlgorithm()
	cfg.Factors = []FactorWeight{{ID: "composite", Weight: 1, Enabled: false}}
	assert.NoError(t, cfg.Validate(knownIDs("composite")))
	assert.Empty(t, cfg.EnabledFactors())
}

func TestValidate_SelectionPolicies(t *testing.T) {
	cfg := DefaultAlgorithm()

	cfg.Selection = SelectionConfig{Policy: PolicyQuantile, Quantile: 0}
	assert.Error(t, cfg.Validate(nil))

	cfg.Selection = SelectionConfig{Policy: PolicyQuantile, Quantile: 0.2}
	assert.NoError(t, cfg.Validate(nil))

	cfg.Selection = SelectionConfig{Policy: PolicyThreshold, Threshold: 1.5}
	assert.Error(t, cfg.Validate(nil))

	cfg.Selection = SelectionConfig{Policy: "bogus"}
	assert.Error(t, cfg.Validate(nil))
}

func TestValidate_UniverseAllExcluded(t *testing.T) {
	cfg := DefaultAlgorithm()
	cfg.Universe.Symbols = []string{"AAPL", "MSFT"}
	cfg.Universe.Exclusions = []string{"AAPL", "MSFT"}
	err := cfg.Validate(nil)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "excluded")
}

func TestValidate_RiskBounds(t *testing.T) {
	cfg := DefaultAlgorithm()
	cfg.Risk.MaxPositionWeight = 0
	assert.Error(t, cfg.Validate(nil))

	cfg = DefaultAlgorithm()
	cfg.Risk.MaxSectorWeight = 1.2
	assert.Error(t, cfg.Validate(nil))
}

func TestLoadAlgorithm_RoundTrip(t *testing.T) {
	doc := `
name: momentum-tilt
factors:
  - id: momentum_composite
    weight: 0.6
    enabled: true
  - id: quality_composite
    weight: 0.4
    enabled: true
selection:
  policy: quantile
  quantile: 0.25
risk:
  max_position_weight: 0.08
  max_sector_weight: 0.25
universe:
  max_size: 50
  min_market_cap: 1000000000
run:
  batch_size: 5
  timeout: 2m
`
	path := filepath.Join(t.TempDir(), "algo.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadAlgorithm(path, knownIDs("momentum_composite", "quality_composite"))
	require.NoError(t, err)
	assert.Equal(t, "momentum-tilt", cfg.Name)
	assert.Equal(t, PolicyQuantile, cfg.Selection.Policy)
	assert.Equal(t, 0.25, cfg.Selection.Quantile)
	assert.Equal(t, 2*time.Minute, cfg.Run.Timeout)
	assert.Len(t, cfg.EnabledFactors(), 2)
}

func TestLoadAlgorithm_MissingFile(t *testing.T) {
	_, err := LoadAlgorithm("/nonexistent/algo.yaml", nil)
	assert.Error(t, err)
}
