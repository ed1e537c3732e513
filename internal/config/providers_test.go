package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadProviders(t *testing.T) {
	doc := `
providers:
  - name: tier1
    base_url: https://api.tier1.example.com
    api_key_env: TIER1_API_KEY
    priority: 1
    rate_limit: 5
    burst: 10
    timeout: 3s
    reputation: 0.9
    enabled: true
  - name: tier2
    base_url: https://api.tier2.example.com
    priority: 2
    reputation: 0.7
    enabled: false
`
	path := filepath.Join(t.TempDir(), "providers.yaml")
	require.NoError(t, os.WriteFile(path, []byte(doc), 0o644))

	cfg, err := LoadProviders(path)
	require.NoError(t, err)
	require.Len(t, cfg.Providers, 2)
	assert.Len(t, cfg.Enabled(), 1)
	assert.Equal(t, "tier1", cfg.Enabled()[0].Name)

	t.Setenv("TIER1_API_KEY", "secret")
	assert.Equal(t, "secret", cfg.Providers[0].APIKey())
	assert.Equal(t, "", cfg.Providers[1].APIKey())
}

func TestProvidersValidate(t *testing.T) {
	cfg := ProvidersConfig{Providers: []ProviderConfig{
		{Name: "a", BaseURL: "https://x", Reputation: 0.5, Enabled: false},
	}}
	assert.EqualError(t, cfg.Validate(), "no enabled providers")

	cfg = ProvidersConfig{Providers: []ProviderConfig{
		{Name: "a", BaseURL: "https://x", Reputation: 0.5, Enabled: true},
		{Name: "a", BaseURL: "https://y", Reputation: 0.5, Enabled: true},
	}}
	err := cfg.Validate()
	require.Error(t, err)
	assert.Contains(t, err.Error(), "duplicate")

	cfg = ProvidersConfig{Providers: []ProviderConfig{
		{Name: "a", BaseURL: "https://x", Reputation: 1.5, Enabled: true},
	}}
	assert.Error(t, cfg.Validate())
}
