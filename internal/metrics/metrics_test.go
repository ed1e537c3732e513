package metrics

import (
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	dto "github.com/prometheus/client_model/go"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func gatherValue(t *testing.T, name string, labels map[string]string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			if !labelsMatch(m, labels) {
				continue
			}
			if m.GetCounter() != nil {
				return m.GetCounter().GetValue()
			}
			if m.GetHistogram() != nil {
				return float64(m.GetHistogram().GetSampleCount())
			}
		}
	}
	return 0
}

func labelsMatch(m *dto.Metric, labels map[string]string) bool {
	have := make(map[string]string, len(m.GetLabel()))
	for _, lp := range m.GetLabel() {
		have[lp.GetName()] = lp.GetValue()
	}
	for k, v := range labels {
		if have[k] != v {
			return false
		}
	}
	return true
}

func TestScanCompleted(t *testing.T) {
	before := gatherValue(t, "stockrank_scans_total", map[string]string{"state": "completed"})
	ScanCompleted("completed", 2*time.Second)
	after := gatherValue(t, "stockrank_scans_total", map[string]string{"state": "completed"})
	assert.Equal(t, before+1, after)

	samples := gatherValue(t, "stockrank_scan_duration_seconds", nil)
	assert.GreaterOrEqual(t, samples, 1.0)
}

func TestProviderAndCacheCounters(t *testing.T) {
	ProviderCall("tier1", "price", "ok")
	assert.Equal(t, 1.0, gatherValue(t, "stockrank_provider_calls_total",
		map[string]string{"provider": "tier1", "op": "price", "status": "ok"}))

	CacheHit("scores")
	CacheMiss("scores")
	assert.GreaterOrEqual(t, gatherValue(t, "stockrank_cache_hits_total",
		map[string]string{"class": "scores"}), 1.0)
	assert.GreaterOrEqual(t, gatherValue(t, "stockrank_cache_misses_total",
		map[string]string{"class": "scores"}), 1.0)
}
