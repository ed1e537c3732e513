package sector

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestDefaultTable_Invariants(t *testing.T) {
	table := DefaultTable()
	require.NoError(t, table.Validate())

	for sectorName, ratios := range table {
		for ratio, bm := range ratios {
			assert.Less(t, bm.P25, bm.Median, "%s/%s", sectorName, ratio)
			assert.Less(t, bm.Median, bm.P75, "%s/%s", sectorName, ratio)
			if bm.HasMax() {
				assert.Less(t, bm.P75, bm.Max, "%s/%s", sectorName, ratio)
			}
		}
	}
}

func TestResolve_Normalization(t *testing.T) {
	assert.Equal(t, "Technology", Resolve("Technology"))
	assert.Equal(t, "Technology", Resolve(" technology "))
	assert.Equal(t, "Technology", Resolve("Information Technology"))
	assert.Equal(t, "Consumer Defensive", Resolve("Consumer Staples"))
	assert.Equal(t, "Financial Services", Resolve("Financials"))
}

func TestResolve_Idempotent(t *testing.T) {
	for _, name := range []string{"Technology", " technology ", "Financials", "bogus"} {
		once := Resolve(name)
		assert.Equal(t, once, Resolve(once), "Resolve must be idempotent for %q", name)
	}
}

func TestResolve_FallsBackToDefault(t *testing.T) {
	assert.Equal(t, Default, Resolve(""))
	assert.Equal(t, Default, Resolve("   "))
	assert.Equal(t, Default, Resolve("12345"))
	assert.Equal(t, Default, Resolve("!!!"))
	assert.Equal(t, Default, Resolve("Underwater Basket Weaving"))
}

func TestBenchmarks_UnknownSectorReturnsDefaultExactly(t *testing.T) {
	table := DefaultTable()
	def := table[Default]

	assert.Equal(t, def, table.Benchmarks("unknown sector"))
	assert.Equal(t, def, table.Benchmarks(""))
	assert.Equal(t, def, table.Benchmarks("42"))
}

func TestBenchmarks_CaseAndWhitespaceInsensitive(t *testing.T) {
	table := DefaultTable()
	assert.Equal(t, table.Benchmarks("Technology"), table.Benchmarks(" technology "))
}

func TestLoadTable_RejectsBrokenOrdering(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "benchmarks.yaml")
	broken := `
Default:
  pe: {p25: 20, median: 15, p75: 30, max: 50}
`
	require.NoError(t, os.WriteFile(path, []byte(broken), 0o644))

	_, err := LoadTable(path)
	assert.Error(t, err)
}

func TestLoadTable_RoundTrip(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "benchmarks.yaml")
	ok := `
Technology:
  pe: {p25: 18, median: 26, p75: 38, max: 60}
Default:
  pe: {p25: 18, median: 26, p75: 38, max: 60}
`
	require.NoError(t, os.WriteFile(path, []byte(ok), 0o644))

	table, err := LoadTable(path)
	require.NoError(t, err)

	bm, found := table.Benchmark("Technology", RatioPE)
	require.True(t, found)
	assert.Equal(t, 26.0, bm.Median)
}
