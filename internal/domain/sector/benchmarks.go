package sector

import (
	"fmt"
	"os"
	"sort"
	"strings"
	"unicode"

	"gopkg.in/yaml.v3"
)

// Ratio identifies a valuation ratio with a per-sector benchmark.
type Ratio string

const (
	RatioPE       Ratio = "pe"
	RatioPB       Ratio = "pb"
	RatioPS       Ratio = "ps"
	RatioEVEBITDA Ratio = "ev_ebitda"
	RatioPEG      Ratio = "peg"
)

// Default is the reserved sector name holding market-wide fallback
// benchmarks for unknown or unclassifiable sectors.
const Default = "Default"

// Canonical sector names. Synonyms from common data vendors map onto these.
var canonicalSectors = []string{
	"Technology",
	"Healthcare",
	"Financial Services",
	"Consumer Cyclical",
	"Consumer Defensive",
	"Industrials",
	"Energy",
	"Utilities",
	"Real Estate",
	"Basic Materials",
	"Communication Services",
}

var sectorSynonyms = map[string]string{
	"information technology":     "Technology",
	"tech":                       "Technology",
	"it":                         "Technology",
	"health care":                "Healthcare",
	"financials":                 "Financial Services",
	"financial":                  "Financial Services",
	"banks":                      "Financial Services",
	"consumer discretionary":     "Consumer Cyclical",
	"consumer staples":           "Consumer Defensive",
	"staples":                    "Consumer Defensive",
	"industrial":                 "Industrials",
	"materials":                  "Basic Materials",
	"telecommunication services": "Communication Services",
	"telecom":                    "Communication Services",
	"communications":             "Communication Services",
}

// Benchmark holds ascending percentile anchors for one ratio in one
// sector. Max == 0 means the ratio has no upper anchor (e.g. PEG).
type Benchmark struct {
	P25    float64 `yaml:"p25" json:"p25"`
	Median float64 `yaml:"median" json:"median"`
	P75    float64 `yaml:"p75" json:"p75"`
	Max    float64 `yaml:"max,omitempty" json:"max,omitempty"`
}

// HasMax reports whether the benchmark carries an upper anchor.
func (b Benchmark) HasMax() bool {
	return b.Max > 0
}

func (b Benchmark) validate(sector string, ratio Ratio) error {
	if !(b.P25 < b.Median && b.Median < b.P75) {
		return fmt.Errorf("sector %q ratio %q: anchors not strictly ascending (p25=%.2f median=%.2f p75=%.2f)",
			sector, ratio, b.P25, b.Median, b.P75)
	}
	if b.HasMax() && b.P75 >= b.Max {
		return fmt.Errorf("sector %q ratio %q: p75 %.2f >= max %.2f", sector, ratio, b.P75, b.Max)
	}
	return nil
}

// Table maps sector name -> ratio -> benchmark. Tables are static after
// load; lookups are side-effect-free.
type Table map[string]map[Ratio]Benchmark

// Resolve normalizes a raw sector name to a canonical one. Unknown, empty,
// or non-alphabetic input resolves to Default.
func Resolve(name string) string {
	trimmed := strings.TrimSpace(name)
	if trimmed == "" || !hasLetter(trimmed) {
		return Default
	}
	lower := strings.ToLower(trimmed)
	if canonical, ok := sectorSynonyms[lower]; ok {
		return canonical
	}
	for _, canonical := range canonicalSectors {
		if strings.EqualFold(canonical, trimmed) {
			return canonical
		}
	}
	return Default
}

func hasLetter(s string) bool {
	for _, r := range s {
		if unicode.IsLetter(r) {
			return true
		}
	}
	return false
}

// Benchmarks returns the benchmark set for a raw sector name, falling back
// to the Default entry when the sector is unknown.
func (t Table) Benchmarks(name string) map[Ratio]Benchmark {
	if bm, ok := t[Resolve(name)]; ok {
		return bm
	}
	return t[Default]
}

// Benchmark returns the anchors for one ratio in one sector, falling back
// to the Default entry per ratio.
func (t Table) Benchmark(name string, ratio Ratio) (Benchmark, bool) {
	if bm, ok := t.Benchmarks(name)[ratio]; ok {
		return bm, true
	}
	bm, ok := t[Default][ratio]
	return bm, ok
}

// Validate enforces the table invariants: strictly ascending anchors in
// every entry, a Default entry present, and Default medians falling within
// the range spanned by the real sector medians for each ratio.
func (t Table) Validate() error {
	def, ok := t[Default]
	if !ok {
		return fmt.Errorf("benchmark table missing %q entry", Default)
	}
	for sectorName, ratios := range t {
		for ratio, bm := range ratios {
			if err := bm.validate(sectorName, ratio); err != nil {
				return err
			}
		}
	}
	for ratio, defBM := range def {
		medians := make([]float64, 0, len(t))
		for sectorName, ratios := range t {
			if sectorName == Default {
				continue
			}
			if bm, ok := ratios[ratio]; ok {
				medians = append(medians, bm.Median)
			}
		}
		if len(medians) == 0 {
			continue
		}
		sort.Float64s(medians)
		if defBM.Median < medians[0] || defBM.Median > medians[len(medians)-1] {
			return fmt.Errorf("default median %.2f for ratio %q outside sector range [%.2f, %.2f]",
				defBM.Median, ratio, medians[0], medians[len(medians)-1])
		}
	}
	return nil
}

// LoadTable reads a benchmark dataset from a YAML file and validates it.
// Swapping datasets requires no code change.
func LoadTable(path string) (Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read benchmark table: %w", err)
	}
	var raw map[string]map[Ratio]Benchmark
	if err := yaml.Unmarshal(data, &raw); err != nil {
		return nil, fmt.Errorf("parse benchmark table: %w", err)
	}
	t := Table(raw)
	if err := t.Validate(); err != nil {
		return nil, err
	}
	return t, nil
}
