package sector

import "math"

// PercentileScore maps a valuation ratio onto [0,1] relative to sector
// percentile anchors, with lower-is-better semantics. Anchor values score
// exactly: p25 -> 1.0, median -> 0.75, p75 -> 0.50, max -> 0.25. Between
// anchors the score interpolates linearly. Beyond the last anchor the
// score decays toward 0 asymptotically so extreme outliers never jump to
// zero but also never cross it.
//
// Non-positive and non-finite ratios score 0: a negative multiple is a
// real worst-case signal, not missing data.
func PercentileScore(value float64, b Benchmark) float64 {
	if value <= 0 || math.IsNaN(value) || math.IsInf(value, 0) {
		return 0
	}

	switch {
	case value <= b.P25:
		return 1.0
	case value <= b.Median:
		return interp(value, b.P25, b.Median, 1.0, 0.75)
	case value <= b.P75:
		return interp(value, b.Median, b.P75, 0.75, 0.50)
	}

	if b.HasMax() {
		if value <= b.Max {
			return interp(value, b.P75, b.Max, 0.50, 0.25)
		}
		// Excess decay: one p75..max span beyond max halves the remaining
		// score, asymptoting to 0.
		span := b.Max - b.P75
		excess := (value - b.Max) / span
		return 0.25 / (1 + excess)
	}

	// Ratios without an upper anchor use a symmetric band: one extra
	// median..p75 span plays the role of max.
	span := b.P75 - b.Median
	upper := b.P75 + span
	if value <= upper {
		return interp(value, b.P75, upper, 0.50, 0.25)
	}
	excess := (value - upper) / span
	return 0.25 / (1 + excess)
}

// interp maps value in [lo, hi] linearly onto [scoreLo, scoreHi].
func interp(value, lo, hi, scoreLo, scoreHi float64) float64 {
	if hi == lo {
		return scoreHi
	}
	frac := (value - lo) / (hi - lo)
	return scoreLo + frac*(scoreHi-scoreLo)
}
