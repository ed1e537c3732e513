package scan

import (
	"math"
	"sort"

	"github.com/stockrank/stockrank/internal/config"
)

// applyPolicy turns the full scored set into the chosen subset. Scores
// come back sorted descending; ties keep the input order.
func applyPolicy(scores []StockScore, sel config.SelectionConfig, universeCap int) []StockScore {
	ordered := make([]StockScore, len(scores))
	copy(ordered, scores)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].OverallScore > ordered[j].OverallScore
	})

	limit := universeCap
	if limit <= 0 {
		limit = len(ordered)
	}

	switch sel.Policy {
	case config.PolicyTopN, config.PolicyRank:
		n := sel.TopN
		if n <= 0 || n > limit {
			n = limit
		}
		if n > len(ordered) {
			n = len(ordered)
		}
		return ordered[:n]

	case config.PolicyQuantile:
		// Top fraction by count, never empty for a non-empty input.
		n := int(math.Ceil(sel.Quantile * float64(len(ordered))))
		if n < 1 {
			n = 1
		}
		if n > len(ordered) {
			n = len(ordered)
		}
		return ordered[:n]

	case config.PolicyThreshold:
		kept := ordered[:0:0]
		for _, s := range ordered {
			if s.OverallScore >= sel.Threshold {
				kept = append(kept, s)
			}
		}
		if len(kept) > limit {
			kept = kept[:limit]
		}
		return kept

	default:
		return ordered[:0]
	}
}

// positionWeights allocates weights over the selected set: rank policy is
// equal-weight, everything else is score-proportional. Each weight is then
// clamped by the single-position cap and any sector breaching its cap is
// rescaled down. The sum never exceeds 1.
func positionWeights(selected []StockScore, policy string, risk config.RiskConfig) []float64 {
	if len(selected) == 0 {
		return nil
	}
	weights := make([]float64, len(selected))

	if policy == config.PolicyRank {
		for i := range weights {
			weights[i] = 1.0 / float64(len(selected))
		}
	} else {
		var total float64
		for _, s := range selected {
			total += s.OverallScore
		}
		if total <= 0 {
			for i := range weights {
				weights[i] = 1.0 / float64(len(selected))
			}
		} else {
			for i, s := range selected {
				weights[i] = s.OverallScore / total
			}
		}
	}

	// Clamp by max single position. Excess is not redistributed; it would
	// push other positions over their own caps.
	if risk.MaxPositionWeight > 0 {
		for i := range weights {
			if weights[i] > risk.MaxPositionWeight {
				weights[i] = risk.MaxPositionWeight
			}
		}
	}

	// Rescale any sector exceeding its cap.
	if risk.MaxSectorWeight > 0 {
		sectorTotal := make(map[string]float64)
		for i, s := range selected {
			sectorTotal[s.Sector] += weights[i]
		}
		for sec, total := range sectorTotal {
			if total <= risk.MaxSectorWeight {
				continue
			}
			scale := risk.MaxSectorWeight / total
			for i, s := range selected {
				if s.Sector == sec {
					weights[i] *= scale
				}
			}
		}
	}
	return weights
}

// actionFor maps an overall score to a trade signal.
func actionFor(score float64) Action {
	switch {
	case score >= buyThreshold:
		return ActionBuy
	case score <= sellThreshold:
		return ActionSell
	default:
		return ActionHold
	}
}

// confidence blends data quality with a rank bonus (better-ranked picks
// get up to +0.2) and a magnitude adjustment for extreme scores.
func confidence(s StockScore, rank, selected int) float64 {
	c := s.DataQuality.Overall

	if selected > 1 {
		c += 0.2 * (1 - float64(rank)/float64(selected-1))
	} else {
		c += 0.2
	}

	switch {
	case s.OverallScore >= 0.8:
		c += 0.1
	case s.OverallScore <= 0.2:
		c -= 0.1
	}

	if c < 0 {
		return 0
	}
	if c > 1 {
		return 1
	}
	return c
}
