package factors

import (
	"math"

	"github.com/stockrank/stockrank/internal/domain/snapshot"
)

// Quality leaf factors use fixed, sector-invariant scoring curves.
// Inputs are percentages where the underlying ratio is usually quoted as
// one (ROE, margins, growth, yields).

func (r *Registry) registerQualityFactors() {
	r.Register(fundamentalFactor("roe", "fundamental.roe",
		func(f *snapshot.Fundamental) snapshot.Float { return f.ROE }, roeScore))
	r.Register(fundamentalFactor("debt_equity", "fundamental.debt_equity",
		func(f *snapshot.Fundamental) snapshot.Float { return f.DebtEquity }, debtEquityScore))
	r.Register(fundamentalFactor("current_ratio", "fundamental.current_ratio",
		func(f *snapshot.Fundamental) snapshot.Float { return f.CurrentRatio }, currentRatioScore))
	r.Register(fundamentalFactor("operating_margin", "fundamental.operating_margin",
		func(f *snapshot.Fundamental) snapshot.Float { return f.OperatingMargin },
		func(m float64) float64 { return clamp01(m / 25) }))
	r.Register(fundamentalFactor("net_margin", "fundamental.net_margin",
		func(f *snapshot.Fundamental) snapshot.Float { return f.NetMargin },
		func(m float64) float64 { return clamp01(m / 20) }))
	r.Register(fundamentalFactor("revenue_growth", "fundamental.revenue_growth",
		func(f *snapshot.Fundamental) snapshot.Float { return f.RevenueGrowth },
		func(g float64) float64 { return clamp01((g + 10) / 40) }))
	r.Register(fundamentalFactor("earnings_growth", "fundamental.earnings_growth",
		func(f *snapshot.Fundamental) snapshot.Float { return f.EarningsGrowth },
		func(g float64) float64 { return clamp01((g + 10) / 50) }))
	r.Register(fundamentalFactor("dividend_yield", "fundamental.dividend_yield",
		func(f *snapshot.Fundamental) snapshot.Float { return f.DividendYield }, dividendYieldScore))
	r.Register(fundamentalFactor("payout_ratio", "fundamental.payout_ratio",
		func(f *snapshot.Fundamental) snapshot.Float { return f.PayoutRatio }, payoutRatioScore))
}

func fundamentalFactor(id, requires string, field func(*snapshot.Fundamental) snapshot.Float, score func(float64) float64) Factor {
	return Factor{
		ID:       id,
		Requires: []string{requires},
		Compute: func(in Inputs) (float64, bool) {
			if in.Fundamental == nil {
				return 0, false
			}
			v := field(in.Fundamental)
			if !v.Finite() {
				return 0, false
			}
			return score(v.Value), true
		},
	}
}

// roeScore is a saturating curve centered near typical market ROE (~10%).
// ROE of 10% scores 0.5; 25% approaches 0.95; negative ROE decays toward 0.
func roeScore(roe float64) float64 {
	return clamp01(1 / (1 + math.Exp(-(roe-10)/5)))
}

// debtEquityScore treats the raw debt/equity ratio as leverage risk:
// unlevered balance sheets score 1, a ratio of 2 or more scores 0.
func debtEquityScore(de float64) float64 {
	if de < 0 {
		return 0
	}
	return clamp01(1 - de/2)
}

// currentRatioScore rewards liquidity in an optimal band. Ratios below
// 1.0 signal short-term stress; ratios above ~3.0 signal idle capital.
func currentRatioScore(cr float64) float64 {
	switch {
	case cr <= 0:
		return 0
	case cr < 1.0:
		return cr * 0.5
	case cr <= 1.5:
		return 0.5 + (cr-1.0)
	case cr <= 2.5:
		return 1.0
	case cr <= 3.0:
		return 1.0 - (cr-2.5)*0.5
	default:
		return math.Max(0.3, 0.75-(cr-3.0)*0.15)
	}
}

// dividendYieldScore rewards sustainable yields around 2-5% and penalizes
// both non-payers and yield traps.
func dividendYieldScore(y float64) float64 {
	switch {
	case y < 0:
		return 0
	case y < 2:
		return 0.4 + y/2*0.6
	case y <= 5:
		return 1.0
	default:
		return math.Max(0.2, 1.0-(y-5)*0.15)
	}
}

// payoutRatioScore favors payouts in the 20-60% band; above that the
// dividend crowds out reinvestment, above 100% it is unsustainable.
func payoutRatioScore(p float64) float64 {
	switch {
	case p < 0:
		return 0
	case p < 20:
		return 0.5 + p/20*0.5
	case p <= 60:
		return 1.0
	default:
		return math.Max(0, 1.0-(p-60)/60)
	}
}

func clamp01(v float64) float64 {
	if math.IsNaN(v) || v < 0 {
		return 0
	}
	if v > 1 {
		return 1
	}
	return v
}
