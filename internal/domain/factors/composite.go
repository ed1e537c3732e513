package factors

type componentWeight struct {
	id     string
	weight float64
}

// Composite factor definitions. Weights are renormalized over the present
// components, so a composite degrades gracefully as leaves go absent and
// returns absent only when every component is.
var compositeDefs = map[string][]componentWeight{
	"quality_composite": {
		{"roe", 0.35},
		{"debt_equity", 0.25},
		{"current_ratio", 0.15},
		{"operating_margin", 0.15},
		{"net_margin", 0.10},
	},
	"value_composite": {
		{"pe", 0.30},
		{"pb", 0.20},
		{"ps", 0.15},
		{"ev_ebitda", 0.20},
		{"peg", 0.15},
	},
	"momentum_composite": {
		{"rsi", 0.30},
		{"macd", 0.25},
		{"price_vs_ma", 0.25},
		{"momentum_3m", 0.20},
	},
	// The generic composite blends the three composites with the
	// volatility leaf for a single all-round signal.
	"composite": {
		{"value_composite", 0.30},
		{"quality_composite", 0.30},
		{"momentum_composite", 0.25},
		{"volatility", 0.15},
	},
}

func (r *Registry) registerComposites() {
	// Registration order matters only for IDs(); composites resolve
	// their components at compute time.
	for _, id := range []string{"quality_composite", "value_composite", "momentum_composite", "composite"} {
		comps := compositeDefs[id]
		r.Register(Factor{
			ID:       id,
			Requires: sortedComponentIDs(comps),
			Compute:  r.compositeCompute(comps),
		})
	}
}

func (r *Registry) compositeCompute(comps []componentWeight) ComputeFunc {
	return func(in Inputs) (float64, bool) {
		var sum, weight float64
		for _, c := range comps {
			v, ok := r.Compute(c.id, in)
			if !ok {
				continue
			}
			sum += v * c.weight
			weight += c.weight
		}
		if weight == 0 {
			return 0, false
		}
		return clamp01(sum / weight), true
	}
}
