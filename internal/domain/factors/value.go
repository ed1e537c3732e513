package factors

import (
	"github.com/stockrank/stockrank/internal/domain/sector"
	"github.com/stockrank/stockrank/internal/domain/snapshot"
)

// Valuation leaf factors. Each routes through the sector percentile
// normalizer using the symbol's resolved sector. An absent ratio makes
// the factor absent; a present but negative or non-finite ratio scores 0,
// because a negative multiple is a real worst-case signal.

func (r *Registry) registerValueFactors() {
	r.Register(r.valuationFactor("pe", sector.RatioPE,
		func(f *snapshot.Fundamental) snapshot.Float { return f.PE }))
	r.Register(r.valuationFactor("pb", sector.RatioPB,
		func(f *snapshot.Fundamental) snapshot.Float { return f.PB }))
	r.Register(r.valuationFactor("ps", sector.RatioPS,
		func(f *snapshot.Fundamental) snapshot.Float { return f.PS }))
	r.Register(r.valuationFactor("ev_ebitda", sector.RatioEVEBITDA,
		func(f *snapshot.Fundamental) snapshot.Float { return f.EVEBITDA }))
	r.Register(r.valuationFactor("peg", sector.RatioPEG,
		func(f *snapshot.Fundamental) snapshot.Float { return f.PEG }))
}

func (r *Registry) valuationFactor(id string, ratio sector.Ratio, field func(*snapshot.Fundamental) snapshot.Float) Factor {
	return Factor{
		ID:       id,
		Requires: []string{"fundamental." + id},
		Compute: func(in Inputs) (float64, bool) {
			if in.Fundamental == nil {
				return 0, false
			}
			v := field(in.Fundamental)
			if !v.Valid {
				return 0, false
			}
			bench, ok := r.table.Benchmark(in.Market.Sector, ratio)
			if !ok {
				return 0, false
			}
			return sector.PercentileScore(v.Value, bench), true
		},
	}
}
