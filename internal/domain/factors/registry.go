package factors

import (
	"sort"

	"github.com/rs/zerolog/log"

	"github.com/stockrank/stockrank/internal/domain/sector"
	"github.com/stockrank/stockrank/internal/domain/snapshot"
)

// Inputs bundles the snapshots a factor computation may draw on. Market
// data is mandatory; fundamental and technical snapshots are optional.
type Inputs struct {
	Market      snapshot.Market
	Fundamental *snapshot.Fundamental
	Technical   *snapshot.Technical
}

// ComputeFunc produces a factor value in [0,1]. The second return is false
// when a required field is absent: absence is not zero and not an error,
// and callers decide the fallback policy.
type ComputeFunc func(in Inputs) (float64, bool)

// Factor is a registered calculation with its declared field requirements.
type Factor struct {
	ID       string
	Requires []string
	Compute  ComputeFunc
}

// Registry maps factor ids to calculations. Adding a factor means adding a
// registration here; orchestration code never branches on factor ids.
type Registry struct {
	table   sector.Table
	factors map[string]Factor
	order   []string
}

// NewRegistry builds a registry with the full leaf and composite factor
// set, resolving valuation benchmarks against table.
func NewRegistry(table sector.Table) *Registry {
	r := &Registry{
		table:   table,
		factors: make(map[string]Factor),
	}
	r.registerValueFactors()
	r.registerQualityFactors()
	r.registerMomentumFactors()
	r.registerComposites()
	return r
}

// Register adds or replaces a factor.
func (r *Registry) Register(f Factor) {
	if _, exists := r.factors[f.ID]; !exists {
		r.order = append(r.order, f.ID)
	}
	r.factors[f.ID] = f
}

// Get returns the factor for id.
func (r *Registry) Get(id string) (Factor, bool) {
	f, ok := r.factors[id]
	return f, ok
}

// Has reports whether id is a known factor.
func (r *Registry) Has(id string) bool {
	_, ok := r.factors[id]
	return ok
}

// IDs returns all registered factor ids in registration order.
func (r *Registry) IDs() []string {
	ids := make([]string, len(r.order))
	copy(ids, r.order)
	return ids
}

// Compute runs one factor. Panics inside a calculation are contained: the
// factor is treated as absent and the failure is logged with symbol and
// factor id.
func (r *Registry) Compute(id string, in Inputs) (value float64, ok bool) {
	f, exists := r.factors[id]
	if !exists {
		return 0, false
	}
	defer func() {
		if rec := recover(); rec != nil {
			log.Error().Str("factor", id).Str("symbol", in.Market.Symbol).
				Interface("panic", rec).Msg("Factor calculation panicked")
			value, ok = 0, false
		}
	}()
	return f.Compute(in)
}

// Breakdown holds a composite score together with the contributing
// sub-scores, for explainability.
type Breakdown struct {
	Score      float64            `json:"score"`
	OK         bool               `json:"ok"`
	Components map[string]float64 `json:"components"`
}

// ComputeWithBreakdown runs a factor and, for composites, also reports the
// contributing component scores. Leaf factors report themselves as the
// only component.
func (r *Registry) ComputeWithBreakdown(id string, in Inputs) Breakdown {
	b := Breakdown{Components: make(map[string]float64)}
	comps, isComposite := compositeDefs[id]
	if !isComposite {
		if v, ok := r.Compute(id, in); ok {
			b.Score, b.OK = v, true
			b.Components[id] = v
		}
		return b
	}
	for _, c := range comps {
		if v, ok := r.Compute(c.id, in); ok {
			b.Components[c.id] = v
		}
	}
	b.Score, b.OK = r.Compute(id, in)
	return b
}

func sortedComponentIDs(comps []componentWeight) []string {
	ids := make([]string, 0, len(comps))
	for _, c := range comps {
		ids = append(ids, c.id)
	}
	sort.Strings(ids)
	return ids
}
