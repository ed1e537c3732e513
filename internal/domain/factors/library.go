package factors

import (
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stockrank/stockrank/internal/data/cache"
	"github.com/stockrank/stockrank/internal/metrics"
)

// Score is a computed factor value for one symbol, cached keyed by
// (factor id, symbol, coarse time bucket).
type Score struct {
	FactorID  string    `json:"factor_id" msgpack:"factor_id"`
	Symbol    string    `json:"symbol" msgpack:"symbol"`
	Value     float64   `json:"value" msgpack:"value"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
}

// Library memoizes registry computations through the shared cache so
// identical requests inside one time bucket return the identical value.
type Library struct {
	registry *Registry
	store    cache.Store
	ttl      time.Duration
	bucket   time.Duration
	now      func() time.Time
}

// NewLibrary wraps a registry with score memoization. A nil store
// disables caching.
func NewLibrary(registry *Registry, store cache.Store, ttls cache.TTLs) *Library {
	return &Library{
		registry: registry,
		store:    store,
		ttl:      ttls.Scores,
		bucket:   ttls.Scores,
		now:      time.Now,
	}
}

// Registry exposes the underlying registry.
func (l *Library) Registry() *Registry {
	return l.registry
}

// Calculate computes a factor for a symbol, consulting the cache first.
// Absent results are not cached: a later fetch may fill the missing field.
func (l *Library) Calculate(factorID, symbol string, in Inputs) (float64, bool) {
	if l.store == nil {
		return l.registry.Compute(factorID, in)
	}

	key := cache.Key(cache.ClassScores, "factor", factorID, symbol, cache.Bucket(l.now(), l.bucket))
	if data, ok := l.store.Get(key); ok {
		var cached Score
		if err := cache.Decode(data, &cached); err == nil {
			metrics.CacheHit(string(cache.ClassScores))
			return cached.Value, true
		}
		log.Warn().Str("key", key).Msg("Dropping undecodable cached factor score")
	}
	metrics.CacheMiss(string(cache.ClassScores))

	value, ok := l.registry.Compute(factorID, in)
	if !ok {
		return 0, false
	}

	encoded, err := cache.Encode(Score{
		FactorID:  factorID,
		Symbol:    symbol,
		Value:     value,
		Timestamp: l.now().UTC(),
	})
	if err == nil {
		l.store.Set(key, encoded, l.ttl)
	}
	return value, true
}

// CalculateWithBreakdown is Calculate plus component attribution for
// composites. Breakdowns are not cached; explainability calls are rare.
func (l *Library) CalculateWithBreakdown(factorID, symbol string, in Inputs) Breakdown {
	return l.registry.ComputeWithBreakdown(factorID, in)
}
