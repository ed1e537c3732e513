package cache

import (
	"time"

	"golang.org/x/sync/singleflight"

	"github.com/stockrank/stockrank/internal/metrics"
)

// Loader wraps a Store with per-key single-flight so concurrent misses for
// the same key trigger exactly one upstream fetch instead of duplicate
// provider calls.
type Loader struct {
	store Store
	group singleflight.Group
}

// NewLoader creates a Loader over store.
func NewLoader(store Store) *Loader {
	return &Loader{store: store}
}

// Store exposes the underlying store for direct reads.
func (l *Loader) Store() Store {
	return l.store
}

// Do returns the cached value for key, or runs fetch once per key across
// concurrent callers and caches the result for ttl. The returned bool
// reports whether the value came from cache.
func (l *Loader) Do(key string, ttl time.Duration, fetch func() ([]byte, error)) ([]byte, bool, error) {
	if val, ok := l.store.Get(key); ok {
		metrics.CacheHit(classOf(key))
		return val, true, nil
	}
	metrics.CacheMiss(classOf(key))

	v, err, _ := l.group.Do(key, func() (interface{}, error) {
		// Re-check under the flight: another caller may have populated
		// the entry between the miss and the flight start.
		if val, ok := l.store.Get(key); ok {
			return val, nil
		}
		val, err := fetch()
		if err != nil {
			return nil, err
		}
		l.store.Set(key, val, ttl)
		return val, nil
	})
	if err != nil {
		return nil, false, err
	}
	return v.([]byte), false, nil
}
