package cache

import (
	"fmt"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func classCounter(t *testing.T, name, class string) float64 {
	t.Helper()
	families, err := prometheus.DefaultGatherer.Gather()
	require.NoError(t, err)
	for _, mf := range families {
		if mf.GetName() != name {
			continue
		}
		for _, m := range mf.GetMetric() {
			for _, lp := range m.GetLabel() {
				if lp.GetName() == "class" && lp.GetValue() == class {
					return m.GetCounter().GetValue()
				}
			}
		}
	}
	return 0
}

func TestMemory_SetGet(t *testing.T) {
	m := NewMemory(100)
	defer m.Stop()

	m.Set("k", []byte("v"), time.Minute)
	val, ok := m.Get("k")
	require.True(t, ok)
	assert.Equal(t, []byte("v"), val)

	_, ok = m.Get("missing")
	assert.False(t, ok)
}

func TestMemory_Expiry(t *testing.T) {
	m := NewMemory(100)
	defer m.Stop()

	m.Set("k", []byte("v"), 10*time.Millisecond)
	time.Sleep(30 * time.Millisecond)

	_, ok := m.Get("k")
	assert.False(t, ok)
}

func TestMemory_ZeroTTLNotStored(t *testing.T) {
	m := NewMemory(100)
	defer m.Stop()

	m.Set("k", []byte("v"), 0)
	_, ok := m.Get("k")
	assert.False(t, ok)
}

func TestMemory_EvictsOldestAtCapacity(t *testing.T) {
	m := NewMemory(2)
	defer m.Stop()

	m.Set("a", []byte("1"), time.Minute)
	m.Set("b", []byte("2"), time.Minute)
	m.Get("a") // refresh access time so "b" is oldest
	m.Set("c", []byte("3"), time.Minute)

	_, okA := m.Get("a")
	_, okB := m.Get("b")
	_, okC := m.Get("c")
	assert.True(t, okA)
	assert.False(t, okB)
	assert.True(t, okC)
	assert.Equal(t, int64(1), m.Stats().Evictions)
}

func TestMemory_Clear(t *testing.T) {
	m := NewMemory(100)
	defer m.Stop()

	m.Set("k", []byte("v"), time.Minute)
	m.Clear()

	_, ok := m.Get("k")
	assert.False(t, ok)
	assert.Equal(t, int64(0), m.Stats().Entries)
}

func TestMemory_ConcurrentAccess(t *testing.T) {
	m := NewMemory(1000)
	defer m.Stop()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(n int) {
			defer wg.Done()
			for j := 0; j < 100; j++ {
				key := fmt.Sprintf("k%d", j%10)
				m.Set(key, []byte("v"), time.Minute)
				m.Get(key)
			}
		}(i)
	}
	wg.Wait()
}

func TestKey_Deterministic(t *testing.T) {
	assert.Equal(t,
		Key(ClassScores, "factor", "pe", "AAPL"),
		Key(ClassScores, "factor", "pe", "AAPL"))
	assert.NotEqual(t,
		Key(ClassScores, "factor", "pe", "AAPL"),
		Key(ClassScores, "factor", "pb", "AAPL"))
}

func TestOptionsHash_OrderIndependent(t *testing.T) {
	a := OptionsHash(map[string]string{"mode": "scan", "top": "10"})
	b := OptionsHash(map[string]string{"top": "10", "mode": "scan"})
	assert.Equal(t, a, b)

	c := OptionsHash(map[string]string{"mode": "scan", "top": "20"})
	assert.NotEqual(t, a, c)
}

func TestBucket_StableWithinWindow(t *testing.T) {
	base := time.Date(2026, 3, 14, 10, 2, 0, 0, time.UTC)
	assert.Equal(t,
		Bucket(base, 5*time.Minute),
		Bucket(base.Add(2*time.Minute), 5*time.Minute))
	assert.NotEqual(t,
		Bucket(base, 5*time.Minute),
		Bucket(base.Add(6*time.Minute), 5*time.Minute))
}

func TestLoader_SingleFlight(t *testing.T) {
	m := NewMemory(100)
	defer m.Stop()
	loader := NewLoader(m)

	var fetches int64
	release := make(chan struct{})

	var wg sync.WaitGroup
	for i := 0; i < 10; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			val, _, err := loader.Do("key", time.Minute, func() ([]byte, error) {
				atomic.AddInt64(&fetches, 1)
				<-release
				return []byte("fetched"), nil
			})
			assert.NoError(t, err)
			assert.Equal(t, []byte("fetched"), val)
		}()
	}

	// Give the goroutines time to pile up behind the flight, then release.
	time.Sleep(50 * time.Millisecond)
	close(release)
	wg.Wait()

	assert.Equal(t, int64(1), atomic.LoadInt64(&fetches),
		"concurrent misses for one key must trigger exactly one fetch")

	// Subsequent call is a cache hit
	_, hit, err := loader.Do("key", time.Minute, func() ([]byte, error) {
		t.Fatal("fetch must not run on cache hit")
		return nil, nil
	})
	require.NoError(t, err)
	assert.True(t, hit)
}

func TestLoader_CountsHitsAndMisses(t *testing.T) {
	m := NewMemory(100)
	defer m.Stop()
	loader := NewLoader(m)

	key := Key(ClassUniverse, "universe", "counted")
	missesBefore := classCounter(t, "stockrank_cache_misses_total", "universe")
	hitsBefore := classCounter(t, "stockrank_cache_hits_total", "universe")

	_, fromCache, err := loader.Do(key, time.Minute, func() ([]byte, error) {
		return []byte("v"), nil
	})
	require.NoError(t, err)
	require.False(t, fromCache)

	_, fromCache, err = loader.Do(key, time.Minute, func() ([]byte, error) {
		t.Fatal("fetch must not run on cache hit")
		return nil, nil
	})
	require.NoError(t, err)
	require.True(t, fromCache)

	assert.Equal(t, missesBefore+1, classCounter(t, "stockrank_cache_misses_total", "universe"))
	assert.Equal(t, hitsBefore+1, classCounter(t, "stockrank_cache_hits_total", "universe"))
}
