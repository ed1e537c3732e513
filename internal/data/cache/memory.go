package cache

import (
	"sync"
	"time"
)

// Memory is an in-process TTL cache with LRU eviction and periodic cleanup
// of expired entries.
type Memory struct {
	mu         sync.RWMutex
	entries    map[string]*memoryEntry
	maxEntries int
	stats      Stats

	stopCh   chan struct{}
	stopOnce sync.Once
}

type memoryEntry struct {
	value    []byte
	expires  time.Time
	accessed time.Time
}

// Stats tracks cache performance counters.
type Stats struct {
	Hits      int64 `json:"hits"`
	Misses    int64 `json:"misses"`
	Evictions int64 `json:"evictions"`
	Entries   int64 `json:"entries"`
}

// HitRatio returns hits over total lookups, 0 when no lookups occurred.
func (s Stats) HitRatio() float64 {
	total := s.Hits + s.Misses
	if total == 0 {
		return 0
	}
	return float64(s.Hits) / float64(total)
}

// NewMemory creates a memory cache bounded to maxEntries and starts the
// cleanup goroutine. Call Stop when done.
func NewMemory(maxEntries int) *Memory {
	m := &Memory{
		entries:    make(map[string]*memoryEntry),
		maxEntries: maxEntries,
		stopCh:     make(chan struct{}),
	}
	go m.cleanupLoop()
	return m
}

// Get returns a copy of the cached value if present and unexpired.
func (m *Memory) Get(key string) ([]byte, bool) {
	m.mu.Lock()
	defer m.mu.Unlock()

	entry, ok := m.entries[key]
	if !ok || time.Now().After(entry.expires) {
		m.stats.Misses++
		return nil, false
	}
	entry.accessed = time.Now()
	m.stats.Hits++
	return append([]byte(nil), entry.value...), true
}

// Set stores a value under key for ttl. A non-positive ttl stores nothing.
func (m *Memory) Set(key string, val []byte, ttl time.Duration) {
	if ttl <= 0 {
		return
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	if _, exists := m.entries[key]; !exists && len(m.entries) >= m.maxEntries {
		m.evictOldest()
	}
	m.entries[key] = &memoryEntry{
		value:    append([]byte(nil), val...),
		expires:  time.Now().Add(ttl),
		accessed: time.Now(),
	}
}

// Clear drops all entries and resets counters.
func (m *Memory) Clear() {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.entries = make(map[string]*memoryEntry)
	m.stats = Stats{}
}

// Stats returns a snapshot of the cache counters.
func (m *Memory) Stats() Stats {
	m.mu.RLock()
	defer m.mu.RUnlock()
	s := m.stats
	s.Entries = int64(len(m.entries))
	return s
}

// Stop terminates the cleanup goroutine.
func (m *Memory) Stop() {
	m.stopOnce.Do(func() { close(m.stopCh) })
}

// evictOldest removes the least recently accessed entry. Caller holds the
// write lock.
func (m *Memory) evictOldest() {
	var oldestKey string
	var oldestTime time.Time
	for key, entry := range m.entries {
		if oldestKey == "" || entry.accessed.Before(oldestTime) {
			oldestKey = key
			oldestTime = entry.accessed
		}
	}
	if oldestKey != "" {
		delete(m.entries, oldestKey)
		m.stats.Evictions++
	}
}

func (m *Memory) cleanupLoop() {
	ticker := time.NewTicker(time.Minute)
	defer ticker.Stop()
	for {
		select {
		case <-m.stopCh:
			return
		case <-ticker.C:
			m.removeExpired()
		}
	}
}

func (m *Memory) removeExpired() {
	m.mu.Lock()
	defer m.mu.Unlock()
	now := time.Now()
	for key, entry := range m.entries {
		if now.After(entry.expires) {
			delete(m.entries, key)
		}
	}
}
