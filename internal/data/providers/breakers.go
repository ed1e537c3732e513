package providers

import (
	"fmt"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/sony/gobreaker"
)

// BreakerConfig tunes one provider's circuit breaker.
type BreakerConfig struct {
	MaxRequests         uint32        `yaml:"max_requests"`
	Interval            time.Duration `yaml:"interval"`
	Timeout             time.Duration `yaml:"timeout"`
	ConsecutiveFailures uint32        `yaml:"consecutive_failures"`
}

// DefaultBreakerConfig returns the standard trip policy: open after 5
// consecutive failures, probe again after 30s.
func DefaultBreakerConfig() BreakerConfig {
	return BreakerConfig{
		MaxRequests:         2,
		Interval:            time.Minute,
		Timeout:             30 * time.Second,
		ConsecutiveFailures: 5,
	}
}

// BreakerStatus is a point-in-time view of one provider's breaker.
type BreakerStatus struct {
	Name                string           `json:"name"`
	State               string           `json:"state"`
	Counts              gobreaker.Counts `json:"counts"`
	ErrorRate           float64          `json:"error_rate"`
	ConsecutiveFailures uint32           `json:"consecutive_failures"`
}

// BreakerManager keys one circuit breaker per provider name. Breakers are
// created on demand; counters are safe for concurrent increment.
type BreakerManager struct {
	mu       sync.RWMutex
	breakers map[string]*gobreaker.CircuitBreaker
	config   BreakerConfig
}

// NewBreakerManager creates a manager applying config to every provider.
func NewBreakerManager(config BreakerConfig) *BreakerManager {
	return &BreakerManager{
		breakers: make(map[string]*gobreaker.CircuitBreaker),
		config:   config,
	}
}

// Execute runs fn through the named provider's breaker.
func (m *BreakerManager) Execute(name string, fn func() (interface{}, error)) (interface{}, error) {
	return m.breaker(name).Execute(fn)
}

func (m *BreakerManager) breaker(name string) *gobreaker.CircuitBreaker {
	m.mu.RLock()
	cb, ok := m.breakers[name]
	m.mu.RUnlock()
	if ok {
		return cb
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	if cb, ok = m.breakers[name]; ok {
		return cb
	}

	threshold := m.config.ConsecutiveFailures
	cb = gobreaker.NewCircuitBreaker(gobreaker.Settings{
		Name:        name,
		MaxRequests: m.config.MaxRequests,
		Interval:    m.config.Interval,
		Timeout:     m.config.Timeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= threshold
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			log.Warn().Str("provider", name).
				Str("from", from.String()).Str("to", to.String()).
				Msg("Provider circuit breaker state change")
		},
	})
	m.breakers[name] = cb
	return cb
}

// Status returns the current state of every known breaker.
func (m *BreakerManager) Status() map[string]BreakerStatus {
	m.mu.RLock()
	defer m.mu.RUnlock()

	status := make(map[string]BreakerStatus, len(m.breakers))
	for name, cb := range m.breakers {
		counts := cb.Counts()
		var errorRate float64
		if counts.Requests > 0 {
			errorRate = float64(counts.TotalFailures) / float64(counts.Requests)
		}
		status[name] = BreakerStatus{
			Name:                name,
			State:               cb.State().String(),
			Counts:              counts,
			ErrorRate:           errorRate,
			ConsecutiveFailures: counts.ConsecutiveFailures,
		}
	}
	return status
}

// Healthy reports whether every breaker is closed.
func (m *BreakerManager) Healthy() bool {
	for _, s := range m.Status() {
		if s.State != gobreaker.StateClosed.String() {
			return false
		}
	}
	return true
}

// String renders a short health summary for logs.
func (m *BreakerManager) String() string {
	open := 0
	for _, s := range m.Status() {
		if s.State != gobreaker.StateClosed.String() {
			open++
		}
	}
	return fmt.Sprintf("breakers(open=%d)", open)
}
