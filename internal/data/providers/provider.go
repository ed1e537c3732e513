package providers

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/time/rate"

	"github.com/stockrank/stockrank/internal/data/cache"
	"github.com/stockrank/stockrank/internal/domain/snapshot"
	"github.com/stockrank/stockrank/internal/fusion"
	"github.com/stockrank/stockrank/internal/metrics"
)

var (
	// ErrNotFound means the provider has no data for the symbol.
	ErrNotFound = errors.New("providers: symbol not found")
	// ErrExhausted means every provider in the chain failed and no stale
	// cache entry was available. The field stays absent.
	ErrExhausted = errors.New("providers: all providers failed")
)

// Quote is a provider's price answer for one symbol.
type Quote struct {
	Symbol    string    `json:"symbol" msgpack:"symbol"`
	Price     float64   `json:"price" msgpack:"price"`
	Volume    float64   `json:"volume" msgpack:"volume"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Source    string    `json:"source" msgpack:"source"`
	LatencyMS float64   `json:"latency_ms" msgpack:"latency_ms"`
}

// CompanyInfo is static company metadata.
type CompanyInfo struct {
	Symbol    string    `json:"symbol" msgpack:"symbol"`
	Sector    string    `json:"sector" msgpack:"sector"`
	Exchange  string    `json:"exchange" msgpack:"exchange"`
	MarketCap float64   `json:"market_cap" msgpack:"market_cap"`
	Timestamp time.Time `json:"timestamp" msgpack:"timestamp"`
	Source    string    `json:"source" msgpack:"source"`
}

// Candle is one OHLCV bar.
type Candle struct {
	Time   time.Time `json:"time" msgpack:"time"`
	Open   float64   `json:"open" msgpack:"open"`
	High   float64   `json:"high" msgpack:"high"`
	Low    float64   `json:"low" msgpack:"low"`
	Close  float64   `json:"close" msgpack:"close"`
	Volume float64   `json:"volume" msgpack:"volume"`
}

// Provider abstracts one upstream data vendor. Wire protocols live behind
// this interface; the core never sees them.
type Provider interface {
	Name() string
	GetPrice(ctx context.Context, symbol string) (Quote, error)
	GetFundamentals(ctx context.Context, symbol string) (*snapshot.Fundamental, error)
	GetCompanyInfo(ctx context.Context, symbol string) (CompanyInfo, error)
}

// TechnicalsProvider is implemented by vendors that serve precomputed
// indicators.
type TechnicalsProvider interface {
	GetTechnicals(ctx context.Context, symbol string) (*snapshot.Technical, error)
}

// CandleProvider is implemented by vendors that serve price history, used
// to derive indicators when no TechnicalsProvider is available.
type CandleProvider interface {
	GetCandles(ctx context.Context, symbol string, days int) ([]Candle, error)
}

// Options configures one provider's slot in the chain.
type Options struct {
	Priority   int           // lower tries first
	Timeout    time.Duration // per-call timeout
	RateLimit  float64       // requests per second, 0 = unlimited
	Burst      int
	Reputation float64 // static quality prior, [0,1]
}

type chainEntry struct {
	provider Provider
	opts     Options
	limiter  *rate.Limiter
}

// Chain tries providers in priority order with per-provider rate limits
// and circuit breakers, falling back to the stale cache as the last tier.
type Chain struct {
	mu       sync.RWMutex
	entries  []chainEntry
	breakers *BreakerManager
	stale    cache.Store
	staleTTL time.Duration
}

// NewChain creates an empty chain. stale may be nil to disable the
// stale-cache tier.
func NewChain(breakers *BreakerManager, stale cache.Store) *Chain {
	return &Chain{
		breakers: breakers,
		stale:    stale,
		staleTTL: 15 * time.Minute,
	}
}

// Add registers a provider. Entries are kept sorted by priority.
func (c *Chain) Add(p Provider, opts Options) {
	if opts.Timeout <= 0 {
		opts.Timeout = 5 * time.Second
	}
	if opts.Burst <= 0 {
		opts.Burst = 1
	}
	var limiter *rate.Limiter
	if opts.RateLimit > 0 {
		limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), opts.Burst)
	}
	c.mu.Lock()
	defer c.mu.Unlock()
	c.entries = append(c.entries, chainEntry{provider: p, opts: opts, limiter: limiter})
	sort.SliceStable(c.entries, func(i, j int) bool {
		return c.entries[i].opts.Priority < c.entries[j].opts.Priority
	})
}

// Reputations returns the static per-provider priors for the fuser.
func (c *Chain) Reputations() map[string]float64 {
	c.mu.RLock()
	defer c.mu.RUnlock()
	reps := make(map[string]float64, len(c.entries))
	for _, e := range c.entries {
		reps[e.provider.Name()] = e.opts.Reputation
	}
	return reps
}

// Breakers exposes breaker health for the HTTP surface.
func (c *Chain) Breakers() *BreakerManager {
	return c.breakers
}

func (c *Chain) snapshotEntries() []chainEntry {
	c.mu.RLock()
	defer c.mu.RUnlock()
	entries := make([]chainEntry, len(c.entries))
	copy(entries, c.entries)
	return entries
}

// call runs one operation against one provider with rate limit, timeout
// and breaker. Rate-limiter waits cut short by the context are not counted
// as provider outcomes.
func (c *Chain) call(ctx context.Context, e chainEntry, op string, fn func(ctx context.Context) (interface{}, error)) (interface{}, error) {
	if e.limiter != nil {
		if err := e.limiter.Wait(ctx); err != nil {
			return nil, err
		}
	}
	callCtx, cancel := context.WithTimeout(ctx, e.opts.Timeout)
	defer cancel()

	v, err := c.breakers.Execute(e.provider.Name(), func() (interface{}, error) {
		return fn(callCtx)
	})
	if err != nil {
		metrics.ProviderCall(e.provider.Name(), op, "error")
		return nil, err
	}
	metrics.ProviderCall(e.provider.Name(), op, "ok")
	return v, nil
}

// GetPrice walks the fallback chain for a price quote. Successful quotes
// refresh the stale tier; total failure falls back to it before giving up.
func (c *Chain) GetPrice(ctx context.Context, symbol string) (Quote, error) {
	staleKey := cache.Key(cache.ClassRealTime, "stale", "price", symbol)

	for _, e := range c.snapshotEntries() {
		start := time.Now()
		v, err := c.call(ctx, e, "price", func(ctx context.Context) (interface{}, error) {
			return e.provider.GetPrice(ctx, symbol)
		})
		if err != nil {
			log.Debug().Err(err).Str("provider", e.provider.Name()).
				Str("symbol", symbol).Msg("Price fetch failed, advancing chain")
			continue
		}
		quote := v.(Quote)
		quote.LatencyMS = float64(time.Since(start).Milliseconds())
		if c.stale != nil {
			if data, err := cache.Encode(quote); err == nil {
				c.stale.Set(staleKey, data, c.staleTTL)
			}
		}
		return quote, nil
	}

	if c.stale != nil {
		if data, ok := c.stale.Get(staleKey); ok {
			var quote Quote
			if err := cache.Decode(data, &quote); err == nil {
				log.Warn().Str("symbol", symbol).Msg("Serving stale price after chain failure")
				return quote, nil
			}
		}
	}
	return Quote{}, fmt.Errorf("price for %s: %w", symbol, ErrExhausted)
}

// GetFundamentals walks the fallback chain for fundamentals.
func (c *Chain) GetFundamentals(ctx context.Context, symbol string) (*snapshot.Fundamental, error) {
	for _, e := range c.snapshotEntries() {
		v, err := c.call(ctx, e, "fundamentals", func(ctx context.Context) (interface{}, error) {
			return e.provider.GetFundamentals(ctx, symbol)
		})
		if err != nil {
			continue
		}
		return v.(*snapshot.Fundamental), nil
	}
	return nil, fmt.Errorf("fundamentals for %s: %w", symbol, ErrExhausted)
}

// GetCompanyInfo walks the fallback chain for company metadata.
func (c *Chain) GetCompanyInfo(ctx context.Context, symbol string) (CompanyInfo, error) {
	for _, e := range c.snapshotEntries() {
		v, err := c.call(ctx, e, "company_info", func(ctx context.Context) (interface{}, error) {
			return e.provider.GetCompanyInfo(ctx, symbol)
		})
		if err != nil {
			continue
		}
		return v.(CompanyInfo), nil
	}
	return CompanyInfo{}, fmt.Errorf("company info for %s: %w", symbol, ErrExhausted)
}

// GetTechnicals returns precomputed indicators from the first provider
// that serves them.
func (c *Chain) GetTechnicals(ctx context.Context, symbol string) (*snapshot.Technical, error) {
	for _, e := range c.snapshotEntries() {
		tp, ok := e.provider.(TechnicalsProvider)
		if !ok {
			continue
		}
		v, err := c.call(ctx, e, "technicals", func(ctx context.Context) (interface{}, error) {
			return tp.GetTechnicals(ctx, symbol)
		})
		if err != nil {
			continue
		}
		return v.(*snapshot.Technical), nil
	}
	return nil, fmt.Errorf("technicals for %s: %w", symbol, ErrExhausted)
}

// GetCandles returns price history from the first capable provider.
func (c *Chain) GetCandles(ctx context.Context, symbol string, days int) ([]Candle, error) {
	for _, e := range c.snapshotEntries() {
		cp, ok := e.provider.(CandleProvider)
		if !ok {
			continue
		}
		v, err := c.call(ctx, e, "candles", func(ctx context.Context) (interface{}, error) {
			return cp.GetCandles(ctx, symbol, days)
		})
		if err != nil {
			continue
		}
		return v.([]Candle), nil
	}
	return nil, fmt.Errorf("candles for %s: %w", symbol, ErrExhausted)
}

// FanOutPrice queries every provider concurrently and returns whatever
// samples came back, for multi-source fusion. Individual failures are
// tolerated; an empty slice means every provider failed.
func (c *Chain) FanOutPrice(ctx context.Context, symbol string) []fusion.Sample {
	entries := c.snapshotEntries()
	samples := make([]fusion.Sample, 0, len(entries))
	var mu sync.Mutex
	var wg sync.WaitGroup

	for _, e := range entries {
		wg.Add(1)
		go func(e chainEntry) {
			defer wg.Done()
			start := time.Now()
			v, err := c.call(ctx, e, "price", func(ctx context.Context) (interface{}, error) {
				return e.provider.GetPrice(ctx, symbol)
			})
			if err != nil {
				return
			}
			quote := v.(Quote)
			mu.Lock()
			samples = append(samples, fusion.Sample{
				Value:        quote.Price,
				Source:       e.provider.Name(),
				Timestamp:    quote.Timestamp,
				LatencyMS:    float64(time.Since(start).Milliseconds()),
				Completeness: 1,
			})
			mu.Unlock()
		}(e)
	}
	wg.Wait()
	return samples
}
