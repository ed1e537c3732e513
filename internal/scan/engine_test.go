package scan

import (
	"context"
	"errors"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/stockrank/stockrank/internal/config"
	"github.com/stockrank/stockrank/internal/data/cache"
	"github.com/stockrank/stockrank/internal/data/providers"
	"github.com/stockrank/stockrank/internal/domain/factors"
	"github.com/stockrank/stockrank/internal/domain/sector"
	"github.com/stockrank/stockrank/internal/domain/snapshot"
	"github.com/stockrank/stockrank/internal/fusion"
)

// fakeSource scripts the data layer per symbol.
type fakeSource struct {
	mu      sync.Mutex
	prices  map[string]float64
	funds   map[string]*snapshot.Fundamental
	sectors map[string]string
	failing map[string]bool
	delay   time.Duration
}

func newFakeSource() *fakeSource {
	return &fakeSource{
		prices:  make(map[string]float64),
		funds:   make(map[string]*snapshot.Fundamental),
		sectors: make(map[string]string),
		failing: make(map[string]bool),
	}
}

func (f *fakeSource) addStock(symbol string, price float64, sec string, roe float64) {
	f.prices[symbol] = price
	f.sectors[symbol] = sec
	f.funds[symbol] = &snapshot.Fundamental{
		Symbol:    symbol,
		ROE:       snapshot.FloatFrom(roe),
		Timestamp: time.Now(),
	}
}

func (f *fakeSource) FanOutPrice(ctx context.Context, symbol string) []fusion.Sample {
	if f.delay > 0 {
		select {
		case <-time.After(f.delay):
		case <-ctx.Done():
		}
	}
	f.mu.Lock()
	defer f.mu.Unlock()
	price, ok := f.prices[symbol]
	if !ok || f.failing[symbol] {
		return nil
	}
	return []fusion.Sample{{
		Value:        price,
		Source:       "fake",
		Timestamp:    time.Now(),
		LatencyMS:    5,
		Completeness: 1,
	}}
}

func (f *fakeSource) GetFundamentals(ctx context.Context, symbol string) (*snapshot.Fundamental, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if fund, ok := f.funds[symbol]; ok && !f.failing[symbol] {
		return fund, nil
	}
	return nil, providers.ErrNotFound
}

func (f *fakeSource) GetCompanyInfo(ctx context.Context, symbol string) (providers.CompanyInfo, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if sec, ok := f.sectors[symbol]; ok && !f.failing[symbol] {
		return providers.CompanyInfo{Symbol: symbol, Sector: sec, MarketCap: 1e10}, nil
	}
	return providers.CompanyInfo{}, providers.ErrNotFound
}

func (f *fakeSource) GetTechnicals(ctx context.Context, symbol string) (*snapshot.Technical, error) {
	return nil, providers.ErrNotFound
}

// candleSource layers scripted price history over fakeSource for symbols
// whose technicals must be derived.
type candleSource struct {
	*fakeSource
	candles map[string][]providers.Candle
}

func (f *candleSource) GetCandles(ctx context.Context, symbol string, days int) ([]providers.Candle, error) {
	if bars, ok := f.candles[symbol]; ok {
		return bars, nil
	}
	return nil, providers.ErrNotFound
}

// fakeSink records persisted results.
type fakeSink struct {
	mu      sync.Mutex
	results []*SelectionResult
}

func (s *fakeSink) SaveResult(ctx context.Context, result *SelectionResult) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.results = append(s.results, result)
	return nil
}

func newTestEngine(source DataSource, opts Options) *Engine {
	registry := factors.NewRegistry(sector.DefaultTable())
	library := factors.NewLibrary(registry, nil, cache.DefaultTTLs())
	fuser := fusion.New(fusion.DefaultConfig(), nil)
	return NewEngine(source, library, fuser, opts)
}

func roeOnlyConfig(symbols ...string) config.AlgorithmConfiguration {
	cfg := config.DefaultAlgorithm()
	cfg.Name = "roe-only"
	cfg.Factors = []config.FactorWeight{
		{ID: "quality_composite", Weight: 1.0, Enabled: true},
	}
	cfg.Universe.Symbols = symbols
	cfg.Run.BatchSize = 2
	cfg.Run.Timeout = 5 * time.Second
	return cfg
}

func TestScan_CompletesAndRanks(t *testing.T) {
	src := newFakeSource()
	src.addStock("GOOD", 150, "Technology", 30) // saturating ROE curve, near 1
	src.addStock("OKAY", 90, "Healthcare", 10)  // curve midpoint, 0.5
	sink := &fakeSink{}

	engine := newTestEngine(src, Options{Sink: sink})
	result, err := engine.Scan(context.Background(), roeOnlyConfig("GOOD", "OKAY"))
	require.NoError(t, err)

	assert.Equal(t, StateCompleted, result.State)
	assert.NotEmpty(t, result.RunID)
	require.Len(t, result.Selections, 2)
	assert.Equal(t, "GOOD", result.Selections[0].Symbol)
	assert.Equal(t, ActionBuy, result.Selections[0].Action)
	assert.Equal(t, ActionHold, result.Selections[1].Action)
	assert.Greater(t, result.Selections[0].Confidence, result.Selections[1].Confidence)

	assert.Equal(t, 2, result.Metrics.UniverseSize)
	assert.Equal(t, 2, result.Metrics.StocksEvaluated)
	assert.Greater(t, result.Metrics.AverageQuality, 0.0)

	var sum float64
	for _, sel := range result.Selections {
		sum += sel.Weight
	}
	assert.LessOrEqual(t, sum, 1.0+1e-9)

	require.Len(t, sink.results, 1)
	assert.Equal(t, result.RunID, sink.results[0].RunID)
}

func TestScan_RejectsUnknownFactor(t *testing.T) {
	engine := newTestEngine(newFakeSource(), Options{})
	cfg := roeOnlyConfig("AAPL")
	cfg.Factors = []config.FactorWeight{{ID: "nonsense", Weight: 1, Enabled: true}}

	_, err := engine.Scan(context.Background(), cfg)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "nonsense")
}

func TestScan_DropsFailingSymbols(t *testing.T) {
	src := newFakeSource()
	src.addStock("GOOD", 150, "Technology", 30)
	src.addStock("BAD", 80, "Energy", 5)
	src.failing["BAD"] = true

	engine := newTestEngine(src, Options{})
	result, err := engine.Scan(context.Background(), roeOnlyConfig("GOOD", "BAD"))
	require.NoError(t, err)

	assert.Equal(t, 1, result.Metrics.StocksEvaluated)
	assert.Equal(t, 1, result.Metrics.FetchFailures)
	require.Len(t, result.Selections, 1)
	assert.Equal(t, "GOOD", result.Selections[0].Symbol)
}

func TestScan_EmptyUniverseFails(t *testing.T) {
	src := newFakeSource()
	engine := newTestEngine(src, Options{})

	cfg := roeOnlyConfig("AAPL")
	cfg.Universe.Symbols = nil // no explicit list, no universe source

	result, err := engine.Scan(context.Background(), cfg)
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, StateFailed, result.State)
	assert.NotEmpty(t, result.Errors)
	assert.Empty(t, result.Selections, "failed run still returns a populated shape")
}

func TestScan_NeutralFallbackWithPrice(t *testing.T) {
	src := newFakeSource()
	src.addStock("AAPL", 150, "Technology", 30)
	// momentum_composite needs technicals the source never serves.
	cfg := roeOnlyConfig("AAPL")
	cfg.Factors = []config.FactorWeight{
		{ID: "momentum_composite", Weight: 1.0, Enabled: true},
	}

	engine := newTestEngine(src, Options{})
	result, err := engine.Scan(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, result.Selections, 1)
	assert.True(t, result.Selections[0].Score.Neutral)
	assert.Equal(t, 0.6, result.Selections[0].Score.OverallScore)
}

func TestScan_DerivesTechnicalsFromCandles(t *testing.T) {
	src := newFakeSource()
	src.addStock("AAPL", 150, "Technology", 30)

	// 80 rising daily bars: enough history for RSI, none for SMA200.
	bars := make([]providers.Candle, 80)
	price := 100.0
	for i := range bars {
		price *= 1.003
		bars[i] = providers.Candle{
			Time:   time.Now().AddDate(0, 0, i-len(bars)),
			Open:   price,
			High:   price * 1.01,
			Low:    price * 0.99,
			Close:  price,
			Volume: 1e6,
		}
	}
	src2 := &candleSource{
		fakeSource: src,
		candles:    map[string][]providers.Candle{"AAPL": bars},
	}

	cfg := roeOnlyConfig("AAPL")
	cfg.Factors = []config.FactorWeight{{ID: "rsi", Weight: 1.0, Enabled: true}}

	engine := newTestEngine(src2, Options{})
	result, err := engine.Scan(context.Background(), cfg)
	require.NoError(t, err)

	require.Len(t, result.Selections, 1)
	sel := result.Selections[0]
	assert.False(t, sel.Score.Neutral, "derived technicals must feed the factor")
	assert.Contains(t, sel.Score.FactorScores, "rsi")
}

func TestScan_ReleasesTrackerEntries(t *testing.T) {
	src := newFakeSource()
	src.addStock("AAPL", 150, "Technology", 30)
	engine := newTestEngine(src, Options{})

	for i := 0; i < 5; i++ {
		_, err := engine.Scan(context.Background(), roeOnlyConfig("AAPL"))
		require.NoError(t, err)
	}

	// Failed runs release their entries too.
	badCfg := roeOnlyConfig("AAPL")
	badCfg.Universe.Symbols = nil
	_, err := engine.Scan(context.Background(), badCfg)
	require.Error(t, err)

	assert.Empty(t, engine.Tracker().Active())
	engine.tracker.mu.Lock()
	retained := len(engine.tracker.runs)
	engine.tracker.mu.Unlock()
	assert.Zero(t, retained, "terminal runs must not accumulate in the tracker")
}

func TestScan_TimeoutSurfacesRunError(t *testing.T) {
	src := newFakeSource()
	src.addStock("AAPL", 150, "Technology", 30)
	src.delay = 300 * time.Millisecond

	cfg := roeOnlyConfig("AAPL")
	cfg.Run.Timeout = 50 * time.Millisecond

	engine := newTestEngine(src, Options{})
	result, err := engine.Scan(context.Background(), cfg)
	require.Error(t, err)

	var runErr *RunError
	require.True(t, errors.As(err, &runErr))
	assert.Equal(t, StateFailed, result.State)
	assert.Contains(t, runErr.Message, "timeout")
}

func TestScan_CachedUniverseTakesPrecedenceOverQuery(t *testing.T) {
	src := newFakeSource()
	src.addStock("AAPL", 150, "Technology", 30)

	store := cache.NewMemory(100)
	defer store.Stop()

	cfg := roeOnlyConfig()
	cfg.Universe.Symbols = nil
	cfg.Universe.MaxSize = 10

	// Prime the universe cache the way a previous run would have.
	key := cache.Key(cache.ClassUniverse, "universe", cache.OptionsHash(map[string]string{
		"sectors":   "",
		"exchanges": "",
		"min_cap":   "0",
		"max_cap":   "0",
		"max_size":  "10",
	}))
	data, err := cache.Encode([]string{"AAPL"})
	require.NoError(t, err)
	store.Set(key, data, time.Hour)

	engine := newTestEngine(src, Options{Cache: store})
	result, err := engine.Scan(context.Background(), cfg)
	require.NoError(t, err)
	assert.True(t, result.Metrics.UniverseCached)
	assert.Equal(t, 1, result.Metrics.UniverseSize)
}

func TestScan_ConcurrentRuns(t *testing.T) {
	src := newFakeSource()
	src.addStock("AAPL", 150, "Technology", 30)
	src.addStock("MSFT", 300, "Technology", 25)

	engine := newTestEngine(src, Options{})
	cfg := roeOnlyConfig("AAPL", "MSFT")

	var wg sync.WaitGroup
	results := make([]*SelectionResult, 4)
	for i := 0; i < 4; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r, err := engine.Scan(context.Background(), cfg)
			assert.NoError(t, err)
			results[i] = r
		}(i)
	}
	wg.Wait()

	seen := make(map[string]bool)
	for _, r := range results {
		require.NotNil(t, r)
		assert.Equal(t, StateCompleted, r.State)
		assert.False(t, seen[r.RunID], "run ids must be unique")
		seen[r.RunID] = true
	}
}
