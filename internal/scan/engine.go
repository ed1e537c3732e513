// Package scan orchestrates scoring runs: universe resolution, batched
// data fetch, factor scoring, selection and position weighting.
package scan

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strconv"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
	"gonum.org/v1/gonum/stat"

	"github.com/stockrank/stockrank/internal/config"
	"github.com/stockrank/stockrank/internal/data/cache"
	"github.com/stockrank/stockrank/internal/data/indicators"
	"github.com/stockrank/stockrank/internal/data/providers"
	"github.com/stockrank/stockrank/internal/domain/factors"
	"github.com/stockrank/stockrank/internal/domain/snapshot"
	"github.com/stockrank/stockrank/internal/fusion"
	"github.com/stockrank/stockrank/internal/metrics"
	"github.com/stockrank/stockrank/internal/quality"
)

// Neutral fallback scores when zero factors compute for a symbol.
const (
	neutralScore          = 0.5
	neutralScoreWithPrice = 0.6
)

// candleLookbackDays covers SMA200 plus the 3-month change window with
// daily bars to spare.
const candleLookbackDays = 300

var errCancelled = errors.New("scan: run cancelled")

// DataSource is the provider chain surface the engine consumes.
// *providers.Chain implements it.
type DataSource interface {
	GetFundamentals(ctx context.Context, symbol string) (*snapshot.Fundamental, error)
	GetCompanyInfo(ctx context.Context, symbol string) (providers.CompanyInfo, error)
	GetTechnicals(ctx context.Context, symbol string) (*snapshot.Technical, error)
	FanOutPrice(ctx context.Context, symbol string) []fusion.Sample
}

// CandleSource is optionally implemented by data sources that serve raw
// price history. When no provider has precomputed technicals for a symbol
// the engine derives them from candles instead. *providers.Chain
// implements it.
type CandleSource interface {
	GetCandles(ctx context.Context, symbol string, days int) ([]providers.Candle, error)
}

// UniverseSource resolves universe constraints into a symbol list when no
// explicit list is configured. May be nil.
type UniverseSource interface {
	Query(ctx context.Context, cfg config.UniverseConfig) ([]string, error)
}

// ResultSink persists completed results. May be nil.
type ResultSink interface {
	SaveResult(ctx context.Context, result *SelectionResult) error
}

// Options carries the engine's optional collaborators.
type Options struct {
	Universe UniverseSource
	Cache    cache.Store
	Sink     ResultSink
	TTLs     cache.TTLs
}

// Engine runs scoring pipelines. Runs are stateless aside from the shared
// cache and tracker; concurrent Scan calls need no coordination.
type Engine struct {
	source   DataSource
	library  *factors.Library
	fuser    *fusion.Fuser
	universe UniverseSource
	store    cache.Store
	loader   *cache.Loader
	sink     ResultSink
	tracker  *Tracker
	ttls     cache.TTLs
	now      func() time.Time
}

// NewEngine wires an engine. source, library and fuser are required.
func NewEngine(source DataSource, library *factors.Library, fuser *fusion.Fuser, opts Options) *Engine {
	ttls := opts.TTLs
	if ttls.Universe <= 0 {
		ttls = cache.DefaultTTLs()
	}
	var loader *cache.Loader
	if opts.Cache != nil {
		loader = cache.NewLoader(opts.Cache)
	}
	return &Engine{
		source:   source,
		library:  library,
		fuser:    fuser,
		universe: opts.Universe,
		store:    opts.Cache,
		loader:   loader,
		sink:     opts.Sink,
		tracker:  NewTracker(),
		ttls:     ttls,
		now:      time.Now,
	}
}

// Tracker exposes run states for the HTTP surface.
func (e *Engine) Tracker() *Tracker { return e.tracker }

// Cancel marks a run cancelled; the pipeline short-circuits at its next
// checkpoint.
func (e *Engine) Cancel(runID string) { e.tracker.Cancel(runID) }

// Scan executes one full run. Configuration errors reject the run before
// any fetch; a run-level timeout races the pipeline and surfaces a
// RunError instead of silently returning partial data.
func (e *Engine) Scan(ctx context.Context, cfg config.AlgorithmConfiguration) (*SelectionResult, error) {
	if err := cfg.Validate(e.library.Registry().Has); err != nil {
		return nil, fmt.Errorf("scan rejected: %w", err)
	}

	runID := uuid.New().String()
	e.tracker.Begin(runID)
	// The returned result is the run's record; the tracker only needs the
	// entry while the run is live.
	defer e.tracker.Forget(runID)

	result := &SelectionResult{
		RunID:     runID,
		Algorithm: cfg.Name,
		State:     StatePending,
		StartedAt: e.now(),
	}

	runCtx, cancel := context.WithTimeout(ctx, cfg.Run.Timeout)
	defer cancel()

	done := make(chan error, 1)
	go func() {
		done <- e.pipeline(runCtx, runID, cfg, result)
	}()

	var runErr error
	select {
	case err := <-done:
		runErr = err
	case <-runCtx.Done():
		// Let the pipeline unwind through its checkpoints before touching
		// the shared result. Provider calls are individually bounded, so
		// this never hangs long past the deadline.
		cancel()
		<-done
		runErr = fmt.Errorf("run timeout after %s: %w", cfg.Run.Timeout, runCtx.Err())
	}

	result.CompletedAt = e.now()
	result.Metrics.Duration = result.CompletedAt.Sub(result.StartedAt)

	if runErr != nil {
		stage := e.tracker.State(runID)
		_ = e.tracker.Advance(runID, StateFailed)
		result.State = StateFailed
		result.Errors = append(result.Errors, runErr.Error())
		metrics.ScanCompleted(string(StateFailed), result.Metrics.Duration)
		log.Error().Err(runErr).Str("run_id", runID).Str("stage", string(stage)).
			Msg("Scan run failed")
		return result, &RunError{RunID: runID, Stage: stage, Message: runErr.Error(), Partial: result}
	}

	result.State = StateCompleted
	metrics.ScanCompleted(string(StateCompleted), result.Metrics.Duration)
	log.Info().Str("run_id", runID).
		Int("evaluated", result.Metrics.StocksEvaluated).
		Int("selected", result.Metrics.StocksSelected).
		Dur("duration", result.Metrics.Duration).
		Msg("Scan run completed")

	if e.sink != nil {
		if err := e.sink.SaveResult(ctx, result); err != nil {
			log.Warn().Err(err).Str("run_id", runID).Msg("Result persistence failed")
		}
	}
	return result, nil
}

// checkpoint short-circuits cancelled or expired runs between stages.
func (e *Engine) checkpoint(ctx context.Context, runID string) error {
	if e.tracker.Cancelled(runID) {
		return errCancelled
	}
	select {
	case <-ctx.Done():
		return ctx.Err()
	default:
		return nil
	}
}

func (e *Engine) pipeline(ctx context.Context, runID string, cfg config.AlgorithmConfiguration, result *SelectionResult) error {
	symbols, cached, err := e.resolveUniverse(ctx, cfg.Universe)
	if err != nil {
		return fmt.Errorf("universe resolution: %w", err)
	}
	if len(symbols) == 0 {
		return errors.New("universe resolution: zero symbols")
	}
	result.Metrics.UniverseSize = len(symbols)
	result.Metrics.UniverseCached = cached
	if err := e.tracker.Advance(runID, StateUniverseResolved); err != nil {
		return err
	}
	if err := e.checkpoint(ctx, runID); err != nil {
		return err
	}

	bundles, failures := e.fetchBatches(ctx, symbols, cfg.Run.BatchSize)
	result.Metrics.FetchFailures = failures
	if err := e.tracker.Advance(runID, StateDataFetched); err != nil {
		return err
	}
	if err := e.checkpoint(ctx, runID); err != nil {
		return err
	}

	scores := e.scoreAll(bundles, cfg)
	result.Metrics.StocksEvaluated = len(scores)
	if err := e.tracker.Advance(runID, StateScored); err != nil {
		return err
	}
	if err := e.checkpoint(ctx, runID); err != nil {
		return err
	}

	selected := applyPolicy(scores, cfg.Selection, cfg.Universe.MaxSize)
	weights := positionWeights(selected, cfg.Selection.Policy, cfg.Risk)

	result.Selections = make([]Selection, len(selected))
	for i, s := range selected {
		result.Selections[i] = Selection{
			Symbol:     s.Symbol,
			Score:      s,
			Weight:     weights[i],
			Action:     actionFor(s.OverallScore),
			Confidence: confidence(s, i, len(selected)),
		}
	}
	result.Metrics.StocksSelected = len(selected)
	if len(scores) > 0 {
		overall := make([]float64, len(scores))
		for i, s := range scores {
			overall[i] = s.DataQuality.Overall
		}
		result.Metrics.AverageQuality = stat.Mean(overall, nil)
	}
	if err := e.tracker.Advance(runID, StateSelected); err != nil {
		return err
	}
	return e.tracker.Advance(runID, StateCompleted)
}

// resolveUniverse applies the precedence explicit list > cached universe >
// fresh query. Cached universes use the long TTL class.
func (e *Engine) resolveUniverse(ctx context.Context, cfg config.UniverseConfig) (symbols []string, cached bool, err error) {
	excluded := make(map[string]bool, len(cfg.Exclusions))
	for _, s := range cfg.Exclusions {
		excluded[strings.ToUpper(s)] = true
	}
	filter := func(in []string) []string {
		out := make([]string, 0, len(in))
		for _, s := range in {
			s = strings.ToUpper(strings.TrimSpace(s))
			if s == "" || excluded[s] {
				continue
			}
			out = append(out, s)
		}
		if cfg.MaxSize > 0 && len(out) > cfg.MaxSize {
			out = out[:cfg.MaxSize]
		}
		return out
	}

	if len(cfg.Symbols) > 0 {
		return filter(cfg.Symbols), false, nil
	}

	query := func() ([]string, error) {
		if e.universe == nil {
			return nil, errors.New("no explicit symbols and no universe source configured")
		}
		list, err := e.universe.Query(ctx, cfg)
		if err != nil {
			return nil, err
		}
		sort.Strings(list)
		return list, nil
	}

	if e.loader == nil {
		list, err := query()
		if err != nil {
			return nil, false, err
		}
		return filter(list), false, nil
	}

	// Single-flight per constraint hash: concurrent runs sharing a universe
	// trigger one query, not one each.
	key := cache.Key(cache.ClassUniverse, "universe", cache.OptionsHash(map[string]string{
		"sectors":   strings.Join(cfg.Sectors, ","),
		"exchanges": strings.Join(cfg.Exchanges, ","),
		"min_cap":   strconv.FormatFloat(cfg.MinMarketCap, 'f', -1, 64),
		"max_cap":   strconv.FormatFloat(cfg.MaxMarketCap, 'f', -1, 64),
		"max_size":  strconv.Itoa(cfg.MaxSize),
	}))
	data, fromCache, err := e.loader.Do(key, e.ttls.Universe, func() ([]byte, error) {
		list, err := query()
		if err != nil {
			return nil, err
		}
		return cache.Encode(list)
	})
	if err != nil {
		return nil, false, err
	}
	var list []string
	if err := cache.Decode(data, &list); err != nil {
		return nil, false, err
	}
	return filter(list), fromCache, nil
}

// bundle is one symbol's fetched data ready for scoring.
type bundle struct {
	market      snapshot.Market
	fundamental *snapshot.Fundamental
	technical   *snapshot.Technical
	quality     quality.Score
}

// fetchBatches fetches all symbols with bounded concurrency. A failing
// symbol is dropped and logged, never failing the run.
func (e *Engine) fetchBatches(ctx context.Context, symbols []string, batchSize int) (map[string]bundle, int) {
	if batchSize <= 0 {
		batchSize = 10
	}

	var mu sync.Mutex
	bundles := make(map[string]bundle, len(symbols))
	failures := 0

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(batchSize)
	for _, symbol := range symbols {
		symbol := symbol
		g.Go(func() error {
			b, err := e.fetchOne(gctx, symbol)
			mu.Lock()
			defer mu.Unlock()
			if err != nil {
				failures++
				metrics.FetchFailure()
				log.Debug().Err(err).Str("symbol", symbol).Msg("Dropping symbol after fetch failure")
				return nil
			}
			bundles[symbol] = b
			return nil
		})
	}
	_ = g.Wait()
	return bundles, failures
}

// fetchOne requires a fused price; fundamentals and technicals are
// best-effort and stay nil when unavailable.
func (e *Engine) fetchOne(ctx context.Context, symbol string) (bundle, error) {
	samples := e.source.FanOutPrice(ctx, symbol)
	fused, err := e.fuser.Fuse("price", quality.FieldRealTime, fusion.WeightedAverage, samples)
	if err != nil {
		return bundle{}, fmt.Errorf("price for %s: %w", symbol, err)
	}

	b := bundle{
		market: snapshot.Market{
			Symbol:    symbol,
			Price:     fused.Value,
			Timestamp: e.now(),
			Source:    fused.Source,
		},
		quality: fused.Quality,
	}

	if info, err := e.source.GetCompanyInfo(ctx, symbol); err == nil {
		b.market.Sector = info.Sector
		b.market.Exchange = info.Exchange
		b.market.MarketCap = info.MarketCap
	}
	if fund, err := e.source.GetFundamentals(ctx, symbol); err == nil {
		b.fundamental = fund
	}
	if tech, err := e.source.GetTechnicals(ctx, symbol); err == nil {
		b.technical = tech
	} else if cs, ok := e.source.(CandleSource); ok {
		if candles, err := cs.GetCandles(ctx, symbol, candleLookbackDays); err == nil && len(candles) > 0 {
			b.technical = indicators.FromCandles(symbol, candles)
		}
	}
	return b, nil
}

// scoreAll computes the weighted composite per symbol, renormalizing over
// the factors that actually computed. Zero computed factors yield the
// documented neutral fallback rather than failing the symbol.
func (e *Engine) scoreAll(bundles map[string]bundle, cfg config.AlgorithmConfiguration) []StockScore {
	enabled := cfg.EnabledFactors()
	scores := make([]StockScore, 0, len(bundles))

	for symbol, b := range bundles {
		in := factors.Inputs{
			Market:      b.market,
			Fundamental: b.fundamental,
			Technical:   b.technical,
		}

		factorScores := make(map[string]float64, len(enabled))
		var sumW, sumWV float64
		for _, fw := range enabled {
			v, ok := e.library.Calculate(fw.ID, symbol, in)
			if !ok {
				continue
			}
			factorScores[fw.ID] = v
			sumW += fw.Weight
			sumWV += fw.Weight * v
		}

		score := StockScore{
			Symbol:       symbol,
			FactorScores: factorScores,
			DataQuality:  b.quality,
			Price:        b.market.Price,
			MarketCap:    b.market.MarketCap,
			Sector:       b.market.Sector,
			Timestamp:    e.now(),
		}
		if sumW > 0 {
			score.OverallScore = sumWV / sumW
		} else {
			score.Neutral = true
			if b.market.Price > 0 {
				score.OverallScore = neutralScoreWithPrice
			} else {
				score.OverallScore = neutralScore
			}
		}
		scores = append(scores, score)
	}

	// Map iteration is randomized; fix the order before ranking.
	sort.Slice(scores, func(i, j int) bool { return scores[i].Symbol < scores[j].Symbol })
	return scores
}
