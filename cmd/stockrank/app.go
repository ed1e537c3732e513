package main

import (
	"fmt"
	"os"
	"time"

	"github.com/rs/zerolog/log"

	"github.com/stockrank/stockrank/internal/config"
	"github.com/stockrank/stockrank/internal/data/cache"
	"github.com/stockrank/stockrank/internal/data/providers"
	"github.com/stockrank/stockrank/internal/domain/factors"
	"github.com/stockrank/stockrank/internal/domain/sector"
	"github.com/stockrank/stockrank/internal/fusion"
	"github.com/stockrank/stockrank/internal/persistence/postgres"
	"github.com/stockrank/stockrank/internal/scan"
)

const cacheMaxEntries = 50000

// app bundles the wired engine and its collaborators for one process.
type app struct {
	engine   *scan.Engine
	chain    *providers.Chain
	breakers *providers.BreakerManager
	store    cache.Store
	repo     *postgres.ResultsRepo
}

// buildApp wires the full stack: benchmark table, cache, provider chain,
// fuser, factor library and engine. DATABASE_URL enables result
// persistence; REDIS_ADDR switches the cache backend.
func buildApp(providersPath, benchmarksPath string) (*app, error) {
	table := sector.DefaultTable()
	if benchmarksPath != "" {
		loaded, err := sector.LoadTable(benchmarksPath)
		if err != nil {
			return nil, fmt.Errorf("benchmarks: %w", err)
		}
		table = loaded
	}

	store := cache.NewAuto(cacheMaxEntries)
	breakers := providers.NewBreakerManager(providers.DefaultBreakerConfig())
	chain := providers.NewChain(breakers, store)

	pcfg, err := config.LoadProviders(providersPath)
	if err != nil {
		return nil, err
	}
	for _, p := range pcfg.Enabled() {
		chain.Add(providers.NewREST(providers.RESTConfig{
			Name:    p.Name,
			BaseURL: p.BaseURL,
			APIKey:  p.APIKey(),
			Timeout: p.Timeout,
		}), providers.Options{
			Priority:   p.Priority,
			Timeout:    p.Timeout,
			RateLimit:  p.RateLimit,
			Burst:      p.Burst,
			Reputation: p.Reputation,
		})
	}

	fuserCfg := fusion.DefaultConfig()
	fuserCfg.Reputations = chain.Reputations()
	fuser := fusion.New(fuserCfg, nil)

	registry := factors.NewRegistry(table)
	library := factors.NewLibrary(registry, store, cache.DefaultTTLs())

	a := &app{
		chain:    chain,
		breakers: breakers,
		store:    store,
	}

	opts := scan.Options{Cache: store}
	if dsn := os.Getenv("DATABASE_URL"); dsn != "" {
		repo, err := postgres.Connect(dsn, 5*time.Second)
		if err != nil {
			return nil, fmt.Errorf("postgres: %w", err)
		}
		a.repo = repo
		opts.Sink = repo
		log.Info().Msg("Result persistence enabled")
	}

	a.engine = scan.NewEngine(chain, library, fuser, opts)
	return a, nil
}

// close releases persistent resources.
func (a *app) close() {
	if a.repo != nil {
		if err := a.repo.Close(); err != nil {
			log.Warn().Err(err).Msg("Closing postgres pool failed")
		}
	}
}
