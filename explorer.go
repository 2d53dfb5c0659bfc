package main

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"golang.org/x/sync/errgroup"
)

// Explorer wires the upstream client, the resolvers and the universe cache
// behind the operations the API and the CLI expose.
type Explorer struct {
	database  *Database
	universe  *Universe
	names     *NameResolver
	prices    *PriceResolver
	dividends *DividendService
	logos     *LogoClient
}

func NewExplorer(cfg *Config) (*Explorer, error) {
	database, err := NewDatabase(cfg.Database.Path)
	if err != nil {
		return nil, fmt.Errorf("failed to initialize database: %w", err)
	}

	client := NewFinancialDataClient(cfg.Upstream)
	e := newExplorer(client, database, cfg.Upstream.CacheKey, NewLogoClient(cfg.Logo))
	e.database = database

	log.Info().
		Str("db", cfg.Database.Path).
		Str("upstream", cfg.Upstream.BaseURL).
		Str("transport", cfg.Upstream.Transport).
		Str("cache_key", cfg.Upstream.CacheKey).
		Msg("Explorer initialized")

	return e, nil
}

func newExplorer(fetcher RowFetcher, store UniverseStore, cacheKey string, logos *LogoClient) *Explorer {
	universe := NewUniverse(fetcher, store, cacheKey)
	names := NewNameResolver(fetcher, universe)
	return &Explorer{
		universe:  universe,
		names:     names,
		prices:    NewPriceResolver(fetcher, names),
		dividends: NewDividendService(fetcher),
		logos:     logos,
	}
}

func (e *Explorer) Quote(ctx context.Context, symbol string) (*Quote, error) {
	return e.prices.GetQuote(ctx, symbol)
}

// Detail fetches the quote and the latest dividend concurrently. Only a
// quote failure fails the call.
func (e *Explorer) Detail(ctx context.Context, symbol string) (*StockDetail, error) {
	var quote *Quote
	var dividend *DividendItem

	var g errgroup.Group
	g.Go(func() error {
		q, err := e.prices.GetQuote(ctx, symbol)
		if err != nil {
			return err
		}
		quote = q
		return nil
	})
	g.Go(func() error {
		dividend = e.dividends.Latest(ctx, symbol)
		return nil
	})
	if err := g.Wait(); err != nil {
		return nil, err
	}

	return &StockDetail{Quote: *quote, Dividend: dividend}, nil
}

func (e *Explorer) Dividends(ctx context.Context, symbol string, limit int) []DividendItem {
	return e.dividends.Get(ctx, symbol, limit)
}

func (e *Explorer) Name(ctx context.Context, symbol string) (string, bool) {
	return e.names.Resolve(ctx, symbol)
}

// Search loads the universe on first use and filters it.
func (e *Explorer) Search(ctx context.Context, opts SearchOptions) ([]SearchResult, error) {
	universe, err := e.universe.Load(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load symbol universe: %w", err)
	}
	return Search(universe, opts), nil
}

func (e *Explorer) Logo(ctx context.Context, symbol, name string, kind Kind) string {
	if e.logos == nil {
		return ""
	}
	return e.logos.URLFor(ctx, symbol, name, kind)
}

func (e *Explorer) LoadUniverse(ctx context.Context) ([]UniverseEntry, error) {
	return e.universe.Load(ctx)
}

func (e *Explorer) ResetUniverse() error {
	return e.universe.Reset()
}

func (e *Explorer) UniverseStats() UniverseStats {
	return e.universe.Stats()
}

func (e *Explorer) StoredCacheKeys() ([]string, error) {
	if e.database == nil {
		return nil, nil
	}
	return e.database.CacheKeys()
}

func (e *Explorer) Close() {
	if e.database != nil {
		if err := e.database.Close(); err != nil {
			log.Warn().Err(err).Msg("Failed to close database")
		}
	}
}
