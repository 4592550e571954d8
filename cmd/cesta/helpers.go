package main

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"os"

	"github.com/Veraticus/cesta/internal/association"
	"github.com/Veraticus/cesta/internal/catalog"
	"github.com/Veraticus/cesta/internal/config"
	"github.com/Veraticus/cesta/internal/engine"
	"github.com/Veraticus/cesta/internal/matcher"
	"github.com/Veraticus/cesta/internal/pricehistory"
	"github.com/Veraticus/cesta/internal/search"
	"github.com/Veraticus/cesta/internal/service"
	"github.com/Veraticus/cesta/internal/storage"
	"github.com/Veraticus/cesta/internal/ticket"
)

// app bundles everything a command needs.
type app struct {
	storage service.Storage
	engine  *engine.Engine
	prices  *pricehistory.Store
}

func (a *app) Close() {
	if err := a.storage.Close(); err != nil {
		slog.Warn("Failed to close database", "error", err)
	}
}

// initStorage opens the database and brings its schema up to date.
func initStorage(ctx context.Context, c *config.Config) (service.Storage, error) {
	store, err := storage.NewSQLiteStorage(c.Database.Path)
	if err != nil {
		return nil, err
	}

	if err := store.Migrate(ctx); err != nil {
		_ = store.Close()
		return nil, fmt.Errorf("failed to run migrations: %w", err)
	}

	return store, nil
}

// newExtractor builds the ticket extractor, reading the pattern file when
// one is configured.
func newExtractor(c *config.Config) (*ticket.Extractor, error) {
	set := ticket.DefaultPatternSet()
	if c.Ticket.PatternsFile != "" {
		loaded, err := ticket.LoadPatternSet(c.Ticket.PatternsFile)
		if err != nil {
			return nil, err
		}
		set = loaded
	}
	return ticket.NewExtractor(set, c.Ticket.MaxItems, slog.Default())
}

func engineConfig(c *config.Config) engine.Config {
	return engine.Config{
		Search: search.Options{
			DefaultLimit:   c.Search.DefaultLimit,
			CandidateLimit: c.Search.CandidateLimit,
			CacheSize:      c.Search.CacheSize,
			PrefixMin:      c.Search.PrefixMin,
			PrefixMax:      c.Search.PrefixMax,
			PrefixBoost:    c.Search.PrefixBoost,
		},
		Matcher: matcher.Options{
			ExcludedCategories: c.Matcher.ExcludedCategories,
			MaxProductsPerItem: c.Matcher.MaxProductsPerItem,
			MaxSuggestions:     c.Matcher.MaxSuggestions,
			MinTotalScore:      c.Matcher.MinTotalScore,
			PriceMismatchRatio: c.Matcher.PriceMismatchRatio,
		},
	}
}

// loadCatalog reads the configured catalog file into e. A missing file is
// not an error: the engine keeps running without a catalog.
func loadCatalog(e *engine.Engine, path string) error {
	c, err := catalog.LoadFile(path)
	if err != nil {
		if errors.Is(err, os.ErrNotExist) {
			slog.Warn("Catalog file not found, running without catalog", "path", path)
			return nil
		}
		return err
	}
	return e.LoadCatalog(c)
}

// initApp opens storage, restores the persisted stores and loads the
// catalog.
func initApp(ctx context.Context) (*app, error) {
	store, err := initStorage(ctx, cfg)
	if err != nil {
		return nil, err
	}

	a, err := buildApp(ctx, cfg, store)
	if err != nil {
		_ = store.Close()
		return nil, err
	}
	return a, nil
}

func buildApp(ctx context.Context, c *config.Config, store service.Storage) (*app, error) {
	loc, err := c.Location()
	if err != nil {
		return nil, err
	}

	associations := association.NewStore(store, slog.Default())
	if err := associations.Load(ctx); err != nil {
		return nil, err
	}

	prices := pricehistory.NewStore(store, pricehistory.Options{
		Location:  loc,
		MaxPoints: c.PriceHistory.MaxPoints,
	}, slog.Default())
	if err := prices.Load(ctx); err != nil {
		return nil, err
	}

	extractor, err := newExtractor(c)
	if err != nil {
		return nil, err
	}

	e := engine.New(extractor, associations, prices, engineConfig(c), slog.Default())
	if err := loadCatalog(e, c.Catalog.Path); err != nil {
		return nil, err
	}

	return &app{storage: store, engine: e, prices: prices}, nil
}
