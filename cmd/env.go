package main

import (
	"context"
	"time"

	"github.com/rotisserie/eris"
	"go.uber.org/zap"
	"golang.org/x/time/rate"

	"github.com/shelfside/scout-cli/internal/eligibility"
	"github.com/shelfside/scout-cli/internal/engine"
	"github.com/shelfside/scout-cli/internal/store"
	"github.com/shelfside/scout-cli/internal/tracker"
	"github.com/shelfside/scout-cli/internal/valuation"
	"github.com/shelfside/scout-cli/pkg/keepa"
)

// analysisEnv holds the store, clients, and engine shared by the
// analyze, batch, and serve commands.
type analysisEnv struct {
	Store       store.Store
	Keepa       keepa.Client
	Eligibility *eligibility.Provider
	Engine      *engine.Engine
	Calc        *valuation.Calculator
}

// Close releases resources held by the environment.
func (e *analysisEnv) Close() {
	if e.Store != nil {
		_ = e.Store.Close()
	}
}

// initStore opens the configured database backend.
func initStore(ctx context.Context) (store.Store, error) {
	if err := cfg.Validate("store"); err != nil {
		return nil, err
	}
	switch cfg.Store.Driver {
	case "sqlite":
		return store.NewSQLite(cfg.Store.Path)
	case "postgres":
		return store.NewPostgres(ctx, cfg.Store.DatabaseURL)
	default:
		return nil, eris.Errorf("unsupported store driver: %s", cfg.Store.Driver)
	}
}

// initEnv sets up the store, market data client, eligibility provider,
// and decision engine. Callers should defer env.Close().
func initEnv(ctx context.Context) (*analysisEnv, error) {
	if err := cfg.Validate("keepa"); err != nil {
		return nil, err
	}
	if err := cfg.Validate("thresholds"); err != nil {
		return nil, err
	}

	st, err := initStore(ctx)
	if err != nil {
		return nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, eris.Wrap(err, "migrate store")
	}

	keepaOpts := []keepa.Option{
		keepa.WithDomain(cfg.Keepa.Domain),
		keepa.WithLimiter(rate.NewLimiter(rate.Limit(cfg.Keepa.RequestsPerSec), 1)),
	}
	if cfg.Keepa.BaseURL != "" {
		keepaOpts = append(keepaOpts, keepa.WithBaseURL(cfg.Keepa.BaseURL))
	}
	keepaClient, err := keepa.NewClient(cfg.Keepa.Key, keepaOpts...)
	if err != nil {
		_ = st.Close()
		return nil, err
	}

	var watchlist engine.Watchlist
	if cfg.Watchlist.Path != "" {
		watchlist, err = engine.LoadWatchlist(cfg.Watchlist.Path)
		if err != nil {
			zap.L().Warn("watchlist not loaded, using built-in set", zap.Error(err))
			watchlist = nil
		}
	}

	calc := valuation.New(cfg.Fees)
	maxAge := time.Duration(cfg.Eligibility.MaxAgeHours) * time.Hour

	return &analysisEnv{
		Store:       st,
		Keepa:       keepaClient,
		Eligibility: eligibility.NewProvider(st, maxAge),
		Engine:      engine.New(cfg.Thresholds, calc, watchlist),
		Calc:        calc,
	}, nil
}

// initTracker opens the store and wires the inventory tracker.
func initTracker(ctx context.Context) (*tracker.Tracker, store.Store, error) {
	st, err := initStore(ctx)
	if err != nil {
		return nil, nil, err
	}
	if err := st.Migrate(ctx); err != nil {
		_ = st.Close()
		return nil, nil, eris.Wrap(err, "migrate store")
	}
	return tracker.New(st, valuation.New(cfg.Fees)), st, nil
}
