// Package app wires configuration into the catalog services shared by the
// HTTP server and the admin CLI.
package app

import (
	"context"
	"errors"
	"fmt"

	"github.com/rs/zerolog"

	"github.com/superpoupe/backend/config"
	"github.com/superpoupe/backend/internal/domain"
	"github.com/superpoupe/backend/internal/infrastructure/cache"
	"github.com/superpoupe/backend/internal/infrastructure/grounding"
	"github.com/superpoupe/backend/internal/infrastructure/storage"
	"github.com/superpoupe/backend/internal/usecase"
)

// Options tune how strictly infrastructure failures are treated
type Options struct {
	// RequireStore makes an unreachable catalog store fatal instead of
	// falling back to a disabled store.
	RequireStore bool
}

// App holds the wired services and the resources they own
type App struct {
	Store      domain.CatalogStore
	Cache      domain.CacheRepository
	Catalog    *usecase.CatalogService
	Cart       *usecase.CartService
	Comparison *usecase.ComparisonService
	Imports    *usecase.ImportService
	Jobs       *usecase.ImportJobs
	Discovery  *usecase.DiscoveryService

	closers []func() error
	logger  zerolog.Logger
}

// New opens the store and cache selected by cfg and builds every service
func New(ctx context.Context, cfg *config.Config, logger zerolog.Logger, opts Options) (*App, error) {
	a := &App{logger: logger}

	store, err := openStore(ctx, cfg.Store, logger)
	if err != nil {
		if opts.RequireStore {
			return nil, err
		}
		logger.Error().Err(err).Str("driver", cfg.Store.Driver).Msg("catalog store unavailable, running degraded")
		store = storage.Disabled{}
	}
	a.Store = store
	a.closers = append(a.closers, store.Close)

	a.Cache = a.openCache(cfg.Cache)

	defaultStore, _ := domain.ParseStoreID(cfg.Import.DefaultStore)

	a.Catalog = usecase.NewCatalogService(store, a.Cache, logger, usecase.CatalogServiceConfig{
		CacheTTL:  cfg.Cache.TTL,
		BatchSize: cfg.Import.BatchSize,
	})
	a.Imports = usecase.NewImportService(store, a.Catalog, logger, usecase.ImportServiceConfig{
		BatchSize:    cfg.Import.BatchSize,
		DefaultStore: defaultStore,
		Parser:       usecase.ImportParserConfig{Lookback: cfg.Import.Lookback},
	})
	a.Jobs = usecase.NewImportJobs(a.Imports, logger)
	a.Cart = usecase.NewCartService(a.Cache, a.Catalog, usecase.CartServiceConfig{TTL: cfg.Cache.CartTTL})
	a.Comparison = usecase.NewComparisonService(store, logger, usecase.ComparisonServiceConfig{
		MinScore:            cfg.Matching.MinConfidence,
		EnableFuzzyMatching: cfg.Matching.EnableFuzzyMatching,
	})

	var client domain.GroundingClient
	if cfg.Grounding.APIKey != "" {
		client = grounding.NewClient(grounding.Config{
			APIKey:            cfg.Grounding.APIKey,
			BaseURL:           cfg.Grounding.BaseURL,
			Model:             cfg.Grounding.Model,
			Timeout:           cfg.Grounding.Timeout,
			RequestsPerMinute: cfg.Grounding.RequestsPerMinute,
		}, logger)
		logger.Info().Str("model", cfg.Grounding.Model).Msg("grounding enabled")
	} else {
		logger.Warn().Msg("grounding API key not set, discovery disabled")
	}
	a.Discovery = usecase.NewDiscoveryService(client, a.Imports, a.Catalog, logger)

	return a, nil
}

// Shutdown stops the running import, if any, and releases store and cache
func (a *App) Shutdown(ctx context.Context) error {
	var errs []error
	if err := a.Jobs.Shutdown(ctx); err != nil {
		errs = append(errs, fmt.Errorf("stopping import: %w", err))
	}
	for i := len(a.closers) - 1; i >= 0; i-- {
		if err := a.closers[i](); err != nil {
			errs = append(errs, err)
		}
	}
	return errors.Join(errs...)
}

func openStore(ctx context.Context, cfg config.StoreConfig, logger zerolog.Logger) (domain.CatalogStore, error) {
	switch cfg.Driver {
	case "none":
		logger.Warn().Msg("catalog store disabled by configuration")
		return storage.Disabled{}, nil
	case "memory", "":
		logger.Info().Msg("using in-memory catalog store")
		return storage.NewMemoryStore(), nil
	default:
		store, err := storage.OpenSQL(ctx, storage.SQLConfig{Driver: cfg.Driver, DSN: cfg.DSN})
		if err != nil {
			return nil, err
		}
		logger.Info().Str("driver", cfg.Driver).Msg("catalog store connected")
		return store, nil
	}
}

// openCache falls back to memory when Redis cannot be reached
func (a *App) openCache(cfg config.CacheConfig) domain.CacheRepository {
	if cfg.Type == "redis" {
		redisCache, err := cache.NewRedisCache(cache.RedisConfig{URL: cfg.RedisURL})
		if err == nil {
			a.closers = append(a.closers, redisCache.Close)
			a.logger.Info().Msg("using redis cache")
			return redisCache
		}
		a.logger.Error().Err(err).Msg("redis unavailable, falling back to memory cache")
	}

	memoryCache := cache.NewMemoryCache(cfg.MaxEntries)
	a.closers = append(a.closers, memoryCache.Close)
	return memoryCache
}
