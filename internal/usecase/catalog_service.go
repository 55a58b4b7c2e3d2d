package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/rs/zerolog"

	"github.com/superpoupe/backend/internal/domain"
)

// catalogCachePrefix namespaces cached search pages
const catalogCachePrefix = "catalog:"

// CatalogServiceConfig holds configuration for the catalog service
type CatalogServiceConfig struct {
	CacheTTL  time.Duration
	BatchSize int
}

// CatalogService serves catalog reads and maintenance
type CatalogService struct {
	store     domain.CatalogStore
	cache     domain.CacheRepository
	logger    zerolog.Logger
	cacheTTL  time.Duration
	batchSize int
}

// NewCatalogService creates a new catalog service with dependencies
func NewCatalogService(
	store domain.CatalogStore,
	cache domain.CacheRepository,
	logger zerolog.Logger,
	config CatalogServiceConfig,
) *CatalogService {
	cacheTTL := config.CacheTTL
	if cacheTTL == 0 {
		cacheTTL = 5 * time.Minute
	}

	batchSize := config.BatchSize
	if batchSize <= 0 {
		batchSize = DefaultBatchSize
	}

	return &CatalogService{
		store:     store,
		cache:     cache,
		logger:    logger.With().Str("component", "catalog").Logger(),
		cacheTTL:  cacheTTL,
		batchSize: batchSize,
	}
}

// Search returns products matching filter with names sanitized and display
// duplicates merged. Store failures yield an empty list.
// Flow: check cache -> query store -> sanitize -> dedup -> cache -> return
func (s *CatalogService) Search(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	filter = normalizeFilter(filter)
	if filter.Store != "" {
		store, ok := domain.ParseStoreID(string(filter.Store))
		if !ok {
			return nil, fmt.Errorf("%w: %q", domain.ErrInvalidStore, filter.Store)
		}
		filter.Store = store
	}

	cacheKey := generateCatalogCacheKey(filter)
	if cached, err := s.getFromCache(ctx, cacheKey); err == nil {
		return cached, nil
	}

	products, err := s.store.Query(ctx, filter)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog query failed, serving empty result")
		return []domain.Product{}, nil
	}

	products = dedupForDisplay(products)

	if err := s.setInCache(ctx, cacheKey, products); err != nil {
		s.logger.Debug().Err(err).Str("key", cacheKey).Msg("failed to cache catalog page")
	}

	return products, nil
}

// Count returns the number of stored products, or 0 when the store fails
func (s *CatalogService) Count(ctx context.Context) (int, error) {
	n, err := s.store.Count(ctx)
	if err != nil {
		s.logger.Warn().Err(err).Msg("catalog count failed")
		return 0, nil
	}
	return n, nil
}

// Get returns a single product by id
func (s *CatalogService) Get(ctx context.Context, id string) (*domain.Product, error) {
	if strings.TrimSpace(id) == "" {
		return nil, domain.ErrInvalidRequest
	}
	return s.store.Get(ctx, id)
}

// Cleanup re-sanitizes every stored name and writes back the ones that
// changed, keeping their ids.
func (s *CatalogService) Cleanup(ctx context.Context) (*domain.CleanupSummary, error) {
	products, err := s.store.Query(ctx, domain.ProductFilter{})
	if err != nil {
		return nil, fmt.Errorf("reading catalog: %w", err)
	}

	summary := &domain.CleanupSummary{Scanned: len(products)}

	var changed []domain.Product
	for _, p := range products {
		clean := SanitizeName(p.Name)
		if clean == p.Name || utf8.RuneCountInString(clean) <= minNameLength {
			continue
		}
		p.Name = clean
		changed = append(changed, p)
	}

	writeCtx := context.WithoutCancel(ctx)
	for start := 0; start < len(changed); start += s.batchSize {
		if ctx.Err() != nil {
			break
		}
		end := min(start+s.batchSize, len(changed))
		if err := s.store.UpsertBatch(writeCtx, changed[start:end]); err != nil {
			summary.Failed += end - start
			s.logger.Warn().Err(err).Int("offset", start).Msg("cleanup batch failed")
			continue
		}
		summary.Fixed += end - start
	}

	if summary.Fixed > 0 {
		if err := s.Invalidate(writeCtx); err != nil {
			s.logger.Warn().Err(err).Msg("failed to invalidate catalog cache")
		}
	}

	s.logger.Info().
		Int("scanned", summary.Scanned).
		Int("fixed", summary.Fixed).
		Int("failed", summary.Failed).
		Msg("catalog cleanup finished")

	return summary, nil
}

// Invalidate drops every cached catalog page
func (s *CatalogService) Invalidate(ctx context.Context) error {
	return s.cache.DeletePrefix(ctx, catalogCachePrefix)
}

func normalizeFilter(filter domain.ProductFilter) domain.ProductFilter {
	filter.TextSearch = strings.TrimSpace(filter.TextSearch)
	filter.Category = strings.TrimSpace(filter.Category)
	if strings.EqualFold(filter.Category, domain.AllCategories) {
		filter.Category = ""
	}
	filter.Store = domain.StoreID(strings.TrimSpace(string(filter.Store)))
	return filter
}

// generateCatalogCacheKey creates a cache key from a normalized filter.
// Format: "catalog:{store}:{category}:{query}"
func generateCatalogCacheKey(filter domain.ProductFilter) string {
	return fmt.Sprintf("%s%s:%s:%s",
		catalogCachePrefix,
		filter.Store,
		foldText(filter.Category),
		foldText(filter.TextSearch),
	)
}

// dedupForDisplay sanitizes names and merges entries that share a display
// key, keeping the most recently updated one at the first position seen.
func dedupForDisplay(products []domain.Product) []domain.Product {
	out := make([]domain.Product, 0, len(products))
	index := make(map[string]int, len(products))

	for _, p := range products {
		p.Name = SanitizeName(p.Name)
		key := p.DisplayKey()
		if at, seen := index[key]; seen {
			if p.LastUpdated.After(out[at].LastUpdated) {
				out[at] = p
			}
			continue
		}
		index[key] = len(out)
		out = append(out, p)
	}
	return out
}

func (s *CatalogService) getFromCache(ctx context.Context, key string) ([]domain.Product, error) {
	data, err := s.cache.Get(ctx, key)
	if err != nil {
		return nil, err
	}

	var products []domain.Product
	if err := json.Unmarshal(data, &products); err != nil {
		return nil, errors.Join(domain.ErrCacheMiss, err)
	}
	return products, nil
}

func (s *CatalogService) setInCache(ctx context.Context, key string, products []domain.Product) error {
	data, err := json.Marshal(products)
	if err != nil {
		return err
	}
	return s.cache.Set(ctx, key, data, s.cacheTTL)
}
