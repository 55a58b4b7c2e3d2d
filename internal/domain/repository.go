package domain

import (
	"context"
	"time"
)

// CacheRepository defines the interface for caching operations
type CacheRepository interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, key string) error
	DeletePrefix(ctx context.Context, prefix string) error
}

// CatalogStore is the persistence boundary for products.
// UpsertBatch must apply the whole batch or none of it.
type CatalogStore interface {
	UpsertBatch(ctx context.Context, products []Product) error
	Query(ctx context.Context, filter ProductFilter) ([]Product, error)
	Count(ctx context.Context) (int, error)
	Get(ctx context.Context, id string) (*Product, error)
	Close() error
}

// GroundingQuery asks the grounding service for listings of a store section
type GroundingQuery struct {
	Store      StoreID
	Category   string
	TargetHint string
}

// GroundingResponse is the untrusted text answer plus its web sources
type GroundingResponse struct {
	Text    string
	Sources []Citation
}

// GroundingClient defines the interface for the AI search grounding service
type GroundingClient interface {
	QueryCatalog(ctx context.Context, query GroundingQuery) (*GroundingResponse, error)
}
