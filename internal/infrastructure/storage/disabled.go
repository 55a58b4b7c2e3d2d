package storage

import (
	"context"

	"github.com/superpoupe/backend/internal/domain"
)

// Disabled is the store used when no database is configured.
// Every call fails with domain.ErrStoreUnavailable.
type Disabled struct{}

func (Disabled) UpsertBatch(ctx context.Context, products []domain.Product) error {
	return domain.ErrStoreUnavailable
}

func (Disabled) Query(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	return nil, domain.ErrStoreUnavailable
}

func (Disabled) Count(ctx context.Context) (int, error) {
	return 0, domain.ErrStoreUnavailable
}

func (Disabled) Get(ctx context.Context, id string) (*domain.Product, error) {
	return nil, domain.ErrStoreUnavailable
}

func (Disabled) Close() error {
	return nil
}
