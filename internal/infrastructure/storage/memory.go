package storage

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"sync"

	"github.com/superpoupe/backend/internal/domain"
)

// MemoryStore is a CatalogStore kept in process memory
type MemoryStore struct {
	mu       sync.RWMutex
	products map[string]domain.Product
}

// NewMemoryStore creates an empty in-memory catalog
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{products: make(map[string]domain.Product)}
}

// UpsertBatch validates the whole batch before applying any of it
func (s *MemoryStore) UpsertBatch(ctx context.Context, products []domain.Product) error {
	for _, p := range products {
		if err := validateProduct(p); err != nil {
			return err
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	for _, p := range products {
		s.products[p.ID] = p
	}
	return nil
}

// Query returns matching products ordered by name
func (s *MemoryStore) Query(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	text := domain.FoldText(strings.TrimSpace(filter.TextSearch))
	category := categoryFilter(filter.Category)

	out := []domain.Product{}
	for _, p := range s.products {
		if text != "" && !strings.Contains(domain.FoldText(p.Name), text) {
			continue
		}
		if category != "" && p.Category != category {
			continue
		}
		if filter.Store != "" && p.Store != filter.Store {
			continue
		}
		out = append(out, p)
	}

	sort.Slice(out, func(i, j int) bool {
		if out[i].Name != out[j].Name {
			return out[i].Name < out[j].Name
		}
		return out[i].ID < out[j].ID
	})
	return out, nil
}

// Count returns the number of stored products
func (s *MemoryStore) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.products), nil
}

// Get returns the product with the given id
func (s *MemoryStore) Get(ctx context.Context, id string) (*domain.Product, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	p, ok := s.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

// Close is a no-op for the memory store
func (s *MemoryStore) Close() error {
	return nil
}

func validateProduct(p domain.Product) error {
	if p.ID == "" {
		return fmt.Errorf("%w: product without id", domain.ErrInvalidRequest)
	}
	if p.Price <= 0 {
		return fmt.Errorf("%w: product %s has non-positive price", domain.ErrInvalidRequest, p.ID)
	}
	return nil
}

// categoryFilter maps the "all categories" value to no filter
func categoryFilter(category string) string {
	category = strings.TrimSpace(category)
	if strings.EqualFold(category, domain.AllCategories) {
		return ""
	}
	return category
}
