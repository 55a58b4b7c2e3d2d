package usecase

import (
	"context"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/superpoupe/backend/internal/domain"
)

// mockCatalogStore is an in-memory CatalogStore that records its calls
type mockCatalogStore struct {
	mu       sync.Mutex
	products map[string]domain.Product
	batches  [][]domain.Product
	ctxErrs  []error

	failBatch map[int]error // 1-based call number -> error
	onUpsert  func(call int)
	queryErr  error
	countErr  error
}

func newMockCatalogStore(products ...domain.Product) *mockCatalogStore {
	m := &mockCatalogStore{products: make(map[string]domain.Product), failBatch: make(map[int]error)}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return m
}

func (m *mockCatalogStore) UpsertBatch(ctx context.Context, products []domain.Product) error {
	m.mu.Lock()
	call := len(m.batches) + 1
	batch := append([]domain.Product(nil), products...)
	m.batches = append(m.batches, batch)
	hook := m.onUpsert
	m.mu.Unlock()

	if hook != nil {
		hook(call)
	}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	if err := m.failBatch[call]; err != nil {
		return err
	}
	for _, p := range products {
		m.products[p.ID] = p
	}
	return nil
}

func (m *mockCatalogStore) Query(ctx context.Context, filter domain.ProductFilter) ([]domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.queryErr != nil {
		return nil, m.queryErr
	}

	var out []domain.Product
	for _, p := range m.products {
		if filter.TextSearch != "" && !strings.Contains(domain.FoldText(p.Name), domain.FoldText(filter.TextSearch)) {
			continue
		}
		if filter.Category != "" && filter.Category != domain.AllCategories && p.Category != filter.Category {
			continue
		}
		if filter.Store != "" && p.Store != filter.Store {
			continue
		}
		out = append(out, p)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Name < out[j].Name })
	return out, nil
}

func (m *mockCatalogStore) Count(ctx context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.countErr != nil {
		return 0, m.countErr
	}
	return len(m.products), nil
}

func (m *mockCatalogStore) Get(ctx context.Context, id string) (*domain.Product, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	p, ok := m.products[id]
	if !ok {
		return nil, domain.ErrProductNotFound
	}
	return &p, nil
}

func (m *mockCatalogStore) Close() error { return nil }

func (m *mockCatalogStore) batchSizes() []int {
	m.mu.Lock()
	defer m.mu.Unlock()
	sizes := make([]int, len(m.batches))
	for i, b := range m.batches {
		sizes[i] = len(b)
	}
	return sizes
}

// mockCache is a map-backed CacheRepository
type mockCache struct {
	mu     sync.Mutex
	data   map[string][]byte
	getErr error
	sets   int
}

func newMockCache() *mockCache {
	return &mockCache{data: make(map[string][]byte)}
}

func (m *mockCache) Get(ctx context.Context, key string) ([]byte, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.getErr != nil {
		return nil, m.getErr
	}
	v, ok := m.data[key]
	if !ok {
		return nil, domain.ErrCacheMiss
	}
	return v, nil
}

func (m *mockCache) Set(ctx context.Context, key string, value []byte, ttl time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = value
	m.sets++
	return nil
}

func (m *mockCache) Delete(ctx context.Context, key string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.data, key)
	return nil
}

func (m *mockCache) DeletePrefix(ctx context.Context, prefix string) error {
	// like a network cache, a done context fails the call
	if err := ctx.Err(); err != nil {
		return err
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for k := range m.data {
		if strings.HasPrefix(k, prefix) {
			delete(m.data, k)
		}
	}
	return nil
}

func (m *mockCache) keys() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	keys := make([]string, 0, len(m.data))
	for k := range m.data {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// mockGroundingClient returns a canned response
type mockGroundingClient struct {
	response *domain.GroundingResponse
	err      error
	queries  []domain.GroundingQuery
}

func (m *mockGroundingClient) QueryCatalog(ctx context.Context, query domain.GroundingQuery) (*domain.GroundingResponse, error) {
	m.queries = append(m.queries, query)
	if m.err != nil {
		return nil, m.err
	}
	return m.response, nil
}

// mockInvalidator counts invalidations and the context state of each call
type mockInvalidator struct {
	calls   int
	ctxErrs []error
}

func (m *mockInvalidator) Invalidate(ctx context.Context) error {
	m.calls++
	m.ctxErrs = append(m.ctxErrs, ctx.Err())
	return ctx.Err()
}
