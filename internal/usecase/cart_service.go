package usecase

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"sync"
	"time"

	"github.com/shopspring/decimal"

	"github.com/superpoupe/backend/internal/domain"
)

const cartCachePrefix = "cart:"

var sessionIDRegex = regexp.MustCompile(`^[A-Za-z0-9_-]{1,128}$`)

// ProductLookup resolves a product id to the catalog entry
type ProductLookup interface {
	Get(ctx context.Context, id string) (*domain.Product, error)
}

// Cart is a session shopping list
type Cart struct {
	Session string                `json:"session"`
	Items   []domain.ShoppingItem `json:"items"`
}

// Total sums price times quantity, rounded to cents
func (c *Cart) Total() float64 {
	total := decimal.Zero
	for _, item := range c.Items {
		line := decimal.NewFromFloat(item.Price).Mul(decimal.NewFromInt(int64(item.Quantity)))
		total = total.Add(line)
	}
	return total.Round(2).InexactFloat64()
}

// MarshalJSON adds the computed total
func (c *Cart) MarshalJSON() ([]byte, error) {
	type plain Cart
	return json.Marshal(struct {
		*plain
		Total float64 `json:"total"`
	}{(*plain)(c), c.Total()})
}

// CartServiceConfig holds configuration for the cart service
type CartServiceConfig struct {
	TTL time.Duration
}

// CartService keeps session carts in the cache. Carts never reach the catalog store.
type CartService struct {
	cache    domain.CacheRepository
	products ProductLookup
	ttl      time.Duration
	mu       sync.Mutex
}

// NewCartService creates a new cart service with dependencies
func NewCartService(cache domain.CacheRepository, products ProductLookup, config CartServiceConfig) *CartService {
	ttl := config.TTL
	if ttl == 0 {
		ttl = 24 * time.Hour
	}
	return &CartService{cache: cache, products: products, ttl: ttl}
}

// Get returns the session cart, empty when none exists
func (s *CartService) Get(ctx context.Context, session string) (*Cart, error) {
	if !sessionIDRegex.MatchString(session) {
		return nil, fmt.Errorf("%w: invalid session id", domain.ErrInvalidRequest)
	}
	return s.load(ctx, session)
}

// Add puts a product in the cart or increments its quantity
func (s *CartService) Add(ctx context.Context, session, productID string) (*Cart, error) {
	return s.update(ctx, session, func(cart *Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ID == productID {
				cart.Items[i].Quantity++
				return nil
			}
		}

		product, err := s.products.Get(ctx, productID)
		if err != nil {
			return err
		}
		cart.Items = append(cart.Items, domain.ShoppingItem{Product: *product, Quantity: 1})
		return nil
	})
}

// Remove drops a product from the cart
func (s *CartService) Remove(ctx context.Context, session, productID string) (*Cart, error) {
	return s.update(ctx, session, func(cart *Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ID == productID {
				cart.Items = append(cart.Items[:i], cart.Items[i+1:]...)
				return nil
			}
		}
		return domain.ErrProductNotFound
	})
}

// Toggle flips the checked flag of a cart item
func (s *CartService) Toggle(ctx context.Context, session, productID string) (*Cart, error) {
	return s.update(ctx, session, func(cart *Cart) error {
		for i := range cart.Items {
			if cart.Items[i].ID == productID {
				cart.Items[i].Checked = !cart.Items[i].Checked
				return nil
			}
		}
		return domain.ErrProductNotFound
	})
}

// Clear empties the cart
func (s *CartService) Clear(ctx context.Context, session string) error {
	if !sessionIDRegex.MatchString(session) {
		return fmt.Errorf("%w: invalid session id", domain.ErrInvalidRequest)
	}
	return s.cache.Delete(ctx, cartCachePrefix+session)
}

func (s *CartService) update(ctx context.Context, session string, fn func(*Cart) error) (*Cart, error) {
	if !sessionIDRegex.MatchString(session) {
		return nil, fmt.Errorf("%w: invalid session id", domain.ErrInvalidRequest)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	cart, err := s.load(ctx, session)
	if err != nil {
		return nil, err
	}
	if err := fn(cart); err != nil {
		return nil, err
	}

	data, err := json.Marshal(cart.Items)
	if err != nil {
		return nil, err
	}
	if err := s.cache.Set(ctx, cartCachePrefix+session, data, s.ttl); err != nil {
		return nil, fmt.Errorf("saving cart: %w", err)
	}
	return cart, nil
}

func (s *CartService) load(ctx context.Context, session string) (*Cart, error) {
	cart := &Cart{Session: session, Items: []domain.ShoppingItem{}}

	data, err := s.cache.Get(ctx, cartCachePrefix+session)
	if errors.Is(err, domain.ErrCacheMiss) {
		return cart, nil
	}
	if err != nil {
		return nil, fmt.Errorf("loading cart: %w", err)
	}

	if err := json.Unmarshal(data, &cart.Items); err != nil {
		return nil, fmt.Errorf("decoding cart: %w", err)
	}
	return cart, nil
}
