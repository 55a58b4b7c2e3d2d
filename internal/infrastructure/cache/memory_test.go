package cache

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/superpoupe/backend/internal/domain"
)

func TestMemoryCache_SetAndGet(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()
	ctx := context.Background()

	tests := []struct {
		name  string
		key   string
		value []byte
		ttl   time.Duration
	}{
		{name: "json page", key: "catalog:lidl::leite", value: []byte(`[{"id":"lidl-1"}]`), ttl: time.Minute},
		{name: "empty value", key: "catalog:::", value: []byte{}, ttl: time.Minute},
		{name: "cart", key: "cart:abc", value: []byte(`[]`), ttl: 24 * time.Hour},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if err := cache.Set(ctx, tt.key, tt.value, tt.ttl); err != nil {
				t.Fatalf("Set() error = %v", err)
			}

			got, err := cache.Get(ctx, tt.key)
			if err != nil {
				t.Fatalf("Get() error = %v", err)
			}
			if !bytes.Equal(got, tt.value) {
				t.Errorf("Get() = %q, want %q", got, tt.value)
			}
		})
	}
}

func TestMemoryCache_Expiration(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()
	ctx := context.Background()

	now := time.Date(2024, 1, 1, 12, 0, 0, 0, time.UTC)
	cache.now = func() time.Time { return now }

	if err := cache.Set(ctx, "short", []byte("v"), time.Second); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	now = now.Add(2 * time.Second)

	if _, err := cache.Get(ctx, "short"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() after expiration error = %v, want %v", err, domain.ErrCacheMiss)
	}

	cache.removeExpired()
	if size := cache.Size(); size != 0 {
		t.Errorf("Size() = %d after removeExpired, want 0", size)
	}
}

func TestMemoryCache_ValuesAreCopied(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()
	ctx := context.Background()

	value := []byte("original")
	if err := cache.Set(ctx, "k", value, time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	value[0] = 'X'

	got, _ := cache.Get(ctx, "k")
	got[1] = 'Y'

	again, _ := cache.Get(ctx, "k")
	if string(again) != "original" {
		t.Errorf("stored value was mutated: %q", again)
	}
}

func TestMemoryCache_Get_CacheMiss(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()

	_, err := cache.Get(context.Background(), "non-existent-key")
	if !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_Delete(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()
	ctx := context.Background()

	key := "delete-test"
	if err := cache.Set(ctx, key, []byte("value"), time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if err := cache.Delete(ctx, key); err != nil {
		t.Errorf("Delete() error = %v", err)
	}

	if _, err := cache.Get(ctx, key); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("Get() after delete error = %v, want %v", err, domain.ErrCacheMiss)
	}
}

func TestMemoryCache_DeletePrefix(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()
	ctx := context.Background()

	for _, key := range []string{"catalog:a", "catalog:b", "cart:s1", "catalogue"} {
		if err := cache.Set(ctx, key, []byte("v"), time.Minute); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	if err := cache.DeletePrefix(ctx, "catalog:"); err != nil {
		t.Fatalf("DeletePrefix() error = %v", err)
	}

	if size := cache.Size(); size != 2 {
		t.Errorf("Size() = %d, want 2", size)
	}
	if _, err := cache.Get(ctx, "cart:s1"); err != nil {
		t.Errorf("cart entry should survive: %v", err)
	}
	if _, err := cache.Get(ctx, "catalogue"); err != nil {
		t.Errorf("key without the full prefix should survive: %v", err)
	}
}

func TestMemoryCache_Eviction(t *testing.T) {
	cache := NewMemoryCache(3)
	defer cache.Close()
	ctx := context.Background()

	ttls := map[string]time.Duration{"a": 3 * time.Minute, "b": time.Minute, "c": 2 * time.Minute}
	for _, key := range []string{"a", "b", "c"} {
		if err := cache.Set(ctx, key, []byte(key), ttls[key]); err != nil {
			t.Fatalf("Set() error = %v", err)
		}
	}

	// overwriting an existing key never evicts
	if err := cache.Set(ctx, "a", []byte("a2"), 3*time.Minute); err != nil {
		t.Fatalf("Set() error = %v", err)
	}
	if size := cache.Size(); size != 3 {
		t.Fatalf("Size() = %d, want 3", size)
	}

	if err := cache.Set(ctx, "d", []byte("d"), time.Hour); err != nil {
		t.Fatalf("Set() error = %v", err)
	}

	if _, err := cache.Get(ctx, "b"); !errors.Is(err, domain.ErrCacheMiss) {
		t.Errorf("entry closest to expiry should be evicted, got %v", err)
	}
	if size := cache.Size(); size != 3 {
		t.Errorf("Size() = %d, want 3", size)
	}
}

func TestMemoryCache_Concurrent(t *testing.T) {
	cache := NewMemoryCache(0)
	defer cache.Close()
	ctx := context.Background()

	done := make(chan bool)
	for i := 0; i < 10; i++ {
		go func(id int) {
			key := fmt.Sprintf("k%d", id)
			if err := cache.Set(ctx, key, []byte(key), time.Minute); err != nil {
				t.Errorf("Concurrent Set() error = %v", err)
			}
			if _, err := cache.Get(ctx, key); err != nil {
				t.Errorf("Concurrent Get() error = %v", err)
			}
			if err := cache.DeletePrefix(ctx, "none:"); err != nil {
				t.Errorf("Concurrent DeletePrefix() error = %v", err)
			}
			done <- true
		}(i)
	}

	for i := 0; i < 10; i++ {
		<-done
	}
}

func TestMemoryCache_CloseIsIdempotent(t *testing.T) {
	cache := NewMemoryCache(0)
	if err := cache.Close(); err != nil {
		t.Fatalf("Close() error = %v", err)
	}
	if err := cache.Close(); err != nil {
		t.Errorf("second Close() error = %v", err)
	}
}
