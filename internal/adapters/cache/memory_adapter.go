package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"
	"github.com/zatekoja/geyser-noncompliance/internal/domain/providers"
)

// MemoryAdapter is an in-process CacheProvider used when Redis is unavailable.
// Reads never extend an entry's TTL; only Set does, matching the Redis adapter.
type MemoryAdapter struct {
	items *ttlcache.Cache[string, []byte]
}

// NewMemoryAdapter creates an empty in-process cache
func NewMemoryAdapter() *MemoryAdapter {
	return &MemoryAdapter{
		items: ttlcache.New[string, []byte](
			ttlcache.WithDisableTouchOnHit[string, []byte](),
		),
	}
}

var _ providers.CacheProvider = (*MemoryAdapter)(nil)

// Get retrieves a copy of the value
func (a *MemoryAdapter) Get(ctx context.Context, key string) ([]byte, error) {
	item := a.items.Get(key)
	if item == nil || item.IsExpired() {
		return nil, providers.ErrCacheMiss
	}
	value := item.Value()
	out := make([]byte, len(value))
	copy(out, value)
	return out, nil
}

// Set stores a copy of value. A non-positive expiration never expires.
func (a *MemoryAdapter) Set(ctx context.Context, key string, value []byte, expirationSeconds int) error {
	stored := make([]byte, len(value))
	copy(stored, value)

	ttl := ttlcache.NoTTL
	if expirationSeconds > 0 {
		ttl = time.Duration(expirationSeconds) * time.Second
	}
	a.items.Set(key, stored, ttl)
	return nil
}

// Delete removes a value from cache
func (a *MemoryAdapter) Delete(ctx context.Context, key string) error {
	a.items.Delete(key)
	return nil
}

// Exists checks if a live key exists
func (a *MemoryAdapter) Exists(ctx context.Context, key string) (bool, error) {
	item := a.items.Get(key)
	return item != nil && !item.IsExpired(), nil
}

// Sweep drops every expired entry and reports how many were removed
func (a *MemoryAdapter) Sweep() int {
	before := a.items.Len()
	a.items.DeleteExpired()
	return before - a.items.Len()
}

// Run evicts expired entries as they fall due until ctx is done
func (a *MemoryAdapter) Run(ctx context.Context) {
	go a.items.Start()
	<-ctx.Done()
	a.items.Stop()
}
