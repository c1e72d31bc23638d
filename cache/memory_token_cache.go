package cache

import (
	"context"
	"time"

	"github.com/jellydator/ttlcache/v3"

	"go.pilab.hu/gatekeeper/domain"
)

// MemoryTokenCache implements TokenCache using ttlcache.
type MemoryTokenCache struct {
	cache      *ttlcache.Cache[string, *domain.Token]
	defaultTTL time.Duration
}

// NewMemoryTokenCache creates an in-memory token cache with automatic
// cleanup. defaultTTL bounds how long records for non-expiring tokens
// stay cached.
func NewMemoryTokenCache(defaultTTL time.Duration) *MemoryTokenCache {
	cache := ttlcache.New(
		ttlcache.WithTTL[string, *domain.Token](defaultTTL),
		ttlcache.WithDisableTouchOnHit[string, *domain.Token](),
	)

	// Start the cleanup process
	go cache.Start()

	return &MemoryTokenCache{
		cache:      cache,
		defaultTTL: defaultTTL,
	}
}

// Set implements TokenCache.Set.
func (s *MemoryTokenCache) Set(_ context.Context, token *domain.Token) error {
	ttl := s.defaultTTL
	if !token.ExpiresAt.IsZero() {
		remaining := time.Until(token.ExpiresAt)
		if remaining <= 0 {
			return nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}
	s.cache.Set(token.ID, token, ttl)
	return nil
}

// Get implements TokenCache.Get.
func (s *MemoryTokenCache) Get(_ context.Context, id string) (*domain.Token, error) {
	item := s.cache.Get(id)
	if item == nil {
		return nil, ErrNotCached
	}
	return item.Value(), nil
}

// Delete removes a token record from the cache.
func (s *MemoryTokenCache) Delete(_ context.Context, id string) error {
	s.cache.Delete(id)
	return nil
}

// Clear removes all cached records.
func (s *MemoryTokenCache) Clear(_ context.Context) error {
	s.cache.DeleteAll()
	return nil
}

// Close stops the cleanup goroutine.
func (s *MemoryTokenCache) Close() error {
	s.cache.Stop()
	return nil
}
