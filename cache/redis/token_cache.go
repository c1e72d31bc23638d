// Package redis implements the token cache on a shared Redis instance
// for multi-replica deployments.
package redis

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/redis/go-redis/v9"

	"go.pilab.hu/gatekeeper/cache"
	"go.pilab.hu/gatekeeper/domain"
)

// TokenCache implements cache.TokenCache using Redis.
type TokenCache struct {
	client     *redis.Client
	prefix     string
	defaultTTL time.Duration
}

// NewTokenCache creates a new [TokenCache] instance. prefix namespaces
// the keys so several deployments can share one Redis.
func NewTokenCache(client *redis.Client, prefix string, defaultTTL time.Duration) *TokenCache {
	return &TokenCache{
		client:     client,
		prefix:     prefix,
		defaultTTL: defaultTTL,
	}
}

func (r *TokenCache) redisKey(id string) string {
	return fmt.Sprintf("%s:token:%s", r.prefix, id)
}

// Set stores a token record with an expiry capped to the token's own.
func (r *TokenCache) Set(ctx context.Context, token *domain.Token) error {
	payload, err := json.Marshal(token)
	if err != nil {
		return fmt.Errorf("failed to marshal token record: %w", err)
	}

	ttl := r.defaultTTL
	if !token.ExpiresAt.IsZero() {
		remaining := time.Until(token.ExpiresAt)
		if remaining <= 0 {
			return nil
		}
		if remaining < ttl {
			ttl = remaining
		}
	}

	if err := r.client.Set(ctx, r.redisKey(token.ID), payload, ttl).Err(); err != nil {
		return fmt.Errorf("failed to set token in Redis: %w", err)
	}
	return nil
}

// Get retrieves a token record, or cache.ErrNotCached.
func (r *TokenCache) Get(ctx context.Context, id string) (*domain.Token, error) {
	payload, err := r.client.Get(ctx, r.redisKey(id)).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, cache.ErrNotCached
	}
	if err != nil {
		return nil, fmt.Errorf("failed to get token from Redis: %w", err)
	}

	var token domain.Token
	if err := json.Unmarshal(payload, &token); err != nil {
		return nil, fmt.Errorf("failed to unmarshal token record: %w", err)
	}
	return &token, nil
}

// Delete removes a token record.
func (r *TokenCache) Delete(ctx context.Context, id string) error {
	return r.client.Del(ctx, r.redisKey(id)).Err()
}

// Clear removes every record under this cache's prefix.
func (r *TokenCache) Clear(ctx context.Context) error {
	iter := r.client.Scan(ctx, 0, r.redisKey("*"), 0).Iterator()
	for iter.Next(ctx) {
		if err := r.client.Del(ctx, iter.Val()).Err(); err != nil {
			return err
		}
	}
	return iter.Err()
}
