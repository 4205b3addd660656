// Package cache provides a Redis-backed scope cache shared by all
// handler instances.
package cache

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog"

	"github.com/mailfold/mailfold/internal/ingest"
	"github.com/mailfold/mailfold/internal/models"
)

var _ ingest.ScopeCache = (*ScopeCache)(nil)

// ScopeCache caches resolved scopes in Redis. Misses and Redis errors
// both fall through to the database, so a broken cache degrades to
// slower lookups rather than failures.
type ScopeCache struct {
	client *redis.Client
	ttl    time.Duration
	logger zerolog.Logger
}

// NewScopeCache connects to Redis and returns a scope cache.
func NewScopeCache(ctx context.Context, redisURL string, ttl time.Duration, logger zerolog.Logger) (*ScopeCache, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parsing redis url: %w", err)
	}

	client := redis.NewClient(opts)

	if err := client.Ping(ctx).Err(); err != nil {
		return nil, fmt.Errorf("pinging redis: %w", err)
	}

	return &ScopeCache{client: client, ttl: ttl, logger: logger}, nil
}

// Close closes the Redis connection.
func (c *ScopeCache) Close() error {
	return c.client.Close()
}

// Ping checks the Redis connection.
func (c *ScopeCache) Ping(ctx context.Context) error {
	return c.client.Ping(ctx).Err()
}

// scopeKey returns the cache key for a recipient address.
func scopeKey(address string) string {
	return "scope:" + strings.ToLower(strings.TrimSpace(address))
}

// Get looks up a cached scope for a recipient address.
func (c *ScopeCache) Get(ctx context.Context, address string) (*models.Scope, bool) {
	data, err := c.client.Get(ctx, scopeKey(address)).Bytes()
	if err != nil {
		if err != redis.Nil {
			c.logger.Warn().Err(err).Str("address", address).Msg("scope cache read failed")
		}
		return nil, false
	}

	var scope models.Scope
	if err := json.Unmarshal(data, &scope); err != nil {
		c.logger.Warn().Err(err).Str("address", address).Msg("scope cache entry unreadable")
		return nil, false
	}

	return &scope, true
}

// Set stores a resolved scope. Failures are logged and ignored.
func (c *ScopeCache) Set(ctx context.Context, address string, scope *models.Scope) {
	data, err := json.Marshal(scope)
	if err != nil {
		c.logger.Warn().Err(err).Str("address", address).Msg("scope cache encode failed")
		return
	}

	if err := c.client.Set(ctx, scopeKey(address), data, c.ttl).Err(); err != nil {
		c.logger.Warn().Err(err).Str("address", address).Msg("scope cache write failed")
	}
}
