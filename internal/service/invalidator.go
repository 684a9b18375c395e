package service

import (
	"context"
	"log/slog"
	"slices"
	"time"

	"github.com/utafrali/catalog/internal/cache"
)

// Cache is the key-value store behind product reads.
type Cache interface {
	Get(ctx context.Context, key string) ([]byte, error)
	Set(ctx context.Context, key string, value []byte, ttl time.Duration) error
	Delete(ctx context.Context, keys ...string) error
}

// CacheInvalidator evicts cached product entries by slug.
type CacheInvalidator struct {
	cache   Cache
	metrics *Metrics
	logger  *slog.Logger
}

// NewCacheInvalidator creates a cache invalidator. A nil c disables it.
func NewCacheInvalidator(c Cache, metrics *Metrics, logger *slog.Logger) *CacheInvalidator {
	return &CacheInvalidator{cache: c, metrics: metrics, logger: logger}
}

// Invalidate deletes the product entries of slugs in one round trip. The
// error is logged and counted before it is returned; callers treat it as a
// degraded result.
func (i *CacheInvalidator) Invalidate(ctx context.Context, slugs ...string) error {
	if i.cache == nil {
		return nil
	}

	keys := make([]string, 0, len(slugs))
	for _, s := range slugs {
		if s == "" {
			continue
		}
		if k := cache.Key("product", s); !slices.Contains(keys, k) {
			keys = append(keys, k)
		}
	}
	if len(keys) == 0 {
		return nil
	}

	if err := i.cache.Delete(ctx, keys...); err != nil {
		i.metrics.cacheInvalidationFailures.Inc()
		i.logger.ErrorContext(ctx, "failed to invalidate cache",
			slog.Any("keys", keys),
			slog.String("error", err.Error()),
		)
		return err
	}
	return nil
}
