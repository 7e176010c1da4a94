package cachemanager

import (
	"context"
	"time"
)

// ReadThroughCache loads missing entries with fn and caches the result.
// Errors are never cached.
type ReadThroughCache[K ~string, V any] struct {
	cache CacheManager[K, V]
	fn    func(ctx context.Context, key K) (V, error)
	ttl   time.Duration
	skip  bool
}

// NewReadThroughCache wraps cache. With skip set every Get calls fn.
func NewReadThroughCache[K ~string, V any](
	cache CacheManager[K, V],
	fn func(ctx context.Context, key K) (V, error),
	ttl time.Duration,
	skip bool,
) *ReadThroughCache[K, V] {
	return &ReadThroughCache[K, V]{cache: cache, fn: fn, ttl: ttl, skip: skip}
}

// Get returns the cached value or loads it.
func (r *ReadThroughCache[K, V]) Get(ctx context.Context, key K) (V, error) {
	if r.skip {
		return r.fn(ctx, key)
	}
	if value, ok := r.cache.Get(ctx, key); ok {
		return value, nil
	}
	return r.load(ctx, key)
}

// GetWithRefresh is Get, extending the TTL of a hit.
func (r *ReadThroughCache[K, V]) GetWithRefresh(ctx context.Context, key K) (V, error) {
	if r.skip {
		return r.fn(ctx, key)
	}
	if value, ok := r.cache.GetWithRefresh(ctx, key, r.ttl); ok {
		return value, nil
	}
	return r.load(ctx, key)
}

// Invalidate drops keys so the next Get reloads them.
func (r *ReadThroughCache[K, V]) Invalidate(ctx context.Context, keys ...K) {
	r.cache.Delete(ctx, keys...)
}

func (r *ReadThroughCache[K, V]) load(ctx context.Context, key K) (V, error) {
	value, err := r.fn(ctx, key)
	if err != nil {
		return value, err
	}
	r.cache.Set(ctx, key, value, r.ttl)
	return value, nil
}
