// Package cachemanager provides typed TTL caches and a read-through wrapper.
// Storage uses it to memoize document metadata between file events.
package cachemanager

import (
	"context"
	"time"
)

// CacheManager is a typed cache with per-entry TTLs.
type CacheManager[K ~string, V any] interface {
	Get(ctx context.Context, key K) (V, bool)
	GetWithRefresh(ctx context.Context, key K, ttl time.Duration) (V, bool)
	Set(ctx context.Context, key K, value V, ttl time.Duration)
	Delete(ctx context.Context, keys ...K)
	Flush(ctx context.Context)
	Len() int
}
