package cachemanager

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/require"
)

type docPath string

type meta struct {
	Canvas bool
	Tags   []string
}

func TestInMemoryCacheManager_GetExisting(t *testing.T) {
	cache := NewInMemoryCacheManager[docPath, meta]("metadata", DefaultExpiration, DefaultCleanupInterval)
	want := meta{Canvas: true, Tags: []string{"sketch"}}
	cache.Set(context.Background(), "drawing.md", want, DefaultExpiration)

	got, ok := cache.Get(context.Background(), "drawing.md")
	require.True(t, ok)
	require.Equal(t, want, got)
	require.Equal(t, 1, cache.Len())
}

func TestInMemoryCacheManager_Missing(t *testing.T) {
	cache := NewInMemoryCacheManager[string, string]("test", DefaultExpiration, DefaultCleanupInterval)

	got, ok := cache.Get(context.Background(), "nope")
	require.False(t, ok)
	require.Empty(t, got)
}

func TestInMemoryCacheManager_Expires(t *testing.T) {
	cache := NewInMemoryCacheManager[string, int]("test", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "k", 1, time.Millisecond)

	require.Eventually(t, func() bool {
		_, ok := cache.Get(context.Background(), "k")
		return !ok
	}, time.Second, 5*time.Millisecond)
}

func TestInMemoryCacheManager_GetWithRefresh(t *testing.T) {
	cache := NewInMemoryCacheManager[string, int]("test", DefaultExpiration, DefaultCleanupInterval)
	cache.Set(context.Background(), "k", 7, 50*time.Millisecond)

	got, ok := cache.GetWithRefresh(context.Background(), "k", time.Hour)
	require.True(t, ok)
	require.Equal(t, 7, got)

	time.Sleep(80 * time.Millisecond)
	got, ok = cache.Get(context.Background(), "k")
	require.True(t, ok, "refresh extended the TTL")
	require.Equal(t, 7, got)

	_, ok = cache.GetWithRefresh(context.Background(), "missing", time.Hour)
	require.False(t, ok)
}

func TestInMemoryCacheManager_DeleteAndFlush(t *testing.T) {
	cache := NewInMemoryCacheManager[string, int]("test", DefaultExpiration, DefaultCleanupInterval)
	ctx := context.Background()
	cache.Set(ctx, "a", 1, DefaultExpiration)
	cache.Set(ctx, "b", 2, DefaultExpiration)
	cache.Set(ctx, "c", 3, DefaultExpiration)

	cache.Delete(ctx, "a", "b")
	_, ok := cache.Get(ctx, "a")
	require.False(t, ok)
	require.Equal(t, 1, cache.Len())

	cache.Flush(ctx)
	require.Zero(t, cache.Len())
}
