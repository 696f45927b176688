package xjob_test

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/wisey/telekit/pkg/jobs/xjob"
)

type jobResult struct {
	Status string
	Output string
}

func TestResultCache_HitAndMiss(t *testing.T) {
	m, reader := newTestMetrics(t, "cache-service")

	cache, err := xjob.NewResultCache[jobResult](m, xjob.WithCacheSize(8))
	require.NoError(t, err)

	ctx := context.Background()

	_, ok := cache.Get(ctx, "job-1")
	assert.False(t, ok)

	cache.Set("job-1", jobResult{Status: "done", Output: "s3://out/1"})

	got, ok := cache.Get(ctx, "job-1")
	require.True(t, ok)
	assert.Equal(t, "done", got.Status)

	hits, found := collectMetric(t, reader, "job_cache_hits_total")
	require.True(t, found)
	assert.Equal(t, int64(1), sumTotal(t, hits))

	misses, found := collectMetric(t, reader, "job_cache_misses_total")
	require.True(t, found)
	assert.Equal(t, int64(1), sumTotal(t, misses))
}

func TestResultCache_Eviction(t *testing.T) {
	cache, err := xjob.NewResultCache[int](nil, xjob.WithCacheSize(2))
	require.NoError(t, err)

	cache.Set("a", 1)
	cache.Set("b", 2)
	evicted := cache.Set("c", 3)
	assert.True(t, evicted)
	assert.Equal(t, 2, cache.Len())

	// 最久未用的 a 被淘汰
	_, ok := cache.Peek("a")
	assert.False(t, ok)
}

func TestResultCache_PeekDoesNotReport(t *testing.T) {
	m, reader := newTestMetrics(t, "cache-service")

	cache, err := xjob.NewResultCache[int](m)
	require.NoError(t, err)
	cache.Set("job-1", 42)

	_, ok := cache.Peek("job-1")
	assert.True(t, ok)
	_, ok = cache.Peek("job-2")
	assert.False(t, ok)

	_, found := collectMetric(t, reader, "job_cache_hits_total")
	assert.False(t, found)
	_, found = collectMetric(t, reader, "job_cache_misses_total")
	assert.False(t, found)
}

func TestResultCache_RemoveAndPurge(t *testing.T) {
	cache, err := xjob.NewResultCache[int](nil)
	require.NoError(t, err)

	cache.Set("a", 1)
	cache.Set("b", 2)

	cache.Remove("a")
	assert.Equal(t, 1, cache.Len())

	cache.Purge()
	assert.Zero(t, cache.Len())
}

func TestResultCache_NilMetrics(t *testing.T) {
	cache, err := xjob.NewResultCache[string](nil)
	require.NoError(t, err)

	// metrics 为 nil 时缓存功能不受影响
	cache.Set("job-1", "done")
	got, ok := cache.Get(context.Background(), "job-1")
	require.True(t, ok)
	assert.Equal(t, "done", got)
}
