package xjob

import (
	"context"

	lru "github.com/hashicorp/golang-lru/v2"
)

// defaultCacheSize 结果缓存的默认容量。
const defaultCacheSize = 1024

// ResultCache 任务结果缓存。
//
// 基于 LRU 淘汰，命中与未命中自动上报 job_cache_hits_total /
// job_cache_misses_total。metrics 为 nil 时缓存功能不受影响，只是不上报。
type ResultCache[V any] struct {
	cache     *lru.Cache[string, V]
	metrics   *JobMetrics
	cacheType string
}

// NewResultCache 创建结果缓存。
// size <= 0 时使用默认容量。
func NewResultCache[V any](metrics *JobMetrics, opts ...CacheOption) (*ResultCache[V], error) {
	options := &cacheOptions{
		size:      defaultCacheSize,
		cacheType: "result",
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	cache, err := lru.New[string, V](options.size)
	if err != nil {
		return nil, err
	}

	return &ResultCache[V]{
		cache:     cache,
		metrics:   metrics,
		cacheType: options.cacheType,
	}, nil
}

// Get 查询任务结果并上报命中情况。
func (c *ResultCache[V]) Get(ctx context.Context, jobID string) (V, bool) {
	v, ok := c.cache.Get(jobID)
	if ok {
		c.metrics.RecordCacheHit(ctx, c.cacheType)
	} else {
		c.metrics.RecordCacheMiss(ctx, c.cacheType)
	}
	return v, ok
}

// Peek 查询任务结果但不上报、不影响 LRU 顺序。
func (c *ResultCache[V]) Peek(jobID string) (V, bool) {
	return c.cache.Peek(jobID)
}

// Set 写入任务结果。返回是否发生了淘汰。
func (c *ResultCache[V]) Set(jobID string, result V) bool {
	return c.cache.Add(jobID, result)
}

// Remove 删除任务结果。
func (c *ResultCache[V]) Remove(jobID string) {
	c.cache.Remove(jobID)
}

// Len 返回当前缓存条目数。
func (c *ResultCache[V]) Len() int {
	return c.cache.Len()
}

// Purge 清空缓存。
func (c *ResultCache[V]) Purge() {
	c.cache.Purge()
}

// =============================================================================
// 选项
// =============================================================================

type cacheOptions struct {
	size      int
	cacheType string
}

// CacheOption 定义结果缓存的配置选项。
type CacheOption func(*cacheOptions)

// WithCacheSize 设置缓存容量。
func WithCacheSize(size int) CacheOption {
	return func(o *cacheOptions) {
		if size > 0 {
			o.size = size
		}
	}
}

// WithCacheType 设置上报时的 type 标签值，默认 "result"。
func WithCacheType(cacheType string) CacheOption {
	return func(o *cacheOptions) {
		if cacheType != "" {
			o.cacheType = cacheType
		}
	}
}
