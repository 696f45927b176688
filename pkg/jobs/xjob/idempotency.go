package xjob

import (
	"context"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/hashicorp/golang-lru/v2/expirable"
)

// 幂等键的默认保留参数。
const (
	defaultIdempotencySize = 4096
	defaultIdempotencyTTL  = 24 * time.Hour
)

// IdempotencyGuard 幂等键去重器。
//
// 客户端携带幂等键重复提交时返回首次创建的任务 ID，
// 请求与命中均上报指标。键超过 TTL 或容量上限后被淘汰，
// 之后的同键请求视为新请求。
type IdempotencyGuard struct {
	// mu 使 Claim 的查找与登记成为一个原子步骤。
	// LRU 自身的锁只覆盖单次调用，不足以保证同键并发认领只有一个赢家。
	mu      sync.Mutex
	seen    *expirable.LRU[string, string]
	metrics *JobMetrics
}

// NewIdempotencyGuard 创建幂等键去重器。
func NewIdempotencyGuard(metrics *JobMetrics, opts ...IdempotencyOption) *IdempotencyGuard {
	options := &idempotencyOptions{
		size: defaultIdempotencySize,
		ttl:  defaultIdempotencyTTL,
	}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	return &IdempotencyGuard{
		seen:    expirable.NewLRU[string, string](options.size, nil, options.ttl),
		metrics: metrics,
	}
}

// NewKey 生成一个新的幂等键。
func NewKey() string {
	return uuid.NewString()
}

// Claim 认领幂等键。
//
// 首次出现的键登记 jobID 并返回 (jobID, false)；
// 重复出现的键返回首次登记的任务 ID 和 true，并上报一次命中。
// 每次调用都上报一次幂等请求。
func (g *IdempotencyGuard) Claim(ctx context.Context, key, jobID string) (string, bool, error) {
	if key == "" {
		return "", false, ErrEmptyKey
	}

	g.metrics.RecordIdempotentRequest(ctx)

	g.mu.Lock()
	existing, ok := g.seen.Get(key)
	if !ok {
		g.seen.Add(key, jobID)
	}
	g.mu.Unlock()

	if ok {
		g.metrics.RecordIdempotentHit(ctx)
		return existing, true, nil
	}
	return jobID, false, nil
}

// Lookup 查询幂等键对应的任务 ID，不上报指标、不登记。
func (g *IdempotencyGuard) Lookup(key string) (string, bool) {
	return g.seen.Peek(key)
}

// Forget 移除幂等键（任务结果被显式作废时使用）。
func (g *IdempotencyGuard) Forget(key string) {
	g.seen.Remove(key)
}

// =============================================================================
// 选项
// =============================================================================

type idempotencyOptions struct {
	size int
	ttl  time.Duration
}

// IdempotencyOption 定义幂等键去重器的配置选项。
type IdempotencyOption func(*idempotencyOptions)

// WithIdempotencySize 设置保留的幂等键数量上限。
func WithIdempotencySize(size int) IdempotencyOption {
	return func(o *idempotencyOptions) {
		if size > 0 {
			o.size = size
		}
	}
}

// WithIdempotencyTTL 设置幂等键的保留时长。
func WithIdempotencyTTL(ttl time.Duration) IdempotencyOption {
	return func(o *idempotencyOptions) {
		if ttl > 0 {
			o.ttl = ttl
		}
	}
}
