package xjob

import (
	"context"
	"log/slog"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wisey/telekit/internal/telecore"
	"github.com/wisey/telekit/pkg/observability/xlog"
	"github.com/wisey/telekit/pkg/observability/xmeter"
)

// JobMetrics 任务生命周期指标注册表。
//
// 所有 Record* 方法均为旁路观测：不返回错误、不 panic，
// 仪表创建失败时内部已降级为 noop。方法对 nil 接收者安全。
type JobMetrics struct {
	service telecore.ServiceIdentity

	jobsCreated   metric.Int64Counter
	jobsCompleted metric.Int64Counter
	jobsFailed    metric.Int64Counter
	jobsCancelled metric.Int64Counter
	jobsExpired   metric.Int64Counter
	jobDuration   metric.Float64Histogram
	queueSize     metric.Int64UpDownCounter

	wsConnections   metric.Int64UpDownCounter
	wsSubscriptions metric.Int64UpDownCounter
	wsMessagesSent  metric.Int64Counter
	wsHeartbeats    metric.Int64Counter

	pollRequests metric.Int64Counter
	cacheHits    metric.Int64Counter
	cacheMisses  metric.Int64Counter

	idempotentRequests metric.Int64Counter
	idempotentHits     metric.Int64Counter
}

// guardJobMetrics 保证 InitJobMetrics 至多生效一次。
var guardJobMetrics telecore.Guard[JobMetrics]

// NewJobMetrics 创建任务指标注册表。
//
// 仪表从进程级 Meter 创建（见 xmeter.Init）；meter 可显式注入，
// 便于测试配合 ManualReader 断言样本。
func NewJobMetrics(serviceName string, opts ...MetricsOption) (*JobMetrics, error) {
	if serviceName == "" {
		return nil, ErrEmptyServiceName
	}

	options := &metricsOptions{}
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	meter := options.meter
	if meter == nil {
		meter = xmeter.Meter(serviceName + ".jobs")
	}

	m := &JobMetrics{service: telecore.ServiceIdentity(serviceName)}

	m.jobsCreated = telecore.Int64Counter(meter,
		"jobs_created_total", "Total number of jobs created", "{jobs}")
	m.jobsCompleted = telecore.Int64Counter(meter,
		"jobs_completed_total", "Total number of jobs completed successfully", "{jobs}")
	m.jobsFailed = telecore.Int64Counter(meter,
		"jobs_failed_total", "Total number of jobs that failed", "{jobs}")
	m.jobsCancelled = telecore.Int64Counter(meter,
		"jobs_cancelled_total", "Total number of jobs cancelled", "{jobs}")
	m.jobsExpired = telecore.Int64Counter(meter,
		"jobs_expired_total", "Total number of jobs that expired", "{jobs}")
	m.jobDuration = telecore.Float64Histogram(meter,
		"job_duration_seconds", "Duration of job execution", "s")
	m.queueSize = telecore.Int64UpDownCounter(meter,
		"job_queue_size", "Current number of jobs in queue", "{jobs}")

	m.wsConnections = telecore.Int64UpDownCounter(meter,
		"websocket_connections", "Current number of WebSocket connections", "{connections}")
	m.wsSubscriptions = telecore.Int64UpDownCounter(meter,
		"websocket_subscriptions", "Current number of job subscriptions", "{subscriptions}")
	m.wsMessagesSent = telecore.Int64Counter(meter,
		"websocket_messages_sent_total", "Total WebSocket messages sent", "{messages}")
	m.wsHeartbeats = telecore.Int64Counter(meter,
		"websocket_heartbeats_total", "Total heartbeat messages sent", "{heartbeats}")

	m.pollRequests = telecore.Int64Counter(meter,
		"job_poll_requests_total", "Total number of job polling requests", "{requests}")
	m.cacheHits = telecore.Int64Counter(meter,
		"job_cache_hits_total", "Total number of cache hits for job results", "{hits}")
	m.cacheMisses = telecore.Int64Counter(meter,
		"job_cache_misses_total", "Total number of cache misses for job results", "{misses}")

	m.idempotentRequests = telecore.Int64Counter(meter,
		"idempotent_requests_total", "Total number of idempotent requests", "{requests}")
	m.idempotentHits = telecore.Int64Counter(meter,
		"idempotent_hits_total", "Total number of idempotent key hits", "{hits}")

	xlog.Info(context.Background(), "xjob: job metrics initialized",
		slog.String("service", serviceName))
	return m, nil
}

// InitJobMetrics 初始化进程级任务指标注册表。
//
// 重复调用不是错误：返回首次创建的实例并记录告警。
func InitJobMetrics(serviceName string, opts ...MetricsOption) (*JobMetrics, error) {
	m, already, err := guardJobMetrics.Init(func() (*JobMetrics, error) {
		return NewJobMetrics(serviceName, opts...)
	})
	if err != nil {
		return nil, err
	}
	if already {
		xlog.Warn(context.Background(), "xjob: job metrics already initialized, ignoring",
			slog.String("service", serviceName))
	}
	return m, nil
}

// JobMetricsInstance 返回进程级注册表；未初始化时返回 nil。
//
// 绝不隐式构建：调用方要么先 InitJobMetrics，
// 要么接受 nil（所有记录方法对 nil 接收者安全）。
func JobMetricsInstance() *JobMetrics {
	return guardJobMetrics.Get()
}

// ServiceName 返回注册表的服务名。
func (m *JobMetrics) ServiceName() string {
	if m == nil {
		return ""
	}
	return m.service.String()
}

// =============================================================================
// 任务生命周期
// =============================================================================

// RecordJobCreated 记录一次任务创建，队列规模 +1。
func (m *JobMetrics) RecordJobCreated(ctx context.Context, jobType string) {
	if m == nil {
		return
	}
	m.jobsCreated.Add(ctx, 1, m.jobTypeAttrs(jobType))
	m.queueSize.Add(ctx, 1, m.serviceAttrs())
}

// RecordJobCompleted 记录一次任务成功完成，同时记录执行时长，队列规模 -1。
func (m *JobMetrics) RecordJobCompleted(ctx context.Context, jobType string, duration time.Duration) {
	if m == nil {
		return
	}
	attrs := m.jobTypeAttrs(jobType)
	m.jobsCompleted.Add(ctx, 1, attrs)
	m.jobDuration.Record(ctx, duration.Seconds(), attrs)
	m.queueSize.Add(ctx, -1, m.serviceAttrs())
}

// RecordJobFailed 记录一次任务失败，队列规模 -1。
func (m *JobMetrics) RecordJobFailed(ctx context.Context, jobType, errorCode string) {
	if m == nil {
		return
	}
	m.jobsFailed.Add(ctx, 1, metric.WithAttributes(
		attribute.String(telecore.LabelJobType, jobType),
		attribute.String(telecore.LabelErrorCode, errorCode),
		m.service.Attr(),
	))
	m.queueSize.Add(ctx, -1, m.serviceAttrs())
}

// RecordJobCancelled 记录一次任务取消，队列规模 -1。
func (m *JobMetrics) RecordJobCancelled(ctx context.Context, jobType string) {
	if m == nil {
		return
	}
	m.jobsCancelled.Add(ctx, 1, m.jobTypeAttrs(jobType))
	m.queueSize.Add(ctx, -1, m.serviceAttrs())
}

// RecordJobExpired 记录一次任务过期，队列规模 -1。
func (m *JobMetrics) RecordJobExpired(ctx context.Context, jobType string) {
	if m == nil {
		return
	}
	m.jobsExpired.Add(ctx, 1, m.jobTypeAttrs(jobType))
	m.queueSize.Add(ctx, -1, m.serviceAttrs())
}

// MeasureJobDuration 以作用域方式执行 fn 并记录任务执行指标。
//
// 成功路径等价于 RecordJobCompleted（完成计数、时长、队列 -1）。
// 失败路径只记录一次带 status=failed 标签的时长样本并原样返回错误；
// 失败/队列递减由终态判定方（通常在重试等处理完后）显式记录，
// 避免一次失败既被计时又被提前移出队列。
func (m *JobMetrics) MeasureJobDuration(ctx context.Context, jobType string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	err := fn(ctx)
	duration := time.Since(start)

	if err != nil {
		if m != nil {
			m.jobDuration.Record(ctx, duration.Seconds(), metric.WithAttributes(
				attribute.String(telecore.LabelJobType, jobType),
				attribute.String(telecore.LabelStatus, "failed"),
				m.service.Attr(),
			))
		}
		return err
	}

	m.RecordJobCompleted(ctx, jobType, duration)
	return nil
}

// =============================================================================
// WebSocket
// =============================================================================

// RecordWSConnection 记录 WebSocket 连接数变化（建立 +1，断开 -1）。
func (m *JobMetrics) RecordWSConnection(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.wsConnections.Add(ctx, delta, m.serviceAttrs())
}

// RecordWSSubscription 记录任务订阅数变化（订阅 +1，退订 -1）。
func (m *JobMetrics) RecordWSSubscription(ctx context.Context, delta int64) {
	if m == nil {
		return
	}
	m.wsSubscriptions.Add(ctx, delta, m.serviceAttrs())
}

// RecordWSMessage 记录一条已发送的 WebSocket 消息。
func (m *JobMetrics) RecordWSMessage(ctx context.Context, messageType string) {
	if m == nil {
		return
	}
	m.wsMessagesSent.Add(ctx, 1, metric.WithAttributes(
		attribute.String(telecore.LabelType, messageType),
		m.service.Attr(),
	))
}

// RecordWSHeartbeat 记录一次心跳消息。
func (m *JobMetrics) RecordWSHeartbeat(ctx context.Context) {
	if m == nil {
		return
	}
	m.wsHeartbeats.Add(ctx, 1, m.serviceAttrs())
}

// =============================================================================
// 轮询、缓存与幂等
// =============================================================================

// RecordPollRequest 记录一次任务状态轮询请求。
func (m *JobMetrics) RecordPollRequest(ctx context.Context, jobType string) {
	if m == nil {
		return
	}
	m.pollRequests.Add(ctx, 1, m.jobTypeAttrs(jobType))
}

// RecordCacheHit 记录一次结果缓存命中。
func (m *JobMetrics) RecordCacheHit(ctx context.Context, cacheType string) {
	if m == nil {
		return
	}
	m.cacheHits.Add(ctx, 1, m.cacheTypeAttrs(cacheType))
}

// RecordCacheMiss 记录一次结果缓存未命中。
func (m *JobMetrics) RecordCacheMiss(ctx context.Context, cacheType string) {
	if m == nil {
		return
	}
	m.cacheMisses.Add(ctx, 1, m.cacheTypeAttrs(cacheType))
}

// RecordIdempotentRequest 记录一次携带幂等键的请求。
func (m *JobMetrics) RecordIdempotentRequest(ctx context.Context) {
	if m == nil {
		return
	}
	m.idempotentRequests.Add(ctx, 1, m.serviceAttrs())
}

// RecordIdempotentHit 记录一次幂等键命中（重复请求被去重）。
func (m *JobMetrics) RecordIdempotentHit(ctx context.Context) {
	if m == nil {
		return
	}
	m.idempotentHits.Add(ctx, 1, m.serviceAttrs())
}

// =============================================================================
// 标签辅助
// =============================================================================

func (m *JobMetrics) serviceAttrs() metric.MeasurementOption {
	return metric.WithAttributes(m.service.Attr())
}

func (m *JobMetrics) jobTypeAttrs(jobType string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String(telecore.LabelJobType, jobType),
		m.service.Attr(),
	)
}

func (m *JobMetrics) cacheTypeAttrs(cacheType string) metric.MeasurementOption {
	if cacheType == "" {
		cacheType = "result"
	}
	return metric.WithAttributes(
		attribute.String(telecore.LabelType, cacheType),
		m.service.Attr(),
	)
}

// =============================================================================
// 选项
// =============================================================================

type metricsOptions struct {
	meter metric.Meter
}

// MetricsOption 定义指标注册表的配置选项。
type MetricsOption func(*metricsOptions)

// WithMeter 注入外部 Meter，主要用于测试。
func WithMeter(meter metric.Meter) MetricsOption {
	return func(o *metricsOptions) {
		if meter != nil {
			o.meter = meter
		}
	}
}
