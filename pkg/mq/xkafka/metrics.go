package xkafka

import (
	"context"
	"log/slog"
	"sync"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"

	"github.com/wisey/telekit/internal/telecore"
	"github.com/wisey/telekit/pkg/observability/xlog"
	"github.com/wisey/telekit/pkg/observability/xmeter"
)

// ProducerMetrics 生产者指标注册表。
//
// 所有 Record*/Set* 方法均为旁路观测：不返回错误、不 panic，
// 仪表创建失败时内部已降级为 noop。方法对 nil 接收者安全，
// 未初始化的调用点无需判空。
type ProducerMetrics struct {
	service telecore.ServiceIdentity

	messagesSent   metric.Int64Counter
	messagesFailed metric.Int64Counter
	reconnections  metric.Int64Counter
	sendDuration   metric.Float64Histogram
	retryAttempts  metric.Float64Histogram
	producerHealth metric.Int64UpDownCounter

	// 健康状态是水平量而非事件量。UpDownCounter 只能累加增量，
	// 因此记录上一次汇报的状态，仅在真实跃迁时发出 ±1，
	// 保证聚合值始终落在 {0, 1}。
	healthMu    sync.Mutex
	healthKnown bool
	healthy     bool
}

// guardProducerMetrics 保证 InitProducerMetrics 至多生效一次。
var guardProducerMetrics telecore.Guard[ProducerMetrics]

// NewProducerMetrics 创建生产者指标注册表。
//
// 仪表从进程级 Meter 创建（见 xmeter.Init）；meter 可显式注入，
// 便于测试配合 ManualReader 断言样本。
func NewProducerMetrics(serviceName string, opts ...MetricsOption) (*ProducerMetrics, error) {
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
		meter = xmeter.Meter(serviceName)
	}

	m := &ProducerMetrics{service: telecore.ServiceIdentity(serviceName)}

	m.messagesSent = telecore.Int64Counter(meter,
		"kafka_messages_sent_total",
		"Total number of messages sent to Kafka",
		"{messages}")
	m.messagesFailed = telecore.Int64Counter(meter,
		"kafka_messages_failed_total",
		"Total number of failed message sends",
		"{messages}")
	m.reconnections = telecore.Int64Counter(meter,
		"kafka_producer_reconnections_total",
		"Total number of producer reconnections",
		"{reconnections}")
	m.sendDuration = telecore.Float64Histogram(meter,
		"kafka_send_duration_seconds",
		"Duration of Kafka send operations",
		"s")
	m.retryAttempts = telecore.Float64Histogram(meter,
		"kafka_retry_attempts",
		"Number of retry attempts per message",
		"{attempts}")
	m.producerHealth = telecore.Int64UpDownCounter(meter,
		"kafka_producer_health",
		"Producer health status (1=healthy, 0=unhealthy)",
		"{status}")

	xlog.Info(context.Background(), "xkafka: producer metrics initialized",
		slog.String("service", serviceName))
	return m, nil
}

// InitProducerMetrics 初始化进程级生产者指标注册表。
//
// 重复调用不是错误：返回首次创建的实例并记录告警。
func InitProducerMetrics(serviceName string, opts ...MetricsOption) (*ProducerMetrics, error) {
	m, already, err := guardProducerMetrics.Init(func() (*ProducerMetrics, error) {
		return NewProducerMetrics(serviceName, opts...)
	})
	if err != nil {
		return nil, err
	}
	if already {
		xlog.Warn(context.Background(), "xkafka: producer metrics already initialized, ignoring",
			slog.String("service", serviceName))
	}
	return m, nil
}

// ProducerMetricsInstance 返回进程级注册表；未初始化时返回 nil。
//
// 绝不隐式构建：调用方要么先 InitProducerMetrics，
// 要么接受 nil（所有记录方法对 nil 接收者安全）。
func ProducerMetricsInstance() *ProducerMetrics {
	return guardProducerMetrics.Get()
}

// ServiceName 返回注册表的服务名。
func (m *ProducerMetrics) ServiceName() string {
	if m == nil {
		return ""
	}
	return m.service.String()
}

// RecordMessageSent 记录一次发送结果。
//
// success 为 true 计入 kafka_messages_sent_total，
// 否则计入 kafka_messages_failed_total。
func (m *ProducerMetrics) RecordMessageSent(ctx context.Context, topic string, success bool) {
	if m == nil {
		return
	}
	attrs := m.topicAttrs(topic)
	if success {
		m.messagesSent.Add(ctx, 1, attrs)
	} else {
		m.messagesFailed.Add(ctx, 1, attrs)
	}
}

// RecordReconnection 记录一次生产者重连。
func (m *ProducerMetrics) RecordReconnection(ctx context.Context) {
	if m == nil {
		return
	}
	m.reconnections.Add(ctx, 1, metric.WithAttributes(m.service.Attr()))
}

// RecordSendDuration 记录一次发送时延（秒）。
func (m *ProducerMetrics) RecordSendDuration(ctx context.Context, topic string, duration time.Duration) {
	if m == nil {
		return
	}
	m.sendDuration.Record(ctx, duration.Seconds(), m.topicAttrs(topic))
}

// RecordRetryAttempts 记录一条消息的重试次数。
func (m *ProducerMetrics) RecordRetryAttempts(ctx context.Context, topic string, attempts int) {
	if m == nil {
		return
	}
	m.retryAttempts.Record(ctx, float64(attempts), m.topicAttrs(topic))
}

// SetProducerHealth 汇报生产者健康状态。
//
// 幂等：连续汇报相同状态不产生样本，仅状态跃迁时发出 ±1 增量，
// 聚合值始终为 1（健康）或 0（不健康）。
func (m *ProducerMetrics) SetProducerHealth(ctx context.Context, healthy bool) {
	if m == nil {
		return
	}

	m.healthMu.Lock()
	defer m.healthMu.Unlock()

	if m.healthKnown && m.healthy == healthy {
		return
	}

	var delta int64
	switch {
	case !m.healthKnown:
		// 首次汇报：健康记 +1，不健康保持 0
		if healthy {
			delta = 1
		}
	case healthy:
		delta = 1
	default:
		delta = -1
	}

	m.healthKnown = true
	m.healthy = healthy
	if delta != 0 {
		m.producerHealth.Add(ctx, delta, metric.WithAttributes(m.service.Attr()))
	}
}

// MeasureSendTime 以作用域方式执行 fn 并记录发送指标。
//
// 无论成功失败都记录恰好一次时延样本；成功计入发送成功计数，
// 失败计入失败计数并将错误原样返回（只观察，绝不吞错）。
func (m *ProducerMetrics) MeasureSendTime(ctx context.Context, topic string, fn func(ctx context.Context) error) error {
	if fn == nil {
		return ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}

	start := time.Now()
	err := fn(ctx)

	m.RecordSendDuration(ctx, topic, time.Since(start))
	m.RecordMessageSent(ctx, topic, err == nil)
	return err
}

func (m *ProducerMetrics) topicAttrs(topic string) metric.MeasurementOption {
	return metric.WithAttributes(
		attribute.String(telecore.LabelTopic, topic),
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
