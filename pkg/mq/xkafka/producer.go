package xkafka

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"sync/atomic"
	"time"

	retry "github.com/avast/retry-go/v5"
	"github.com/confluentinc/confluent-kafka-go/v2/kafka"
	"github.com/sony/gobreaker/v2"

	"github.com/wisey/telekit/pkg/observability/xlog"
)

// =============================================================================
// Producer 接口
// =============================================================================

// Producer 定义带弹性策略与指标上报的 Kafka 生产者。
// 通过 Producer() 方法暴露底层 *kafka.Producer，可使用所有原生 API。
type Producer interface {
	// Produce 同步发送一条消息并等待投递确认。
	// 内置重试与熔断；每次调用上报发送时延、成功/失败计数与重试次数。
	Produce(ctx context.Context, msg *kafka.Message) error

	// Producer 返回底层的 *kafka.Producer。
	Producer() *kafka.Producer

	// Health 执行健康检查并上报 kafka_producer_health。
	// 通过获取 Broker 元数据验证连接状态。
	Health(ctx context.Context) error

	// Stats 返回生产者统计信息。
	Stats() ProducerStats

	// Close 优雅关闭生产者。
	// 会等待所有消息发送完成（受 FlushTimeout 限制）。
	Close() error
}

// ProducerStats 包含生产者的本地统计信息。
//
// 与 ProducerMetrics 上报的时序指标互补：Stats 是进程内即时快照，
// 适合健康接口返回；时序指标走 Prometheus 端点。
type ProducerStats struct {
	// MessagesProduced 已确认投递的消息数量。
	MessagesProduced int64
	// MessagesFailed 最终投递失败的消息数量（重试耗尽后计一次）。
	MessagesFailed int64
	// QueueLength 当前队列中等待发送的消息数量。
	QueueLength int
}

// =============================================================================
// 工厂函数
// =============================================================================

// NewProducer 创建生产者实例。
// config 必须包含 "bootstrap.servers" 配置项。
func NewProducer(config *kafka.ConfigMap, opts ...ProducerOption) (Producer, error) {
	if config == nil {
		return nil, ErrNilConfig
	}

	options := defaultProducerOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	// 复制配置，避免修改调用方传入的 ConfigMap
	clonedConfig := &kafka.ConfigMap{}
	for k, v := range *config {
		if err := clonedConfig.SetKey(k, v); err != nil {
			return nil, fmt.Errorf("xkafka: clone config key %q: %w", k, err)
		}
	}

	producer, err := kafka.NewProducer(clonedConfig)
	if err != nil {
		return nil, fmt.Errorf("xkafka: create producer: %w", err)
	}

	w := &producerWrapper{
		producer: producer,
		options:  options,
	}
	w.breaker = newProducerBreaker(w)
	return w, nil
}

// =============================================================================
// producerWrapper
// =============================================================================

// producerWrapper 实现 Producer 接口。
type producerWrapper struct {
	producer *kafka.Producer
	options  *producerOptions
	breaker  *gobreaker.CircuitBreaker[struct{}]

	// mu 保护 GetMetadata、Flush、Close 等管理操作的并发访问。
	// Producer.Produce() 本身是线程安全的，不需要加锁。
	mu     sync.Mutex
	closed atomic.Bool

	messagesProduced atomic.Int64
	messagesFailed   atomic.Int64
}

// newProducerBreaker 构建发送路径的熔断器。
//
// 状态跃迁驱动健康指标：进入 Open 汇报不健康，恢复 Closed 汇报健康；
// 从 Open/HalfOpen 恢复视为一次重连。
func newProducerBreaker(w *producerWrapper) *gobreaker.CircuitBreaker[struct{}] {
	o := w.options
	return gobreaker.NewCircuitBreaker[struct{}](gobreaker.Settings{
		Name:        "xkafka-producer",
		MaxRequests: o.BreakerMaxRequests,
		Timeout:     o.BreakerTimeout,
		ReadyToTrip: func(counts gobreaker.Counts) bool {
			return counts.ConsecutiveFailures >= o.BreakerFailures
		},
		OnStateChange: func(name string, from, to gobreaker.State) {
			ctx := context.Background()
			xlog.Warn(ctx, "xkafka: breaker state change",
				slog.String("name", name),
				slog.String("from", from.String()),
				slog.String("to", to.String()),
			)
			switch to {
			case gobreaker.StateOpen:
				o.Metrics.SetProducerHealth(ctx, false)
			case gobreaker.StateClosed:
				o.Metrics.SetProducerHealth(ctx, true)
				if from == gobreaker.StateHalfOpen {
					o.Metrics.RecordReconnection(ctx)
				}
			}
		},
	})
}

// Produce 同步发送一条消息并等待投递确认。
func (w *producerWrapper) Produce(ctx context.Context, msg *kafka.Message) error {
	if msg == nil {
		return ErrNilMessage
	}
	if w.closed.Load() {
		return ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	topic := ""
	if msg.TopicPartition.Topic != nil {
		topic = *msg.TopicPartition.Topic
	}

	var attempts atomic.Int64
	err := w.options.Metrics.MeasureSendTime(ctx, topic, func(ctx context.Context) error {
		_, err := w.breaker.Execute(func() (struct{}, error) {
			return struct{}{}, retry.New(
				retry.Context(ctx),
				retry.Attempts(w.options.MaxRetries),
				retry.Delay(w.options.RetryDelay),
				retry.DelayType(retry.BackOffDelay),
				retry.LastErrorOnly(true),
				retry.OnRetry(func(n uint, err error) {
					attempts.Add(1)
					xlog.Warn(ctx, "xkafka: produce retry",
						slog.String("topic", topic),
						slog.Uint64("attempt", uint64(n)+1),
						slog.Any("error", err),
					)
				}),
			).Do(func() error {
				return w.produceOnce(ctx, msg)
			})
		})
		return err
	})

	w.options.Metrics.RecordRetryAttempts(ctx, topic, int(attempts.Load()))

	if err != nil {
		w.messagesFailed.Add(1)
		return err
	}
	w.messagesProduced.Add(1)
	return nil
}

// produceOnce 入队一条消息并等待其投递事件。
func (w *producerWrapper) produceOnce(ctx context.Context, msg *kafka.Message) error {
	deliveryChan := make(chan kafka.Event, 1)
	if err := w.producer.Produce(msg, deliveryChan); err != nil {
		return fmt.Errorf("xkafka: enqueue: %w", err)
	}

	select {
	case <-ctx.Done():
		return ctx.Err()
	case ev := <-deliveryChan:
		m, ok := ev.(*kafka.Message)
		if !ok {
			return fmt.Errorf("xkafka: unexpected delivery event %T", ev)
		}
		if m.TopicPartition.Error != nil {
			return fmt.Errorf("xkafka: delivery failed: %w", m.TopicPartition.Error)
		}
		return nil
	}
}

// Producer 返回底层的 *kafka.Producer。
func (w *producerWrapper) Producer() *kafka.Producer {
	return w.producer
}

// Health 执行健康检查。
//
// 通过获取 Broker 元数据验证连接状态，结果同步汇报到
// kafka_producer_health（仅状态跃迁产生样本）。
func (w *producerWrapper) Health(ctx context.Context) error {
	if w.closed.Load() {
		return ErrClosed
	}
	if ctx == nil {
		ctx = context.Background()
	}

	timeoutMs := int(w.options.HealthTimeout.Milliseconds())

	done := make(chan error, 1)
	go func() {
		w.mu.Lock()
		defer w.mu.Unlock()

		if w.closed.Load() {
			done <- ErrClosed
			return
		}

		_, err := w.producer.GetMetadata(nil, true, timeoutMs)
		if err != nil {
			done <- fmt.Errorf("xkafka: health check: %w", err)
			return
		}
		done <- nil
	}()

	var err error
	select {
	case <-ctx.Done():
		err = ctx.Err()
	case err = <-done:
	}

	w.options.Metrics.SetProducerHealth(ctx, err == nil)
	return err
}

// Stats 返回生产者统计信息。
// 如果生产者已关闭，QueueLength 返回 0。
func (w *producerWrapper) Stats() ProducerStats {
	var queueLen int
	if !w.closed.Load() {
		w.mu.Lock()
		if !w.closed.Load() {
			queueLen = w.producer.Len()
		}
		w.mu.Unlock()
	}

	return ProducerStats{
		MessagesProduced: w.messagesProduced.Load(),
		MessagesFailed:   w.messagesFailed.Load(),
		QueueLength:      queueLen,
	}
}

// Close 优雅关闭生产者。
// 重复调用 Close 安全返回 ErrClosed。
func (w *producerWrapper) Close() error {
	if !w.closed.CompareAndSwap(false, true) {
		return ErrClosed
	}

	w.mu.Lock()
	defer w.mu.Unlock()

	timeoutMs := int(w.options.FlushTimeout.Milliseconds())

	remaining := w.producer.Flush(timeoutMs)
	if remaining > 0 {
		w.producer.Close()
		return fmt.Errorf("%w: %d messages still in queue", ErrFlushTimeout, remaining)
	}

	w.producer.Close()
	return nil
}

var _ Producer = (*producerWrapper)(nil)

// =============================================================================
// 选项
// =============================================================================

// producerOptions 包含生产者的配置选项。
type producerOptions struct {
	Metrics            *ProducerMetrics
	MaxRetries         uint
	RetryDelay         time.Duration
	FlushTimeout       time.Duration
	HealthTimeout      time.Duration
	BreakerFailures    uint32
	BreakerMaxRequests uint32
	BreakerTimeout     time.Duration
}

func defaultProducerOptions() *producerOptions {
	return &producerOptions{
		// Metrics 缺省为 nil：记录方法对 nil 接收者安全，等价于不上报
		MaxRetries:         3,
		RetryDelay:         100 * time.Millisecond,
		FlushTimeout:       10 * time.Second,
		HealthTimeout:      5 * time.Second,
		BreakerFailures:    5,
		BreakerMaxRequests: 1,
		BreakerTimeout:     30 * time.Second,
	}
}

// ProducerOption 定义生产者的配置选项函数类型。
type ProducerOption func(*producerOptions)

// WithProducerMetrics 设置指标注册表。
// 不设置时不上报指标（本地 Stats 仍然可用）。
func WithProducerMetrics(m *ProducerMetrics) ProducerOption {
	return func(o *producerOptions) {
		if m != nil {
			o.Metrics = m
		}
	}
}

// WithMaxRetries 设置单条消息的最大尝试次数（含首次）。
func WithMaxRetries(n uint) ProducerOption {
	return func(o *producerOptions) {
		if n > 0 {
			o.MaxRetries = n
		}
	}
}

// WithRetryDelay 设置重试的基础退避间隔。
func WithRetryDelay(d time.Duration) ProducerOption {
	return func(o *producerOptions) {
		if d > 0 {
			o.RetryDelay = d
		}
	}
}

// WithFlushTimeout 设置关闭时的刷新超时时间。
func WithFlushTimeout(d time.Duration) ProducerOption {
	return func(o *producerOptions) {
		if d > 0 {
			o.FlushTimeout = d
		}
	}
}

// WithHealthTimeout 设置健康检查超时时间。
func WithHealthTimeout(d time.Duration) ProducerOption {
	return func(o *producerOptions) {
		if d > 0 {
			o.HealthTimeout = d
		}
	}
}

// WithBreakerThreshold 设置熔断触发的连续失败次数。
func WithBreakerThreshold(failures uint32) ProducerOption {
	return func(o *producerOptions) {
		if failures > 0 {
			o.BreakerFailures = failures
		}
	}
}

// WithBreakerTimeout 设置熔断后进入半开状态的等待时间。
func WithBreakerTimeout(d time.Duration) ProducerOption {
	return func(o *producerOptions) {
		if d > 0 {
			o.BreakerTimeout = d
		}
	}
}
