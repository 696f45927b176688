package xmeter

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/prometheus/client_golang/prometheus"

	"go.opentelemetry.io/otel"
	otelprom "go.opentelemetry.io/otel/exporters/prometheus"
	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/resource"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"

	"github.com/wisey/telekit/internal/telecore"
	"github.com/wisey/telekit/pkg/observability/xlog"
)

// defaultInstrumentationName 默认的 instrumentation 名称。
const defaultInstrumentationName = "github.com/wisey/telekit/xmeter"

// pipeline 进程级指标管线状态。
type pipeline struct {
	service  telecore.ServiceIdentity
	provider metric.MeterProvider
	sdk      *sdkmetric.MeterProvider // 注入外部 provider 时为 nil
	registry *prometheus.Registry     // 同上
}

// guard 保证 Init 至多生效一次。
var guard telecore.Guard[pipeline]

// Init 初始化进程级指标管线。
//
// 构建以 serviceName 为 service.name 的 MeterProvider，
// 挂接 Prometheus 拉取导出器，并注册为全局 MeterProvider。
// 进程内的所有指标注册表（Kafka 生产者、任务生命周期等）共享这一个
// provider，从同一个拉取端点暴露。
//
// 设计决策: 全局 MeterProvider 只设置一次。多个注册表各自设置
// 全局 provider 会相互覆盖，后注册者使先注册者的端点失效，
// 因此 provider 归本包独有，注册表只通过 Meter 取仪表。
//
// 重复调用不是错误：第二次及以后的调用记录告警并保持首次配置不变。
func Init(serviceName string, opts ...Option) error {
	if serviceName == "" {
		return ErrEmptyServiceName
	}

	options := defaultOptions()
	for _, opt := range opts {
		if opt == nil {
			continue
		}
		opt(options)
	}

	_, already, err := guard.Init(func() (*pipeline, error) {
		return build(serviceName, options)
	})
	if err != nil {
		return err
	}
	if already {
		xlog.Warn(context.Background(), "xmeter: already initialized, ignoring",
			slog.String("service", serviceName))
		return nil
	}

	xlog.Info(context.Background(), "xmeter: initialized",
		slog.String("service", serviceName))
	return nil
}

func build(serviceName string, options *initOptions) (*pipeline, error) {
	p := &pipeline{service: telecore.ServiceIdentity(serviceName)}

	// 测试或宿主注入的 provider 优先，此时不构建导出管线。
	if options.meterProvider != nil {
		p.provider = options.meterProvider
		otel.SetMeterProvider(p.provider)
		return p, nil
	}

	registry := options.registry
	if registry == nil {
		registry = prometheus.NewRegistry()
	}

	exporter, err := otelprom.New(otelprom.WithRegisterer(registry))
	if err != nil {
		return nil, fmt.Errorf("xmeter: create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("xmeter: build resource: %w", err)
	}

	provider := sdkmetric.NewMeterProvider(
		sdkmetric.WithResource(res),
		sdkmetric.WithReader(exporter),
	)

	p.provider = provider
	p.sdk = provider
	p.registry = registry
	otel.SetMeterProvider(provider)
	return p, nil
}

// Shutdown 刷新并关闭指标管线。
//
// 未初始化或使用注入 provider 时为空操作。
// 关闭失败只记录告警，不向调用方传播。
func Shutdown(ctx context.Context) {
	p := guard.Get()
	if p == nil || p.sdk == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := p.sdk.Shutdown(ctx); err != nil {
		xlog.Warn(ctx, "xmeter: shutdown failed", slog.Any("error", err))
	}
}

// Meter 返回 Meter。
//
// name 省略时使用默认 instrumentation 名称。
// 未初始化时回退到全局 ambient provider（通常是 noop），不会 panic。
func Meter(name ...string) metric.Meter {
	n := defaultInstrumentationName
	if len(name) > 0 && name[0] != "" {
		n = name[0]
	}
	if p := guard.Get(); p != nil {
		return p.provider.Meter(n)
	}
	return otel.Meter(n)
}

// ServiceName 返回初始化时登记的服务名；未初始化时为空字符串。
func ServiceName() string {
	if p := guard.Get(); p != nil {
		return p.service.String()
	}
	return ""
}

// =============================================================================
// 选项
// =============================================================================

type initOptions struct {
	registry      *prometheus.Registry
	meterProvider metric.MeterProvider
}

func defaultOptions() *initOptions {
	return &initOptions{}
}

// Option 定义 Init 的配置选项。
type Option func(*initOptions)

// WithRegistry 注入外部 Prometheus 注册表。
//
// 宿主已有自建注册表（含自定义 collector）时使用，指标并入同一端点。
func WithRegistry(registry *prometheus.Registry) Option {
	return func(o *initOptions) {
		if registry != nil {
			o.registry = registry
		}
	}
}

// WithMeterProvider 注入外部 MeterProvider。
//
// 主要用于测试（配合 sdkmetric.ManualReader）；注入后不再构建导出管线。
func WithMeterProvider(provider metric.MeterProvider) Option {
	return func(o *initOptions) {
		if provider != nil {
			o.meterProvider = provider
		}
	}
}
