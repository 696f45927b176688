package xtelemetry

import (
	"context"
	"fmt"
	"log/slog"
	"net"
	"strconv"
	"time"

	"github.com/kelseyhightower/envconfig"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/exporters/otlp/otlptrace/otlptracegrpc"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.39.0"
	"go.opentelemetry.io/otel/trace"

	"github.com/wisey/telekit/internal/telecore"
	"github.com/wisey/telekit/pkg/observability/xlog"
)

// defaultInstrumentationName 默认的 instrumentation 名称。
const defaultInstrumentationName = "github.com/wisey/telekit/xtelemetry"

// envConfig 追踪导出端点的环境变量契约。
type envConfig struct {
	JaegerHost string `envconfig:"JAEGER_HOST" default:"localhost"`
	JaegerPort int    `envconfig:"JAEGER_PORT" default:"6831"`
}

// telemetry 进程级追踪状态。
type telemetry struct {
	service  telecore.ServiceIdentity
	provider trace.TracerProvider
	sdk      *sdktrace.TracerProvider // 注入外部 provider 时为 nil
}

// guard 保证 Init 至多生效一次。
var guard telecore.Guard[telemetry]

// Init 初始化进程级追踪。
//
// 读取 JAEGER_HOST / JAEGER_PORT 环境变量确定导出端点（默认 localhost:6831），
// 构建以 serviceName 为 service.name 的资源描述与批量导出管线，
// 并注册为全局 TracerProvider（含 W3C TraceContext + Baggage 传播器）。
//
// 重复调用不是错误：第二次及以后的调用记录告警并保持首次配置不变。
// 导出端点不可达时 Init 依然成功，导出器会惰性重连；
// 这是有意为之——追踪绝不能让宿主应用启动失败。
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

	_, already, err := guard.Init(func() (*telemetry, error) {
		return build(serviceName, options)
	})
	if err != nil {
		return err
	}
	if already {
		xlog.Warn(context.Background(), "xtelemetry: already initialized, ignoring",
			slog.String("service", serviceName))
		return nil
	}

	xlog.Info(context.Background(), "xtelemetry: initialized",
		slog.String("service", serviceName))
	return nil
}

func build(serviceName string, options *initOptions) (*telemetry, error) {
	t := &telemetry{service: telecore.ServiceIdentity(serviceName)}

	// 测试或宿主注入的 provider 优先，此时不构建导出管线。
	if options.tracerProvider != nil {
		t.provider = options.tracerProvider
		installGlobal(t.provider)
		return t, nil
	}

	endpoint := options.endpoint
	if endpoint == "" {
		var cfg envConfig
		if err := envconfig.Process("", &cfg); err != nil {
			return nil, fmt.Errorf("xtelemetry: read env config: %w", err)
		}
		endpoint = net.JoinHostPort(cfg.JaegerHost, strconv.Itoa(cfg.JaegerPort))
	}

	// 导出器惰性建连，这里不会因端点不可达而失败。
	exporter, err := otlptracegrpc.New(context.Background(),
		otlptracegrpc.WithEndpoint(endpoint),
		otlptracegrpc.WithInsecure(),
	)
	if err != nil {
		return nil, fmt.Errorf("xtelemetry: create exporter: %w", err)
	}

	res, err := resource.Merge(
		resource.Default(),
		resource.NewWithAttributes(
			semconv.SchemaURL,
			semconv.ServiceName(serviceName),
		),
	)
	if err != nil {
		return nil, fmt.Errorf("xtelemetry: build resource: %w", err)
	}

	provider := sdktrace.NewTracerProvider(
		sdktrace.WithResource(res),
		sdktrace.WithBatcher(exporter,
			sdktrace.WithBatchTimeout(options.batchTimeout),
		),
		sdktrace.WithSampler(options.sampler),
	)

	t.provider = provider
	t.sdk = provider
	installGlobal(provider)
	return t, nil
}

func installGlobal(provider trace.TracerProvider) {
	otel.SetTracerProvider(provider)
	otel.SetTextMapPropagator(propagation.NewCompositeTextMapPropagator(
		propagation.TraceContext{},
		propagation.Baggage{},
	))
}

// Shutdown 刷新并关闭追踪导出管线。
//
// 未初始化或使用注入 provider 时为空操作。
// 关闭失败只记录告警，不向调用方传播。
func Shutdown(ctx context.Context) {
	t := guard.Get()
	if t == nil || t.sdk == nil {
		return
	}
	if ctx == nil {
		ctx = context.Background()
	}
	if err := t.sdk.Shutdown(ctx); err != nil {
		xlog.Warn(ctx, "xtelemetry: shutdown failed", slog.Any("error", err))
	}
}

// GetTracer 返回 Tracer。
//
// name 省略时使用默认 instrumentation 名称。
// 未初始化时回退到全局 ambient provider（通常是 noop），不会 panic。
func GetTracer(name ...string) trace.Tracer {
	n := defaultInstrumentationName
	if len(name) > 0 && name[0] != "" {
		n = name[0]
	}
	if t := guard.Get(); t != nil {
		return t.provider.Tracer(n)
	}
	return otel.Tracer(n)
}

// ServiceName 返回初始化时登记的服务名；未初始化时为空字符串。
func ServiceName() string {
	if t := guard.Get(); t != nil {
		return t.service.String()
	}
	return ""
}

// =============================================================================
// 选项
// =============================================================================

type initOptions struct {
	endpoint       string
	batchTimeout   time.Duration
	sampler        sdktrace.Sampler
	tracerProvider trace.TracerProvider
}

func defaultOptions() *initOptions {
	return &initOptions{
		batchTimeout: 5 * time.Second,
		sampler:      sdktrace.AlwaysSample(),
	}
}

// Option 定义 Init 的配置选项。
type Option func(*initOptions)

// WithEndpoint 显式指定导出端点（host:port），优先于环境变量。
func WithEndpoint(endpoint string) Option {
	return func(o *initOptions) {
		if endpoint != "" {
			o.endpoint = endpoint
		}
	}
}

// WithBatchTimeout 设置批量导出的刷新间隔。
func WithBatchTimeout(d time.Duration) Option {
	return func(o *initOptions) {
		if d > 0 {
			o.batchTimeout = d
		}
	}
}

// WithSamplerRatio 设置采样率（0.0–1.0），默认全采样。
func WithSamplerRatio(ratio float64) Option {
	return func(o *initOptions) {
		switch {
		case ratio >= 1.0:
			o.sampler = sdktrace.AlwaysSample()
		case ratio <= 0.0:
			o.sampler = sdktrace.NeverSample()
		default:
			o.sampler = sdktrace.TraceIDRatioBased(ratio)
		}
	}
}

// WithTracerProvider 注入外部 TracerProvider。
//
// 主要用于测试（配合 tracetest 导出器）；注入后不再构建导出管线。
func WithTracerProvider(provider trace.TracerProvider) Option {
	return func(o *initOptions) {
		if provider != nil {
			o.tracerProvider = provider
		}
	}
}
