package telecore

import (
	"context"
	"log/slog"

	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/metric/noop"

	"github.com/wisey/telekit/pkg/observability/xlog"
)

// 仪表构造兜底。
//
// 同名仪表重复注册（或后端拒绝创建）在 OTel SDK 层表现为构造错误。
// 这类错误绝不能导致宿主崩溃，因此统一降级为 noop 仪表：
// 记录路径保持可用，样本被静默丢弃，告警日志留痕。

var noopMeter = noop.NewMeterProvider().Meter("telekit/noop")

// Int64Counter 创建单调递增计数器，失败时降级为 noop。
func Int64Counter(m metric.Meter, name, desc, unit string) metric.Int64Counter {
	c, err := m.Int64Counter(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	)
	if err != nil {
		warnInstrument("counter", name, err)
		c, _ = noopMeter.Int64Counter(name)
	}
	return c
}

// Float64Histogram 创建直方图，失败时降级为 noop。
func Float64Histogram(m metric.Meter, name, desc, unit string) metric.Float64Histogram {
	h, err := m.Float64Histogram(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	)
	if err != nil {
		warnInstrument("histogram", name, err)
		h, _ = noopMeter.Float64Histogram(name)
	}
	return h
}

// Int64UpDownCounter 创建双向计数器，失败时降级为 noop。
func Int64UpDownCounter(m metric.Meter, name, desc, unit string) metric.Int64UpDownCounter {
	c, err := m.Int64UpDownCounter(name,
		metric.WithDescription(desc),
		metric.WithUnit(unit),
	)
	if err != nil {
		warnInstrument("updowncounter", name, err)
		c, _ = noopMeter.Int64UpDownCounter(name)
	}
	return c
}

func warnInstrument(kind, name string, err error) {
	xlog.Warn(context.Background(), "telecore: instrument creation failed, using noop",
		slog.String("kind", kind),
		slog.String("name", name),
		slog.Any("error", err),
	)
}
