package xtelemetry

import (
	"context"
	"fmt"
	"log/slog"

	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"

	"github.com/wisey/telekit/pkg/observability/xlog"
)

// WithSpan 以作用域方式执行 fn，并保证 span 生命周期正确。
//
// 新 span 作为当前 ctx 中活动 span 的子级创建（嵌套由 context 追踪，
// 无需显式父引用）。attrs 在创建时附加到 span 上。
//
// 结束契约（所有退出路径恰好关闭一次）：
//   - fn 正常返回 → 状态 Ok
//   - fn 返回错误 → 错误作为 exception 事件记录，状态 Error(错误消息)，
//     错误原样返回给调用方（只观察，绝不吞错）
//   - fn panic → span 以 Error 状态关闭后 panic 继续向上传播
func WithSpan(ctx context.Context, name string, fn func(ctx context.Context, span trace.Span) error, attrs ...Attr) (err error) {
	if fn == nil {
		return ErrNilFunc
	}
	if ctx == nil {
		ctx = context.Background()
	}

	ctx, span := GetTracer().Start(ctx, name,
		trace.WithAttributes(attrsToOTel(attrs)...),
	)

	defer func() {
		if r := recover(); r != nil {
			panicErr := fmt.Errorf("panic: %v", r)
			span.RecordError(panicErr)
			span.SetStatus(codes.Error, panicErr.Error())
			span.End()
			panic(r)
		}
		if err != nil {
			span.RecordError(err)
			span.SetStatus(codes.Error, err.Error())
		} else {
			span.SetStatus(codes.Ok, "")
		}
		span.End()
	}()

	return fn(ctx, span)
}

// StartSpan 手动开启一个 span。
//
// 适用于无法使用闭包的场景；调用方自行负责 span.End()。
// 推荐优先使用 WithSpan，其关闭语义不依赖调用方自觉。
func StartSpan(ctx context.Context, name string, attrs ...Attr) (context.Context, trace.Span) {
	if ctx == nil {
		ctx = context.Background()
	}
	return GetTracer().Start(ctx, name,
		trace.WithAttributes(attrsToOTel(attrs)...),
	)
}

// TraceFunction 返回 fn 的带追踪包装版本。
//
// 每次调用包装函数都会围绕 fn 开启名为 name 的 span，
// 完成/错误契约与 WithSpan 完全一致；错误路径额外输出一条错误日志。
func TraceFunction(name string, fn func(ctx context.Context) error) func(ctx context.Context) error {
	if fn == nil {
		return func(context.Context) error { return ErrNilFunc }
	}
	return func(ctx context.Context) error {
		return WithSpan(ctx, name, func(ctx context.Context, _ trace.Span) error {
			err := fn(ctx)
			if err != nil {
				xlog.Error(ctx, "xtelemetry: traced function failed",
					slog.String("span", name),
					slog.Any("error", err),
				)
			}
			return err
		})
	}
}
