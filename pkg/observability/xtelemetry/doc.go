// Package xtelemetry 提供进程级分布式追踪的初始化与使用门面。
//
// # 设计理念
//
// xtelemetry 是对 OpenTelemetry 追踪 SDK 的薄封装，只做三件事：
//
//   - Init：按环境变量配置导出端点，构建带服务标识的批量导出管线，
//     注册为进程级全局 TracerProvider（至多一次，重复调用为告警 + 空操作）
//   - WithSpan / TraceFunction：作用域化的 span 获取，
//     保证 span 在所有退出路径上恰好关闭一次，错误被记录后原样上抛
//   - InstrumentGin / HTTPMiddleware / GRPCUnaryServerInterceptor：
//     宿主框架接入点，为每个入站请求自动生成根 span
//
// 追踪永远不应中断宿主应用：Init 在导出端点不可达时依然成功
// （导出器惰性连接），后续失败表现为 span 被静默丢弃。
//
// # 环境变量
//
//   - JAEGER_HOST：导出端点主机，默认 localhost
//   - JAEGER_PORT：导出端点端口，默认 6831
//
// # 使用示例
//
//	if err := xtelemetry.Init("orders-api"); err != nil {
//		log.Fatal(err)
//	}
//	defer xtelemetry.Shutdown(context.Background())
//
//	xtelemetry.InstrumentGin(router)
//
//	err := xtelemetry.WithSpan(ctx, "load-order", func(ctx context.Context, span trace.Span) error {
//		return repo.Load(ctx, id)
//	}, xtelemetry.String("order.id", id))
package xtelemetry
