// Package xmeter 提供进程级指标管线。
//
// 职责:
//   - 构建唯一的 OTel MeterProvider 并注册为全局（进程内所有指标注册表共享）
//   - 通过 Prometheus 拉取端点暴露所有已注册指标
//   - 为所有样本附加 service.name 资源标识
//
// 核心特性:
//   - 一次初始化: Init 至多生效一次，重复调用记录告警后忽略
//   - 拉取模型: 无推送依赖，Prometheus 端点不可达不影响宿主
//   - 可注入: 测试可注入 ManualReader 构建的 MeterProvider
//
// 使用示例:
//
//	if err := xmeter.Init("order-service"); err != nil {
//		log.Fatal(err)
//	}
//	go func() { _ = xmeter.Serve(ctx, ":9464") }()
//
//	meter := xmeter.Meter()
//	counter, _ := meter.Int64Counter("orders_created_total")
package xmeter
