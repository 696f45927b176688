// Package xkafka 提供 Kafka 生产者指标注册表与带弹性策略的生产者封装。
//
// 职责:
//   - ProducerMetrics: 生产者健康相关的指标注册表
//     （发送/失败计数、发送时延、重试次数、重连次数、健康状态）
//   - Producer: 基于 confluent-kafka-go 的生产者封装，
//     内置重试、熔断，并自动上报上述指标
//
// 核心特性:
//   - 旁路观测: 所有 Record* 方法只观察不干预，记录失败降级为日志，
//     绝不向业务路径抛错
//   - 作用域计时: MeasureSendTime 无论成功失败都记录一次时延样本，
//     错误原样透传
//   - 服务标识: 每个样本携带 service 标签
//
// 使用示例:
//
//	metrics, err := xkafka.InitProducerMetrics("order-service")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	err = metrics.MeasureSendTime(ctx, "orders", func(ctx context.Context) error {
//		return send(ctx, msg)
//	})
package xkafka
