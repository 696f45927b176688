// Package xjob 提供异步任务生命周期的观测组件。
//
// 职责:
//   - JobMetrics: 任务生命周期指标注册表
//     （创建/完成/失败/取消/过期计数、执行时长、队列规模、
//     WebSocket 连接与订阅、轮询、结果缓存、幂等请求）
//   - ResultCache: 带命中率上报的任务结果缓存（LRU）
//   - StatusHub: 任务状态的 WebSocket 推送枢纽（连接、订阅、心跳均上报指标）
//   - IdempotencyGuard: 幂等键去重（请求与命中均上报指标）
//
// 核心特性:
//   - 旁路观测: 所有 Record* 方法只观察不干预，绝不向业务路径抛错
//   - 队列守恒: 创建 +1，每个终态（完成/失败/取消/过期）恰好 -1，
//     任务集合跑完后 job_queue_size 回到 0
//   - 服务标识: 每个样本携带 service 标签
//
// 使用示例:
//
//	metrics, err := xjob.InitJobMetrics("order-service")
//	if err != nil {
//		log.Fatal(err)
//	}
//
//	metrics.RecordJobCreated(ctx, "export")
//	err = metrics.MeasureJobDuration(ctx, "export", func(ctx context.Context) error {
//		return run(ctx)
//	})
package xjob
