// Package jobs 提供异步任务观测相关的子包。
//
// 子包列表：
//   - xjob: 任务生命周期指标、结果缓存、状态推送与幂等去重
//
// 设计原则：
//   - 队列规模守恒：创建 +1，每个终态恰好 -1
//   - 指标记录是旁路观测，绝不向业务路径抛错
package jobs
