// Package observability 提供可观测性相关的子包。
//
// 子包列表：
//   - xlog: 结构化日志，基于 log/slog 扩展
//   - xtelemetry: 链路追踪初始化、span 辅助与 HTTP/gRPC 中间件
//   - xmeter: 进程级指标管线与 Prometheus 拉取端点
//
// 设计原则：
//   - 遵循 OpenTelemetry 语义规范
//   - 观测组件绝不让宿主应用启动失败或业务路径抛错
//   - 进程级单例至多初始化一次，重复初始化降级为告警
package observability
