// Package telecore 提供 telekit 各遥测组件共享的内部基础设施：
//
//   - ServiceIdentity：服务标识，作为所有指标样本的固定标签
//   - Guard：进程级单例的受保护初始化（check-then-set）
//   - 仪表构造兜底：创建 Counter/Histogram/UpDownCounter 失败时
//     降级为 noop 实现并记录告警，绝不让注册错误传播到宿主
//
// 本包仅供 pkg/ 下的遥测门面使用，不对外暴露。
package telecore
