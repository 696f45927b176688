// Package xlog 提供基于 log/slog 的日志门面。
//
// # 设计理念
//
//   - 强制 context 传递，方法签名只接受 slog.Attr，避免隐式 key-value 转换
//   - 动态级别控制，支持运行时调整
//   - 生命周期管理，Build() 返回 cleanup 函数
//   - 全局默认 Logger 仅面向脚手架场景，服务端推荐依赖注入
//
// telekit 内部所有告警与错误日志均经由本包输出，
// 保证遥测组件自身的失败可见但绝不影响宿主主流程。
//
// # 使用示例
//
//	logger, cleanup, err := xlog.New().
//		SetLevelString("info").
//		SetFormat("json").
//		Build()
//	if err != nil {
//		// 处理错误
//	}
//	defer cleanup()
//
//	logger.Info(ctx, "telemetry ready", slog.String("service", "orders-api"))
package xlog
