package xlog

import (
	"context"
	"log/slog"
)

// xlogger 基于 slog.Handler 的 Logger 实现
type xlogger struct {
	handler  slog.Handler
	levelVar *slog.LevelVar
}

var _ LoggerWithLevel = (*xlogger)(nil)

func (l *xlogger) log(ctx context.Context, level slog.Level, msg string, attrs ...slog.Attr) {
	if ctx == nil {
		ctx = context.Background()
	}
	if !l.handler.Enabled(ctx, level) {
		return
	}
	r := slog.NewRecord(timeNow(), level, msg, 0)
	r.AddAttrs(attrs...)
	// Handle 失败时静默丢弃：日志输出绝不反向影响调用方。
	_ = l.handler.Handle(ctx, r)
}

// Debug 记录 Debug 级别日志
func (l *xlogger) Debug(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelDebug, msg, attrs...)
}

// Info 记录 Info 级别日志
func (l *xlogger) Info(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelInfo, msg, attrs...)
}

// Warn 记录 Warn 级别日志
func (l *xlogger) Warn(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelWarn, msg, attrs...)
}

// Error 记录 Error 级别日志
func (l *xlogger) Error(ctx context.Context, msg string, attrs ...slog.Attr) {
	l.log(ctx, slog.LevelError, msg, attrs...)
}

// With 返回带额外属性的派生 Logger
//
// 设计决策: 派生 logger 共享父级的 levelVar 指针，
// 因此对父级的 SetLevel 会同步作用于所有派生实例。
func (l *xlogger) With(attrs ...slog.Attr) Logger {
	if len(attrs) == 0 {
		return l
	}
	return &xlogger{
		handler:  l.handler.WithAttrs(attrs),
		levelVar: l.levelVar,
	}
}

// SetLevel 设置日志级别，立即生效
func (l *xlogger) SetLevel(level Level) {
	l.levelVar.Set(slog.Level(level))
}

// GetLevel 返回当前日志级别
func (l *xlogger) GetLevel() Level {
	return Level(l.levelVar.Level())
}
