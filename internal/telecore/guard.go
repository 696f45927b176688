package telecore

import (
	"sync"
)

// Guard 管理进程级单例的受保护初始化。
//
// 语义与各注册表的 Init/Instance 约定一致：
//   - 首次 Init 执行 build 并缓存结果
//   - 再次 Init 不重复构建，返回已有实例并报告 already=true，
//     由调用方决定是否记录告警（重复初始化不是错误）
//   - Get 在未初始化时返回零值，绝不隐式构建
//
// 设计决策: 使用互斥锁而非 sync.Once，因为 build 可能失败，
// 失败后应允许下一次 Init 重试，而 sync.Once 会永久吞掉失败状态。
type Guard[T any] struct {
	mu sync.Mutex
	v  *T
}

// Init 执行受保护的一次性初始化。
//
// 返回值 already 表示实例在本次调用前已存在。
// build 返回错误时不缓存任何状态，后续 Init 可重试。
func (g *Guard[T]) Init(build func() (*T, error)) (v *T, already bool, err error) {
	g.mu.Lock()
	defer g.mu.Unlock()

	if g.v != nil {
		return g.v, true, nil
	}

	v, err = build()
	if err != nil {
		return nil, false, err
	}
	g.v = v
	return v, false, nil
}

// Get 返回已初始化的实例；未初始化时返回 nil。
func (g *Guard[T]) Get() *T {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.v
}

// Reset 清空实例，仅用于测试。
func (g *Guard[T]) Reset() {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.v = nil
}
