package xtelemetry

// ResetForTest 清空进程级追踪状态，仅供测试使用。
func ResetForTest() {
	guard.Reset()
}
