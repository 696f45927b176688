package xmeter

// ResetForTest 清空进程级指标管线状态，仅供测试使用。
func ResetForTest() {
	guard.Reset()
}
