package xkafka

// ResetProducerMetricsForTest 清空进程级注册表状态，仅供测试使用。
func ResetProducerMetricsForTest() {
	guardProducerMetrics.Reset()
}
