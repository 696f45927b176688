package xjob_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/wisey/telekit/pkg/jobs/xjob"
)

// 演示任务生命周期指标的标准用法。
func ExampleInitJobMetrics() {
	metrics, err := xjob.InitJobMetrics("order-service")
	if err != nil {
		fmt.Println("init:", err)
		return
	}

	ctx := context.Background()
	metrics.RecordJobCreated(ctx, "export")

	err = metrics.MeasureJobDuration(ctx, "export", func(ctx context.Context) error {
		// 实际任务逻辑
		return nil
	})
	if err != nil {
		// 重试等处理完后由终态判定方记录失败
		metrics.RecordJobFailed(ctx, "export", "E_EXPORT")
	}
}

// 演示状态推送枢纽与结果缓存的配合。
func ExampleNewStatusHub() {
	metrics := xjob.JobMetricsInstance()

	hub := xjob.NewStatusHub(metrics)
	defer func() { _ = hub.Close() }()

	http.Handle("/ws/jobs", hub.Handler())

	_ = hub.Publish(context.Background(), "job-1001",
		map[string]string{"status": "completed"})
}

// 演示幂等键去重。
func ExampleIdempotencyGuard() {
	guard := xjob.NewIdempotencyGuard(xjob.JobMetricsInstance())
	ctx := context.Background()

	key := "client-supplied-key"

	jobID, dup, _ := guard.Claim(ctx, key, "job-1")
	fmt.Println(jobID, dup)

	jobID, dup, _ = guard.Claim(ctx, key, "job-2")
	fmt.Println(jobID, dup)

	// Output:
	// job-1 false
	// job-1 true
}
