package xtelemetry_test

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/trace"

	"github.com/wisey/telekit/pkg/observability/xtelemetry"
)

// 演示服务启动时的标准初始化流程。
func Example() {
	if err := xtelemetry.Init("order-service"); err != nil {
		fmt.Println("init:", err)
		return
	}
	defer xtelemetry.Shutdown(context.Background())

	err := xtelemetry.WithSpan(context.Background(), "process-order",
		func(ctx context.Context, span trace.Span) error {
			span.AddEvent("validated")
			return nil
		},
		xtelemetry.String("order.id", "ord-1001"),
	)
	if err != nil {
		fmt.Println("process:", err)
	}
}

// 演示 gin 应用接入追踪中间件。
func ExampleInstrumentGin() {
	app := gin.New()
	xtelemetry.InstrumentGin(app)

	app.GET("/orders/:id", func(c *gin.Context) {
		// 处理器内开启的 span 自动挂在请求 span 之下
		_ = xtelemetry.WithSpan(c.Request.Context(), "load-order",
			func(ctx context.Context, _ trace.Span) error { return nil })
		c.Status(http.StatusOK)
	})
}

// 演示对任意函数的追踪包装。
func ExampleTraceFunction() {
	refresh := xtelemetry.TraceFunction("refresh-cache", func(ctx context.Context) error {
		return nil
	})

	_ = refresh(context.Background())
}
