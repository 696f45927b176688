package xtelemetry

import (
	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// HeaderRequestID 请求 ID 头。缺失时中间件会自动生成。
const HeaderRequestID = "X-Request-ID"

// InstrumentGin 为 gin 应用挂载追踪中间件。
//
// 纯附加行为：不改变请求处理语义，也不修改响应体。
// 宿主不使用 gin 时跳过本函数即可，无任何副作用。
func InstrumentGin(app *gin.Engine) {
	if app == nil {
		return
	}
	app.Use(GinMiddleware())
}

// GinMiddleware 返回 gin 追踪中间件。
//
// 每个入站请求产生一个 SERVER 根 span（上游 W3C 追踪头存在时接续其链路），
// 标注 http.method / http.route / http.status_code；
// 请求处理期间通过 ctx 开启的 span 自动成为其子级。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		ctx := otel.GetTextMapPropagator().Extract(
			c.Request.Context(),
			propagation.HeaderCarrier(c.Request.Header),
		)

		route := c.FullPath()
		if route == "" {
			// 未匹配路由（404 等）时退化为原始路径
			route = c.Request.URL.Path
		}

		requestID := c.GetHeader(HeaderRequestID)
		if requestID == "" {
			requestID = uuid.NewString()
		}

		ctx, span := GetTracer().Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
				attribute.String("http.request_id", requestID),
			),
		)
		defer span.End()

		c.Request = c.Request.WithContext(ctx)
		c.Header(HeaderRequestID, requestID)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= 500 {
			span.SetStatus(codes.Error, "server error")
			if len(c.Errors) > 0 {
				span.RecordError(c.Errors.Last())
			}
		} else {
			span.SetStatus(codes.Ok, "")
		}
	}
}
