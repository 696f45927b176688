package xtelemetry_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/sdk/trace/tracetest"
	"go.opentelemetry.io/otel/trace"

	"github.com/wisey/telekit/pkg/observability/xtelemetry"
)

func init() {
	gin.SetMode(gin.TestMode)
}

// findAttr 从导出的 span 属性中取值
func findAttr(sp tracetest.SpanStub, key string) (attribute.Value, bool) {
	for _, kv := range sp.Attributes {
		if string(kv.Key) == key {
			return kv.Value, true
		}
	}
	return attribute.Value{}, false
}

// ============================================================================
// Gin 中间件测试
// ============================================================================

func TestGinMiddleware_Success(t *testing.T) {
	exporter := initForTest(t, "gin-service")

	app := gin.New()
	xtelemetry.InstrumentGin(app)
	app.GET("/orders/:id", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/orders/42", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)

	sp := spans[0]
	assert.Equal(t, "GET /orders/:id", sp.Name)
	assert.Equal(t, codes.Ok, sp.Status.Code)

	method, ok := findAttr(sp, "http.method")
	require.True(t, ok)
	assert.Equal(t, "GET", method.AsString())

	route, ok := findAttr(sp, "http.route")
	require.True(t, ok)
	assert.Equal(t, "/orders/:id", route.AsString())

	status, ok := findAttr(sp, "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusOK), status.AsInt64())

	// 请求 ID 回写到响应头
	assert.NotEmpty(t, rec.Header().Get(xtelemetry.HeaderRequestID))
}

func TestGinMiddleware_ServerError(t *testing.T) {
	exporter := initForTest(t, "gin-service")

	app := gin.New()
	xtelemetry.InstrumentGin(app)
	app.GET("/fail", func(c *gin.Context) {
		_ = c.Error(errors.New("boom"))
		c.Status(http.StatusInternalServerError)
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/fail", nil))
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}

func TestGinMiddleware_PropagatesRequestID(t *testing.T) {
	exporter := initForTest(t, "gin-service")

	app := gin.New()
	xtelemetry.InstrumentGin(app)
	app.GET("/echo", func(c *gin.Context) { c.Status(http.StatusNoContent) })

	req := httptest.NewRequest(http.MethodGet, "/echo", nil)
	req.Header.Set(xtelemetry.HeaderRequestID, "req-123")

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, req)

	assert.Equal(t, "req-123", rec.Header().Get(xtelemetry.HeaderRequestID))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	id, ok := findAttr(spans[0], "http.request_id")
	require.True(t, ok)
	assert.Equal(t, "req-123", id.AsString())
}

func TestGinMiddleware_HandlerSpansNested(t *testing.T) {
	exporter := initForTest(t, "gin-service")

	app := gin.New()
	xtelemetry.InstrumentGin(app)
	app.GET("/work", func(c *gin.Context) {
		_ = xtelemetry.WithSpan(c.Request.Context(), "inner-step",
			func(ctx context.Context, _ trace.Span) error { return nil })
		c.Status(http.StatusOK)
	})

	rec := httptest.NewRecorder()
	app.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/work", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 2)

	// inner-step 先结束，且与请求 span 同属一条链路
	assert.Equal(t, "inner-step", spans[0].Name)
	assert.Equal(t, spans[1].SpanContext.TraceID(), spans[0].SpanContext.TraceID())
	assert.Equal(t, spans[1].SpanContext.SpanID(), spans[0].Parent.SpanID())
}

func TestInstrumentGin_NilApp(t *testing.T) {
	// nil 引擎为空操作，不 panic
	xtelemetry.InstrumentGin(nil)
}

// ============================================================================
// net/http 中间件测试
// ============================================================================

func TestHTTPMiddleware_Success(t *testing.T) {
	exporter := initForTest(t, "http-service")

	handler := xtelemetry.HTTPMiddleware(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			w.WriteHeader(http.StatusAccepted)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodPost, "/jobs", nil))
	require.Equal(t, http.StatusAccepted, rec.Code)

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, "POST /jobs", spans[0].Name)
	assert.Equal(t, codes.Ok, spans[0].Status.Code)

	status, ok := findAttr(spans[0], "http.status_code")
	require.True(t, ok)
	assert.Equal(t, int64(http.StatusAccepted), status.AsInt64())
}

func TestHTTPMiddleware_ServerError(t *testing.T) {
	exporter := initForTest(t, "http-service")

	handler := xtelemetry.HTTPMiddleware(http.HandlerFunc(
		func(w http.ResponseWriter, r *http.Request) {
			http.Error(w, "boom", http.StatusBadGateway)
		}))

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/jobs", nil))

	spans := exporter.GetSpans()
	require.Len(t, spans, 1)
	assert.Equal(t, codes.Error, spans[0].Status.Code)
}
