package xmeter_test

import (
	"context"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"go.opentelemetry.io/otel/metric"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/wisey/telekit/pkg/observability/xmeter"
)

// ============================================================================
// 测试辅助函数
// ============================================================================

// initWithManualReader 以 ManualReader 初始化，返回 reader 供断言
func initWithManualReader(t *testing.T, service string) *sdkmetric.ManualReader {
	t.Helper()
	xmeter.ResetForTest()
	t.Cleanup(xmeter.ResetForTest)

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })

	require.NoError(t, xmeter.Init(service, xmeter.WithMeterProvider(mp)))
	return reader
}

// ============================================================================
// Init 测试
// ============================================================================

func TestInit_EmptyServiceName(t *testing.T) {
	xmeter.ResetForTest()
	t.Cleanup(xmeter.ResetForTest)

	assert.ErrorIs(t, xmeter.Init(""), xmeter.ErrEmptyServiceName)
}

func TestInit_SecondCallIgnored(t *testing.T) {
	initWithManualReader(t, "first-service")

	require.NoError(t, xmeter.Init("second-service"))
	assert.Equal(t, "first-service", xmeter.ServiceName())
}

func TestServiceName_BeforeInit(t *testing.T) {
	xmeter.ResetForTest()
	t.Cleanup(xmeter.ResetForTest)

	assert.Empty(t, xmeter.ServiceName())
}

func TestMeter_BeforeInit(t *testing.T) {
	xmeter.ResetForTest()
	t.Cleanup(xmeter.ResetForTest)

	// 未初始化时回退到全局 provider，不 panic
	m := xmeter.Meter()
	counter, err := m.Int64Counter("orphan_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 1)
}

// ============================================================================
// 指标采集测试
// ============================================================================

func TestMeter_RecordsThroughProvider(t *testing.T) {
	reader := initWithManualReader(t, "meter-service")

	counter, err := xmeter.Meter().Int64Counter("widgets_built_total",
		metric.WithDescription("Total widgets built"))
	require.NoError(t, err)
	counter.Add(context.Background(), 3)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	require.Len(t, rm.ScopeMetrics[0].Metrics, 1)

	sum, ok := rm.ScopeMetrics[0].Metrics[0].Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)
	assert.Equal(t, int64(3), sum.DataPoints[0].Value)
}

// ============================================================================
// 拉取端点测试
// ============================================================================

func TestHandler_BeforeInit(t *testing.T) {
	xmeter.ResetForTest()
	t.Cleanup(xmeter.ResetForTest)

	_, err := xmeter.Handler()
	assert.ErrorIs(t, err, xmeter.ErrNotInitialized)
}

func TestHandler_ServesMetrics(t *testing.T) {
	xmeter.ResetForTest()
	t.Cleanup(xmeter.ResetForTest)

	registry := prometheus.NewRegistry()
	require.NoError(t, xmeter.Init("pull-service", xmeter.WithRegistry(registry)))
	t.Cleanup(func() { xmeter.Shutdown(context.Background()) })

	counter, err := xmeter.Meter().Int64Counter("pulled_total")
	require.NoError(t, err)
	counter.Add(context.Background(), 7)

	handler, err := xmeter.Handler()
	require.NoError(t, err)

	rec := httptest.NewRecorder()
	handler.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	require.Equal(t, http.StatusOK, rec.Code)

	body, err := io.ReadAll(rec.Body)
	require.NoError(t, err)
	assert.True(t, strings.Contains(string(body), "pulled_total"),
		"exposition should contain the counter, got:\n%s", body)
}

func TestServe_BeforeInit(t *testing.T) {
	xmeter.ResetForTest()
	t.Cleanup(xmeter.ResetForTest)

	err := xmeter.Serve(context.Background(), ":0")
	assert.ErrorIs(t, err, xmeter.ErrNotInitialized)
}
