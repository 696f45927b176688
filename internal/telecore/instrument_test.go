package telecore

import (
	"context"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func TestInstruments_CreateAndRecord(t *testing.T) {
	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	meter := mp.Meter("test")

	ctx := context.Background()

	counter := Int64Counter(meter, "events_total", "Total events", "{events}")
	require.NotNil(t, counter)
	counter.Add(ctx, 2)

	hist := Float64Histogram(meter, "latency_seconds", "Latency", "s")
	require.NotNil(t, hist)
	hist.Record(ctx, 0.5)

	updown := Int64UpDownCounter(meter, "active", "Active items", "{items}")
	require.NotNil(t, updown)
	updown.Add(ctx, 1)
	updown.Add(ctx, -1)

	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(ctx, &rm))
	require.Len(t, rm.ScopeMetrics, 1)
	assert.Len(t, rm.ScopeMetrics[0].Metrics, 3)
}

func TestInstruments_InvalidNameFallsBackToNoop(t *testing.T) {
	mp := sdkmetric.NewMeterProvider()
	t.Cleanup(func() { _ = mp.Shutdown(context.Background()) })
	meter := mp.Meter("test")

	// 非法仪表名导致 SDK 拒绝创建，降级为 noop 后记录不 panic
	counter := Int64Counter(meter, "", "invalid", "")
	require.NotNil(t, counter)
	counter.Add(context.Background(), 1)
}

func TestServiceIdentity(t *testing.T) {
	id := ServiceIdentity("order-service")

	assert.Equal(t, "order-service", id.String())

	attr := id.Attr()
	assert.Equal(t, LabelService, string(attr.Key))
	assert.Equal(t, "order-service", attr.Value.AsString())
}
