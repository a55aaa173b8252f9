package tracking

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"
)

func setupTestMeterProvider(t *testing.T) *sdkmetric.ManualReader {
	t.Helper()
	ResetForTesting()

	reader := sdkmetric.NewManualReader()
	provider := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	otel.SetMeterProvider(provider)

	t.Cleanup(func() {
		_ = provider.Shutdown(context.Background())
		ResetForTesting()
	})

	return reader
}

func collect(t *testing.T, reader *sdkmetric.ManualReader) map[string]metricdata.Metrics {
	t.Helper()
	var rm metricdata.ResourceMetrics
	require.NoError(t, reader.Collect(context.Background(), &rm))

	out := make(map[string]metricdata.Metrics)
	for _, sm := range rm.ScopeMetrics {
		if sm.Scope.Name != meterName {
			continue
		}
		for _, m := range sm.Metrics {
			out[m.Name] = m
		}
	}
	return out
}

func attrValue(set attribute.Set, key string) (attribute.Value, bool) {
	return set.Value(attribute.Key(key))
}

func TestRecordAttempt(t *testing.T) {
	reader := setupTestMeterProvider(t)

	RecordAttempt(context.Background(), "GET", 200, "", 40*time.Millisecond)
	RecordAttempt(context.Background(), "GET", 503, "", 10*time.Millisecond)
	RecordAttempt(context.Background(), "POST", 0, "timeout", time.Second)

	m, ok := collect(t, reader)[metricRequestDuration]
	require.True(t, ok, "expected %s", metricRequestDuration)

	hist, ok := m.Data.(metricdata.Histogram[float64])
	require.True(t, ok)
	require.Len(t, hist.DataPoints, 3)

	byError := map[string]metricdata.HistogramDataPoint[float64]{}
	for _, dp := range hist.DataPoints {
		v, _ := attrValue(dp.Attributes, attrErrorType)
		byError[v.AsString()] = dp
	}

	okPoint := byError[""]
	status, _ := attrValue(okPoint.Attributes, attrStatusCode)
	assert.Equal(t, int64(200), status.AsInt64())

	_, has503 := byError["503"]
	assert.True(t, has503)

	timeout := byError["timeout"]
	method, _ := attrValue(timeout.Attributes, attrMethod)
	assert.Equal(t, "POST", method.AsString())
	_, hasStatus := attrValue(timeout.Attributes, attrStatusCode)
	assert.False(t, hasStatus)
}

func TestRecordCounters(t *testing.T) {
	reader := setupTestMeterProvider(t)
	ctx := context.Background()

	RecordRetry(ctx, "GET", "server")
	RecordRetry(ctx, "GET", "server")
	RecordRefresh(ctx, OutcomeSuccess)
	RecordRefresh(ctx, OutcomeFailure)
	RecordQueuedWaiter(ctx)
	RecordQueuedWaiter(ctx)
	RecordQueuedWaiter(ctx)

	metrics := collect(t, reader)

	sumOf := func(name string) int64 {
		m, ok := metrics[name]
		require.True(t, ok, "expected %s", name)
		sum, ok := m.Data.(metricdata.Sum[int64])
		require.True(t, ok)
		var total int64
		for _, dp := range sum.DataPoints {
			total += dp.Value
		}
		return total
	}

	assert.Equal(t, int64(2), sumOf(metricRetries))
	assert.Equal(t, int64(2), sumOf(metricTokenRefresh))
	assert.Equal(t, int64(3), sumOf(metricQueuedWaiters))

	refreshes := metrics[metricTokenRefresh].Data.(metricdata.Sum[int64])
	assert.Len(t, refreshes.DataPoints, 2)
}

func TestResetForTesting(t *testing.T) {
	setupTestMeterProvider(t)

	RecordRefresh(context.Background(), OutcomeSuccess)
	assert.True(t, IsInitialized())

	ResetForTesting()
	assert.False(t, IsInitialized())
}
