package observability_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	sdkmetric "go.opentelemetry.io/otel/sdk/metric"
	"go.opentelemetry.io/otel/sdk/metric/metricdata"

	"github.com/Sumatoshi-tech/imgshard/pkg/observability"
)

func setupTestMeter(t *testing.T) (*observability.ConversionMetrics, *sdkmetric.ManualReader) {
	t.Helper()

	reader := sdkmetric.NewManualReader()
	mp := sdkmetric.NewMeterProvider(sdkmetric.WithReader(reader))
	meter := mp.Meter("test")

	cm, err := observability.NewConversionMetrics(meter)
	require.NoError(t, err)

	return cm, reader
}

func collectMetrics(t *testing.T, reader *sdkmetric.ManualReader) metricdata.ResourceMetrics {
	t.Helper()

	var rm metricdata.ResourceMetrics

	err := reader.Collect(context.Background(), &rm)
	require.NoError(t, err)

	return rm
}

func findMetric(rm metricdata.ResourceMetrics, name string) *metricdata.Metrics {
	for idx := range rm.ScopeMetrics {
		for midx := range rm.ScopeMetrics[idx].Metrics {
			if rm.ScopeMetrics[idx].Metrics[midx].Name == name {
				return &rm.ScopeMetrics[idx].Metrics[midx]
			}
		}
	}

	return nil
}

func sumValue(t *testing.T, m *metricdata.Metrics) int64 {
	t.Helper()

	require.NotNil(t, m)

	sum, ok := m.Data.(metricdata.Sum[int64])
	require.True(t, ok, "metric %s is not an int64 sum", m.Name)

	var total int64
	for _, dp := range sum.DataPoints {
		total += dp.Value
	}

	return total
}

func TestConversionMetrics_RecordChunk(t *testing.T) {
	t.Parallel()
	cm, reader := setupTestMeter(t)
	ctx := context.Background()

	cm.RecordChunk(ctx, "train", observability.ChunkStats{
		Rows: 4, Skipped: 1, Bytes: 2048, Duration: 150 * time.Millisecond,
	})
	cm.RecordChunk(ctx, "train", observability.ChunkStats{Rows: 3, Bytes: 1024, Duration: time.Second})

	rm := collectMetrics(t, reader)

	assert.Equal(t, int64(7), sumValue(t, findMetric(rm, "imgshard.samples.total")))
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "imgshard.samples.skipped.total")))
	assert.Equal(t, int64(3072), sumValue(t, findMetric(rm, "imgshard.bytes.total")))
	assert.Equal(t, int64(2), sumValue(t, findMetric(rm, "imgshard.chunks.total")))
	require.NotNil(t, findMetric(rm, "imgshard.chunk.duration.seconds"))
}

func TestConversionMetrics_FailedChunkCountsOnlyStatus(t *testing.T) {
	t.Parallel()
	cm, reader := setupTestMeter(t)

	cm.RecordChunk(context.Background(), "validation", observability.ChunkStats{Rows: 9, Failed: true})

	rm := collectMetrics(t, reader)

	chunks := findMetric(rm, "imgshard.chunks.total")
	require.NotNil(t, chunks)

	sum, ok := chunks.Data.(metricdata.Sum[int64])
	require.True(t, ok)
	require.Len(t, sum.DataPoints, 1)

	status, found := sum.DataPoints[0].Attributes.Value("status")
	require.True(t, found)
	assert.Equal(t, observability.StatusError, status.AsString())

	samples := findMetric(rm, "imgshard.samples.total")
	if samples != nil {
		assert.Zero(t, sumValue(t, samples))
	}
}

func TestConversionMetrics_TrackInflight(t *testing.T) {
	t.Parallel()
	cm, reader := setupTestMeter(t)
	ctx := context.Background()

	done := cm.TrackInflight(ctx, "train")

	rm := collectMetrics(t, reader)
	assert.Equal(t, int64(1), sumValue(t, findMetric(rm, "imgshard.chunks.inflight")))

	done()

	rm = collectMetrics(t, reader)
	assert.Equal(t, int64(0), sumValue(t, findMetric(rm, "imgshard.chunks.inflight")))
}

func TestConversionMetrics_NilIsNoop(t *testing.T) {
	t.Parallel()

	var cm *observability.ConversionMetrics

	assert.NotPanics(t, func() {
		done := cm.TrackInflight(context.Background(), "train")
		cm.RecordChunk(context.Background(), "train", observability.ChunkStats{Rows: 1})
		done()
	})
}

func TestNewConversionMetrics_WithNoopMeter(t *testing.T) {
	t.Parallel()

	providers, err := observability.Init(observability.DefaultConfig())
	require.NoError(t, err)

	t.Cleanup(func() { require.NoError(t, providers.Shutdown(context.Background())) })

	cm, err := observability.NewConversionMetrics(providers.Meter)
	require.NoError(t, err)
	assert.NotNil(t, cm)

	cm.RecordChunk(context.Background(), "train", observability.ChunkStats{Rows: 1, Duration: time.Millisecond})
}
