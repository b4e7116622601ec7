package observability

import (
	"context"
	"fmt"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/metric"
)

const (
	metricSamplesTotal  = "imgshard.samples.total"
	metricSkippedTotal  = "imgshard.samples.skipped.total"
	metricBytesTotal    = "imgshard.bytes.total"
	metricChunksTotal   = "imgshard.chunks.total"
	metricChunkDuration = "imgshard.chunk.duration.seconds"
	metricChunksActive  = "imgshard.chunks.inflight"

	attrSplit  = "split"
	attrStatus = "status"

	// StatusOK marks a chunk whose shard was written.
	StatusOK = "ok"
	// StatusError marks a chunk that failed.
	StatusError = "error"
)

// durationBucketBoundaries covers 10ms to 600s: a chunk ranges from a handful
// of small files to tens of thousands of images.
var durationBucketBoundaries = []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60, 120, 300, 600}

// ChunkStats describes one finished chunk conversion.
type ChunkStats struct {
	Rows     int
	Skipped  int
	Bytes    int64
	Duration time.Duration
	Failed   bool
}

// ConversionMetrics holds the OTel instruments for chunk conversion.
// A nil *ConversionMetrics is valid and records nothing.
type ConversionMetrics struct {
	samplesTotal  metric.Int64Counter
	skippedTotal  metric.Int64Counter
	bytesTotal    metric.Int64Counter
	chunksTotal   metric.Int64Counter
	chunkDuration metric.Float64Histogram
	chunksActive  metric.Int64UpDownCounter
}

// NewConversionMetrics creates conversion instruments from the given meter.
func NewConversionMetrics(mt metric.Meter) (*ConversionMetrics, error) {
	samples, err := mt.Int64Counter(metricSamplesTotal,
		metric.WithDescription("Samples written to shards"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSamplesTotal, err)
	}

	skipped, err := mt.Int64Counter(metricSkippedTotal,
		metric.WithDescription("Samples dropped because they could not be read"),
		metric.WithUnit("{sample}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricSkippedTotal, err)
	}

	bytesTotal, err := mt.Int64Counter(metricBytesTotal,
		metric.WithDescription("Bytes written to shard files"),
		metric.WithUnit("By"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricBytesTotal, err)
	}

	chunks, err := mt.Int64Counter(metricChunksTotal,
		metric.WithDescription("Chunks converted, by status"),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricChunksTotal, err)
	}

	duration, err := mt.Float64Histogram(metricChunkDuration,
		metric.WithDescription("Chunk conversion duration in seconds"),
		metric.WithUnit("s"),
		metric.WithExplicitBucketBoundaries(durationBucketBoundaries...),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricChunkDuration, err)
	}

	active, err := mt.Int64UpDownCounter(metricChunksActive,
		metric.WithDescription("Chunks currently being converted"),
		metric.WithUnit("{chunk}"),
	)
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", metricChunksActive, err)
	}

	return &ConversionMetrics{
		samplesTotal:  samples,
		skippedTotal:  skipped,
		bytesTotal:    bytesTotal,
		chunksTotal:   chunks,
		chunkDuration: duration,
		chunksActive:  active,
	}, nil
}

// RecordChunk records a finished chunk for the given split.
func (cm *ConversionMetrics) RecordChunk(ctx context.Context, split string, stats ChunkStats) {
	if cm == nil {
		return
	}

	status := StatusOK
	if stats.Failed {
		status = StatusError
	}

	splitAttr := metric.WithAttributes(attribute.String(attrSplit, split))

	cm.chunksTotal.Add(ctx, 1, metric.WithAttributes(
		attribute.String(attrSplit, split),
		attribute.String(attrStatus, status),
	))
	cm.chunkDuration.Record(ctx, stats.Duration.Seconds(), splitAttr)

	if stats.Failed {
		return
	}

	cm.samplesTotal.Add(ctx, int64(stats.Rows), splitAttr)
	cm.skippedTotal.Add(ctx, int64(stats.Skipped), splitAttr)
	cm.bytesTotal.Add(ctx, stats.Bytes, splitAttr)
}

// TrackInflight increments the in-flight gauge and returns a function to decrement it.
func (cm *ConversionMetrics) TrackInflight(ctx context.Context, split string) func() {
	if cm == nil {
		return func() {}
	}

	attrs := metric.WithAttributes(attribute.String(attrSplit, split))
	cm.chunksActive.Add(ctx, 1, attrs)

	return func() {
		cm.chunksActive.Add(ctx, -1, attrs)
	}
}
