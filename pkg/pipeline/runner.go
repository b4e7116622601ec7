package pipeline

import (
	"context"
	"fmt"
	"log/slog"
	"math/rand/v2"
	"os"
	"path/filepath"
	"slices"
	"time"

	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	nooptrace "go.opentelemetry.io/otel/trace/noop"

	"github.com/Sumatoshi-tech/imgshard/pkg/dataset"
	"github.com/Sumatoshi-tech/imgshard/pkg/metadata"
	"github.com/Sumatoshi-tech/imgshard/pkg/observability"
	"github.com/Sumatoshi-tech/imgshard/pkg/shard"
)

// Span names.
const (
	spanConvert = "imgshard.convert"
	spanSplit   = "imgshard.split"
	spanChunk   = "imgshard.chunk"
)

// outputDirPerm is the permission used for created output directories.
const outputDirPerm = 0o755

// SplitSummary describes one converted split.
type SplitSummary struct {
	Name string
	Root string
	// Samples is the number of discovered samples; Rows is what reached shards.
	Samples     int
	Rows        int
	Bytes       int64
	Files       []string
	FileRows    []int
	Skipped     []string
	ScanSkipped int
	// Labels is the vocabulary of the written rows, sorted.
	Labels   []string
	Duration time.Duration
}

// Summary describes a completed conversion run.
type Summary struct {
	OutputDir   string
	Fingerprint string
	Format      string
	ChunkSize   int
	Workers     int
	Seed        uint64
	Splits      []SplitSummary
	Duration    time.Duration
}

// RunnerOption customizes a Runner.
type RunnerOption func(*Runner)

// WithLogger sets the runner's logger.
func WithLogger(logger *slog.Logger) RunnerOption {
	return func(r *Runner) { r.logger = logger }
}

// WithTracer sets the tracer used for run, split and chunk spans.
func WithTracer(tracer trace.Tracer) RunnerOption {
	return func(r *Runner) { r.tracer = tracer }
}

// WithMetrics sets the conversion metric instruments.
func WithMetrics(metrics *observability.ConversionMetrics) RunnerOption {
	return func(r *Runner) { r.metrics = metrics }
}

// Runner converts splits one after another; chunks within a split run on a
// bounded pool. Metadata is written once, after every split has joined.
type Runner struct {
	opts    Options
	logger  *slog.Logger
	tracer  trace.Tracer
	metrics *observability.ConversionMetrics
}

// NewRunner creates a runner for opts.
func NewRunner(opts Options, runnerOpts ...RunnerOption) *Runner {
	r := &Runner{
		opts:   opts,
		logger: slog.Default(),
		tracer: nooptrace.NewTracerProvider().Tracer("imgshard"),
	}

	for _, opt := range runnerOpts {
		opt(r)
	}

	return r
}

// Run converts splits in order and writes dataset_info.json and state.json.
// A required split with no samples returns *dataset.EmptyDatasetError; a chunk
// failure returns *RunFailure. In both cases no metadata is written.
func (r *Runner) Run(ctx context.Context, splits []Split) (*Summary, error) {
	err := r.opts.Validate(splits)
	if err != nil {
		return nil, fmt.Errorf("invalid options: %w", err)
	}

	start := time.Now()

	ctx, span := r.tracer.Start(ctx, spanConvert, trace.WithAttributes(
		attribute.String("output", r.opts.OutputDir),
		attribute.Int("chunk_size", r.opts.ChunkSize),
		attribute.Int("threads", r.opts.Workers),
	))
	defer span.End()

	err = os.MkdirAll(r.opts.OutputDir, outputDirPerm)
	if err != nil {
		return nil, fmt.Errorf("create output directory: %w", err)
	}

	summary := &Summary{
		OutputDir:   r.opts.OutputDir,
		Fingerprint: metadata.NewFingerprint(),
		Format:      r.opts.Encoder.Format(),
		ChunkSize:   r.opts.ChunkSize,
		Workers:     r.opts.Workers,
		Seed:        r.opts.Seed,
	}

	rng := dataset.NewRand(r.opts.Seed)

	for _, split := range splits {
		splitSummary, splitErr := r.runSplit(ctx, split, rng)
		if splitErr != nil {
			span.RecordError(splitErr)
			span.SetStatus(codes.Error, "split failed")

			return summary, splitErr
		}

		if splitSummary != nil {
			summary.Splits = append(summary.Splits, *splitSummary)
		}
	}

	r.logger.DebugContext(ctx, "pipeline stage", "stage", StageFinalizing.String())

	err = metadata.Write(r.opts.OutputDir, r.datasetInfo(summary), r.state(summary))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "metadata failed")

		return summary, fmt.Errorf("write metadata: %w", err)
	}

	summary.Duration = time.Since(start)

	r.logger.InfoContext(ctx, "dataset saved",
		"output", r.opts.OutputDir, "splits", len(summary.Splits), "duration", summary.Duration)

	return summary, nil
}

func (r *Runner) runSplit(ctx context.Context, split Split, rng *rand.Rand) (*SplitSummary, error) {
	start := time.Now()

	ctx, span := r.tracer.Start(ctx, spanSplit, trace.WithAttributes(attribute.String("split", split.Name)))
	defer span.End()

	logger := r.logger.With("split", split.Name)
	enter := func(stage Stage) {
		logger.DebugContext(ctx, "pipeline stage", "stage", stage.String())
	}

	if split.Root == "" {
		logger.InfoContext(ctx, "split not configured, skipping")

		return nil, nil //nolint:nilnil // skipped optional split.
	}

	enter(StageScanning)
	logger.InfoContext(ctx, "scanning split", "root", split.Root)

	scanner := &dataset.Scanner{Extension: r.opts.Extension, Label: r.opts.Label, Logger: logger}

	samples, report, err := scanner.Scan(ctx, split.Root)
	if err != nil {
		enter(StageFailed)

		return nil, err
	}

	index := dataset.NewIndex(split.Name, samples)

	enter(StageIndexed)

	if index.Len() == 0 {
		if split.Required {
			enter(StageFailed)

			return nil, &dataset.EmptyDatasetError{Split: split.Name, Root: split.Root}
		}

		logger.InfoContext(ctx, "split is empty, skipping", "root", split.Root)

		return nil, nil //nolint:nilnil // skipped optional split.
	}

	logger.InfoContext(ctx, "shuffling split", "samples", index.Len())
	index.Shuffle(rng)
	enter(StageShuffled)

	dir := filepath.Join(r.opts.OutputDir, split.Name)

	err = os.MkdirAll(dir, outputDirPerm)
	if err != nil {
		enter(StageFailed)

		return nil, fmt.Errorf("create split directory: %w", err)
	}

	chunks := Plan(index.Len(), r.opts.ChunkSize)
	span.SetAttributes(attribute.Int("samples", index.Len()), attribute.Int("chunks", len(chunks)))

	enter(StageScheduling)
	logger.InfoContext(ctx, "saving split",
		"samples", index.Len(), "chunks", len(chunks), "labels", len(index.Labels()))

	converter := &shard.Converter{
		Dir:            dir,
		Split:          split.Name,
		Encoder:        r.opts.Encoder,
		Policy:         r.opts.Policy,
		MaxSampleBytes: r.opts.MaxSampleBytes,
		Logger:         logger,
	}

	results := make([]shard.Result, len(chunks))
	scheduler := &Scheduler{Workers: r.opts.Workers}

	enter(StageConverting)

	outcome := scheduler.Run(ctx, chunks, func(ctx context.Context, chunk Chunk) error {
		result, convErr := r.convertChunk(ctx, converter, index, chunk)
		if convErr != nil {
			return convErr
		}

		results[chunk.Index] = result

		return nil
	})

	if len(outcome.Failed) > 0 || len(outcome.NotAdmitted) > 0 {
		enter(StageFailed)

		return nil, r.failure(ctx, split.Name, len(chunks), outcome, results)
	}

	enter(StageJoined)

	summary := &SplitSummary{
		Name:        split.Name,
		Root:        split.Root,
		Samples:     index.Len(),
		ScanSkipped: len(report.Skipped),
	}

	for _, res := range results {
		summary.Rows += res.Rows
		summary.Bytes += res.Bytes
		summary.Files = append(summary.Files, res.File)
		summary.FileRows = append(summary.FileRows, res.Rows)
		summary.Skipped = append(summary.Skipped, res.Skipped...)
		summary.Labels = append(summary.Labels, res.Labels...)
	}

	slices.Sort(summary.Labels)
	summary.Labels = slices.Compact(summary.Labels)

	summary.Duration = time.Since(start)

	return summary, nil
}

func (r *Runner) convertChunk(
	ctx context.Context, converter *shard.Converter, index *dataset.Index, chunk Chunk,
) (shard.Result, error) {
	ctx, span := r.tracer.Start(ctx, spanChunk, trace.WithAttributes(
		attribute.String("split", index.Split()),
		attribute.Int("chunk", chunk.Index),
		attribute.Int("samples", chunk.Len()),
	))
	defer span.End()

	done := r.metrics.TrackInflight(ctx, index.Split())
	defer done()

	start := time.Now()

	result, err := converter.Convert(ctx, shard.Job{
		Index:   chunk.Index,
		Total:   chunk.Total,
		Samples: index.Slice(chunk.Start, chunk.End),
	})
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, "chunk failed")

		r.metrics.RecordChunk(ctx, index.Split(), observability.ChunkStats{
			Failed:   true,
			Duration: time.Since(start),
		})

		return shard.Result{}, err
	}

	r.metrics.RecordChunk(ctx, index.Split(), observability.ChunkStats{
		Rows:     result.Rows,
		Skipped:  len(result.Skipped),
		Bytes:    result.Bytes,
		Duration: result.Duration,
	})

	return result, nil
}

func (r *Runner) failure(
	ctx context.Context, split string, total int, outcome Outcome, results []shard.Result,
) error {
	completed := make([]string, 0, len(outcome.Completed))
	for _, idx := range outcome.Completed {
		completed = append(completed, filepath.Join(split, results[idx].File))
	}

	if len(outcome.Failed) == 0 {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return fmt.Errorf("split %q interrupted after %d of %d chunks: %w", split, len(completed), total, ctxErr)
		}
	}

	failure := &RunFailure{
		Split:       split,
		Total:       total,
		Failed:      outcome.Failed,
		NotAdmitted: outcome.NotAdmitted,
		Completed:   completed,
	}

	for _, f := range outcome.Failed {
		r.logger.ErrorContext(ctx, "chunk failed", "split", split, "chunk", f.Chunk, "error", f.Err)
	}

	return failure
}

func (r *Runner) datasetInfo(summary *Summary) *metadata.DatasetInfo {
	splits := make(map[string]metadata.SplitInfo, len(summary.Splits))

	var (
		labels []string
		total  int
	)

	for _, s := range summary.Splits {
		splits[s.Name] = metadata.SplitInfo{
			Name:        s.Name,
			NumExamples: s.Rows,
			NumShards:   len(s.Files),
			NumBytes:    s.Bytes,
		}

		total += s.Rows
		labels = append(labels, s.Labels...)
	}

	slices.Sort(labels)

	return &metadata.DatasetInfo{
		DatasetName: r.opts.DatasetName,
		DatasetType: metadata.DatasetTypeImageFolder,
		Format:      summary.Format,
		Features:    metadata.ImageFeatures(slices.Compact(labels)),
		Splits:      splits,
		NumSamples:  total,
	}
}

func (r *Runner) state(summary *Summary) *metadata.State {
	state := &metadata.State{
		DataFiles:   make([]metadata.DataFile, 0),
		SplitFiles:  make(map[string][]string, len(summary.Splits)),
		Type:        summary.Format,
		Fingerprint: summary.Fingerprint,
		ChunkSize:   summary.ChunkSize,
		ThreadCount: summary.Workers,
		Seed:        summary.Seed,
		CreatedAt:   time.Now().UTC().Truncate(time.Second),
	}

	for _, s := range summary.Splits {
		state.SplitFiles[s.Name] = s.Files

		for i, name := range s.Files {
			state.DataFiles = append(state.DataFiles, metadata.DataFile{
				Filename: filepath.ToSlash(filepath.Join(s.Name, name)),
				Split:    s.Name,
				NumRows:  s.FileRows[i],
			})
		}
	}

	return state
}
