package shard

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"slices"
	"time"

	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/Sumatoshi-tech/imgshard/pkg/dataset"
)

// ReadPolicy decides what happens when a sample cannot be read.
type ReadPolicy string

// Supported read policies.
const (
	// ReadPolicyFail fails the whole chunk; no shard is written for it.
	ReadPolicyFail ReadPolicy = "fail"
	// ReadPolicySkip drops the sample's payload and label together.
	ReadPolicySkip ReadPolicy = "skip"
)

// ParseReadPolicy validates a policy name. Empty means ReadPolicyFail.
func ParseReadPolicy(name string) (ReadPolicy, error) {
	switch ReadPolicy(name) {
	case "", ReadPolicyFail:
		return ReadPolicyFail, nil
	case ReadPolicySkip:
		return ReadPolicySkip, nil
	default:
		return "", fmt.Errorf("%w: %q", ErrUnknownReadPolicy, name)
	}
}

// Job is one chunk handed to a converter: a read-only view of the shuffled
// index plus the chunk's position.
type Job struct {
	Index   int
	Total   int
	Samples []dataset.Sample
}

// Result describes a shard written for one chunk.
type Result struct {
	Index   int
	File    string // shard file name, relative to the split directory
	Path    string
	Rows    int
	Bytes   int64
	Skipped []string
	// Labels is the sorted, de-duplicated vocabulary of the rows written.
	Labels   []string
	Duration time.Duration
}

// Converter reads a chunk's samples and writes them as one shard.
type Converter struct {
	// Dir is the split output directory. It must exist.
	Dir     string
	Split   string
	Encoder Encoder
	Policy  ReadPolicy
	// MaxSampleBytes rejects larger samples as read failures. Zero disables the check.
	MaxSampleBytes int64
	Allocator      memory.Allocator
	Logger         *slog.Logger
}

// Convert materializes job as a record batch and writes its shard.
// Sample read failures follow the converter's policy; a write failure is
// returned as a *ShardWriteError and leaves no file behind.
func (c *Converter) Convert(ctx context.Context, job Job) (Result, error) {
	start := time.Now()
	name := ShardName(job.Index, job.Total, c.Encoder.Extension())
	path := filepath.Join(c.Dir, name)

	payloads := make([][]byte, 0, len(job.Samples))
	labels := make([]string, 0, len(job.Samples))

	var skipped []string

	for _, sample := range job.Samples {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return Result{}, fmt.Errorf("chunk %d: %w", job.Index, ctxErr)
		}

		data, err := c.readSample(sample.Path)
		if err != nil {
			if c.Policy != ReadPolicySkip {
				return Result{}, fmt.Errorf("chunk %d: %w", job.Index, err)
			}

			c.logger().WarnContext(ctx, "skipping unreadable sample",
				"split", c.Split, "chunk", job.Index, "path", sample.Path, "error", err)

			skipped = append(skipped, sample.Path)

			continue
		}

		payloads = append(payloads, data)
		labels = append(labels, sample.Label)
	}

	rec, err := BuildRecord(c.Allocator, payloads, labels)
	if err != nil {
		return Result{}, fmt.Errorf("chunk %d: %w", job.Index, err)
	}
	defer rec.Release()

	written, err := WriteFile(c.Dir, name, c.Encoder, rec)
	if err != nil {
		return Result{}, &ShardWriteError{Split: c.Split, Chunk: job.Index, Path: path, Err: err}
	}

	result := Result{
		Index:    job.Index,
		File:     name,
		Path:     path,
		Rows:     int(rec.NumRows()),
		Bytes:    written,
		Skipped:  skipped,
		Labels:   vocabulary(labels),
		Duration: time.Since(start),
	}

	c.logger().InfoContext(ctx, "saved chunk",
		"split", c.Split, "chunk", job.Index, "rows", result.Rows, "file", path)

	return result, nil
}

func (c *Converter) readSample(path string) ([]byte, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, &SampleReadError{Path: path, Err: err}
	}
	defer f.Close()

	if c.MaxSampleBytes > 0 {
		info, statErr := f.Stat()
		if statErr != nil {
			return nil, &SampleReadError{Path: path, Err: statErr}
		}

		if info.Size() > c.MaxSampleBytes {
			return nil, &SampleReadError{
				Path: path,
				Err:  fmt.Errorf("%w: %d > %d bytes", ErrSampleTooLarge, info.Size(), c.MaxSampleBytes),
			}
		}
	}

	data, err := io.ReadAll(f)
	if err != nil {
		return nil, &SampleReadError{Path: path, Err: err}
	}

	return data, nil
}

func (c *Converter) logger() *slog.Logger {
	if c.Logger == nil {
		return slog.Default()
	}

	return c.Logger
}

func vocabulary(labels []string) []string {
	vocab := slices.Clone(labels)
	slices.Sort(vocab)

	return slices.Compact(vocab)
}
