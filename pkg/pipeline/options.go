// Package pipeline drives the chunked, bounded-concurrency conversion of
// labeled image splits into columnar shards.
package pipeline

import (
	"errors"
	"fmt"

	"github.com/Sumatoshi-tech/imgshard/pkg/dataset"
	"github.com/Sumatoshi-tech/imgshard/pkg/shard"
)

// Conventional split names.
const (
	SplitTrain      = "train"
	SplitValidation = "validation"
)

// Sentinel option errors.
var (
	ErrInvalidChunkSize   = errors.New("chunk size must be positive")
	ErrInvalidWorkers     = errors.New("thread count must be positive")
	ErrMissingOutput      = errors.New("output directory is required")
	ErrMissingEncoder     = errors.New("shard encoder is required")
	ErrNoSplits           = errors.New("no splits to convert")
	ErrDuplicateSplit     = errors.New("duplicate split name")
	ErrMissingSplitSource = errors.New("split source directory is required")
)

// Split names one partition of the source tree.
type Split struct {
	Name string
	Root string
	// Required splits fail the run when empty; optional ones are skipped.
	Required bool
}

// Options configures one conversion run. It replaces process-wide constants
// so different runs can use different values.
type Options struct {
	OutputDir string
	ChunkSize int
	Workers   int
	Extension string
	// Label maps a sample path to its label. Nil means dataset.ParentDirLabel.
	Label          dataset.LabelFunc
	Encoder        shard.Encoder
	Policy         shard.ReadPolicy
	MaxSampleBytes int64
	// Seed makes the shuffle reproducible. Zero seeds from the process source.
	Seed        uint64
	DatasetName string
}

// Validate checks the options and the split list.
func (o *Options) Validate(splits []Split) error {
	if o.ChunkSize <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidChunkSize, o.ChunkSize)
	}

	if o.Workers <= 0 {
		return fmt.Errorf("%w: %d", ErrInvalidWorkers, o.Workers)
	}

	if o.OutputDir == "" {
		return ErrMissingOutput
	}

	if o.Encoder == nil {
		return ErrMissingEncoder
	}

	if len(splits) == 0 {
		return ErrNoSplits
	}

	seen := make(map[string]bool, len(splits))

	for _, s := range splits {
		if seen[s.Name] {
			return fmt.Errorf("%w: %q", ErrDuplicateSplit, s.Name)
		}

		seen[s.Name] = true

		if s.Root == "" && s.Required {
			return fmt.Errorf("%w: %q", ErrMissingSplitSource, s.Name)
		}
	}

	return nil
}
