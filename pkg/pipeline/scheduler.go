package pipeline

import (
	"context"
	"errors"
	"slices"
	"sync"

	"golang.org/x/sync/errgroup"
)

// ChunkFunc converts one chunk. It receives the caller's context, not the
// scheduler's admission context, so in-flight work drains after a sibling fails.
type ChunkFunc func(ctx context.Context, chunk Chunk) error

// ChunkFailure records a chunk that failed fatally.
type ChunkFailure struct {
	Chunk int
	Err   error
}

// Outcome lists what happened to every chunk handed to Scheduler.Run.
// Each chunk index appears in exactly one of the three lists.
type Outcome struct {
	Completed   []int
	Failed      []ChunkFailure
	NotAdmitted []int
}

// Err joins the failures, or returns nil when every chunk completed.
func (o Outcome) Err() error {
	errs := make([]error, 0, len(o.Failed))
	for _, f := range o.Failed {
		errs = append(errs, f.Err)
	}

	return errors.Join(errs...)
}

// Scheduler runs chunks on a bounded pool of at most Workers concurrent
// conversions. Submission follows ascending chunk order and blocks while all
// slots are busy; completion order is unspecified.
type Scheduler struct {
	Workers int
}

// Run submits every chunk exactly once and returns after all admitted chunks
// have finished. After the first failure no further chunk is admitted.
func (s *Scheduler) Run(ctx context.Context, chunks []Chunk, work ChunkFunc) Outcome {
	workers := max(s.Workers, 1)

	group, admitCtx := errgroup.WithContext(ctx)
	group.SetLimit(workers)

	var (
		mu      sync.Mutex
		outcome Outcome
	)

	for pos, chunk := range chunks {
		if admitCtx.Err() != nil {
			mu.Lock()

			for _, rest := range chunks[pos:] {
				outcome.NotAdmitted = append(outcome.NotAdmitted, rest.Index)
			}

			mu.Unlock()

			break
		}

		group.Go(func() error {
			// A slot may free up only after a sibling failed.
			if admitCtx.Err() != nil {
				mu.Lock()
				outcome.NotAdmitted = append(outcome.NotAdmitted, chunk.Index)
				mu.Unlock()

				return nil
			}

			err := work(ctx, chunk)

			mu.Lock()
			defer mu.Unlock()

			if err != nil {
				outcome.Failed = append(outcome.Failed, ChunkFailure{Chunk: chunk.Index, Err: err})

				return err
			}

			outcome.Completed = append(outcome.Completed, chunk.Index)

			return nil
		})
	}

	_ = group.Wait() //nolint:errcheck // failures are collected in outcome.

	slices.Sort(outcome.Completed)
	slices.Sort(outcome.NotAdmitted)
	slices.SortFunc(outcome.Failed, func(a, b ChunkFailure) int { return a.Chunk - b.Chunk })

	return outcome
}
