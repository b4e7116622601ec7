package pipeline

import (
	"errors"
	"fmt"
)

// ErrRunFailed indicates at least one chunk of a split failed fatally.
var ErrRunFailed = errors.New("conversion run failed")

// RunFailure reports a split whose chunks did not all complete. Metadata is
// not written for a failed run; shards listed in Completed remain on disk.
type RunFailure struct {
	Split       string
	Total       int
	Failed      []ChunkFailure
	NotAdmitted []int
	Completed   []string
}

func (e *RunFailure) Error() string {
	indices := make([]int, 0, len(e.Failed))
	for _, f := range e.Failed {
		indices = append(indices, f.Chunk)
	}

	msg := fmt.Sprintf("split %q: %d of %d chunks failed (chunks %v)", e.Split, len(e.Failed), e.Total, indices)

	if len(e.NotAdmitted) > 0 {
		msg += fmt.Sprintf(", %d not started (chunks %v)", len(e.NotAdmitted), e.NotAdmitted)
	}

	if len(e.Failed) > 0 {
		msg += ": " + e.Failed[0].Err.Error()
	}

	return msg
}

// Unwrap exposes ErrRunFailed and every chunk failure.
func (e *RunFailure) Unwrap() []error {
	errs := make([]error, 0, len(e.Failed)+1)
	errs = append(errs, ErrRunFailed)

	for _, f := range e.Failed {
		errs = append(errs, f.Err)
	}

	return errs
}
