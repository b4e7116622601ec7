package dataset

import (
	"errors"
	"fmt"
)

var (
	// ErrEmptyDataset indicates a mandatory split produced no samples.
	ErrEmptyDataset = errors.New("dataset is empty")
	// ErrScan indicates an entry of the source tree could not be read.
	ErrScan = errors.New("scan failed")
)

// ScanError describes one unreadable entry skipped during a scan.
type ScanError struct {
	Path string
	Err  error
}

func (e *ScanError) Error() string {
	return fmt.Sprintf("scan %s: %v", e.Path, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *ScanError) Unwrap() []error {
	return []error{ErrScan, e.Err}
}

// EmptyDatasetError reports the split that yielded zero samples.
type EmptyDatasetError struct {
	Split string
	Root  string
}

func (e *EmptyDatasetError) Error() string {
	return fmt.Sprintf("split %q: no samples found under %s", e.Split, e.Root)
}

func (e *EmptyDatasetError) Unwrap() error {
	return ErrEmptyDataset
}
