// Package dataset discovers labeled image samples on disk and holds them in a
// shuffleable per-split index.
package dataset

import (
	"path/filepath"
)

// Sample is one discovered image file paired with its label.
// The label is fixed at scan time and never recomputed.
type Sample struct {
	Path  string
	Label string
}

// LabelFunc maps a sample path to its label. The boolean result reports
// whether the path carries a usable label; paths without one are not sampled.
type LabelFunc func(path string) (string, bool)

// ParentDirLabel labels a file with the name of its immediate parent directory.
func ParentDirLabel(path string) (string, bool) {
	parent := filepath.Base(filepath.Dir(path))
	if parent == "." || parent == string(filepath.Separator) || parent == "" {
		return "", false
	}

	return parent, true
}
