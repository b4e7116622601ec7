package dataset

import (
	"context"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"strings"
)

// DefaultExtension is the image extension scanned when none is configured.
const DefaultExtension = "webp"

// ScanReport summarizes a best-effort scan.
type ScanReport struct {
	Root    string
	Files   int // regular files visited, matching or not
	Skipped []*ScanError
}

// Scanner recursively discovers image files and labels them.
type Scanner struct {
	// Extension is matched case-sensitively, with or without the leading dot.
	Extension string
	// Label derives the sample label from its path. Nil means ParentDirLabel.
	Label  LabelFunc
	Logger *slog.Logger
}

// NewScanner creates a scanner for the given extension using parent-directory labels.
func NewScanner(extension string, logger *slog.Logger) *Scanner {
	return &Scanner{
		Extension: extension,
		Label:     ParentDirLabel,
		Logger:    logger,
	}
}

// Scan walks root and returns one Sample per matching file. Unreadable entries
// are logged, recorded in the report and skipped; the walk never aborts on them.
// The only error returned is context cancellation.
func (s *Scanner) Scan(ctx context.Context, root string) ([]Sample, ScanReport, error) {
	report := ScanReport{Root: root}
	suffix := s.suffix()
	label := s.Label

	if label == nil {
		label = ParentDirLabel
	}

	var samples []Sample

	walkErr := filepath.WalkDir(root, func(path string, entry fs.DirEntry, err error) error {
		ctxErr := ctx.Err()
		if ctxErr != nil {
			return ctxErr
		}

		if err != nil {
			s.skip(&report, path, err)

			if entry != nil && entry.IsDir() && path != root {
				return fs.SkipDir
			}

			return nil
		}

		if entry.IsDir() {
			return nil
		}

		regular, statErr := isRegular(path, entry)
		if statErr != nil {
			s.skip(&report, path, statErr)

			return nil
		}

		if !regular {
			return nil
		}

		report.Files++

		if filepath.Ext(path) != suffix {
			return nil
		}

		name, ok := label(path)
		if !ok {
			return nil
		}

		samples = append(samples, Sample{Path: path, Label: name})

		return nil
	})
	if walkErr != nil {
		if errors.Is(walkErr, context.Canceled) || errors.Is(walkErr, context.DeadlineExceeded) {
			return nil, report, fmt.Errorf("scan %s: %w", root, walkErr)
		}

		s.skip(&report, root, walkErr)
	}

	return samples, report, nil
}

func (s *Scanner) suffix() string {
	ext := s.Extension
	if ext == "" {
		ext = DefaultExtension
	}

	if strings.HasPrefix(ext, ".") {
		return ext
	}

	return "." + ext
}

func (s *Scanner) skip(report *ScanReport, path string, err error) {
	scanErr := &ScanError{Path: path, Err: err}
	report.Skipped = append(report.Skipped, scanErr)

	s.logger().Warn("skipping unreadable entry", "path", path, "error", err)
}

func (s *Scanner) logger() *slog.Logger {
	if s.Logger == nil {
		return slog.Default()
	}

	return s.Logger
}

// isRegular reports whether the entry is a regular file, following symlinks.
func isRegular(path string, entry fs.DirEntry) (bool, error) {
	if entry.Type()&fs.ModeSymlink == 0 {
		return entry.Type().IsRegular(), nil
	}

	info, err := os.Stat(path)
	if err != nil {
		return false, fmt.Errorf("follow symlink: %w", err)
	}

	return info.Mode().IsRegular(), nil
}
