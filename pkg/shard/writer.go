package shard

import (
	"bufio"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/apache/arrow-go/v18/arrow"
)

// writeBufferSize is the buffered writer size used for shard bodies.
const writeBufferSize = 1 << 20

// countingWriter counts bytes passing through to the wrapped writer.
type countingWriter struct {
	w io.Writer
	n int64
}

func (cw *countingWriter) Write(p []byte) (int, error) {
	n, err := cw.w.Write(p)
	cw.n += int64(n)

	return n, err //nolint:wrapcheck // pass-through writer.
}

// WriteFile encodes rec into dir/name without ever exposing a partial file:
// the body goes to a hidden temp file that is synced and hard-linked into
// place on success and removed in every case. An existing dir/name is never replaced.
// It returns the number of bytes written.
func WriteFile(dir, name string, enc Encoder, rec arrow.Record) (int64, error) {
	final := filepath.Join(dir, name)

	_, statErr := os.Lstat(final)
	if statErr == nil {
		return 0, fmt.Errorf("%w: %s", ErrShardExists, final)
	}

	if !errors.Is(statErr, fs.ErrNotExist) {
		return 0, fmt.Errorf("stat %s: %w", final, statErr)
	}

	tmp, err := os.CreateTemp(dir, "."+name+".*.tmp")
	if err != nil {
		return 0, fmt.Errorf("create temp shard: %w", err)
	}

	tmpName := tmp.Name()

	written, err := writeBody(tmp, enc, rec)
	if err != nil {
		_ = tmp.Close()
		_ = os.Remove(tmpName)

		return 0, err
	}

	closeErr := tmp.Close()
	if closeErr != nil {
		_ = os.Remove(tmpName)

		return 0, fmt.Errorf("close temp shard: %w", closeErr)
	}

	err = publish(tmpName, final)
	if err != nil {
		return 0, err
	}

	return written, nil
}

// publish moves the finished temp file to final. The hard link fails with
// fs.ErrExist when final appeared after the Lstat check, so an existing shard
// is never replaced. The temp file is gone when publish returns.
func publish(tmpName, final string) error {
	defer func() { _ = os.Remove(tmpName) }()

	err := os.Link(tmpName, final)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrShardExists, final)
	}

	if err != nil {
		return fmt.Errorf("publish shard: %w", err)
	}

	return nil
}

func writeBody(file *os.File, enc Encoder, rec arrow.Record) (int64, error) {
	buffered := bufio.NewWriterSize(file, writeBufferSize)
	counter := &countingWriter{w: buffered}

	err := enc.Encode(counter, rec)
	if err != nil {
		return 0, fmt.Errorf("encode shard: %w", err)
	}

	err = buffered.Flush()
	if err != nil {
		return 0, fmt.Errorf("flush shard: %w", err)
	}

	err = file.Sync()
	if err != nil {
		return 0, fmt.Errorf("sync shard: %w", err)
	}

	return counter.n, nil
}
