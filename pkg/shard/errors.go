package shard

import (
	"errors"
	"fmt"
)

// Sentinel errors.
var (
	// ErrSampleRead indicates a sample file could not be read during conversion.
	ErrSampleRead = errors.New("sample read failed")
	// ErrSampleTooLarge indicates a sample exceeds the configured size limit.
	ErrSampleTooLarge = errors.New("sample exceeds size limit")
	// ErrShardWrite indicates a shard file could not be written.
	ErrShardWrite = errors.New("shard write failed")
	// ErrShardExists indicates the target shard file already exists.
	ErrShardExists = errors.New("shard already exists")
	// ErrChunkTooLarge indicates a chunk's payloads do not fit in one image column.
	ErrChunkTooLarge = errors.New("chunk payload too large for one shard")
	// ErrColumnMismatch indicates the payload and label columns differ in length.
	ErrColumnMismatch = errors.New("payload and label columns differ in length")
	// ErrUnknownFormat indicates an unsupported shard format.
	ErrUnknownFormat = errors.New("unknown shard format")
	// ErrUnsupportedCompression indicates a compression codec the format cannot use.
	ErrUnsupportedCompression = errors.New("unsupported compression")
	// ErrUnknownReadPolicy indicates an unsupported sample read policy.
	ErrUnknownReadPolicy = errors.New("unknown read policy")
	// ErrBadShard indicates a shard file that does not hold the expected columns.
	ErrBadShard = errors.New("malformed shard")
)

// SampleReadError reports one unreadable sample.
type SampleReadError struct {
	Path string
	Err  error
}

func (e *SampleReadError) Error() string {
	return fmt.Sprintf("read sample %s: %v", e.Path, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *SampleReadError) Unwrap() []error {
	return []error{ErrSampleRead, e.Err}
}

// ShardWriteError reports a shard that could not be persisted.
type ShardWriteError struct {
	Split string
	Chunk int
	Path  string
	Err   error
}

func (e *ShardWriteError) Error() string {
	return fmt.Sprintf("write shard %s (split %q, chunk %d): %v", e.Path, e.Split, e.Chunk, e.Err)
}

// Unwrap returns both the sentinel and the underlying cause.
func (e *ShardWriteError) Unwrap() []error {
	return []error{ErrShardWrite, e.Err}
}
