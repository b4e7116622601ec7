package shard

import (
	"fmt"
	"math"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// Column names of the shard schema.
const (
	ColumnImage = "image"
	ColumnLabel = "label"
)

var schema = arrow.NewSchema([]arrow.Field{
	{Name: ColumnImage, Type: arrow.BinaryTypes.Binary},
	{Name: ColumnLabel, Type: arrow.BinaryTypes.String},
}, nil)

// Schema returns the two-column shard schema: binary image payload and utf8 label.
func Schema() *arrow.Schema {
	return schema
}

// MaxChunkPayloadBytes is the largest image column a record batch can hold:
// binary columns address their data with 32-bit offsets.
const MaxChunkPayloadBytes = math.MaxInt32

// BuildRecord assembles payloads and labels into a record batch. Row k of both
// columns describes the same sample. Payloads totalling more than
// MaxChunkPayloadBytes are rejected with ErrChunkTooLarge. The caller must
// Release the record.
func BuildRecord(mem memory.Allocator, payloads [][]byte, labels []string) (arrow.Record, error) {
	if len(payloads) != len(labels) {
		return nil, fmt.Errorf("%w: %d payloads, %d labels", ErrColumnMismatch, len(payloads), len(labels))
	}

	dataLen, err := payloadBytes(payloads, MaxChunkPayloadBytes)
	if err != nil {
		return nil, err
	}

	if mem == nil {
		mem = memory.DefaultAllocator
	}

	builder := array.NewRecordBuilder(mem, schema)
	defer builder.Release()

	images, ok := builder.Field(0).(*array.BinaryBuilder)
	if !ok {
		return nil, fmt.Errorf("%w: column %q is not binary", ErrBadShard, ColumnImage)
	}

	names, ok := builder.Field(1).(*array.StringBuilder)
	if !ok {
		return nil, fmt.Errorf("%w: column %q is not utf8", ErrBadShard, ColumnLabel)
	}

	images.Reserve(len(payloads))
	images.ReserveData(dataLen)
	names.Reserve(len(labels))

	for i := range payloads {
		images.Append(payloads[i])
		names.Append(labels[i])
	}

	return builder.NewRecord(), nil
}

// payloadBytes sums the payload sizes, failing as soon as the total passes limit.
func payloadBytes(payloads [][]byte, limit int) (int, error) {
	total := 0

	for _, p := range payloads {
		total += len(p)
		if total > limit {
			return 0, fmt.Errorf("%w: more than %d bytes in %d samples", ErrChunkTooLarge, limit, len(payloads))
		}
	}

	return total, nil
}
