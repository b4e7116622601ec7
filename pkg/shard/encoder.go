package shard

import (
	"fmt"
	"io"
	"slices"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Supported shard formats.
const (
	FormatArrow   = "arrow"
	FormatParquet = "parquet"
)

// Supported compression codecs.
const (
	CompressionNone   = "none"
	CompressionLZ4    = "lz4"
	CompressionZstd   = "zstd"
	CompressionSnappy = "snappy"
)

var formatCompressions = map[string][]string{
	FormatArrow:   {CompressionNone, CompressionLZ4, CompressionZstd},
	FormatParquet: {CompressionNone, CompressionSnappy, CompressionLZ4, CompressionZstd},
}

// Formats returns the supported shard format names.
func Formats() []string {
	return []string{FormatArrow, FormatParquet}
}

// CheckCompression reports whether format is known and supports compression.
func CheckCompression(format, compression string) error {
	allowed, ok := formatCompressions[format]
	if !ok {
		return fmt.Errorf("%w: %q", ErrUnknownFormat, format)
	}

	if !slices.Contains(allowed, compression) {
		return fmt.Errorf("%w: %q for format %q", ErrUnsupportedCompression, compression, format)
	}

	return nil
}

// Encoder serializes one record batch into a self-describing shard file body.
type Encoder interface {
	// Format returns the format name recorded in metadata.
	Format() string
	// Extension returns the file extension without the leading dot.
	Extension() string
	// Encode writes rec to w. It must not close w.
	Encode(w io.Writer, rec arrow.Record) error
}

// NewEncoder returns the encoder for format using compression.
// An empty compression means none.
func NewEncoder(format, compression string, mem memory.Allocator) (Encoder, error) {
	if compression == "" {
		compression = CompressionNone
	}

	err := CheckCompression(format, compression)
	if err != nil {
		return nil, err
	}

	if mem == nil {
		mem = memory.DefaultAllocator
	}

	switch format {
	case FormatParquet:
		return &ParquetEncoder{Compression: compression, Allocator: mem}, nil
	default:
		return &ArrowEncoder{Compression: compression, Allocator: mem}, nil
	}
}

// ArrowEncoder writes Arrow IPC file-format shards.
type ArrowEncoder struct {
	Compression string
	Allocator   memory.Allocator
}

// Format implements Encoder.
func (e *ArrowEncoder) Format() string { return FormatArrow }

// Extension implements Encoder.
func (e *ArrowEncoder) Extension() string { return FormatArrow }

// Encode implements Encoder.
func (e *ArrowEncoder) Encode(w io.Writer, rec arrow.Record) error {
	opts := []ipc.Option{
		ipc.WithSchema(rec.Schema()),
		ipc.WithAllocator(e.Allocator),
	}

	switch e.Compression {
	case CompressionLZ4:
		opts = append(opts, ipc.WithLZ4())
	case CompressionZstd:
		opts = append(opts, ipc.WithZstd())
	}

	writer, err := ipc.NewFileWriter(w, opts...)
	if err != nil {
		return fmt.Errorf("create arrow writer: %w", err)
	}

	writeErr := writer.Write(rec)
	if writeErr != nil {
		_ = writer.Close()

		return fmt.Errorf("write arrow record: %w", writeErr)
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return fmt.Errorf("finish arrow file: %w", closeErr)
	}

	return nil
}

// ParquetEncoder writes Parquet shards through pqarrow.
type ParquetEncoder struct {
	Compression string
	Allocator   memory.Allocator
}

// Format implements Encoder.
func (e *ParquetEncoder) Format() string { return FormatParquet }

// Extension implements Encoder.
func (e *ParquetEncoder) Extension() string { return FormatParquet }

// Encode implements Encoder.
func (e *ParquetEncoder) Encode(w io.Writer, rec arrow.Record) error {
	props := parquet.NewWriterProperties(
		parquet.WithCompression(parquetCodec(e.Compression)),
		parquet.WithDictionaryDefault(false),
		parquet.WithAllocator(e.Allocator),
	)

	arrowProps := pqarrow.NewArrowWriterProperties(pqarrow.WithStoreSchema())

	writer, err := pqarrow.NewFileWriter(rec.Schema(), w, props, arrowProps)
	if err != nil {
		return fmt.Errorf("create parquet writer: %w", err)
	}

	writeErr := writer.Write(rec)
	if writeErr != nil {
		_ = writer.Close()

		return fmt.Errorf("write parquet record: %w", writeErr)
	}

	closeErr := writer.Close()
	if closeErr != nil {
		return fmt.Errorf("finish parquet file: %w", closeErr)
	}

	return nil
}

func parquetCodec(name string) compress.Compression {
	switch name {
	case CompressionSnappy:
		return compress.Codecs.Snappy
	case CompressionLZ4:
		return compress.Codecs.Lz4Raw
	case CompressionZstd:
		return compress.Codecs.Zstd
	default:
		return compress.Codecs.Uncompressed
	}
}
