package shard

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/apache/arrow-go/v18/parquet/file"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"
)

// Row is one decoded shard row.
type Row struct {
	Image []byte
	Label string
}

// Info summarizes a shard file.
type Info struct {
	Path   string
	Format string
	Rows   int
	Bytes  int64
	Labels map[string]int
}

// ReadRows decodes every row of the shard at path. The format is chosen by
// file extension. Columns of unequal length are reported as ErrBadShard.
func ReadRows(ctx context.Context, path string, mem memory.Allocator) ([]Row, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	var rows []Row

	visit := func(rec arrow.Record) error {
		images, labels, err := columns(rec)
		if err != nil {
			return err
		}

		for i := range images.Len() {
			rows = append(rows, Row{
				Image: append([]byte(nil), images.Value(i)...),
				Label: labels.Value(i),
			})
		}

		return nil
	}

	err := readRecords(ctx, path, mem, visit)
	if err != nil {
		return nil, err
	}

	return rows, nil
}

// Stat reads the shard at path and summarizes it without retaining payloads.
func Stat(ctx context.Context, path string, mem memory.Allocator) (Info, error) {
	if mem == nil {
		mem = memory.DefaultAllocator
	}

	fileInfo, err := os.Stat(path)
	if err != nil {
		return Info{}, fmt.Errorf("stat shard: %w", err)
	}

	info := Info{
		Path:   path,
		Format: formatOf(path),
		Bytes:  fileInfo.Size(),
		Labels: make(map[string]int),
	}

	visit := func(rec arrow.Record) error {
		_, labels, colErr := columns(rec)
		if colErr != nil {
			return colErr
		}

		info.Rows += labels.Len()

		for i := range labels.Len() {
			info.Labels[labels.Value(i)]++
		}

		return nil
	}

	err = readRecords(ctx, path, mem, visit)
	if err != nil {
		return Info{}, err
	}

	return info, nil
}

func formatOf(path string) string {
	return strings.TrimPrefix(filepath.Ext(path), ".")
}

func readRecords(ctx context.Context, path string, mem memory.Allocator, visit func(arrow.Record) error) error {
	switch formatOf(path) {
	case FormatArrow:
		return readArrow(path, mem, visit)
	case FormatParquet:
		return readParquet(ctx, path, mem, visit)
	default:
		return fmt.Errorf("%w: %s", ErrUnknownFormat, path)
	}
}

func readArrow(path string, mem memory.Allocator, visit func(arrow.Record) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open shard: %w", err)
	}
	defer f.Close()

	reader, err := ipc.NewFileReader(f, ipc.WithAllocator(mem))
	if err != nil {
		return fmt.Errorf("open arrow file %s: %w", path, err)
	}
	defer reader.Close()

	for i := range reader.NumRecords() {
		rec, recErr := reader.Record(i)
		if recErr != nil {
			return fmt.Errorf("read record %d of %s: %w", i, path, recErr)
		}

		visitErr := visit(rec)
		if visitErr != nil {
			return fmt.Errorf("%s: %w", path, visitErr)
		}
	}

	return nil
}

func readParquet(ctx context.Context, path string, mem memory.Allocator, visit func(arrow.Record) error) error {
	pf, err := file.OpenParquetFile(path, false)
	if err != nil {
		return fmt.Errorf("open parquet file %s: %w", path, err)
	}
	defer pf.Close()

	fr, err := pqarrow.NewFileReader(pf, pqarrow.ArrowReadProperties{}, mem)
	if err != nil {
		return fmt.Errorf("open parquet reader %s: %w", path, err)
	}

	table, err := fr.ReadTable(ctx)
	if err != nil {
		return fmt.Errorf("read parquet table %s: %w", path, err)
	}
	defer table.Release()

	tr := array.NewTableReader(table, 0)
	defer tr.Release()

	for tr.Next() {
		visitErr := visit(tr.Record())
		if visitErr != nil {
			return fmt.Errorf("%s: %w", path, visitErr)
		}
	}

	return nil
}

func columns(rec arrow.Record) (*array.Binary, *array.String, error) {
	if rec.NumCols() != 2 {
		return nil, nil, fmt.Errorf("%w: %d columns", ErrBadShard, rec.NumCols())
	}

	images, ok := rec.Column(0).(*array.Binary)
	if !ok {
		return nil, nil, fmt.Errorf("%w: column %q is %s", ErrBadShard, ColumnImage, rec.Column(0).DataType())
	}

	labels, ok := rec.Column(1).(*array.String)
	if !ok {
		return nil, nil, fmt.Errorf("%w: column %q is %s", ErrBadShard, ColumnLabel, rec.Column(1).DataType())
	}

	if images.Len() != labels.Len() {
		return nil, nil, fmt.Errorf("%w: %d images, %d labels", ErrColumnMismatch, images.Len(), labels.Len())
	}

	return images, labels, nil
}
