package shard_test

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/imgshard/pkg/shard"
)

func TestBuildRecord_AlignsColumns(t *testing.T) {
	t.Parallel()

	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec, err := shard.BuildRecord(mem,
		[][]byte{[]byte("one"), []byte("two"), {}},
		[]string{"cat", "dog", "cat"},
	)
	require.NoError(t, err)
	defer rec.Release()

	assert.Equal(t, int64(3), rec.NumRows())
	assert.True(t, rec.Schema().Equal(shard.Schema()))

	images, ok := rec.Column(0).(*array.Binary)
	require.True(t, ok)

	labels, ok := rec.Column(1).(*array.String)
	require.True(t, ok)

	assert.Equal(t, images.Len(), labels.Len())
	assert.Equal(t, []byte("two"), images.Value(1))
	assert.Equal(t, "dog", labels.Value(1))
	assert.Empty(t, images.Value(2))
	assert.Zero(t, images.NullN())
}

func TestBuildRecord_Empty(t *testing.T) {
	t.Parallel()

	rec, err := shard.BuildRecord(nil, nil, nil)
	require.NoError(t, err)
	defer rec.Release()

	assert.Zero(t, rec.NumRows())
	assert.Equal(t, int64(2), rec.NumCols())
}

func TestBuildRecord_Mismatch(t *testing.T) {
	t.Parallel()

	_, err := shard.BuildRecord(nil, [][]byte{[]byte("x")}, nil)
	require.ErrorIs(t, err, shard.ErrColumnMismatch)
}

func TestSchema(t *testing.T) {
	t.Parallel()

	s := shard.Schema()
	require.Equal(t, 2, s.NumFields())
	assert.Equal(t, shard.ColumnImage, s.Field(0).Name)
	assert.Equal(t, arrow.BINARY, s.Field(0).Type.ID())
	assert.Equal(t, shard.ColumnLabel, s.Field(1).Name)
	assert.Equal(t, arrow.STRING, s.Field(1).Type.ID())
}

func TestPayloadBytes_RejectsOversizedChunk(t *testing.T) {
	t.Parallel()

	payloads := [][]byte{[]byte("1234"), []byte("5678"), []byte("9")}

	total, err := shard.PayloadBytes(payloads, 9)
	require.NoError(t, err)
	assert.Equal(t, 9, total)

	_, err = shard.PayloadBytes(payloads, 8)
	require.ErrorIs(t, err, shard.ErrChunkTooLarge)
}
