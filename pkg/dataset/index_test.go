package dataset_test

import (
	"fmt"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Sumatoshi-tech/imgshard/pkg/dataset"
)

func makeSamples(n int) []dataset.Sample {
	samples := make([]dataset.Sample, n)
	for i := range samples {
		samples[i] = dataset.Sample{
			Path:  fmt.Sprintf("/data/label-%d/img-%03d.webp", i%3, i),
			Label: fmt.Sprintf("label-%d", i%3),
		}
	}

	return samples
}

func TestIndex_Shuffle_IsPermutation(t *testing.T) {
	t.Parallel()

	original := makeSamples(100)
	idx := dataset.NewIndex("train", append([]dataset.Sample(nil), original...))

	idx.Shuffle(dataset.NewRand(0))

	require.Equal(t, len(original), idx.Len())
	assert.ElementsMatch(t, original, idx.Samples())
}

func TestIndex_Shuffle_SeededIsDeterministic(t *testing.T) {
	t.Parallel()

	first := dataset.NewIndex("train", makeSamples(50))
	second := dataset.NewIndex("train", makeSamples(50))

	first.Shuffle(dataset.NewRand(42))
	second.Shuffle(dataset.NewRand(42))

	assert.Equal(t, first.Samples(), second.Samples())
	assert.NotEqual(t, makeSamples(50), first.Samples())
}

func TestIndex_Shuffle_Empty(t *testing.T) {
	t.Parallel()

	idx := dataset.NewIndex("validation", nil)
	idx.Shuffle(dataset.NewRand(7))

	assert.Zero(t, idx.Len())
	assert.Empty(t, idx.Labels())
}

func TestIndex_Labels_SortedUnique(t *testing.T) {
	t.Parallel()

	idx := dataset.NewIndex("train", []dataset.Sample{
		{Path: "b/1", Label: "dog"},
		{Path: "a/1", Label: "cat"},
		{Path: "b/2", Label: "dog"},
	})

	assert.Equal(t, []string{"cat", "dog"}, idx.Labels())
	assert.Equal(t, "train", idx.Split())
}

func TestIndex_Slice_IsCapped(t *testing.T) {
	t.Parallel()

	idx := dataset.NewIndex("train", makeSamples(10))
	view := idx.Slice(2, 5)

	require.Len(t, view, 3)
	assert.Equal(t, 3, cap(view))
	assert.Equal(t, idx.Samples()[2], view[0])
}

func TestEmptyDatasetError(t *testing.T) {
	t.Parallel()

	err := error(&dataset.EmptyDatasetError{Split: "train", Root: "/in/train"})

	require.ErrorIs(t, err, dataset.ErrEmptyDataset)
	assert.Contains(t, err.Error(), "train")
}
