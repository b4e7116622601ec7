package dataset

import (
	"math/rand/v2"
	"slices"
)

// Index is the ordered sample set of one split.
type Index struct {
	split   string
	samples []Sample
}

// NewIndex takes ownership of samples for the given split.
func NewIndex(split string, samples []Sample) *Index {
	return &Index{split: split, samples: samples}
}

// Split returns the split name.
func (idx *Index) Split() string { return idx.split }

// Len returns the number of samples.
func (idx *Index) Len() int { return len(idx.samples) }

// Samples returns the backing slice. Callers must treat it as read-only.
func (idx *Index) Samples() []Sample { return idx.samples }

// Slice returns the read-only view samples[start:end].
func (idx *Index) Slice(start, end int) []Sample {
	return idx.samples[start:end:end]
}

// Shuffle applies a uniform random permutation drawn from rng.
func (idx *Index) Shuffle(rng *rand.Rand) {
	rng.Shuffle(len(idx.samples), func(i, j int) {
		idx.samples[i], idx.samples[j] = idx.samples[j], idx.samples[i]
	})
}

// Labels returns the sorted, de-duplicated label vocabulary.
func (idx *Index) Labels() []string {
	seen := make(map[string]struct{}, len(idx.samples))
	labels := make([]string, 0)

	for _, s := range idx.samples {
		if _, ok := seen[s.Label]; ok {
			continue
		}

		seen[s.Label] = struct{}{}
		labels = append(labels, s.Label)
	}

	slices.Sort(labels)

	return labels
}

// NewRand returns a PCG-backed generator. A zero seed draws the state from the
// process-wide random source so no two runs share an order.
func NewRand(seed uint64) *rand.Rand {
	if seed == 0 {
		return rand.New(rand.NewPCG(rand.Uint64(), rand.Uint64())) //nolint:gosec // shuffling, not crypto.
	}

	return rand.New(rand.NewPCG(seed, seed)) //nolint:gosec // shuffling, not crypto.
}
