package pipeline

// Chunk is a position-determined slice [Start, End) of a shuffled split index.
// Index is zero-based and is the chunk's only durable identity.
type Chunk struct {
	Index int
	Total int
	Start int
	End   int
}

// Len returns the number of samples covered by the chunk.
func (c Chunk) Len() int {
	return c.End - c.Start
}

// Plan partitions n samples into ceil(n/size) chunks in ascending index order.
// Every chunk but the last holds exactly size samples. A non-positive size
// yields a single chunk covering everything.
func Plan(n, size int) []Chunk {
	if n <= 0 {
		return nil
	}

	if size <= 0 || size > n {
		size = n
	}

	total := (n + size - 1) / size
	chunks := make([]Chunk, total)

	for i := range chunks {
		start := i * size
		chunks[i] = Chunk{
			Index: i,
			Total: total,
			Start: start,
			End:   min(start+size, n),
		}
	}

	return chunks
}
