package transfer

import "fmt"

// Default chunk bounds and split factor.
const (
	MinChunkSize = 1000
	MaxChunkSize = 1_000_000
	SplitFactor  = 10
)

// Chunk is a range-addressed unit of transferred rows. Start and End are
// the absolute row positions [Start, End) the chunk covers. Err records
// the failure of the chunk, if any.
type Chunk[R any] struct {
	Data  []R
	Start int
	End   int
	Err   error
}

// NewChunk returns a chunk of rows starting at the given position.
func NewChunk[R any](start int, data []R) Chunk[R] {
	return Chunk[R]{Data: data, Start: start, End: start + len(data)}
}

// Len returns the number of rows of the chunk.
func (c Chunk[R]) Len() int { return len(c.Data) }

// Failed reports whether an error was recorded on the chunk.
func (c Chunk[R]) Failed() bool { return c.Err != nil }

// String implements the fmt.Stringer interface.
func (c Chunk[R]) String() string {
	return fmt.Sprintf("chunk[%d, %d) rows=%d", c.Start, c.End, len(c.Data))
}

// Split divides the chunk into sub-chunks of at most size rows. Sub-chunks
// keep the absolute positions of their rows.
func (c Chunk[R]) Split(size int) []Chunk[R] {
	if size < 1 {
		size = 1
	}
	subs := make([]Chunk[R], 0, (len(c.Data)+size-1)/size)
	for i := 0; i < len(c.Data); i += size {
		j := min(i+size, len(c.Data))
		subs = append(subs, Chunk[R]{Data: c.Data[i:j], Start: c.Start + i, End: c.Start + j})
	}
	return subs
}

// Range is a half-open row range [Start, End).
type Range struct {
	Start, End int
}

// Len returns the number of rows of the range.
func (r Range) Len() int { return r.End - r.Start }

// ChunkSize returns ceil(count/workers) clamped to [lo, hi].
func ChunkSize(count, workers, lo, hi int) int {
	if workers < 1 {
		workers = 1
	}
	size := (count + workers - 1) / workers
	return max(lo, min(size, hi))
}

// Ranges returns the ranges of size rows that exactly tile [0, count).
// The last range may be shorter.
func Ranges(count, size int) []Range {
	if count <= 0 || size < 1 {
		return nil
	}
	ranges := make([]Range, 0, (count+size-1)/size)
	for off := 0; off < count; off += size {
		ranges = append(ranges, Range{Start: off, End: min(off+size, count)})
	}
	return ranges
}

// splitSize returns the size of the sub-chunks a failed chunk of n rows is
// split into: ceil(n/factor).
func splitSize(n, factor int) int {
	if factor < 2 {
		factor = SplitFactor
	}
	return (n + factor - 1) / factor
}
