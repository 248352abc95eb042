package transfer

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestChunkSize(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name           string
		count, workers int
		want           int
	}{
		{name: "Even", count: 250_000, workers: 8, want: 31_250},
		{name: "RoundsUp", count: 250_001, workers: 8, want: 31_251},
		{name: "ClampedLow", count: 5000, workers: 8, want: MinChunkSize},
		{name: "ClampedHigh", count: 100_000_000, workers: 4, want: MaxChunkSize},
		{name: "Empty", count: 0, workers: 4, want: MinChunkSize},
		{name: "NoWorkers", count: 3000, workers: 0, want: 3000},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Equal(t, tt.want, ChunkSize(tt.count, tt.workers, MinChunkSize, MaxChunkSize))
		})
	}
}

func TestRanges(t *testing.T) {
	t.Parallel()
	t.Run("Tile", func(t *testing.T) {
		const count = 250_000
		size := ChunkSize(count, 8, MinChunkSize, MaxChunkSize)
		ranges := Ranges(count, size)
		require.Len(t, ranges, 8)
		next := 0
		for _, r := range ranges {
			assert.Equal(t, next, r.Start, "ranges must not leave gaps or overlap")
			assert.Equal(t, size, r.Len())
			next = r.End
		}
		assert.Equal(t, count, next)
	})
	t.Run("ShortTail", func(t *testing.T) {
		ranges := Ranges(2500, 1000)
		assert.Equal(t, []Range{{0, 1000}, {1000, 2000}, {2000, 2500}}, ranges)
	})
	t.Run("Empty", func(t *testing.T) {
		assert.Empty(t, Ranges(0, 1000))
		assert.Empty(t, Ranges(10, 0))
	})
}

func TestChunkSplit(t *testing.T) {
	t.Parallel()
	data := make([]int, 100)
	for i := range data {
		data[i] = i
	}
	c := NewChunk(500, data)
	assert.Equal(t, 500, c.Start)
	assert.Equal(t, 600, c.End)
	assert.Equal(t, "chunk[500, 600) rows=100", c.String())

	subs := c.Split(splitSize(c.Len(), SplitFactor))
	require.Len(t, subs, 10)
	for i, sub := range subs {
		assert.Equal(t, 500+10*i, sub.Start)
		assert.Equal(t, 510+10*i, sub.End)
		assert.Equal(t, 10*i, sub.Data[0])
	}

	subs = NewChunk(0, data[:23]).Split(splitSize(23, SplitFactor))
	require.Len(t, subs, 8)
	assert.Equal(t, Chunk[int]{Data: data[21:23], Start: 21, End: 23}, subs[7])
	assert.False(t, subs[7].Failed())
}

func TestSplitSize(t *testing.T) {
	t.Parallel()
	assert.Equal(t, 10, splitSize(100, 10))
	assert.Equal(t, 1, splitSize(10, 10))
	assert.Equal(t, 1, splitSize(2, 10))
	assert.Equal(t, 3, splitSize(23, 10))
	assert.Equal(t, 10, splitSize(100, 0))
}
