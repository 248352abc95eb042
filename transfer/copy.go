package transfer

import (
	"context"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"
)

// CopyResult summarizes a copy.
type CopyResult[R any] struct {
	// Count is the number of rows of the source.
	Count int
	// Chunks is the number of chunks written.
	Chunks int
	// Committed is the number of rows committed to the destination.
	Committed int
	// Dropped holds the rows rejected by the destination.
	Dropped []DroppedRow[R]
	// Attempts is the number of write transactions started.
	Attempts int
	// Skipped is the number of rows not written after a cancellation.
	Skipped int
}

// Copy reads the rows described by src and writes every chunk into dst as
// soon as it was read. Rows rejected by the destination are dropped and
// reported, they do not fail the copy. With a cancel-on-failure policy all
// chunk writes share one cancellation flag, so the first dropped row stops
// the rest of the copy. The returned error is the first read error or an
// invalid template.
func Copy[R any](ctx context.Context, src ReadTemplate[R], dst WriteTemplate[R], opts ...Option) (*CopyResult[R], error) {
	id := correlationID(ctx, src.CorrelationID)
	ctx = WithCorrelationID(ctx, id)
	if dst.CorrelationID == "" {
		dst.CorrelationID = id
	}
	if dst.Cancelled == nil {
		dst.Cancelled = new(atomic.Bool)
	}
	// Fail fast on a write template that can never work.
	if _, err := newWritePlan(dst); err != nil {
		return nil, err
	}
	r := NewReader[R](opts...)
	w := NewWriter[R](opts...)
	defer w.Close()

	var (
		mu  sync.Mutex
		res = &CopyResult[R]{}
	)
	begin := time.Now()
	op := r.Read(ctx, src, func(ctx context.Context, c Chunk[R]) error {
		wr, err := w.Write(ctx, dst, c)
		if err != nil {
			return err
		}
		mu.Lock()
		defer mu.Unlock()
		res.Chunks++
		res.Committed += wr.Committed
		res.Attempts += wr.Attempts
		res.Skipped += wr.Skipped
		res.Dropped = append(res.Dropped, wr.Dropped...)
		return nil
	})
	if _, err := op.Wait(); err != nil {
		return res, err
	}
	res.Count = op.Count()
	slices.SortFunc(res.Dropped, func(a, b DroppedRow[R]) int { return a.Position - b.Position })
	w.opts.logger.InfoContext(ctx, "copy finished",
		slog.String(attrCorrelationID, id),
		slog.String(attrTable, dst.Table),
		slog.Int("count", res.Count),
		slog.Int("committed", res.Committed),
		slog.Int("dropped", len(res.Dropped)),
		slog.Int("skipped", res.Skipped),
		slog.Duration("elapsed", time.Since(begin)),
	)
	return res, nil
}
