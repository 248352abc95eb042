package transfer

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/dialect/sql"
)

// State is the lifecycle state of a read operation.
type State int32

// Read states, in order.
const (
	StateInit State = iota
	StateCounting
	StateChunking
	StateFetching
	StateJoined
)

// String returns the name of the state.
func (s State) String() string {
	switch s {
	case StateCounting:
		return "counting"
	case StateChunking:
		return "chunking"
	case StateFetching:
		return "fetching"
	case StateJoined:
		return "joined"
	default:
		return "init"
	}
}

// Consumer receives every completed chunk of a read. It may be invoked
// concurrently, in no particular order.
type Consumer[R any] func(ctx context.Context, c Chunk[R]) error

// Operation is the handle of a running read.
type Operation[R any] struct {
	id        string
	state     atomic.Int32
	cancelled atomic.Bool
	done      chan struct{}

	// count and chunkSize are set before the fan-out and never change.
	count     int
	chunkSize int

	mu     sync.Mutex
	chunks []Chunk[R]
	err    error
}

func newOperation[R any](id string) *Operation[R] {
	return &Operation[R]{id: id, done: make(chan struct{})}
}

// ID returns the correlation id of the operation.
func (op *Operation[R]) ID() string { return op.id }

// State returns the current state of the operation.
func (op *Operation[R]) State() State { return State(op.state.Load()) }

func (op *Operation[R]) setState(s State) { op.state.Store(int32(s)) }

// Cancel sets the cancellation flag. Chunks completing afterwards are
// discarded without reaching the consumer. In-flight statements are not
// interrupted.
func (op *Operation[R]) Cancel() { op.cancelled.Store(true) }

// Cancelled reports whether the cancellation flag is set.
func (op *Operation[R]) Cancelled() bool { return op.cancelled.Load() }

// Done returns a channel closed when the operation is joined.
func (op *Operation[R]) Done() <-chan struct{} { return op.done }

// Count returns the total row count. It is valid once the operation left
// the counting state.
func (op *Operation[R]) Count() int {
	<-op.done
	return op.count
}

// ChunkSize returns the chunk size used by the operation.
func (op *Operation[R]) ChunkSize() int {
	<-op.done
	return op.chunkSize
}

// Wait blocks until the operation is joined and returns the delivered
// chunks sorted by start position, or the first error.
func (op *Operation[R]) Wait() ([]Chunk[R], error) {
	<-op.done
	op.mu.Lock()
	defer op.mu.Unlock()
	return op.chunks, op.err
}

func (op *Operation[R]) deliver(c Chunk[R]) {
	op.mu.Lock()
	defer op.mu.Unlock()
	op.chunks = append(op.chunks, c)
}

func (op *Operation[R]) finish(err error) {
	op.mu.Lock()
	sort.Slice(op.chunks, func(i, j int) bool { return op.chunks[i].Start < op.chunks[j].Start })
	op.err = err
	op.mu.Unlock()
	op.setState(StateJoined)
	close(op.done)
}

// Reader reads the rows of a query in parallel chunks.
type Reader[R any] struct {
	opts *options
}

// NewReader returns a reader configured by the given options.
func NewReader[R any](opts ...Option) *Reader[R] {
	return &Reader[R]{opts: newOptions(opts)}
}

// Config returns the effective config of the reader.
func (r *Reader[R]) Config() Config { return r.opts.config }

// Read starts reading the rows described by t and returns the operation
// handle. The row count is resolved first, then one fetch task per chunk is
// started, at most Workers at a time. Every fetched chunk is passed to
// consume, unless the operation was cancelled. A nil consume only collects
// the chunks.
func (r *Reader[R]) Read(ctx context.Context, t ReadTemplate[R], consume Consumer[R]) *Operation[R] {
	id := correlationID(ctx, t.CorrelationID)
	op := newOperation[R](id)
	ctx = WithCorrelationID(ctx, id)
	plan, err := newReadPlan(t, r.opts)
	if err != nil {
		op.finish(err)
		return op
	}
	go r.run(ctx, plan, op, consume)
	return op
}

// ReadAll reads all rows described by t, in chunk order.
func (r *Reader[R]) ReadAll(ctx context.Context, t ReadTemplate[R]) ([]R, error) {
	chunks, err := r.Read(ctx, t, nil).Wait()
	if err != nil {
		return nil, err
	}
	var n int
	for _, c := range chunks {
		n += c.Len()
	}
	rows := make([]R, 0, n)
	for _, c := range chunks {
		rows = append(rows, c.Data...)
	}
	return rows, nil
}

func (r *Reader[R]) run(ctx context.Context, plan *readPlan[R], op *Operation[R], consume Consumer[R]) {
	logger := r.opts.logger.With(slog.String(attrCorrelationID, op.id), slog.String(attrTable, plan.table))
	begin := time.Now()

	op.setState(StateCounting)
	count, err := r.count(ctx, plan)
	if err != nil {
		op.finish(err)
		return
	}

	op.setState(StateChunking)
	size := plan.tmpl.FetchSize
	if size <= 0 {
		size = r.opts.config.FetchSize
	}
	if size <= 0 {
		cfg := r.opts.config
		size = ChunkSize(count, cfg.Workers, cfg.MinChunkSize, cfg.MaxChunkSize)
	}
	op.count, op.chunkSize = count, size
	ranges := Ranges(count, size)
	logger.DebugContext(ctx, "read planned", "count", count, "chunk_size", size, "chunks", len(ranges))

	op.setState(StateFetching)
	eg, gctx := errgroup.WithContext(ctx)
	eg.SetLimit(r.opts.config.Workers)
	for _, rg := range ranges {
		eg.Go(func() error {
			// Tasks not started yet are skipped after a failure.
			if err := gctx.Err(); err != nil {
				return err
			}
			c, err := r.fetch(ctx, plan, op.id, rg)
			if err != nil {
				logger.ErrorContext(ctx, "chunk read failed", append(rangeAttrs(op.id, plan.table, rg.Start, rg.End), slog.Any("error", err))...)
				if r.opts.config.CancelOnFailure {
					op.Cancel()
				}
				return err
			}
			if op.Cancelled() {
				logger.DebugContext(ctx, "chunk discarded", rangeAttrs(op.id, plan.table, rg.Start, rg.End)...)
				return nil
			}
			if consume != nil {
				if err := consume(ctx, c); err != nil {
					return err
				}
			}
			op.deliver(c)
			return nil
		})
	}
	err = eg.Wait()
	logger.InfoContext(ctx, "read joined", "count", count, "elapsed", time.Since(begin), "error", err)
	op.finish(err)
}

func (r *Reader[R]) count(ctx context.Context, plan *readPlan[R]) (int, error) {
	if plan.tmpl.Count != nil {
		return *plan.tmpl.Count, nil
	}
	query, err := plan.countQuery()
	if err != nil {
		return 0, err
	}
	n, err := sql.QueryInt(ctx, plan.tmpl.Driver, query, plan.args()...)
	if err != nil {
		return 0, &criteria.DataAccessError{Op: "count", Table: plan.table, CorrelationID: CorrelationID(ctx), Err: err}
	}
	return n, nil
}

// fetch reads the rows of one range.
func (r *Reader[R]) fetch(ctx context.Context, plan *readPlan[R], id string, rg Range) (Chunk[R], error) {
	c := Chunk[R]{Start: rg.Start, End: rg.End}
	fail := func(err error) (Chunk[R], error) {
		c.Err = &criteria.DataAccessError{Op: "read", Table: plan.table, CorrelationID: id, Start: rg.Start, End: rg.End, Err: err}
		return c, c.Err
	}
	query, err := plan.pageQuery(rg.Start, rg.Len())
	if err != nil {
		return c, err
	}
	rows := &sql.Rows{}
	if err := plan.tmpl.Driver.Query(ctx, query, plan.args(), rows); err != nil {
		return fail(err)
	}
	defer rows.Close()
	columns, err := rows.Columns()
	if err != nil {
		return fail(err)
	}
	c.Data = make([]R, 0, rg.Len())
	for rows.Next() {
		values := make([]any, len(columns))
		ptrs := make([]any, len(columns))
		for i := range values {
			ptrs[i] = &values[i]
		}
		if err := rows.Scan(ptrs...); err != nil {
			return fail(err)
		}
		rec, err := plan.tmpl.Mapper.MapRow(ctx, columns, values)
		if err != nil {
			return fail(err)
		}
		c.Data = append(c.Data, rec)
	}
	if err := rows.Err(); err != nil {
		return fail(err)
	}
	return c, nil
}
