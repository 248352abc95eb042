package transfer

import (
	"context"
	"errors"
	"log/slog"
	"slices"
	"sync"
	"sync/atomic"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/dialect"
	"github.com/syssam/criteria/dialect/sql/sqlerr"
)

// DroppedRow is a row the writer gave up on.
type DroppedRow[R any] struct {
	Position int
	Row      R
	Err      error
}

// WriteResult reports the outcome of writing one chunk.
type WriteResult[R any] struct {
	// Chunk is the written chunk. Its Err holds the first failure, if any
	// attempt failed.
	Chunk Chunk[R]
	// Committed is the number of committed rows.
	Committed int
	// Dropped holds the rows that failed in isolation, by position.
	Dropped []DroppedRow[R]
	// Attempts is the number of transactions started.
	Attempts int
	// Skipped is the number of rows not attempted because the write was
	// cancelled.
	Skipped int
}

// Failed reports whether any row was dropped.
func (r *WriteResult[R]) Failed() bool { return len(r.Dropped) > 0 }

// Writer writes chunks of rows, each attempt in a new transaction. A failed
// chunk is split into SplitFactor sub-chunks that are retried
// independently, until the failing rows are isolated and dropped.
type Writer[R any] struct {
	opts *options

	once    sync.Once
	dead    DeadLetter
	deadErr error
	owned   *MsgpackDeadLetter
}

// NewWriter returns a writer configured by the given options.
func NewWriter[R any](opts ...Option) *Writer[R] {
	return &Writer[R]{opts: newOptions(opts)}
}

// Config returns the effective config of the writer.
func (w *Writer[R]) Config() Config { return w.opts.config }

// Close closes the dead-letter file opened from the config, if any.
func (w *Writer[R]) Close() error {
	if w.owned != nil {
		return w.owned.Close()
	}
	return nil
}

// deadLetter returns the configured sink, opening the configured file on
// first use.
func (w *Writer[R]) deadLetter() (DeadLetter, error) {
	w.once.Do(func() {
		switch {
		case w.opts.deadLetter != nil:
			w.dead = w.opts.deadLetter
		case w.opts.config.DeadLetterPath != "":
			w.owned, w.deadErr = OpenDeadLetter(w.opts.config.DeadLetterPath)
			if w.deadErr == nil {
				w.dead = w.owned
			}
		}
	})
	return w.dead, w.deadErr
}

// Write writes the rows of c. Data access failures never escape Write:
// they are recorded on the result chunk and resolved by splitting. The
// returned error reports an invalid template or a cancelled context.
func (w *Writer[R]) Write(ctx context.Context, t WriteTemplate[R], c Chunk[R]) (*WriteResult[R], error) {
	plan, err := newWritePlan(t)
	if err != nil {
		return nil, err
	}
	if _, err := w.deadLetter(); err != nil {
		return nil, criteria.NewConfigurationError("dead letter", err.Error())
	}
	id := correlationID(ctx, t.CorrelationID)
	ctx = WithCorrelationID(ctx, id)
	s := &writeState[R]{
		res:       &WriteResult[R]{Chunk: c},
		cancel:    t.CancelOnFailure || w.opts.config.CancelOnFailure,
		cancelled: t.Cancelled,
	}
	if s.cancelled == nil {
		s.cancelled = new(atomic.Bool)
	}
	begin := time.Now()
	err = w.write(ctx, plan, id, c, s)
	res := s.result()
	w.opts.logger.DebugContext(ctx, "chunk written", append(rangeAttrs(id, plan.table, c.Start, c.End),
		slog.Int("committed", res.Committed),
		slog.Int("dropped", len(res.Dropped)),
		slog.Int("attempts", res.Attempts),
		slog.Int("skipped", res.Skipped),
		slog.Duration("elapsed", time.Since(begin)),
	)...)
	return res, err
}

// write commits c, or splits it after a failure. Sub-chunks of one split
// are written concurrently. Once the cancellation flag is set, chunks are
// skipped without an attempt.
func (w *Writer[R]) write(ctx context.Context, plan *writePlan[R], id string, c Chunk[R], s *writeState[R]) error {
	if c.Len() == 0 {
		return nil
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if s.cancelled.Load() {
		s.skip(c.Len())
		return nil
	}
	s.attempt()
	err := w.attempt(ctx, plan, c)
	if err == nil {
		s.commit(c.Len())
		return nil
	}
	if cerr := ctx.Err(); cerr != nil {
		return cerr
	}
	derr := &criteria.DataAccessError{Op: "write", Table: plan.table, CorrelationID: id, Start: c.Start, End: c.End, Err: err}
	s.fail(derr)
	if c.Len() == 1 {
		return w.drop(ctx, plan, id, c, derr, s)
	}
	subs := c.Split(splitSize(c.Len(), w.opts.config.SplitFactor))
	w.opts.logger.DebugContext(ctx, "chunk write failed, retrying split",
		append(rangeAttrs(id, plan.table, c.Start, c.End), slog.Int("chunks", len(subs)), slog.Any("error", err))...)
	eg := &errgroup.Group{}
	eg.SetLimit(w.opts.config.Workers)
	for _, sub := range subs {
		eg.Go(func() error {
			return w.write(ctx, plan, id, sub, s)
		})
	}
	return eg.Wait()
}

// attempt executes the statement once per row of c in a new transaction.
func (w *Writer[R]) attempt(ctx context.Context, plan *writePlan[R], c Chunk[R]) error {
	tx, err := plan.drv.Tx(ctx)
	if err != nil {
		return err
	}
	for _, rec := range c.Data {
		args, err := plan.bind(rec)
		if err != nil {
			return rollback(tx, err)
		}
		if err := tx.Exec(ctx, plan.stmt, args, nil); err != nil {
			return rollback(tx, err)
		}
	}
	return tx.Commit()
}

// drop gives up on the single row of c.
func (w *Writer[R]) drop(ctx context.Context, plan *writePlan[R], id string, c Chunk[R], err *criteria.DataAccessError, s *writeState[R]) error {
	rec := c.Data[0]
	kind := sqlerr.Classify(err)
	w.opts.logger.ErrorContext(ctx, "row dropped", append(rangeAttrs(id, plan.table, c.Start, c.End),
		slog.String("kind", kind.String()),
		slog.Any("error", err.Err),
	)...)
	s.drop(DroppedRow[R]{Position: c.Start, Row: rec, Err: err})
	if s.cancel && !s.cancelled.Swap(true) {
		w.opts.logger.WarnContext(ctx, "write cancelled", rangeAttrs(id, plan.table, c.Start, c.End)...)
	}
	dead, _ := w.deadLetter()
	if dead == nil {
		return nil
	}
	args, berr := plan.bind(rec)
	row := DeadRow{
		CorrelationID: id,
		Table:         plan.table,
		Position:      c.Start,
		Statement:     plan.stmt,
		Args:          args,
		Error:         err.Err.Error(),
		Kind:          kind.String(),
		Time:          time.Now().UTC(),
	}
	if berr != nil {
		row.BindError = berr.Error()
		w.opts.logger.WarnContext(ctx, "dead row without arguments", append(rangeAttrs(id, plan.table, c.Start, c.End), slog.Any("error", berr))...)
	}
	if derr := dead.Drop(ctx, row); derr != nil {
		w.opts.logger.WarnContext(ctx, "dead letter failed", append(rangeAttrs(id, plan.table, c.Start, c.End), slog.Any("error", derr))...)
	}
	return nil
}

func rollback(tx dialect.Tx, err error) error {
	if rerr := tx.Rollback(); rerr != nil {
		err = errors.Join(err, rerr)
	}
	return err
}

// writeState collects the outcome of concurrent sub-chunk writes.
type writeState[R any] struct {
	mu  sync.Mutex
	res *WriteResult[R]

	cancel    bool
	cancelled *atomic.Bool
}

func (s *writeState[R]) attempt() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res.Attempts++
}

func (s *writeState[R]) skip(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res.Skipped += n
}

func (s *writeState[R]) commit(n int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res.Committed += n
}

func (s *writeState[R]) fail(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.res.Chunk.Err == nil {
		s.res.Chunk.Err = err
	}
}

func (s *writeState[R]) drop(d DroppedRow[R]) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.res.Dropped = append(s.res.Dropped, d)
}

func (s *writeState[R]) result() *WriteResult[R] {
	s.mu.Lock()
	defer s.mu.Unlock()
	res := *s.res
	slices.SortFunc(res.Dropped, func(a, b DroppedRow[R]) int { return a.Position - b.Position })
	return &res
}
