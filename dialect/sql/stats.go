package sql

import (
	"context"
	"fmt"
	"log/slog"
	"sync/atomic"
	"time"

	"github.com/google/uuid"

	"github.com/syssam/criteria/dialect"
)

// DefaultSlowThreshold is the slow statement threshold of a StatsDriver
// created without WithSlowThreshold.
const DefaultSlowThreshold = 100 * time.Millisecond

// QueryStats counts the statements and transactions that went through a
// StatsDriver. It is safe for concurrent use.
type QueryStats struct {
	queries   atomic.Int64
	execs     atomic.Int64
	elapsed   atomic.Int64
	slow      atomic.Int64
	errors    atomic.Int64
	txs       atomic.Int64
	commits   atomic.Int64
	rollbacks atomic.Int64
}

func (s *QueryStats) counters() []*atomic.Int64 {
	return []*atomic.Int64{&s.queries, &s.execs, &s.elapsed, &s.slow, &s.errors, &s.txs, &s.commits, &s.rollbacks}
}

// Stats returns the current counts.
func (s *QueryStats) Stats() StatsSnapshot {
	return StatsSnapshot{
		TotalQueries:  s.queries.Load(),
		TotalExecs:    s.execs.Load(),
		TotalDuration: time.Duration(s.elapsed.Load()),
		SlowQueries:   s.slow.Load(),
		Errors:        s.errors.Load(),
		Transactions:  s.txs.Load(),
		Commits:       s.commits.Load(),
		Rollbacks:     s.rollbacks.Load(),
	}
}

// Reset zeroes every count.
func (s *QueryStats) Reset() {
	for _, c := range s.counters() {
		c.Store(0)
	}
}

// StatsSnapshot holds the counts of a QueryStats at one point in time.
type StatsSnapshot struct {
	TotalQueries  int64
	TotalExecs    int64
	TotalDuration time.Duration
	SlowQueries   int64
	Errors        int64
	Transactions  int64
	Commits       int64
	Rollbacks     int64
}

// AvgQueryDuration is the mean duration of queries and execs together.
func (s StatsSnapshot) AvgQueryDuration() time.Duration {
	if n := s.TotalQueries + s.TotalExecs; n > 0 {
		return s.TotalDuration / time.Duration(n)
	}
	return 0
}

func (s StatsSnapshot) String() string {
	return fmt.Sprintf("queries=%d execs=%d duration=%s avg=%s slow=%d errors=%d txs=%d commits=%d rollbacks=%d",
		s.TotalQueries, s.TotalExecs, s.TotalDuration, s.AvgQueryDuration(),
		s.SlowQueries, s.Errors, s.Transactions, s.Commits, s.Rollbacks)
}

// LogValue renders the snapshot as a slog group.
func (s StatsSnapshot) LogValue() slog.Value {
	return slog.GroupValue(
		slog.Int64("queries", s.TotalQueries),
		slog.Int64("execs", s.TotalExecs),
		slog.Duration("duration", s.TotalDuration),
		slog.Int64("slow", s.SlowQueries),
		slog.Int64("errors", s.Errors),
		slog.Int64("txs", s.Transactions),
		slog.Int64("commits", s.Commits),
		slog.Int64("rollbacks", s.Rollbacks),
	)
}

// SlowQueryHook is called for every statement that took longer than the
// slow threshold.
type SlowQueryHook func(ctx context.Context, query string, args []any, duration time.Duration)

// StatsDriver counts the statements and transactions of the wrapped driver.
type StatsDriver struct {
	dialect.Driver
	stats     *QueryStats
	threshold atomic.Int64
	hook      SlowQueryHook
}

// StatsOption configures a StatsDriver.
type StatsOption func(*StatsDriver)

// WithSlowThreshold sets the duration above which a statement counts as
// slow.
func WithSlowThreshold(d time.Duration) StatsOption {
	return func(s *StatsDriver) { s.threshold.Store(int64(d)) }
}

// WithSlowQueryHook sets the callback of slow statements.
func WithSlowQueryHook(hook SlowQueryHook) StatsOption {
	return func(s *StatsDriver) { s.hook = hook }
}

// WithSlowQueryLog reports slow statements as warnings of logger, or of the
// default logger when nil.
func WithSlowQueryLog(logger *slog.Logger) StatsOption {
	if logger == nil {
		logger = slog.Default()
	}
	return WithSlowQueryHook(func(ctx context.Context, query string, args []any, duration time.Duration) {
		logger.WarnContext(ctx, "slow statement", slog.Duration("duration", duration), slog.String("query", query), slog.Any("args", args))
	})
}

// NewStatsDriver wraps drv so that its statements are counted:
//
//	drv := sql.NewStatsDriver(base, sql.WithSlowQueryLog(logger))
//	tmpl := transfer.WriteTemplate[Employee]{Driver: drv, Query: insert}
//	res, err := transfer.NewWriter[Employee]().Write(ctx, tmpl, chunk)
//	logger.Info("write finished", "stats", drv.QueryStats().Stats())
func NewStatsDriver(drv dialect.Driver, opts ...StatsOption) *StatsDriver {
	s := &StatsDriver{Driver: drv, stats: new(QueryStats)}
	s.threshold.Store(int64(DefaultSlowThreshold))
	for _, opt := range opts {
		opt(s)
	}
	return s
}

// QueryStats returns the counters of the driver.
func (d *StatsDriver) QueryStats() *QueryStats { return d.stats }

// SlowThreshold returns the slow statement threshold.
func (d *StatsDriver) SlowThreshold() time.Duration { return time.Duration(d.threshold.Load()) }

// SetSlowThreshold changes the slow statement threshold.
func (d *StatsDriver) SetSlowThreshold(threshold time.Duration) { d.threshold.Store(int64(threshold)) }

// Query implements dialect.Driver.
func (d *StatsDriver) Query(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, &d.stats.queries, query, args, func() error { return d.Driver.Query(ctx, query, args, v) })
}

// Exec implements dialect.Driver.
func (d *StatsDriver) Exec(ctx context.Context, query string, args, v any) error {
	return d.observe(ctx, &d.stats.execs, query, args, func() error { return d.Driver.Exec(ctx, query, args, v) })
}

// Tx implements dialect.Driver. Statements of the transaction are counted
// with the ones of the driver.
func (d *StatsDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		d.stats.errors.Add(1)
		return nil, err
	}
	d.stats.txs.Add(1)
	return &StatsTx{Tx: tx, driver: d}, nil
}

// observe runs a statement and adds it to counter.
func (d *StatsDriver) observe(ctx context.Context, counter *atomic.Int64, query string, args any, run func() error) error {
	start := time.Now()
	err := run()
	elapsed := time.Since(start)
	counter.Add(1)
	d.stats.elapsed.Add(int64(elapsed))
	if err != nil {
		d.stats.errors.Add(1)
	}
	if elapsed > d.SlowThreshold() {
		d.stats.slow.Add(1)
		if d.hook != nil {
			list, _ := args.([]any)
			d.hook(ctx, query, list, elapsed)
		}
	}
	return err
}

// StatsTx is a transaction of a StatsDriver.
type StatsTx struct {
	dialect.Tx
	driver *StatsDriver
}

// Query implements dialect.Tx.
func (tx *StatsTx) Query(ctx context.Context, query string, args, v any) error {
	return tx.driver.observe(ctx, &tx.driver.stats.queries, query, args, func() error { return tx.Tx.Query(ctx, query, args, v) })
}

// Exec implements dialect.Tx.
func (tx *StatsTx) Exec(ctx context.Context, query string, args, v any) error {
	return tx.driver.observe(ctx, &tx.driver.stats.execs, query, args, func() error { return tx.Tx.Exec(ctx, query, args, v) })
}

// Commit implements dialect.Tx. A failed commit counts as an error.
func (tx *StatsTx) Commit() error {
	if err := tx.Tx.Commit(); err != nil {
		tx.driver.stats.errors.Add(1)
		return err
	}
	tx.driver.stats.commits.Add(1)
	return nil
}

// Rollback implements dialect.Tx.
func (tx *StatsTx) Rollback() error {
	tx.driver.stats.rollbacks.Add(1)
	return tx.Tx.Rollback()
}

// DebugDriver logs every statement and transaction of the wrapped driver.
type DebugDriver struct {
	dialect.Driver
	log statementLog
}

// DebugOption configures a DebugDriver.
type DebugOption func(*DebugDriver)

// DebugWithLogger sets the logger, slog.Default() when unset.
func DebugWithLogger(logger *slog.Logger) DebugOption {
	return func(d *DebugDriver) { d.log.logger = logger }
}

// DebugWithLevel sets the level of the records, slog.LevelDebug when unset.
func DebugWithLevel(level slog.Level) DebugOption {
	return func(d *DebugDriver) { d.log.level = level }
}

// NewDebugDriver wraps drv with statement logging.
func NewDebugDriver(drv dialect.Driver, opts ...DebugOption) *DebugDriver {
	d := &DebugDriver{Driver: drv, log: statementLog{logger: slog.Default(), level: slog.LevelDebug}}
	for _, opt := range opts {
		opt(d)
	}
	return d
}

// Query implements dialect.Driver.
func (d *DebugDriver) Query(ctx context.Context, query string, args, v any) error {
	d.log.statement(ctx, "query", query, args)
	return d.Driver.Query(ctx, query, args, v)
}

// Exec implements dialect.Driver.
func (d *DebugDriver) Exec(ctx context.Context, query string, args, v any) error {
	d.log.statement(ctx, "exec", query, args)
	return d.Driver.Exec(ctx, query, args, v)
}

// Tx implements dialect.Driver. The records of the transaction carry a
// tx_id attribute.
func (d *DebugDriver) Tx(ctx context.Context) (dialect.Tx, error) {
	id := uuid.NewString()
	d.log.logger.Log(ctx, d.log.level, "begin transaction", slog.String("tx_id", id))
	tx, err := d.Driver.Tx(ctx)
	if err != nil {
		return nil, err
	}
	return &DebugTx{Tx: tx, log: statementLog{logger: d.log.logger.With(slog.String("tx_id", id)), level: d.log.level}}, nil
}

// DebugTx is a transaction of a DebugDriver.
type DebugTx struct {
	dialect.Tx
	log statementLog
}

// Query implements dialect.Tx.
func (tx *DebugTx) Query(ctx context.Context, query string, args, v any) error {
	tx.log.statement(ctx, "tx query", query, args)
	return tx.Tx.Query(ctx, query, args, v)
}

// Exec implements dialect.Tx.
func (tx *DebugTx) Exec(ctx context.Context, query string, args, v any) error {
	tx.log.statement(ctx, "tx exec", query, args)
	return tx.Tx.Exec(ctx, query, args, v)
}

// Commit implements dialect.Tx.
func (tx *DebugTx) Commit() error {
	tx.log.logger.Log(context.Background(), tx.log.level, "commit transaction")
	return tx.Tx.Commit()
}

// Rollback implements dialect.Tx.
func (tx *DebugTx) Rollback() error {
	tx.log.logger.Log(context.Background(), tx.log.level, "rollback transaction")
	return tx.Tx.Rollback()
}

type statementLog struct {
	logger *slog.Logger
	level  slog.Level
}

func (l statementLog) statement(ctx context.Context, msg, query string, args any) {
	l.logger.Log(ctx, l.level, msg, slog.String("query", query), slog.Any("args", args))
}

var (
	_ dialect.Driver = (*StatsDriver)(nil)
	_ dialect.Tx     = (*StatsTx)(nil)
	_ dialect.Driver = (*DebugDriver)(nil)
	_ dialect.Tx     = (*DebugTx)(nil)
)
