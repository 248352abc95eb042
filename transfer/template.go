package transfer

import (
	"strings"
	"sync/atomic"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/dialect"
	"github.com/syssam/criteria/dialect/sql"
)

// ReadTemplate describes a chunked read. Either Query or SQL is set. Query
// is paginated through the compiler, which keeps set operations correct;
// SQL gets the dialect pagination clause appended.
type ReadTemplate[R any] struct {
	// Driver executes the statements.
	Driver dialect.ExecQuerier
	// Query is the criteria of the read.
	Query *sql.CriteriaQuery
	// SQL is a raw SELECT statement, used when Query is nil. It must not
	// carry its own pagination.
	SQL  string
	Args []any
	// Dialect renders the pagination of SQL. It defaults to the dialect of
	// the config.
	Dialect dialect.Dialect
	// Count is the known number of rows. When nil, a COUNT query is issued.
	Count *int
	// FetchSize, when positive, is the chunk size.
	FetchSize int
	// Mapper materializes rows. It defaults to a StructMapper of R.
	Mapper RowMapper[R]
	// Table names the read in logs and errors.
	Table         string
	CorrelationID string
}

// readPlan is a validated read template.
type readPlan[R any] struct {
	tmpl    ReadTemplate[R]
	dialect dialect.Dialect
	table   string
	id      string
}

func (p *readPlan[R]) countQuery() (string, error) {
	if p.tmpl.Query != nil {
		return p.tmpl.Query.BuildCountQuery()
	}
	return "select count(*) from (" + p.tmpl.SQL + ") " + sql.CountQueryAlias, nil
}

// pageQuery returns the statement reading size rows from offset.
func (p *readPlan[R]) pageQuery(offset, size int) (string, error) {
	if p.tmpl.Query != nil {
		q := p.tmpl.Query.Clone()
		q.Page(sql.Pagination{Limit: &size, Offset: &offset})
		return q.BuildSelectQuery()
	}
	return p.tmpl.SQL + " " + p.dialect.LimitOffset(&size, &offset), nil
}

func (p *readPlan[R]) args() []any {
	if p.tmpl.Query != nil || p.tmpl.Args == nil {
		return []any{}
	}
	return p.tmpl.Args
}

func newReadPlan[R any](t ReadTemplate[R], o *options) (*readPlan[R], error) {
	if t.Driver == nil {
		return nil, criteria.NewConfigurationError("read template", "missing driver")
	}
	p := &readPlan[R]{tmpl: t, dialect: t.Dialect, table: t.Table}
	switch {
	case t.Query != nil:
		if err := t.Query.Err(); err != nil {
			return nil, err
		}
		p.dialect = t.Query.Dialect()
		if p.table == "" {
			if r := t.Query.Root(); r != nil {
				p.table = r.Table()
			}
		}
	case strings.TrimSpace(t.SQL) == "":
		return nil, criteria.NewConfigurationError("read template", "missing query or sql")
	}
	if p.dialect == nil {
		p.dialect = o.config.DialectImpl()
	}
	if p.tmpl.Mapper == nil {
		m, err := NewStructMapper[R](o.registry, WithLogger(o.logger), WithCoercions(o.coercions))
		if err != nil {
			return nil, err
		}
		p.tmpl.Mapper = m
	}
	return p, nil
}

// WriteTemplate describes a chunked write. Either Query or SQL is set.
// With Query, the INSERT statement and its bound columns are compiled from
// the query projection (all writable columns when nothing is selected).
type WriteTemplate[R any] struct {
	// Driver opens a new transaction for every write attempt.
	Driver dialect.Driver
	// Query is the criteria the INSERT statement is compiled from.
	Query *sql.CriteriaQuery
	// SQL is an explicit parameterized statement executed once per row,
	// used when Query is nil. Bind returns its arguments.
	SQL  string
	Bind func(R) ([]any, error)
	// Table names the write in logs and errors.
	Table         string
	CorrelationID string
	// CancelOnFailure stops the write at the first dropped row: sub-chunks
	// not yet attempted are skipped. Config.CancelOnFailure enables it for
	// every template of a writer.
	CancelOnFailure bool
	// Cancelled is the cancellation flag checked before every attempt. It
	// may be shared by the writes of several chunks; a nil flag is local to
	// one Write call.
	Cancelled *atomic.Bool
}

// writePlan is a validated write template.
type writePlan[R any] struct {
	drv   dialect.Driver
	stmt  string
	bind  func(R) ([]any, error)
	table string
}

func newWritePlan[R any](t WriteTemplate[R]) (*writePlan[R], error) {
	if t.Driver == nil {
		return nil, criteria.NewConfigurationError("write template", "missing driver")
	}
	p := &writePlan[R]{drv: t.Driver, stmt: t.SQL, bind: t.Bind, table: t.Table}
	if t.Query != nil {
		stmt, err := t.Query.BuildInsertQuery()
		if err != nil {
			return nil, err
		}
		cols, err := t.Query.InsertColumns()
		if err != nil {
			return nil, err
		}
		p.stmt = stmt
		if p.bind == nil {
			p.bind = func(rec R) ([]any, error) { return Values(rec, cols), nil }
		}
		if p.table == "" {
			p.table = t.Query.Root().Table()
		}
	}
	if strings.TrimSpace(p.stmt) == "" {
		return nil, criteria.NewConfigurationError("write template", "missing query or sql")
	}
	if p.bind == nil {
		return nil, criteria.NewConfigurationError("write template", "sql statement requires a bind function")
	}
	return p, nil
}
