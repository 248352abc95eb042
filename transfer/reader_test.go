package transfer

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/DATA-DOG/go-sqlmock"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/dialect"
	"github.com/syssam/criteria/dialect/sql"
	"github.com/syssam/criteria/schema"
)

const deptSQL = "select ID, NAME from DEPARTMENTS"

func newMock(t *testing.T) (*sql.Driver, sqlmock.Sqlmock) {
	t.Helper()
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherEqual))
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	mock.MatchExpectationsInOrder(false)
	return sql.OpenDB(dialect.MySQL, db), mock
}

func deptRows(from, to int) *sqlmock.Rows {
	rows := sqlmock.NewRows([]string{"ID", "NAME"})
	for i := from; i < to; i++ {
		rows.AddRow(int64(i), []byte("dept"))
	}
	return rows
}

func deptReader(opts ...Option) *Reader[department] {
	return NewReader[department](append([]Option{WithConfig(Config{Dialect: dialect.MySQL, Workers: 2})}, opts...)...)
}

func TestReaderSQL(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t)
	mock.ExpectQuery("select count(*) from (" + deptSQL + ") count_query").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(5))
	mock.ExpectQuery(deptSQL + " LIMIT 2 OFFSET 0").WillReturnRows(deptRows(0, 2))
	mock.ExpectQuery(deptSQL + " LIMIT 2 OFFSET 2").WillReturnRows(deptRows(2, 4))
	mock.ExpectQuery(deptSQL + " LIMIT 2 OFFSET 4").WillReturnRows(deptRows(4, 5))

	var (
		mu       sync.Mutex
		consumed int
	)
	op := deptReader(WithFetchSize(2)).Read(context.Background(), ReadTemplate[department]{
		Driver: drv,
		SQL:    deptSQL,
		Table:  "DEPARTMENTS",
	}, func(_ context.Context, c Chunk[department]) error {
		mu.Lock()
		defer mu.Unlock()
		consumed += c.Len()
		return nil
	})
	chunks, err := op.Wait()
	require.NoError(t, err)
	assert.Equal(t, StateJoined, op.State())
	assert.Equal(t, 5, op.Count())
	assert.Equal(t, 2, op.ChunkSize())
	assert.Equal(t, 5, consumed)
	require.Len(t, chunks, 3)
	for i, c := range chunks {
		assert.Equal(t, 2*i, c.Start)
		assert.Equal(t, min(2*i+2, 5), c.End)
		assert.Equal(t, department{ID: 2 * i, Name: "dept"}, c.Data[0])
	}
	assert.NotEmpty(t, op.ID())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReaderQuery(t *testing.T) {
	t.Parallel()
	db, mock, err := sqlmock.New()
	require.NoError(t, err)
	defer db.Close()
	mock.MatchExpectationsInOrder(false)
	drv := sql.OpenDB(dialect.MySQL, db)

	q := sql.NewCriteriaBuilder(dialect.For(dialect.MySQL), schema.NewRegistry()).Query()
	d := q.MustFrom(department{})
	q.Select(d.Get("id"), d.Get("name")).OrderBy(sql.Asc(d.Get("id")))

	mock.ExpectQuery(`count\(\*\)`).WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(3))
	mock.ExpectQuery(`LIMIT 2 OFFSET 0$`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(1), "a").AddRow(int64(2), "b"))
	mock.ExpectQuery(`LIMIT 2 OFFSET 2$`).WillReturnRows(
		sqlmock.NewRows([]string{"id", "name"}).AddRow(int64(3), "c"))

	rows, err := NewReader[department](WithConfig(Config{Workers: 2, MinChunkSize: 1, MaxChunkSize: 2})).
		ReadAll(context.Background(), ReadTemplate[department]{Driver: drv, Query: q})
	require.NoError(t, err)
	assert.Equal(t, []department{{ID: 1, Name: "a"}, {ID: 2, Name: "b"}, {ID: 3, Name: "c"}}, rows)
	require.NoError(t, mock.ExpectationsWereMet())

	// The template query is left untouched.
	assert.True(t, q.Pagination().IsVoid())
}

func TestReaderKnownCount(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t)
	mock.ExpectQuery(deptSQL + " LIMIT 1000 OFFSET 0").WillReturnRows(deptRows(0, 3))
	count := 3
	rows, err := deptReader().ReadAll(context.Background(), ReadTemplate[department]{Driver: drv, SQL: deptSQL, Count: &count})
	require.NoError(t, err)
	assert.Len(t, rows, 3)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReaderEmpty(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t)
	mock.ExpectQuery("select count(*) from (" + deptSQL + ") count_query").
		WillReturnRows(sqlmock.NewRows([]string{"count"}).AddRow(0))
	op := deptReader().Read(context.Background(), ReadTemplate[department]{Driver: drv, SQL: deptSQL}, nil)
	chunks, err := op.Wait()
	require.NoError(t, err)
	assert.Empty(t, chunks)
	assert.Zero(t, op.Count())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReaderCountFailure(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t)
	mock.ExpectQuery("select count(*) from (" + deptSQL + ") count_query").WillReturnError(errors.New("no such table"))
	_, err := deptReader().Read(context.Background(), ReadTemplate[department]{
		Driver:        drv,
		SQL:           deptSQL,
		Table:         "DEPARTMENTS",
		CorrelationID: "count-1",
	}, nil).Wait()
	var derr *criteria.DataAccessError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "count", derr.Op)
	assert.Equal(t, "DEPARTMENTS", derr.Table)
	assert.Equal(t, "count-1", derr.CorrelationID)
}

func TestReaderChunkFailure(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t)
	mock.ExpectQuery(deptSQL + " LIMIT 2 OFFSET 0").WillReturnRows(deptRows(0, 2))
	mock.ExpectQuery(deptSQL + " LIMIT 2 OFFSET 2").WillReturnError(errors.New("connection reset"))

	count := 6
	op := deptReader(WithWorkers(1), WithFetchSize(2), WithCancelOnFailure(true)).
		Read(context.Background(), ReadTemplate[department]{Driver: drv, SQL: deptSQL, Count: &count, Table: "DEPARTMENTS"}, nil)
	chunks, err := op.Wait()
	var derr *criteria.DataAccessError
	require.ErrorAs(t, err, &derr)
	assert.Equal(t, "read", derr.Op)
	assert.Equal(t, 2, derr.Start)
	assert.Equal(t, 4, derr.End)
	assert.Equal(t, op.ID(), derr.CorrelationID)
	assert.Contains(t, err.Error(), "connection reset")
	assert.True(t, op.Cancelled())
	require.Len(t, chunks, 1, "chunks delivered before the failure are kept")
	// The last chunk is never started.
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReaderCancel(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t)
	mock.ExpectQuery(deptSQL + " LIMIT 2 OFFSET 0").WillReturnRows(deptRows(0, 2))
	mock.ExpectQuery(deptSQL + " LIMIT 2 OFFSET 2").WillReturnRows(deptRows(2, 4))
	mock.ExpectQuery(deptSQL + " LIMIT 2 OFFSET 4").WillReturnRows(deptRows(4, 6))

	var (
		ops   = make(chan *Operation[department], 1)
		calls int
	)
	count := 6
	op := deptReader(WithWorkers(1), WithFetchSize(2)).Read(context.Background(),
		ReadTemplate[department]{Driver: drv, SQL: deptSQL, Count: &count},
		func(context.Context, Chunk[department]) error {
			calls++
			(<-ops).Cancel()
			return nil
		})
	ops <- op
	chunks, err := op.Wait()
	require.NoError(t, err, "a cancelled read completes without error")
	assert.Equal(t, 1, calls)
	require.Len(t, chunks, 1)
	assert.Equal(t, 0, chunks[0].Start)
	assert.True(t, op.Cancelled())
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestReaderConsumerFailure(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t)
	mock.ExpectQuery(deptSQL + " LIMIT 1000 OFFSET 0").WillReturnRows(deptRows(0, 1))
	count := 1
	_, err := deptReader().Read(context.Background(), ReadTemplate[department]{Driver: drv, SQL: deptSQL, Count: &count},
		func(context.Context, Chunk[department]) error { return errors.New("sink full") }).Wait()
	assert.EqualError(t, err, "sink full")
}

func TestReaderMapper(t *testing.T) {
	t.Parallel()
	drv, mock := newMock(t)
	mock.ExpectQuery(deptSQL + " LIMIT 1000 OFFSET 0").WillReturnRows(deptRows(0, 2))
	count := 2
	names, err := NewReader[string](WithConfig(Config{Dialect: dialect.MySQL})).ReadAll(context.Background(), ReadTemplate[string]{
		Driver: drv,
		SQL:    deptSQL,
		Count:  &count,
		Mapper: RowMapperFunc[string](func(_ context.Context, _ []string, values []any) (string, error) {
			return string(values[1].([]byte)), nil
		}),
	})
	require.NoError(t, err)
	assert.Equal(t, []string{"dept", "dept"}, names)
}

func TestReaderTemplateErrors(t *testing.T) {
	t.Parallel()
	drv, _ := newMock(t)
	tests := []struct {
		name string
		tmpl ReadTemplate[department]
	}{
		{name: "NoDriver", tmpl: ReadTemplate[department]{SQL: deptSQL}},
		{name: "NoQuery", tmpl: ReadTemplate[department]{Driver: drv, SQL: "  "}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			op := deptReader().Read(context.Background(), tt.tmpl, nil)
			_, err := op.Wait()
			require.Error(t, err)
			assert.True(t, criteria.IsConfigurationError(err))
			assert.Equal(t, StateJoined, op.State())
		})
	}
	_, err := NewReader[int]().ReadAll(context.Background(), ReadTemplate[int]{Driver: drv, SQL: deptSQL})
	assert.True(t, criteria.IsConfigurationError(err))
}

func TestStateString(t *testing.T) {
	t.Parallel()
	for s, want := range map[State]string{
		StateInit:     "init",
		StateCounting: "counting",
		StateChunking: "chunking",
		StateFetching: "fetching",
		StateJoined:   "joined",
	} {
		assert.Equal(t, want, s.String())
	}
}
