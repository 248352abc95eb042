package dialect

import (
	"context"
	"database/sql/driver"
)

// ExecQuerier wraps the two database operations.
type ExecQuerier interface {
	// Exec executes a query that does not return records. For example,
	// in SQL, INSERT or UPDATE. It scans the result into the pointer v.
	// For SQL drivers, it is dialect/sql.Result.
	Exec(ctx context.Context, query string, args, v any) error
	// Query executes a query that returns rows, typically a SELECT in SQL.
	// It scans the result into the pointer v. For SQL drivers, it is
	// *dialect/sql.Rows.
	Query(ctx context.Context, query string, args, v any) error
}

// Driver is the interface that wraps all necessary operations for the
// compiler and the transfer engine.
type Driver interface {
	ExecQuerier
	// Tx starts and returns a new, independent transaction.
	Tx(context.Context) (Tx, error)
	// Close closes the underlying connection pool.
	Close() error
	// Dialect returns the dialect name of the driver.
	Dialect() string
}

// Tx wraps the Exec and Query operations in a transaction.
type Tx interface {
	ExecQuerier
	driver.Tx
}

type nopTx struct {
	Driver
}

func (nopTx) Commit() error   { return nil }
func (nopTx) Rollback() error { return nil }

// NopTx returns a Tx with a no-op Commit / Rollback methods wrapping
// the given driver. It is used by tests and by drivers that run without
// transaction support.
func NopTx(d Driver) Tx {
	return nopTx{d}
}
