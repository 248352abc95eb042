// Package sqlerr classifies driver errors into constraint violation kinds.
// It understands lib/pq, pgx, go-sql-driver/mysql and modernc.org/sqlite
// errors, and falls back to message matching for other drivers.
package sqlerr

import (
	"errors"
	"strings"

	"github.com/go-sql-driver/mysql"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/lib/pq"
	"modernc.org/sqlite"
	sqlite3 "modernc.org/sqlite/lib"
)

// Kind is the kind of a constraint violation.
type Kind int

// Constraint kinds.
const (
	Unknown Kind = iota
	Unique
	ForeignKey
	Check
	NotNull
)

// String returns the name of the kind.
func (k Kind) String() string {
	switch k {
	case Unique:
		return "unique"
	case ForeignKey:
		return "foreign_key"
	case Check:
		return "check"
	case NotNull:
		return "not_null"
	default:
		return "unknown"
	}
}

// ConstraintError wraps a driver error that violated a constraint.
type ConstraintError struct {
	Kind Kind
	Err  error
}

// Error returns the error string.
func (e *ConstraintError) Error() string {
	return "sqlerr: " + e.Kind.String() + " constraint violation: " + e.Err.Error()
}

// Unwrap returns the driver error.
func (e *ConstraintError) Unwrap() error { return e.Err }

// Wrap returns err wrapped in a ConstraintError if it is a constraint
// violation, and err unchanged otherwise.
func Wrap(err error) error {
	if k := Classify(err); k != Unknown {
		return &ConstraintError{Kind: k, Err: err}
	}
	return err
}

// PostgreSQL SQLSTATE codes for constraint violations (Class 23).
const (
	pgNotNullViolation    = "23502"
	pgForeignKeyViolation = "23503"
	pgUniqueViolation     = "23505"
	pgCheckViolation      = "23514"
)

// MySQL error numbers for constraint violations.
const (
	mysqlBadNull                = 1048
	mysqlDuplicateEntry         = 1062
	mysqlForeignKeyParent       = 1451 // Cannot delete or update a parent row
	mysqlForeignKeyChild        = 1452 // Cannot add or update a child row
	mysqlCheckConstraintViolate = 3819
)

var (
	pgKinds = map[string]Kind{
		pgNotNullViolation:    NotNull,
		pgForeignKeyViolation: ForeignKey,
		pgUniqueViolation:     Unique,
		pgCheckViolation:      Check,
	}
	mysqlKinds = map[uint16]Kind{
		mysqlBadNull:                NotNull,
		mysqlDuplicateEntry:         Unique,
		mysqlForeignKeyParent:       ForeignKey,
		mysqlForeignKeyChild:        ForeignKey,
		mysqlCheckConstraintViolate: Check,
	}
	// SQLite extended result codes.
	sqliteKinds = map[int]Kind{
		sqlite3.SQLITE_CONSTRAINT_UNIQUE:     Unique,
		sqlite3.SQLITE_CONSTRAINT_PRIMARYKEY: Unique,
		sqlite3.SQLITE_CONSTRAINT_FOREIGNKEY: ForeignKey,
		sqlite3.SQLITE_CONSTRAINT_CHECK:      Check,
		sqlite3.SQLITE_CONSTRAINT_NOTNULL:    NotNull,
	}
	// Fallback messages for drivers without typed errors.
	messages = []struct {
		kind Kind
		subs []string
	}{
		{Unique, []string{"Error 1062", "violates unique constraint", "UNIQUE constraint failed"}},
		{ForeignKey, []string{"Error 1451", "Error 1452", "violates foreign key constraint", "FOREIGN KEY constraint failed"}},
		{Check, []string{"Error 3819", "violates check constraint", "CHECK constraint failed"}},
		{NotNull, []string{"Error 1048", "violates not-null constraint", "NOT NULL constraint failed"}},
	}
)

// Classify returns the constraint kind of err, or Unknown.
func Classify(err error) Kind {
	if err == nil {
		return Unknown
	}
	var ce *ConstraintError
	if errors.As(err, &ce) {
		return ce.Kind
	}
	var pqErr *pq.Error
	if errors.As(err, &pqErr) {
		if k, ok := pgKinds[string(pqErr.Code)]; ok {
			return k
		}
	}
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		if k, ok := pgKinds[pgErr.Code]; ok {
			return k
		}
	}
	var myErr *mysql.MySQLError
	if errors.As(err, &myErr) {
		if k, ok := mysqlKinds[myErr.Number]; ok {
			return k
		}
	}
	var liteErr *sqlite.Error
	if errors.As(err, &liteErr) {
		if k, ok := sqliteKinds[liteErr.Code()]; ok {
			return k
		}
	}
	msg := err.Error()
	for _, m := range messages {
		if containsAny(msg, m.subs...) {
			return m.kind
		}
	}
	return Unknown
}

// IsConstraintError returns true if the error resulted from a database constraint violation.
func IsConstraintError(err error) bool { return Classify(err) != Unknown }

// IsUniqueConstraintError reports if the error resulted from a DB uniqueness constraint violation.
// e.g. duplicate value in unique index.
func IsUniqueConstraintError(err error) bool { return Classify(err) == Unique }

// IsForeignKeyConstraintError reports if the error resulted from a database foreign-key constraint violation.
// e.g. parent row does not exist.
func IsForeignKeyConstraintError(err error) bool { return Classify(err) == ForeignKey }

// IsCheckConstraintError reports if the error resulted from a database check constraint violation.
func IsCheckConstraintError(err error) bool { return Classify(err) == Check }

// IsNotNullConstraintError reports if the error resulted from a NULL written to a NOT NULL column.
func IsNotNullConstraintError(err error) bool { return Classify(err) == NotNull }

// containsAny returns true if s contains any of the substrings.
func containsAny(s string, substrings ...string) bool {
	for _, sub := range substrings {
		if strings.Contains(s, sub) {
			return true
		}
	}
	return false
}
