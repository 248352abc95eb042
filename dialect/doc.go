// Package dialect provides the per-engine rendering rules and the execution
// interfaces used by the criteria compiler and the transfer engine.
//
// # Supported Dialects
//
// Each dialect is identified by a constant string:
//
//	dialect.Standard  = "standard"
//	dialect.MySQL     = "mysql"
//	dialect.Postgres  = "postgres"
//	dialect.Oracle    = "oracle"
//	dialect.SQLServer = "sqlserver"
//	dialect.DB2       = "db2"
//	dialect.SQLite    = "sqlite"
//
// A Dialect is selected by name once at startup and never changes. Unknown
// names fall back to the standard (ANSI) dialect instead of failing:
//
//	d := dialect.For("oracle")
//	d.LimitOffset(ptr(5), ptr(10)) // OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY
//
// Concrete dialects embed the standard one and override only what diverges:
// pagination syntax, identifier quoting, boolean literals, string
// concatenation and parameter placeholders.
//
// # Driver Interface
//
// The package defines the Driver interface for database operations:
//
//	type Driver interface {
//	    ExecQuerier
//	    Tx(ctx context.Context) (Tx, error)
//	    Close() error
//	    Dialect() string
//	}
//
// Every call to Tx starts a new, independent transaction on its own pooled
// connection. The transfer writer relies on this to give each chunk
// "requires new" semantics.
//
// # Sub-packages
//
//   - dialect/sql: expression AST, criteria compiler and database/sql driver
//   - dialect/sql/sqlerr: driver error classification
package dialect
