// Package sql provides the criteria compiler and the database/sql driver
// layer.
//
// Queries are composed from an immutable expression tree and rendered to
// SQL text for one dialect. Nothing is concatenated by the caller.
//
// # Builder Types
//
//   - CriteriaBuilder: creates queries, roots, CTEs and derived tables bound
//     to a dialect and a schema registry
//   - CriteriaQuery: one logical statement, rendered by BuildSelectQuery,
//     BuildCountQuery, BuildInsertQuery, BuildUpdateQuery and BuildDeleteQuery
//   - Builder: low-level render context with identifier escaping and error
//     accumulation
//
// # Dialect Support
//
// SQL generation adapts to the dialect of the criteria builder:
//
//	import "github.com/syssam/criteria/dialect"
//
//	cb := sql.NewCriteriaBuilder(dialect.For(dialect.Oracle), reg)
//	q := cb.Query()
//	e := q.MustFrom(Employee{}).As("tbl")
//	q.Select(e.Get("id")).Paginate(5, 10)
//	// select tbl.ID as id from EMPLOYEES tbl OFFSET 10 ROWS FETCH NEXT 5 ROWS ONLY
//
// # Predicates
//
// Predicates take a Selectable on the left and a value or a Selectable on
// the right:
//
//	sql.EQ(e.Get("name"), "john")           // tbl.NAME = 'john'
//	sql.NEQ(e.Get("status"), "deleted")     // tbl.STATUS <> 'deleted'
//	sql.GT(e.Get("age"), 18)                // tbl.AGE > 18
//	sql.Like(e.Get("name"), "jo")           // tbl.NAME like '%jo%'
//	sql.StartsWith(e.Get("email"), "admin") // tbl.EMAIL like 'admin%'
//	sql.IsNull(e.Get("deletedAt"))          // tbl.DELETED_AT is null
//	sql.In(e.Get("status"), "a", "b")       // tbl.STATUS in ('a','b')
//
// Expressions compose with And, Or and Not. Composition returns new nodes,
// so a predicate can be shared between queries. InOpt with no values is the
// identity expression and renders nothing.
//
// # Set Operations
//
// A query combining set operations with an ordering or a pagination is
// rendered as an outer query on a derived table aliased nested_query:
//
//	q.Union(other).OrderBy(sql.Asc(e.Get("id")))
//	// select nested_query.id as id from (select ... union select ...) nested_query
//	//   order by nested_query.id asc
//
// # Driver
//
// Driver wraps a *sql.DB and implements dialect.Driver. StatsDriver and
// DebugDriver decorate any dialect.Driver with statistics and slog logging.
package sql
