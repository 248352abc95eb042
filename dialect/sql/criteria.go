package sql

import (
	"github.com/syssam/criteria/dialect"
	"github.com/syssam/criteria/schema"
)

// CriteriaBuilder creates queries, roots and common table expressions
// bound to one dialect and one schema registry.
//
//	cb := sql.NewCriteriaBuilder(dialect.For("oracle"), reg)
//	q := cb.Query()
//	e, err := q.From(Employee{})
//	if err != nil {
//		return err
//	}
//	e.As("tbl")
//	q.Select(e.Get("id"), e.Get("lastName")).
//		Where(sql.GT(e.Get("id"), 0)).
//		OrderBy(sql.Asc(e.Get("lastName"))).
//		Paginate(10, 0)
//	query, err := q.BuildSelectQuery()
type CriteriaBuilder struct {
	dialect  dialect.Dialect
	registry *schema.Registry
}

// NewCriteriaBuilder returns a builder for the given dialect and registry.
// A nil dialect selects the standard one, a nil registry a new empty one.
func NewCriteriaBuilder(d dialect.Dialect, reg *schema.Registry) *CriteriaBuilder {
	if d == nil {
		d = dialect.Default()
	}
	if reg == nil {
		reg = schema.NewRegistry()
	}
	return &CriteriaBuilder{dialect: d, registry: reg}
}

// Dialect returns the dialect of the builder.
func (cb *CriteriaBuilder) Dialect() dialect.Dialect { return cb.dialect }

// Registry returns the schema registry of the builder.
func (cb *CriteriaBuilder) Registry() *schema.Registry { return cb.registry }

// Query returns a new, empty query.
func (cb *CriteriaBuilder) Query() *CriteriaQuery {
	return &CriteriaQuery{cb: cb, proj: &projection{}}
}

// Root registers the type of v and returns a root on its table.
func (cb *CriteriaBuilder) Root(v any) (*Root, error) {
	e, err := cb.registry.Register(v)
	if err != nil {
		return nil, err
	}
	return NewRoot(e), nil
}

// Cte returns a common table expression of the given query.
func (cb *CriteriaBuilder) Cte(name string, q *CriteriaQuery, columns ...string) *Cte {
	return NewCte(name, q, columns...)
}

// Derived returns a derived table of the given query.
func (cb *CriteriaBuilder) Derived(q *CriteriaQuery, alias string) *DerivedTable {
	return Derived(q, alias)
}
