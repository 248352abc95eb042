package sql

import (
	"sync"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/dialect"
)

// CriteriaQuery is the aggregate of one logical statement: selections,
// sources, joins, where and having predicates, grouping, ordering, set
// operations, common table expressions and pagination.
//
// From and Select replace their previous value. Where, Having, Join,
// GroupBy, OrderBy, set operations and With are additive.
type CriteriaQuery struct {
	cb         *CriteriaBuilder
	distinct   bool
	selections []Selectable
	from       []Source
	joins      []*Join
	where      []*Expression
	groupBy    []Selectable
	having     []*Expression
	orderBy    []*Order
	setOps     []*SetOperation
	ctes       []*Cte
	page       Pagination
	sets       []assignment
	errs       []error
	proj       *projection
}

// projection caches the default projection, computed on first render.
type projection struct {
	once sync.Once
	sel  []Selectable
}

type assignment struct {
	path  *Path
	value any
}

// Dialect returns the dialect the query renders with.
func (q *CriteriaQuery) Dialect() dialect.Dialect {
	if q.cb == nil {
		return dialect.Default()
	}
	return q.cb.dialect
}

// Builder returns the criteria builder that created the query.
func (q *CriteriaQuery) Builder() *CriteriaBuilder { return q.cb }

// From registers the type of v and makes its table the only source of the
// query. A type without table metadata fails with a ConfigurationError,
// which is also recorded on the query.
func (q *CriteriaQuery) From(v any) (*Root, error) {
	r, err := q.cb.Root(v)
	if err != nil {
		q.errs = append(q.errs, err)
		return nil, err
	}
	q.FromSource(r)
	return r, nil
}

// MustFrom is like From but panics on error.
func (q *CriteriaQuery) MustFrom(v any) *Root {
	r, err := q.From(v)
	if err != nil {
		panic(err)
	}
	return r
}

// FromSource replaces the sources of the query.
func (q *CriteriaQuery) FromSource(sources ...Source) *CriteriaQuery {
	q.from = append([]Source(nil), sources...)
	q.proj = &projection{}
	return q
}

// Select replaces the selections of the query.
func (q *CriteriaQuery) Select(sel ...Selectable) *CriteriaQuery {
	q.selections = append([]Selectable(nil), sel...)
	return q
}

// Distinct marks the projection as distinct.
func (q *CriteriaQuery) Distinct() *CriteriaQuery {
	q.distinct = true
	return q
}

// Where adds predicates to the where clause. Predicates are joined by
// "and". Construction errors are reported by the build methods.
func (q *CriteriaQuery) Where(es ...*Expression) *CriteriaQuery {
	q.where = append(q.where, es...)
	return q
}

// Having adds predicates to the having clause.
func (q *CriteriaQuery) Having(es ...*Expression) *CriteriaQuery {
	q.having = append(q.having, es...)
	return q
}

// GroupBy adds grouping columns.
func (q *CriteriaQuery) GroupBy(cols ...Selectable) *CriteriaQuery {
	q.groupBy = append(q.groupBy, cols...)
	return q
}

// OrderBy adds orderings.
func (q *CriteriaQuery) OrderBy(orders ...*Order) *CriteriaQuery {
	q.orderBy = append(q.orderBy, orders...)
	return q
}

// Join adds a join of the given kind.
func (q *CriteriaQuery) Join(kind JoinKind, target Source, on *Expression) *CriteriaQuery {
	q.joins = append(q.joins, &Join{Kind: kind, Target: target, On: on})
	return q
}

// InnerJoin adds an inner join.
func (q *CriteriaQuery) InnerJoin(target Source, on *Expression) *CriteriaQuery {
	return q.Join(InnerJoin, target, on)
}

// LeftJoin adds a left join.
func (q *CriteriaQuery) LeftJoin(target Source, on *Expression) *CriteriaQuery {
	return q.Join(LeftJoin, target, on)
}

// RightJoin adds a right join.
func (q *CriteriaQuery) RightJoin(target Source, on *Expression) *CriteriaQuery {
	return q.Join(RightJoin, target, on)
}

// FullJoin adds a full join.
func (q *CriteriaQuery) FullJoin(target Source, on *Expression) *CriteriaQuery {
	return q.Join(FullJoin, target, on)
}

// CrossJoin adds a cross join.
func (q *CriteriaQuery) CrossJoin(target Source) *CriteriaQuery {
	return q.Join(CrossJoin, target, nil)
}

func (q *CriteriaQuery) setOp(kind SetOpKind, other *CriteriaQuery) *CriteriaQuery {
	if other == nil {
		q.errs = append(q.errs, criteria.NewConfigurationError(kind.String(), "nil query"))
		return q
	}
	q.setOps = append(q.setOps, &SetOperation{Kind: kind, Query: other})
	return q
}

// Union combines the query with other using UNION.
func (q *CriteriaQuery) Union(other *CriteriaQuery) *CriteriaQuery { return q.setOp(Union, other) }

// UnionAll combines the query with other using UNION ALL.
func (q *CriteriaQuery) UnionAll(other *CriteriaQuery) *CriteriaQuery {
	return q.setOp(UnionAll, other)
}

// Intersect combines the query with other using INTERSECT.
func (q *CriteriaQuery) Intersect(other *CriteriaQuery) *CriteriaQuery {
	return q.setOp(Intersect, other)
}

// Except combines the query with other using EXCEPT.
func (q *CriteriaQuery) Except(other *CriteriaQuery) *CriteriaQuery {
	return q.setOp(Except, other)
}

// With declares common table expressions.
func (q *CriteriaQuery) With(ctes ...*Cte) *CriteriaQuery {
	q.ctes = append(q.ctes, ctes...)
	return q
}

// Limit sets the maximum number of rows.
func (q *CriteriaQuery) Limit(n int) *CriteriaQuery {
	q.page.Limit = &n
	return q
}

// Offset sets the number of rows to skip.
func (q *CriteriaQuery) Offset(n int) *CriteriaQuery {
	q.page.Offset = &n
	return q
}

// Paginate sets both limit and offset.
func (q *CriteriaQuery) Paginate(limit, offset int) *CriteriaQuery {
	return q.Limit(limit).Offset(offset)
}

// Page replaces the pagination of the query.
func (q *CriteriaQuery) Page(p Pagination) *CriteriaQuery {
	q.page = p
	return q
}

// Pagination returns the pagination of the query.
func (q *CriteriaQuery) Pagination() Pagination { return q.page }

// Set assigns a value to a column for UPDATE and INSERT statements.
func (q *CriteriaQuery) Set(p *Path, value any) *CriteriaQuery {
	q.sets = append(q.sets, assignment{path: p, value: value})
	return q
}

// Root returns the first source of the query if it is a Root.
func (q *CriteriaQuery) Root() *Root {
	if len(q.from) == 0 {
		return nil
	}
	r, _ := q.from[0].(*Root)
	return r
}

// HasSetOperations reports whether the query combines other queries.
func (q *CriteriaQuery) HasSetOperations() bool { return len(q.setOps) > 0 }

// Err returns the errors recorded while the query was composed, including
// the construction errors of its predicates.
func (q *CriteriaQuery) Err() error {
	errs := append([]error(nil), q.errs...)
	for _, g := range [][]*Expression{q.where, q.having} {
		for _, e := range g {
			if err := e.Err(); err != nil {
				errs = append(errs, err)
			}
		}
	}
	return criteria.NewAggregateError(errs...)
}

// Clone returns a copy of the query. Nodes are shared, slices are not.
func (q *CriteriaQuery) Clone() *CriteriaQuery {
	return &CriteriaQuery{
		cb:         q.cb,
		distinct:   q.distinct,
		selections: append([]Selectable(nil), q.selections...),
		from:       append([]Source(nil), q.from...),
		joins:      append([]*Join(nil), q.joins...),
		where:      append([]*Expression(nil), q.where...),
		groupBy:    append([]Selectable(nil), q.groupBy...),
		having:     append([]*Expression(nil), q.having...),
		orderBy:    append([]*Order(nil), q.orderBy...),
		setOps:     append([]*SetOperation(nil), q.setOps...),
		ctes:       append([]*Cte(nil), q.ctes...),
		page:       q.page,
		sets:       append([]assignment(nil), q.sets...),
		errs:       append([]error(nil), q.errs...),
		proj:       &projection{},
	}
}
