package sql

import "github.com/syssam/criteria"

// Direction is the sort direction of an Order.
type Direction int

// Sort directions. The zero value is ascending.
const (
	AscDir Direction = iota
	DescDir
)

// String returns the SQL keyword of the direction.
func (d Direction) String() string {
	if d == DescDir {
		return "desc"
	}
	return "asc"
}

// Order is a (column, direction) pair of an ORDER BY clause.
type Order struct {
	Column    Selectable
	Direction Direction
}

// Asc returns an ascending order on x.
func Asc(x Selectable) *Order { return &Order{Column: x} }

// Desc returns a descending order on x.
func Desc(x Selectable) *Order { return &Order{Column: x, Direction: DescDir} }

func (o *Order) render(b *Builder) {
	o.Column.render(b)
	b.Byte(' ').WriteString(o.Direction.String())
}

// Pagination is an optional (limit, offset) pair. It is void when both
// are nil.
type Pagination struct {
	Limit  *int
	Offset *int
}

// IsVoid reports whether no pagination is set.
func (p Pagination) IsVoid() bool { return p.Limit == nil && p.Offset == nil }

func (p Pagination) render(b *Builder) {
	b.WriteString(b.dialect.LimitOffset(p.Limit, p.Offset))
}

// JoinKind is the kind of a join.
type JoinKind int

// Join kinds.
const (
	InnerJoin JoinKind = iota
	LeftJoin
	RightJoin
	FullJoin
	CrossJoin
)

// String returns the SQL keywords of the join kind.
func (k JoinKind) String() string {
	switch k {
	case LeftJoin:
		return "left join"
	case RightJoin:
		return "right join"
	case FullJoin:
		return "full join"
	case CrossJoin:
		return "cross join"
	default:
		return "inner join"
	}
}

// Join is a join of the query sources with a target. Cross joins never
// render their ON expression.
type Join struct {
	Kind   JoinKind
	Target Source
	On     *Expression
}

func (j *Join) render(b *Builder) {
	if j.Target == nil {
		b.AddError(criteria.NewConfigurationError("join", "missing join target"))
		return
	}
	b.WriteString(j.Kind.String()).Byte(' ')
	j.Target.renderSource(b)
	if j.Kind == CrossJoin || j.On.IsIdentity() {
		return
	}
	b.WriteString(" on ")
	j.On.render(b)
}

// SetOpKind is the combinator of a set operation.
type SetOpKind int

// Set operation kinds.
const (
	Union SetOpKind = iota
	UnionAll
	Intersect
	Except
)

// String returns the SQL keywords of the combinator.
func (k SetOpKind) String() string {
	switch k {
	case UnionAll:
		return "union all"
	case Intersect:
		return "intersect"
	case Except:
		return "except"
	default:
		return "union"
	}
}

// SetOperation combines the enclosing query with another one.
type SetOperation struct {
	Kind  SetOpKind
	Query *CriteriaQuery
}

func (s *SetOperation) render(b *Builder) {
	b.WriteString(s.Kind.String()).Byte(' ')
	// Branches never carry their own ordering or pagination.
	s.Query.renderBody(b)
}

// Cte is a named subquery declared in a WITH clause and usable as a source.
type Cte struct {
	name    string
	alias   string
	columns []string
	query   *CriteriaQuery
}

// NewCte returns a common table expression of the given query.
func NewCte(name string, q *CriteriaQuery, columns ...string) *Cte {
	return &Cte{name: name, query: q, columns: columns}
}

// Name returns the name of the Cte.
func (c *Cte) Name() string { return c.name }

// As returns a copy of the Cte referenced under the given alias.
func (c *Cte) As(alias string) *Cte {
	cp := *c
	cp.alias = alias
	return &cp
}

// C returns a column of the Cte.
func (c *Cte) C(name string) *ColumnRef { return Column(c.Qualifier(), name) }

// Qualifier implements the Source interface.
func (c *Cte) Qualifier() string {
	if c.alias != "" {
		return c.alias
	}
	return c.name
}

func (c *Cte) renderSource(b *Builder) {
	b.Ident(c.name)
	if c.alias != "" {
		b.Byte(' ').Ident(c.alias)
	}
}

// renderDefinition renders "name (cols) as (<query>)".
func (c *Cte) renderDefinition(b *Builder) {
	b.Ident(c.name)
	if len(c.columns) > 0 {
		b.WriteString(" (")
		for i, col := range c.columns {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(col)
		}
		b.Byte(')')
	}
	b.WriteString(" as (")
	if c.query == nil {
		b.AddError(criteria.NewConfigurationError("cte "+c.name, "missing query"))
	} else {
		c.query.renderSelect(b)
	}
	b.Byte(')')
}

// DerivedTable is a subquery used as a source: "(<query>) alias".
type DerivedTable struct {
	query *CriteriaQuery
	alias string
	// hoisted is set when the CTEs of the query are declared by the
	// enclosing statement.
	hoisted bool
}

// Derived returns a derived table of the given query.
func Derived(q *CriteriaQuery, alias string) *DerivedTable {
	return &DerivedTable{query: q, alias: alias}
}

// C returns a column of the derived table.
func (d *DerivedTable) C(name string) *ColumnRef { return Column(d.alias, name) }

// Qualifier implements the Source interface.
func (d *DerivedTable) Qualifier() string { return d.alias }

func (d *DerivedTable) renderSource(b *Builder) {
	if d.alias == "" {
		b.AddError(criteria.NewConfigurationError("derived table", "missing alias"))
	}
	b.Byte('(')
	d.query.renderStatement(b, !d.hoisted)
	b.WriteString(") ").Ident(d.alias)
}

var (
	_ Source = (*Cte)(nil)
	_ Source = (*DerivedTable)(nil)
)
