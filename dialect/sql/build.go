package sql

import (
	"fmt"
	"sort"
	"strings"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/schema"
)

// Aliases of the derived tables introduced by query rewrites.
const (
	NestedQueryAlias = "nested_query"
	CountQueryAlias  = "count_query"
)

// BuildSelectQuery renders the SELECT statement of the query.
//
// A query combining set operations with an ordering or a pagination is
// rewritten as an outer query on a derived table aliased nested_query, so
// that ORDER BY and the pagination apply to the combined result.
func (q *CriteriaQuery) BuildSelectQuery() (string, error) {
	b := NewBuilder(q.Dialect())
	q.renderSelect(b)
	return b.String(), b.Err()
}

// renderSelect renders the full SELECT statement, including the WITH
// clause, ordering and pagination.
func (q *CriteriaQuery) renderSelect(b *Builder) { q.renderStatement(b, true) }

// renderStatement renders the SELECT statement. The WITH clause is omitted
// when the CTEs were hoisted to an enclosing statement.
func (q *CriteriaQuery) renderStatement(b *Builder, with bool) {
	if q.needsNesting() {
		q.nested().renderStatement(b, with)
		return
	}
	var c clause
	if with {
		c.add(q.withText(b))
	}
	c.add(q.bodyText(b))
	if len(q.orderBy) > 0 {
		ob := b.child()
		ob.WriteString("order by ")
		join(ob, q.orderBy, ", ")
		c.add(b.merge(ob))
	}
	if !q.page.IsVoid() {
		pb := b.child()
		q.page.render(pb)
		c.add(b.merge(pb))
	}
	b.WriteString(c.String())
}

// needsNesting reports whether ORDER BY or pagination must be moved to an
// outer query.
func (q *CriteriaQuery) needsNesting() bool {
	return len(q.setOps) > 0 && (len(q.orderBy) > 0 || !q.page.IsVoid())
}

// nested returns the outer query of the nested_query rewrite. The inner
// query is a copy of q without ordering and pagination, and its CTEs are
// declared by the outer query.
func (q *CriteriaQuery) nested() *CriteriaQuery {
	inner := q.Clone()
	inner.orderBy, inner.page = nil, Pagination{}
	dt := &DerivedTable{query: inner, alias: NestedQueryAlias, hoisted: true}
	outer := &CriteriaQuery{
		cb:   q.cb,
		from: []Source{dt},
		ctes: q.allCtes(),
		page: q.page,
		proj: &projection{},
	}
	sel := q.projection()
	for _, s := range sel {
		alias := s.Alias()
		if alias == "" {
			if isStar(s) {
				outer.selections = append(outer.selections, Star())
				continue
			}
			outer.errs = append(outer.errs, criteria.NewConfigurationError(NestedQueryAlias,
				"selection without alias cannot be referenced by the outer query"))
			continue
		}
		outer.selections = append(outer.selections, dt.C(alias))
	}
	for _, o := range q.orderBy {
		alias := outputAlias(sel, o.Column)
		if alias == "" {
			outer.errs = append(outer.errs, criteria.NewConfigurationError(NestedQueryAlias,
				fmt.Sprintf("order column %q is not an output column of the combined query", o.Column.Alias())))
			continue
		}
		outer.orderBy = append(outer.orderBy, &Order{Column: dt.C(alias), Direction: o.Direction})
	}
	return outer
}

func isStar(s Selectable) bool {
	switch s := s.(type) {
	case *Raw:
		return s.sql == "*"
	case *ColumnRef:
		return s.name == "*"
	}
	return false
}

// outputAlias returns the alias under which x is projected, or "" when x
// is not an output column of the projection.
func outputAlias(sel []Selectable, x Selectable) string {
	if p, ok := x.(*Path); ok {
		for _, s := range sel {
			if sp, ok := s.(*Path); ok && sp.Equal(p) {
				return sp.Alias()
			}
		}
	}
	alias := x.Alias()
	if alias == "" {
		return ""
	}
	for _, s := range sel {
		if s.Alias() == alias {
			return alias
		}
	}
	return ""
}

// allCtes returns the CTEs of the query and of its set operation branches,
// deduplicated by name.
func (q *CriteriaQuery) allCtes() []*Cte {
	var (
		ctes []*Cte
		seen = make(map[string]bool)
	)
	var walk func(*CriteriaQuery)
	walk = func(q *CriteriaQuery) {
		for _, c := range q.ctes {
			if !seen[c.name] {
				seen[c.name] = true
				ctes = append(ctes, c)
			}
		}
		for _, op := range q.setOps {
			walk(op.Query)
		}
	}
	walk(q)
	return ctes
}

func (q *CriteriaQuery) withText(b *Builder) string {
	ctes := q.allCtes()
	if len(ctes) == 0 {
		return ""
	}
	wb := b.child()
	wb.WriteString("with ")
	for i, c := range ctes {
		if i > 0 {
			wb.WriteString(", ")
		}
		c.renderDefinition(wb)
	}
	return b.merge(wb)
}

// bodyText renders the core SELECT followed by the set operations.
func (q *CriteriaQuery) bodyText(b *Builder) string {
	var c clause
	cb := b.child()
	q.renderCore(cb)
	c.add(b.merge(cb))
	for _, op := range q.setOps {
		ob := b.child()
		op.render(ob)
		c.add(b.merge(ob))
	}
	return c.String()
}

// renderBody renders the core SELECT and the set operations, without
// ordering and pagination.
func (q *CriteriaQuery) renderBody(b *Builder) {
	b.WriteString(q.bodyText(b))
}

// renderCore renders "select ... from ... where ... group by ... having".
// It also reports the errors recorded while the query was composed.
func (q *CriteriaQuery) renderCore(b *Builder) {
	b.AddError(criteria.NewAggregateError(q.errs...))
	if len(q.from) == 0 {
		b.AddError(criteria.NewConfigurationError("query", "no from source"))
		return
	}
	var c clause
	sb := b.child()
	sb.WriteString("select ")
	if q.distinct {
		sb.WriteString(b.dialect.Distinct()).Byte(' ')
	}
	q.renderProjection(sb)
	c.add(b.merge(sb))
	c.add(q.fromText(b))
	for _, j := range q.joins {
		jb := b.child()
		j.render(jb)
		c.add(b.merge(jb))
	}
	c.add(predicates(b, "where", q.where))
	if len(q.groupBy) > 0 {
		gb := b.child()
		gb.WriteString("group by ")
		join(gb, q.groupBy, ", ")
		c.add(b.merge(gb))
	}
	c.add(predicates(b, "having", q.having))
	b.WriteString(c.String())
}

func (q *CriteriaQuery) fromText(b *Builder) string {
	fb := b.child()
	fb.WriteString("from ")
	for i, s := range q.from {
		if i > 0 {
			fb.WriteString(", ")
		}
		s.renderSource(fb)
	}
	return b.merge(fb)
}

// predicates renders "<keyword> (p1) and (p2)". Identity predicates are
// skipped, and the clause is omitted when nothing remains.
func predicates(b *Builder, keyword string, es []*Expression) string {
	var parts []string
	for _, e := range es {
		c := b.child()
		e.render(c)
		if s := b.merge(c); s != "" {
			parts = append(parts, "("+s+")")
		}
	}
	if len(parts) == 0 {
		return ""
	}
	return keyword + " " + strings.Join(parts, " and ")
}

// projection returns the selections of the query sorted by alias. Without
// explicit selections, it defaults to all registered columns of every
// source, computed once.
func (q *CriteriaQuery) projection() []Selectable {
	sel := q.selections
	if len(sel) == 0 {
		if q.proj == nil {
			q.proj = &projection{}
		}
		q.proj.once.Do(func() {
			for _, s := range q.from {
				switch s := s.(type) {
				case *Root:
					for _, p := range s.Paths() {
						q.proj.sel = append(q.proj.sel, p)
					}
				default:
					q.proj.sel = append(q.proj.sel, Column(s.Qualifier(), "*"))
				}
			}
		})
		sel = q.proj.sel
	}
	sorted := append([]Selectable(nil), sel...)
	sort.SliceStable(sorted, func(i, j int) bool { return sorted[i].Alias() < sorted[j].Alias() })
	return sorted
}

func (q *CriteriaQuery) renderProjection(b *Builder) {
	for i, s := range q.projection() {
		if i > 0 {
			b.Byte(',')
		}
		s.render(b)
		if alias := s.Alias(); alias != "" {
			b.WriteString(" as ").Ident(alias)
		}
	}
}

// BuildCountQuery renders a statement counting the rows of the query.
// Grouped, distinct or combined queries are counted through a derived table
// aliased count_query.
func (q *CriteriaQuery) BuildCountQuery() (string, error) {
	b := NewBuilder(q.Dialect())
	inner := q.Clone()
	inner.orderBy, inner.page = nil, Pagination{}
	var outer *CriteriaQuery
	if len(q.groupBy) > 0 || len(q.setOps) > 0 || q.distinct {
		outer = &CriteriaQuery{
			cb:   q.cb,
			from: []Source{&DerivedTable{query: inner, alias: CountQueryAlias, hoisted: true}},
			ctes: q.allCtes(),
			proj: &projection{},
		}
	} else {
		outer = inner
	}
	outer.selections = []Selectable{Count(nil)}
	outer.renderSelect(b)
	return b.String(), b.Err()
}

// target returns the root of a DML statement.
func (q *CriteriaQuery) target() (*Root, error) {
	if err := q.Err(); err != nil {
		return nil, err
	}
	if len(q.from) == 0 {
		return nil, criteria.NewConfigurationError("query", "no from source")
	}
	r, ok := q.from[0].(*Root)
	if !ok || len(q.from) > 1 {
		return nil, criteria.NewConfigurationError("query", "statement target must be a single registered table")
	}
	if len(q.joins) > 0 || len(q.setOps) > 0 {
		return nil, criteria.NewConfigurationError("query", "statement target cannot have joins or set operations")
	}
	return r, nil
}

// pathColumn returns the column of a selection used as a statement column.
func pathColumn(r *Root, s Selectable) (*schema.Column, error) {
	p, ok := s.(*Path)
	if !ok {
		return nil, criteria.NewConfigurationError(r.Entity().String(),
			fmt.Sprintf("selection %T is not a path and cannot be used as a column", s))
	}
	if p.Err() != nil {
		return nil, p.Err()
	}
	if !p.Root().Equal(r) {
		return nil, criteria.NewConfigurationError(r.Entity().String(),
			fmt.Sprintf("path %q belongs to another table", p.Attribute()))
	}
	return p.Column(), nil
}

// InsertColumns returns the columns bound by the placeholders of
// BuildInsertQuery, in order: the selected paths if any, otherwise all
// writable columns of the target.
func (q *CriteriaQuery) InsertColumns() ([]*schema.Column, error) {
	r, err := q.target()
	if err != nil {
		return nil, err
	}
	if len(q.selections) == 0 {
		return r.Entity().Writable(), nil
	}
	cols := make([]*schema.Column, 0, len(q.selections))
	for _, s := range q.selections {
		c, err := pathColumn(r, s)
		if err != nil {
			return nil, err
		}
		cols = append(cols, c)
	}
	return cols, nil
}

// BuildInsertQuery renders an INSERT statement. With Set assignments the
// values are rendered as literals; otherwise each column gets a dialect
// placeholder, bound in the order returned by InsertColumns.
func (q *CriteriaQuery) BuildInsertQuery() (string, error) {
	r, err := q.target()
	if err != nil {
		return "", err
	}
	b := NewBuilder(q.Dialect())
	b.dml = true
	b.WriteString("insert into ").Ident(r.Table()).WriteString(" (")
	if len(q.sets) > 0 {
		for i, a := range q.sets {
			c, err := pathColumn(r, a.path)
			if err != nil {
				return "", err
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(c.Name)
		}
		b.WriteString(") values (")
		for i, a := range q.sets {
			if i > 0 {
				b.WriteString(", ")
			}
			b.Literal(a.value)
		}
		b.Byte(')')
		return b.String(), b.Err()
	}
	cols, err := q.InsertColumns()
	if err != nil {
		return "", err
	}
	for i, c := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.Ident(c.Name)
	}
	b.WriteString(") values (")
	for i := range cols {
		if i > 0 {
			b.WriteString(", ")
		}
		b.WriteString(b.dialect.Placeholder(i + 1))
	}
	b.Byte(')')
	return b.String(), b.Err()
}

// UpdateColumns returns the columns bound by the placeholders of
// BuildUpdateQuery, in order: the SET columns followed by the key columns
// when the statement is keyed. It returns nil for queries using Set.
func (q *CriteriaQuery) UpdateColumns() ([]*schema.Column, error) {
	set, keys, err := q.updateColumns()
	if err != nil {
		return nil, err
	}
	return append(set, keys...), nil
}

func (q *CriteriaQuery) updateColumns() (set, keys []*schema.Column, err error) {
	r, err := q.target()
	if err != nil {
		return nil, nil, err
	}
	if len(q.sets) > 0 {
		return nil, nil, nil
	}
	if len(q.selections) > 0 {
		for _, s := range q.selections {
			c, err := pathColumn(r, s)
			if err != nil {
				return nil, nil, err
			}
			set = append(set, c)
		}
	} else {
		for _, c := range r.Entity().Writable() {
			if !c.Key {
				set = append(set, c)
			}
		}
	}
	if len(set) == 0 {
		return nil, nil, criteria.NewConfigurationError(r.Entity().String(), "no columns to update")
	}
	if len(q.where) == 0 {
		keys = r.Entity().Keys()
	}
	return set, keys, nil
}

// BuildUpdateQuery renders an UPDATE statement. Set assignments render as
// literals; otherwise the selected paths (or all writable non-key columns)
// get placeholders. Without a where clause the statement is keyed by the
// primary key columns of the target.
func (q *CriteriaQuery) BuildUpdateQuery() (string, error) {
	r, err := q.target()
	if err != nil {
		return "", err
	}
	b := NewBuilder(q.Dialect())
	b.dml = true
	b.WriteString("update ").Ident(r.Table()).WriteString(" set ")
	if len(q.sets) > 0 {
		for i, a := range q.sets {
			c, err := pathColumn(r, a.path)
			if err != nil {
				return "", err
			}
			if i > 0 {
				b.WriteString(", ")
			}
			b.Ident(c.Name).WriteString(" = ")
			b.Literal(a.value)
		}
		if w := predicates(b, "where", q.where); w != "" {
			b.Byte(' ').WriteString(w)
		}
		return b.String(), b.Err()
	}
	set, keys, err := q.updateColumns()
	if err != nil {
		return "", err
	}
	n := 0
	for i, c := range set {
		if i > 0 {
			b.WriteString(", ")
		}
		n++
		b.Ident(c.Name).WriteString(" = ").WriteString(b.dialect.Placeholder(n))
	}
	if w := predicates(b, "where", q.where); w != "" {
		b.Byte(' ').WriteString(w)
	} else if len(keys) > 0 {
		b.WriteString(" where ")
		for i, c := range keys {
			if i > 0 {
				b.WriteString(" and ")
			}
			n++
			b.Ident(c.Name).WriteString(" = ").WriteString(b.dialect.Placeholder(n))
		}
	}
	return b.String(), b.Err()
}

// BuildDeleteQuery renders a DELETE statement with the where clause of the
// query. Paths are qualified by the table name.
func (q *CriteriaQuery) BuildDeleteQuery() (string, error) {
	r, err := q.target()
	if err != nil {
		return "", err
	}
	b := NewBuilder(q.Dialect())
	b.dml = true
	b.WriteString("delete from ").Ident(r.Table())
	if w := predicates(b, "where", q.where); w != "" {
		b.Byte(' ').WriteString(w)
	}
	return b.String(), b.Err()
}
