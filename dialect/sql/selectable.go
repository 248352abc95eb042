package sql

import (
	"fmt"
	"reflect"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/schema"
)

// Selectable is anything that can appear in a projection and carry an
// output alias. The set of implementations is closed: Path, ColumnRef,
// Literal, Raw, Func, CaseExpr, Subquery, ConcatExpr and Quantified.
type Selectable interface {
	// Alias returns the output alias, or an empty string.
	Alias() string
	render(*Builder)
}

// Source is anything usable in a from or join clause: a Root, a Cte or a
// derived table.
type Source interface {
	// Qualifier returns the name used to qualify the columns of the source.
	Qualifier() string
	renderSource(*Builder)
}

// Root is a handle to the table of a registered record type. Two roots of
// the same type are equal regardless of their alias.
type Root struct {
	entity *schema.Entity
	alias  string
	schema string
}

// NewRoot returns a root for the given entity.
func NewRoot(e *schema.Entity) *Root {
	return &Root{entity: e, schema: e.Schema}
}

// As sets the alias of the root. It must be called before the first render.
func (r *Root) As(alias string) *Root {
	if r == nil {
		return nil
	}
	r.alias = alias
	return r
}

// WithSchema overrides the schema prefix of the root.
func (r *Root) WithSchema(name string) *Root {
	if r == nil {
		return nil
	}
	r.schema = name
	return r
}

// Entity returns the metadata of the root.
func (r *Root) Entity() *schema.Entity { return r.entity }

// Type returns the record type of the root.
func (r *Root) Type() reflect.Type { return r.entity.Type }

// Alias returns the alias of the root.
func (r *Root) Alias() string { return r.alias }

// Table returns the table name, prefixed with its schema if any.
func (r *Root) Table() string {
	if r.schema == "" {
		return r.entity.Table
	}
	return r.schema + "." + r.entity.Table
}

// Qualifier implements the Source interface.
func (r *Root) Qualifier() string {
	if r.alias != "" {
		return r.alias
	}
	return r.Table()
}

// Equal reports whether both roots refer to the same record type.
func (r *Root) Equal(o *Root) bool {
	return r != nil && o != nil && r.entity.Type == o.entity.Type
}

// Get returns the path of the given attribute. Unknown attributes are
// reported when the path is rendered.
func (r *Root) Get(attr string) *Path {
	p := &Path{root: r, attr: attr}
	if r == nil {
		p.err = criteria.NewConfigurationError(attr, "path of a nil root")
		return p
	}
	if c, ok := r.entity.Column(attr); ok {
		p.column = c
	} else {
		p.err = &criteria.ConfigurationError{
			Subject: r.entity.String(),
			Message: fmt.Sprintf("unknown attribute %q", attr),
		}
	}
	return p
}

// Paths returns the paths of all mapped columns, in field order.
func (r *Root) Paths() []*Path {
	paths := make([]*Path, len(r.entity.Columns))
	for i, c := range r.entity.Columns {
		paths[i] = &Path{root: r, attr: c.Attribute, column: c}
	}
	return paths
}

func (r *Root) renderSource(b *Builder) {
	b.Ident(r.Table())
	if r.alias != "" && !b.dml {
		b.Byte(' ').Ident(r.alias)
	}
}

// Path is a column reference: a (Root, attribute) pair.
type Path struct {
	root   *Root
	attr   string
	alias  string
	column *schema.Column
	err    error
}

// Root returns the root of the path.
func (p *Path) Root() *Root { return p.root }

// Attribute returns the attribute name of the path.
func (p *Path) Attribute() string { return p.attr }

// Column returns the mapped column, or nil for unknown attributes.
func (p *Path) Column() *schema.Column { return p.column }

// Err returns the error recorded when the path was created.
func (p *Path) Err() error { return p.err }

// As returns a copy of the path with the given output alias.
func (p *Path) As(alias string) *Path {
	c := *p
	c.alias = alias
	return &c
}

// Alias returns the output alias, defaulting to the attribute name.
func (p *Path) Alias() string {
	if p.alias != "" {
		return p.alias
	}
	return p.attr
}

// Equal reports whether both paths reference the same attribute of the
// same record type.
func (p *Path) Equal(o *Path) bool {
	return p != nil && o != nil && p.attr == o.attr && p.root.Equal(o.root)
}

func (p *Path) render(b *Builder) {
	if p.err != nil {
		b.AddError(p.err)
		return
	}
	q := p.root.Qualifier()
	if b.dml {
		q = p.root.Table()
	}
	b.Ident(q).Byte('.').Ident(p.column.Name)
}

// ColumnRef references a column of a derived table or a Cte by name.
type ColumnRef struct {
	qualifier string
	name      string
	alias     string
}

// Column returns a column reference. The qualifier may be empty.
func Column(qualifier, name string) *ColumnRef {
	return &ColumnRef{qualifier: qualifier, name: name}
}

// As returns a copy of the column with the given output alias.
func (c *ColumnRef) As(alias string) *ColumnRef {
	cp := *c
	cp.alias = alias
	return &cp
}

// Alias returns the output alias, defaulting to the column name.
func (c *ColumnRef) Alias() string {
	if c.alias != "" || c.name == "*" {
		return c.alias
	}
	return c.name
}

// Name returns the column name.
func (c *ColumnRef) Name() string { return c.name }

func (c *ColumnRef) render(b *Builder) {
	if c.qualifier != "" {
		b.Ident(c.qualifier).Byte('.')
	}
	b.Ident(c.name)
}

// Literal is a constant value.
type Literal struct {
	value any
	alias string
}

// Lit returns a literal selectable of the given value.
func Lit(v any) *Literal { return &Literal{value: v} }

// As returns a copy of the literal with the given output alias.
func (l *Literal) As(alias string) *Literal {
	return &Literal{value: l.value, alias: alias}
}

// Alias returns the output alias.
func (l *Literal) Alias() string { return l.alias }

// Value returns the literal value.
func (l *Literal) Value() any { return l.value }

func (l *Literal) render(b *Builder) { b.Literal(l.value) }

// Raw is a verbatim SQL fragment. It is not escaped.
type Raw struct {
	sql   string
	alias string
}

// RawSQL returns a raw selectable.
func RawSQL(s string) *Raw { return &Raw{sql: s} }

// Star returns the "*" selectable.
func Star() *Raw { return &Raw{sql: "*"} }

// As returns a copy of the raw fragment with the given output alias.
func (r *Raw) As(alias string) *Raw { return &Raw{sql: r.sql, alias: alias} }

// Alias returns the output alias.
func (r *Raw) Alias() string { return r.alias }

func (r *Raw) render(b *Builder) { b.WriteString(r.sql) }

// ConcatExpr concatenates strings using the dialect operator.
type ConcatExpr struct {
	parts []any
	alias string
}

// Concat returns a concatenation of the given parts. Parts that are not
// selectables render as literals.
func Concat(parts ...any) *ConcatExpr { return &ConcatExpr{parts: parts} }

// As returns a copy of the concatenation with the given output alias.
func (c *ConcatExpr) As(alias string) *ConcatExpr {
	return &ConcatExpr{parts: c.parts, alias: alias}
}

// Alias returns the output alias.
func (c *ConcatExpr) Alias() string { return c.alias }

func (c *ConcatExpr) render(b *Builder) {
	parts := make([]string, len(c.parts))
	for i, p := range c.parts {
		cb := b.child()
		cb.Literal(p)
		parts[i] = b.merge(cb)
	}
	b.WriteString(b.dialect.Concat(parts...))
}

// Subquery is a scalar subquery used as a selectable.
type Subquery struct {
	query *CriteriaQuery
	alias string
}

// Sub returns a scalar subquery.
func Sub(q *CriteriaQuery) *Subquery { return &Subquery{query: q} }

// As returns a copy of the subquery with the given output alias.
func (s *Subquery) As(alias string) *Subquery { return &Subquery{query: s.query, alias: alias} }

// Alias returns the output alias.
func (s *Subquery) Alias() string { return s.alias }

func (s *Subquery) render(b *Builder) {
	b.Byte('(')
	s.query.renderSelect(b)
	b.Byte(')')
}

// Quantified is an ANY or ALL subquery, usable as the right-hand side of
// a comparison.
type Quantified struct {
	quantifier string
	query      *CriteriaQuery
}

// Any returns the "any (<subquery>)" selectable.
func Any(q *CriteriaQuery) *Quantified { return &Quantified{quantifier: "any", query: q} }

// All returns the "all (<subquery>)" selectable.
func All(q *CriteriaQuery) *Quantified { return &Quantified{quantifier: "all", query: q} }

// Alias returns an empty string. Quantified subqueries are never projected.
func (*Quantified) Alias() string { return "" }

func (q *Quantified) render(b *Builder) {
	b.WriteString(q.quantifier).WriteString(" (")
	q.query.renderSelect(b)
	b.Byte(')')
}

var (
	_ Selectable = (*Path)(nil)
	_ Selectable = (*ColumnRef)(nil)
	_ Selectable = (*Literal)(nil)
	_ Selectable = (*Raw)(nil)
	_ Selectable = (*ConcatExpr)(nil)
	_ Selectable = (*Subquery)(nil)
	_ Selectable = (*Quantified)(nil)
	_ Source     = (*Root)(nil)
)
