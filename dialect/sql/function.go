package sql

// Func is a function call, typically an aggregate or a window function.
// The OVER clause is rendered only when a partition or an order is set.
type Func struct {
	name      string
	args      []Selectable
	partition []Selectable
	orders    []*Order
	alias     string
}

// Fn returns a call of the named function.
func Fn(name string, args ...Selectable) *Func {
	return &Func{name: name, args: args}
}

// Count returns count(x). A nil argument renders count(*).
func Count(x Selectable) *Func {
	if x == nil {
		x = Star()
	}
	return Fn("count", x)
}

// Sum returns sum(x).
func Sum(x Selectable) *Func { return Fn("sum", x) }

// Avg returns avg(x).
func Avg(x Selectable) *Func { return Fn("avg", x) }

// Min returns min(x).
func Min(x Selectable) *Func { return Fn("min", x) }

// Max returns max(x).
func Max(x Selectable) *Func { return Fn("max", x) }

// Rank returns rank().
func Rank() *Func { return Fn("rank") }

// RowNumber returns row_number().
func RowNumber() *Func { return Fn("row_number") }

// Lower returns lower(x).
func Lower(x Selectable) *Func { return Fn("lower", x) }

// Upper returns upper(x).
func Upper(x Selectable) *Func { return Fn("upper", x) }

// Coalesce returns coalesce(xs...).
func Coalesce(xs ...Selectable) *Func { return Fn("coalesce", xs...) }

// DistinctExpr marks its argument as distinct: "distinct x". It is mostly
// used inside aggregates, e.g. Count(Distinct(p)).
type DistinctExpr struct {
	x     Selectable
	alias string
}

// Distinct returns the "distinct x" selectable.
func Distinct(x Selectable) *DistinctExpr { return &DistinctExpr{x: x} }

// As returns a copy with the given output alias.
func (d *DistinctExpr) As(alias string) *DistinctExpr { return &DistinctExpr{x: d.x, alias: alias} }

// Alias returns the output alias.
func (d *DistinctExpr) Alias() string { return d.alias }

func (d *DistinctExpr) render(b *Builder) {
	b.WriteString(b.dialect.Distinct()).Byte(' ')
	d.x.render(b)
}

// Over returns a copy of the function partitioned by the given columns.
func (f *Func) Over(partition ...Selectable) *Func {
	c := f.clone()
	c.partition = append(c.partition, partition...)
	return c
}

// OrderBy returns a copy of the function with the given window ordering.
func (f *Func) OrderBy(orders ...*Order) *Func {
	c := f.clone()
	c.orders = append(c.orders, orders...)
	return c
}

// As returns a copy of the function with the given output alias.
func (f *Func) As(alias string) *Func {
	c := f.clone()
	c.alias = alias
	return c
}

// Alias returns the output alias.
func (f *Func) Alias() string { return f.alias }

// Name returns the function name.
func (f *Func) Name() string { return f.name }

func (f *Func) clone() *Func {
	return &Func{
		name:      f.name,
		args:      f.args,
		partition: append([]Selectable(nil), f.partition...),
		orders:    append([]*Order(nil), f.orders...),
		alias:     f.alias,
	}
}

func (f *Func) render(b *Builder) {
	b.WriteString(f.name).Byte('(')
	join(b, f.args, ", ")
	b.Byte(')')
	if len(f.partition) == 0 && len(f.orders) == 0 {
		return
	}
	b.WriteString(" over (")
	if len(f.partition) > 0 {
		b.WriteString("partition by ")
		join(b, f.partition, ", ")
	}
	if len(f.orders) > 0 {
		if len(f.partition) > 0 {
			b.Byte(' ')
		}
		b.WriteString("order by ")
		join(b, f.orders, ", ")
	}
	b.Byte(')')
}

// CaseExpr is a CASE expression. With a subject it is a simple case that
// switches on the subject value; without one it is a searched case whose
// conditions are evaluated in order.
type CaseExpr struct {
	subject Selectable
	whens   []when
	els     any
	hasElse bool
	alias   string
}

type when struct {
	cond, result any
}

// Case returns a simple case expression switching on subject.
func Case(subject Selectable) *CaseExpr { return &CaseExpr{subject: subject} }

// SearchedCase returns a searched case expression.
func SearchedCase() *CaseExpr { return &CaseExpr{} }

// When returns a copy with an added branch. cond is a value compared to the
// subject in a simple case, or an *Expression in a searched case.
func (c *CaseExpr) When(cond, result any) *CaseExpr {
	cp := *c
	cp.whens = append(append([]when(nil), c.whens...), when{cond: cond, result: result})
	return &cp
}

// Else returns a copy with the given default result.
func (c *CaseExpr) Else(result any) *CaseExpr {
	cp := *c
	cp.els, cp.hasElse = result, true
	return &cp
}

// As returns a copy with the given output alias.
func (c *CaseExpr) As(alias string) *CaseExpr {
	cp := *c
	cp.alias = alias
	return &cp
}

// Alias returns the output alias.
func (c *CaseExpr) Alias() string { return c.alias }

func (c *CaseExpr) render(b *Builder) {
	b.WriteString("case")
	if c.subject != nil {
		b.Byte(' ')
		c.subject.render(b)
	}
	for _, w := range c.whens {
		b.WriteString(" when ")
		b.Literal(w.cond)
		b.WriteString(" then ")
		b.Literal(w.result)
	}
	if c.hasElse {
		b.WriteString(" else ")
		b.Literal(c.els)
	}
	b.WriteString(" end")
}

var (
	_ Selectable = (*Func)(nil)
	_ Selectable = (*DistinctExpr)(nil)
	_ Selectable = (*CaseExpr)(nil)
)
