package sql

import (
	"reflect"
	"strings"

	"github.com/syssam/criteria"
)

// Expression is a predicate node. It holds an optional base condition and
// three child lists that render in a fixed order: not, then and, then or.
//
//	base [and] not (n1 and n2) and (a1 and a2) or (o1 or o2)
//
// Expressions are immutable. And, Or and Not return new nodes, so a shared
// expression can be composed into several queries.
type Expression struct {
	cond condition
	and  []*Expression
	or   []*Expression
	not  []*Expression
	err  error
}

// condition is the closed set of base conditions.
type condition interface {
	renderCondition(*Builder)
}

// Identity returns an expression that renders to an empty string. It is a
// no-op when composed with And or Or.
func Identity() *Expression { return &Expression{} }

// IsIdentity reports whether the expression renders nothing.
func (e *Expression) IsIdentity() bool {
	if e == nil {
		return true
	}
	if e.cond != nil || e.err != nil {
		return false
	}
	for _, g := range [][]*Expression{e.not, e.and, e.or} {
		for _, c := range g {
			if !c.IsIdentity() {
				return false
			}
		}
	}
	return true
}

// Err returns the first construction error of the expression tree.
func (e *Expression) Err() error {
	if e == nil {
		return nil
	}
	if e.err != nil {
		return e.err
	}
	for _, g := range [][]*Expression{e.not, e.and, e.or} {
		for _, c := range g {
			if err := c.Err(); err != nil {
				return err
			}
		}
	}
	return nil
}

// And returns a copy of e with the given expressions added to its and-list.
func (e *Expression) And(es ...*Expression) *Expression {
	c := e.clone()
	c.and = append(c.and, es...)
	return c
}

// Or returns a copy of e with the given expressions added to its or-list.
func (e *Expression) Or(es ...*Expression) *Expression {
	c := e.clone()
	c.or = append(c.or, es...)
	return c
}

// Not returns a copy of e with the given expressions added to its not-list.
func (e *Expression) Not(es ...*Expression) *Expression {
	c := e.clone()
	c.not = append(c.not, es...)
	return c
}

func (e *Expression) clone() *Expression {
	if e == nil {
		return &Expression{}
	}
	return &Expression{
		cond: e.cond,
		and:  append([]*Expression(nil), e.and...),
		or:   append([]*Expression(nil), e.or...),
		not:  append([]*Expression(nil), e.not...),
		err:  e.err,
	}
}

// String renders the expression with the standard dialect. Errors are
// dropped; use a query build to surface them.
func (e *Expression) String() string {
	b := NewBuilder(nil)
	e.render(b)
	return b.String()
}

func (e *Expression) render(b *Builder) {
	text, _ := e.parts(b)
	b.WriteString(text)
}

// parts renders the expression and returns its text and the number of
// non-empty parts it is made of. Expressions with more than one part are
// parenthesized when nested in a group.
func (e *Expression) parts(b *Builder) (string, int) {
	if e == nil {
		return "", 0
	}
	b.AddError(e.err)
	var (
		n    int
		text string
	)
	if e.cond != nil {
		c := b.child()
		e.cond.renderCondition(c)
		if text = b.merge(c); text != "" {
			n++
		}
	}
	if g := group(b, e.not, " and "); g != "" {
		if text != "" {
			text += " and"
		}
		text += " not (" + g + ")"
		n++
	}
	if g := group(b, e.and, " and "); g != "" {
		if text != "" {
			text += " and "
		}
		text += "(" + g + ")"
		n++
	}
	if g := group(b, e.or, " or "); g != "" {
		if text != "" {
			text += " or "
		}
		text += "(" + g + ")"
		n++
	}
	return strings.TrimSpace(text), n
}

// group renders the children joined by sep. Identity children are skipped.
func group(b *Builder, es []*Expression, sep string) string {
	var parts []string
	for _, e := range es {
		s, n := e.parts(b)
		switch {
		case s == "":
			continue
		case n > 1:
			s = "(" + s + ")"
		}
		parts = append(parts, s)
	}
	return strings.Join(parts, sep)
}

// And returns the conjunction of the given expressions: the first one with
// the rest in its and-list.
func And(es ...*Expression) *Expression {
	if len(es) == 0 {
		return Identity()
	}
	return es[0].And(es[1:]...)
}

// Or returns the disjunction of the given expressions: the first one with
// the rest in its or-list.
func Or(es ...*Expression) *Expression {
	if len(es) == 0 {
		return Identity()
	}
	return es[0].Or(es[1:]...)
}

// Not returns the negation of e: "not (e)".
func Not(e *Expression) *Expression {
	return &Expression{not: []*Expression{e}}
}

func invalid(op, msg string) *Expression {
	return &Expression{err: criteria.NewExpressionError(op, msg)}
}

type binary struct {
	left  Selectable
	op    string
	right any
}

func (c binary) renderCondition(b *Builder) {
	c.left.render(b)
	b.Byte(' ').WriteString(c.op).Byte(' ')
	b.Literal(c.right)
}

func compare(op, name string, left Selectable, right any) *Expression {
	if left == nil {
		return invalid(name, "left operand must not be nil")
	}
	if isNil(right) {
		return invalid(name, "value must not be nil")
	}
	return &Expression{cond: binary{left: left, op: op, right: right}}
}

// EQ returns the "left = right" predicate. right is a Selectable or a value.
func EQ(left Selectable, right any) *Expression { return compare("=", "eq", left, right) }

// NEQ returns the "left <> right" predicate.
func NEQ(left Selectable, right any) *Expression { return compare("<>", "ne", left, right) }

// GT returns the "left > right" predicate.
func GT(left Selectable, right any) *Expression { return compare(">", "gt", left, right) }

// GE returns the "left >= right" predicate.
func GE(left Selectable, right any) *Expression { return compare(">=", "ge", left, right) }

// LT returns the "left < right" predicate.
func LT(left Selectable, right any) *Expression { return compare("<", "lt", left, right) }

// LE returns the "left <= right" predicate.
func LE(left Selectable, right any) *Expression { return compare("<=", "le", left, right) }

type like struct {
	left    Selectable
	not     bool
	pattern string
}

func (c like) renderCondition(b *Builder) {
	c.left.render(b)
	if c.not {
		b.WriteString(" not")
	}
	b.WriteString(" like ").WriteString(b.dialect.Quote(c.pattern))
}

func likeExpr(op string, left Selectable, prefix, value, suffix string, not bool) *Expression {
	if left == nil {
		return invalid(op, "left operand must not be nil")
	}
	// Quotes are stripped from the pattern value.
	value = strings.ReplaceAll(value, "'", "")
	return &Expression{cond: like{left: left, not: not, pattern: prefix + value + suffix}}
}

// Like returns the "left like '%value%'" predicate.
func Like(left Selectable, value string) *Expression {
	return likeExpr("like", left, "%", value, "%", false)
}

// Contains is an alias of Like.
func Contains(left Selectable, value string) *Expression { return Like(left, value) }

// NotLike returns the "left not like '%value%'" predicate.
func NotLike(left Selectable, value string) *Expression {
	return likeExpr("notLike", left, "%", value, "%", true)
}

// StartsWith returns the "left like 'value%'" predicate.
func StartsWith(left Selectable, value string) *Expression {
	return likeExpr("startsWith", left, "", value, "%", false)
}

// EndsWith returns the "left like '%value'" predicate.
func EndsWith(left Selectable, value string) *Expression {
	return likeExpr("endsWith", left, "%", value, "", false)
}

type between struct {
	left   Selectable
	not    bool
	lo, hi any
}

func (c between) renderCondition(b *Builder) {
	c.left.render(b)
	if c.not {
		b.WriteString(" not")
	}
	b.WriteString(" between ")
	b.Literal(c.lo)
	b.WriteString(" and ")
	b.Literal(c.hi)
}

func betweenExpr(op string, left Selectable, lo, hi any, not bool) *Expression {
	if left == nil {
		return invalid(op, "left operand must not be nil")
	}
	if isNil(lo) || isNil(hi) {
		return invalid(op, "bounds must not be nil")
	}
	return &Expression{cond: between{left: left, not: not, lo: lo, hi: hi}}
}

// Between returns the "left between lo and hi" predicate.
func Between(left Selectable, lo, hi any) *Expression {
	return betweenExpr("between", left, lo, hi, false)
}

// NotBetween returns the "left not between lo and hi" predicate.
func NotBetween(left Selectable, lo, hi any) *Expression {
	return betweenExpr("notBetween", left, lo, hi, true)
}

type in struct {
	left   Selectable
	not    bool
	values []any
	query  *CriteriaQuery
}

func (c in) renderCondition(b *Builder) {
	c.left.render(b)
	if c.not {
		b.WriteString(" not")
	}
	b.WriteString(" in (")
	if c.query != nil {
		c.query.renderSelect(b)
	} else {
		for i, v := range c.values {
			if i > 0 {
				b.Byte(',')
			}
			b.Literal(v)
		}
	}
	b.Byte(')')
}

// flatten expands a single slice argument into its elements.
func flatten(values []any) []any {
	if len(values) != 1 || values[0] == nil {
		return values
	}
	rv := reflect.ValueOf(values[0])
	if rv.Kind() != reflect.Slice && rv.Kind() != reflect.Array {
		return values
	}
	if _, ok := values[0].([]byte); ok {
		return values
	}
	out := make([]any, rv.Len())
	for i := range out {
		out[i] = rv.Index(i).Interface()
	}
	return out
}

func inExpr(op string, left Selectable, values []any, not bool) *Expression {
	if left == nil {
		return invalid(op, "left operand must not be nil")
	}
	values = flatten(values)
	if len(values) == 0 {
		return invalid(op, "values must not be empty")
	}
	return &Expression{cond: in{left: left, not: not, values: values}}
}

// In returns the "left in (v1,v2,...)" predicate. A single slice argument
// is expanded into its elements. Empty values are an ExpressionError.
func In(left Selectable, values ...any) *Expression {
	return inExpr("in", left, values, false)
}

// NotIn returns the "left not in (v1,v2,...)" predicate.
func NotIn(left Selectable, values ...any) *Expression {
	return inExpr("notIn", left, values, true)
}

// InValues is the typed form of In.
func InValues[T any](left Selectable, values []T) *Expression {
	vs := make([]any, len(values))
	for i := range values {
		vs[i] = values[i]
	}
	return inExpr("in", left, vs, false)
}

// InOpt is the nullable-safe form of In. It returns the identity expression
// when values are nil or empty, which makes an optional filter a no-op.
func InOpt(left Selectable, values ...any) *Expression {
	values = flatten(values)
	if len(values) == 0 {
		return Identity()
	}
	return In(left, values...)
}

// InQuery returns the "left in (<subquery>)" predicate.
func InQuery(left Selectable, q *CriteriaQuery) *Expression {
	if left == nil || q == nil {
		return invalid("in", "operands must not be nil")
	}
	return &Expression{cond: in{left: left, query: q}}
}

// NotInQuery returns the "left not in (<subquery>)" predicate.
func NotInQuery(left Selectable, q *CriteriaQuery) *Expression {
	if left == nil || q == nil {
		return invalid("notIn", "operands must not be nil")
	}
	return &Expression{cond: in{left: left, not: true, query: q}}
}

type nullCheck struct {
	left Selectable
	not  bool
}

func (c nullCheck) renderCondition(b *Builder) {
	c.left.render(b)
	if c.not {
		b.WriteString(" is not null")
	} else {
		b.WriteString(" is null")
	}
}

// IsNull returns the "left is null" predicate.
func IsNull(left Selectable) *Expression {
	if left == nil {
		return invalid("isNull", "operand must not be nil")
	}
	return &Expression{cond: nullCheck{left: left}}
}

// IsNotNull returns the "left is not null" predicate.
func IsNotNull(left Selectable) *Expression {
	if left == nil {
		return invalid("isNotNull", "operand must not be nil")
	}
	return &Expression{cond: nullCheck{left: left, not: true}}
}

type quantifier struct {
	keyword string
	query   *CriteriaQuery
}

func (c quantifier) renderCondition(b *Builder) {
	b.WriteString(c.keyword).WriteString(" (")
	c.query.renderSelect(b)
	b.Byte(')')
}

// Exists returns the "exists (<subquery>)" predicate.
func Exists(q *CriteriaQuery) *Expression {
	if q == nil {
		return invalid("exists", "subquery must not be nil")
	}
	return &Expression{cond: quantifier{keyword: "exists", query: q}}
}

// NotExists returns the "not exists (<subquery>)" predicate.
func NotExists(q *CriteriaQuery) *Expression {
	if q == nil {
		return invalid("notExists", "subquery must not be nil")
	}
	return &Expression{cond: quantifier{keyword: "not exists", query: q}}
}

type rawCondition string

func (c rawCondition) renderCondition(b *Builder) { b.WriteString(string(c)) }

// ExprRaw returns a predicate of verbatim SQL. It is not escaped.
func ExprRaw(sql string) *Expression {
	if strings.TrimSpace(sql) == "" {
		return Identity()
	}
	return &Expression{cond: rawCondition(sql)}
}

func isNil(v any) bool {
	if v == nil {
		return true
	}
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Pointer, reflect.Map, reflect.Slice, reflect.Interface:
		return rv.IsNil()
	}
	return false
}
