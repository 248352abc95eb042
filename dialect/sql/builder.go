package sql

import (
	"database/sql/driver"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/syssam/criteria/dialect"
)

// Builder is the render context shared by all nodes of one statement. It
// accumulates SQL text and the errors reported by the nodes it renders.
type Builder struct {
	sb      strings.Builder
	dialect dialect.Dialect
	// dml renders paths qualified by their table name instead of their
	// alias. UPDATE and DELETE statements do not alias their target.
	dml  bool
	errs []error
}

// NewBuilder returns a render context for the given dialect.
func NewBuilder(d dialect.Dialect) *Builder {
	if d == nil {
		d = dialect.Default()
	}
	return &Builder{dialect: d}
}

// Dialect returns the dialect of the builder.
func (b *Builder) Dialect() dialect.Dialect { return b.dialect }

// WriteString appends s to the builder.
func (b *Builder) WriteString(s string) *Builder {
	b.sb.WriteString(s)
	return b
}

// Byte appends c to the builder.
func (b *Builder) Byte(c byte) *Builder {
	b.sb.WriteByte(c)
	return b
}

// Ident appends the escaped form of the given identifier.
func (b *Builder) Ident(name string) *Builder {
	b.sb.WriteString(b.dialect.Escape(name))
	return b
}

// Len returns the number of bytes written so far.
func (b *Builder) Len() int { return b.sb.Len() }

// String returns the accumulated SQL text.
func (b *Builder) String() string { return b.sb.String() }

// AddError records an error on the builder. Nil errors are ignored.
func (b *Builder) AddError(err error) *Builder {
	if err != nil {
		b.errs = append(b.errs, err)
	}
	return b
}

// Err returns the errors recorded so far, joined.
func (b *Builder) Err() error {
	switch len(b.errs) {
	case 0:
		return nil
	case 1:
		return b.errs[0]
	default:
		return errors.Join(b.errs...)
	}
}

// child returns an empty builder sharing the dialect and mode of b.
// Errors recorded on the child must be merged back with merge.
func (b *Builder) child() *Builder {
	return &Builder{dialect: b.dialect, dml: b.dml}
}

// merge moves the errors of c into b and returns the text of c.
func (b *Builder) merge(c *Builder) string {
	b.errs = append(b.errs, c.errs...)
	return c.String()
}

// Literal appends the SQL representation of a Go value.
//
//	nil           => null
//	string        => 'quoted'
//	bool          => dialect boolean literal
//	numbers       => unquoted
//	time.Time     => quoted timestamp
//	Selectable    => its SQL
func (b *Builder) Literal(v any) *Builder {
	switch v := v.(type) {
	case nil:
		b.WriteString(b.dialect.Null())
	case Selectable:
		v.render(b)
	case *Expression:
		v.render(b)
	case string:
		b.WriteString(b.dialect.Quote(v))
	case []byte:
		b.WriteString(b.dialect.Quote(string(v)))
	case bool:
		b.WriteString(b.dialect.Bool(v))
	case int:
		b.WriteString(strconv.Itoa(v))
	case int8, int16, int32, int64:
		b.WriteString(strconv.FormatInt(reflect.ValueOf(v).Int(), 10))
	case uint, uint8, uint16, uint32, uint64:
		b.WriteString(strconv.FormatUint(reflect.ValueOf(v).Uint(), 10))
	case float32:
		b.WriteString(strconv.FormatFloat(float64(v), 'f', -1, 32))
	case float64:
		b.WriteString(strconv.FormatFloat(v, 'f', -1, 64))
	case time.Time:
		b.WriteString(b.dialect.Quote(v.Format("2006-01-02 15:04:05.999999999")))
	case driver.Valuer:
		dv, err := v.Value()
		if err != nil {
			b.AddError(fmt.Errorf("dialect/sql: literal value %T: %w", v, err))
			return b
		}
		return b.Literal(dv)
	case fmt.Stringer:
		b.WriteString(b.dialect.Quote(v.String()))
	default:
		rv := reflect.ValueOf(v)
		switch {
		case rv.Kind() == reflect.Pointer && rv.IsNil():
			b.WriteString(b.dialect.Null())
		case rv.Kind() == reflect.Pointer:
			return b.Literal(rv.Elem().Interface())
		case rv.CanInt():
			b.WriteString(strconv.FormatInt(rv.Int(), 10))
		case rv.CanUint():
			b.WriteString(strconv.FormatUint(rv.Uint(), 10))
		case rv.CanFloat():
			b.WriteString(strconv.FormatFloat(rv.Float(), 'f', -1, 64))
		case rv.Kind() == reflect.String:
			b.WriteString(b.dialect.Quote(rv.String()))
		case rv.Kind() == reflect.Bool:
			b.WriteString(b.dialect.Bool(rv.Bool()))
		default:
			b.WriteString(b.dialect.Quote(fmt.Sprint(v)))
		}
	}
	return b
}

// join renders the parts with the given separator. Parts that render to an
// empty string are skipped.
func join[T interface{ render(*Builder) }](b *Builder, parts []T, sep string) {
	first := true
	for _, p := range parts {
		c := b.child()
		p.render(c)
		s := b.merge(c)
		if s == "" {
			continue
		}
		if !first {
			b.WriteString(sep)
		}
		b.WriteString(s)
		first = false
	}
}

// clause joins non-empty statement fragments with a single space.
type clause []string

func (c *clause) add(parts ...string) {
	for _, p := range parts {
		if p = strings.TrimSpace(p); p != "" {
			*c = append(*c, p)
		}
	}
}

func (c clause) String() string { return strings.Join(c, " ") }
