package transfer

import (
	"context"
	"log/slog"
	"reflect"
	"strings"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/schema"
)

// RowMapper materializes one result row. columns are the result column
// names and values the raw driver values, aligned by position.
type RowMapper[R any] interface {
	MapRow(ctx context.Context, columns []string, values []any) (R, error)
}

// RowMapperFunc is an adapter to allow the use of ordinary functions as
// row mappers.
type RowMapperFunc[R any] func(ctx context.Context, columns []string, values []any) (R, error)

// MapRow calls f(ctx, columns, values).
func (f RowMapperFunc[R]) MapRow(ctx context.Context, columns []string, values []any) (R, error) {
	return f(ctx, columns, values)
}

// StructMapper maps rows into a registered struct type. Result columns are
// matched, case-insensitively, against the attribute name, the column name
// and the field name of each mapped column. A value that cannot be coerced
// into its field is logged as a RowMappingError and the field is left at
// its zero value.
type StructMapper[R any] struct {
	entity    *schema.Entity
	lookup    map[string]*schema.Column
	coercions *Coercions
	logger    *slog.Logger
}

// NewStructMapper returns a mapper for R, registering R in reg.
func NewStructMapper[R any](reg *schema.Registry, opts ...Option) (*StructMapper[R], error) {
	var zero R
	t := reflect.TypeOf(zero)
	if t == nil || t.Kind() != reflect.Struct {
		return nil, criteria.NewConfigurationError(reflect.TypeOf(&zero).Elem().String(), "struct mapper requires a struct type")
	}
	e, err := reg.Register(t)
	if err != nil {
		return nil, err
	}
	o := newOptions(opts)
	m := &StructMapper[R]{
		entity:    e,
		lookup:    make(map[string]*schema.Column, 3*len(e.Columns)),
		coercions: o.coercions,
		logger:    o.logger,
	}
	for _, c := range e.Columns {
		for _, k := range []string{c.Field, c.Name, c.Attribute} {
			m.lookup[strings.ToLower(k)] = c
		}
	}
	return m, nil
}

// Entity returns the metadata of the mapped type.
func (m *StructMapper[R]) Entity() *schema.Entity { return m.entity }

// MapRow implements the RowMapper interface. Unknown result columns are
// ignored.
func (m *StructMapper[R]) MapRow(ctx context.Context, columns []string, values []any) (R, error) {
	var rec R
	rv := reflect.ValueOf(&rec).Elem()
	for i, name := range columns {
		c, ok := m.lookup[strings.ToLower(name)]
		if !ok || i >= len(values) {
			continue
		}
		f, err := rv.FieldByIndexErr(c.Index)
		if err != nil {
			m.warn(ctx, c, name, values[i], err)
			continue
		}
		if err := m.coercions.Coerce(values[i], f); err != nil {
			f.SetZero()
			m.warn(ctx, c, name, values[i], err)
		}
	}
	return rec, nil
}

func (m *StructMapper[R]) warn(ctx context.Context, c *schema.Column, column string, value any, err error) {
	merr := &criteria.RowMappingError{Field: c.Field, Column: column, Value: value, Err: err}
	m.logger.WarnContext(ctx, "row mapping failed",
		slog.String(attrCorrelationID, CorrelationID(ctx)),
		slog.String(attrTable, m.entity.QualifiedTable()),
		slog.Any("error", merr),
	)
}

// Values returns the field values of rec for the given columns, in order.
// It is the inverse of MapRow for parameterized writes.
func Values[R any](rec R, columns []*schema.Column) []any {
	rv := reflect.ValueOf(rec)
	for rv.Kind() == reflect.Pointer {
		if rv.IsNil() {
			return make([]any, len(columns))
		}
		rv = rv.Elem()
	}
	args := make([]any, len(columns))
	for i, c := range columns {
		f, err := rv.FieldByIndexErr(c.Index)
		if err != nil {
			continue
		}
		args[i] = f.Interface()
	}
	return args
}
