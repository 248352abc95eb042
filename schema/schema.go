package schema

import (
	"reflect"
	"strings"
)

// Tabler is implemented by record types that declare their table name.
// It is the only mandatory piece of metadata.
type Tabler interface {
	TableName() string
}

// Schemer is implemented by record types living in a named database schema.
type Schemer interface {
	SchemaName() string
}

// Column describes one mapped field of a record type.
type Column struct {
	// Field is the Go struct field name.
	Field string
	// Attribute is the name used to reference the column from paths.
	Attribute string
	// Name is the database column name.
	Name string
	// Index is the field index sequence for reflect.Value.FieldByIndex.
	Index []int
	// Type is the Go type of the field.
	Type reflect.Type
	// Key reports whether the column is part of the primary key.
	Key bool
	// ReadOnly columns are selected but never inserted or updated.
	ReadOnly bool
}

// Entity holds the table metadata of one record type.
type Entity struct {
	Type    reflect.Type
	Table   string
	Schema  string
	Columns []*Column

	byAttr map[string]*Column
}

// NewEntity returns an entity for the given type and columns and builds
// its attribute index. Attribute and field names are both indexed.
func NewEntity(t reflect.Type, table, schema string, columns []*Column) *Entity {
	e := &Entity{
		Type:    t,
		Table:   table,
		Schema:  schema,
		Columns: columns,
		byAttr:  make(map[string]*Column, len(columns)*2),
	}
	for _, c := range columns {
		e.byAttr[c.Field] = c
		e.byAttr[c.Attribute] = c
	}
	return e
}

// Column returns the column mapped by the given attribute or field name.
func (e *Entity) Column(name string) (*Column, bool) {
	c, ok := e.byAttr[name]
	return c, ok
}

// QualifiedTable returns the table name prefixed with its schema, if any.
func (e *Entity) QualifiedTable() string {
	if e.Schema == "" {
		return e.Table
	}
	return e.Schema + "." + e.Table
}

// ColumnNames returns the database names of all columns, in field order.
func (e *Entity) ColumnNames() []string {
	names := make([]string, len(e.Columns))
	for i, c := range e.Columns {
		names[i] = c.Name
	}
	return names
}

// Writable returns the columns that take part in INSERT and UPDATE.
func (e *Entity) Writable() []*Column {
	cols := make([]*Column, 0, len(e.Columns))
	for _, c := range e.Columns {
		if !c.ReadOnly {
			cols = append(cols, c)
		}
	}
	return cols
}

// Keys returns the primary key columns.
func (e *Entity) Keys() []*Column {
	var keys []*Column
	for _, c := range e.Columns {
		if c.Key {
			keys = append(keys, c)
		}
	}
	return keys
}

// String implements the fmt.Stringer interface.
func (e *Entity) String() string {
	var b strings.Builder
	b.WriteString(e.Type.String())
	b.WriteString("(")
	b.WriteString(e.QualifiedTable())
	b.WriteString(")")
	return b.String()
}

// TypeOf returns the struct type of v. v may be a reflect.Type, a struct
// value or a pointer to a struct.
func TypeOf(v any) reflect.Type {
	t, ok := v.(reflect.Type)
	if !ok {
		t = reflect.TypeOf(v)
	}
	for t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	return t
}
