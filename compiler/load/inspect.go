package load

import (
	"context"
	"fmt"

	"ariga.io/atlas/sql/migrate"
	"ariga.io/atlas/sql/mysql"
	"ariga.io/atlas/sql/postgres"
	"ariga.io/atlas/sql/schema"
	"ariga.io/atlas/sql/sqlite"

	"github.com/syssam/criteria/dialect"
)

// InspectOptions selects what Inspect reads.
type InspectOptions struct {
	// Schema is the database schema to inspect. Empty means the schema of
	// the connection.
	Schema string
	// Tables limits the inspection to the named tables.
	Tables []string
}

// Inspect reads the tables of a live database. The dialect names the
// engine; sqlite, postgres and mysql are supported.
func Inspect(ctx context.Context, db schema.ExecQuerier, dialectName string, opts InspectOptions) ([]*Table, error) {
	drv, err := openDriver(db, dialectName)
	if err != nil {
		return nil, err
	}
	s, err := drv.InspectSchema(ctx, opts.Schema, &schema.InspectOptions{Tables: opts.Tables})
	if err != nil {
		return nil, fmt.Errorf("load: inspect schema: %w", err)
	}
	return FromSchema(s), nil
}

func openDriver(db schema.ExecQuerier, name string) (migrate.Driver, error) {
	d, ok := dialect.Get(name)
	if !ok {
		return nil, fmt.Errorf("load: unsupported dialect %q", name)
	}
	var (
		drv migrate.Driver
		err error
	)
	switch d.Name() {
	case dialect.SQLite:
		drv, err = sqlite.Open(db)
	case dialect.Postgres:
		drv, err = postgres.Open(db)
	case dialect.MySQL:
		drv, err = mysql.Open(db)
	default:
		return nil, fmt.Errorf("load: inspection is not supported for dialect %q", d.Name())
	}
	if err != nil {
		return nil, fmt.Errorf("load: open %s driver: %w", d.Name(), err)
	}
	return drv, nil
}

// FromSchema converts an inspected schema into table definitions.
func FromSchema(s *schema.Schema) []*Table {
	tables := make([]*Table, 0, len(s.Tables))
	for _, t := range s.Tables {
		tables = append(tables, fromTable(s.Name, t))
	}
	return tables
}

func fromTable(schemaName string, t *schema.Table) *Table {
	keys := make(map[string]bool)
	if t.PrimaryKey != nil {
		for _, p := range t.PrimaryKey.Parts {
			if p.C != nil {
				keys[p.C.Name] = true
			}
		}
	}
	tbl := &Table{Name: t.Name, Schema: schemaName, Comment: comment(t.Attrs)}
	for _, c := range t.Columns {
		col := &Column{
			Name:    c.Name,
			Key:     keys[c.Name],
			Comment: comment(c.Attrs),
		}
		if c.Type != nil {
			col.Type = c.Type.Raw
			col.Nullable = c.Type.Null && !col.Key
			col.GoType = GoType(c.Type.Type, col.Nullable)
			if col.Type == "" && c.Type.Type != nil {
				col.Type = typeName(c.Type.Type)
			}
		} else {
			col.GoType = "any"
		}
		tbl.Columns = append(tbl.Columns, col)
	}
	return tbl
}

func comment(attrs []schema.Attr) string {
	for _, a := range attrs {
		if c, ok := a.(*schema.Comment); ok {
			return c.Text
		}
	}
	return ""
}

// GoType returns the Go type of a column type. Nullable columns map to
// pointers, except for byte slices and untyped values.
func GoType(t schema.Type, nullable bool) string {
	var name string
	switch t := t.(type) {
	case *schema.BoolType:
		name = "bool"
	case *schema.IntegerType:
		name = "int64"
		if t.Unsigned {
			name = "uint64"
		}
	case *schema.FloatType, *schema.DecimalType:
		name = "float64"
	case *schema.StringType, *schema.EnumType, *schema.UUIDType:
		name = "string"
	case *schema.TimeType:
		name = "time.Time"
	case *schema.BinaryType, *schema.JSONType:
		return "[]byte"
	default:
		return "any"
	}
	if nullable {
		return "*" + name
	}
	return name
}

func typeName(t schema.Type) string {
	switch t := t.(type) {
	case *schema.BoolType:
		return t.T
	case *schema.IntegerType:
		return t.T
	case *schema.FloatType:
		return t.T
	case *schema.DecimalType:
		return t.T
	case *schema.StringType:
		return t.T
	case *schema.EnumType:
		return t.T
	case *schema.UUIDType:
		return t.T
	case *schema.TimeType:
		return t.T
	case *schema.BinaryType:
		return t.T
	case *schema.JSONType:
		return t.T
	default:
		return ""
	}
}
