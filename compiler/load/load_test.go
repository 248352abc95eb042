package load

import (
	"context"
	"database/sql"
	"os"
	"path/filepath"
	"testing"

	"ariga.io/atlas/sql/schema"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	_ "modernc.org/sqlite"
)

func TestParseTables(t *testing.T) {
	t.Parallel()
	tables, err := ParseTables([]byte(`
tables:
  - name: EMPLOYEES
    comment: staff
    columns:
      - {name: ID, type: integer, go_type: int64, key: true}
      - {name: LAST_NAME, type: text, go_type: string}
      - {name: HIRED_AT, go_type: "*time.Time", nullable: true}
`))
	require.NoError(t, err)
	require.Len(t, tables, 1)
	tbl := tables[0]
	assert.Equal(t, "EMPLOYEES", tbl.Name)
	assert.Equal(t, "staff", tbl.Comment)
	require.Len(t, tbl.Columns, 3)
	assert.Equal(t, &Column{Name: "HIRED_AT", GoType: "*time.Time", Nullable: true}, tbl.Columns[2])
	require.Len(t, tbl.Keys(), 1)
	assert.Equal(t, "ID", tbl.Keys()[0].Name)

	data, err := MarshalTables(tables)
	require.NoError(t, err)
	again, err := ParseTables(data)
	require.NoError(t, err)
	assert.Equal(t, tables, again)
}

func TestParseTablesErrors(t *testing.T) {
	t.Parallel()
	tests := []struct {
		name, doc, want string
	}{
		{name: "Syntax", doc: "tables: [", want: "decode tables"},
		{name: "NoName", doc: "tables: [{columns: [{name: A, go_type: int}]}]", want: "table without a name"},
		{name: "NoColumns", doc: "tables: [{name: T}]", want: `table "T" has no columns`},
		{name: "NoGoType", doc: "tables: [{name: T, columns: [{name: A}]}]", want: "column T.A has no go_type"},
		{name: "Duplicate", doc: "tables: [{name: T, columns: [{name: A, go_type: int}, {name: a, go_type: int}]}]", want: "duplicate column T.a"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			_, err := ParseTables([]byte(tt.doc))
			require.Error(t, err)
			assert.Contains(t, err.Error(), tt.want)
		})
	}
}

func TestLoadFile(t *testing.T) {
	t.Parallel()
	path := filepath.Join(t.TempDir(), "tables.yaml")
	require.NoError(t, os.WriteFile(path, []byte("tables: [{name: T, columns: [{name: A, go_type: int64}]}]"), 0o600))
	tables, err := LoadFile(path)
	require.NoError(t, err)
	require.Len(t, tables, 1)

	_, err = LoadFile(filepath.Join(t.TempDir(), "missing.yaml"))
	assert.Error(t, err)
}

func TestGoType(t *testing.T) {
	t.Parallel()
	tests := []struct {
		typ      schema.Type
		nullable bool
		want     string
	}{
		{typ: &schema.BoolType{T: "bool"}, want: "bool"},
		{typ: &schema.IntegerType{T: "bigint"}, want: "int64"},
		{typ: &schema.IntegerType{T: "bigint", Unsigned: true}, want: "uint64"},
		{typ: &schema.IntegerType{T: "int"}, nullable: true, want: "*int64"},
		{typ: &schema.FloatType{T: "real"}, want: "float64"},
		{typ: &schema.DecimalType{T: "decimal"}, want: "float64"},
		{typ: &schema.StringType{T: "varchar"}, nullable: true, want: "*string"},
		{typ: &schema.EnumType{T: "enum"}, want: "string"},
		{typ: &schema.TimeType{T: "timestamp"}, want: "time.Time"},
		{typ: &schema.BinaryType{T: "blob"}, nullable: true, want: "[]byte"},
		{typ: &schema.JSONType{T: "json"}, want: "[]byte"},
		{typ: &schema.UnsupportedType{T: "geometry"}, nullable: true, want: "any"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, GoType(tt.typ, tt.nullable), "%T", tt.typ)
	}
}

func TestFromSchema(t *testing.T) {
	t.Parallel()
	id := &schema.Column{Name: "id", Type: &schema.ColumnType{Type: &schema.IntegerType{T: "bigint"}}}
	tbl := &schema.Table{
		Name: "users",
		Columns: []*schema.Column{
			id,
			{Name: "name", Type: &schema.ColumnType{Type: &schema.StringType{T: "varchar(255)"}, Null: true}},
			{Name: "created_at", Type: &schema.ColumnType{Raw: "timestamp", Type: &schema.TimeType{T: "timestamp"}}, Attrs: []schema.Attr{&schema.Comment{Text: "creation time"}}},
		},
		Attrs: []schema.Attr{&schema.Comment{Text: "users table"}},
	}
	tbl.PrimaryKey = &schema.Index{Table: tbl, Parts: []*schema.IndexPart{{C: id}}}
	tables := FromSchema(&schema.Schema{Name: "public", Tables: []*schema.Table{tbl}})
	require.Len(t, tables, 1)
	assert.Equal(t, &Table{
		Name:    "users",
		Schema:  "public",
		Comment: "users table",
		Columns: []*Column{
			{Name: "id", Type: "bigint", GoType: "int64", Key: true},
			{Name: "name", Type: "varchar(255)", GoType: "*string", Nullable: true},
			{Name: "created_at", Type: "timestamp", GoType: "time.Time", Comment: "creation time"},
		},
	}, tables[0])
}

func TestInspectSQLite(t *testing.T) {
	t.Parallel()
	db, err := sql.Open("sqlite", "file:"+filepath.Join(t.TempDir(), "inspect.db"))
	require.NoError(t, err)
	defer db.Close()
	_, err = db.Exec(`create table EMPLOYEES (
		ID integer primary key,
		FIRST_NAME text not null,
		SALARY real,
		PHOTO blob
	)`)
	require.NoError(t, err)
	_, err = db.Exec(`create table DEPARTMENTS (ID integer primary key, NAME text not null)`)
	require.NoError(t, err)

	tables, err := Inspect(context.Background(), db, "sqlite3", InspectOptions{Tables: []string{"EMPLOYEES"}})
	require.NoError(t, err)
	require.Len(t, tables, 1)
	tbl := tables[0]
	assert.Equal(t, "EMPLOYEES", tbl.Name)
	require.Len(t, tbl.Columns, 4)
	byName := make(map[string]*Column)
	for _, c := range tbl.Columns {
		byName[c.Name] = c
	}
	assert.True(t, byName["ID"].Key)
	assert.Equal(t, "int64", byName["ID"].GoType)
	assert.Equal(t, "string", byName["FIRST_NAME"].GoType)
	assert.Equal(t, "*float64", byName["SALARY"].GoType)
	assert.Equal(t, "[]byte", byName["PHOTO"].GoType)

	_, err = Inspect(context.Background(), db, "oracle", InspectOptions{})
	assert.ErrorContains(t, err, "not supported")
	_, err = Inspect(context.Background(), db, "informix", InspectOptions{})
	assert.ErrorContains(t, err, "unsupported dialect")
}
