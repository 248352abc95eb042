package gen

import (
	"context"
	"errors"
	"go/ast"
	"go/parser"
	"go/token"
	"os"
	"path/filepath"
	"reflect"
	"strconv"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/criteria/compiler/load"
)

func employees() *load.Table {
	return &load.Table{
		Name:    "EMPLOYEES",
		Comment: "Company staff.",
		Columns: []*load.Column{
			{Name: "ID", GoType: "int64", Key: true},
			{Name: "FIRST_NAME", GoType: "string"},
			{Name: "SALARY", GoType: "*float64", Nullable: true, Comment: "monthly"},
			{Name: "HIRED_AT", GoType: "time.Time"},
			{Name: "PHOTO", GoType: "[]byte"},
		},
	}
}

// structTags parses src and returns the field tags of the named struct.
func structTags(t *testing.T, src []byte, name string) map[string]reflect.StructTag {
	t.Helper()
	f, err := parser.ParseFile(token.NewFileSet(), "", src, parser.ParseComments)
	require.NoError(t, err)
	tags := make(map[string]reflect.StructTag)
	ast.Inspect(f, func(n ast.Node) bool {
		ts, ok := n.(*ast.TypeSpec)
		if !ok || ts.Name.Name != name {
			return true
		}
		st, ok := ts.Type.(*ast.StructType)
		require.True(t, ok)
		for _, field := range st.Fields.List {
			tag, err := strconv.Unquote(field.Tag.Value)
			require.NoError(t, err)
			tags[field.Names[0].Name] = reflect.StructTag(tag)
		}
		return false
	})
	return tags
}

func TestRecords(t *testing.T) {
	t.Parallel()
	records, err := Records([]*load.Table{
		employees(),
		{Name: "order_lines", Columns: []*load.Column{
			{Name: "line-no", GoType: "int"},
			{Name: "LINE_NO", GoType: "int"},
			{Name: "2nd_qty", GoType: "int"},
		}},
	})
	require.NoError(t, err)
	require.Len(t, records, 2)
	assert.Equal(t, "Employee", records[0].Name)
	assert.Equal(t, []string{"ID", "FirstName", "Salary", "HiredAt", "Photo"}, records[0].Fields)
	assert.Equal(t, "employee.go", records[0].File())
	assert.Equal(t, "OrderLine", records[1].Name)
	assert.Equal(t, []string{"LineNo", "LineNo2", "C2ndQty"}, records[1].Fields)
	assert.Equal(t, "order_line.go", records[1].File())
}

func TestRecordsErrors(t *testing.T) {
	t.Parallel()
	_, err := Records([]*load.Table{{Name: "T"}})
	require.Error(t, err)
	assert.True(t, errors.Is(err, ErrInvalidTable))

	col := []*load.Column{{Name: "ID", GoType: "int"}}
	_, err = Records([]*load.Table{
		{Name: "USERS", Columns: col},
		{Name: "users", Schema: "audit", Columns: col},
	})
	require.Error(t, err)
	assert.True(t, IsTableError(err))
	assert.Contains(t, err.Error(), "type User is already generated for table USERS")

	_, err = Records([]*load.Table{{Name: "REGISTRIES", Columns: col}})
	assert.ErrorContains(t, err, "conflicts with registry.go")
}

func TestTypeCode(t *testing.T) {
	t.Parallel()
	valid := []string{"int", "*string", "[]byte", "*time.Time", "json.RawMessage", "[]*uuid.UUID", "github.com/shopspring/decimal.Decimal", "any"}
	for _, s := range valid {
		_, err := typeCode(s)
		assert.NoError(t, err, s)
	}
	for _, s := range []string{"", "map[string]int", "time.", ".Time", "foo bar"} {
		_, err := typeCode(s)
		assert.Error(t, err, s)
	}
}

func TestRender(t *testing.T) {
	t.Parallel()
	tbl := employees()
	tbl.Schema = "hr"
	g, err := New(WithPackage("records"), WithJSONTags(true), WithRegistry(true))
	require.NoError(t, err)
	files, err := g.Render(context.Background(), []*load.Table{tbl})
	require.NoError(t, err)
	require.Len(t, files, 2)
	assert.Equal(t, "employee.go", files[0].Name)
	assert.Equal(t, RegistryFile, files[1].Name)

	src := string(files[0].Source)
	assert.Contains(t, src, "// "+DefaultHeader)
	assert.Contains(t, src, "package records")
	assert.Contains(t, src, `"time"`)
	assert.Contains(t, src, "// Employee is a record of the EMPLOYEES table.")
	assert.Contains(t, src, "// Company staff.")
	assert.Contains(t, src, "func (Employee) TableName() string")
	assert.Contains(t, src, `return "EMPLOYEES"`)
	assert.Contains(t, src, `return "hr"`)
	assert.Contains(t, src, "// monthly")

	tags := structTags(t, files[0].Source, "Employee")
	require.Len(t, tags, 5)
	assert.Equal(t, "ID,pk", tags["ID"].Get("column"))
	assert.Equal(t, "id", tags["ID"].Get("json"))
	assert.Equal(t, "FIRST_NAME", tags["FirstName"].Get("column"))
	assert.Equal(t, "firstName", tags["FirstName"].Get("json"))
	assert.Equal(t, "salary,omitempty", tags["Salary"].Get("json"))

	reg := string(files[1].Source)
	assert.Contains(t, reg, `"github.com/syssam/criteria/schema"`)
	assert.Contains(t, reg, "func Register(reg *schema.Registry)")
	assert.Contains(t, reg, "reg.MustRegister(Employee{})")
}

func TestRenderInvalidType(t *testing.T) {
	t.Parallel()
	g, err := New(WithPackage("records"))
	require.NoError(t, err)
	_, err = g.Render(context.Background(), []*load.Table{{
		Name:    "T",
		Columns: []*load.Column{{Name: "A", GoType: "map[string]int"}},
	}})
	require.Error(t, err)
	var tableErr *TableError
	require.ErrorAs(t, err, &tableErr)
	assert.Equal(t, "A", tableErr.Column)
}

func TestGenerate(t *testing.T) {
	t.Parallel()
	dir := filepath.Join(t.TempDir(), "hr-records")
	g, err := New(WithTarget(dir), WithWorkers(2), WithRegistry(true))
	require.NoError(t, err)
	assert.Equal(t, "hrrecords", g.Config().Package)
	require.NoError(t, g.Generate(context.Background(), []*load.Table{
		employees(),
		{Name: "DEPARTMENTS", Columns: []*load.Column{{Name: "ID", GoType: "int64", Key: true}, {Name: "NAME", GoType: "string"}}},
	}))
	for _, name := range []string{"employee.go", "department.go", RegistryFile} {
		data, err := os.ReadFile(filepath.Join(dir, name))
		require.NoError(t, err, name)
		assert.Contains(t, string(data), "package hrrecords")
	}
	m := g.Metrics()
	assert.Equal(t, 3, m.FilesGenerated)
	assert.Positive(t, m.TotalBytes)
}

func TestGenerateCanceled(t *testing.T) {
	t.Parallel()
	g, err := New(WithTarget(t.TempDir()))
	require.NoError(t, err)
	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	err = g.Generate(ctx, []*load.Table{employees()})
	assert.ErrorIs(t, err, context.Canceled)
	assert.Zero(t, g.Metrics().FilesGenerated)
}

func TestOptions(t *testing.T) {
	t.Parallel()
	_, err := New()
	assert.True(t, errors.Is(err, ErrMissingConfig))
	_, err = New(WithPackage("not valid"))
	assert.True(t, IsConfigError(err))
	_, err = New(WithTarget(""))
	assert.True(t, IsConfigError(err))
	_, err = New(WithPackage("p"), WithWorkers(0))
	assert.ErrorContains(t, err, `config error for "Workers" (value: 0)`)

	g, err := New(WithPackage("p"), WithHeader("custom"))
	require.NoError(t, err)
	assert.Equal(t, "custom", g.Config().Header)
	assert.Positive(t, g.Config().Workers)

	err = g.Generate(context.Background(), nil)
	assert.True(t, IsConfigError(err))
}

func TestErrors(t *testing.T) {
	t.Parallel()
	cause := errors.New("boom")
	err := NewTableError("T", "A", "bad column", cause)
	assert.Equal(t, "criteriagen: table error on T column A: bad column: boom", err.Error())
	assert.ErrorIs(t, err, cause)

	gerr := NewGenerationError("format", "t.go", "", cause)
	assert.Equal(t, "criteriagen: generation error in phase format (file: t.go): boom", gerr.Error())
	assert.True(t, errors.Is(gerr, ErrGenerationFailed))
	assert.True(t, IsGenerationError(gerr))
	assert.False(t, IsGenerationError(err))
}
