package sql

import (
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/syssam/criteria"
	"github.com/syssam/criteria/dialect"
)

func TestPredicates(t *testing.T) {
	_, e := employees(t, newBuilder(dialect.Standard))
	id, name, salary := e.Get("id"), e.Get("lastName"), e.Get("salary")
	tests := []struct {
		name string
		expr *Expression
		want string
	}{
		{"EQ", EQ(id, 1), "tbl.ID = 1"},
		{"NEQ", NEQ(name, "x"), "tbl.LAST_NAME <> 'x'"},
		{"GE", GE(salary, 1.5), "tbl.SALARY >= 1.5"},
		{"LE", LE(salary, int64(3)), "tbl.SALARY <= 3"},
		{"Columns", EQ(id, e.Get("departmentID")), "tbl.ID = tbl.DEPARTMENT_ID"},
		{"Like", Like(name, "O'Ne"), "tbl.LAST_NAME like '%ONe%'"},
		{"Contains", Contains(name, "mi"), "tbl.LAST_NAME like '%mi%'"},
		{"NotLike", NotLike(name, "mi"), "tbl.LAST_NAME not like '%mi%'"},
		{"StartsWith", StartsWith(name, "Sm"), "tbl.LAST_NAME like 'Sm%'"},
		{"EndsWith", EndsWith(name, "th"), "tbl.LAST_NAME like '%th'"},
		{"Between", Between(salary, 10, 20), "tbl.SALARY between 10 and 20"},
		{"NotBetween", NotBetween(salary, 10, 20), "tbl.SALARY not between 10 and 20"},
		{"In", In(id, 1, 2, 3), "tbl.ID in (1,2,3)"},
		{"InSlice", In(name, []string{"a", "b"}), "tbl.LAST_NAME in ('a','b')"},
		{"InValues", InValues(id, []int{4, 5}), "tbl.ID in (4,5)"},
		{"NotIn", NotIn(id, 1), "tbl.ID not in (1)"},
		{"IsNull", IsNull(name), "tbl.LAST_NAME is null"},
		{"IsNotNull", IsNotNull(name), "tbl.LAST_NAME is not null"},
		{"Raw", ExprRaw("1 = 1"), "1 = 1"},
		{"Not", Not(EQ(id, 1)), "not (tbl.ID = 1)"},
		{"AndNot", EQ(id, 1).Not(EQ(id, 2)), "tbl.ID = 1 and not (tbl.ID = 2)"},
		{"Or", EQ(id, 1).Or(EQ(id, 2), EQ(id, 3)), "tbl.ID = 1 or (tbl.ID = 2 or tbl.ID = 3)"},
		{"And", And(EQ(id, 1), EQ(id, 2)), "tbl.ID = 1 and (tbl.ID = 2)"},
		{"Order", EQ(id, 1).Or(EQ(id, 4)).And(EQ(id, 2)).Not(EQ(id, 3)), "tbl.ID = 1 and not (tbl.ID = 3) and (tbl.ID = 2) or (tbl.ID = 4)"},
		{"BaseNot", GT(id, 0).Not(LT(id, 5)), "tbl.ID > 0 and not (tbl.ID < 5)"},
		{"NestedOr", GT(id, 0).And(LT(id, 30).Or(GT(id, 50))), "tbl.ID > 0 and ((tbl.ID < 30 or (tbl.ID > 50)))"},
		{"Nested", EQ(id, 1).And(EQ(id, 2).Or(EQ(id, 3)), EQ(id, 4)), "tbl.ID = 1 and ((tbl.ID = 2 or (tbl.ID = 3)) and tbl.ID = 4)"},
		{"Empty", Identity(), ""},
		{"EmptyOr", Or(), ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			require.NoError(t, tt.expr.Err())
			assert.Equal(t, tt.want, tt.expr.String())
		})
	}
}

func TestPredicateErrors(t *testing.T) {
	_, e := employees(t, newBuilder(dialect.Standard))
	id := e.Get("id")
	var nilPtr *int
	tests := []struct {
		name string
		expr *Expression
		op   string
	}{
		{"EQNil", EQ(id, nil), "eq"},
		{"EQNilPointer", EQ(id, nilPtr), "eq"},
		{"GTNilLeft", GT(nil, 1), "gt"},
		{"InEmpty", In(id), "in"},
		{"InEmptySlice", In(id, []int{}), "in"},
		{"NotInEmpty", NotIn(id), "notIn"},
		{"BetweenNil", Between(id, nil, 3), "between"},
		{"ExistsNil", Exists(nil), "exists"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.expr.Err()
			require.Error(t, err)
			assert.True(t, criteria.IsExpressionError(err))
			var ee *criteria.ExpressionError
			require.True(t, errors.As(err, &ee))
			assert.Equal(t, tt.op, ee.Op)
		})
	}

	t.Run("Propagates", func(t *testing.T) {
		expr := EQ(id, 1).And(In(id))
		require.Error(t, expr.Err())
		assert.True(t, criteria.IsExpressionError(expr.Err()))
	})
}

func TestExpressionImmutable(t *testing.T) {
	_, e := employees(t, newBuilder(dialect.Standard))
	id := e.Get("id")
	base := GT(id, 0)
	a := base.And(LT(id, 10))
	b := base.Or(EQ(id, 42))
	assert.Equal(t, "tbl.ID > 0", base.String())
	assert.Equal(t, "tbl.ID > 0 and (tbl.ID < 10)", a.String())
	assert.Equal(t, "tbl.ID > 0 or (tbl.ID = 42)", b.String())
	assert.Equal(t, a.String(), a.String())
}

func TestLikeQuoting(t *testing.T) {
	tests := []struct {
		dialect string
		expr    func(Selectable) *Expression
		want    string
	}{
		{dialect.MySQL, func(p Selectable) *Expression { return EndsWith(p, `abc\`) }, `tbl.LAST_NAME like '%abc\\'`},
		{dialect.MySQL, func(p Selectable) *Expression { return Like(p, `a\b`) }, `tbl.LAST_NAME like '%a\\b%'`},
		{dialect.Postgres, func(p Selectable) *Expression { return EndsWith(p, `abc\`) }, `tbl.LAST_NAME like '%abc\'`},
		{dialect.Standard, func(p Selectable) *Expression { return StartsWith(p, "O'B") }, `tbl.LAST_NAME like 'OB%'`},
	}
	for _, tt := range tests {
		t.Run(tt.dialect, func(t *testing.T) {
			_, e := employees(t, newBuilder(tt.dialect))
			b := NewBuilder(dialect.For(tt.dialect))
			tt.expr(e.Get("lastName")).render(b)
			require.NoError(t, b.Err())
			assert.Equal(t, tt.want, b.String())
		})
	}
}

func TestLiteral(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 30, 0, 0, time.UTC)
	str := "ptr"
	tests := []struct {
		dialect string
		value   any
		want    string
	}{
		{dialect.Standard, nil, "null"},
		{dialect.Standard, "it's", "'it''s'"},
		{dialect.MySQL, `a\b`, `'a\\b'`},
		{dialect.Standard, true, "true"},
		{dialect.SQLite, true, "1"},
		{dialect.Oracle, false, "0"},
		{dialect.Standard, 42, "42"},
		{dialect.Standard, int8(-3), "-3"},
		{dialect.Standard, uint16(7), "7"},
		{dialect.Standard, 2.5, "2.5"},
		{dialect.Standard, float32(0.25), "0.25"},
		{dialect.Standard, []byte("raw"), "'raw'"},
		{dialect.Standard, at, "'2024-03-01 12:30:00'"},
		{dialect.Standard, &str, "'ptr'"},
		{dialect.Standard, (*string)(nil), "null"},
		{dialect.Standard, NullString{String: "v", Valid: true}, "'v'"},
		{dialect.Standard, NullInt64{}, "null"},
		{dialect.Standard, dialect.Standard, "'standard'"},
	}
	for _, tt := range tests {
		b := NewBuilder(dialect.For(tt.dialect))
		b.Literal(tt.value)
		require.NoError(t, b.Err())
		assert.Equal(t, tt.want, b.String(), "%s %#v", tt.dialect, tt.value)
	}
}

func TestBuilderErrors(t *testing.T) {
	b := NewBuilder(nil)
	assert.Equal(t, dialect.Standard, b.Dialect().Name())
	b.AddError(nil)
	require.NoError(t, b.Err())
	first := errors.New("first")
	b.AddError(first)
	assert.Equal(t, first, b.Err())
	b.AddError(errors.New("second"))
	assert.ErrorIs(t, b.Err(), first)
	assert.Contains(t, b.Err().Error(), "second")
}

func TestTypedFields(t *testing.T) {
	_, e := employees(t, newBuilder(dialect.Standard))
	id := FieldOf[int](e, "id")
	name := StringFieldOf(e, "lastName")
	tests := []struct {
		expr *Expression
		want string
	}{
		{id.EQ(3), "tbl.ID = 3"},
		{id.NEQ(3), "tbl.ID <> 3"},
		{id.GT(3), "tbl.ID > 3"},
		{id.GE(3), "tbl.ID >= 3"},
		{id.LT(3), "tbl.ID < 3"},
		{id.LE(3), "tbl.ID <= 3"},
		{id.In(1, 2), "tbl.ID in (1,2)"},
		{id.NotIn(1, 2), "tbl.ID not in (1,2)"},
		{id.InOpt(), ""},
		{id.Between(1, 9), "tbl.ID between 1 and 9"},
		{id.IsNull(), "tbl.ID is null"},
		{id.IsNotNull(), "tbl.ID is not null"},
		{name.Contains("a"), "tbl.LAST_NAME like '%a%'"},
		{name.NotContains("a"), "tbl.LAST_NAME not like '%a%'"},
		{name.HasPrefix("a"), "tbl.LAST_NAME like 'a%'"},
		{name.HasSuffix("a"), "tbl.LAST_NAME like '%a'"},
		{name.EqualFold("Smith"), "lower(tbl.LAST_NAME) = lower('Smith')"},
	}
	for _, tt := range tests {
		assert.Equal(t, tt.want, tt.expr.String())
	}
	assert.Equal(t, "id", id.Path().Alias())
	assert.Equal(t, "key", id.As("key").Alias())
	assert.Equal(t, "tbl.ID desc", orderString(id.Desc()))
	assert.Equal(t, "tbl.LAST_NAME asc", orderString(name.Asc()))

	typed := TypedField[float64](e.Get("salary"))
	assert.Equal(t, "tbl.SALARY > 1.5", typed.GT(1.5).String())
}

func orderString(o *Order) string {
	b := NewBuilder(nil)
	o.render(b)
	return b.String()
}
