package transfer

import (
	stdsql "database/sql"
	"errors"
	"reflect"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type celsius float64

func TestCoerce(t *testing.T) {
	t.Parallel()
	at := time.Date(2024, 3, 1, 10, 30, 0, 0, time.UTC)
	tests := []struct {
		name string
		src  any
		dst  any // pointer to the destination
		want any
	}{
		{name: "SameType", src: "ada", dst: new(string), want: "ada"},
		{name: "BytesToString", src: []byte("ada"), dst: new(string), want: "ada"},
		{name: "IntToString", src: int64(7), dst: new(string), want: "7"},
		{name: "Int64ToInt", src: int64(42), dst: new(int), want: 42},
		{name: "FloatToInt", src: float64(3), dst: new(int32), want: int32(3)},
		{name: "BytesToInt", src: []byte(" 12 "), dst: new(int), want: 12},
		{name: "BoolToInt", src: true, dst: new(int8), want: int8(1)},
		{name: "Int64ToUint", src: int64(9), dst: new(uint16), want: uint16(9)},
		{name: "StringToFloat", src: "1.5", dst: new(float64), want: 1.5},
		{name: "Int64ToFloat", src: int64(2), dst: new(float32), want: float32(2)},
		{name: "Int64ToBool", src: int64(1), dst: new(bool), want: true},
		{name: "StringToBool", src: "false", dst: new(bool), want: false},
		{name: "StringToBytes", src: "raw", dst: new([]byte), want: []byte("raw")},
		{name: "TimeRFC3339", src: "2024-03-01T10:30:00Z", dst: new(time.Time), want: at},
		{name: "TimeSQLite", src: []byte("2024-03-01 10:30:00"), dst: new(time.Time), want: at},
		{name: "TimeUnix", src: at.Unix(), dst: new(time.Time), want: at},
		{name: "NilToZero", src: nil, dst: func() *int { v := 5; return &v }(), want: 0},
		{name: "Pointer", src: int64(3), dst: new(*int), want: func() *int { v := 3; return &v }()},
		{name: "Scanner", src: "x", dst: new(stdsql.NullString), want: stdsql.NullString{String: "x", Valid: true}},
		{name: "Named", src: float64(21.5), dst: new(celsius), want: celsius(21.5)},
	}
	c := NewCoercions()
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			dst := reflect.ValueOf(tt.dst).Elem()
			require.NoError(t, c.Coerce(tt.src, dst))
			assert.Equal(t, tt.want, dst.Interface())
		})
	}
}

func TestCoerceErrors(t *testing.T) {
	t.Parallel()
	c := NewCoercions()
	tests := []struct {
		name string
		src  any
		dst  any
	}{
		{name: "Fraction", src: 1.5, dst: new(int)},
		{name: "Overflow", src: int64(300), dst: new(int8)},
		{name: "Negative", src: int64(-1), dst: new(uint)},
		{name: "NotANumber", src: "abc", dst: new(int)},
		{name: "NotABool", src: "maybe", dst: new(bool)},
		{name: "NotATime", src: "yesterday", dst: new(time.Time)},
		{name: "Unsupported", src: struct{}{}, dst: new(float64)},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			assert.Error(t, c.Coerce(tt.src, reflect.ValueOf(tt.dst).Elem()))
		})
	}
}

func TestCoercionsRegister(t *testing.T) {
	t.Parallel()
	c := NewCoercions()
	c.Register(reflect.TypeOf(celsius(0)), func(src any, dst reflect.Value) error {
		f, ok := src.(float64)
		if !ok {
			return errors.New("not a float")
		}
		dst.SetFloat((f - 32) * 5 / 9)
		return nil
	})
	var v celsius
	require.NoError(t, c.Coerce(float64(212), reflect.ValueOf(&v).Elem()))
	assert.Equal(t, celsius(100), v)
	assert.Error(t, c.Coerce("hot", reflect.ValueOf(&v).Elem()))
}
