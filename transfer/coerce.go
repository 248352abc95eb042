package transfer

import (
	"database/sql"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"sync"
	"time"
)

// Coercer converts a driver value into the destination field. src is never
// nil, and dst is settable.
type Coercer func(src any, dst reflect.Value) error

// Coercions is the coercion table used by the struct mapper. Coercers are
// looked up by destination type first, then by destination kind.
type Coercions struct {
	mu     sync.RWMutex
	byType map[reflect.Type]Coercer
	byKind map[reflect.Kind]Coercer
}

var (
	timeType    = reflect.TypeOf(time.Time{})
	bytesType   = reflect.TypeOf([]byte(nil))
	scannerType = reflect.TypeOf((*sql.Scanner)(nil)).Elem()
)

// NewCoercions returns a table holding the default coercers for strings,
// numbers, booleans, byte slices and time.Time.
func NewCoercions() *Coercions {
	c := &Coercions{
		byType: map[reflect.Type]Coercer{
			timeType:  coerceTime,
			bytesType: coerceBytes,
		},
		byKind: map[reflect.Kind]Coercer{
			reflect.String:  coerceString,
			reflect.Bool:    coerceBool,
			reflect.Float32: coerceFloat,
			reflect.Float64: coerceFloat,
		},
	}
	for _, k := range []reflect.Kind{reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64} {
		c.byKind[k] = coerceInt
	}
	for _, k := range []reflect.Kind{reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64} {
		c.byKind[k] = coerceUint
	}
	return c
}

// Register sets the coercer of the given destination type.
func (c *Coercions) Register(t reflect.Type, fn Coercer) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.byType[t] = fn
}

// Coerce assigns src to dst. A nil src sets dst to its zero value.
// Pointer destinations are allocated as needed, and destinations
// implementing sql.Scanner scan the value themselves.
func (c *Coercions) Coerce(src any, dst reflect.Value) error {
	if src == nil {
		dst.SetZero()
		return nil
	}
	if dst.Kind() == reflect.Pointer {
		elem := reflect.New(dst.Type().Elem())
		if err := c.Coerce(src, elem.Elem()); err != nil {
			return err
		}
		dst.Set(elem)
		return nil
	}
	if dst.CanAddr() && dst.Addr().Type().Implements(scannerType) {
		return dst.Addr().Interface().(sql.Scanner).Scan(src)
	}
	sv := reflect.ValueOf(src)
	if sv.Type() == dst.Type() {
		dst.Set(sv)
		return nil
	}
	c.mu.RLock()
	fn, ok := c.byType[dst.Type()]
	if !ok {
		fn, ok = c.byKind[dst.Kind()]
	}
	c.mu.RUnlock()
	if ok {
		return fn(src, dst)
	}
	if sv.Type().ConvertibleTo(dst.Type()) {
		dst.Set(sv.Convert(dst.Type()))
		return nil
	}
	return fmt.Errorf("unsupported conversion from %T to %s", src, dst.Type())
}

func coerceString(src any, dst reflect.Value) error {
	switch v := src.(type) {
	case string:
		dst.SetString(v)
	case []byte:
		dst.SetString(string(v))
	case time.Time:
		dst.SetString(v.Format(time.RFC3339Nano))
	default:
		dst.SetString(fmt.Sprint(v))
	}
	return nil
}

func coerceInt(src any, dst reflect.Value) error {
	var n int64
	switch v := src.(type) {
	case int64:
		n = v
	case int:
		n = int64(v)
	case int32:
		n = int64(v)
	case float64:
		if v != float64(int64(v)) {
			return fmt.Errorf("float %v has a fractional part", v)
		}
		n = int64(v)
	case bool:
		if v {
			n = 1
		}
	case []byte, string:
		p, err := strconv.ParseInt(strings.TrimSpace(asString(v)), 10, 64)
		if err != nil {
			return err
		}
		n = p
	default:
		return fmt.Errorf("unsupported conversion from %T to %s", src, dst.Type())
	}
	if dst.OverflowInt(n) {
		return fmt.Errorf("value %d overflows %s", n, dst.Type())
	}
	dst.SetInt(n)
	return nil
}

func coerceUint(src any, dst reflect.Value) error {
	var n uint64
	switch v := src.(type) {
	case int64:
		if v < 0 {
			return fmt.Errorf("negative value %d for %s", v, dst.Type())
		}
		n = uint64(v)
	case uint64:
		n = v
	case []byte, string:
		p, err := strconv.ParseUint(strings.TrimSpace(asString(v)), 10, 64)
		if err != nil {
			return err
		}
		n = p
	default:
		return fmt.Errorf("unsupported conversion from %T to %s", src, dst.Type())
	}
	if dst.OverflowUint(n) {
		return fmt.Errorf("value %d overflows %s", n, dst.Type())
	}
	dst.SetUint(n)
	return nil
}

func coerceFloat(src any, dst reflect.Value) error {
	var f float64
	switch v := src.(type) {
	case float64:
		f = v
	case float32:
		f = float64(v)
	case int64:
		f = float64(v)
	case []byte, string:
		p, err := strconv.ParseFloat(strings.TrimSpace(asString(v)), 64)
		if err != nil {
			return err
		}
		f = p
	default:
		return fmt.Errorf("unsupported conversion from %T to %s", src, dst.Type())
	}
	dst.SetFloat(f)
	return nil
}

func coerceBool(src any, dst reflect.Value) error {
	switch v := src.(type) {
	case bool:
		dst.SetBool(v)
	case int64:
		dst.SetBool(v != 0)
	case []byte, string:
		b, err := strconv.ParseBool(strings.TrimSpace(asString(v)))
		if err != nil {
			return err
		}
		dst.SetBool(b)
	default:
		return fmt.Errorf("unsupported conversion from %T to bool", src)
	}
	return nil
}

func coerceBytes(src any, dst reflect.Value) error {
	switch v := src.(type) {
	case []byte:
		dst.SetBytes(append([]byte(nil), v...))
	case string:
		dst.SetBytes([]byte(v))
	default:
		return fmt.Errorf("unsupported conversion from %T to []byte", src)
	}
	return nil
}

// timeLayouts are the textual timestamp formats accepted for time.Time.
var timeLayouts = []string{
	time.RFC3339Nano,
	"2006-01-02 15:04:05.999999999-07:00",
	"2006-01-02 15:04:05.999999999",
	"2006-01-02T15:04:05.999999999",
	"2006-01-02",
}

func coerceTime(src any, dst reflect.Value) error {
	switch v := src.(type) {
	case time.Time:
		dst.Set(reflect.ValueOf(v))
		return nil
	case int64:
		dst.Set(reflect.ValueOf(time.Unix(v, 0).UTC()))
		return nil
	case []byte, string:
		s := strings.TrimSpace(asString(v))
		for _, layout := range timeLayouts {
			if t, err := time.Parse(layout, s); err == nil {
				dst.Set(reflect.ValueOf(t))
				return nil
			}
		}
		return fmt.Errorf("cannot parse %q as a timestamp", s)
	default:
		return fmt.Errorf("unsupported conversion from %T to time.Time", src)
	}
}

func asString(v any) string {
	if b, ok := v.([]byte); ok {
		return string(b)
	}
	return v.(string)
}
