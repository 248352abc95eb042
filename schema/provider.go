package schema

import (
	"fmt"
	"reflect"
	"strings"

	"github.com/syssam/criteria"
)

// Provider yields the table metadata of a record type.
type Provider interface {
	Describe(t reflect.Type) (*Entity, error)
}

// ProviderFunc is an adapter to allow the use of ordinary functions
// as metadata providers.
type ProviderFunc func(reflect.Type) (*Entity, error)

// Describe calls f(t).
func (f ProviderFunc) Describe(t reflect.Type) (*Entity, error) { return f(t) }

// TagProvider reads metadata from struct tags. The table name comes from the
// Tabler interface and the optional schema from Schemer. Columns come from
// the configured tag (default "column") with the following syntax:
//
//	ID        int    `column:"ID,pk"`
//	LastName  string `column:"LAST_NAME"`
//	FullName  string `column:",readonly"`
//	Internal  string `column:"-"`
//
// Exported fields without a tag map to the upper-cased snake_case of the
// field name. Embedded structs are flattened.
type TagProvider struct {
	Tag string
}

// Describe implements the Provider interface.
func (p TagProvider) Describe(t reflect.Type) (*Entity, error) {
	if t == nil || t.Kind() != reflect.Struct {
		return nil, &criteria.ConfigurationError{
			Subject: fmt.Sprint(t),
			Message: "record type must be a struct",
		}
	}
	v := reflect.New(t).Interface()
	tabler, ok := v.(Tabler)
	if !ok || strings.TrimSpace(tabler.TableName()) == "" {
		return nil, &criteria.ConfigurationError{
			Subject: t.String(),
			Message: "missing table metadata: type must implement TableName() string",
		}
	}
	var schemaName string
	if s, ok := v.(Schemer); ok {
		schemaName = s.SchemaName()
	}
	tag := p.Tag
	if tag == "" {
		tag = "column"
	}
	columns, err := p.columns(t, tag, nil)
	if err != nil {
		return nil, err
	}
	if len(columns) == 0 {
		return nil, &criteria.ConfigurationError{
			Subject: t.String(),
			Message: "missing column metadata: no mapped fields",
		}
	}
	return NewEntity(t, tabler.TableName(), schemaName, columns), nil
}

func (p TagProvider) columns(t reflect.Type, tag string, index []int) ([]*Column, error) {
	var columns []*Column
	for i := 0; i < t.NumField(); i++ {
		f := t.Field(i)
		idx := append(append([]int(nil), index...), i)
		value, hasTag := f.Tag.Lookup(tag)
		if value == "-" {
			continue
		}
		if f.Anonymous && !hasTag {
			ft := f.Type
			if ft.Kind() == reflect.Pointer {
				ft = ft.Elem()
			}
			if ft.Kind() == reflect.Struct {
				embedded, err := p.columns(ft, tag, idx)
				if err != nil {
					return nil, err
				}
				columns = append(columns, embedded...)
				continue
			}
		}
		if !f.IsExported() {
			continue
		}
		name, opts, _ := strings.Cut(value, ",")
		if name == "" {
			name = ColumnName(f.Name)
		}
		c := &Column{
			Field:     f.Name,
			Attribute: AttributeName(f.Name),
			Name:      name,
			Index:     idx,
			Type:      f.Type,
		}
		for _, opt := range strings.Split(opts, ",") {
			switch strings.TrimSpace(opt) {
			case "":
			case "pk", "key":
				c.Key = true
			case "readonly":
				c.ReadOnly = true
			default:
				return nil, &criteria.ConfigurationError{
					Subject: t.String() + "." + f.Name,
					Message: fmt.Sprintf("unknown %s tag option %q", tag, opt),
				}
			}
		}
		columns = append(columns, c)
	}
	return columns, nil
}
