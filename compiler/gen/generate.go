package gen

import (
	"fmt"
	"go/token"
	"path/filepath"
	"strings"
	"unicode"

	"github.com/dave/jennifer/jen"

	"github.com/syssam/criteria/compiler/load"
	"github.com/syssam/criteria/schema"
)

const schemaPkg = "github.com/syssam/criteria/schema"

// RegistryFile is the name of the file holding the Register function.
const RegistryFile = "registry.go"

// stdPackages resolves the short package names allowed in go_type values.
var stdPackages = map[string]string{
	"time": "time",
	"json": "encoding/json",
	"sql":  "database/sql",
	"big":  "math/big",
	"uuid": "github.com/google/uuid",
}

// Record is the Go view of one table.
type Record struct {
	Table  *load.Table
	Name   string   // struct name
	Fields []string // field names, in column order
}

// File returns the name of the file holding the record.
func (r *Record) File() string {
	return schema.Snake(r.Name) + ".go"
}

// Records computes the struct and field names of the tables. Struct names
// are the singular PascalCase form of the table name.
func Records(tables []*load.Table) ([]*Record, error) {
	var (
		records = make([]*Record, 0, len(tables))
		names   = make(map[string]string, len(tables))
	)
	for _, t := range tables {
		if err := t.Validate(); err != nil {
			return nil, NewTableError(t.Name, "", "invalid definition", err)
		}
		name := identifier(schema.Pascal(schema.Singular(strings.ToLower(t.Name))), "T")
		if prev, ok := names[name]; ok {
			return nil, NewTableError(t.Name, "", fmt.Sprintf("type %s is already generated for table %s", name, prev), nil)
		}
		names[name] = t.Name
		r := &Record{Table: t, Name: name}
		if r.File() == RegistryFile {
			return nil, NewTableError(t.Name, "", fmt.Sprintf("type %s conflicts with %s", name, RegistryFile), nil)
		}
		seen := make(map[string]int, len(t.Columns))
		for _, c := range t.Columns {
			field := identifier(schema.Pascal(c.Name), "C")
			if n := seen[field]; n > 0 {
				seen[field] = n + 1
				field = fmt.Sprintf("%s%d", field, n+1)
			}
			seen[field]++
			r.Fields = append(r.Fields, field)
		}
		records = append(records, r)
	}
	return records, nil
}

// identifier turns s into an exported Go identifier, dropping characters
// that are not allowed and prefixing names that do not start with a letter.
func identifier(s, prefix string) string {
	s = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) || r == '_' {
			return r
		}
		return -1
	}, s)
	if s == "" || !unicode.IsLetter([]rune(s)[0]) {
		s = prefix + s
	}
	if token.IsKeyword(s) {
		s = prefix + s
	}
	return s
}

// typeCode converts a go_type value into jen code. Pointers, slices and
// qualified names are supported: "*time.Time", "[]byte", "json.RawMessage"
// and "github.com/shopspring/decimal.Decimal".
func typeCode(s string) (jen.Code, error) {
	s = strings.TrimSpace(s)
	switch {
	case strings.HasPrefix(s, "*"):
		elem, err := typeCode(s[1:])
		if err != nil {
			return nil, err
		}
		return jen.Op("*").Add(elem), nil
	case strings.HasPrefix(s, "[]"):
		elem, err := typeCode(s[2:])
		if err != nil {
			return nil, err
		}
		return jen.Index().Add(elem), nil
	}
	i := strings.LastIndex(s, ".")
	if i < 0 {
		if !token.IsIdentifier(s) {
			return nil, fmt.Errorf("invalid type %q", s)
		}
		return jen.Id(s), nil
	}
	path, name := s[:i], s[i+1:]
	if !token.IsIdentifier(name) || path == "" {
		return nil, fmt.Errorf("invalid type %q", s)
	}
	if p, ok := stdPackages[path]; ok {
		path = p
	}
	return jen.Qual(path, name), nil
}

// recordFile renders the struct of one record.
func (g *Generator) recordFile(r *Record) (*jen.File, error) {
	t := r.Table
	f := jen.NewFile(g.cfg.Package)
	f.HeaderComment(g.cfg.Header)

	fields := make([]jen.Code, 0, len(t.Columns))
	for i, c := range t.Columns {
		typ, err := typeCode(c.GoType)
		if err != nil {
			return nil, NewTableError(t.Name, c.Name, "go_type", err)
		}
		tag := c.Name
		if c.Key {
			tag += ",pk"
		}
		tags := map[string]string{"column": tag}
		if g.cfg.JSONTags {
			tags["json"] = schema.AttributeName(r.Fields[i])
			if c.Nullable {
				tags["json"] += ",omitempty"
			}
		}
		field := jen.Id(r.Fields[i]).Add(typ).Tag(tags)
		if c.Comment != "" {
			field.Comment(c.Comment)
		}
		fields = append(fields, field)
	}

	f.Commentf("%s is a record of the %s table.", r.Name, t.Name)
	if t.Comment != "" {
		f.Comment("")
		f.Comment(t.Comment)
	}
	f.Type().Id(r.Name).Struct(fields...)
	f.Line()

	f.Comment("TableName returns the name of the mapped table.")
	f.Func().Params(jen.Id(r.Name)).Id("TableName").Params().String().Block(
		jen.Return(jen.Lit(t.Name)),
	)
	if t.Schema != "" {
		f.Line()
		f.Comment("SchemaName returns the schema of the mapped table.")
		f.Func().Params(jen.Id(r.Name)).Id("SchemaName").Params().String().Block(
			jen.Return(jen.Lit(t.Schema)),
		)
	}
	return f, nil
}

// registryFile renders the Register function of all records.
func (g *Generator) registryFile(records []*Record) *jen.File {
	f := jen.NewFile(g.cfg.Package)
	f.HeaderComment(g.cfg.Header)
	values := make([]jen.Code, 0, len(records))
	for _, r := range records {
		values = append(values, jen.Id(r.Name).Values())
	}
	f.Comment("Register adds the generated record types to reg.")
	f.Func().Id("Register").Params(jen.Id("reg").Op("*").Qual(schemaPkg, "Registry")).Block(
		jen.Id("reg").Dot("MustRegister").Call(values...),
	)
	return f
}

// packageName derives the package name from the target directory.
func packageName(target string) string {
	base := strings.ToLower(filepath.Base(filepath.Clean(target)))
	base = strings.Map(func(r rune) rune {
		if unicode.IsLetter(r) || unicode.IsDigit(r) {
			return r
		}
		return -1
	}, base)
	if !token.IsIdentifier(base) || token.IsKeyword(base) {
		return "records"
	}
	return base
}
