package dialect

import (
	"regexp"
	"sort"
	"strconv"
	"strings"
	"sync"
)

// Dialect names for external usage.
const (
	Standard  = "standard"
	MySQL     = "mysql"
	Postgres  = "postgres"
	Oracle    = "oracle"
	SQLServer = "sqlserver"
	DB2       = "db2"
	SQLite    = "sqlite"
)

// Dialect holds the rendering rules of one database engine. Implementations
// are stateless and safe for concurrent use.
type Dialect interface {
	// Name returns the canonical dialect name.
	Name() string
	// LimitOffset renders the pagination clause. It returns an empty
	// string when both arguments are nil.
	LimitOffset(limit, offset *int) string
	// Bool renders a boolean literal.
	Bool(b bool) string
	// Concat renders a string concatenation of the given SQL parts.
	Concat(parts ...string) string
	// Escape quotes an identifier when it is reserved or is not a plain
	// identifier. Qualified names are escaped per segment.
	Escape(name string) string
	// Distinct returns the DISTINCT keyword.
	Distinct() string
	// Null returns the NULL keyword.
	Null() string
	// Quote renders a string literal.
	Quote(s string) string
	// Placeholder returns the bind parameter marker for the i-th (1-based)
	// argument.
	Placeholder(i int) string
}

// Ptr returns a pointer to the given value. It is a convenience for
// LimitOffset callers.
func Ptr(v int) *int { return &v }

// ansi is the standard dialect. Engines embed it and override only the
// methods where their syntax diverges.
type ansi struct{}

func (ansi) Name() string { return Standard }

func (ansi) LimitOffset(limit, offset *int) string {
	return limitOffset(limit, offset, "")
}

func (ansi) Bool(b bool) string {
	if b {
		return "true"
	}
	return "false"
}

func (ansi) Concat(parts ...string) string { return strings.Join(parts, " || ") }

func (ansi) Escape(name string) string { return escape(name, `"`, `"`) }

func (ansi) Distinct() string { return "distinct" }

func (ansi) Null() string { return "null" }

func (ansi) Quote(s string) string { return "'" + strings.ReplaceAll(s, "'", "''") + "'" }

func (ansi) Placeholder(int) string { return "?" }

// limitOffset renders the LIMIT/OFFSET family. noLimit is the value used
// by engines that do not accept a bare OFFSET.
func limitOffset(limit, offset *int, noLimit string) string {
	var b strings.Builder
	switch {
	case limit != nil:
		b.WriteString("LIMIT ")
		b.WriteString(strconv.Itoa(*limit))
	case offset != nil && noLimit != "":
		b.WriteString("LIMIT ")
		b.WriteString(noLimit)
	}
	if offset != nil {
		if b.Len() > 0 {
			b.WriteByte(' ')
		}
		b.WriteString("OFFSET ")
		b.WriteString(strconv.Itoa(*offset))
	}
	return b.String()
}

// fetchFirst renders the OFFSET/FETCH family. SQL Server requires an
// OFFSET clause before FETCH, so a missing offset renders as 0.
func fetchFirst(limit, offset *int) string {
	if limit == nil && offset == nil {
		return ""
	}
	off := 0
	if offset != nil {
		off = *offset
	}
	s := "OFFSET " + strconv.Itoa(off) + " ROWS"
	if limit != nil {
		s += " FETCH NEXT " + strconv.Itoa(*limit) + " ROWS ONLY"
	}
	return s
}

type mysql struct{ ansi }

func (mysql) Name() string { return MySQL }

func (mysql) LimitOffset(limit, offset *int) string {
	return limitOffset(limit, offset, "18446744073709551615")
}

func (mysql) Concat(parts ...string) string { return "CONCAT(" + strings.Join(parts, ", ") + ")" }

func (mysql) Escape(name string) string { return escape(name, "`", "`") }

func (mysql) Quote(s string) string {
	s = strings.ReplaceAll(s, `\`, `\\`)
	return "'" + strings.ReplaceAll(s, "'", "''") + "'"
}

type postgres struct{ ansi }

func (postgres) Name() string { return Postgres }

func (postgres) Placeholder(i int) string { return "$" + strconv.Itoa(i) }

type oracle struct{ ansi }

func (oracle) Name() string { return Oracle }

func (oracle) LimitOffset(limit, offset *int) string { return fetchFirst(limit, offset) }

func (oracle) Bool(b bool) string { return numericBool(b) }

func (oracle) Placeholder(i int) string { return ":" + strconv.Itoa(i) }

type sqlserver struct{ ansi }

func (sqlserver) Name() string { return SQLServer }

func (sqlserver) LimitOffset(limit, offset *int) string { return fetchFirst(limit, offset) }

func (sqlserver) Bool(b bool) string { return numericBool(b) }

func (sqlserver) Concat(parts ...string) string { return strings.Join(parts, " + ") }

func (sqlserver) Escape(name string) string { return escape(name, "[", "]") }

func (sqlserver) Placeholder(i int) string { return "@p" + strconv.Itoa(i) }

type db2 struct{ ansi }

func (db2) Name() string { return DB2 }

func (db2) LimitOffset(limit, offset *int) string { return fetchFirst(limit, offset) }

type sqlite struct{ ansi }

func (sqlite) Name() string { return SQLite }

func (sqlite) LimitOffset(limit, offset *int) string { return limitOffset(limit, offset, "-1") }

func (sqlite) Bool(b bool) string { return numericBool(b) }

func numericBool(b bool) string {
	if b {
		return "1"
	}
	return "0"
}

// plainIdentRe matches identifiers that never need quoting.
var plainIdentRe = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_$#]*$`)

// reserved holds the keywords that must be quoted when used as identifiers.
var reserved = map[string]struct{}{
	"all": {}, "and": {}, "as": {}, "asc": {}, "between": {}, "by": {},
	"case": {}, "check": {}, "column": {}, "constraint": {}, "create": {},
	"cross": {}, "default": {}, "delete": {}, "desc": {}, "distinct": {},
	"else": {}, "end": {}, "except": {}, "exists": {}, "fetch": {},
	"for": {}, "foreign": {}, "from": {}, "full": {}, "group": {},
	"having": {}, "in": {}, "index": {}, "inner": {}, "insert": {},
	"intersect": {}, "into": {}, "is": {}, "join": {}, "key": {},
	"left": {}, "like": {}, "limit": {}, "not": {}, "null": {},
	"offset": {}, "on": {}, "or": {}, "order": {}, "outer": {},
	"primary": {}, "references": {}, "right": {}, "rows": {},
	"select": {}, "set": {}, "table": {}, "then": {}, "to": {},
	"union": {}, "unique": {}, "update": {}, "user": {}, "using": {},
	"values": {}, "when": {}, "where": {}, "with": {},
}

// IsReserved reports whether the given word is a reserved SQL keyword.
func IsReserved(word string) bool {
	_, ok := reserved[strings.ToLower(word)]
	return ok
}

func escape(name, open, closing string) string {
	if name == "" || name == "*" {
		return name
	}
	if !strings.Contains(name, ".") {
		return escapeSegment(name, open, closing)
	}
	parts := strings.Split(name, ".")
	for i := range parts {
		parts[i] = escapeSegment(parts[i], open, closing)
	}
	return strings.Join(parts, ".")
}

func escapeSegment(s, open, closing string) string {
	if s == "*" || plainIdentRe.MatchString(s) && !IsReserved(s) {
		return s
	}
	if strings.HasPrefix(s, open) && strings.HasSuffix(s, closing) && len(s) > 1 {
		return s
	}
	return open + strings.ReplaceAll(s, closing, closing+closing) + closing
}

var (
	mu       sync.RWMutex
	dialects = map[string]Dialect{}
	aliases  = map[string]string{
		"ansi":       Standard,
		"postgresql": Postgres,
		"pgx":        Postgres,
		"mariadb":    MySQL,
		"sqlite3":    SQLite,
		"mssql":      SQLServer,
		"oci8":       Oracle,
		"godror":     Oracle,
	}
)

func init() {
	for _, d := range []Dialect{ansi{}, mysql{}, postgres{}, oracle{}, sqlserver{}, db2{}, sqlite{}} {
		dialects[d.Name()] = d
	}
}

// Register adds or replaces a dialect under its lowercased name.
func Register(d Dialect) {
	mu.Lock()
	defer mu.Unlock()
	dialects[strings.ToLower(d.Name())] = d
}

// Get returns the dialect registered under the given name, resolving the
// common driver aliases (e.g. "pgx", "sqlite3", "mssql").
func Get(name string) (Dialect, bool) {
	name = strings.ToLower(strings.TrimSpace(name))
	if a, ok := aliases[name]; ok {
		name = a
	}
	mu.RLock()
	defer mu.RUnlock()
	d, ok := dialects[name]
	return d, ok
}

// For returns the dialect registered under the given name, or the
// standard dialect when the name is unknown.
func For(name string) Dialect {
	if d, ok := Get(name); ok {
		return d
	}
	return ansi{}
}

// Default returns the standard (ANSI) dialect.
func Default() Dialect { return ansi{} }

// Names returns the sorted names of all registered dialects.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()
	names := make([]string, 0, len(dialects))
	for name := range dialects {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
