package schema

import (
	"strings"
	"sync"
	"unicode"

	"github.com/go-openapi/inflect"
	"golang.org/x/text/cases"
	"golang.org/x/text/language"
)

var (
	rulesMu  sync.RWMutex
	acronyms = make(map[string]struct{})
	rules    = ruleset()
)

func ruleset() *inflect.Ruleset {
	rules := inflect.NewDefaultRuleset()
	// Common initialisms from golint and more.
	for _, w := range []string{
		"ACL", "API", "ASCII", "AWS", "CPU", "CSS", "DNS", "EOF", "GUID",
		"HTML", "HTTP", "HTTPS", "ID", "IP", "JSON", "QPS", "RAM", "RPC",
		"SLA", "SMTP", "SQL", "SSH", "SSO", "TCP", "TLS", "TTL", "UDP", "UI",
		"UID", "URI", "URL", "UTF8", "UUID", "VM", "XML", "XSRF", "XSS",
	} {
		acronyms[w] = struct{}{}
		rules.AddAcronym(w)
	}
	return rules
}

// AddAcronym registers a word to be kept upper-cased by Pascal and Camel.
func AddAcronym(word string) {
	rulesMu.Lock()
	defer rulesMu.Unlock()
	acronyms[strings.ToUpper(word)] = struct{}{}
	rules.AddAcronym(word)
}

// Snake converts the given struct or field name into a snake_case.
//
//	Username => username
//	FullName => full_name
//	HTTPCode => http_code
func Snake(s string) string {
	var (
		j int
		b strings.Builder
	)
	for i := 0; i < len(s); i++ {
		r := rune(s[i])
		// Put '_' if it is not a start or end of a word, current letter is
		// uppercase, and previous is lowercase (cases like: "UserInfo"), or
		// next letter is also a lowercase and previous letter is not "_".
		if i > 0 && i < len(s)-1 && unicode.IsUpper(r) {
			if unicode.IsLower(rune(s[i-1])) ||
				j != i-1 && unicode.IsLower(rune(s[i+1])) && unicode.IsLetter(rune(s[i-1])) {
				j = i
				b.WriteString("_")
			}
		}
		b.WriteRune(unicode.ToLower(r))
	}
	return b.String()
}

// Pascal converts the given name into a PascalCase.
//
//	user_info  => UserInfo
//	user_id    => UserID
//	full-admin => FullAdmin
//	LAST_NAME  => LastName
func Pascal(s string) string {
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	for i, w := range words {
		up := strings.ToUpper(w)
		if _, ok := acronyms[up]; ok {
			words[i] = up
			continue
		}
		if w == up {
			w = strings.ToLower(w)
		}
		words[i] = rules.Capitalize(w)
	}
	return strings.Join(words, "")
}

// Camel converts the given name into a camelCase.
//
//	user_info => userInfo
//	user_id   => userID
//	id        => id
func Camel(s string) string {
	p := Pascal(s)
	if p == "" {
		return p
	}
	// Lower the leading word, which may be an acronym.
	words := strings.FieldsFunc(s, func(r rune) bool { return r == '_' || r == '-' || r == ' ' })
	first := Pascal(words[0])
	return strings.ToLower(first) + p[len(first):]
}

// Singular returns the singular form of a table name.
func Singular(s string) string {
	rulesMu.RLock()
	defer rulesMu.RUnlock()
	return rules.Singularize(s)
}

// ColumnName returns the default column name for a struct field:
// the upper-cased snake_case form of the field name.
//
//	LastName => LAST_NAME
//	ID       => ID
func ColumnName(field string) string {
	// A Caser is stateful and must not be shared between goroutines.
	return cases.Upper(language.Und).String(Snake(field))
}

// AttributeName returns the attribute name used by paths for a struct field.
//
//	LastName => lastName
//	ID       => id
func AttributeName(field string) string {
	return Camel(Snake(field))
}
