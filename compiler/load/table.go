// Package load reads table definitions for the record generator, either
// from a YAML description or by inspecting a live database.
package load

import (
	"fmt"
	"os"
	"strings"

	"gopkg.in/yaml.v3"
)

// Table describes one database table.
type Table struct {
	Name    string    `yaml:"name" json:"name"`
	Schema  string    `yaml:"schema,omitempty" json:"schema,omitempty"`
	Comment string    `yaml:"comment,omitempty" json:"comment,omitempty"`
	Columns []*Column `yaml:"columns" json:"columns"`
}

// Column describes one table column. GoType is the Go type the column is
// mapped to, for example "int64", "*string" or "time.Time".
type Column struct {
	Name     string `yaml:"name" json:"name"`
	Type     string `yaml:"type,omitempty" json:"type,omitempty"`
	GoType   string `yaml:"go_type" json:"go_type"`
	Nullable bool   `yaml:"nullable,omitempty" json:"nullable,omitempty"`
	Key      bool   `yaml:"key,omitempty" json:"key,omitempty"`
	Comment  string `yaml:"comment,omitempty" json:"comment,omitempty"`
}

// Keys returns the primary key columns of the table.
func (t *Table) Keys() []*Column {
	var keys []*Column
	for _, c := range t.Columns {
		if c.Key {
			keys = append(keys, c)
		}
	}
	return keys
}

// Validate checks the table for missing names and duplicate columns.
func (t *Table) Validate() error {
	if strings.TrimSpace(t.Name) == "" {
		return fmt.Errorf("load: table without a name")
	}
	if len(t.Columns) == 0 {
		return fmt.Errorf("load: table %q has no columns", t.Name)
	}
	seen := make(map[string]struct{}, len(t.Columns))
	for _, c := range t.Columns {
		if strings.TrimSpace(c.Name) == "" {
			return fmt.Errorf("load: table %q has a column without a name", t.Name)
		}
		if c.GoType == "" {
			return fmt.Errorf("load: column %s.%s has no go_type", t.Name, c.Name)
		}
		k := strings.ToLower(c.Name)
		if _, ok := seen[k]; ok {
			return fmt.Errorf("load: duplicate column %s.%s", t.Name, c.Name)
		}
		seen[k] = struct{}{}
	}
	return nil
}

// tablesFile is the document layout of a table description file.
type tablesFile struct {
	Tables []*Table `yaml:"tables"`
}

// ParseTables decodes a YAML table description:
//
//	tables:
//	  - name: EMPLOYEES
//	    columns:
//	      - {name: ID, go_type: int64, key: true}
//	      - {name: LAST_NAME, go_type: string}
func ParseTables(data []byte) ([]*Table, error) {
	var f tablesFile
	if err := yaml.Unmarshal(data, &f); err != nil {
		return nil, fmt.Errorf("load: decode tables: %w", err)
	}
	for _, t := range f.Tables {
		if err := t.Validate(); err != nil {
			return nil, err
		}
	}
	return f.Tables, nil
}

// LoadFile reads and parses the table description at path.
func LoadFile(path string) ([]*Table, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("load: read %s: %w", path, err)
	}
	return ParseTables(data)
}

// MarshalTables encodes tables in the layout read by ParseTables.
func MarshalTables(tables []*Table) ([]byte, error) {
	return yaml.Marshal(tablesFile{Tables: tables})
}
