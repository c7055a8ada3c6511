// pkg/schema/schema.go
package schema

import (
	"encoding/json"
	"fmt"
	"os"
	"sort"

	"github.com/xeipuuv/gojsonschema"
)

// Column describes one listings-table column for query translation grounding.
type Column struct {
	Name        string `json:"name"`
	Description string `json:"description"`
	Type        string `json:"type"`
}

// Metadata maps column name to its description and declared type. A nil
// Metadata means "schema not loaded"; callers must treat that as "cannot
// translate", not as an error.
type Metadata struct {
	Columns map[string]Column `json:"columns"`
}

// metaSchema constrains the on-disk document: a JSON array of column entries,
// each with non-empty name, description and type.
const metaSchema = `{
	"type": "array",
	"minItems": 1,
	"items": {
		"type": "object",
		"required": ["name", "description", "type"],
		"properties": {
			"name": {"type": "string", "minLength": 1},
			"description": {"type": "string", "minLength": 1},
			"type": {"type": "string", "minLength": 1}
		}
	}
}`

// Load reads and validates the schema metadata document at path.
func Load(path string) (*Metadata, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read schema document: %w", err)
	}
	return Parse(data)
}

// Parse validates raw JSON against the metadata document schema and builds the
// column map.
func Parse(data []byte) (*Metadata, error) {
	result, err := gojsonschema.Validate(
		gojsonschema.NewStringLoader(metaSchema),
		gojsonschema.NewBytesLoader(data),
	)
	if err != nil {
		return nil, fmt.Errorf("validate schema document: %w", err)
	}
	if !result.Valid() {
		return nil, fmt.Errorf("invalid schema document: %s", result.Errors()[0].String())
	}

	var cols []Column
	if err := json.Unmarshal(data, &cols); err != nil {
		return nil, fmt.Errorf("decode schema document: %w", err)
	}

	meta := &Metadata{Columns: make(map[string]Column, len(cols))}
	for _, c := range cols {
		meta.Columns[c.Name] = c
	}
	return meta, nil
}

// Describe renders the column descriptions as one "name: description" line per
// column, sorted by name so translator prompts are stable between runs.
func (m *Metadata) Describe() string {
	if m == nil || len(m.Columns) == 0 {
		return ""
	}
	names := make([]string, 0, len(m.Columns))
	for name := range m.Columns {
		names = append(names, name)
	}
	sort.Strings(names)

	out := ""
	for i, name := range names {
		if i > 0 {
			out += "\n"
		}
		out += name + ": " + m.Columns[name].Description
	}
	return out
}

// Has reports whether the metadata describes the given column.
func (m *Metadata) Has(name string) bool {
	if m == nil {
		return false
	}
	_, ok := m.Columns[name]
	return ok
}

// Save writes metadata back to the on-disk array form, sorted by column name.
func Save(path string, cols []Column) error {
	sort.Slice(cols, func(i, j int) bool { return cols[i].Name < cols[j].Name })
	data, err := json.MarshalIndent(cols, "", "  ")
	if err != nil {
		return err
	}
	return os.WriteFile(path, data, 0o644)
}
