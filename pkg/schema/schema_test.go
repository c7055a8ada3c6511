// pkg/schema/schema_test.go
package schema

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const document = `[
	{"name": "prop_url", "description": "listing page url", "type": "TEXT"},
	{"name": "prop_price", "description": "price as text, 'nan' when unpublished", "type": "TEXT"},
	{"name": "prop_rooms", "description": "room count", "type": "INT"}
]`

func TestParse(t *testing.T) {
	meta, err := Parse([]byte(document))

	require.NoError(t, err)
	require.Len(t, meta.Columns, 3)
	assert.Equal(t, "TEXT", meta.Columns["prop_price"].Type)
	assert.True(t, meta.Has("prop_url"))
	assert.False(t, meta.Has("prop_elevator"))
}

func TestParse_RejectsIncompleteEntries(t *testing.T) {
	cases := map[string]string{
		"missing fields": `[{"name": "prop_url"}]`,
		"empty name":     `[{"name": "", "description": "x", "type": "TEXT"}]`,
		"empty array":    `[]`,
		"not an array":   `{"prop_url": "listing url"}`,
		"not json":       `colgate`,
	}
	for name, doc := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := Parse([]byte(doc))
			assert.Error(t, err)
		})
	}
}

func TestDescribe_SortedAndStable(t *testing.T) {
	meta, err := Parse([]byte(document))
	require.NoError(t, err)

	want := "prop_price: price as text, 'nan' when unpublished\n" +
		"prop_rooms: room count\n" +
		"prop_url: listing page url"

	assert.Equal(t, want, meta.Describe())
	assert.Equal(t, meta.Describe(), meta.Describe())
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "schema.json")
	cols := []Column{
		{Name: "prop_url", Description: "listing page url", Type: "TEXT"},
		{Name: "prop_m2", Description: "surface in square meters", Type: "INT"},
	}

	require.NoError(t, Save(path, cols))

	meta, err := Load(path)
	require.NoError(t, err)
	assert.Len(t, meta.Columns, 2)
	assert.Equal(t, "surface in square meters", meta.Columns["prop_m2"].Description)
}

func TestLoad_MissingFile(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "absent.json"))
	assert.Error(t, err)
}

func TestLoad_EmptyFile(t *testing.T) {
	path := filepath.Join(t.TempDir(), "empty.json")
	require.NoError(t, os.WriteFile(path, nil, 0o644))

	_, err := Load(path)
	assert.Error(t, err)
}
