// internal/experts/schema-loader/handler_test.go
package schemaloader

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"brickland-expert/internal/common/logger"
)

const validDocument = `[
	{"name": "prop_url", "description": "listing page url, primary key", "type": "TEXT"},
	{"name": "prop_price", "description": "asking price in USD as text, 'nan' when unpublished", "type": "TEXT"},
	{"name": "prop_rooms", "description": "total room count", "type": "INT"}
]`

func writeDocument(t *testing.T, content string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "attribute_info_properties.json")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoad_ValidDocument(t *testing.T) {
	handler := NewHandler(&Config{Path: writeDocument(t, validDocument)}, logger.NewTestLogger(t))

	meta := handler.Load(context.Background())

	require.NotNil(t, meta)
	assert.Len(t, meta.Columns, 3)
	assert.True(t, meta.Has("prop_price"))
	assert.Equal(t, "INT", meta.Columns["prop_rooms"].Type)
}

func TestLoad_MissingFileYieldsNil(t *testing.T) {
	handler := NewHandler(&Config{Path: filepath.Join(t.TempDir(), "absent.json")}, logger.NewTestLogger(t))

	assert.Nil(t, handler.Load(context.Background()))
}

func TestLoad_InvalidDocumentYieldsNil(t *testing.T) {
	handler := NewHandler(&Config{Path: writeDocument(t, `[{"name": "prop_url"}]`)}, logger.NewTestLogger(t))

	assert.Nil(t, handler.Load(context.Background()))
}

func TestLoad_ReadsTheDocumentOnce(t *testing.T) {
	path := writeDocument(t, validDocument)
	handler := NewHandler(&Config{Path: path}, logger.NewTestLogger(t))

	first := handler.Load(context.Background())
	require.NotNil(t, first)

	// later file changes must not affect the already-loaded metadata
	require.NoError(t, os.Remove(path))
	second := handler.Load(context.Background())

	assert.Same(t, first, second)
}
