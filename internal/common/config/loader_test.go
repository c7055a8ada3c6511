// internal/common/config/loader_test.go
package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/spf13/viper"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func writeConfigFile(t *testing.T, content string) string {
	t.Helper()
	// the loader works on the global viper, so each case starts clean
	viper.Reset()
	path := filepath.Join(t.TempDir(), "config.yaml")
	require.NoError(t, os.WriteFile(path, []byte(content), 0o644))
	return path
}

func TestLoadFromFile_ExpandsEnvAndAppliesDefaults(t *testing.T) {
	t.Setenv("TEST_DB_HOST", "db.internal")

	path := writeConfigFile(t, `
app:
  name: brickland-expert
database:
  postgres:
    host: ${TEST_DB_HOST}
    database: brickland
    user: expert
  elasticsearch:
    url: http://localhost:9200
  redis:
    address: localhost:6379
apis:
  genai:
    base_url: http://localhost:9000
`)

	cfg, err := LoadFromFile(path)

	require.NoError(t, err)
	assert.Equal(t, "db.internal", cfg.Database.Postgres.Host)
	assert.Equal(t, ":8080", cfg.Server.Address)
	assert.Equal(t, "properties", cfg.Expert.ListingsTable)
	assert.Equal(t, 30000, cfg.Expert.StageTimeout)
}

func TestLoadFromFile_MissingFile(t *testing.T) {
	viper.Reset()
	_, err := LoadFromFile(filepath.Join(t.TempDir(), "nope.yaml"))
	assert.Error(t, err)
}

func TestLoadFromFile_MissingRequiredFields(t *testing.T) {
	path := writeConfigFile(t, `
app:
  name: brickland-expert
`)

	_, err := LoadFromFile(path)

	require.Error(t, err)
	assert.Contains(t, err.Error(), "is required")
}

func TestGetDuration(t *testing.T) {
	assert.Equal(t, 30*time.Second, GetDuration(30000))
	assert.Equal(t, time.Duration(0), GetDuration(0))
}
