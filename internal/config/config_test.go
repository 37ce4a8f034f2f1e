package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoad_DefaultsOnly(t *testing.T) {
	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultDBPath, cfg.DBPath)
	assert.Equal(t, DefaultFTSK, cfg.FTSK)
	assert.Equal(t, DefaultEmbedBatch, cfg.EmbedBatchSize)
}

func TestLoad_TOMLOverridesDefaults(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notekb.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
corpus_root = "/notes"
db_path = "/var/notekb/index.db"
fts_k = 500
`), 0644))

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/notes", cfg.CorpusRoot)
	assert.Equal(t, "/var/notekb/index.db", cfg.DBPath)
	assert.Equal(t, 500, cfg.FTSK)
	assert.Equal(t, DefaultEmbedBatch, cfg.EmbedBatchSize) // untouched by the file
}

func TestLoad_EnvOverridesTOML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "notekb.toml")
	require.NoError(t, os.WriteFile(path, []byte(`db_path = "/var/notekb/index.db"`), 0644))

	t.Setenv("NOTEKB_DB_PATH", "/env/index.db")
	t.Setenv("NOTEKB_FTS_K", "50")

	cfg, err := Load(path)
	require.NoError(t, err)
	assert.Equal(t, "/env/index.db", cfg.DBPath)
	assert.Equal(t, 50, cfg.FTSK)
}

func TestLoad_MissingTOMLFileErrors(t *testing.T) {
	_, err := Load(filepath.Join(t.TempDir(), "missing.toml"))
	assert.Error(t, err)
}

func TestLoad_InvalidEnvIntIgnored(t *testing.T) {
	t.Setenv("NOTEKB_FTS_K", "not-a-number")

	cfg, err := Load("")
	require.NoError(t, err)
	assert.Equal(t, DefaultFTSK, cfg.FTSK)
}
