package config

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, "ragdesk", cfg.App.Name)
	assert.Equal(t, 8080, cfg.App.Port)
	assert.Equal(t, "text-embedding-3-small", cfg.LLM.EmbeddingModel)
	assert.Equal(t, 500, cfg.RAG.ChunkSize)
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
	assert.Equal(t, 5, cfg.RAG.EmbedBatch)
	assert.Equal(t, 5, cfg.RAG.TopK)
	assert.Equal(t, 1536, cfg.RAG.EmbeddingDim)
}

func TestLoadFromFile(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.toml")
	require.NoError(t, os.WriteFile(path, []byte(`
[app]
port = 9090

[rag]
documents_dir = "/srv/docs"
chunk_size = 300
top_k = 8
`), 0o644))
	t.Setenv("CONFIG_FILE", path)

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 9090, cfg.App.Port)
	assert.Equal(t, "/srv/docs", cfg.RAG.DocumentsDir)
	assert.Equal(t, 300, cfg.RAG.ChunkSize)
	assert.Equal(t, 8, cfg.RAG.TopK)
	// Untouched keys keep their defaults.
	assert.Equal(t, 50, cfg.RAG.ChunkOverlap)
}

func TestEnvOverridesFile(t *testing.T) {
	t.Setenv("CONFIG_FILE", filepath.Join(t.TempDir(), "missing.toml"))
	t.Setenv("RAG_TOP_K", "3")
	t.Setenv("LLM_EMBEDDING_MODEL", "text-embedding-3-large")
	t.Setenv("POSTGRES_HOST", "db.internal")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 3, cfg.RAG.TopK)
	assert.Equal(t, "text-embedding-3-large", cfg.LLM.EmbeddingModel)
	assert.Equal(t, "db.internal", cfg.Postgres.Host)
}

func TestPostgresDSN(t *testing.T) {
	cfg := defaultConfig()
	cfg.Postgres.Host = "db"
	cfg.Postgres.Password = "pw"

	dsn := cfg.PostgresDSN()
	assert.Contains(t, dsn, "host=db")
	assert.Contains(t, dsn, "password=pw")
	assert.Contains(t, dsn, "dbname=ragdesk")
	assert.Contains(t, dsn, "sslmode=disable")
}

func TestHTTPAddr(t *testing.T) {
	cfg := defaultConfig()
	assert.Equal(t, "0.0.0.0:8080", cfg.HTTPAddr())
}
