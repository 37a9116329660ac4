package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLoadDefaults(t *testing.T) {
	t.Setenv("CONFIG_FILE", "")
	t.Setenv("RAG_TOP_K", "")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 8, cfg.RAG.TopK)
	assert.Equal(t, 5, cfg.RAG.HistoryWindow)
	assert.Equal(t, "memory", cfg.Storage.VectorBackend)
	assert.Equal(t, []string{"eng", "rus"}, cfg.OCR.Languages)
	assert.Equal(t, 30*time.Second, cfg.Server.ReadTimeout)
}

func TestLoadPrecedence(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "config.yaml")
	yamlDoc := `
rag:
  top_k: 4
storage:
  dir: /data/kb
server:
  read_timeout: 10s
embedding:
  provider: hashing
`
	require.NoError(t, os.WriteFile(path, []byte(yamlDoc), 0o644))

	t.Setenv("CONFIG_FILE", path)
	t.Setenv("RAG_TOP_K", "12")
	t.Setenv("OCR_LANGUAGES", "eng, deu")

	cfg, err := Load()
	require.NoError(t, err)

	assert.Equal(t, 12, cfg.RAG.TopK, "environment overrides yaml")
	assert.Equal(t, "/data/kb", cfg.Storage.Dir, "yaml overrides defaults")
	assert.Equal(t, 10*time.Second, cfg.Server.ReadTimeout)
	assert.Equal(t, "hashing", cfg.Embedding.Provider)
	assert.Equal(t, []string{"eng", "deu"}, cfg.OCR.Languages)
}

func TestLoadRejectsBrokenYAML(t *testing.T) {
	path := filepath.Join(t.TempDir(), "broken.yaml")
	require.NoError(t, os.WriteFile(path, []byte("rag: [unclosed"), 0o644))
	t.Setenv("CONFIG_FILE", path)

	_, err := Load()
	require.Error(t, err)
}

func TestValidate(t *testing.T) {
	t.Run("missing api key is fatal", func(t *testing.T) {
		cfg := defaults()
		assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	})

	t.Run("offline mode needs no key", func(t *testing.T) {
		cfg := defaults()
		cfg.GigaChat.Disabled = true
		cfg.Embedding.Provider = "hashing"
		assert.NoError(t, cfg.Validate())
	})

	t.Run("gigachat embeddings still need a key", func(t *testing.T) {
		cfg := defaults()
		cfg.GigaChat.Disabled = true
		assert.ErrorIs(t, cfg.Validate(), ErrMissingAPIKey)
	})

	t.Run("bad values", func(t *testing.T) {
		cfg := defaults()
		cfg.GigaChat.APIKey = "key"
		cfg.RAG.TopK = 0
		assert.Error(t, cfg.Validate())

		cfg = defaults()
		cfg.GigaChat.APIKey = "key"
		cfg.Storage.VectorBackend = "faiss"
		assert.Error(t, cfg.Validate())
	})
}

func TestDatabaseURL(t *testing.T) {
	d := DatabaseConfig{User: "u", Password: "p", Host: "db", Port: "5432", DBName: "kb", SSLMode: "disable"}
	assert.Equal(t, "postgres://u:p@db:5432/kb?sslmode=disable", d.URL())
}
