package app

import (
	"context"
	"path/filepath"
	"testing"

	"rag-assistant/internal/dto"
	"rag-assistant/internal/models"
	"rag-assistant/internal/rag"
	"rag-assistant/pkg/config"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

func offlineConfig(t *testing.T) *config.Config {
	t.Helper()
	root := t.TempDir()
	return &config.Config{
		GigaChat:  config.GigaChatConfig{Disabled: true},
		Embedding: config.EmbeddingConfig{Provider: "hashing", Dimension: 128, BatchSize: 8, Workers: 2},
		OCR:       config.OCRConfig{DPI: 150},
		RAG:       config.RAGConfig{TopK: 4, HistoryWindow: 5, MaxContextChars: 4000},
		Storage: config.StorageConfig{
			Dir:           filepath.Join(root, "kb"),
			VectorBackend: "memory",
			BackupDir:     filepath.Join(root, "backups"),
		},
		Agent: config.AgentConfig{MaxIterations: 3},
	}
}

func TestOfflineAssemblyPersistsAcrossRestarts(t *testing.T) {
	cfg := offlineConfig(t)
	require.False(t, cfg.NeedsAPIKey())
	ctx := context.Background()

	a, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	_, err = a.Service.Ingest(ctx, []models.File{{Name: "notes.txt", Data: []byte("The mast height is 30 m.")}})
	require.NoError(t, err)

	resp, err := a.Service.Ask(ctx, dto.AskRequest{Query: "mast height?", Mode: dto.ModeRAG})
	require.NoError(t, err)
	assert.Equal(t, rag.MsgServiceError, resp.Answer)
	a.Close()

	b, err := New(ctx, cfg, zap.NewNop())
	require.NoError(t, err)
	defer b.Close()
	require.True(t, b.Service.Load(ctx))
	assert.Equal(t, "notes.txt", b.Service.Documents()[0].Name)
}

func TestUnknownBackend(t *testing.T) {
	cfg := offlineConfig(t)
	cfg.Storage.VectorBackend = "faiss"
	a, err := New(context.Background(), cfg, zap.NewNop())
	assert.Error(t, err)
	a.Close()
}
