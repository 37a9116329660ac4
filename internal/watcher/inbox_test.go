package watcher

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"rag-assistant/internal/dto"
	"rag-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type recorder struct {
	mu    sync.Mutex
	files []models.File
}

func (r *recorder) Ingest(_ context.Context, files []models.File) (*dto.IngestResponse, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.files = append(r.files, files...)
	return &dto.IngestResponse{}, nil
}

func (r *recorder) names() []string {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []string
	for _, f := range r.files {
		out = append(out, f.Name)
	}
	return out
}

func TestInboxIngestsSettledFiles(t *testing.T) {
	dir := t.TempDir()
	rec := &recorder{}
	inbox := NewInbox(dir, 100*time.Millisecond, rec, zap.NewNop())

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- inbox.Run(ctx) }()

	// give the watcher time to register the directory
	time.Sleep(100 * time.Millisecond)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "notes.txt"), []byte("link notes"), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "image.png"), []byte("png"), 0o644))

	assert.Eventually(t, func() bool {
		return len(rec.names()) == 1
	}, 3*time.Second, 20*time.Millisecond)
	assert.Equal(t, []string{"notes.txt"}, rec.names())

	cancel()
	assert.NoError(t, <-done)
}

func TestSettledWaitsForQuietPeriod(t *testing.T) {
	inbox := NewInbox(t.TempDir(), time.Second, &recorder{}, zap.NewNop())
	inbox.touch("a.txt")

	assert.Empty(t, inbox.settled(time.Now()))
	assert.Equal(t, []string{"a.txt"}, inbox.settled(time.Now().Add(2*time.Second)))
	assert.Empty(t, inbox.settled(time.Now().Add(3*time.Second)))
}
