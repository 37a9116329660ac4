package vectorstore

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"rag-assistant/internal/embedding"
	"rag-assistant/internal/models"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type failingEmbedder struct{}

func (failingEmbedder) Name() string { return "failing" }
func (failingEmbedder) Embed(context.Context, []string) ([][]float32, error) {
	return nil, errors.New("provider down")
}

func chunks(source string, texts ...string) []models.Chunk {
	out := make([]models.Chunk, len(texts))
	for i, t := range texts {
		out[i] = models.Chunk{ID: source + "-" + string(rune('a'+i)), Content: t, Source: source, Sequence: i}
	}
	return out
}

func newStore() *Store {
	return New(embedding.NewHashing(256), NewMemory(), zap.NewNop())
}

func TestSearchRanksRelevantChunkFirst(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.Create(ctx, chunks("radio.pdf",
		"The transmitter output power is 30 dBm at 2400 MHz",
		"Receiver sensitivity is -90 dBm",
		"The enclosure is rated IP67 for outdoor use",
	)))

	hits, err := s.Search(ctx, "what is the enclosure rating", 2)
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Contains(t, hits[0].Content, "IP67")
	assert.GreaterOrEqual(t, hits[0].Score, hits[1].Score)
}

func TestSearchDefaultsTopK(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	texts := make([]string, 12)
	for i := range texts {
		texts[i] = strings.Repeat("word ", i+1)
	}
	require.NoError(t, s.Create(ctx, chunks("a.txt", texts...)))

	hits, err := s.Search(ctx, "word", 0)
	require.NoError(t, err)
	assert.Len(t, hits, DefaultTopK)
}

func TestAddRequiresIndex(t *testing.T) {
	s := newStore()
	err := s.Add(context.Background(), chunks("a.txt", "hello world"))
	assert.ErrorIs(t, err, ErrNoExistingIndex)

	_, err = s.Search(context.Background(), "hello", 3)
	assert.ErrorIs(t, err, ErrNoExistingIndex)
}

func TestCreateRejectsEmptyBatch(t *testing.T) {
	assert.ErrorIs(t, newStore().Create(context.Background(), nil), ErrEmptyBatch)
}

func TestFailedCreateKeepsPreviousIndex(t *testing.T) {
	ctx := context.Background()
	mem := NewMemory()
	s := New(embedding.NewHashing(64), mem, zap.NewNop())
	require.NoError(t, s.Create(ctx, chunks("a.txt", "first document text")))

	broken := New(failingEmbedder{}, mem, zap.NewNop())
	broken.ready = true
	assert.Error(t, broken.Create(ctx, chunks("b.txt", "other")))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
}

func TestAddAndSources(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.Create(ctx, chunks("a.txt", "alpha one", "alpha two")))
	require.NoError(t, s.Add(ctx, chunks("b.txt", "beta one")))

	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, n)

	sources, err := s.Sources(ctx)
	require.NoError(t, err)
	assert.Equal(t, []string{"a.txt", "b.txt"}, sources)
}

func TestSaveLoadRoundTrip(t *testing.T) {
	ctx := context.Background()
	dir := filepath.Join(t.TempDir(), "vector_store")
	s := newStore()
	require.NoError(t, s.Create(ctx, chunks("spec.docx", "gain 15 dBi", "cable loss 2 dB")))
	require.NoError(t, s.Save(ctx, dir))
	assert.FileExists(t, filepath.Join(dir, IndexFile))

	restored := newStore()
	require.NoError(t, restored.Load(ctx, dir))
	assert.True(t, restored.Ready())

	want, err := s.Search(ctx, "cable loss", 2)
	require.NoError(t, err)
	got, err := restored.Search(ctx, "cable loss", 2)
	require.NoError(t, err)
	assert.Equal(t, want, got)
}

func TestLoadMissingSnapshot(t *testing.T) {
	s := newStore()
	err := s.Load(context.Background(), t.TempDir())
	assert.ErrorIs(t, err, ErrNoExistingIndex)
	assert.False(t, s.Ready())
}

func TestLoadCorruptSnapshot(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, IndexFile), []byte("not a database"), 0o644))
	err := newStore().Load(context.Background(), dir)
	require.Error(t, err)
	assert.NotErrorIs(t, err, ErrNoExistingIndex)
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	s := newStore()
	require.NoError(t, s.Create(ctx, chunks("a.txt", "text")))
	require.NoError(t, s.Clear(ctx))
	assert.False(t, s.Ready())
	n, err := s.Count(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)
	assert.ErrorIs(t, s.Save(ctx, t.TempDir()), ErrNoExistingIndex)
}

func TestCosineHandlesDegenerateVectors(t *testing.T) {
	assert.Zero(t, cosine([]float32{0, 0}, 0, []float32{1, 0}, 1))
	assert.Zero(t, cosine([]float32{1}, 1, []float32{1, 0}, 1))
	assert.InDelta(t, 1.0, cosine([]float32{2, 0}, 2, []float32{1, 0}, 1), 1e-9)
}

func TestInsertQueryUsesDollarPlaceholders(t *testing.T) {
	query, args, err := insertQuery(chunks("a.txt", "one", "two"), [][]float32{{1}, {2}})
	require.NoError(t, err)
	assert.Equal(t, "INSERT INTO kb_chunks (id,source,sequence,content,embedding) VALUES ($1,$2,$3,$4,$5),($6,$7,$8,$9,$10)", query)
	assert.Len(t, args, 10)
}

func TestMigrationsAreEmbedded(t *testing.T) {
	entries, err := Migrations.ReadDir(MigrationsDir)
	require.NoError(t, err)
	var names []string
	for _, e := range entries {
		names = append(names, e.Name())
	}
	assert.Contains(t, names, "000001_create_chunks.up.sql")
	assert.Contains(t, names, "000001_create_chunks.down.sql")
}
