package persistence

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
)

type fakeIndex struct {
	saved   []string
	loadErr error
}

func (f *fakeIndex) Save(_ context.Context, dir string) error {
	f.saved = append(f.saved, dir)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	return os.WriteFile(filepath.Join(dir, "index.db"), []byte("vectors"), 0o644)
}

func (f *fakeIndex) Load(_ context.Context, dir string) error {
	if f.loadErr != nil {
		return f.loadErr
	}
	_, err := os.Stat(filepath.Join(dir, "index.db"))
	return err
}

func newManager(t *testing.T) *Manager {
	t.Helper()
	m, err := NewManager(filepath.Join(t.TempDir(), "kb"), zap.NewNop())
	require.NoError(t, err)
	return m
}

func snapshot() Snapshot {
	return Snapshot{
		FileNames:         []string{"a.pdf", "b.txt"},
		RawTexts:          map[string]string{"a.pdf": "alpha", "b.txt": "beta"},
		VectorStoreExists: true,
		DocumentCount:     2,
	}
}

func TestSaveThenLoad(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	idx := &fakeIndex{}
	require.NoError(t, m.Save(ctx, snapshot(), idx))
	assert.Equal(t, []string{m.IndexDir()}, idx.saved)
	assert.FileExists(t, filepath.Join(m.Dir(), MetadataFile))
	assert.NoFileExists(t, filepath.Join(m.Dir(), MetadataFile+".tmp"))

	loaded, ok := m.Load(ctx, &fakeIndex{})
	require.True(t, ok)
	assert.True(t, loaded.IndexLoaded)
	assert.Equal(t, snapshot(), loaded.Snapshot)
}

func TestLoadWithoutMetadata(t *testing.T) {
	_, ok := newManager(t).Load(context.Background(), &fakeIndex{})
	assert.False(t, ok)
}

func TestLoadCorruptMetadataStartsEmpty(t *testing.T) {
	m := newManager(t)
	require.NoError(t, os.WriteFile(filepath.Join(m.Dir(), MetadataFile), []byte("{not json"), 0o644))
	_, ok := m.Load(context.Background(), &fakeIndex{})
	assert.False(t, ok)
}

func TestLoadMissingIndexKeepsRawTexts(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	require.NoError(t, m.Save(ctx, snapshot(), &fakeIndex{}))

	loaded, ok := m.Load(ctx, &fakeIndex{loadErr: errors.New("gone")})
	require.True(t, ok)
	assert.False(t, loaded.IndexLoaded)
	assert.Equal(t, "alpha", loaded.Snapshot.RawTexts["a.pdf"])
}

func TestClear(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	require.NoError(t, m.Save(ctx, snapshot(), &fakeIndex{}))
	require.NoError(t, m.Clear())

	entries, err := os.ReadDir(m.Dir())
	require.NoError(t, err)
	assert.Empty(t, entries)
	_, ok := m.Load(ctx, &fakeIndex{})
	assert.False(t, ok)
}

func TestSizeAndBackup(t *testing.T) {
	ctx := context.Background()
	m := newManager(t)
	require.NoError(t, m.Save(ctx, snapshot(), &fakeIndex{}))

	size, err := m.Size()
	require.NoError(t, err)
	assert.Greater(t, size, int64(len("vectors")))

	backups := t.TempDir()
	path, err := m.Backup(backups, "nightly")
	require.NoError(t, err)
	assert.Equal(t, filepath.Join(backups, "kb_backup_nightly"), path)
	assert.FileExists(t, filepath.Join(path, MetadataFile))
	assert.FileExists(t, filepath.Join(path, VectorStoreDir, "index.db"))
}

func TestBackupWithoutKnowledgeBase(t *testing.T) {
	_, err := newManager(t).Backup(t.TempDir(), "x")
	assert.ErrorIs(t, err, ErrNothingToBackup)
}

func TestHumanSize(t *testing.T) {
	assert.Equal(t, "512 B", HumanSize(512))
	assert.Equal(t, "1.5 KB", HumanSize(1536))
	assert.Equal(t, "2.0 MB", HumanSize(2<<20))
	assert.Equal(t, "3.0 GB", HumanSize(3<<30))
}
