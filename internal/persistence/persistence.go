package persistence

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"time"

	"go.uber.org/zap"
)

var ErrNothingToBackup = errors.New("no knowledge base to back up")

const (
	VectorStoreDir = "vector_store"
	MetadataFile   = "metadata.json"
)

// Index is the part of the vector store the manager persists alongside metadata.
type Index interface {
	Save(ctx context.Context, dir string) error
	Load(ctx context.Context, dir string) error
}

// Snapshot is the durable knowledge-base state.
type Snapshot struct {
	FileNames         []string          `json:"file_names"`
	RawTexts          map[string]string `json:"raw_texts"`
	VectorStoreExists bool              `json:"vector_store_exists"`
	DocumentCount     int               `json:"document_count"`
}

// Loaded is what Load recovered. IndexLoaded is false when metadata exists
// but the index could not be restored and must be rebuilt from RawTexts.
type Loaded struct {
	Snapshot    Snapshot
	IndexLoaded bool
}

type Manager struct {
	dir    string
	logger *zap.Logger
}

func NewManager(dir string, logger *zap.Logger) (*Manager, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("failed to create storage directory: %w", err)
	}
	return &Manager{dir: dir, logger: logger}, nil
}

func (m *Manager) Dir() string { return m.dir }

func (m *Manager) IndexDir() string { return filepath.Join(m.dir, VectorStoreDir) }

// Save writes the index first and the metadata last, so metadata on disk
// never describes an index that was not written.
func (m *Manager) Save(ctx context.Context, snap Snapshot, index Index) error {
	if snap.VectorStoreExists && index != nil {
		if err := index.Save(ctx, m.IndexDir()); err != nil {
			return fmt.Errorf("failed to save vector index: %w", err)
		}
	}
	if snap.RawTexts == nil {
		snap.RawTexts = map[string]string{}
	}

	data, err := json.MarshalIndent(snap, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode metadata: %w", err)
	}
	tmp := filepath.Join(m.dir, MetadataFile+".tmp")
	if err := os.WriteFile(tmp, data, 0o644); err != nil {
		return fmt.Errorf("failed to write metadata: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(m.dir, MetadataFile)); err != nil {
		return fmt.Errorf("failed to replace metadata: %w", err)
	}

	m.logger.Info("Knowledge base saved",
		zap.Int("documents", snap.DocumentCount),
		zap.Bool("vector_store", snap.VectorStoreExists),
	)
	return nil
}

// Load returns ok=false when nothing usable is stored. A corrupt metadata
// file is logged and reported the same way.
func (m *Manager) Load(ctx context.Context, index Index) (Loaded, bool) {
	data, err := os.ReadFile(filepath.Join(m.dir, MetadataFile))
	if errors.Is(err, fs.ErrNotExist) {
		return Loaded{}, false
	}
	if err != nil {
		m.logger.Error("Failed to read knowledge base metadata", zap.Error(err))
		return Loaded{}, false
	}

	var snap Snapshot
	if err := json.Unmarshal(data, &snap); err != nil {
		m.logger.Error("Knowledge base metadata is corrupt, starting empty", zap.Error(err))
		return Loaded{}, false
	}
	if len(snap.FileNames) == 0 {
		return Loaded{}, false
	}
	if snap.RawTexts == nil {
		snap.RawTexts = map[string]string{}
	}

	out := Loaded{Snapshot: snap}
	if snap.VectorStoreExists && index != nil {
		if err := index.Load(ctx, m.IndexDir()); err != nil {
			m.logger.Warn("Vector index could not be loaded", zap.Error(err))
		} else {
			out.IndexLoaded = true
		}
	}
	m.logger.Info("Knowledge base loaded",
		zap.Int("documents", len(snap.FileNames)),
		zap.Bool("index_loaded", out.IndexLoaded),
	)
	return out, true
}

// Clear removes every persisted artifact and leaves an empty directory.
func (m *Manager) Clear() error {
	if err := os.RemoveAll(m.dir); err != nil {
		return fmt.Errorf("failed to remove storage: %w", err)
	}
	if err := os.MkdirAll(m.dir, 0o755); err != nil {
		return fmt.Errorf("failed to recreate storage: %w", err)
	}
	m.logger.Info("Knowledge base storage cleared", zap.String("dir", m.dir))
	return nil
}

// Size is the total byte size of regular files under the storage directory.
func (m *Manager) Size() (int64, error) {
	var total int64
	err := filepath.WalkDir(m.dir, func(_ string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		if d.Type().IsRegular() {
			info, err := d.Info()
			if err != nil {
				return err
			}
			total += info.Size()
		}
		return nil
	})
	if err != nil {
		return 0, fmt.Errorf("failed to measure storage: %w", err)
	}
	return total, nil
}

// Backup copies the storage directory to backupDir/kb_backup_<name>, replacing
// an older backup of the same name. An empty name uses the current time.
func (m *Manager) Backup(backupDir, name string) (string, error) {
	if _, err := os.Stat(filepath.Join(m.dir, MetadataFile)); err != nil {
		return "", ErrNothingToBackup
	}
	if name == "" {
		name = time.Now().Format("20060102_150405")
	}
	target := filepath.Join(backupDir, "kb_backup_"+filepath.Base(name))
	if err := os.RemoveAll(target); err != nil {
		return "", fmt.Errorf("failed to replace backup: %w", err)
	}
	if err := os.MkdirAll(target, 0o755); err != nil {
		return "", fmt.Errorf("failed to create backup directory: %w", err)
	}

	err := filepath.WalkDir(m.dir, func(path string, d fs.DirEntry, err error) error {
		if err != nil {
			return err
		}
		rel, err := filepath.Rel(m.dir, path)
		if err != nil {
			return err
		}
		dst := filepath.Join(target, rel)
		if d.IsDir() {
			return os.MkdirAll(dst, 0o755)
		}
		if !d.Type().IsRegular() {
			return nil
		}
		return copyFile(path, dst)
	})
	if err != nil {
		return "", fmt.Errorf("failed to back up storage: %w", err)
	}
	m.logger.Info("Knowledge base backed up", zap.String("path", target))
	return target, nil
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dst)
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// HumanSize formats n bytes the way the info panel shows them: whole bytes
// below 1 KB, one decimal above.
func HumanSize(n int64) string {
	switch {
	case n < 1<<10:
		return fmt.Sprintf("%d B", n)
	case n < 1<<20:
		return fmt.Sprintf("%.1f KB", float64(n)/(1<<10))
	case n < 1<<30:
		return fmt.Sprintf("%.1f MB", float64(n)/(1<<20))
	default:
		return fmt.Sprintf("%.1f GB", float64(n)/(1<<30))
	}
}
