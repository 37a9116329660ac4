package vectorstore

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"rag-assistant/internal/models"

	_ "github.com/mattn/go-sqlite3"
)

// IndexFile is the snapshot written by Memory.Save inside the index directory.
const IndexFile = "index.db"

type entry struct {
	chunk  models.Chunk
	vector []float32
	norm   float64
}

// Memory is an exact cosine-similarity index held in RAM and snapshotted to SQLite.
type Memory struct {
	mu      sync.RWMutex
	entries []entry
}

func NewMemory() *Memory {
	return &Memory{}
}

func (m *Memory) Reset(context.Context) error {
	m.mu.Lock()
	m.entries = nil
	m.mu.Unlock()
	return nil
}

func (m *Memory) Insert(_ context.Context, chunks []models.Chunk, vectors [][]float32) error {
	if len(chunks) != len(vectors) {
		return fmt.Errorf("got %d vectors for %d chunks", len(vectors), len(chunks))
	}
	m.mu.Lock()
	defer m.mu.Unlock()
	for i, c := range chunks {
		m.entries = append(m.entries, entry{chunk: c, vector: vectors[i], norm: norm(vectors[i])})
	}
	return nil
}

func (m *Memory) Search(_ context.Context, vector []float32, k int) ([]models.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	qn := norm(vector)
	hits := make([]models.ScoredChunk, 0, len(m.entries))
	for _, e := range m.entries {
		hits = append(hits, models.ScoredChunk{Chunk: e.chunk, Score: cosine(vector, qn, e.vector, e.norm)})
	}
	// Stable so equal scores keep insertion order.
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].Score > hits[j].Score })
	if len(hits) > k {
		hits = hits[:k]
	}
	return hits, nil
}

func (m *Memory) Count(context.Context) (int, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return len(m.entries), nil
}

func (m *Memory) Sources(context.Context) ([]string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	seen := make(map[string]bool)
	var out []string
	for _, e := range m.entries {
		if !seen[e.chunk.Source] {
			seen[e.chunk.Source] = true
			out = append(out, e.chunk.Source)
		}
	}
	return out, nil
}

// Save writes the snapshot to a temp file and renames it over the previous one.
func (m *Memory) Save(ctx context.Context, dir string) error {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create index directory: %w", err)
	}
	tmp := filepath.Join(dir, IndexFile+".tmp")
	_ = os.Remove(tmp)

	db, err := sql.Open("sqlite3", tmp)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	if err := m.writeSnapshot(ctx, db); err != nil {
		db.Close()
		os.Remove(tmp)
		return err
	}
	if err := db.Close(); err != nil {
		os.Remove(tmp)
		return fmt.Errorf("failed to close snapshot: %w", err)
	}
	if err := os.Rename(tmp, filepath.Join(dir, IndexFile)); err != nil {
		return fmt.Errorf("failed to replace snapshot: %w", err)
	}
	return nil
}

func (m *Memory) writeSnapshot(ctx context.Context, db *sql.DB) error {
	schema := `
	CREATE TABLE chunks (
		seq INTEGER PRIMARY KEY,
		id TEXT NOT NULL,
		source TEXT NOT NULL,
		sequence INTEGER NOT NULL,
		content TEXT NOT NULL,
		embedding BLOB NOT NULL
	);`
	if _, err := db.ExecContext(ctx, schema); err != nil {
		return fmt.Errorf("failed to create snapshot schema: %w", err)
	}

	tx, err := db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to start snapshot transaction: %w", err)
	}
	defer tx.Rollback()

	stmt, err := tx.PrepareContext(ctx, `INSERT INTO chunks (seq, id, source, sequence, content, embedding) VALUES (?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("failed to prepare snapshot insert: %w", err)
	}
	defer stmt.Close()

	m.mu.RLock()
	defer m.mu.RUnlock()
	for i, e := range m.entries {
		vec, err := json.Marshal(e.vector)
		if err != nil {
			return fmt.Errorf("failed to encode embedding: %w", err)
		}
		if _, err := stmt.ExecContext(ctx, i, e.chunk.ID, e.chunk.Source, e.chunk.Sequence, e.chunk.Content, vec); err != nil {
			return fmt.Errorf("failed to write chunk: %w", err)
		}
	}
	return tx.Commit()
}

func (m *Memory) Load(ctx context.Context, dir string) error {
	path := filepath.Join(dir, IndexFile)
	if _, err := os.Stat(path); errors.Is(err, os.ErrNotExist) {
		return ErrNoExistingIndex
	}

	db, err := sql.Open("sqlite3", path)
	if err != nil {
		return fmt.Errorf("failed to open snapshot: %w", err)
	}
	defer db.Close()

	rows, err := db.QueryContext(ctx, `SELECT id, source, sequence, content, embedding FROM chunks ORDER BY seq`)
	if err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}
	defer rows.Close()

	var entries []entry
	for rows.Next() {
		var c models.Chunk
		var raw []byte
		if err := rows.Scan(&c.ID, &c.Source, &c.Sequence, &c.Content, &raw); err != nil {
			return fmt.Errorf("failed to scan chunk: %w", err)
		}
		var vec []float32
		if err := json.Unmarshal(raw, &vec); err != nil {
			return fmt.Errorf("failed to decode embedding: %w", err)
		}
		entries = append(entries, entry{chunk: c, vector: vec, norm: norm(vec)})
	}
	if err := rows.Err(); err != nil {
		return fmt.Errorf("failed to read snapshot: %w", err)
	}

	m.mu.Lock()
	m.entries = entries
	m.mu.Unlock()
	return nil
}

func norm(v []float32) float64 {
	var s float64
	for _, x := range v {
		s += float64(x) * float64(x)
	}
	return math.Sqrt(s)
}

func cosine(a []float32, an float64, b []float32, bn float64) float64 {
	if len(a) != len(b) || an == 0 || bn == 0 {
		return 0
	}
	var dot float64
	for i := range a {
		dot += float64(a[i]) * float64(b[i])
	}
	return dot / (an * bn)
}
