package vectorstore

import (
	"context"
	"errors"
	"fmt"
	"sync"

	"rag-assistant/internal/embedding"
	"rag-assistant/internal/models"

	"go.uber.org/zap"
)

const DefaultTopK = 8

var (
	ErrNoExistingIndex = errors.New("no existing index")
	ErrEmptyBatch      = errors.New("no chunks to index")
)

// Backend holds vectors and answers nearest-neighbour queries.
type Backend interface {
	Reset(ctx context.Context) error
	Insert(ctx context.Context, chunks []models.Chunk, vectors [][]float32) error
	Search(ctx context.Context, vector []float32, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Sources(ctx context.Context) ([]string, error)
	Save(ctx context.Context, dir string) error
	// Load returns ErrNoExistingIndex when dir holds no snapshot.
	Load(ctx context.Context, dir string) error
}

// Store embeds chunks and queries through a single embedder, so index and
// query vectors always share one vector space.
type Store struct {
	mu       sync.RWMutex
	embedder embedding.Embedder
	backend  Backend
	ready    bool
	logger   *zap.Logger
}

func New(embedder embedding.Embedder, backend Backend, logger *zap.Logger) *Store {
	return &Store{embedder: embedder, backend: backend, logger: logger}
}

// Create replaces the index with chunks. The old index survives if embedding fails.
func (s *Store) Create(ctx context.Context, chunks []models.Chunk) error {
	if len(chunks) == 0 {
		return ErrEmptyBatch
	}
	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Reset(ctx); err != nil {
		return fmt.Errorf("failed to reset index: %w", err)
	}
	if err := s.backend.Insert(ctx, chunks, vectors); err != nil {
		s.ready = false
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	s.ready = true
	s.logger.Info("Vector index created", zap.Int("chunks", len(chunks)), zap.String("embedder", s.embedder.Name()))
	return nil
}

// Add appends chunks to an existing index.
func (s *Store) Add(ctx context.Context, chunks []models.Chunk) error {
	if !s.Ready() {
		return ErrNoExistingIndex
	}
	if len(chunks) == 0 {
		return ErrEmptyBatch
	}
	vectors, err := s.embed(ctx, chunks)
	if err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	if !s.ready {
		return ErrNoExistingIndex
	}
	if err := s.backend.Insert(ctx, chunks, vectors); err != nil {
		return fmt.Errorf("failed to insert chunks: %w", err)
	}
	s.logger.Info("Chunks added to vector index", zap.Int("chunks", len(chunks)))
	return nil
}

// Search embeds query and returns up to k chunks by descending similarity.
func (s *Store) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	if k <= 0 {
		k = DefaultTopK
	}
	if !s.Ready() {
		return nil, ErrNoExistingIndex
	}
	vectors, err := s.embedder.Embed(ctx, []string{query})
	if err != nil {
		return nil, fmt.Errorf("failed to embed query: %w", err)
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("embedder returned %d vectors for one query", len(vectors))
	}

	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.backend.Search(ctx, vectors[0], k)
}

func (s *Store) Count(ctx context.Context) (int, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return 0, nil
	}
	return s.backend.Count(ctx)
}

func (s *Store) Sources(ctx context.Context) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return nil, nil
	}
	return s.backend.Sources(ctx)
}

func (s *Store) Save(ctx context.Context, dir string) error {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if !s.ready {
		return ErrNoExistingIndex
	}
	return s.backend.Save(ctx, dir)
}

func (s *Store) Load(ctx context.Context, dir string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.backend.Load(ctx, dir); err != nil {
		s.ready = false
		return err
	}
	s.ready = true
	return nil
}

// Clear drops every vector and marks the store empty.
func (s *Store) Clear(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.ready = false
	return s.backend.Reset(ctx)
}

func (s *Store) Ready() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.ready
}

func (s *Store) embed(ctx context.Context, chunks []models.Chunk) ([][]float32, error) {
	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := s.embedder.Embed(ctx, texts)
	if err != nil {
		return nil, fmt.Errorf("failed to embed chunks: %w", err)
	}
	if len(vectors) != len(chunks) {
		return nil, fmt.Errorf("embedder returned %d vectors for %d chunks", len(vectors), len(chunks))
	}
	return vectors, nil
}
