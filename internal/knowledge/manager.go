package knowledge

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"rag-assistant/internal/chunker"
	"rag-assistant/internal/extractor"
	"rag-assistant/internal/models"
	"rag-assistant/internal/monitoring"
	"rag-assistant/internal/persistence"

	"go.uber.org/zap"
)

var (
	ErrNotInitialized     = errors.New("knowledge base is not initialized")
	ErrNoProcessableFiles = errors.New("no file could be processed")
)

// Extractor turns an uploaded file into raw text.
type Extractor interface {
	ExtractFile(ctx context.Context, name string, data []byte) (string, error)
}

// Index is the vector index the manager maintains; vectorstore.Store implements it.
type Index interface {
	Create(ctx context.Context, chunks []models.Chunk) error
	Add(ctx context.Context, chunks []models.Chunk) error
	Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error)
	Count(ctx context.Context) (int, error)
	Sources(ctx context.Context) ([]string, error)
	Save(ctx context.Context, dir string) error
	Load(ctx context.Context, dir string) error
	Clear(ctx context.Context) error
}

// Manager owns the document registry and keeps the index and the persisted
// snapshot in step with it. It is either Empty or Ready; Ready always means
// at least one registered document with at least one indexed chunk each.
type Manager struct {
	mu        sync.RWMutex
	extractor Extractor
	chunker   *chunker.Chunker
	index     Index
	storage   *persistence.Manager
	metrics   *monitoring.Metrics
	logger    *zap.Logger

	order []string
	docs  map[string]*models.Document
	ready bool
}

func NewManager(ext Extractor, index Index, storage *persistence.Manager, metrics *monitoring.Metrics, logger *zap.Logger) *Manager {
	return &Manager{
		extractor: ext,
		chunker:   chunker.New(),
		index:     index,
		storage:   storage,
		metrics:   metrics,
		logger:    logger,
		docs:      make(map[string]*models.Document),
	}
}

// Create builds a fresh knowledge base from files and returns the names that
// could not be processed. A Ready base is replaced only if the new one succeeds.
func (m *Manager) Create(ctx context.Context, files []models.File) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()

	docs, failed := m.process(ctx, files)
	chunks, docs, failed, err := m.chunk(docs, failed)
	if err != nil {
		m.metrics.DocumentsProcessed(0, len(failed))
		return failed, err
	}

	if err := m.index.Create(ctx, chunks); err != nil {
		return failed, fmt.Errorf("failed to build index: %w", err)
	}

	m.order = m.order[:0]
	m.docs = make(map[string]*models.Document, len(docs))
	for i := range docs {
		m.register(&docs[i])
	}
	m.ready = true
	m.metrics.DocumentsProcessed(len(docs), len(failed))

	m.logger.Info("Knowledge base created",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Strings("failed", failed),
	)
	return failed, m.persist(ctx)
}

// Add ingests files into a Ready base. Names already registered are skipped
// without being reported.
func (m *Manager) Add(ctx context.Context, files []models.File) ([]string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return nil, ErrNotInitialized
	}

	fresh := files[:0:0]
	for _, f := range files {
		if _, exists := m.docs[f.Name]; exists {
			m.logger.Info("Skipping duplicate document", zap.String("file", f.Name))
			continue
		}
		fresh = append(fresh, f)
	}
	if len(fresh) == 0 {
		return nil, nil
	}

	docs, failed := m.process(ctx, fresh)
	chunks, docs, failed, err := m.chunk(docs, failed)
	if err != nil {
		m.metrics.DocumentsProcessed(0, len(failed))
		return failed, err
	}

	if err := m.index.Add(ctx, chunks); err != nil {
		return failed, fmt.Errorf("failed to extend index: %w", err)
	}
	for i := range docs {
		m.register(&docs[i])
	}
	m.metrics.DocumentsProcessed(len(docs), len(failed))

	m.logger.Info("Documents added",
		zap.Int("documents", len(docs)),
		zap.Int("chunks", len(chunks)),
		zap.Strings("failed", failed),
	)
	return failed, m.persist(ctx)
}

// Delete unregisters name and rebuilds the index from the remaining raw texts.
// Deleting the last document leaves the base Empty.
func (m *Manager) Delete(ctx context.Context, name string) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if !m.ready {
		return false, ErrNotInitialized
	}
	doc, ok := m.docs[name]
	if !ok {
		return false, nil
	}

	if len(m.docs) == 1 {
		if err := m.reset(ctx); err != nil {
			return false, err
		}
		m.logger.Info("Last document deleted, knowledge base is empty", zap.String("file", name))
		return true, nil
	}

	pos := m.unregister(name)
	if err := m.rebuild(ctx); err != nil {
		m.restore(pos, doc)
		return false, fmt.Errorf("failed to rebuild index after deleting %s: %w", name, err)
	}

	m.logger.Info("Document deleted", zap.String("file", name), zap.Int("remaining", len(m.order)))
	return true, m.persist(ctx)
}

// Load hydrates from storage. If the snapshot lost its index, the index is
// rebuilt from the stored raw texts.
func (m *Manager) Load(ctx context.Context) bool {
	m.mu.Lock()
	defer m.mu.Unlock()

	loaded, ok := m.storage.Load(ctx, m.index)
	if !ok {
		m.ready = false
		return false
	}

	m.order = m.order[:0]
	m.docs = make(map[string]*models.Document)
	now := time.Now()
	for _, name := range loaded.Snapshot.FileNames {
		text, ok := loaded.Snapshot.RawTexts[name]
		if !ok {
			m.logger.Warn("Stored document has no raw text, dropping it", zap.String("file", name))
			continue
		}
		m.register(&models.Document{
			Name:       name,
			RawText:    text,
			Status:     models.DocumentStatusIngested,
			Size:       len(text),
			IngestedAt: now,
		})
	}
	if len(m.order) == 0 {
		m.ready = false
		return false
	}

	if !loaded.IndexLoaded || len(m.order) != len(loaded.Snapshot.FileNames) {
		m.logger.Warn("Rebuilding vector index from stored raw texts", zap.Int("documents", len(m.order)))
		if err := m.rebuild(ctx); err != nil {
			m.logger.Error("Failed to rebuild vector index", zap.Error(err))
			m.ready = false
			return false
		}
		m.ready = true
		if err := m.persist(ctx); err != nil {
			m.logger.Error("Failed to persist rebuilt knowledge base", zap.Error(err))
		}
	}

	m.ready = true
	m.updateGauges(ctx)
	return true
}

// Reset wipes storage and state.
func (m *Manager) Reset(ctx context.Context) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.reset(ctx)
}

func (m *Manager) Ready() bool {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.ready
}

// Search queries the index of a Ready base.
func (m *Manager) Search(ctx context.Context, query string, k int) ([]models.ScoredChunk, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if !m.ready {
		return nil, ErrNotInitialized
	}
	return m.index.Search(ctx, query, k)
}

// FileNames lists registered documents in ingestion order.
func (m *Manager) FileNames() []string {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return append([]string(nil), m.order...)
}

func (m *Manager) RawText(name string) (string, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	doc, ok := m.docs[name]
	if !ok {
		return "", false
	}
	return doc.RawText, true
}

func (m *Manager) Documents() []models.Document {
	m.mu.RLock()
	defer m.mu.RUnlock()
	out := make([]models.Document, 0, len(m.order))
	for _, name := range m.order {
		out = append(out, *m.docs[name])
	}
	return out
}

func (m *Manager) Info(ctx context.Context) (models.KnowledgeBaseInfo, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()

	info := models.KnowledgeBaseInfo{
		Initialized:      m.ready,
		CurrentFileCount: len(m.order),
		FileNames:        append([]string{}, m.order...),
	}
	for _, d := range m.docs {
		info.RawTextSize += len(d.RawText)
	}
	if m.ready {
		n, err := m.index.Count(ctx)
		if err != nil {
			return info, fmt.Errorf("failed to count indexed chunks: %w", err)
		}
		info.VectorStoreDocumentCount = n
	}
	size, err := m.storage.Size()
	if err != nil {
		return info, err
	}
	info.StorageSize = size
	info.StorageSizeHuman = persistence.HumanSize(size)
	return info, nil
}

// Backup copies the persisted snapshot to backupDir.
func (m *Manager) Backup(backupDir, name string) (string, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.storage.Backup(backupDir, name)
}

// process extracts each file. Unsupported, unreadable and image-only files
// come back as failed names; a repeated name inside one batch is ignored.
func (m *Manager) process(ctx context.Context, files []models.File) ([]models.Document, []string) {
	var failed []string
	seen := make(map[string]bool, len(files))
	var docs []models.Document
	for _, f := range files {
		if seen[f.Name] {
			continue
		}
		seen[f.Name] = true

		text, err := m.extractor.ExtractFile(ctx, f.Name, f.Data)
		switch {
		case err != nil:
			m.logger.Warn("Failed to extract document", zap.String("file", f.Name), zap.Error(err))
			failed = append(failed, f.Name)
		case text == extractor.NoReadableText:
			m.logger.Warn("Document contains only unreadable images", zap.String("file", f.Name))
			failed = append(failed, f.Name)
		default:
			docs = append(docs, models.Document{
				Name:       f.Name,
				RawText:    text,
				Status:     models.DocumentStatusIngested,
				Size:       len(f.Data),
				IngestedAt: time.Now(),
			})
		}
	}
	return docs, failed
}

// chunk splits docs and drops any document that produced no chunk.
func (m *Manager) chunk(docs []models.Document, failed []string) ([]models.Chunk, []models.Document, []string, error) {
	if len(docs) == 0 {
		return nil, nil, failed, ErrNoProcessableFiles
	}

	chunks, plan, err := m.chunker.Split(toChunkerDocs(docs))
	if errors.Is(err, chunker.ErrEmptyResult) {
		for _, d := range docs {
			failed = append(failed, d.Name)
		}
		return nil, nil, failed, ErrNoProcessableFiles
	}
	if err != nil {
		return nil, nil, failed, err
	}

	counts := chunker.CountBySource(chunks)
	kept := docs[:0]
	for _, d := range docs {
		if counts[d.Name] == 0 {
			m.logger.Warn("Document produced no usable chunks", zap.String("file", d.Name))
			failed = append(failed, d.Name)
			continue
		}
		kept = append(kept, d)
	}

	m.logger.Debug("Chunking plan", zap.Int("size", plan.Size), zap.Int("overlap", plan.Overlap), zap.Int("chunks", len(chunks)))
	return chunks, kept, failed, nil
}

func (m *Manager) rebuild(ctx context.Context) error {
	docs := make([]models.Document, 0, len(m.order))
	for _, name := range m.order {
		docs = append(docs, *m.docs[name])
	}
	chunks, _, err := m.chunker.Split(toChunkerDocs(docs))
	if err != nil {
		return err
	}
	return m.index.Create(ctx, chunks)
}

func (m *Manager) persist(ctx context.Context) error {
	snap := persistence.Snapshot{
		FileNames:         append([]string{}, m.order...),
		RawTexts:          make(map[string]string, len(m.docs)),
		VectorStoreExists: m.ready,
		DocumentCount:     len(m.order),
	}
	for name, d := range m.docs {
		snap.RawTexts[name] = d.RawText
	}
	m.updateGauges(ctx)
	if err := m.storage.Save(ctx, snap, m.index); err != nil {
		return fmt.Errorf("failed to persist knowledge base: %w", err)
	}
	return nil
}

func (m *Manager) reset(ctx context.Context) error {
	if err := m.index.Clear(ctx); err != nil {
		return fmt.Errorf("failed to clear index: %w", err)
	}
	if err := m.storage.Clear(); err != nil {
		return err
	}
	m.order = m.order[:0]
	m.docs = make(map[string]*models.Document)
	m.ready = false
	m.metrics.SetKnowledgeBaseSize(0, 0)
	return nil
}

func (m *Manager) register(d *models.Document) {
	m.docs[d.Name] = d
	m.order = append(m.order, d.Name)
}

func (m *Manager) unregister(name string) int {
	delete(m.docs, name)
	for i, n := range m.order {
		if n == name {
			m.order = append(m.order[:i], m.order[i+1:]...)
			return i
		}
	}
	return len(m.order)
}

func (m *Manager) restore(pos int, d *models.Document) {
	m.docs[d.Name] = d
	m.order = append(m.order[:pos], append([]string{d.Name}, m.order[pos:]...)...)
}

func (m *Manager) updateGauges(ctx context.Context) {
	n, err := m.index.Count(ctx)
	if err != nil {
		n = 0
	}
	m.metrics.SetKnowledgeBaseSize(len(m.order), n)
}

func toChunkerDocs(docs []models.Document) []chunker.Document {
	out := make([]chunker.Document, len(docs))
	for i, d := range docs {
		out[i] = chunker.Document{Source: d.Name, Text: d.RawText}
	}
	return out
}
