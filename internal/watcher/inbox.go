// Package watcher ingests files dropped into an inbox directory.
package watcher

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"rag-assistant/internal/dto"
	"rag-assistant/internal/extractor"
	"rag-assistant/internal/models"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const DefaultSettle = 2 * time.Second

type Ingester interface {
	Ingest(ctx context.Context, files []models.File) (*dto.IngestResponse, error)
}

// Inbox waits until a created or written file has been quiet for the settle
// delay, then ingests every settled file as one batch.
type Inbox struct {
	dir      string
	settle   time.Duration
	ingester Ingester
	logger   *zap.Logger

	mu      sync.Mutex
	pending map[string]time.Time
}

func NewInbox(dir string, settle time.Duration, ingester Ingester, logger *zap.Logger) *Inbox {
	if settle <= 0 {
		settle = DefaultSettle
	}
	return &Inbox{
		dir:      dir,
		settle:   settle,
		ingester: ingester,
		logger:   logger,
		pending:  make(map[string]time.Time),
	}
}

// Run watches the inbox until ctx is cancelled.
func (w *Inbox) Run(ctx context.Context) error {
	if err := os.MkdirAll(w.dir, 0o755); err != nil {
		return fmt.Errorf("failed to create inbox: %w", err)
	}
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return fmt.Errorf("failed to create watcher: %w", err)
	}
	defer fw.Close()
	if err := fw.Add(w.dir); err != nil {
		return fmt.Errorf("failed to watch %s: %w", w.dir, err)
	}
	w.logger.Info("Watching inbox", zap.String("dir", w.dir), zap.Duration("settle", w.settle))

	ticker := time.NewTicker(w.settle / 2)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case event, ok := <-fw.Events:
			if !ok {
				return nil
			}
			if !event.Has(fsnotify.Create) && !event.Has(fsnotify.Write) {
				continue
			}
			if !extractor.Supported(event.Name) {
				w.logger.Debug("Ignoring unsupported inbox file", zap.String("file", event.Name))
				continue
			}
			w.touch(event.Name)
		case err, ok := <-fw.Errors:
			if !ok {
				return nil
			}
			w.logger.Warn("Inbox watcher error", zap.Error(err))
		case now := <-ticker.C:
			if paths := w.settled(now); len(paths) > 0 {
				w.ingest(ctx, paths)
			}
		}
	}
}

func (w *Inbox) touch(path string) {
	w.mu.Lock()
	w.pending[path] = time.Now()
	w.mu.Unlock()
}

func (w *Inbox) settled(now time.Time) []string {
	w.mu.Lock()
	defer w.mu.Unlock()
	var out []string
	for path, last := range w.pending {
		if now.Sub(last) >= w.settle {
			out = append(out, path)
			delete(w.pending, path)
		}
	}
	return out
}

func (w *Inbox) ingest(ctx context.Context, paths []string) {
	files := make([]models.File, 0, len(paths))
	for _, p := range paths {
		data, err := os.ReadFile(p)
		if err != nil {
			w.logger.Warn("Failed to read inbox file", zap.String("file", p), zap.Error(err))
			continue
		}
		files = append(files, models.File{Name: filepath.Base(p), Data: data})
	}
	if len(files) == 0 {
		return
	}

	resp, err := w.ingester.Ingest(ctx, files)
	if err != nil {
		w.logger.Error("Failed to ingest inbox files", zap.Int("files", len(files)), zap.Error(err))
		return
	}
	w.logger.Info("Ingested inbox files",
		zap.Int("files", len(files)),
		zap.Strings("failed", resp.FailedFiles),
	)
}
