package embedding

import (
	"context"
	"fmt"
	"time"

	"rag-assistant/internal/monitoring"

	"golang.org/x/sync/errgroup"
)

// Embedder turns texts into vectors, one per input and in input order.
type Embedder interface {
	Name() string
	Embed(ctx context.Context, texts []string) ([][]float32, error)
}

// Batched splits large inputs into provider-sized batches embedded in parallel.
// A failure in any batch fails the whole call so no caller sees a partial result.
type Batched struct {
	inner     Embedder
	batchSize int
	workers   int
	metrics   *monitoring.Metrics
}

func NewBatched(inner Embedder, batchSize, workers int, metrics *monitoring.Metrics) *Batched {
	if batchSize < 1 {
		batchSize = 16
	}
	if workers < 1 {
		workers = 1
	}
	return &Batched{inner: inner, batchSize: batchSize, workers: workers, metrics: metrics}
}

func (b *Batched) Name() string { return b.inner.Name() }

func (b *Batched) Embed(ctx context.Context, texts []string) ([][]float32, error) {
	out := make([][]float32, len(texts))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(b.workers)
	for start := 0; start < len(texts); start += b.batchSize {
		start := start
		end := start + b.batchSize
		if end > len(texts) {
			end = len(texts)
		}
		g.Go(func() error {
			began := time.Now()
			vecs, err := b.inner.Embed(gctx, texts[start:end])
			if err != nil {
				return fmt.Errorf("failed to embed batch %d-%d: %w", start, end, err)
			}
			if len(vecs) != end-start {
				return fmt.Errorf("embedder returned %d vectors for %d texts", len(vecs), end-start)
			}
			copy(out[start:end], vecs)
			b.metrics.ObserveEmbedding(began)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}
