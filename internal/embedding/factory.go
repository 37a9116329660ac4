package embedding

import (
	"fmt"
	"time"

	"rag-assistant/internal/monitoring"
	"rag-assistant/pkg/config"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// New assembles the configured provider behind batching and, when cache is
// non-nil, a lookup cache. gigachat may be nil unless the provider needs it.
func New(cfg *config.EmbeddingConfig, gigachat EmbeddingClient, rdb *redis.Client, cacheTTL time.Duration, metrics *monitoring.Metrics, logger *zap.Logger) (Embedder, error) {
	var base Embedder
	switch cfg.Provider {
	case "gigachat":
		if gigachat == nil {
			return nil, fmt.Errorf("gigachat embeddings require an LLM client")
		}
		base = NewGigaChat(gigachat, cfg.Model)
	case "openai":
		base = NewOpenAI(cfg.BaseURL, cfg.APIKey, cfg.Model, nil)
	case "hashing":
		base = NewHashing(cfg.Dimension)
	default:
		return nil, fmt.Errorf("unknown embedding provider %q", cfg.Provider)
	}

	var emb Embedder = NewBatched(base, cfg.BatchSize, cfg.Workers, metrics)
	if rdb != nil {
		emb = NewCached(emb, NewRedisCache(rdb, cacheTTL), metrics, logger)
	}
	logger.Info("Embedder ready", zap.String("name", emb.Name()),
		zap.Int("batch_size", cfg.BatchSize), zap.Int("workers", cfg.Workers), zap.Bool("cached", rdb != nil))
	return emb, nil
}
