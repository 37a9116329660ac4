// Package app wires the assistant's components from configuration.
package app

import (
	"context"
	"fmt"

	"rag-assistant/internal/agent"
	"rag-assistant/internal/embedding"
	"rag-assistant/internal/extractor"
	"rag-assistant/internal/knowledge"
	"rag-assistant/internal/llm"
	"rag-assistant/internal/monitoring"
	"rag-assistant/internal/ocr"
	"rag-assistant/internal/persistence"
	"rag-assistant/internal/rag"
	"rag-assistant/internal/service"
	"rag-assistant/internal/tools"
	"rag-assistant/internal/vectorstore"
	"rag-assistant/pkg/config"
	"rag-assistant/pkg/postgres"

	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// generator is what the responder and tools need from a language model.
type generator interface {
	rag.Generator
	agent.ChatModel
}

type App struct {
	Metrics *monitoring.Metrics
	Service *service.AssistantService

	closers []func()
	logger  *zap.Logger
}

// New builds every component. Close releases what was opened even when New
// fails halfway.
func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	a := &App{Metrics: monitoring.New(), logger: logger}

	var model generator = llm.Offline{}
	var client *llm.Client
	offline := true
	if cfg.NeedsAPIKey() {
		c, err := llm.New(ctx, &cfg.GigaChat, a.Metrics, logger.Named("llm"))
		if err != nil {
			return a, err
		}
		a.closers = append(a.closers, func() { _ = c.Close() })
		client = c
		if !cfg.GigaChat.Disabled {
			model, offline = c, false
		}
	}
	if offline {
		logger.Warn("Language model disabled, answers will report the service as unavailable")
	}

	var engines []ocr.Engine
	if cfg.OCR.VisionEnabled && !offline {
		engines = append(engines, ocr.NewVision(client))
	}
	if cfg.OCR.TesseractEnabled {
		engines = append(engines, ocr.NewTesseract(cfg.OCR.Languages, logger.Named("tesseract")))
	}
	var recognizer extractor.Recognizer
	if len(engines) > 0 {
		recognizer = ocr.NewChain(logger.Named("ocr"), engines...)
	}
	ext := extractor.New(extractor.FitzOpener{}, recognizer, cfg.OCR.DPI, logger.Named("extractor"))

	rdb := a.redis(ctx, &cfg.Redis)
	var embedClient embedding.EmbeddingClient
	if client != nil {
		embedClient = client
	}
	emb, err := embedding.New(&cfg.Embedding, embedClient, rdb, cfg.Redis.TTL, a.Metrics, logger.Named("embedding"))
	if err != nil {
		return a, err
	}

	backend, err := a.backend(ctx, cfg)
	if err != nil {
		return a, err
	}
	store := vectorstore.New(emb, backend, logger.Named("vectorstore"))

	storage, err := persistence.NewManager(cfg.Storage.Dir, logger.Named("persistence"))
	if err != nil {
		return a, err
	}
	kb := knowledge.NewManager(ext, store, storage, a.Metrics, logger.Named("knowledge"))

	responder := rag.NewResponder(model, kb, cfg.RAG.TopK, cfg.RAG.HistoryWindow, a.Metrics, logger.Named("rag"))
	summarizer := tools.NewSummarizer(kb, model, cfg.RAG.MaxContextChars)
	specs := tools.NewSpecExtractor(kb, model, cfg.RAG.MaxContextChars)
	registry := tools.NewRegistry(
		tools.NewKnowledgeQA(responder),
		summarizer,
		specs,
		tools.NewLinkBudget(),
	)
	ag := agent.New(model, registry, kb, cfg.Agent.MaxIterations, a.Metrics, logger.Named("agent"))

	a.Service = service.NewAssistantService(kb, responder, ag, registry, summarizer, specs, cfg.Storage.BackupDir, logger.Named("service"))
	return a, nil
}

// redis returns nil when no address is configured or the server is not
// reachable. Embeddings are then computed without a cache.
func (a *App) redis(ctx context.Context, cfg *config.RedisConfig) *redis.Client {
	if cfg.Addr == "" {
		return nil
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     cfg.Addr,
		Password: cfg.Password,
		DB:       cfg.DB,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		a.logger.Warn("Redis unavailable, embedding cache disabled", zap.String("addr", cfg.Addr), zap.Error(err))
		_ = rdb.Close()
		return nil
	}
	a.closers = append(a.closers, func() { _ = rdb.Close() })
	a.logger.Info("Embedding cache enabled", zap.String("addr", cfg.Addr), zap.Duration("ttl", cfg.TTL))
	return rdb
}

func (a *App) backend(ctx context.Context, cfg *config.Config) (vectorstore.Backend, error) {
	switch cfg.Storage.VectorBackend {
	case "memory":
		return vectorstore.NewMemory(), nil
	case "postgres":
		if err := postgres.Migrate(vectorstore.Migrations, vectorstore.MigrationsDir, &cfg.Database, a.logger); err != nil {
			return nil, err
		}
		pool, err := postgres.NewPool(ctx, &cfg.Database, a.logger)
		if err != nil {
			return nil, err
		}
		a.closers = append(a.closers, pool.Close)
		return vectorstore.NewPostgres(pool, a.logger.Named("postgres")), nil
	default:
		return nil, fmt.Errorf("unknown vector backend %q", cfg.Storage.VectorBackend)
	}
}

// Close releases connections in reverse order of creation.
func (a *App) Close() {
	for i := len(a.closers) - 1; i >= 0; i-- {
		a.closers[i]()
	}
	a.closers = nil
}
