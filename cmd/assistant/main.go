package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"syscall"

	"rag-assistant/internal/api"
	"rag-assistant/internal/api/handlers"
	"rag-assistant/internal/app"
	"rag-assistant/internal/watcher"
	"rag-assistant/pkg/config"
	"rag-assistant/pkg/logger"

	"go.uber.org/zap"
)

// @title RAG Assistant API
// @version 1.0
// @description Document question answering and communication engineering tools over a persistent knowledge base.

// @license.name MIT
// @license.url https://opensource.org/licenses/MIT

// @host localhost:8080
// @BasePath /

func main() {
	cfg, err := config.Load()
	if err != nil {
		fmt.Printf("Failed to load config: %v\n", err)
		os.Exit(1)
	}

	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Encoding); err != nil {
		fmt.Printf("Failed to initialize logger: %v\n", err)
		os.Exit(1)
	}
	defer logger.Sync()

	appLogger := logger.Get()
	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}
	appLogger.Info("Starting RAG assistant",
		zap.String("embedding_provider", cfg.Embedding.Provider),
		zap.String("vector_backend", cfg.Storage.VectorBackend),
	)

	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	assistant, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		assistant.Close()
		appLogger.Fatal("Failed to initialize assistant", zap.Error(err))
	}
	defer assistant.Close()

	if assistant.Service.Load(ctx) {
		appLogger.Info("Knowledge base restored", zap.Int("documents", len(assistant.Service.Documents())))
	} else {
		appLogger.Info("Starting with an empty knowledge base")
	}

	if cfg.Storage.InboxDir != "" {
		inbox := watcher.NewInbox(cfg.Storage.InboxDir, watcher.DefaultSettle, assistant.Service, logger.Named("watcher"))
		go func() {
			if err := inbox.Run(ctx); err != nil {
				appLogger.Error("Inbox watcher stopped", zap.Error(err))
			}
		}()
	}

	router := api.SetupRouter(
		handlers.NewDocumentHandler(assistant.Service, appLogger),
		handlers.NewChatHandler(assistant.Service, appLogger),
		handlers.NewToolsHandler(assistant.Service, appLogger),
		assistant.Metrics.Handler(),
		cfg.Server,
		appLogger,
	)

	go func() {
		addr := ":" + cfg.Server.Port
		appLogger.Info("Server starting", zap.String("address", addr))
		if err := router.Listen(addr); err != nil {
			appLogger.Fatal("Server failed", zap.Error(err))
		}
	}()

	<-ctx.Done()

	appLogger.Info("Shutting down server")
	if err := router.Shutdown(); err != nil {
		appLogger.Error("Server shutdown error", zap.Error(err))
	}
}
