package main

import (
	"context"
	"flag"
	"fmt"
	"log"
	"os"
	"path/filepath"

	"rag-assistant/internal/app"
	"rag-assistant/internal/extractor"
	"rag-assistant/internal/models"
	"rag-assistant/pkg/config"
	"rag-assistant/pkg/logger"

	"go.uber.org/zap"
)

func main() {
	dir := flag.String("dir", filepath.Join("cmd", "seed", "documents"), "directory with PDF, DOCX and TXT files to ingest")
	reset := flag.Bool("reset", false, "replace the existing knowledge base instead of extending it")
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("Failed to load config: %v", err)
	}
	if err := logger.Init(cfg.Logger.Level, cfg.Logger.Encoding); err != nil {
		log.Fatalf("Failed to initialize logger: %v", err)
	}
	defer logger.Sync()
	appLogger := logger.Get()

	if err := cfg.Validate(); err != nil {
		appLogger.Fatal("Invalid configuration", zap.Error(err))
	}

	files, skipped, err := readDir(*dir)
	if err != nil {
		appLogger.Fatal("Failed to read seed directory", zap.String("dir", *dir), zap.Error(err))
	}
	for _, name := range skipped {
		appLogger.Warn("Skipping unsupported file", zap.String("file", name))
	}
	if len(files) == 0 {
		appLogger.Fatal("No supported files to seed", zap.String("dir", *dir))
	}

	ctx := context.Background()
	assistant, err := app.New(ctx, cfg, appLogger)
	if err != nil {
		assistant.Close()
		appLogger.Fatal("Failed to initialize assistant", zap.Error(err))
	}
	defer assistant.Close()

	if !*reset {
		assistant.Service.Load(ctx)
	}

	appLogger.Info("Seeding knowledge base", zap.String("dir", *dir), zap.Int("files", len(files)))
	var ingest = assistant.Service.Ingest
	if *reset {
		ingest = assistant.Service.CreateKnowledgeBase
	}
	resp, err := ingest(ctx, files)
	if err != nil {
		appLogger.Fatal("Seeding failed", zap.Error(err))
	}

	for _, name := range resp.FailedFiles {
		fmt.Println("failed:", name)
	}
	appLogger.Info("Seeding completed",
		zap.Int("documents", resp.Info.CurrentFileCount),
		zap.Int("chunks", resp.Info.VectorStoreDocumentCount),
		zap.String("storage", resp.Info.StorageSizeHuman),
	)
}

// readDir loads every supported file directly inside dir, in name order.
func readDir(dir string) ([]models.File, []string, error) {
	entries, err := os.ReadDir(dir)
	if err != nil {
		return nil, nil, err
	}

	var files []models.File
	var skipped []string
	for _, e := range entries {
		if e.IsDir() {
			continue
		}
		if !extractor.Supported(e.Name()) {
			skipped = append(skipped, e.Name())
			continue
		}
		data, err := os.ReadFile(filepath.Join(dir, e.Name()))
		if err != nil {
			return nil, nil, fmt.Errorf("failed to read %s: %w", e.Name(), err)
		}
		files = append(files, models.File{Name: e.Name(), Data: data})
	}
	return files, skipped, nil
}
