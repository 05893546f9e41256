// Command ingest populates the vector store from the configured
// documents directory. It runs out-of-band from the chat server: every
// chunk costs an embedding call, so a whole-corpus run has no place in
// a request handler.
//
// Usage:
//
//	ingest                    # process every file in the documents dir
//	ingest -file leave.pdf    # process one file
//	ingest -file leave.pdf -replace   # delete the doc's chunks first
package main

import (
	"context"
	"flag"
	"log"
	"time"

	"go.uber.org/zap"

	"ragdesk/internal/ai"
	"ragdesk/internal/app"
	"ragdesk/internal/cache"
	"ragdesk/internal/config"
	"ragdesk/internal/model"
	"ragdesk/internal/pkg/tokenizer"
	postgresClient "ragdesk/internal/platform/postgres"
	redisClient "ragdesk/internal/platform/redis"
	"ragdesk/internal/repository"
)

func main() {
	var (
		fileName = flag.String("file", "", "process a single file instead of the whole directory")
		replace  = flag.Bool("replace", false, "delete the document's existing chunks before processing (with -file)")
	)
	flag.Parse()

	cfg, err := config.Load()
	if err != nil {
		log.Fatalf("load config failed: %v", err)
	}

	logger, err := zap.NewDevelopment()
	if err != nil {
		log.Fatalf("build logger failed: %v", err)
	}
	defer logger.Sync()

	ctx := context.Background()

	db, err := postgresClient.New(ctx, cfg.PostgresDSN())
	if err != nil {
		logger.Fatal("connect postgres failed", zap.Error(err))
	}
	if err := db.WithContext(ctx).AutoMigrate(&model.DocumentChunk{}); err != nil {
		logger.Fatal("migrate chunk table failed", zap.Error(err))
	}

	enc, err := tokenizer.ForModel(cfg.LLM.EmbeddingModel)
	if err != nil {
		logger.Fatal("load tokenizer failed", zap.Error(err))
	}

	embCfg := ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	}

	var embedder app.Embedder = ai.NewClient()
	// Redis is optional for the batch job; without it every chunk embeds live.
	if redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB); err != nil {
		logger.Warn("redis unavailable, embedding cache disabled", zap.Error(err))
	} else {
		defer redisCli.Close()
		embeddingCache := cache.NewEmbeddingCache(redisCli, time.Duration(cfg.Redis.EmbeddingTTLSeconds)*time.Second)
		embedder = app.NewCachingEmbedder(embedder, embeddingCache, logger)
	}

	chunkRepo := repository.NewChunkRepository(db, cfg.RAG.EmbeddingDim)
	ingest := app.NewIngestService(
		chunkRepo,
		embedder,
		embCfg,
		enc,
		cfg.RAG.DocumentsDir,
		cfg.RAG.ChunkSize,
		cfg.RAG.ChunkOverlap,
		cfg.RAG.EmbedBatch,
		logger,
	)

	if *fileName != "" {
		var count int
		if *replace {
			count, err = ingest.ReingestDocument(ctx, *fileName)
		} else {
			count, err = ingest.ProcessDocument(ctx, *fileName)
		}
		if err != nil {
			logger.Fatal("document ingestion failed", zap.String("file", *fileName), zap.Error(err))
		}
		logger.Info("document ingested", zap.String("file", *fileName), zap.Int("chunks", count))
		return
	}

	summary, err := ingest.ProcessAllDocuments(ctx)
	if err != nil {
		logger.Fatal("ingestion run failed", zap.Error(err))
	}
	if summary.FailedFiles > 0 {
		logger.Warn("ingestion finished with failures",
			zap.Int("processed", summary.ProcessedFiles),
			zap.Int("total", summary.TotalFiles),
			zap.Int("failed", summary.FailedFiles),
		)
	}
}
