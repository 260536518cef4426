package rag

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/bull/docchat-server/internal/answer"
	"github.com/bull/docchat-server/internal/chunking"
	"github.com/bull/docchat-server/internal/config"
	"github.com/bull/docchat-server/internal/embedding"
	"github.com/bull/docchat-server/internal/history"
	"github.com/bull/docchat-server/internal/indexer"
	"github.com/bull/docchat-server/internal/llm"
	"github.com/bull/docchat-server/internal/namespace"
	"github.com/bull/docchat-server/internal/retrieval"
	"github.com/bull/docchat-server/internal/sessions"
	"github.com/bull/docchat-server/internal/storage"
	"github.com/bull/docchat-server/internal/uploads"
	"github.com/openai/openai-go"
)

// Open builds a Service from cfg. A missing vector store, embedding key or
// LLM key is logged and leaves the dependent operations reporting that they
// are not configured; only the session database is required. The returned
// func releases every opened client.
func Open(ctx context.Context, cfg *config.Config, logger *slog.Logger) (*Service, func(), error) {
	if logger == nil {
		logger = slog.Default()
	}
	var closers []func() error
	cleanup := func() {
		for i := len(closers) - 1; i >= 0; i-- {
			if err := closers[i](); err != nil {
				logger.Warn("close failed", "error", err)
			}
		}
	}

	db, err := sessions.NewSQLiteStore(cfg.DatabasePath())
	if err != nil {
		return nil, nil, fmt.Errorf("open session database: %w", err)
	}
	closers = append(closers, db.Close)

	// Interface values stay nil unless the concrete client was created.
	var (
		store    storage.VectorStore
		health   HealthChecker
		embedder *embedding.Embedder
		oai      *openai.Client
	)

	qdrantStore, err := storage.NewQdrantStorage(storage.QdrantConfig{
		Host:           cfg.Qdrant.Host,
		Port:           cfg.Qdrant.Port,
		Collection:     cfg.Qdrant.Collection,
		ScoreThreshold: float32(cfg.Qdrant.MinScore),
	})
	if err != nil {
		logger.Warn("vector store unavailable", "host", cfg.Qdrant.Host, "port", cfg.Qdrant.Port, "error", err)
	} else {
		closers = append(closers, qdrantStore.Close)
		if err := qdrantStore.EnsureCollection(ctx); err != nil {
			cleanup()
			return nil, nil, fmt.Errorf("ensure collection: %w", err)
		}
		store = qdrantStore
		health = qdrantStore
	}

	client, err := embedding.NewClient(cfg.LLM.OpenAIAPIKey)
	if err != nil {
		logger.Warn("embeddings unavailable", "error", err)
	} else {
		embedder = embedding.NewEmbedder(client, 0)
		oai = client.Client()
	}

	completer, err := llm.New(ctx, llm.Options{
		Provider:     cfg.LLM.Provider,
		Model:        cfg.LLM.Model,
		OpenAIClient: oai,
		GeminiAPIKey: cfg.LLM.GeminiAPIKey,
	})
	if err != nil {
		logger.Warn("llm unavailable", "provider", cfg.LLM.Provider, "error", err)
		completer = nil
	} else if c, ok := completer.(interface{ Close() error }); ok {
		closers = append(closers, c.Close)
	}

	var queryEmbedder retrieval.Embedder
	var batchEmbedder indexer.Embedder
	if embedder != nil {
		queryEmbedder = embedder
		batchEmbedder = embedder
	}

	engine := retrieval.NewEngine(store, queryEmbedder, retrieval.PollPolicy{
		Attempts: cfg.Retrieval.StatsAttempts,
		Delay:    cfg.Retrieval.StatsDelay,
	}, logger)

	splitter := chunking.NewSplitter(cfg.Chunking.Size, cfg.Chunking.Overlap, logger)
	pipeline := indexer.NewPipeline(splitter, chunking.NewMarkdownSplitter(splitter), batchEmbedder, store, engine, logger)

	synth := answer.NewSynthesizer(engine, completer, llm.NewTokenBudget(cfg.LLM.MaxTokens, logger), answer.Options{
		RetrieveK:  cfg.Retrieval.RetrieveK,
		UserInfoK:  cfg.Retrieval.UserInfoK,
		TechStackK: cfg.Retrieval.ExtractK,
		SummaryK:   cfg.Retrieval.SummaryK,
	}, logger)

	files := uploads.NewDir(cfg.Server.UploadDir)

	svcCfg := Config{
		Indexer:     pipeline,
		Synthesizer: synth,
		Sessions:    db,
		Files:       files,
		Health:      health,
		Logger:      logger,
	}
	if store != nil {
		svcCfg.Lifecycle = namespace.NewManager(store, files, logger)
		svcCfg.Reconstructor = history.NewReconstructor(engine, db, cfg.Retrieval.HistoryK, logger)
		if queryEmbedder != nil {
			svcCfg.Recorder = history.NewRecorder(store, queryEmbedder, logger)
		}
	}

	return NewService(svcCfg), cleanup, nil
}
