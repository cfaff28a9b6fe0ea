package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/luminehq/lumine/internal/config"
	dbRedis "github.com/luminehq/lumine/internal/db/redis"
	"github.com/luminehq/lumine/internal/domain"
	logpkg "github.com/luminehq/lumine/internal/logger"
	"github.com/luminehq/lumine/internal/metrics"
	"github.com/luminehq/lumine/internal/repository/embcache"
	"github.com/luminehq/lumine/internal/repository/vectorstore"
	blueskyTransport "github.com/luminehq/lumine/internal/transport/bluesky"
	chiTransport "github.com/luminehq/lumine/internal/transport/chi"
	openaiTransport "github.com/luminehq/lumine/internal/transport/openai"
	serpTransport "github.com/luminehq/lumine/internal/transport/serp"
	chatuc "github.com/luminehq/lumine/internal/usecase/chat"
	embeddinguc "github.com/luminehq/lumine/internal/usecase/embedding"
	expansionuc "github.com/luminehq/lumine/internal/usecase/expansion"
	healthuc "github.com/luminehq/lumine/internal/usecase/health"
	retrievaluc "github.com/luminehq/lumine/internal/usecase/retrieval"
	"github.com/luminehq/lumine/internal/version"
)

func main() {
	// Load configuration based on ENV
	env := config.GetEnv()

	cfg, err := config.Load(env)
	if err != nil {
		panic("failed to load config: " + err.Error())
	}

	logger, err := logpkg.NewLogger(env, cfg.Logging.Level)
	if err != nil {
		panic("failed to create logger: " + err.Error())
	}
	defer func() { _ = logger.Sync() }()

	logger.Info("Starting lumine API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
		zap.String("collection", cfg.Collection.Name),
	)

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.Database.Addrs,
		Password: cfg.Database.Password,
	})
	if err != nil {
		logger.Fatal("Failed to create database store", zap.Error(err))
	}
	defer store.Close()

	// Wait for database to be ready
	ctx := context.Background()
	if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
		logger.Fatal("Database not ready", zap.Error(err))
	}
	logger.Info("Connected to database")

	// Register metrics explicitly (no init())
	metrics.RegisterEmbeddingMetrics()
	metrics.RegisterPipelineMetrics()

	// Vector store repository, the semantic cache
	vectorRepo := vectorstore.New(store, vectorstore.Config{
		KeyPrefix:  cfg.Storage.KeyPrefix,
		Collection: cfg.Collection.Name,
		Dimension:  cfg.Collection.Dimension,
		HNSWM:      cfg.Collection.HNSWM,
		HNSWEF:     cfg.Collection.HNSWEF,
	})
	if cfg.Collection.ResetOnStartEnabled() {
		if err := vectorRepo.Reset(ctx); err != nil {
			logger.Fatal("Failed to reset vector index", zap.Error(err))
		}
		logger.Info("Vector index reset", zap.String("collection", cfg.Collection.Name))
	} else {
		if err := vectorRepo.EnsureIndex(ctx); err != nil {
			logger.Fatal("Failed to ensure vector index", zap.Error(err))
		}
	}

	// Embedder chain: OpenAI-compatible provider -> cache decorator
	baseEmbedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   "openai",
		Logger:     logger,
	})
	cachedEmbedder := embcache.New(
		baseEmbedder, store,
		cfg.Storage.KeyPrefix, cfg.Embedding.Model,
		metrics.EmbeddingCacheTotal, logger,
	)
	embeddingSvc := embeddinguc.New(func() (domain.Embedder, error) {
		return cachedEmbedder, nil
	}, logger)
	logger.Info("Embedder created",
		zap.String("model", cfg.Embedding.Model),
		zap.Int("dimensions", cfg.Embedding.Dimensions),
	)

	// LLM client, shared by expansion and chat
	llmClient := openaiTransport.NewLLMClient(&openaiTransport.LLMConfig{
		APIKey:  cfg.LLM.APIKey,
		BaseURL: cfg.LLM.BaseURL,
		Logger:  logger,
	})

	expansionSvc := expansionuc.New(llmClient, cfg.LLM.ExpansionModel, logger)

	socialFetcher := blueskyTransport.NewFetcher(&blueskyTransport.Config{
		BaseURL: cfg.Search.Bluesky.BaseURL,
		Limit:   cfg.Search.Bluesky.Limit,
		Logger:  logger,
	})
	webFetcher := serpTransport.NewFetcher(&serpTransport.Config{
		BaseURL:  cfg.Search.Serp.BaseURL,
		APIKey:   cfg.Search.Serp.APIKey,
		Country:  cfg.Search.Serp.Country,
		Language: cfg.Search.Serp.Language,
		PageSize: cfg.Search.Serp.PageSize,
		Logger:   logger,
	})

	retrievalSvc := retrievaluc.New(
		expansionSvc, embeddingSvc, vectorRepo,
		socialFetcher, webFetcher,
		retrievaluc.Params{
			ProbeLimit:     cfg.Retrieval.ProbeLimit,
			ProbeMinScore:  cfg.Retrieval.ProbeMinScore,
			MaxResults:     cfg.Retrieval.MaxResults,
			MinMeanScore:   cfg.Retrieval.MinMeanScore,
			MinHits:        cfg.Retrieval.MinHits,
			MaxLiveQueries: cfg.Retrieval.MaxLiveQueries,
		},
		logger,
	)

	chatSvc := chatuc.New(retrievalSvc, llmClient, cfg.LLM.Model, logger)
	healthSvc := healthuc.New(store, baseEmbedder, llmClient)

	server := chiTransport.NewServer(chatSvc, healthSvc, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:    addr,
		Handler: server.Router(),
		// WriteTimeout stays 0 unless configured: SSE responses are open-ended.
		ReadTimeout:  time.Duration(cfg.HTTP.ReadTimeoutSec) * time.Second,
		WriteTimeout: time.Duration(cfg.HTTP.WriteTimeoutSec) * time.Second,
	}

	// Graceful shutdown
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, os.Interrupt, syscall.SIGTERM)

	go func() {
		logger.Info("Starting HTTP server", zap.String("addr", addr))
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			logger.Fatal("HTTP server error", zap.Error(err))
		}
	}()

	<-quit
	logger.Info("Received shutdown signal")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), time.Duration(cfg.HTTP.ShutdownSec)*time.Second)
	defer cancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Error("Error during shutdown", zap.Error(err))
	}

	logger.Info("Server stopped gracefully")
}
