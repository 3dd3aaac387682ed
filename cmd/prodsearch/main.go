package main

import (
	"context"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/joho/godotenv"
	"go.uber.org/zap"

	"github.com/lifecare-ai/prodsearch/internal/config"
	"github.com/lifecare-ai/prodsearch/internal/db"
	dbRedis "github.com/lifecare-ai/prodsearch/internal/db/redis"
	"github.com/lifecare-ai/prodsearch/internal/domain/catalog"
	logpkg "github.com/lifecare-ai/prodsearch/internal/logger"
	"github.com/lifecare-ai/prodsearch/internal/metrics"
	"github.com/lifecare-ai/prodsearch/internal/repository/ensemble"
	"github.com/lifecare-ai/prodsearch/internal/repository/lexical"
	"github.com/lifecare-ai/prodsearch/internal/repository/llmcache"
	"github.com/lifecare-ai/prodsearch/internal/repository/vector"
	"github.com/lifecare-ai/prodsearch/internal/retry"
	chiTransport "github.com/lifecare-ai/prodsearch/internal/transport/chi"
	openaiTransport "github.com/lifecare-ai/prodsearch/internal/transport/openai"
	"github.com/lifecare-ai/prodsearch/internal/usecase/compile"
	"github.com/lifecare-ai/prodsearch/internal/usecase/retrieve"
	"github.com/lifecare-ai/prodsearch/internal/version"
)

func main() {
	// .env is optional; real deployments set the environment directly.
	_ = godotenv.Load()

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

	logger.Info("Starting prodsearch API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.String("backend", cfg.Backend.Driver),
	)

	metrics.RegisterProviderMetrics()
	metrics.RegisterSearchMetrics()

	cat, err := catalog.Load(cfg.Catalog.Path)
	if err != nil {
		logger.Fatal("Failed to load catalog", zap.Error(err))
	}
	logger.Info("Catalog loaded",
		zap.Int("products", cat.Len()),
		zap.Int("groups", len(cat.Groups())),
	)

	ctx := context.Background()

	// The Redis store backs the vector engine and the LLM response cache.
	// In-memory backends run without it unless addrs are configured.
	var store *dbRedis.Store
	if len(cfg.Database.Addrs) > 0 {
		store, err = dbRedis.NewStore(dbRedis.Config{
			Addrs:    cfg.Database.Addrs,
			Username: cfg.Database.Username,
			Password: cfg.Database.Password,
			DB:       cfg.Database.DB,
		})
		if err != nil {
			logger.Fatal("Failed to create database store", zap.Error(err))
		}
		defer store.Close()

		if err := store.WaitForReady(ctx, time.Duration(cfg.Database.ReadinessTimeout)*time.Second); err != nil {
			logger.Fatal("Database not ready", zap.Error(err))
		}
		logger.Info("Connected to database", zap.Strings("addrs", cfg.Database.Addrs))
	}

	policy := retry.Policy{
		MaxAttempts: cfg.Retry.MaxAttempts,
		BaseDelay:   time.Duration(cfg.Retry.BaseDelayMS) * time.Millisecond,
		Multiplier:  cfg.Retry.Multiplier,
	}

	embedder := openaiTransport.NewEmbedder(&openaiTransport.Config{
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Model:      cfg.Embedding.Model,
		Dimensions: cfg.Embedding.Dimensions,
		Provider:   cfg.Embedding.Provider,
		Retry:      policy,
		Logger:     logger,
	})

	var extractor retrieve.Extractor = openaiTransport.NewExtractor(&openaiTransport.ExtractorConfig{
		APIKey:  cfg.Extraction.APIKey,
		BaseURL: cfg.Extraction.BaseURL,
		Model:   cfg.Extraction.Model,
		Groups:  cat.Groups(),
		Retry:   policy,
		Logger:  logger,
	})
	if store != nil {
		cacheTTL := time.Duration(cfg.Extraction.CacheTTL) * time.Second
		extractor = llmcache.NewCachingExtractor(extractor, llmcache.New(store, cacheTTL), cfg.Extraction.Model)
		logger.Info("Extraction cache enabled", zap.Duration("ttl", cacheTTL))
	}

	backend, err := buildBackend(cfg, store, embedder, cat)
	if err != nil {
		logger.Fatal("Failed to build backend", zap.Error(err))
	}

	// Non-fatal: an offline provider at boot must not keep the server from
	// starting; later queries see a possibly-empty index.
	if err := backend.EnsureIndexed(ctx); err != nil {
		logger.Warn("Backend indexing incomplete", zap.Error(err))
	}

	compiler := compile.New(cat.Groups(), cfg.Backend.TopK)
	service := retrieve.NewService(extractor, compiler, backend, cfg.Backend.Driver)

	var pinger chiTransport.Pinger
	if store != nil {
		pinger = store
	}
	server := chiTransport.NewServer(service, pinger, logger)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      server.Router(),
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

// buildBackend selects the retrieval engine per backend.driver.
func buildBackend(
	cfg config.Config, store *dbRedis.Store, embedder *openaiTransport.Embedder, cat *catalog.Catalog,
) (retrieve.Backend, error) {
	switch cfg.Backend.Driver {
	case "lexical":
		return lexical.New(cat)

	case "vector":
		if store == nil {
			return nil, fmt.Errorf("vector backend requires database.addrs")
		}
		return vector.New(store, embedder, cat, vector.Config{
			IndexName:       cfg.Backend.Vector.IndexName,
			KeyPrefix:       cfg.Backend.Vector.KeyPrefix,
			VectorDim:       cfg.Backend.Vector.Dimensions,
			VectorType:      db.VectorType(cfg.Backend.Vector.Type),
			HNSWM:           cfg.Backend.Vector.HNSWM,
			HNSWEFConstruct: cfg.Backend.Vector.HNSWEFConstruct,
			PrefetchK:       cfg.Backend.Vector.PrefetchK,
			ScoreThreshold:  cfg.Backend.Vector.ScoreThreshold,
		}), nil

	case "ensemble":
		return ensemble.New(embedder, cat, ensemble.Config{
			Weights:        cfg.Backend.Ensemble.Weights,
			FetchK:         cfg.Backend.Ensemble.FetchK,
			LambdaMult:     cfg.Backend.Ensemble.LambdaMult,
			ScoreThreshold: cfg.Backend.Ensemble.ScoreThreshold,
		})

	default:
		return nil, fmt.Errorf("unknown backend driver %q", cfg.Backend.Driver)
	}
}
