package main

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/go-chi/chi/v5"
	chiMiddleware "github.com/go-chi/chi/v5/middleware"
	"go.uber.org/zap"

	"github.com/atrium-law/lexrag/internal/chunker"
	"github.com/atrium-law/lexrag/internal/config"
	"github.com/atrium-law/lexrag/internal/db"
	dbRedis "github.com/atrium-law/lexrag/internal/db/redis"
	"github.com/atrium-law/lexrag/internal/domain"
	logpkg "github.com/atrium-law/lexrag/internal/logger"
	"github.com/atrium-law/lexrag/internal/metrics"
	budgetrepo "github.com/atrium-law/lexrag/internal/repository/budget"
	"github.com/atrium-law/lexrag/internal/repository/chunks"
	"github.com/atrium-law/lexrag/internal/repository/embcache"
	chiTransport "github.com/atrium-law/lexrag/internal/transport/chi"
	"github.com/atrium-law/lexrag/internal/transport/inference"
	"github.com/atrium-law/lexrag/internal/transport/offline"
	openaiEmb "github.com/atrium-law/lexrag/internal/transport/openai"
	"github.com/atrium-law/lexrag/internal/usecase/analyze"
	"github.com/atrium-law/lexrag/internal/usecase/citation"
	embeddinguc "github.com/atrium-law/lexrag/internal/usecase/embedding"
	healthuc "github.com/atrium-law/lexrag/internal/usecase/health"
	"github.com/atrium-law/lexrag/internal/usecase/ingest"
	"github.com/atrium-law/lexrag/internal/usecase/retrieval"
	"github.com/atrium-law/lexrag/internal/usecase/usage"
	"github.com/atrium-law/lexrag/internal/version"
)

// defaultVectorDim is used when no vectorizer dimensions are configured.
const defaultVectorDim = 1024

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

	logger.Info("Starting lexrag API server",
		zap.String("version", version.Version),
		zap.String("commit", version.Commit),
		zap.String("env", env),
		zap.Int("http_port", cfg.HTTP.Port),
		zap.Strings("db_addrs", cfg.Database.Addrs),
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

	// Register inference Prometheus metrics explicitly (no init())
	metrics.RegisterInferenceMetrics()

	// Build embedder chain — composition root
	// Take the first vectorizer config
	var vecCfg config.VectorizerConfig
	var provName string
	for _, vc := range cfg.Embedding.Vectorizers {
		vecCfg = vc
		provName = vc.Provider
		break
	}
	provCfg := cfg.Embedding.Providers[provName]

	// Single BudgetTracker shared between both embedders and the usage service.
	var budget *embeddinguc.BudgetTracker
	budgetCfg := provCfg.Budget
	if budgetCfg.DailyTokenLimit > 0 || budgetCfg.MonthlyTokenLimit > 0 {
		action := embeddinguc.BudgetActionWarn
		if budgetCfg.Action == "reject" {
			action = embeddinguc.BudgetActionReject
		}
		budget = embeddinguc.NewBudgetTracker(
			provName, budgetCfg.DailyTokenLimit, budgetCfg.MonthlyTokenLimit, action, logger,
		)
		// Connect persistence store — loads current counters from DB.
		budgetStore := budgetrepo.New(store, cfg.Storage.KeyPrefix, 48*time.Hour, 62*24*time.Hour)
		budget.WithStore(ctx, budgetStore)
	}

	// Pass nil interface (not typed nil pointer!) if budget is not configured.
	// Go gotcha: (*BudgetTracker)(nil) wrapped in BudgetChecker != nil.
	var budgetChecker embeddinguc.BudgetChecker
	if budget != nil {
		budgetChecker = budget
	}

	docEmbedder := buildEmbedder(
		provName, provCfg, vecCfg, vecCfg.DocumentInstruction,
		store, budgetChecker, logger,
	)
	queryEmbedder := buildEmbedder(
		provName, provCfg, vecCfg, vecCfg.QueryInstruction,
		store, budgetChecker, logger,
	)
	logger.Info("Embedders created",
		zap.String("provider", provName),
		zap.String("model", vecCfg.Model),
		zap.Int("dimensions", vecCfg.Dimensions),
	)

	// Chunk repository and vector index
	vectorDim := vecCfg.Dimensions
	if vectorDim == 0 {
		vectorDim = defaultVectorDim
	}

	chunkRepo := chunks.New(store, cfg.Storage.KeyPrefix)
	if err := chunkRepo.EnsureIndex(ctx, vectorDim, cfg.Index.HNSWM, cfg.Index.HNSWEFConstruct); err != nil {
		logger.Fatal("Failed to ensure chunk index", zap.Error(err))
	}

	// Inference providers: HTTP clients or deterministic offline fallbacks
	reranker := buildReranker(cfg.Inference.Reranker, logger)
	extractor := buildExtractor(cfg.Inference.Extractor, logger)
	classifier := buildClassifier(cfg.Inference.Classifier, logger)

	chunkOpts := chunker.Options{
		ChunkSize:       cfg.Chunking.ChunkSize,
		ChunkOverlap:    cfg.Chunking.ChunkOverlap,
		MinChunkSize:    cfg.Chunking.MinChunkSize,
		RespectSections: cfg.Chunking.RespectSectionsEnabled(),
	}

	// Create use case services
	ingestSvc := ingest.New(chunkRepo, docEmbedder, chunkOpts, cfg.Retrieval.BatchSize)
	retrievalSvc := retrieval.New(chunkRepo, queryEmbedder, reranker, retrieval.Options{
		TopK:            cfg.Retrieval.TopK,
		OverfetchFactor: cfg.Retrieval.OverfetchFactor,
		MinSimilarity:   cfg.Retrieval.MinSimilarity,
	})
	citationSvc := citation.New(extractor, cfg.Inference.Extractor.Mode == "http")
	analyzeSvc := analyze.New(classifier, extractor, cfg.Retrieval.ClauseThreshold).
		WithChunkSource(chunkRepo, chunkOpts)

	// Usage service reads from the shared BudgetTracker
	var budgetReader usage.BudgetReader
	if budget != nil {
		budgetReader = budget
	}
	usageSvc := usage.New(budgetReader)

	// Health service
	healthSvc := healthuc.New(store, newEmbeddingHealthChecker(queryEmbedder), chunkRepo)

	// Create chi server
	server := chiTransport.NewServer(
		ingestSvc, retrievalSvc, citationSvc, analyzeSvc, usageSvc, healthSvc, logger,
	).WithMaxCitations(cfg.Retrieval.MaxCitations)

	r := chi.NewRouter()
	r.Use(jsonRecoverer(logger))
	r.Use(chiMiddleware.RequestID)
	r.Use(wideEventMiddleware(logger))
	r.Use(chiTransport.BearerAuthMiddleware(cfg.Auth.APIKeys))
	r.Use(metrics.Middleware())
	server.Routes(r)

	addr := fmt.Sprintf(":%d", cfg.HTTP.Port)
	srv := &http.Server{
		Addr:         addr,
		Handler:      r,
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

// embeddingHealthChecker wraps domain.Embedder to implement health.EmbeddingChecker.
type embeddingHealthChecker struct {
	embedder domain.Embedder
}

func newEmbeddingHealthChecker(embedder domain.Embedder) *embeddingHealthChecker {
	return &embeddingHealthChecker{embedder: embedder}
}

func (h *embeddingHealthChecker) HealthCheck(ctx context.Context) error {
	if hc, ok := h.embedder.(domain.HealthChecker); ok {
		if err := hc.HealthCheck(ctx); err != nil {
			return fmt.Errorf("embedding health check: %w", err)
		}
	}
	return nil
}

// buildEmbedder assembles the decorator chain: OpenAI -> Cached -> Instrumented -> Instruction
func buildEmbedder(
	provName string,
	provCfg config.ProviderConfig,
	vecCfg config.VectorizerConfig,
	instruction string,
	store db.Store,
	budget embeddinguc.BudgetChecker,
	logger *zap.Logger,
) interface {
	domain.Embedder
	domain.BatchEmbedder
} {
	// Base provider (with transport metrics built-in)
	base := openaiEmb.NewEmbedder(&openaiEmb.Config{
		APIKey:     provCfg.APIKey,
		BaseURL:    provCfg.BaseURL,
		Model:      vecCfg.Model,
		Dimensions: vecCfg.Dimensions,
		Provider:   provName,
		Logger:     logger,
	})

	// Cached
	var embedder domain.Embedder = base
	if store != nil {
		embedder = embcache.New(base, store, metrics.EmbeddingCacheTotal, logger)
	}

	// Instrumented (budget + metrics)
	instrumented := embeddinguc.NewInstrumentedEmbedder(
		embedder, provName, vecCfg.Model, budget, logger,
	)

	// Instruction prefix (outermost — cache key includes instruction)
	if instruction != "" {
		return domain.NewInstructionEmbedder(instrumented, instruction)
	}

	return instrumented
}

func buildReranker(cfg config.InferenceProviderConfig, logger *zap.Logger) retrieval.Reranker {
	if cfg.Mode != "http" {
		return offline.NewReranker()
	}
	return inference.NewReranker(&inference.Config{
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		Provider: "reranker",
		Logger:   logger,
	})
}

func buildExtractor(cfg config.InferenceProviderConfig, logger *zap.Logger) citation.Extractor {
	if cfg.Mode != "http" {
		return offline.NewExtractor()
	}
	return inference.NewExtractor(&inference.Config{
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		Provider: "extractor",
		Logger:   logger,
	})
}

func buildClassifier(cfg config.InferenceProviderConfig, logger *zap.Logger) analyze.Classifier {
	if cfg.Mode != "http" {
		return offline.NewClassifier()
	}
	return inference.NewClassifier(&inference.Config{
		BaseURL:  cfg.BaseURL,
		APIKey:   cfg.APIKey,
		Model:    cfg.Model,
		Timeout:  time.Duration(cfg.TimeoutSec) * time.Second,
		Provider: "classifier",
		Logger:   logger,
	})
}

// jsonRecoverer is a recovery middleware that returns JSON instead of a plain text stacktrace.
func jsonRecoverer(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				if rvr := recover(); rvr != nil {
					logger.Error("panic recovered",
						zap.Any("panic", rvr),
						zap.Stack("stacktrace"),
					)
					w.Header().Set("Content-Type", "application/json")
					w.WriteHeader(http.StatusInternalServerError)
					_ = json.NewEncoder(w).Encode(map[string]string{
						"code":    "internal_error",
						"message": "internal error",
					})
				}
			}()
			next.ServeHTTP(w, r)
		})
	}
}

// wideEventMiddleware emits a canonical log line per request and propagates X-Request-ID.
func wideEventMiddleware(logger *zap.Logger) func(next http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			start := time.Now()

			// chi.middleware.RequestID already placed request_id in context
			requestID := chiMiddleware.GetReqID(r.Context())

			// Set X-Request-ID in response header
			if requestID != "" {
				w.Header().Set("X-Request-ID", requestID)
			}

			// Per-request logger with request_id
			reqLogger := logger.With(zap.String("request_id", requestID))
			ctx := logpkg.ContextWithLogger(r.Context(), reqLogger)

			ww := chiMiddleware.NewWrapResponseWriter(w, r.ProtoMajor)
			next.ServeHTTP(ww, r.WithContext(ctx))

			// Canonical log line — one line per request
			reqLogger.Info("http_request",
				zap.String("method", r.Method),
				zap.String("path", r.URL.Path),
				zap.Int("status", ww.Status()),
				zap.Duration("latency", time.Since(start)),
				zap.String("ip", r.RemoteAddr),
				zap.Int64("content_length", r.ContentLength),
				zap.String("user_agent", r.UserAgent()),
				zap.Int("response_bytes", ww.BytesWritten()),
			)
		})
	}
}
