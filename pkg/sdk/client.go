package lexrag

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/atrium-law/lexrag/internal/chunker"
	"github.com/atrium-law/lexrag/internal/db"
	dbRedis "github.com/atrium-law/lexrag/internal/db/redis"
	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/clause"
	"github.com/atrium-law/lexrag/internal/domain/search"
	"github.com/atrium-law/lexrag/internal/repository/chunks"
	"github.com/atrium-law/lexrag/internal/transport/inference"
	"github.com/atrium-law/lexrag/internal/transport/offline"
	"github.com/atrium-law/lexrag/internal/usecase/analyze"
	"github.com/atrium-law/lexrag/internal/usecase/citation"
	healthuc "github.com/atrium-law/lexrag/internal/usecase/health"
	"github.com/atrium-law/lexrag/internal/usecase/ingest"
	"github.com/atrium-law/lexrag/internal/usecase/retrieval"
	usageuc "github.com/atrium-law/lexrag/internal/usecase/usage"
)

const defaultReadinessTimeout = 10 * time.Second

// Internal interfaces so tests can substitute the use cases.
type ingestUseCase interface {
	Ingest(ctx context.Context, userID, matterID, name, text string) (ingest.Result, error)
	Reembed(ctx context.Context, userID, docID string) (int, error)
	Delete(ctx context.Context, userID, docID string) error
}

type retrievalUseCase interface {
	Search(ctx context.Context, query string, scope search.Scope, topK int) ([]search.Result, error)
}

type citationUseCase interface {
	Extract(ctx context.Context, query string, results []search.Result, maxCitations int) domain.CitationSet
}

type analyzeUseCase interface {
	Analyze(ctx context.Context, chunks []domain.Chunk, querySpec string, threshold float64) (clause.AnalysisResult, error)
	AnalyzeDocument(ctx context.Context, userID, docID, querySpec string, threshold float64) (clause.AnalysisResult, error)
	AnalyzeText(ctx context.Context, text, querySpec string, threshold float64) (clause.AnalysisResult, error)
}

// Client is the lexrag SDK entry point.
type Client struct {
	store        db.Store
	ingestSvc    ingestUseCase
	retrievalSvc retrievalUseCase
	citationSvc  citationUseCase
	analyzeSvc   analyzeUseCase
	healthSvc    healthUseCase
	usageSvc     usageUseCase
	obs          *observer
	maxCitations int
}

// New creates a lexrag Client and connects to the database.
// The provided context is used for the initial readiness check and
// index creation.
func New(ctx context.Context, opts ...Option) (*Client, error) {
	cfg := &clientConfig{
		keyPrefix:        "lexrag:",
		vectorDimensions: 1024,
		hnswM:            32,
		hnswEFConstruct:  400,
		chunkSize:        1200,
		chunkOverlap:     200,
		minChunkSize:     100,
		topK:             10,
		overfetchFactor:  4,
		maxCitations:     5,
		clauseThreshold:  0.5,
		embedBatchSize:   10,
	}
	for _, o := range opts {
		o.apply(cfg)
	}

	if len(cfg.addrs) == 0 {
		return nil, errors.New("lexrag: database address required (use WithRedis)")
	}
	if cfg.embedder == nil {
		return nil, errors.New("lexrag: embedder required (use WithEmbedder)")
	}

	store, err := dbRedis.NewStore(dbRedis.Config{
		Addrs:    cfg.addrs,
		Password: cfg.password,
	})
	if err != nil {
		return nil, fmt.Errorf("lexrag: create redis store: %w", err)
	}

	if err := store.WaitForReady(ctx, defaultReadinessTimeout); err != nil {
		store.Close()
		return nil, fmt.Errorf("lexrag: database not ready: %w", err)
	}

	obs, err := newObserver(cfg.logger, cfg.metricsReg)
	if err != nil {
		store.Close()
		return nil, err
	}

	return wireClient(ctx, store, cfg, obs)
}

func wireClient(ctx context.Context, store db.Store, cfg *clientConfig, obs *observer) (*Client, error) {
	chunkRepo := chunks.New(store, cfg.keyPrefix)
	if err := chunkRepo.EnsureIndex(ctx, cfg.vectorDimensions, cfg.hnswM, cfg.hnswEFConstruct); err != nil {
		store.Close()
		return nil, fmt.Errorf("lexrag: ensure chunk index: %w", err)
	}

	emb := &embedderAdapter{inner: cfg.embedder}

	var reranker retrieval.Reranker = offline.NewReranker()
	if cfg.reranker.configured() {
		reranker = inference.NewReranker(inferenceConfig(cfg.reranker, "reranker"))
	}
	var extractor citation.Extractor = offline.NewExtractor()
	if cfg.extractor.configured() {
		extractor = inference.NewExtractor(inferenceConfig(cfg.extractor, "extractor"))
	}
	var classifier analyze.Classifier = offline.NewClassifier()
	if cfg.classifier.configured() {
		classifier = inference.NewClassifier(inferenceConfig(cfg.classifier, "classifier"))
	}

	chunkOpts := chunker.Options{
		ChunkSize:       cfg.chunkSize,
		ChunkOverlap:    cfg.chunkOverlap,
		MinChunkSize:    cfg.minChunkSize,
		RespectSections: true,
	}

	ingestSvc := ingest.New(chunkRepo, emb, chunkOpts, cfg.embedBatchSize)
	retrievalSvc := retrieval.New(chunkRepo, emb, reranker, retrieval.Options{
		TopK:            cfg.topK,
		OverfetchFactor: cfg.overfetchFactor,
		MinSimilarity:   cfg.minSimilarity,
	})
	citationSvc := citation.New(extractor, cfg.extractor.configured())
	analyzeSvc := analyze.New(classifier, extractor, cfg.clauseThreshold).
		WithChunkSource(chunkRepo, chunkOpts)

	healthSvc := healthuc.New(store, nil, chunkRepo)
	usageSvc := usageuc.New(nil) // nil = unlimited mode (no budget tracking in SDK)

	return &Client{
		store:        store,
		ingestSvc:    ingestSvc,
		retrievalSvc: retrievalSvc,
		citationSvc:  citationSvc,
		analyzeSvc:   analyzeSvc,
		healthSvc:    healthSvc,
		usageSvc:     usageSvc,
		obs:          obs,
		maxCitations: cfg.maxCitations,
	}, nil
}

func inferenceConfig(ep endpointConfig, provider string) *inference.Config {
	return &inference.Config{
		BaseURL:  ep.baseURL,
		APIKey:   ep.apiKey,
		Model:    ep.model,
		Provider: provider,
	}
}

// Close releases all resources.
func (c *Client) Close() {
	if c.store != nil {
		c.store.Close()
	}
}

// Ping checks database connectivity.
func (c *Client) Ping(ctx context.Context) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("ping", start, err) }()

	if err = c.store.Ping(ctx); err != nil {
		return fmt.Errorf("ping: %w", err)
	}
	return nil
}
