package chi

import (
	"context"
	"net/http/httptest"
	"testing"

	gochi "github.com/go-chi/chi/v5"
	"go.uber.org/zap"

	"github.com/atrium-law/lexrag/internal/chunker"
	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/search"
	"github.com/atrium-law/lexrag/internal/repository/chunks"
	"github.com/atrium-law/lexrag/internal/transport/offline"
	"github.com/atrium-law/lexrag/internal/usecase/analyze"
	"github.com/atrium-law/lexrag/internal/usecase/citation"
	healthuc "github.com/atrium-law/lexrag/internal/usecase/health"
	"github.com/atrium-law/lexrag/internal/usecase/ingest"
	"github.com/atrium-law/lexrag/internal/usecase/retrieval"
	"github.com/atrium-law/lexrag/internal/usecase/usage"
)

// mockChunkRepo implements both the ingest and retrieval storage contracts.
type mockChunkRepo struct {
	storeFn          func(ctx context.Context, doc *domain.Document, cs []domain.EmbeddedChunk) error
	listUnembeddedFn func(ctx context.Context, userID, docID string) ([]chunks.StoredChunk, error)
	setVectorFn      func(ctx context.Context, key string, vector []float32) error
	deleteFn         func(ctx context.Context, userID, docID string) error
	searchKNNFn      func(ctx context.Context, vector []float32, scope search.Scope, threshold float64, limit int) ([]search.Result, error)
	listChunksFn     func(ctx context.Context, userID, docID string) ([]domain.Chunk, error)
}

func (m *mockChunkRepo) Store(ctx context.Context, doc *domain.Document, cs []domain.EmbeddedChunk) error {
	if m.storeFn != nil {
		return m.storeFn(ctx, doc, cs)
	}
	return nil
}

func (m *mockChunkRepo) ListUnembedded(ctx context.Context, userID, docID string) ([]chunks.StoredChunk, error) {
	if m.listUnembeddedFn != nil {
		return m.listUnembeddedFn(ctx, userID, docID)
	}
	return nil, nil
}

func (m *mockChunkRepo) SetVector(ctx context.Context, key string, vector []float32) error {
	if m.setVectorFn != nil {
		return m.setVectorFn(ctx, key, vector)
	}
	return nil
}

func (m *mockChunkRepo) DeleteDocument(ctx context.Context, userID, docID string) error {
	if m.deleteFn != nil {
		return m.deleteFn(ctx, userID, docID)
	}
	return nil
}

func (m *mockChunkRepo) SearchKNN(
	ctx context.Context, vector []float32, scope search.Scope, threshold float64, limit int,
) ([]search.Result, error) {
	if m.searchKNNFn != nil {
		return m.searchKNNFn(ctx, vector, scope, threshold, limit)
	}
	return nil, nil
}

func (m *mockChunkRepo) ListChunks(ctx context.Context, userID, docID string) ([]domain.Chunk, error) {
	if m.listChunksFn != nil {
		return m.listChunksFn(ctx, userID, docID)
	}
	return nil, nil
}

type mockEmbedder struct {
	embedFn      func(ctx context.Context, text string) (domain.EmbeddingResult, error)
	batchEmbedFn func(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error)
}

func (m *mockEmbedder) Embed(ctx context.Context, text string) (domain.EmbeddingResult, error) {
	if m.embedFn != nil {
		return m.embedFn(ctx, text)
	}
	return domain.EmbeddingResult{Embedding: []float32{0.1, 0.2}}, nil
}

func (m *mockEmbedder) BatchEmbed(ctx context.Context, texts []string) (domain.BatchEmbeddingResult, error) {
	if m.batchEmbedFn != nil {
		return m.batchEmbedFn(ctx, texts)
	}
	embeddings := make([][]float32, len(texts))
	for i := range embeddings {
		embeddings[i] = []float32{0.1, 0.2}
	}
	return domain.BatchEmbeddingResult{Embeddings: embeddings, TotalTokens: len(texts)}, nil
}

type mockClassifier struct {
	classifyFn func(ctx context.Context, text string, labels []string) ([]domain.ScoredLabel, error)
}

func (m *mockClassifier) Classify(ctx context.Context, text string, labels []string) ([]domain.ScoredLabel, error) {
	if m.classifyFn != nil {
		return m.classifyFn(ctx, text, labels)
	}
	return nil, domain.ErrProviderUnavailable
}

type mockPinger struct {
	err error
}

func (m *mockPinger) Ping(_ context.Context) error { return m.err }

type serverDeps struct {
	repo       *mockChunkRepo
	embedder   *mockEmbedder
	classifier *mockClassifier
	budget     usage.BudgetReader
	pingErr    error
}

// newTestServer wires a Server with offline reranker/extractor and mock
// storage, mirroring the degraded-but-functional deployment.
func newTestServer(t *testing.T, deps serverDeps) *httptest.Server {
	t.Helper()

	if deps.repo == nil {
		deps.repo = &mockChunkRepo{}
	}
	if deps.embedder == nil {
		deps.embedder = &mockEmbedder{}
	}
	if deps.classifier == nil {
		deps.classifier = &mockClassifier{}
	}

	opts := chunker.Options{ChunkSize: 200, ChunkOverlap: 40, MinChunkSize: 20}
	ingestSvc := ingest.New(deps.repo, deps.embedder, opts, 10)
	retrievalSvc := retrieval.New(deps.repo, deps.embedder, offline.NewReranker(), retrieval.Options{TopK: 5})
	citationSvc := citation.New(offline.NewExtractor(), false)
	analyzeSvc := analyze.New(deps.classifier, offline.NewExtractor(), 0.5).
		WithChunkSource(deps.repo, opts)
	usageSvc := usage.New(deps.budget)
	healthSvc := healthuc.New(&mockPinger{err: deps.pingErr}, nil, nil)

	server := NewServer(ingestSvc, retrievalSvc, citationSvc, analyzeSvc, usageSvc, healthSvc, zap.NewNop())

	r := gochi.NewRouter()
	server.Routes(r)

	ts := httptest.NewServer(r)
	t.Cleanup(ts.Close)
	return ts
}
