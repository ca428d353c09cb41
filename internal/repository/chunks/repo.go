// Package chunks persists embedded document chunks as Redis hashes and runs
// tenant-scoped KNN retrieval over them through a single FT index.
package chunks

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"

	"github.com/atrium-law/lexrag/internal/db"
	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/search"
)

// store is the consumer interface for chunk persistence (ISP).
type store interface {
	HSet(ctx context.Context, key string, fields map[string]string) error
	HSetMulti(ctx context.Context, items []db.HashSetItem) error
	HGetAll(ctx context.Context, key string) (map[string]string, error)
	HGetAllMulti(ctx context.Context, keys []string) ([]map[string]string, error)
	DelMulti(ctx context.Context, keys []string) error
	Scan(ctx context.Context, pattern string) ([]string, error)
	SearchKNN(ctx context.Context, q *db.KNNQuery) (*db.SearchResult, error)
	CreateIndex(ctx context.Context, def *db.IndexDefinition) error
	IndexExists(ctx context.Context, name string) (bool, error)
}

// Repo implements chunk persistence for the ingest and retrieval services.
type Repo struct {
	store     store
	keyPrefix string
}

// New creates a chunk repository. keyPrefix namespaces all keys and the index.
func New(s store, keyPrefix string) *Repo {
	return &Repo{store: s, keyPrefix: keyPrefix}
}

// Store writes all chunks of a document in one round trip.
// Chunks without vectors are stored too: they stay findable for a later
// re-embed pass, they just never match a KNN query.
func (r *Repo) Store(ctx context.Context, doc *domain.Document, chunks []domain.EmbeddedChunk) error {
	if len(chunks) == 0 {
		return nil
	}

	items := make([]db.HashSetItem, len(chunks))
	for i := range chunks {
		items[i] = db.HashSetItem{
			Key:    r.chunkKey(doc.ID(), chunks[i].Index),
			Fields: buildHashFields(doc, &chunks[i]),
		}
	}

	if err := r.store.HSetMulti(ctx, items); err != nil {
		return fmt.Errorf("store chunks %s: %w", doc.ID(), err)
	}
	return nil
}

// SearchKNN runs a tenant-scoped vector search. The scope's user ID is always
// rendered into the pre-filter; results below threshold are dropped.
func (r *Repo) SearchKNN(
	ctx context.Context, vector []float32, scope search.Scope, threshold float64, limit int,
) ([]search.Result, error) {
	filters := []db.TagFilter{{Field: fieldUserID, Value: scope.UserID()}}
	if scope.MatterID() != "" {
		filters = append(filters, db.TagFilter{Field: fieldMatterID, Value: scope.MatterID()})
	}
	if scope.DocumentID() != "" {
		filters = append(filters, db.TagFilter{Field: fieldDocumentID, Value: scope.DocumentID()})
	}

	q := &db.KNNQuery{
		IndexName: r.indexName(),
		Filters:   filters,
		Vector:    vector,
		K:         limit,
		ReturnFields: []string{
			fieldContent, fieldDocumentID, fieldDocumentName,
			fieldChunkIndex, fieldSection, vectorScoreField,
		},
	}

	sr, err := r.store.SearchKNN(ctx, q)
	if err != nil {
		return nil, fmt.Errorf("search knn: %w", err)
	}
	if sr == nil || sr.Total == 0 {
		return nil, nil
	}

	results := make([]search.Result, 0, len(sr.Entries))
	for _, entry := range sr.Entries {
		if entry.Score < threshold {
			continue
		}
		results = append(results, parseEntry(entry))
	}
	return results, nil
}

// ListUnembedded returns keys of the document's chunks that have no vector.
// Used by the idempotent re-embed pass. The tenant check runs against the
// stored chunks, not the request.
func (r *Repo) ListUnembedded(ctx context.Context, userID, docID string) ([]StoredChunk, error) {
	keys, fields, err := r.loadDocument(ctx, userID, docID)
	if err != nil {
		return nil, err
	}

	var out []StoredChunk
	for i, m := range fields {
		if len(m) == 0 || m[fieldVector] != "" {
			continue
		}
		out = append(out, parseStoredChunk(keys[i], m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// ListChunks loads all chunks of a document in index order, tenant-checked.
// Used by document-level clause analysis.
func (r *Repo) ListChunks(ctx context.Context, userID, docID string) ([]domain.Chunk, error) {
	_, fields, err := r.loadDocument(ctx, userID, docID)
	if err != nil {
		return nil, err
	}

	out := make([]domain.Chunk, 0, len(fields))
	for _, m := range fields {
		if len(m) == 0 {
			continue
		}
		out = append(out, parseChunk(m))
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Index < out[j].Index })
	return out, nil
}

// SetVector fills in the vector of a single stored chunk.
func (r *Repo) SetVector(ctx context.Context, key string, vector []float32) error {
	if err := r.store.HSet(ctx, key, map[string]string{fieldVector: vectorToBytes(vector)}); err != nil {
		return fmt.Errorf("set vector %s: %w", key, err)
	}
	return nil
}

// DeleteDocument removes all chunks of a document after a tenant check.
func (r *Repo) DeleteDocument(ctx context.Context, userID, docID string) error {
	keys, _, err := r.loadDocument(ctx, userID, docID)
	if err != nil {
		return err
	}

	if err := r.store.DelMulti(ctx, keys); err != nil {
		return fmt.Errorf("delete chunks %s: %w", docID, err)
	}
	return nil
}

// EnsureIndex creates the chunk FT index if it does not exist yet.
func (r *Repo) EnsureIndex(ctx context.Context, dim, hnswM, hnswEFConstruct int) error {
	name := r.indexName()

	exists, err := r.store.IndexExists(ctx, name)
	if err != nil {
		return fmt.Errorf("check index %s: %w", name, err)
	}
	if exists {
		return nil
	}

	def, err := buildIndexDefinition(name, r.keyPrefix, dim, hnswM, hnswEFConstruct)
	if err != nil {
		return fmt.Errorf("build index %s: %w", name, err)
	}

	if err := r.store.CreateIndex(ctx, def); err != nil {
		if errors.Is(err, db.ErrIndexExists) {
			return nil
		}
		return fmt.Errorf("create index %s: %w", name, err)
	}
	return nil
}

// IndexReady reports whether the chunk FT index exists.
func (r *Repo) IndexReady(ctx context.Context) (bool, error) {
	return r.store.IndexExists(ctx, r.indexName())
}

// loadDocument scans a document's chunk keys, loads them and verifies the
// tenant. Returns domain.ErrDocumentNotFound when no chunks exist and
// domain.ErrUnauthorized when they belong to another user.
func (r *Repo) loadDocument(ctx context.Context, userID, docID string) ([]string, []map[string]string, error) {
	pattern := r.chunkKeyPattern(docID)

	keys, err := r.store.Scan(ctx, pattern)
	if err != nil {
		return nil, nil, fmt.Errorf("scan %s: %w", pattern, err)
	}
	if len(keys) == 0 {
		return nil, nil, domain.ErrDocumentNotFound
	}

	fields, err := r.store.HGetAllMulti(ctx, keys)
	if err != nil {
		return nil, nil, fmt.Errorf("load chunks %s: %w", docID, err)
	}

	for _, m := range fields {
		if owner, ok := m[fieldUserID]; ok && owner != userID {
			return nil, nil, domain.ErrUnauthorized
		}
	}
	return keys, fields, nil
}

func (r *Repo) chunkKey(docID string, index int) string {
	return fmt.Sprintf("%schunk:%s:%d", r.keyPrefix, docID, index)
}

func (r *Repo) chunkKeyPattern(docID string) string {
	return fmt.Sprintf("%schunk:%s:*", r.keyPrefix, docID)
}

func (r *Repo) indexName() string {
	return fmt.Sprintf("%schunks:idx", r.keyPrefix)
}

// DocumentIDFromKey recovers the document ID from a chunk key.
func (r *Repo) DocumentIDFromKey(key string) string {
	rest := strings.TrimPrefix(key, r.keyPrefix+"chunk:")
	if i := strings.LastIndexByte(rest, ':'); i >= 0 {
		return rest[:i]
	}
	return rest
}
