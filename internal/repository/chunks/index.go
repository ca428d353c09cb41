package chunks

import (
	"fmt"

	"github.com/atrium-law/lexrag/internal/db"
)

// buildIndexDefinition describes the single chunk index: tenant and document
// TAG pre-filters, chunk position as NUMERIC, HNSW/COSINE vector field.
func buildIndexDefinition(name, keyPrefix string, dim, hnswM, hnswEFConstruct int) (*db.IndexDefinition, error) {
	def, err := db.NewIndex(name).
		Prefix(fmt.Sprintf("%schunk:", keyPrefix)).
		Tag(fieldUserID).
		Tag(fieldMatterID).
		Tag(fieldDocumentID).
		Numeric(fieldChunkIndex).
		VectorHNSW(fieldVector, dim, db.DistanceCosine, hnswM, hnswEFConstruct).
		Build()
	if err != nil {
		return nil, err
	}
	return def, nil
}
