package chunks

import (
	"encoding/binary"
	"math"
	"strconv"

	"github.com/atrium-law/lexrag/internal/db"
	"github.com/atrium-law/lexrag/internal/domain"
	"github.com/atrium-law/lexrag/internal/domain/search"
)

// Hash field names. System fields carry a double underscore so they never
// collide with user metadata. The vector field is plain "vector" because
// FT.SEARCH derives the KNN score key from it ("__vector_score").
const (
	fieldContent      = "__content"
	fieldUserID       = "__user_id"
	fieldMatterID     = "__matter_id"
	fieldDocumentID   = "__document_id"
	fieldDocumentName = "__document_name"
	fieldChunkIndex   = "__chunk_index"
	fieldStartChar    = "__start_char"
	fieldEndChar      = "__end_char"
	fieldSection      = "__section"
	fieldIsFirst      = "__is_first"
	fieldIsLast       = "__is_last"
	fieldVector       = "vector"

	vectorScoreField = "__vector_score"
)

// StoredChunk is a persisted chunk as read back from the store.
type StoredChunk struct {
	Key     string
	Index   int
	Content string
}

// buildHashFields flattens a document chunk into an HSET field map.
func buildHashFields(doc *domain.Document, c *domain.EmbeddedChunk) map[string]string {
	m := map[string]string{
		fieldContent:      c.Content,
		fieldUserID:       doc.UserID(),
		fieldDocumentID:   doc.ID(),
		fieldDocumentName: doc.Name(),
		fieldChunkIndex:   strconv.Itoa(c.Index),
		fieldStartChar:    strconv.Itoa(c.StartChar),
		fieldEndChar:      strconv.Itoa(c.EndChar),
		fieldIsFirst:      strconv.FormatBool(c.IsFirst),
		fieldIsLast:       strconv.FormatBool(c.IsLast),
	}
	if doc.MatterID() != "" {
		m[fieldMatterID] = doc.MatterID()
	}
	if c.SectionHeader != "" {
		m[fieldSection] = c.SectionHeader
	}
	if c.Embedded() {
		m[fieldVector] = vectorToBytes(c.Vector)
	}
	return m
}

// parseEntry converts a KNN search entry into a domain search result.
func parseEntry(entry db.SearchEntry) search.Result {
	res := search.Result{
		ID:           entry.Key,
		DocumentID:   entry.Fields[fieldDocumentID],
		DocumentName: entry.Fields[fieldDocumentName],
		Content:      entry.Fields[fieldContent],
		Similarity:   entry.Score,
	}
	if v, err := strconv.Atoi(entry.Fields[fieldChunkIndex]); err == nil {
		res.ChunkIndex = v
	}
	if section := entry.Fields[fieldSection]; section != "" {
		res.Metadata = map[string]string{"section": section}
	}
	return res
}

// parseChunk converts raw hash fields back into a domain chunk.
func parseChunk(m map[string]string) domain.Chunk {
	c := domain.Chunk{
		Content:       m[fieldContent],
		SectionHeader: m[fieldSection],
		IsFirst:       m[fieldIsFirst] == "true",
		IsLast:        m[fieldIsLast] == "true",
	}
	if v, err := strconv.Atoi(m[fieldChunkIndex]); err == nil {
		c.Index = v
	}
	if v, err := strconv.Atoi(m[fieldStartChar]); err == nil {
		c.StartChar = v
	}
	if v, err := strconv.Atoi(m[fieldEndChar]); err == nil {
		c.EndChar = v
	}
	return c
}

// parseStoredChunk converts raw hash fields back into a StoredChunk.
func parseStoredChunk(key string, m map[string]string) StoredChunk {
	c := StoredChunk{Key: key, Content: m[fieldContent]}
	if v, err := strconv.Atoi(m[fieldChunkIndex]); err == nil {
		c.Index = v
	}
	return c
}

// vectorToBytes serializes []float32 to a binary string (4 bytes per float, little-endian).
func vectorToBytes(v []float32) string {
	buf := make([]byte, len(v)*4)
	for i, f := range v {
		binary.LittleEndian.PutUint32(buf[i*4:], math.Float32bits(f))
	}
	return string(buf)
}
