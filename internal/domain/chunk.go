package domain

import (
	"fmt"
	"strings"
)

// MaxDocumentSize is the maximum document text size in bytes accepted at ingest.
const MaxDocumentSize = 10 << 20 // 10MB

// Chunk is a bounded, positioned substring of a source document.
// It is the atomic retrieval unit: created once at ingest, immutable after.
type Chunk struct {
	Index         int
	Content       string
	StartChar     int
	EndChar       int
	SectionHeader string
	IsFirst       bool
	IsLast        bool
}

// EmbeddedChunk is a Chunk plus its embedding vector. Vector is nil when the
// embedding provider failed for the chunk's batch; retrieval coverage for that
// chunk is degraded until a re-embed pass fills it in.
type EmbeddedChunk struct {
	Chunk
	Vector []float32
}

// Embedded reports whether the chunk carries a vector.
func (c *EmbeddedChunk) Embedded() bool { return len(c.Vector) > 0 }

// Document is the ingest aggregate: owner scope plus source text.
type Document struct {
	id       string
	userID   string
	matterID string
	name     string
	text     string
}

// NewDocument validates and creates a Document for ingest.
// UserID is the tenant key and is always required; MatterID is an optional
// sub-scope. Text must be non-empty after trimming.
func NewDocument(id, userID, matterID, name, text string) (Document, error) {
	if id == "" {
		return Document{}, fmt.Errorf("document ID is required")
	}
	if userID == "" {
		return Document{}, fmt.Errorf("user ID is required")
	}
	if strings.TrimSpace(text) == "" {
		return Document{}, fmt.Errorf("%w: document text is empty", ErrEmptyDocument)
	}
	if len(text) > MaxDocumentSize {
		return Document{}, fmt.Errorf("document too large (max %d bytes)", MaxDocumentSize)
	}
	if name == "" {
		name = id
	}
	return Document{id: id, userID: userID, matterID: matterID, name: name, text: text}, nil
}

// ID returns the document identifier.
func (d *Document) ID() string { return d.id }

// UserID returns the owning tenant.
func (d *Document) UserID() string { return d.userID }

// MatterID returns the optional matter sub-scope.
func (d *Document) MatterID() string { return d.matterID }

// Name returns the display name.
func (d *Document) Name() string { return d.name }

// Text returns the raw source text.
func (d *Document) Text() string { return d.text }
