package lexrag

import (
	"context"
	"fmt"
	"time"
)

// IngestRequest describes one document to chunk, embed, and index.
type IngestRequest struct {
	UserID   string // owning tenant, required
	MatterID string // optional matter grouping
	Name     string // display name used in citations
	Text     string // raw document text
}

// IngestResult reports what ingest produced for one document.
// EmbeddedChunks < Chunks means some embedding batches failed; those
// chunks are stored without vectors and picked up by Reembed.
type IngestResult struct {
	DocumentID     string
	Chunks         int
	EmbeddedChunks int
}

// Ingest chunks the document, embeds the chunks, and stores everything
// under the request's tenant scope.
func (c *Client) Ingest(ctx context.Context, req IngestRequest) (_ IngestResult, err error) {
	start := time.Now()
	defer func() { c.obs.observe("ingest", start, err) }()

	res, err := c.ingestSvc.Ingest(ctx, req.UserID, req.MatterID, req.Name, req.Text)
	if err != nil {
		return IngestResult{}, fmt.Errorf("ingest: %w", err)
	}
	return IngestResult{
		DocumentID:     res.DocumentID,
		Chunks:         res.Chunks,
		EmbeddedChunks: res.EmbeddedChunks,
	}, nil
}

// Reembed retries embedding for the document's chunks that have no
// vector yet. Returns how many chunks were embedded.
func (c *Client) Reembed(ctx context.Context, userID, docID string) (_ int, err error) {
	start := time.Now()
	defer func() { c.obs.observe("reembed", start, err) }()

	n, err := c.ingestSvc.Reembed(ctx, userID, docID)
	if err != nil {
		return 0, fmt.Errorf("reembed: %w", err)
	}
	return n, nil
}

// DeleteDocument removes a document and all its chunks.
func (c *Client) DeleteDocument(ctx context.Context, userID, docID string) (err error) {
	start := time.Now()
	defer func() { c.obs.observe("delete_document", start, err) }()

	if err = c.ingestSvc.Delete(ctx, userID, docID); err != nil {
		return fmt.Errorf("delete document: %w", err)
	}
	return nil
}
