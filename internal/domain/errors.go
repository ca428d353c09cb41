package domain

import "errors"

var (
	// ErrEmptyDocument signals ingest input with no usable text.
	ErrEmptyDocument = errors.New("empty document")
	// ErrDocumentNotFound signals a missing document.
	ErrDocumentNotFound = errors.New("document not found")
	// ErrUnauthorized signals a tenant mismatch on a scoped resource.
	ErrUnauthorized = errors.New("unauthorized")
	// ErrInvalidQuery signals a malformed clause query.
	ErrInvalidQuery = errors.New("invalid clause query")
	// ErrProviderError signals an inference provider failure
	// (embedding, rerank, extractive QA, or classification).
	ErrProviderError = errors.New("inference provider error")
	// ErrProviderUnavailable signals a provider that is not configured.
	ErrProviderUnavailable = errors.New("inference provider not configured")
	// ErrEmbeddingQuotaExceeded signals the embedding token budget ran out.
	ErrEmbeddingQuotaExceeded = errors.New("embedding token quota exceeded")
)
