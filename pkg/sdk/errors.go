package lexrag

import "github.com/atrium-law/lexrag/internal/domain"

// Sentinel errors re-exported from the domain layer.
// Use errors.Is() to check.
var (
	ErrEmptyDocument          = domain.ErrEmptyDocument
	ErrDocumentNotFound       = domain.ErrDocumentNotFound
	ErrUnauthorized           = domain.ErrUnauthorized
	ErrInvalidQuery           = domain.ErrInvalidQuery
	ErrProviderError          = domain.ErrProviderError
	ErrProviderUnavailable    = domain.ErrProviderUnavailable
	ErrEmbeddingQuotaExceeded = domain.ErrEmbeddingQuotaExceeded
)
