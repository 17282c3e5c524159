package matcher

import "errors"

// Sentinel errors returned by New. Both are construction-time fatal
// conditions; grounded on internal/rag/service/errors.go's ErrNotImplemented
// sentinel pattern.
var (
	ErrNoBackend    = errors.New("matcher: an embedding backend is required")
	ErrEmptyCatalog = errors.New("matcher: provider catalog is empty")
)
