package port

import "errors"

// Sentinel errors used across ports. Handlers map these to HTTP status codes.
var (
	ErrRepositoryUnavailable  = errors.New("repository unavailable or empty")
	ErrAuthenticationRequired = errors.New("authentication required for repository")
	ErrProjectNotFound        = errors.New("project not found")
	ErrInvalidInput           = errors.New("invalid input")
	ErrInvalidQuery           = errors.New("invalid query vector")
	ErrEmbeddingUnavailable   = errors.New("embedding unavailable")
)
