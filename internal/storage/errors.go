package storage

import "errors"

var (
	ErrQdrantUnreachable = errors.New("qdrant server unreachable")
	ErrDimensionMismatch = errors.New("embedding dimension mismatch")
	ErrNotConfigured     = errors.New("vector store not configured")
	ErrEmptyNamespace    = errors.New("namespace must not be empty")
)
