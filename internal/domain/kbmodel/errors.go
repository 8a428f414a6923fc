package kbmodel

import "errors"

var (
	ErrUnsupportedFormat = errors.New("unsupported document format")
	ErrExtractionFailed  = errors.New("document extraction failed")
	ErrEmptyContent      = errors.New("document produced no content")
	ErrEmbeddingFailed   = errors.New("embedding call failed")
	ErrUnknownProvider   = errors.New("unknown provider")
	ErrNoKeysConfigured  = errors.New("no api keys configured for pool")
	ErrStoreUnavailable  = errors.New("vector store unavailable")
	ErrDocumentNotFound  = errors.New("source document not found")
)
