package kbmodel

import "context"

// DocumentStore is the narrow view of the relational store the engine needs.
// Foreign-key integrity between categories and documents is the caller's
// problem; the engine only reads and writes rows.
type DocumentStore interface {
	Create(ctx context.Context, doc SourceDocument) error
	Get(ctx context.Context, id string) (SourceDocument, bool, error)
	Delete(ctx context.Context, id string) error
	ListByCategory(ctx context.Context, categoryID string) ([]SourceDocument, error)
	Catalog(ctx context.Context) (Catalog, error)
}

// KeyConfigSource surfaces the administratively configured provider keys. The
// rotator caches what this returns; Invalidate must be called when the
// configuration changes.
type KeyConfigSource interface {
	Keys(ctx context.Context, provider string, purpose KeyPurpose) ([]APIKey, error)
}
