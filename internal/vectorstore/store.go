package vectorstore

import (
	"context"

	"kb-engine/internal/domain/kbmodel"
)

// Filter is a conjunction over chunk metadata fields; list fields match any
// of their values. The zero Filter matches nothing from Query's point of
// view and everything from DeleteByFilter's caller is expected to avoid.
type Filter struct {
	KnowledgeID    string
	CategoryID     string
	FileNames      []string
	ProcedureNames []string
}

func (f Filter) IsZero() bool {
	return f.KnowledgeID == "" && f.CategoryID == "" &&
		len(f.FileNames) == 0 && len(f.ProcedureNames) == 0
}

// Store is what ingestion writes and retrieval reads. Every operation that
// reaches the external index wraps failures in ErrStoreUnavailable and is
// safe to retry.
type Store interface {
	Upsert(ctx context.Context, chunks []kbmodel.Chunk) error
	DeleteByFilter(ctx context.Context, filter Filter) error
	Query(ctx context.Context, vector []float32, k int, filter *Filter) ([]kbmodel.ScoredChunk, error)
}
