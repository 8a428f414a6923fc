package engine

import (
	"context"

	"kb-engine/internal/domain/kbmodel"
	"kb-engine/internal/ingest"
	"kb-engine/internal/query"
)

// Engine is the single facade the worker pool and the surrounding system talk
// to: the ingestion orchestrator on the write side, the retriever on the read
// side.
type Engine struct {
	ingestion *ingest.Orchestrator
	retriever *query.Retriever
}

func New(ingestion *ingest.Orchestrator, retriever *query.Retriever) *Engine {
	return &Engine{ingestion: ingestion, retriever: retriever}
}

func (e *Engine) Ingest(ctx context.Context, req ingest.Request) ingest.Outcome {
	return e.ingestion.Ingest(ctx, req)
}

func (e *Engine) IngestAll(ctx context.Context, reqs []ingest.Request) []ingest.Outcome {
	return e.ingestion.IngestAll(ctx, reqs)
}

func (e *Engine) Reingest(ctx context.Context, req ingest.Request) ingest.Outcome {
	return e.ingestion.Reingest(ctx, req)
}

func (e *Engine) DeleteDocument(ctx context.Context, docID string) error {
	return e.ingestion.DeleteDocument(ctx, docID)
}

func (e *Engine) DeleteCategory(ctx context.Context, categoryID string) error {
	return e.ingestion.DeleteCategory(ctx, categoryID)
}

func (e *Engine) Retrieve(ctx context.Context, req query.Request) ([]kbmodel.ScoredChunk, error) {
	return e.retriever.Retrieve(ctx, req)
}
