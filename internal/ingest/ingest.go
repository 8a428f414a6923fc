package ingest

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"

	"kb-engine/internal/chunker"
	"kb-engine/internal/config"
	"kb-engine/internal/data/cache"
	"kb-engine/internal/domain/kbmodel"
	"kb-engine/internal/extract"
	"kb-engine/internal/metrics"
	"kb-engine/internal/provider/embedding"
	"kb-engine/internal/vectorstore"
	"kb-engine/pkg/logging"
)

type State string

const (
	StateReceived  State = "Received"
	StateExtracted State = "Extracted"
	StateChunked   State = "Chunked"
	StateEmbedded  State = "Embedded"
	StateStored    State = "Stored"
	StateCommitted State = "Committed"
	StateFailed    State = "Failed"
)

// Assigner is the slice of the credential rotator ingestion needs.
type Assigner interface {
	Assign(ctx context.Context, sessionID, provider string, purpose kbmodel.KeyPurpose) (kbmodel.APIKey, error)
}

// Request describes one document to ingest. Doc.ID may be empty; the
// orchestrator assigns one.
type Request struct {
	Doc       kbmodel.SourceDocument
	FilePath  string // KindFile / KindStructuredRecords
	RichText  string // KindRichText
	Provider  string // embedding provider name
	SessionID string // key affinity; empty rotates statelessly
}

// Outcome is one file's result in a multi-file upload: callers learn exactly
// which files failed and why.
type Outcome struct {
	FileName string
	DocID    string
	Chunks   int
	State    State
	Err      error
}

type Orchestrator struct {
	docs     kbmodel.DocumentStore
	extract  *extract.Extractor
	embedder embedding.Embedder
	keys     Assigner
	vectors  vectorstore.Store
	cache    *cache.Store // optional, classifier catalog invalidation
	logger   *logging.Logger

	chunkSize    int
	chunkOverlap int
}

func New(docs kbmodel.DocumentStore, ex *extract.Extractor, em embedding.Embedder, keys Assigner, vs vectorstore.Store, cacheStore *cache.Store) *Orchestrator {
	return &Orchestrator{
		docs:         docs,
		extract:      ex,
		embedder:     em,
		keys:         keys,
		vectors:      vs,
		cache:        cacheStore,
		logger:       logging.New("Ingestion"),
		chunkSize:    config.ChunkSize,
		chunkOverlap: config.ChunkOverlap,
	}
}

// IngestAll processes a batch independently per file: one bad document never
// aborts its siblings.
func (o *Orchestrator) IngestAll(ctx context.Context, reqs []Request) []Outcome {
	outcomes := make([]Outcome, 0, len(reqs))
	for _, req := range reqs {
		outcomes = append(outcomes, o.Ingest(ctx, req))
	}
	return outcomes
}

// Ingest runs one document through Received→Committed. A failure after the
// bookkeeping row was created compensates by deleting the row and any chunks
// already written, so no document is ever left in a half-ingested success
// state. The pipeline finishes even if the caller disconnects; partial writes
// are cleaned up here, not left for a retry to discover.
func (o *Orchestrator) Ingest(ctx context.Context, req Request) Outcome {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("ingest", time.Since(start)) }()

	ctx = context.WithoutCancel(ctx)

	doc := req.Doc
	if doc.ID == "" {
		doc.ID = uuid.New().String()
	}
	doc.Active = true
	now := time.Now()
	doc.CreatedAt, doc.UpdatedAt = now, now

	log := o.logger.With("doc", doc.ID, "file", doc.FileName)
	outcome := Outcome{FileName: doc.FileName, DocID: doc.ID, State: StateReceived}

	if err := o.docs.Create(ctx, doc); err != nil {
		return o.fail(ctx, outcome, false, fmt.Errorf("creating document record: %w", err))
	}

	chunks, err := o.buildChunks(doc, req)
	if err != nil {
		return o.fail(ctx, outcome, true, err)
	}
	outcome.State = StateChunked
	log.Debug("document chunked", "chunks", len(chunks))

	key, err := o.keys.Assign(ctx, req.SessionID, req.Provider, kbmodel.PurposeEmbedding)
	if err != nil {
		return o.fail(ctx, outcome, true, err)
	}

	texts := make([]string, len(chunks))
	for i, c := range chunks {
		texts[i] = c.Content
	}
	vectors, err := o.embedder.Embed(ctx, texts, req.Provider, key.Value)
	if err != nil {
		return o.fail(ctx, outcome, true, err)
	}
	for i := range chunks {
		chunks[i].Vector = vectors[i]
	}
	outcome.State = StateEmbedded

	if err := o.vectors.Upsert(ctx, chunks); err != nil {
		return o.fail(ctx, outcome, true, err)
	}
	outcome.State = StateStored

	o.invalidateCatalog()

	outcome.State = StateCommitted
	outcome.Chunks = len(chunks)
	metrics.CountIngestOutcome("committed")
	log.Info("document committed", "chunks", len(chunks))
	return outcome
}

// Reingest replaces a document's content: delete everything under its
// knowledge_id, then a fresh Received→Committed run. The two steps are not
// one transaction; a crash in between leaves the document chunk-less until
// the next successful run, which is the accepted consistency model.
func (o *Orchestrator) Reingest(ctx context.Context, req Request) Outcome {
	ctx = context.WithoutCancel(ctx)

	if req.Doc.ID == "" {
		return Outcome{FileName: req.Doc.FileName, State: StateFailed, Err: kbmodel.ErrDocumentNotFound}
	}
	if err := o.vectors.DeleteByFilter(ctx, vectorstore.Filter{KnowledgeID: req.Doc.ID}); err != nil {
		return Outcome{FileName: req.Doc.FileName, DocID: req.Doc.ID, State: StateFailed, Err: err}
	}
	if err := o.docs.Delete(ctx, req.Doc.ID); err != nil {
		o.logger.Warn("stale document row could not be removed before re-ingest", "doc", req.Doc.ID, "error", err)
	}
	return o.Ingest(ctx, req)
}

// DeleteDocument removes a document and every chunk that references it.
func (o *Orchestrator) DeleteDocument(ctx context.Context, docID string) error {
	if _, ok, err := o.docs.Get(ctx, docID); err != nil {
		return err
	} else if !ok {
		return fmt.Errorf("%w: %s", kbmodel.ErrDocumentNotFound, docID)
	}

	if err := o.vectors.DeleteByFilter(ctx, vectorstore.Filter{KnowledgeID: docID}); err != nil {
		return err
	}
	if err := o.docs.Delete(ctx, docID); err != nil {
		return err
	}
	o.invalidateCatalog()
	return nil
}

// DeleteCategory cascades: every document under the category and every chunk
// under those documents.
func (o *Orchestrator) DeleteCategory(ctx context.Context, categoryID string) error {
	docs, err := o.docs.ListByCategory(ctx, categoryID)
	if err != nil {
		return err
	}

	if err := o.vectors.DeleteByFilter(ctx, vectorstore.Filter{CategoryID: categoryID}); err != nil {
		return err
	}
	for _, doc := range docs {
		if err := o.docs.Delete(ctx, doc.ID); err != nil {
			return err
		}
	}
	o.invalidateCatalog()
	return nil
}

func (o *Orchestrator) buildChunks(doc kbmodel.SourceDocument, req Request) ([]kbmodel.Chunk, error) {
	switch doc.Kind {
	case kbmodel.KindRichText:
		text, err := extract.SanitizeRichText(req.RichText)
		if err != nil {
			return nil, err
		}
		return o.textChunks(doc, text)

	case kbmodel.KindFile, kbmodel.KindStructuredRecords:
		result, err := o.extract.ExtractFile(req.FilePath)
		if err != nil {
			return nil, err
		}
		if len(result.Records) > 0 {
			return recordChunks(doc, result.Records), nil
		}
		return o.textChunks(doc, result.Text)

	default:
		return nil, fmt.Errorf("%w: source kind %q", kbmodel.ErrUnsupportedFormat, doc.Kind)
	}
}

func (o *Orchestrator) textChunks(doc kbmodel.SourceDocument, text string) ([]kbmodel.Chunk, error) {
	parts := chunker.Split(text, o.chunkSize, o.chunkOverlap)
	if len(parts) == 0 {
		return nil, fmt.Errorf("%w: %s", kbmodel.ErrEmptyContent, doc.FileName)
	}

	chunks := make([]kbmodel.Chunk, len(parts))
	for i, part := range parts {
		chunks[i] = kbmodel.Chunk{
			ID:      uuid.New().String(),
			Content: part,
			Metadata: kbmodel.ChunkMetadata{
				KnowledgeID: doc.ID,
				CategoryID:  doc.CategoryID,
				FileName:    doc.FileName,
				ChunkIndex:  i,
			},
		}
	}
	return chunks, nil
}

// recordChunks maps one structured record to exactly one chunk: the record
// name is the retrievable content, the attributes travel as metadata.
func recordChunks(doc kbmodel.SourceDocument, records []kbmodel.StructuredRecord) []kbmodel.Chunk {
	chunks := make([]kbmodel.Chunk, len(records))
	for i, rec := range records {
		chunks[i] = kbmodel.Chunk{
			ID:      uuid.New().String(),
			Content: rec.Name,
			Metadata: kbmodel.ChunkMetadata{
				KnowledgeID:   doc.ID,
				CategoryID:    doc.CategoryID,
				FileName:      doc.FileName,
				ProcedureName: rec.Name,
				ChunkIndex:    i,
				Extra:         rec.Attributes,
			},
		}
	}
	return chunks
}

// fail records the failure and, when the document row already exists, undoes
// every partial write so no chunk outlives its document and no chunk-less
// document reports success.
func (o *Orchestrator) fail(ctx context.Context, outcome Outcome, compensate bool, err error) Outcome {
	o.logger.Error("ingestion failed", "doc", outcome.DocID, "file", outcome.FileName, "state", string(outcome.State), "error", err)

	if compensate {
		if delErr := o.vectors.DeleteByFilter(ctx, vectorstore.Filter{KnowledgeID: outcome.DocID}); delErr != nil {
			o.logger.Error("compensating chunk delete failed", "doc", outcome.DocID, "error", delErr)
		}
		if delErr := o.docs.Delete(ctx, outcome.DocID); delErr != nil {
			o.logger.Error("compensating document delete failed", "doc", outcome.DocID, "error", delErr)
		}
	}

	metrics.CountIngestOutcome("failed")
	outcome.State = StateFailed
	outcome.Err = err
	return outcome
}

// invalidateCatalog refreshes the classifier's view in the background with
// its own context; the triggering request never waits on it.
func (o *Orchestrator) invalidateCatalog() {
	if o.cache == nil {
		return
	}
	store := o.cache
	go func() {
		ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := store.DelPattern(ctx, "catalog:*"); err != nil {
			o.logger.Warn("catalog cache invalidation failed", "error", err)
		}
	}()
}
