package query

import (
	"context"
	"fmt"
	"time"

	"kb-engine/internal/config"
	"kb-engine/internal/domain/kbmodel"
	"kb-engine/internal/metrics"
	"kb-engine/internal/provider/embedding"
	"kb-engine/internal/vectorstore"
	"kb-engine/pkg/logging"
)

// Assigner is the slice of the credential rotator retrieval needs.
type Assigner interface {
	Assign(ctx context.Context, sessionID, provider string, purpose kbmodel.KeyPurpose) (kbmodel.APIKey, error)
}

// RecordMatcher is the classifier's structured-record second pass.
type RecordMatcher interface {
	Classify(ctx context.Context, queryText, provider, apiKey string) kbmodel.ClassifierResult
	MatchRecords(ctx context.Context, queryText string, candidates []string, provider, apiKey string) []string
}

// Request is one retrieval call. Structured selects the structured-record
// pipeline (vector shortlist, LLM re-filter, scoped re-query).
type Request struct {
	Text          string
	SessionID     string
	EmbedProvider string
	GenProvider   string
	TopK          int
	Structured    bool
}

// Retriever composes embed → classify → filtered vector query. The classifier
// narrows, it never gates: when it yields nothing usable the best unfiltered
// matches still come back.
type Retriever struct {
	embedder   embedding.Embedder
	keys       Assigner
	vectors    vectorstore.Store
	classifier RecordMatcher
	logger     *logging.Logger
}

func NewRetriever(em embedding.Embedder, keys Assigner, vs vectorstore.Store, cl RecordMatcher) *Retriever {
	return &Retriever{
		embedder:   em,
		keys:       keys,
		vectors:    vs,
		classifier: cl,
		logger:     logging.New("Retrieval"),
	}
}

func (r *Retriever) Retrieve(ctx context.Context, req Request) ([]kbmodel.ScoredChunk, error) {
	if req.TopK <= 0 {
		req.TopK = config.DefaultTopK
	}
	log := r.logger.With("session", req.SessionID)

	embedKey, err := r.keys.Assign(ctx, req.SessionID, req.EmbedProvider, kbmodel.PurposeEmbedding)
	if err != nil {
		return nil, err
	}

	start := time.Now()
	vectors, err := r.embedder.Embed(ctx, []string{req.Text}, req.EmbedProvider, embedKey.Value)
	metrics.CaptureExecutionMetrics("embedding", time.Since(start))
	if err != nil {
		return nil, err
	}
	if len(vectors) != 1 {
		return nil, fmt.Errorf("%w: expected one query vector, got %d", kbmodel.ErrEmbeddingFailed, len(vectors))
	}
	queryVector := vectors[0]

	if req.Structured {
		return r.retrieveStructured(ctx, req, queryVector)
	}

	genKey := r.generationKey(ctx, req)
	filter := r.classifier.Classify(ctx, req.Text, req.GenProvider, genKey)

	var vf *vectorstore.Filter
	if !filter.IsZero() {
		vf = &vectorstore.Filter{
			CategoryID: filter.CategoryID,
			FileNames:  filter.FileNames,
		}
		log.Debug("search narrowed", "category", filter.CategoryID, "files", len(filter.FileNames))
	}

	results, err := r.queryStore(ctx, queryVector, req.TopK, vf)
	if err != nil {
		return nil, err
	}
	if len(results) == 0 && vf != nil {
		// the proposed filter excluded everything; fall back to the corpus
		log.Debug("filtered search empty, retrying unfiltered")
		return r.queryStore(ctx, queryVector, req.TopK, nil)
	}
	return results, nil
}

// retrieveStructured runs the catalog-entry pipeline: a vector shortlist of
// candidate record names, an LLM pass picking the entries that actually match
// the intent, then a re-query scoped to those names. An unusable second pass
// keeps the shortlist.
func (r *Retriever) retrieveStructured(ctx context.Context, req Request, queryVector []float32) ([]kbmodel.ScoredChunk, error) {
	candidates, err := r.queryStore(ctx, queryVector, req.TopK, nil)
	if err != nil {
		return nil, err
	}
	if len(candidates) == 0 {
		return nil, nil
	}

	names := make([]string, 0, len(candidates))
	for _, c := range candidates {
		if c.Metadata.ProcedureName != "" {
			names = append(names, c.Metadata.ProcedureName)
		}
	}

	genKey := r.generationKey(ctx, req)
	matched := r.classifier.MatchRecords(ctx, req.Text, names, req.GenProvider, genKey)
	if len(matched) == 0 {
		return candidates, nil
	}

	results, err := r.queryStore(ctx, queryVector, req.TopK, &vectorstore.Filter{ProcedureNames: matched})
	if err != nil || len(results) == 0 {
		// second pass is best-effort on top of an already-valid shortlist
		return candidates, nil
	}
	return results, nil
}

// generationKey is best-effort: a missing generation pool only costs the
// classification stage, which downgrades to unfiltered search anyway.
func (r *Retriever) generationKey(ctx context.Context, req Request) string {
	key, err := r.keys.Assign(ctx, req.SessionID, req.GenProvider, kbmodel.PurposeGeneration)
	if err != nil {
		r.logger.Warn("no generation key, classification will be skipped", "provider", req.GenProvider, "error", err)
		return ""
	}
	return key.Value
}

func (r *Retriever) queryStore(ctx context.Context, vector []float32, k int, filter *vectorstore.Filter) ([]kbmodel.ScoredChunk, error) {
	start := time.Now()
	defer func() { metrics.CaptureExecutionMetrics("vector_search", time.Since(start)) }()
	return r.vectors.Query(ctx, vector, k, filter)
}
