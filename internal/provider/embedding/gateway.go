package embedding

import (
	"context"
	"fmt"
	"strings"

	"golang.org/x/time/rate"

	"kb-engine/internal/config"
	"kb-engine/internal/domain/kbmodel"
	"kb-engine/internal/metrics"
	"kb-engine/internal/provider/retry"
	"kb-engine/pkg/logging"
)

// Embedder is the contract the ingestion and retrieval pipelines depend on.
// One signature covers single text (batch of one) and bulk ingestion.
type Embedder interface {
	Embed(ctx context.Context, texts []string, provider string, apiKey string) ([][]float32, error)
}

// adapter is one provider's page-limited embedding call.
type adapter interface {
	embedPage(ctx context.Context, texts []string, apiKey string) ([][]float32, error)
	pageSize() int
	retryable(err error) bool
}

// Gateway routes by provider name, re-batches into provider page sizes and
// concatenates results in input order. A failed page aborts the whole call:
// both pipelines require a 1:1 text-to-vector correspondence, partial vectors
// are worse than none.
type Gateway struct {
	limiter *rate.Limiter
	logger  *logging.Logger
	gemini  adapter
	openai  adapter
}

func NewGateway() *Gateway {
	return &Gateway{
		limiter: rate.NewLimiter(rate.Limit(config.EmbedRequestsPerSecond), config.EmbedRequestBurst),
		logger:  logging.New("Embedding Gateway"),
		gemini:  newGoogleAdapter(config.GoogleEmbeddingModel),
		openai:  newOpenAIAdapter(config.OpenAIEmbeddingModel),
	}
}

func (g *Gateway) Embed(ctx context.Context, texts []string, provider string, apiKey string) ([][]float32, error) {
	if len(texts) == 0 {
		return nil, nil
	}

	a, err := g.route(provider)
	if err != nil {
		return nil, err
	}

	pageSize := a.pageSize()
	vectors := make([][]float32, 0, len(texts))

	for i := 0; i < len(texts); i += pageSize {
		end := i + pageSize
		if end > len(texts) {
			end = len(texts)
		}
		page := texts[i:end]

		if err := g.limiter.Wait(ctx); err != nil {
			return nil, fmt.Errorf("%w: %v", kbmodel.ErrEmbeddingFailed, err)
		}

		var pageVectors [][]float32
		err := retry.Do(ctx, config.ProviderRetryAttempts, config.ProviderRetryBackoff, a.retryable, func() error {
			var callErr error
			pageVectors, callErr = a.embedPage(ctx, page, apiKey)
			return callErr
		})
		if err != nil {
			g.logger.Error("embedding page failed", "provider", provider, "page_start", i, "error", err)
			return nil, fmt.Errorf("%w: %s: %v", kbmodel.ErrEmbeddingFailed, provider, err)
		}
		if len(pageVectors) != len(page) {
			return nil, fmt.Errorf("%w: %s returned %d vectors for %d texts",
				kbmodel.ErrEmbeddingFailed, provider, len(pageVectors), len(page))
		}
		vectors = append(vectors, pageVectors...)
	}

	metrics.CountProviderCall("embedding", provider)
	return vectors, nil
}

func (g *Gateway) route(provider string) (adapter, error) {
	name := strings.ToLower(provider)
	switch {
	case strings.Contains(name, "gemini"), strings.Contains(name, "google"):
		return g.gemini, nil
	case strings.Contains(name, "gpt"), strings.Contains(name, "openai"):
		return g.openai, nil
	default:
		return nil, fmt.Errorf("%w: %q", kbmodel.ErrUnknownProvider, provider)
	}
}
