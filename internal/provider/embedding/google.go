package embedding

import (
	"context"
	"fmt"

	"google.golang.org/genai"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"kb-engine/internal/config"
)

type googleAdapter struct {
	model     string
	dimension int32
}

func newGoogleAdapter(model string) *googleAdapter {
	return &googleAdapter{
		model:     model,
		dimension: config.EmbeddingOutputDimensionality,
	}
}

func (a *googleAdapter) pageSize() int { return config.GeminiEmbedPageSize }

// embedPage builds a client per call because the key is conversation-scoped:
// the rotator may hand a different key to the next caller.
func (a *googleAdapter) embedPage(ctx context.Context, texts []string, apiKey string) ([][]float32, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return nil, fmt.Errorf("genai client: %w", err)
	}

	contents := make([]*genai.Content, 0, len(texts))
	for _, text := range texts {
		contents = append(contents, &genai.Content{
			Parts: []*genai.Part{{Text: text}},
		})
	}

	result, err := client.Models.EmbedContent(ctx, a.model, contents, &genai.EmbedContentConfig{
		OutputDimensionality: &a.dimension,
		TaskType:             "RETRIEVAL_DOCUMENT",
	})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, 0, len(result.Embeddings))
	for _, e := range result.Embeddings {
		vectors = append(vectors, e.Values)
	}
	return vectors, nil
}

func (a *googleAdapter) retryable(err error) bool {
	if s, ok := status.FromError(err); ok {
		switch s.Code() {
		case codes.ResourceExhausted, codes.Unavailable:
			return true
		}
	}
	return false
}
