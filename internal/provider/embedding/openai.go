package embedding

import (
	"context"
	"errors"

	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"

	"kb-engine/internal/config"
)

type openaiAdapter struct {
	model string
}

func newOpenAIAdapter(model string) *openaiAdapter {
	return &openaiAdapter{model: model}
}

func (a *openaiAdapter) pageSize() int { return config.OpenAIEmbedPageSize }

func (a *openaiAdapter) embedPage(ctx context.Context, texts []string, apiKey string) ([][]float32, error) {
	client := openai.NewClient(option.WithAPIKey(apiKey))

	resp, err := client.Embeddings.New(ctx, openai.EmbeddingNewParams{
		Model: openai.EmbeddingModel(a.model),
		Input: openai.EmbeddingNewParamsInputUnion{
			OfArrayOfStrings: texts,
		},
		Dimensions: openai.Int(int64(config.EmbeddingOutputDimensionality)),
	})
	if err != nil {
		return nil, err
	}

	vectors := make([][]float32, len(texts))
	for _, item := range resp.Data {
		vec := make([]float32, len(item.Embedding))
		for i, v := range item.Embedding {
			vec[i] = float32(v)
		}
		// responses carry an index, order in Data is not guaranteed
		if int(item.Index) < len(vectors) {
			vectors[item.Index] = vec
		}
	}
	return vectors, nil
}

func (a *openaiAdapter) retryable(err error) bool {
	var apiErr *openai.Error
	if errors.As(err, &apiErr) {
		return apiErr.StatusCode == 429 || apiErr.StatusCode >= 500
	}
	return false
}
