package llm

import (
	"context"
	"fmt"

	"google.golang.org/genai"

	"kb-engine/internal/config"
)

type geminiGenerator struct {
	model string
}

func newGeminiGenerator() *geminiGenerator {
	return &geminiGenerator{model: config.GeminiModelName}
}

func (g *geminiGenerator) generate(ctx context.Context, prompt string, apiKey string) (string, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{APIKey: apiKey})
	if err != nil {
		return "", fmt.Errorf("genai client: %w", err)
	}

	result, err := client.Models.GenerateContent(ctx, g.model, genai.Text(prompt), nil)
	if err != nil {
		return "", err
	}
	return result.Text(), nil
}
