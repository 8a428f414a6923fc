package llm

import (
	"context"
	"fmt"
	"strings"

	"kb-engine/internal/domain/kbmodel"
	"kb-engine/internal/metrics"
	"kb-engine/pkg/logging"
)

// Generator is the single generation call the engine needs: prompt in, text
// out, with a caller-supplied key from the rotator.
type Generator interface {
	Generate(ctx context.Context, prompt string, provider string, apiKey string) (string, error)
}

type generator interface {
	generate(ctx context.Context, prompt string, apiKey string) (string, error)
}

// Gateway mirrors the embedding gateway's routing: a name containing "gemini"
// goes to the genai adapter, "gpt"/"openai" to the openai one.
type Gateway struct {
	logger *logging.Logger
	gemini generator
	openai generator
}

func NewGateway() *Gateway {
	return &Gateway{
		logger: logging.New("LLM Gateway"),
		gemini: newGeminiGenerator(),
		openai: newGPTGenerator(),
	}
}

func (g *Gateway) Generate(ctx context.Context, prompt string, provider string, apiKey string) (string, error) {
	name := strings.ToLower(provider)

	var gen generator
	switch {
	case strings.Contains(name, "gemini"), strings.Contains(name, "google"):
		gen = g.gemini
	case strings.Contains(name, "gpt"), strings.Contains(name, "openai"):
		gen = g.openai
	default:
		return "", fmt.Errorf("%w: %q", kbmodel.ErrUnknownProvider, provider)
	}

	out, err := gen.generate(ctx, prompt, apiKey)
	if err != nil {
		g.logger.Error("generation call failed", "provider", provider, "error", err)
		return "", err
	}
	metrics.CountProviderCall("generation", provider)
	return out, nil
}
