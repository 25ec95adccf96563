// Package inference holds the LLM clients behind ports.InferenceClient.
package inference

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/melih/lighthouse-forge/internal/config"
	"github.com/melih/lighthouse-forge/internal/core/ports"
)

var errEmptyCompletion = errors.New("no completion received from LLM")

// New builds the client for cfg.Provider.
func New(ctx context.Context, cfg config.InferenceConfig) (ports.InferenceClient, error) {
	switch strings.ToLower(cfg.Provider) {
	case "", "bedrock":
		return NewBedrockClient(ctx, cfg)
	case "azure":
		return NewAzureClient(cfg)
	case "gemini":
		return NewGeminiClient(ctx, cfg)
	case "openai":
		return NewOpenAIClient(cfg), nil
	default:
		return nil, fmt.Errorf("unknown inference provider %q", cfg.Provider)
	}
}
