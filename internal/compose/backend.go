package compose

import (
	"context"
	"fmt"
	"strings"
)

// NewBackend builds the backend named by provider ("gemini" or "openai").
func NewBackend(ctx context.Context, provider, geminiKey, openaiKey string) (Backend, error) {
	switch strings.ToLower(strings.TrimSpace(provider)) {
	case providerNameGemini, "":
		if geminiKey == "" {
			return nil, fmt.Errorf("gemini API key not configured")
		}
		return NewGeminiBackend(ctx, geminiKey)
	case providerNameOpenAI:
		if openaiKey == "" {
			return nil, fmt.Errorf("openai API key not configured")
		}
		return NewOpenAIBackend(openaiKey), nil
	default:
		return nil, fmt.Errorf("unknown provider: %s (allowed: gemini, openai)", provider)
	}
}
