package compose

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"google.golang.org/genai"
)

const (
	providerNameGemini = "gemini"
	mimeTypeJSON       = "application/json"
	geminiUserRole     = "user"
)

// GeminiBackend calls Gemini with a JSON response schema.
type GeminiBackend struct {
	client *genai.Client
}

func NewGeminiBackend(ctx context.Context, apiKey string) (*GeminiBackend, error) {
	client, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
	})
	if err != nil {
		return nil, fmt.Errorf("failed to create Gemini client: %w", err)
	}
	return &GeminiBackend{client: client}, nil
}

func (b *GeminiBackend) Name() string { return providerNameGemini }

func (b *GeminiBackend) Compose(ctx context.Context, req Request) (string, error) {
	transaction := sentry.StartTransaction(ctx, "gemini.compose")
	defer transaction.Finish()
	transaction.SetTag("model", req.Model)

	contents := []*genai.Content{{
		Role:  geminiUserRole,
		Parts: []*genai.Part{{Text: req.Brief}},
	}}
	config := &genai.GenerateContentConfig{
		ResponseMIMEType: mimeTypeJSON,
		ResponseSchema:   geminiScoreSchema(),
	}
	result, err := b.client.Models.GenerateContent(ctx, req.Model, contents, config)
	if err != nil {
		transaction.SetTag("success", "false")
		return "", fmt.Errorf("gemini request failed: %w", err)
	}
	if len(result.Candidates) == 0 || result.Candidates[0].Content == nil ||
		len(result.Candidates[0].Content.Parts) == 0 {
		transaction.SetTag("success", "false")
		return "", fmt.Errorf("no candidates in Gemini response")
	}
	text := result.Candidates[0].Content.Parts[0].Text
	if text == "" {
		return "", fmt.Errorf("gemini response did not include any output text")
	}
	transaction.SetTag("success", "true")
	return text, nil
}
