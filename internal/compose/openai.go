package compose

import (
	"context"
	"fmt"

	"github.com/getsentry/sentry-go"
	"github.com/openai/openai-go"
	"github.com/openai/openai-go/option"
	"github.com/openai/openai-go/responses"
)

const providerNameOpenAI = "openai"

// OpenAIBackend calls the Responses API with a strict JSON schema format.
type OpenAIBackend struct {
	client *openai.Client
}

func NewOpenAIBackend(apiKey string, opts ...option.RequestOption) *OpenAIBackend {
	opts = append([]option.RequestOption{option.WithAPIKey(apiKey)}, opts...)
	client := openai.NewClient(opts...)
	return &OpenAIBackend{client: &client}
}

func (b *OpenAIBackend) Name() string { return providerNameOpenAI }

func (b *OpenAIBackend) buildParams(req Request) responses.ResponseNewParams {
	return responses.ResponseNewParams{
		Model: req.Model,
		Input: responses.ResponseNewParamsInputUnion{
			OfString: openai.String(req.Brief),
		},
		Text: responses.ResponseTextConfigParam{
			Format: responses.ResponseFormatTextConfigParamOfJSONSchema(schemaName, req.Schema),
		},
	}
}

func (b *OpenAIBackend) Compose(ctx context.Context, req Request) (string, error) {
	transaction := sentry.StartTransaction(ctx, "openai.compose")
	defer transaction.Finish()
	transaction.SetTag("model", req.Model)

	resp, err := b.client.Responses.New(ctx, b.buildParams(req))
	if err != nil {
		transaction.SetTag("success", "false")
		return "", fmt.Errorf("openai request failed: %w", err)
	}
	text := resp.OutputText()
	if text == "" {
		transaction.SetTag("success", "false")
		return "", fmt.Errorf("openai response did not include any output text")
	}
	transaction.SetTag("success", "true")
	return text, nil
}
