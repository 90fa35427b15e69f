package ai

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/rs/zerolog"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/ports/adapter"
	"video-analyzer/internal/infra/metrics"
)

// Compile-time assurance this adapter satisfies the port
var _ adapter.StructuredGenerator = (*OpenAIAdapter)(nil)

// OpenAIAdapter implements adapter.StructuredGenerator with Chat Completions
// structured outputs. Any OpenAI-compatible gateway works through baseURL.
type OpenAIAdapter struct {
	client openai.Client
	model  string
	log    *zerolog.Logger
}

func NewOpenAIAdapter(apiKey, baseURL, model string, timeout time.Duration, logger *zerolog.Logger) (*OpenAIAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = "gpt-4o-mini"
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	if timeout > 0 {
		opts = append(opts, option.WithRequestTimeout(timeout))
	}
	l := logger.With().Str("component", "OpenAIAdapter").Logger()
	return &OpenAIAdapter{client: openai.NewClient(opts...), model: model, log: &l}, nil
}

func (o *OpenAIAdapter) GenerateJSON(ctx context.Context, req adapter.StructuredRequest) ([]byte, adapter.Usage, error) {
	model := modelOrDefault(req.Model, o.model)

	msgs := make([]openai.ChatCompletionMessageParamUnion, 0, 2)
	if req.System != "" {
		msgs = append(msgs, openai.SystemMessage(req.System))
	}
	parts := []openai.ChatCompletionContentPartUnionParam{openai.TextContentPart(req.Prompt)}
	if img := imageReference(req); img != "" {
		parts = append(parts, openai.ImageContentPart(openai.ChatCompletionContentPartImageImageURLParam{URL: img}))
	}
	msgs = append(msgs, openai.UserMessage(parts))

	params := openai.ChatCompletionNewParams{
		Model:    openai.ChatModel(model),
		Messages: msgs,
	}
	if req.Schema != nil {
		params.ResponseFormat = openai.ChatCompletionNewParamsResponseFormatUnion{
			OfJSONSchema: &openai.ResponseFormatJSONSchemaParam{
				JSONSchema: openai.ResponseFormatJSONSchemaJSONSchemaParam{
					Name:   schemaName(req.SchemaName),
					Schema: req.Schema,
					Strict: openai.Bool(true),
				},
			},
		}
	}

	start := time.Now()
	resp, err := o.client.Chat.Completions.New(ctx, params)
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		metrics.ObserveAICall("openai", model, 0, 0, 0, latency, false)
		return nil, adapter.Usage{}, fmt.Errorf("openai: %w", err)
	}
	u := adapter.Usage{
		PromptTokens:     int(resp.Usage.PromptTokens),
		CompletionTokens: int(resp.Usage.CompletionTokens),
		TotalTokens:      int(resp.Usage.TotalTokens),
	}
	metrics.ObserveAICall("openai", model, u.PromptTokens, u.CompletionTokens, u.TotalTokens, latency, true)

	if len(resp.Choices) == 0 || strings.TrimSpace(resp.Choices[0].Message.Content) == "" {
		return nil, u, fmt.Errorf("%w: no choice content", domain.ErrGenerationFailed)
	}
	raw := extractJSON(resp.Choices[0].Message.Content)
	if req.Schema != nil {
		if err := ValidateJSONAgainstSchema(req.SchemaName, req.Schema, raw); err != nil {
			metrics.IncSchemaReject("openai", model)
			o.log.Warn().Err(err).Str("model", model).Str("schema", req.SchemaName).Msg("structured response rejected")
			return nil, u, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		}
	}
	return raw, u, nil
}

// imageReference prefers a public URL and falls back to an inline data URL.
func imageReference(req adapter.StructuredRequest) string {
	if strings.HasPrefix(req.ImageURL, "https://") {
		return req.ImageURL
	}
	if len(req.ImageData) > 0 {
		return "data:" + mimeOrDefault(req.ImageMIME) + ";base64," + base64.StdEncoding.EncodeToString(req.ImageData)
	}
	return req.ImageURL
}

func mimeOrDefault(m string) string {
	if m == "" {
		return "image/jpeg"
	}
	return m
}

func schemaName(n string) string {
	if n == "" {
		return "response"
	}
	return n
}

func modelOrDefault(model, def string) string {
	if strings.TrimSpace(model) != "" {
		return model
	}
	return def
}
