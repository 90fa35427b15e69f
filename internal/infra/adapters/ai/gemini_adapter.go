// File: internal/infra/adapters/ai/gemini_adapter.go
package ai

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"google.golang.org/genai"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/ports/adapter"
	"video-analyzer/internal/infra/metrics"
)

var _ adapter.StructuredGenerator = (*GeminiAdapter)(nil)

type GeminiAdapter struct {
	client       *genai.Client
	defaultModel string
	maxOut       int
	log          *zerolog.Logger
}

// NewGeminiAdapter creates a Gemini adapter using the official SDK.
func NewGeminiAdapter(ctx context.Context, apiKey, baseURL, defaultModel string, maxOut int, logger *zerolog.Logger) (*GeminiAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("gemini: empty api key")
	}
	c, err := genai.NewClient(ctx, &genai.ClientConfig{
		APIKey:  apiKey,
		Backend: genai.BackendGeminiAPI,
		HTTPOptions: genai.HTTPOptions{
			BaseURL: baseURL,
		},
	})
	if err != nil {
		return nil, err
	}
	if defaultModel == "" {
		defaultModel = "gemini-2.0-flash"
	}
	l := logger.With().Str("component", "GeminiAdapter").Logger()
	return &GeminiAdapter{client: c, defaultModel: defaultModel, maxOut: maxOut, log: &l}, nil
}

func (g *GeminiAdapter) GenerateJSON(ctx context.Context, req adapter.StructuredRequest) ([]byte, adapter.Usage, error) {
	model := modelOrDefault(req.Model, g.defaultModel)

	parts := []*genai.Part{{Text: req.Prompt}}
	// Gemini cannot fetch arbitrary URLs, so images always go inline.
	if len(req.ImageData) > 0 {
		parts = append(parts, &genai.Part{InlineData: &genai.Blob{MIMEType: mimeOrDefault(req.ImageMIME), Data: req.ImageData}})
	}
	cfg := &genai.GenerateContentConfig{}
	if g.maxOut > 0 {
		cfg.MaxOutputTokens = int32(g.maxOut)
	}
	if req.System != "" {
		cfg.SystemInstruction = &genai.Content{Parts: []*genai.Part{{Text: req.System}}}
	}
	if req.Schema != nil {
		cfg.ResponseMIMEType = "application/json"
		cfg.ResponseJsonSchema = req.Schema
	}

	start := time.Now()
	resp, err := g.client.Models.GenerateContent(ctx, model, []*genai.Content{{Role: genai.RoleUser, Parts: parts}}, cfg)
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		metrics.ObserveAICall("gemini", model, 0, 0, 0, latency, false)
		return nil, adapter.Usage{}, fmt.Errorf("gemini: %w", err)
	}

	u := adapter.Usage{}
	if resp.UsageMetadata != nil {
		u.PromptTokens = int(resp.UsageMetadata.PromptTokenCount)
		u.CompletionTokens = int(resp.UsageMetadata.CandidatesTokenCount)
		u.TotalTokens = int(resp.UsageMetadata.TotalTokenCount)
	}
	metrics.ObserveAICall("gemini", model, u.PromptTokens, u.CompletionTokens, u.TotalTokens, latency, true)

	text := resp.Text()
	if strings.TrimSpace(text) == "" {
		return nil, u, fmt.Errorf("%w: empty response", domain.ErrGenerationFailed)
	}
	raw := extractJSON(text)
	if req.Schema != nil {
		if err := ValidateJSONAgainstSchema(req.SchemaName, req.Schema, raw); err != nil {
			metrics.IncSchemaReject("gemini", model)
			g.log.Warn().Err(err).Str("model", model).Str("schema", req.SchemaName).Msg("structured response rejected")
			return nil, u, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
		}
	}
	return raw, u, nil
}
