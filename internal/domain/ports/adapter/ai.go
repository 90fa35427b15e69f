package adapter

import (
	"context"

	"video-analyzer/internal/domain/model"
)

// Usage for a single generation call.
type Usage struct {
	PromptTokens     int
	CompletionTokens int
	TotalTokens      int
}

// StructuredRequest asks a model for JSON that conforms to Schema.
// Image fields are optional; providers use whichever form they accept.
type StructuredRequest struct {
	Model      string
	System     string
	Prompt     string
	ImageURL   string
	ImageData  []byte
	ImageMIME  string
	SchemaName string
	Schema     map[string]any
}

// StructuredGenerator is the port for multimodal structured generation.
type StructuredGenerator interface {
	// GenerateJSON returns the raw JSON document produced by the model.
	// Implementations validate it against req.Schema before returning.
	GenerateJSON(ctx context.Context, req StructuredRequest) ([]byte, Usage, error)
}

// SpeechToText transcribes audio reachable at audioURL.
type SpeechToText interface {
	Transcribe(ctx context.Context, audioURL, languageHint string) (model.Transcript, error)
}

// TokenCounter measures and trims prompt text.
type TokenCounter interface {
	Count(text string) int
	Truncate(text string, maxTokens int) string
}
