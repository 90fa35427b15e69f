package ai

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/rs/zerolog"

	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/adapter"
)

var (
	_ adapter.StructuredGenerator = (*NoopAIAdapter)(nil)
	_ adapter.SpeechToText        = (*NoopAIAdapter)(nil)
)

var ErrSpeechDisabled = errors.New("speech-to-text disabled")

// NoopAIAdapter is used for local/dev runs without provider keys. It answers
// with the zero document of the requested schema and never transcribes.
type NoopAIAdapter struct {
	log *zerolog.Logger
}

func NewNoopAIAdapter(logger *zerolog.Logger) *NoopAIAdapter {
	l := logger.With().Str("component", "NoopAI").Logger()
	return &NoopAIAdapter{log: &l}
}

func (a *NoopAIAdapter) GenerateJSON(ctx context.Context, req adapter.StructuredRequest) ([]byte, adapter.Usage, error) {
	// Simulate slight processing time and respect ctx
	select {
	case <-time.After(50 * time.Millisecond):
	case <-ctx.Done():
		return nil, adapter.Usage{}, ctx.Err()
	}
	a.log.Debug().Str("schema", req.SchemaName).Int("prompt_len", len(req.Prompt)).Msg("noop generation")
	b, err := json.Marshal(zeroValue(req.Schema))
	return b, adapter.Usage{}, err
}

func (a *NoopAIAdapter) Transcribe(ctx context.Context, audioURL, languageHint string) (model.Transcript, error) {
	return model.Transcript{}, ErrSpeechDisabled
}

// zeroValue builds the smallest document satisfying a simple object schema.
func zeroValue(schema map[string]any) any {
	if schema == nil {
		return map[string]any{}
	}
	switch schema["type"] {
	case "object":
		out := map[string]any{}
		props, _ := schema["properties"].(map[string]any)
		for name, p := range props {
			ps, _ := p.(map[string]any)
			out[name] = zeroValue(ps)
		}
		return out
	case "array":
		return []any{}
	case "number", "integer":
		return 0
	case "boolean":
		return false
	default:
		return ""
	}
}
