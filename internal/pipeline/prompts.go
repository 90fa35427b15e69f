package pipeline

// Translator supplies prompt templates by key.
type Translator interface {
	T(key string, args ...interface{}) string
}

// Fallback values written when a generation stage degrades.
const (
	FallbackScene       = "unknown"
	FallbackDescription = "analysis failed"
	FallbackSummary     = "generation failed"
)

var frameSchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"scene":       map[string]any{"type": "string", "description": "scene description"},
		"objects":     map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "main objects and people"},
		"description": map[string]any{"type": "string", "description": "detailed description"},
	},
	"required":             []any{"scene", "objects", "description"},
	"additionalProperties": false,
}

var summarySchema = map[string]any{
	"type": "object",
	"properties": map[string]any{
		"summary":   map[string]any{"type": "string", "description": "content summary"},
		"keyPoints": map[string]any{"type": "array", "items": map[string]any{"type": "string"}, "description": "key points"},
	},
	"required":             []any{"summary", "keyPoints"},
	"additionalProperties": false,
}

// FrameSchema and SummarySchema are exported copies for adapters and tests.
func FrameSchema() map[string]any   { return frameSchema }
func SummarySchema() map[string]any { return summarySchema }
