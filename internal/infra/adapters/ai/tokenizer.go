package ai

import (
	"fmt"

	"github.com/pkoukk/tiktoken-go"

	"video-analyzer/internal/domain/ports/adapter"
)

var _ adapter.TokenCounter = (*Tokenizer)(nil)

// Tokenizer measures prompt text with the cl100k_base encoding.
type Tokenizer struct {
	enc *tiktoken.Tiktoken
}

func NewTokenizer(encoding string) (*Tokenizer, error) {
	if encoding == "" {
		encoding = "cl100k_base"
	}
	enc, err := tiktoken.GetEncoding(encoding)
	if err != nil {
		return nil, fmt.Errorf("load encoding %s: %w", encoding, err)
	}
	return &Tokenizer{enc: enc}, nil
}

func (t *Tokenizer) Count(text string) int {
	return len(t.enc.Encode(text, nil, nil))
}

// Truncate keeps the first maxTokens tokens of text.
func (t *Tokenizer) Truncate(text string, maxTokens int) string {
	if maxTokens <= 0 {
		return ""
	}
	tokens := t.enc.Encode(text, nil, nil)
	if len(tokens) <= maxTokens {
		return text
	}
	return t.enc.Decode(tokens[:maxTokens])
}
