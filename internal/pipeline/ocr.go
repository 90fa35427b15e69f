package pipeline

import (
	"context"
	"fmt"
	"strings"
	"time"

	"video-analyzer/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// TextExtractor runs OCR over sampled frames and concatenates the results.
type TextExtractor struct {
	rec     adapter.TextRecognizer
	timeout time.Duration
	log     *zerolog.Logger
}

func NewTextExtractor(rec adapter.TextRecognizer, timeout time.Duration, logger *zerolog.Logger) *TextExtractor {
	l := logger.With().Str("component", "TextExtractor").Logger()
	return &TextExtractor{rec: rec, timeout: timeout, log: &l}
}

// Extract never fails; unreadable frames contribute nothing and are
// counted in failed.
func (x *TextExtractor) Extract(ctx context.Context, frames []Frame) (text string, failed int) {
	blocks := make([]string, 0, len(frames))
	for _, f := range frames {
		text, err := x.recognize(ctx, f.Path)
		if err != nil {
			x.log.Warn().Err(err).Int("frame", f.Index).Msg("ocr failed")
			failed++
			continue
		}
		if b := FormatOCRBlock(f.Timestamp, text); b != "" {
			blocks = append(blocks, b)
		}
	}
	return strings.Join(blocks, "\n\n"), failed
}

func (x *TextExtractor) recognize(ctx context.Context, path string) (string, error) {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}
	return x.rec.Recognize(ctx, path)
}

// FormatOCRBlock renders "[<floor(ts)>s] text", or "" for blank text.
func FormatOCRBlock(ts float64, text string) string {
	text = strings.TrimSpace(text)
	if text == "" {
		return ""
	}
	return fmt.Sprintf("[%ds] %s", floorSeconds(ts), text)
}
