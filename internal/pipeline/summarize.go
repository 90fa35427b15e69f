package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"
	"time"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

const (
	minKeyPoints    = 3
	maxKeyPoints    = 5
	maxSummaryRunes = 200
)

type Summary struct {
	Summary   string   `json:"summary"`
	KeyPoints []string `json:"keyPoints"`
}

// Summarizer fuses metadata, transcript, frame descriptions and OCR text into
// a short summary with key points.
type Summarizer struct {
	gen     adapter.StructuredGenerator
	tr      Translator
	tokens  adapter.TokenCounter
	budget  int
	model   string
	timeout time.Duration
	log     *zerolog.Logger
}

// NewSummarizer builds a summarizer. tokens may be nil, which disables prompt trimming.
func NewSummarizer(gen adapter.StructuredGenerator, tr Translator, tokens adapter.TokenCounter, budget int, modelName string, timeout time.Duration, logger *zerolog.Logger) *Summarizer {
	l := logger.With().Str("component", "Summarizer").Logger()
	return &Summarizer{gen: gen, tr: tr, tokens: tokens, budget: budget, model: modelName, timeout: timeout, log: &l}
}

// Summarize never fails; on any error it returns the fallback summary.
func (s *Summarizer) Summarize(ctx context.Context, md model.Metadata, frames []model.FrameAnalysis, ocrText string, transcript *string) Summary {
	res, err := s.generate(ctx, md, frames, ocrText, transcript)
	if err != nil {
		s.log.Warn().Err(err).Msg("summary generation failed")
		return Summary{Summary: FallbackSummary, KeyPoints: []string{}}
	}
	return res
}

func (s *Summarizer) generate(ctx context.Context, md model.Metadata, frames []model.FrameAnalysis, ocrText string, transcript *string) (Summary, error) {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	raw, _, err := s.gen.GenerateJSON(ctx, adapter.StructuredRequest{
		Model:      s.model,
		System:     s.tr.T("summary.system"),
		Prompt:     s.BuildPrompt(md, frames, ocrText, transcript),
		SchemaName: "content_summary",
		Schema:     summarySchema,
	})
	if err != nil {
		return Summary{}, err
	}
	var out Summary
	if err := json.Unmarshal(raw, &out); err != nil {
		return Summary{}, fmt.Errorf("%w: %v", domain.ErrGenerationFailed, err)
	}
	out.Summary = strings.TrimSpace(out.Summary)
	if out.Summary == "" {
		return Summary{}, fmt.Errorf("%w: empty summary", domain.ErrGenerationFailed)
	}
	points := make([]string, 0, len(out.KeyPoints))
	for _, p := range out.KeyPoints {
		if p = strings.TrimSpace(p); p != "" {
			points = append(points, p)
		}
	}
	if len(points) > maxKeyPoints {
		points = points[:maxKeyPoints]
	}
	if len(points) < minKeyPoints {
		s.log.Warn().Int("key_points", len(points)).Msg("fewer key points than requested")
	}
	out.KeyPoints = points
	out.Summary = clampRunes(out.Summary, maxSummaryRunes)
	return out, nil
}

// BuildPrompt lays out the content signals with the transcript first.
func (s *Summarizer) BuildPrompt(md model.Metadata, frames []model.FrameAnalysis, ocrText string, transcript *string) string {
	unknown := s.tr.T("summary.unknown")
	var b strings.Builder
	b.WriteString(s.tr.T("summary.header"))
	b.WriteString("\n\n")
	b.WriteString(s.tr.T("summary.title", orDefault(md.Title, unknown)))
	b.WriteString("\n")
	b.WriteString(s.tr.T("summary.description", orDefault(md.Description, s.tr.T("summary.none"))))
	b.WriteString("\n")
	b.WriteString(s.tr.T("summary.author", orDefault(md.Author, unknown)))
	b.WriteString("\n\n")

	if transcript != nil && strings.TrimSpace(*transcript) != "" {
		b.WriteString(s.tr.T("summary.transcript", s.trim(*transcript, s.budget/2)))
		b.WriteString("\n\n")
	}

	b.WriteString(s.tr.T("summary.frames"))
	b.WriteString("\n")
	lines := make([]string, 0, len(frames))
	for _, f := range frames {
		lines = append(lines, s.tr.T("summary.frame_line", f.Timestamp, f.Scene, f.Description, strings.Join(f.Objects, ", ")))
	}
	b.WriteString(strings.Join(lines, "\n\n"))
	b.WriteString("\n\n")

	ocr := strings.TrimSpace(ocrText)
	if ocr == "" {
		ocr = s.tr.T("summary.no_ocr")
	} else {
		ocr = s.trim(ocr, s.budget/4)
	}
	b.WriteString(s.tr.T("summary.ocr", ocr))
	b.WriteString("\n\n")
	b.WriteString(s.tr.T("summary.instructions"))
	return b.String()
}

func (s *Summarizer) trim(text string, maxTokens int) string {
	if s.tokens == nil || maxTokens <= 0 {
		return text
	}
	if s.tokens.Count(text) <= maxTokens {
		return text
	}
	return s.tokens.Truncate(text, maxTokens)
}

func clampRunes(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return strings.TrimSpace(string(r[:n]))
}

func orDefault(v, def string) string {
	if strings.TrimSpace(v) == "" {
		return def
	}
	return v
}
