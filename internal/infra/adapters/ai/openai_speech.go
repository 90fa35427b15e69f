package ai

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/openai/openai-go/v2"
	"github.com/openai/openai-go/v2/option"
	"github.com/tidwall/gjson"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/adapter"
	"video-analyzer/internal/infra/metrics"
)

var _ adapter.SpeechToText = (*WhisperAdapter)(nil)

// maxAudioBytes is the Whisper upload limit.
const maxAudioBytes = 25 << 20

// WhisperAdapter fetches the stored audio and sends it to the OpenAI
// transcription endpoint.
type WhisperAdapter struct {
	client openai.Client
	model  string
	http   *http.Client
}

func NewWhisperAdapter(apiKey, baseURL, model string, timeout time.Duration) (*WhisperAdapter, error) {
	if apiKey == "" {
		return nil, errors.New("openai api key empty")
	}
	if model == "" {
		model = string(openai.AudioModelWhisper1)
	}
	if timeout <= 0 {
		timeout = 5 * time.Minute
	}
	opts := []option.RequestOption{option.WithAPIKey(apiKey), option.WithRequestTimeout(timeout)}
	if baseURL != "" {
		opts = append(opts, option.WithBaseURL(strings.TrimRight(baseURL, "/")+"/"))
	}
	return &WhisperAdapter{
		client: openai.NewClient(opts...),
		model:  model,
		http:   &http.Client{Timeout: timeout},
	}, nil
}

func (w *WhisperAdapter) Transcribe(ctx context.Context, audioURL, languageHint string) (model.Transcript, error) {
	audio, err := w.fetch(ctx, audioURL)
	if err != nil {
		return model.Transcript{}, err
	}

	params := openai.AudioTranscriptionNewParams{
		File:           openai.File(bytes.NewReader(audio), "audio.wav", "audio/wav"),
		Model:          openai.AudioModel(w.model),
		ResponseFormat: openai.AudioResponseFormatVerboseJSON,
	}
	// Language is left unset so Whisper keeps auto-detection; the hint only
	// primes the decoder through the prompt.
	if p := hintPrompt(languageHint); p != "" {
		params.Prompt = openai.String(p)
	}

	start := time.Now()
	resp, err := w.client.Audio.Transcriptions.New(ctx, params)
	latency := int(time.Since(start).Milliseconds())
	if err != nil {
		metrics.ObserveAICall("openai", w.model, 0, 0, 0, latency, false)
		return model.Transcript{}, fmt.Errorf("whisper: %w", err)
	}
	metrics.ObserveAICall("openai", w.model, 0, 0, 0, latency, true)

	return model.Transcript{
		Text:     strings.TrimSpace(resp.Text),
		Language: normalizeLanguage(gjson.Get(resp.RawJSON(), "language").String()),
	}, nil
}

func (w *WhisperAdapter) fetch(ctx context.Context, audioURL string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, audioURL, nil)
	if err != nil {
		return nil, fmt.Errorf("audio request: %w", err)
	}
	resp, err := w.http.Do(req)
	if err != nil {
		return nil, fmt.Errorf("fetch audio: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("fetch audio: unexpected status %d", resp.StatusCode)
	}
	b, err := io.ReadAll(io.LimitReader(resp.Body, maxAudioBytes+1))
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	if len(b) > maxAudioBytes {
		return nil, fmt.Errorf("%w: audio exceeds %d bytes", domain.ErrGenerationFailed, maxAudioBytes)
	}
	return b, nil
}

// Whisper reports languages by English name in verbose_json.
var languageCodes = map[string]string{
	"chinese":  "zh",
	"english":  "en",
	"japanese": "ja",
	"korean":   "ko",
	"french":   "fr",
	"german":   "de",
	"spanish":  "es",
	"russian":  "ru",
}

// hintPrompts are short priming sentences written in the hinted language.
var hintPrompts = map[string]string{
	"zh": "以下是普通话的句子。",
	"en": "The following is a sentence in English.",
	"ja": "以下は日本語の文です。",
	"ko": "다음은 한국어 문장입니다.",
}

func hintPrompt(hint string) string {
	return hintPrompts[strings.ToLower(strings.TrimSpace(hint))]
}

func normalizeLanguage(l string) string {
	l = strings.ToLower(strings.TrimSpace(l))
	if c, ok := languageCodes[l]; ok {
		return c
	}
	return l
}
