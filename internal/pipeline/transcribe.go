package pipeline

import (
	"context"
	"fmt"
	"os"
	"strings"
	"time"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/adapter"
)

// Transcriber uploads the extracted audio and runs speech-to-text over it.
type Transcriber struct {
	storage adapter.ObjectStorage
	stt     adapter.SpeechToText
	hint    string
	timeout time.Duration
}

func NewTranscriber(storage adapter.ObjectStorage, stt adapter.SpeechToText, languageHint string, timeout time.Duration) *Transcriber {
	return &Transcriber{storage: storage, stt: stt, hint: languageHint, timeout: timeout}
}

func (t *Transcriber) Transcribe(ctx context.Context, jobID int64, audioPath string) (*model.Transcript, error) {
	data, err := os.ReadFile(audioPath)
	if err != nil {
		return nil, fmt.Errorf("read audio: %w", err)
	}
	url, err := t.storage.Put(ctx, artifactKey(jobID, audioFileName), data, "audio/wav")
	if err != nil {
		return nil, fmt.Errorf("upload audio: %w", err)
	}

	if t.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, t.timeout)
		defer cancel()
	}
	tr, err := t.stt.Transcribe(ctx, url, t.hint)
	if err != nil {
		return nil, err
	}
	tr.Text = strings.TrimSpace(tr.Text)
	if tr.Text == "" {
		return nil, fmt.Errorf("%w: empty transcript", domain.ErrGenerationFailed)
	}
	if tr.Language == "" {
		tr.Language = t.hint
	}
	return &tr, nil
}

// artifactKey is the durable storage key for a job artifact.
func artifactKey(jobID int64, name string) string {
	return fmt.Sprintf("video-analysis/%d/%s", jobID, name)
}
