package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/ports/adapter"
)

const audioFileName = "audio.wav"

// AudioExtractor produces a mono 16kHz PCM track for transcription.
type AudioExtractor struct {
	tools   adapter.MediaToolkit
	timeout time.Duration
}

func NewAudioExtractor(tools adapter.MediaToolkit, timeout time.Duration) *AudioExtractor {
	return &AudioExtractor{tools: tools, timeout: timeout}
}

func (x *AudioExtractor) Extract(ctx context.Context, videoPath string, scratch *Scratch) (string, error) {
	if x.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, x.timeout)
		defer cancel()
	}
	out := scratch.Path(audioFileName)
	if err := x.tools.ExtractAudio(ctx, videoPath, out); err != nil {
		return "", fmt.Errorf("%w: %w", domain.ErrAudioExtractionFailed, err)
	}
	if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
		return "", fmt.Errorf("%w: no audio output", domain.ErrAudioExtractionFailed)
	}
	return out, nil
}
