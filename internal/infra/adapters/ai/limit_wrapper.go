package ai

import (
	"context"

	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/adapter"
)

// Compile-time check
var (
	_ adapter.StructuredGenerator = (*limitedAI)(nil)
	_ adapter.SpeechToText        = (*limitedSpeech)(nil)
)

// limiter bounds concurrent provider calls across all workers.
type limiter chan struct{}

func (l limiter) acquire(ctx context.Context) error {
	select {
	case l <- struct{}{}:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

func (l limiter) release() { <-l }

type limitedAI struct {
	inner adapter.StructuredGenerator
	sem   limiter
}

func NewLimitedAI(inner adapter.StructuredGenerator, maxConcurrent int) adapter.StructuredGenerator {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedAI{
		inner: inner,
		sem:   make(limiter, maxConcurrent),
	}
}

func (l *limitedAI) GenerateJSON(ctx context.Context, req adapter.StructuredRequest) ([]byte, adapter.Usage, error) {
	if err := l.sem.acquire(ctx); err != nil {
		return nil, adapter.Usage{}, err
	}
	defer l.sem.release()
	return l.inner.GenerateJSON(ctx, req)
}

type limitedSpeech struct {
	inner adapter.SpeechToText
	sem   limiter
}

func NewLimitedSpeech(inner adapter.SpeechToText, maxConcurrent int) adapter.SpeechToText {
	if maxConcurrent <= 0 {
		return inner
	}
	return &limitedSpeech{inner: inner, sem: make(limiter, maxConcurrent)}
}

func (l *limitedSpeech) Transcribe(ctx context.Context, audioURL, languageHint string) (model.Transcript, error) {
	if err := l.sem.acquire(ctx); err != nil {
		return model.Transcript{}, err
	}
	defer l.sem.release()
	return l.inner.Transcribe(ctx, audioURL, languageHint)
}
