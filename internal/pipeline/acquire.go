package pipeline

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/ports/adapter"
	"video-analyzer/internal/infra/metrics"

	"github.com/rs/zerolog"
)

const videoFileName = "video.mp4"

// Acquirer downloads the playable media into the job's scratch directory,
// retrying transient failures with linear backoff.
type Acquirer struct {
	dl          adapter.MediaDownloader
	maxAttempts int
	backoff     time.Duration
	perAttempt  time.Duration
	sleep       func(ctx context.Context, d time.Duration) error
	log         *zerolog.Logger
}

func NewAcquirer(dl adapter.MediaDownloader, maxAttempts int, backoff, perAttempt time.Duration, logger *zerolog.Logger) *Acquirer {
	if maxAttempts < 2 {
		maxAttempts = 3
	}
	l := logger.With().Str("component", "Acquirer").Logger()
	return &Acquirer{
		dl:          dl,
		maxAttempts: maxAttempts,
		backoff:     backoff,
		perAttempt:  perAttempt,
		sleep:       sleepCtx,
		log:         &l,
	}
}

// Acquire returns the local path of the downloaded media.
func (a *Acquirer) Acquire(ctx context.Context, mediaURL, referer string, scratch *Scratch) (string, error) {
	if strings.TrimSpace(mediaURL) == "" {
		return "", domain.ErrNoPlayableMedia
	}
	dest := scratch.Path(videoFileName)

	var lastErr error
	attempts := 0
	for attempt := 1; attempt <= a.maxAttempts; attempt++ {
		attempts = attempt
		n, err := a.attempt(ctx, mediaURL, referer, dest)
		if err == nil {
			metrics.IncAcquireAttempt("ok")
			a.log.Info().Int("attempt", attempt).Int64("bytes", n).Msg("media downloaded")
			return dest, nil
		}
		lastErr = err
		if isPermanent(err) {
			metrics.IncAcquireAttempt("permanent")
			a.log.Warn().Err(err).Int("attempt", attempt).Msg("download failed permanently")
			break
		}
		metrics.IncAcquireAttempt("retry")
		a.log.Warn().Err(err).Int("attempt", attempt).Int("max_attempts", a.maxAttempts).Msg("download attempt failed")
		if attempt == a.maxAttempts {
			break
		}
		if err := a.sleep(ctx, time.Duration(attempt)*a.backoff); err != nil {
			lastErr = err
			break
		}
	}
	if errors.Is(lastErr, domain.ErrCorruptMedia) {
		return "", lastErr
	}
	return "", fmt.Errorf("%w after %d attempt(s): %v", domain.ErrAcquisitionFailed, attempts, lastErr)
}

func (a *Acquirer) attempt(ctx context.Context, mediaURL, referer, dest string) (int64, error) {
	if a.perAttempt > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, a.perAttempt)
		defer cancel()
	}
	return a.dl.Download(ctx, mediaURL, referer, dest)
}

func sleepCtx(ctx context.Context, d time.Duration) error {
	t := time.NewTimer(d)
	defer t.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-t.C:
		return nil
	}
}
