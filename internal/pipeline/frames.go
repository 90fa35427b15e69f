package pipeline

import (
	"context"
	"fmt"
	"os"
	"time"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/ports/adapter"

	"github.com/rs/zerolog"
)

// DefaultFrameCount is the number of keyframes sampled per video.
const DefaultFrameCount = 6

type Frame struct {
	Index     int // 1-based
	Timestamp float64
	Path      string
}

// FrameSampler extracts evenly spaced keyframes, skipping the very start and end.
type FrameSampler struct {
	tools   adapter.MediaToolkit
	count   int
	timeout time.Duration
	log     *zerolog.Logger
}

func NewFrameSampler(tools adapter.MediaToolkit, count int, timeout time.Duration, logger *zerolog.Logger) *FrameSampler {
	if count <= 0 {
		count = DefaultFrameCount
	}
	l := logger.With().Str("component", "FrameSampler").Logger()
	return &FrameSampler{tools: tools, count: count, timeout: timeout, log: &l}
}

// Timestamps returns D/(n+1)*i for i in 1..n.
func Timestamps(duration float64, n int) []float64 {
	if duration <= 0 || n <= 0 {
		return nil
	}
	interval := duration / float64(n+1)
	out := make([]float64, n)
	for i := 1; i <= n; i++ {
		out[i-1] = interval * float64(i)
	}
	return out
}

// ResolveDuration prefers the probed duration and falls back to the declared one.
func (s *FrameSampler) ResolveDuration(ctx context.Context, videoPath string, declared int) (float64, error) {
	d, err := s.tools.ProbeDuration(ctx, videoPath)
	if err != nil {
		s.log.Warn().Err(err).Msg("probe failed")
	}
	if err == nil && d > 0 {
		return d, nil
	}
	if declared > 0 {
		s.log.Info().Int("declared", declared).Msg("using declared duration")
		return float64(declared), nil
	}
	return 0, domain.ErrUnknownDuration
}

// Sample extracts frames; individual extraction failures drop that frame only.
func (s *FrameSampler) Sample(ctx context.Context, videoPath string, declared int, scratch *Scratch) ([]Frame, error) {
	d, err := s.ResolveDuration(ctx, videoPath, declared)
	if err != nil {
		return nil, err
	}
	var frames []Frame
	for i, ts := range Timestamps(d, s.count) {
		idx := i + 1
		path := scratch.Path(fmt.Sprintf("frame_%d.jpg", idx))
		if err := s.extract(ctx, videoPath, ts, path); err != nil {
			s.log.Warn().Err(err).Int("frame", idx).Float64("ts", ts).Msg("frame extraction failed")
			continue
		}
		frames = append(frames, Frame{Index: idx, Timestamp: ts, Path: path})
	}
	return frames, nil
}

func (s *FrameSampler) extract(ctx context.Context, videoPath string, ts float64, path string) error {
	if s.timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, s.timeout)
		defer cancel()
	}
	if err := s.tools.ExtractFrame(ctx, videoPath, ts, path); err != nil {
		return err
	}
	if _, err := os.Stat(path); err != nil {
		return fmt.Errorf("frame not written: %w", err)
	}
	return nil
}
