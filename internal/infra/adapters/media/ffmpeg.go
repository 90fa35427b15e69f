package media

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"regexp"
	"strconv"
	"strings"

	"github.com/floostack/transcoder/ffmpeg"
	"github.com/rs/zerolog"

	"video-analyzer/internal/domain/ports/adapter"
)

var _ adapter.MediaToolkit = (*Toolkit)(nil)

type Config struct {
	FfmpegBinPath  string
	FfprobeBinPath string
}

// Toolkit drives ffmpeg/ffprobe through the transcoder bindings.
type Toolkit struct {
	cfg Config
	log *zerolog.Logger
}

func NewToolkit(cfg Config, logger *zerolog.Logger) *Toolkit {
	if cfg.FfmpegBinPath == "" {
		cfg.FfmpegBinPath = "ffmpeg"
	}
	if cfg.FfprobeBinPath == "" {
		cfg.FfprobeBinPath = "ffprobe"
	}
	l := logger.With().Str("component", "FFmpeg").Logger()
	return &Toolkit{cfg: cfg, log: &l}
}

func (t *Toolkit) ProbeDuration(ctx context.Context, path string) (float64, error) {
	tr := ffmpeg.New(t.config(false)).Input(path).WithContext(&ctx)
	md, err := tr.GetMetadata()
	if err != nil {
		return 0, fmt.Errorf("failed to extract file metadata information using ffprobe: %w", err)
	}
	raw := md.GetFormat().GetDuration()
	d, err := strconv.ParseFloat(strings.TrimSpace(raw), 64)
	if err != nil {
		return 0, fmt.Errorf("parse duration %q: %w", raw, err)
	}
	return d, nil
}

// ExtractAudio writes a mono 16kHz 16-bit PCM wav.
func (t *Toolkit) ExtractAudio(ctx context.Context, videoPath, audioPath string) error {
	opts := &ffmpeg.Options{
		SkipVideo:     ptr(true),
		AudioCodec:    ptr("pcm_s16le"),
		AudioRate:     ptr(16000),
		AudioChannels: ptr(1),
		Overwrite:     ptr(true),
	}
	return t.run(ctx, videoPath, audioPath, opts)
}

// ExtractFrame writes a single high-quality jpeg at the given offset.
func (t *Toolkit) ExtractFrame(ctx context.Context, videoPath string, at float64, framePath string) error {
	opts := &ffmpeg.Options{
		SeekTime:  ptr(strconv.FormatFloat(at, 'f', 3, 64)),
		Vframes:   ptr(1),
		Qscale:    ptr(uint32(2)),
		Overwrite: ptr(true),
	}
	return t.run(ctx, videoPath, framePath, opts)
}

func (t *Toolkit) run(ctx context.Context, in, out string, opts *ffmpeg.Options) error {
	tr := ffmpeg.New(t.config(true)).
		Input(in).
		Output(out).
		WithContext(&ctx)

	progress, err := tr.Start(opts)
	if err != nil {
		return parseFfmpegError(err)
	}
	for range progress {
	}
	if err := ctx.Err(); err != nil {
		return err
	}
	if fi, err := os.Stat(out); err != nil || fi.Size() == 0 {
		return fmt.Errorf("ffmpeg produced no output at %s", out)
	}
	t.log.Debug().Str("in", in).Str("out", out).Msg("ffmpeg finished")
	return nil
}

func (t *Toolkit) config(progress bool) *ffmpeg.Config {
	return &ffmpeg.Config{
		ProgressEnabled: progress,
		FfmpegBinPath:   t.cfg.FfmpegBinPath,
		FfprobeBinPath:  t.cfg.FfprobeBinPath,
	}
}

var messageMatcher = regexp.MustCompile(`(?s)message: ({.*})`)

// parseFfmpegError pulls the JSON encoded message out of the transcoder's
// verbose error, falling back to the full text.
func parseFfmpegError(err error) error {
	groups := messageMatcher.FindStringSubmatch(err.Error())
	if len(groups) < 2 {
		return err
	}
	var out struct {
		Error struct {
			String string `json:"string"`
		} `json:"error"`
	}
	if jsonErr := json.Unmarshal([]byte(groups[1]), &out); jsonErr != nil || out.Error.String == "" {
		return errors.New(groups[1])
	}
	return errors.New(out.Error.String)
}

func ptr[T any](v T) *T { return &v }
