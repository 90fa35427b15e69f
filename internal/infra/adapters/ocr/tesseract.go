package ocr

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/rs/zerolog"

	"video-analyzer/internal/domain/ports/adapter"
)

var _ adapter.TextRecognizer = (*Tesseract)(nil)

type Config struct {
	Binary    string
	Languages string // e.g. eng+chi_sim+chi_tra
	PSM       int
}

// Tesseract shells out to the tesseract CLI and returns the recognized text.
type Tesseract struct {
	cfg    Config
	runner Runner
}

func NewTesseract(cfg Config, logger *zerolog.Logger) *Tesseract {
	l := logger.With().Str("component", "Tesseract").Logger()
	return NewTesseractWithRunner(cfg, execRunner{log: &l})
}

func NewTesseractWithRunner(cfg Config, r Runner) *Tesseract {
	if cfg.Binary == "" {
		cfg.Binary = "tesseract"
	}
	if cfg.Languages == "" {
		cfg.Languages = "eng+chi_sim+chi_tra"
	}
	if cfg.PSM <= 0 {
		cfg.PSM = 6
	}
	return &Tesseract{cfg: cfg, runner: r}
}

// tesseract <image> stdout -l <langs> --psm <n>
func (t *Tesseract) Recognize(ctx context.Context, imagePath string) (string, error) {
	args := []string{imagePath, "stdout", "-l", t.cfg.Languages, "--psm", strconv.Itoa(t.cfg.PSM)}
	out, errb, err := t.runner.Run(ctx, t.cfg.Binary, args...)
	if err != nil {
		return "", fmt.Errorf("tesseract: %w: %s", err, truncate(strings.TrimSpace(string(errb)), 512))
	}
	return Normalize(string(out)), nil
}

var (
	reBoxNoise   = regexp.MustCompile(`[\x{2500}-\x{257F}\x{25A0}-\x{25FF}]+`)
	reBlankLines = regexp.MustCompile(`\n{3,}`)
)

// Normalize drops box-drawing noise, trailing spaces and runs of blank lines.
func Normalize(s string) string {
	s = strings.ReplaceAll(s, "\r\n", "\n")
	s = strings.ReplaceAll(s, "\f", "")
	s = reBoxNoise.ReplaceAllString(s, "")
	lines := strings.Split(s, "\n")
	for i, ln := range lines {
		lines[i] = strings.TrimRight(ln, " \t")
	}
	s = reBlankLines.ReplaceAllString(strings.Join(lines, "\n"), "\n\n")
	return strings.TrimSpace(s)
}
