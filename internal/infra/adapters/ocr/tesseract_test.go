//go:build !integration

package ocr_test

import (
	"context"
	"errors"
	"strings"
	"testing"

	"video-analyzer/internal/infra/adapters/ocr"
)

type MockRunner struct {
	Name string
	Args []string

	RunFunc func(ctx context.Context, name string, args ...string) ([]byte, []byte, error)
}

func (m *MockRunner) Run(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
	m.Name, m.Args = name, args
	if m.RunFunc != nil {
		return m.RunFunc(ctx, name, args...)
	}
	return nil, nil, nil
}

func TestTesseract_Recognize(t *testing.T) {
	ctx := context.Background()

	t.Run("builds the command line and normalizes output", func(t *testing.T) {
		r := &MockRunner{RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			return []byte("HELLO   \r\n\n\n\nWORLD\f\n"), nil, nil
		}}
		tess := ocr.NewTesseractWithRunner(ocr.Config{}, r)
		got, err := tess.Recognize(ctx, "/tmp/frame_1.jpg")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if got != "HELLO\n\nWORLD" {
			t.Errorf("wanted normalized text, got %q", got)
		}
		want := "/tmp/frame_1.jpg stdout -l eng+chi_sim+chi_tra --psm 6"
		if r.Name != "tesseract" || strings.Join(r.Args, " ") != want {
			t.Errorf("wanted %q, got %s %v", want, r.Name, r.Args)
		}
	})

	t.Run("surfaces stderr on failure", func(t *testing.T) {
		r := &MockRunner{RunFunc: func(ctx context.Context, name string, args ...string) ([]byte, []byte, error) {
			return nil, []byte("Failed loading language 'chi_sim'"), errors.New("exit status 1")
		}}
		_, err := ocr.NewTesseractWithRunner(ocr.Config{Languages: "chi_sim"}, r).Recognize(ctx, "x.jpg")
		if err == nil || !strings.Contains(err.Error(), "chi_sim") {
			t.Errorf("wanted stderr in error, got %v", err)
		}
	})
}
