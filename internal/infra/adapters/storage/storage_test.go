//go:build !integration

package storage

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/rs/zerolog"

	"video-analyzer/internal/domain"
)

func TestLocalStorage_Put(t *testing.T) {
	logger := zerolog.Nop()
	dir := t.TempDir()
	s, err := NewLocalStorage(dir, "http://localhost:8080/assets/", &logger)
	if err != nil {
		t.Fatalf("NewLocalStorage: %v", err)
	}
	ctx := context.Background()

	t.Run("writes the object and returns its URL", func(t *testing.T) {
		got, err := s.Put(ctx, "video-analysis/7/frame_1.jpg", []byte("jpeg"), "image/jpeg")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		want := "http://localhost:8080/assets/video-analysis/7/frame_1.jpg"
		if got != want {
			t.Errorf("wanted %q, got %q", want, got)
		}
		b, err := os.ReadFile(filepath.Join(dir, "video-analysis", "7", "frame_1.jpg"))
		if err != nil || string(b) != "jpeg" {
			t.Errorf("wanted stored bytes, got %q (%v)", b, err)
		}
	})

	t.Run("rejects traversal", func(t *testing.T) {
		_, err := s.Put(ctx, "../etc/passwd", []byte("x"), "text/plain")
		if !errors.Is(err, domain.ErrInvalidArgument) {
			t.Errorf("wanted ErrInvalidArgument, got %v", err)
		}
	})
}

func TestPublicURL(t *testing.T) {
	got := publicURL("https://storage.googleapis.com/bucket", "video-analysis/1/a b.jpg")
	want := "https://storage.googleapis.com/bucket/video-analysis/1/a%20b.jpg"
	if got != want {
		t.Errorf("wanted %q, got %q", want, got)
	}
}
