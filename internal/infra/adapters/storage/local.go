package storage

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/rs/zerolog"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/ports/adapter"
)

var _ adapter.ObjectStorage = (*LocalStorage)(nil)

// LocalStorage writes artifacts under a directory that the HTTP server exposes at /assets.
type LocalStorage struct {
	dir     string
	baseURL string
	log     *zerolog.Logger
}

func NewLocalStorage(dir, publicBaseURL string, logger *zerolog.Logger) (*LocalStorage, error) {
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create storage dir: %w", err)
	}
	l := logger.With().Str("component", "LocalStorage").Logger()
	return &LocalStorage{dir: dir, baseURL: strings.TrimRight(publicBaseURL, "/"), log: &l}, nil
}

// Dir is the root served under /assets.
func (s *LocalStorage) Dir() string { return s.dir }

func (s *LocalStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	clean := filepath.Clean("/" + key)
	if clean == "/" || strings.Contains(key, "..") {
		return "", fmt.Errorf("%w: storage key %q", domain.ErrInvalidArgument, key)
	}
	path := filepath.Join(s.dir, filepath.FromSlash(clean))
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return "", fmt.Errorf("create object dir: %w", err)
	}
	if err := ctx.Err(); err != nil {
		return "", err
	}
	if err := os.WriteFile(path, data, 0o644); err != nil {
		return "", fmt.Errorf("write object %s: %w", key, err)
	}
	s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("object stored")
	return publicURL(s.baseURL, strings.TrimPrefix(clean, "/")), nil
}
