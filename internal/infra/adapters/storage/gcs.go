package storage

import (
	"bytes"
	"context"
	"fmt"
	"net/url"
	"strings"

	"github.com/rs/zerolog"
	"google.golang.org/api/googleapi"
	"google.golang.org/api/option"
	gcs "google.golang.org/api/storage/v1"

	"video-analyzer/internal/domain/ports/adapter"
)

var _ adapter.ObjectStorage = (*GCSStorage)(nil)

// GCSStorage uploads artifacts to a Google Cloud Storage bucket.
type GCSStorage struct {
	svc     *gcs.Service
	bucket  string
	baseURL string
	log     *zerolog.Logger
}

// NewGCSStorage uses credentialsFile when set, otherwise application default credentials.
func NewGCSStorage(ctx context.Context, bucket, credentialsFile, publicBaseURL string, logger *zerolog.Logger) (*GCSStorage, error) {
	var opts []option.ClientOption
	if credentialsFile != "" {
		opts = append(opts, option.WithCredentialsFile(credentialsFile))
	}
	svc, err := gcs.NewService(ctx, opts...)
	if err != nil {
		return nil, fmt.Errorf("failed to create storage service: %w", err)
	}
	base := strings.TrimRight(publicBaseURL, "/")
	if base == "" {
		base = "https://storage.googleapis.com/" + bucket
	}
	l := logger.With().Str("component", "GCSStorage").Logger()
	return &GCSStorage{svc: svc, bucket: bucket, baseURL: base, log: &l}, nil
}

func (s *GCSStorage) Put(ctx context.Context, key string, data []byte, contentType string) (string, error) {
	obj := &gcs.Object{Name: key, ContentType: contentType}
	_, err := s.svc.Objects.Insert(s.bucket, obj).
		Media(bytes.NewReader(data), googleapi.ContentType(contentType)).
		Context(ctx).
		Do()
	if err != nil {
		return "", fmt.Errorf("gcs upload %s: %w", key, err)
	}
	s.log.Debug().Str("key", key).Int("bytes", len(data)).Msg("object uploaded")
	return publicURL(s.baseURL, key), nil
}

func publicURL(base, key string) string {
	parts := strings.Split(key, "/")
	for i, p := range parts {
		parts[i] = url.PathEscape(p)
	}
	return base + "/" + strings.Join(parts, "/")
}
