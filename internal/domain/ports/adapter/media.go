package adapter

import (
	"context"

	"video-analyzer/internal/domain/model"
)

// MetadataProvider resolves canonical metadata for a source URL.
type MetadataProvider interface {
	Fetch(ctx context.Context, platform model.Platform, sourceURL string) (model.Metadata, error)
}

// MediaDownloader performs a single download attempt into dest.
// Errors that must not be retried implement Permanent() bool.
type MediaDownloader interface {
	Download(ctx context.Context, mediaURL, referer, dest string) (int64, error)
}

// MediaToolkit wraps the ffmpeg/ffprobe capabilities the pipeline needs.
type MediaToolkit interface {
	ProbeDuration(ctx context.Context, path string) (float64, error)
	ExtractAudio(ctx context.Context, videoPath, audioPath string) error
	ExtractFrame(ctx context.Context, videoPath string, at float64, framePath string) error
}

// TextRecognizer runs OCR over a single image.
type TextRecognizer interface {
	Recognize(ctx context.Context, imagePath string) (string, error)
}

// ObjectStorage writes durable artifacts and returns a retrievable URL.
type ObjectStorage interface {
	Put(ctx context.Context, key string, data []byte, contentType string) (string, error)
}
