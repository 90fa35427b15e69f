package download

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/rs/zerolog"

	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/ports/adapter"
)

var _ adapter.MediaDownloader = (*HTTPDownloader)(nil)

const (
	userAgent = "Mozilla/5.0 (Windows NT 10.0; Win64; x64) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0.0.0 Safari/537.36"
	// MinMediaBytes is the smallest payload accepted as real media.
	MinMediaBytes = 1024
)

const acceptMedia = "video/mp4,video/*;q=0.9,*/*;q=0.8"

// StatusError carries a non-200 response code. Client errors are permanent.
type StatusError struct {
	Code int
}

func (e *StatusError) Error() string   { return fmt.Sprintf("unexpected status code: %d", e.Code) }
func (e *StatusError) Permanent() bool { return e.Code >= 400 && e.Code < 500 }

// HTTPDownloader streams media to disk with browser-like headers, which some
// CDNs require together with a Referer.
type HTTPDownloader struct {
	client   *http.Client
	maxBytes int64
	log      *zerolog.Logger
}

func NewHTTPDownloader(maxBytes int64, logger *zerolog.Logger) *HTTPDownloader {
	l := logger.With().Str("component", "HTTPDownloader").Logger()
	return &HTTPDownloader{
		// per-attempt deadlines come from the caller's context
		client:   &http.Client{Timeout: 30 * time.Minute},
		maxBytes: maxBytes,
		log:      &l,
	}
}

func (d *HTTPDownloader) Download(ctx context.Context, mediaURL, referer, dest string) (int64, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, mediaURL, nil)
	if err != nil {
		return 0, &permanentError{msg: fmt.Sprintf("invalid media url: %v", err)}
	}
	req.Header.Set("User-Agent", userAgent)
	req.Header.Set("Accept", acceptMedia)
	if referer != "" {
		req.Header.Set("Referer", referer)
	}

	resp, err := d.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("failed to download video: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return 0, &StatusError{Code: resp.StatusCode}
	}
	if d.maxBytes > 0 && resp.ContentLength > d.maxBytes {
		return 0, tooLarge(resp.ContentLength, d.maxBytes)
	}

	f, err := os.Create(dest)
	if err != nil {
		return 0, fmt.Errorf("create %s: %w", dest, err)
	}
	var src io.Reader = resp.Body
	if d.maxBytes > 0 {
		src = io.LimitReader(resp.Body, d.maxBytes+1)
	}
	n, copyErr := io.Copy(f, src)
	closeErr := f.Close()
	if copyErr != nil {
		return n, fmt.Errorf("write media: %w", copyErr)
	}
	if closeErr != nil {
		return n, fmt.Errorf("close media: %w", closeErr)
	}
	if d.maxBytes > 0 && n > d.maxBytes {
		return n, tooLarge(n, d.maxBytes)
	}
	if n < MinMediaBytes {
		return n, fmt.Errorf("%w (%d bytes)", domain.ErrCorruptMedia, n)
	}
	d.log.Debug().Int64("bytes", n).Str("dest", dest).Msg("download complete")
	return n, nil
}

type permanentError struct {
	msg string
}

func (e *permanentError) Error() string   { return e.msg }
func (e *permanentError) Permanent() bool { return true }

func tooLarge(size, max int64) error {
	return &permanentError{msg: fmt.Sprintf("media exceeds size limit: %d > %d bytes", size, max)}
}
