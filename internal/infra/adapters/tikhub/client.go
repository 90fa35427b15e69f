package tikhub

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strings"
	"time"

	"github.com/rs/zerolog"
	"github.com/tidwall/gjson"

	"video-analyzer/internal/config"
	"video-analyzer/internal/domain"
	"video-analyzer/internal/domain/model"
	"video-analyzer/internal/domain/ports/adapter"
)

var _ adapter.MetadataProvider = (*Client)(nil)

const maxBodyBytes = 8 << 20

// endpoint describes how one platform is queried and normalized.
type endpoint struct {
	path      string
	param     string
	value     func(sourceURL string) (string, error)
	normalize func(data gjson.Result) model.Metadata
}

var endpoints = map[model.Platform]endpoint{
	model.PlatformDouyin: {
		path: "/api/v1/douyin/app/v3/fetch_one_video_by_share_url", param: "share_url",
		value: identity, normalize: normalizeAweme,
	},
	model.PlatformTikTok: {
		path: "/api/v1/tiktok/app/v3/fetch_one_video_by_share_url", param: "share_url",
		value: identity, normalize: normalizeAweme,
	},
	model.PlatformYouTube: {
		path: "/api/v1/youtube/web/get_video_info", param: "video_id",
		value: youTubeID, normalize: normalizeYouTube,
	},
	model.PlatformXiaohongshu: {
		path: "/api/v1/xiaohongshu/app/get_note_info", param: "url",
		value: identity, normalize: normalizeXiaohongshu,
	},
	model.PlatformBilibili: {
		path: "/api/v1/bilibili/app/fetch_one_video", param: "url",
		value: identity, normalize: normalizeBilibili,
	},
}

// Client resolves video metadata through the TikHub aggregation API.
type Client struct {
	baseURL string
	token   string
	http    *http.Client
	log     *zerolog.Logger
}

func NewClient(cfg config.TikHubConfig, logger *zerolog.Logger) *Client {
	l := logger.With().Str("component", "TikHub").Logger()
	timeout := cfg.Timeout
	if timeout <= 0 {
		timeout = 30 * time.Second
	}
	return &Client{
		baseURL: strings.TrimRight(cfg.BaseURL, "/"),
		token:   cfg.Token,
		http:    &http.Client{Timeout: timeout},
		log:     &l,
	}
}

// Configured reports whether a token is present.
func (c *Client) Configured() bool { return c.token != "" }

func (c *Client) Fetch(ctx context.Context, platform model.Platform, sourceURL string) (model.Metadata, error) {
	if c.token == "" {
		return model.Metadata{}, fmt.Errorf("%w: TIKHUB_API_TOKEN not set", domain.ErrCredential)
	}
	ep, ok := endpoints[platform]
	if !ok {
		return model.Metadata{}, fmt.Errorf("%w: platform %s is not yet implemented", domain.ErrUnsupportedPlatform, platform)
	}
	v, err := ep.value(sourceURL)
	if err != nil {
		return model.Metadata{}, err
	}

	q := url.Values{}
	q.Set(ep.param, v)
	body, err := c.get(ctx, ep.path+"?"+q.Encode())
	if err != nil {
		return model.Metadata{}, err
	}

	env := gjson.ParseBytes(body)
	if code := env.Get("code").Int(); code != 200 {
		msg := env.Get("message").String()
		if msg == "" {
			msg = fmt.Sprintf("failed to fetch %s video", platform)
		}
		return model.Metadata{}, fmt.Errorf("%w: %s (code %d)", domain.ErrMetadataUnavailable, msg, code)
	}
	data := env.Get("data")
	if !data.Exists() || data.Type == gjson.Null {
		return model.Metadata{}, fmt.Errorf("%w: empty data for %s", domain.ErrMetadataUnavailable, platform)
	}

	md := ep.normalize(data)
	c.log.Debug().Str("platform", string(platform)).Str("video_id", md.VideoID).
		Bool("has_play_url", md.PlayURL != "").Int("duration", md.DurationSeconds).Msg("metadata fetched")
	return md, nil
}

func (c *Client) get(ctx context.Context, pathAndQuery string) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+pathAndQuery, nil)
	if err != nil {
		return nil, fmt.Errorf("failed to create request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.http.Do(req)
	if err != nil {
		if errors.Is(err, context.DeadlineExceeded) || errors.Is(ctx.Err(), context.DeadlineExceeded) {
			return nil, fmt.Errorf("%w: tikhub request: %v", domain.ErrStageTimeout, err)
		}
		return nil, fmt.Errorf("%w: tikhub request: %v", domain.ErrMetadataUnavailable, err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, fmt.Errorf("%w: read body: %v", domain.ErrMetadataUnavailable, err)
	}
	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		return nil, fmt.Errorf("%w: tikhub status %d", domain.ErrCredential, resp.StatusCode)
	case resp.StatusCode != http.StatusOK:
		return nil, fmt.Errorf("%w: tikhub status %d: %s", domain.ErrMetadataUnavailable, resp.StatusCode, truncate(string(body), 256))
	}
	return body, nil
}

func identity(s string) (string, error) { return s, nil }

// youTubeID reads the id from youtu.be/<id> or youtube.com/watch?v=<id>.
func youTubeID(sourceURL string) (string, error) {
	var id string
	switch {
	case strings.Contains(sourceURL, "youtu.be/"):
		id = strings.SplitN(strings.SplitN(sourceURL, "youtu.be/", 2)[1], "?", 2)[0]
	case strings.Contains(sourceURL, "youtube.com/watch?"):
		if u, err := url.Parse(sourceURL); err == nil {
			id = u.Query().Get("v")
		}
	}
	if id == "" {
		return "", fmt.Errorf("%w: invalid YouTube URL", domain.ErrInvalidURL)
	}
	return id, nil
}

func truncate(s string, max int) string {
	if len(s) <= max {
		return s
	}
	return s[:max] + "...(truncated)"
}
