package model

import (
	"strings"

	"video-analyzer/internal/domain"
)

type Platform string

const (
	PlatformDouyin      Platform = "douyin"
	PlatformTikTok      Platform = "tiktok"
	PlatformYouTube     Platform = "youtube"
	PlatformXiaohongshu Platform = "xiaohongshu"
	PlatformBilibili    Platform = "bilibili"
	PlatformKuaishou    Platform = "kuaishou"
	PlatformWeibo       Platform = "weibo"
	PlatformInstagram   Platform = "instagram"
	PlatformTwitter     Platform = "twitter"
)

// platformHosts is checked in order; the first matching substring wins.
var platformHosts = []struct {
	platform Platform
	hosts    []string
}{
	{PlatformDouyin, []string{"douyin.com", "iesdouyin.com"}},
	{PlatformTikTok, []string{"tiktok.com"}},
	{PlatformYouTube, []string{"youtube.com", "youtu.be"}},
	{PlatformXiaohongshu, []string{"xiaohongshu.com", "xhslink.com"}},
	{PlatformBilibili, []string{"bilibili.com", "b23.tv"}},
	{PlatformKuaishou, []string{"kuaishou.com"}},
	{PlatformWeibo, []string{"weibo.com", "weibo.cn"}},
	{PlatformInstagram, []string{"instagram.com"}},
	{PlatformTwitter, []string{"twitter.com", "x.com"}},
}

// ResolvePlatform maps a source URL to its hosting platform using
// case-insensitive substring matching.
func ResolvePlatform(url string) (Platform, error) {
	lower := strings.ToLower(url)
	for _, entry := range platformHosts {
		for _, h := range entry.hosts {
			if strings.Contains(lower, h) {
				return entry.platform, nil
			}
		}
	}
	return "", domain.ErrUnsupportedPlatform
}
