package tikhub

import (
	"strings"

	"github.com/tidwall/gjson"

	"video-analyzer/internal/domain/model"
)

// first returns the first non-empty string among paths.
func first(r gjson.Result, paths ...string) string {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.String() != "" {
			return v.String()
		}
	}
	return ""
}

// firstInt returns the first non-zero integer among paths. Display strings
// such as "1.2万" parse as zero and fall through to the next path.
func firstInt(r gjson.Result, paths ...string) int64 {
	for _, p := range paths {
		if n := r.Get(p).Int(); n != 0 {
			return n
		}
	}
	return 0
}

// root picks the first existing sub-object or falls back to r itself.
func root(r gjson.Result, paths ...string) gjson.Result {
	for _, p := range paths {
		if v := r.Get(p); v.Exists() && v.IsObject() {
			return v
		}
	}
	return r
}

func stringList(r gjson.Result) []string {
	out := []string{}
	for _, v := range r.Array() {
		if s := strings.TrimSpace(v.String()); s != "" {
			out = append(out, s)
		}
	}
	return out
}

// normalizeAweme covers Douyin and TikTok, which share the aweme layout.
// The duration field is in milliseconds on both apps.
func normalizeAweme(data gjson.Result) model.Metadata {
	d := root(data, "aweme_detail")
	desc := d.Get("desc").String()
	return model.Metadata{
		VideoID:         d.Get("aweme_id").String(),
		Title:           desc,
		Description:     desc,
		Author:          d.Get("author.nickname").String(),
		AuthorID:        d.Get("author.unique_id").String(),
		CoverURL:        d.Get("video.cover.url_list.0").String(),
		PlayURL:         first(d, "video.play_addr.url_list.0", "video.download_addr.url_list.0"),
		DurationSeconds: msToSeconds(d.Get("video.duration").Int()),
		Hashtags:        stringList(d.Get("text_extra.#.hashtag_name")),
		ViewCount:       d.Get("statistics.play_count").Int(),
		LikeCount:       d.Get("statistics.digg_count").Int(),
		CommentCount:    d.Get("statistics.comment_count").Int(),
		ShareCount:      d.Get("statistics.share_count").Int(),
	}
}

func normalizeYouTube(data gjson.Result) model.Metadata {
	return model.Metadata{
		VideoID:         data.Get("videoDetails.videoId").String(),
		Title:           data.Get("videoDetails.title").String(),
		Description:     data.Get("videoDetails.shortDescription").String(),
		Author:          data.Get("videoDetails.author").String(),
		AuthorID:        data.Get("videoDetails.channelId").String(),
		CoverURL:        data.Get("videoDetails.thumbnail.thumbnails.0.url").String(),
		PlayURL:         data.Get("streamingData.formats.0.url").String(),
		DurationSeconds: int(data.Get("videoDetails.lengthSeconds").Int()),
		Hashtags:        stringList(data.Get("videoDetails.keywords")),
		ViewCount:       data.Get("videoDetails.viewCount").Int(),
	}
}

func normalizeXiaohongshu(data gjson.Result) model.Metadata {
	n := root(data, "note_info", "data.note_info")
	if arr := n.Get("data.0.note_list.0"); arr.Exists() {
		n = arr
	}
	tags := stringList(n.Get("tag_list.#.name"))
	if len(tags) == 0 {
		tags = stringList(n.Get("tag_list.#.tag_name"))
	}
	durMs := firstInt(n, "video.consumer.video_duration", "video.duration")
	return model.Metadata{
		VideoID:         first(n, "note_id", "id"),
		Title:           first(n, "title", "desc", "description"),
		Description:     first(n, "desc", "description"),
		Author:          first(n, "user.nickname", "user.nick_name", "author.nickname"),
		AuthorID:        first(n, "user.user_id", "user.id"),
		CoverURL:        first(n, "image_list.0.url_default", "cover.url_default", "images.0"),
		PlayURL:         first(n, "video.media.stream.h264.0.master_url", "video.media.stream.h264.0.backup_urls.0", "video.consumer.origin_video_key", "video.url"),
		DurationSeconds: msToSeconds(durMs),
		Hashtags:        tags,
		ViewCount:       firstInt(n, "interact_info.view_count", "view_count"),
		LikeCount:       firstInt(n, "interact_info.liked_count", "like_count"),
		CommentCount:    firstInt(n, "interact_info.comment_count", "comment_count"),
		ShareCount:      firstInt(n, "interact_info.share_count", "share_count"),
	}
}

func normalizeBilibili(data gjson.Result) model.Metadata {
	v := root(data, "View", "data.View")
	var tags []string
	for _, t := range strings.Split(v.Get("tag").String(), ",") {
		if t = strings.TrimSpace(t); t != "" {
			tags = append(tags, t)
		}
	}
	if tags == nil {
		tags = []string{}
	}
	return model.Metadata{
		VideoID:         first(v, "bvid", "aid"),
		Title:           v.Get("title").String(),
		Description:     first(v, "desc", "dynamic"),
		Author:          first(v, "owner.name", "author"),
		AuthorID:        v.Get("owner.mid").String(),
		CoverURL:        first(v, "pic", "cover"),
		PlayURL:         first(v, "durl.0.url", "dash.video.0.baseUrl", "dash.video.0.base_url"),
		DurationSeconds: int(v.Get("duration").Int()),
		Hashtags:        tags,
		ViewCount:       firstInt(v, "stat.view", "view"),
		LikeCount:       firstInt(v, "stat.like", "like"),
		CommentCount:    firstInt(v, "stat.reply", "reply"),
		ShareCount:      firstInt(v, "stat.share", "share"),
	}
}

func msToSeconds(ms int64) int {
	if ms <= 0 {
		return 0
	}
	return int(ms / 1000)
}
