package youtube

import (
	"math"
	"time"

	ytapi "google.golang.org/api/youtube/v3"

	"ytinsight/insight"
)

// toVideo normalizes a videos.list item. Missing statistics become zero.
func toVideo(item *ytapi.Video) insight.Video {
	v := insight.Video{ID: item.Id}

	if s := item.Snippet; s != nil {
		v.Title = s.Title
		v.Description = s.Description
		v.ChannelID = s.ChannelId
		v.ChannelTitle = s.ChannelTitle
		v.Thumbnail = thumbnailURL(s.Thumbnails)
		v.Tags = s.Tags
		if t, err := time.Parse(time.RFC3339, s.PublishedAt); err == nil {
			v.PublishedAt = t
		}
	}
	if st := item.Statistics; st != nil {
		v.ViewCount = toInt64(st.ViewCount)
		v.LikeCount = toInt64(st.LikeCount)
		v.CommentCount = toInt64(st.CommentCount)
	}
	if cd := item.ContentDetails; cd != nil {
		v.Duration = cd.Duration
	}
	return v
}

// toChannelStats converts channels.list statistics. A hidden subscriber
// count is reported as zero.
func toChannelStats(item *ytapi.Channel) insight.ChannelStats {
	var cs insight.ChannelStats
	if st := item.Statistics; st != nil {
		if !st.HiddenSubscriberCount {
			cs.SubscriberCount = toInt64(st.SubscriberCount)
		}
		cs.VideoCount = toInt64(st.VideoCount)
		cs.ViewCount = toInt64(st.ViewCount)
	}
	return cs
}

// thumbnailURL prefers high, then medium, then default resolution.
func thumbnailURL(t *ytapi.ThumbnailDetails) string {
	if t == nil {
		return ""
	}
	for _, th := range []*ytapi.Thumbnail{t.High, t.Medium, t.Default} {
		if th != nil && th.Url != "" {
			return th.Url
		}
	}
	return ""
}

func toInt64(n uint64) int64 {
	if n > math.MaxInt64 {
		return math.MaxInt64
	}
	return int64(n)
}
