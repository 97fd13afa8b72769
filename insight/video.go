// Package insight scores YouTube videos and derives qualitative insights
// from their statistics.
//
// Everything in this package is pure: functions take normalized video and
// channel records and return values computed from them alone. Fetching the
// records and rendering the results belong to other packages.
package insight

import "time"

// Video is a normalized video record as supplied by a data source.
type Video struct {
	// ID is the YouTube video ID (e.g., "dQw4w9WgXcQ").
	ID string `json:"id"`
	// Title is the video title.
	Title string `json:"title"`
	// Description is the video description. May be truncated by some sources.
	Description string `json:"description,omitempty"`
	// ChannelTitle is the display name of the uploading channel.
	ChannelTitle string `json:"channel_title"`
	// ChannelID is the YouTube channel ID (e.g., "UCuAXFkgsw1L7xaCfnd5JJOw").
	ChannelID string `json:"channel_id"`
	// Thumbnail is the URL of the best available thumbnail image.
	Thumbnail string `json:"thumbnail,omitempty"`
	// PublishedAt is when the video was published.
	PublishedAt time.Time `json:"published_at"`
	// ViewCount, LikeCount and CommentCount are zero when the source hides them.
	ViewCount    int64 `json:"view_count"`
	LikeCount    int64 `json:"like_count"`
	CommentCount int64 `json:"comment_count"`
	// Duration is an ISO 8601 duration such as "PT1H30M15S".
	Duration string `json:"duration"`
	// Tags are the uploader-supplied keywords.
	Tags []string `json:"tags,omitempty"`
}

// URL returns the watch page URL for this video.
func (v Video) URL() string {
	return "https://www.youtube.com/watch?v=" + v.ID
}

// ChannelStats holds channel-wide statistics.
// A nil *ChannelStats means the statistics are not available.
type ChannelStats struct {
	SubscriberCount int64 `json:"subscriber_count"`
	VideoCount      int64 `json:"video_count"`
	ViewCount       int64 `json:"view_count"`
}
