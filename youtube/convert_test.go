package youtube

import (
	"math"
	"testing"

	"github.com/stretchr/testify/assert"
	ytapi "google.golang.org/api/youtube/v3"

	"ytinsight/insight"
)

func TestThumbnailURL(t *testing.T) {
	th := func(u string) *ytapi.Thumbnail { return &ytapi.Thumbnail{Url: u} }

	tests := []struct {
		name string
		in   *ytapi.ThumbnailDetails
		want string
	}{
		{"nil", nil, ""},
		{"high wins", &ytapi.ThumbnailDetails{High: th("h"), Medium: th("m"), Default: th("d")}, "h"},
		{"medium next", &ytapi.ThumbnailDetails{Medium: th("m"), Default: th("d")}, "m"},
		{"default last", &ytapi.ThumbnailDetails{Default: th("d")}, "d"},
		{"empty url skipped", &ytapi.ThumbnailDetails{High: th(""), Default: th("d")}, "d"},
		{"none", &ytapi.ThumbnailDetails{}, ""},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, thumbnailURL(tt.in))
		})
	}
}

func TestToVideoMissingParts(t *testing.T) {
	v := toVideo(&ytapi.Video{Id: "x"})
	assert.Equal(t, insight.Video{ID: "x"}, v)

	v = toVideo(&ytapi.Video{
		Id:      "y",
		Snippet: &ytapi.VideoSnippet{Title: "t", PublishedAt: "not a date"},
	})
	assert.Equal(t, "t", v.Title)
	assert.True(t, v.PublishedAt.IsZero())
	assert.Zero(t, v.ViewCount)
}

func TestToInt64Saturates(t *testing.T) {
	assert.Equal(t, int64(42), toInt64(42))
	assert.Equal(t, int64(math.MaxInt64), toInt64(math.MaxUint64))
}
