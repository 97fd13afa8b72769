package render

import (
	"strings"
	"testing"
	"time"

	"github.com/charmbracelet/lipgloss"
	"github.com/stretchr/testify/assert"

	"ytinsight"
	"ytinsight/insight"
	"ytinsight/storage"
)

var refTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func sampleEntry(withChannel bool) ytinsight.Entry {
	v := insight.Video{
		ID:           "abc123",
		Title:        "Go Concurrency Patterns",
		ChannelTitle: "Gopher Academy",
		ChannelID:    "UC1",
		PublishedAt:  refTime.Add(-3 * 24 * time.Hour),
		ViewCount:    1_500_000,
		LikeCount:    80_000,
		CommentCount: 2_500,
		Duration:     "PT1H2M3S",
	}
	var ch *insight.ChannelStats
	if withChannel {
		ch = &insight.ChannelStats{SubscriberCount: 120_000, VideoCount: 340, ViewCount: 25_000_000}
	}
	return ytinsight.Entry{Video: v, Channel: ch, Insight: insight.AnalyzeAt(v, ch, refTime)}
}

func TestCard(t *testing.T) {
	e := sampleEntry(false)
	out := Card(e, Options{Now: refTime, Rank: 2})

	assert.Contains(t, out, "#2 Go Concurrency Patterns")
	assert.Contains(t, out, "Gopher Academy")
	assert.NotContains(t, out, "구독자")
	assert.Contains(t, out, "조회 1.5M · 좋아요 80.0K · 댓글 2.5K")
	assert.Contains(t, out, "3일 전 · 1:02:03")
	assert.Contains(t, out, e.Insight.Performance.Label)
	assert.Contains(t, out, "https://www.youtube.com/watch?v=abc123")
	assert.NotContains(t, out, "최신 콘텐츠", "insights are hidden by default")
}

func TestCardWithChannelAndInsights(t *testing.T) {
	out := Card(sampleEntry(true), Options{Now: refTime, ShowInsights: true})

	assert.Contains(t, out, "구독자 120.0K명")
	assert.Contains(t, out, "높은 조회수: 1.5M 조회")
	assert.Contains(t, out, "최신 콘텐츠")
	assert.Contains(t, out, "채널 총 조회수 25.0M · 채널 영상 수 340")
}

func TestCardWidth(t *testing.T) {
	e := sampleEntry(true)
	e.Video.Title = strings.Repeat("아주 긴 제목 ", 20)
	out := Card(e, Options{Width: 60, Now: refTime, ShowInsights: true})

	for _, line := range strings.Split(out, "\n") {
		assert.LessOrEqual(t, lipgloss.Width(line), 60)
	}
}

func TestList(t *testing.T) {
	entries := []ytinsight.Entry{sampleEntry(false), sampleEntry(false)}
	out := List(entries, insight.ByViews, Options{Now: refTime})

	assert.Contains(t, out, "검색 결과 2개 · 조회수 많은 순")
	assert.Contains(t, out, "#1 ")
	assert.Contains(t, out, "#2 ")
}

func TestListEmpty(t *testing.T) {
	assert.Contains(t, List(nil, insight.ByQuality, Options{}), "검색 결과가 없습니다")
}

func TestTable(t *testing.T) {
	out := Table([]ytinsight.Entry{sampleEntry(false)})

	for _, want := range []string{"제목", "점수", "Go Concurrency Patterns", "1.5M", "80.0K"} {
		assert.Contains(t, out, want)
	}
}

func TestHistory(t *testing.T) {
	out := History([]*storage.SearchRecord{{
		ID:            "abc123",
		Keyword:       "golang",
		Criterion:     "views",
		ResultCount:   12,
		TopVideoTitle: "Go Concurrency Patterns",
		TopScore:      87.5,
		CreatedAt:     time.Date(2024, 5, 1, 9, 0, 0, 0, time.UTC),
	}})

	for _, want := range []string{"키워드", "abc123", "golang", "조회수 많은 순", "12", "87.5"} {
		assert.Contains(t, out, want)
	}
	assert.Contains(t, History(nil), "검색 기록이 없습니다")
}

func TestTruncate(t *testing.T) {
	assert.Equal(t, "short", truncate("short", 10))
	assert.Equal(t, "abcd…", truncate("abcdefgh", 5))
	assert.LessOrEqual(t, lipgloss.Width(truncate("가나다라마바사", 6)), 6)
	assert.Equal(t, "any", truncate("any", 0))
}
