package insight

import (
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var refTime = time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

func categories(insights []Insight) []Category {
	out := make([]Category, len(insights))
	for i, in := range insights {
		out[i] = in.Category
	}
	return out
}

func TestAnalyzeAt_PopularVideo(t *testing.T) {
	v := Video{
		ID:           "popular",
		ViewCount:    2_000_000,
		LikeCount:    80_000,
		CommentCount: 1_500,
		PublishedAt:  refTime.Add(-29 * day),
	}

	res := AnalyzeAt(v, nil, refTime)

	// Engagement is 4.075%, inside the band that produces no insight.
	assert.InDelta(t, 4.075, res.EngagementRate, 0.01)
	require.Equal(t, []Insight{
		{CategorySuccess, "높은 조회수: 2.0M 조회"},
		{CategorySuccess, "높은 좋아요 비율: 4.00%"},
		{CategoryInfo, "활발한 토론: 1.5K 댓글"},
	}, res.Insights)

	assert.InDelta(t, 89.5, res.QualityScore, 0.2)
	assert.Equal(t, LevelTop, res.Performance.Level)
}

func TestAnalyzeAt_HighEngagement(t *testing.T) {
	v := Video{ViewCount: 1000, LikeCount: 60, PublishedAt: refTime.Add(-2 * day)}

	res := AnalyzeAt(v, nil, refTime)

	assert.Equal(t, 6.0, res.EngagementRate)
	assert.Equal(t, 50.0, res.QualityScore)
	assert.Equal(t, "양호", res.Performance.Label)
	assert.Equal(t, []Insight{
		{CategorySuccess, "높은 참여율: 6.00%"},
		{CategorySuccess, "높은 좋아요 비율: 6.00%"},
		{CategoryInfo, "최신 콘텐츠"},
	}, res.Insights)
}

func TestAnalyzeAt_LowEngagementWarning(t *testing.T) {
	v := Video{ViewCount: 10_000, LikeCount: 50, CommentCount: 10, PublishedAt: refTime.Add(-90 * day)}

	res := AnalyzeAt(v, nil, refTime)

	require.Len(t, res.Insights, 1)
	assert.Equal(t, CategoryWarning, res.Insights[0].Category)
	assert.Equal(t, "낮은 참여율: 0.60%", res.Insights[0].Message)
}

func TestAnalyzeAt_EngagementBoundaries(t *testing.T) {
	// Exactly 5% and exactly 1% fall in the silent band.
	five := AnalyzeAt(Video{ViewCount: 100, LikeCount: 2, CommentCount: 3}, nil, refTime)
	assert.NotContains(t, categories(five.Insights), CategoryWarning)
	for _, in := range five.Insights {
		assert.NotContains(t, in.Message, "참여율")
	}

	one := AnalyzeAt(Video{ViewCount: 100, CommentCount: 1}, nil, refTime)
	for _, in := range one.Insights {
		assert.NotContains(t, in.Message, "참여율")
	}
}

func TestAnalyzeAt_ZeroViews(t *testing.T) {
	res := AnalyzeAt(Video{}, nil, refTime)

	assert.Zero(t, res.QualityScore)
	assert.Zero(t, res.EngagementRate)
	assert.Equal(t, "낮음", res.Performance.Label)
	assert.Equal(t, []Insight{{CategoryWarning, "낮은 참여율: 0.00%"}}, res.Insights)
}

func TestAnalyzeAt_Recency(t *testing.T) {
	tests := []struct {
		name   string
		age    time.Duration
		recent bool
	}{
		{"published today", time.Hour, true},
		{"six days", 6 * day, true},
		{"seven days", 7 * day, false},
		{"six and a half days rounds up", 6*day + 12*time.Hour, false},
		{"scheduled in the future", -day, true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			v := Video{ViewCount: 100, LikeCount: 3, PublishedAt: refTime.Add(-tt.age)}
			res := AnalyzeAt(v, nil, refTime)

			var found bool
			for _, in := range res.Insights {
				if in.Message == "최신 콘텐츠" {
					found = true
					assert.Equal(t, CategoryInfo, in.Category)
				}
			}
			assert.Equal(t, tt.recent, found)
		})
	}
}

func TestAnalyzeAt_NoPublishDate(t *testing.T) {
	res := AnalyzeAt(Video{ViewCount: 100, LikeCount: 3}, nil, refTime)
	for _, in := range res.Insights {
		assert.NotEqual(t, "최신 콘텐츠", in.Message)
	}
}

func TestAnalyzeAt_Reproducible(t *testing.T) {
	v := Video{ViewCount: 345_678, LikeCount: 12_345, CommentCount: 678, PublishedAt: refTime.Add(-3 * day)}
	ch := &ChannelStats{SubscriberCount: 10_000}

	assert.Equal(t, AnalyzeAt(v, ch, refTime), AnalyzeAt(v, ch, refTime))
	assert.Equal(t, AnalyzeAt(v, nil, refTime), AnalyzeAt(v, ch, refTime))
}

func TestAnalyzeAt_InsightsNeverNil(t *testing.T) {
	// 1%-5% engagement, no other rule fires.
	res := AnalyzeAt(Video{ViewCount: 100, LikeCount: 2}, nil, refTime)
	assert.NotNil(t, res.Insights)
	assert.Empty(t, res.Insights)
}
