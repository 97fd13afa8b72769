package insight

import (
	"fmt"
	"math"
	"time"
)

// Category classifies an insight for display.
type Category string

const (
	CategorySuccess Category = "success"
	CategoryWarning Category = "warning"
	CategoryInfo    Category = "info"
)

// Thresholds for the individual insight rules.
const (
	highViewCount      = 1_000_000
	highEngagementRate = 5.0
	lowEngagementRate  = 1.0
	highLikeRatio      = 3.0
	activeCommentCount = 1000
	recentDays         = 7
)

// Insight is a single observation about a video.
type Insight struct {
	Category Category `json:"type"`
	Message  string   `json:"message"`
}

// Result bundles the score, tier, engagement rate and insights of a video.
// It is recomputed on demand and never stored.
type Result struct {
	QualityScore   float64   `json:"quality_score"`
	Performance    Tier      `json:"performance"`
	EngagementRate float64   `json:"engagement_rate"`
	Insights       []Insight `json:"insights"`
}

// Analyze evaluates v against the current time. See AnalyzeAt.
func Analyze(v Video, ch *ChannelStats) Result {
	return AnalyzeAt(v, ch, time.Now())
}

// AnalyzeAt scores v and evaluates the insight rules in display order:
// view volume, engagement, like ratio, comment volume, recency. Each rule is
// independent, so the result holds between zero and five insights.
func AnalyzeAt(v Video, ch *ChannelStats, now time.Time) Result {
	rate := EngagementRate(v)
	score := QualityScore(v, ch)

	insights := []Insight{}

	if v.ViewCount > highViewCount {
		insights = append(insights, Insight{
			Category: CategorySuccess,
			Message:  fmt.Sprintf("높은 조회수: %s 조회", FormatNumber(v.ViewCount)),
		})
	}

	if rate > highEngagementRate {
		insights = append(insights, Insight{
			Category: CategorySuccess,
			Message:  fmt.Sprintf("높은 참여율: %.2f%%", rate),
		})
	} else if rate < lowEngagementRate {
		insights = append(insights, Insight{
			Category: CategoryWarning,
			Message:  fmt.Sprintf("낮은 참여율: %.2f%%", rate),
		})
	}

	if v.ViewCount > 0 {
		likeRatio := float64(v.LikeCount) / float64(v.ViewCount) * 100
		if likeRatio > highLikeRatio {
			insights = append(insights, Insight{
				Category: CategorySuccess,
				Message:  fmt.Sprintf("높은 좋아요 비율: %.2f%%", likeRatio),
			})
		}
	}

	if v.CommentCount > activeCommentCount {
		insights = append(insights, Insight{
			Category: CategoryInfo,
			Message:  fmt.Sprintf("활발한 토론: %s 댓글", FormatNumber(v.CommentCount)),
		})
	}

	if !v.PublishedAt.IsZero() && daysSince(v.PublishedAt, now) < recentDays {
		insights = append(insights, Insight{
			Category: CategoryInfo,
			Message:  "최신 콘텐츠",
		})
	}

	return Result{
		QualityScore:   score,
		Performance:    PerformanceLevel(score),
		EngagementRate: rate,
		Insights:       insights,
	}
}

// daysSince counts started days between t and now. Future timestamps give
// zero or negative values.
func daysSince(t, now time.Time) int64 {
	return int64(math.Ceil(float64(now.Sub(t)) / float64(day)))
}
