package insight

import "math"

// Component caps of the quality score. Each component saturates on its own
// so no single metric can push a video past its band.
const (
	viewScoreCap       = 30
	engagementScoreCap = 30
	likeScoreCap       = 20
	commentScoreCap    = 20

	maxScore = 100
)

// Level identifies a performance tier, ordered from lowest to highest.
type Level int

const (
	LevelLow Level = iota
	LevelAverage
	LevelGood
	LevelExcellent
	LevelTop
)

// String returns the English name of the level.
func (l Level) String() string {
	switch l {
	case LevelTop:
		return "top"
	case LevelExcellent:
		return "excellent"
	case LevelGood:
		return "good"
	case LevelAverage:
		return "average"
	case LevelLow:
		return "low"
	default:
		return "unknown"
	}
}

// Tier is a labelled performance band with its display colour.
type Tier struct {
	Level Level  `json:"-"`
	Label string `json:"level"`
	Color string `json:"color"`
}

// tiers is evaluated top-down; the first tier whose MinScore the score
// reaches wins.
var tiers = []struct {
	MinScore float64
	Tier     Tier
}{
	{80, Tier{LevelTop, "최고", "#22c55e"}},
	{60, Tier{LevelExcellent, "우수", "#3b82f6"}},
	{40, Tier{LevelGood, "양호", "#f59e0b"}},
	{20, Tier{LevelAverage, "보통", "#ef4444"}},
}

var lowTier = Tier{LevelLow, "낮음", "#9ca3af"}

// EngagementRate returns (likes + comments) / views as a percentage rounded
// to two decimals. It is 0 for videos without views.
func EngagementRate(v Video) float64 {
	if v.ViewCount <= 0 {
		return 0
	}
	engagements := float64(nonNegative(v.LikeCount)) + float64(nonNegative(v.CommentCount))
	rate := round(engagements/float64(v.ViewCount)*100, 2)
	return math.Min(rate, 100)
}

// QualityScore computes the 0-100 composite quality score of a video.
//
// The score adds four components:
//
//	views       views / 1M * 30          (max 30)
//	engagement  EngagementRate * 6       (max 30)
//	likes       like ratio %  * 200      (max 20)
//	comments    comment ratio % * 200    (max 20)
//
// Channel statistics are accepted but do not contribute yet; pass nil when
// they are unavailable. Ranking relies on that to score before channel data
// has been fetched.
func QualityScore(v Video, _ *ChannelStats) float64 {
	score := math.Min(float64(nonNegative(v.ViewCount))/1_000_000*30, viewScoreCap)
	score += math.Min(EngagementRate(v)*6, engagementScoreCap)

	if v.ViewCount > 0 {
		views := float64(v.ViewCount)
		likeRatio := float64(nonNegative(v.LikeCount)) / views * 100
		score += math.Min(likeRatio*200, likeScoreCap)

		commentRatio := float64(nonNegative(v.CommentCount)) / views * 100
		score += math.Min(commentRatio*200, commentScoreCap)
	}

	return clamp(round(math.Min(score, maxScore), 1), 0, maxScore)
}

// PerformanceLevel maps a quality score onto its tier. Lower bounds are
// inclusive: a score of exactly 80 is top tier.
func PerformanceLevel(score float64) Tier {
	for _, t := range tiers {
		if score >= t.MinScore {
			return t.Tier
		}
	}
	return lowTier
}

func round(x float64, decimals int) float64 {
	p := math.Pow10(decimals)
	return math.Round(x*p) / p
}

func clamp(x, lo, hi float64) float64 {
	return math.Max(lo, math.Min(x, hi))
}

func nonNegative(n int64) int64 {
	if n < 0 {
		return 0
	}
	return n
}
