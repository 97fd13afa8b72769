package insight

import (
	"cmp"
	"slices"
	"strings"
)

// Criterion selects the field a result set is ordered by.
type Criterion string

const (
	ByQuality  Criterion = "quality"
	ByViews    Criterion = "views"
	ByLikes    Criterion = "likes"
	ByComments Criterion = "comments"
	ByDate     Criterion = "date"
)

var criterionLabels = map[Criterion]string{
	ByQuality:  "품질 점수 높은 순",
	ByViews:    "조회수 많은 순",
	ByLikes:    "좋아요 많은 순",
	ByComments: "댓글 많은 순",
	ByDate:     "최신순",
}

// Criteria returns every supported criterion in display order.
func Criteria() []Criterion {
	return []Criterion{ByQuality, ByViews, ByLikes, ByComments, ByDate}
}

// ParseCriterion resolves a criterion name, ignoring case and surrounding
// whitespace.
func ParseCriterion(s string) (Criterion, bool) {
	c := Criterion(strings.ToLower(strings.TrimSpace(s)))
	_, ok := criterionLabels[c]
	return c, ok
}

// Label returns the display label of the criterion, or the raw value for
// unknown criteria.
func (c Criterion) Label() string {
	if l, ok := criterionLabels[c]; ok {
		return l
	}
	return string(c)
}

// Sort returns a copy of videos ordered by the criterion, highest or most
// recent first. Unknown criteria return the copy in input order. Ties keep
// their input order. The input slice is never modified.
//
// Quality ordering scores every video without channel statistics, so results
// can be ranked before any channel has been fetched.
func Sort(videos []Video, by Criterion) []Video {
	sorted := slices.Clone(videos)
	if sorted == nil {
		sorted = []Video{}
	}

	switch by {
	case ByQuality:
		// Score each video once rather than on every comparison.
		type scored struct {
			video Video
			score float64
		}
		pairs := make([]scored, len(sorted))
		for i, v := range sorted {
			pairs[i] = scored{v, QualityScore(v, nil)}
		}
		slices.SortStableFunc(pairs, func(a, b scored) int {
			return cmp.Compare(b.score, a.score)
		})
		for i, p := range pairs {
			sorted[i] = p.video
		}
	case ByViews:
		sortDesc(sorted, func(v Video) int64 { return v.ViewCount })
	case ByLikes:
		sortDesc(sorted, func(v Video) int64 { return v.LikeCount })
	case ByComments:
		sortDesc(sorted, func(v Video) int64 { return v.CommentCount })
	case ByDate:
		slices.SortStableFunc(sorted, func(a, b Video) int {
			return b.PublishedAt.Compare(a.PublishedAt)
		})
	}
	return sorted
}

func sortDesc[K cmp.Ordered](videos []Video, key func(Video) K) {
	slices.SortStableFunc(videos, func(a, b Video) int {
		return cmp.Compare(key(b), key(a))
	})
}
