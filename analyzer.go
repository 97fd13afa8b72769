package ytinsight

import (
	"context"
	"strings"
	"time"

	"github.com/rs/zerolog"

	"ytinsight/insight"
	"ytinsight/storage"
	"ytinsight/youtube"
)

// Source supplies video and channel records. *youtube.Client implements it.
type Source interface {
	Search(ctx context.Context, keyword string, opts youtube.SearchOptions) ([]insight.Video, error)
	Video(ctx context.Context, id string) (insight.Video, error)
	ChannelStats(ctx context.Context, channelID string) (*insight.ChannelStats, error)
	ChannelStatsBatch(ctx context.Context, ids []string) (map[string]*insight.ChannelStats, error)
}

var _ Source = (*youtube.Client)(nil)

// SearchOptions controls a search.
type SearchOptions struct {
	// Criterion orders the results. Empty means quality; unknown criteria
	// keep the search order.
	Criterion insight.Criterion
	// MaxResults is passed to the source; zero means the source default.
	MaxResults int
	// WithChannels fetches channel statistics for the insight panel.
	WithChannels bool
	// RegionCode and Language override the source defaults.
	RegionCode string
	Language   string
}

// Entry is one analyzed search result.
type Entry struct {
	Video insight.Video `json:"video"`
	// Channel is nil when statistics were not requested or not available.
	Channel *insight.ChannelStats `json:"channel,omitempty"`
	Insight insight.Result        `json:"insight"`
}

// Analyzer runs searches and annotates the results.
type Analyzer struct {
	Source Source
	// History records each search when set.
	History storage.HistoryStore
	Logger  zerolog.Logger
	// Now is the reference clock for recency; nil means time.Now.
	Now func() time.Time
}

// Search fetches videos for keyword, ranks them and analyzes each one.
// Channel statistics failures are logged and leave Entry.Channel nil.
func (a *Analyzer) Search(ctx context.Context, keyword string, opts SearchOptions) ([]Entry, error) {
	if a.Source == nil {
		return nil, ErrNoSource
	}
	criterion := opts.Criterion
	if criterion == "" {
		criterion = insight.ByQuality
	}

	videos, err := a.Source.Search(ctx, keyword, youtube.SearchOptions{
		MaxResults: opts.MaxResults,
		RegionCode: opts.RegionCode,
		Language:   opts.Language,
	})
	if err != nil {
		return nil, err
	}
	ranked := insight.Sort(videos, criterion)

	var channels map[string]*insight.ChannelStats
	if opts.WithChannels && len(ranked) > 0 {
		channels = a.channelStats(ctx, ranked)
	}

	now := a.now()
	entries := make([]Entry, 0, len(ranked))
	for _, v := range ranked {
		ch := channels[v.ChannelID]
		entries = append(entries, Entry{
			Video:   v,
			Channel: ch,
			Insight: insight.AnalyzeAt(v, ch, now),
		})
	}

	a.Logger.Info().
		Str("keyword", strings.TrimSpace(keyword)).
		Str("criterion", string(criterion)).
		Int("results", len(entries)).
		Msg("search analyzed")

	a.record(ctx, keyword, criterion, opts.MaxResults, entries)
	return entries, nil
}

// Inspect analyzes a single video, with its channel statistics when the
// channel can be fetched.
func (a *Analyzer) Inspect(ctx context.Context, videoID string) (Entry, error) {
	if a.Source == nil {
		return Entry{}, ErrNoSource
	}
	v, err := a.Source.Video(ctx, videoID)
	if err != nil {
		return Entry{}, err
	}

	var ch *insight.ChannelStats
	if v.ChannelID != "" {
		ch, err = a.Source.ChannelStats(ctx, v.ChannelID)
		if err != nil {
			a.Logger.Warn().Err(err).Str("channel_id", v.ChannelID).Msg("channel stats unavailable")
			ch = nil
		}
	}
	return Entry{Video: v, Channel: ch, Insight: insight.AnalyzeAt(v, ch, a.now())}, nil
}

func (a *Analyzer) channelStats(ctx context.Context, videos []insight.Video) map[string]*insight.ChannelStats {
	ids := make([]string, 0, len(videos))
	for _, v := range videos {
		if v.ChannelID != "" {
			ids = append(ids, v.ChannelID)
		}
	}
	stats, err := a.Source.ChannelStatsBatch(ctx, ids)
	if err != nil {
		a.Logger.Warn().Err(err).Int("channels", len(ids)).Msg("channel stats unavailable")
	}
	return stats
}

// record saves a history entry. Failures are logged, not returned.
func (a *Analyzer) record(ctx context.Context, keyword string, criterion insight.Criterion, maxResults int, entries []Entry) {
	if a.History == nil {
		return
	}
	rec := &storage.SearchRecord{
		Keyword:     strings.TrimSpace(keyword),
		Criterion:   string(criterion),
		MaxResults:  maxResults,
		ResultCount: len(entries),
		VideoIDs:    make([]string, 0, len(entries)),
		CreatedAt:   a.now(),
	}
	for _, e := range entries {
		rec.VideoIDs = append(rec.VideoIDs, e.Video.ID)
	}
	if len(entries) > 0 {
		rec.TopVideoID = entries[0].Video.ID
		rec.TopVideoTitle = entries[0].Video.Title
		rec.TopScore = entries[0].Insight.QualityScore
	}
	if err := a.History.AddSearch(ctx, rec); err != nil {
		a.Logger.Warn().Err(err).Msg("search history not saved")
	}
}

func (a *Analyzer) now() time.Time {
	if a.Now != nil {
		return a.Now()
	}
	return time.Now()
}
