// Package youtube fetches video and channel statistics from the YouTube
// Data API v3.
package youtube

import (
	"context"
	"fmt"
	"net/http"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/hashicorp/golang-lru/v2/expirable"
	"github.com/rs/zerolog"
	"golang.org/x/sync/errgroup"
	"google.golang.org/api/googleapi/transport"
	"google.golang.org/api/option"
	ytapi "google.golang.org/api/youtube/v3"

	ythttp "ytinsight/http"
	"ytinsight/insight"
	"ytinsight/internal/metrics"
	"ytinsight/internal/retry"
)

const (
	// MaxResultsPerPage is the largest page the search and list calls accept.
	MaxResultsPerPage = 50

	// DefaultChannelCacheSize bounds the channel statistics cache.
	DefaultChannelCacheSize = 256
	// DefaultChannelCacheTTL is how long cached channel statistics stay fresh.
	DefaultChannelCacheTTL = time.Hour

	// channelFetchConcurrency bounds parallel channels.list calls.
	channelFetchConcurrency = 4
)

// Options configures a Client.
type Options struct {
	// APIKey authenticates every request. Required.
	APIKey string
	// Endpoint overrides the API base URL, e.g. for tests.
	Endpoint string
	// HTTPClient is the base client. When nil, one is built from HTTP.
	HTTPClient *http.Client
	// HTTP configures the rate limited transport used when HTTPClient is nil.
	HTTP *ythttp.Config
	// Retry configures retries for every call. Nil means retry.DefaultConfig.
	Retry *retry.Config

	// RegionCode and Language are applied to searches unless overridden.
	RegionCode string
	Language   string

	// ChannelCacheSize is the cache capacity; negative disables caching.
	ChannelCacheSize int
	ChannelCacheTTL  time.Duration

	// DailyQuota is the quota allowance used for the local estimate.
	DailyQuota int

	Logger  *zerolog.Logger
	Metrics *metrics.Metrics
}

// SearchOptions narrows a keyword search.
type SearchOptions struct {
	// MaxResults is clamped to 1..50; zero means 50.
	MaxResults int
	// Order is the API ordering: relevance (default), date, viewCount, rating.
	Order string
	// RegionCode and Language override the client defaults when set.
	RegionCode string
	Language   string
	// PublishedAfter restricts results to newer videos when non-zero.
	PublishedAfter time.Time
}

// Client is a YouTube Data API v3 client. It is safe for concurrent use.
type Client struct {
	service  *ytapi.Service
	retry    retry.Config
	region   string
	language string
	channels *expirable.LRU[string, insight.ChannelStats]
	quota    *quotaTracker
	log      zerolog.Logger
	metrics  *metrics.Metrics
}

// New creates a Client. The API key is injected into every request by the
// transport, so the base HTTP client carries no credentials of its own.
func New(ctx context.Context, opts Options) (*Client, error) {
	key := strings.TrimSpace(opts.APIKey)
	if key == "" {
		return nil, ErrMissingAPIKey
	}

	log := zerolog.Nop()
	if opts.Logger != nil {
		log = opts.Logger.With().Str("component", "youtube").Logger()
	}

	base := opts.HTTPClient
	if base == nil {
		base = ythttp.NewClient(transportConfig(opts.HTTP, log, opts.Metrics))
	}
	rt := base.Transport
	if rt == nil {
		rt = http.DefaultTransport
	}
	hc := &http.Client{
		Timeout:   base.Timeout,
		Transport: &transport.APIKey{Key: key, Transport: rt},
	}

	svcOpts := []option.ClientOption{option.WithHTTPClient(hc)}
	if opts.Endpoint != "" {
		svcOpts = append(svcOpts, option.WithEndpoint(opts.Endpoint))
	}
	service, err := ytapi.NewService(ctx, svcOpts...)
	if err != nil {
		return nil, fmt.Errorf("create youtube service: %w", err)
	}

	retryCfg := retry.DefaultConfig()
	if opts.Retry != nil {
		retryCfg = *opts.Retry
	}
	if retryCfg.OnRetry == nil {
		retryCfg.OnRetry = func(err error, attempt int, wait time.Duration) {
			log.Debug().Err(err).Int("attempt", attempt).Dur("wait", wait).Msg("retrying API call")
		}
	}

	c := &Client{
		service:  service,
		retry:    retryCfg,
		region:   opts.RegionCode,
		language: opts.Language,
		quota:    newQuotaTracker(opts.DailyQuota),
		log:      log,
		metrics:  opts.Metrics,
	}
	if opts.ChannelCacheSize >= 0 {
		size := opts.ChannelCacheSize
		if size == 0 {
			size = DefaultChannelCacheSize
		}
		ttl := opts.ChannelCacheTTL
		if ttl <= 0 {
			ttl = DefaultChannelCacheTTL
		}
		c.channels = expirable.NewLRU[string, insight.ChannelStats](size, nil, ttl)
	}
	c.metrics.SetQuotaRemaining(c.quota.limit)
	return c, nil
}

// transportConfig copies cfg and reports circuit changes to the log and metrics.
func transportConfig(cfg *ythttp.Config, log zerolog.Logger, m *metrics.Metrics) *ythttp.Config {
	c := ythttp.DefaultConfig()
	if cfg != nil {
		*c = *cfg
	}
	next := c.CircuitBreaker.OnStateChange
	c.CircuitBreaker.OnStateChange = func(host string, from, to ythttp.CircuitState) {
		log.Warn().Str("host", host).Stringer("from", from).Stringer("to", to).Msg("circuit breaker state changed")
		m.CircuitChanged(host, to.String())
		if next != nil {
			next(host, from, to)
		}
	}
	return c
}

// Search runs a keyword search for videos and returns their details in the
// order the search ranked them. An empty result makes no details call.
func (c *Client) Search(ctx context.Context, keyword string, opts SearchOptions) ([]insight.Video, error) {
	keyword = strings.TrimSpace(keyword)
	if keyword == "" {
		return nil, ErrEmptyKeyword
	}

	maxResults := opts.MaxResults
	if maxResults <= 0 || maxResults > MaxResultsPerPage {
		maxResults = MaxResultsPerPage
	}
	order := opts.Order
	if order == "" {
		order = "relevance"
	}
	region := firstNonEmpty(opts.RegionCode, c.region)
	language := firstNonEmpty(opts.Language, c.language)

	var ids []string
	err := c.call(ctx, "search.list", keyword, costSearch, func(ctx context.Context) error {
		call := c.service.Search.List([]string{"snippet"}).
			Q(keyword).
			Type("video").
			Order(order).
			MaxResults(int64(maxResults)).
			Context(ctx)
		if region != "" {
			call = call.RegionCode(region)
		}
		if language != "" {
			call = call.RelevanceLanguage(language)
		}
		if !opts.PublishedAfter.IsZero() {
			call = call.PublishedAfter(opts.PublishedAfter.UTC().Format(time.RFC3339))
		}

		resp, err := call.Do()
		if err != nil {
			return err
		}
		ids = ids[:0]
		for _, item := range resp.Items {
			if item.Id != nil && item.Id.VideoId != "" {
				ids = append(ids, item.Id.VideoId)
			}
		}
		return nil
	})
	if err != nil {
		return nil, err
	}

	c.log.Debug().Str("keyword", keyword).Int("results", len(ids)).Msg("search complete")
	if len(ids) == 0 {
		return []insight.Video{}, nil
	}

	videos, err := c.Videos(ctx, ids)
	if err != nil {
		return nil, err
	}
	return orderByIDs(videos, ids), nil
}

// Videos fetches full records for ids in batches of 50. Ids the API does
// not return are omitted.
func (c *Client) Videos(ctx context.Context, ids []string) ([]insight.Video, error) {
	videos := make([]insight.Video, 0, len(ids))
	for batch := range slices.Chunk(ids, MaxResultsPerPage) {
		var page []insight.Video
		err := c.call(ctx, "videos.list", strings.Join(batch, ","), costList, func(ctx context.Context) error {
			resp, err := c.service.Videos.List([]string{"snippet", "statistics", "contentDetails"}).
				Id(batch...).
				Context(ctx).
				Do()
			if err != nil {
				return err
			}
			page = page[:0]
			for _, item := range resp.Items {
				page = append(page, toVideo(item))
			}
			return nil
		})
		if err != nil {
			return nil, err
		}
		videos = append(videos, page...)
	}
	return videos, nil
}

// Video fetches a single video record.
func (c *Client) Video(ctx context.Context, id string) (insight.Video, error) {
	id = strings.TrimSpace(id)
	if id == "" {
		return insight.Video{}, &APIError{Op: "videos.list", Err: ErrVideoNotFound}
	}
	videos, err := c.Videos(ctx, []string{id})
	if err != nil {
		return insight.Video{}, err
	}
	if len(videos) == 0 {
		return insight.Video{}, &APIError{Op: "videos.list", Target: id, Err: ErrVideoNotFound}
	}
	return videos[0], nil
}

// ChannelStats returns statistics for one channel, from cache when fresh.
func (c *Client) ChannelStats(ctx context.Context, channelID string) (*insight.ChannelStats, error) {
	channelID = strings.TrimSpace(channelID)
	if channelID == "" {
		return nil, &APIError{Op: "channels.list", Err: ErrChannelNotFound}
	}

	stats, err := c.ChannelStatsBatch(ctx, []string{channelID})
	if err != nil {
		return nil, err
	}
	cs, ok := stats[channelID]
	if !ok {
		return nil, &APIError{Op: "channels.list", Target: channelID, Err: ErrChannelNotFound}
	}
	return cs, nil
}

// ChannelStatsBatch returns statistics for each distinct id. Cache misses
// are fetched in concurrent batches of 50. Ids the API does not know are
// absent from the map. On error, the map holds whatever was resolved.
func (c *Client) ChannelStatsBatch(ctx context.Context, ids []string) (map[string]*insight.ChannelStats, error) {
	result := make(map[string]*insight.ChannelStats, len(ids))
	var misses []string
	seen := make(map[string]struct{}, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" {
			continue
		}
		if _, dup := seen[id]; dup {
			continue
		}
		seen[id] = struct{}{}

		if cs, ok := c.cached(id); ok {
			result[id] = &cs
			continue
		}
		misses = append(misses, id)
	}
	if len(misses) == 0 {
		return result, nil
	}

	var mu sync.Mutex
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(channelFetchConcurrency)
	for batch := range slices.Chunk(misses, MaxResultsPerPage) {
		g.Go(func() error {
			fetched, err := c.fetchChannels(gctx, batch)
			if err != nil {
				return err
			}
			mu.Lock()
			defer mu.Unlock()
			for id, cs := range fetched {
				result[id] = cs
			}
			return nil
		})
	}
	err := g.Wait()
	return result, err
}

func (c *Client) fetchChannels(ctx context.Context, ids []string) (map[string]*insight.ChannelStats, error) {
	out := make(map[string]*insight.ChannelStats, len(ids))
	err := c.call(ctx, "channels.list", strings.Join(ids, ","), costList, func(ctx context.Context) error {
		resp, err := c.service.Channels.List([]string{"statistics"}).
			Id(ids...).
			Context(ctx).
			Do()
		if err != nil {
			return err
		}
		clear(out)
		for _, item := range resp.Items {
			cs := toChannelStats(item)
			out[item.Id] = &cs
		}
		return nil
	})
	if err != nil {
		return nil, err
	}
	for id, cs := range out {
		if c.channels != nil {
			c.channels.Add(id, *cs)
		}
	}
	return out, nil
}

func (c *Client) cached(id string) (insight.ChannelStats, bool) {
	if c.channels == nil {
		return insight.ChannelStats{}, false
	}
	cs, ok := c.channels.Get(id)
	if ok {
		c.metrics.CacheHit()
		c.log.Debug().Str("channel_id", id).Msg("channel stats cache hit")
	} else {
		c.metrics.CacheMiss()
	}
	return cs, ok
}

// EstimatedQuota returns the locally estimated remaining quota units.
func (c *Client) EstimatedQuota() int {
	remaining, _ := c.quota.estimate()
	return remaining
}

// QuotaExhausted reports whether the estimate or the API says the daily
// quota is spent.
func (c *Client) QuotaExhausted() bool {
	_, exhausted := c.quota.estimate()
	return exhausted
}

// call runs fn under the retry policy, accounts quota for each attempt
// that reached the API and records metrics.
func (c *Client) call(ctx context.Context, op, target string, cost int, fn func(context.Context) error) error {
	start := time.Now()
	err := retry.Do(ctx, c.retry, isRetryable, func(ctx context.Context) error {
		err := fn(ctx)
		if err == nil || isAPIResponse(err) {
			c.useQuota(cost)
		}
		return err
	})
	c.metrics.ObserveAPICall(op, err, time.Since(start))
	if err == nil {
		c.log.Debug().Str("op", op).Dur("elapsed", time.Since(start)).Msg("API call")
		return nil
	}

	err = translate(err)
	if isQuotaExceeded(err) {
		c.quota.exhaust()
		c.metrics.SetQuotaRemaining(0)
		c.log.Warn().Str("op", op).Msg("API reports quota exceeded")
	}
	return &APIError{Op: op, Target: target, Err: err}
}

func (c *Client) useQuota(units int) {
	remaining, exhausted := c.quota.use(units)
	c.metrics.SetQuotaRemaining(max(remaining, 0))
	if exhausted {
		c.log.Warn().Int("remaining", remaining).Msg("estimated quota exhausted")
		return
	}
	c.log.Debug().Int("remaining", remaining).Msg("quota usage")
}

func firstNonEmpty(values ...string) string {
	for _, v := range values {
		if v != "" {
			return v
		}
	}
	return ""
}

// orderByIDs arranges videos in the order of ids, dropping any id the
// details call did not return.
func orderByIDs(videos []insight.Video, ids []string) []insight.Video {
	byID := make(map[string]insight.Video, len(videos))
	for _, v := range videos {
		byID[v.ID] = v
	}
	ordered := make([]insight.Video, 0, len(ids))
	for _, id := range ids {
		if v, ok := byID[id]; ok {
			ordered = append(ordered, v)
		}
	}
	return ordered
}
