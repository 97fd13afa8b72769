// Package ytinsight searches YouTube by keyword and annotates the results.
//
// It ranks each result set by a chosen criterion and derives a quality
// score, a performance tier, an engagement rate and short insights for
// every video.
//
// Overview
//
// The scoring, insight and ranking rules live in package insight and are
// pure functions over plain records. The Analyzer in this package ties them
// to a data source, normally the YouTube Data API client in package youtube:
//
//	client, err := youtube.New(ctx, youtube.Options{APIKey: key})
//	if err != nil {
//		log.Fatal(err)
//	}
//	a := &ytinsight.Analyzer{Source: client}
//	entries, err := a.Search(ctx, "golang", ytinsight.SearchOptions{
//		Criterion:    insight.ByQuality,
//		WithChannels: true,
//	})
//	for _, e := range entries {
//		fmt.Printf("%s %.1f %s\n", e.Video.Title, e.Insight.QualityScore, e.Insight.Performance.Label)
//	}
//
// Configuration
//
// Settings load from three sources:
//
//  1. Environment variables (highest priority), prefixed YTINSIGHT_
//  2. Config file (ytinsight.yaml or ~/.config/ytinsight/ytinsight.yaml,
//     or the file named by YTINSIGHT_CONFIG)
//  3. Default values (lowest priority)
//
// The API key resolves from YTINSIGHT_API_KEY or the config file first and
// then from the key saved in the data directory.
//
// Error Handling
//
// Sentinel errors from the sub-packages are re-exported here:
//
//	if errors.Is(err, ytinsight.ErrQuotaExceeded) {
//		fmt.Println("daily quota spent, try again tomorrow")
//	}
//
//	var apiErr *ytinsight.APIError
//	if errors.As(err, &apiErr) {
//		fmt.Printf("%s failed: %v\n", apiErr.Op, apiErr.Err)
//	}
//
// Sub-packages
//
//   - insight: formatting, scoring, insights and ranking
//   - youtube: YouTube Data API v3 client with channel cache and quota estimate
//   - http: rate limited, circuit broken transport for the API client
//   - storage: saved API key and search history
//   - config: configuration loading and validation
//   - render: terminal cards and tables
//   - server: JSON HTTP API
package ytinsight
