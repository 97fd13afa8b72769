package storage

import (
	"strings"
	"time"
)

// Credentials is the saved API key.
type Credentials struct {
	// APIKey is the YouTube Data API v3 key.
	APIKey string `json:"api_key"`
	// SavedAt is when the key was last saved.
	SavedAt time.Time `json:"saved_at"`
}

// SearchRecord summarizes one keyword search.
type SearchRecord struct {
	// ID is the unique identifier (UUID).
	ID string `json:"id"`
	// Keyword is the search query as entered.
	Keyword string `json:"keyword"`
	// Criterion is the ranking the results were sorted by.
	Criterion string `json:"criterion"`
	// MaxResults is the requested result count.
	MaxResults int `json:"max_results"`
	// ResultCount is how many videos came back.
	ResultCount int `json:"result_count"`
	// VideoIDs lists the ranked video IDs.
	VideoIDs []string `json:"video_ids,omitempty"`
	// TopVideoID and TopVideoTitle identify the first ranked video.
	TopVideoID    string `json:"top_video_id,omitempty"`
	TopVideoTitle string `json:"top_video_title,omitempty"`
	// TopScore is the quality score of the first ranked video.
	TopScore float64 `json:"top_score,omitempty"`
	// CreatedAt is when the search ran.
	CreatedAt time.Time `json:"created_at"`
}

// Validate reports whether the record can be stored.
func (r *SearchRecord) Validate() error {
	if r == nil || strings.TrimSpace(r.Keyword) == "" {
		return ErrInvalidInput
	}
	if r.ResultCount < 0 || r.MaxResults < 0 {
		return ErrInvalidInput
	}
	return nil
}

func (r *SearchRecord) clone() *SearchRecord {
	c := *r
	c.VideoIDs = append([]string(nil), r.VideoIDs...)
	return &c
}
