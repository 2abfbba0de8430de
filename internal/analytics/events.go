package analytics

import "time"

type EventType string

const (
	EventSearch     EventType = "search"
	EventCacheHit   EventType = "cache_hit"
	EventCacheMiss  EventType = "cache_miss"
	EventZeroResult EventType = "zero_result"
	EventRewrite    EventType = "rewrite"
	EventSettings   EventType = "rewrite_settings"
)

// Event is the envelope published on the analytics topic. Exactly one of
// the payload fields is set, matching Type.
type Event struct {
	Type      EventType      `json:"type"`
	Timestamp time.Time      `json:"timestamp"`
	RequestID string         `json:"request_id,omitempty"`
	Search    *SearchEvent   `json:"search,omitempty"`
	Rewrite   *RewriteEvent  `json:"rewrite,omitempty"`
	Settings  *SettingsEvent `json:"settings,omitempty"`
}

type SearchEvent struct {
	Query     string `json:"query"`
	Strategy  string `json:"strategy"`
	TotalHits int    `json:"total_hits"`
	Returned  int    `json:"returned"`
	LatencyMs int64  `json:"latency_ms"`
	CacheHit  bool   `json:"cache_hit"`
}

// RewriteEvent is one pattern rewrite on one shard.
type RewriteEvent struct {
	Shard          int    `json:"shard"`
	Pattern        string `json:"pattern"`
	Strategy       string `json:"strategy"`
	Reason         string `json:"reason,omitempty"`
	TermsCollected int    `json:"terms_collected"`
	DocVisitCount  int    `json:"doc_visit_count"`
	Cached         bool   `json:"cached"`
}

type SettingsEvent struct {
	Mode            string  `json:"mode"`
	TermCountCutoff int     `json:"term_count_cutoff"`
	DocCountPercent float64 `json:"doc_count_percent"`
	Previous        string  `json:"previous"`
	Strategy        string  `json:"strategy"`
}

// key picks the partition key: rewrites of one pattern land on one partition.
func (e Event) key() string {
	switch {
	case e.Rewrite != nil:
		return e.Rewrite.Pattern
	case e.Search != nil:
		return e.Search.Query
	default:
		return string(e.Type)
	}
}
