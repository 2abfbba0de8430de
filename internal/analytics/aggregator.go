package analytics

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/kafka"
)

type AggregatedStats struct {
	TotalSearches    int64            `json:"total_searches"`
	CacheHits        int64            `json:"cache_hits"`
	CacheMisses      int64            `json:"cache_misses"`
	ZeroResultCount  int64            `json:"zero_result_count"`
	AvgLatencyMs     float64          `json:"avg_latency_ms"`
	P50LatencyMs     int64            `json:"p50_latency_ms"`
	P95LatencyMs     int64            `json:"p95_latency_ms"`
	P99LatencyMs     int64            `json:"p99_latency_ms"`
	TotalRewrites    int64            `json:"total_rewrites"`
	RewriteStrategy  map[string]int64 `json:"rewrite_strategy"`
	RewriteCutoffs   map[string]int64 `json:"rewrite_cutoffs"`
	AvgTermsPerWrite float64          `json:"avg_terms_per_rewrite"`
	SettingsChanges  int64            `json:"settings_changes"`
	TopPatterns      []QueryCount     `json:"top_patterns"`
	TopQueries       []QueryCount     `json:"top_queries"`
	QueriesPerMinute float64          `json:"queries_per_minute"`
}

type QueryCount struct {
	Query string `json:"query"`
	Count int64  `json:"count"`
}

// Aggregator folds analytics events into in-memory statistics.
type Aggregator struct {
	mu              sync.RWMutex
	totalSearches   int64
	cacheHits       int64
	cacheMisses     int64
	zeroResults     int64
	latencies       []int64
	queryCounts     map[string]int64
	totalRewrites   int64
	termsCollected  int64
	strategyCounts  map[string]int64
	cutoffCounts    map[string]int64
	patternCounts   map[string]int64
	settingsChanges int64
	startTime       time.Time

	logger *slog.Logger
}

func NewAggregator() *Aggregator {
	return &Aggregator{
		latencies:      make([]int64, 0, 10000),
		queryCounts:    make(map[string]int64),
		strategyCounts: make(map[string]int64),
		cutoffCounts:   make(map[string]int64),
		patternCounts:  make(map[string]int64),
		startTime:      time.Now(),
		logger:         slog.Default().With("component", "analytics-aggregator"),
	}
}

// HandleEvent decodes analytics envelopes for a kafka.Consumer. Undecodable
// messages are logged and skipped so they do not block the partition.
func (a *Aggregator) HandleEvent() kafka.MessageHandler {
	return func(ctx context.Context, key []byte, value []byte) error {
		event, err := kafka.DecodeJSON[Event](value)
		if err != nil {
			a.logger.Error("failed to decode analytics event", "key", string(key), "error", err)
			return nil
		}
		a.Record(event)
		return nil
	}
}

func (a *Aggregator) Record(event Event) {
	a.mu.Lock()
	defer a.mu.Unlock()
	switch {
	case event.Search != nil:
		a.recordSearch(event.Search)
	case event.Rewrite != nil:
		a.recordRewrite(event.Rewrite)
	case event.Settings != nil:
		a.settingsChanges++
	default:
		a.logger.Warn("analytics event without payload", "type", event.Type)
	}
}

func (a *Aggregator) recordSearch(e *SearchEvent) {
	a.totalSearches++
	if e.CacheHit {
		a.cacheHits++
	} else {
		a.cacheMisses++
	}
	if e.TotalHits == 0 {
		a.zeroResults++
	}
	a.latencies = append(a.latencies, e.LatencyMs)
	a.queryCounts[e.Query]++
}

func (a *Aggregator) recordRewrite(e *RewriteEvent) {
	a.totalRewrites++
	a.strategyCounts[e.Strategy]++
	if e.Reason != "" {
		a.cutoffCounts[e.Reason]++
	}
	if !e.Cached {
		a.termsCollected += int64(e.TermsCollected)
	}
	a.patternCounts[e.Pattern]++
}

func (a *Aggregator) Stats() AggregatedStats {
	a.mu.RLock()
	defer a.mu.RUnlock()

	stats := AggregatedStats{
		TotalSearches:   a.totalSearches,
		CacheHits:       a.cacheHits,
		CacheMisses:     a.cacheMisses,
		ZeroResultCount: a.zeroResults,
		TotalRewrites:   a.totalRewrites,
		RewriteStrategy: copyCounts(a.strategyCounts),
		RewriteCutoffs:  copyCounts(a.cutoffCounts),
		SettingsChanges: a.settingsChanges,
	}
	if len(a.latencies) > 0 {
		sorted := make([]int64, len(a.latencies))
		copy(sorted, a.latencies)
		sort.Slice(sorted, func(i, j int) bool { return sorted[i] < sorted[j] })

		var sum int64
		for _, l := range sorted {
			sum += l
		}
		stats.AvgLatencyMs = float64(sum) / float64(len(sorted))
		stats.P50LatencyMs = percentile(sorted, 50)
		stats.P95LatencyMs = percentile(sorted, 95)
		stats.P99LatencyMs = percentile(sorted, 99)
	}
	if a.totalRewrites > 0 {
		stats.AvgTermsPerWrite = float64(a.termsCollected) / float64(a.totalRewrites)
	}
	stats.TopQueries = topN(a.queryCounts, 10)
	stats.TopPatterns = topN(a.patternCounts, 10)
	if elapsed := time.Since(a.startTime).Minutes(); elapsed > 0 {
		stats.QueriesPerMinute = float64(stats.TotalSearches) / elapsed
	}
	return stats
}

func copyCounts(m map[string]int64) map[string]int64 {
	out := make(map[string]int64, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}

func percentile(sorted []int64, pct int) int64 {
	if len(sorted) == 0 {
		return 0
	}
	idx := (pct * len(sorted)) / 100
	if idx >= len(sorted) {
		idx = len(sorted) - 1
	}
	return sorted[idx]
}

func topN(counts map[string]int64, n int) []QueryCount {
	result := make([]QueryCount, 0, len(counts))
	for query, count := range counts {
		result = append(result, QueryCount{Query: query, Count: count})
	}
	sort.Slice(result, func(i, j int) bool {
		if result[i].Count != result[j].Count {
			return result[i].Count > result[j].Count
		}
		return result[i].Query < result[j].Query
	})
	if len(result) > n {
		result = result[:n]
	}
	return result
}
