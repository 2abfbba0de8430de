package handler

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/settings"
	apperrors "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/errors"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/logger"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/metrics"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/tracing"
)

type SearchExecutor interface {
	Execute(ctx context.Context, plan *parser.QueryPlan, limit int) (*executor.SearchResult, error)
	Explain(ctx context.Context, plan *parser.QueryPlan) ([]executor.RewriteReport, error)
}

// DocumentIndexer is satisfied by *shard.Router.
type DocumentIndexer interface {
	IndexDocument(docID string, fields map[string]string) (int, error)
	IndexVersion() string
}

// SettingsManager is satisfied by *settings.Manager.
type SettingsManager interface {
	Current() settings.Settings
	StrategyKey() string
	Update(ctx context.Context, s settings.Settings) (settings.Settings, error)
}

type Option func(*Handler)

func WithCache(c *cache.QueryCache) Option {
	return func(h *Handler) { h.cache = c }
}

func WithCollector(c *analytics.Collector) Option {
	return func(h *Handler) { h.collector = c }
}

func WithMetrics(m *metrics.Metrics) Option {
	return func(h *Handler) { h.metrics = m }
}

func WithLimits(defaultLimit, maxResults int) Option {
	return func(h *Handler) {
		h.defaultLimit = defaultLimit
		h.maxResults = maxResults
	}
}

type Handler struct {
	executor     SearchExecutor
	index        DocumentIndexer
	settings     SettingsManager
	parser       *parser.Parser
	cache        *cache.QueryCache
	collector    *analytics.Collector
	metrics      *metrics.Metrics
	defaultLimit int
	maxResults   int
	logger       *slog.Logger
}

func New(exec SearchExecutor, idx DocumentIndexer, mgr SettingsManager, p *parser.Parser, opts ...Option) *Handler {
	h := &Handler{
		executor:     exec,
		index:        idx,
		settings:     mgr,
		parser:       p,
		defaultLimit: 10,
		maxResults:   100,
		logger:       slog.Default().With("component", "search-handler"),
	}
	for _, opt := range opts {
		opt(h)
	}
	return h
}

// Routes registers every endpoint on mux.
func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/search", h.Search)
	mux.HandleFunc("GET /api/v1/rewrite/settings", h.GetSettings)
	mux.HandleFunc("PUT /api/v1/rewrite/settings", h.UpdateSettings)
	mux.HandleFunc("GET /api/v1/rewrite/explain", h.Explain)
	mux.HandleFunc("POST /api/v1/documents", h.IndexDocument)
	mux.HandleFunc("GET /api/v1/cache/stats", h.CacheStats)
	mux.HandleFunc("POST /api/v1/cache/invalidate", h.CacheInvalidate)
	mux.HandleFunc("GET /health", h.Health)
}

func (h *Handler) Search(w http.ResponseWriter, r *http.Request) {
	start := time.Now()
	ctx, span := tracing.Start(r.Context(), "search")
	log := logger.FromContext(ctx)
	defer func() {
		span.End()
		span.Log(log)
	}()

	raw := r.URL.Query().Get("q")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	limit, err := h.parseLimit(r)
	if err != nil {
		h.writeError(w, http.StatusBadRequest, err.Error())
		return
	}
	plan, err := h.parser.Parse(raw)
	if err != nil {
		h.fail(w, r, "query parse failed", err)
		return
	}

	// The strategy is read once so the cache key matches the method the
	// executor picks up for this request.
	strategy := h.settings.StrategyKey()
	var result *executor.SearchResult
	cacheHit := false
	if h.cache != nil {
		key := cache.Key{
			Query:        raw,
			Limit:        limit,
			Strategy:     strategy,
			IndexVersion: h.index.IndexVersion(),
		}
		result, cacheHit, err = h.cache.GetOrCompute(ctx, key, func() (*executor.SearchResult, error) {
			return h.executor.Execute(ctx, plan, limit)
		})
	} else {
		result, err = h.executor.Execute(ctx, plan, limit)
	}
	if err != nil {
		h.observeSearch("error", cacheHit, 0, start)
		h.fail(w, r, "search execution failed", err)
		return
	}

	latency := time.Since(start)
	resultType := "miss"
	switch {
	case result.TotalHits == 0:
		resultType = "zero_result"
	case cacheHit:
		resultType = "hit"
	}
	h.observeSearch(resultType, cacheHit, len(result.Results), start)
	span.SetAttr("strategy", strategy)
	span.SetAttr("cache_hit", cacheHit)

	log.Info("search completed",
		"query", raw,
		"strategy", strategy,
		"total_hits", result.TotalHits,
		"returned", len(result.Results),
		"rewrites", len(result.Rewrites),
		"cache_hit", cacheHit,
		"latency_ms", latency.Milliseconds(),
	)
	h.trackSearch(ctx, raw, strategy, result, cacheHit, latency)
	h.writeJSON(w, http.StatusOK, result)
}

func (h *Handler) parseLimit(r *http.Request) (int, error) {
	limit := h.defaultLimit
	if limitStr := r.URL.Query().Get("limit"); limitStr != "" {
		parsed, err := strconv.Atoi(limitStr)
		if err != nil || parsed < 1 {
			return 0, fmt.Errorf("limit must be a positive integer")
		}
		limit = parsed
	}
	if limit > h.maxResults {
		limit = h.maxResults
	}
	return limit, nil
}

func (h *Handler) observeSearch(resultType string, cacheHit bool, returned int, start time.Time) {
	if h.metrics == nil {
		return
	}
	status := "miss"
	if cacheHit {
		status = "hit"
	}
	h.metrics.SearchQueriesTotal.WithLabelValues(resultType).Inc()
	h.metrics.SearchLatency.WithLabelValues(status).Observe(time.Since(start).Seconds())
	if resultType == "error" {
		return
	}
	h.metrics.SearchResultsCount.Observe(float64(returned))
	if h.cache == nil {
		return
	}
	if cacheHit {
		h.metrics.CacheHitsTotal.Inc()
	} else {
		h.metrics.CacheMissesTotal.Inc()
	}
}

// trackSearch publishes the search and, for freshly computed results, one
// event per rewrite. Cached results replay no rewrites.
func (h *Handler) trackSearch(ctx context.Context, raw, strategy string, result *executor.SearchResult, cacheHit bool, latency time.Duration) {
	if h.collector == nil {
		return
	}
	requestID := logger.RequestID(ctx)
	eventType := analytics.EventCacheMiss
	switch {
	case result.TotalHits == 0:
		eventType = analytics.EventZeroResult
	case cacheHit:
		eventType = analytics.EventCacheHit
	}
	h.collector.Track(analytics.Event{
		Type:      eventType,
		RequestID: requestID,
		Search: &analytics.SearchEvent{
			Query:     raw,
			Strategy:  strategy,
			TotalHits: result.TotalHits,
			Returned:  len(result.Results),
			LatencyMs: latency.Milliseconds(),
			CacheHit:  cacheHit,
		},
	})
	if cacheHit {
		return
	}
	for _, rw := range result.Rewrites {
		h.collector.Track(analytics.Event{
			Type:      analytics.EventRewrite,
			RequestID: requestID,
			Rewrite: &analytics.RewriteEvent{
				Shard:          rw.Shard,
				Pattern:        rw.Pattern,
				Strategy:       string(rw.Strategy),
				Reason:         string(rw.Reason),
				TermsCollected: rw.TermsCollected,
				DocVisitCount:  rw.DocVisitCount,
				Cached:         rw.Cached,
			},
		})
	}
}

func (h *Handler) CacheStats(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeJSON(w, http.StatusOK, map[string]string{"status": "disabled"})
		return
	}

	hits, misses := h.cache.Stats()
	total := hits + misses
	var hitRate float64
	if total > 0 {
		hitRate = float64(hits) / float64(total) * 100
	}

	h.writeJSON(w, http.StatusOK, map[string]any{
		"hits":     hits,
		"misses":   misses,
		"total":    total,
		"hit_rate": fmt.Sprintf("%.1f%%", hitRate),
	})
}

func (h *Handler) CacheInvalidate(w http.ResponseWriter, r *http.Request) {
	if h.cache == nil {
		h.writeError(w, http.StatusServiceUnavailable, "caching is disabled")
		return
	}

	deleted, err := h.cache.Invalidate(r.Context())
	if err != nil {
		h.fail(w, r, "cache invalidation failed", err)
		return
	}

	h.writeJSON(w, http.StatusOK, map[string]any{"status": "invalidated", "keys_deleted": deleted})
}

func (h *Handler) Health(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// fail logs err and answers with its mapped status. Server errors hide
// their detail from the client.
func (h *Handler) fail(w http.ResponseWriter, r *http.Request, msg string, err error) {
	status := apperrors.HTTPStatusCode(err)
	log := logger.FromContext(r.Context())
	if status >= http.StatusInternalServerError {
		log.Error(msg, "error", err)
		h.writeError(w, status, msg)
		return
	}
	log.Warn(msg, "error", err, "status", status)
	h.writeError(w, status, err.Error())
}

func (h *Handler) writeJSON(w http.ResponseWriter, status int, data any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	if err := json.NewEncoder(w).Encode(data); err != nil {
		h.logger.Error("failed to write response", "error", err)
	}
}

func (h *Handler) writeError(w http.ResponseWriter, status int, message string) {
	h.writeJSON(w, status, map[string]string{"error": message})
}
