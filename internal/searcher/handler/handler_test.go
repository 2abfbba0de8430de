package handler

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/indexer/shard"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/cache"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/parser"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/rewrite"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/settings"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/config"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/metrics"
	pkgredis "github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/redis"
)

type memStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (s *memStore) Get(_ context.Context, key string) (string, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	v, ok := s.data[key]
	if !ok {
		return "", pkgredis.Nil
	}
	return v, nil
}

func (s *memStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.data[key] = string(value.([]byte))
	return nil
}

func (s *memStore) FlushByPattern(context.Context, string) (int64, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := int64(len(s.data))
	s.data = make(map[string]string)
	return n, nil
}

type fixture struct {
	mux     *http.ServeMux
	mgr     *settings.Manager
	metrics *metrics.Metrics
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	router, err := shard.NewRouter(config.IndexerConfig{DataDir: t.TempDir(), SegmentMaxSize: 1 << 30}, 2)
	require.NoError(t, err)
	t.Cleanup(func() { _ = router.Close() })

	mgr, err := settings.NewManager(settings.Settings{
		Mode:            settings.ModeAuto,
		TermCountCutoff: rewrite.DefaultTermCountCutoff,
		DocCountPercent: 100,
	}, settings.NewMemoryStore())
	require.NoError(t, err)

	m := metrics.New(prometheus.NewRegistry())
	exec := executor.NewSharded(router.GetAllEngines(), mgr, executor.WithRewriteCache(rewrite.NewCache(64, nil)))
	h := New(exec, router, mgr, parser.New("", nil),
		WithCache(cache.New(&memStore{data: make(map[string]string)}, time.Minute)),
		WithMetrics(m),
		WithLimits(10, 50),
	)
	mux := http.NewServeMux()
	h.Routes(mux)
	return &fixture{mux: mux, mgr: mgr, metrics: m}
}

func (f *fixture) do(t *testing.T, method, target, body string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, target, strings.NewReader(body))
	rec := httptest.NewRecorder()
	f.mux.ServeHTTP(rec, req)
	return rec
}

func (f *fixture) index(t *testing.T, id, text string) {
	t.Helper()
	rec := f.do(t, http.MethodPost, "/api/v1/documents", `{"id":"`+id+`","fields":{"body":"`+text+`"}}`)
	require.Equal(t, http.StatusCreated, rec.Code, rec.Body.String())
}

func decode[T any](t *testing.T, rec *httptest.ResponseRecorder) T {
	t.Helper()
	var v T
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &v))
	return v
}

func resultIDs(res executor.SearchResult) []string {
	ids := make([]string, 0, len(res.Results))
	for _, d := range res.Results {
		ids = append(ids, d.DocID)
	}
	sort.Strings(ids)
	return ids
}

func seed(t *testing.T, f *fixture) {
	f.index(t, "d1", "search engine")
	f.index(t, "d2", "seaside holiday")
	f.index(t, "d3", "golang concurrency")
}

func TestSearch_PatternAcrossShards(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	rec := f.do(t, http.MethodGet, "/api/v1/search?q=sea*", "")
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	res := decode[executor.SearchResult](t, rec)
	assert.Equal(t, []string{"d1", "d2"}, resultIDs(res))
	assert.Len(t, res.Rewrites, 2, "one decision per shard")
}

func TestSearch_CachedUntilIndexChanges(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	f.do(t, http.MethodGet, "/api/v1/search?q=golang", "")
	f.do(t, http.MethodGet, "/api/v1/search?q=golang", "")
	stats := decode[map[string]any](t, f.do(t, http.MethodGet, "/api/v1/cache/stats", ""))
	assert.Equal(t, 1.0, stats["hits"])

	f.index(t, "d4", "golang generics")
	res := decode[executor.SearchResult](t, f.do(t, http.MethodGet, "/api/v1/search?q=golang", ""))
	assert.Equal(t, []string{"d3", "d4"}, resultIDs(res))
}

func TestSearch_BadRequests(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/search", "").Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodGet, "/api/v1/search?q=x&limit=0", "").Code)

	rec := f.do(t, http.MethodGet, "/api/v1/search?q=%5Ba+TO", "")
	assert.Equal(t, http.StatusBadRequest, rec.Code)
	assert.Contains(t, rec.Body.String(), "unterminated range")
}

func TestSettings_UpdateSwapsStrategy(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	got := decode[map[string]any](t, f.do(t, http.MethodGet, "/api/v1/rewrite/settings", ""))
	assert.Equal(t, "auto", got["mode"])
	assert.Equal(t, 100.0, got["doc_count_percent"])

	rec := f.do(t, http.MethodPut, "/api/v1/rewrite/settings", `{"mode":"filter"}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())
	assert.Equal(t, "constant_score_filter", decode[map[string]any](t, rec)["strategy"])
	assert.Equal(t, "constant_score_filter", f.mgr.StrategyKey())

	explain := decode[explainResponse](t, f.do(t, http.MethodGet, "/api/v1/rewrite/explain?q=sea*", ""))
	require.NotEmpty(t, explain.Rewrites)
	for _, d := range explain.Rewrites {
		assert.Equal(t, rewrite.StrategyFilter, d.Strategy)
	}

	res := decode[executor.SearchResult](t, f.do(t, http.MethodGet, "/api/v1/search?q=sea*", ""))
	assert.Equal(t, []string{"d1", "d2"}, resultIDs(res), "strategy change must not change matches")
}

func TestSettings_PartialUpdateKeepsOtherFields(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/api/v1/rewrite/settings", `{"term_count_cutoff":7}`)
	require.Equal(t, http.StatusOK, rec.Code, rec.Body.String())

	cur := f.mgr.Current()
	assert.Equal(t, 7, cur.TermCountCutoff)
	assert.Equal(t, 100.0, cur.DocCountPercent)
	assert.Equal(t, settings.ModeAuto, cur.Mode)
}

func TestSettings_RejectsUnknownMode(t *testing.T) {
	f := newFixture(t)
	before := f.mgr.StrategyKey()
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/v1/rewrite/settings", `{"mode":"fuzzy"}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPut, "/api/v1/rewrite/settings", `{"bogus":1}`).Code)
	assert.Equal(t, before, f.mgr.StrategyKey())
}

func TestSettings_OutOfRangePercentIsAccepted(t *testing.T) {
	f := newFixture(t)
	rec := f.do(t, http.MethodPut, "/api/v1/rewrite/settings", `{"doc_count_percent":250}`)
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, 250.0, f.mgr.Current().DocCountPercent)
}

func TestExplain_ReportsCollection(t *testing.T) {
	f := newFixture(t)
	seed(t, f)

	rec := f.do(t, http.MethodGet, "/api/v1/rewrite/explain?q=sea*+golang", "")
	require.Equal(t, http.StatusOK, rec.Code)
	explain := decode[explainResponse](t, rec)
	require.Len(t, explain.Rewrites, 2)
	total := 0
	for _, d := range explain.Rewrites {
		assert.Equal(t, "body:sea*", d.Pattern)
		total += d.TermsCollected
	}
	assert.Equal(t, 2, total)
}

func TestIndexDocument_Validation(t *testing.T) {
	f := newFixture(t)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/documents", `{"id":""}`).Code)
	assert.Equal(t, http.StatusBadRequest, f.do(t, http.MethodPost, "/api/v1/documents", `not json`).Code)
}
