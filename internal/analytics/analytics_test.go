package analytics

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/kafka"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/logger"
)

type recordingPublisher struct {
	mu     sync.Mutex
	events []kafka.Event
	ids    []string
	err    error
}

func (p *recordingPublisher) Publish(ctx context.Context, e kafka.Event) error {
	p.mu.Lock()
	defer p.mu.Unlock()
	if p.err != nil {
		return p.err
	}
	p.events = append(p.events, e)
	p.ids = append(p.ids, logger.RequestID(ctx))
	return nil
}

func (p *recordingPublisher) published() []kafka.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	return append([]kafka.Event(nil), p.events...)
}

func TestCollector_PublishesInOrder(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 16)
	c.Start(context.Background())

	c.Track(Event{Type: EventRewrite, Rewrite: &RewriteEvent{Pattern: "body:sea*", Strategy: "constant_boolean"}})
	c.Track(Event{Type: EventSearch, Search: &SearchEvent{Query: "sea*"}})
	c.Close()

	events := pub.published()
	require.Len(t, events, 2)
	assert.Equal(t, "body:sea*", events[0].Key)
	assert.Equal(t, "sea*", events[1].Key)
	assert.False(t, events[0].Value.(Event).Timestamp.IsZero())
}

func TestCollector_DropsWhenFull(t *testing.T) {
	c := NewCollector(&recordingPublisher{}, 1)
	c.Track(Event{Type: EventSettings, Settings: &SettingsEvent{}})
	c.Track(Event{Type: EventSettings, Settings: &SettingsEvent{}})
	assert.Equal(t, int64(1), c.Dropped())
}

func TestCollector_PublishErrorDoesNotStop(t *testing.T) {
	pub := &recordingPublisher{err: errors.New("broker down")}
	c := NewCollector(pub, 4)
	c.Start(context.Background())
	c.Track(Event{Type: EventSearch, Search: &SearchEvent{}})
	c.Close()
	assert.Empty(t, pub.published())
}

func TestAggregator_RewriteStats(t *testing.T) {
	agg := NewAggregator()
	agg.Record(Event{Type: EventRewrite, Rewrite: &RewriteEvent{Pattern: "a*", Strategy: "constant_boolean", TermsCollected: 4}})
	agg.Record(Event{Type: EventRewrite, Rewrite: &RewriteEvent{Pattern: "a*", Strategy: "constant_boolean", TermsCollected: 4, Cached: true}})
	agg.Record(Event{Type: EventRewrite, Rewrite: &RewriteEvent{Pattern: "b*", Strategy: "filter", Reason: "doc_count", TermsCollected: 2}})
	agg.Record(Event{Type: EventSettings, Settings: &SettingsEvent{Mode: "filter"}})
	agg.Record(Event{Type: EventSearch, Search: &SearchEvent{Query: "a*", LatencyMs: 4}})
	agg.Record(Event{Type: EventSearch, Search: &SearchEvent{Query: "a*", LatencyMs: 8, CacheHit: true, TotalHits: 3}})

	stats := agg.Stats()
	assert.Equal(t, int64(3), stats.TotalRewrites)
	assert.Equal(t, map[string]int64{"constant_boolean": 2, "filter": 1}, stats.RewriteStrategy)
	assert.Equal(t, map[string]int64{"doc_count": 1}, stats.RewriteCutoffs)
	assert.InDelta(t, 2.0, stats.AvgTermsPerWrite, 1e-9)
	assert.Equal(t, int64(1), stats.SettingsChanges)
	assert.Equal(t, []QueryCount{{Query: "a*", Count: 2}, {Query: "b*", Count: 1}}, stats.TopPatterns)
	assert.Equal(t, int64(2), stats.TotalSearches)
	assert.Equal(t, int64(1), stats.ZeroResultCount)
	assert.Equal(t, int64(1), stats.CacheHits)
	assert.InDelta(t, 6.0, stats.AvgLatencyMs, 1e-9)
}

func TestAggregator_HandleEventSkipsGarbage(t *testing.T) {
	agg := NewAggregator()
	handle := agg.HandleEvent()

	require.NoError(t, handle(context.Background(), nil, []byte("{not json")))
	raw, err := json.Marshal(Event{
		Type:      EventRewrite,
		Timestamp: time.Now(),
		Rewrite:   &RewriteEvent{Pattern: "x*", Strategy: "empty"},
	})
	require.NoError(t, err)
	require.NoError(t, handle(context.Background(), []byte("x*"), raw))

	assert.Equal(t, int64(1), agg.Stats().TotalRewrites)
}

func TestCollector_CarriesRequestID(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCollector(pub, 4)
	c.Start(context.Background())
	c.Track(Event{Type: EventSearch, RequestID: "req-1", Search: &SearchEvent{Query: "a"}})
	c.Track(Event{Type: EventSearch, Search: &SearchEvent{Query: "b"}})
	c.Close()

	pub.mu.Lock()
	defer pub.mu.Unlock()
	assert.Equal(t, []string{"req-1", ""}, pub.ids)
}

func TestHandler_Routes(t *testing.T) {
	agg := NewAggregator()
	agg.Record(Event{Type: EventRewrite, Rewrite: &RewriteEvent{Pattern: "a*", Strategy: "filter", Reason: "term_count", TermsCollected: 3}})
	mux := http.NewServeMux()
	NewHandler(agg).Routes(mux)

	rec := httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics/rewrites", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	var got map[string]any
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &got))
	assert.Equal(t, float64(1), got["total_rewrites"])
	assert.Equal(t, map[string]any{"term_count": float64(1)}, got["rewrite_cutoffs"])
	assert.NotContains(t, got, "total_searches")

	rec = httptest.NewRecorder()
	mux.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/v1/analytics", nil))
	require.Equal(t, http.StatusOK, rec.Code)
	assert.Contains(t, rec.Body.String(), `"total_searches":0`)
}
