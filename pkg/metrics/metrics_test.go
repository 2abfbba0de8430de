package metrics

import (
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestNew_RegistersOnGivenRegistry(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := New(reg)

	m.RewritesTotal.WithLabelValues("filter", "doc_count").Inc()
	m.RewriteCacheHits.Inc()

	rec := httptest.NewRecorder()
	HandlerFor(reg).ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	body := rec.Body.String()
	assert.True(t, strings.Contains(body, `rewrites_total{reason="doc_count",strategy="filter"} 1`), body)
	assert.Contains(t, body, "rewrite_cache_hits_total 1")
}

func TestNew_TwiceOnSameRegistryPanics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg)
	require.Panics(t, func() { New(reg) })
}

func TestNewServer_OnlyServesMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	New(reg).ActiveShards.Set(3)
	srv := NewServer(9999, HandlerFor(reg))
	assert.Equal(t, ":9999", srv.Addr)

	rec := httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/metrics", nil))
	assert.Equal(t, 200, rec.Code)
	assert.Contains(t, rec.Body.String(), "active_shards 3")

	rec = httptest.NewRecorder()
	srv.Handler.ServeHTTP(rec, httptest.NewRequest("GET", "/", nil))
	assert.Equal(t, 404, rec.Code)
}
