package rewrite

import (
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/metrics"
)

// MetricsRecorder exports rewrite decisions and rewrite cache lookups to
// Prometheus.
type MetricsRecorder struct {
	m *metrics.Metrics
}

var _ CacheRecorder = (*MetricsRecorder)(nil)

func NewMetricsRecorder(m *metrics.Metrics) *MetricsRecorder {
	return &MetricsRecorder{m: m}
}

// ObserveRewrite counts d by strategy and cutoff reason. Cached decisions
// did not collect terms, so they are left out of the terms histogram.
func (r *MetricsRecorder) ObserveRewrite(d Decision) {
	reason := string(d.Reason)
	if reason == "" {
		reason = "none"
	}
	r.m.RewritesTotal.WithLabelValues(string(d.Strategy), reason).Inc()
	if !d.Cached {
		r.m.RewriteTermsCollected.Observe(float64(d.TermsCollected))
	}
}

func (r *MetricsRecorder) CacheHit()  { r.m.RewriteCacheHits.Inc() }
func (r *MetricsRecorder) CacheMiss() { r.m.RewriteCacheMisses.Inc() }
