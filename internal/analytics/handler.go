package analytics

import (
	"encoding/json"
	"log/slog"
	"net/http"
)

// rewriteStats is the rewrite-only slice of AggregatedStats.
type rewriteStats struct {
	TotalRewrites    int64            `json:"total_rewrites"`
	RewriteStrategy  map[string]int64 `json:"rewrite_strategy"`
	RewriteCutoffs   map[string]int64 `json:"rewrite_cutoffs"`
	AvgTermsPerWrite float64          `json:"avg_terms_per_rewrite"`
	SettingsChanges  int64            `json:"settings_changes"`
	TopPatterns      []QueryCount     `json:"top_patterns"`
}

type Handler struct {
	aggregator *Aggregator
	logger     *slog.Logger
}

func NewHandler(aggregator *Aggregator) *Handler {
	return &Handler{
		aggregator: aggregator,
		logger:     slog.Default().With("component", "analytics-handler"),
	}
}

func (h *Handler) Routes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/v1/analytics", h.Stats)
	mux.HandleFunc("GET /api/v1/analytics/rewrites", h.Rewrites)
}

func (h *Handler) Stats(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, h.aggregator.Stats())
}

func (h *Handler) Rewrites(w http.ResponseWriter, r *http.Request) {
	s := h.aggregator.Stats()
	h.writeJSON(w, rewriteStats{
		TotalRewrites:    s.TotalRewrites,
		RewriteStrategy:  s.RewriteStrategy,
		RewriteCutoffs:   s.RewriteCutoffs,
		AvgTermsPerWrite: s.AvgTermsPerWrite,
		SettingsChanges:  s.SettingsChanges,
		TopPatterns:      s.TopPatterns,
	})
}

func (h *Handler) writeJSON(w http.ResponseWriter, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(http.StatusOK)
	if err := json.NewEncoder(w).Encode(v); err != nil {
		h.logger.Error("failed to write analytics response", "error", err)
	}
}
