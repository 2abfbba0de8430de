package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/analytics"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/executor"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/internal/searcher/settings"
	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/logger"
)

type settingsResponse struct {
	settings.Settings
	Strategy string `json:"strategy"`
}

type explainResponse struct {
	Query    string                   `json:"query"`
	Strategy string                   `json:"strategy"`
	Rewrites []executor.RewriteReport `json:"rewrites"`
}

func (h *Handler) GetSettings(w http.ResponseWriter, r *http.Request) {
	h.writeJSON(w, http.StatusOK, settingsResponse{
		Settings: h.settings.Current(),
		Strategy: h.settings.StrategyKey(),
	})
}

// UpdateSettings applies a partial update: fields missing from the body
// keep their current value.
func (h *Handler) UpdateSettings(w http.ResponseWriter, r *http.Request) {
	next := h.settings.Current()
	dec := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<16))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&next); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid settings body: "+err.Error())
		return
	}

	previous := h.settings.StrategyKey()
	applied, err := h.settings.Update(r.Context(), next)
	if err != nil {
		h.fail(w, r, "rewrite settings update failed", err)
		return
	}
	strategy := h.settings.StrategyKey()
	if h.metrics != nil {
		h.metrics.RewriteSettingUpdates.Inc()
	}
	if h.collector != nil {
		h.collector.Track(analytics.Event{
			Type:      analytics.EventSettings,
			RequestID: logger.RequestID(r.Context()),
			Settings: &analytics.SettingsEvent{
				Mode:            string(applied.Mode),
				TermCountCutoff: applied.TermCountCutoff,
				DocCountPercent: applied.DocCountPercent,
				Previous:        previous,
				Strategy:        strategy,
			},
		})
	}
	h.writeJSON(w, http.StatusOK, settingsResponse{Settings: applied, Strategy: strategy})
}

// Explain reports, per pattern and shard, how the active strategy would
// rewrite each pattern of q. Nothing is scored.
func (h *Handler) Explain(w http.ResponseWriter, r *http.Request) {
	raw := r.URL.Query().Get("q")
	if raw == "" {
		h.writeError(w, http.StatusBadRequest, "query parameter 'q' is required")
		return
	}
	plan, err := h.parser.Parse(raw)
	if err != nil {
		h.fail(w, r, "query parse failed", err)
		return
	}
	strategy := h.settings.StrategyKey()
	reports, err := h.executor.Explain(r.Context(), plan)
	if err != nil {
		h.fail(w, r, "rewrite explain failed", err)
		return
	}
	h.writeJSON(w, http.StatusOK, explainResponse{Query: raw, Strategy: strategy, Rewrites: reports})
}
