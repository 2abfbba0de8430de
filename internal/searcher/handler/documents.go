package handler

import (
	"encoding/json"
	"net/http"

	"github.com/Adithya-Monish-Kumar-K/multiterm-search/pkg/logger"
)

type indexRequest struct {
	ID     string            `json:"id"`
	Fields map[string]string `json:"fields"`
}

type indexResponse struct {
	ID      string `json:"id"`
	ShardID int    `json:"shard_id"`
	Status  string `json:"status"`
}

// IndexDocument indexes the body synchronously into the owning shard. The
// document is searchable as soon as the response is written.
func (h *Handler) IndexDocument(w http.ResponseWriter, r *http.Request) {
	var req indexRequest
	if err := json.NewDecoder(http.MaxBytesReader(w, r.Body, 1<<20)).Decode(&req); err != nil {
		h.writeError(w, http.StatusBadRequest, "invalid document body: "+err.Error())
		return
	}
	if req.ID == "" || len(req.Fields) == 0 {
		h.writeError(w, http.StatusBadRequest, "document requires an id and at least one field")
		return
	}
	shardID, err := h.index.IndexDocument(req.ID, req.Fields)
	if err != nil {
		h.fail(w, r, "document indexing failed", err)
		return
	}
	if h.metrics != nil {
		h.metrics.DocsIndexedTotal.Inc()
	}
	logger.FromContext(r.Context()).Debug("document indexed", "doc_id", req.ID, "shard_id", shardID)
	h.writeJSON(w, http.StatusCreated, indexResponse{ID: req.ID, ShardID: shardID, Status: "indexed"})
}
