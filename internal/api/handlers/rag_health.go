package handlers

import (
	"net/http"
	"strconv"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

type healthResponse struct {
	OK              bool             `json:"ok"`
	VectorStorePath string           `json:"vectorStorePath"`
	Driver          string           `json:"driver,omitempty"`
	Documents       int              `json:"documents"`
	Ingested        rag.IngestResult `json:"ingested"`
	IngestEvents    int              `json:"ingestEvents"`
	DroppedEvents   uint64           `json:"droppedEvents"`
	Models          *modelsResponse  `json:"models,omitempty"`
	Gateway         string           `json:"gateway,omitempty"`
}

type modelsResponse struct {
	Provider       string `json:"provider"`
	ChatModel      string `json:"chatModel"`
	EmbeddingModel string `json:"embeddingModel"`
}

// Health handles GET /rag/health: store location, row count and the
// ingest totals seen by this process. ?gateway=true also checks the model
// backends; a failed check sets ok=false and reports the error in "gateway".
func (h *RAGHandler) Health(w http.ResponseWriter, r *http.Request) {
	check := false
	if v := r.URL.Query().Get("gateway"); v != "" {
		b, err := strconv.ParseBool(v)
		if err != nil {
			writeError(w, http.StatusBadRequest, "invalid gateway: must be a boolean")
			return
		}
		check = b
	}

	n, err := h.store.Count(r.Context())
	if err != nil {
		writeServiceError(w, r, h.logger, "health", err)
		return
	}
	resp := healthResponse{
		OK:              true,
		VectorStorePath: h.store.Location(),
		Documents:       n,
		Ingested:        h.stats.Snapshot(),
		IngestEvents:    h.stats.Events(),
	}
	if d, ok := h.store.(interface{ Driver() string }); ok {
		resp.Driver = d.Driver()
	}
	if h.events != nil {
		resp.DroppedEvents = h.events.Dropped()
	}
	if h.gateway != nil {
		meta := h.gateway.ModelInfo()
		resp.Models = &modelsResponse{
			Provider:       meta.Provider,
			ChatModel:      meta.ID,
			EmbeddingModel: meta.EmbeddingModel,
		}
		if check {
			resp.Gateway = "ok"
			if err := h.gateway.HealthCheck(r.Context()); err != nil {
				h.logger.WarnContext(r.Context(), "gateway health check failed", "error", err)
				resp.OK = false
				resp.Gateway = err.Error()
			}
		}
	}
	writeJSON(w, http.StatusOK, resp)
}
