package handlers

import (
	"context"
	"net/http"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

// ingestRequest is the JSON body for POST /rag/ingest and /rag/append.
type ingestRequest struct {
	Text     string       `json:"text"`
	Metadata rag.Metadata `json:"metadata,omitempty"`
}

type ingestResponse struct {
	OK      bool `json:"ok"`
	Added   int  `json:"added"`
	Skipped int  `json:"skipped"`
}

type initResponse struct {
	OK              bool   `json:"ok"`
	Count           int    `json:"count"`
	Added           int    `json:"added"`
	Skipped         int    `json:"skipped"`
	VectorStorePath string `json:"vectorStorePath"`
}

// Ingest handles POST /rag/ingest.
func (h *RAGHandler) Ingest(w http.ResponseWriter, r *http.Request) {
	h.handleIngest(w, r, "ingest", h.ingest.Ingest)
}

// Append handles POST /rag/append; metadata.source defaults to "append".
func (h *RAGHandler) Append(w http.ResponseWriter, r *http.Request) {
	h.handleIngest(w, r, "append", h.ingest.Append)
}

func (h *RAGHandler) handleIngest(w http.ResponseWriter, r *http.Request, op string,
	fn func(context.Context, string, rag.Metadata) (*rag.IngestResult, error)) {
	var req ingestRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	res, err := fn(r.Context(), req.Text, req.Metadata)
	if err != nil {
		writeServiceError(w, r, h.logger, op, err)
		return
	}
	writeJSON(w, http.StatusOK, ingestResponse{OK: true, Added: res.Added, Skipped: res.Skipped})
}

// Init handles POST /rag/init: ingest every record of the configured seed file.
func (h *RAGHandler) Init(w http.ResponseWriter, r *http.Request) {
	items, err := rag.LoadSeedFile(h.seedPath)
	if err != nil {
		writeServiceError(w, r, h.logger, "init", err)
		return
	}
	res, err := h.ingest.Seed(r.Context(), items)
	if err != nil {
		writeServiceError(w, r, h.logger, "init", err)
		return
	}
	writeJSON(w, http.StatusOK, initResponse{
		OK:              true,
		Count:           res.Count,
		Added:           res.Added,
		Skipped:         res.Skipped,
		VectorStorePath: h.store.Location(),
	})
}
