package handlers

import (
	"context"
	"log/slog"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
	"github.com/matiasleandrokruk/ragline/internal/infra/llm"
)

// GatewayStatus describes and checks the model backends. *llm.Router
// satisfies it.
type GatewayStatus interface {
	ModelInfo() llm.ModelMeta
	HealthCheck(ctx context.Context) error
}

// DropCounter reports event deliveries lost to full subscriber buffers.
type DropCounter interface {
	Dropped() uint64
}

// RAGHandler serves /rag/*.
type RAGHandler struct {
	ingest   *rag.IngestService
	query    *rag.RetrievalService
	store    rag.VectorStore
	stats    *rag.Stats
	gateway  GatewayStatus
	events   DropCounter
	seedPath string
	logger   *slog.Logger
}

// RAGDeps are the collaborators of a RAGHandler. Stats, Gateway and Events
// may be nil.
type RAGDeps struct {
	Ingest   *rag.IngestService
	Query    *rag.RetrievalService
	Store    rag.VectorStore
	Stats    *rag.Stats
	Gateway  GatewayStatus
	Events   DropCounter
	SeedPath string
	Logger   *slog.Logger
}

// NewRAGHandler creates a RAGHandler.
func NewRAGHandler(d RAGDeps) *RAGHandler {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	if d.Stats == nil {
		d.Stats = rag.NewStats()
	}
	return &RAGHandler{
		ingest:   d.Ingest,
		query:    d.Query,
		store:    d.Store,
		stats:    d.Stats,
		gateway:  d.Gateway,
		events:   d.Events,
		seedPath: d.SeedPath,
		logger:   d.Logger,
	}
}
