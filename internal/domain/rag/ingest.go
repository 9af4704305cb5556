package rag

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"maps"
	"time"

	"github.com/google/uuid"

	"github.com/matiasleandrokruk/ragline/internal/infra/eventbus"
	"github.com/matiasleandrokruk/ragline/internal/infra/llm"
)

// TopicIngested is the event bus topic published after a successful ingest.
const TopicIngested = "rag.ingested"

// AppendSource is the metadata.source stamped on appended text without one.
const AppendSource = "append"

// IngestedEvent is the payload of TopicIngested.
type IngestedEvent struct {
	Added   int
	Skipped int
	Source  string
}

// Embedder is the slice of the gateway the pipelines need for vectors.
type Embedder interface {
	Embed(ctx context.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error)
}

// IngestConfig tunes an IngestService. Zero values take the package defaults.
type IngestConfig struct {
	ChunkSize    int
	ChunkOverlap int
	Logger       *slog.Logger
}

// IngestService turns raw text into stored, embedded, deduplicated chunks.
type IngestService struct {
	store    VectorStore
	embedder Embedder
	bus      eventbus.EventBus
	size     int
	overlap  int
	logger   *slog.Logger
	now      func() time.Time
	newID    func() string
}

// NewIngestService wires an IngestService. bus may be nil.
func NewIngestService(store VectorStore, embedder Embedder, bus eventbus.EventBus, cfg IngestConfig) *IngestService {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = DefaultChunkSize
	}
	if cfg.ChunkOverlap < 0 {
		cfg.ChunkOverlap = 0
	}
	if cfg.Logger == nil {
		cfg.Logger = slog.Default()
	}
	return &IngestService{
		store:    store,
		embedder: embedder,
		bus:      bus,
		size:     cfg.ChunkSize,
		overlap:  cfg.ChunkOverlap,
		logger:   cfg.Logger,
		now:      func() time.Time { return time.Now().UTC() },
		newID:    newDocumentID,
	}
}

// Ingest chunks text, embeds each chunk and inserts it with do-nothing-on-conflict
// semantics. Chunks are processed in order; the first failure is returned and
// chunks stored before it stay stored. Blank text is a no-op.
func (s *IngestService) Ingest(ctx context.Context, text string, metadata Metadata) (*IngestResult, error) {
	res := &IngestResult{}
	chunks := Chunk(text, s.size, s.overlap)
	if len(chunks) == 0 {
		return res, nil
	}
	if metadata == nil {
		metadata = Metadata{}
	}
	// Validate serialisability once, before any gateway call.
	if _, err := CanonicalJSON(metadata); err != nil {
		return res, err
	}

	for i, chunk := range chunks {
		inserted, err := s.ingestChunk(ctx, chunk, metadata)
		if err != nil {
			s.logger.WarnContext(ctx, "ingest aborted", "chunk", i, "of", len(chunks), "added", res.Added, "error", err)
			return res, fmt.Errorf("ingest chunk %d/%d: %w", i+1, len(chunks), err)
		}
		if inserted {
			res.Added++
		} else {
			res.Skipped++
		}
	}

	source, _ := metadata["source"].(string)
	s.logger.DebugContext(ctx, "ingested", "chunks", len(chunks), "added", res.Added, "skipped", res.Skipped, "source", source)
	if s.bus != nil {
		s.bus.Publish(TopicIngested, IngestedEvent{Added: res.Added, Skipped: res.Skipped, Source: source})
	}
	return res, nil
}

// Append is Ingest with metadata.source defaulting to "append".
func (s *IngestService) Append(ctx context.Context, text string, metadata Metadata) (*IngestResult, error) {
	md := make(Metadata, len(metadata)+1)
	maps.Copy(md, metadata)
	if _, ok := md["source"]; !ok {
		md["source"] = AppendSource
	}
	return s.Ingest(ctx, text, md)
}

// Seed ingests items in order and totals the counts. On failure the partial
// totals are returned with the error.
func (s *IngestService) Seed(ctx context.Context, items []SeedItem) (*SeedResult, error) {
	out := &SeedResult{Count: len(items)}
	for i, item := range items {
		res, err := s.Ingest(ctx, item.Text, item.Metadata)
		if res != nil {
			out.Added += res.Added
			out.Skipped += res.Skipped
		}
		if err != nil {
			return out, fmt.Errorf("seed item %d: %w", i, err)
		}
	}
	s.logger.InfoContext(ctx, "seeded", "count", out.Count, "added", out.Added, "skipped", out.Skipped, "store", s.store.Location())
	return out, nil
}

func (s *IngestService) ingestChunk(ctx context.Context, chunk string, metadata Metadata) (bool, error) {
	hash, err := ContentHash(chunk, metadata)
	if err != nil {
		return false, err
	}
	vec, err := embedOne(ctx, s.embedder, chunk)
	if err != nil {
		return false, err
	}
	return s.store.Insert(ctx, Document{
		ID:          s.newID(),
		Text:        chunk,
		Metadata:    metadata,
		Embedding:   vec,
		ContentHash: hash,
		CreatedAt:   s.now(),
	})
}

// embedOne requests a single embedding and insists on exactly one non-empty vector.
func embedOne(ctx context.Context, e Embedder, text string) ([]float32, error) {
	resp, err := e.Embed(ctx, llm.EmbedRequest{Texts: []string{text}})
	if err != nil {
		return nil, err
	}
	if len(resp.Embeddings) != 1 || len(resp.Embeddings[0]) == 0 {
		return nil, &llm.GatewayError{Op: "embed", Err: errors.New("expected exactly one non-empty embedding")}
	}
	return resp.Embeddings[0], nil
}

func newDocumentID() string {
	id, err := uuid.NewV7()
	if err != nil {
		return uuid.NewString()
	}
	return id.String()
}
