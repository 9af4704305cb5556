// Package mcp exposes the RAG pipeline as Model Context Protocol tools
// (rag_query, rag_ingest) over stdio or streamable HTTP.
package mcp

import (
	"context"
	"errors"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

var (
	// ErrMissingQueryService is returned when no query service is provided.
	ErrMissingQueryService = errors.New("mcp: query service is required")
	// ErrMissingIngestService is returned when no ingest service is provided.
	ErrMissingIngestService = errors.New("mcp: ingest service is required")
)

// QueryService answers questions. *rag.RetrievalService satisfies it.
type QueryService interface {
	Query(ctx context.Context, question string, opts rag.QueryOptions) (*rag.QueryResult, error)
}

// IngestService stores text. *rag.IngestService satisfies it.
type IngestService interface {
	Ingest(ctx context.Context, text string, metadata rag.Metadata) (*rag.IngestResult, error)
	Append(ctx context.Context, text string, metadata rag.Metadata) (*rag.IngestResult, error)
}

// Ports aggregates the services the MCP server drives.
type Ports struct {
	Query  QueryService
	Ingest IngestService
}

// Validate ensures all required ports are set.
func (p *Ports) Validate() error {
	if p.Query == nil {
		return ErrMissingQueryService
	}
	if p.Ingest == nil {
		return ErrMissingIngestService
	}
	return nil
}
