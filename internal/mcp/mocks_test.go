package mcp

import (
	"context"
	"time"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

type mockQueryService struct {
	result   *rag.QueryResult
	err      error
	question string
	opts     rag.QueryOptions
}

func (m *mockQueryService) Query(_ context.Context, question string, opts rag.QueryOptions) (*rag.QueryResult, error) {
	m.question = question
	m.opts = opts
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &rag.QueryResult{Documents: []rag.RetrievedDocument{}}, nil
}

type mockIngestService struct {
	result   *rag.IngestResult
	err      error
	calls    []string
	text     string
	metadata rag.Metadata
}

func (m *mockIngestService) Ingest(_ context.Context, text string, metadata rag.Metadata) (*rag.IngestResult, error) {
	return m.record("ingest", text, metadata)
}

func (m *mockIngestService) Append(_ context.Context, text string, metadata rag.Metadata) (*rag.IngestResult, error) {
	return m.record("append", text, metadata)
}

func (m *mockIngestService) record(op, text string, metadata rag.Metadata) (*rag.IngestResult, error) {
	m.calls = append(m.calls, op)
	m.text = text
	m.metadata = metadata
	if m.err != nil {
		return nil, m.err
	}
	if m.result != nil {
		return m.result, nil
	}
	return &rag.IngestResult{}, nil
}

var fixedTime = time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)
