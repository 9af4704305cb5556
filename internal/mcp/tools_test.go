package mcp

import (
	"context"
	"errors"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

func newTestServer(t *testing.T, q *mockQueryService, i *mockIngestService) *Server {
	t.Helper()
	server, err := NewServer(&Ports{Query: q, Ingest: i}, nil)
	require.NoError(t, err)
	return server
}

func TestServer_handleQuery(t *testing.T) {
	ctx := context.Background()

	t.Run("maps result", func(t *testing.T) {
		answer := "The cat sat."
		q := &mockQueryService{result: &rag.QueryResult{
			Answer: &answer,
			Documents: []rag.RetrievedDocument{{
				ID:         "doc-1",
				Text:       "The cat sat on the mat.",
				Metadata:   rag.Metadata{"source": "seed"},
				CreatedAt:  fixedTime,
				Similarity: 0.91,
			}},
			UsedConfig: rag.QueryConfig{TopK: 4, AnswerMode: rag.AnswerModeLLM},
		}}
		server := newTestServer(t, q, &mockIngestService{})

		_, out, err := server.handleQuery(ctx, nil, QueryInput{Question: "cat?"})
		require.NoError(t, err)
		require.NotNil(t, out.Answer)
		assert.Equal(t, "The cat sat.", *out.Answer)
		assert.Equal(t, "llm", out.AnswerMode)
		assert.Equal(t, 4, out.TopK)
		require.Len(t, out.Documents, 1)
		assert.Equal(t, "doc-1", out.Documents[0].ID)
		assert.Equal(t, "seed", out.Documents[0].Metadata["source"])
		assert.Equal(t, "2024-01-02T03:04:05Z", out.Documents[0].CreatedAt)
		assert.Equal(t, 0.91, out.Documents[0].Similarity)
		assert.Equal(t, "cat?", q.question)
	})

	t.Run("passes options through", func(t *testing.T) {
		q := &mockQueryService{}
		server := newTestServer(t, q, &mockIngestService{})
		topK, semantic, keyword, strict := 2, 6, 3, true

		_, out, err := server.handleQuery(ctx, nil, QueryInput{
			Question:     "x",
			TopK:         &topK,
			SemanticTopK: &semantic,
			KeywordTopK:  &keyword,
			Strict:       &strict,
			AnswerMode:   "none",
			Filter:       map[string]any{"topic": "pets"},
		})
		require.NoError(t, err)
		assert.Empty(t, out.Documents)
		require.NotNil(t, q.opts.TopK)
		assert.Equal(t, 2, *q.opts.TopK)
		require.NotNil(t, q.opts.SemanticTopK)
		assert.Equal(t, 6, *q.opts.SemanticTopK)
		require.NotNil(t, q.opts.KeywordTopK)
		assert.Equal(t, 3, *q.opts.KeywordTopK)
		assert.True(t, *q.opts.Strict)
		assert.Equal(t, rag.AnswerModeNone, q.opts.AnswerMode)
		assert.Equal(t, "pets", q.opts.Filter["topic"])
	})

	t.Run("useAgent false selects extractive", func(t *testing.T) {
		q := &mockQueryService{}
		server := newTestServer(t, q, &mockIngestService{})
		no := false

		_, _, err := server.handleQuery(ctx, nil, QueryInput{Question: "x", UseAgent: &no})
		require.NoError(t, err)
		assert.Equal(t, rag.AnswerModeExtractive, q.opts.AnswerMode)
	})

	t.Run("explicit answer mode beats useAgent", func(t *testing.T) {
		q := &mockQueryService{}
		server := newTestServer(t, q, &mockIngestService{})
		no := false

		_, _, err := server.handleQuery(ctx, nil, QueryInput{Question: "x", AnswerMode: "none", UseAgent: &no})
		require.NoError(t, err)
		assert.Equal(t, rag.AnswerModeNone, q.opts.AnswerMode)
	})

	t.Run("returns error on query failure", func(t *testing.T) {
		server := newTestServer(t, &mockQueryService{err: errors.New("store down")}, &mockIngestService{})

		_, _, err := server.handleQuery(ctx, nil, QueryInput{Question: "x"})
		require.Error(t, err)
		assert.Contains(t, err.Error(), "store down")
	})
}

func TestServer_handleIngest(t *testing.T) {
	ctx := context.Background()

	t.Run("ingests text", func(t *testing.T) {
		i := &mockIngestService{result: &rag.IngestResult{Added: 2, Skipped: 1}}
		server := newTestServer(t, &mockQueryService{}, i)

		_, out, err := server.handleIngest(ctx, nil, IngestInput{
			Text:     "hello",
			Metadata: map[string]any{"source": "mcp"},
		})
		require.NoError(t, err)
		assert.Equal(t, IngestOutput{Added: 2, Skipped: 1}, out)
		assert.Equal(t, []string{"ingest"}, i.calls)
		assert.Equal(t, "hello", i.text)
		assert.Equal(t, "mcp", i.metadata["source"])
	})

	t.Run("append flag uses append", func(t *testing.T) {
		i := &mockIngestService{}
		server := newTestServer(t, &mockQueryService{}, i)

		_, _, err := server.handleIngest(ctx, nil, IngestInput{Text: "more", Append: true})
		require.NoError(t, err)
		assert.Equal(t, []string{"append"}, i.calls)
	})

	t.Run("returns error on ingest failure", func(t *testing.T) {
		i := &mockIngestService{err: &rag.ValidationError{Field: "text", Reason: "must not be empty"}}
		server := newTestServer(t, &mockQueryService{}, i)

		_, _, err := server.handleIngest(ctx, nil, IngestInput{Text: " "})
		var ve *rag.ValidationError
		require.ErrorAs(t, err, &ve)
		assert.Equal(t, "text", ve.Field)
	})
}
