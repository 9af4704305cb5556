package mcp

import (
	"context"
	"time"

	"github.com/modelcontextprotocol/go-sdk/mcp"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

// Tool names.
const (
	ToolQuery  = "rag_query"
	ToolIngest = "rag_ingest"
)

// QueryInput is the input schema for rag_query.
type QueryInput struct {
	Question            string         `json:"question" jsonschema:"the question to answer from the indexed documents"`
	TopK                *int           `json:"topK,omitempty" jsonschema:"maximum number of documents to retrieve (1-100)"`
	SemanticTopK        *int           `json:"semanticTopK,omitempty" jsonschema:"vector candidates fetched before the final cut, defaults to topK"`
	KeywordTopK         *int           `json:"keywordTopK,omitempty" jsonschema:"full-text candidates merged with the vector ones (0-100), 0 disables"`
	SimilarityThreshold *float64       `json:"similarityThreshold,omitempty" jsonschema:"minimum cosine similarity used when strict is true"`
	Strict              *bool          `json:"strict,omitempty" jsonschema:"drop documents below the similarity threshold"`
	AnswerMode          string         `json:"answerMode,omitempty" jsonschema:"llm, extractive or none"`
	Filter              map[string]any `json:"filter,omitempty" jsonschema:"exact-match metadata filter"`
	UseAgent            *bool          `json:"useAgent,omitempty" jsonschema:"false answers extractively without calling the chat model"`
}

// QueryOutput is the output schema for rag_query.
type QueryOutput struct {
	Answer     *string          `json:"answer,omitempty"`
	Documents  []DocumentOutput `json:"documents"`
	AnswerMode string           `json:"answerMode"`
	TopK       int              `json:"topK"`
}

// DocumentOutput is one retrieved chunk.
type DocumentOutput struct {
	ID         string         `json:"id"`
	Text       string         `json:"text"`
	Metadata   map[string]any `json:"metadata,omitempty"`
	CreatedAt  string         `json:"createdAt"`
	Similarity float64        `json:"similarity"`
}

// IngestInput is the input schema for rag_ingest.
type IngestInput struct {
	Text     string         `json:"text" jsonschema:"the text to chunk, embed and store"`
	Metadata map[string]any `json:"metadata,omitempty" jsonschema:"metadata stored with every chunk"`
	Append   bool           `json:"append,omitempty" jsonschema:"tag chunks with source=append unless metadata sets a source"`
}

// IngestOutput is the output schema for rag_ingest.
type IngestOutput struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// registerTools registers all tool handlers with the MCP server.
func (s *Server) registerTools() {
	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolQuery,
		Description: "Answer a question from the indexed documents, returning the answer and the retrieved chunks",
	}, s.handleQuery)

	mcp.AddTool(s.server, &mcp.Tool{
		Name:        ToolIngest,
		Description: "Chunk, embed and store text; identical chunks are skipped",
	}, s.handleIngest)
}

func (s *Server) handleQuery(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input QueryInput,
) (*mcp.CallToolResult, QueryOutput, error) {
	opts := rag.QueryOptions{
		TopK:                input.TopK,
		SemanticTopK:        input.SemanticTopK,
		KeywordTopK:         input.KeywordTopK,
		SimilarityThreshold: input.SimilarityThreshold,
		Strict:              input.Strict,
		AnswerMode:          rag.AnswerMode(input.AnswerMode),
		Filter:              input.Filter,
	}.WithAgentPreference(input.UseAgent)

	res, err := s.ports.Query.Query(ctx, input.Question, opts)
	if err != nil {
		s.logger.WarnContext(ctx, "mcp tool failed", "tool", ToolQuery, "error", err)
		return nil, QueryOutput{}, err
	}

	out := QueryOutput{
		Answer:     res.Answer,
		Documents:  make([]DocumentOutput, len(res.Documents)),
		AnswerMode: string(res.UsedConfig.AnswerMode),
		TopK:       res.UsedConfig.TopK,
	}
	for i, d := range res.Documents {
		out.Documents[i] = DocumentOutput{
			ID:         d.ID,
			Text:       d.Text,
			Metadata:   d.Metadata,
			CreatedAt:  d.CreatedAt.UTC().Format(time.RFC3339Nano),
			Similarity: d.Similarity,
		}
	}
	return nil, out, nil
}

func (s *Server) handleIngest(
	ctx context.Context,
	_ *mcp.CallToolRequest,
	input IngestInput,
) (*mcp.CallToolResult, IngestOutput, error) {
	ingest := s.ports.Ingest.Ingest
	if input.Append {
		ingest = s.ports.Ingest.Append
	}
	res, err := ingest(ctx, input.Text, input.Metadata)
	if err != nil {
		s.logger.WarnContext(ctx, "mcp tool failed", "tool", ToolIngest, "error", err)
		return nil, IngestOutput{}, err
	}
	return nil, IngestOutput{Added: res.Added, Skipped: res.Skipped}, nil
}
