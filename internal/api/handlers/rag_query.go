package handlers

import (
	"net/http"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

// queryRequest is the JSON body for POST /rag/query and /rag/ask.
type queryRequest struct {
	Question string       `json:"question"`
	Config   *queryConfig `json:"config,omitempty"`
}

// queryConfig accepts both the camelCase keys and the upper-case aliases
// (TOP_K, SIMILARITY_THRESHOLD, ...); the alias wins when both are sent.
// hybridTopK names the final result count and yields to topK.
type queryConfig struct {
	TopK                   *int           `json:"topK"`
	TopKAlias              *int           `json:"TOP_K"`
	HybridTopK             *int           `json:"hybridTopK"`
	HybridTopKAlias        *int           `json:"HYBRID_TOP_K"`
	SemanticTopK           *int           `json:"semanticTopK"`
	SemanticTopKAlias      *int           `json:"SEMANTIC_TOP_K"`
	KeywordTopK            *int           `json:"keywordTopK"`
	KeywordTopKAlias       *int           `json:"KEYWORD_TOP_K"`
	SimilarityThreshold    *float64       `json:"similarityThreshold"`
	SimilarityThresholdEnv *float64       `json:"SIMILARITY_THRESHOLD"`
	Strict                 *bool          `json:"strict"`
	AnswerMode             rag.AnswerMode `json:"answerMode"`
	SystemPrompt           *string        `json:"systemPrompt"`
	Temperature            *float64       `json:"temperature"`
	Filter                 map[string]any `json:"filter"`
	UseAgent               *bool          `json:"useAgent"`
}

func (c *queryConfig) options() rag.QueryOptions {
	if c == nil {
		return rag.QueryOptions{}
	}
	opts := rag.QueryOptions{
		TopK:                firstNonNil(c.TopKAlias, c.TopK, c.HybridTopKAlias, c.HybridTopK),
		SemanticTopK:        firstNonNil(c.SemanticTopKAlias, c.SemanticTopK),
		KeywordTopK:         firstNonNil(c.KeywordTopKAlias, c.KeywordTopK),
		SimilarityThreshold: firstNonNil(c.SimilarityThresholdEnv, c.SimilarityThreshold),
		Strict:              c.Strict,
		AnswerMode:          c.AnswerMode,
		SystemPrompt:        c.SystemPrompt,
		Temperature:         c.Temperature,
		Filter:              c.Filter,
	}
	return opts.WithAgentPreference(c.UseAgent)
}

func firstNonNil[T any](vals ...*T) *T {
	for _, v := range vals {
		if v != nil {
			return v
		}
	}
	return nil
}

// Query handles POST /rag/query and POST /rag/ask.
func (h *RAGHandler) Query(w http.ResponseWriter, r *http.Request) {
	var req queryRequest
	if err := decodeBody(w, r, &req); err != nil {
		writeError(w, http.StatusBadRequest, errInvalidBody)
		return
	}

	res, err := h.query.Query(r.Context(), req.Question, req.Config.options())
	if err != nil {
		writeServiceError(w, r, h.logger, "query", err)
		return
	}
	writeJSON(w, http.StatusOK, res)
}
