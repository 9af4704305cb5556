package rag

import (
	"encoding/json"
	"math"
	"regexp"
	"sort"
)

// Query defaults.
const (
	DefaultTopK                = 6
	MaxTopK                    = 100
	DefaultSimilarityThreshold = 0.35
	DefaultTemperature         = 0.7
	DefaultSystemPrompt        = "You are a rigorous RAG assistant. Answer only from the provided context; " +
		"if the context is insufficient, reply exactly \"" + UnknownAnswer + "\""
)

// QueryOptions are per-request overrides. Nil/empty fields fall back to Defaults.
type QueryOptions struct {
	TopK                *int           `json:"topK,omitempty"`
	SemanticTopK        *int           `json:"semanticTopK,omitempty"`
	KeywordTopK         *int           `json:"keywordTopK,omitempty"`
	SimilarityThreshold *float64       `json:"similarityThreshold,omitempty"`
	Strict              *bool          `json:"strict,omitempty"`
	AnswerMode          AnswerMode     `json:"answerMode,omitempty"`
	SystemPrompt        *string        `json:"systemPrompt,omitempty"`
	Temperature         *float64       `json:"temperature,omitempty"`
	Filter              map[string]any `json:"filter,omitempty"`
}

// QueryConfig is the fully resolved configuration echoed back as usedConfig.
type QueryConfig struct {
	TopK                int            `json:"topK"`
	SemanticTopK        int            `json:"semanticTopK"`
	KeywordTopK         int            `json:"keywordTopK"`
	SimilarityThreshold float64        `json:"similarityThreshold"`
	Strict              bool           `json:"strict"`
	AnswerMode          AnswerMode     `json:"answerMode"`
	SystemPrompt        string         `json:"systemPrompt"`
	Temperature         float64        `json:"temperature"`
	Filter              map[string]any `json:"filter,omitempty"`
}

// Defaults are the process-wide query defaults, normally built from config.
type Defaults struct {
	TopK                int
	KeywordTopK         int // 0 disables keyword recall
	SimilarityThreshold float64
	Temperature         float64
	SystemPrompt        string
	AnswerMode          AnswerMode
}

// DefaultQueryDefaults returns the built-in defaults.
func DefaultQueryDefaults() Defaults {
	return Defaults{
		TopK:                DefaultTopK,
		SimilarityThreshold: DefaultSimilarityThreshold,
		Temperature:         DefaultTemperature,
		SystemPrompt:        DefaultSystemPrompt,
		AnswerMode:          AnswerModeLLM,
	}
}

// WithAgentPreference maps a caller's "use the agent" switch onto the answer
// mode: an explicit false turns an unset mode into extractive and an explicit
// true into llm, whatever the server default. An explicit AnswerMode always
// wins. Boundaries call this once before querying.
func (o QueryOptions) WithAgentPreference(useAgent *bool) QueryOptions {
	if o.AnswerMode != "" || useAgent == nil {
		return o
	}
	if *useAgent {
		o.AnswerMode = AnswerModeLLM
	} else {
		o.AnswerMode = AnswerModeExtractive
	}
	return o
}

// Resolve validates o and fills unset fields from d.
func (o QueryOptions) Resolve(d Defaults) (QueryConfig, error) {
	d = d.normalized()
	cfg := QueryConfig{
		TopK:                d.TopK,
		SimilarityThreshold: d.SimilarityThreshold,
		AnswerMode:          d.AnswerMode,
		SystemPrompt:        d.SystemPrompt,
		Temperature:         d.Temperature,
	}

	if o.TopK != nil {
		if *o.TopK < 1 || *o.TopK > MaxTopK {
			return QueryConfig{}, invalid("topK", "must be between 1 and %d, got %d", MaxTopK, *o.TopK)
		}
		cfg.TopK = *o.TopK
	}
	cfg.SemanticTopK = cfg.TopK
	if o.SemanticTopK != nil {
		if *o.SemanticTopK < 1 || *o.SemanticTopK > MaxTopK {
			return QueryConfig{}, invalid("semanticTopK", "must be between 1 and %d, got %d", MaxTopK, *o.SemanticTopK)
		}
		cfg.SemanticTopK = *o.SemanticTopK
	}
	cfg.KeywordTopK = d.KeywordTopK
	if o.KeywordTopK != nil {
		if *o.KeywordTopK < 0 || *o.KeywordTopK > MaxTopK {
			return QueryConfig{}, invalid("keywordTopK", "must be between 0 and %d, got %d", MaxTopK, *o.KeywordTopK)
		}
		cfg.KeywordTopK = *o.KeywordTopK
	}
	if o.SimilarityThreshold != nil {
		v := *o.SimilarityThreshold
		if math.IsNaN(v) || v < -1 || v > 1 {
			return QueryConfig{}, invalid("similarityThreshold", "must be within [-1, 1], got %v", v)
		}
		cfg.SimilarityThreshold = v
	}
	if o.Strict != nil {
		cfg.Strict = *o.Strict
	}
	if o.AnswerMode != "" {
		if !o.AnswerMode.Valid() {
			return QueryConfig{}, invalid("answerMode", "must be one of llm, extractive, none; got %q", o.AnswerMode)
		}
		cfg.AnswerMode = o.AnswerMode
	}
	if o.SystemPrompt != nil && *o.SystemPrompt != "" {
		cfg.SystemPrompt = *o.SystemPrompt
	}
	if o.Temperature != nil {
		v := *o.Temperature
		if math.IsNaN(v) || v < 0 || v > 2 {
			return QueryConfig{}, invalid("temperature", "must be within [0, 2], got %v", v)
		}
		cfg.Temperature = v
	}
	if len(o.Filter) > 0 {
		f, err := normalizeFilter(o.Filter)
		if err != nil {
			return QueryConfig{}, err
		}
		cfg.Filter = f
	}
	return cfg, nil
}

func (d Defaults) normalized() Defaults {
	base := DefaultQueryDefaults()
	if d.TopK < 1 || d.TopK > MaxTopK {
		d.TopK = base.TopK
	}
	if d.KeywordTopK < 0 || d.KeywordTopK > MaxTopK {
		d.KeywordTopK = 0
	}
	if d.SimilarityThreshold < -1 || d.SimilarityThreshold > 1 {
		d.SimilarityThreshold = base.SimilarityThreshold
	}
	if d.Temperature < 0 || d.Temperature > 2 {
		d.Temperature = base.Temperature
	}
	if d.SystemPrompt == "" {
		d.SystemPrompt = base.SystemPrompt
	}
	if !d.AnswerMode.Valid() {
		d.AnswerMode = base.AnswerMode
	}
	return d
}

// filterKeyPattern keeps keys safe inside a JSON path ($."key").
var filterKeyPattern = regexp.MustCompile(`^[A-Za-z_][A-Za-z0-9_-]{0,63}$`)

// normalizeFilter checks keys and coerces numbers to float64 so every store
// compares the same representation JSON decoding produces.
func normalizeFilter(in map[string]any) (map[string]any, error) {
	out := make(map[string]any, len(in))
	for k, v := range in {
		if !filterKeyPattern.MatchString(k) {
			return nil, invalid("filter", "unsupported key %q", k)
		}
		n, ok := scalar(v)
		if !ok {
			return nil, invalid("filter", "value for %q must be a string, number or boolean", k)
		}
		out[k] = n
	}
	return out, nil
}

// FilterKeys returns the filter keys in sorted order (stable SQL generation).
func FilterKeys(filter map[string]any) []string {
	keys := make([]string, 0, len(filter))
	for k := range filter {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}

// MatchesFilter reports whether metadata satisfies every filter entry.
func MatchesFilter(metadata Metadata, filter map[string]any) bool {
	for k, want := range filter {
		got, ok := metadata[k]
		if !ok {
			return false
		}
		gn, ok := scalar(got)
		if !ok || gn != want {
			return false
		}
	}
	return true
}

func scalar(v any) (any, bool) {
	switch x := v.(type) {
	case string, bool:
		return x, true
	case float64:
		return x, true
	case float32:
		return float64(x), true
	case int:
		return float64(x), true
	case int32:
		return float64(x), true
	case int64:
		return float64(x), true
	case json.Number:
		f, err := x.Float64()
		return f, err == nil
	}
	return nil, false
}
