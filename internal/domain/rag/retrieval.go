package rag

import (
	"context"
	"log/slog"
	"strings"
)

// RetrievalService answers questions from the vector store.
type RetrievalService struct {
	store    VectorStore
	embedder Embedder
	composer *Composer
	defaults Defaults
	logger   *slog.Logger
}

// NewRetrievalService wires a RetrievalService.
func NewRetrievalService(store VectorStore, embedder Embedder, composer *Composer, defaults Defaults, logger *slog.Logger) *RetrievalService {
	if logger == nil {
		logger = slog.Default()
	}
	return &RetrievalService{
		store:    store,
		embedder: embedder,
		composer: composer,
		defaults: defaults.normalized(),
		logger:   logger,
	}
}

// Defaults returns the resolved process-wide defaults.
func (s *RetrievalService) Defaults() Defaults { return s.defaults }

// Query resolves opts, embeds the question, searches, applies the strict
// threshold and composes an answer. A blank question returns no documents
// without touching any gateway.
//
// Vector search recalls SemanticTopK candidates. When KeywordTopK > 0 and the
// store is a KeywordSearcher, up to KeywordTopK term matches join them; the
// union is ranked by similarity and cut to TopK.
func (s *RetrievalService) Query(ctx context.Context, question string, opts QueryOptions) (*QueryResult, error) {
	cfg, err := opts.Resolve(s.defaults)
	if err != nil {
		return nil, err
	}
	result := &QueryResult{Documents: []RetrievedDocument{}, UsedConfig: cfg}

	question = strings.TrimSpace(question)
	if question == "" {
		return result, nil
	}

	vec, err := embedOne(ctx, s.embedder, question)
	if err != nil {
		return nil, err
	}

	docs, err := s.store.Search(ctx, SearchRequest{Embedding: vec, TopK: cfg.SemanticTopK, Filter: cfg.Filter})
	if err != nil {
		return nil, err
	}
	semantic := len(docs)
	keyword, err := s.keywordRecall(ctx, question, vec, cfg)
	if err != nil {
		return nil, err
	}
	if len(keyword) > 0 {
		docs = mergeCandidates(docs, keyword)
		SortRetrieved(docs)
	}
	if len(docs) > cfg.TopK {
		docs = docs[:cfg.TopK]
	}
	found := len(docs)
	if cfg.Strict {
		docs = applyThreshold(docs, cfg.SimilarityThreshold)
	}
	if docs == nil {
		docs = []RetrievedDocument{}
	}
	result.Documents = docs

	answer, err := s.composer.Compose(ctx, question, docs, cfg)
	if err != nil {
		return nil, err
	}
	result.Answer = answer

	s.logger.DebugContext(ctx, "query", "topK", cfg.TopK, "semantic", semantic, "keyword", len(keyword),
		"found", found, "kept", len(docs), "mode", cfg.AnswerMode, "strict", cfg.Strict)
	return result, nil
}

func (s *RetrievalService) keywordRecall(ctx context.Context, question string, vec []float32, cfg QueryConfig) ([]RetrievedDocument, error) {
	if cfg.KeywordTopK < 1 {
		return nil, nil
	}
	ks, ok := s.store.(KeywordSearcher)
	if !ok {
		return nil, nil
	}
	terms := Keywords(question)
	if len(terms) == 0 {
		return nil, nil
	}
	return ks.KeywordSearch(ctx, KeywordRequest{Terms: terms, Embedding: vec, TopK: cfg.KeywordTopK, Filter: cfg.Filter})
}

// mergeCandidates appends keyword hits that vector search did not already return.
func mergeCandidates(semantic, keyword []RetrievedDocument) []RetrievedDocument {
	seen := make(map[string]struct{}, len(semantic)+len(keyword))
	out := make([]RetrievedDocument, 0, len(semantic)+len(keyword))
	for _, d := range semantic {
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	for _, d := range keyword {
		if _, ok := seen[d.ID]; ok {
			continue
		}
		seen[d.ID] = struct{}{}
		out = append(out, d)
	}
	return out
}

// applyThreshold keeps documents with similarity >= threshold, preserving order.
func applyThreshold(docs []RetrievedDocument, threshold float64) []RetrievedDocument {
	kept := docs[:0:0]
	for _, d := range docs {
		if d.Similarity >= threshold {
			kept = append(kept, d)
		}
	}
	return kept
}
