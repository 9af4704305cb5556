package rag

import (
	"context"
	"sort"
)

// SearchRequest is a similarity query against a VectorStore.
type SearchRequest struct {
	Embedding []float32
	TopK      int
	// Filter restricts results to documents whose metadata has every key with
	// an equal scalar value. Empty means no filter.
	Filter map[string]any
}

// VectorStore persists chunks and answers similarity-ranked queries.
//
// Insert must enforce content-hash uniqueness in the storage layer (never
// check-then-insert) and report false for a duplicate. Search returns rows
// with an embedding, ordered by similarity desc, then CreatedAt asc, then ID
// asc, limited to TopK. Failures are *StoreError.
type VectorStore interface {
	Insert(ctx context.Context, doc Document) (bool, error)
	Search(ctx context.Context, req SearchRequest) ([]RetrievedDocument, error)
	Count(ctx context.Context) (int, error)
	// Location names where the data lives (file path, db path or table).
	Location() string
	Close() error
}

// KeywordRequest asks for chunks that share terms with a question.
type KeywordRequest struct {
	// Terms come from Keywords; a chunk matches when it holds any of them.
	Terms []string
	// Embedding is the question vector. Every hit carries its cosine
	// similarity to it so keyword and vector hits rank on one scale.
	Embedding []float32
	TopK      int
	Filter    map[string]any
}

// KeywordSearcher is implemented by stores that can also recall chunks by
// term match. Hits are the TopK best term matches (store-specific relevance),
// each with Similarity set against the question embedding.
type KeywordSearcher interface {
	KeywordSearch(ctx context.Context, req KeywordRequest) ([]RetrievedDocument, error)
}

// SortRetrieved orders docs by similarity desc, then CreatedAt asc, then ID asc.
func SortRetrieved(docs []RetrievedDocument) {
	sort.Slice(docs, func(i, j int) bool {
		a, b := docs[i], docs[j]
		if a.Similarity != b.Similarity {
			return a.Similarity > b.Similarity
		}
		if !a.CreatedAt.Equal(b.CreatedAt) {
			return a.CreatedAt.Before(b.CreatedAt)
		}
		return a.ID < b.ID
	})
}
