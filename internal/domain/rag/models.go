// Package rag is the retrieval-augmented-generation core: chunking,
// content-addressed dedup, similarity-ranked retrieval and answer composition.
package rag

import "time"

// Metadata is an open JSON-compatible key/value map carried with every chunk
// (source, index, topic, ...).
type Metadata map[string]any

// Document is a persisted chunk.
type Document struct {
	ID          string
	Text        string
	Metadata    Metadata
	Embedding   []float32
	ContentHash string
	CreatedAt   time.Time
}

// RetrievedDocument is a Document projected with its cosine similarity to the query.
type RetrievedDocument struct {
	ID         string    `json:"id"`
	Text       string    `json:"text"`
	Metadata   Metadata  `json:"metadata"`
	CreatedAt  time.Time `json:"createdAt"`
	Similarity float64   `json:"similarity"`
}

// QueryResult is the response of a retrieval query. Answer is nil for
// answerMode "none" and is then omitted from JSON.
type QueryResult struct {
	Answer     *string             `json:"answer,omitempty"`
	Documents  []RetrievedDocument `json:"documents"`
	UsedConfig QueryConfig         `json:"usedConfig"`
}

// IngestResult counts chunks stored vs. skipped as duplicates.
type IngestResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// SeedItem is one record of a seed data file, ready to ingest.
type SeedItem struct {
	Text     string
	Metadata Metadata
}

// SeedResult summarises a seed run.
type SeedResult struct {
	Count   int `json:"count"`
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
}

// AnswerMode selects how (or whether) an answer is synthesised.
type AnswerMode string

const (
	AnswerModeLLM        AnswerMode = "llm"
	AnswerModeExtractive AnswerMode = "extractive"
	AnswerModeNone       AnswerMode = "none"
)

// Valid reports whether m is one of the known modes.
func (m AnswerMode) Valid() bool {
	switch m {
	case AnswerModeLLM, AnswerModeExtractive, AnswerModeNone:
		return true
	}
	return false
}
