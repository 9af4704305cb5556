package rag

import (
	"context"
	"errors"
	"sort"
	"strings"
	"sync"
	"unicode"

	"github.com/matiasleandrokruk/ragline/internal/infra/llm"
	"github.com/matiasleandrokruk/ragline/pkg/vecmath"
)

const testDims = 64

// wordEmbedder is a deterministic bag-of-words embedder: every distinct
// lower-cased word gets its own dimension, so similarity tracks word overlap.
type wordEmbedder struct {
	mu     sync.Mutex
	vocab  map[string]int
	calls  int
	failOn int // 1-based call number that fails; 0 = never
	err    error
}

func newWordEmbedder() *wordEmbedder {
	return &wordEmbedder{vocab: map[string]int{}}
}

func (e *wordEmbedder) Embed(_ context.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error) {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.calls++
	if e.failOn != 0 && e.calls == e.failOn {
		if e.err != nil {
			return nil, e.err
		}
		return nil, &llm.GatewayError{Op: "embed", StatusCode: 500, Body: "boom"}
	}
	out := make([][]float32, len(req.Texts))
	for i, t := range req.Texts {
		vec := make([]float32, testDims)
		for _, w := range strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			idx, ok := e.vocab[w]
			if !ok {
				idx = len(e.vocab) % testDims
				e.vocab[w] = idx
			}
			vec[idx]++
		}
		out[i] = vec
	}
	return &llm.EmbedResponse{Embeddings: out}, nil
}

func (e *wordEmbedder) callCount() int {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.calls
}

// stubChat records chat requests and replies with a fixed answer.
type stubChat struct {
	mu       sync.Mutex
	requests []llm.ChatRequest
	reply    string
	err      error
}

func (c *stubChat) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.requests = append(c.requests, req)
	if c.err != nil {
		return nil, c.err
	}
	return &llm.ChatResponse{Content: c.reply, StopReason: "stop"}, nil
}

func (c *stubChat) callCount() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return len(c.requests)
}

// memStore is an in-memory VectorStore with the same ordering contract as the real stores.
type memStore struct {
	mu        sync.Mutex
	docs      []Document
	hashes    map[string]bool
	searchErr error
	lastReq   SearchRequest
}

func newMemStore() *memStore { return &memStore{hashes: map[string]bool{}} }

func (m *memStore) Insert(_ context.Context, doc Document) (bool, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.hashes[doc.ContentHash] {
		return false, nil
	}
	m.hashes[doc.ContentHash] = true
	m.docs = append(m.docs, doc)
	return true, nil
}

func (m *memStore) Search(_ context.Context, req SearchRequest) ([]RetrievedDocument, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.lastReq = req
	if m.searchErr != nil {
		return nil, &StoreError{Op: "search", Err: m.searchErr}
	}
	var out []RetrievedDocument
	for _, d := range m.docs {
		if !MatchesFilter(d.Metadata, req.Filter) {
			continue
		}
		sim, err := vecmath.Cosine(d.Embedding, req.Embedding)
		if err != nil {
			return nil, &StoreError{Op: "search", Err: err}
		}
		out = append(out, RetrievedDocument{ID: d.ID, Text: d.Text, Metadata: d.Metadata, CreatedAt: d.CreatedAt, Similarity: sim})
	}
	sort.SliceStable(out, func(i, j int) bool {
		if out[i].Similarity != out[j].Similarity {
			return out[i].Similarity > out[j].Similarity
		}
		if !out[i].CreatedAt.Equal(out[j].CreatedAt) {
			return out[i].CreatedAt.Before(out[j].CreatedAt)
		}
		return out[i].ID < out[j].ID
	})
	if len(out) > req.TopK {
		out = out[:req.TopK]
	}
	return out, nil
}

// keywordStore adds term recall to memStore. Hits are ordered by matched
// term count, which is deliberately not the similarity order.
type keywordStore struct {
	*memStore
	lastKeyword KeywordRequest
}

func (k *keywordStore) KeywordSearch(_ context.Context, req KeywordRequest) ([]RetrievedDocument, error) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.lastKeyword = req
	type hit struct {
		doc     RetrievedDocument
		matched int
	}
	var hits []hit
	for _, d := range k.docs {
		n := MatchesKeywords(d.Text, req.Terms)
		if n == 0 || !MatchesFilter(d.Metadata, req.Filter) {
			continue
		}
		sim, err := vecmath.Cosine(d.Embedding, req.Embedding)
		if err != nil {
			return nil, &StoreError{Op: "keyword search", Err: err}
		}
		hits = append(hits, hit{RetrievedDocument{ID: d.ID, Text: d.Text, Metadata: d.Metadata, CreatedAt: d.CreatedAt, Similarity: sim}, n})
	}
	sort.SliceStable(hits, func(i, j int) bool { return hits[i].matched > hits[j].matched })
	out := []RetrievedDocument{}
	for i := 0; i < len(hits) && i < req.TopK; i++ {
		out = append(out, hits[i].doc)
	}
	return out, nil
}

func (m *memStore) Count(context.Context) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.docs), nil
}

func (m *memStore) Location() string { return "memory" }
func (m *memStore) Close() error     { return nil }

var errBoom = errors.New("boom")

func ptr[T any](v T) *T { return &v }
