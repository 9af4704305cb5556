// Package ragtest provides deterministic gateway stand-ins for tests of the
// packages built on rag: a bag-of-words embedder and a canned chat model.
package ragtest

import (
	"context"
	"strings"
	"sync"
	"unicode"

	"github.com/matiasleandrokruk/ragline/internal/infra/llm"
)

// Dimensions is the width of every vector WordEmbedder returns.
const Dimensions = 64

// Gateway embeds by word overlap and answers chat calls with Reply.
// Err, when set, fails every call. The zero value is not usable; call New.
type Gateway struct {
	Reply string
	Err   error

	mu     sync.Mutex
	vocab  map[string]int
	embeds int
	chats  []llm.ChatRequest
}

// New returns a Gateway that replies with reply.
func New(reply string) *Gateway {
	return &Gateway{Reply: reply, vocab: map[string]int{}}
}

// Embed gives every distinct lower-cased word its own dimension.
func (g *Gateway) Embed(_ context.Context, req llm.EmbedRequest) (*llm.EmbedResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.embeds++
	if g.Err != nil {
		return nil, g.Err
	}
	out := make([][]float32, len(req.Texts))
	for i, t := range req.Texts {
		vec := make([]float32, Dimensions)
		for _, w := range strings.FieldsFunc(strings.ToLower(t), func(r rune) bool {
			return !unicode.IsLetter(r) && !unicode.IsDigit(r)
		}) {
			idx, ok := g.vocab[w]
			if !ok {
				idx = len(g.vocab) % Dimensions
				g.vocab[w] = idx
			}
			vec[idx]++
		}
		// Keep punctuation-only text off the zero vector.
		vec[Dimensions-1] += 0.01
		out[i] = vec
	}
	return &llm.EmbedResponse{Embeddings: out}, nil
}

// ChatCompletion records req and returns Reply.
func (g *Gateway) ChatCompletion(_ context.Context, req llm.ChatRequest) (*llm.ChatResponse, error) {
	g.mu.Lock()
	defer g.mu.Unlock()
	g.chats = append(g.chats, req)
	if g.Err != nil {
		return nil, g.Err
	}
	return &llm.ChatResponse{Content: g.Reply, StopReason: "stop"}, nil
}

// ModelInfo names the stand-in models.
func (g *Gateway) ModelInfo() llm.ModelMeta {
	return llm.ModelMeta{ID: "stub-chat", EmbeddingModel: "stub-embed", Provider: "stub"}
}

// HealthCheck returns Err.
func (g *Gateway) HealthCheck(context.Context) error {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.Err
}

// EmbedCalls reports how many Embed calls were made.
func (g *Gateway) EmbedCalls() int {
	g.mu.Lock()
	defer g.mu.Unlock()
	return g.embeds
}

// ChatRequests returns a copy of the recorded chat requests.
func (g *Gateway) ChatRequests() []llm.ChatRequest {
	g.mu.Lock()
	defer g.mu.Unlock()
	return append([]llm.ChatRequest(nil), g.chats...)
}
