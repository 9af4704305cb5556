// Package llm defines the model-agnostic gateway abstraction for embeddings and
// chat completion. All types here are shared between the provider interface and adapters.
package llm

// Message represents a single turn in a conversation (role + content).
type Message struct {
	Role    string // "system" | "user" | "assistant"
	Content string
}

// Chat roles used by the RAG answer composer.
const (
	RoleSystem = "system"
	RoleUser   = "user"
)

// ChatRequest is the input for a non-streaming chat completion.
type ChatRequest struct {
	// Model overrides the provider default when non-empty.
	Model    string
	Messages []Message
	// Temperature is sent as-is when set; nil leaves the provider default.
	Temperature *float32
	MaxTokens   int
}

// ChatResponse is the output from a non-streaming chat completion.
type ChatResponse struct {
	Content    string // The assistant message text.
	StopReason string // "stop" | "length" | "error"
	Tokens     int    // Total tokens consumed (prompt + completion).
}

// EmbedRequest is the input for an embedding call.
type EmbedRequest struct {
	// Model overrides the provider default when non-empty.
	Model string
	Texts []string
}

// EmbedResponse is the output from an embedding call.
// Embeddings[i] corresponds to Texts[i] in the request.
type EmbedResponse struct {
	Embeddings [][]float32
	Tokens     int
}

// ModelMeta describes the provider identity and the models it talks to.
type ModelMeta struct {
	ID             string // chat model, e.g. "gpt-4o-mini", "llama3.2:3b"
	EmbeddingModel string // e.g. "text-embedding-3-small", "nomic-embed-text"
	Provider       string // e.g. "openai", "ollama"
	Version        string
	MaxTokens      int
}

// Temperature is a convenience for building ChatRequest.Temperature.
func Temperature(v float64) *float32 {
	t := float32(v)
	return &t
}
