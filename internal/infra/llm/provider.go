package llm

import "context"

// LLMProvider is the model-agnostic interface for gateway operations.
type LLMProvider interface {
	// ChatCompletion performs a non-streaming chat completion.
	ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error)

	// Embed computes dense vector representations, one per text.
	Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error)

	// ModelInfo returns static metadata about the provider/models.
	ModelInfo() ModelMeta

	// HealthCheck returns nil if the provider is reachable and operational.
	HealthCheck(ctx context.Context) error
}

// Provider names accepted by config and the Router.
const (
	ProviderOpenAI = "openai"
	ProviderOllama = "ollama"
)
