// Ollama HTTP adapter. Endpoints used:
//   - POST /api/embeddings: single text embedding
//   - POST /api/chat: non-streaming chat completion
//   - GET  /api/tags: health check (lists available models)

package llm

import (
	"context"
	"errors"
	"fmt"
)

// OllamaProvider implements LLMProvider against a running Ollama instance.
type OllamaProvider struct {
	chatModel  string
	embedModel string
	http       *transport
}

// NewOllamaProvider creates an OllamaProvider. embedModel falls back to chatModel when empty.
func NewOllamaProvider(baseURL, chatModel, embedModel string, opts Options) *OllamaProvider {
	if embedModel == "" {
		embedModel = chatModel
	}
	return &OllamaProvider{
		chatModel:  chatModel,
		embedModel: embedModel,
		http:       newTransport(baseURL, opts),
	}
}

// ─── internal Ollama JSON types ──────────────────────────────────────────────

type ollamaEmbedRequest struct {
	Model  string `json:"model"`
	Prompt string `json:"prompt"`
}

type ollamaEmbedResponse struct {
	Embedding []float32 `json:"embedding"`
}

type ollamaChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type ollamaChatRequest struct {
	Model    string              `json:"model"`
	Messages []ollamaChatMessage `json:"messages"`
	Stream   bool                `json:"stream"`
	Options  map[string]any      `json:"options,omitempty"`
}

type ollamaChatResponse struct {
	Message         *ollamaChatMessage `json:"message"`
	DoneReason      string             `json:"done_reason"`
	Done            bool               `json:"done"`
	PromptEvalCount int                `json:"prompt_eval_count"`
	EvalCount       int                `json:"eval_count"`
}

// ─── LLMProvider implementation ─────────────────────────────────────────────

// Embed computes embeddings for each text via POST /api/embeddings (one call per text).
// Ollama does not support batch embeddings in a single call.
func (p *OllamaProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	model := req.Model
	if model == "" {
		model = p.embedModel
	}

	embeddings := make([][]float32, 0, len(req.Texts))
	for _, text := range req.Texts {
		var resp ollamaEmbedResponse
		if err := p.http.postJSON(ctx, "embed", "/api/embeddings", ollamaEmbedRequest{Model: model, Prompt: text}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Embedding) == 0 {
			return nil, &GatewayError{Op: "embed", Err: errors.New("response missing embedding")}
		}
		embeddings = append(embeddings, resp.Embedding)
	}
	return &EmbedResponse{Embeddings: embeddings}, nil
}

// ChatCompletion performs a non-streaming chat via POST /api/chat.
func (p *OllamaProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.chatModel
	}

	msgs := make([]ollamaChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = ollamaChatMessage(m)
	}

	var resp ollamaChatResponse
	err := p.http.postJSON(ctx, "chat", "/api/chat", ollamaChatRequest{
		Model:    model,
		Messages: msgs,
		Stream:   false,
		Options:  buildChatOptions(req),
	}, &resp)
	if err != nil {
		return nil, err
	}
	if resp.Message == nil {
		return nil, &GatewayError{Op: "chat", Err: fmt.Errorf("response missing message (done=%t)", resp.Done)}
	}
	return &ChatResponse{
		Content:    resp.Message.Content,
		StopReason: resp.DoneReason,
		Tokens:     resp.PromptEvalCount + resp.EvalCount,
	}, nil
}

// buildChatOptions converts ChatRequest fields into Ollama options map.
func buildChatOptions(req ChatRequest) map[string]any {
	opts := map[string]any{}
	if req.Temperature != nil {
		opts["temperature"] = *req.Temperature
	}
	if req.MaxTokens != 0 {
		opts["num_predict"] = req.MaxTokens
	}
	if len(opts) == 0 {
		return nil
	}
	return opts
}

// ModelInfo returns static metadata for this provider/model.
func (p *OllamaProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:             p.chatModel,
		EmbeddingModel: p.embedModel,
		Provider:       ProviderOllama,
		Version:        "v1",
		MaxTokens:      4096,
	}
}

// HealthCheck calls GET /api/tags and returns nil if Ollama is reachable.
func (p *OllamaProvider) HealthCheck(ctx context.Context) error {
	return p.http.get(ctx, "health", "/api/tags", nil)
}
