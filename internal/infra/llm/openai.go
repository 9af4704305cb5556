// OpenAI-compatible HTTP adapter. Endpoints used:
//   - POST /embeddings: one call per text, {model, input}
//   - POST /chat/completions: non-streaming, {model, temperature, messages}
//   - GET  /models: health check

package llm

import (
	"context"
	"errors"
	"fmt"
)

// OpenAIProvider implements LLMProvider against any OpenAI-compatible endpoint.
type OpenAIProvider struct {
	chatModel  string
	embedModel string
	http       *transport
}

// NewOpenAIProvider creates an adapter rooted at baseURL (e.g. https://api.openai.com/v1).
func NewOpenAIProvider(baseURL, chatModel, embedModel string, opts Options) *OpenAIProvider {
	return &OpenAIProvider{
		chatModel:  chatModel,
		embedModel: embedModel,
		http:       newTransport(baseURL, opts),
	}
}

type openAIEmbedRequest struct {
	Model string `json:"model"`
	Input string `json:"input"`
}

type openAIEmbedResponse struct {
	Data []struct {
		Embedding []float32 `json:"embedding"`
	} `json:"data"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

type openAIChatMessage struct {
	Role    string `json:"role"`
	Content string `json:"content"`
}

type openAIChatRequest struct {
	Model       string              `json:"model"`
	Messages    []openAIChatMessage `json:"messages"`
	Temperature *float32            `json:"temperature,omitempty"`
	MaxTokens   int                 `json:"max_tokens,omitempty"`
}

// Content is a pointer so a null or absent reply is told apart from "".
type openAIReplyMessage struct {
	Role    string  `json:"role"`
	Content *string `json:"content"`
}

type openAIChatResponse struct {
	Choices []struct {
		Message      *openAIReplyMessage `json:"message"`
		FinishReason string              `json:"finish_reason"`
	} `json:"choices"`
	Usage struct {
		TotalTokens int `json:"total_tokens"`
	} `json:"usage"`
}

// Embed computes one embedding per text. Any failure aborts the whole call.
func (p *OpenAIProvider) Embed(ctx context.Context, req EmbedRequest) (*EmbedResponse, error) {
	model := req.Model
	if model == "" {
		model = p.embedModel
	}
	out := &EmbedResponse{Embeddings: make([][]float32, 0, len(req.Texts))}
	for _, text := range req.Texts {
		var resp openAIEmbedResponse
		if err := p.http.postJSON(ctx, "embed", "/embeddings", openAIEmbedRequest{Model: model, Input: text}, &resp); err != nil {
			return nil, err
		}
		if len(resp.Data) == 0 || len(resp.Data[0].Embedding) == 0 {
			return nil, &GatewayError{Op: "embed", Err: errors.New("response missing data[0].embedding")}
		}
		out.Embeddings = append(out.Embeddings, resp.Data[0].Embedding)
		out.Tokens += resp.Usage.TotalTokens
	}
	return out, nil
}

// ChatCompletion performs a single non-streaming completion.
func (p *OpenAIProvider) ChatCompletion(ctx context.Context, req ChatRequest) (*ChatResponse, error) {
	model := req.Model
	if model == "" {
		model = p.chatModel
	}
	msgs := make([]openAIChatMessage, len(req.Messages))
	for i, m := range req.Messages {
		msgs[i] = openAIChatMessage(m)
	}

	var resp openAIChatResponse
	err := p.http.postJSON(ctx, "chat", "/chat/completions", openAIChatRequest{
		Model:       model,
		Messages:    msgs,
		Temperature: req.Temperature,
		MaxTokens:   req.MaxTokens,
	}, &resp)
	if err != nil {
		return nil, err
	}
	if len(resp.Choices) == 0 || resp.Choices[0].Message == nil || resp.Choices[0].Message.Content == nil {
		return nil, &GatewayError{Op: "chat", Err: fmt.Errorf("%w: missing choices[0].message.content", errMalformed)}
	}
	return &ChatResponse{
		Content:    *resp.Choices[0].Message.Content,
		StopReason: resp.Choices[0].FinishReason,
		Tokens:     resp.Usage.TotalTokens,
	}, nil
}

// ModelInfo returns static metadata for this provider.
func (p *OpenAIProvider) ModelInfo() ModelMeta {
	return ModelMeta{
		ID:             p.chatModel,
		EmbeddingModel: p.embedModel,
		Provider:       ProviderOpenAI,
		Version:        "v1",
		MaxTokens:      128000,
	}
}

// HealthCheck lists models; nil means the endpoint answered 200.
func (p *OpenAIProvider) HealthCheck(ctx context.Context) error {
	return p.http.get(ctx, "health", "/models", nil)
}
