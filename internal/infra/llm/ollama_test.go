// Unit tests for OllamaProvider.
// Uses httptest.NewServer to mock the Ollama HTTP API.
package llm

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
)

// ============================================================================
// Embed tests
// ============================================================================

func TestOllamaProvider_Embed_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/embeddings" || r.Method != http.MethodPost {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		var req ollamaEmbedRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil || req.Model != "nomic-embed-text" {
			http.Error(w, "bad body", http.StatusBadRequest)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.1, 0.2, 0.3}}) //nolint:errcheck
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3.2:3b", "nomic-embed-text", Options{})
	resp, err := p.Embed(context.Background(), EmbedRequest{Texts: []string{"hello world"}})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if len(resp.Embeddings) != 1 {
		t.Fatalf("expected 1 embedding, got %d", len(resp.Embeddings))
	}
	if len(resp.Embeddings[0]) != 3 {
		t.Errorf("expected 3 dims, got %d", len(resp.Embeddings[0]))
	}
}

func TestOllamaProvider_Embed_MultiText_CallsOncePerText(t *testing.T) {
	t.Parallel()

	var callCount atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		callCount.Add(1)
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaEmbedResponse{Embedding: []float32{0.5}}) //nolint:errcheck
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", "", Options{})
	resp, err := p.Embed(context.Background(), EmbedRequest{Texts: []string{"a", "b", "c"}})
	if err != nil {
		t.Fatalf("Embed failed: %v", err)
	}
	if callCount.Load() != 3 {
		t.Errorf("expected 3 HTTP calls (one per text), got %d", callCount.Load())
	}
	if len(resp.Embeddings) != 3 {
		t.Errorf("expected 3 embeddings, got %d", len(resp.Embeddings))
	}
}

func TestOllamaProvider_Embed_ServerError_ReturnsGatewayError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "internal server error", http.StatusInternalServerError)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", "", Options{})
	_, err := p.Embed(context.Background(), EmbedRequest{Texts: []string{"hello"}})
	var gerr *GatewayError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *GatewayError, got %v", err)
	}
	if gerr.StatusCode != http.StatusInternalServerError {
		t.Errorf("expected status 500, got %d", gerr.StatusCode)
	}
}

func TestOllamaProvider_Embed_MissingEmbedding_ReturnsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Write([]byte(`{}`)) //nolint:errcheck
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", "", Options{})
	_, err := p.Embed(context.Background(), EmbedRequest{Texts: []string{"hello"}})
	var gerr *GatewayError
	if !errors.As(err, &gerr) {
		t.Fatalf("expected *GatewayError, got %v", err)
	}
}

func TestOllamaProvider_Embed_EmptyTexts_ReturnsEmptyEmbeddings(t *testing.T) {
	t.Parallel()

	p := NewOllamaProvider("http://localhost:99999", "nomic-embed-text", "", Options{})
	resp, err := p.Embed(context.Background(), EmbedRequest{Texts: []string{}})
	if err != nil {
		t.Fatalf("expected no error for empty texts, got %v", err)
	}
	if len(resp.Embeddings) != 0 {
		t.Errorf("expected 0 embeddings, got %d", len(resp.Embeddings))
	}
}

// ============================================================================
// ChatCompletion tests
// ============================================================================

func TestOllamaProvider_ChatCompletion_Success(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/chat" || r.Method != http.MethodPost {
			http.Error(w, "unexpected path", http.StatusNotFound)
			return
		}
		w.Header().Set("Content-Type", "application/json")
		json.NewEncoder(w).Encode(ollamaChatResponse{ //nolint:errcheck
			Message:    &ollamaChatMessage{Role: "assistant", Content: "Hello from Ollama"},
			DoneReason: "stop",
			Done:       true,
		})
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3.2:3b", "", Options{})
	resp, err := p.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err != nil {
		t.Fatalf("ChatCompletion failed: %v", err)
	}
	if resp.Content != "Hello from Ollama" {
		t.Errorf("expected 'Hello from Ollama', got %q", resp.Content)
	}
	if resp.StopReason != "stop" {
		t.Errorf("expected StopReason 'stop', got %q", resp.StopReason)
	}
}

func TestOllamaProvider_ChatCompletion_ServerError_ReturnsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "bad request", http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "llama3.2:3b", "", Options{})
	_, err := p.ChatCompletion(context.Background(), ChatRequest{
		Messages: []Message{{Role: "user", Content: "hi"}},
	})
	if err == nil {
		t.Error("expected error for 400 response, got nil")
	}
}

// ============================================================================
// HealthCheck tests
// ============================================================================

func TestOllamaProvider_HealthCheck_Healthy(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/api/tags" {
			http.Error(w, "not found", http.StatusNotFound)
			return
		}
		w.WriteHeader(http.StatusOK)
		json.NewEncoder(w).Encode(map[string]any{"models": []any{}}) //nolint:errcheck
	}))
	defer srv.Close()

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", "", Options{})
	if err := p.HealthCheck(context.Background()); err != nil {
		t.Errorf("expected healthy, got error: %v", err)
	}
}

func TestOllamaProvider_HealthCheck_Down_ReturnsError(t *testing.T) {
	t.Parallel()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	srv.Close() // Closed before the health check call.

	p := NewOllamaProvider(srv.URL, "nomic-embed-text", "", Options{})
	if err := p.HealthCheck(context.Background()); err == nil {
		t.Error("expected error when server is down, got nil")
	}
}

// ============================================================================
// ModelInfo test
// ============================================================================

func TestOllamaProvider_ModelInfo_ReturnsMetadata(t *testing.T) {
	t.Parallel()

	p := NewOllamaProvider("http://localhost:11434", "llama3.2:3b", "nomic-embed-text", Options{})
	meta := p.ModelInfo()
	if meta.ID != "llama3.2:3b" {
		t.Errorf("expected model ID 'llama3.2:3b', got %q", meta.ID)
	}
	if meta.EmbeddingModel != "nomic-embed-text" {
		t.Errorf("expected embedding model 'nomic-embed-text', got %q", meta.EmbeddingModel)
	}
	if meta.Provider != ProviderOllama {
		t.Errorf("expected provider 'ollama', got %q", meta.Provider)
	}
}

// ============================================================================
// buildChatOptions tests
// ============================================================================

func TestBuildChatOptions_WithTemperature(t *testing.T) {
	t.Parallel()

	opts := buildChatOptions(ChatRequest{Temperature: Temperature(0.7)})
	if opts == nil {
		t.Fatal("expected non-nil opts map when Temperature is set")
	}
	if temp := opts["temperature"]; temp != float32(0.7) {
		t.Errorf("expected temperature 0.7, got %v", temp)
	}
}

func TestBuildChatOptions_ZeroTemperatureIsSent(t *testing.T) {
	t.Parallel()

	opts := buildChatOptions(ChatRequest{Temperature: Temperature(0)})
	if temp, ok := opts["temperature"]; !ok || temp != float32(0) {
		t.Errorf("expected explicit temperature 0 to be sent, got %v", opts)
	}
}

func TestBuildChatOptions_WithMaxTokens(t *testing.T) {
	t.Parallel()

	opts := buildChatOptions(ChatRequest{MaxTokens: 256})
	if opts == nil {
		t.Fatal("expected non-nil opts map when MaxTokens is set")
	}
	if predict := opts["num_predict"]; predict != 256 {
		t.Errorf("expected num_predict 256, got %v", predict)
	}
}

func TestBuildChatOptions_Unset_ReturnsNil(t *testing.T) {
	t.Parallel()

	if opts := buildChatOptions(ChatRequest{}); opts != nil {
		t.Errorf("expected nil opts when nothing is set, got %v", opts)
	}
}
