// Package client calls a running ragline server's /rag/* endpoints. The CLI
// uses it when --server (or RAG_BASE_URL) points at a remote instance.
package client

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
)

const (
	headerContentType   = "Content-Type"
	headerAuthorization = "Authorization"
	mimeJSON            = "application/json"

	// DefaultTimeout covers an llm answer round-trip on the server.
	DefaultTimeout = 2 * time.Minute
)

// APIError is a non-2xx response from the server.
type APIError struct {
	StatusCode int
	Message    string
}

func (e *APIError) Error() string {
	return fmt.Sprintf("HTTP %d: %s", e.StatusCode, e.Message)
}

// Health is the body of GET /rag/health.
type Health struct {
	OK              bool             `json:"ok"`
	VectorStorePath string           `json:"vectorStorePath"`
	Driver          string           `json:"driver,omitempty"`
	Documents       int              `json:"documents"`
	Ingested        rag.IngestResult `json:"ingested"`
	IngestEvents    int              `json:"ingestEvents"`
	DroppedEvents   uint64           `json:"droppedEvents"`
	Models          *Models          `json:"models,omitempty"`
	// Gateway is "ok" or the check error; empty when no check was asked for.
	Gateway string `json:"gateway,omitempty"`
}

// Models names the backends serving chat and embeddings.
type Models struct {
	Provider       string `json:"provider"`
	ChatModel      string `json:"chatModel"`
	EmbeddingModel string `json:"embeddingModel"`
}

// InitResult is the body of POST /rag/init.
type InitResult struct {
	OK              bool   `json:"ok"`
	Count           int    `json:"count"`
	Added           int    `json:"added"`
	Skipped         int    `json:"skipped"`
	VectorStorePath string `json:"vectorStorePath"`
}

// QueryConfig is the optional "config" object of a query. UseAgent=false asks
// the server for an extractive answer.
type QueryConfig struct {
	rag.QueryOptions
	UseAgent *bool `json:"useAgent,omitempty"`
}

// Client is a small JSON client for the ragline HTTP API.
type Client struct {
	baseURL    string
	token      string
	httpClient *http.Client
}

// New returns a Client for baseURL. token, when set, is sent as a bearer token.
func New(baseURL, token string, httpClient *http.Client) *Client {
	if httpClient == nil {
		httpClient = &http.Client{Timeout: DefaultTimeout}
	}
	return &Client{
		baseURL:    strings.TrimRight(baseURL, "/"),
		token:      token,
		httpClient: httpClient,
	}
}

// Health calls GET /rag/health. checkGateway asks the server to check the
// model backends as well.
func (c *Client) Health(ctx context.Context, checkGateway bool) (*Health, error) {
	path := "/rag/health"
	if checkGateway {
		path += "?gateway=true"
	}
	var out Health
	if err := c.do(ctx, http.MethodGet, path, nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Init calls POST /rag/init.
func (c *Client) Init(ctx context.Context) (*InitResult, error) {
	var out InitResult
	if err := c.do(ctx, http.MethodPost, "/rag/init", struct{}{}, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Ingest calls POST /rag/ingest.
func (c *Client) Ingest(ctx context.Context, text string, metadata rag.Metadata) (*rag.IngestResult, error) {
	return c.ingest(ctx, "/rag/ingest", text, metadata)
}

// Append calls POST /rag/append.
func (c *Client) Append(ctx context.Context, text string, metadata rag.Metadata) (*rag.IngestResult, error) {
	return c.ingest(ctx, "/rag/append", text, metadata)
}

func (c *Client) ingest(ctx context.Context, path, text string, metadata rag.Metadata) (*rag.IngestResult, error) {
	req := struct {
		Text     string       `json:"text"`
		Metadata rag.Metadata `json:"metadata,omitempty"`
	}{text, metadata}
	var out rag.IngestResult
	if err := c.do(ctx, http.MethodPost, path, req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Query calls POST /rag/query. cfg may be nil.
func (c *Client) Query(ctx context.Context, question string, cfg *QueryConfig) (*rag.QueryResult, error) {
	req := struct {
		Question string       `json:"question"`
		Config   *QueryConfig `json:"config,omitempty"`
	}{question, cfg}
	var out rag.QueryResult
	if err := c.do(ctx, http.MethodPost, "/rag/query", req, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

func (c *Client) do(ctx context.Context, method, path string, payload, out any) error {
	var body io.Reader
	if payload != nil {
		b, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode request: %w", err)
		}
		body = bytes.NewReader(b)
	}

	req, err := http.NewRequestWithContext(ctx, method, c.baseURL+path, body)
	if err != nil {
		return fmt.Errorf("build request: %w", err)
	}
	if payload != nil {
		req.Header.Set(headerContentType, mimeJSON)
	}
	if c.token != "" {
		req.Header.Set(headerAuthorization, "Bearer "+c.token)
	}

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return fmt.Errorf("%s %s: %w", method, path, err)
	}
	defer resp.Body.Close()

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return fmt.Errorf("read response: %w", err)
	}
	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		return &APIError{StatusCode: resp.StatusCode, Message: errorMessage(raw)}
	}
	if len(bytes.TrimSpace(raw)) == 0 {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return fmt.Errorf("decode response: %w", err)
	}
	return nil
}

// errorMessage extracts {"error": "..."} or falls back to the raw body.
func errorMessage(raw []byte) string {
	var e struct {
		Error string `json:"error"`
	}
	if err := json.Unmarshal(raw, &e); err == nil && e.Error != "" {
		return e.Error
	}
	return strings.TrimSpace(string(raw))
}

// IsStatus reports whether err is an APIError with the given status code.
func IsStatus(err error, code int) bool {
	var apiErr *APIError
	return errors.As(err, &apiErr) && apiErr.StatusCode == code
}
