package llm

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

	"golang.org/x/time/rate"
)

const (
	mimeJSON          = "application/json"
	headerContentType = "Content-Type"

	defaultTimeout   = 30 * time.Second
	baseRetryBackoff = 100 * time.Millisecond
)

// Options tunes the HTTP transport shared by all adapters.
type Options struct {
	APIKey     string        // sent as "Authorization: Bearer <key>" when non-empty
	Timeout    time.Duration // per-call deadline; 0 → 30s
	MaxRetries int           // extra attempts on transport errors, 429 and 5xx; 0 → none
	RateLimit  float64       // requests per second; 0 → unlimited
	HTTPClient *http.Client
}

// transport performs JSON POST/GET calls with a per-call timeout, an optional
// client-side rate limit and bounded retry.
type transport struct {
	baseURL    string
	apiKey     string
	timeout    time.Duration
	maxRetries int
	limiter    *rate.Limiter
	httpClient *http.Client
}

func newTransport(baseURL string, opts Options) *transport {
	t := &transport{
		baseURL:    strings.TrimRight(baseURL, "/"),
		apiKey:     opts.APIKey,
		timeout:    opts.Timeout,
		maxRetries: opts.MaxRetries,
		httpClient: opts.HTTPClient,
	}
	if t.timeout <= 0 {
		t.timeout = defaultTimeout
	}
	if t.maxRetries < 0 {
		t.maxRetries = 0
	}
	if t.httpClient == nil {
		t.httpClient = &http.Client{}
	}
	if opts.RateLimit > 0 {
		burst := int(opts.RateLimit)
		if burst < 1 {
			burst = 1
		}
		t.limiter = rate.NewLimiter(rate.Limit(opts.RateLimit), burst)
	}
	return t
}

// postJSON sends payload to baseURL+path and decodes a 200 response into out.
func (t *transport) postJSON(ctx context.Context, op, path string, payload, out any) error {
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("llm %s: encode request: %w", op, err)
	}
	return t.do(ctx, op, http.MethodPost, path, body, out)
}

// get issues a GET and decodes a 200 response into out (nil discards the body).
func (t *transport) get(ctx context.Context, op, path string, out any) error {
	return t.do(ctx, op, http.MethodGet, path, nil, out)
}

func (t *transport) do(ctx context.Context, op, method, path string, body []byte, out any) error {
	var lastErr *GatewayError
	for attempt := 0; attempt <= t.maxRetries; attempt++ {
		if attempt > 0 {
			backoff := baseRetryBackoff << (attempt - 1)
			select {
			case <-ctx.Done():
				return &GatewayError{Op: op, Err: ctx.Err()}
			case <-time.After(backoff):
			}
		}
		gerr := t.attempt(ctx, op, method, path, body, out)
		if gerr == nil {
			return nil
		}
		lastErr = gerr
		if !gerr.retryable() {
			break
		}
	}
	return lastErr
}

func (t *transport) attempt(ctx context.Context, op, method, path string, body []byte, out any) *GatewayError {
	callCtx, cancel := context.WithTimeout(ctx, t.timeout)
	defer cancel()

	if t.limiter != nil {
		if err := t.limiter.Wait(callCtx); err != nil {
			return &GatewayError{Op: op, Err: classify(callCtx, err)}
		}
	}

	var reader io.Reader
	if body != nil {
		reader = bytes.NewReader(body)
	}
	req, err := http.NewRequestWithContext(callCtx, method, t.baseURL+path, reader)
	if err != nil {
		return &GatewayError{Op: op, Err: fmt.Errorf("build request: %w", err)}
	}
	if body != nil {
		req.Header.Set(headerContentType, mimeJSON)
	}
	if t.apiKey != "" {
		req.Header.Set("Authorization", "Bearer "+t.apiKey)
	}

	resp, err := t.httpClient.Do(req)
	if err != nil {
		return &GatewayError{Op: op, Err: classify(callCtx, err)}
	}
	defer resp.Body.Close() //nolint:errcheck

	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Err: classify(callCtx, err)}
	}
	if resp.StatusCode != http.StatusOK {
		return &GatewayError{Op: op, StatusCode: resp.StatusCode, Body: truncate(string(raw), maxErrorBody)}
	}
	if out == nil {
		return nil
	}
	if err := json.Unmarshal(raw, out); err != nil {
		return &GatewayError{Op: op, Body: truncate(string(raw), maxErrorBody), Err: fmt.Errorf("%w: %v", errMalformed, err)}
	}
	return nil
}

// classify maps a per-call deadline to ErrGatewayTimeout and keeps other errors.
func classify(callCtx context.Context, err error) error {
	if errors.Is(callCtx.Err(), context.DeadlineExceeded) || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%w: %v", ErrGatewayTimeout, err)
	}
	return err
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n]
}
