package llm

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestTransport_Timeout_IsDistinctKind(t *testing.T) {
	t.Parallel()

	release := make(chan struct{})
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer srv.Close()
	defer close(release)

	p := NewOpenAIProvider(srv.URL, "chat", "embed", Options{Timeout: 50 * time.Millisecond})
	_, err := p.Embed(context.Background(), EmbedRequest{Texts: []string{"slow"}})

	require.Error(t, err)
	assert.ErrorIs(t, err, ErrGatewayTimeout)
	var gerr *GatewayError
	require.ErrorAs(t, err, &gerr)
	assert.Zero(t, gerr.StatusCode)
}

func TestTransport_NoRetryByDefault(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusServiceUnavailable)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "chat", "embed", Options{})
	_, err := p.Embed(context.Background(), EmbedRequest{Texts: []string{"x"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestTransport_RetriesServerErrorsThenSucceeds(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if calls.Add(1) < 3 {
			w.WriteHeader(http.StatusTooManyRequests)
			return
		}
		w.Write([]byte(`{"data":[{"embedding":[1,2]}]}`)) //nolint:errcheck
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "chat", "embed", Options{MaxRetries: 2})
	resp, err := p.Embed(context.Background(), EmbedRequest{Texts: []string{"x"}})
	require.NoError(t, err)
	assert.Equal(t, int32(3), calls.Load())
	assert.Equal(t, []float32{1, 2}, resp.Embeddings[0])
}

func TestTransport_DoesNotRetryClientErrors(t *testing.T) {
	t.Parallel()

	var calls atomic.Int32
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		calls.Add(1)
		w.WriteHeader(http.StatusBadRequest)
	}))
	defer srv.Close()

	p := NewOpenAIProvider(srv.URL, "chat", "embed", Options{MaxRetries: 3})
	_, err := p.Embed(context.Background(), EmbedRequest{Texts: []string{"x"}})
	require.Error(t, err)
	assert.Equal(t, int32(1), calls.Load())
}

func TestGatewayError_Retryable(t *testing.T) {
	t.Parallel()

	cases := []struct {
		name string
		err  *GatewayError
		want bool
	}{
		{"429", &GatewayError{StatusCode: 429}, true},
		{"503", &GatewayError{StatusCode: 503}, true},
		{"400", &GatewayError{StatusCode: 400}, false},
		{"transport", &GatewayError{Err: errors.New("connection refused")}, true},
		{"timeout", &GatewayError{Err: ErrGatewayTimeout}, false},
		{"missing field", &GatewayError{Body: "{}"}, false},
	}
	for _, tc := range cases {
		assert.Equal(t, tc.want, tc.err.retryable(), tc.name)
	}
}

func TestNewTransport_Defaults(t *testing.T) {
	t.Parallel()

	tr := newTransport("http://gateway/v1/", Options{RateLimit: 0.5, MaxRetries: -1})
	assert.Equal(t, "http://gateway/v1", tr.baseURL)
	assert.Equal(t, defaultTimeout, tr.timeout)
	assert.Equal(t, 0, tr.maxRetries)
	require.NotNil(t, tr.limiter)
	assert.Equal(t, 1, tr.limiter.Burst())

	assert.Nil(t, newTransport("http://gateway", Options{}).limiter)
}
