package app

import (
	"bytes"
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
	"github.com/matiasleandrokruk/ragline/internal/domain/rag/ragtest"
	"github.com/matiasleandrokruk/ragline/internal/infra/config"
	"github.com/matiasleandrokruk/ragline/internal/infra/sqlite"
	"github.com/matiasleandrokruk/ragline/internal/infra/vectorstore"
	pkgauth "github.com/matiasleandrokruk/ragline/pkg/auth"
)

func newTestApp(t *testing.T, cfg config.Config) (*App, *ragtest.Gateway) {
	t.Helper()
	store, err := vectorstore.OpenSQLite(sqlite.MemoryPath, "")
	require.NoError(t, err)
	gw := ragtest.New("answer from model")
	a := NewWithStore(cfg, nil, store, gw)
	t.Cleanup(func() { a.Close() })
	return a, gw
}

func serve(t *testing.T, h http.Handler, method, path, body, token string) *httptest.ResponseRecorder {
	t.Helper()
	req := httptest.NewRequest(method, path, strings.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	h.ServeHTTP(rr, req)
	return rr
}

func TestHandler_RoutesAndStats(t *testing.T) {
	a, _ := newTestApp(t, config.Default())
	h, err := a.Handler()
	require.NoError(t, err)

	rr := serve(t, h, http.MethodGet, "/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), "ok")

	rr = serve(t, h, http.MethodPost, "/rag/ingest", `{"text":"red apple"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	rr = serve(t, h, http.MethodPost, "/rag/ingest", `{"text":"red apple"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	// Stats are fed asynchronously through the event bus.
	require.Eventually(t, func() bool { return a.Stats.Events() == 2 }, 2*time.Second, 10*time.Millisecond)

	rr = serve(t, h, http.MethodGet, "/rag/health", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	var health struct {
		OK            bool             `json:"ok"`
		Driver        string           `json:"driver"`
		Documents     int              `json:"documents"`
		Ingested      rag.IngestResult `json:"ingested"`
		IngestEvents  int              `json:"ingestEvents"`
		DroppedEvents uint64           `json:"droppedEvents"`
		Models        struct {
			EmbeddingModel string `json:"embeddingModel"`
		} `json:"models"`
		Gateway string `json:"gateway"`
	}
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.True(t, health.OK)
	assert.Equal(t, "sqlite", health.Driver)
	assert.Equal(t, 1, health.Documents)
	assert.Equal(t, rag.IngestResult{Added: 1, Skipped: 1}, health.Ingested)
	assert.Equal(t, 2, health.IngestEvents)
	assert.Equal(t, uint64(0), health.DroppedEvents)
	assert.Equal(t, "stub-embed", health.Models.EmbeddingModel)

	rr = serve(t, h, http.MethodGet, "/rag/health?gateway=true", "", "")
	require.Equal(t, http.StatusOK, rr.Code)
	require.NoError(t, json.Unmarshal(rr.Body.Bytes(), &health))
	assert.Equal(t, "ok", health.Gateway)

	for _, path := range []string{"/rag/query", "/rag/ask"} {
		rr = serve(t, h, http.MethodPost, path, `{"question":"apple?"}`, "")
		require.Equal(t, http.StatusOK, rr.Code, path)
		assert.Contains(t, rr.Body.String(), "answer from model")
	}

	rr = serve(t, h, http.MethodGet, "/rag/query", "", "")
	assert.Equal(t, http.StatusMethodNotAllowed, rr.Code)
}

func TestHandler_UseAgentDisabledByConfig(t *testing.T) {
	cfg := config.Default()
	cfg.RAG.UseAgent = false
	a, gw := newTestApp(t, cfg)
	h, err := a.Handler()
	require.NoError(t, err)

	rr := serve(t, h, http.MethodPost, "/rag/query", `{"question":"anything"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"answerMode":"extractive"`)
	assert.Empty(t, gw.ChatRequests())
}

func TestHandler_UseAgentTrueOverridesExtractiveDefault(t *testing.T) {
	cfg := config.Default()
	cfg.RAG.UseAgent = false
	a, gw := newTestApp(t, cfg)
	h, err := a.Handler()
	require.NoError(t, err)

	rr := serve(t, h, http.MethodPost, "/rag/ingest", `{"text":"red apple"}`, "")
	require.Equal(t, http.StatusOK, rr.Code)

	rr = serve(t, h, http.MethodPost, "/rag/query", `{"question":"apple?","config":{"useAgent":true}}`, "")
	require.Equal(t, http.StatusOK, rr.Code)
	assert.Contains(t, rr.Body.String(), `"answerMode":"llm"`)
	assert.Contains(t, rr.Body.String(), "answer from model")
	assert.Len(t, gw.ChatRequests(), 1)
}

func TestHandler_AuthWhenSecretSet(t *testing.T) {
	cfg := config.Default()
	cfg.Auth.JWTSecret = "test-secret-key-32-chars-min!!!"
	a, _ := newTestApp(t, cfg)
	h, err := a.Handler()
	require.NoError(t, err)

	rr := serve(t, h, http.MethodGet, "/rag/health", "", "")
	assert.Equal(t, http.StatusUnauthorized, rr.Code)

	rr = serve(t, h, http.MethodGet, "/health", "", "")
	assert.Equal(t, http.StatusOK, rr.Code, "liveness stays public")

	signer, err := pkgauth.NewSigner(cfg.Auth.JWTSecret, time.Hour)
	require.NoError(t, err)
	token, err := signer.Sign("test", "")
	require.NoError(t, err)
	rr = serve(t, h, http.MethodGet, "/rag/health", "", token)
	assert.Equal(t, http.StatusOK, rr.Code)
}

func TestQueryDefaults(t *testing.T) {
	c := config.Default().RAG
	c.TopK = 3
	c.SimilarityThreshold = 0.5
	d := QueryDefaults(c)
	assert.Equal(t, 3, d.TopK)
	assert.Equal(t, 0.5, d.SimilarityThreshold)
	assert.Equal(t, 0, d.KeywordTopK)
	assert.Equal(t, rag.AnswerModeLLM, d.AnswerMode)

	c.UseAgent = false
	assert.Equal(t, rag.AnswerModeExtractive, QueryDefaults(c).AnswerMode)
}

func TestNewGateway_RoutesByProvider(t *testing.T) {
	cfg := config.Default().Gateway
	cfg.EmbedProvider = "ollama"
	gw := NewGateway(cfg)

	meta := gw.ModelInfo()
	assert.Contains(t, meta.EmbeddingModel, cfg.OllamaModel)
}

func TestNew_FileStore(t *testing.T) {
	cfg := config.Default()
	cfg.Store.Driver = config.DriverFile
	cfg.Store.Path = t.TempDir() + "/store.json"

	a, err := New(context.Background(), cfg, nil)
	require.NoError(t, err)
	defer a.Close()
	assert.Equal(t, cfg.Store.Path, a.Store.Location())
}

func TestNewLogger(t *testing.T) {
	var buf bytes.Buffer
	logger, err := NewLogger(config.LogConfig{Level: "warn", Format: "json"}, &buf)
	require.NoError(t, err)
	logger.Info("hidden")
	logger.Warn("shown")
	assert.NotContains(t, buf.String(), "hidden")
	assert.Contains(t, buf.String(), `"msg":"shown"`)

	_, err = NewLogger(config.LogConfig{Level: "loud"}, &buf)
	assert.Error(t, err)
	_, err = NewLogger(config.LogConfig{Level: "info", Format: "xml"}, &buf)
	assert.Error(t, err)
}
