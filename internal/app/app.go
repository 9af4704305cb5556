// Package app composes the ragline services from one config.Config: gateway,
// vector store, event bus, ingest/query services and the HTTP handler.
// The serve, CLI and MCP entrypoints all build on it.
package app

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"

	"github.com/matiasleandrokruk/ragline/internal/api"
	"github.com/matiasleandrokruk/ragline/internal/api/handlers"
	"github.com/matiasleandrokruk/ragline/internal/domain/rag"
	"github.com/matiasleandrokruk/ragline/internal/infra/config"
	"github.com/matiasleandrokruk/ragline/internal/infra/eventbus"
	"github.com/matiasleandrokruk/ragline/internal/infra/llm"
	"github.com/matiasleandrokruk/ragline/internal/infra/vectorstore"
	pkgauth "github.com/matiasleandrokruk/ragline/pkg/auth"
)

// Gateway is what the pipelines need from the model backends. *llm.Router
// satisfies it.
type Gateway interface {
	rag.Embedder
	rag.ChatCompleter
}

// App holds the wired services. Close releases the store and the bus.
type App struct {
	Config  config.Config
	Logger  *slog.Logger
	Store   rag.VectorStore
	Gateway Gateway
	Bus     *eventbus.Bus
	Stats   *rag.Stats
	Ingest  *rag.IngestService
	Query   *rag.RetrievalService
}

// New opens the configured store and builds the gateway from cfg.
func New(ctx context.Context, cfg config.Config, logger *slog.Logger) (*App, error) {
	store, err := vectorstore.Open(ctx, cfg)
	if err != nil {
		return nil, fmt.Errorf("open vector store: %w", err)
	}
	return NewWithStore(cfg, logger, store, NewGateway(cfg.Gateway)), nil
}

// NewWithStore wires the services around an already-open store and gateway.
func NewWithStore(cfg config.Config, logger *slog.Logger, store rag.VectorStore, gw Gateway) *App {
	if logger == nil {
		logger = slog.Default()
	}
	bus := eventbus.New()
	stats := rag.NewStats()
	go stats.Run(bus.Subscribe(rag.TopicIngested))

	ingest := rag.NewIngestService(store, gw, bus, rag.IngestConfig{
		ChunkSize:    cfg.RAG.ChunkSize,
		ChunkOverlap: cfg.RAG.ChunkOverlap,
		Logger:       logger.With("component", "ingest"),
	})
	query := rag.NewRetrievalService(store, gw,
		rag.NewComposer(gw, logger.With("component", "composer")),
		QueryDefaults(cfg.RAG), logger.With("component", "retrieval"))

	return &App{
		Config:  cfg,
		Logger:  logger,
		Store:   store,
		Gateway: gw,
		Bus:     bus,
		Stats:   stats,
		Ingest:  ingest,
		Query:   query,
	}
}

// NewGateway builds one provider per backend and routes embed/chat by config.
func NewGateway(cfg config.GatewayConfig) *llm.Router {
	opts := llm.Options{
		APIKey:     cfg.OpenAIAPIKey,
		Timeout:    cfg.Timeout,
		MaxRetries: cfg.MaxRetries,
		RateLimit:  cfg.RateLimit,
	}
	ollamaOpts := opts
	ollamaOpts.APIKey = ""

	return llm.NewRouter(map[string]llm.LLMProvider{
		llm.ProviderOpenAI: llm.NewOpenAIProvider(cfg.OpenAIBaseURL, cfg.ChatModel, cfg.EmbeddingModel, opts),
		llm.ProviderOllama: llm.NewOllamaProvider(cfg.OllamaBaseURL, cfg.OllamaChatModel, cfg.OllamaModel, ollamaOpts),
	}, cfg.EmbedProvider, cfg.ChatProvider)
}

// QueryDefaults maps the pipeline config onto query defaults. UseAgent=false
// makes extractive the default answer mode.
func QueryDefaults(c config.RAGConfig) rag.Defaults {
	d := rag.DefaultQueryDefaults()
	d.TopK = c.TopK
	d.SimilarityThreshold = c.SimilarityThreshold
	d.KeywordTopK = c.KeywordTopK
	if !c.UseAgent {
		d.AnswerMode = rag.AnswerModeExtractive
	}
	return d
}

// Handler returns the HTTP router, with bearer auth when a JWT secret is set.
func (a *App) Handler() (http.Handler, error) {
	deps := api.Deps{
		RAG: handlers.NewRAGHandler(handlers.RAGDeps{
			Ingest:   a.Ingest,
			Query:    a.Query,
			Store:    a.Store,
			Stats:    a.Stats,
			Gateway:  a.GatewayStatus(),
			Events:   a.Bus,
			SeedPath: a.Config.RAG.SeedPath,
			Logger:   a.Logger.With("component", "http"),
		}),
		Logger: a.Logger,
	}
	if secret := a.Config.Auth.JWTSecret; secret != "" {
		signer, err := pkgauth.NewSigner(secret, 0)
		if err != nil {
			return nil, err
		}
		deps.Auth = signer
	}
	return api.NewRouter(deps), nil
}

// GatewayStatus returns the gateway when it can describe and check its
// backends, nil otherwise.
func (a *App) GatewayStatus() handlers.GatewayStatus {
	if s, ok := a.Gateway.(handlers.GatewayStatus); ok {
		return s
	}
	return nil
}

// Close stops the stats consumer and closes the store.
func (a *App) Close() error {
	a.Bus.Close()
	if err := a.Store.Close(); err != nil {
		return fmt.Errorf("close vector store: %w", err)
	}
	return nil
}
