// Package api assembles the chi router: public liveness at /health and the
// /rag/* endpoints, optionally behind bearer-token auth.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/matiasleandrokruk/ragline/internal/api/handlers"
	apmiddleware "github.com/matiasleandrokruk/ragline/internal/api/middleware"
)

// Deps wires the router.
type Deps struct {
	RAG *handlers.RAGHandler
	// Auth guards /rag/* when non-nil.
	Auth   apmiddleware.TokenParser
	Logger *slog.Logger
}

// NewRouter creates and configures a new chi router with all routes.
func NewRouter(d Deps) *chi.Mux {
	if d.Logger == nil {
		d.Logger = slog.Default()
	}
	r := chi.NewRouter()

	// Global middleware (runs on all routes)
	r.Use(middleware.RequestID)
	r.Use(middleware.RealIP)
	r.Use(middleware.RequestLogger(&middleware.DefaultLogFormatter{
		Logger:  slog.NewLogLogger(d.Logger.Handler(), slog.LevelDebug),
		NoColor: true,
	}))
	r.Use(middleware.Recoverer)

	// Liveness, unauthenticated
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		w.WriteHeader(http.StatusOK)
		w.Write([]byte(`{"status":"ok"}`)) //nolint:errcheck
	})

	r.Route("/rag", func(r chi.Router) {
		if d.Auth != nil {
			r.Use(apmiddleware.AuthMiddleware(d.Auth))
		}
		r.Use(apmiddleware.AuditMiddleware(d.Logger))

		r.Get("/health", d.RAG.Health)  // GET /rag/health
		r.Post("/init", d.RAG.Init)     // POST /rag/init
		r.Post("/ingest", d.RAG.Ingest) // POST /rag/ingest
		r.Post("/append", d.RAG.Append) // POST /rag/append
		r.Post("/query", d.RAG.Query)   // POST /rag/query
		r.Post("/ask", d.RAG.Query)     // POST /rag/ask
	})

	return r
}
