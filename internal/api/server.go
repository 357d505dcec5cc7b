// Package api exposes guidance resolution, question answering and index
// maintenance over HTTP.
package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/go-chi/chi/v5/middleware"

	"github.com/dgallion1/cmcguide/internal/config"
	"github.com/dgallion1/cmcguide/internal/engine"
	"github.com/dgallion1/cmcguide/internal/knowledge"
	"github.com/dgallion1/cmcguide/internal/pipeline"
	"github.com/dgallion1/cmcguide/internal/retrieval"
	"github.com/dgallion1/cmcguide/internal/stats"
)

// Deps are the long-lived components the handlers call into.
type Deps struct {
	Engine       *engine.Engine
	Orchestrator *pipeline.Orchestrator
	Index        *retrieval.Store
	Tree         *knowledge.Cache
	Latency      *stats.Latency
}

// Server is the HTTP API server for cmcguide.
type Server struct {
	router chi.Router
	deps   Deps
	log    *slog.Logger
	cfg    config.Config
}

// NewServer creates and configures the HTTP server.
func NewServer(deps Deps, log *slog.Logger, cfg config.Config) *Server {
	if log == nil {
		log = slog.Default()
	}
	s := &Server{
		deps: deps,
		log:  log,
		cfg:  cfg,
	}
	s.setupRoutes()
	return s
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.router.ServeHTTP(w, r)
}

func (s *Server) setupRoutes() {
	r := chi.NewRouter()
	r.Use(middleware.Recoverer)
	r.Use(middleware.RequestID)
	r.Use(RequestLogger(s.log))

	r.Get("/health", s.handleHealth)

	r.Route("/api", func(r chi.Router) {
		r.Use(LimitBody(s.cfg.MaxRequestBytes))

		r.Post("/resolve", s.handleResolve)
		r.Post("/ask", s.handleAsk)
		r.Post("/retrieve", s.handleRetrieve)

		r.Get("/index", s.handleIndexInfo)
		r.Post("/index/rebuild", s.handleRebuild)
		r.Get("/index/rebuild/{jobID}/status", s.handleRebuildStatus)

		r.Post("/knowledge/reload", s.handleKnowledgeReload)
		r.Get("/stats/latency", s.handleLatencyStats)
	})

	s.router = r
}

func (s *Server) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	w.Write([]byte(`{"status":"ok"}`))
}
