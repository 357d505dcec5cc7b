// Package app wires configuration into the long-lived components shared by
// the server and the CLI.
package app

import (
	"io"
	"log/slog"
	"time"

	"github.com/dgallion1/cmcguide/internal/answer"
	"github.com/dgallion1/cmcguide/internal/chunker"
	"github.com/dgallion1/cmcguide/internal/config"
	"github.com/dgallion1/cmcguide/internal/engine"
	"github.com/dgallion1/cmcguide/internal/knowledge"
	"github.com/dgallion1/cmcguide/internal/pipeline"
	"github.com/dgallion1/cmcguide/internal/retrieval"
	"github.com/dgallion1/cmcguide/internal/stats"
)

// App holds one instance of every component.
type App struct {
	Config       config.Config
	Log          *slog.Logger
	Tree         *knowledge.Cache
	Index        *retrieval.Store
	Engine       *engine.Engine
	Orchestrator *pipeline.Orchestrator
	Latency      *stats.Latency
}

// NewLogger builds the process logger from LOG_FORMAT and LOG_LEVEL.
func NewLogger(cfg config.Config, w io.Writer) *slog.Logger {
	var level slog.Level
	switch cfg.LogLevel {
	case "debug":
		level = slog.LevelDebug
	case "warn", "warning":
		level = slog.LevelWarn
	case "error":
		level = slog.LevelError
	default:
		level = slog.LevelInfo
	}
	opts := &slog.HandlerOptions{Level: level}
	if cfg.LogFormat == "text" {
		return slog.New(slog.NewTextHandler(w, opts))
	}
	return slog.New(slog.NewJSONHandler(w, opts))
}

// New builds the components. The orchestrator is created but not started.
func New(cfg config.Config, log *slog.Logger) (*App, error) {
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	backend, err := retrieval.BackendFor(cfg.SimilarityBackend, cfg.DenseDims)
	if err != nil {
		return nil, err
	}

	a := &App{
		Config:  cfg,
		Log:     log,
		Tree:    knowledge.NewCache(cfg.KnowledgePath, log.With("component", "knowledge")),
		Index:   retrieval.NewStore(cfg.IndexPath, backend, log.With("component", "index")),
		Latency: stats.NewLatency(time.Hour),
	}

	a.Engine, err = engine.New(a.Tree, a.Index, engine.Options{
		Detail: engine.Detail(cfg.DefaultDetail),
		TopK:   cfg.TopK,
		Lambda: cfg.MMRLambda,
		Pool:   cfg.MMRPool,
		Answer: answer.Options{
			MinScore:   cfg.MinScore,
			MaxBullets: cfg.MaxBullets,
			PerChunk:   2,
			Splitter:   chunker.SplitterFor(cfg.SentenceSplitter),
		},
		CacheSize: cfg.AnswerCacheSize,
		Stats:     a.Latency,
	}, log.With("component", "engine"))
	if err != nil {
		return nil, err
	}

	a.Orchestrator = pipeline.NewOrchestrator(cfg, a.Index, func(idx *retrieval.Index) {
		a.Engine.Purge()
	}, log.With("component", "pipeline"))
	return a, nil
}
