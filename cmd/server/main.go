package main

import (
	"context"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/dgallion1/cmcguide/internal/api"
	"github.com/dgallion1/cmcguide/internal/app"
	"github.com/dgallion1/cmcguide/internal/config"
)

func main() {
	cfg := config.Load()
	log := app.NewLogger(cfg, os.Stdout)

	a, err := app.New(cfg, log)
	if err != nil {
		log.Error("invalid configuration", "error", err)
		os.Exit(1)
	}

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// Load the tree eagerly so a bad file is reported at startup.
	tree := a.Tree.Get()
	log.Info("knowledge tree ready", "intents", len(tree.Intents()), "leaves", tree.Leaves())

	a.Orchestrator.Start(ctx)
	if cfg.RebuildOnStart {
		if _, err := a.Orchestrator.Submit(false); err != nil {
			log.Warn("startup rebuild not queued", "error", err)
		}
	} else if _, err := a.Index.EnsureLoaded(); err != nil {
		log.Warn("no retrieval index yet; open-text answers will report no match until a rebuild", "error", err)
	}

	srv := api.NewServer(api.Deps{
		Engine:       a.Engine,
		Orchestrator: a.Orchestrator,
		Index:        a.Index,
		Tree:         a.Tree,
		Latency:      a.Latency,
	}, log, cfg)

	httpServer := &http.Server{
		Addr:         ":" + cfg.Port,
		Handler:      srv,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 60 * time.Second,
		IdleTimeout:  60 * time.Second,
	}

	// Graceful shutdown.
	stopped := make(chan struct{})
	go func() {
		defer close(stopped)
		sigCh := make(chan os.Signal, 1)
		signal.Notify(sigCh, syscall.SIGINT, syscall.SIGTERM)
		<-sigCh
		log.Info("shutting down...")

		shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
		defer shutdownCancel()
		httpServer.Shutdown(shutdownCtx)

		a.Orchestrator.Stop()
	}()

	log.Info("starting cmcguide",
		"port", cfg.Port,
		"backend", cfg.SimilarityBackend,
		"knowledge", cfg.KnowledgePath,
		"corpus", cfg.CorpusPath,
		"index", cfg.IndexPath,
	)
	if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
		log.Error("server error", "error", err)
		os.Exit(1)
	}
	<-stopped
	log.Info("stopped")
}
