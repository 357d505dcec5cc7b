package api

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/dgallion1/cmcguide/internal/pipeline"
)

type rebuildRequest struct {
	Force bool `json:"force"`
}

func (s *Server) handleRebuild(w http.ResponseWriter, r *http.Request) {
	var req rebuildRequest
	if !decodeJSON(w, r, &req, true) {
		return
	}

	job, err := s.deps.Orchestrator.Submit(req.Force)
	if errors.Is(err, pipeline.ErrQueueFull) || errors.Is(err, pipeline.ErrStopped) {
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
		return
	}
	if err != nil {
		jsonError(w, err.Error(), http.StatusInternalServerError)
		return
	}

	snap := job.Snapshot()
	writeJSON(w, http.StatusAccepted, map[string]any{
		"job_id":   snap.ID,
		"status":   snap.Status,
		"force":    snap.Force,
		"poll_url": fmt.Sprintf("/api/index/rebuild/%s/status", snap.ID),
	})
}

func (s *Server) handleRebuildStatus(w http.ResponseWriter, r *http.Request) {
	jobID := chi.URLParam(r, "jobID")
	job := s.deps.Orchestrator.GetJob(jobID)
	if job == nil {
		jsonError(w, "job not found", http.StatusNotFound)
		return
	}
	writeJSON(w, http.StatusOK, job.Snapshot())
}

func (s *Server) handleIndexInfo(w http.ResponseWriter, r *http.Request) {
	idx, err := s.deps.Index.EnsureLoaded()
	if err != nil {
		writeJSON(w, http.StatusOK, map[string]any{
			"available":   false,
			"backend":     s.deps.Index.Backend().Name(),
			"reason":      err.Error(),
			"queue_depth": s.deps.Orchestrator.QueueDepth(),
		})
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"available":   true,
		"index":       idx.Info(),
		"queue_depth": s.deps.Orchestrator.QueueDepth(),
	})
}

func (s *Server) handleKnowledgeReload(w http.ResponseWriter, r *http.Request) {
	t := s.deps.Tree.Reload()
	s.deps.Engine.Purge()
	writeJSON(w, http.StatusOK, map[string]any{
		"version": s.deps.Tree.Version(),
		"intents": t.Intents(),
		"leaves":  t.Leaves(),
	})
}
