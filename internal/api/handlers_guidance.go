package api

import (
	"context"
	"errors"
	"net/http"
	"strings"

	"github.com/dgallion1/cmcguide/internal/answer"
	"github.com/dgallion1/cmcguide/internal/engine"
)

type resolveRequest struct {
	Intent  string `json:"intent"`
	Product string `json:"product"`
	Stage   string `json:"stage"`
	Region  string `json:"region"`
}

func (s *Server) handleResolve(w http.ResponseWriter, r *http.Request) {
	var req resolveRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	if strings.TrimSpace(req.Intent) == "" {
		jsonError(w, "intent is required", http.StatusBadRequest)
		return
	}

	block, c := s.deps.Engine.Resolve(req.Intent, req.Product, req.Stage, req.Region)
	writeJSON(w, http.StatusOK, map[string]any{
		"intent":   req.Intent,
		"context":  c,
		"sections": block.Sections,
		"trace":    block.Trace,
		"outcome":  block.Outcome,
	})
}

func (s *Server) handleAsk(w http.ResponseWriter, r *http.Request) {
	var req engine.Request
	if !decodeJSON(w, r, &req, false) {
		return
	}

	resp, err := s.deps.Engine.Ask(r.Context(), req)
	if err != nil {
		s.engineError(w, err)
		return
	}
	writeJSON(w, http.StatusOK, resp)
}

type retrieveRequest struct {
	Query  string   `json:"query"`
	K      int      `json:"k"`
	Lambda *float64 `json:"lambda"`
}

func (s *Server) handleRetrieve(w http.ResponseWriter, r *http.Request) {
	var req retrieveRequest
	if !decodeJSON(w, r, &req, false) {
		return
	}
	lambda := s.cfg.MMRLambda
	if req.Lambda != nil {
		if *req.Lambda < 0 || *req.Lambda > 1 {
			jsonError(w, "lambda must be within [0,1]", http.StatusBadRequest)
			return
		}
		lambda = *req.Lambda
	}
	if req.K < 0 {
		jsonError(w, "k must not be negative", http.StatusBadRequest)
		return
	}

	ans, indexID, err := s.deps.Engine.Retrieve(r.Context(), req.Query, req.K, lambda)
	switch {
	case errors.Is(err, answer.ErrNoMatch):
		writeJSON(w, http.StatusOK, map[string]any{
			"no_match": true,
			"reason":   err.Error(),
			"index_id": indexID,
		})
	case err != nil:
		s.engineError(w, err)
	default:
		writeJSON(w, http.StatusOK, map[string]any{
			"no_match": false,
			"bullets":  ans.Bullets,
			"sources":  ans.Sources,
			"index_id": indexID,
		})
	}
}

func (s *Server) engineError(w http.ResponseWriter, err error) {
	switch {
	case errors.Is(err, engine.ErrEmptyQuery), errors.Is(err, engine.ErrInvalidRequest):
		jsonError(w, err.Error(), http.StatusBadRequest)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		jsonError(w, err.Error(), http.StatusServiceUnavailable)
	default:
		s.log.Error("engine failure", "error", err)
		jsonError(w, "internal error", http.StatusInternalServerError)
	}
}
