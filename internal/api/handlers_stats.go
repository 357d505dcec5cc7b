package api

import "net/http"

func (s *Server) handleLatencyStats(w http.ResponseWriter, r *http.Request) {
	if s.deps.Latency == nil {
		jsonError(w, "latency stats unavailable", http.StatusServiceUnavailable)
		return
	}
	writeJSON(w, http.StatusOK, map[string]any{
		"stats":         s.deps.Latency.Snapshot(),
		"cache_entries": s.deps.Engine.CacheLen(),
	})
}
