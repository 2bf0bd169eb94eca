package api

import "net/http"

// handleSweepSessions removes every expired session now.
func (s *Server) handleSweepSessions(w http.ResponseWriter, _ *http.Request) {
	removed := s.sessions.Sweep()
	s.stats.SessionsSwept(removed)

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data": map[string]int{
			"removed": removed,
			"active":  s.sessions.Count(),
		},
	})
}

// handleSessionStats returns the auth counters and active session count.
func (s *Server) handleSessionStats(w http.ResponseWriter, _ *http.Request) {
	snap := s.stats.Snapshot()
	snap.ActiveSessions = int64(s.sessions.Count())

	writeJSON(w, http.StatusOK, map[string]any{
		"success": true,
		"data":    snap,
	})
}
