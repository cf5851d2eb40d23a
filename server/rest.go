package server

import (
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"
)

// statusHandler returns server status
func (s *Server) statusHandler(w http.ResponseWriter, r *http.Request) {
	status := map[string]interface{}{
		"status":  "ok",
		"version": s.version,
		"time":    time.Now().UTC(),
	}
	renderJSON(w, r, http.StatusOK, status)
}

// stateHandler returns the consolidated settings snapshot
func (s *Server) stateHandler(w http.ResponseWriter, r *http.Request) {
	state := s.svc.BuildState(r.Context())
	renderJSON(w, r, http.StatusOK, state)
}

// loadHandler triggers a configuration load and returns its result
func (s *Server) loadHandler(w http.ResponseWriter, r *http.Request) {
	result := s.svc.LoadConfiguration(r.Context())
	renderJSON(w, r, http.StatusOK, result)
}

// refreshHandler clears pending state and reloads from the source
func (s *Server) refreshHandler(w http.ResponseWriter, r *http.Request) {
	result := s.svc.RefreshConfiguration(r.Context())
	renderJSON(w, r, http.StatusOK, result)
}

// checkHandler runs one remote update check
func (s *Server) checkHandler(w http.ResponseWriter, r *http.Request) {
	changed, err := s.svc.CheckForRemoteUpdates(r.Context())
	if err != nil {
		log.Printf("[WARN] remote check failed: %v", err)
		renderError(w, r, err, http.StatusBadGateway)
		return
	}
	renderJSON(w, r, http.StatusOK, map[string]bool{"updateAvailable": changed})
}

// markSeenHandler records a list of keys as seen
func (s *Server) markSeenHandler(w http.ResponseWriter, r *http.Request) {
	var req struct {
		Keys []string `json:"keys"`
	}
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		renderError(w, r, fmt.Errorf("invalid request body"), http.StatusBadRequest)
		return
	}
	if len(req.Keys) == 0 {
		renderError(w, r, fmt.Errorf("keys are required"), http.StatusBadRequest)
		return
	}

	s.svc.MarkSeen(r.Context(), req.Keys)
	renderJSON(w, r, http.StatusOK, map[string]int{"marked": len(req.Keys)})
}

// markAllSeenHandler records every loaded setting as seen
func (s *Server) markAllSeenHandler(w http.ResponseWriter, r *http.Request) {
	s.svc.MarkAllSeen(r.Context())
	renderJSON(w, r, http.StatusOK, map[string]string{"status": "ok"})
}

// renderJSON sends JSON response
func renderJSON(w http.ResponseWriter, _ *http.Request, code int, data interface{}) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	if data != nil {
		if err := json.NewEncoder(w).Encode(data); err != nil {
			log.Printf("[ERROR] can't encode response to JSON: %v", err)
		}
	}
}

// renderError sends an error response in JSON format
func renderError(w http.ResponseWriter, r *http.Request, err error, code int) {
	renderJSON(w, r, code, map[string]string{"error": err.Error()})
}
