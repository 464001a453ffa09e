package server

import (
	"net/http"

	"github.com/qametric/qametric/internal/agent"
	"github.com/qametric/qametric/internal/log"
	"github.com/qametric/qametric/internal/memory"
)

// SessionHandler serves the admin operations on the in-process stores:
// listing and clearing conversation sessions and project contexts, and
// agent introspection.
type SessionHandler struct {
	sessions *memory.SessionStore
	projects *memory.ProjectStore
	agent    *agent.Agent
	logger   log.Logger
}

// NewSessionHandler creates a session admin handler.
func NewSessionHandler(sessions *memory.SessionStore, projects *memory.ProjectStore, ag *agent.Agent, logger log.Logger) *SessionHandler {
	return &SessionHandler{sessions: sessions, projects: projects, agent: ag, logger: logger}
}

// RegisterRoutes registers admin routes on the given mux.
func (h *SessionHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("GET /api/sessions", h.list)
	mux.HandleFunc("DELETE /api/sessions", h.clearAll)
	mux.HandleFunc("DELETE /api/sessions/{userId}", h.deleteOne)
	mux.HandleFunc("DELETE /api/projects", h.clearAllProjects)
	mux.HandleFunc("DELETE /api/projects/{userId}", h.clearProject)
	mux.HandleFunc("GET /api/agent", h.agentInfo)
}

func (h *SessionHandler) list(w http.ResponseWriter, _ *http.Request) {
	writeJSON(w, h.logger, http.StatusOK, map[string]any{
		"sessions": h.sessions.IDs(),
		"total":    h.sessions.Count(),
	})
}

func (h *SessionHandler) clearAll(w http.ResponseWriter, _ *http.Request) {
	h.sessions.ClearAll()
	h.logger.Info("all sessions cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) deleteOne(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !h.sessions.Delete(userID) {
		writeError(w, h.logger, http.StatusNotFound, "NOT_FOUND", "no session for user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) clearAllProjects(w http.ResponseWriter, _ *http.Request) {
	h.projects.ClearAll()
	h.logger.Info("all project contexts cleared")
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) clearProject(w http.ResponseWriter, r *http.Request) {
	userID := r.PathValue("userId")
	if !h.projects.Clear(userID) {
		writeError(w, h.logger, http.StatusNotFound, "NOT_FOUND", "no project context for user")
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

func (h *SessionHandler) agentInfo(w http.ResponseWriter, r *http.Request) {
	if h.agent == nil {
		writeError(w, h.logger, http.StatusServiceUnavailable, "UNAVAILABLE", "agent not configured")
		return
	}
	userID := r.URL.Query().Get("userId")
	writeJSON(w, h.logger, http.StatusOK, h.agent.Describe(userID))
}
