// Package server exposes the orchestrator over HTTP.
//
// Endpoints:
//
//	POST /api/chat           - blocking chat (JSON request/response)
//	POST /api/chat/stream    - streaming chat (Server-Sent Events)
//	GET  /api/agent          - agent configuration and user state
//	GET  /api/sessions       - list active session ids
//	DELETE /api/sessions     - clear all sessions
//	DELETE /api/sessions/{userId} - delete one session
//	DELETE /api/projects     - clear all project contexts
//	DELETE /api/projects/{userId} - clear one project context
//	GET  /healthz            - liveness probe
//	GET  /readyz             - readiness probe
package server

import (
	"context"
	"net/http"
	"time"

	"github.com/qametric/qametric/internal/agent"
	"github.com/qametric/qametric/internal/log"
	"github.com/qametric/qametric/internal/memory"
	"github.com/qametric/qametric/internal/orchestrator"
)

const (
	// DefaultAddr is the default listen address.
	DefaultAddr = "127.0.0.1:3500"

	// ShutdownTimeout bounds graceful shutdown.
	ShutdownTimeout = 10 * time.Second

	// ReadHeaderTimeout guards against slow-header clients.
	ReadHeaderTimeout = 10 * time.Second

	// ReadTimeout is the maximum duration for reading a request.
	ReadTimeout = 30 * time.Second

	// IdleTimeout applies to keep-alive connections.
	IdleTimeout = 120 * time.Second
)

// Config carries the server's dependencies.
type Config struct {
	Orchestrator *orchestrator.Orchestrator
	Agent        *agent.Agent
	Sessions     *memory.SessionStore
	Projects     *memory.ProjectStore
	Logger       log.Logger

	// Ready reports whether downstream dependencies are reachable.
	// Nil means always ready.
	Ready func(ctx context.Context) error
}

// Server is the HTTP front for the orchestration engine.
type Server struct {
	mux    *http.ServeMux
	logger log.Logger

	health   *HealthHandler
	chat     *ChatHandler
	sessions *SessionHandler
}

// New creates a server with all routes registered.
func New(cfg Config) *Server {
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	mux := http.NewServeMux()
	s := &Server{
		mux:      mux,
		logger:   logger,
		health:   NewHealthHandler(cfg.Ready, logger),
		chat:     NewChatHandler(cfg.Orchestrator, logger),
		sessions: NewSessionHandler(cfg.Sessions, cfg.Projects, cfg.Agent, logger),
	}

	s.health.RegisterRoutes(mux)
	s.chat.RegisterRoutes(mux)
	s.sessions.RegisterRoutes(mux)
	return s
}

// Handler returns the mux with middleware applied.
// Order: recovery outermost, then request logging.
func (s *Server) Handler() http.Handler {
	return chain(s.mux,
		recoveryMiddleware(s.logger),
		loggingMiddleware(s.logger),
	)
}

// Run serves until ctx is cancelled, then shuts down gracefully.
// WriteTimeout stays unset so SSE streams are not cut mid-response.
func (s *Server) Run(ctx context.Context, addr string) error {
	if addr == "" {
		addr = DefaultAddr
	}

	srv := &http.Server{
		Addr:              addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: ReadHeaderTimeout,
		ReadTimeout:       ReadTimeout,
		IdleTimeout:       IdleTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		s.logger.Info("starting HTTP server", "addr", addr)
		errCh <- srv.ListenAndServe()
	}()

	select {
	case <-ctx.Done():
		s.logger.Info("shutting down HTTP server")
		shutdownCtx, cancel := context.WithTimeout(context.Background(), ShutdownTimeout)
		defer cancel()
		return srv.Shutdown(shutdownCtx)
	case err := <-errCh:
		if err == http.ErrServerClosed {
			return nil
		}
		return err
	}
}
