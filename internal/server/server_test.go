package server

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/goleak"

	"github.com/qametric/qametric/internal/memory"
)

func TestMain(m *testing.M) {
	goleak.VerifyTestMain(m)
}

func newTestServer(ready func(context.Context) error) *Server {
	return New(Config{
		Sessions: memory.NewSessionStore(20),
		Projects: memory.NewProjectStore(),
		Ready:    ready,
	})
}

func TestLivenessProbe(t *testing.T) {
	s := newTestServer(nil)

	req := httptest.NewRequest(http.MethodGet, "/healthz", nil)
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	assert.Equal(t, http.StatusOK, rec.Code)
	assert.Equal(t, "ok", rec.Body.String())
}

func TestReadinessProbe(t *testing.T) {
	t.Run("ready", func(t *testing.T) {
		s := newTestServer(func(context.Context) error { return nil })
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})

	t.Run("not ready", func(t *testing.T) {
		s := newTestServer(func(context.Context) error { return errors.New("redis down") })
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
	})

	t.Run("nil check always ready", func(t *testing.T) {
		s := newTestServer(nil)
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/readyz", nil))
		assert.Equal(t, http.StatusOK, rec.Code)
	})
}

func TestRecoveryMiddleware(t *testing.T) {
	panicking := http.HandlerFunc(func(http.ResponseWriter, *http.Request) {
		panic("boom")
	})
	s := newTestServer(nil)
	h := chain(panicking, recoveryMiddleware(s.logger), loggingMiddleware(s.logger))

	rec := httptest.NewRecorder()
	require.NotPanics(t, func() {
		h.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/", nil))
	})
	assert.Equal(t, http.StatusInternalServerError, rec.Code)
}

func TestSessionAdmin(t *testing.T) {
	s := newTestServer(nil)
	s.sessions.sessions.Get("u1").AddHumanMessage("hi")
	s.sessions.sessions.Get("u2").AddHumanMessage("hello")

	t.Run("list", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/sessions", nil))
		require.Equal(t, http.StatusOK, rec.Code)
		body := rec.Body.String()
		assert.Contains(t, body, `"total":2`)
		assert.Contains(t, body, "u1")
	})

	t.Run("delete one", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/u1", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)

		rec = httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions/u1", nil))
		assert.Equal(t, http.StatusNotFound, rec.Code)
	})

	t.Run("clear all", func(t *testing.T) {
		rec := httptest.NewRecorder()
		s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/sessions", nil))
		assert.Equal(t, http.StatusNoContent, rec.Code)
		assert.Equal(t, 0, s.sessions.sessions.Count())
	})
}

func TestProjectAdmin(t *testing.T) {
	s := newTestServer(nil)
	s.sessions.projects.Set("u1", "WEB")

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/projects/u1", nil))
	assert.Equal(t, http.StatusNoContent, rec.Code)
	assert.Empty(t, s.sessions.projects.Get("u1"))

	rec = httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodDelete, "/api/projects/u1", nil))
	assert.Equal(t, http.StatusNotFound, rec.Code)
}

func TestAgentInfoUnconfigured(t *testing.T) {
	s := newTestServer(nil)

	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/api/agent", nil))
	assert.Equal(t, http.StatusServiceUnavailable, rec.Code)
}

func TestChatValidation(t *testing.T) {
	s := newTestServer(nil)

	tests := []struct {
		name string
		body string
		want string
	}{
		{"malformed body", "{not json", "invalid request body"},
		{"missing user", `{"token":"t","message":"hi"}`, "userId is required"},
		{"missing token", `{"userId":"u","message":"hi"}`, "token is required"},
		{"missing message", `{"userId":"u","token":"t"}`, "message is required"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/api/chat", strings.NewReader(tt.body))
			rec := httptest.NewRecorder()
			s.Handler().ServeHTTP(rec, req)

			assert.Equal(t, http.StatusBadRequest, rec.Code)
			assert.Contains(t, rec.Body.String(), tt.want)
		})
	}
}

func TestChatStreamValidationEmitsErrorEvent(t *testing.T) {
	s := newTestServer(nil)

	req := httptest.NewRequest(http.MethodPost, "/api/chat/stream", strings.NewReader(`{"userId":"u"}`))
	rec := httptest.NewRecorder()
	s.Handler().ServeHTTP(rec, req)

	body := rec.Body.String()
	assert.Equal(t, "text/event-stream", rec.Header().Get("Content-Type"))
	assert.Contains(t, body, "event: error")
	assert.Contains(t, body, "token is required")
	assert.NotContains(t, body, "event: done")
}
