package server

import (
	"encoding/json"
	"fmt"
	"net/http"

	"github.com/google/uuid"

	"github.com/qametric/qametric/internal/log"
	"github.com/qametric/qametric/internal/orchestrator"
)

// MaxMessageLength bounds the size of one chat message.
const MaxMessageLength = 8000

// ChatHandler serves the blocking and streaming chat endpoints.
type ChatHandler struct {
	orch   *orchestrator.Orchestrator
	logger log.Logger
}

// NewChatHandler creates a chat handler.
func NewChatHandler(orch *orchestrator.Orchestrator, logger log.Logger) *ChatHandler {
	return &ChatHandler{orch: orch, logger: logger}
}

// RegisterRoutes registers chat routes on the given mux.
func (h *ChatHandler) RegisterRoutes(mux *http.ServeMux) {
	mux.HandleFunc("POST /api/chat", h.handleChat)
	mux.HandleFunc("POST /api/chat/stream", h.handleStream)
}

// ChatRequest is the request body for both chat endpoints.
type ChatRequest struct {
	UserID      string `json:"userId"`
	Token       string `json:"token"`
	Message     string `json:"message"`
	ProjectCode string `json:"projectCode,omitempty"`
	Verbose     bool   `json:"verbose,omitempty"`
}

func (req *ChatRequest) validate() string {
	if req.UserID == "" {
		return "userId is required"
	}
	if req.Token == "" {
		return "token is required"
	}
	if req.Message == "" {
		return "message is required"
	}
	if len(req.Message) > MaxMessageLength {
		return fmt.Sprintf("message too long (max %d characters)", MaxMessageLength)
	}
	return ""
}

// handleChat runs one blocking request and returns the full result.
func (h *ChatHandler) handleChat(w http.ResponseWriter, r *http.Request) {
	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", "invalid request body")
		return
	}
	if msg := req.validate(); msg != "" {
		writeError(w, h.logger, http.StatusBadRequest, "INVALID_REQUEST", msg)
		return
	}

	res := h.orch.Ask(r.Context(), orchestrator.Request{
		UserID:      req.UserID,
		Token:       req.Token,
		Message:     req.Message,
		ProjectCode: req.ProjectCode,
		Verbose:     req.Verbose,
	})
	writeJSON(w, h.logger, http.StatusOK, res)
}

// Data payloads for SSE events. Every event carries the request-scoped
// message id so clients can correlate frames.
type (
	tokenData struct {
		ID   string `json:"id"`
		Text string `json:"text"`
	}
	toolData struct {
		ID   string `json:"id"`
		Name string `json:"name"`
	}
	errorData struct {
		ID      string `json:"id"`
		Message string `json:"message"`
	}
	doneData struct {
		ID     string               `json:"id"`
		Result *orchestrator.Result `json:"result"`
	}
)

// handleStream runs one request over Server-Sent Events.
//
// Event types:
//   - token:      partial answer text {"id", "text"}
//   - tool_start: a retrieval tool began {"id", "name"}
//   - tool_end:   a retrieval tool finished {"id", "name"}
//   - error:      terminal failure {"id", "message"}
//   - done:       terminal success {"id", "result"}
func (h *ChatHandler) handleStream(w http.ResponseWriter, r *http.Request) {
	flusher, ok := w.(http.Flusher)
	if !ok {
		h.logger.Error("streaming not supported")
		http.Error(w, "streaming not supported", http.StatusInternalServerError)
		return
	}

	w.Header().Set("Content-Type", "text/event-stream")
	w.Header().Set("Cache-Control", "no-cache")
	w.Header().Set("Connection", "keep-alive")
	w.Header().Set("X-Accel-Buffering", "no")

	msgID := uuid.NewString()
	writeEvent := func(event string, data any) {
		payload, err := json.Marshal(data)
		if err != nil {
			h.logger.Error("failed to encode SSE payload", "error", err)
			return
		}
		fmt.Fprintf(w, "event: %s\ndata: %s\n\n", event, payload)
		flusher.Flush()
	}

	var req ChatRequest
	if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
		writeEvent("error", errorData{ID: msgID, Message: "invalid request body"})
		return
	}
	if msg := req.validate(); msg != "" {
		writeEvent("error", errorData{ID: msgID, Message: msg})
		return
	}

	h.logger.Debug("SSE stream started", "user_id", req.UserID, "message_id", msgID)

	h.orch.AskStream(r.Context(), orchestrator.Request{
		UserID:      req.UserID,
		Token:       req.Token,
		Message:     req.Message,
		ProjectCode: req.ProjectCode,
		Verbose:     req.Verbose,
	}, orchestrator.StreamCallbacks{
		OnToken: func(text string) {
			writeEvent("token", tokenData{ID: msgID, Text: text})
		},
		OnToolStart: func(name string) {
			writeEvent("tool_start", toolData{ID: msgID, Name: name})
		},
		OnToolEnd: func(name string) {
			writeEvent("tool_end", toolData{ID: msgID, Name: name})
		},
		OnError: func(message string) {
			writeEvent("error", errorData{ID: msgID, Message: message})
		},
		OnDone: func(result *orchestrator.Result) {
			writeEvent("done", doneData{ID: msgID, Result: result})
		},
	})

	h.logger.Debug("SSE stream finished", "user_id", req.UserID, "message_id", msgID)
}
