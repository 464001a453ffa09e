// Package agent runs the tool-calling conversation loop: it binds a
// user's request scope and event emitter into context, hands the model
// the retrieval tools, and tracks which tools each turn used.
package agent

import (
	"context"
	"errors"
	"strings"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"
	"golang.org/x/time/rate"

	"github.com/qametric/qametric/internal/log"
	"github.com/qametric/qametric/internal/memory"
	"github.com/qametric/qametric/internal/tools"
)

// FallbackResponse is returned when the model produces an empty response
// with no tool activity.
const FallbackResponse = "I apologize, but I couldn't generate a response. Please try rephrasing your question."

const systemPrompt = `You are a QA metrics assistant. You answer questions about
test projects, test cases, test runs and test results using the provided tools.

Rules:
- Always fetch data through the tools; never invent numbers.
- When a tool result has "success": false, explain the error to the user
  plainly instead of retrying.
- Quote pass rates exactly as the tools report them.
- Keep answers concise and oriented around the metrics the user asked for.`

// Request is one conversational turn for one user. ProjectCode is the
// project resolved for this turn; it may differ from the persisted
// project context when the message names a project inline.
type Request struct {
	UserID      string
	Token       string
	ProjectCode string
	Message     string
}

// Response is the completed result of one turn.
type Response struct {
	Output    string
	ToolsUsed []string
	Duration  time.Duration
}

// StreamCallbacks receive incremental events during a streaming turn.
// Nil fields are skipped. OnToolEnd fires for both successful and failed
// tool executions, always after the matching OnToolStart.
type StreamCallbacks struct {
	OnToken     func(token string)
	OnToolStart func(name string)
	OnToolEnd   func(name string)
}

// Info describes the agent's fixed configuration plus one user's
// current conversational state.
type Info struct {
	Model        string   `json:"model"`
	UserID       string   `json:"userId"`
	MaxTurns     int      `json:"maxTurns"`
	ToolsCount   int      `json:"toolsCount"`
	Tools        []string `json:"tools"`
	ProjectCode  string   `json:"projectCode,omitempty"`
	HistoryCount int      `json:"historyCount"`
}

// Config carries the agent's dependencies.
type Config struct {
	Genkit   *genkit.Genkit
	Tools    []ai.Tool
	Sessions *memory.SessionStore
	Projects *memory.ProjectStore
	Logger   log.Logger

	ModelName string
	MaxTurns  int

	// RateLimiter throttles LLM calls. Nil enables the default
	// (2 requests/sec sustained, burst of 5).
	RateLimiter *rate.Limiter
}

func (cfg Config) validate() error {
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if len(cfg.Tools) == 0 {
		return errors.New("at least one tool is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Projects == nil {
		return errors.New("project store is required")
	}
	if cfg.ModelName == "" {
		return errors.New("model name is required")
	}
	return nil
}

// Agent is the tool-calling conversational core. It is stateless per
// request; all per-user state lives in the injected stores, so one Agent
// serves every user concurrently.
type Agent struct {
	g        *genkit.Genkit
	tools    []ai.Tool
	toolRefs []ai.ToolRef
	names    []string

	sessions *memory.SessionStore
	projects *memory.ProjectStore
	logger   log.Logger

	modelName string
	maxTurns  int
	limiter   *rate.Limiter
}

// New creates an Agent from pre-registered tools.
func New(cfg Config) (*Agent, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}

	maxTurns := cfg.MaxTurns
	if maxTurns <= 0 {
		maxTurns = 5
	}
	limiter := cfg.RateLimiter
	if limiter == nil {
		limiter = rate.NewLimiter(2, 5)
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}

	// Cache refs and names at construction.
	toolRefs := make([]ai.ToolRef, len(cfg.Tools))
	names := make([]string, len(cfg.Tools))
	for i, t := range cfg.Tools {
		toolRefs[i] = t
		names[i] = t.Name()
	}

	a := &Agent{
		g:         cfg.Genkit,
		tools:     cfg.Tools,
		toolRefs:  toolRefs,
		names:     names,
		sessions:  cfg.Sessions,
		projects:  cfg.Projects,
		logger:    logger,
		modelName: cfg.ModelName,
		maxTurns:  maxTurns,
		limiter:   limiter,
	}

	a.logger.Info("agent initialized",
		"model", a.modelName,
		"tools", strings.Join(names, ","),
		"max_turns", a.maxTurns)
	return a, nil
}

// Chat runs one non-streaming turn.
func (a *Agent) Chat(ctx context.Context, req Request) (*Response, error) {
	return a.ChatStream(ctx, req, StreamCallbacks{})
}

// ChatStream runs one turn, delivering tokens and tool lifecycle events
// through callbacks as they occur. The full response is returned once
// generation completes; history is updated only on success.
func (a *Agent) ChatStream(ctx context.Context, req Request, callbacks StreamCallbacks) (*Response, error) {
	start := time.Now()

	if err := a.limiter.Wait(ctx); err != nil {
		return nil, err
	}

	conv := a.sessions.Get(req.UserID)

	// Bind the request scope and a recording emitter. The recorder
	// captures tool usage order; the wrapped funcs relay lifecycle
	// events outward.
	recorder := tools.NewRecorder(tools.EmitterFuncs{
		Start:    callbacks.OnToolStart,
		Complete: callbacks.OnToolEnd,
		Error:    callbacks.OnToolEnd,
	})
	ctx = tools.ContextWithScope(ctx, tools.Scope{
		Token:       req.Token,
		UserID:      req.UserID,
		ProjectCode: req.ProjectCode,
	})
	ctx = tools.ContextWithEmitter(ctx, recorder)

	messages := historyMessages(conv)
	messages = append(messages, ai.NewUserMessage(ai.NewTextPart(req.Message)))

	opts := []ai.GenerateOption{
		ai.WithModelName(a.modelName),
		ai.WithSystem(systemPrompt),
		ai.WithMessages(messages...),
		ai.WithTools(a.toolRefs...),
		ai.WithMaxTurns(a.maxTurns),
	}
	if callbacks.OnToken != nil {
		opts = append(opts, ai.WithStreaming(func(_ context.Context, chunk *ai.ModelResponseChunk) error {
			if text := chunk.Text(); text != "" {
				callbacks.OnToken(text)
			}
			return nil
		}))
	}

	resp, err := genkit.Generate(ctx, a.g, opts...)
	if err != nil {
		a.logger.Warn("generation failed",
			"user_id", req.UserID, "project", req.ProjectCode, "error", err)
		return nil, err
	}

	output := resp.Text()
	if strings.TrimSpace(output) == "" && len(resp.ToolRequests()) == 0 {
		a.logger.Warn("model returned empty response", "user_id", req.UserID)
		output = FallbackResponse
	}

	conv.AddHumanMessage(req.Message)
	conv.AddAIMessage(output)

	return &Response{
		Output:    output,
		ToolsUsed: recorder.Used(),
		Duration:  time.Since(start),
	}, nil
}

// SetProject persists the user's active project context.
func (a *Agent) SetProject(userID, projectCode string) {
	a.projects.Set(userID, projectCode)
}

// Project returns the user's persisted project context, or "" when none
// is set.
func (a *Agent) Project(userID string) string {
	return a.projects.Get(userID)
}

// ClearHistory wipes the user's conversation memory. The project
// context survives; only messages are dropped.
func (a *Agent) ClearHistory(userID string) {
	if a.sessions.Has(userID) {
		a.sessions.Get(userID).Clear()
	}
}

// Describe reports the agent's configuration and the user's current
// state.
func (a *Agent) Describe(userID string) Info {
	names := make([]string, len(a.names))
	copy(names, a.names)

	count := 0
	if a.sessions.Has(userID) {
		count = a.sessions.Get(userID).Count()
	}
	return Info{
		Model:        a.modelName,
		UserID:       userID,
		MaxTurns:     a.maxTurns,
		ToolsCount:   len(names),
		Tools:        names,
		ProjectCode:  a.projects.Get(userID),
		HistoryCount: count,
	}
}

// historyMessages converts stored conversation memory into model
// messages. Fresh message values are built each call so concurrent
// generations never share mutable content.
func historyMessages(conv *memory.Conversation) []*ai.Message {
	stored := conv.Messages()
	out := make([]*ai.Message, 0, len(stored)+1)
	for _, m := range stored {
		switch m.Role {
		case memory.RoleHuman:
			out = append(out, ai.NewUserMessage(ai.NewTextPart(m.Content)))
		case memory.RoleAI:
			out = append(out, ai.NewModelMessage(ai.NewTextPart(m.Content)))
		}
	}
	return out
}
