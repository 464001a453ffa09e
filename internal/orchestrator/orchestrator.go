// Package orchestrator is the top-level state machine behind every chat
// request: classify the intent, resolve which project the question
// scopes to, invoke the agent, and assemble the result - optionally
// delivered incrementally through streaming callbacks.
package orchestrator

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/firebase/genkit/go/genkit"
	"github.com/google/uuid"

	"github.com/qametric/qametric/internal/agent"
	"github.com/qametric/qametric/internal/log"
	"github.com/qametric/qametric/internal/memory"
	"github.com/qametric/qametric/internal/qase"
	"github.com/qametric/qametric/internal/tools"
)

// Request is one user question entering the state machine. ProjectCode
// optionally pre-resolves the project, bypassing both the stored context
// and the listing flow.
type Request struct {
	UserID      string
	Token       string
	Message     string
	ProjectCode string
	Verbose     bool
}

// ProjectChoice is one candidate offered when the user must pick a
// project.
type ProjectChoice struct {
	Code  string `json:"code"`
	Title string `json:"title"`
}

// Result is the terminal output of one request. Projects is populated
// exactly when NeedsProjectSelection is true.
type Result struct {
	Response              string          `json:"response"`
	NeedsProjectSelection bool            `json:"needsProjectSelection"`
	Projects              []ProjectChoice `json:"projects,omitempty"`
	ToolsUsed             []string        `json:"toolsUsed"`
	Duration              time.Duration   `json:"-"`
}

// MarshalJSON serializes the elapsed time as whole milliseconds, the
// unit the durationMs key promises.
func (r *Result) MarshalJSON() ([]byte, error) {
	type alias Result
	return json.Marshal(struct {
		*alias
		DurationMs int64 `json:"durationMs"`
	}{(*alias)(r), r.Duration.Milliseconds()})
}

// StreamCallbacks receive the incremental view of one request. Exactly
// one of OnDone or OnError fires, always last. Nil fields are skipped.
type StreamCallbacks struct {
	OnToken     func(token string)
	OnToolStart func(name string)
	OnToolEnd   func(name string)
	OnError     func(message string)
	OnDone      func(result *Result)
}

// Config carries the orchestrator's dependencies.
type Config struct {
	Agent    *agent.Agent
	Kit      *tools.Kit
	Genkit   *genkit.Genkit
	Sessions *memory.SessionStore
	Projects *memory.ProjectStore
	Logger   log.Logger

	// ModelName is the classifier model. Empty uses the Genkit default.
	ModelName string
}

func (cfg Config) validate() error {
	if cfg.Agent == nil {
		return errors.New("agent is required")
	}
	if cfg.Kit == nil {
		return errors.New("tool kit is required")
	}
	if cfg.Genkit == nil {
		return errors.New("genkit instance is required")
	}
	if cfg.Sessions == nil {
		return errors.New("session store is required")
	}
	if cfg.Projects == nil {
		return errors.New("project store is required")
	}
	return nil
}

// Orchestrator routes questions through classification, project
// resolution and the agent. Safe for concurrent use; per-user state
// lives in the injected stores.
type Orchestrator struct {
	agent     *agent.Agent
	kit       *tools.Kit
	g         *genkit.Genkit
	sessions  *memory.SessionStore
	projects  *memory.ProjectStore
	logger    log.Logger
	modelName string
}

// New creates an Orchestrator.
func New(cfg Config) (*Orchestrator, error) {
	if err := cfg.validate(); err != nil {
		return nil, err
	}
	logger := cfg.Logger
	if logger == nil {
		logger = log.NewNop()
	}
	return &Orchestrator{
		agent:     cfg.Agent,
		kit:       cfg.Kit,
		g:         cfg.Genkit,
		sessions:  cfg.Sessions,
		projects:  cfg.Projects,
		logger:    logger,
		modelName: cfg.ModelName,
	}, nil
}

// Ask runs one blocking request. Failures from the model layer are
// translated into user-facing text; Ask never surfaces raw internals.
func (o *Orchestrator) Ask(ctx context.Context, req Request) *Result {
	start := time.Now()
	res, err := o.run(ctx, req, agent.StreamCallbacks{})
	if err != nil {
		return &Result{
			Response:  userMessage(err),
			ToolsUsed: []string{},
			Duration:  time.Since(start),
		}
	}
	return res
}

// AskStream runs one request, delivering tokens and tool events as they
// occur. The terminal callback is OnDone on success (including the
// needs-project-selection outcome) or OnError on failure, never both.
func (o *Orchestrator) AskStream(ctx context.Context, req Request, cb StreamCallbacks) {
	res, err := o.run(ctx, req, agent.StreamCallbacks{
		OnToken:     cb.OnToken,
		OnToolStart: cb.OnToolStart,
		OnToolEnd:   cb.OnToolEnd,
	})
	if err != nil {
		if cb.OnError != nil {
			cb.OnError(userMessage(err))
		}
		return
	}
	if cb.OnDone != nil {
		cb.OnDone(res)
	}
}

// run is the state machine shared by both entry points.
func (o *Orchestrator) run(ctx context.Context, req Request, callbacks agent.StreamCallbacks) (*Result, error) {
	start := time.Now()
	reqID := uuid.NewString()
	if req.Verbose {
		o.logger.Info("request started",
			"request_id", reqID, "user_id", req.UserID, "message_length", len(req.Message))
	}

	// ClassifyIntent. A classification failure downgrades to the
	// broadest intent instead of failing the whole request.
	history := o.sessions.Get(req.UserID).Messages()
	cls, err := classifyIntent(ctx, o.g, o.modelName, req.Message, history)
	if err != nil {
		o.logger.Warn("intent classification failed, assuming data query",
			"request_id", reqID, "error", err)
		cls = &Classification{Intent: IntentQueryData}
	}

	// ResolveProject. A tool failure here already carries user-facing
	// text and terminates the request through the error path.
	rp := o.resolveProject(ctx, req, cls)
	if rp.errMsg != "" {
		return nil, &toolFailure{msg: rp.errMsg}
	}
	if rp.needsSelection {
		return &Result{
			Response:              selectionPrompt(rp.candidates),
			NeedsProjectSelection: true,
			Projects:              rp.candidates,
			ToolsUsed:             rp.toolsUsed,
			Duration:              time.Since(start),
		}, nil
	}

	// Invoke.
	resp, err := o.agent.ChatStream(ctx, agent.Request{
		UserID:      req.UserID,
		Token:       req.Token,
		ProjectCode: rp.code,
		Message:     req.Message,
	}, callbacks)
	if err != nil {
		o.logger.Warn("agent invocation failed",
			"request_id", reqID, "user_id", req.UserID, "error", err)
		return nil, err
	}

	// Synthesize.
	toolsUsed := append(rp.toolsUsed, resp.ToolsUsed...)
	if toolsUsed == nil {
		toolsUsed = []string{}
	}
	res := &Result{
		Response:  resp.Output,
		ToolsUsed: toolsUsed,
		Duration:  time.Since(start),
	}
	if req.Verbose {
		o.logger.Info("request finished",
			"request_id", reqID, "user_id", req.UserID,
			"intent", cls.Intent, "project", rp.code,
			"tools_used", strings.Join(toolsUsed, ","),
			"duration", res.Duration)
	}
	return res, nil
}

// resolution is the outcome of the ResolveProject state.
type resolution struct {
	code           string
	needsSelection bool
	candidates     []ProjectChoice
	toolsUsed      []string
	errMsg         string
}

// resolveProject determines which project the question scopes to.
// Precedence: literal in-message code (turn only, persisted on an
// explicit change_project), caller-supplied code, stored context, then
// the listing flow: one project auto-selects and persists, several ask
// the user, none falls through unscoped for project-agnostic intents.
func (o *Orchestrator) resolveProject(ctx context.Context, req Request, cls *Classification) resolution {
	if cls.ProjectCode != "" {
		if cls.Intent == IntentChangeProject {
			o.projects.Set(req.UserID, cls.ProjectCode)
		}
		return resolution{code: cls.ProjectCode, toolsUsed: []string{}}
	}
	if req.ProjectCode != "" {
		return resolution{code: req.ProjectCode, toolsUsed: []string{}}
	}
	if stored := o.projects.Get(req.UserID); stored != "" {
		return resolution{code: stored, toolsUsed: []string{}}
	}

	out := o.kit.FetchProjects(ctx, tools.Scope{Token: req.Token, UserID: req.UserID}, qase.ProjectFilters{})
	used := []string{tools.ToolGetProjects}
	if !out.Success {
		return resolution{toolsUsed: used, errMsg: out.Error}
	}

	switch len(out.Projects) {
	case 0:
		return resolution{toolsUsed: used}
	case 1:
		p := out.Projects[0]
		o.projects.Set(req.UserID, p.Code)
		return resolution{code: p.Code, toolsUsed: used}
	default:
		candidates := make([]ProjectChoice, 0, len(out.Projects))
		for _, p := range out.Projects {
			candidates = append(candidates, ProjectChoice{Code: p.Code, Title: p.Title})
		}
		return resolution{needsSelection: true, candidates: candidates, toolsUsed: used}
	}
}

func selectionPrompt(candidates []ProjectChoice) string {
	var b strings.Builder
	fmt.Fprintf(&b, "You have access to %d projects. Which one should I use?\n", len(candidates))
	for _, c := range candidates {
		fmt.Fprintf(&b, "- %s: %s\n", c.Code, c.Title)
	}
	b.WriteString("Reply with the project code.")
	return b.String()
}
