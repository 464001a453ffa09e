package tools

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/firebase/genkit/go/ai"
	"github.com/firebase/genkit/go/genkit"

	"github.com/qametric/qametric/internal/cache"
	"github.com/qametric/qametric/internal/log"
	"github.com/qametric/qametric/internal/qase"
)

// Resource kinds, used as the leading cache key segment and in fallback
// error messages.
const (
	ResourceProjects = "projects"
	ResourceCases    = "cases"
	ResourceRuns     = "runs"
	ResourceResults  = "results"
)

// Tool names as registered with the model.
const (
	ToolGetProjects = "getProjects"
	ToolGetCases    = "getCases"
	ToolGetRuns     = "getRuns"
	ToolGetResults  = "getResults"
)

// QAClient is the external API surface the tools consume. Defined here,
// by the consumer, so tests can substitute a fake without HTTP.
type QAClient interface {
	ListProjects(ctx context.Context, token string, f qase.ProjectFilters) (*qase.Page[qase.Project], error)
	ListCases(ctx context.Context, token, projectCode string, f qase.CaseFilters) (*qase.Page[qase.Case], error)
	ListRuns(ctx context.Context, token, projectCode string, f qase.RunFilters) (*qase.Page[qase.Run], error)
	ListResults(ctx context.Context, token, projectCode string, f qase.ResultFilters) (*qase.Page[qase.Result], error)
}

// TTLs holds the cache lifetime per resource kind.
type TTLs struct {
	Projects time.Duration
	Cases    time.Duration
	Runs     time.Duration
	Results  time.Duration
}

// Kit bundles the four cached data-retrieval tools around one API client
// and one cache store.
type Kit struct {
	qa     QAClient
	store  cache.Store
	ttls   TTLs
	logger log.Logger
}

// NewKit creates a tool kit.
func NewKit(qa QAClient, store cache.Store, ttls TTLs, logger log.Logger) (*Kit, error) {
	if qa == nil {
		return nil, fmt.Errorf("QA client is required")
	}
	if store == nil {
		return nil, fmt.Errorf("cache store is required")
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Kit{qa: qa, store: store, ttls: ttls, logger: logger}, nil
}

// Register defines all retrieval tools on the Genkit instance and returns
// them in a stable order. Each handler is wrapped to emit lifecycle
// events through the context-bound emitter.
func (k *Kit) Register(g *genkit.Genkit) []ai.Tool {
	return []ai.Tool{
		genkit.DefineTool(g, ToolGetProjects,
			"List the QA projects the user has access to. "+
				"Returns project codes, titles, and counts of cases, runs and defects. "+
				"Use this when the user asks which projects exist or to resolve a project name to its code.",
			withEvents(ToolGetProjects, k.handleProjects)),

		genkit.DefineTool(g, ToolGetCases,
			"List test cases in the current project, with optional filters: "+
				"free-text search, severity (blocker/critical/major/normal/minor/trivial), "+
				"priority (high/medium/low), status (actual/draft/deprecated) and pagination. "+
				"Use this for questions about test case inventory, coverage or automation.",
			withEvents(ToolGetCases, k.handleCases)),

		genkit.DefineTool(g, ToolGetRuns,
			"List test runs in the current project, with optional status filter "+
				"(active/complete/abort), start-time range and pagination. "+
				"Each run includes per-status counts and its pass rate. "+
				"Use this for questions about test execution history or run outcomes.",
			withEvents(ToolGetRuns, k.handleRuns)),

		genkit.DefineTool(g, ToolGetResults,
			"List individual test results in the current project, optionally scoped to "+
				"one run, with status filter, end-time range and pagination. "+
				"Includes a grouped-by-status breakdown and a summary with pass rate. "+
				"Use this for questions about failures, flaky cases or detailed run analysis.",
			withEvents(ToolGetResults, k.handleResults)),
	}
}

// withEvents wraps a tool handler to emit lifecycle events around
// execution. When no emitter is bound in context, the handler runs
// untouched.
func withEvents[In, Out any](name string, fn func(*ai.ToolContext, In) (Out, error)) func(*ai.ToolContext, In) (Out, error) {
	return func(ctx *ai.ToolContext, input In) (Out, error) {
		emitter := EmitterFromContext(ctx.Context)
		if emitter != nil {
			emitter.OnToolStart(name)
		}

		result, err := fn(ctx, input)

		if emitter != nil {
			if err != nil {
				emitter.OnToolError(name)
			} else {
				emitter.OnToolComplete(name)
			}
		}
		return result, err
	}
}

// fetchPage runs the shared cache algorithm: look up the raw page under
// key, on a hit return it unfetched, on a miss fetch and write back with
// ttl. A corrupt cached payload falls through to a fresh fetch.
func fetchPage[T any](ctx context.Context, k *Kit, key string, ttl time.Duration, fetch func() (*qase.Page[T], error)) (page *qase.Page[T], cached bool, err error) {
	if raw, ok, getErr := k.store.Get(ctx, key); getErr == nil && ok {
		var cachedPage qase.Page[T]
		if unmarshalErr := json.Unmarshal(raw, &cachedPage); unmarshalErr == nil {
			return &cachedPage, true, nil
		}
		k.logger.Warn("discarding corrupt cache entry", "key", key)
	} else if getErr != nil {
		// A failing cache never blocks retrieval.
		k.logger.Warn("cache read failed", "key", key, "error", getErr)
	}

	page, err = fetch()
	if err != nil {
		return nil, false, err
	}

	if raw, marshalErr := json.Marshal(page); marshalErr == nil {
		if setErr := k.store.Set(ctx, key, raw, ttl); setErr != nil {
			k.logger.Warn("cache write failed", "key", key, "error", setErr)
		}
	}
	return page, false, nil
}

// classifyError maps a client error onto the user-facing message carried
// in a tool result. Auth and API errors surface their own message; every
// other failure collapses to a generic one that leaks no internals.
func classifyError(err error, resource string) string {
	var authErr *qase.AuthError
	if errors.As(err, &authErr) {
		return authErr.Error()
	}
	var apiErr *qase.APIError
	if errors.As(err, &apiErr) {
		return apiErr.Error()
	}
	return "Failed to get " + resource
}
