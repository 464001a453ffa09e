package tools

import (
	"context"

	"github.com/firebase/genkit/go/ai"

	"github.com/qametric/qametric/internal/cache"
	"github.com/qametric/qametric/internal/qase"
)

// RunStatsDTO carries per-status counts for one run.
type RunStatsDTO struct {
	Total      int `json:"total"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Blocked    int `json:"blocked"`
	Skipped    int `json:"skipped"`
	InProgress int `json:"in_progress"`
	Invalid    int `json:"invalid"`
	Untested   int `json:"untested"`
}

// RunDTO is the normalized test run shape, including the derived pass
// rate over the run's own stats.
type RunDTO struct {
	ID        int64       `json:"id"`
	Title     string      `json:"title"`
	Status    string      `json:"status"`
	StartTime string      `json:"startTime,omitempty"`
	EndTime   string      `json:"endTime,omitempty"`
	Stats     RunStatsDTO `json:"stats"`
	PassRate  float64     `json:"passRate"`
}

// RunsResult is the outcome of one runs retrieval.
type RunsResult struct {
	Success bool     `json:"success"`
	Cached  bool     `json:"cached"`
	Error   string   `json:"error,omitempty"`
	Total   int      `json:"total"`
	Runs    []RunDTO `json:"runs"`
}

// RunsInput is the model-facing filter schema for getRuns.
type RunsInput struct {
	Status    string `json:"status,omitempty" jsonschema:"description=Filter by run status: active complete or abort"`
	FromStart string `json:"fromStart,omitempty" jsonschema:"description=Only runs started at or after this time (RFC 3339 or YYYY-MM-DD)"`
	ToStart   string `json:"toStart,omitempty" jsonschema:"description=Only runs started at or before this time (RFC 3339 or YYYY-MM-DD)"`
	Limit     int    `json:"limit,omitempty" jsonschema:"description=Maximum number of runs to return"`
	Offset    int    `json:"offset,omitempty" jsonschema:"description=Number of runs to skip for pagination"`
}

// FetchRuns retrieves test runs for the scope's project, serving from
// cache when an identical filter set was fetched within the runs TTL.
func (k *Kit) FetchRuns(ctx context.Context, scope Scope, f qase.RunFilters) RunsResult {
	filters := map[string]any{}
	if f.Limit > 0 {
		filters["limit"] = f.Limit
	}
	if f.Offset > 0 {
		filters["offset"] = f.Offset
	}
	if f.Status != "" {
		filters["status"] = f.Status
	}
	if f.FromStart != "" {
		filters["from_start"] = f.FromStart
	}
	if f.ToStart != "" {
		filters["to_start"] = f.ToStart
	}

	key := cache.Key(ResourceRuns, scope.UserID, scope.ProjectCode, cache.Fingerprint(filters))
	page, cached, err := fetchPage(ctx, k, key, k.ttls.Runs, func() (*qase.Page[qase.Run], error) {
		return k.qa.ListRuns(ctx, scope.Token, scope.ProjectCode, f)
	})
	if err != nil {
		k.logger.Warn("runs retrieval failed",
			"user_id", scope.UserID, "project", scope.ProjectCode, "error", err)
		return RunsResult{Error: classifyError(err, ResourceRuns), Runs: []RunDTO{}}
	}

	runs := make([]RunDTO, 0, len(page.Entities))
	for _, r := range page.Entities {
		runs = append(runs, RunDTO{
			ID:        r.ID,
			Title:     r.Title,
			Status:    RunStatusLabel(r.Status),
			StartTime: r.StartTime,
			EndTime:   r.EndTime,
			Stats: RunStatsDTO{
				Total:      r.Stats.Total,
				Passed:     r.Stats.Passed,
				Failed:     r.Stats.Failed,
				Blocked:    r.Stats.Blocked,
				Skipped:    r.Stats.Skipped,
				InProgress: r.Stats.InProgress,
				Invalid:    r.Stats.Invalid,
				Untested:   r.Stats.Untested,
			},
			PassRate: PassRate(r.Stats.Passed, r.Stats.Total),
		})
	}

	return RunsResult{
		Success: true,
		Cached:  cached,
		Total:   page.Total,
		Runs:    runs,
	}
}

// handleRuns is the Genkit tool handler for getRuns.
func (k *Kit) handleRuns(ctx *ai.ToolContext, input RunsInput) (RunsResult, error) {
	scope := ScopeFromContext(ctx.Context)
	return k.FetchRuns(ctx.Context, scope, qase.RunFilters{
		Limit:     input.Limit,
		Offset:    input.Offset,
		Status:    input.Status,
		FromStart: input.FromStart,
		ToStart:   input.ToStart,
	}), nil
}
