package tools

import (
	"context"
	"fmt"
	"strconv"

	"github.com/firebase/genkit/go/ai"

	"github.com/qametric/qametric/internal/cache"
	"github.com/qametric/qametric/internal/qase"
)

// ResultStepDTO is one executed step inside a normalized result.
type ResultStepDTO struct {
	Position int    `json:"position"`
	Status   string `json:"status"`
	Comment  string `json:"comment,omitempty"`
}

// ResultCaseDTO is the expanded case info attached to a result.
type ResultCaseDTO struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// ResultDTO is the normalized test result shape. Case is null when the
// API did not expand case info; CaseTitle then falls back to
// "Case #<id>".
type ResultDTO struct {
	Hash        string          `json:"hash"`
	CaseID      int64           `json:"caseId"`
	Case        *ResultCaseDTO  `json:"case"`
	CaseTitle   string          `json:"caseTitle"`
	Status      string          `json:"status"`
	Comment     string          `json:"comment,omitempty"`
	EndTime     string          `json:"endTime,omitempty"`
	TimeSpentMs int64           `json:"timeSpentMs"`
	Steps       []ResultStepDTO `json:"steps"`
}

// ResultsResult is the outcome of one results retrieval. Results are
// returned both flat and grouped by status bucket, alongside a summary
// computed over the returned page.
type ResultsResult struct {
	Success  bool                   `json:"success"`
	Cached   bool                   `json:"cached"`
	Error    string                 `json:"error,omitempty"`
	Total    int                    `json:"total"`
	Results  []ResultDTO            `json:"results"`
	ByStatus map[string][]ResultDTO `json:"byStatus"`
	Summary  Summary                `json:"summary"`
}

// ResultsInput is the model-facing filter schema for getResults.
type ResultsInput struct {
	RunID   int64  `json:"runId,omitempty" jsonschema:"description=Restrict results to one test run"`
	CaseID  int64  `json:"caseId,omitempty" jsonschema:"description=Restrict results to one test case"`
	Status  string `json:"status,omitempty" jsonschema:"description=Filter by result status: passed failed blocked skipped invalid or in_progress"`
	FromEnd string `json:"fromEnd,omitempty" jsonschema:"description=Only results finished at or after this time (RFC 3339 or YYYY-MM-DD)"`
	ToEnd   string `json:"toEnd,omitempty" jsonschema:"description=Only results finished at or before this time (RFC 3339 or YYYY-MM-DD)"`
	Limit   int    `json:"limit,omitempty" jsonschema:"description=Maximum number of results to return"`
	Offset  int    `json:"offset,omitempty" jsonschema:"description=Number of results to skip for pagination"`
}

// FetchResults retrieves test results for the scope's project. The run id
// is part of the cache key itself so results from different runs never
// share an entry even when the remaining filters match.
func (k *Kit) FetchResults(ctx context.Context, scope Scope, f qase.ResultFilters) ResultsResult {
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
	if f.CaseID > 0 {
		filters["case"] = f.CaseID
	}
	if f.FromEnd != "" {
		filters["from_end_time"] = f.FromEnd
	}
	if f.ToEnd != "" {
		filters["to_end_time"] = f.ToEnd
	}

	key := cache.Key(ResourceResults, scope.UserID, scope.ProjectCode,
		strconv.FormatInt(f.RunID, 10), cache.Fingerprint(filters))
	page, cached, err := fetchPage(ctx, k, key, k.ttls.Results, func() (*qase.Page[qase.Result], error) {
		return k.qa.ListResults(ctx, scope.Token, scope.ProjectCode, f)
	})
	if err != nil {
		k.logger.Warn("results retrieval failed",
			"user_id", scope.UserID, "project", scope.ProjectCode, "run_id", f.RunID, "error", err)
		return ResultsResult{
			Error:    classifyError(err, ResourceResults),
			Results:  []ResultDTO{},
			ByStatus: map[string][]ResultDTO{},
		}
	}

	results := make([]ResultDTO, 0, len(page.Entities))
	byStatus := make(map[string][]ResultDTO)
	for _, r := range page.Entities {
		title := fmt.Sprintf("Case #%d", r.CaseID)
		var caseInfo *ResultCaseDTO
		if r.Case != nil {
			caseInfo = &ResultCaseDTO{ID: r.Case.ID, Title: r.Case.Title}
			if r.Case.Title != "" {
				title = r.Case.Title
			}
		}
		steps := make([]ResultStepDTO, 0, len(r.Steps))
		for _, s := range r.Steps {
			steps = append(steps, ResultStepDTO{
				Position: s.Position,
				Status:   s.Status,
				Comment:  s.Comment,
			})
		}
		dto := ResultDTO{
			Hash:        r.Hash,
			CaseID:      r.CaseID,
			Case:        caseInfo,
			CaseTitle:   title,
			Status:      r.Status,
			Comment:     r.Comment,
			EndTime:     r.EndTime,
			TimeSpentMs: r.TimeSpentMs,
			Steps:       steps,
		}
		results = append(results, dto)
		bucket := StatusBucket(r.Status)
		byStatus[bucket] = append(byStatus[bucket], dto)
	}

	return ResultsResult{
		Success:  true,
		Cached:   cached,
		Total:    page.Total,
		Results:  results,
		ByStatus: byStatus,
		Summary:  summarize(page.Entities),
	}
}

// handleResults is the Genkit tool handler for getResults.
func (k *Kit) handleResults(ctx *ai.ToolContext, input ResultsInput) (ResultsResult, error) {
	scope := ScopeFromContext(ctx.Context)
	return k.FetchResults(ctx.Context, scope, qase.ResultFilters{
		Limit:   input.Limit,
		Offset:  input.Offset,
		Status:  input.Status,
		RunID:   input.RunID,
		CaseID:  input.CaseID,
		FromEnd: input.FromEnd,
		ToEnd:   input.ToEnd,
	}), nil
}
