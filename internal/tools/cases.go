package tools

import (
	"context"

	"github.com/firebase/genkit/go/ai"

	"github.com/qametric/qametric/internal/cache"
	"github.com/qametric/qametric/internal/qase"
)

// CaseDTO is the normalized test case shape. Numeric enums on the raw
// entity become labels here.
type CaseDTO struct {
	ID         int64  `json:"id"`
	Title      string `json:"title"`
	Severity   string `json:"severity"`
	Priority   string `json:"priority"`
	Automation string `json:"automation"`
	Status     string `json:"status"`
	SuiteID    int64  `json:"suiteId,omitempty"`
	CreatedAt  string `json:"createdAt,omitempty"`
	UpdatedAt  string `json:"updatedAt,omitempty"`
}

// CasesResult is the outcome of one cases retrieval.
type CasesResult struct {
	Success bool      `json:"success"`
	Cached  bool      `json:"cached"`
	Error   string    `json:"error,omitempty"`
	Total   int       `json:"total"`
	Cases   []CaseDTO `json:"cases"`
}

// CasesInput is the model-facing filter schema for getCases.
type CasesInput struct {
	Search   string `json:"search,omitempty" jsonschema:"description=Free-text search over case titles"`
	Severity string `json:"severity,omitempty" jsonschema:"description=Filter by severity: blocker critical major normal minor or trivial"`
	Priority string `json:"priority,omitempty" jsonschema:"description=Filter by priority: high medium or low"`
	Status   string `json:"status,omitempty" jsonschema:"description=Filter by status: actual draft or deprecated"`
	SuiteID  int64  `json:"suiteId,omitempty" jsonschema:"description=Restrict to one suite by numeric id"`
	Limit    int    `json:"limit,omitempty" jsonschema:"description=Maximum number of cases to return"`
	Offset   int    `json:"offset,omitempty" jsonschema:"description=Number of cases to skip for pagination"`
}

// FetchCases retrieves test cases for the scope's project, serving from
// cache when an identical filter set was fetched within the cases TTL.
func (k *Kit) FetchCases(ctx context.Context, scope Scope, f qase.CaseFilters) CasesResult {
	filters := map[string]any{}
	if f.Limit > 0 {
		filters["limit"] = f.Limit
	}
	if f.Offset > 0 {
		filters["offset"] = f.Offset
	}
	if f.Search != "" {
		filters["search"] = f.Search
	}
	if f.Severity != "" {
		filters["severity"] = f.Severity
	}
	if f.Priority != "" {
		filters["priority"] = f.Priority
	}
	if f.Status != "" {
		filters["status"] = f.Status
	}
	if f.SuiteID > 0 {
		filters["suite_id"] = f.SuiteID
	}

	key := cache.Key(ResourceCases, scope.UserID, scope.ProjectCode, cache.Fingerprint(filters))
	page, cached, err := fetchPage(ctx, k, key, k.ttls.Cases, func() (*qase.Page[qase.Case], error) {
		return k.qa.ListCases(ctx, scope.Token, scope.ProjectCode, f)
	})
	if err != nil {
		k.logger.Warn("cases retrieval failed",
			"user_id", scope.UserID, "project", scope.ProjectCode, "error", err)
		return CasesResult{Error: classifyError(err, ResourceCases), Cases: []CaseDTO{}}
	}

	cases := make([]CaseDTO, 0, len(page.Entities))
	for _, c := range page.Entities {
		cases = append(cases, CaseDTO{
			ID:         c.ID,
			Title:      c.Title,
			Severity:   SeverityLabel(c.Severity),
			Priority:   PriorityLabel(c.Priority),
			Automation: AutomationLabel(c.Automation),
			Status:     CaseStatusLabel(c.Status),
			SuiteID:    c.SuiteID,
			CreatedAt:  c.CreatedAt,
			UpdatedAt:  c.UpdatedAt,
		})
	}

	return CasesResult{
		Success: true,
		Cached:  cached,
		Total:   page.Total,
		Cases:   cases,
	}
}

// handleCases is the Genkit tool handler for getCases.
func (k *Kit) handleCases(ctx *ai.ToolContext, input CasesInput) (CasesResult, error) {
	scope := ScopeFromContext(ctx.Context)
	return k.FetchCases(ctx.Context, scope, qase.CaseFilters{
		Limit:    input.Limit,
		Offset:   input.Offset,
		Search:   input.Search,
		Severity: input.Severity,
		Priority: input.Priority,
		Status:   input.Status,
		SuiteID:  input.SuiteID,
	}), nil
}
