package tools

import (
	"context"

	"github.com/firebase/genkit/go/ai"

	"github.com/qametric/qametric/internal/cache"
	"github.com/qametric/qametric/internal/qase"
)

// ProjectDTO is the normalized project shape returned to the model and to
// callers of the direct Fetch API.
type ProjectDTO struct {
	Code         string `json:"code"`
	Title        string `json:"title"`
	TotalCases   int    `json:"totalCases"`
	TotalRuns    int    `json:"totalRuns"`
	ActiveRuns   int    `json:"activeRuns"`
	TotalDefects int    `json:"totalDefects"`
	OpenDefects  int    `json:"openDefects"`
}

// ProjectsResult is the outcome of one projects retrieval. Failures are
// carried in Error with Success false; the tool boundary never raises.
type ProjectsResult struct {
	Success  bool         `json:"success"`
	Cached   bool         `json:"cached"`
	Error    string       `json:"error,omitempty"`
	Total    int          `json:"total"`
	Projects []ProjectDTO `json:"projects"`
}

// ProjectsInput is the model-facing filter schema for getProjects.
type ProjectsInput struct {
	Limit  int `json:"limit,omitempty" jsonschema:"description=Maximum number of projects to return"`
	Offset int `json:"offset,omitempty" jsonschema:"description=Number of projects to skip for pagination"`
}

// FetchProjects retrieves the projects visible to the scope's token,
// serving from cache when an identical filter set was fetched within the
// projects TTL.
func (k *Kit) FetchProjects(ctx context.Context, scope Scope, f qase.ProjectFilters) ProjectsResult {
	filters := map[string]any{}
	if f.Limit > 0 {
		filters["limit"] = f.Limit
	}
	if f.Offset > 0 {
		filters["offset"] = f.Offset
	}

	key := cache.Key(ResourceProjects, scope.UserID, cache.Fingerprint(filters))
	page, cached, err := fetchPage(ctx, k, key, k.ttls.Projects, func() (*qase.Page[qase.Project], error) {
		return k.qa.ListProjects(ctx, scope.Token, f)
	})
	if err != nil {
		k.logger.Warn("projects retrieval failed", "user_id", scope.UserID, "error", err)
		return ProjectsResult{Error: classifyError(err, ResourceProjects), Projects: []ProjectDTO{}}
	}

	projects := make([]ProjectDTO, 0, len(page.Entities))
	for _, p := range page.Entities {
		projects = append(projects, ProjectDTO{
			Code:         p.Code,
			Title:        p.Title,
			TotalCases:   p.Counts.Cases,
			TotalRuns:    p.Counts.Runs.Total,
			ActiveRuns:   p.Counts.Runs.Active,
			TotalDefects: p.Counts.Defects.Total,
			OpenDefects:  p.Counts.Defects.Open,
		})
	}

	return ProjectsResult{
		Success:  true,
		Cached:   cached,
		Total:    page.Total,
		Projects: projects,
	}
}

// handleProjects is the Genkit tool handler for getProjects.
func (k *Kit) handleProjects(ctx *ai.ToolContext, input ProjectsInput) (ProjectsResult, error) {
	scope := ScopeFromContext(ctx.Context)
	return k.FetchProjects(ctx.Context, scope, qase.ProjectFilters{
		Limit:  input.Limit,
		Offset: input.Offset,
	}), nil
}
