package tools

import (
	"context"
	"testing"
	"time"

	"github.com/qametric/qametric/internal/cache"
	"github.com/qametric/qametric/internal/qase"
)

// fakeQA counts calls per resource and returns canned pages or errors.
type fakeQA struct {
	projectCalls int
	caseCalls    int
	runCalls     int
	resultCalls  int

	projects *qase.Page[qase.Project]
	cases    *qase.Page[qase.Case]
	runs     *qase.Page[qase.Run]
	results  *qase.Page[qase.Result]
	err      error
}

func (f *fakeQA) ListProjects(_ context.Context, _ string, _ qase.ProjectFilters) (*qase.Page[qase.Project], error) {
	f.projectCalls++
	return f.projects, f.err
}

func (f *fakeQA) ListCases(_ context.Context, _, _ string, _ qase.CaseFilters) (*qase.Page[qase.Case], error) {
	f.caseCalls++
	return f.cases, f.err
}

func (f *fakeQA) ListRuns(_ context.Context, _, _ string, _ qase.RunFilters) (*qase.Page[qase.Run], error) {
	f.runCalls++
	return f.runs, f.err
}

func (f *fakeQA) ListResults(_ context.Context, _, _ string, _ qase.ResultFilters) (*qase.Page[qase.Result], error) {
	f.resultCalls++
	return f.results, f.err
}

func testKit(t *testing.T, qa QAClient) *Kit {
	t.Helper()
	ttls := TTLs{
		Projects: time.Hour,
		Cases:    time.Hour,
		Runs:     time.Hour,
		Results:  time.Hour,
	}
	kit, err := NewKit(qa, cache.NewMemory(), ttls, nil)
	if err != nil {
		t.Fatalf("NewKit: %v", err)
	}
	return kit
}

func TestNewKitValidation(t *testing.T) {
	t.Parallel()

	if _, err := NewKit(nil, cache.NewMemory(), TTLs{}, nil); err == nil {
		t.Error("expected error for nil QA client")
	}
	if _, err := NewKit(&fakeQA{}, nil, TTLs{}, nil); err == nil {
		t.Error("expected error for nil store")
	}
}

func TestFetchProjectsCacheHitSkipsAPI(t *testing.T) {
	t.Parallel()

	qa := &fakeQA{projects: &qase.Page[qase.Project]{
		Total:    2,
		Entities: []qase.Project{{Code: "WEB", Title: "Web App"}, {Code: "API", Title: "API"}},
	}}
	kit := testKit(t, qa)
	scope := Scope{Token: "tok", UserID: "u1"}

	first := kit.FetchProjects(context.Background(), scope, qase.ProjectFilters{Limit: 10})
	if !first.Success || first.Cached {
		t.Fatalf("first fetch: success=%v cached=%v, want success uncached", first.Success, first.Cached)
	}
	if len(first.Projects) != 2 || first.Total != 2 {
		t.Fatalf("first fetch: got %d projects total %d", len(first.Projects), first.Total)
	}

	second := kit.FetchProjects(context.Background(), scope, qase.ProjectFilters{Limit: 10})
	if !second.Success || !second.Cached {
		t.Fatalf("second fetch: success=%v cached=%v, want success cached", second.Success, second.Cached)
	}
	if qa.projectCalls != 1 {
		t.Errorf("API called %d times, want 1", qa.projectCalls)
	}
	if second.Projects[0].Code != "WEB" {
		t.Errorf("cached payload differs: %+v", second.Projects)
	}
}

func TestFetchProjectsDistinctFiltersMiss(t *testing.T) {
	t.Parallel()

	qa := &fakeQA{projects: &qase.Page[qase.Project]{}}
	kit := testKit(t, qa)
	scope := Scope{Token: "tok", UserID: "u1"}

	kit.FetchProjects(context.Background(), scope, qase.ProjectFilters{Limit: 10})
	kit.FetchProjects(context.Background(), scope, qase.ProjectFilters{Limit: 20})

	if qa.projectCalls != 2 {
		t.Errorf("API called %d times, want 2 for distinct filters", qa.projectCalls)
	}
}

func TestFetchCasesScopedPerUserAndProject(t *testing.T) {
	t.Parallel()

	qa := &fakeQA{cases: &qase.Page[qase.Case]{}}
	kit := testKit(t, qa)

	kit.FetchCases(context.Background(), Scope{Token: "t", UserID: "u1", ProjectCode: "WEB"}, qase.CaseFilters{})
	kit.FetchCases(context.Background(), Scope{Token: "t", UserID: "u2", ProjectCode: "WEB"}, qase.CaseFilters{})
	kit.FetchCases(context.Background(), Scope{Token: "t", UserID: "u1", ProjectCode: "API"}, qase.CaseFilters{})
	kit.FetchCases(context.Background(), Scope{Token: "t", UserID: "u1", ProjectCode: "WEB"}, qase.CaseFilters{})

	if qa.caseCalls != 3 {
		t.Errorf("API called %d times, want 3: only the exact user+project repeat should hit", qa.caseCalls)
	}
}

func TestFetchCasesNormalizesEnums(t *testing.T) {
	t.Parallel()

	qa := &fakeQA{cases: &qase.Page[qase.Case]{
		Total: 1,
		Entities: []qase.Case{{
			ID: 7, Title: "Login works", Severity: 2, Priority: 1, Automation: 1,
		}},
	}}
	kit := testKit(t, qa)

	out := kit.FetchCases(context.Background(), Scope{Token: "t", UserID: "u", ProjectCode: "WEB"}, qase.CaseFilters{})
	if !out.Success {
		t.Fatalf("fetch failed: %s", out.Error)
	}
	c := out.Cases[0]
	if c.Severity != "critical" || c.Priority != "high" || c.Automation != "automated" || c.Status != "actual" {
		t.Errorf("unexpected labels: %+v", c)
	}
}

func TestFetchRunsComputesPassRate(t *testing.T) {
	t.Parallel()

	qa := &fakeQA{runs: &qase.Page[qase.Run]{
		Total: 1,
		Entities: []qase.Run{{
			ID: 3, Title: "Nightly", Status: 1,
			Stats: qase.RunStats{Total: 50, Passed: 45, Failed: 5},
		}},
	}}
	kit := testKit(t, qa)

	out := kit.FetchRuns(context.Background(), Scope{Token: "t", UserID: "u", ProjectCode: "WEB"}, qase.RunFilters{})
	if !out.Success {
		t.Fatalf("fetch failed: %s", out.Error)
	}
	r := out.Runs[0]
	if r.Status != "complete" {
		t.Errorf("Status = %q, want complete", r.Status)
	}
	if r.PassRate != 90 {
		t.Errorf("PassRate = %v, want 90", r.PassRate)
	}
}

func TestFetchResultsGroupsAndSummarizes(t *testing.T) {
	t.Parallel()

	qa := &fakeQA{results: &qase.Page[qase.Result]{
		Total: 3,
		Entities: []qase.Result{
			{Hash: "a", CaseID: 1, Status: "passed", Case: &qase.ResultCase{ID: 1, Title: "Checkout"}},
			{Hash: "b", CaseID: 2, Status: "passed"},
			{Hash: "c", CaseID: 3, Status: "failed", Steps: []qase.ResultStep{{Position: 1, Status: "failed"}}},
		},
	}}
	kit := testKit(t, qa)

	out := kit.FetchResults(context.Background(), Scope{Token: "t", UserID: "u", ProjectCode: "WEB"}, qase.ResultFilters{RunID: 9})
	if !out.Success {
		t.Fatalf("fetch failed: %s", out.Error)
	}
	if out.Results[0].CaseTitle != "Checkout" {
		t.Errorf("expanded case title lost: %q", out.Results[0].CaseTitle)
	}
	if out.Results[0].Case == nil || out.Results[0].Case.ID != 1 || out.Results[0].Case.Title != "Checkout" {
		t.Errorf("expanded case info lost: %+v", out.Results[0].Case)
	}
	if out.Results[1].CaseTitle != "Case #2" {
		t.Errorf("fallback title = %q, want Case #2", out.Results[1].CaseTitle)
	}
	if out.Results[1].Case != nil {
		t.Errorf("unexpanded case must stay nil, got %+v", out.Results[1].Case)
	}
	if out.Results[0].Steps == nil || out.Results[1].Steps == nil {
		t.Error("steps must be an empty slice, never nil")
	}
	if len(out.ByStatus["passed"]) != 2 || len(out.ByStatus["failed"]) != 1 {
		t.Errorf("unexpected grouping: %v", out.ByStatus)
	}
	if out.Summary.PassRate != 66.67 {
		t.Errorf("Summary.PassRate = %v, want 66.67", out.Summary.PassRate)
	}
}

func TestFetchResultsRunIsolatedInCache(t *testing.T) {
	t.Parallel()

	qa := &fakeQA{results: &qase.Page[qase.Result]{}}
	kit := testKit(t, qa)
	scope := Scope{Token: "t", UserID: "u", ProjectCode: "WEB"}

	kit.FetchResults(context.Background(), scope, qase.ResultFilters{RunID: 1})
	kit.FetchResults(context.Background(), scope, qase.ResultFilters{RunID: 2})
	kit.FetchResults(context.Background(), scope, qase.ResultFilters{RunID: 1})

	if qa.resultCalls != 2 {
		t.Errorf("API called %d times, want 2: different runs must not share entries", qa.resultCalls)
	}
}

func TestFetchErrorsNeverEscape(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		err     error
		wantMsg string
	}{
		{
			name:    "auth error surfaces its message",
			err:     &qase.AuthError{Status: 401},
			wantMsg: "Invalid or expired token. Check your QA API credentials.",
		},
		{
			name:    "api error surfaces its message",
			err:     &qase.APIError{Message: "Project not found", Status: 404},
			wantMsg: "Project not found",
		},
		{
			name:    "unknown error collapses to generic",
			err:     context.DeadlineExceeded,
			wantMsg: "Failed to get cases",
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			qa := &fakeQA{err: tt.err}
			kit := testKit(t, qa)

			out := kit.FetchCases(context.Background(), Scope{Token: "t", UserID: "u", ProjectCode: "WEB"}, qase.CaseFilters{})
			if out.Success {
				t.Fatal("expected failure")
			}
			if out.Error != tt.wantMsg {
				t.Errorf("Error = %q, want %q", out.Error, tt.wantMsg)
			}
			if out.Total != 0 || out.Cases == nil || len(out.Cases) != 0 {
				t.Errorf("failure shape must carry zero total and empty collection: %+v", out)
			}
		})
	}
}
