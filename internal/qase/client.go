// Package qase provides a lightweight client for the Qase test-management
// API. It covers the read-only surface the retrieval tools need: listing
// projects, cases, runs and results with typed filters.
package qase

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"time"

	"github.com/qametric/qametric/internal/log"
)

const (
	// DefaultBaseURL is the production Qase API endpoint.
	DefaultBaseURL = "https://api.qase.io/v1"

	// requestTimeout bounds any single API call.
	requestTimeout = 30 * time.Second

	// maxResponseBytes caps response bodies to keep a misbehaving server
	// from exhausting memory (1 MB covers the largest paginated payload).
	maxResponseBytes = 1 << 20
)

// Client is a Qase API client. The API token is supplied per call because
// different users of the engine authenticate with different tokens.
type Client struct {
	baseURL    string
	httpClient *http.Client
	logger     log.Logger
}

// New creates a Qase API client. An empty baseURL falls back to the
// production endpoint.
func New(baseURL string, logger log.Logger) *Client {
	if baseURL == "" {
		baseURL = DefaultBaseURL
	}
	if logger == nil {
		logger = log.NewNop()
	}
	return &Client{
		baseURL:    baseURL,
		httpClient: &http.Client{Timeout: requestTimeout},
		logger:     logger,
	}
}

// ProjectFilters narrows a project listing.
type ProjectFilters struct {
	Limit  int
	Offset int
}

// CaseFilters narrows a case listing within a project.
type CaseFilters struct {
	Limit    int
	Offset   int
	Search   string
	Severity string
	Priority string
	Status   string
	SuiteID  int64
}

// RunFilters narrows a run listing within a project.
type RunFilters struct {
	Limit     int
	Offset    int
	Status    string
	FromStart string
	ToStart   string
}

// ResultFilters narrows a result listing within a project.
type ResultFilters struct {
	Limit   int
	Offset  int
	Status  string
	RunID   int64
	CaseID  int64
	FromEnd string
	ToEnd   string
}

// ListProjects returns projects visible to the token.
func (c *Client) ListProjects(ctx context.Context, token string, f ProjectFilters) (*Page[Project], error) {
	q := url.Values{}
	addPagination(q, f.Limit, f.Offset)
	return get[Page[Project]](ctx, c, token, "/project", q)
}

// ListCases returns test cases for a project.
func (c *Client) ListCases(ctx context.Context, token, projectCode string, f CaseFilters) (*Page[Case], error) {
	if projectCode == "" {
		return nil, fmt.Errorf("project code is required")
	}

	q := url.Values{}
	addPagination(q, f.Limit, f.Offset)
	addString(q, "search", f.Search)
	addString(q, "filters[severity]", f.Severity)
	addString(q, "filters[priority]", f.Priority)
	addString(q, "filters[status]", f.Status)
	if f.SuiteID > 0 {
		q.Set("filters[suite_id]", strconv.FormatInt(f.SuiteID, 10))
	}

	return get[Page[Case]](ctx, c, token, "/case/"+url.PathEscape(projectCode), q)
}

// ListRuns returns test runs for a project.
func (c *Client) ListRuns(ctx context.Context, token, projectCode string, f RunFilters) (*Page[Run], error) {
	if projectCode == "" {
		return nil, fmt.Errorf("project code is required")
	}

	q := url.Values{}
	addPagination(q, f.Limit, f.Offset)
	addString(q, "filters[status]", f.Status)
	addString(q, "filters[from_start_time]", f.FromStart)
	addString(q, "filters[to_start_time]", f.ToStart)

	return get[Page[Run]](ctx, c, token, "/run/"+url.PathEscape(projectCode), q)
}

// ListResults returns test results for a project.
func (c *Client) ListResults(ctx context.Context, token, projectCode string, f ResultFilters) (*Page[Result], error) {
	if projectCode == "" {
		return nil, fmt.Errorf("project code is required")
	}

	q := url.Values{}
	addPagination(q, f.Limit, f.Offset)
	addString(q, "filters[status]", f.Status)
	addString(q, "filters[from_end_time]", f.FromEnd)
	addString(q, "filters[to_end_time]", f.ToEnd)
	if f.RunID > 0 {
		q.Set("filters[run]", strconv.FormatInt(f.RunID, 10))
	}
	if f.CaseID > 0 {
		q.Set("filters[case_id]", strconv.FormatInt(f.CaseID, 10))
	}

	return get[Page[Result]](ctx, c, token, "/result/"+url.PathEscape(projectCode), q)
}

// get performs one GET request against the API and decodes the enveloped
// payload. Non-2xx statuses map onto the package error types: 401/403
// become *AuthError, other 4xx become *APIError with the server message,
// and everything else surfaces as a plain wrapped error.
func get[T any](ctx context.Context, c *Client, token, path string, q url.Values) (*T, error) {
	u := c.baseURL + path
	if encoded := q.Encode(); encoded != "" {
		u += "?" + encoded
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, fmt.Errorf("creating request: %w", err)
	}
	req.Header.Set("Token", token)
	req.Header.Set("Accept", "application/json")

	resp, err := c.httpClient.Do(req)
	if err != nil {
		return nil, fmt.Errorf("request failed: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes))
	if err != nil {
		return nil, fmt.Errorf("reading response body: %w", err)
	}

	switch {
	case resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden:
		c.logger.Warn("QA API rejected token", "status", resp.StatusCode, "path", path)
		return nil, &AuthError{Status: resp.StatusCode}

	case resp.StatusCode >= 400 && resp.StatusCode < 500:
		var env envelope[json.RawMessage]
		_ = json.Unmarshal(body, &env) // Best effort; message may be absent
		return nil, &APIError{Message: env.ErrorMessage, Status: resp.StatusCode}

	case resp.StatusCode < 200 || resp.StatusCode >= 300:
		return nil, fmt.Errorf("QA API error (status %d)", resp.StatusCode)
	}

	var env envelope[T]
	if err := json.Unmarshal(body, &env); err != nil {
		return nil, fmt.Errorf("decoding response: %w", err)
	}
	if !env.Status {
		return nil, &APIError{Message: env.ErrorMessage, Status: resp.StatusCode}
	}

	return &env.Result, nil
}

func addPagination(q url.Values, limit, offset int) {
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}
	if offset > 0 {
		q.Set("offset", strconv.Itoa(offset))
	}
}

func addString(q url.Values, key, value string) {
	if value != "" {
		q.Set(key, value)
	}
}
