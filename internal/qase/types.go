package qase

// envelope is the wire format every API response arrives in.
// Successful responses carry the payload under "result"; failures carry
// an error message instead.
type envelope[T any] struct {
	Status       bool   `json:"status"`
	Result       T      `json:"result"`
	ErrorMessage string `json:"errorMessage"`
}

// Page is the paginated collection payload returned by every list endpoint.
type Page[T any] struct {
	Total    int `json:"total"`
	Filtered int `json:"filtered"`
	Count    int `json:"count"`
	Entities []T `json:"entities"`
}

// ProjectCounts summarizes entity counts inside a project.
type ProjectCounts struct {
	Cases  int `json:"cases"`
	Suites int `json:"suites"`
	Runs   struct {
		Total  int `json:"total"`
		Active int `json:"active"`
	} `json:"runs"`
	Defects struct {
		Total int `json:"total"`
		Open  int `json:"open"`
	} `json:"defects"`
}

// Project is a raw project entity.
type Project struct {
	Code   string        `json:"code"`
	Title  string        `json:"title"`
	Counts ProjectCounts `json:"counts"`
}

// Case is a raw test case entity. Severity, priority, automation and
// status arrive as numeric enums; absent values decode to zero, which the
// normalization layer treats as the documented fallback.
type Case struct {
	ID          int64  `json:"id"`
	Title       string `json:"title"`
	Description string `json:"description"`
	Severity    int    `json:"severity"`
	Priority    int    `json:"priority"`
	Automation  int    `json:"automation"`
	Status      int    `json:"status"`
	SuiteID     int64  `json:"suite_id"`
	CreatedAt   string `json:"created_at"`
	UpdatedAt   string `json:"updated_at"`
}

// RunStats carries per-status counts for one test run.
type RunStats struct {
	Total      int `json:"total"`
	Passed     int `json:"passed"`
	Failed     int `json:"failed"`
	Blocked    int `json:"blocked"`
	Skipped    int `json:"skipped"`
	InProgress int `json:"in_progress"`
	Invalid    int `json:"invalid"`
	Untested   int `json:"untested"`
}

// Run is a raw test run entity. Status is a numeric enum
// (0 active, 1 complete, 2 abort).
type Run struct {
	ID        int64    `json:"id"`
	Title     string   `json:"title"`
	Status    int      `json:"status"`
	StartTime string   `json:"start_time"`
	EndTime   string   `json:"end_time"`
	Stats     RunStats `json:"stats"`
	UserID    int64    `json:"user_id"`
}

// ResultStep is one executed step inside a test result.
type ResultStep struct {
	Position int    `json:"position"`
	Status   string `json:"status"`
	Comment  string `json:"comment"`
}

// ResultCase is the case summary embedded in a result, when the API
// includes it. Nil means the case info was not expanded.
type ResultCase struct {
	ID    int64  `json:"id"`
	Title string `json:"title"`
}

// Result is a raw test result entity. Unlike cases and runs, result status
// is already a string on the wire (passed, failed, blocked, ...).
type Result struct {
	Hash        string       `json:"hash"`
	CaseID      int64        `json:"case_id"`
	RunID       int64        `json:"run_id"`
	Status      string       `json:"status"`
	Comment     string       `json:"comment"`
	EndTime     string       `json:"end_time"`
	TimeSpentMs int64        `json:"time_spent_ms"`
	Steps       []ResultStep `json:"steps"`
	Case        *ResultCase  `json:"case"`
}
