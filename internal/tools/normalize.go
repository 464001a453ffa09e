package tools

import (
	"math"

	"github.com/qametric/qametric/internal/qase"
)

// Enumeration labels for numeric fields on raw entities. The fallback for
// anything outside the known range is the literal string "undefined" for
// severity and priority; automation and case status have their own
// documented defaults.
const labelUndefined = "undefined"

// severityLabels maps raw severity enums to display labels.
var severityLabels = map[int]string{
	1: "blocker",
	2: "critical",
	3: "major",
	4: "normal",
	5: "minor",
	6: "trivial",
}

// priorityLabels maps raw priority enums to display labels.
var priorityLabels = map[int]string{
	1: "high",
	2: "medium",
	3: "low",
}

// SeverityLabel returns the label for a raw severity value.
func SeverityLabel(v int) string {
	if label, ok := severityLabels[v]; ok {
		return label
	}
	return labelUndefined
}

// PriorityLabel returns the label for a raw priority value.
func PriorityLabel(v int) string {
	if label, ok := priorityLabels[v]; ok {
		return label
	}
	return labelUndefined
}

// AutomationLabel returns the label for a raw automation value. Zero and
// anything unknown mean the case is not automated.
func AutomationLabel(v int) string {
	switch v {
	case 1:
		return "automated"
	case 2:
		return "to-be-automated"
	default:
		return "is-not-automated"
	}
}

// CaseStatusLabel returns the label for a raw case status value. Zero (and
// therefore an absent field) means the case is actual.
func CaseStatusLabel(v int) string {
	switch v {
	case 1:
		return "draft"
	case 2:
		return "deprecated"
	default:
		return "actual"
	}
}

// RunStatusLabel returns the label for a raw run status value.
func RunStatusLabel(v int) string {
	switch v {
	case 0:
		return "active"
	case 1:
		return "complete"
	case 2:
		return "abort"
	default:
		return labelUndefined
	}
}

// StatusBucketOther collects result statuses outside the six known
// buckets, in both the grouped-by-status map and the summary counts.
const StatusBucketOther = "other"

// resultStatusBuckets is the closed set of result statuses tracked
// individually.
var resultStatusBuckets = map[string]bool{
	"passed":      true,
	"failed":      true,
	"blocked":     true,
	"skipped":     true,
	"invalid":     true,
	"in_progress": true,
}

// StatusBucket maps a raw result status to its summary bucket.
func StatusBucket(status string) string {
	if resultStatusBuckets[status] {
		return status
	}
	return StatusBucketOther
}

// PassRate computes the percentage of passed results, rounded to two
// decimal places. A zero total yields zero rather than NaN. Exact values
// come out integer-valued (90, 100, 0); inexact ones keep two decimals
// (33.33, 28.57).
func PassRate(passed, total int) float64 {
	if total == 0 {
		return 0
	}
	return math.Round(float64(passed)/float64(total)*100*100) / 100
}

// Summary aggregates result counts per status bucket plus the pass rate
// over the total.
type Summary struct {
	Passed     int     `json:"passed"`
	Failed     int     `json:"failed"`
	Blocked    int     `json:"blocked"`
	Skipped    int     `json:"skipped"`
	Invalid    int     `json:"invalid"`
	InProgress int     `json:"in_progress"`
	Other      int     `json:"other"`
	PassRate   float64 `json:"passRate"`
}

// summarize buckets the raw results and computes the pass rate over the
// fetched slice, keeping the summary consistent with the grouped map.
func summarize(results []qase.Result) Summary {
	var s Summary
	for _, r := range results {
		switch StatusBucket(r.Status) {
		case "passed":
			s.Passed++
		case "failed":
			s.Failed++
		case "blocked":
			s.Blocked++
		case "skipped":
			s.Skipped++
		case "invalid":
			s.Invalid++
		case "in_progress":
			s.InProgress++
		default:
			s.Other++
		}
	}
	s.PassRate = PassRate(s.Passed, len(results))
	return s
}
