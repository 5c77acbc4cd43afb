package workhistory

import (
	"fmt"
	"strings"
)

// Issue is a single problem found in an uploaded row.
type Issue struct {
	Row    int    `json:"row"`
	Field  string `json:"field"`
	Reason string `json:"reason"`
}

// ValidationError signals structurally invalid input (a bad upload),
// as opposed to an empty result (no activity in the period).
type ValidationError struct {
	Issues []Issue `json:"issues"`
}

func (e *ValidationError) add(row int, field, reason string) {
	e.Issues = append(e.Issues, Issue{Row: row, Field: field, Reason: reason})
}

func (e *ValidationError) HasIssues() bool { return e != nil && len(e.Issues) > 0 }

func (e *ValidationError) Error() string {
	if !e.HasIssues() {
		return "validation failed"
	}
	const maxListed = 5
	parts := make([]string, 0, maxListed)
	for i, is := range e.Issues {
		if i == maxListed {
			break
		}
		parts = append(parts, fmt.Sprintf("row %d: %s: %s", is.Row, is.Field, is.Reason))
	}
	msg := fmt.Sprintf("validation failed: %d issue(s): %s", len(e.Issues), strings.Join(parts, "; "))
	if len(e.Issues) > maxListed {
		msg += "; ..."
	}
	return msg
}

// Validate checks mandatory identity fields. It returns nil or a *ValidationError.
func Validate(raws []RawRecord) error {
	verr := &ValidationError{}
	for i, raw := range raws {
		if raw.JobID.String() == "" && raw.JobNumber.String() == "" {
			verr.add(i, "job_id", "missing job_id and job_number")
		}
	}
	if verr.HasIssues() {
		return verr
	}
	return nil
}

// UnsupportedMetricError is returned for metric-detail requests naming an unknown metric.
type UnsupportedMetricError struct {
	Metric string
}

func (e *UnsupportedMetricError) Error() string {
	return fmt.Sprintf("unsupported metric: %s", e.Metric)
}
