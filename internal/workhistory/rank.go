// internal/workhistory/rank.go
// Ranking & filtering projector: top-N overruns, repeat failures, sorted breakdowns.

package workhistory

import (
	"fmt"
	"sort"
	"strings"

	"github.com/shopspring/decimal"
)

// Metric names a sortable group figure.
type Metric string

const (
	MetricOverrunCost  Metric = "overrun_cost"
	MetricOverrunHours Metric = "overrun_hours"
	MetricActualHours  Metric = "actual_hours"
	MetricPlannedHours Metric = "planned_hours"
	MetricActualCost   Metric = "actual_cost"
	MetricJobCount     Metric = "job_count"
)

var sortMetrics = map[Metric]func(Group) decimal.Decimal{
	MetricOverrunCost:  func(g Group) decimal.Decimal { return g.OverrunCost },
	MetricOverrunHours: func(g Group) decimal.Decimal { return g.OverrunHours },
	MetricActualHours:  func(g Group) decimal.Decimal { return g.ActualHours },
	MetricPlannedHours: func(g Group) decimal.Decimal { return g.PlannedHours },
	MetricActualCost:   func(g Group) decimal.Decimal { return g.ActualCost },
	MetricJobCount:     func(g Group) decimal.Decimal { return decimal.NewFromInt(int64(g.JobCount)) },
}

func (m Metric) Valid() bool {
	_, ok := sortMetrics[m]
	return ok
}

// ParseMetric accepts the names above case-insensitively; "" means overrun_cost.
func ParseMetric(s string) (Metric, error) {
	s = strings.ToLower(strings.TrimSpace(s))
	if s == "" {
		return MetricOverrunCost, nil
	}
	m := Metric(s)
	if !m.Valid() {
		return "", fmt.Errorf("unknown sort metric %q", s)
	}
	return m, nil
}

// SortGroups orders groups by metric descending with key ascending on ties.
// limit <= 0 keeps every group.
func SortGroups(groups map[string]Group, m Metric, limit int) []Group {
	val, ok := sortMetrics[m]
	if !ok {
		val = sortMetrics[MetricOverrunCost]
	}
	out := make([]Group, 0, len(groups))
	for _, g := range groups {
		out = append(out, g)
	}
	sort.SliceStable(out, func(i, j int) bool {
		if c := val(out[i]).Cmp(val(out[j])); c != 0 {
			return c > 0
		}
		return out[i].Key < out[j].Key
	})
	if limit > 0 && len(out) > limit {
		out = out[:limit]
	}
	return out
}

// TopOverruns returns up to n overrunning records, largest first.
// Ties break on overrun cost desc, then job number asc; the remaining fields only
// pin the order of otherwise identical lines. Records whose task description
// matches an excluded task (case-insensitive) are skipped.
func TopOverruns(records []Record, n int, excludedTasks []string) []Record {
	if n <= 0 {
		return []Record{}
	}
	skip := make(map[string]struct{}, len(excludedTasks))
	for _, t := range excludedTasks {
		skip[strings.ToLower(strings.TrimSpace(t))] = struct{}{}
	}

	out := make([]Record, 0, n)
	for _, r := range records {
		if !r.Eligible() || !r.OverrunHours().IsPositive() {
			continue
		}
		if _, ok := skip[strings.ToLower(r.TaskDescription)]; ok {
			continue
		}
		out = append(out, r)
	}
	sort.SliceStable(out, func(i, j int) bool { return overrunLess(out[i], out[j]) })
	if len(out) > n {
		out = out[:n]
	}
	return out
}

func overrunLess(a, b Record) bool {
	if c := a.OverrunHours().Cmp(b.OverrunHours()); c != 0 {
		return c > 0
	}
	if c := a.OverrunCost().Cmp(b.OverrunCost()); c != 0 {
		return c > 0
	}
	if a.JobNumber != b.JobNumber {
		return a.JobNumber < b.JobNumber
	}
	if a.PartName != b.PartName {
		return a.PartName < b.PartName
	}
	if a.WorkCenter != b.WorkCenter {
		return a.WorkCenter < b.WorkCenter
	}
	if a.TaskDescription != b.TaskDescription {
		return a.TaskDescription < b.TaskDescription
	}
	if c := a.PlannedHours.Cmp(b.PlannedHours); c != 0 {
		return c > 0
	}
	if c := a.ActualHours.Cmp(b.ActualHours); c != 0 {
		return c > 0
	}
	if a.OperationNumber != b.OperationNumber {
		return a.OperationNumber < b.OperationNumber
	}
	if a.WorkOrderNumber != b.WorkOrderNumber {
		return a.WorkOrderNumber < b.WorkOrderNumber
	}
	if a.Customer != b.Customer {
		return a.Customer < b.Customer
	}
	if a.FailureReason() != b.FailureReason() {
		return a.FailureReason() < b.FailureReason()
	}
	return a.Date.Before(b.Date)
}

// RepeatFailures groups the NCR subset by part and keeps parts whose NCR lines
// span more than one job, sorted by overrun cost desc (part asc on ties), truncated to n.
func RepeatFailures(records []Record, c Classifier, n int) []Group {
	ncr := make([]Record, 0)
	for _, r := range records {
		if c.IsNCR(r) {
			ncr = append(ncr, r)
		}
	}
	byPart := AggregateWith(ncr, ByPart, c)
	for k, g := range byPart {
		if g.JobCount <= 1 {
			delete(byPart, k)
		}
	}
	return SortGroups(byPart, MetricOverrunCost, n)
}

// NCRRecords is the eligible NCR subset in input order.
func NCRRecords(records []Record, c Classifier) []Record {
	out := make([]Record, 0)
	for _, r := range records {
		if r.Eligible() && c.IsNCR(r) {
			out = append(out, r)
		}
	}
	return out
}
