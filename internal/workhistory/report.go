// internal/workhistory/report.go
// Year report: every section of the yearly dashboard built from one record set.

package workhistory

import (
	"context"
	"fmt"
	"slices"
	"sort"

	"github.com/shopspring/decimal"
	"golang.org/x/sync/errgroup"
)

// Summary is the headline block shared by the year and full-summary views.
type Summary struct {
	Year                     int     `json:"year,omitempty"`
	TotalPlannedHours        float64 `json:"total_planned_hours"`
	TotalActualHours         float64 `json:"total_actual_hours"`
	TotalOverrunHours        float64 `json:"total_overrun_hours"`
	TotalNCRHours            float64 `json:"total_ncr_hours"`
	GhostHours               float64 `json:"ghost_hours"`
	TotalPlannedCost         float64 `json:"total_planned_cost"`
	TotalActualCost          float64 `json:"total_actual_cost"`
	OpportunityCostDollars   float64 `json:"opportunity_cost_dollars"`
	OpportunityCostHours     float64 `json:"opportunity_cost_hours"`
	OverrunPercent           Percent `json:"overrun_percent"`
	RecommendedBufferPercent float64 `json:"recommended_buffer_percent"`
	TotalJobs                int     `json:"total_jobs"`
	TotalOperations          int     `json:"total_operations"`
	TotalUniqueParts         int     `json:"total_unique_parts"`
	TotalCustomers           int     `json:"total_customers"`
}

func summaryOf(g Group) Summary {
	op := OverrunPercent(g)
	return Summary{
		TotalPlannedHours:        f64(g.PlannedHours),
		TotalActualHours:         f64(g.ActualHours),
		TotalOverrunHours:        f64(g.OverrunHours),
		TotalNCRHours:            f64(g.NCRHours),
		GhostHours:               f64(g.GhostHours),
		TotalPlannedCost:         money(g.PlannedCost),
		TotalActualCost:          money(g.ActualCost),
		OpportunityCostDollars:   money(OpportunityCost(g)),
		OpportunityCostHours:     f64(g.OverrunHours),
		OverrunPercent:           op,
		RecommendedBufferPercent: money(RecommendedBuffer(op)),
		TotalJobs:                g.JobCount,
		TotalOperations:          g.Operations,
		TotalUniqueParts:         g.PartCount,
		TotalCustomers:           g.CustomerCount,
	}
}

type QuarterRow struct {
	Quarter      int     `json:"quarter"`
	Label        string  `json:"label"`
	PlannedHours float64 `json:"planned_hours"`
	ActualHours  float64 `json:"actual_hours"`
	OverrunHours float64 `json:"overrun_hours"`
	OverrunCost  float64 `json:"overrun_cost"`
	TotalJobs    int     `json:"total_jobs"`
}

type OverrunRow struct {
	JobNumber       string  `json:"job_number"`
	PartName        string  `json:"part_name"`
	WorkCenter      string  `json:"work_center"`
	TaskDescription string  `json:"task_description"`
	PlannedHours    float64 `json:"planned_hours"`
	ActualHours     float64 `json:"actual_hours"`
	OverrunHours    float64 `json:"overrun_hours"`
	OverrunCost     float64 `json:"overrun_cost"`
}

type NCRRow struct {
	JobNumber     string  `json:"job_number"`
	PartName      string  `json:"part_name"`
	WorkCenter    string  `json:"work_center"`
	FailureReason string  `json:"failure_reason"`
	PlannedHours  float64 `json:"planned_hours"`
	ActualHours   float64 `json:"actual_hours"`
	OverrunHours  float64 `json:"overrun_hours"`
	OverrunCost   float64 `json:"overrun_cost"`
}

type NCRPartRow struct {
	PartName       string  `json:"part_name"`
	TotalNCRHours  float64 `json:"total_ncr_hours"`
	TotalNCRCost   float64 `json:"total_ncr_cost"`
	NCROccurrences int     `json:"ncr_occurrences"`
}

type WorkCenterRow struct {
	WorkCenter   string  `json:"work_center"`
	JobCount     int     `json:"job_count"`
	Operations   int     `json:"operations"`
	PlannedHours float64 `json:"planned_hours"`
	ActualHours  float64 `json:"actual_hours"`
	OverrunHours float64 `json:"overrun_hours"`
	OverrunCost  float64 `json:"overrun_cost"`
	Utilization  Percent `json:"utilization"`
}

func workCenterRow(g Group) WorkCenterRow {
	return WorkCenterRow{
		WorkCenter:   g.Key,
		JobCount:     g.JobCount,
		Operations:   g.Operations,
		PlannedHours: f64(g.PlannedHours),
		ActualHours:  f64(g.ActualHours),
		OverrunHours: f64(g.OverrunHours),
		OverrunCost:  money(g.OverrunCost),
		Utilization:  Utilization(g),
	}
}

type RepeatFailureRow struct {
	PartName       string  `json:"part_name"`
	JobCount       int     `json:"job_count"`
	PlannedHours   float64 `json:"planned_hours"`
	ActualHours    float64 `json:"actual_hours"`
	OverrunHours   float64 `json:"overrun_hours"`
	OverrunCost    float64 `json:"overrun_cost"`
	RepeatNCRHours float64 `json:"repeat_ncr_hours"`
}

type JobAdjustment struct {
	JobNumber                string  `json:"job_number"`
	TotalPlanned             float64 `json:"total_planned"`
	TotalActual              float64 `json:"total_actual"`
	NeededIncrease           float64 `json:"needed_increase"`
	SuggestedPercentIncrease float64 `json:"suggested_percent_increase"`
}

type PartOverrun struct {
	PartName                 string  `json:"part_name"`
	TotalPlanned             float64 `json:"total_planned"`
	TotalActual              float64 `json:"total_actual"`
	OverrunHours             float64 `json:"overrun_hours"`
	SuggestedPercentIncrease float64 `json:"suggested_percent_increase"`
}

type PartTaskDetail struct {
	PartName                 string  `json:"part_name"`
	TaskDescription          string  `json:"task_description"`
	TotalPlanned             float64 `json:"total_planned"`
	TotalActual              float64 `json:"total_actual"`
	OverrunHours             float64 `json:"overrun_hours"`
	SuggestedPercentIncrease float64 `json:"suggested_percent_increase"`
}

// NCRAverages are all-time NCR figures per year with NCR activity.
type NCRAverages struct {
	AvgNCRCostPerYear      float64 `json:"avg_ncr_cost_per_year"`
	AvgPartsWithNCRPerYear float64 `json:"avg_parts_with_ncr_per_year"`
	YearsWithNCR           int     `json:"years_with_ncr"`
}

// ComputeNCRAverages averages NCR cost and distinct NCR parts over the years that had any NCR line.
func ComputeNCRAverages(records []Record, c Classifier) NCRAverages {
	ncr := NCRRecords(records, c)
	years := map[int]struct{}{}
	for _, r := range ncr {
		years[r.Year()] = struct{}{}
	}
	if len(years) == 0 {
		return NCRAverages{}
	}
	all := AggregateWith(ncr, ByAll, c)["all"]
	n := decimal.NewFromInt(int64(len(years)))
	return NCRAverages{
		AvgNCRCostPerYear:      all.NCRCost.Div(n).Round(2).InexactFloat64(),
		AvgPartsWithNCRPerYear: decimal.NewFromInt(int64(all.PartCount)).Div(n).Round(1).InexactFloat64(),
		YearsWithNCR:           len(years),
	}
}

// YearReport is the full yearly dashboard payload.
type YearReport struct {
	Year              int                `json:"year"`
	Summary           Summary            `json:"summary"`
	QuarterlySummary  []QuarterRow       `json:"quarterly_summary"`
	TopOverruns       []OverrunRow       `json:"top_overruns"`
	NCRSummary        []NCRRow           `json:"ncr_summary"`
	NCRByPart         []NCRPartRow       `json:"ncr_by_part"`
	WorkCenterSummary []WorkCenterRow    `json:"workcenter_summary"`
	RepeatNCRFailures []RepeatFailureRow `json:"repeat_ncr_failures"`
	JobAdjustments    []JobAdjustment    `json:"job_adjustments"`
	PartOverruns      []PartOverrun      `json:"part_overruns"`
	PartTaskDetails   []PartTaskDetail   `json:"part_task_details"`
	NCRAverages       NCRAverages        `json:"ncr_averages"`
	JobProfitability  ProfitAnalysis     `json:"job_profitability"`
	Excluded          map[string]int     `json:"excluded"`
}

func inYear(records []Record, year int) []Record {
	out := make([]Record, 0)
	for _, r := range records {
		if r.Year() == year {
			out = append(out, r)
		}
	}
	return out
}

// BuildYearReport builds every yearly section from records. A year with no matching
// records yields the zero-valued shape with empty sections, never an error.
func BuildYearReport(records []Record, year int, opts Options, rc Context) YearReport {
	opts = opts.Resolved()
	c := opts.Classifier
	eligible, excluded := Eligible(records)
	recs := inYear(eligible, year)

	sum := summaryOf(AggregateWith(recs, ByAll, c)["all"])
	sum.Year = year

	rep := YearReport{
		Year:              year,
		Summary:           sum,
		QuarterlySummary:  quarterRows(recs, year, c),
		TopOverruns:       overrunRows(TopOverruns(recs, opts.TopN, opts.ExcludedTasks)),
		NCRSummary:        ncrRows(NCRRecords(recs, c)),
		NCRByPart:         ncrPartRows(recs, c),
		WorkCenterSummary: make([]WorkCenterRow, 0),
		RepeatNCRFailures: make([]RepeatFailureRow, 0),
		JobAdjustments:    make([]JobAdjustment, 0),
		NCRAverages:       rc.NCRAverages,
		JobProfitability:  BuildProfitAnalysis(recs, opts.Pricing, opts.LossWeights, c),
		Excluded:          excluded,
	}

	for _, g := range SortGroups(AggregateWith(recs, ByWorkCenter, c), opts.WorkCenterBy, 0) {
		rep.WorkCenterSummary = append(rep.WorkCenterSummary, workCenterRow(g))
	}
	for _, g := range RepeatFailures(recs, c, opts.RepeatN) {
		rep.RepeatNCRFailures = append(rep.RepeatNCRFailures, RepeatFailureRow{
			PartName:       g.Key,
			JobCount:       g.JobCount,
			PlannedHours:   f64(g.PlannedHours),
			ActualHours:    f64(g.ActualHours),
			OverrunHours:   f64(g.OverrunHours),
			OverrunCost:    money(g.OverrunCost),
			RepeatNCRHours: f64(g.NCRHours),
		})
	}

	jobs := AggregateWith(recs, ByJobNumber, c)
	for k, g := range jobs {
		if !g.OverrunHours.IsPositive() {
			delete(jobs, k)
		}
	}
	for _, g := range SortGroups(jobs, MetricOverrunHours, 0) {
		rep.JobAdjustments = append(rep.JobAdjustments, JobAdjustment{
			JobNumber:                g.Key,
			TotalPlanned:             f64(g.PlannedHours),
			TotalActual:              f64(g.ActualHours),
			NeededIncrease:           f64(g.OverrunHours),
			SuggestedPercentIncrease: SuggestedIncrease(g.OverrunHours, g.PlannedHours).Round(1).InexactFloat64(),
		})
	}

	rep.PartOverruns, rep.PartTaskDetails = partOverruns(recs, opts.PartOverrunN, c)
	return rep
}

func quarterRows(recs []Record, year int, c Classifier) []QuarterRow {
	byQ := AggregateWith(recs, ByQuarter, c)
	rows := make([]QuarterRow, 0, 4)
	for q := 1; q <= 4; q++ {
		g := byQ[fmt.Sprint(q)]
		rows = append(rows, QuarterRow{
			Quarter:      q,
			Label:        fmt.Sprintf("Q%d %d", q, year),
			PlannedHours: f64(g.PlannedHours),
			ActualHours:  f64(g.ActualHours),
			OverrunHours: f64(g.OverrunHours),
			OverrunCost:  money(g.OverrunCost),
			TotalJobs:    g.JobCount,
		})
	}
	return rows
}

func overrunRows(recs []Record) []OverrunRow {
	rows := make([]OverrunRow, 0, len(recs))
	for _, r := range recs {
		rows = append(rows, OverrunRow{
			JobNumber:       r.JobNumber,
			PartName:        r.PartName,
			WorkCenter:      r.WorkCenter,
			TaskDescription: r.TaskDescription,
			PlannedHours:    f64(r.PlannedHours),
			ActualHours:     f64(r.ActualHours),
			OverrunHours:    f64(r.OverrunHours()),
			OverrunCost:     money(r.OverrunCost()),
		})
	}
	return rows
}

func ncrRows(recs []Record) []NCRRow {
	sorted := slices.Clone(recs)
	sort.SliceStable(sorted, func(i, j int) bool { return overrunLess(sorted[i], sorted[j]) })
	rows := make([]NCRRow, 0, len(sorted))
	for _, r := range sorted {
		rows = append(rows, NCRRow{
			JobNumber:     r.JobNumber,
			PartName:      r.PartName,
			WorkCenter:    r.WorkCenter,
			FailureReason: r.FailureReason(),
			PlannedHours:  f64(r.PlannedHours),
			ActualHours:   f64(r.ActualHours),
			OverrunHours:  f64(r.OverrunHours()),
			OverrunCost:   money(r.OverrunCost()),
		})
	}
	return rows
}

func ncrPartRows(recs []Record, c Classifier) []NCRPartRow {
	byPart := AggregateWith(NCRRecords(recs, c), ByPart, c)
	rows := make([]NCRPartRow, 0, len(byPart))
	for _, g := range SortGroups(byPart, MetricActualCost, 0) {
		rows = append(rows, NCRPartRow{
			PartName:       g.Key,
			TotalNCRHours:  f64(g.NCRHours),
			TotalNCRCost:   money(g.NCRCost),
			NCROccurrences: g.NCROperations,
		})
	}
	return rows
}

// partOverruns ranks parts by overrun over their overrunning lines only, then breaks the
// ranked parts down by task.
func partOverruns(recs []Record, n int, c Classifier) ([]PartOverrun, []PartTaskDetail) {
	over := make([]Record, 0)
	for _, r := range recs {
		if r.OverrunHours().IsPositive() {
			over = append(over, r)
		}
	}

	parts := make([]PartOverrun, 0)
	tracked := map[string]struct{}{}
	for _, g := range SortGroups(AggregateWith(over, ByPart, c), MetricOverrunHours, n) {
		tracked[g.Key] = struct{}{}
		parts = append(parts, PartOverrun{
			PartName:                 g.Key,
			TotalPlanned:             f64(g.PlannedHours),
			TotalActual:              f64(g.ActualHours),
			OverrunHours:             f64(g.OverrunHours),
			SuggestedPercentIncrease: SuggestedIncrease(g.OverrunHours, g.PlannedHours).Round(1).InexactFloat64(),
		})
	}

	trackedRecs := make([]Record, 0, len(over))
	for _, r := range over {
		if _, ok := tracked[r.PartName]; ok {
			trackedRecs = append(trackedRecs, r)
		}
	}
	tasks := make([]PartTaskDetail, 0)
	for _, g := range SortGroups(AggregateWith(trackedRecs, ByPartTask, c), MetricOverrunHours, 0) {
		part, task := SplitKey(g.Key)
		tasks = append(tasks, PartTaskDetail{
			PartName:                 part,
			TaskDescription:          task,
			TotalPlanned:             f64(g.PlannedHours),
			TotalActual:              f64(g.ActualHours),
			OverrunHours:             f64(g.OverrunHours),
			SuggestedPercentIncrease: SuggestedIncrease(g.OverrunHours, g.PlannedHours).Round(1).InexactFloat64(),
		})
	}
	return parts, tasks
}

// Years lists the distinct years of the eligible records, ascending.
func Years(records []Record) []int {
	seen := map[int]struct{}{}
	for _, r := range records {
		if r.Eligible() {
			seen[r.Year()] = struct{}{}
		}
	}
	years := make([]int, 0, len(seen))
	for y := range seen {
		years = append(years, y)
	}
	sort.Ints(years)
	return years
}

// BuildYearReports builds one report per year in parallel. Each worker gets its own
// copy of the records and owns its accumulators; nothing is shared between them.
func BuildYearReports(ctx context.Context, records []Record, years []int, opts Options, rc Context) (map[int]YearReport, error) {
	reports := make([]YearReport, len(years))
	eg, egCtx := errgroup.WithContext(ctx)
	for i, year := range years {
		recs := slices.Clone(records)
		eg.Go(func() error {
			if err := egCtx.Err(); err != nil {
				return fmt.Errorf("year %d: %w", year, err)
			}
			reports[i] = BuildYearReport(recs, year, opts, rc)
			return nil
		})
	}
	if err := eg.Wait(); err != nil {
		return nil, err
	}
	out := make(map[int]YearReport, len(years))
	for i, year := range years {
		out[year] = reports[i]
	}
	return out, nil
}
