// internal/workhistory/views.go
// Cross-year views: full summary, customers, work centers, parts, metric detail, trends, filter.

package workhistory

import (
	"sort"
	"strconv"
	"strings"
	"time"
	"unicode/utf8"

	"github.com/shopspring/decimal"
)

// YearRow is one line of the per-year breakdown.
type YearRow struct {
	Year           int     `json:"year"`
	PlannedHours   float64 `json:"planned_hours"`
	ActualHours    float64 `json:"actual_hours"`
	OverrunHours   float64 `json:"overrun_hours"`
	NCRHours       float64 `json:"ncr_hours"`
	ActualCost     float64 `json:"actual_cost"`
	JobCount       int     `json:"job_count"`
	OperationCount int     `json:"operation_count"`
	CustomerCount  int     `json:"customer_count"`
	UniqueParts    int     `json:"unique_parts"`
	WorkOrders     int     `json:"work_orders"`
}

type FullSummary struct {
	Summary             Summary         `json:"summary"`
	YearlyBreakdown     []YearRow       `json:"yearly_breakdown"`
	WorkCenterBreakdown []WorkCenterRow `json:"workcenter_breakdown"`
	Excluded            map[string]int  `json:"excluded"`
}

// BuildYearly is the per-year breakdown, oldest first.
func BuildYearly(records []Record, c Classifier) []YearRow {
	byYear := AggregateWith(records, ByYear, c)
	rows := make([]YearRow, 0, len(byYear))
	for _, g := range byYear {
		y, _ := strconv.Atoi(g.Key)
		rows = append(rows, YearRow{
			Year:           y,
			PlannedHours:   f64(g.PlannedHours),
			ActualHours:    f64(g.ActualHours),
			OverrunHours:   f64(g.OverrunHours),
			NCRHours:       f64(g.NCRHours),
			ActualCost:     money(g.ActualCost),
			JobCount:       g.JobCount,
			OperationCount: g.Operations,
			CustomerCount:  g.CustomerCount,
			UniqueParts:    g.PartCount,
			WorkOrders:     g.WorkOrderCount,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].Year < rows[j].Year })
	return rows
}

// BuildFullSummary is the all-time view. It applies the same eligibility policy as the
// year report, so the yearly breakdown always adds up to the headline totals.
func BuildFullSummary(records []Record, opts Options) FullSummary {
	opts = opts.Resolved()
	c := opts.Classifier
	_, excluded := Eligible(records)
	out := FullSummary{
		Summary:             summaryOf(AggregateWith(records, ByAll, c)["all"]),
		YearlyBreakdown:     BuildYearly(records, c),
		WorkCenterBreakdown: make([]WorkCenterRow, 0),
		Excluded:            excluded,
	}
	for _, g := range SortGroups(AggregateWith(records, ByWorkCenter, c), MetricActualHours, 0) {
		out.WorkCenterBreakdown = append(out.WorkCenterBreakdown, workCenterRow(g))
	}
	return out
}

// ---------- customers ----------

type CustomerRow struct {
	Name         string  `json:"name"`
	ListName     string  `json:"list_name"`
	JobCount     int     `json:"job_count"`
	PlannedHours float64 `json:"planned_hours"`
	ActualHours  float64 `json:"actual_hours"`
	OverrunHours float64 `json:"overrun_hours"`
	PlannedCost  float64 `json:"planned_cost"`
	ActualCost   float64 `json:"actual_cost"`
	OverrunCost  float64 `json:"overrun_cost"`
	Revenue      float64 `json:"revenue"`
	Profit       float64 `json:"profit"`
	ProfitMargin Percent `json:"profit_margin"`
}

type CustomerReport struct {
	Customers               []CustomerRow `json:"customers"`
	TopCustomer             string        `json:"top_customer"`
	TopCustomerListName     string        `json:"top_customer_list_name"`
	OverrunCustomer         string        `json:"overrun_customer"`
	OverrunCustomerListName string        `json:"overrun_customer_list_name"`
	RepeatRate              Percent       `json:"repeat_rate"`
	AvgMargin               Percent       `json:"avg_margin"`
}

// ListName shortens a customer name for compact tables: two-word names longer than
// 12 characters become "Aero.Dyn.", other long names are cut to 10 characters.
func ListName(name string) string {
	if utf8.RuneCountInString(name) <= DefaultListNameLength {
		return name
	}
	words := strings.Fields(name)
	if len(words) >= 2 {
		return prefix(words[0], 4) + "." + prefix(words[1], 3) + "."
	}
	return prefix(name, 10) + "."
}

func prefix(s string, n int) string {
	r := []rune(s)
	if len(r) <= n {
		return s
	}
	return string(r[:n])
}

// BuildCustomerReport ranks customers by opts.CustomerBy. The top customer earns the most
// revenue, the overrun customer carries the largest overrun cost; ties go to the name first
// in order.
func BuildCustomerReport(records []Record, opts Options) CustomerReport {
	opts = opts.Resolved()
	c := opts.Classifier
	groups := AggregateWith(records, ByCustomer, c)
	out := CustomerReport{Customers: make([]CustomerRow, 0, len(groups))}

	var revenue, cost decimal.Decimal
	var topRev, topOver decimal.Decimal
	repeat := 0
	for _, g := range SortGroups(groups, opts.CustomerBy, 0) {
		rev := opts.Pricing.Revenue(g)
		revenue = revenue.Add(rev)
		cost = cost.Add(g.ActualCost)
		if g.JobCount > 1 {
			repeat++
		}
		if out.TopCustomer == "" || rev.GreaterThan(topRev) || (rev.Equal(topRev) && g.Key < out.TopCustomer) {
			out.TopCustomer, topRev = g.Key, rev
		}
		if out.OverrunCustomer == "" || g.OverrunCost.GreaterThan(topOver) || (g.OverrunCost.Equal(topOver) && g.Key < out.OverrunCustomer) {
			out.OverrunCustomer, topOver = g.Key, g.OverrunCost
		}
		out.Customers = append(out.Customers, CustomerRow{
			Name:         g.Key,
			ListName:     ListName(g.Key),
			JobCount:     g.JobCount,
			PlannedHours: f64(g.PlannedHours),
			ActualHours:  f64(g.ActualHours),
			OverrunHours: f64(g.OverrunHours),
			PlannedCost:  money(g.PlannedCost),
			ActualCost:   money(g.ActualCost),
			OverrunCost:  money(g.OverrunCost),
			Revenue:      money(rev),
			Profit:       money(rev.Sub(g.ActualCost)),
			ProfitMargin: ProfitMargin(rev, g.ActualCost),
		})
	}
	out.TopCustomerListName = ListName(out.TopCustomer)
	out.OverrunCustomerListName = ListName(out.OverrunCustomer)
	out.RepeatRate = ratioPercent(decimal.NewFromInt(int64(repeat)), decimal.NewFromInt(int64(len(groups))))
	out.AvgMargin = ProfitMargin(revenue, cost)
	return out
}

// ---------- work centers ----------

type WorkCenterReport struct {
	WorkCenters    []WorkCenterRow `json:"work_centers"`
	MostUsed       string          `json:"most_used_wc"`
	HighestOverrun string          `json:"overrun_wc"`
	AvgUtilization Percent         `json:"avg_util"`
}

// BuildWorkCenterReport sorts by opts.WorkCenterBy. Average utilization is the mean over
// work centers with planned hours; centers without any stay out of the mean.
func BuildWorkCenterReport(records []Record, opts Options) WorkCenterReport {
	opts = opts.Resolved()
	groups := AggregateWith(records, ByWorkCenter, opts.Classifier)
	out := WorkCenterReport{WorkCenters: make([]WorkCenterRow, 0, len(groups))}

	var utilSum, mostHours, mostOver decimal.Decimal
	utilN := 0
	for _, g := range SortGroups(groups, opts.WorkCenterBy, 0) {
		row := workCenterRow(g)
		out.WorkCenters = append(out.WorkCenters, row)
		if row.Utilization.Valid {
			utilSum = utilSum.Add(row.Utilization.Value)
			utilN++
		}
		if out.MostUsed == "" || g.ActualHours.GreaterThan(mostHours) || (g.ActualHours.Equal(mostHours) && g.Key < out.MostUsed) {
			out.MostUsed, mostHours = g.Key, g.ActualHours
		}
		if out.HighestOverrun == "" || g.OverrunCost.GreaterThan(mostOver) || (g.OverrunCost.Equal(mostOver) && g.Key < out.HighestOverrun) {
			out.HighestOverrun, mostOver = g.Key, g.OverrunCost
		}
	}
	if utilN > 0 {
		out.AvgUtilization = Percent{Value: utilSum.Div(decimal.NewFromInt(int64(utilN))), Valid: true}
	}
	return out
}

// ---------- parts ----------

type PartRow struct {
	PartName     string  `json:"part_name"`
	JobCount     int     `json:"job_count"`
	PlannedHours float64 `json:"planned_hours"`
	ActualHours  float64 `json:"actual_hours"`
	OverrunHours float64 `json:"overrun_hours"`
	ActualCost   float64 `json:"actual_cost"`
	// ROI is planned minus actual cost: positive when the part came in under estimate.
	ROI float64 `json:"roi"`
}

// BuildPartReport lists parts by actual hours, largest first, up to limit (default 100).
func BuildPartReport(records []Record, limit int, c Classifier) []PartRow {
	if limit <= 0 {
		limit = DefaultPartReportN
	}
	groups := SortGroups(AggregateWith(records, ByPart, c), MetricActualHours, limit)
	rows := make([]PartRow, 0, len(groups))
	for _, g := range groups {
		rows = append(rows, PartRow{
			PartName:     g.Key,
			JobCount:     g.JobCount,
			PlannedHours: f64(g.PlannedHours),
			ActualHours:  f64(g.ActualHours),
			OverrunHours: f64(g.OverrunHours),
			ActualCost:   money(g.ActualCost),
			ROI:          money(g.PlannedCost.Sub(g.ActualCost)),
		})
	}
	return rows
}

// ---------- trends ----------

type TrendPoint struct {
	Year      int     `json:"year"`
	TotalCost float64 `json:"total_cost"`
}

// BuildTrends is the yearly actual cost, oldest first.
func BuildTrends(records []Record, c Classifier) []TrendPoint {
	byYear := AggregateWith(records, ByYear, c)
	out := make([]TrendPoint, 0, len(byYear))
	for _, g := range byYear {
		y, _ := strconv.Atoi(g.Key)
		out = append(out, TrendPoint{Year: y, TotalCost: money(g.ActualCost)})
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Year < out[j].Year })
	return out
}

// ---------- NCR part details ----------

type NCRJobRow struct {
	JobNumber       string  `json:"job_number"`
	WorkOrderNumber string  `json:"work_order_number"`
	NCRHours        float64 `json:"ncr_hours"`
}

type NCRDetails struct {
	JobData         []NCRJobRow `json:"job_data"`
	AllTimeAverages NCRAverages `json:"all_time_averages"`
}

// NCRPartDetails breaks one part's NCR hours in a year down by job and work order.
// The all-time averages come from records, not only the filtered part.
func NCRPartDetails(records []Record, part string, year int, c Classifier) NCRDetails {
	subset := make([]Record, 0)
	for _, r := range NCRRecords(records, c) {
		if r.PartName == part && r.Year() == year {
			subset = append(subset, r)
		}
	}
	groups := AggregateWith(subset, ByJobWorkOrder, c)
	keys := make([]string, 0, len(groups))
	for k := range groups {
		keys = append(keys, k)
	}
	sort.Strings(keys)

	out := NCRDetails{JobData: make([]NCRJobRow, 0, len(keys)), AllTimeAverages: ComputeNCRAverages(records, c)}
	for _, k := range keys {
		job, wo := SplitKey(k)
		out.JobData = append(out.JobData, NCRJobRow{JobNumber: job, WorkOrderNumber: wo, NCRHours: f64(groups[k].NCRHours)})
	}
	return out
}

// ---------- filter / detail rows ----------

// DetailRow is one record as shown in drill-down tables.
type DetailRow struct {
	JobNumber       string  `json:"job_number"`
	CustomerName    string  `json:"customer_name"`
	PartName        string  `json:"part_name"`
	WorkOrderNumber string  `json:"work_order_number"`
	WorkCenter      string  `json:"work_center"`
	TaskDescription string  `json:"task_description"`
	PlannedHours    float64 `json:"planned_hours"`
	ActualHours     float64 `json:"actual_hours"`
	OverrunHours    float64 `json:"overrun_hours"`
	FinishDate      string  `json:"operation_finish_date"`
}

func detailRow(r Record) DetailRow {
	return DetailRow{
		JobNumber:       r.JobNumber,
		CustomerName:    r.Customer,
		PartName:        r.PartName,
		WorkOrderNumber: r.WorkOrderNumber,
		WorkCenter:      r.WorkCenter,
		TaskDescription: r.TaskDescription,
		PlannedHours:    f64(r.PlannedHours),
		ActualHours:     f64(r.ActualHours),
		OverrunHours:    f64(r.OverrunHours()),
		FinishDate:      r.Date.Format(dateLayout),
	}
}

// newestFirst orders drill-down rows by date desc, then by the overrun ranking.
func newestFirst(a, b Record) bool {
	if !a.Date.Equal(b.Date) {
		return a.Date.After(b.Date)
	}
	return overrunLess(a, b)
}

// Filter narrows records for the deep-dive table. Text fields match as
// case-insensitive substrings; a zero Year matches every year.
type Filter struct {
	Year       int
	Customer   string
	Part       string
	WorkCenter string
	Limit      int
}

func containsFold(s, sub string) bool {
	return sub == "" || strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

func (f Filter) Match(r Record) bool {
	if f.Year != 0 && r.Year() != f.Year {
		return false
	}
	return containsFold(r.Customer, f.Customer) &&
		containsFold(r.PartName, f.Part) &&
		containsFold(r.WorkCenter, f.WorkCenter)
}

// FilterRecords returns eligible matching records newest first, capped at f.Limit
// (default 1000).
func FilterRecords(records []Record, f Filter) []DetailRow {
	limit := f.Limit
	if limit <= 0 {
		limit = DefaultFilterLimit
	}
	matched := make([]Record, 0)
	for _, r := range records {
		if r.Eligible() && f.Match(r) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return newestFirst(matched[i], matched[j]) })
	if len(matched) > limit {
		matched = matched[:limit]
	}
	rows := make([]DetailRow, 0, len(matched))
	for _, r := range matched {
		rows = append(rows, detailRow(r))
	}
	return rows
}

// ---------- metric detail ----------

// Trend directions.
const (
	TrendUp   = "up"
	TrendDown = "down"
	TrendFlat = "flat"
)

type metricDef struct {
	value func(Group) decimal.Decimal
	// row selects the drill-down records; nil selects all.
	row func(Record, Classifier) bool
}

var metricDefs = map[string]metricDef{
	"planned_hours": {
		value: func(g Group) decimal.Decimal { return g.PlannedHours },
		row:   func(r Record, _ Classifier) bool { return r.PlannedHours.IsPositive() },
	},
	"actual_hours": {
		value: func(g Group) decimal.Decimal { return g.ActualHours },
		row:   func(r Record, _ Classifier) bool { return r.ActualHours.IsPositive() },
	},
	"overrun_hours": {
		value: func(g Group) decimal.Decimal { return g.OverrunHours },
		row:   isOverrun,
	},
	"ncr_hours": {
		value: func(g Group) decimal.Decimal { return g.NCRHours },
		row:   func(r Record, c Classifier) bool { return c.IsNCR(r) },
	},
	"planned_cost": {value: func(g Group) decimal.Decimal { return g.PlannedCost }},
	"actual_cost":  {value: func(g Group) decimal.Decimal { return g.ActualCost }},
	"overrun_cost": {
		value: func(g Group) decimal.Decimal { return g.OverrunCost },
		row:   isOverrun,
	},
	"overrun_percent": {
		value: func(g Group) decimal.Decimal { return OverrunPercent(g).Value },
		row:   isOverrun,
	},
	"total_jobs":       {value: func(g Group) decimal.Decimal { return decimal.NewFromInt(int64(g.JobCount)) }},
	"total_operations": {value: func(g Group) decimal.Decimal { return decimal.NewFromInt(int64(g.Operations)) }},
	"total_customers":  {value: func(g Group) decimal.Decimal { return decimal.NewFromInt(int64(g.CustomerCount)) }},
}

func isOverrun(r Record, _ Classifier) bool { return r.OverrunHours().IsPositive() }

// MetricNames lists the metrics BuildMetricDetail accepts, sorted.
func MetricNames() []string {
	names := make([]string, 0, len(metricDefs))
	for k := range metricDefs {
		names = append(names, k)
	}
	sort.Strings(names)
	return names
}

type MetricPoint struct {
	Year  int     `json:"year"`
	Value float64 `json:"value"`
}

type MetricDetail struct {
	Metric         string        `json:"metric"`
	Total          float64       `json:"total"`
	YearlyAvg      float64       `json:"yearly_avg"`
	YoYChange      Percent       `json:"yoy_change"`
	TrendDirection string        `json:"trend_direction"`
	Yearly         []MetricPoint `json:"yearly"`
	Count          int           `json:"count"`
	Rows           []DetailRow   `json:"rows"`
}

// BuildMetricDetail reports one metric across years. The year-over-year change compares
// the last two years present; with fewer than two it is undefined and the trend is flat.
// Drill-down rows are newest first and capped at rowLimit (default 1000); Count is uncapped.
func BuildMetricDetail(records []Record, metric string, rowLimit int, c Classifier) (MetricDetail, error) {
	def, ok := metricDefs[metric]
	if !ok {
		return MetricDetail{}, &UnsupportedMetricError{Metric: metric}
	}
	if rowLimit <= 0 {
		rowLimit = DefaultFilterLimit
	}

	out := MetricDetail{Metric: metric, TrendDirection: TrendFlat, Yearly: make([]MetricPoint, 0)}
	out.Total = def.value(AggregateWith(records, ByAll, c)["all"]).Round(2).InexactFloat64()

	byYear := AggregateWith(records, ByYear, c)
	years := make([]int, 0, len(byYear))
	for k := range byYear {
		y, _ := strconv.Atoi(k)
		years = append(years, y)
	}
	sort.Ints(years)

	vals := make([]decimal.Decimal, 0, len(years))
	sum := decimal.Zero
	for _, y := range years {
		v := def.value(byYear[strconv.Itoa(y)])
		vals = append(vals, v)
		sum = sum.Add(v)
		out.Yearly = append(out.Yearly, MetricPoint{Year: y, Value: v.Round(2).InexactFloat64()})
	}
	if len(vals) > 0 {
		out.YearlyAvg = sum.Div(decimal.NewFromInt(int64(len(vals)))).Round(2).InexactFloat64()
	}
	if n := len(vals); n >= 2 {
		prev, last := vals[n-2], vals[n-1]
		out.YoYChange = ratioPercent(last.Sub(prev), prev)
		switch last.Cmp(prev) {
		case 1:
			out.TrendDirection = TrendUp
		case -1:
			out.TrendDirection = TrendDown
		}
	}

	matched := make([]Record, 0)
	for _, r := range records {
		if r.Eligible() && (def.row == nil || def.row(r, c)) {
			matched = append(matched, r)
		}
	}
	sort.SliceStable(matched, func(i, j int) bool { return newestFirst(matched[i], matched[j]) })
	out.Count = len(matched)
	if len(matched) > rowLimit {
		matched = matched[:rowLimit]
	}
	out.Rows = make([]DetailRow, 0, len(matched))
	for _, r := range matched {
		out.Rows = append(out.Rows, detailRow(r))
	}
	return out, nil
}

// LatestYear is the most recent eligible year, or the current year when there is none.
func LatestYear(records []Record, now time.Time) int {
	if ys := Years(records); len(ys) > 0 {
		return ys[len(ys)-1]
	}
	return now.Year()
}
