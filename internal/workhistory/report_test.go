package workhistory_test

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/google/go-cmp/cmp"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

func TestYearReportEmptyInput(t *testing.T) {
	rep := wh.BuildYearReport(nil, 2024, wh.NewOptions(), wh.Context{})

	assert.Equal(t, 2024, rep.Summary.Year)
	assert.Zero(t, rep.Summary.TotalPlannedHours)
	assert.Zero(t, rep.Summary.TotalActualCost)
	assert.Zero(t, rep.Summary.TotalJobs)
	assert.Zero(t, rep.Summary.RecommendedBufferPercent)
	assert.False(t, rep.Summary.OverrunPercent.Valid)

	require.Len(t, rep.QuarterlySummary, 4)
	for i, q := range rep.QuarterlySummary {
		assert.Equal(t, i+1, q.Quarter)
		assert.Zero(t, q.PlannedHours)
		assert.Zero(t, q.TotalJobs)
	}

	b, err := json.Marshal(rep)
	require.NoError(t, err)
	var m map[string]any
	require.NoError(t, json.Unmarshal(b, &m))
	for _, k := range []string{"top_overruns", "ncr_summary", "ncr_by_part", "workcenter_summary", "repeat_ncr_failures", "job_adjustments", "part_overruns", "part_task_details"} {
		assert.Equal(t, []any{}, m[k], k)
	}
	assert.Equal(t, "N/A", m["summary"].(map[string]any)["overrun_percent"])
}

func TestYearReportOutOfRangeHoursStillMarshal(t *testing.T) {
	recs := normalizeAll(
		raw("J1", "2024-02-01", "WELD", "4", "6"),
		raw("J2", "2024-03-01", "WELD", "5", "1e400"),
	)
	rep := wh.BuildYearReport(recs, 2024, wh.NewOptions(), wh.Context{})
	assert.Equal(t, 6.0, rep.Summary.TotalActualHours)
	assert.Equal(t, 9.0, rep.Summary.TotalPlannedHours)

	_, err := json.Marshal(rep)
	require.NoError(t, err)
}

func TestYearReportGrandTotalExcluded(t *testing.T) {
	recs := normalizeAll(
		raw("J1", "2024-05-01", "Grand Total", "10", "20"),
		raw("J2", "2024-05-01", "WELD", "4", "4"),
	)
	rep := wh.BuildYearReport(recs, 2024, wh.NewOptions(), wh.Context{})

	require.Len(t, rep.WorkCenterSummary, 1)
	assert.Equal(t, "WELD", rep.WorkCenterSummary[0].WorkCenter)
	assert.Equal(t, 4.0, rep.Summary.TotalPlannedHours)
	assert.Zero(t, rep.Summary.TotalOverrunHours)
	assert.Empty(t, rep.TopOverruns)
	assert.Equal(t, 1, rep.Excluded[wh.ExcludedInvalidWorkCenter])

	full := wh.BuildFullSummary(recs, wh.NewOptions())
	assert.Equal(t, 4.0, full.Summary.TotalPlannedHours)
	assert.Equal(t, 1, full.Excluded[wh.ExcludedInvalidWorkCenter])
}

func TestTopOverrunsReturnsLargestN(t *testing.T) {
	raws := make([]wh.RawRecord, 0, 25)
	for i := 1; i <= 25; i++ {
		raws = append(raws, raw(fmt.Sprintf("J%02d", i), "2024-06-01", "WELD", "10", fmt.Sprint(10+i)))
	}
	rep := wh.BuildYearReport(normalizeAll(raws...), 2024, wh.NewOptions(), wh.Context{})

	require.Len(t, rep.TopOverruns, 20)
	for i, row := range rep.TopOverruns {
		assert.Equal(t, float64(25-i), row.OverrunHours)
		assert.Equal(t, fmt.Sprintf("J%02d", 25-i), row.JobNumber)
	}

	top5 := wh.TopOverruns(normalizeAll(raws...), 5, nil)
	require.Len(t, top5, 5)
	assertDec(t, "21", top5[4].OverrunHours())
	assert.Empty(t, wh.TopOverruns(normalizeAll(raws...), 0, nil))
}

func TestTopOverrunsTieBreak(t *testing.T) {
	a := raw("B-2", "2024-01-01", "WELD", "10", "12")
	b := raw("A-1", "2024-01-01", "WELD", "10", "12")
	c := raw("C-3", "2024-01-01", "WELD", "10", "12")
	c.LaborRate = "300"
	top := wh.TopOverruns(normalizeAll(a, b, c), 10, nil)
	require.Len(t, top, 3)
	assert.Equal(t, []string{"C-3", "A-1", "B-2"}, []string{top[0].JobNumber, top[1].JobNumber, top[2].JobNumber})
}

func TestTopOverrunsExcludedTasks(t *testing.T) {
	a := raw("J1", "2024-01-01", "WELD", "1", "50")
	a.TaskDescription = "dismantling & inspection"
	b := raw("J2", "2024-01-01", "WELD", "1", "2")
	rep := wh.BuildYearReport(normalizeAll(a, b), 2024, wh.NewOptions(), wh.Context{})
	require.Len(t, rep.TopOverruns, 1)
	assert.Equal(t, "J2", rep.TopOverruns[0].JobNumber)

	rep = wh.BuildYearReport(normalizeAll(a, b), 2024, wh.NewOptions(wh.WithExcludedTasks([]string{})), wh.Context{})
	assert.Len(t, rep.TopOverruns, 2)
}

func TestRepeatFailures(t *testing.T) {
	mk := func(job, part, notes, actual string) wh.RawRecord {
		r := raw(job, "2024-02-01", "WELD", "1", actual)
		r.PartName = wh.Flex(part)
		r.Notes = wh.Flex(notes)
		return r
	}
	recs := normalizeAll(
		mk("J1", "Valve", "NCR: porosity", "3"),
		mk("J2", "Valve", "NCR: porosity again", "2"),
		mk("J3", "Shaft", "NCR: out of round", "9"),
		mk("J4", "Shaft", "fine", "9"),
		mk("J5", "Gear", "quality issue", "5"),
		mk("J6", "Gear", "quality issue", "5"),
	)
	got := wh.RepeatFailures(recs, wh.NewClassifier(nil), 10)
	require.Len(t, got, 2)
	assert.Equal(t, "Gear", got[0].Key)
	assert.Equal(t, "Valve", got[1].Key)
	assert.Equal(t, 2, got[1].JobCount)

	assert.Len(t, wh.RepeatFailures(recs, wh.NewClassifier(nil), 1), 1)

	rep := wh.BuildYearReport(recs, 2024, wh.NewOptions(), wh.Context{})
	require.Len(t, rep.RepeatNCRFailures, 2)
	require.Len(t, rep.NCRByPart, 3)
	assert.Equal(t, []string{"Gear", "Shaft", "Valve"}, []string{rep.NCRByPart[0].PartName, rep.NCRByPart[1].PartName, rep.NCRByPart[2].PartName})
	assert.Equal(t, 9.0, rep.NCRByPart[1].TotalNCRHours)
	assert.Len(t, rep.NCRSummary, 5)
}

func TestYearTotalsEqualQuarterSums(t *testing.T) {
	recs := fixture(600, 21)
	for _, year := range []int{2023, 2024} {
		rep := wh.BuildYearReport(recs, year, wh.NewOptions(), wh.Context{})
		var planned, actual, overrun, cost float64
		for _, q := range rep.QuarterlySummary {
			planned += q.PlannedHours
			actual += q.ActualHours
			overrun += q.OverrunHours
			cost += q.OverrunCost
		}
		assert.InDelta(t, rep.Summary.TotalPlannedHours, planned, 1e-6, "year %d", year)
		assert.InDelta(t, rep.Summary.TotalActualHours, actual, 1e-6, "year %d", year)
		assert.InDelta(t, rep.Summary.TotalOverrunHours, overrun, 1e-6, "year %d", year)
		assert.InDelta(t, rep.Summary.OpportunityCostDollars, cost, 0.05, "year %d", year)
	}

	full := wh.BuildFullSummary(recs, wh.NewOptions())
	var planned float64
	for _, y := range full.YearlyBreakdown {
		planned += y.PlannedHours
	}
	assert.InDelta(t, full.Summary.TotalPlannedHours, planned, 1e-6)
}

func TestYearReportOrderIndependent(t *testing.T) {
	recs := fixture(400, 17)
	opts := wh.NewOptions()
	rc := wh.Context{NCRAverages: wh.ComputeNCRAverages(recs, opts.Classifier)}
	want := wh.BuildYearReport(recs, 2024, opts, rc)
	got := wh.BuildYearReport(shuffled(recs, 99), 2024, opts, rc)
	assert.Empty(t, cmp.Diff(want, got))

	wantJSON, err := json.Marshal(want)
	require.NoError(t, err)
	gotJSON, err := json.Marshal(got)
	require.NoError(t, err)
	assert.Equal(t, string(wantJSON), string(gotJSON))
}

func TestBuildYearReportsParallel(t *testing.T) {
	recs := fixture(300, 2)
	opts := wh.NewOptions(wh.WithTopN(5))
	years := wh.Years(recs)
	require.Equal(t, []int{2023, 2024}, years)

	got, err := wh.BuildYearReports(context.Background(), recs, years, opts, wh.Context{})
	require.NoError(t, err)
	require.Len(t, got, 2)
	for _, y := range years {
		assert.Empty(t, cmp.Diff(wh.BuildYearReport(recs, y, opts, wh.Context{}), got[y]))
		assert.LessOrEqual(t, len(got[y].TopOverruns), 5)
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err = wh.BuildYearReports(ctx, recs, years, opts, wh.Context{})
	assert.True(t, errors.Is(err, context.Canceled))
}

func TestNCRAveragesArePassedExplicitly(t *testing.T) {
	recs := normalizeAll(
		raw("J1", "2023-01-01", "NCR", "1", "2"),
		raw("J2", "2024-01-01", "NCR", "1", "4"),
	)
	avg := wh.ComputeNCRAverages(recs, wh.NewClassifier(nil))
	assert.Equal(t, 2, avg.YearsWithNCR)
	assert.Equal(t, 597.0, avg.AvgNCRCostPerYear)
	assert.Equal(t, 0.5, avg.AvgPartsWithNCRPerYear)

	rep := wh.BuildYearReport(recs, 2024, wh.NewOptions(), wh.Context{NCRAverages: avg})
	assert.Equal(t, avg, rep.NCRAverages)
	assert.Zero(t, wh.BuildYearReport(recs, 2024, wh.NewOptions(), wh.Context{}).NCRAverages)
}

func TestJobAdjustmentsAndPartOverruns(t *testing.T) {
	a := raw("J1", "2024-01-01", "WELD", "10", "15")
	a.TaskDescription = "Weld seam"
	b := raw("J1", "2024-01-02", "WELD", "10", "8")
	c := raw("J2", "2024-01-03", "WELD", "4", "4")
	rep := wh.BuildYearReport(normalizeAll(a, b, c), 2024, wh.NewOptions(), wh.Context{})

	require.Len(t, rep.JobAdjustments, 1)
	adj := rep.JobAdjustments[0]
	assert.Equal(t, "J1", adj.JobNumber)
	assert.Equal(t, 20.0, adj.TotalPlanned)
	assert.Equal(t, 23.0, adj.TotalActual)
	assert.Equal(t, 5.0, adj.NeededIncrease)
	assert.Equal(t, 25.0, adj.SuggestedPercentIncrease)

	require.Len(t, rep.PartOverruns, 1)
	assert.Equal(t, 10.0, rep.PartOverruns[0].TotalPlanned, "only overrunning lines count")
	assert.Equal(t, 50.0, rep.PartOverruns[0].SuggestedPercentIncrease)
	require.Len(t, rep.PartTaskDetails, 1)
	assert.Equal(t, "Weld seam", rep.PartTaskDetails[0].TaskDescription)
}

func TestProfitAnalysisLossCategories(t *testing.T) {
	mk := func(job, planned, actual, notes string) wh.RawRecord {
		r := raw(job, "2024-04-01", "WELD", planned, actual)
		r.LaborRate = "100"
		r.Notes = wh.Flex(notes)
		return r
	}
	recs := normalizeAll(
		mk("J1", "10", "20", ""),
		mk("J2", "10", "13", "waiting on material"),
		mk("J3", "10", "12.5", "vendor delay"),
		mk("J4", "10", "5", ""),
	)
	pa := wh.BuildProfitAnalysis(recs, wh.DefaultPricing, wh.DefaultLossWeights, wh.NewClassifier(nil))

	assert.Equal(t, 4, pa.TotalJobs)
	assert.Equal(t, 1, pa.ProfitableJobs)
	assert.Equal(t, 3, pa.LossJobs)
	assert.Equal(t, 4800.0, pa.TotalRevenue)
	assert.Equal(t, 5050.0, pa.TotalCost)
	assert.Equal(t, -250.0, pa.NetProfit)
	assert.InDelta(t, -5.21, pa.AvgProfitMargin.Float(), 1e-9)

	want := []wh.LossShare{
		{Category: wh.LossOvertime, Amount: 480},
		{Category: wh.LossMaterialOverrun, Amount: 70},
		{Category: wh.LossLaborInefficiency, Amount: 320},
		{Category: wh.LossThirdPartyDelays, Amount: 40},
		{Category: wh.LossOther, Amount: 40},
	}
	assert.Equal(t, want, pa.LossByCategory)
}

func TestCustomerReport(t *testing.T) {
	mk := func(job, customer, planned, actual string) wh.RawRecord {
		r := raw(job, "2024-04-01", "WELD", planned, actual)
		r.CompanyName = wh.Flex(customer)
		return r
	}
	recs := normalizeAll(
		mk("J1", "Aerospace Dynamics", "10", "12"),
		mk("J2", "Aerospace Dynamics", "10", "9"),
		mk("J3", "Acme", "30", "30"),
	)
	rep := wh.BuildCustomerReport(recs, wh.NewOptions())
	require.Len(t, rep.Customers, 2)
	assert.Equal(t, "Acme", rep.Customers[0].Name, "sorted by actual hours")
	assert.Equal(t, "Acme", rep.TopCustomer)
	assert.Equal(t, "Aerospace Dynamics", rep.OverrunCustomer)
	assert.Equal(t, "Aero.Dyn.", rep.OverrunCustomerListName)
	assert.InDelta(t, 50.0, rep.RepeatRate.Float(), 1e-9)
	assert.True(t, rep.AvgMargin.Valid)

	empty := wh.BuildCustomerReport(nil, wh.NewOptions())
	assert.Empty(t, empty.Customers)
	assert.False(t, empty.RepeatRate.Valid)
}

func TestListName(t *testing.T) {
	assert.Equal(t, "Acme", wh.ListName("Acme"))
	assert.Equal(t, "Initech Corp", wh.ListName("Initech Corp"))
	assert.Equal(t, "Aero.Dyn.", wh.ListName("Aerospace Dynamics"))
	assert.Equal(t, "Supercalif.", wh.ListName("Supercalifragilistic"))
}

func TestWorkCenterReport(t *testing.T) {
	recs := normalizeAll(
		raw("J1", "2024-01-01", "WELD", "10", "15"),
		raw("J2", "2024-01-01", "PAINT", "10", "5"),
		raw("J3", "2024-01-01", "NCR", "0", "2"),
	)
	rep := wh.BuildWorkCenterReport(recs, wh.NewOptions(wh.WithWorkCenterSort(wh.MetricActualHours)))
	require.Len(t, rep.WorkCenters, 3)
	assert.Equal(t, "WELD", rep.WorkCenters[0].WorkCenter)
	assert.Equal(t, "WELD", rep.MostUsed)
	assert.Equal(t, "WELD", rep.HighestOverrun)
	assert.False(t, rep.WorkCenters[2].Utilization.Valid)
	assert.InDelta(t, 100.0, rep.AvgUtilization.Float(), 1e-9)
}

func TestSortGroupsStable(t *testing.T) {
	groups := map[string]wh.Group{"b": {Key: "b"}, "a": {Key: "a"}, "c": {Key: "c"}}
	for i := 0; i < 5; i++ {
		got := wh.SortGroups(groups, wh.MetricOverrunCost, 0)
		assert.Equal(t, []string{"a", "b", "c"}, []string{got[0].Key, got[1].Key, got[2].Key})
	}
	assert.Len(t, wh.SortGroups(groups, wh.MetricJobCount, 2), 2)

	_, err := wh.ParseMetric("bogus")
	assert.Error(t, err)
	m, err := wh.ParseMetric("Actual_Hours")
	require.NoError(t, err)
	assert.Equal(t, wh.MetricActualHours, m)
}

func TestMetricDetail(t *testing.T) {
	recs := normalizeAll(
		raw("J1", "2023-03-01", "WELD", "10", "11"),
		raw("J2", "2024-03-01", "WELD", "15", "15"),
	)
	md, err := wh.BuildMetricDetail(recs, "planned_hours", 0, wh.NewClassifier(nil))
	require.NoError(t, err)
	assert.Equal(t, 25.0, md.Total)
	assert.Equal(t, 12.5, md.YearlyAvg)
	assert.InDelta(t, 50.0, md.YoYChange.Float(), 1e-9)
	assert.Equal(t, wh.TrendUp, md.TrendDirection)
	assert.Equal(t, []wh.MetricPoint{{Year: 2023, Value: 10}, {Year: 2024, Value: 15}}, md.Yearly)
	require.Len(t, md.Rows, 2)
	assert.Equal(t, "J2", md.Rows[0].JobNumber, "newest first")

	md, err = wh.BuildMetricDetail(recs, "overrun_hours", 0, wh.NewClassifier(nil))
	require.NoError(t, err)
	assert.Equal(t, 1, md.Count)
	assert.Equal(t, wh.TrendDown, md.TrendDirection)

	_, err = wh.BuildMetricDetail(recs, "avg_widgets", 0, wh.NewClassifier(nil))
	var unsupported *wh.UnsupportedMetricError
	require.True(t, errors.As(err, &unsupported))
	assert.Equal(t, "avg_widgets", unsupported.Metric)
}

func TestFilterRecords(t *testing.T) {
	a := raw("J1", "2024-01-01", "WELD", "1", "1")
	a.CompanyName = "Globex Corporation"
	b := raw("J2", "2024-02-01", "PAINT", "1", "1")
	c := raw("J3", "2023-02-01", "WELD", "1", "1")
	recs := normalizeAll(a, b, c)

	rows := wh.FilterRecords(recs, wh.Filter{Year: 2024})
	require.Len(t, rows, 2)
	assert.Equal(t, "J2", rows[0].JobNumber)
	assert.Equal(t, "2024-02-01", rows[0].FinishDate)

	assert.Len(t, wh.FilterRecords(recs, wh.Filter{Customer: "globex"}), 1)
	assert.Len(t, wh.FilterRecords(recs, wh.Filter{WorkCenter: "wel"}), 2)
	assert.Len(t, wh.FilterRecords(recs, wh.Filter{Limit: 1}), 1)
}

func TestTrendsAndParts(t *testing.T) {
	recs := normalizeAll(
		raw("J1", "2023-01-01", "WELD", "1", "2"),
		raw("J2", "2024-01-01", "WELD", "1", "1"),
	)
	assert.Equal(t, []wh.TrendPoint{{Year: 2023, TotalCost: 398}, {Year: 2024, TotalCost: 199}}, wh.BuildTrends(recs, wh.NewClassifier(nil)))

	parts := wh.BuildPartReport(recs, 0, wh.NewClassifier(nil))
	require.Len(t, parts, 1)
	assert.Equal(t, 2, parts[0].JobCount)
	assert.Equal(t, -199.0, parts[0].ROI)
}

func TestNCRPartDetails(t *testing.T) {
	a := raw("J1", "2024-01-01", "NCR", "1", "2")
	a.WorkOrderNumber = "WO1"
	b := raw("J1", "2024-01-02", "NCR", "1", "3")
	b.WorkOrderNumber = "WO1"
	c := raw("J2", "2024-01-02", "NCR", "1", "1")
	c.WorkOrderNumber = "WO9"
	d := raw("J3", "2023-01-02", "NCR", "1", "1")
	det := wh.NCRPartDetails(normalizeAll(a, b, c, d), "Pump Housing", 2024, wh.NewClassifier(nil))

	assert.Equal(t, []wh.NCRJobRow{
		{JobNumber: "J1", WorkOrderNumber: "WO1", NCRHours: 5},
		{JobNumber: "J2", WorkOrderNumber: "WO9", NCRHours: 1},
	}, det.JobData)
	assert.Equal(t, 2, det.AllTimeAverages.YearsWithNCR)
}

func TestLatestYear(t *testing.T) {
	now := time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
	assert.Equal(t, 2026, wh.LatestYear(nil, now))
	assert.Equal(t, 2024, wh.LatestYear(fixture(50, 4), now))
}
