package services_test

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/observability"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlite"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlrepo"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

func newService(t *testing.T) *services.ReportService {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := services.NewReportService(&sqlrepo.WorkHistoryRepo{DB: db}, wh.Normalizer{}, wh.NewOptions(), zap.NewNop())
	svc.Metrics = observability.New()
	svc.Clock = util.FixedClock{T: time.Date(2025, 6, 1, 0, 0, 0, 0, time.UTC)}
	return svc
}

func raw(job, date, wc, customer, part, planned, actual string) wh.RawRecord {
	return wh.RawRecord{
		JobID: wh.Flex(job), JobNumber: wh.Flex(job), Date: wh.Flex(date),
		WorkCenter: wh.Flex(wc), CompanyName: wh.Flex(customer), PartName: wh.Flex(part),
		PlannedHours: wh.Flex(planned), ActualHours: wh.Flex(actual),
	}
}

func sample() []wh.RawRecord {
	return []wh.RawRecord{
		raw("J1", "2024-02-10", "WELD", "Acme", "Valve", "10", "12"),
		raw("J1", "2024-03-05", "WELD", "Acme", "Valve", "5", "5"),
		raw("J2", "2024-08-01", "PAINT", "Beta", "Shaft", "8", "6"),
		raw("J3", "2023-05-05", "NCR", "Acme", "Valve", "2", "4"),
		raw("J4", "2024-09-09", "Grand Total", "Acme", "Valve", "100", "200"),
	}
}

func TestIngestAndYearReport(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	res, err := svc.Ingest(ctx, sample())
	require.NoError(t, err)
	assert.Equal(t, 5, res.Stored)
	assert.NotEmpty(t, res.BatchID)
	assert.Equal(t, []int{2023, 2024}, res.Years)
	assert.Equal(t, 1, sumCounts(res.Excluded))

	rep, err := svc.YearReport(ctx, 2024)
	require.NoError(t, err)
	assert.Equal(t, 2024, rep.Year)
	assert.InDelta(t, 23.0, rep.Summary.TotalPlannedHours, 1e-9)
	assert.InDelta(t, 23.0, rep.Summary.TotalActualHours, 1e-9)
	assert.InDelta(t, 2.0, rep.Summary.TotalOverrunHours, 1e-9)
	assert.Equal(t, 2, rep.Summary.TotalJobs)
	require.Len(t, rep.QuarterlySummary, 4)
	assert.Equal(t, 1, rep.NCRAverages.YearsWithNCR)

	empty, err := svc.YearReport(ctx, 2019)
	require.NoError(t, err)
	assert.Zero(t, empty.Summary.TotalOperations)
	assert.False(t, empty.Summary.OverrunPercent.Valid)
}

func sumCounts(m map[string]int) int {
	n := 0
	for _, v := range m {
		n += v
	}
	return n
}

func TestYearReportOptionOverride(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, sample())
	require.NoError(t, err)

	rep, err := svc.YearReport(ctx, 2024, wh.WithTopN(1), wh.WithWorkCenterSort(wh.MetricActualHours))
	require.NoError(t, err)
	assert.Len(t, rep.TopOverruns, 1)
	require.Len(t, rep.WorkCenterSummary, 2)
	assert.Equal(t, "WELD", rep.WorkCenterSummary[0].WorkCenter)

	// the service defaults are untouched by a per-call override
	again, err := svc.YearReport(ctx, 2024)
	require.NoError(t, err)
	assert.Len(t, again.TopOverruns, 1)
	assert.Equal(t, wh.DefaultTopN, svc.Options.TopN)
}

func TestYearOutOfRange(t *testing.T) {
	svc := newService(t)
	_, err := svc.YearReport(context.Background(), 42)
	var ae util.AppError
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, util.CodeBadInput, ae.Code)
}

func TestIngestValidation(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	_, err := svc.Ingest(ctx, nil)
	assert.Equal(t, 400, util.HTTPStatus(err))

	bad := sample()
	bad[2].JobID, bad[2].JobNumber = "", ""
	_, err = svc.Ingest(ctx, bad)
	require.Error(t, err)
	assert.Equal(t, 422, util.HTTPStatus(err))
	ae := util.AsAppError(err)
	issues, ok := ae.Details.([]wh.Issue)
	require.True(t, ok)
	require.Len(t, issues, 1)
	assert.Equal(t, 2, issues[0].Row)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.Zero(t, stats.TotalRows, "a rejected upload stores nothing")
}

func TestViews(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, sample())
	require.NoError(t, err)

	full, err := svc.FullSummary(ctx)
	require.NoError(t, err)
	assert.Equal(t, 3, full.Summary.TotalJobs)
	require.Len(t, full.YearlyBreakdown, 2)

	yearly, err := svc.Yearly(ctx)
	require.NoError(t, err)
	assert.Equal(t, full.YearlyBreakdown, yearly)

	cust, err := svc.Customers(ctx, 2024)
	require.NoError(t, err)
	assert.Len(t, cust.Customers, 2)

	wcs, err := svc.WorkCenters(ctx, 0)
	require.NoError(t, err)
	assert.Len(t, wcs.WorkCenters, 3)

	parts, err := svc.Parts(ctx, 0, 1)
	require.NoError(t, err)
	require.Len(t, parts, 1)
	assert.Equal(t, "Valve", parts[0].PartName)

	trends, err := svc.Trends(ctx)
	require.NoError(t, err)
	assert.Len(t, trends, 2)

	ncr, err := svc.NCRDetails(ctx, "Valve", 2023)
	require.NoError(t, err)
	require.Len(t, ncr.JobData, 1)
	assert.InDelta(t, 4.0, ncr.JobData[0].NCRHours, 1e-9)

	_, err = svc.NCRDetails(ctx, "", 2023)
	assert.Equal(t, 400, util.HTTPStatus(err))
}

func TestMetricDetail(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, sample())
	require.NoError(t, err)

	d, err := svc.MetricDetail(ctx, "actual_hours", 10)
	require.NoError(t, err)
	assert.InDelta(t, 27.0, d.Total, 1e-9)
	assert.Equal(t, wh.TrendUp, d.TrendDirection)

	_, err = svc.MetricDetail(ctx, "vibes", 10)
	assert.Equal(t, 422, util.HTTPStatus(err))
}

func TestFilterPushdown(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	in := sample()
	in = append(in, raw("J9", "2024-01-01", "WELD", "", "", "1", "1"))
	_, err := svc.Ingest(ctx, in)
	require.NoError(t, err)

	rows, err := svc.Filter(ctx, wh.Filter{Year: 2024, Customer: "acm"})
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "2024-03-05", rows[0].FinishDate)

	// defaulted labels only exist after normalization
	rows, err = svc.Filter(ctx, wh.Filter{Customer: "unknown"})
	require.NoError(t, err)
	require.Len(t, rows, 1)
	assert.Equal(t, "J9", rows[0].JobNumber)
	rows, err = svc.Filter(ctx, wh.Filter{Part: "unknown part"})
	require.NoError(t, err)
	assert.Len(t, rows, 1)
}

func TestBreakdown(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, sample())
	require.NoError(t, err)

	rows, err := svc.Breakdown(ctx, "customer", 0, "actual_hours", 0)
	require.NoError(t, err)
	require.Len(t, rows, 2)
	assert.Equal(t, "Acme", rows[0].Key)
	assert.InDelta(t, 21.0, rows[0].ActualHours, 1e-9)

	_, err = svc.Breakdown(ctx, "planet", 0, "", 0)
	assert.Equal(t, 422, util.HTTPStatus(err))
	_, err = svc.Breakdown(ctx, "part", 0, "loudness", 0)
	assert.Equal(t, 400, util.HTTPStatus(err))
}

func TestAllYearReports(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()
	_, err := svc.Ingest(ctx, sample())
	require.NoError(t, err)

	reports, full, err := svc.AllYearReports(ctx)
	require.NoError(t, err)
	assert.Len(t, reports, 2)
	assert.Contains(t, reports, 2023)
	assert.Equal(t, full.Summary.TotalJobs, reports[2023].Summary.TotalJobs+reports[2024].Summary.TotalJobs)
}

func TestDefaultYearAndBatches(t *testing.T) {
	svc := newService(t)
	ctx := context.Background()

	y, err := svc.DefaultYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2025, y)

	res, err := svc.Ingest(ctx, sample())
	require.NoError(t, err)
	y, err = svc.DefaultYear(ctx)
	require.NoError(t, err)
	assert.Equal(t, 2024, y)

	stats, err := svc.Stats(ctx)
	require.NoError(t, err)
	assert.EqualValues(t, 5, stats.TotalRows)
	require.Len(t, stats.Batches, 1)
	assert.Equal(t, res.BatchID, stats.Batches[0].BatchID)

	n, err := svc.DeleteBatch(ctx, res.BatchID)
	require.NoError(t, err)
	assert.EqualValues(t, 5, n)
	_, err = svc.DeleteBatch(ctx, res.BatchID)
	assert.Equal(t, 404, util.HTTPStatus(err))
}

type failingStore struct{ services.Store }

func (failingStore) List(context.Context, sqlrepo.Filter) ([]wh.RawRecord, error) {
	return nil, errors.New("dial tcp 10.1.2.3:3306: connect: connection refused")
}

func TestStoreErrorsAreInternal(t *testing.T) {
	svc := services.NewReportService(failingStore{}, wh.Normalizer{}, wh.NewOptions(), nil)
	_, err := svc.FullSummary(context.Background())
	require.Error(t, err)
	assert.Equal(t, 500, util.HTTPStatus(err))
	assert.NotContains(t, util.AsAppError(err).Message, "10.1.2.3")
}
