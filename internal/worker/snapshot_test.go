package worker_test

import (
	"context"
	"encoding/json"
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus/testutil"
	"github.com/robfig/cron/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/observability"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlite"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlrepo"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/worker"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

func seeded(t *testing.T) *services.ReportService {
	t.Helper()
	db, err := sqlite.Open(context.Background(), sqlite.MemoryPath)
	require.NoError(t, err)
	t.Cleanup(func() { db.Close() })
	svc := services.NewReportService(&sqlrepo.WorkHistoryRepo{DB: db}, wh.Normalizer{}, wh.NewOptions(), zap.NewNop())
	_, err = svc.Ingest(context.Background(), []wh.RawRecord{
		{JobID: "J1", Date: "2023-04-01", WorkCenter: "WELD", PlannedHours: "4", ActualHours: "6"},
		{JobID: "J2", Date: "2024-07-01", WorkCenter: "CNC", PlannedHours: "3", ActualHours: "2"},
	})
	require.NoError(t, err)
	return svc
}

func TestSnapshotRun(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "snaps")
	m := observability.New()
	s := &worker.Snapshotter{
		Reports: seeded(t),
		Dir:     dir,
		Metrics: m,
		Clock:   util.FixedClock{T: time.Date(2025, 1, 2, 3, 4, 5, 0, time.UTC)},
	}

	res, err := s.Run(context.Background())
	require.NoError(t, err)
	assert.Equal(t, []int{2023, 2024}, res.Years)
	assert.Equal(t, []string{"year-2023.json", "year-2024.json", "full.json"}, res.Files)

	b, err := os.ReadFile(filepath.Join(dir, "year-2023.json"))
	require.NoError(t, err)
	var rep wh.YearReport
	require.NoError(t, json.Unmarshal(b, &rep))
	assert.Equal(t, 2023, rep.Year)
	assert.InDelta(t, 2.0, rep.Summary.TotalOverrunHours, 1e-9)

	b, err = os.ReadFile(filepath.Join(dir, "index.json"))
	require.NoError(t, err)
	var idx worker.Result
	require.NoError(t, json.Unmarshal(b, &idx))
	assert.True(t, idx.GeneratedAt.Equal(s.Clock.Now()))

	matches, _ := filepath.Glob(filepath.Join(dir, "*.tmp"))
	assert.Empty(t, matches)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotRuns.WithLabelValues("ok")))
}

type brokenReporter struct{}

func (brokenReporter) AllYearReports(context.Context) (map[int]wh.YearReport, wh.FullSummary, error) {
	return nil, wh.FullSummary{}, errors.New("db gone")
}

func TestSnapshotFailureCounted(t *testing.T) {
	m := observability.New()
	s := &worker.Snapshotter{Reports: brokenReporter{}, Dir: t.TempDir(), Metrics: m}
	_, err := s.Run(context.Background())
	require.Error(t, err)
	assert.Equal(t, 1.0, testutil.ToFloat64(m.SnapshotRuns.WithLabelValues("error")))
}

func TestSchedule(t *testing.T) {
	c := cron.New(cron.WithParser(worker.Parser))
	s := &worker.Snapshotter{Reports: brokenReporter{}, Dir: t.TempDir()}

	_, err := worker.Schedule(c, "@every 30m", s, time.Second)
	require.NoError(t, err)
	_, err = worker.Schedule(c, "*/5 * * * *", s, time.Second)
	require.NoError(t, err)
	_, err = worker.Schedule(c, "every thursday", s, time.Second)
	assert.Error(t, err)
	assert.Len(t, c.Entries(), 2)
}
