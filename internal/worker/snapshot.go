// internal/worker/snapshot.go
// Job snapshot: bangun laporan semua tahun lalu tulis JSON ke direktori snapshot.

package worker

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/observability"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

// Reporter is the part of services.ReportService the snapshot job needs.
type Reporter interface {
	AllYearReports(ctx context.Context) (map[int]wh.YearReport, wh.FullSummary, error)
}

var _ Reporter = (*services.ReportService)(nil)

type Snapshotter struct {
	Reports Reporter
	Dir     string
	Logger  *zap.Logger
	Metrics *observability.Metrics
	Clock   util.Clock
}

// Result describes one snapshot run; it is also written as index.json.
type Result struct {
	GeneratedAt time.Time `json:"generated_at"`
	Years       []int     `json:"years"`
	Files       []string  `json:"files"`
}

// Parser accepts standard 5-field expressions and descriptors such as "@every 30m".
var Parser = cron.NewParser(cron.Minute | cron.Hour | cron.Dom | cron.Month | cron.Dow | cron.Descriptor)

// Run writes year-YYYY.json for every year, full.json and index.json.
// Files are written to a temp name and renamed, so readers never see half a file.
func (s *Snapshotter) Run(ctx context.Context) (res Result, err error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	defer func() { s.Metrics.SnapshotResult(err == nil) }()

	now := time.Now()
	if s.Clock != nil {
		now = s.Clock.Now()
	}
	if err := os.MkdirAll(s.Dir, 0o755); err != nil {
		return Result{}, fmt.Errorf("snapshot dir: %w", err)
	}

	reports, full, err := s.Reports.AllYearReports(ctx)
	if err != nil {
		return Result{}, fmt.Errorf("build reports: %w", err)
	}

	res = Result{GeneratedAt: now.UTC(), Years: make([]int, 0, len(reports)), Files: []string{}}
	for y := range reports {
		res.Years = append(res.Years, y)
	}
	sort.Ints(res.Years)

	for _, y := range res.Years {
		name := fmt.Sprintf("year-%d.json", y)
		if err := writeJSON(filepath.Join(s.Dir, name), reports[y]); err != nil {
			return Result{}, err
		}
		res.Files = append(res.Files, name)
	}
	if err := writeJSON(filepath.Join(s.Dir, "full.json"), full); err != nil {
		return Result{}, err
	}
	res.Files = append(res.Files, "full.json")
	if err := writeJSON(filepath.Join(s.Dir, "index.json"), res); err != nil {
		return Result{}, err
	}

	log.Info("snapshot written", zap.String("dir", s.Dir), zap.Ints("years", res.Years), zap.Int("files", len(res.Files)))
	return res, nil
}

func writeJSON(path string, v any) error {
	b, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal %s: %w", filepath.Base(path), err)
	}
	tmp := path + ".tmp"
	if err := os.WriteFile(tmp, b, 0o644); err != nil {
		return fmt.Errorf("write %s: %w", filepath.Base(path), err)
	}
	if err := os.Rename(tmp, path); err != nil {
		return fmt.Errorf("rename %s: %w", filepath.Base(path), err)
	}
	return nil
}

// Schedule registers s on c under spec. Overlapping runs are skipped.
func Schedule(c *cron.Cron, spec string, s *Snapshotter, timeout time.Duration) (cron.EntryID, error) {
	log := s.Logger
	if log == nil {
		log = zap.NewNop()
	}
	job := cron.FuncJob(func() {
		ctx, cancel := context.WithTimeout(context.Background(), timeout)
		defer cancel()
		if _, err := s.Run(ctx); err != nil {
			log.Error("snapshot failed", zap.Error(err))
		}
	})
	skip := cron.SkipIfStillRunning(cron.VerbosePrintfLogger(zap.NewStdLog(log)))
	return c.AddJob(spec, skip(job))
}
