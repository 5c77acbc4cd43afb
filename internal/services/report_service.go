// internal/services/report_service.go
// Layanan laporan work-history: load dari store, normalisasi, lalu bangun view dashboard.

package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/observability"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlrepo"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

// Store is the persistence the report service needs; sqlrepo.WorkHistoryRepo implements it.
type Store interface {
	Insert(ctx context.Context, batchID string, raws []wh.RawRecord) (int, error)
	List(ctx context.Context, f sqlrepo.Filter) ([]wh.RawRecord, error)
	Count(ctx context.Context, f sqlrepo.Filter) (int64, error)
	Years(ctx context.Context) ([]int, error)
	Batches(ctx context.Context) ([]sqlrepo.BatchInfo, error)
	DeleteBatch(ctx context.Context, batchID string) (int64, error)
}

const (
	minYear = 1900
	maxYear = 9999

	// MaxUploadRows caps a single ingest call.
	MaxUploadRows = 200000
)

type ReportService struct {
	Store      Store
	Normalizer wh.Normalizer
	Options    wh.Options
	Shards     int
	Metrics    *observability.Metrics
	Logger     *zap.Logger
	Clock      util.Clock
}

func NewReportService(store Store, n wh.Normalizer, opts wh.Options, log *zap.Logger) *ReportService {
	if log == nil {
		log = zap.NewNop()
	}
	return &ReportService{Store: store, Normalizer: n, Options: opts, Shards: 4, Logger: log, Clock: util.RealClock{}}
}

func (s *ReportService) options(extra []wh.Option) wh.Options {
	o := s.Options.Resolved()
	for _, opt := range extra {
		opt(&o)
	}
	return o
}

func (s *ReportService) classifier() wh.Classifier { return s.options(nil).Classifier }

func (s *ReportService) now() time.Time {
	if s.Clock == nil {
		return time.Now()
	}
	return s.Clock.Now()
}

func (s *ReportService) log() *zap.Logger {
	if s.Logger == nil {
		return zap.NewNop()
	}
	return s.Logger
}

// load reads and normalizes every stored row matching f.
func (s *ReportService) load(ctx context.Context, f sqlrepo.Filter) ([]wh.Record, error) {
	raws, err := s.Store.List(ctx, f)
	if err != nil {
		return nil, util.Wrap(err, "load work history")
	}
	out := make([]wh.Record, len(raws))
	for i, raw := range raws {
		out[i] = s.Normalizer.Normalize(raw)
	}
	return out, nil
}

func checkYear(year int) error {
	if year < minYear || year > maxYear {
		return util.BadInput(fmt.Sprintf("year %d out of range %d-%d", year, minYear, maxYear))
	}
	return nil
}

// YearReport builds the dashboard for one year. All history is loaded because the
// NCR averages are all-time figures. A year without activity yields a zero report.
func (s *ReportService) YearReport(ctx context.Context, year int, extra ...wh.Option) (wh.YearReport, error) {
	defer s.Metrics.ObserveReport("year", time.Now())
	if err := checkYear(year); err != nil {
		return wh.YearReport{}, err
	}
	all, err := s.load(ctx, sqlrepo.Filter{})
	if err != nil {
		return wh.YearReport{}, err
	}
	opts := s.options(extra)
	rc := wh.Context{NCRAverages: wh.ComputeNCRAverages(all, opts.Classifier)}
	return wh.BuildYearReport(all, year, opts, rc), nil
}

// AllYearReports builds every stored year in parallel, plus the full summary.
func (s *ReportService) AllYearReports(ctx context.Context) (map[int]wh.YearReport, wh.FullSummary, error) {
	defer s.Metrics.ObserveReport("all_years", time.Now())
	all, err := s.load(ctx, sqlrepo.Filter{})
	if err != nil {
		return nil, wh.FullSummary{}, err
	}
	opts := s.options(nil)
	rc := wh.Context{NCRAverages: wh.ComputeNCRAverages(all, opts.Classifier)}
	reports, err := wh.BuildYearReports(ctx, all, wh.Years(all), opts, rc)
	if err != nil {
		return nil, wh.FullSummary{}, fmt.Errorf("build year reports: %w", err)
	}
	return reports, wh.BuildFullSummary(all, opts), nil
}

func (s *ReportService) FullSummary(ctx context.Context) (wh.FullSummary, error) {
	defer s.Metrics.ObserveReport("full", time.Now())
	all, err := s.load(ctx, sqlrepo.Filter{})
	if err != nil {
		return wh.FullSummary{}, err
	}
	return wh.BuildFullSummary(all, s.options(nil)), nil
}

func (s *ReportService) Yearly(ctx context.Context) ([]wh.YearRow, error) {
	all, err := s.load(ctx, sqlrepo.Filter{})
	if err != nil {
		return nil, err
	}
	return wh.BuildYearly(all, s.classifier()), nil
}

// Customers reports one year, or all history when year is 0.
func (s *ReportService) Customers(ctx context.Context, year int, extra ...wh.Option) (wh.CustomerReport, error) {
	defer s.Metrics.ObserveReport("customers", time.Now())
	recs, err := s.loadYear(ctx, year)
	if err != nil {
		return wh.CustomerReport{}, err
	}
	return wh.BuildCustomerReport(recs, s.options(extra)), nil
}

func (s *ReportService) WorkCenters(ctx context.Context, year int, extra ...wh.Option) (wh.WorkCenterReport, error) {
	defer s.Metrics.ObserveReport("workcenters", time.Now())
	recs, err := s.loadYear(ctx, year)
	if err != nil {
		return wh.WorkCenterReport{}, err
	}
	return wh.BuildWorkCenterReport(recs, s.options(extra)), nil
}

func (s *ReportService) Parts(ctx context.Context, year, limit int) ([]wh.PartRow, error) {
	recs, err := s.loadYear(ctx, year)
	if err != nil {
		return nil, err
	}
	return wh.BuildPartReport(recs, limit, s.classifier()), nil
}

func (s *ReportService) Trends(ctx context.Context) ([]wh.TrendPoint, error) {
	all, err := s.load(ctx, sqlrepo.Filter{})
	if err != nil {
		return nil, err
	}
	return wh.BuildTrends(all, s.classifier()), nil
}

// MetricDetail returns the yearly trend of one metric; an unknown metric is a validation error.
func (s *ReportService) MetricDetail(ctx context.Context, metric string, rowLimit int) (wh.MetricDetail, error) {
	all, err := s.load(ctx, sqlrepo.Filter{})
	if err != nil {
		return wh.MetricDetail{}, err
	}
	d, err := wh.BuildMetricDetail(all, metric, rowLimit, s.classifier())
	var um *wh.UnsupportedMetricError
	if errors.As(err, &um) {
		return wh.MetricDetail{}, util.Validation(um.Error(), map[string]any{"supported": wh.MetricNames()})
	}
	return d, err
}

func (s *ReportService) NCRDetails(ctx context.Context, part string, year int) (wh.NCRDetails, error) {
	if part == "" {
		return wh.NCRDetails{}, util.BadInput("part is required")
	}
	if err := checkYear(year); err != nil {
		return wh.NCRDetails{}, err
	}
	all, err := s.load(ctx, sqlrepo.Filter{})
	if err != nil {
		return wh.NCRDetails{}, err
	}
	return wh.NCRPartDetails(all, part, year, s.classifier()), nil
}

// Filter pushes what SQL can answer exactly down to the store, then applies the
// engine filter for the final semantics and order.
func (s *ReportService) Filter(ctx context.Context, f wh.Filter) ([]wh.DetailRow, error) {
	if f.Year != 0 {
		if err := checkYear(f.Year); err != nil {
			return nil, err
		}
	}
	recs, err := s.load(ctx, pushdown(f))
	if err != nil {
		return nil, err
	}
	return wh.FilterRecords(recs, f), nil
}

// pushdown skips substrings that could match a defaulted label, which only exists after normalization.
func pushdown(f wh.Filter) sqlrepo.Filter {
	out := sqlrepo.Filter{Year: f.Year, WorkCenter: f.WorkCenter}
	if !containsFold(wh.UnknownCustomer, f.Customer) {
		out.Customer = f.Customer
	}
	if !containsFold(wh.UnknownPart, f.Part) {
		out.Part = f.Part
	}
	return out
}

func containsFold(s, sub string) bool {
	return strings.Contains(strings.ToLower(s), strings.ToLower(sub))
}

// GroupRow is one group of an ad-hoc breakdown.
type GroupRow struct {
	Key            string     `json:"key"`
	PlannedHours   float64    `json:"planned_hours"`
	ActualHours    float64    `json:"actual_hours"`
	OverrunHours   float64    `json:"overrun_hours"`
	NCRHours       float64    `json:"ncr_hours"`
	ActualCost     float64    `json:"actual_cost"`
	OverrunCost    float64    `json:"overrun_cost"`
	OverrunPercent wh.Percent `json:"overrun_percent"`
	JobCount       int        `json:"job_count"`
	Operations     int        `json:"operations"`
}

// Breakdown groups one year (0 = all) by a named dimension with sharded aggregation.
func (s *ReportService) Breakdown(ctx context.Context, dimension string, year int, sortBy string, limit int) ([]GroupRow, error) {
	defer s.Metrics.ObserveReport("breakdown", time.Now())
	var dim *wh.Dimension
	for i := range wh.StandardDimensions {
		if wh.StandardDimensions[i].Name == dimension {
			dim = &wh.StandardDimensions[i]
		}
	}
	if dim == nil {
		names := make([]string, 0, len(wh.StandardDimensions))
		for _, d := range wh.StandardDimensions {
			names = append(names, d.Name)
		}
		return nil, util.Validation("unknown dimension "+dimension, map[string]any{"supported": names})
	}
	m, err := wh.ParseMetric(sortBy)
	if err != nil {
		return nil, util.BadInput(err.Error())
	}
	recs, err := s.loadYear(ctx, year)
	if err != nil {
		return nil, err
	}
	groups, err := wh.AggregateSharded(ctx, recs, dim.Key, s.classifier(), s.Shards)
	if err != nil {
		return nil, err
	}
	sorted := wh.SortGroups(groups, m, limit)
	out := make([]GroupRow, 0, len(sorted))
	for _, g := range sorted {
		out = append(out, GroupRow{
			Key:            g.Key,
			PlannedHours:   g.PlannedHours.InexactFloat64(),
			ActualHours:    g.ActualHours.InexactFloat64(),
			OverrunHours:   g.OverrunHours.InexactFloat64(),
			NCRHours:       g.NCRHours.InexactFloat64(),
			ActualCost:     g.ActualCost.Round(2).InexactFloat64(),
			OverrunCost:    g.OverrunCost.Round(2).InexactFloat64(),
			OverrunPercent: wh.OverrunPercent(g),
			JobCount:       g.JobCount,
			Operations:     g.Operations,
		})
	}
	return out, nil
}

func (s *ReportService) loadYear(ctx context.Context, year int) ([]wh.Record, error) {
	if year != 0 {
		if err := checkYear(year); err != nil {
			return nil, err
		}
	}
	return s.load(ctx, sqlrepo.Filter{Year: year})
}

// DefaultYear is the latest year with data, or the current year on an empty store.
func (s *ReportService) DefaultYear(ctx context.Context) (int, error) {
	years, err := s.Store.Years(ctx)
	if err != nil {
		return 0, util.Wrap(err, "list years")
	}
	if len(years) == 0 {
		return s.now().Year(), nil
	}
	return years[len(years)-1], nil
}

func (s *ReportService) Years(ctx context.Context) ([]int, error) {
	years, err := s.Store.Years(ctx)
	if err != nil {
		return nil, util.Wrap(err, "list years")
	}
	return years, nil
}

// IngestResult describes one stored upload.
type IngestResult struct {
	BatchID  string         `json:"batch_id"`
	Stored   int            `json:"stored"`
	Years    []int          `json:"years"`
	Excluded map[string]int `json:"excluded"`
}

// Ingest validates an upload and stores it under a new batch id. Rows that are stored
// but ineligible for reports (no date, no work center) are counted in Excluded.
func (s *ReportService) Ingest(ctx context.Context, raws []wh.RawRecord) (IngestResult, error) {
	if len(raws) == 0 {
		return IngestResult{}, util.BadInput("upload contains no records")
	}
	if len(raws) > MaxUploadRows {
		return IngestResult{}, util.BadInput(fmt.Sprintf("upload has %d records, limit is %d", len(raws), MaxUploadRows))
	}
	if err := wh.Validate(raws); err != nil {
		var verr *wh.ValidationError
		if errors.As(err, &verr) {
			return IngestResult{}, util.Validation(verr.Error(), verr.Issues)
		}
		return IngestResult{}, err
	}

	recs := make([]wh.Record, len(raws))
	for i, raw := range raws {
		recs[i] = s.Normalizer.Normalize(raw)
	}
	_, excluded := wh.Eligible(recs)

	batchID := util.NewBatchID()
	n, err := s.Store.Insert(ctx, batchID, raws)
	if err != nil {
		return IngestResult{}, util.Wrap(err, "store upload")
	}
	s.Metrics.AddIngested(n)
	s.log().Info("work history ingested",
		zap.String("batch_id", batchID),
		zap.Int("rows", n),
		zap.Any("excluded", excluded),
	)
	return IngestResult{BatchID: batchID, Stored: n, Years: wh.Years(recs), Excluded: excluded}, nil
}

// Stats is the admin view of the store.
type Stats struct {
	TotalRows int64               `json:"total_rows"`
	Years     []int               `json:"years"`
	Batches   []sqlrepo.BatchInfo `json:"batches"`
}

func (s *ReportService) Stats(ctx context.Context) (Stats, error) {
	total, err := s.Store.Count(ctx, sqlrepo.Filter{})
	if err != nil {
		return Stats{}, util.Wrap(err, "count rows")
	}
	years, err := s.Years(ctx)
	if err != nil {
		return Stats{}, err
	}
	batches, err := s.Store.Batches(ctx)
	if err != nil {
		return Stats{}, util.Wrap(err, "list batches")
	}
	sort.SliceStable(batches, func(i, j int) bool { return batches[i].CreatedAt.After(batches[j].CreatedAt) })
	return Stats{TotalRows: total, Years: years, Batches: batches}, nil
}

func (s *ReportService) DeleteBatch(ctx context.Context, batchID string) (int64, error) {
	if batchID == "" {
		return 0, util.BadInput("batch id is required")
	}
	n, err := s.Store.DeleteBatch(ctx, batchID)
	if err != nil {
		return 0, util.Wrap(err, "delete batch")
	}
	if n == 0 {
		return 0, util.NotFound("batch " + batchID + " not found")
	}
	s.log().Info("work history batch deleted", zap.String("batch_id", batchID), zap.Int64("rows", n))
	return n, nil
}
