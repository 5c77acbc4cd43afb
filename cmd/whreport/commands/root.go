package commands

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"os"

	"github.com/spf13/cobra"
	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/config"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlite"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlrepo"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
	wh "github.com/Strikerin/SalesPerformanceDashboard/internal/workhistory"
)

const (
	FormatTable = "table"
	FormatJSON  = "json"
	FormatYAML  = "yaml"
)

// ErrNoSource is returned when neither --input nor --sqlite is given.
var ErrNoSource = errors.New("no data source: use --input <records.json> or --sqlite <path>")

type rootOptions struct {
	input      string
	sqlitePath string
	configPath string
	format     string
}

func NewRootCommand(version string) *cobra.Command {
	opts := &rootOptions{}
	root := &cobra.Command{
		Use:   "whreport",
		Short: "Work-history reports from the command line",
		Long: `whreport builds the dashboard reports (planned vs actual hours, overruns,
NCR cost, work centers, customers) from a JSON array of work-history rows
or from the SQLite store used by the API.`,
		Version:       version,
		SilenceUsage:  true,
		SilenceErrors: true,
	}
	pf := root.PersistentFlags()
	pf.StringVarP(&opts.input, "input", "i", "", "JSON file with an array of work-history rows")
	pf.StringVar(&opts.sqlitePath, "sqlite", "", "SQLite store path (instead of --input)")
	pf.StringVar(&opts.configPath, "config", "", "YAML config file for report settings")
	pf.StringVarP(&opts.format, "format", "f", FormatTable, "Output format: table, json, yaml")

	root.AddCommand(
		newYearCommand(opts),
		newSummaryCommand(opts),
		newCustomersCommand(opts),
		newWorkCentersCommand(opts),
		newInsightCommand(opts),
	)
	return root
}

func (o *rootOptions) validate() error {
	switch o.format {
	case FormatTable, FormatJSON, FormatYAML:
	default:
		return fmt.Errorf("unknown format %q: want table, json or yaml", o.format)
	}
	if o.input == "" && o.sqlitePath == "" {
		return ErrNoSource
	}
	if o.input != "" && o.sqlitePath != "" {
		return errors.New("--input and --sqlite are mutually exclusive")
	}
	return nil
}

// service opens the data source behind a ReportService. An --input file is loaded
// into a private in-memory store, so both sources go through the same code path.
func (o *rootOptions) service(ctx context.Context) (*services.ReportService, func(), error) {
	if err := o.validate(); err != nil {
		return nil, nil, err
	}
	cfg, err := config.Load(o.configPath)
	if err != nil {
		return nil, nil, err
	}

	path := o.sqlitePath
	if o.input != "" {
		path = sqlite.MemoryPath
	}
	db, err := sqlite.Open(ctx, path)
	if err != nil {
		return nil, nil, err
	}
	svc := services.NewReportService(&sqlrepo.WorkHistoryRepo{DB: db}, cfg.Normalizer(), cfg.ReportOptions(), zap.NewNop())
	svc.Shards = cfg.Report.Shards

	if o.input != "" {
		raws, err := readRecords(o.input)
		if err == nil {
			_, err = svc.Ingest(ctx, raws)
		}
		if err != nil {
			db.Close()
			return nil, nil, describe(err)
		}
	}
	return svc, func() { db.Close() }, nil
}

func readRecords(path string) ([]wh.RawRecord, error) {
	b, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read input: %w", err)
	}
	var raws []wh.RawRecord
	if err := json.Unmarshal(b, &raws); err != nil {
		return nil, fmt.Errorf("parse %s: %w", path, err)
	}
	return raws, nil
}

// describe turns service errors into CLI messages; validation issues keep their row list.
func describe(err error) error {
	var ae util.AppError
	if errors.As(err, &ae) {
		if ae.Err != nil {
			return fmt.Errorf("%s: %w", ae.Message, ae.Err)
		}
		return errors.New(ae.Message)
	}
	return err
}
