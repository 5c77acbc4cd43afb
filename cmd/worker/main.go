// cmd/worker/main.go
// Worker snapshot laporan terjadwal (cron).
package main

import (
	"context"
	"flag"
	"fmt"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/robfig/cron/v3"
	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/config"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/logging"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/observability"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlrepo"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/worker"
	"github.com/Strikerin/SalesPerformanceDashboard/pkg/db"
)

const runTimeout = 10 * time.Minute

func main() {
	cfgPath := flag.String("config", "", "YAML config file (default $WH_CONFIG or ./workhistory.yaml)")
	once := flag.Bool("once", false, "write one snapshot and exit")
	flag.Parse()

	cfg, err := config.Load(*cfgPath)
	if err != nil {
		fmt.Fprintln(os.Stderr, "config:", err)
		os.Exit(1)
	}
	log, err := logging.New(cfg.Log.Level, cfg.Log.Format)
	if err != nil {
		fmt.Fprintln(os.Stderr, "logger:", err)
		os.Exit(1)
	}
	defer log.Sync() //nolint:errcheck

	if err := run(cfg, log, *once); err != nil {
		log.Fatal("worker stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger, once bool) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, _, err := db.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer conn.Close()

	reports := services.NewReportService(&sqlrepo.WorkHistoryRepo{DB: conn}, cfg.Normalizer(), cfg.ReportOptions(), log)
	reports.Shards = cfg.Report.Shards
	snap := &worker.Snapshotter{
		Reports: reports,
		Dir:     cfg.Worker.SnapshotDir,
		Logger:  log,
		Metrics: observability.New(),
	}

	if once {
		runCtx, cancel := context.WithTimeout(ctx, runTimeout)
		defer cancel()
		_, err := snap.Run(runCtx)
		return err
	}

	c := cron.New(cron.WithParser(worker.Parser))
	if _, err := worker.Schedule(c, cfg.Worker.Schedule, snap, runTimeout); err != nil {
		return fmt.Errorf("invalid worker.schedule %q: %w", cfg.Worker.Schedule, err)
	}
	if cfg.Worker.RunOnStart {
		if _, err := snap.Run(ctx); err != nil {
			log.Error("initial snapshot failed", zap.Error(err))
		}
	}

	c.Start()
	log.Info("Worker started", zap.String("schedule", cfg.Worker.Schedule), zap.String("dir", cfg.Worker.SnapshotDir))
	<-ctx.Done()

	log.Info("Worker stopping, waiting for running snapshot...")
	<-c.Stop().Done()
	return nil
}
