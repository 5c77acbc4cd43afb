// cmd/api/main.go
package main

import (
	"context"
	"errors"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/app"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/config"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/llm"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/logging"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/middleware"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/observability"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/repositories/sqlrepo"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
	"github.com/Strikerin/SalesPerformanceDashboard/pkg/db"
)

var BuildVersion = "dev" // diisi saat ldflags

func main() {
	cfgPath := flag.String("config", "", "YAML config file (default $WH_CONFIG or ./workhistory.yaml)")
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

	if err := run(cfg, log); err != nil {
		log.Fatal("api stopped", zap.Error(err))
	}
}

func run(cfg *config.Config, log *zap.Logger) error {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	conn, kind, err := db.Open(ctx, cfg, log)
	if err != nil {
		return fmt.Errorf("open store: %w", err)
	}
	defer conn.Close()

	metrics := observability.New()
	reports := services.NewReportService(&sqlrepo.WorkHistoryRepo{DB: conn}, cfg.Normalizer(), cfg.ReportOptions(), log)
	reports.Shards = cfg.Report.Shards
	reports.Metrics = metrics

	insights := &services.InsightService{Logger: log}
	if client, err := llm.New(llm.Config{APIKey: cfg.LLM.APIKey, BaseURL: cfg.LLM.APIBase, Model: cfg.LLM.Model}); err == nil {
		insights.LLM = client
	} else if !errors.Is(err, llm.ErrNotConfigured) {
		return fmt.Errorf("llm client: %w", err)
	} else {
		log.Info("llm api key not set; insights use rules only")
	}

	a := app.New(app.Deps{
		DB:       conn,
		Reports:  reports,
		Insights: insights,
		Metrics:  metrics,
		Logger:   log,
		Auth: middleware.AdminAuthConfig{
			User:      cfg.Admin.User,
			PassHash:  cfg.Admin.PassHash,
			JWTSecret: cfg.Admin.JWTSecret,
		},
		TokenTTL:    cfg.Admin.TokenTTL,
		CORSOrigins: cfg.CORS.AllowedOrigins,
		Version:     BuildVersion,
	})
	srv := a.Server(":" + cfg.App.Port)

	errc := make(chan error, 1)
	go func() {
		log.Info("API running", zap.String("addr", srv.Addr), zap.String("store", kind), zap.String("version", BuildVersion))
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errc <- err
		}
		close(errc)
	}()

	select {
	case err := <-errc:
		if err != nil {
			return fmt.Errorf("listen: %w", err)
		}
		return nil
	case <-ctx.Done():
	}

	log.Info("Shutting down server...")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(shutdownCtx); err != nil {
		return fmt.Errorf("server forced to shutdown: %w", err)
	}
	return nil
}
