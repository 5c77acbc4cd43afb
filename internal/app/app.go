// internal/app/app.go
package app

import (
	"database/sql"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"go.uber.org/zap"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/middleware"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/observability"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/services"
)

// Deps are built by cmd/api and injected; nothing here reads the environment.
type Deps struct {
	DB       *sql.DB // readiness only
	Reports  *services.ReportService
	Insights *services.InsightService
	Metrics  *observability.Metrics
	Logger   *zap.Logger

	Auth        middleware.AdminAuthConfig
	TokenTTL    time.Duration
	CORSOrigins []string
	Version     string
}

// App menampung router utama
type App struct {
	Router *mux.Router
	deps   Deps
}

// New membuat instance App + registrasi semua routes
func New(d Deps) *App {
	if d.Logger == nil {
		d.Logger = zap.NewNop()
	}
	r := mux.NewRouter()
	r.Use(middleware.AccessLog(d.Logger, d.Metrics))
	RegisterRoutes(r, d)
	return &App{Router: r, deps: d}
}

// Handler wraps the router with the middleware that must also see unmatched requests.
func (a *App) Handler() http.Handler {
	return middleware.RequestID(middleware.CORS(a.deps.CORSOrigins)(a.Router))
}

func (a *App) Server(addr string) *http.Server {
	return &http.Server{
		Addr:              addr,
		Handler:           a.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
		ReadTimeout:       60 * time.Second,
		WriteTimeout:      90 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}
