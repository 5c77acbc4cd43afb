// internal/app/routes.go
package app

import (
	"net/http"

	"github.com/go-chi/chi/v5"
	"github.com/gorilla/mux"

	hh "github.com/Strikerin/SalesPerformanceDashboard/internal/handlers/http"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/middleware"
)

// RegisterRoutes menambahkan semua route HTTP, dengan dan tanpa prefix /api.
func RegisterRoutes(r *mux.Router, d Deps) {
	work := &hh.WorkHistoryHandler{Reports: d.Reports, Insights: d.Insights, Logger: d.Logger}
	login := &hh.LoginHandler{Auth: d.Auth, TokenTTL: d.TokenTTL}
	ready := hh.ReadyHandler(d.DB, d.Version)
	metrics := hh.MetricsHandler(d.Metrics)

	// --- no prefix, dan /api prefix (supaya FE bisa pakai /api/...) ---
	for _, sr := range []*mux.Router{r, r.PathPrefix("/api").Subrouter()} {
		sr.HandleFunc("/healthz", hh.HealthHandler).Methods(http.MethodGet)
		sr.Handle("/readyz", ready).Methods(http.MethodGet)
		sr.Handle("/metrics", metrics).Methods(http.MethodGet)
		sr.Handle("/login", login).Methods(http.MethodPost)

		w := sr.PathPrefix("/workhistory").Subrouter()
		w.HandleFunc("/years", work.Years).Methods(http.MethodGet)
		w.HandleFunc("/summary/year/{year:[0-9]+}", work.YearSummary).Methods(http.MethodGet)
		w.HandleFunc("/summary/full", work.FullSummary).Methods(http.MethodGet)
		w.HandleFunc("/summary/yearly", work.Yearly).Methods(http.MethodGet)
		w.HandleFunc("/summary/customers", work.Customers).Methods(http.MethodGet)
		w.HandleFunc("/summary/parts", work.Parts).Methods(http.MethodGet)
		w.HandleFunc("/summary/workcenters", work.WorkCenters).Methods(http.MethodGet)
		w.HandleFunc("/metric/{metric}", work.Metric).Methods(http.MethodGet)
		w.HandleFunc("/trends", work.Trends).Methods(http.MethodGet)
		w.HandleFunc("/filter", work.Filter).Methods(http.MethodGet, http.MethodPost)
		w.HandleFunc("/ncr/details", work.NCRDetails).Methods(http.MethodGet)
		w.HandleFunc("/breakdown/{dimension}", work.Breakdown).Methods(http.MethodGet)
		w.HandleFunc("/insights/year/{year:[0-9]+}", work.YearInsights).Methods(http.MethodGet)
		w.HandleFunc("/stream", work.Stream).Methods(http.MethodGet)
	}

	// Admin (JWT atau Basic) di sub-router chi
	admin := chi.NewRouter()
	admin.Route("/admin", func(ar chi.Router) {
		ar.Use(middleware.AdminAuth(d.Auth))
		(&hh.AdminHandler{Reports: d.Reports, Logger: d.Logger}).Routes(ar)
	})
	r.PathPrefix("/admin/").Handler(admin)

	// Preflight catch-all
	r.PathPrefix("/").Methods(http.MethodOptions).HandlerFunc(hh.PreflightHandler)
}
