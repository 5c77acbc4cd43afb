// internal/handlers/http/metrics_handler.go
// Handler untuk metrics Prometheus

package http

import (
	"fmt"
	"net/http"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/observability"
)

// MetricsHandler serves m; without a registry it still answers with app_up.
func MetricsHandler(m *observability.Metrics) http.Handler {
	if m != nil {
		return m.Handler()
	}
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "text/plain; version=0.0.4")
		fmt.Fprintf(w, "# HELP app_up 1 if the app is up\n# TYPE app_up gauge\napp_up 1\n")
	})
}
