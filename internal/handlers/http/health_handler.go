// internal/handlers/http/health_handler.go
// Handler sederhana untuk health check dan readiness (ping DB)

package http

import (
	"context"
	"database/sql"
	"net/http"
	"time"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
)

func HealthHandler(w http.ResponseWriter, r *http.Request) {
	util.WriteJSON(w, http.StatusOK, map[string]any{
		"status": "ok",
	})
}

// ReadyHandler reports 503 until db answers a ping.
func ReadyHandler(db *sql.DB, version string) http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		if db == nil {
			util.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "db": "not configured"})
			return
		}
		ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
		defer cancel()
		if err := db.PingContext(ctx); err != nil {
			util.WriteJSON(w, http.StatusServiceUnavailable, map[string]any{"status": "not_ready", "db": "unreachable"})
			return
		}
		util.WriteJSON(w, http.StatusOK, map[string]any{"status": "ready", "db": "ok", "version": version})
	}
}
