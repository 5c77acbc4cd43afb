// internal/handlers/http/cors_handler.go
// OPTIONS biasa (bukan preflight browser): kembalikan daftar method yang didukung.
package http

import (
	"net/http"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/middleware"
)

// PreflightHandler answers 204 with an Allow header. Browser preflights never get here;
// the CORS middleware answers those first.
func PreflightHandler(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Allow", middleware.AllowedMethods)
	w.WriteHeader(http.StatusNoContent)
}
