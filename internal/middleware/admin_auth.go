// internal/middleware/admin_auth.go
package middleware

import (
	"crypto/subtle"
	"net/http"
	"strings"

	"golang.org/x/crypto/bcrypt"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
)

// AdminAuthConfig holds the single admin account; PassHash is a bcrypt hash.
type AdminAuthConfig struct {
	User      string
	PassHash  string
	JWTSecret string
}

// AdminBasicAuth checks HTTP Basic credentials against the bcrypt hash.
func AdminBasicAuth(c AdminAuthConfig) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if c.User == "" || c.PassHash == "" {
				util.WriteJSON(w, http.StatusForbidden, map[string]any{"error": "forbidden", "message": "admin auth not configured"})
				return
			}
			u, p, ok := r.BasicAuth()
			if !ok {
				w.Header().Set("WWW-Authenticate", `Basic realm="admin"`)
				util.WriteError(w, util.Unauthorized("auth required"))
				return
			}
			if !CheckAdminPassword(c, u, p) {
				util.WriteError(w, util.Unauthorized("invalid credentials"))
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

// CheckAdminPassword compares the user in constant time, then the bcrypt hash.
func CheckAdminPassword(c AdminAuthConfig, user, password string) bool {
	if c.User == "" || c.PassHash == "" {
		return false
	}
	if subtle.ConstantTimeCompare([]byte(user), []byte(c.User)) != 1 {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(c.PassHash), []byte(password)) == nil
}

// AdminAuth accepts a Basic header (scripts, curl uploads) or falls through to the JWT check.
func AdminAuth(c AdminAuthConfig) func(http.Handler) http.Handler {
	basic := AdminBasicAuth(c)
	bearer := AdminJWTAuth(c.JWTSecret)
	return func(next http.Handler) http.Handler {
		b, j := basic(next), bearer(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if strings.HasPrefix(r.Header.Get("Authorization"), "Basic ") {
				b.ServeHTTP(w, r)
				return
			}
			j.ServeHTTP(w, r)
		})
	}
}
