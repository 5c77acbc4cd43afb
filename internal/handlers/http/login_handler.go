// internal/handlers/http/login_handler.go
package http

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/middleware"
	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
)

type loginReq struct {
	Username string `json:"username"`
	Password string `json:"password"`
}

type loginResp struct {
	Token     string `json:"token"`
	ExpiresAt int64  `json:"expires_at"` // epoch seconds
	User      string `json:"user"`
	Role      string `json:"role"`
}

type LoginHandler struct {
	Auth     middleware.AdminAuthConfig
	TokenTTL time.Duration
	Clock    util.Clock
}

func (h *LoginHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	var in loginReq
	if err := json.NewDecoder(r.Body).Decode(&in); err != nil {
		util.WriteError(w, util.BadInput("bad request"))
		return
	}

	if h.Auth.User == "" || h.Auth.PassHash == "" || h.Auth.JWTSecret == "" {
		util.WriteJSON(w, http.StatusForbidden, map[string]any{"error": "forbidden", "message": "admin not configured"})
		return
	}
	if !middleware.CheckAdminPassword(h.Auth, in.Username, in.Password) {
		util.WriteError(w, util.Unauthorized("invalid credentials"))
		return
	}

	ttl := h.TokenTTL
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	now := time.Now()
	if h.Clock != nil {
		now = h.Clock.Now()
	}
	token, exp, err := middleware.GenerateAdminToken(h.Auth.JWTSecret, h.Auth.User, ttl, now)
	if err != nil {
		util.WriteError(w, util.Wrap(err, "token error"))
		return
	}

	util.WriteJSON(w, http.StatusOK, loginResp{
		Token:     token,
		ExpiresAt: exp,
		User:      h.Auth.User,
		Role:      middleware.RoleAdmin,
	})
}
