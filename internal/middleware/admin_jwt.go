// internal/middleware/admin_jwt.go
package middleware

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/golang-jwt/jwt/v5"

	"github.com/Strikerin/SalesPerformanceDashboard/internal/util"
)

const RoleAdmin = "admin"

// AdminClaims is the payload of an admin session token.
type AdminClaims struct {
	User string `json:"user"`
	Role string `json:"role"`
	jwt.RegisteredClaims
}

type claimsKey struct{}

// AdminFrom returns the claims AdminJWTAuth stored on the request context.
func AdminFrom(ctx context.Context) (AdminClaims, bool) {
	c, ok := ctx.Value(claimsKey{}).(AdminClaims)
	return c, ok
}

// AdminJWTAuth accepts "Authorization: Bearer <token>" signed with secret (HS256) and role admin.
func AdminJWTAuth(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if secret == "" {
				util.WriteJSON(w, http.StatusForbidden, map[string]any{"error": "forbidden", "message": "admin jwt not configured"})
				return
			}
			auth := r.Header.Get("Authorization")
			if !strings.HasPrefix(auth, "Bearer ") {
				util.WriteError(w, util.Unauthorized("missing token"))
				return
			}
			claims, err := ParseAdminToken(secret, strings.TrimPrefix(auth, "Bearer "))
			if err != nil {
				util.WriteError(w, util.Unauthorized("invalid token"))
				return
			}
			next.ServeHTTP(w, r.WithContext(context.WithValue(r.Context(), claimsKey{}, claims)))
		})
	}
}

func ParseAdminToken(secret, tokenStr string) (AdminClaims, error) {
	var claims AdminClaims
	token, err := jwt.ParseWithClaims(tokenStr, &claims, func(t *jwt.Token) (any, error) {
		return []byte(secret), nil
	}, jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}), jwt.WithExpirationRequired())
	if err != nil {
		return AdminClaims{}, err
	}
	if !token.Valid || claims.Role != RoleAdmin {
		return AdminClaims{}, errors.New("not an admin token")
	}
	return claims, nil
}

// GenerateAdminToken membuat JWT admin yang berlaku selama ttl.
func GenerateAdminToken(secret, user string, ttl time.Duration, now time.Time) (string, int64, error) {
	if secret == "" {
		return "", 0, errors.New("jwt secret is empty")
	}
	exp := now.Add(ttl)
	claims := AdminClaims{
		User: user,
		Role: RoleAdmin,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   user,
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(exp),
		},
	}
	signed, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte(secret))
	return signed, exp.Unix(), err
}
