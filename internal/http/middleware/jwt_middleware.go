package middleware

import (
	"context"
	"net/http"
	"strings"

	"github.com/diagnosis/sai-platform/internal/http/response"
	"github.com/diagnosis/sai-platform/pkg/auth"
	"github.com/diagnosis/sai-platform/pkg/logger"
)

type ctxKey string

const CtxClaims ctxKey = "claims"

// RequireJWT answers 401 when no bearer token is sent and 403 when the
// token does not verify.
func RequireJWT(secret string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			authz := r.Header.Get("Authorization")
			raw := strings.TrimSpace(strings.TrimPrefix(authz, "Bearer "))
			if !strings.HasPrefix(authz, "Bearer ") || raw == "" {
				response.Unauthorized(w, "Access token required")
				return
			}
			claims, err := auth.Parse(raw, secret)
			if err != nil {
				response.Forbidden(w, "Invalid or expired token")
				return
			}
			ctx := context.WithValue(r.Context(), CtxClaims, claims)
			ctx = context.WithValue(ctx, logger.UserIDKey, claims.Sub)
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

func Claims(r *http.Request) *auth.Claims {
	v, _ := r.Context().Value(CtxClaims).(*auth.Claims)
	return v
}
