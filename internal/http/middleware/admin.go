package middleware

import (
	"crypto/subtle"
	"net/http"

	"github.com/diagnosis/sai-platform/internal/http/response"
)

// RequireAdminKey gates a route on the X-Admin-Key header. An empty key
// leaves the route open.
func RequireAdminKey(key string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		if key == "" {
			return next
		}
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			got := r.Header.Get("X-Admin-Key")
			if subtle.ConstantTimeCompare([]byte(got), []byte(key)) != 1 {
				response.Unauthorized(w, "Admin key required")
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}
