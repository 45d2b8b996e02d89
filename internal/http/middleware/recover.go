package middleware

import (
	"fmt"
	"net/http"
	"runtime/debug"

	"github.com/diagnosis/sai-platform/internal/http/response"
	"github.com/diagnosis/sai-platform/pkg/logger"
)

// Recover turns a panic in a route into a 500 carrying that route's
// user-facing failure message.
func Recover(message string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			defer func() {
				rec := recover()
				if rec == nil {
					return
				}
				if rec == http.ErrAbortHandler {
					panic(rec)
				}
				logger.ErrorContext(r.Context(), "handler panicked",
					"panic", fmt.Sprint(rec),
					"path", r.URL.Path,
					"stack", string(debug.Stack()))
				response.InternalError(w, message)
			}()
			next.ServeHTTP(w, r)
		})
	}
}
