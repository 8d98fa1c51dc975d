package middleware

import (
	"fmt"
	"log/slog"
	"net/http"
	"runtime/debug"

	"github.com/V4T54L/compliance-gate/internal/adapter/api/respond"
)

// Recover turns a panic in a handler into the generic 500 response.
func Recover(logger *slog.Logger) func(http.Handler) http.Handler {
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
				err, ok := rec.(error)
				if !ok {
					err = fmt.Errorf("panic: %v", rec)
				}
				logger.Error("panic in handler", "stack", string(debug.Stack()))
				respond.Internal(w, r, logger, err)
			}()

			next.ServeHTTP(w, r)
		})
	}
}
