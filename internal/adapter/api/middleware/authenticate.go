package middleware

import (
	"errors"
	"log/slog"
	"net/http"
	"strings"

	"github.com/V4T54L/compliance-gate/internal/adapter/api/respond"
	"github.com/V4T54L/compliance-gate/internal/domain"
	"github.com/V4T54L/compliance-gate/internal/pkg/reqctx"
)

// Authenticate is a middleware factory that verifies the bearer token with
// verifier and attaches the resulting actor to the request context.
// Requests without a valid token are rejected with 401.
func Authenticate(verifier domain.IdentityVerifier, logger *slog.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, ok := bearerToken(r)
			if !ok {
				logger.Warn("bearer token missing from request", "remote_addr", r.RemoteAddr, "path", r.URL.Path)
				respond.Error(w, http.StatusUnauthorized, "Authentication required")
				return
			}

			actor, err := verifier.Verify(r.Context(), token)
			if err != nil {
				if errors.Is(err, domain.ErrUnauthenticated) {
					logger.Warn("invalid bearer token", "remote_addr", r.RemoteAddr, "error", err)
					respond.Error(w, http.StatusUnauthorized, "Invalid or expired token")
					return
				}
				respond.Internal(w, r, logger, err)
				return
			}

			next.ServeHTTP(w, r.WithContext(reqctx.WithActor(r.Context(), actor)))
		})
	}
}

func bearerToken(r *http.Request) (string, bool) {
	header := r.Header.Get("Authorization")
	scheme, token, found := strings.Cut(header, " ")
	if !found || !strings.EqualFold(scheme, "Bearer") {
		return "", false
	}
	token = strings.TrimSpace(token)
	return token, token != ""
}
