package middleware

import (
	"log/slog"
	"net/http"

	"github.com/V4T54L/compliance-gate/internal/adapter/api/respond"
	"github.com/V4T54L/compliance-gate/internal/adapter/metrics"
	"github.com/V4T54L/compliance-gate/internal/domain"
	"github.com/V4T54L/compliance-gate/internal/pkg/reqctx"
	"github.com/V4T54L/compliance-gate/internal/usecase"
)

// RequirePersona is a middleware factory that rejects requests whose actor
// ranks below min with 403. A request with no actor is treated as having no
// persona. m may be nil.
func RequirePersona(min domain.Persona, logger *slog.Logger, m *metrics.GatewayMetrics) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actor, _ := reqctx.Actor(r.Context())

			decision := usecase.Authorize(actor.Persona, min)
			if m != nil {
				result := "allow"
				if !decision.Allowed {
					result = "deny"
				}
				m.AuthzDecisions.WithLabelValues(string(min), result).Inc()
			}

			if !decision.Allowed {
				logger.Warn("authorization denied",
					"subject", actor.Subject,
					"persona", actor.Persona.String(),
					"required", min,
					"path", r.URL.Path,
					"request_id", reqctx.RequestID(r.Context()),
				)
				respond.Error(w, http.StatusForbidden, decision.Reason)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}
