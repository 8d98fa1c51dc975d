package api

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/compliance-gate/internal/adapter/api/handler"
	"github.com/V4T54L/compliance-gate/internal/adapter/api/middleware"
	"github.com/V4T54L/compliance-gate/internal/adapter/api/respond"
	"github.com/V4T54L/compliance-gate/internal/adapter/metrics"
	"github.com/V4T54L/compliance-gate/internal/domain"
	"github.com/V4T54L/compliance-gate/internal/pkg/config"
	"github.com/V4T54L/compliance-gate/internal/usecase"
)

// ComplianceQueryRequirement is the minimum persona for the read-only
// compliance endpoints.
const ComplianceQueryRequirement = domain.PersonaOperative

// NewRouter creates and configures the main HTTP router for the gateway.
func NewRouter(
	cfg *config.Config,
	logger *slog.Logger,
	verifier domain.IdentityVerifier,
	exportUseCase *usecase.ExportUseCase,
	urgencyUseCase *usecase.UrgencyUseCase,
	m *metrics.GatewayMetrics,
) http.Handler {
	r := chi.NewRouter()

	// Middleware
	r.Use(middleware.RequestID)
	r.Use(middleware.Logging(logger))
	r.Use(middleware.Recover(logger))

	r.NotFound(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusNotFound, "Not found")
	})
	r.MethodNotAllowed(func(w http.ResponseWriter, r *http.Request) {
		respond.Error(w, http.StatusMethodNotAllowed, "Method not allowed")
	})

	// Handlers
	exportHandler := handler.NewExportHandler(exportUseCase, logger, m)
	complianceHandler := handler.NewComplianceHandler(urgencyUseCase, logger)
	limiter := middleware.NewRateLimiter(cfg.ExportRateLimit, cfg.ExportRateBurst, logger, m)

	// Health check
	r.Get("/health", func(w http.ResponseWriter, r *http.Request) {
		respond.JSON(w, http.StatusOK, map[string]string{"status": "ok"})
	})

	// Authenticated routes
	r.Group(func(r chi.Router) {
		r.Use(middleware.Authenticate(verifier, logger))

		// Export authorization runs inside the use case so every decision is audited.
		// Denied callers skip the limiter and always get their 403.
		r.With(limiter.ForPersona(usecase.HACTExportRequirement)).
			Get("/export/hact/{entityType:(property|tenant|case)}/{id}", exportHandler.ServeHTTP)

		r.Route("/compliance", func(r chi.Router) {
			r.Use(middleware.RequirePersona(ComplianceQueryRequirement, logger, m))
			r.Get("/urgency", complianceHandler.Urgency)
			r.Get("/status/{token}", complianceHandler.Status)
		})
	})

	return r
}
