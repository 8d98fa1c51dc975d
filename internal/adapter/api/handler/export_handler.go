package handler

import (
	"log/slog"
	"net/http"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/compliance-gate/internal/adapter/api/respond"
	"github.com/V4T54L/compliance-gate/internal/adapter/metrics"
	"github.com/V4T54L/compliance-gate/internal/domain"
	"github.com/V4T54L/compliance-gate/internal/pkg/reqctx"
	"github.com/V4T54L/compliance-gate/internal/usecase"
)

// ExportHandler serves GET /export/hact/{entityType}/{id}.
type ExportHandler struct {
	useCase *usecase.ExportUseCase
	logger  *slog.Logger
	metrics *metrics.GatewayMetrics
}

// NewExportHandler creates a new ExportHandler. m may be nil.
func NewExportHandler(uc *usecase.ExportUseCase, logger *slog.Logger, m *metrics.GatewayMetrics) *ExportHandler {
	return &ExportHandler{
		useCase: uc,
		logger:  logger,
		metrics: m,
	}
}

// ServeHTTP authorizes and streams one HACT export as a JSON attachment.
func (h *ExportHandler) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	entity, ok := domain.ParseEntityType(chi.URLParam(r, "entityType"))
	if !ok {
		respond.Error(w, http.StatusNotFound, "Not found")
		return
	}
	id := chi.URLParam(r, "id")
	actor, _ := reqctx.Actor(r.Context())

	outcome, err := h.useCase.Export(r.Context(), entity, id, actor)
	if err != nil {
		h.observe(entity, domain.OutcomeFault)
		respond.Internal(w, r, h.logger, err)
		return
	}
	h.observe(entity, string(outcome.Kind))

	switch outcome.Kind {
	case domain.OutcomeDenied:
		h.logger.Warn("export denied",
			"subject", actor.Subject,
			"persona", actor.Persona.String(),
			"entity_type", entity,
			"request_id", reqctx.RequestID(r.Context()),
		)
		respond.Error(w, http.StatusForbidden, outcome.Reason)

	case domain.OutcomeNotFound:
		respond.Error(w, http.StatusNotFound, outcome.Reason)

	case domain.OutcomeDelivered:
		w.Header().Set("Content-Type", "application/json")
		w.Header().Set("Content-Disposition", "attachment; filename="+outcome.Filename())
		w.WriteHeader(http.StatusOK)
		if _, err := w.Write(outcome.Record.Document); err != nil {
			h.logger.Warn("failed to write export body", "error", err, "entity_type", entity, "entity_id", id)
		}

	default:
		respond.Internal(w, r, h.logger, errUnknownOutcome(outcome.Kind))
	}
}

func (h *ExportHandler) observe(entity domain.EntityType, outcome string) {
	if h.metrics != nil {
		h.metrics.ExportOutcomes.WithLabelValues(string(entity), outcome).Inc()
	}
}

type errUnknownOutcome domain.OutcomeKind

func (e errUnknownOutcome) Error() string {
	return "unknown export outcome " + string(e)
}
