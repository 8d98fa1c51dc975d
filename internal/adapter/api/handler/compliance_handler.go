package handler

import (
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/go-chi/chi/v5"

	"github.com/V4T54L/compliance-gate/internal/adapter/api/respond"
	"github.com/V4T54L/compliance-gate/internal/domain"
	"github.com/V4T54L/compliance-gate/internal/usecase"
)

// ComplianceHandler exposes the urgency classifier and the status resolver.
type ComplianceHandler struct {
	urgency *usecase.UrgencyUseCase
	logger  *slog.Logger
}

// NewComplianceHandler creates a new ComplianceHandler.
func NewComplianceHandler(urgency *usecase.UrgencyUseCase, logger *slog.Logger) *ComplianceHandler {
	return &ComplianceHandler{urgency: urgency, logger: logger}
}

type urgencyResponse struct {
	Deadline      string             `json:"deadline"`
	Mode          domain.CountMode   `json:"mode"`
	RemainingDays int                `json:"remaining_days"`
	Tier          domain.UrgencyTier `json:"tier"`
	Severity      domain.Severity    `json:"severity"`
	Label         string             `json:"label"`
}

// Urgency handles GET /compliance/urgency?deadline=YYYY-MM-DD&mode=calendar|working-days.
func (h *ComplianceHandler) Urgency(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()

	raw := strings.TrimSpace(q.Get("deadline"))
	if raw == "" {
		respond.Error(w, http.StatusBadRequest, "deadline is required")
		return
	}
	deadline, err := time.Parse(domain.DateLayout, raw)
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "deadline must be a date in YYYY-MM-DD format")
		return
	}
	mode, err := domain.ParseCountMode(q.Get("mode"))
	if err != nil {
		respond.Error(w, http.StatusBadRequest, "mode must be calendar or working-days")
		return
	}

	result := h.urgency.Classify(deadline, mode)
	respond.JSON(w, http.StatusOK, urgencyResponse{
		Deadline:      deadline.Format(domain.DateLayout),
		Mode:          mode,
		RemainingDays: result.RemainingDays,
		Tier:          result.Tier,
		Severity:      result.Tier.Severity(),
		Label:         result.Label(),
	})
}

// Status handles GET /compliance/status/{token}?label=.
func (h *ComplianceHandler) Status(w http.ResponseWriter, r *http.Request) {
	view := usecase.ResolveStatus(chi.URLParam(r, "token"), r.URL.Query().Get("label"))
	respond.JSON(w, http.StatusOK, view)
}
