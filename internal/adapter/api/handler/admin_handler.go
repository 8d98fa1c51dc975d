package handler

import (
	"context"
	"log/slog"
	"net/http"
	"strconv"
	"time"

	"github.com/V4T54L/compliance-gate/internal/adapter/api/respond"
	"github.com/V4T54L/compliance-gate/internal/domain"
)

const defaultPendingListCount = 100

// HealthCheck probes one dependency.
type HealthCheck struct {
	Name  string
	Check func(ctx context.Context) error
}

// AuditBacklog reports unacknowledged audit messages for a consumer group.
type AuditBacklog interface {
	PendingAudit(ctx context.Context, group string) (int64, error)
	PendingAuditMessages(ctx context.Context, group string, count int64) ([]domain.PendingAuditMessage, error)
}

// AdminHandler serves the operational endpoints of the admin listener.
type AdminHandler struct {
	checks  []HealthCheck
	backlog AuditBacklog
	group   string
	logger  *slog.Logger
}

// NewAdminHandler creates a new AdminHandler. backlog may be nil.
func NewAdminHandler(checks []HealthCheck, backlog AuditBacklog, group string, logger *slog.Logger) *AdminHandler {
	return &AdminHandler{checks: checks, backlog: backlog, group: group, logger: logger}
}

type healthResponse struct {
	Status string            `json:"status"`
	Checks map[string]string `json:"checks,omitempty"`
}

// HealthCheck runs every dependency probe and reports 503 if any fails.
func (h *AdminHandler) HealthCheck(w http.ResponseWriter, r *http.Request) {
	ctx, cancel := context.WithTimeout(r.Context(), 2*time.Second)
	defer cancel()

	resp := healthResponse{Status: "ok", Checks: make(map[string]string, len(h.checks))}
	status := http.StatusOK
	for _, c := range h.checks {
		if err := c.Check(ctx); err != nil {
			h.logger.Warn("health check failed", "check", c.Name, "error", err)
			resp.Checks[c.Name] = "unavailable"
			resp.Status = "degraded"
			status = http.StatusServiceUnavailable
			continue
		}
		resp.Checks[c.Name] = "ok"
	}

	respond.JSON(w, status, resp)
}

// GetAuditBacklog handles GET /admin/audit/pending.
func (h *AdminHandler) GetAuditBacklog(w http.ResponseWriter, r *http.Request) {
	if h.backlog == nil {
		respond.Error(w, http.StatusNotFound, "Not found")
		return
	}

	pending, err := h.backlog.PendingAudit(r.Context(), h.group)
	if err != nil {
		respond.Internal(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"group": h.group, "pending": pending})
}

// GetPendingAuditMessages handles GET /admin/audit/pending/messages?count={count}.
func (h *AdminHandler) GetPendingAuditMessages(w http.ResponseWriter, r *http.Request) {
	if h.backlog == nil {
		respond.Error(w, http.StatusNotFound, "Not found")
		return
	}

	count := int64(defaultPendingListCount)
	if raw := r.URL.Query().Get("count"); raw != "" {
		n, err := strconv.ParseInt(raw, 10, 64)
		if err != nil || n < 1 {
			respond.Error(w, http.StatusBadRequest, "invalid count parameter")
			return
		}
		count = n
	}

	messages, err := h.backlog.PendingAuditMessages(r.Context(), h.group, count)
	if err != nil {
		respond.Internal(w, r, h.logger, err)
		return
	}
	respond.JSON(w, http.StatusOK, map[string]interface{}{"group": h.group, "messages": messages})
}
