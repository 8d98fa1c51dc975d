package api

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/V4T54L/compliance-gate/internal/adapter/api/handler"
)

// NewAdminRouter creates the HTTP router for the admin listener: health,
// Prometheus metrics and the audit backlog.
func NewAdminRouter(adminHandler *handler.AdminHandler) http.Handler {
	mux := http.NewServeMux()

	mux.HandleFunc("GET /health", adminHandler.HealthCheck)
	mux.Handle("GET /metrics", promhttp.Handler())
	mux.HandleFunc("GET /admin/audit/pending", adminHandler.GetAuditBacklog)
	mux.HandleFunc("GET /admin/audit/pending/messages", adminHandler.GetPendingAuditMessages)

	return mux
}
