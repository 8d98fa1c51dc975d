package metrics

import (
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

// GatewayMetrics holds all Prometheus metrics for the compliance gateway.
type GatewayMetrics struct {
	AuthzDecisions     *prometheus.CounterVec
	ExportOutcomes     *prometheus.CounterVec
	RateLimited        prometheus.Counter
	WALActive          prometheus.Gauge
	PersonaCacheHits   prometheus.Counter
	PersonaCacheMisses prometheus.Counter
	ExportCacheHits    prometheus.Counter
	ExportCacheMisses  prometheus.Counter
}

// NewGatewayMetrics initializes and registers the Prometheus metrics with reg.
// A nil reg uses the default registerer.
func NewGatewayMetrics(reg prometheus.Registerer) *GatewayMetrics {
	if reg == nil {
		reg = prometheus.DefaultRegisterer
	}
	factory := promauto.With(reg)

	return &GatewayMetrics{
		AuthzDecisions: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compliance_gate",
			Subsystem: "authz",
			Name:      "decisions_total",
			Help:      "Total number of authorization decisions by required persona and result.",
		}, []string{"required", "result"}), // result: allow, deny
		ExportOutcomes: factory.NewCounterVec(prometheus.CounterOpts{
			Namespace: "compliance_gate",
			Subsystem: "export",
			Name:      "outcomes_total",
			Help:      "Total number of HACT export requests by entity type and outcome.",
		}, []string{"entity", "outcome"}), // outcome: delivered, denied, not_found, fault
		RateLimited: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "compliance_gate",
			Subsystem: "export",
			Name:      "rate_limited_total",
			Help:      "Total number of export requests rejected by the rate limiter.",
		}),
		WALActive: factory.NewGauge(prometheus.GaugeOpts{
			Namespace: "compliance_gate",
			Subsystem: "audit",
			Name:      "wal_active_gauge",
			Help:      "Indicates if the audit Write-Ahead Log is currently active (1 for active, 0 for inactive).",
		}),
		PersonaCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "compliance_gate",
			Subsystem: "identity",
			Name:      "persona_cache_hits_total",
			Help:      "Total number of persona directory cache hits.",
		}),
		PersonaCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "compliance_gate",
			Subsystem: "identity",
			Name:      "persona_cache_misses_total",
			Help:      "Total number of persona directory cache misses.",
		}),
		ExportCacheHits: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "compliance_gate",
			Subsystem: "export",
			Name:      "cache_hits_total",
			Help:      "Total number of HACT export cache hits.",
		}),
		ExportCacheMisses: factory.NewCounter(prometheus.CounterOpts{
			Namespace: "compliance_gate",
			Subsystem: "export",
			Name:      "cache_misses_total",
			Help:      "Total number of HACT export cache misses.",
		}),
	}
}
