package metrics

import (
	"testing"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/testutil"
)

func TestNewGatewayMetrics(t *testing.T) {
	reg := prometheus.NewRegistry()
	m := NewGatewayMetrics(reg)

	m.ExportOutcomes.WithLabelValues("property", "delivered").Inc()
	m.AuthzDecisions.WithLabelValues("manager", "deny").Inc()
	m.WALActive.Set(1)

	if got := testutil.ToFloat64(m.ExportOutcomes.WithLabelValues("property", "delivered")); got != 1 {
		t.Errorf("expected 1 delivered export, got %v", got)
	}

	families, err := reg.Gather()
	if err != nil {
		t.Fatalf("gather failed: %v", err)
	}
	names := map[string]bool{}
	for _, f := range families {
		names[f.GetName()] = true
	}
	for _, want := range []string{
		"compliance_gate_export_outcomes_total",
		"compliance_gate_authz_decisions_total",
		"compliance_gate_audit_wal_active_gauge",
	} {
		if !names[want] {
			t.Errorf("metric %s not registered", want)
		}
	}
}
