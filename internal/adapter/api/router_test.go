package api

import (
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/prometheus/client_golang/prometheus"

	"github.com/V4T54L/compliance-gate/internal/adapter/metrics"
	"github.com/V4T54L/compliance-gate/internal/domain"
	"github.com/V4T54L/compliance-gate/internal/domain/mocks"
	"github.com/V4T54L/compliance-gate/internal/pkg/config"
	"github.com/V4T54L/compliance-gate/internal/usecase"
)

type routerFixture struct {
	handler  http.Handler
	exporter *mocks.MockHACTExporter
	audit    *mocks.MockAuditRepository
}

func newRouterFixture(t *testing.T) routerFixture {
	t.Helper()
	return newRouterFixtureWith(t, &config.Config{ExportRateLimit: 100, ExportRateBurst: 100})
}

func newRouterFixtureWith(t *testing.T, cfg *config.Config) routerFixture {
	t.Helper()
	logger := slog.New(slog.NewTextHandler(io.Discard, nil))

	verifier := &mocks.MockIdentityVerifier{Actors: map[string]domain.Actor{
		"pending-token":   {Subject: "u-0", Persona: domain.PersonaPendingApproval},
		"operative-token": {Subject: "u-1", Persona: domain.PersonaOperative},
		"manager-token":   {Subject: "u-3", Persona: domain.PersonaManager},
		"coo-token":       {Subject: "u-5", Persona: domain.PersonaCOO},
	}}
	exporter := &mocks.MockHACTExporter{
		Records: map[domain.EntityType]map[string]*domain.HACTRecord{
			domain.EntityProperty: {
				"42": {EntityType: domain.EntityProperty, ID: "42", Document: json.RawMessage(`{"uprn":"100023336956"}`)},
			},
		},
	}
	audit := &mocks.MockAuditRepository{}

	clock := func() time.Time { return time.Date(2024, 1, 10, 9, 0, 0, 0, time.UTC) }
	m := metrics.NewGatewayMetrics(prometheus.NewRegistry())

	h := NewRouter(cfg, logger, verifier,
		usecase.NewExportUseCase(exporter, audit, logger),
		usecase.NewUrgencyUseCase(clock),
		m,
	)
	return routerFixture{handler: h, exporter: exporter, audit: audit}
}

func (f routerFixture) get(path, token string) *httptest.ResponseRecorder {
	req := httptest.NewRequest(http.MethodGet, path, nil)
	if token != "" {
		req.Header.Set("Authorization", "Bearer "+token)
	}
	rr := httptest.NewRecorder()
	f.handler.ServeHTTP(rr, req)
	return rr
}

func errorOf(t *testing.T, rr *httptest.ResponseRecorder) string {
	t.Helper()
	var body map[string]string
	if err := json.Unmarshal(rr.Body.Bytes(), &body); err != nil {
		t.Fatalf("expected JSON error body, got %q", rr.Body.String())
	}
	return body["error"]
}

func TestRouter_Export(t *testing.T) {
	t.Run("operative is denied before any lookup", func(t *testing.T) {
		f := newRouterFixture(t)
		rr := f.get("/export/hact/property/42", "operative-token")

		if rr.Code != http.StatusForbidden {
			t.Fatalf("expected 403, got %d", rr.Code)
		}
		if got := errorOf(t, rr); got != "Insufficient permissions. Required: manager, got: operative" {
			t.Errorf("unexpected error %q", got)
		}
		if f.exporter.CallCount() != 0 {
			t.Errorf("expected collaborator call count 0, got %d", f.exporter.CallCount())
		}
		if events := f.audit.Recorded(); len(events) != 1 || events[0].Outcome != "denied" || events[0].RequestID == "" {
			t.Errorf("expected one denied audit event with a request id, got %+v", events)
		}
	})

	t.Run("manager gets not found for missing property", func(t *testing.T) {
		f := newRouterFixture(t)
		rr := f.get("/export/hact/property/99", "manager-token")

		if rr.Code != http.StatusNotFound {
			t.Fatalf("expected 404, got %d", rr.Code)
		}
		if got := errorOf(t, rr); got != "Property not found" {
			t.Errorf("unexpected error %q", got)
		}
	})

	t.Run("coo receives attachment", func(t *testing.T) {
		f := newRouterFixture(t)
		rr := f.get("/export/hact/property/42", "coo-token")

		if rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if got := rr.Header().Get("Content-Disposition"); got != "attachment; filename=property-42-hact.json" {
			t.Errorf("unexpected Content-Disposition %q", got)
		}
		if rr.Header().Get("X-Request-ID") == "" {
			t.Error("expected X-Request-ID on response")
		}
	})

	t.Run("unknown entity type", func(t *testing.T) {
		f := newRouterFixture(t)
		for _, token := range []string{"coo-token", ""} {
			rr := f.get("/export/hact/landlord/42", token)
			if rr.Code != http.StatusNotFound {
				t.Fatalf("expected 404, got %d", rr.Code)
			}
			if got := errorOf(t, rr); got != "Not found" {
				t.Errorf("unexpected error %q", got)
			}
		}
		if f.exporter.CallCount() != 0 {
			t.Error("collaborator must not be reached for unknown entity types")
		}
	})

	t.Run("unauthenticated", func(t *testing.T) {
		f := newRouterFixture(t)
		for _, token := range []string{"", "forged-token"} {
			rr := f.get("/export/hact/property/42", token)
			if rr.Code != http.StatusUnauthorized {
				t.Errorf("expected 401 for token %q, got %d", token, rr.Code)
			}
		}
		if f.exporter.CallCount() != 0 {
			t.Error("collaborator must not be reached without authentication")
		}
	})

	t.Run("denial is not masked by the rate limit", func(t *testing.T) {
		f := newRouterFixtureWith(t, &config.Config{ExportRateLimit: 0.001, ExportRateBurst: 1})
		for i := 0; i < 3; i++ {
			if rr := f.get("/export/hact/property/42", "operative-token"); rr.Code != http.StatusForbidden {
				t.Fatalf("call %d: expected 403, got %d", i, rr.Code)
			}
		}
		if rr := f.get("/export/hact/property/42", "manager-token"); rr.Code != http.StatusOK {
			t.Fatalf("expected 200, got %d", rr.Code)
		}
		if rr := f.get("/export/hact/property/42", "manager-token"); rr.Code != http.StatusTooManyRequests {
			t.Errorf("expected 429, got %d", rr.Code)
		}
	})

	t.Run("method not allowed", func(t *testing.T) {
		f := newRouterFixture(t)
		req := httptest.NewRequest(http.MethodPost, "/export/hact/property/42", nil)
		req.Header.Set("Authorization", "Bearer coo-token")
		rr := httptest.NewRecorder()
		f.handler.ServeHTTP(rr, req)
		if rr.Code != http.StatusMethodNotAllowed {
			t.Errorf("expected 405, got %d", rr.Code)
		}
	})
}

func TestRouter_Compliance(t *testing.T) {
	f := newRouterFixture(t)

	rr := f.get("/compliance/urgency?deadline=2024-01-12", "operative-token")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var urgency map[string]interface{}
	if err := json.Unmarshal(rr.Body.Bytes(), &urgency); err != nil {
		t.Fatal(err)
	}
	if urgency["tier"] != "urgent" || urgency["severity"] != "critical" || urgency["remaining_days"] != float64(2) {
		t.Errorf("unexpected urgency response %v", urgency)
	}

	rr = f.get("/compliance/status/hazard-identified", "operative-token")
	if rr.Code != http.StatusOK {
		t.Fatalf("expected 200, got %d", rr.Code)
	}
	var status domain.StatusView
	if err := json.Unmarshal(rr.Body.Bytes(), &status); err != nil {
		t.Fatal(err)
	}
	if status.Severity != domain.SeverityCritical || status.Label != "Hazard Identified" {
		t.Errorf("unexpected status response %+v", status)
	}

	rr = f.get("/compliance/urgency?deadline=2024-01-12", "pending-token")
	if rr.Code != http.StatusForbidden {
		t.Fatalf("expected 403 for pending-approval, got %d", rr.Code)
	}
	if got := errorOf(t, rr); got != "Insufficient permissions. Required: operative, got: pending-approval" {
		t.Errorf("unexpected error %q", got)
	}
}

func TestRouter_Health(t *testing.T) {
	f := newRouterFixture(t)
	rr := f.get("/health", "")
	if rr.Code != http.StatusOK {
		t.Errorf("expected 200, got %d", rr.Code)
	}
	rr = f.get("/nope", "")
	if rr.Code != http.StatusNotFound || errorOf(t, rr) != "Not found" {
		t.Errorf("expected JSON 404, got %d %s", rr.Code, rr.Body.String())
	}
}
