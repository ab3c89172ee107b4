package server

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"net/http"
	"path/filepath"
	"testing"

	"github.com/vantagehq/vantage/internal/config"
	"github.com/vantagehq/vantage/internal/engine"
	"github.com/vantagehq/vantage/internal/intelligence"
	"github.com/vantagehq/vantage/internal/kpi"
	"github.com/vantagehq/vantage/internal/sqlite"
	"github.com/vantagehq/vantage/pkg/logger"
	"github.com/vantagehq/vantage/pkg/models"
)

type stubDispatcher struct {
	err error
}

func (d *stubDispatcher) Send(context.Context, *models.Alert, []string) error {
	return d.err
}

func newTestServer(t *testing.T, dispatcher engine.Dispatcher) *Server {
	t.Helper()

	log := logger.New("error")
	db, err := sqlite.New(sqlite.Options{
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
		Logger: log,
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })

	cfg := config.Default()
	eng := engine.New(engine.Options{
		Logger:     log,
		Dispatcher: dispatcher,
		Recipients: engine.NewRecipientRegistry("ceo@example.com"),
		Recorder:   db,
	})

	return New(ServerOptions{
		Config:       cfg,
		Engine:       eng,
		KPIStore:     kpi.NewStore(),
		Intelligence: intelligence.New(cfg.AI, log),
		SQLite:       db,
		Logger:       log,
		Version:      "test",
	})
}

func doJSON(t *testing.T, s *Server, method, path string, payload any) (*http.Response, map[string]json.RawMessage) {
	t.Helper()

	var body io.Reader
	if payload != nil {
		raw, err := json.Marshal(payload)
		if err != nil {
			t.Fatalf("failed to marshal payload: %v", err)
		}
		body = bytes.NewReader(raw)
	}
	req, err := http.NewRequest(method, path, body)
	if err != nil {
		t.Fatalf("failed to build request: %v", err)
	}
	if payload != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := s.app.Test(req, -1)
	if err != nil {
		t.Fatalf("request failed: %v", err)
	}

	var envelope map[string]json.RawMessage
	raw, err := io.ReadAll(resp.Body)
	if err != nil {
		t.Fatalf("failed to read response body: %v", err)
	}
	_ = resp.Body.Close()
	if len(raw) > 0 {
		if err := json.Unmarshal(raw, &envelope); err != nil {
			t.Fatalf("failed to decode response %q: %v", raw, err)
		}
	}
	return resp, envelope
}

func dataAs[T any](t *testing.T, envelope map[string]json.RawMessage) T {
	t.Helper()
	var out T
	if err := json.Unmarshal(envelope["data"], &out); err != nil {
		t.Fatalf("failed to decode data: %v", err)
	}
	return out
}

func TestAlertEndpoints(t *testing.T) {
	t.Run("trigger returns created alert", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})

		resp, envelope := doJSON(t, s, http.MethodPost, "/api/v1/alerts", models.TriggerAlertRequest{
			Title:    "Churn Spike",
			Domain:   models.DomainFinance,
			Severity: models.SeverityHigh,
		})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want 201", resp.StatusCode)
		}
		alert := dataAs[models.Alert](t, envelope)
		if alert.Status != models.AlertStatusEmailSent {
			t.Errorf("alert status = %q, want email_sent", alert.Status)
		}
		if len(alert.AuditTrail) != 2 {
			t.Errorf("audit trail has %d entries, want 2", len(alert.AuditTrail))
		}
	})

	t.Run("trigger with failing delivery still creates", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{err: errors.New("down")})

		resp, envelope := doJSON(t, s, http.MethodPost, "/api/v1/alerts", models.TriggerAlertRequest{Title: "Doomed"})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("status = %d, want 201", resp.StatusCode)
		}
		alert := dataAs[models.Alert](t, envelope)
		if alert.Status != models.AlertStatusDeliveryFailed {
			t.Errorf("alert status = %q, want delivery_failed", alert.Status)
		}
	})

	t.Run("invalid trigger payload", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})
		resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/alerts", models.TriggerAlertRequest{Domain: "gambling"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("lifecycle through the api", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})
		_, envelope := doJSON(t, s, http.MethodPost, "/api/v1/alerts", models.TriggerAlertRequest{Title: "Lifecycle"})
		alert := dataAs[models.Alert](t, envelope)

		resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/acknowledge", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("acknowledge status = %d", resp.StatusCode)
		}

		resp, _ = doJSON(t, s, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/resolve", models.ResolveAlertRequest{})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("blank notes resolve status = %d, want 400", resp.StatusCode)
		}

		resp, _ = doJSON(t, s, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/resolve",
			models.ResolveAlertRequest{Notes: "Budget reallocated"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("resolve status = %d", resp.StatusCode)
		}

		resp, _ = doJSON(t, s, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/acknowledge", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("acknowledge after resolve status = %d, want 400", resp.StatusCode)
		}

		_, envelope = doJSON(t, s, http.MethodGet, "/api/v1/alerts/"+alert.ID+"/audit", nil)
		trail := dataAs[[]models.AuditEntry](t, envelope)
		if len(trail) != 4 {
			t.Errorf("audit trail has %d entries, want 4", len(trail))
		}
	})

	t.Run("redispatch rules", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})
		_, envelope := doJSON(t, s, http.MethodPost, "/api/v1/alerts", models.TriggerAlertRequest{Title: "Delivered"})
		alert := dataAs[models.Alert](t, envelope)

		resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/alerts/"+alert.ID+"/redispatch", nil)
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("redispatch of delivered alert status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("unknown alert yields 404", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})
		for _, path := range []string{
			"/api/v1/alerts/nope",
			"/api/v1/alerts/nope/audit",
		} {
			resp, _ := doJSON(t, s, http.MethodGet, path, nil)
			if resp.StatusCode != http.StatusNotFound {
				t.Errorf("%s status = %d, want 404", path, resp.StatusCode)
			}
		}
		resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/alerts/nope/acknowledge", nil)
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("acknowledge status = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("list is newest first", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})
		for i := 0; i < 3; i++ {
			doJSON(t, s, http.MethodPost, "/api/v1/alerts", models.TriggerAlertRequest{
				Title: fmt.Sprintf("alert %d", i),
			})
		}
		_, envelope := doJSON(t, s, http.MethodGet, "/api/v1/alerts", nil)
		list := dataAs[[]models.Alert](t, envelope)
		if len(list) != 3 {
			t.Fatalf("list has %d alerts, want 3", len(list))
		}
		if list[0].Title != "alert 2" {
			t.Errorf("first alert title = %q, want the newest", list[0].Title)
		}
	})
}

func TestPlatformEndpoints(t *testing.T) {
	t.Run("safe mode toggle", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})

		_, envelope := doJSON(t, s, http.MethodGet, "/api/v1/status", nil)
		status := dataAs[models.PlatformStatus](t, envelope)
		if status.SafeMode || status.SystemStatus != models.HealthStateHealthy {
			t.Fatalf("initial status = %+v", status)
		}

		_, envelope = doJSON(t, s, http.MethodPost, "/api/v1/safe-mode/toggle", nil)
		status = dataAs[models.PlatformStatus](t, envelope)
		if !status.SafeMode || status.SystemStatus != models.HealthStateWarning {
			t.Errorf("after toggle = %+v, want safe mode with warning", status)
		}
	})

	t.Run("recipients round trip", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})

		resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/recipients",
			models.AddRecipientRequest{Address: "not an email"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("invalid address status = %d, want 400", resp.StatusCode)
		}

		resp, envelope := doJSON(t, s, http.MethodPost, "/api/v1/recipients",
			models.AddRecipientRequest{Address: "coo@example.com"})
		if resp.StatusCode != http.StatusCreated {
			t.Fatalf("add status = %d, want 201", resp.StatusCode)
		}
		addresses := dataAs[[]string](t, envelope)
		if len(addresses) != 2 {
			t.Errorf("registry has %d addresses, want 2", len(addresses))
		}

		resp, envelope = doJSON(t, s, http.MethodDelete, "/api/v1/recipients/coo@example.com", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("remove status = %d", resp.StatusCode)
		}
		addresses = dataAs[[]string](t, envelope)
		if len(addresses) != 1 {
			t.Errorf("registry has %d addresses after remove, want 1", len(addresses))
		}
	})

	t.Run("remove accepts percent-encoded address", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})

		resp, envelope := doJSON(t, s, http.MethodDelete, "/api/v1/recipients/ceo%40example.com", nil)
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("remove status = %d", resp.StatusCode)
		}
		addresses := dataAs[[]string](t, envelope)
		if len(addresses) != 0 {
			t.Errorf("registry has %d addresses after encoded remove, want 0", len(addresses))
		}
	})

	t.Run("health and kpis respond", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})
		for _, path := range []string{"/health", "/api/v1/kpis", "/metrics"} {
			req, _ := http.NewRequest(http.MethodGet, path, nil)
			resp, err := s.app.Test(req, -1)
			if err != nil {
				t.Fatalf("%s failed: %v", path, err)
			}
			if resp.StatusCode != http.StatusOK {
				t.Errorf("%s status = %d, want 200", path, resp.StatusCode)
			}
			_ = resp.Body.Close()
		}
	})
}

func TestGovernanceEndpoints(t *testing.T) {
	t.Run("seeded models and decisions", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})

		_, envelope := doJSON(t, s, http.MethodGet, "/api/v1/models", nil)
		registry := dataAs[[]models.ModelHealth](t, envelope)
		if len(registry) != 2 {
			t.Errorf("model registry has %d entries, want 2", len(registry))
		}

		_, envelope = doJSON(t, s, http.MethodGet, "/api/v1/decisions", nil)
		decisions := dataAs[[]models.Decision](t, envelope)
		if len(decisions) != 1 || decisions[0].ID != "D-1024" {
			t.Fatalf("decisions = %+v, want seeded D-1024", decisions)
		}
	})

	t.Run("decision status update", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})

		resp, envelope := doJSON(t, s, http.MethodPatch, "/api/v1/decisions/D-1024",
			models.UpdateDecisionRequest{Status: models.DecisionStatusApproved})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		decision := dataAs[models.Decision](t, envelope)
		if decision.Status != models.DecisionStatusApproved {
			t.Errorf("decision status = %q, want approved", decision.Status)
		}

		resp, _ = doJSON(t, s, http.MethodPatch, "/api/v1/decisions/D-1024",
			models.UpdateDecisionRequest{Status: "vetoed"})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("invalid status code = %d, want 400", resp.StatusCode)
		}

		resp, _ = doJSON(t, s, http.MethodPatch, "/api/v1/decisions/D-9999",
			models.UpdateDecisionRequest{Status: models.DecisionStatusRejected})
		if resp.StatusCode != http.StatusNotFound {
			t.Errorf("unknown decision status code = %d, want 404", resp.StatusCode)
		}
	})

	t.Run("safe mode blocks approval", func(t *testing.T) {
		s := newTestServer(t, &stubDispatcher{})
		doJSON(t, s, http.MethodPost, "/api/v1/safe-mode/toggle", nil)

		resp, _ := doJSON(t, s, http.MethodPatch, "/api/v1/decisions/D-1024",
			models.UpdateDecisionRequest{Status: models.DecisionStatusApproved})
		if resp.StatusCode != http.StatusConflict {
			t.Errorf("status = %d, want 409", resp.StatusCode)
		}
	})
}

func TestIntelligenceEndpoints(t *testing.T) {
	s := newTestServer(t, &stubDispatcher{})

	t.Run("empty query rejected", func(t *testing.T) {
		resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/intelligence/query",
			intelligenceQueryRequest{Query: "   "})
		if resp.StatusCode != http.StatusBadRequest {
			t.Errorf("status = %d, want 400", resp.StatusCode)
		}
	})

	t.Run("query degrades to fallback when ai disabled", func(t *testing.T) {
		resp, envelope := doJSON(t, s, http.MethodPost, "/api/v1/intelligence/query",
			intelligenceQueryRequest{Query: "Why did CAC spike?"})
		if resp.StatusCode != http.StatusOK {
			t.Fatalf("status = %d, want 200", resp.StatusCode)
		}
		result := dataAs[intelligence.QueryResult](t, envelope)
		if result.Confidence != 0 {
			t.Errorf("fallback confidence = %v, want 0", result.Confidence)
		}
		if result.Answer == "" {
			t.Error("fallback answer is empty")
		}
	})

	t.Run("simulate returns projection", func(t *testing.T) {
		resp, _ := doJSON(t, s, http.MethodPost, "/api/v1/intelligence/simulate",
			simulateRequest{Assumptions: map[string]any{"ad_spend_delta": -0.2}})
		if resp.StatusCode != http.StatusOK {
			t.Errorf("status = %d, want 200", resp.StatusCode)
		}
	})
}
