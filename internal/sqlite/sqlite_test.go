package sqlite

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/vantagehq/vantage/internal/config"
	"github.com/vantagehq/vantage/pkg/models"
)

func newTestDB(t *testing.T) *DB {
	t.Helper()
	db, err := New(Options{
		Config: config.SQLiteConfig{Path: filepath.Join(t.TempDir(), "test.db")},
	})
	if err != nil {
		t.Fatalf("failed to open test database: %v", err)
	}
	t.Cleanup(func() { _ = db.Close() })
	return db
}

func sampleAlert(id string, status models.AlertStatus, trail ...models.AuditEntry) *models.Alert {
	return &models.Alert{
		ID:                 id,
		Timestamp:          time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
		Title:              "Churn Spike",
		Summary:            "Churn exceeded threshold",
		TriggerCondition:   "Churn Rate > 4%",
		Domain:             models.DomainFinance,
		FinancialImpact:    -480000,
		ConfidenceScore:    0.92,
		ModelVersion:       "v4.2.0",
		Severity:           models.SeverityCritical,
		Status:             status,
		StatusLabel:        status.Label(),
		RecommendedActions: []string{"Pause campaigns"},
		AuditTrail:         trail,
	}
}

func TestAlertJournal(t *testing.T) {
	ctx := context.Background()

	t.Run("round trips alert with audit trail", func(t *testing.T) {
		db := newTestDB(t)
		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		alert := sampleAlert("alrt-1", models.AlertStatusEmailSent,
			models.AuditEntry{Timestamp: base, Action: models.AuditActionTriggered, User: "lifecycle-engine"},
			models.AuditEntry{Timestamp: base.Add(time.Second), Action: models.AuditActionEmailSent, User: "notification-dispatcher"},
		)
		if err := db.SaveAlert(ctx, alert); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		alerts, err := db.ListAlerts(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alerts) != 1 {
			t.Fatalf("listed %d alerts, want 1", len(alerts))
		}
		got := alerts[0]
		if got.Status != models.AlertStatusEmailSent {
			t.Errorf("status = %q", got.Status)
		}
		if got.StatusLabel != "Email Sent" {
			t.Errorf("status label = %q", got.StatusLabel)
		}
		if len(got.AuditTrail) != 2 {
			t.Fatalf("audit trail has %d entries, want 2", len(got.AuditTrail))
		}
		if got.AuditTrail[0].Action != models.AuditActionTriggered {
			t.Errorf("first action = %q", got.AuditTrail[0].Action)
		}
		if len(got.RecommendedActions) != 1 || got.RecommendedActions[0] != "Pause campaigns" {
			t.Errorf("recommended actions = %v", got.RecommendedActions)
		}
	})

	t.Run("resave grows audit trail without duplicating", func(t *testing.T) {
		db := newTestDB(t)
		base := time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC)

		trail := []models.AuditEntry{
			{Timestamp: base, Action: models.AuditActionTriggered, User: "lifecycle-engine"},
			{Timestamp: base.Add(time.Second), Action: models.AuditActionEmailFailed, User: "notification-dispatcher"},
		}
		alert := sampleAlert("alrt-2", models.AlertStatusDeliveryFailed, trail...)
		if err := db.SaveAlert(ctx, alert); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		alert.Status = models.AlertStatusResolved
		alert.AuditTrail = append(trail, models.AuditEntry{
			Timestamp: base.Add(2 * time.Second),
			Action:    models.AuditActionResolved,
			User:      "ceo@example.com",
			Metadata:  map[string]any{"notes": "Budget reallocated"},
		})
		if err := db.SaveAlert(ctx, alert); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		alerts, err := db.ListAlerts(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		got := alerts[0]
		if got.Status != models.AlertStatusResolved {
			t.Errorf("status = %q, want resolved", got.Status)
		}
		if len(got.AuditTrail) != 3 {
			t.Fatalf("audit trail has %d entries, want 3", len(got.AuditTrail))
		}
		last := got.AuditTrail[2]
		if notes, _ := last.Metadata["notes"].(string); notes != "Budget reallocated" {
			t.Errorf("notes metadata = %q", notes)
		}
	})

	t.Run("lists newest first", func(t *testing.T) {
		db := newTestDB(t)

		older := sampleAlert("alrt-old", models.AlertStatusEmailSent,
			models.AuditEntry{Timestamp: time.Now().UTC(), Action: models.AuditActionTriggered, User: "lifecycle-engine"})
		older.Timestamp = time.Date(2026, 1, 1, 0, 0, 0, 0, time.UTC)
		newer := sampleAlert("alrt-new", models.AlertStatusEmailSent,
			models.AuditEntry{Timestamp: time.Now().UTC(), Action: models.AuditActionTriggered, User: "lifecycle-engine"})
		newer.Timestamp = time.Date(2026, 2, 1, 0, 0, 0, 0, time.UTC)

		if err := db.SaveAlert(ctx, older); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if err := db.SaveAlert(ctx, newer); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}

		alerts, _ := db.ListAlerts(ctx)
		if len(alerts) != 2 || alerts[0].ID != "alrt-new" {
			t.Errorf("order = %v, want alrt-new first", []string{alerts[0].ID, alerts[1].ID})
		}
	})

	t.Run("insertion order breaks timestamp ties", func(t *testing.T) {
		db := newTestDB(t)
		entry := models.AuditEntry{
			Timestamp: time.Date(2026, 3, 1, 10, 0, 0, 0, time.UTC),
			Action:    models.AuditActionTriggered,
			User:      "lifecycle-engine",
		}

		// IDs sort against insertion order so an ID tiebreak would reorder.
		for _, id := range []string{"alrt-z", "alrt-m", "alrt-a"} {
			if err := db.SaveAlert(ctx, sampleAlert(id, models.AlertStatusEmailSent, entry)); err != nil {
				t.Fatalf("unexpected error: %v", err)
			}
		}

		alerts, err := db.ListAlerts(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(alerts) != 3 {
			t.Fatalf("listed %d alerts, want 3", len(alerts))
		}
		for i, want := range []string{"alrt-a", "alrt-m", "alrt-z"} {
			if alerts[i].ID != want {
				t.Errorf("alerts[%d].ID = %q, want %q", i, alerts[i].ID, want)
			}
		}
	})
}

func TestRecipientStore(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if err := db.AddRecipient(ctx, "ceo@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	// Re-adding is a no-op.
	if err := db.AddRecipient(ctx, "ceo@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.AddRecipient(ctx, "cfo@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}

	addresses, err := db.ListRecipients(ctx)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if len(addresses) != 2 {
		t.Fatalf("listed %d addresses, want 2", len(addresses))
	}

	if err := db.RemoveRecipient(ctx, "cfo@example.com"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if err := db.RemoveRecipient(ctx, "unknown@example.com"); err != nil {
		t.Fatalf("removing unknown address: %v", err)
	}

	addresses, _ = db.ListRecipients(ctx)
	if len(addresses) != 1 || addresses[0] != "ceo@example.com" {
		t.Errorf("addresses = %v", addresses)
	}
}

func TestSettings(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	if _, err := db.GetSetting(ctx, "missing"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err = %v, want ErrNotFound", err)
	}
	if got := db.GetSettingWithDefault(ctx, "missing", "fallback"); got != "fallback" {
		t.Errorf("default = %q", got)
	}

	if err := db.UpsertSetting(ctx, "ai.model", "gpt-4.1", "string", "ai", "model name", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := db.GetSettingWithDefault(ctx, "ai.model", "x"); got != "gpt-4.1" {
		t.Errorf("value = %q", got)
	}

	if err := db.UpsertSetting(ctx, "ai.model", "gpt-4o-mini", "string", "ai", "model name", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := db.GetSettingWithDefault(ctx, "ai.model", "x"); got != "gpt-4o-mini" {
		t.Errorf("updated value = %q", got)
	}

	typed := []struct {
		key   string
		value string
	}{
		{"kpi.enabled", "true"},
		{"alerts.smtp_port", "2525"},
		{"kpi.monthly_ad_spend", "500000.5"},
		{"kpi.poll_interval", "45s"},
	}
	for _, s := range typed {
		if err := db.UpsertSetting(ctx, s.key, s.value, "string", "", "", false); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
	}
	if !db.GetBoolSetting(ctx, "kpi.enabled", false) {
		t.Error("bool setting not read back")
	}
	if got := db.GetIntSetting(ctx, "alerts.smtp_port", 0); got != 2525 {
		t.Errorf("int setting = %d", got)
	}
	if got := db.GetFloat64Setting(ctx, "kpi.monthly_ad_spend", 0); got != 500000.5 {
		t.Errorf("float setting = %v", got)
	}
	if got := db.GetDurationSetting(ctx, "kpi.poll_interval", 0); got != 45*time.Second {
		t.Errorf("duration setting = %v", got)
	}

	// Unparseable values fall back to the default.
	if err := db.UpsertSetting(ctx, "alerts.smtp_port", "not a number", "string", "", "", false); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if got := db.GetIntSetting(ctx, "alerts.smtp_port", 587); got != 587 {
		t.Errorf("fallback int = %d", got)
	}

	if err := db.DeleteSetting(ctx, "ai.model"); err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if _, err := db.GetSetting(ctx, "ai.model"); !errors.Is(err, ErrNotFound) {
		t.Errorf("err after delete = %v, want ErrNotFound", err)
	}
}

func TestGovernance(t *testing.T) {
	ctx := context.Background()
	db := newTestDB(t)

	t.Run("migrations seed the registry", func(t *testing.T) {
		registry, err := db.ListModels(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(registry) != 2 {
			t.Fatalf("registry has %d models, want 2", len(registry))
		}
		for _, m := range registry {
			if m.Status != models.ModelStatusActive {
				t.Errorf("model %s status = %q, want active", m.Name, m.Status)
			}
		}
	})

	t.Run("decision status update", func(t *testing.T) {
		decisions, err := db.ListDecisions(ctx)
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if len(decisions) != 1 || decisions[0].Status != models.DecisionStatusProposed {
			t.Fatalf("decisions = %+v", decisions)
		}

		if err := db.UpdateDecisionStatus(ctx, "D-1024", models.DecisionStatusApproved); err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		decision, err := db.GetDecision(ctx, "D-1024")
		if err != nil {
			t.Fatalf("unexpected error: %v", err)
		}
		if decision.Status != models.DecisionStatusApproved {
			t.Errorf("status = %q, want approved", decision.Status)
		}

		if err := db.UpdateDecisionStatus(ctx, "D-9999", models.DecisionStatusRejected); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
		if _, err := db.GetDecision(ctx, "D-9999"); !errors.Is(err, ErrNotFound) {
			t.Errorf("err = %v, want ErrNotFound", err)
		}
	})
}
