// Package engine implements the alert lifecycle: it is the sole authority
// for creating alerts, transitioning their status, and maintaining the
// append-only audit trail per alert.
package engine

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/VictoriaMetrics/metrics"
	"github.com/google/uuid"

	"github.com/vantagehq/vantage/pkg/models"
)

var (
	// ErrAlertNotFound is returned when an operation references an unknown alert ID.
	ErrAlertNotFound = errors.New("alert not found")
	// ErrEmptyResolutionNotes indicates Resolve was called with blank notes.
	ErrEmptyResolutionNotes = errors.New("resolution notes must not be empty")
	// ErrAlertResolved indicates a transition was attempted on a resolved alert.
	ErrAlertResolved = errors.New("alert is already resolved")
	// ErrRedispatchNotAllowed indicates Redispatch was called on an alert whose
	// delivery did not fail.
	ErrRedispatchNotAllowed = errors.New("redispatch is only allowed after a delivery failure")
)

var (
	alertsTriggeredTotal    = metrics.NewCounter("vantage_alerts_triggered_total")
	dispatchSuccessTotal    = metrics.NewCounter("vantage_alert_dispatch_success_total")
	dispatchFailureTotal    = metrics.NewCounter("vantage_alert_dispatch_failure_total")
	alertsAcknowledgedTotal = metrics.NewCounter("vantage_alerts_acknowledged_total")
	alertsResolvedTotal     = metrics.NewCounter("vantage_alerts_resolved_total")
)

// Dispatcher delivers a formatted notification for one alert to a set of
// recipient addresses. A nil error means the whole batch was delivered;
// any failure cause (transport, non-2xx, bad payload) is folded into the
// returned error. Implementations must not retry.
type Dispatcher interface {
	Send(ctx context.Context, alert *models.Alert, recipients []string) error
}

// Recorder persists alert snapshots underneath the engine. Persistence is a
// side channel: a recorder failure never affects a lifecycle transition.
type Recorder interface {
	SaveAlert(ctx context.Context, alert *models.Alert) error
}

// Options encapsulates the dependencies required to construct an Engine.
type Options struct {
	Logger     *slog.Logger
	Dispatcher Dispatcher
	Recipients *RecipientRegistry
	Recorder   Recorder

	// Now and NewID are injectable for deterministic tests.
	Now   func() time.Time
	NewID func() string

	// EngineActor and DispatcherActor are the user labels stamped on
	// system-generated audit entries.
	EngineActor     string
	DispatcherActor string
}

// Engine owns the canonical alert collection, keyed by ID and ordered
// newest-first. All status transitions go through it.
type Engine struct {
	log             *slog.Logger
	dispatcher      Dispatcher
	recipients      *RecipientRegistry
	recorder        Recorder
	now             func() time.Time
	newID           func() string
	engineActor     string
	dispatcherActor string

	// mu guards the collection, ordering and platform mode. Each entry
	// carries its own lock so transitions on different alerts never
	// contend with one another.
	mu           sync.RWMutex
	alerts       map[string]*alertEntry
	order        []string
	safeMode     bool
	systemStatus models.HealthState
	lastUpdate   time.Time
}

type alertEntry struct {
	mu    sync.Mutex
	alert models.Alert
}

// New constructs an Engine. Logger, Recipients and Dispatcher are expected;
// clock and ID generation fall back to UTC time.Now and UUIDv4.
func New(opts Options) *Engine {
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	now := opts.Now
	if now == nil {
		now = func() time.Time { return time.Now().UTC() }
	}
	newID := opts.NewID
	if newID == nil {
		newID = uuid.NewString
	}
	recipients := opts.Recipients
	if recipients == nil {
		recipients = NewRecipientRegistry()
	}
	engineActor := opts.EngineActor
	if engineActor == "" {
		engineActor = "lifecycle-engine"
	}
	dispatcherActor := opts.DispatcherActor
	if dispatcherActor == "" {
		dispatcherActor = "notification-dispatcher"
	}
	return &Engine{
		log:             log.With("component", "alert_engine"),
		dispatcher:      opts.Dispatcher,
		recipients:      recipients,
		recorder:        opts.Recorder,
		now:             now,
		newID:           newID,
		engineActor:     engineActor,
		dispatcherActor: dispatcherActor,
		alerts:          make(map[string]*alertEntry),
		systemStatus:    models.HealthStateHealthy,
		lastUpdate:      now(),
	}
}

// Recipients exposes the registry consulted at dispatch time.
func (e *Engine) Recipients() *RecipientRegistry {
	return e.recipients
}

// Trigger creates a new alert in the triggered state, inserts it at the
// front of the collection and immediately runs the dispatch sequence. The
// returned alert carries the post-dispatch status; alert creation itself
// never fails on a delivery error.
func (e *Engine) Trigger(ctx context.Context, req models.TriggerAlertRequest) (*models.Alert, error) {
	alert, err := e.buildAlert(req)
	if err != nil {
		return nil, err
	}

	// The entry lock is held before the alert becomes visible in the
	// collection, so no other transition can interleave between insertion
	// and the dispatch outcome landing.
	entry := &alertEntry{alert: alert}
	entry.mu.Lock()
	defer entry.mu.Unlock()

	e.mu.Lock()
	e.alerts[alert.ID] = entry
	e.order = append([]string{alert.ID}, e.order...)
	e.lastUpdate = e.now()
	e.mu.Unlock()

	alertsTriggeredTotal.Inc()
	e.log.Info("alert triggered",
		"alert_id", alert.ID, "severity", alert.Severity, "domain", alert.Domain)

	e.dispatchLocked(ctx, entry)
	e.persist(ctx, &entry.alert)

	out := copyAlert(entry.alert)
	return &out, nil
}

// Acknowledge marks an alert as acknowledged. Acknowledging an alert that is
// already acknowledged is an idempotent no-op; acknowledging a resolved alert
// is rejected without touching state.
func (e *Engine) Acknowledge(ctx context.Context, id, actor string) error {
	entry, ok := e.lookup(id)
	if !ok {
		return ErrAlertNotFound
	}
	if actor == "" {
		actor = "executive"
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	switch entry.alert.Status {
	case models.AlertStatusResolved:
		return ErrAlertResolved
	case models.AlertStatusAcknowledged:
		return nil
	}

	e.setStatusLocked(entry, models.AlertStatusAcknowledged)
	e.appendAuditLocked(entry, models.AuditEntry{
		Action: models.AuditActionAcknowledged,
		User:   actor,
	})
	alertsAcknowledgedTotal.Inc()
	e.log.Info("alert acknowledged", "alert_id", id, "actor", actor)
	e.persist(ctx, &entry.alert)
	return nil
}

// Resolve terminally closes out an alert. Blank notes are a precondition
// violation: the call fails without changing status or appending audit.
func (e *Engine) Resolve(ctx context.Context, id, notes, actor string) error {
	notes = strings.TrimSpace(notes)
	if notes == "" {
		return ErrEmptyResolutionNotes
	}
	entry, ok := e.lookup(id)
	if !ok {
		return ErrAlertNotFound
	}
	if actor == "" {
		actor = "executive"
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.alert.Status == models.AlertStatusResolved {
		return ErrAlertResolved
	}

	e.setStatusLocked(entry, models.AlertStatusResolved)
	e.appendAuditLocked(entry, models.AuditEntry{
		Action:   models.AuditActionResolved,
		User:     actor,
		Metadata: map[string]any{"notes": notes},
	})
	alertsResolvedTotal.Inc()
	e.log.Info("alert resolved", "alert_id", id, "actor", actor)
	e.persist(ctx, &entry.alert)
	return nil
}

// Redispatch re-runs the notification sequence for an alert whose original
// dispatch failed. It increments the retry counter; there is no automatic
// retry anywhere in the engine.
func (e *Engine) Redispatch(ctx context.Context, id, actor string) (*models.Alert, error) {
	entry, ok := e.lookup(id)
	if !ok {
		return nil, ErrAlertNotFound
	}
	if actor == "" {
		actor = "executive"
	}

	entry.mu.Lock()
	defer entry.mu.Unlock()

	if entry.alert.Status != models.AlertStatusDeliveryFailed {
		return nil, ErrRedispatchNotAllowed
	}

	entry.alert.RetryCount++
	e.appendAuditLocked(entry, models.AuditEntry{
		Action:   models.AuditActionRedispatched,
		User:     actor,
		Metadata: map[string]any{"retry_count": entry.alert.RetryCount},
	})
	e.dispatchLocked(ctx, entry)
	e.persist(ctx, &entry.alert)

	out := copyAlert(entry.alert)
	return &out, nil
}

// ToggleSafeMode flips the process-wide safe mode flag. While active, the
// platform health indicator is downgraded to warning and prescriptive
// recommendations are advisory only. Alert creation is never blocked.
func (e *Engine) ToggleSafeMode() models.PlatformStatus {
	e.mu.Lock()
	defer e.mu.Unlock()

	e.safeMode = !e.safeMode
	if e.safeMode {
		e.systemStatus = models.HealthStateWarning
	} else {
		e.systemStatus = models.HealthStateHealthy
	}
	e.lastUpdate = e.now()
	e.log.Info("safe mode toggled", "safe_mode", e.safeMode)
	return models.PlatformStatus{
		SafeMode:     e.safeMode,
		SystemStatus: e.systemStatus,
		LastUpdate:   e.lastUpdate,
	}
}

// Status reports the current platform mode.
func (e *Engine) Status() models.PlatformStatus {
	e.mu.RLock()
	defer e.mu.RUnlock()
	return models.PlatformStatus{
		SafeMode:     e.safeMode,
		SystemStatus: e.systemStatus,
		LastUpdate:   e.lastUpdate,
	}
}

// List returns copies of all alerts, newest first.
func (e *Engine) List() []models.Alert {
	e.mu.RLock()
	ids := make([]string, len(e.order))
	copy(ids, e.order)
	entries := make([]*alertEntry, 0, len(ids))
	for _, id := range ids {
		entries = append(entries, e.alerts[id])
	}
	e.mu.RUnlock()

	out := make([]models.Alert, 0, len(entries))
	for _, entry := range entries {
		entry.mu.Lock()
		out = append(out, copyAlert(entry.alert))
		entry.mu.Unlock()
	}
	return out
}

// Get returns a copy of a single alert.
func (e *Engine) Get(id string) (*models.Alert, error) {
	entry, ok := e.lookup(id)
	if !ok {
		return nil, ErrAlertNotFound
	}
	entry.mu.Lock()
	defer entry.mu.Unlock()
	out := copyAlert(entry.alert)
	return &out, nil
}

// AuditTrail returns a copy of an alert's audit history.
func (e *Engine) AuditTrail(id string) ([]models.AuditEntry, error) {
	alert, err := e.Get(id)
	if err != nil {
		return nil, err
	}
	return alert.AuditTrail, nil
}

// Restore inserts previously persisted alerts without re-running dispatch.
// It is intended for session restore at boot, before any concurrent use.
func (e *Engine) Restore(alerts []models.Alert) {
	e.mu.Lock()
	defer e.mu.Unlock()
	for i := len(alerts) - 1; i >= 0; i-- {
		alert := copyAlert(alerts[i])
		if _, exists := e.alerts[alert.ID]; exists {
			continue
		}
		alert.StatusLabel = alert.Status.Label()
		e.alerts[alert.ID] = &alertEntry{alert: alert}
		e.order = append([]string{alert.ID}, e.order...)
	}
}

func (e *Engine) buildAlert(req models.TriggerAlertRequest) (models.Alert, error) {
	title := strings.TrimSpace(req.Title)
	if title == "" {
		title = "System Alert"
	}
	condition := strings.TrimSpace(req.TriggerCondition)
	if condition == "" {
		condition = "Manual Trigger"
	}
	domain := req.Domain
	if domain == "" {
		domain = models.DomainOperations
	}
	if _, ok := models.ValidDomains[domain]; !ok {
		return models.Alert{}, fmt.Errorf("invalid domain %q", req.Domain)
	}
	severity := req.Severity
	if severity == "" {
		severity = models.SeverityMedium
	}
	if _, ok := models.ValidSeverities[severity]; !ok {
		return models.Alert{}, fmt.Errorf("invalid severity %q", req.Severity)
	}
	confidence := req.ConfidenceScore
	if confidence == 0 {
		confidence = 0.9
	}
	if confidence < 0 || confidence > 1 {
		return models.Alert{}, fmt.Errorf("confidence score %v out of range [0,1]", req.ConfidenceScore)
	}
	modelVersion := strings.TrimSpace(req.ModelVersion)
	if modelVersion == "" {
		modelVersion = "v1.0.0"
	}

	createdAt := e.now()
	status := models.AlertStatusTriggered
	return models.Alert{
		ID:                 e.newID(),
		Timestamp:          createdAt,
		Title:              title,
		Summary:            strings.TrimSpace(req.Summary),
		TriggerCondition:   condition,
		Domain:             domain,
		RootCause:          strings.TrimSpace(req.RootCause),
		FinancialImpact:    req.FinancialImpact,
		ConfidenceScore:    confidence,
		ModelVersion:       modelVersion,
		Severity:           severity,
		Status:             status,
		StatusLabel:        status.Label(),
		RecommendedActions: append([]string(nil), req.RecommendedActions...),
		AuditTrail: []models.AuditEntry{{
			Timestamp: createdAt,
			Action:    models.AuditActionTriggered,
			User:      e.engineActor,
		}},
	}, nil
}

// dispatchLocked runs the notification sequence for the entry. The caller
// holds entry.mu, so the status change and its audit entry land atomically
// with respect to any reader of the same alert.
func (e *Engine) dispatchLocked(ctx context.Context, entry *alertEntry) {
	recipients := e.recipients.Snapshot()

	var err error
	if e.dispatcher == nil {
		err = errors.New("no dispatcher configured")
	} else if len(recipients) == 0 {
		err = errors.New("no recipients registered")
	} else {
		err = e.dispatcher.Send(ctx, &entry.alert, recipients)
	}

	if err != nil {
		dispatchFailureTotal.Inc()
		e.log.Warn("alert dispatch failed", "alert_id", entry.alert.ID, "error", err)
		e.setStatusLocked(entry, models.AlertStatusDeliveryFailed)
		e.appendAuditLocked(entry, models.AuditEntry{
			Action: models.AuditActionEmailFailed,
			User:   e.dispatcherActor,
		})
		return
	}

	dispatchSuccessTotal.Inc()
	e.log.Info("alert dispatched", "alert_id", entry.alert.ID, "recipients", len(recipients))
	e.setStatusLocked(entry, models.AlertStatusEmailSent)
	e.appendAuditLocked(entry, models.AuditEntry{
		Action: models.AuditActionEmailSent,
		User:   e.dispatcherActor,
	})
}

func (e *Engine) setStatusLocked(entry *alertEntry, status models.AlertStatus) {
	entry.alert.Status = status
	entry.alert.StatusLabel = status.Label()
}

// appendAuditLocked appends to the trail, keeping timestamps non-decreasing
// for the alert even if the wall clock steps backwards.
func (e *Engine) appendAuditLocked(entry *alertEntry, audit models.AuditEntry) {
	ts := e.now()
	if n := len(entry.alert.AuditTrail); n > 0 {
		if last := entry.alert.AuditTrail[n-1].Timestamp; ts.Before(last) {
			ts = last
		}
	}
	audit.Timestamp = ts
	entry.alert.AuditTrail = append(entry.alert.AuditTrail, audit)
}

func (e *Engine) lookup(id string) (*alertEntry, bool) {
	e.mu.RLock()
	defer e.mu.RUnlock()
	entry, ok := e.alerts[id]
	return entry, ok
}

func (e *Engine) persist(ctx context.Context, alert *models.Alert) {
	if e.recorder == nil {
		return
	}
	snapshot := copyAlert(*alert)
	if err := e.recorder.SaveAlert(ctx, &snapshot); err != nil {
		e.log.Warn("failed to persist alert snapshot", "alert_id", alert.ID, "error", err)
	}
}

func copyAlert(a models.Alert) models.Alert {
	out := a
	out.RecommendedActions = append([]string(nil), a.RecommendedActions...)
	out.AuditTrail = make([]models.AuditEntry, len(a.AuditTrail))
	for i, audit := range a.AuditTrail {
		copied := audit
		if audit.Metadata != nil {
			copied.Metadata = make(map[string]any, len(audit.Metadata))
			for k, v := range audit.Metadata {
				copied.Metadata[k] = v
			}
		}
		out.AuditTrail[i] = copied
	}
	return out
}
