package sqlite

import (
	"context"
	"database/sql"
	"encoding/json"
	"fmt"

	"github.com/vantagehq/vantage/pkg/models"
)

// SaveAlert journals a snapshot of an alert and its audit trail. The alert
// row is replaced; audit rows are insert-or-ignore by sequence number so the
// persisted trail only ever grows.
func (db *DB) SaveAlert(ctx context.Context, alert *models.Alert) error {
	actions, err := json.Marshal(alert.RecommendedActions)
	if err != nil {
		return fmt.Errorf("failed to marshal recommended actions: %w", err)
	}

	tx, err := db.writeDB.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin alert save: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	_, err = tx.ExecContext(ctx, `
		INSERT INTO alerts (
			id, created_at, title, summary, trigger_condition, domain, root_cause,
			financial_impact, confidence_score, model_version, severity, status,
			retry_count, recommended_actions
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(id) DO UPDATE SET
			status = excluded.status,
			retry_count = excluded.retry_count`,
		alert.ID, alert.Timestamp, alert.Title, alert.Summary, alert.TriggerCondition,
		string(alert.Domain), alert.RootCause, alert.FinancialImpact, alert.ConfidenceScore,
		alert.ModelVersion, string(alert.Severity), string(alert.Status),
		alert.RetryCount, string(actions),
	)
	if err != nil {
		return fmt.Errorf("failed to save alert %s: %w", alert.ID, err)
	}

	for seq, entry := range alert.AuditTrail {
		var metadata any
		if entry.Metadata != nil {
			raw, err := json.Marshal(entry.Metadata)
			if err != nil {
				return fmt.Errorf("failed to marshal audit metadata: %w", err)
			}
			metadata = string(raw)
		}
		_, err = tx.ExecContext(ctx, `
			INSERT OR IGNORE INTO alert_audit (alert_id, seq, created_at, action, actor, metadata)
			VALUES (?, ?, ?, ?, ?, ?)`,
			alert.ID, seq, entry.Timestamp, entry.Action, entry.User, metadata,
		)
		if err != nil {
			return fmt.Errorf("failed to save audit entry %d for alert %s: %w", seq, alert.ID, err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit alert save: %w", err)
	}
	return nil
}

// ListAlerts returns every persisted alert with its audit trail in reverse
// insertion order, matching the order triggers produced them even when
// several share a timestamp. Used to restore the engine's session at boot.
func (db *DB) ListAlerts(ctx context.Context) ([]models.Alert, error) {
	rows, err := db.readDB.QueryContext(ctx, `
		SELECT id, created_at, title, summary, trigger_condition, domain, root_cause,
			financial_impact, confidence_score, model_version, severity, status,
			retry_count, recommended_actions
		FROM alerts ORDER BY rowid DESC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list alerts: %w", err)
	}
	defer rows.Close()

	var alerts []models.Alert
	for rows.Next() {
		var (
			alert      models.Alert
			domain     string
			severity   string
			status     string
			actionsRaw string
		)
		if err := rows.Scan(
			&alert.ID, &alert.Timestamp, &alert.Title, &alert.Summary,
			&alert.TriggerCondition, &domain, &alert.RootCause,
			&alert.FinancialImpact, &alert.ConfidenceScore, &alert.ModelVersion,
			&severity, &status, &alert.RetryCount, &actionsRaw,
		); err != nil {
			return nil, fmt.Errorf("failed to scan alert row: %w", err)
		}
		alert.Domain = models.Domain(domain)
		alert.Severity = models.Severity(severity)
		alert.Status = models.AlertStatus(status)
		alert.StatusLabel = alert.Status.Label()
		if err := json.Unmarshal([]byte(actionsRaw), &alert.RecommendedActions); err != nil {
			return nil, fmt.Errorf("failed to decode recommended actions for alert %s: %w", alert.ID, err)
		}
		alerts = append(alerts, alert)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate alert rows: %w", err)
	}

	for i := range alerts {
		trail, err := db.listAuditTrail(ctx, alerts[i].ID)
		if err != nil {
			return nil, err
		}
		alerts[i].AuditTrail = trail
	}
	return alerts, nil
}

func (db *DB) listAuditTrail(ctx context.Context, alertID string) ([]models.AuditEntry, error) {
	rows, err := db.readDB.QueryContext(ctx, `
		SELECT created_at, action, actor, metadata
		FROM alert_audit WHERE alert_id = ? ORDER BY seq ASC`, alertID)
	if err != nil {
		return nil, fmt.Errorf("failed to list audit trail for alert %s: %w", alertID, err)
	}
	defer rows.Close()

	var trail []models.AuditEntry
	for rows.Next() {
		var (
			entry    models.AuditEntry
			metadata sql.NullString
		)
		if err := rows.Scan(&entry.Timestamp, &entry.Action, &entry.User, &metadata); err != nil {
			return nil, fmt.Errorf("failed to scan audit row: %w", err)
		}
		if metadata.Valid && metadata.String != "" {
			if err := json.Unmarshal([]byte(metadata.String), &entry.Metadata); err != nil {
				return nil, fmt.Errorf("failed to decode audit metadata: %w", err)
			}
		}
		trail = append(trail, entry)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate audit rows: %w", err)
	}
	return trail, nil
}
