package sqlite

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/vantagehq/vantage/pkg/models"
)

// ListModels returns governance metadata for every registered model.
func (db *DB) ListModels(ctx context.Context) ([]models.ModelHealth, error) {
	rows, err := db.readDB.QueryContext(ctx, `
		SELECT name, version, accuracy, drift_score, last_trained, hash, status
		FROM model_registry ORDER BY name ASC, version ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list models: %w", err)
	}
	defer rows.Close()

	var registry []models.ModelHealth
	for rows.Next() {
		var (
			m      models.ModelHealth
			status string
		)
		if err := rows.Scan(&m.Name, &m.Version, &m.Accuracy, &m.DriftScore,
			&m.LastTrained, &m.Hash, &status); err != nil {
			return nil, fmt.Errorf("failed to scan model row: %w", err)
		}
		m.Status = models.ModelStatus(status)
		registry = append(registry, m)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate model rows: %w", err)
	}
	return registry, nil
}

// ListDecisions returns all tracked decisions, most recently updated first.
func (db *DB) ListDecisions(ctx context.Context) ([]models.Decision, error) {
	rows, err := db.readDB.QueryContext(ctx, `
		SELECT id, recommendation, domain, expected_roi, risk_level, status, feasibility, horizon
		FROM decisions ORDER BY updated_at DESC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("failed to list decisions: %w", err)
	}
	defer rows.Close()

	var decisions []models.Decision
	for rows.Next() {
		var (
			d         models.Decision
			domain    string
			riskLevel string
			status    string
		)
		if err := rows.Scan(&d.ID, &d.Recommendation, &domain, &d.ExpectedROI,
			&riskLevel, &status, &d.Feasibility, &d.Horizon); err != nil {
			return nil, fmt.Errorf("failed to scan decision row: %w", err)
		}
		d.Domain = models.Domain(domain)
		d.RiskLevel = models.Severity(riskLevel)
		d.Status = models.DecisionStatus(status)
		decisions = append(decisions, d)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("failed to iterate decision rows: %w", err)
	}
	return decisions, nil
}

// GetDecision retrieves a single decision by ID.
func (db *DB) GetDecision(ctx context.Context, id string) (*models.Decision, error) {
	var (
		d         models.Decision
		domain    string
		riskLevel string
		status    string
	)
	err := db.readDB.QueryRowContext(ctx, `
		SELECT id, recommendation, domain, expected_roi, risk_level, status, feasibility, horizon
		FROM decisions WHERE id = ?`, id).Scan(
		&d.ID, &d.Recommendation, &domain, &d.ExpectedROI,
		&riskLevel, &status, &d.Feasibility, &d.Horizon,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("failed to get decision %s: %w", id, err)
	}
	d.Domain = models.Domain(domain)
	d.RiskLevel = models.Severity(riskLevel)
	d.Status = models.DecisionStatus(status)
	return &d, nil
}

// UpdateDecisionStatus moves a decision into a new review state.
func (db *DB) UpdateDecisionStatus(ctx context.Context, id string, status models.DecisionStatus) error {
	result, err := db.writeDB.ExecContext(ctx,
		`UPDATE decisions SET status = ?, updated_at = ? WHERE id = ?`,
		string(status), time.Now().UTC(), id,
	)
	if err != nil {
		return fmt.Errorf("failed to update decision %s: %w", id, err)
	}
	affected, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to check decision update: %w", err)
	}
	if affected == 0 {
		return ErrNotFound
	}
	return nil
}
