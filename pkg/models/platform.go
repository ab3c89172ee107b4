package models

import "time"

// Trend describes the direction a KPI is moving in.
type Trend string

const (
	TrendUp      Trend = "up"
	TrendDown    Trend = "down"
	TrendNeutral Trend = "neutral"
)

// HealthState is the traffic-light status used for KPIs and the platform.
type HealthState string

const (
	HealthStateHealthy  HealthState = "healthy"
	HealthStateWarning  HealthState = "warning"
	HealthStateCritical HealthState = "critical"
)

// KPI is a single business metric surfaced on the dashboard.
type KPI struct {
	Name        string      `json:"name"`
	Value       float64     `json:"value"`
	Unit        string      `json:"unit,omitempty"`
	Trend       Trend       `json:"trend"`
	Confidence  float64     `json:"confidence"`
	Status      HealthState `json:"status"`
	LastUpdated time.Time   `json:"last_updated"`
}

// ModelStatus tracks the governance state of a forecasting model.
type ModelStatus string

const (
	ModelStatusActive   ModelStatus = "active"
	ModelStatusFrozen   ModelStatus = "frozen"
	ModelStatusDegraded ModelStatus = "degraded"
)

// ModelHealth is governance metadata for a single deployed model.
type ModelHealth struct {
	Name        string      `json:"name"`
	Version     string      `json:"version"`
	Accuracy    float64     `json:"accuracy"`
	DriftScore  float64     `json:"drift_score"`
	LastTrained time.Time   `json:"last_trained"`
	Hash        string      `json:"hash"`
	Status      ModelStatus `json:"status"`
}

// DecisionStatus tracks the review state of a recommended decision.
type DecisionStatus string

const (
	DecisionStatusProposed   DecisionStatus = "proposed"
	DecisionStatusApproved   DecisionStatus = "approved"
	DecisionStatusInProgress DecisionStatus = "in_progress"
	DecisionStatusCompleted  DecisionStatus = "completed"
	DecisionStatusRejected   DecisionStatus = "rejected"
)

// ValidDecisionStatuses enumerates the closed set of decision states.
var ValidDecisionStatuses = map[DecisionStatus]struct{}{
	DecisionStatusProposed:   {},
	DecisionStatusApproved:   {},
	DecisionStatusInProgress: {},
	DecisionStatusCompleted:  {},
	DecisionStatusRejected:   {},
}

// Decision is a prescriptive recommendation tracked through review.
type Decision struct {
	ID             string         `json:"id"`
	Recommendation string         `json:"recommendation"`
	Domain         Domain         `json:"domain"`
	ExpectedROI    float64        `json:"expected_roi"`
	RiskLevel      Severity       `json:"risk_level"`
	Status         DecisionStatus `json:"status"`
	Feasibility    float64        `json:"feasibility"`
	Horizon        string         `json:"horizon"`
}

// UpdateDecisionRequest changes the review state of a decision.
type UpdateDecisionRequest struct {
	Status DecisionStatus `json:"status"`
}

// PlatformStatus is the process-wide mode and health indicator. While safe
// mode is active, prescriptive recommendations are advisory only.
type PlatformStatus struct {
	SafeMode     bool        `json:"safe_mode"`
	SystemStatus HealthState `json:"system_status"`
	LastUpdate   time.Time   `json:"last_update"`
}
