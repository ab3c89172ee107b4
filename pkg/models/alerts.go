package models

import "time"

// Severity is a lightweight severity indicator for routing and display.
type Severity string

const (
	SeverityLow      Severity = "low"
	SeverityMedium   Severity = "medium"
	SeverityHigh     Severity = "high"
	SeverityCritical Severity = "critical"
)

// ValidSeverities enumerates the closed set of accepted severities.
var ValidSeverities = map[Severity]struct{}{
	SeverityLow:      {},
	SeverityMedium:   {},
	SeverityHigh:     {},
	SeverityCritical: {},
}

// Domain identifies the business area an alert belongs to.
type Domain string

const (
	DomainFinance    Domain = "finance"
	DomainMarketing  Domain = "marketing"
	DomainOperations Domain = "operations"
	DomainPartners   Domain = "partners"
)

// ValidDomains enumerates the closed set of accepted domains.
var ValidDomains = map[Domain]struct{}{
	DomainFinance:    {},
	DomainMarketing:  {},
	DomainOperations: {},
	DomainPartners:   {},
}

// AlertStatus captures the lifecycle state of an alert. Transition logic
// compares these constants only; human-readable labels come from Label.
type AlertStatus string

const (
	AlertStatusTriggered      AlertStatus = "triggered"
	AlertStatusEmailSent      AlertStatus = "email_sent"
	AlertStatusViewed         AlertStatus = "viewed"
	AlertStatusAcknowledged   AlertStatus = "acknowledged"
	AlertStatusResolved       AlertStatus = "resolved"
	AlertStatusClosed         AlertStatus = "closed"
	AlertStatusDeliveryFailed AlertStatus = "delivery_failed"
)

// ValidAlertStatuses enumerates every status, including the ones no engine
// operation currently produces (viewed, closed). They stay representable so
// future surfaces can adopt them without a schema change.
var ValidAlertStatuses = map[AlertStatus]struct{}{
	AlertStatusTriggered:      {},
	AlertStatusEmailSent:      {},
	AlertStatusViewed:         {},
	AlertStatusAcknowledged:   {},
	AlertStatusResolved:       {},
	AlertStatusClosed:         {},
	AlertStatusDeliveryFailed: {},
}

var alertStatusLabels = map[AlertStatus]string{
	AlertStatusTriggered:      "Triggered",
	AlertStatusEmailSent:      "Email Sent",
	AlertStatusViewed:         "Viewed",
	AlertStatusAcknowledged:   "Acknowledged",
	AlertStatusResolved:       "Resolved",
	AlertStatusClosed:         "Closed",
	AlertStatusDeliveryFailed: "Delivery Failed",
}

// Label returns the display string for a status. Presentation only.
func (s AlertStatus) Label() string {
	if label, ok := alertStatusLabels[s]; ok {
		return label
	}
	return string(s)
}

// Audit action labels recorded on the trail.
const (
	AuditActionTriggered    = "Alert Triggered"
	AuditActionEmailSent    = "Email Sent"
	AuditActionEmailFailed  = "Email Failed"
	AuditActionAcknowledged = "Acknowledged"
	AuditActionResolved     = "Resolved"
	AuditActionRedispatched = "Redispatch Requested"
)

// AuditEntry is a single record on an alert's append-only audit trail.
type AuditEntry struct {
	Timestamp time.Time      `json:"timestamp"`
	Action    string         `json:"action"`
	User      string         `json:"user"`
	Metadata  map[string]any `json:"metadata,omitempty"`
}

// Alert is a record of a detected risk or anomaly requiring executive
// attention. Descriptive fields are immutable after creation; Status,
// RetryCount and AuditTrail are the mutable core.
type Alert struct {
	ID                 string       `json:"id"`
	Timestamp          time.Time    `json:"timestamp"`
	Title              string       `json:"title"`
	Summary            string       `json:"summary"`
	TriggerCondition   string       `json:"trigger_condition"`
	Domain             Domain       `json:"domain"`
	RootCause          string       `json:"root_cause,omitempty"`
	FinancialImpact    float64      `json:"financial_impact"`
	ConfidenceScore    float64      `json:"confidence_score"`
	ModelVersion       string       `json:"model_version"`
	Severity           Severity     `json:"severity"`
	Status             AlertStatus  `json:"status"`
	StatusLabel        string       `json:"status_label"`
	RetryCount         int          `json:"retry_count"`
	RecommendedActions []string     `json:"recommended_actions"`
	AuditTrail         []AuditEntry `json:"audit_trail"`
}

// TriggerAlertRequest defines the payload required to raise a new alert.
type TriggerAlertRequest struct {
	Title              string   `json:"title"`
	Summary            string   `json:"summary"`
	TriggerCondition   string   `json:"trigger_condition"`
	Domain             Domain   `json:"domain"`
	RootCause          string   `json:"root_cause"`
	FinancialImpact    float64  `json:"financial_impact"`
	ConfidenceScore    float64  `json:"confidence_score"`
	ModelVersion       string   `json:"model_version"`
	Severity           Severity `json:"severity"`
	RecommendedActions []string `json:"recommended_actions"`
}

// ResolveAlertRequest carries the mandatory resolution notes.
type ResolveAlertRequest struct {
	Notes string `json:"notes"`
}

// AddRecipientRequest registers a new notification address.
type AddRecipientRequest struct {
	Address string `json:"address"`
}
