// Package notify contains the outbound notification senders used by the
// alert lifecycle engine. Every sender reports one outcome for the whole
// batch of recipients and performs no retries of its own.
package notify

import (
	"fmt"
	"math"
	"strings"

	"github.com/vantagehq/vantage/pkg/models"
)

// Subject renders the email subject line for an alert.
func Subject(alert *models.Alert) string {
	return fmt.Sprintf("[%s] Enterprise Intelligence Alert - %s",
		strings.ToUpper(string(alert.Severity)), alert.Title)
}

// HTMLBody renders the notification body for an alert.
func HTMLBody(alert *models.Alert, consoleURL string) string {
	rootCause := alert.RootCause
	if rootCause == "" {
		rootCause = "Under Investigation"
	}

	var b strings.Builder
	b.WriteString(`<div style="font-family: sans-serif; max-width: 600px;">`)
	fmt.Fprintf(&b, "<h2>%s Alert: %s</h2>", strings.ToUpper(string(alert.Severity)), alert.Title)
	fmt.Fprintf(&b, "<p><strong>Alert ID:</strong> %s</p>", alert.ID)
	fmt.Fprintf(&b, "<p><strong>What is happening:</strong> %s</p>", alert.Summary)
	fmt.Fprintf(&b, "<p><strong>Root cause:</strong> %s</p>", rootCause)
	fmt.Fprintf(&b, "<p><strong>Projected Impact:</strong> $%.0f</p>", math.Abs(alert.FinancialImpact))
	fmt.Fprintf(&b, "<p><strong>Confidence:</strong> %.0f%%</p>", alert.ConfidenceScore*100)
	if len(alert.RecommendedActions) > 0 {
		b.WriteString("<h3>Recommended Actions:</h3><ol>")
		for _, action := range alert.RecommendedActions {
			fmt.Fprintf(&b, "<li>%s</li>", action)
		}
		b.WriteString("</ol>")
	}
	if consoleURL != "" {
		fmt.Fprintf(&b, `<p><a href="%s/alerts?id=%s">View Full Analysis</a></p>`, consoleURL, alert.ID)
	}
	fmt.Fprintf(&b, `<p style="font-size: 10px;">Timestamp (UTC): %s</p>`, alert.Timestamp.UTC().Format("2006-01-02T15:04:05Z07:00"))
	b.WriteString("</div>")
	return b.String()
}

// TextBody renders a plain-text variant of the notification.
func TextBody(alert *models.Alert) string {
	rootCause := alert.RootCause
	if rootCause == "" {
		rootCause = "Under Investigation"
	}
	lines := []string{
		fmt.Sprintf("Alert: %s", alert.Title),
		fmt.Sprintf("Severity: %s", strings.ToUpper(string(alert.Severity))),
		fmt.Sprintf("Alert ID: %s", alert.ID),
		fmt.Sprintf("Summary: %s", alert.Summary),
		fmt.Sprintf("Root cause: %s", rootCause),
		fmt.Sprintf("Projected impact: $%.0f", math.Abs(alert.FinancialImpact)),
		fmt.Sprintf("Confidence: %.0f%%", alert.ConfidenceScore*100),
	}
	for i, action := range alert.RecommendedActions {
		lines = append(lines, fmt.Sprintf("Action %d: %s", i+1, action))
	}
	return strings.Join(lines, "\n") + "\n"
}
