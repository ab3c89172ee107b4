package notify

import (
	"bytes"
	"context"
	"crypto/tls"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vantagehq/vantage/pkg/models"
)

// WebhookSenderOptions configures the webhook sender.
type WebhookSenderOptions struct {
	URLs          []string
	Timeout       time.Duration
	SkipTLSVerify bool
	Logger        *slog.Logger
}

// WebhookSender posts alert payloads to a fixed set of webhook URLs, in
// addition to whatever email delivery is configured.
type WebhookSender struct {
	urls   []string
	client *http.Client
	log    *slog.Logger
}

type webhookPayload struct {
	AlertID          string   `json:"alert_id"`
	Title            string   `json:"title"`
	Summary          string   `json:"summary,omitempty"`
	TriggerCondition string   `json:"trigger_condition"`
	Domain           string   `json:"domain"`
	Severity         string   `json:"severity"`
	Status           string   `json:"status"`
	FinancialImpact  float64  `json:"financial_impact"`
	ConfidenceScore  float64  `json:"confidence_score"`
	ModelVersion     string   `json:"model_version"`
	Recipients       []string `json:"recipients"`
	Timestamp        string   `json:"timestamp"`
}

// NewWebhookSender constructs a WebhookSender.
func NewWebhookSender(opts WebhookSenderOptions) *WebhookSender {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	transport := &http.Transport{
		TLSClientConfig: &tls.Config{InsecureSkipVerify: opts.SkipTLSVerify}, // #nosec G402
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &WebhookSender{
		urls:   opts.URLs,
		client: &http.Client{Timeout: timeout, Transport: transport},
		log:    log.With("component", "webhook_sender"),
	}
}

// Send posts the alert to every configured URL; one failing URL fails the
// batch.
func (s *WebhookSender) Send(ctx context.Context, alert *models.Alert, recipients []string) error {
	if len(s.urls) == 0 {
		return nil
	}
	payload := webhookPayload{
		AlertID:          alert.ID,
		Title:            alert.Title,
		Summary:          alert.Summary,
		TriggerCondition: alert.TriggerCondition,
		Domain:           string(alert.Domain),
		Severity:         string(alert.Severity),
		Status:           string(alert.Status),
		FinancialImpact:  alert.FinancialImpact,
		ConfidenceScore:  alert.ConfidenceScore,
		ModelVersion:     alert.ModelVersion,
		Recipients:       recipients,
		Timestamp:        alert.Timestamp.UTC().Format(time.RFC3339),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal webhook payload: %w", err)
	}

	var errs []string
	for _, url := range s.urls {
		request, err := http.NewRequestWithContext(ctx, http.MethodPost, url, bytes.NewReader(body))
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", url, err))
			continue
		}
		request.Header.Set("Content-Type", "application/json")
		response, err := s.client.Do(request)
		if err != nil {
			errs = append(errs, fmt.Sprintf("%s: %v", url, err))
			continue
		}
		responseBody, readErr := io.ReadAll(io.LimitReader(response.Body, 2048))
		_ = response.Body.Close()
		if response.StatusCode < http.StatusOK || response.StatusCode >= http.StatusMultipleChoices {
			if readErr != nil {
				errs = append(errs, fmt.Sprintf("%s: status %d", url, response.StatusCode))
				continue
			}
			trimmed := strings.TrimSpace(string(responseBody))
			if trimmed == "" {
				trimmed = response.Status
			}
			errs = append(errs, fmt.Sprintf("%s: status %d (%s)", url, response.StatusCode, trimmed))
		}
	}
	if len(errs) > 0 {
		return fmt.Errorf("webhook delivery failed: %s", strings.Join(errs, "; "))
	}
	return nil
}
