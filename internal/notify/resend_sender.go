package notify

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/vantagehq/vantage/pkg/models"
)

// ResendSenderOptions configures the Resend email API sender.
type ResendSenderOptions struct {
	APIKey     string
	BaseURL    string
	From       string
	ConsoleURL string
	Timeout    time.Duration
	Logger     *slog.Logger
}

// ResendSender delivers alert emails through the Resend HTTP API.
type ResendSender struct {
	apiKey     string
	baseURL    string
	from       string
	consoleURL string
	client     *http.Client
	log        *slog.Logger
}

type resendPayload struct {
	From    string   `json:"from"`
	To      []string `json:"to"`
	Subject string   `json:"subject"`
	HTML    string   `json:"html"`
}

// NewResendSender constructs a ResendSender.
func NewResendSender(opts ResendSenderOptions) *ResendSender {
	timeout := opts.Timeout
	if timeout <= 0 {
		timeout = 5 * time.Second
	}
	baseURL := strings.TrimRight(opts.BaseURL, "/")
	if baseURL == "" {
		baseURL = "https://api.resend.com"
	}
	from := opts.From
	if from == "" {
		from = "onboarding@resend.dev"
	}
	log := opts.Logger
	if log == nil {
		log = slog.Default()
	}
	return &ResendSender{
		apiKey:     opts.APIKey,
		baseURL:    baseURL,
		from:       from,
		consoleURL: opts.ConsoleURL,
		client:     &http.Client{Timeout: timeout},
		log:        log.With("component", "resend_sender"),
	}
}

// Send posts one email covering all recipients. Any transport failure or
// non-2xx response fails the whole batch.
func (s *ResendSender) Send(ctx context.Context, alert *models.Alert, recipients []string) error {
	if s.apiKey == "" {
		return fmt.Errorf("resend api key is not configured")
	}
	if len(recipients) == 0 {
		return fmt.Errorf("no recipients provided")
	}

	payload := resendPayload{
		From:    s.from,
		To:      recipients,
		Subject: Subject(alert),
		HTML:    HTMLBody(alert, s.consoleURL),
	}
	body, err := json.Marshal(payload)
	if err != nil {
		return fmt.Errorf("failed to marshal email payload: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, http.MethodPost, s.baseURL+"/emails", bytes.NewReader(body))
	if err != nil {
		return fmt.Errorf("failed to create email request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+s.apiKey)
	req.Header.Set("Content-Type", "application/json")

	resp, err := s.client.Do(req)
	if err != nil {
		return fmt.Errorf("email request failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode < http.StatusOK || resp.StatusCode >= http.StatusMultipleChoices {
		detail, readErr := io.ReadAll(io.LimitReader(resp.Body, 2048))
		if readErr != nil || len(bytes.TrimSpace(detail)) == 0 {
			return fmt.Errorf("email api returned status %d", resp.StatusCode)
		}
		return fmt.Errorf("email api returned status %d: %s", resp.StatusCode, strings.TrimSpace(string(detail)))
	}

	s.log.Debug("email dispatched", "alert_id", alert.ID, "recipients", len(recipients))
	return nil
}
