package kpi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// StripeClient reads revenue figures from the Stripe balance endpoint.
type StripeClient struct {
	baseURL string
	apiKey  string
	client  *http.Client
}

// NewStripeClient constructs a StripeClient.
func NewStripeClient(baseURL, apiKey string, timeout time.Duration) *StripeClient {
	if baseURL == "" {
		baseURL = "https://api.stripe.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &StripeClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		apiKey:  apiKey,
		client:  &http.Client{Timeout: timeout},
	}
}

type stripeBalanceResponse struct {
	Pending []struct {
		Amount   int64  `json:"amount"`
		Currency string `json:"currency"`
	} `json:"pending"`
}

// PendingRevenue returns the pending balance in whole currency units.
func (c *StripeClient) PendingRevenue(ctx context.Context) (float64, error) {
	if c.apiKey == "" {
		return 0, fmt.Errorf("stripe api key is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/v1/balance", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create balance request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.apiKey)

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("balance request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("balance endpoint returned status %d", resp.StatusCode)
	}

	var balance stripeBalanceResponse
	if err := json.NewDecoder(resp.Body).Decode(&balance); err != nil {
		return 0, fmt.Errorf("failed to decode balance response: %w", err)
	}
	if len(balance.Pending) == 0 {
		return 0, fmt.Errorf("balance response contained no pending funds")
	}
	// Amounts arrive in the smallest currency unit.
	return float64(balance.Pending[0].Amount) / 100, nil
}
