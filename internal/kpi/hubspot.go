package kpi

import (
	"context"
	"encoding/json"
	"fmt"
	"net/http"
	"strings"
	"time"
)

// HubSpotClient reads customer counts from the HubSpot CRM contacts API.
type HubSpotClient struct {
	baseURL string
	token   string
	client  *http.Client
}

// NewHubSpotClient constructs a HubSpotClient.
func NewHubSpotClient(baseURL, token string, timeout time.Duration) *HubSpotClient {
	if baseURL == "" {
		baseURL = "https://api.hubapi.com"
	}
	if timeout <= 0 {
		timeout = 10 * time.Second
	}
	return &HubSpotClient{
		baseURL: strings.TrimRight(baseURL, "/"),
		token:   token,
		client:  &http.Client{Timeout: timeout},
	}
}

type hubspotContactsResponse struct {
	Total int `json:"total"`
}

// ContactCount returns the total number of CRM contacts.
func (c *HubSpotClient) ContactCount(ctx context.Context) (int, error) {
	if c.token == "" {
		return 0, fmt.Errorf("hubspot token is not configured")
	}
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, c.baseURL+"/crm/v3/objects/contacts?limit=1", nil)
	if err != nil {
		return 0, fmt.Errorf("failed to create contacts request: %w", err)
	}
	req.Header.Set("Authorization", "Bearer "+c.token)
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("contacts request failed: %w", err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return 0, fmt.Errorf("contacts endpoint returned status %d", resp.StatusCode)
	}

	var contacts hubspotContactsResponse
	if err := json.NewDecoder(resp.Body).Decode(&contacts); err != nil {
		return 0, fmt.Errorf("failed to decode contacts response: %w", err)
	}
	if contacts.Total <= 0 {
		return 0, fmt.Errorf("contacts response reported no customers")
	}
	return contacts.Total, nil
}
