// Package intelligence wraps an OpenAI-compatible reasoning endpoint for
// natural-language queries, anomaly analysis and simulated forecasts. Every
// call degrades to a zero-confidence fallback result on failure; upstream
// outages are never surfaced as errors to callers.
package intelligence

import (
	"context"
	"encoding/json"
	"fmt"
	"log/slog"

	openai "github.com/sashabaranov/go-openai"

	"github.com/vantagehq/vantage/internal/config"
)

const systemPrompt = "You are an Enterprise Intelligence Engine. Always respond in valid JSON. Structure your response as a JSON object."

// QueryResult is the answer to a free-form executive question.
type QueryResult struct {
	Answer            string   `json:"answer"`
	SupportingMetrics []string `json:"supporting_metrics"`
	Confidence        float64  `json:"confidence"`
	SuggestedAction   string   `json:"suggested_action"`
}

// AnomalyResult explains a detected metric anomaly.
type AnomalyResult struct {
	Explanation     string   `json:"explanation"`
	RootCauses      []string `json:"root_causes"`
	Recommendations []string `json:"recommendations"`
	Impact          float64  `json:"impact"`
	Confidence      float64  `json:"confidence"`
}

// SimulationPoint is one day of a projected time series.
type SimulationPoint struct {
	Day        int     `json:"day"`
	Current    float64 `json:"current"`
	Projection float64 `json:"projection"`
}

// SimulationResult is the outcome of a simulated forecast run.
type SimulationResult struct {
	TimeSeries         []SimulationPoint `json:"time_series"`
	ProjectedRevenue   float64           `json:"projected_revenue"`
	ProjectedCAC       float64           `json:"projected_cac"`
	ConfidenceInterval string            `json:"confidence_interval"`
	RiskLevel          string            `json:"risk_level"`
	Assessment         string            `json:"assessment"`
}

// Client issues structured prompts to the reasoning endpoint.
type Client struct {
	cfg config.AIConfig
	api *openai.Client
	log *slog.Logger
}

// New constructs a Client. A custom BaseURL switches to any OpenAI-compatible
// provider.
func New(cfg config.AIConfig, log *slog.Logger) *Client {
	if log == nil {
		log = slog.Default()
	}
	clientConfig := openai.DefaultConfig(cfg.APIKey)
	if cfg.BaseURL != "" {
		clientConfig.BaseURL = cfg.BaseURL
	}
	return &Client{
		cfg: cfg,
		api: openai.NewClientWithConfig(clientConfig),
		log: log.With("component", "intelligence"),
	}
}

// Query answers a free-form question against a snapshot of platform state.
func (c *Client) Query(ctx context.Context, query string, state any) QueryResult {
	stateJSON, _ := json.Marshal(state)
	prompt := fmt.Sprintf(`Analyze this query based on the system state.
System State: %s
User Query: %q

Return JSON with exactly these keys:
"answer" (string),
"supporting_metrics" (array of strings),
"confidence" (number between 0 and 1),
"suggested_action" (string).`, stateJSON, query)

	var result QueryResult
	if err := c.complete(ctx, prompt, &result); err != nil {
		c.log.Warn("intelligence query failed", "error", err)
		return QueryResult{
			Answer:            "Unable to process query at this time.",
			SupportingMetrics: []string{"System connection timeout"},
			Confidence:        0,
			SuggestedAction:   "Check API key and network connectivity.",
		}
	}
	return result
}

// AnalyzeAnomaly explains an anomalous metric reading.
func (c *Client) AnalyzeAnomaly(ctx context.Context, metrics any) AnomalyResult {
	metricsJSON, _ := json.Marshal(metrics)
	prompt := fmt.Sprintf(`Analyze the metric anomaly.
Metrics: %s

Return JSON with:
"explanation" (string),
"root_causes" (array of strings),
"recommendations" (array of strings),
"impact" (number),
"confidence" (number).`, metricsJSON)

	var result AnomalyResult
	if err := c.complete(ctx, prompt, &result); err != nil {
		c.log.Warn("anomaly analysis failed", "error", err)
		return AnomalyResult{
			Explanation: "Anomaly analysis is unavailable.",
			Confidence:  0,
		}
	}
	return result
}

// Simulate runs a Monte Carlo style forecast over the given assumptions.
func (c *Client) Simulate(ctx context.Context, assumptions any) SimulationResult {
	assumptionsJSON, _ := json.Marshal(assumptions)
	prompt := fmt.Sprintf(`Run a high-fidelity Monte Carlo simulation based on these assumptions:
%s

Return JSON with:
"time_series" (array of {"day", "current", "projection"}),
"projected_revenue" (number),
"projected_cac" (number),
"confidence_interval" (string),
"risk_level" (string),
"assessment" (string).`, assumptionsJSON)

	var result SimulationResult
	if err := c.complete(ctx, prompt, &result); err != nil {
		c.log.Warn("simulation failed", "error", err)
		return SimulationResult{
			ConfidenceInterval: "n/a",
			RiskLevel:          "unknown",
			Assessment:         "Simulation is unavailable; no projection produced.",
		}
	}
	return result
}

func (c *Client) complete(ctx context.Context, prompt string, out any) error {
	if !c.cfg.Enabled {
		return fmt.Errorf("intelligence is disabled")
	}
	if c.cfg.APIKey == "" {
		return fmt.Errorf("intelligence api key is not configured")
	}

	resp, err := c.api.CreateChatCompletion(ctx, openai.ChatCompletionRequest{
		Model: c.cfg.Model,
		Messages: []openai.ChatCompletionMessage{
			{Role: openai.ChatMessageRoleSystem, Content: systemPrompt},
			{Role: openai.ChatMessageRoleUser, Content: prompt},
		},
		ResponseFormat: &openai.ChatCompletionResponseFormat{
			Type: openai.ChatCompletionResponseFormatTypeJSONObject,
		},
		Temperature: c.cfg.Temperature,
		MaxTokens:   c.cfg.MaxTokens,
	})
	if err != nil {
		return fmt.Errorf("chat completion failed: %w", err)
	}
	if len(resp.Choices) == 0 {
		return fmt.Errorf("chat completion returned no choices")
	}
	content := resp.Choices[0].Message.Content
	if err := json.Unmarshal([]byte(content), out); err != nil {
		return fmt.Errorf("invalid intelligence response format: %w", err)
	}
	return nil
}
