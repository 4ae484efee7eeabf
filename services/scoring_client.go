package services

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/futureguard/api/model"
	"github.com/google/uuid"
)

// ScoringClient handles communication with the external ML scoring service.
// The service is a black box: records go in with their ML feature subset, a
// risk label per record comes back. Any failure aborts the whole batch; no
// partial scoring is ever committed.
type ScoringClient struct {
	BaseURL    string
	HTTPClient *http.Client
}

// NewScoringClient creates a scoring client from the environment.
func NewScoringClient() *ScoringClient {
	baseURL := os.Getenv("ML_SERVICE_URL")
	if baseURL == "" {
		baseURL = "http://127.0.0.1:8000"
	}

	timeout := 60 * time.Second
	if raw := os.Getenv("ML_SERVICE_TIMEOUT_SECONDS"); raw != "" {
		if d, err := time.ParseDuration(raw + "s"); err == nil && d > 0 {
			timeout = d
		}
	}

	return &ScoringClient{
		BaseURL: baseURL,
		HTTPClient: &http.Client{
			Timeout: timeout,
		},
	}
}

// ScoringRecord is one record sent to the scorer. ID is the correlation
// identity the scorer must echo back unchanged.
type ScoringRecord struct {
	ID       string                 `json:"id"`
	Features map[string]interface{} `json:"features"`
}

// Prediction is the scorer's verdict for one record.
type Prediction struct {
	ID             string  `json:"id"`
	RiskLabel      string  `json:"risk_label"`
	RiskScore      float64 `json:"risk_score"`
	Explanation    string  `json:"explanation,omitempty"`
	Recommendation string  `json:"recommendation,omitempty"`
}

type predictRequest struct {
	Records []ScoringRecord `json:"records"`
}

type predictResponse struct {
	Predictions []Prediction `json:"predictions"`
}

// NewCorrelationID generates an identity for a record that has no natural
// one of its own.
func NewCorrelationID() string {
	return uuid.New().String()
}

// Predict scores a batch of records. The response must contain exactly one
// valid prediction per input ID; transport errors, non-200 responses, and
// missing or malformed predictions all abort the batch with
// SCORING_SERVICE_UNAVAILABLE.
func (c *ScoringClient) Predict(ctx context.Context, records []ScoringRecord) ([]Prediction, error) {
	payload, err := json.Marshal(predictRequest{Records: records})
	if err != nil {
		return nil, fmt.Errorf("failed to marshal scoring request: %w", err)
	}

	req, err := http.NewRequestWithContext(ctx, "POST", c.BaseURL+"/predict", bytes.NewBuffer(payload))
	if err != nil {
		return nil, fmt.Errorf("failed to create scoring request: %w", err)
	}
	req.Header.Set("Content-Type", "application/json")

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return nil, NewPipelineError(KindScoringUnavailable, fmt.Sprintf("scoring service request failed: %v", err))
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		bodyBytes, _ := io.ReadAll(resp.Body)
		return nil, NewPipelineError(KindScoringUnavailable,
			fmt.Sprintf("scoring service returned status %d: %s", resp.StatusCode, string(bodyBytes)))
	}

	var predResp predictResponse
	if err := json.NewDecoder(resp.Body).Decode(&predResp); err != nil {
		return nil, NewPipelineError(KindScoringUnavailable, fmt.Sprintf("failed to decode scoring response: %v", err))
	}

	byID := make(map[string]Prediction, len(predResp.Predictions))
	for _, p := range predResp.Predictions {
		byID[p.ID] = p
	}

	ordered := make([]Prediction, 0, len(records))
	for _, r := range records {
		p, ok := byID[r.ID]
		if !ok {
			return nil, NewPipelineError(KindScoringUnavailable,
				fmt.Sprintf("scoring response is missing record %q", r.ID))
		}
		if !model.ValidRiskLevel(p.RiskLabel) {
			return nil, NewPipelineError(KindScoringUnavailable,
				fmt.Sprintf("scoring response has unknown risk label %q for record %q", p.RiskLabel, r.ID))
		}
		ordered = append(ordered, p)
	}

	return ordered, nil
}

// HealthCheck checks if the scoring service is healthy
func (c *ScoringClient) HealthCheck(ctx context.Context) error {
	req, err := http.NewRequestWithContext(ctx, "GET", c.BaseURL+"/health", nil)
	if err != nil {
		return fmt.Errorf("failed to create health check request: %w", err)
	}

	resp, err := c.HTTPClient.Do(req)
	if err != nil {
		return fmt.Errorf("health check failed: %w", err)
	}
	defer resp.Body.Close()

	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("scoring service unhealthy: status %d", resp.StatusCode)
	}

	return nil
}
