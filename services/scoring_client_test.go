package services

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"
)

func newTestScorer(handler http.HandlerFunc) (*ScoringClient, *httptest.Server) {
	srv := httptest.NewServer(handler)
	client := &ScoringClient{
		BaseURL:    srv.URL,
		HTTPClient: &http.Client{Timeout: 5 * time.Second},
	}
	return client, srv
}

func TestPredictSuccess(t *testing.T) {
	client, srv := newTestScorer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/predict" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}

		var req predictRequest
		if err := json.NewDecoder(r.Body).Decode(&req); err != nil {
			t.Fatalf("failed to decode request: %v", err)
		}
		if len(req.Records) != 2 {
			t.Fatalf("expected 2 records, got %d", len(req.Records))
		}

		// Respond out of order on purpose; the client reorders by ID.
		json.NewEncoder(w).Encode(predictResponse{Predictions: []Prediction{
			{ID: "R-2", RiskLabel: "low", RiskScore: 0.1},
			{ID: "R-1", RiskLabel: "high", RiskScore: 0.9, Recommendation: "schedule a meeting"},
		}})
	})
	defer srv.Close()

	preds, err := client.Predict(context.Background(), []ScoringRecord{
		{ID: "R-1", Features: map[string]interface{}{"cgpa": 4.2}},
		{ID: "R-2", Features: map[string]interface{}{"cgpa": 9.1}},
	})
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}

	if len(preds) != 2 {
		t.Fatalf("expected 2 predictions, got %d", len(preds))
	}
	if preds[0].ID != "R-1" || preds[0].RiskLabel != "high" {
		t.Errorf("predictions not reordered by input: %+v", preds[0])
	}
	if preds[1].ID != "R-2" || preds[1].RiskLabel != "low" {
		t.Errorf("second prediction wrong: %+v", preds[1])
	}
}

func TestPredictMissingRecordAbortsBatch(t *testing.T) {
	client, srv := newTestScorer(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{Predictions: []Prediction{
			{ID: "R-1", RiskLabel: "medium"},
		}})
	})
	defer srv.Close()

	_, err := client.Predict(context.Background(), []ScoringRecord{
		{ID: "R-1"}, {ID: "R-2"},
	})
	if !IsKind(err, KindScoringUnavailable) {
		t.Fatalf("expected SCORING_SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestPredictUnknownRiskLabelAbortsBatch(t *testing.T) {
	client, srv := newTestScorer(func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(predictResponse{Predictions: []Prediction{
			{ID: "R-1", RiskLabel: "catastrophic"},
		}})
	})
	defer srv.Close()

	_, err := client.Predict(context.Background(), []ScoringRecord{{ID: "R-1"}})
	if !IsKind(err, KindScoringUnavailable) {
		t.Fatalf("expected SCORING_SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestPredictServerErrorAbortsBatch(t *testing.T) {
	client, srv := newTestScorer(func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "model not loaded", http.StatusInternalServerError)
	})
	defer srv.Close()

	_, err := client.Predict(context.Background(), []ScoringRecord{{ID: "R-1"}})
	if !IsKind(err, KindScoringUnavailable) {
		t.Fatalf("expected SCORING_SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestPredictUnreachableService(t *testing.T) {
	client := &ScoringClient{
		BaseURL:    "http://127.0.0.1:1", // nothing listens here
		HTTPClient: &http.Client{Timeout: time.Second},
	}

	_, err := client.Predict(context.Background(), []ScoringRecord{{ID: "R-1"}})
	if !IsKind(err, KindScoringUnavailable) {
		t.Fatalf("expected SCORING_SERVICE_UNAVAILABLE, got %v", err)
	}
}

func TestHealthCheck(t *testing.T) {
	client, srv := newTestScorer(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/health" {
			t.Errorf("unexpected path %s", r.URL.Path)
		}
		w.WriteHeader(http.StatusOK)
	})
	defer srv.Close()

	if err := client.HealthCheck(context.Background()); err != nil {
		t.Fatalf("HealthCheck failed: %v", err)
	}
}
