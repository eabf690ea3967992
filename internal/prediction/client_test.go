package prediction

import (
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"pickup-backend/internal/models"
)

func floatPtr(v float64) *float64 { return &v }

func sampleAttributes() models.ApplianceAttributes {
	return models.ApplianceAttributes{
		ItemType:            "Laptop",
		Brand:               "Dell",
		Age:                 floatPtr(4),
		Condition:           "Working",
		Weight:              floatPtr(2.5),
		MaterialComposition: models.StringList{"Plastic", "Metal"},
		BatteryIncluded:     "Yes",
		VisibleDamage:       "Minor",
		ScreenCondition:     "Good",
		RustPresence:        "No",
		WiringCondition:     "Intact",
		ResalePotential:     "High",
	}
}

func TestPredictSuccess(t *testing.T) {
	var received map[string]interface{}
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.Method != http.MethodPost {
			t.Errorf("expected POST, got %s", r.Method)
		}
		_ = json.NewDecoder(r.Body).Decode(&received)
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write([]byte(`{"scrapPrice": 120.5, "repairCost": 40, "finalAmount": 80.456}`))
	}))
	defer server.Close()

	client := NewClient(server.URL, time.Second, nil)
	result, err := client.Predict(context.Background(), sampleAttributes())
	if err != nil {
		t.Fatalf("predict failed: %v", err)
	}
	if result.ScrapPrice != 120.5 || result.RepairCost != 40 || result.FinalAmount != 80.456 {
		t.Fatalf("unexpected result %+v", result)
	}
	if received["materialComposition"] != "Plastic, Metal" {
		t.Fatalf("expected joined material list, got %v", received["materialComposition"])
	}
	if received["age"] != float64(4) {
		t.Fatalf("expected numeric age, got %v", received["age"])
	}
	if got := SuggestedAmount(result); got != "80.46" {
		t.Fatalf("expected suggested amount 80.46, got %s", got)
	}
}

func TestPredictUpstreamError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadRequest)
		_, _ = w.Write([]byte(`{"error": "unknown itemType"}`))
	}))
	defer server.Close()

	_, err := NewClient(server.URL, time.Second, nil).Predict(context.Background(), sampleAttributes())
	var upstream *UpstreamError
	if !errors.As(err, &upstream) {
		t.Fatalf("expected UpstreamError, got %v", err)
	}
	if upstream.StatusCode != http.StatusBadRequest || upstream.Message != "unknown itemType" {
		t.Fatalf("unexpected upstream error %+v", upstream)
	}
}

func TestPredictTimeout(t *testing.T) {
	release := make(chan struct{})
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		select {
		case <-release:
		case <-r.Context().Done():
		}
	}))
	defer server.Close()
	defer close(release)

	start := time.Now()
	_, err := NewClient(server.URL, 50*time.Millisecond, nil).Predict(context.Background(), sampleAttributes())
	if err == nil {
		t.Fatal("expected timeout error")
	}
	if time.Since(start) > 2*time.Second {
		t.Fatalf("timeout not enforced, took %v", time.Since(start))
	}
}

func TestPredictRejectsIncompleteResponse(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`{"scrapPrice": 1}`))
	}))
	defer server.Close()

	if _, err := NewClient(server.URL, time.Second, nil).Predict(context.Background(), sampleAttributes()); err == nil {
		t.Fatal("expected error for missing fields")
	}
}

func TestSuggestedAmountNil(t *testing.T) {
	if SuggestedAmount(nil) != "" {
		t.Fatal("expected empty suggestion for nil result")
	}
}
