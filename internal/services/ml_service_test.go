package services

import (
	"math"
	"os"
	"path/filepath"
	"testing"

	"github.com/aegisai/backend/internal/models"
)

func TestRiskCategoryFor(t *testing.T) {
	tests := []struct {
		probability float64
		expected    models.RiskCategory
	}{
		{0.95, models.RiskLow},
		{0.75, models.RiskLow},
		{0.7, models.RiskMedium}, // boundary: Low requires > 0.7
		{0.5, models.RiskMedium},
		{0.3, models.RiskMedium}, // boundary: Medium includes 0.3
		{0.29, models.RiskHigh},
		{0.1, models.RiskHigh},
	}

	for _, tt := range tests {
		if got := riskCategoryFor(tt.probability); got != tt.expected {
			t.Errorf("riskCategoryFor(%f) = %s, expected %s", tt.probability, got, tt.expected)
		}
	}
}

func TestEncodeFeatures(t *testing.T) {
	data := models.CustomerData{
		Income:         65000,
		Age:            35,
		LoanAmount:     150000,
		CreditHistory:  "Good",
		EmploymentType: "Full-time",
		ExistingDebts:  10000,
	}

	features := encodeFeatures(data)

	if features["credit_history_encoded"] != 2 {
		t.Errorf("Expected Good credit encoded as 2, got %f", features["credit_history_encoded"])
	}
	if features["employment_type_encoded"] != 3 {
		t.Errorf("Expected Full-time encoded as 3, got %f", features["employment_type_encoded"])
	}
	if features["income"] != 65000 {
		t.Errorf("Expected income 65000, got %f", features["income"])
	}

	// Unknown credit history falls back to the Fair encoding
	data.CreditHistory = "Unknown"
	features = encodeFeatures(data)
	if features["credit_history_encoded"] != 1 {
		t.Errorf("Expected fallback credit encoding 1, got %f", features["credit_history_encoded"])
	}
}

func TestSigmoid(t *testing.T) {
	if got := sigmoid(0); math.Abs(got-0.5) > 1e-9 {
		t.Errorf("sigmoid(0) = %f, expected 0.5", got)
	}
	if got := sigmoid(10); got <= 0.99 {
		t.Errorf("sigmoid(10) = %f, expected near 1", got)
	}
	if got := sigmoid(-10); got >= 0.01 {
		t.Errorf("sigmoid(-10) = %f, expected near 0", got)
	}
}

func TestPredict(t *testing.T) {
	svc := &MLService{artifact: &ModelArtifact{
		Version:      "test",
		Coefficients: map[string]float64{"income": 1},
		Means:        map[string]float64{"income": 65000},
		StdDevs:      map[string]float64{"income": 25000},
	}}

	data := models.CustomerData{
		Income:         65000,
		Age:            35,
		LoanAmount:     150000,
		CreditHistory:  "Good",
		EmploymentType: "Full-time",
	}

	prob, category, confidence, err := svc.Predict(data)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if math.Abs(prob-0.5) > 1e-9 {
		t.Errorf("Expected probability 0.5 at the mean, got %f", prob)
	}
	if category != models.RiskMedium {
		t.Errorf("Expected Medium risk, got %s", category)
	}
	if math.Abs(confidence-0.5) > 1e-9 {
		t.Errorf("Expected confidence 0.5, got %f", confidence)
	}

	// One standard deviation above the mean pushes into Low risk
	data.Income = 90000
	prob, category, _, err = svc.Predict(data)
	if err != nil {
		t.Fatalf("Predict failed: %v", err)
	}
	if math.Abs(prob-sigmoid(1)) > 1e-9 {
		t.Errorf("Expected probability %f, got %f", sigmoid(1), prob)
	}
	if category != models.RiskLow {
		t.Errorf("Expected Low risk, got %s", category)
	}
}

func TestPredictNotLoaded(t *testing.T) {
	svc := NewMLService()
	if _, _, _, err := svc.Predict(models.CustomerData{}); err == nil {
		t.Error("Expected error when model is not loaded")
	}
	if svc.IsLoaded() {
		t.Error("Expected IsLoaded to be false")
	}
	if svc.Version() != "unknown" {
		t.Errorf("Expected version unknown, got %s", svc.Version())
	}
}

func TestLoad(t *testing.T) {
	artifact := `{
		"version": "20240315-145858",
		"algorithm": "logistic_regression",
		"features": ["income"],
		"intercept": 0.42,
		"coefficients": {"income": 0.85},
		"means": {"income": 65000},
		"stdDevs": {"income": 25000},
		"metrics": {"accuracy": 0.95}
	}`

	path := filepath.Join(t.TempDir(), "model.json")
	if err := os.WriteFile(path, []byte(artifact), 0o644); err != nil {
		t.Fatalf("Failed to write artifact: %v", err)
	}

	svc := NewMLService()
	if err := svc.Load(path); err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if !svc.IsLoaded() {
		t.Error("Expected model to be loaded")
	}
	if svc.Version() != "20240315-145858" {
		t.Errorf("Unexpected version: %s", svc.Version())
	}

	metadata, err := svc.Metadata()
	if err != nil {
		t.Fatalf("Metadata failed: %v", err)
	}
	if metadata.Accuracy != 0.95 {
		t.Errorf("Expected accuracy 0.95, got %f", metadata.Accuracy)
	}
	if !metadata.IsActive {
		t.Error("Expected metadata to be marked active")
	}
}

func TestLoadMissingFile(t *testing.T) {
	svc := NewMLService()
	if err := svc.Load("does-not-exist.json"); err == nil {
		t.Error("Expected error for missing artifact")
	}
}

func TestFeatureImportance(t *testing.T) {
	svc := &MLService{artifact: &ModelArtifact{
		Coefficients: map[string]float64{"a": 1, "b": -3},
	}}

	importance := svc.FeatureImportance()
	if math.Abs(importance["a"]-0.25) > 1e-9 {
		t.Errorf("Expected importance 0.25 for a, got %f", importance["a"])
	}
	if math.Abs(importance["b"]-0.75) > 1e-9 {
		t.Errorf("Expected importance 0.75 for b, got %f", importance["b"])
	}

	empty := (&MLService{}).FeatureImportance()
	if len(empty) != 0 {
		t.Errorf("Expected empty importance without a model, got %v", empty)
	}
}
