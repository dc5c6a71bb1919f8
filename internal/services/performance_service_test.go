package services

import (
	"math"
	"testing"
)

func TestCalculateMetrics(t *testing.T) {
	yTrue := []int{1, 1, 0, 0, 1}
	yPred := []int{1, 0, 0, 1, 1}

	metrics := CalculateMetrics(yTrue, yPred)

	if math.Abs(metrics["accuracy"]-0.6) > 1e-9 {
		t.Errorf("Expected accuracy 0.6, got %f", metrics["accuracy"])
	}
	if math.Abs(metrics["precision"]-2.0/3.0) > 1e-9 {
		t.Errorf("Expected precision 2/3, got %f", metrics["precision"])
	}
	if math.Abs(metrics["recall"]-2.0/3.0) > 1e-9 {
		t.Errorf("Expected recall 2/3, got %f", metrics["recall"])
	}
	if math.Abs(metrics["f1_score"]-2.0/3.0) > 1e-9 {
		t.Errorf("Expected f1 2/3, got %f", metrics["f1_score"])
	}
}

func TestCalculateMetricsPerfect(t *testing.T) {
	yTrue := []int{1, 0, 1, 0}
	metrics := CalculateMetrics(yTrue, yTrue)

	for _, name := range []string{"accuracy", "precision", "recall", "f1_score"} {
		if metrics[name] != 1.0 {
			t.Errorf("Expected %s 1.0, got %f", name, metrics[name])
		}
	}
}

func TestCalculateMetricsZeroDivision(t *testing.T) {
	// No positive predictions: precision, recall and f1 stay 0
	metrics := CalculateMetrics([]int{0, 0, 1}, []int{0, 0, 0})

	if metrics["precision"] != 0 {
		t.Errorf("Expected precision 0, got %f", metrics["precision"])
	}
	if metrics["recall"] != 0 {
		t.Errorf("Expected recall 0, got %f", metrics["recall"])
	}
	if metrics["f1_score"] != 0 {
		t.Errorf("Expected f1 0, got %f", metrics["f1_score"])
	}
	if math.Abs(metrics["accuracy"]-2.0/3.0) > 1e-9 {
		t.Errorf("Expected accuracy 2/3, got %f", metrics["accuracy"])
	}
}

func TestCalculateMetricsInvalidInput(t *testing.T) {
	if m := CalculateMetrics(nil, nil); len(m) != 0 {
		t.Errorf("Expected empty metrics for empty input, got %v", m)
	}
	if m := CalculateMetrics([]int{1, 0}, []int{1}); len(m) != 0 {
		t.Errorf("Expected empty metrics for mismatched lengths, got %v", m)
	}
}
