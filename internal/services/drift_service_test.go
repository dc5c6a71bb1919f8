package services

import (
	"math"
	"testing"

	"github.com/aegisai/backend/internal/models"
)

func sequence(start, end float64, n int) []float64 {
	values := make([]float64, n)
	step := (end - start) / float64(n-1)
	for i := range values {
		values[i] = start + float64(i)*step
	}
	return values
}

func TestCalculatePSIIdenticalSamples(t *testing.T) {
	sample := sequence(0, 1000, 500)
	psi := calculatePSI(sample, sample, 10)
	if psi > 0.01 {
		t.Errorf("Expected PSI near 0 for identical samples, got %f", psi)
	}
}

func TestCalculatePSIShiftedSamples(t *testing.T) {
	expected := sequence(0, 1000, 500)
	shifted := sequence(800, 1800, 500)

	psi := calculatePSI(expected, shifted, 10)
	if psi <= 0.2 {
		t.Errorf("Expected PSI above 0.2 for shifted distribution, got %f", psi)
	}
}

func TestCalculatePSIEmptySamples(t *testing.T) {
	if psi := calculatePSI(nil, []float64{1, 2}, 10); psi != 0 {
		t.Errorf("Expected PSI 0 for empty expected sample, got %f", psi)
	}
}

func TestKSTestSameDistribution(t *testing.T) {
	sample := sequence(0, 100, 200)
	drift, stat, pValue := ksTest(sample, sample, 0.05)
	if drift {
		t.Error("Identical samples should not show drift")
	}
	if stat != 0 {
		t.Errorf("Expected KS statistic 0, got %f", stat)
	}
	if pValue != 1 {
		t.Errorf("Expected p-value 1, got %f", pValue)
	}
}

func TestKSTestDisjointDistributions(t *testing.T) {
	a := sequence(0, 100, 100)
	b := sequence(1000, 1100, 100)

	drift, stat, pValue := ksTest(a, b, 0.05)
	if !drift {
		t.Error("Disjoint samples should show drift")
	}
	if math.Abs(stat-1) > 1e-9 {
		t.Errorf("Expected KS statistic 1, got %f", stat)
	}
	if pValue >= 0.05 {
		t.Errorf("Expected p-value below 0.05, got %f", pValue)
	}
}

func TestClassifyDriftSeverity(t *testing.T) {
	tests := []struct {
		psi      float64
		ksDrift  bool
		ksStat   float64
		expected models.DriftSeverity
	}{
		{0.25, false, 0, models.DriftHighSeverity},
		{0.05, true, 0.35, models.DriftHighSeverity},
		{0.15, false, 0, models.DriftModerateSeverity},
		{0.05, true, 0.1, models.DriftModerateSeverity},
		{0.05, false, 0, models.DriftLowSeverity},
	}

	for _, tt := range tests {
		got := classifyDriftSeverity(tt.psi, tt.ksDrift, tt.ksStat)
		if got != tt.expected {
			t.Errorf("classifyDriftSeverity(%f, %v, %f) = %s, expected %s",
				tt.psi, tt.ksDrift, tt.ksStat, got, tt.expected)
		}
	}
}

func TestComputeDrift(t *testing.T) {
	sample := sequence(20000, 120000, 300)

	result := computeDrift("income", sample, sample)
	if result.DriftDetected {
		t.Error("Identical samples should not be flagged")
	}
	if result.Severity != models.DriftLowSeverity {
		t.Errorf("Expected low severity, got %s", result.Severity)
	}
	if result.Feature != "income" {
		t.Errorf("Expected feature income, got %s", result.Feature)
	}

	shifted := sequence(80000, 180000, 300)
	result = computeDrift("income", sample, shifted)
	if !result.DriftDetected {
		t.Error("Shifted samples should be flagged")
	}
	if result.Severity != models.DriftHighSeverity {
		t.Errorf("Expected high severity, got %s", result.Severity)
	}
}

func TestSyntheticBaseline(t *testing.T) {
	baseline := SyntheticBaseline(500, 42)

	for _, feature := range DriftFeatures {
		if len(baseline[feature]) != 500 {
			t.Errorf("Expected 500 samples for %s, got %d", feature, len(baseline[feature]))
		}
	}

	for _, v := range baseline["income"] {
		if v < 20000 {
			t.Errorf("Income clipped at 20000, got %f", v)
		}
	}
	for _, v := range baseline["age"] {
		if v < 21 || v >= 65 {
			t.Errorf("Age outside [21, 65): %f", v)
		}
	}
	for _, v := range baseline["existing_debts"] {
		if v < 0 {
			t.Errorf("Existing debts below 0: %f", v)
		}
	}

	// Deterministic for a fixed seed
	again := SyntheticBaseline(500, 42)
	for i, v := range baseline["income"] {
		if again["income"][i] != v {
			t.Fatal("Expected identical baselines for identical seeds")
		}
	}
}

func TestMeanAndStdDev(t *testing.T) {
	values := []float64{2, 4, 4, 4, 5, 5, 7, 9}
	if m := mean(values); math.Abs(m-5) > 1e-9 {
		t.Errorf("Expected mean 5, got %f", m)
	}
	if s := stdDev(values); math.Abs(s-2) > 1e-9 {
		t.Errorf("Expected stddev 2, got %f", s)
	}
	if m := mean(nil); m != 0 {
		t.Errorf("Expected mean 0 for empty slice, got %f", m)
	}
}
