package services

import (
	"encoding/csv"
	"fmt"
	"math/rand"
	"os"
	"strconv"

	"github.com/aegisai/backend/internal/logger"
)

// DriftFeatures are the numeric features checked for drift.
var DriftFeatures = []string{"income", "age", "loan_amount", "existing_debts"}

// LoadBaseline reads baseline feature samples from a CSV file with a header
// row. Falls back to a synthetic sample matching the training distributions
// when the file is missing.
func LoadBaseline(path string) map[string][]float64 {
	baseline, err := readBaselineCSV(path)
	if err != nil {
		logger.Warn("Baseline data unavailable, generating synthetic baseline", map[string]interface{}{
			"path":  path,
			"error": err.Error(),
		})
		return SyntheticBaseline(1000, 42)
	}
	logger.Info("Baseline data loaded", map[string]interface{}{
		"path":    path,
		"samples": len(baseline["income"]),
	})
	return baseline
}

func readBaselineCSV(path string) (map[string][]float64, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, err
	}
	defer f.Close()

	records, err := csv.NewReader(f).ReadAll()
	if err != nil {
		return nil, err
	}
	if len(records) < 2 {
		return nil, fmt.Errorf("baseline file %s has no data rows", path)
	}

	columns := make(map[string]int)
	for i, name := range records[0] {
		columns[name] = i
	}

	baseline := make(map[string][]float64, len(DriftFeatures))
	for _, feature := range DriftFeatures {
		idx, ok := columns[feature]
		if !ok {
			return nil, fmt.Errorf("baseline file missing column %q", feature)
		}
		values := make([]float64, 0, len(records)-1)
		for _, row := range records[1:] {
			v, err := strconv.ParseFloat(row[idx], 64)
			if err != nil {
				continue
			}
			values = append(values, v)
		}
		if len(values) == 0 {
			return nil, fmt.Errorf("baseline column %q has no numeric values", feature)
		}
		baseline[feature] = values
	}
	return baseline, nil
}

// SyntheticBaseline generates a deterministic sample from the training data
// distributions: income N(65000, 25000) clipped at 20000, age uniform in
// [21, 65), loan amount N(150000, 75000) clipped at 10000, existing debts
// N(20000, 15000) clipped at 0.
func SyntheticBaseline(n int, seed int64) map[string][]float64 {
	rng := rand.New(rand.NewSource(seed))

	income := make([]float64, n)
	age := make([]float64, n)
	loanAmount := make([]float64, n)
	existingDebts := make([]float64, n)

	for i := 0; i < n; i++ {
		income[i] = clipMin(65000+25000*rng.NormFloat64(), 20000)
		age[i] = float64(21 + rng.Intn(44))
		loanAmount[i] = clipMin(150000+75000*rng.NormFloat64(), 10000)
		existingDebts[i] = clipMin(20000+15000*rng.NormFloat64(), 0)
	}

	return map[string][]float64{
		"income":         income,
		"age":            age,
		"loan_amount":    loanAmount,
		"existing_debts": existingDebts,
	}
}

func clipMin(v, min float64) float64 {
	if v < min {
		return min
	}
	return v
}
