package services

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"sync"
	"time"

	"github.com/aegisai/backend/internal/logger"
	"github.com/aegisai/backend/internal/models"
)

// ModelArtifact is the serialized classifier: a logistic model with
// standardization parameters, exported by the training pipeline.
type ModelArtifact struct {
	Version      string             `json:"version"`
	Algorithm    string             `json:"algorithm"`
	TrainedAt    time.Time          `json:"trainedAt"`
	Features     []string           `json:"features"`
	Intercept    float64            `json:"intercept"`
	Coefficients map[string]float64 `json:"coefficients"`
	Means        map[string]float64 `json:"means"`
	StdDevs      map[string]float64 `json:"stdDevs"`
	Metrics      map[string]float64 `json:"metrics"`
}

// MLService wraps the credit risk classifier.
type MLService struct {
	mu       sync.RWMutex
	artifact *ModelArtifact
}

var creditHistoryEncoding = map[string]float64{
	"Good": 2,
	"Fair": 1,
	"Poor": 0,
}

var employmentTypeEncoding = map[string]float64{
	"Full-time":     3,
	"Part-time":     2,
	"Self-employed": 1,
	"Unemployed":    0,
}

func NewMLService() *MLService {
	return &MLService{}
}

// Load reads the model artifact from disk.
func (s *MLService) Load(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("failed to read model artifact: %w", err)
	}

	var artifact ModelArtifact
	if err := json.Unmarshal(data, &artifact); err != nil {
		return fmt.Errorf("failed to parse model artifact: %w", err)
	}

	if artifact.Version == "" {
		artifact.Version = "v1.0.0"
	}
	if len(artifact.Coefficients) == 0 {
		return fmt.Errorf("model artifact has no coefficients")
	}

	s.mu.Lock()
	s.artifact = &artifact
	s.mu.Unlock()

	logger.Info("Model loaded successfully", map[string]interface{}{
		"path":      path,
		"version":   artifact.Version,
		"algorithm": artifact.Algorithm,
	})
	return nil
}

// IsLoaded reports whether a model is available for predictions.
func (s *MLService) IsLoaded() bool {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.artifact != nil
}

// Version returns the loaded model version, or "unknown".
func (s *MLService) Version() string {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.artifact == nil {
		return "unknown"
	}
	return s.artifact.Version
}

// Metadata builds a metadata record for the loaded model.
func (s *MLService) Metadata() (models.ModelMetadata, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.artifact == nil {
		return models.ModelMetadata{}, fmt.Errorf("model not loaded")
	}
	a := s.artifact
	return models.ModelMetadata{
		Version:           a.Version,
		TrainingDate:      a.TrainedAt,
		Algorithm:         a.Algorithm,
		Accuracy:          a.Metrics["accuracy"],
		Precision:         a.Metrics["precision"],
		Recall:            a.Metrics["recall"],
		F1Score:           a.Metrics["f1_score"],
		FeatureNames:      append([]string(nil), a.Features...),
		FeatureImportance: s.featureImportanceLocked(),
		IsActive:          true,
	}, nil
}

// Predict returns the approval probability, risk category and confidence
// for the given customer data.
func (s *MLService) Predict(data models.CustomerData) (float64, models.RiskCategory, float64, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.artifact == nil {
		return 0, "", 0, fmt.Errorf("model not loaded")
	}

	features := encodeFeatures(data)

	z := s.artifact.Intercept
	for name, value := range features {
		mean := s.artifact.Means[name]
		std := s.artifact.StdDevs[name]
		if std > 0 {
			value = (value - mean) / std
		}
		z += s.artifact.Coefficients[name] * value
	}

	probability := sigmoid(z)
	confidence := math.Max(probability, 1-probability)
	category := riskCategoryFor(probability)

	return probability, category, confidence, nil
}

// FeatureImportance returns normalized absolute coefficient magnitudes.
func (s *MLService) FeatureImportance() map[string]float64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.featureImportanceLocked()
}

func (s *MLService) featureImportanceLocked() map[string]float64 {
	if s.artifact == nil {
		return map[string]float64{}
	}

	total := 0.0
	for _, coef := range s.artifact.Coefficients {
		total += math.Abs(coef)
	}
	if total == 0 {
		return map[string]float64{}
	}

	importance := make(map[string]float64, len(s.artifact.Coefficients))
	for name, coef := range s.artifact.Coefficients {
		importance[name] = math.Abs(coef) / total
	}
	return importance
}

func encodeFeatures(data models.CustomerData) map[string]float64 {
	creditEncoded, ok := creditHistoryEncoding[data.CreditHistory]
	if !ok {
		creditEncoded = 1
	}
	employmentEncoded := employmentTypeEncoding[data.EmploymentType]

	return map[string]float64{
		"income":                  data.Income,
		"age":                     float64(data.Age),
		"loan_amount":             data.LoanAmount,
		"credit_history_encoded":  creditEncoded,
		"employment_type_encoded": employmentEncoded,
		"existing_debts":          data.ExistingDebts,
	}
}

// riskCategoryFor maps an approval probability to a risk bucket:
// above 0.7 is Low, 0.3 to 0.7 is Medium, below 0.3 is High.
func riskCategoryFor(probability float64) models.RiskCategory {
	switch {
	case probability > 0.7:
		return models.RiskLow
	case probability >= 0.3:
		return models.RiskMedium
	default:
		return models.RiskHigh
	}
}

func sigmoid(z float64) float64 {
	return 1 / (1 + math.Exp(-z))
}
