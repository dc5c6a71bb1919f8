package services

import (
	"time"

	"github.com/aegisai/backend/internal/logger"
	"github.com/aegisai/backend/internal/models"
	"gorm.io/gorm"
)

// PerformanceService tracks model performance metrics over time and detects
// degradation against the training baseline.
type PerformanceService struct {
	db *gorm.DB
}

func NewPerformanceService(db *gorm.DB) *PerformanceService {
	return &PerformanceService{db: db}
}

// DegradationResult reports whether accuracy dropped below the baseline by
// more than the threshold.
type DegradationResult struct {
	Degraded         bool       `json:"degraded"`
	BaselineAccuracy float64    `json:"baselineAccuracy"`
	CurrentAccuracy  float64    `json:"currentAccuracy,omitempty"`
	Drop             float64    `json:"drop,omitempty"`
	DropPercentage   float64    `json:"dropPercentage,omitempty"`
	Threshold        float64    `json:"threshold,omitempty"`
	Timestamp        *time.Time `json:"timestamp,omitempty"`
	Message          string     `json:"message"`
}

// CalculateMetrics computes accuracy, precision, recall and F1 from binary
// labels (1 = approved).
func CalculateMetrics(yTrue, yPred []int) map[string]float64 {
	if len(yTrue) == 0 || len(yTrue) != len(yPred) {
		return map[string]float64{}
	}

	var tp, fp, fn, correct float64
	for i := range yTrue {
		if yTrue[i] == yPred[i] {
			correct++
		}
		switch {
		case yPred[i] == 1 && yTrue[i] == 1:
			tp++
		case yPred[i] == 1 && yTrue[i] == 0:
			fp++
		case yPred[i] == 0 && yTrue[i] == 1:
			fn++
		}
	}

	accuracy := correct / float64(len(yTrue))

	var precision, recall, f1 float64
	if tp+fp > 0 {
		precision = tp / (tp + fp)
	}
	if tp+fn > 0 {
		recall = tp / (tp + fn)
	}
	if precision+recall > 0 {
		f1 = 2 * precision * recall / (precision + recall)
	}

	return map[string]float64{
		"accuracy":  accuracy,
		"precision": precision,
		"recall":    recall,
		"f1_score":  f1,
	}
}

// LogPerformance persists a performance metrics entry.
func (s *PerformanceService) LogPerformance(metrics map[string]float64, sampleSize int, modelVersion, timeWindow string) error {
	entry := models.PerformanceLog{
		Timestamp:    time.Now(),
		ModelVersion: modelVersion,
		Metrics:      metrics,
		SampleSize:   sampleSize,
		TimeWindow:   timeWindow,
	}

	if err := s.db.Create(&entry).Error; err != nil {
		logger.Error("Failed to log performance", map[string]interface{}{"error": err.Error()})
		return err
	}
	return nil
}

// Trend returns performance logs from the last N hours, oldest first.
func (s *PerformanceService) Trend(hours int) ([]models.PerformanceLog, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var logs []models.PerformanceLog
	err := s.db.Where("timestamp >= ?", cutoff).
		Order("timestamp ASC").
		Find(&logs).Error
	return logs, err
}

// CheckDegradation compares the latest logged accuracy against the baseline.
func (s *PerformanceService) CheckDegradation(baselineAccuracy, threshold float64) DegradationResult {
	logs, err := s.Trend(1)
	if err != nil || len(logs) == 0 {
		return DegradationResult{
			Degraded:         false,
			BaselineAccuracy: baselineAccuracy,
			Message:          "No recent performance data available",
		}
	}

	latest := logs[len(logs)-1]
	currentAccuracy := latest.Metrics["accuracy"]
	drop := baselineAccuracy - currentAccuracy

	message := "Performance stable"
	if drop > threshold {
		message = "Performance degraded"
	}

	return DegradationResult{
		Degraded:         drop > threshold,
		BaselineAccuracy: baselineAccuracy,
		CurrentAccuracy:  currentAccuracy,
		Drop:             drop,
		DropPercentage:   drop * 100,
		Threshold:        threshold,
		Timestamp:        &latest.Timestamp,
		Message:          message,
	}
}

// AverageConfidence returns the mean confidence score over recent
// predictions.
func (s *PerformanceService) AverageConfidence(hours int) float64 {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var avg *float64
	err := s.db.Model(&models.Prediction{}).
		Where("timestamp >= ?", cutoff).
		Select("AVG(confidence_score)").
		Scan(&avg).Error
	if err != nil || avg == nil {
		return 0
	}
	return *avg
}

// RiskDistribution counts predictions per risk category over recent hours.
func (s *PerformanceService) RiskDistribution(hours int) map[string]int64 {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var rows []struct {
		RiskCategory string
		Count        int64
	}
	err := s.db.Model(&models.Prediction{}).
		Where("timestamp >= ?", cutoff).
		Select("risk_category, COUNT(*) as count").
		Group("risk_category").
		Scan(&rows).Error
	if err != nil {
		logger.Error("Failed to get risk distribution", map[string]interface{}{"error": err.Error()})
		return map[string]int64{}
	}

	distribution := make(map[string]int64, len(rows))
	for _, row := range rows {
		distribution[row.RiskCategory] = row.Count
	}
	return distribution
}
