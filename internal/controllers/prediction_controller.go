package controllers

import (
	"net/http"
	"time"

	"github.com/aegisai/backend/internal/logger"
	"github.com/aegisai/backend/internal/metrics"
	"github.com/aegisai/backend/internal/models"
	"github.com/aegisai/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

const apiVersion = "1.0.0"

// PredictionController serves the prediction endpoints and the service
// info/health surface.
type PredictionController struct {
	db *gorm.DB
	ml *services.MLService
}

func NewPredictionController(db *gorm.DB, ml *services.MLService) *PredictionController {
	return &PredictionController{db: db, ml: ml}
}

type PredictionResponse struct {
	ApprovalProbability float64             `json:"approvalProbability"`
	RiskCategory        models.RiskCategory `json:"riskCategory"`
	ConfidenceScore     float64             `json:"confidenceScore"`
	ModelVersion        string              `json:"modelVersion"`
	ProcessingTimeMs    float64             `json:"processingTimeMs"`
}

// Info returns API identification and the loaded model version.
func (pc *PredictionController) Info(c *gin.Context) {
	modelVersion := "not loaded"
	if pc.ml.IsLoaded() {
		modelVersion = pc.ml.Version()
	}

	c.JSON(http.StatusOK, gin.H{
		"message":      "AegisAI Credit Risk Model API",
		"version":      apiVersion,
		"status":       "running",
		"modelVersion": modelVersion,
	})
}

// Predict scores a customer and persists the prediction record. Logging
// failures do not fail the request.
func (pc *PredictionController) Predict(c *gin.Context) {
	if !pc.ml.IsLoaded() {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "Model not available"})
		return
	}

	var data models.CustomerData
	if err := c.ShouldBindJSON(&data); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if err := data.Validate(); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	start := time.Now()
	probability, riskCategory, confidence, err := pc.ml.Predict(data)
	if err != nil {
		logger.Error("Prediction failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Prediction failed: " + err.Error()})
		return
	}
	processingMs := float64(time.Since(start).Microseconds()) / 1000

	record := models.Prediction{
		Timestamp:           time.Now(),
		ModelVersion:        pc.ml.Version(),
		Income:              data.Income,
		Age:                 data.Age,
		LoanAmount:          data.LoanAmount,
		CreditHistory:       data.CreditHistory,
		EmploymentType:      data.EmploymentType,
		ExistingDebts:       data.ExistingDebts,
		UserID:              data.UserID,
		ApprovalProbability: probability,
		RiskCategory:        riskCategory,
		ConfidenceScore:     confidence,
		ProcessingTimeMs:    processingMs,
	}
	if err := pc.db.Create(&record).Error; err != nil {
		logger.Warn("Failed to log prediction", map[string]interface{}{"error": err.Error()})
	}

	metrics.PredictionsTotal.WithLabelValues(string(riskCategory)).Inc()

	c.JSON(http.StatusOK, PredictionResponse{
		ApprovalProbability: probability,
		RiskCategory:        riskCategory,
		ConfidenceScore:     confidence,
		ModelVersion:        pc.ml.Version(),
		ProcessingTimeMs:    processingMs,
	})
}

// HealthCheck reports readiness: model loaded and database reachable.
// Returns 503 when either is down.
func (pc *PredictionController) HealthCheck(c *gin.Context) {
	modelLoaded := pc.ml.IsLoaded()

	databaseConnected := false
	if sqlDB, err := pc.db.DB(); err == nil {
		databaseConnected = sqlDB.Ping() == nil
	}

	healthy := modelLoaded && databaseConnected

	body := gin.H{
		"status":            "healthy",
		"modelLoaded":       modelLoaded,
		"databaseConnected": databaseConnected,
	}
	if modelLoaded {
		body["modelVersion"] = pc.ml.Version()
	}

	if !healthy {
		body["status"] = "unhealthy"
		c.JSON(http.StatusServiceUnavailable, body)
		return
	}
	c.JSON(http.StatusOK, body)
}

// Stats aggregates prediction statistics across the whole history.
func (pc *PredictionController) Stats(c *gin.Context) {
	var total int64
	if err := pc.db.Model(&models.Prediction{}).Count(&total).Error; err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get statistics: " + err.Error()})
		return
	}

	if total == 0 {
		c.JSON(http.StatusOK, gin.H{
			"totalPredictions":           0,
			"riskDistribution":           gin.H{},
			"averageApprovalProbability": 0.0,
			"averageProcessingTimeMs":    0.0,
			"dateRange":                  gin.H{"start": nil, "end": nil},
		})
		return
	}

	var rows []struct {
		RiskCategory string
		Count        int64
	}
	pc.db.Model(&models.Prediction{}).
		Select("risk_category, COUNT(*) as count").
		Group("risk_category").
		Scan(&rows)
	distribution := make(map[string]int64, len(rows))
	for _, row := range rows {
		distribution[row.RiskCategory] = row.Count
	}

	var averages struct {
		AvgApproval   float64
		AvgProcessing float64
	}
	pc.db.Model(&models.Prediction{}).
		Select("AVG(approval_probability) as avg_approval, AVG(processing_time_ms) as avg_processing").
		Scan(&averages)

	var bounds struct {
		Start *time.Time
		End   *time.Time
	}
	pc.db.Model(&models.Prediction{}).
		Select("MIN(timestamp) as start, MAX(timestamp) as end").
		Scan(&bounds)

	c.JSON(http.StatusOK, gin.H{
		"totalPredictions":           total,
		"riskDistribution":           distribution,
		"averageApprovalProbability": averages.AvgApproval,
		"averageProcessingTimeMs":    averages.AvgProcessing,
		"dateRange":                  gin.H{"start": bounds.Start, "end": bounds.End},
	})
}
