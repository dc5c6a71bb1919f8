package controllers

import (
	"fmt"
	"net/http"
	"strconv"
	"time"

	"github.com/aegisai/backend/internal/logger"
	"github.com/aegisai/backend/internal/models"
	"github.com/aegisai/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// MonitoringController serves drift, performance and system-health
// endpoints plus the aggregated dashboard.
type MonitoringController struct {
	db          *gorm.DB
	drift       *services.DriftService
	performance *services.PerformanceService
	health      *services.HealthService
}

func NewMonitoringController(db *gorm.DB, drift *services.DriftService, performance *services.PerformanceService, health *services.HealthService) *MonitoringController {
	return &MonitoringController{
		db:          db,
		drift:       drift,
		performance: performance,
		health:      health,
	}
}

func hoursQuery(c *gin.Context, fallback int) int {
	hours, err := strconv.Atoi(c.DefaultQuery("hours", strconv.Itoa(fallback)))
	if err != nil || hours < 1 {
		return fallback
	}
	return hours
}

// Drift runs drift checks over recent predictions against the baseline.
func (mc *MonitoringController) Drift(c *gin.Context) {
	hours := hoursQuery(c, 1)

	results, samples, err := mc.drift.CheckRecent(hours)
	if err != nil {
		logger.Error("Drift check failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Drift check failed: " + err.Error()})
		return
	}

	if samples == 0 {
		c.JSON(http.StatusOK, gin.H{
			"message":       fmt.Sprintf("Not enough data in last %d hour(s)", hours),
			"driftResults":  []models.DriftLog{},
			"hoursAnalyzed": hours,
		})
		return
	}

	detected := 0
	for _, r := range results {
		if r.DriftDetected {
			detected++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"driftResults": results,
		"summary": gin.H{
			"featuresChecked":    len(results),
			"driftDetectedCount": detected,
			"hoursAnalyzed":      hours,
			"samplesAnalyzed":    samples,
		},
		"timestamp": time.Now(),
	})
}

// Performance reports the metrics trend and degradation status.
func (mc *MonitoringController) Performance(c *gin.Context) {
	hours := hoursQuery(c, 24)

	trend, err := mc.performance.Trend(hours)
	if err != nil {
		logger.Error("Performance check failed", map[string]interface{}{"error": err.Error()})
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Performance check failed: " + err.Error()})
		return
	}

	degradation := mc.performance.CheckDegradation(0.95, 0.05)
	avgConfidence := mc.performance.AverageConfidence(1)
	riskDistribution := mc.performance.RiskDistribution(hours)

	c.JSON(http.StatusOK, gin.H{
		"performanceTrend": trend,
		"degradationCheck": degradation,
		"currentMetrics": gin.H{
			"averageConfidence": avgConfidence,
			"riskDistribution":  riskDistribution,
		},
		"hoursAnalyzed": hours,
		"timestamp":     time.Now(),
	})
}

// Health returns a fresh system health snapshot plus active alerts.
func (mc *MonitoringController) Health(c *gin.Context) {
	health, err := mc.health.Metrics()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Health check failed: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"healthMetrics": health,
		"alerts":        mc.health.CheckAlerts(),
		"timestamp":     time.Now(),
	})
}

// Dashboard aggregates health, predictions, drift and performance into one
// payload for the monitoring UI.
func (mc *MonitoringController) Dashboard(c *gin.Context) {
	health, _ := mc.health.Metrics()

	var recentPredictions []models.Prediction
	mc.db.Order("timestamp DESC").Limit(10).Find(&recentPredictions)

	var totalPredictions int64
	mc.db.Model(&models.Prediction{}).Count(&totalPredictions)

	driftHistory, err := mc.drift.History(24)
	if err != nil {
		logger.Error("Dashboard drift history failed", map[string]interface{}{"error": err.Error()})
	}
	driftDetected := 0
	for _, d := range driftHistory {
		if d.DriftDetected {
			driftDetected++
		}
	}

	trend, err := mc.performance.Trend(24)
	if err != nil {
		logger.Error("Dashboard performance trend failed", map[string]interface{}{"error": err.Error()})
	}
	var latestAccuracy *float64
	if len(trend) > 0 {
		if acc, ok := trend[len(trend)-1].Metrics["accuracy"]; ok {
			latestAccuracy = &acc
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"systemHealth":      health,
		"recentPredictions": recentPredictions,
		"totalPredictions":  totalPredictions,
		"driftSummary": gin.H{
			"recentChecks":  len(driftHistory),
			"driftDetected": driftDetected,
		},
		"performanceSummary": gin.H{
			"logsCount":      len(trend),
			"latestAccuracy": latestAccuracy,
		},
		"alerts":    mc.health.CheckAlerts(),
		"timestamp": time.Now(),
	})
}
