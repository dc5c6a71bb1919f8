package controllers

import (
	"fmt"
	"net/http"
	"time"

	"github.com/aegisai/backend/internal/models"
	"github.com/aegisai/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// SimulationController injects and clears synthetic incidents for demos.
type SimulationController struct {
	db    *gorm.DB
	trust *services.TrustService
}

func NewSimulationController(db *gorm.DB, trust *services.TrustService) *SimulationController {
	return &SimulationController{db: db, trust: trust}
}

// Drift injects an artificial high-severity drift event.
func (sc *SimulationController) Drift(c *gin.Context) {
	incident, trustResult, err := sc.trust.SimulateDriftIncident()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to simulate drift: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"simulation":  "drift",
		"status":      "injected",
		"message":     "Drift scenario activated. Trust score will decrease.",
		"incident":    incident,
		"trustResult": trustResult,
	})
}

// Bias injects an artificial bias-detection incident.
func (sc *SimulationController) Bias(c *gin.Context) {
	incident, err := sc.trust.RecordIncident(models.Incident{
		Type:        models.IncidentBiasDetected,
		Severity:    models.IncidentSeverityHigh,
		Description: "Simulated bias in credit_history feature detected",
		Details: map[string]any{
			"feature":        "credit_history",
			"bias_score":     0.78,
			"affected_group": "Fair credit history",
			"recommendation": "Review model fairness metrics",
		},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to simulate bias: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"simulation":  "bias",
		"status":      "injected",
		"message":     "Bias scenario activated. Trust score affected.",
		"incident":    incident,
		"trustResult": sc.trust.Calculate(),
	})
}

// AccuracyDrop injects an artificial accuracy-drop incident.
func (sc *SimulationController) AccuracyDrop(c *gin.Context) {
	incident, err := sc.trust.RecordIncident(models.Incident{
		Type:        models.IncidentAccuracyDrop,
		Severity:    models.IncidentSeverityMedium,
		Description: "Simulated model accuracy drop detected",
		Details: map[string]any{
			"previous_accuracy": 0.95,
			"current_accuracy":  0.87,
			"drop_percentage":   8.4,
			"recommendation":    "Consider model retraining",
		},
	})
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to simulate accuracy drop: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"simulation":  "accuracy_drop",
		"status":      "injected",
		"message":     "Accuracy drop scenario activated. Trust score affected.",
		"incident":    incident,
		"trustResult": sc.trust.Calculate(),
	})
}

// Reset resolves all open simulated incidents and recalculates trust.
func (sc *SimulationController) Reset(c *gin.Context) {
	var open []models.Incident
	err := sc.db.Where("status = ?", models.IncidentOpen).Find(&open).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to reset simulation: " + err.Error()})
		return
	}

	resolved := 0
	now := time.Now()
	notes := "Simulation reset"
	for i := range open {
		open[i].Status = models.IncidentResolved
		open[i].ResolvedAt = &now
		open[i].ResolutionNotes = &notes
		if err := sc.db.Save(&open[i]).Error; err == nil {
			resolved++
		}
	}

	c.JSON(http.StatusOK, gin.H{
		"simulation":        "reset",
		"status":            "completed",
		"message":           fmt.Sprintf("Simulation reset. %d incidents resolved.", resolved),
		"resolvedIncidents": resolved,
		"trustResult":       sc.trust.Calculate(),
	})
}

// Status reports whether any simulated incidents are still open.
func (sc *SimulationController) Status(c *gin.Context) {
	var open []models.Incident
	err := sc.db.Where("status = ?", models.IncidentOpen).
		Order("detected_at DESC").
		Find(&open).Error
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to get simulation status: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"simulationActive": len(open) > 0,
		"activeScenarios":  len(open),
		"incidents":        open,
	})
}
