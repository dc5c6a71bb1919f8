package controllers

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/aegisai/backend/internal/logger"
	"github.com/aegisai/backend/internal/models"
	"github.com/aegisai/backend/internal/services"
	"github.com/gin-gonic/gin"
	"gorm.io/gorm"
)

// GovernanceController serves trust scores, incidents, autonomy level
// definitions and the exported governance report.
type GovernanceController struct {
	db     *gorm.DB
	trust  *services.TrustService
	drift  *services.DriftService
	health *services.HealthService
	llm    *services.LLMService
}

func NewGovernanceController(db *gorm.DB, trust *services.TrustService, drift *services.DriftService, health *services.HealthService, llm *services.LLMService) *GovernanceController {
	return &GovernanceController{
		db:     db,
		trust:  trust,
		drift:  drift,
		health: health,
		llm:    llm,
	}
}

// Trust calculates and returns the current trust score.
func (gc *GovernanceController) Trust(c *gin.Context) {
	c.JSON(http.StatusOK, gc.trust.Calculate())
}

// History returns the trust score time series.
func (gc *GovernanceController) History(c *gin.Context) {
	hours := hoursQuery(c, 24)

	history, err := gc.trust.History(hours)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve trust history: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"history":       history,
		"count":         len(history),
		"hoursAnalyzed": hours,
		"timestamp":     time.Now(),
	})
}

// Incidents lists governance incidents, optionally filtered by status.
func (gc *GovernanceController) Incidents(c *gin.Context) {
	statusFilter := c.DefaultQuery("status", "all")
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil || limit < 1 {
		limit = 50
	}

	incidents, err := gc.trust.Incidents(statusFilter, limit)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to retrieve incidents: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"incidents":    incidents,
		"count":        len(incidents),
		"statusFilter": statusFilter,
		"timestamp":    time.Now(),
	})
}

type ResolveIncidentRequest struct {
	ResolutionNotes string `json:"resolutionNotes" binding:"required"`
}

// ResolveIncident marks an incident resolved.
func (gc *GovernanceController) ResolveIncident(c *gin.Context) {
	incidentID := c.Param("id")

	var req ResolveIncidentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	incident, err := gc.trust.ResolveIncident(incidentID, req.ResolutionNotes)
	if err != nil {
		if errors.Is(err, services.ErrIncidentNotFound) {
			c.JSON(http.StatusNotFound, gin.H{"error": "Incident not found: " + incidentID})
			return
		}
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to resolve incident: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"success":  true,
		"incident": incident,
	})
}

// SimulateIncident injects a fake drift event for demos.
func (gc *GovernanceController) SimulateIncident(c *gin.Context) {
	incident, trustResult, err := gc.trust.SimulateDriftIncident()
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": "Failed to simulate incident: " + err.Error()})
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"incident":    incident,
		"trustResult": trustResult,
	})
}

// AutonomyLevels returns the static level definitions and thresholds.
func (gc *GovernanceController) AutonomyLevels(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"autonomyLevels": gin.H{
			"fully_autonomous": gin.H{
				"trustMin":          80,
				"trustMax":          100,
				"description":       "Model operates independently without human intervention",
				"humanIntervention": "none",
				"approvalRequired":  false,
			},
			"human_on_loop": gin.H{
				"trustMin":          60,
				"trustMax":          79,
				"description":       "Human monitors but doesn't approve each decision",
				"humanIntervention": "monitoring",
				"approvalRequired":  false,
			},
			"approval_required": gin.H{
				"trustMin":          40,
				"trustMax":          59,
				"description":       "Human must approve high-risk decisions",
				"humanIntervention": "approval",
				"approvalRequired":  true,
			},
			"kill_switch": gin.H{
				"trustMin":          0,
				"trustMax":          39,
				"description":       "Model stopped, all decisions require manual review",
				"humanIntervention": "full_control",
				"approvalRequired":  true,
			},
		},
		"thresholds": gin.H{
			"drift": gin.H{
				"low":      0.1,
				"moderate": 0.2,
				"high":     0.3,
			},
			"accuracyDrop": gin.H{
				"acceptable": 0.02,
				"concerning": 0.05,
				"critical":   0.10,
			},
		},
		"trustFormula": "Trust = 100 - (Drift x 30) - (Accuracy Drop x 25) - (Bias x 20) - (Overrides x 10)",
	})
}

// ExportReport assembles a full governance report: trust, incidents,
// health, drift, LLM metrics and prediction statistics. Sections that fail
// are left empty rather than failing the report.
func (gc *GovernanceController) ExportReport(c *gin.Context) {
	report := gin.H{
		"generatedAt":       time.Now().UTC(),
		"reportPeriodHours": 24,
	}

	trustResult := gc.trust.Calculate()
	report["trustScore"] = gin.H{
		"score":            trustResult.TrustScore,
		"autonomyLevel":    trustResult.AutonomyLevel,
		"riskFactors":      trustResult.RiskFactors,
		"governanceAction": trustResult.GovernanceAction,
	}

	history, err := gc.trust.History(24)
	if err != nil {
		logger.Error("Report trust history failed", map[string]interface{}{"error": err.Error()})
		history = []models.TrustScore{}
	}
	trustHistory := make([]gin.H, 0, len(history))
	for _, h := range history {
		trustHistory = append(trustHistory, gin.H{
			"timestamp":     h.Timestamp,
			"trustScore":    h.Score,
			"autonomyLevel": h.AutonomyLevel,
		})
	}
	report["trustHistory"] = trustHistory

	incidents, err := gc.trust.Incidents("all", 100)
	if err != nil {
		logger.Error("Report incidents failed", map[string]interface{}{"error": err.Error()})
		incidents = []models.Incident{}
	}
	incidentRows := make([]gin.H, 0, len(incidents))
	for _, inc := range incidents {
		incidentRows = append(incidentRows, gin.H{
			"type":        inc.Type,
			"severity":    inc.Severity,
			"status":      inc.Status,
			"detectedAt":  inc.DetectedAt,
			"description": inc.Description,
		})
	}
	report["incidents"] = incidentRows

	if health, err := gc.health.Metrics(); err == nil {
		report["systemHealth"] = health
	}

	driftResults, _, err := gc.drift.CheckRecent(24)
	if err != nil {
		logger.Error("Report drift analysis failed", map[string]interface{}{"error": err.Error()})
		driftResults = []models.DriftLog{}
	}
	driftRows := make([]gin.H, 0, len(driftResults))
	for _, d := range driftResults {
		driftRows = append(driftRows, gin.H{
			"feature":       d.Feature,
			"driftDetected": d.DriftDetected,
			"severity":      d.Severity,
			"psiScore":      d.PSIScore,
		})
	}
	report["driftAnalysis"] = driftRows

	report["llmMetrics"] = gc.llm.MetricsSummary(24)

	var totalPredictions int64
	gc.db.Model(&models.Prediction{}).Count(&totalPredictions)
	report["statistics"] = gin.H{"totalPredictions": totalPredictions}

	c.JSON(http.StatusOK, report)
}
