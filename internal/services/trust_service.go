package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/aegisai/backend/internal/logger"
	"github.com/aegisai/backend/internal/metrics"
	"github.com/aegisai/backend/internal/models"
	"gorm.io/gorm"
)

// Governance thresholds. The trust formula is
// trust = 100 - drift_penalty - accuracy_penalty - bias_penalty - override_penalty
// clamped to [0, 100].
const (
	driftPSIModerate = 0.2
	driftPSIHigh     = 0.3

	accuracyDropAcceptable = 0.02
	accuracyDropConcerning = 0.05
	accuracyDropCritical   = 0.10

	trustLevelAutonomous       = 80.0
	trustLevelHumanOnLoop      = 60.0
	trustLevelApprovalRequired = 40.0

	biasPenaltyWeight     = 20.0
	overridePenaltyWeight = 10.0

	baselineAccuracy = 0.95

	// Placeholder until fairness metrics (demographic parity, equal
	// opportunity) are computed from prediction data.
	placeholderBiasScore = 0.15
)

var ErrIncidentNotFound = fmt.Errorf("incident not found")

// TrustService calculates trust scores from monitoring signals and drives
// the autonomy-level state machine.
type TrustService struct {
	db *gorm.DB
}

func NewTrustService(db *gorm.DB) *TrustService {
	return &TrustService{db: db}
}

// TrustResult is the outcome of one trust calculation.
type TrustResult struct {
	Timestamp           time.Time               `json:"timestamp"`
	TrustScore          float64                 `json:"trustScore"`
	AutonomyLevel       models.AutonomyLevel    `json:"autonomyLevel"`
	RiskFactors         map[string]float64      `json:"riskFactors"`
	ContributingMetrics map[string]any          `json:"contributingMetrics"`
	AlertsTriggered     []string                `json:"alertsTriggered"`
	GovernanceAction    models.GovernanceAction `json:"governanceAction"`
	Explanation         string                  `json:"explanation"`
}

// Calculate computes the current trust score, persists it and logs a
// governance event when the autonomy level changed. Failures degrade to a
// zero score with the kill switch engaged; this method never errors.
func (s *TrustService) Calculate() TrustResult {
	driftSeverity := s.driftSeverity()
	accuracyDrop := s.accuracyDrop()
	biasScore := s.biasScore()
	overrides := s.recentOverrides()

	driftPenalty := driftPenaltyFor(driftSeverity)
	accuracyPenalty := accuracyPenaltyFor(accuracyDrop)
	biasPenalty := biasScore * biasPenaltyWeight
	overridePenalty := float64(overrides) * overridePenaltyWeight

	score := clampScore(100 - driftPenalty - accuracyPenalty - biasPenalty - overridePenalty)

	level := autonomyLevelFor(score)
	alerts := checkAlerts(driftSeverity, accuracyDrop, score)
	action := governanceActionFor(score, alerts)

	contributing := s.contributingMetrics()
	contributing["drift_severity"] = string(driftSeverity)
	contributing["accuracy_drop_percent"] = accuracyDrop * 100
	contributing["bias_score"] = biasScore
	contributing["manual_overrides_count"] = overrides

	result := TrustResult{
		Timestamp:     time.Now(),
		TrustScore:    score,
		AutonomyLevel: level,
		RiskFactors: map[string]float64{
			"drift_score":      driftPenalty,
			"accuracy_drop":    accuracyPenalty,
			"bias_score":       biasPenalty,
			"manual_overrides": overridePenalty,
		},
		ContributingMetrics: contributing,
		AlertsTriggered:     alerts,
		GovernanceAction:    action,
		Explanation:         explain(score, driftSeverity, accuracyDrop, alerts),
	}

	entry := models.TrustScore{
		Timestamp:           result.Timestamp,
		Score:               result.TrustScore,
		AutonomyLevel:       result.AutonomyLevel,
		RiskFactors:         result.RiskFactors,
		ContributingMetrics: result.ContributingMetrics,
		AlertsTriggered:     result.AlertsTriggered,
		GovernanceAction:    result.GovernanceAction,
		Explanation:         result.Explanation,
	}
	if err := s.db.Create(&entry).Error; err != nil {
		logger.Error("Failed to persist trust score", map[string]interface{}{"error": err.Error()})
		return TrustResult{
			Timestamp:        time.Now(),
			TrustScore:       0,
			AutonomyLevel:    models.AutonomyKillSwitch,
			GovernanceAction: models.ActionKillSwitch,
			RiskFactors:      map[string]float64{},
			AlertsTriggered:  []string{},
			Explanation:      "Trust calculation failed; model halted pending manual review.",
		}
	}

	metrics.TrustScoreGauge.Set(score)
	logger.Info("Trust score calculated", map[string]interface{}{
		"trust_score":    score,
		"autonomy_level": level,
	})

	if action != models.ActionNone {
		s.logGovernanceEvent(result)
	}

	return result
}

// driftSeverity classifies the latest drift log's PSI.
func (s *TrustService) driftSeverity() models.DriftSeverity {
	var latest models.DriftLog
	err := s.db.Order("timestamp DESC").First(&latest).Error
	if err != nil {
		return models.DriftLowSeverity
	}

	switch {
	case latest.PSIScore > driftPSIHigh:
		return models.DriftHighSeverity
	case latest.PSIScore > driftPSIModerate:
		return models.DriftModerateSeverity
	default:
		return models.DriftLowSeverity
	}
}

// accuracyDrop is the gap between baseline and the latest logged accuracy,
// floored at zero.
func (s *TrustService) accuracyDrop() float64 {
	var latest models.PerformanceLog
	err := s.db.Order("timestamp DESC").First(&latest).Error
	if err != nil {
		return 0
	}

	current, ok := latest.Metrics["accuracy"]
	if !ok {
		return 0
	}
	drop := baselineAccuracy - current
	if drop < 0 {
		return 0
	}
	return drop
}

func (s *TrustService) biasScore() float64 {
	return placeholderBiasScore
}

// recentOverrides counts manual overrides in the last 24 hours.
func (s *TrustService) recentOverrides() int {
	cutoff := time.Now().Add(-24 * time.Hour)

	var count int64
	err := s.db.Model(&models.GovernanceEvent{}).
		Where("timestamp >= ? AND event_type = ?", cutoff, models.EventManualOverride).
		Count(&count).Error
	if err != nil {
		logger.Error("Failed to count overrides", map[string]interface{}{"error": err.Error()})
		return 0
	}
	return int(count)
}

func (s *TrustService) contributingMetrics() map[string]any {
	cutoff := time.Now().Add(-time.Hour)

	var count int64
	s.db.Model(&models.Prediction{}).Where("timestamp >= ?", cutoff).Count(&count)

	var avgConfidence *float64
	s.db.Model(&models.Prediction{}).
		Where("timestamp >= ?", cutoff).
		Select("AVG(confidence_score)").
		Scan(&avgConfidence)

	avg := 0.0
	if avgConfidence != nil {
		avg = *avgConfidence
	}

	return map[string]any{
		"predictions_last_hour": count,
		"avg_confidence":        avg,
	}
}

// logGovernanceEvent records an autonomy change when the level differs from
// the previous trust entry.
func (s *TrustService) logGovernanceEvent(result TrustResult) {
	var previous []models.TrustScore
	err := s.db.Order("timestamp DESC").Limit(2).Find(&previous).Error
	if err != nil || len(previous) < 2 {
		return
	}

	prior := previous[1]
	if prior.AutonomyLevel == result.AutonomyLevel {
		return
	}

	event := models.GovernanceEvent{
		Timestamp:        time.Now(),
		EventType:        models.EventAutonomyChange,
		PreviousLevel:    prior.AutonomyLevel,
		NewLevel:         result.AutonomyLevel,
		TriggerReason:    strings.Join(result.AlertsTriggered, ", "),
		TrustScore:       result.TrustScore,
		TrustScoreChange: result.TrustScore - prior.Score,
		GovernanceAction: result.GovernanceAction,
	}
	if err := s.db.Create(&event).Error; err != nil {
		logger.Error("Failed to log governance event", map[string]interface{}{"error": err.Error()})
		return
	}

	logger.Warn("Autonomy level changed", map[string]interface{}{
		"previous_level": prior.AutonomyLevel,
		"new_level":      result.AutonomyLevel,
	})
}

// History returns trust scores from the last N hours, oldest first.
func (s *TrustService) History(hours int) ([]models.TrustScore, error) {
	cutoff := time.Now().Add(-time.Duration(hours) * time.Hour)

	var entries []models.TrustScore
	err := s.db.Where("timestamp >= ?", cutoff).
		Order("timestamp ASC").
		Find(&entries).Error
	return entries, err
}

// Incidents lists incidents, optionally filtered by status.
func (s *TrustService) Incidents(status string, limit int) ([]models.Incident, error) {
	query := s.db.Order("detected_at DESC").Limit(limit)
	if status != "" && status != "all" {
		query = query.Where("status = ?", status)
	}

	var incidents []models.Incident
	err := query.Find(&incidents).Error
	return incidents, err
}

// ResolveIncident marks an incident resolved with notes. Returns
// ErrIncidentNotFound when the external id does not match an open incident.
func (s *TrustService) ResolveIncident(incidentID, notes string) (*models.Incident, error) {
	var incident models.Incident
	if err := s.db.Where("incident_id = ?", incidentID).First(&incident).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, ErrIncidentNotFound
		}
		return nil, fmt.Errorf("failed to load incident: %w", err)
	}

	now := time.Now()
	incident.Status = models.IncidentResolved
	incident.ResolvedAt = &now
	incident.ResolutionNotes = &notes

	if err := s.db.Save(&incident).Error; err != nil {
		return nil, fmt.Errorf("failed to resolve incident: %w", err)
	}

	logger.Info("Incident resolved", map[string]interface{}{"incident_id": incidentID})
	return &incident, nil
}

// RecordIncident persists an incident and returns it with its external id
// populated.
func (s *TrustService) RecordIncident(incident models.Incident) (models.Incident, error) {
	if incident.IncidentID == "" {
		incident.IncidentID = fmt.Sprintf("INC-%s", time.Now().Format("20060102150405"))
	}
	if incident.DetectedAt.IsZero() {
		incident.DetectedAt = time.Now()
	}
	if incident.Status == "" {
		incident.Status = models.IncidentOpen
	}

	if err := s.db.Create(&incident).Error; err != nil {
		return models.Incident{}, fmt.Errorf("failed to record incident: %w", err)
	}

	logger.Warn("Incident created", map[string]interface{}{
		"incident_id": incident.IncidentID,
		"type":        incident.Type,
		"severity":    incident.Severity,
	})
	return incident, nil
}

// SimulateDriftIncident injects a fake high-drift log, recalculates trust
// and opens an incident. Used by the demo endpoints.
func (s *TrustService) SimulateDriftIncident() (models.Incident, TrustResult, error) {
	fakeDrift := models.DriftLog{
		Timestamp:     time.Now(),
		Feature:       "income",
		KSStatistic:   0.45,
		PValue:        0.001,
		PSIScore:      0.35,
		DriftDetected: true,
		Severity:      models.DriftHighSeverity,
		Comparison: map[string]any{
			"training_mean":           65000.0,
			"current_mean":            95000.0,
			"mean_difference_percent": 46.2,
		},
		TestType: "simulated",
	}
	if err := s.db.Create(&fakeDrift).Error; err != nil {
		return models.Incident{}, TrustResult{}, fmt.Errorf("failed to inject drift log: %w", err)
	}
	logger.Info("Simulated drift incident created", nil)

	trustResult := s.Calculate()

	incident, err := s.RecordIncident(models.Incident{
		Type:             models.IncidentDataDrift,
		Severity:         models.IncidentSeverityHigh,
		Description:      "Income feature drift PSI > 0.3 (simulated)",
		AffectedFeatures: []string{"income"},
		ActionsTaken: []string{
			"reduced_autonomy",
			"notification_sent",
			"trust_score_recalculated",
		},
		TrustScoreAtDetection: trustResult.TrustScore,
		AutonomyLevel:         trustResult.AutonomyLevel,
	})
	if err != nil {
		return models.Incident{}, TrustResult{}, err
	}

	return incident, trustResult, nil
}

// driftPenaltyFor maps drift severity to its penalty step.
func driftPenaltyFor(severity models.DriftSeverity) float64 {
	switch severity {
	case models.DriftHighSeverity:
		return 30
	case models.DriftModerateSeverity:
		return 15
	case models.DriftLowSeverity:
		return 5
	default:
		return 0
	}
}

// accuracyPenaltyFor maps an accuracy drop to its penalty step.
func accuracyPenaltyFor(drop float64) float64 {
	switch {
	case drop < accuracyDropAcceptable:
		return 0
	case drop < accuracyDropConcerning:
		return 10
	case drop < accuracyDropCritical:
		return 20
	default:
		return 25
	}
}

// autonomyLevelFor maps a trust score onto the 4-level autonomy state.
func autonomyLevelFor(score float64) models.AutonomyLevel {
	switch {
	case score >= trustLevelAutonomous:
		return models.AutonomyFullyAutonomous
	case score >= trustLevelHumanOnLoop:
		return models.AutonomyHumanOnLoop
	case score >= trustLevelApprovalRequired:
		return models.AutonomyApprovalRequired
	default:
		return models.AutonomyKillSwitch
	}
}

func checkAlerts(severity models.DriftSeverity, accuracyDrop, score float64) []string {
	alerts := []string{}

	switch severity {
	case models.DriftHighSeverity:
		alerts = append(alerts, "critical_drift")
	case models.DriftModerateSeverity:
		alerts = append(alerts, "moderate_drift")
	}

	if accuracyDrop > accuracyDropCritical {
		alerts = append(alerts, "critical_accuracy_drop")
	} else if accuracyDrop > accuracyDropConcerning {
		alerts = append(alerts, "accuracy_degradation")
	}

	if score < trustLevelApprovalRequired {
		alerts = append(alerts, "low_trust_score")
	} else if score < trustLevelHumanOnLoop {
		alerts = append(alerts, "very_low_trust_score")
	}

	return alerts
}

func governanceActionFor(score float64, alerts []string) models.GovernanceAction {
	for _, alert := range alerts {
		if alert == "critical_drift" || alert == "critical_accuracy_drop" {
			return models.ActionKillSwitch
		}
	}

	switch {
	case score < trustLevelApprovalRequired:
		return models.ActionRequireApproval
	case score < trustLevelHumanOnLoop:
		return models.ActionHumanReview
	default:
		return models.ActionNone
	}
}

func explain(score float64, severity models.DriftSeverity, accuracyDrop float64, alerts []string) string {
	var parts []string

	switch {
	case score >= trustLevelAutonomous:
		parts = append(parts, "Model is operating within normal parameters.")
	case score >= trustLevelHumanOnLoop:
		parts = append(parts, "Model performance is acceptable but requires monitoring.")
	case score >= trustLevelApprovalRequired:
		parts = append(parts, "Model performance has degraded. Human approval required for high-risk decisions.")
	default:
		parts = append(parts, "Model performance is critically low. Manual review required.")
	}

	switch severity {
	case models.DriftHighSeverity:
		parts = append(parts, "Critical data drift detected - input distribution has changed significantly.")
	case models.DriftModerateSeverity:
		parts = append(parts, "Moderate data drift detected - input distribution is shifting.")
	}

	if accuracyDrop > accuracyDropConcerning {
		parts = append(parts, fmt.Sprintf("Model accuracy has dropped by %.1f%%.", accuracyDrop*100))
	}

	if len(alerts) > 0 {
		parts = append(parts, fmt.Sprintf("Active alerts: %s.", strings.Join(alerts, ", ")))
	}

	return strings.Join(parts, " ")
}

func clampScore(score float64) float64 {
	if score < 0 {
		return 0
	}
	if score > 100 {
		return 100
	}
	return score
}
