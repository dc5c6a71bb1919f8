package services

import (
	"strings"
	"testing"

	"github.com/aegisai/backend/internal/models"
)

func TestDriftPenaltyFor(t *testing.T) {
	tests := []struct {
		severity models.DriftSeverity
		expected float64
	}{
		{models.DriftLowSeverity, 5},
		{models.DriftModerateSeverity, 15},
		{models.DriftHighSeverity, 30},
	}

	for _, tt := range tests {
		if got := driftPenaltyFor(tt.severity); got != tt.expected {
			t.Errorf("driftPenaltyFor(%s) = %f, expected %f", tt.severity, got, tt.expected)
		}
	}
}

func TestAccuracyPenaltyFor(t *testing.T) {
	tests := []struct {
		drop     float64
		expected float64
	}{
		{0, 0},
		{0.01, 0},
		{0.02, 10}, // boundary
		{0.03, 10},
		{0.05, 20}, // boundary
		{0.07, 20},
		{0.10, 25}, // boundary
		{0.15, 25},
	}

	for _, tt := range tests {
		if got := accuracyPenaltyFor(tt.drop); got != tt.expected {
			t.Errorf("accuracyPenaltyFor(%f) = %f, expected %f", tt.drop, got, tt.expected)
		}
	}
}

func TestAutonomyLevelFor(t *testing.T) {
	tests := []struct {
		score    float64
		expected models.AutonomyLevel
	}{
		{100, models.AutonomyFullyAutonomous},
		{80, models.AutonomyFullyAutonomous},
		{79.9, models.AutonomyHumanOnLoop},
		{60, models.AutonomyHumanOnLoop},
		{59.9, models.AutonomyApprovalRequired},
		{40, models.AutonomyApprovalRequired},
		{39.9, models.AutonomyKillSwitch},
		{0, models.AutonomyKillSwitch},
	}

	for _, tt := range tests {
		if got := autonomyLevelFor(tt.score); got != tt.expected {
			t.Errorf("autonomyLevelFor(%f) = %s, expected %s", tt.score, got, tt.expected)
		}
	}
}

func TestClampScore(t *testing.T) {
	if got := clampScore(-15); got != 0 {
		t.Errorf("Expected 0, got %f", got)
	}
	if got := clampScore(105); got != 100 {
		t.Errorf("Expected 100, got %f", got)
	}
	if got := clampScore(72.5); got != 72.5 {
		t.Errorf("Expected 72.5, got %f", got)
	}
}

func hasAlert(alerts []string, name string) bool {
	for _, a := range alerts {
		if a == name {
			return true
		}
	}
	return false
}

func TestCheckAlerts(t *testing.T) {
	alerts := checkAlerts(models.DriftHighSeverity, 0.12, 30)
	if !hasAlert(alerts, "critical_drift") {
		t.Error("Expected critical_drift alert")
	}
	if !hasAlert(alerts, "critical_accuracy_drop") {
		t.Error("Expected critical_accuracy_drop alert")
	}
	if !hasAlert(alerts, "low_trust_score") {
		t.Error("Expected low_trust_score alert")
	}

	alerts = checkAlerts(models.DriftModerateSeverity, 0.07, 55)
	if !hasAlert(alerts, "moderate_drift") {
		t.Error("Expected moderate_drift alert")
	}
	if !hasAlert(alerts, "accuracy_degradation") {
		t.Error("Expected accuracy_degradation alert")
	}
	if !hasAlert(alerts, "very_low_trust_score") {
		t.Error("Expected very_low_trust_score alert")
	}

	alerts = checkAlerts(models.DriftLowSeverity, 0.01, 90)
	if len(alerts) != 0 {
		t.Errorf("Expected no alerts for healthy state, got %v", alerts)
	}
}

func TestGovernanceActionFor(t *testing.T) {
	// Critical alerts force the kill switch regardless of score
	action := governanceActionFor(85, []string{"critical_drift"})
	if action != models.ActionKillSwitch {
		t.Errorf("Expected kill_switch, got %s", action)
	}
	action = governanceActionFor(85, []string{"critical_accuracy_drop"})
	if action != models.ActionKillSwitch {
		t.Errorf("Expected kill_switch, got %s", action)
	}

	if action := governanceActionFor(35, nil); action != models.ActionRequireApproval {
		t.Errorf("Expected require_approval, got %s", action)
	}
	if action := governanceActionFor(55, nil); action != models.ActionHumanReview {
		t.Errorf("Expected human_review, got %s", action)
	}
	if action := governanceActionFor(85, nil); action != models.ActionNone {
		t.Errorf("Expected none, got %s", action)
	}
}

func TestExplain(t *testing.T) {
	text := explain(85, models.DriftLowSeverity, 0.01, nil)
	if !strings.Contains(text, "normal parameters") {
		t.Errorf("Unexpected explanation: %s", text)
	}

	text = explain(30, models.DriftHighSeverity, 0.12, []string{"critical_drift", "low_trust_score"})
	if !strings.Contains(text, "critically low") {
		t.Errorf("Expected critical wording, got: %s", text)
	}
	if !strings.Contains(text, "Critical data drift") {
		t.Errorf("Expected drift wording, got: %s", text)
	}
	if !strings.Contains(text, "critical_drift") {
		t.Errorf("Expected alert list, got: %s", text)
	}
}
