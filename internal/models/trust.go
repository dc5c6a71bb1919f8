package models

import (
	"time"
)

type AutonomyLevel string
type GovernanceAction string

const (
	AutonomyFullyAutonomous  AutonomyLevel = "fully_autonomous"
	AutonomyHumanOnLoop      AutonomyLevel = "human_on_loop"
	AutonomyApprovalRequired AutonomyLevel = "approval_required"
	AutonomyKillSwitch       AutonomyLevel = "kill_switch"
)

const (
	ActionNone            GovernanceAction = "none"
	ActionHumanReview     GovernanceAction = "human_review"
	ActionRequireApproval GovernanceAction = "require_approval"
	ActionKillSwitch      GovernanceAction = "kill_switch"
)

const (
	EventAutonomyChange = "autonomy_change"
	EventManualOverride = "manual_override"
)

// TrustScore is one entry of the append-only trust score time series.
type TrustScore struct {
	ID                  uint               `json:"id" gorm:"primaryKey"`
	Timestamp           time.Time          `json:"timestamp" gorm:"index"`
	Score               float64            `json:"trustScore"`
	AutonomyLevel       AutonomyLevel      `json:"autonomyLevel"`
	RiskFactors         map[string]float64 `json:"riskFactors" gorm:"type:jsonb;serializer:json"`
	ContributingMetrics map[string]any     `json:"contributingMetrics" gorm:"type:jsonb;serializer:json"`
	AlertsTriggered     []string           `json:"alertsTriggered" gorm:"type:jsonb;serializer:json"`
	GovernanceAction    GovernanceAction   `json:"governanceAction"`
	Explanation         string             `json:"explanation" gorm:"type:text"`
	CreatedAt           time.Time          `json:"createdAt"`
}

func (TrustScore) TableName() string {
	return "trust_scores"
}

// GovernanceEvent records autonomy transitions and manual overrides.
type GovernanceEvent struct {
	ID               uint             `json:"id" gorm:"primaryKey"`
	Timestamp        time.Time        `json:"timestamp" gorm:"index"`
	EventType        string           `json:"eventType" gorm:"index"`
	PreviousLevel    AutonomyLevel    `json:"previousLevel"`
	NewLevel         AutonomyLevel    `json:"newLevel"`
	TriggerReason    string           `json:"triggerReason"`
	TrustScore       float64          `json:"trustScore"`
	TrustScoreChange float64          `json:"trustScoreChange"`
	GovernanceAction GovernanceAction `json:"governanceAction"`
	CreatedAt        time.Time        `json:"createdAt"`
}

func (GovernanceEvent) TableName() string {
	return "governance_logs"
}
