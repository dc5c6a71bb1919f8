package models

import (
	"time"
)

type LLMAlertType string

const (
	LLMAlertHighLatency   LLMAlertType = "high_latency"
	LLMAlertHallucination LLMAlertType = "hallucination"
	LLMAlertHighCost      LLMAlertType = "high_cost"
)

// LLMInteraction logs a single LLM query with its observability metrics.
// Failed calls are logged too, with Error set and the metric fields zeroed.
type LLMInteraction struct {
	ID                    uint      `json:"id" gorm:"primaryKey"`
	InteractionID         string    `json:"interactionId" gorm:"uniqueIndex;not null"`
	Timestamp             time.Time `json:"timestamp" gorm:"index"`
	Model                 string    `json:"model"`
	UseCase               string    `json:"useCase"`
	UserID                *string   `json:"userId,omitempty"`
	PromptText            string    `json:"promptText" gorm:"type:text"`
	PromptTokens          int       `json:"promptTokens"`
	ResponseText          string    `json:"responseText" gorm:"type:text"`
	ResponseTokens        int       `json:"responseTokens"`
	FinishReason          string    `json:"finishReason"`
	LatencyMs             float64   `json:"latencyMs"`
	TotalTokens           int       `json:"totalTokens"`
	CostUSD               float64   `json:"costUsd"`
	QualityScore          float64   `json:"qualityScore"`
	HallucinationDetected bool      `json:"hallucinationDetected"`
	SafetyPassed          bool      `json:"safetyPassed"`
	Error                 *string   `json:"error,omitempty" gorm:"type:text"`
	CreatedAt             time.Time `json:"createdAt"`
}

func (LLMInteraction) TableName() string {
	return "llm_interactions"
}

type LLMAlert struct {
	ID           uint         `json:"id" gorm:"primaryKey"`
	Timestamp    time.Time    `json:"timestamp" gorm:"index"`
	AlertType    LLMAlertType `json:"alertType"`
	Severity     string       `json:"severity"`
	Message      string       `json:"message" gorm:"type:text"`
	CurrentValue *float64     `json:"currentValue,omitempty"`
	Acknowledged bool         `json:"acknowledged" gorm:"default:false;index"`
	CreatedAt    time.Time    `json:"createdAt"`
}

func (LLMAlert) TableName() string {
	return "llm_alerts"
}
