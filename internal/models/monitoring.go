package models

import (
	"time"
)

type DriftSeverity string

const (
	DriftLowSeverity      DriftSeverity = "low"
	DriftModerateSeverity DriftSeverity = "moderate"
	DriftHighSeverity     DriftSeverity = "high"
)

// DriftLog records the outcome of a drift check for a single feature.
type DriftLog struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Timestamp     time.Time      `json:"timestamp" gorm:"index"`
	Feature       string         `json:"feature"`
	KSStatistic   float64        `json:"ksStatistic"`
	PValue        float64        `json:"pValue"`
	PSIScore      float64        `json:"psiScore"`
	DriftDetected bool           `json:"driftDetected"`
	Severity      DriftSeverity  `json:"severity"`
	Comparison    map[string]any `json:"distributionComparison" gorm:"type:jsonb;serializer:json"`
	Threshold     float64        `json:"threshold"`
	TestType      string         `json:"testType"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func (DriftLog) TableName() string {
	return "drift_logs"
}

// PerformanceLog is an aggregate of model quality metrics over a time window.
type PerformanceLog struct {
	ID           uint               `json:"id" gorm:"primaryKey"`
	Timestamp    time.Time          `json:"timestamp" gorm:"index"`
	ModelVersion string             `json:"modelVersion"`
	Metrics      map[string]float64 `json:"metrics" gorm:"type:jsonb;serializer:json"`
	SampleSize   int                `json:"sampleSize"`
	TimeWindow   string             `json:"timeWindow"`
	CreatedAt    time.Time          `json:"createdAt"`
}

func (PerformanceLog) TableName() string {
	return "model_performance"
}

// SystemHealthLog is a snapshot of host and API-level health metrics.
type SystemHealthLog struct {
	ID            uint           `json:"id" gorm:"primaryKey"`
	Timestamp     time.Time      `json:"timestamp" gorm:"index"`
	APIMetrics    map[string]any `json:"apiMetrics" gorm:"type:jsonb;serializer:json"`
	SystemMetrics map[string]any `json:"systemMetrics" gorm:"type:jsonb;serializer:json"`
	UptimeSeconds float64        `json:"uptimeSeconds"`
	CreatedAt     time.Time      `json:"createdAt"`
}

func (SystemHealthLog) TableName() string {
	return "system_health"
}
