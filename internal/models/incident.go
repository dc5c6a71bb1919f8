package models

import (
	"time"

	"gorm.io/gorm"
)

type IncidentStatus string
type IncidentType string
type IncidentSeverity string

const (
	IncidentOpen     IncidentStatus = "open"
	IncidentResolved IncidentStatus = "resolved"
)

const (
	IncidentDataDrift    IncidentType = "data_drift"
	IncidentBiasDetected IncidentType = "bias_detected"
	IncidentAccuracyDrop IncidentType = "accuracy_drop"
)

const (
	IncidentSeverityLow    IncidentSeverity = "low"
	IncidentSeverityMedium IncidentSeverity = "medium"
	IncidentSeverityHigh   IncidentSeverity = "high"
)

// Incident is a governance incident. It is mutated exactly once, on
// resolution.
type Incident struct {
	ID                    uint             `json:"id" gorm:"primaryKey"`
	IncidentID            string           `json:"incidentId" gorm:"uniqueIndex;not null"`
	Type                  IncidentType     `json:"type" gorm:"not null"`
	Severity              IncidentSeverity `json:"severity" gorm:"not null"`
	Status                IncidentStatus   `json:"status" gorm:"not null;default:'open';index"`
	Description           string           `json:"description" gorm:"type:text"`
	AffectedFeatures      []string         `json:"affectedFeatures" gorm:"type:jsonb;serializer:json"`
	ActionsTaken          []string         `json:"actionsTaken" gorm:"type:jsonb;serializer:json"`
	Details               map[string]any   `json:"details,omitempty" gorm:"type:jsonb;serializer:json"`
	DetectedAt            time.Time        `json:"detectedAt" gorm:"index"`
	ResolvedAt            *time.Time       `json:"resolvedAt"`
	ResolutionNotes       *string          `json:"resolutionNotes"`
	TrustScoreAtDetection float64          `json:"trustScoreAtDetection"`
	AutonomyLevel         AutonomyLevel    `json:"autonomyLevel"`
	CreatedAt             time.Time        `json:"createdAt"`
	UpdatedAt             time.Time        `json:"updatedAt"`
	DeletedAt             gorm.DeletedAt   `json:"-" gorm:"index"`
}

func (Incident) TableName() string {
	return "incidents"
}
