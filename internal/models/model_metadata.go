package models

import (
	"time"
)

// ModelMetadata tracks the versions of the classifier that have been loaded
// by the service. Exactly one version is active at a time.
type ModelMetadata struct {
	ID                uint               `json:"id" gorm:"primaryKey"`
	Version           string             `json:"version" gorm:"uniqueIndex;not null"`
	TrainingDate      time.Time          `json:"trainingDate"`
	Algorithm         string             `json:"algorithm"`
	Accuracy          float64            `json:"accuracy"`
	Precision         float64            `json:"precision"`
	Recall            float64            `json:"recall"`
	F1Score           float64            `json:"f1Score"`
	FeatureNames      []string           `json:"featureNames" gorm:"type:jsonb;serializer:json"`
	FeatureImportance map[string]float64 `json:"featureImportance" gorm:"type:jsonb;serializer:json"`
	IsActive          bool               `json:"isActive" gorm:"index"`
	CreatedAt         time.Time          `json:"createdAt"`
	UpdatedAt         time.Time          `json:"updatedAt"`
}

func (ModelMetadata) TableName() string {
	return "model_metadata"
}
