package models

import (
	"fmt"
	"time"

	"gorm.io/gorm"
)

type CreditHistory string
type EmploymentType string
type RiskCategory string

const (
	CreditGood CreditHistory = "Good"
	CreditFair CreditHistory = "Fair"
	CreditPoor CreditHistory = "Poor"
)

const (
	EmploymentFullTime     EmploymentType = "Full-time"
	EmploymentPartTime     EmploymentType = "Part-time"
	EmploymentSelfEmployed EmploymentType = "Self-employed"
	EmploymentUnemployed   EmploymentType = "Unemployed"
)

const (
	RiskLow    RiskCategory = "Low"
	RiskMedium RiskCategory = "Medium"
	RiskHigh   RiskCategory = "High"
)

// CustomerData is the input payload for a credit risk prediction.
type CustomerData struct {
	Income         float64 `json:"income" binding:"required,gt=0"`
	Age            int     `json:"age" binding:"required,gte=18,lte=100"`
	LoanAmount     float64 `json:"loanAmount" binding:"required,gt=0"`
	CreditHistory  string  `json:"creditHistory" binding:"required"`
	EmploymentType string  `json:"employmentType" binding:"required"`
	ExistingDebts  float64 `json:"existingDebts" binding:"gte=0"`
	UserID         *string `json:"userId,omitempty"`
}

// Validate checks the categorical fields against their allowed values.
// Numeric range checks are handled by the binding tags.
func (c CustomerData) Validate() error {
	switch CreditHistory(c.CreditHistory) {
	case CreditGood, CreditFair, CreditPoor:
	default:
		return fmt.Errorf("creditHistory must be one of Good, Fair, Poor")
	}
	switch EmploymentType(c.EmploymentType) {
	case EmploymentFullTime, EmploymentPartTime, EmploymentSelfEmployed, EmploymentUnemployed:
	default:
		return fmt.Errorf("employmentType must be one of Full-time, Part-time, Self-employed, Unemployed")
	}
	return nil
}

// Prediction is a persisted prediction record. Records are immutable once
// written; there are no update paths.
type Prediction struct {
	ID                  uint           `json:"id" gorm:"primaryKey"`
	Timestamp           time.Time      `json:"timestamp" gorm:"index"`
	ModelVersion        string         `json:"modelVersion"`
	Income              float64        `json:"income"`
	Age                 int            `json:"age"`
	LoanAmount          float64        `json:"loanAmount"`
	CreditHistory       string         `json:"creditHistory"`
	EmploymentType      string         `json:"employmentType"`
	ExistingDebts       float64        `json:"existingDebts"`
	UserID              *string        `json:"userId,omitempty"`
	ApprovalProbability float64        `json:"approvalProbability"`
	RiskCategory        RiskCategory   `json:"riskCategory" gorm:"index"`
	ConfidenceScore     float64        `json:"confidenceScore"`
	ProcessingTimeMs    float64        `json:"processingTimeMs"`
	CreatedAt           time.Time      `json:"createdAt"`
	DeletedAt           gorm.DeletedAt `json:"-" gorm:"index"`
}

func (Prediction) TableName() string {
	return "predictions"
}

// Input reconstructs the customer data this prediction was made from.
func (p Prediction) Input() CustomerData {
	return CustomerData{
		Income:         p.Income,
		Age:            p.Age,
		LoanAmount:     p.LoanAmount,
		CreditHistory:  p.CreditHistory,
		EmploymentType: p.EmploymentType,
		ExistingDebts:  p.ExistingDebts,
		UserID:         p.UserID,
	}
}
