package models

import (
	"time"

	"github.com/google/uuid"
)

// Obligation kinds.
const (
	ObligationTransaction = "transaction"
	ObligationSIP         = "sip"
	ObligationLoanEMI     = "loan_emi"
)

// Frequencies.
const (
	FrequencyWeekly    = "weekly"
	FrequencyBiweekly  = "biweekly"
	FrequencyMonthly   = "monthly"
	FrequencyQuarterly = "quarterly"
	FrequencyYearly    = "yearly"
)

// ObligationTemplate is a user-owned definition of a recurring financial
// event: a recurring transaction, a SIP contribution, or a loan EMI.
// NextExecutionDate is always the earliest not-yet-executed occurrence, or
// nil once the template is exhausted. Execution advances it by exactly one
// period; pause and resume never touch it.
type ObligationTemplate struct {
	ID                uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID            uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	Kind              string     `gorm:"size:20;not null;index:idx_obligations_kind_due,priority:1" json:"kind"`
	Description       string     `gorm:"size:255" json:"description"`
	Amount            float64    `gorm:"not null" json:"amount"`
	Currency          string     `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Frequency         string     `gorm:"size:15;not null" json:"frequency"`
	AnchorDate        time.Time  `gorm:"not null" json:"anchor_date"`
	NextExecutionDate *time.Time `gorm:"index:idx_obligations_kind_due,priority:2" json:"next_execution_date"`
	EndDate           *time.Time `json:"end_date"`
	TenureRemaining   *int       `json:"tenure_remaining"`
	IsActive          bool       `gorm:"not null;default:true;index" json:"is_active"`
	ExecutedCount     int        `gorm:"not null;default:0" json:"executed_count"`
	CreatedAt         time.Time  `json:"created_at"`
	UpdatedAt         time.Time  `json:"updated_at"`
	User              User       `gorm:"foreignKey:UserID" json:"-"`
}

func (ObligationTemplate) TableName() string {
	return "obligation_templates"
}
