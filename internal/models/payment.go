package models

import (
	"time"

	"github.com/google/uuid"
)

// Payment lifecycle states. Approved and rejected are terminal.
const (
	PaymentPending   = "pending"
	PaymentSubmitted = "submitted"
	PaymentVerified  = "verified"
	PaymentApproved  = "approved"
	PaymentRejected  = "rejected"
)

// Billing cycles.
const (
	CycleMonthly = "monthly"
	CycleYearly  = "yearly"
)

// SubscriptionPayment is a user-initiated payment for a paid plan. It is
// mutated only through the payment service's transition methods and never
// deleted outside explicit admin cleanup.
type SubscriptionPayment struct {
	ID              uuid.UUID        `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID          uuid.UUID        `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID          uuid.UUID        `gorm:"type:uuid;not null" json:"plan_id"`
	PaymentMethod   string           `gorm:"size:50" json:"payment_method"`
	BillingCycle    string           `gorm:"size:10;not null;default:'monthly'" json:"billing_cycle"`
	BaseAmount      float64          `gorm:"not null" json:"base_amount"`
	DiscountAmount  float64          `gorm:"not null;default:0" json:"discount_amount"`
	FinalAmount     float64          `gorm:"not null" json:"final_amount"`
	Currency        string           `gorm:"size:3;not null;default:'USD'" json:"currency"`
	Status          string           `gorm:"size:15;not null;default:'pending';index" json:"status"`
	TransactionRef  string           `gorm:"size:255" json:"transaction_ref"`
	SubmittedAt     *time.Time       `json:"submitted_at"`
	VerifiedAt      *time.Time       `json:"verified_at"`
	ApprovedAt      *time.Time       `json:"approved_at"`
	RejectedAt      *time.Time       `json:"rejected_at"`
	RejectionReason string           `gorm:"size:500" json:"rejection_reason"`
	VerifiedBy      *uuid.UUID       `gorm:"type:uuid" json:"verified_by"`
	CreatedAt       time.Time        `json:"created_at"`
	UpdatedAt       time.Time        `json:"updated_at"`
	User            User             `gorm:"foreignKey:UserID" json:"-"`
	Plan            SubscriptionPlan `gorm:"foreignKey:PlanID" json:"plan"`
}

// Terminal reports whether no further transition is defined for the
// payment's current state.
func (p *SubscriptionPayment) Terminal() bool {
	return p.Status == PaymentApproved || p.Status == PaymentRejected
}
