package models

import (
	"time"

	"github.com/google/uuid"
)

// Subscription statuses. Cancelled is terminal; a new subscription is
// created instead of reactivating a cancelled one.
const (
	SubscriptionActive    = "active"
	SubscriptionSuspended = "suspended"
	SubscriptionCancelled = "cancelled"
)

// UserSubscription is a user's paid plan. PaymentID is nil for rows created
// manually by an admin.
type UserSubscription struct {
	ID           uuid.UUID            `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	UserID       uuid.UUID            `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID       uuid.UUID            `gorm:"type:uuid;not null" json:"plan_id"`
	PaymentID    *uuid.UUID           `gorm:"type:uuid" json:"payment_id"`
	BillingCycle string               `gorm:"size:10;not null;default:'monthly'" json:"billing_cycle"`
	Status       string               `gorm:"size:15;not null;default:'active';index" json:"status"`
	StartDate    time.Time            `gorm:"not null" json:"start_date"`
	EndDate      *time.Time           `json:"end_date"`
	CreatedAt    time.Time            `json:"created_at"`
	UpdatedAt    time.Time            `json:"updated_at"`
	User         User                 `gorm:"foreignKey:UserID" json:"-"`
	Plan         SubscriptionPlan     `gorm:"foreignKey:PlanID" json:"plan"`
	Payment      *SubscriptionPayment `gorm:"foreignKey:PaymentID" json:"payment,omitempty"`
}

// SubscriptionHistory is the append-only action log for a subscription.
// Rows are written once by the subscription service and never edited.
type SubscriptionHistory struct {
	ID             uuid.UUID  `gorm:"type:uuid;default:gen_random_uuid();primaryKey" json:"id"`
	SubscriptionID uuid.UUID  `gorm:"type:uuid;not null;index" json:"subscription_id"`
	UserID         uuid.UUID  `gorm:"type:uuid;not null;index" json:"user_id"`
	PlanID         uuid.UUID  `gorm:"type:uuid;not null" json:"plan_id"`
	Action         string     `gorm:"size:20;not null" json:"action"`
	EffectiveAt    time.Time  `gorm:"not null" json:"effective_at"`
	EndDate        *time.Time `json:"end_date"`
	ActorID        *uuid.UUID `gorm:"type:uuid" json:"actor_id"`
	Note           string     `gorm:"size:500" json:"note"`
	CreatedAt      time.Time  `json:"created_at"`
}

func (SubscriptionHistory) TableName() string {
	return "subscription_history"
}
