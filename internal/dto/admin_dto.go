package dto

import (
	"time"

	"github.com/google/uuid"

	"github.com/Raihan-Sharif/finmate-sub005/internal/models"
)

// SubscriptionActionRequest applies one lifecycle action to a subscription.
// ExtendMonths is consulted only when Action is "extend".
type SubscriptionActionRequest struct {
	Action       string `json:"action"`
	ExtendMonths int    `json:"extend_months"`
}

type CreateSubscriptionRequest struct {
	UserID       uuid.UUID `json:"user_id"`
	PlanID       uuid.UUID `json:"plan_id"`
	BillingCycle string    `json:"billing_cycle"`
}

type CreatePaymentRequest struct {
	PlanID         uuid.UUID `json:"plan_id"`
	BillingCycle   string    `json:"billing_cycle"`
	PaymentMethod  string    `json:"payment_method"`
	DiscountAmount float64   `json:"discount_amount"`
	TransactionRef string    `json:"transaction_ref"`
}

type RejectPaymentRequest struct {
	Reason string `json:"reason"`
}

// AdminSubscription is the denormalized dashboard row: the subscription with
// its plan, payment, owner, and display-time fields resolved in one place.
type AdminSubscription struct {
	models.UserSubscription
	UserEmail     string `json:"user_email"`
	DaysRemaining int    `json:"days_remaining"`
	IsExpired     bool   `json:"is_expired"`
}

func NewAdminSubscription(sub *models.UserSubscription, now time.Time) AdminSubscription {
	view := AdminSubscription{UserSubscription: *sub, UserEmail: sub.User.Email}
	if sub.EndDate != nil {
		if sub.EndDate.Before(now) {
			view.IsExpired = true
		} else {
			view.DaysRemaining = int(sub.EndDate.Sub(now).Hours() / 24)
		}
	}
	return view
}
