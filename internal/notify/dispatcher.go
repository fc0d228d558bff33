// Package notify emits structured user-attention events to the external
// notification dispatcher. Delivery is out of scope here; this package only
// fixes the event shape and the publishing seam.
package notify

import "context"

// Event types produced by the obligation engine.
const (
	EventBudgetThreshold     = "budget_threshold"
	EventEMIDue              = "emi_due"
	EventSIPExecuted         = "sip_executed"
	EventTransactionPosted   = "transaction_posted"
	EventLendingReminder     = "lending_reminder"
	EventSubscriptionPending = "subscription_pending"
	EventPaymentApproved     = "payment_approved"
	EventPaymentRejected     = "payment_rejected"
	EventSubscriptionChanged = "subscription_changed"
)

// Event is the wire shape consumed by the notification dispatcher.
type Event struct {
	Type      string `json:"type"`
	UserID    string `json:"user_id"`
	Title     string `json:"title"`
	Body      string `json:"body"`
	TargetURL string `json:"target_url"`
}

// Dispatcher receives events. Implementations must be safe for concurrent
// use; the scheduler publishes from multiple workers.
type Dispatcher interface {
	Dispatch(ctx context.Context, event Event) error
}
