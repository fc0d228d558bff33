// Package policy answers authorization questions synchronously, before any
// mutating operation runs. It is deliberately independent of the persistence
// layer: callers hand it an actor snapshot, it hands back allow or deny.
package policy

import (
	"fmt"

	"github.com/google/uuid"
)

// Actions the engine checks before mutating. SubmitPayment covers what a
// payer does to their own payment; TransitionPayment covers the review
// transitions (verify, approve, reject).
const (
	ActionManageTemplate      = "obligation.manage"
	ActionSubmitPayment       = "payment.submit"
	ActionTransitionPayment   = "payment.transition"
	ActionManageSubscription  = "subscription.manage"
	ActionTriggerScheduler    = "scheduler.trigger"
	ActionReadMonitoring      = "monitoring.read"
	ActionReadAdminSubscripts = "subscription.list"
)

// ownerActions may be performed by the resource owner without the admin role.
var ownerActions = map[string]bool{
	ActionManageTemplate: true,
	ActionSubmitPayment:  true,
}

// Actor is a snapshot of whoever is attempting an operation.
type Actor struct {
	ID   uuid.UUID
	Role string
}

// Resource identifies what the action targets. OwnerID is the zero UUID for
// resources without an owner (scheduler jobs, monitoring views).
type Resource struct {
	Kind    string
	OwnerID uuid.UUID
}

// Denied is returned when policy rejects an action.
type Denied struct {
	Action string
}

func (e *Denied) Error() string {
	return fmt.Sprintf("not authorized for %s", e.Action)
}

// Authorize returns nil when actor may perform action on resource. Admins
// may do everything; owners may manage their own obligation templates and
// submit their own payments; all other combinations are denied.
func Authorize(actor Actor, action string, resource Resource) error {
	if actor.Role == "admin" {
		return nil
	}
	if ownerActions[action] && resource.OwnerID != uuid.Nil && resource.OwnerID == actor.ID {
		return nil
	}
	return &Denied{Action: action}
}
