// Package apperr defines the error taxonomy shared by services, the
// scheduler, and the HTTP layer. Handlers map these to status codes instead
// of matching on message strings.
package apperr

import (
	"errors"
	"fmt"
)

// StateViolation is returned when an invalid lifecycle transition is
// attempted. It always identifies both sides; invalid transitions are never
// silently corrected.
type StateViolation struct {
	Entity    string
	Current   string
	Requested string
}

func (e *StateViolation) Error() string {
	return fmt.Sprintf("%s: invalid transition from %q to %q", e.Entity, e.Current, e.Requested)
}

// NotFound is returned when a referenced template, payment, or subscription
// id does not exist.
type NotFound struct {
	Entity string
	ID     string
}

func (e *NotFound) Error() string {
	return fmt.Sprintf("%s %s not found", e.Entity, e.ID)
}

// InvalidArgument is returned for malformed input. No mutation is performed.
type InvalidArgument struct {
	Reason string
}

func (e *InvalidArgument) Error() string {
	return e.Reason
}

// PersistenceFailure wraps a store read/write rejection. Inside a scheduler
// run it is recorded per item; on synchronous admin paths it surfaces
// directly.
type PersistenceFailure struct {
	Op  string
	Err error
}

func (e *PersistenceFailure) Error() string {
	return fmt.Sprintf("persistence failure during %s: %v", e.Op, e.Err)
}

func (e *PersistenceFailure) Unwrap() error { return e.Err }

// RunAbort is returned when a scheduler run could not establish its due set
// or acquire the per-job lock. The run closes as failed with zero items.
type RunAbort struct {
	JobName string
	Reason  string
}

func (e *RunAbort) Error() string {
	return fmt.Sprintf("run aborted for job %q: %s", e.JobName, e.Reason)
}

// IsStateViolation reports whether err is a StateViolation.
func IsStateViolation(err error) bool {
	var sv *StateViolation
	return errors.As(err, &sv)
}

// IsNotFound reports whether err is a NotFound.
func IsNotFound(err error) bool {
	var nf *NotFound
	return errors.As(err, &nf)
}

// IsInvalidArgument reports whether err is an InvalidArgument.
func IsInvalidArgument(err error) bool {
	var ia *InvalidArgument
	return errors.As(err, &ia)
}
