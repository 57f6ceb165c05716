// Package lifecycle is the appointment state machine. It decides, with no
// I/O of its own, whether an acting role may move an appointment between
// statuses, toggle the staff completion claim, reassign staff, or delete.
// Callers must get an accept before issuing any store write.
package lifecycle

import (
	"fmt"

	"github.com/Bos243/appointment-booking-app/internal/model"
	"github.com/Bos243/appointment-booking-app/pkg/errors"
)

// Actor is the principal requesting a change. Assigned is true when an
// Employee actor is the appointment's assigned employee.
type Actor struct {
	Role     model.Role
	Assigned bool
}

type transitionKey struct {
	from model.AppointmentStatus
	to   model.AppointmentStatus
	role model.Role
}

// precondition is evaluated against the current row after the
// (from, to, role) triple has matched.
type precondition func(a *model.Appointment, actor Actor) error

func assigned(a *model.Appointment, actor Actor) error {
	if !actor.Assigned {
		return fmt.Errorf("employee is not assigned to this appointment")
	}
	return nil
}

func notClaimed(a *model.Appointment, actor Actor) error {
	if a.EmployeeDone {
		return fmt.Errorf("appointment is awaiting admin confirmation")
	}
	return nil
}

func all(checks ...precondition) precondition {
	return func(a *model.Appointment, actor Actor) error {
		for _, check := range checks {
			if err := check(a, actor); err != nil {
				return err
			}
		}
		return nil
	}
}

func none(a *model.Appointment, actor Actor) error { return nil }

// transitions is the authoritative table. An unlisted (from, to, role)
// triple is rejected.
var transitions = map[transitionKey]precondition{
	{model.AppointmentStatusPending, model.AppointmentStatusConfirmed, model.RoleEmployee}: assigned,
	{model.AppointmentStatusPending, model.AppointmentStatusConfirmed, model.RoleAdmin}:    none,

	{model.AppointmentStatusPending, model.AppointmentStatusCanceled, model.RoleEmployee}: all(assigned, notClaimed),
	{model.AppointmentStatusPending, model.AppointmentStatusCanceled, model.RoleAdmin}:    none,

	// The direct completion path requires the claim flag to be down; a
	// claimed appointment completes only through the admin confirmation.
	{model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted, model.RoleEmployee}: all(assigned, notClaimed),
	{model.AppointmentStatusConfirmed, model.AppointmentStatusCompleted, model.RoleAdmin}:    none,

	{model.AppointmentStatusConfirmed, model.AppointmentStatusCanceled, model.RoleEmployee}: all(assigned, notClaimed),
	{model.AppointmentStatusConfirmed, model.AppointmentStatusCanceled, model.RoleAdmin}:    none,
}

// Transition validates a status change and, on accept, applies it to the
// in-memory row. Completing a claimed appointment consumes the claim:
// status becomes completed and EmployeeDone is reset in the same step, so
// persisting the row is a single write.
func Transition(a *model.Appointment, to model.AppointmentStatus, actor Actor) error {
	if !to.Valid() {
		return errors.InvalidTransition(fmt.Sprintf("unknown status %q", to))
	}
	if a.Status.Terminal() {
		return errors.InvalidTransition(fmt.Sprintf("appointment is %s, no further transitions", a.Status))
	}

	check, ok := transitions[transitionKey{a.Status, to, actor.Role}]
	if !ok {
		return errors.InvalidTransition(fmt.Sprintf("%s may not move %s to %s", actor.Role, a.Status, to))
	}
	if err := check(a, actor); err != nil {
		return errors.InvalidTransition(err.Error())
	}

	a.Status = to
	if to == model.AppointmentStatusCompleted {
		a.EmployeeDone = false
	}
	return nil
}

// ConfirmDone is the admin half of the completion handshake: it consumes a
// raised EmployeeDone claim, moving the appointment to completed with the
// claim reset.
func ConfirmDone(a *model.Appointment, actor Actor) error {
	if actor.Role != model.RoleAdmin {
		return errors.InvalidTransition("only an admin confirms a completion claim")
	}
	if !a.AwaitingConfirmation() {
		return errors.InvalidTransition("appointment has no pending completion claim")
	}
	a.Status = model.AppointmentStatusCompleted
	a.EmployeeDone = false
	return nil
}

// SetEmployeeDone toggles the staff completion claim. Only the assigned
// employee raises or lowers it, and only while the status is pending or
// confirmed.
func SetEmployeeDone(a *model.Appointment, done bool, actor Actor) error {
	if actor.Role != model.RoleEmployee {
		return errors.InvalidTransition("only staff toggle the completion claim")
	}
	if !actor.Assigned {
		return errors.InvalidTransition("employee is not assigned to this appointment")
	}
	if a.Status.Terminal() {
		return errors.InvalidTransition(fmt.Sprintf("appointment is %s, claim can no longer change", a.Status))
	}
	a.EmployeeDone = done
	return nil
}

// Policy covers the operations the transition table leaves open:
// reassignment and deletion of terminal appointments. The default denies
// both; AllowTerminalOverride lets an admin act on completed or canceled
// rows anyway.
type Policy struct {
	AllowTerminalOverride bool
}

// CanAssign reports whether the actor may change EmployeeID.
func (p Policy) CanAssign(a *model.Appointment, actor Actor) error {
	if actor.Role != model.RoleAdmin {
		return errors.Forbidden("only an admin assigns staff")
	}
	if a.Status.Terminal() && !p.AllowTerminalOverride {
		return errors.InvalidTransition(fmt.Sprintf("appointment is %s, assignment is frozen", a.Status))
	}
	return nil
}

// CanDelete reports whether the actor may delete the appointment. The
// owning citizen may delete while the appointment is pending or confirmed;
// an admin may delete anything non-terminal, and terminal rows only under
// the override policy.
func (p Policy) CanDelete(a *model.Appointment, actor Actor, isOwner bool) error {
	switch actor.Role {
	case model.RoleAdmin:
		if a.Status.Terminal() && !p.AllowTerminalOverride {
			return errors.InvalidTransition(fmt.Sprintf("appointment is %s, deletion requires override", a.Status))
		}
		return nil
	case model.RoleUser:
		if !isOwner {
			return errors.Forbidden("appointment belongs to another citizen")
		}
		if a.Status.Terminal() {
			return errors.InvalidTransition(fmt.Sprintf("appointment is %s and can no longer be withdrawn", a.Status))
		}
		return nil
	default:
		return errors.Forbidden("staff do not delete appointments")
	}
}
