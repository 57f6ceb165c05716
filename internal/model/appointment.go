package model

import (
	"time"

	"github.com/google/uuid"
)

type AppointmentStatus string

const (
	AppointmentStatusPending   AppointmentStatus = "pending"
	AppointmentStatusConfirmed AppointmentStatus = "confirmed"
	AppointmentStatusCompleted AppointmentStatus = "completed"
	AppointmentStatusCanceled  AppointmentStatus = "canceled"
)

func (s AppointmentStatus) Valid() bool {
	switch s {
	case AppointmentStatusPending, AppointmentStatusConfirmed,
		AppointmentStatusCompleted, AppointmentStatusCanceled:
		return true
	}
	return false
}

// Terminal reports whether no transition leaves the status.
func (s AppointmentStatus) Terminal() bool {
	return s == AppointmentStatusCompleted || s == AppointmentStatusCanceled
}

// Appointment is the central entity. UserID is the owning citizen and is
// set once on creation. EmployeeID is the assigned staff member, nil while
// unassigned. EmployeeDone is the staff member's claim of completion; it is
// distinct from the final status and is consumed by the admin confirmation.
type Appointment struct {
	Base
	UserID       uuid.UUID         `db:"user_id" json:"user_id"`
	EmployeeID   *uuid.UUID        `db:"employee_id" json:"employee_id,omitempty"`
	Datetime     time.Time         `db:"datetime" json:"datetime"`
	ServiceType  string            `db:"service_type" json:"service_type"`
	Status       AppointmentStatus `db:"status" json:"status"`
	EmployeeDone bool              `db:"employee_done" json:"employee_done"`
	Notes        string            `db:"notes" json:"notes,omitempty"`
}

// AssignedTo reports whether the appointment is assigned to the given employee.
func (a *Appointment) AssignedTo(employeeID uuid.UUID) bool {
	return a.EmployeeID != nil && *a.EmployeeID == employeeID
}

// AwaitingConfirmation reports whether staff claimed completion and the
// appointment is waiting for the admin to finalize it.
func (a *Appointment) AwaitingConfirmation() bool {
	return a.Status == AppointmentStatusConfirmed && a.EmployeeDone
}

// BookAppointmentRequest is a citizen booking: a calendar date plus one of
// the fixed time slots.
type BookAppointmentRequest struct {
	Date        string `json:"date" binding:"required,datetime=2006-01-02"`
	Slot        string `json:"slot" binding:"required,bookingslot"`
	ServiceType string `json:"service_type" binding:"required,servicetype"`
	Notes       string `json:"notes" binding:"max=1000"`
}

// AssignEmployeeRequest sets or clears the assigned employee.
type AssignEmployeeRequest struct {
	EmployeeID *uuid.UUID `json:"employee_id"`
}

type SetDoneRequest struct {
	Done *bool `json:"done" binding:"required"`
}

// AppointmentFilters are equality predicates for list and live queries.
// Zero values mean "no filter".
type AppointmentFilters struct {
	UserID     uuid.UUID
	EmployeeID uuid.UUID
	Status     AppointmentStatus
}
