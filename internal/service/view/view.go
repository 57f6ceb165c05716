// Package view holds the visibility projections of the three role
// dashboards. A projection is a pure filter over the appointment
// collection; authorization lives in the lifecycle engine, not here.
package view

import (
	"github.com/google/uuid"

	"github.com/Bos243/appointment-booking-app/internal/model"
)

// Projection narrows a snapshot to what one principal may see.
type Projection func([]*model.Appointment) []*model.Appointment

// All passes the snapshot through unchanged.
func All() Projection {
	return func(apps []*model.Appointment) []*model.Appointment { return apps }
}

// ForUser keeps the citizen's own appointments.
func ForUser(self uuid.UUID) Projection {
	return func(apps []*model.Appointment) []*model.Appointment {
		out := make([]*model.Appointment, 0, len(apps))
		for _, a := range apps {
			if a.UserID == self {
				out = append(out, a)
			}
		}
		return out
	}
}

// ForEmployee keeps appointments assigned to the employee. hideClaimed
// additionally drops rows whose completion claim is already raised; that is
// a presentation choice, not an authorization rule.
func ForEmployee(self uuid.UUID, hideClaimed bool) Projection {
	return func(apps []*model.Appointment) []*model.Appointment {
		out := make([]*model.Appointment, 0, len(apps))
		for _, a := range apps {
			if !a.AssignedTo(self) {
				continue
			}
			if hideClaimed && a.EmployeeDone {
				continue
			}
			out = append(out, a)
		}
		return out
	}
}

// AdminFilter holds the admin dashboard's optional display filters.
// Zero values mean "all".
type AdminFilter struct {
	Status     model.AppointmentStatus
	EmployeeID uuid.UUID
}

// ForAdmin keeps everything, narrowed by the display filters.
func ForAdmin(f AdminFilter) Projection {
	return func(apps []*model.Appointment) []*model.Appointment {
		out := make([]*model.Appointment, 0, len(apps))
		for _, a := range apps {
			if f.Status != "" && a.Status != f.Status {
				continue
			}
			if f.EmployeeID != uuid.Nil && !a.AssignedTo(f.EmployeeID) {
				continue
			}
			out = append(out, a)
		}
		return out
	}
}

// AdminItem decorates an appointment with the awaiting-confirmation marker
// the admin dashboard shows for raised completion claims.
type AdminItem struct {
	*model.Appointment
	AwaitingConfirmation bool `json:"awaiting_confirmation"`
}

func AnnotateAdmin(apps []*model.Appointment) []AdminItem {
	items := make([]AdminItem, 0, len(apps))
	for _, a := range apps {
		items = append(items, AdminItem{
			Appointment:          a,
			AwaitingConfirmation: a.AwaitingConfirmation(),
		})
	}
	return items
}

// NewIDs reports which appointments appear in next but not in prev. The
// comparison is by identifier set: result-length deltas misfire when an
// unrelated update shifts a filtered count.
func NewIDs(prev, next []*model.Appointment) []uuid.UUID {
	seen := make(map[uuid.UUID]struct{}, len(prev))
	for _, a := range prev {
		seen[a.ID] = struct{}{}
	}
	var added []uuid.UUID
	for _, a := range next {
		if _, ok := seen[a.ID]; !ok {
			added = append(added, a.ID)
		}
	}
	return added
}
