package appointment

import (
	"context"
	"fmt"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/Bos243/appointment-booking-app/internal/lifecycle"
	"github.com/Bos243/appointment-booking-app/internal/model"
	"github.com/Bos243/appointment-booking-app/internal/repository"
	"github.com/Bos243/appointment-booking-app/internal/service/view"
	"github.com/Bos243/appointment-booking-app/internal/service/watch"
	"github.com/Bos243/appointment-booking-app/pkg/errors"
	"github.com/Bos243/appointment-booking-app/pkg/metrics"
)

// Actor identifies the principal invoking an operation.
type Actor struct {
	ID   uuid.UUID
	Role model.Role
}

type Service struct {
	repo      repository.AppointmentRepository
	users     repository.UserRepository
	policy    lifecycle.Policy
	publisher *watch.Publisher
	logger    *zerolog.Logger
	metrics   *metrics.Metrics
}

func NewService(
	repo repository.AppointmentRepository,
	users repository.UserRepository,
	policy lifecycle.Policy,
	publisher *watch.Publisher,
	logger *zerolog.Logger,
	m *metrics.Metrics,
) *Service {
	return &Service{
		repo:      repo,
		users:     users,
		policy:    policy,
		publisher: publisher,
		logger:    logger,
		metrics:   m,
	}
}

// Book creates a pending, unassigned appointment owned by the citizen.
func (s *Service) Book(ctx context.Context, userID uuid.UUID, req *model.BookAppointmentRequest) (*model.Appointment, error) {
	if !model.ValidService(req.ServiceType) {
		return nil, errors.BadRequest(fmt.Sprintf("unknown service %q", req.ServiceType), nil)
	}
	dt, err := model.BookingTime(req.Date, req.Slot)
	if err != nil {
		return nil, errors.BadRequest("invalid booking time", err)
	}
	if dt.Before(time.Now()) {
		return nil, errors.BadRequest("appointment cannot be booked in the past", nil)
	}

	apt := &model.Appointment{
		UserID:      userID,
		EmployeeID:  nil,
		Datetime:    dt,
		ServiceType: req.ServiceType,
		Status:      model.AppointmentStatusPending,
		Notes:       req.Notes,
	}
	if err := s.repo.Create(ctx, apt); err != nil {
		return nil, errors.RemoteWrite(err)
	}

	s.metrics.AppointmentsBooked.Inc()
	s.logger.Info().Stringer("id", apt.ID).Stringer("user_id", userID).Str("service", apt.ServiceType).Msg("appointment booked")
	s.publisher.Changed(ctx, "created", apt.ID)
	return apt, nil
}

func (s *Service) Get(ctx context.Context, id uuid.UUID) (*model.Appointment, error) {
	return s.repo.Get(ctx, id)
}

func (s *Service) ListForUser(ctx context.Context, userID uuid.UUID) ([]*model.Appointment, error) {
	return s.repo.List(ctx, &model.AppointmentFilters{UserID: userID})
}

func (s *Service) ListForEmployee(ctx context.Context, employeeID uuid.UUID, hideClaimed bool) ([]*model.Appointment, error) {
	apps, err := s.repo.List(ctx, &model.AppointmentFilters{EmployeeID: employeeID})
	if err != nil {
		return nil, err
	}
	return view.ForEmployee(employeeID, hideClaimed)(apps), nil
}

func (s *Service) ListForAdmin(ctx context.Context, filter view.AdminFilter) ([]view.AdminItem, error) {
	apps, err := s.repo.List(ctx, &model.AppointmentFilters{
		EmployeeID: filter.EmployeeID,
		Status:     filter.Status,
	})
	if err != nil {
		return nil, err
	}
	return view.AnnotateAdmin(apps), nil
}

// ListEmployees backs the admin assignment dropdown.
func (s *Service) ListEmployees(ctx context.Context) ([]model.EmployeeOption, error) {
	users, err := s.users.List(ctx, &model.UserFilters{Role: model.RoleEmployee})
	if err != nil {
		return nil, err
	}
	options := make([]model.EmployeeOption, 0, len(users))
	for _, u := range users {
		options = append(options, model.EmployeeOption{ID: u.ID, Email: u.Email})
	}
	return options, nil
}

// Confirm moves pending to confirmed.
func (s *Service) Confirm(ctx context.Context, id uuid.UUID, actor Actor) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentStatusConfirmed, actor, "confirm")
}

// Cancel moves pending or confirmed to canceled.
func (s *Service) Cancel(ctx context.Context, id uuid.UUID, actor Actor) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentStatusCanceled, actor, "cancel")
}

// Complete is the direct completion path, open while no claim is raised.
func (s *Service) Complete(ctx context.Context, id uuid.UUID, actor Actor) (*model.Appointment, error) {
	return s.transition(ctx, id, model.AppointmentStatusCompleted, actor, "complete")
}

// ConfirmDone finalizes a raised completion claim: status becomes completed
// and the claim resets, persisted as a single write so no observer can see
// a completed row with the claim still up.
func (s *Service) ConfirmDone(ctx context.Context, id uuid.UUID, actor Actor) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.ConfirmDone(apt, s.lifecycleActor(apt, actor)); err != nil {
		s.reject("confirm_done", actor)
		return nil, err
	}
	if err := s.repo.SetStatus(ctx, id, apt.Status, apt.EmployeeDone); err != nil {
		return nil, errors.RemoteWrite(err)
	}

	s.applied("confirm_done", actor)
	s.publisher.Changed(ctx, "updated", id)
	return apt, nil
}

// SetDone raises or lowers the assigned employee's completion claim.
func (s *Service) SetDone(ctx context.Context, id uuid.UUID, actor Actor, done bool) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := lifecycle.SetEmployeeDone(apt, done, s.lifecycleActor(apt, actor)); err != nil {
		s.reject("set_done", actor)
		return nil, err
	}
	if err := s.repo.SetEmployeeDone(ctx, id, done); err != nil {
		return nil, errors.RemoteWrite(err)
	}

	s.applied("set_done", actor)
	s.publisher.Changed(ctx, "updated", id)
	return apt, nil
}

// Assign sets or clears the assigned employee. Admin only; a non-nil
// employee must exist and hold the Employee role.
func (s *Service) Assign(ctx context.Context, id uuid.UUID, employeeID *uuid.UUID, actor Actor) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	if err := s.policy.CanAssign(apt, s.lifecycleActor(apt, actor)); err != nil {
		s.reject("assign", actor)
		return nil, err
	}

	if employeeID != nil {
		emp, err := s.users.Get(ctx, *employeeID)
		if err != nil {
			return nil, errors.BadRequest("assignee not found", err)
		}
		if emp.Role != model.RoleEmployee {
			return nil, errors.BadRequest("assignee is not an employee", nil)
		}
	}

	if err := s.repo.SetEmployee(ctx, id, employeeID); err != nil {
		return nil, errors.RemoteWrite(err)
	}
	apt.EmployeeID = employeeID

	s.applied("assign", actor)
	s.logger.Info().Stringer("id", id).Interface("employee_id", employeeID).Msg("appointment reassigned")
	s.publisher.Changed(ctx, "updated", id)
	return apt, nil
}

// Delete removes the appointment: the owning citizen withdraws a
// pending/confirmed booking, or an admin removes it under policy.
func (s *Service) Delete(ctx context.Context, id uuid.UUID, actor Actor) error {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return err
	}

	isOwner := apt.UserID == actor.ID
	if err := s.policy.CanDelete(apt, s.lifecycleActor(apt, actor), isOwner); err != nil {
		s.reject("delete", actor)
		return err
	}
	if err := s.repo.Delete(ctx, id); err != nil {
		return errors.RemoteWrite(err)
	}

	s.applied("delete", actor)
	s.publisher.Changed(ctx, "deleted", id)
	return nil
}

func (s *Service) transition(ctx context.Context, id uuid.UUID, to model.AppointmentStatus, actor Actor, action string) (*model.Appointment, error) {
	apt, err := s.repo.Get(ctx, id)
	if err != nil {
		return nil, err
	}

	// The engine decides before any store write; a rejection leaves the
	// stored row untouched.
	if err := lifecycle.Transition(apt, to, s.lifecycleActor(apt, actor)); err != nil {
		s.reject(action, actor)
		return nil, err
	}
	if err := s.repo.SetStatus(ctx, id, apt.Status, apt.EmployeeDone); err != nil {
		return nil, errors.RemoteWrite(err)
	}

	s.applied(action, actor)
	s.logger.Info().Stringer("id", id).Str("status", string(apt.Status)).Str("role", string(actor.Role)).Msg("appointment transitioned")
	s.publisher.Changed(ctx, "updated", id)
	return apt, nil
}

func (s *Service) lifecycleActor(apt *model.Appointment, actor Actor) lifecycle.Actor {
	return lifecycle.Actor{
		Role:     actor.Role,
		Assigned: actor.Role == model.RoleEmployee && apt.AssignedTo(actor.ID),
	}
}

func (s *Service) applied(action string, actor Actor) {
	s.metrics.TransitionsApplied.WithLabelValues(action, string(actor.Role)).Inc()
}

func (s *Service) reject(action string, actor Actor) {
	s.metrics.TransitionsRejected.WithLabelValues(action, string(actor.Role)).Inc()
}
