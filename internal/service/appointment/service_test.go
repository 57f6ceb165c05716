package appointment

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bos243/appointment-booking-app/internal/lifecycle"
	"github.com/Bos243/appointment-booking-app/internal/model"
	"github.com/Bos243/appointment-booking-app/internal/service/view"
	"github.com/Bos243/appointment-booking-app/internal/service/watch"
	"github.com/Bos243/appointment-booking-app/pkg/errors"
	"github.com/Bos243/appointment-booking-app/pkg/messaging/memory"
	"github.com/Bos243/appointment-booking-app/pkg/metrics"
)

type fakeAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Appointment
}

func newFakeAppointmentRepo() *fakeAppointmentRepo {
	return &fakeAppointmentRepo{items: make(map[uuid.UUID]*model.Appointment)}
}

func (r *fakeAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if a.ID == uuid.Nil {
		a.ID = uuid.New()
	}
	a.CreatedAt = time.Now()
	a.UpdatedAt = a.CreatedAt
	cp := *a
	r.items[a.ID] = &cp
	return nil
}

func (r *fakeAppointmentRepo) Get(_ context.Context, id uuid.UUID) (*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return nil, errors.NotFound("appointment", nil)
	}
	cp := *a
	return &cp, nil
}

func (r *fakeAppointmentRepo) SetStatus(_ context.Context, id uuid.UUID, status model.AppointmentStatus, done bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return errors.NotFound("appointment", nil)
	}
	a.Status = status
	a.EmployeeDone = done
	return nil
}

func (r *fakeAppointmentRepo) SetEmployeeDone(_ context.Context, id uuid.UUID, done bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return errors.NotFound("appointment", nil)
	}
	a.EmployeeDone = done
	return nil
}

func (r *fakeAppointmentRepo) SetEmployee(_ context.Context, id uuid.UUID, employeeID *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	a, ok := r.items[id]
	if !ok {
		return errors.NotFound("appointment", nil)
	}
	a.EmployeeID = employeeID
	return nil
}

func (r *fakeAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.items[id]; !ok {
		return errors.NotFound("appointment", nil)
	}
	delete(r.items, id)
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, f *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.items {
		if f != nil {
			if f.UserID != uuid.Nil && a.UserID != f.UserID {
				continue
			}
			if f.EmployeeID != uuid.Nil && (a.EmployeeID == nil || *a.EmployeeID != f.EmployeeID) {
				continue
			}
			if f.Status != "" && a.Status != f.Status {
				continue
			}
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

type fakeUserRepo struct {
	users map[uuid.UUID]*model.User
}

func newFakeUserRepo(users ...*model.User) *fakeUserRepo {
	r := &fakeUserRepo{users: make(map[uuid.UUID]*model.User)}
	for _, u := range users {
		r.users[u.ID] = u
	}
	return r
}

func (r *fakeUserRepo) Create(_ context.Context, u *model.User) error {
	r.users[u.ID] = u
	return nil
}

func (r *fakeUserRepo) Get(_ context.Context, id uuid.UUID) (*model.User, error) {
	u, ok := r.users[id]
	if !ok {
		return nil, errors.NotFound("user", nil)
	}
	return u, nil
}

func (r *fakeUserRepo) GetByEmail(_ context.Context, email string) (*model.User, error) {
	for _, u := range r.users {
		if u.Email == email {
			return u, nil
		}
	}
	return nil, errors.NotFound("user", nil)
}

func (r *fakeUserRepo) UpdateEmailVerified(_ context.Context, id uuid.UUID, v bool) error {
	if u, ok := r.users[id]; ok {
		u.EmailVerified = v
	}
	return nil
}

func (r *fakeUserRepo) UpdatePasswordHash(_ context.Context, id uuid.UUID, h string) error {
	if u, ok := r.users[id]; ok {
		u.PasswordHash = h
	}
	return nil
}

func (r *fakeUserRepo) List(_ context.Context, f *model.UserFilters) ([]*model.User, error) {
	var out []*model.User
	for _, u := range r.users {
		if f != nil && f.Role != "" && u.Role != f.Role {
			continue
		}
		out = append(out, u)
	}
	return out, nil
}

func newTestService(t *testing.T, repo *fakeAppointmentRepo, users *fakeUserRepo, policy lifecycle.Policy) *Service {
	t.Helper()
	log := zerolog.Nop()
	broker := memory.NewBroker()
	t.Cleanup(func() { broker.Close() })
	publisher := watch.NewPublisher(broker, &log)
	m := metrics.NewMetrics("test", prometheus.NewRegistry())
	return NewService(repo, users, policy, publisher, &log, m)
}

func bookRequest() *model.BookAppointmentRequest {
	return &model.BookAppointmentRequest{
		Date:        time.Now().AddDate(0, 0, 7).Format("2006-01-02"),
		Slot:        "10:00 AM",
		ServiceType: "ID Card Issuance",
	}
}

func TestBookCreatesPendingUnassigned(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(t, repo, newFakeUserRepo(), lifecycle.Policy{})

	userID := uuid.New()
	apt, err := svc.Book(context.Background(), userID, bookRequest())
	require.NoError(t, err)

	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Nil(t, apt.EmployeeID)
	assert.False(t, apt.EmployeeDone)
	assert.Equal(t, userID, apt.UserID)

	stored, err := repo.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, stored.Status)
}

func TestBookRejectsUnknownService(t *testing.T) {
	svc := newTestService(t, newFakeAppointmentRepo(), newFakeUserRepo(), lifecycle.Policy{})

	req := bookRequest()
	req.ServiceType = "Dog Grooming"
	_, err := svc.Book(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
}

func TestBookRejectsPastDate(t *testing.T) {
	svc := newTestService(t, newFakeAppointmentRepo(), newFakeUserRepo(), lifecycle.Policy{})

	req := bookRequest()
	req.Date = "2020-01-01"
	_, err := svc.Book(context.Background(), uuid.New(), req)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
}

func TestRejectedTransitionLeavesStoreUntouched(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(t, repo, newFakeUserRepo(), lifecycle.Policy{})

	userID := uuid.New()
	apt, err := svc.Book(context.Background(), userID, bookRequest())
	require.NoError(t, err)

	// Pending cannot complete directly.
	_, err = svc.Complete(context.Background(), apt.ID, Actor{ID: uuid.New(), Role: model.RoleAdmin})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))

	stored, err := repo.Get(context.Background(), apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, stored.Status)
}

func TestUnassignedEmployeeCannotConfirm(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(t, repo, newFakeUserRepo(), lifecycle.Policy{})

	apt, err := svc.Book(context.Background(), uuid.New(), bookRequest())
	require.NoError(t, err)

	_, err = svc.Confirm(context.Background(), apt.ID, Actor{ID: uuid.New(), Role: model.RoleEmployee})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
}

func TestAssignRequiresEmployeeRole(t *testing.T) {
	repo := newFakeAppointmentRepo()
	citizen := &model.User{Base: model.Base{ID: uuid.New()}, Email: "citizen@example.com", Role: model.RoleUser}
	svc := newTestService(t, repo, newFakeUserRepo(citizen), lifecycle.Policy{})

	apt, err := svc.Book(context.Background(), uuid.New(), bookRequest())
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), apt.ID, &citizen.ID, Actor{ID: uuid.New(), Role: model.RoleAdmin})
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrBadRequest))
}

func TestAssignTerminalFrozenByDefault(t *testing.T) {
	repo := newFakeAppointmentRepo()
	emp := &model.User{Base: model.Base{ID: uuid.New()}, Email: "emp@example.com", Role: model.RoleEmployee}
	svc := newTestService(t, repo, newFakeUserRepo(emp), lifecycle.Policy{})

	apt, err := svc.Book(context.Background(), uuid.New(), bookRequest())
	require.NoError(t, err)
	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}

	_, err = svc.Cancel(context.Background(), apt.ID, admin)
	require.NoError(t, err)

	_, err = svc.Assign(context.Background(), apt.ID, &emp.ID, admin)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
}

func TestAssignTerminalWithOverride(t *testing.T) {
	repo := newFakeAppointmentRepo()
	emp := &model.User{Base: model.Base{ID: uuid.New()}, Email: "emp@example.com", Role: model.RoleEmployee}
	svc := newTestService(t, repo, newFakeUserRepo(emp), lifecycle.Policy{AllowTerminalOverride: true})

	apt, err := svc.Book(context.Background(), uuid.New(), bookRequest())
	require.NoError(t, err)
	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}

	_, err = svc.Cancel(context.Background(), apt.ID, admin)
	require.NoError(t, err)

	updated, err := svc.Assign(context.Background(), apt.ID, &emp.ID, admin)
	require.NoError(t, err)
	require.NotNil(t, updated.EmployeeID)
	assert.Equal(t, emp.ID, *updated.EmployeeID)
}

func TestFullServiceCounterFlow(t *testing.T) {
	repo := newFakeAppointmentRepo()
	emp := &model.User{Base: model.Base{ID: uuid.New()}, Email: "clerk@example.com", Role: model.RoleEmployee}
	svc := newTestService(t, repo, newFakeUserRepo(emp), lifecycle.Policy{})
	ctx := context.Background()

	citizen := uuid.New()
	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}
	clerk := Actor{ID: emp.ID, Role: model.RoleEmployee}

	apt, err := svc.Book(ctx, citizen, bookRequest())
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusPending, apt.Status)
	assert.Nil(t, apt.EmployeeID)

	apt, err = svc.Assign(ctx, apt.ID, &emp.ID, admin)
	require.NoError(t, err)
	require.NotNil(t, apt.EmployeeID)

	apt, err = svc.Confirm(ctx, apt.ID, clerk)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)

	apt, err = svc.SetDone(ctx, apt.ID, clerk, true)
	require.NoError(t, err)
	assert.True(t, apt.EmployeeDone)
	assert.Equal(t, model.AppointmentStatusConfirmed, apt.Status)

	// The clerk's own completion path is blocked while the claim is up.
	_, err = svc.Complete(ctx, apt.ID, clerk)
	require.Error(t, err)

	apt, err = svc.ConfirmDone(ctx, apt.ID, admin)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, apt.Status)
	assert.False(t, apt.EmployeeDone)

	stored, err := repo.Get(ctx, apt.ID)
	require.NoError(t, err)
	assert.Equal(t, model.AppointmentStatusCompleted, stored.Status)
	assert.False(t, stored.EmployeeDone)
}

func TestConfirmDoneRequiresClaim(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(t, repo, newFakeUserRepo(), lifecycle.Policy{})
	ctx := context.Background()

	apt, err := svc.Book(ctx, uuid.New(), bookRequest())
	require.NoError(t, err)
	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}

	_, err = svc.Confirm(ctx, apt.ID, admin)
	require.NoError(t, err)

	_, err = svc.ConfirmDone(ctx, apt.ID, admin)
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.ErrInvalidTransition))
}

func TestDeleteByOwnerAndPolicy(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(t, repo, newFakeUserRepo(), lifecycle.Policy{})
	ctx := context.Background()

	owner := uuid.New()
	apt, err := svc.Book(ctx, owner, bookRequest())
	require.NoError(t, err)

	// A different citizen cannot delete it.
	err = svc.Delete(ctx, apt.ID, Actor{ID: uuid.New(), Role: model.RoleUser})
	require.Error(t, err)

	// The owner can, while it is still pending.
	err = svc.Delete(ctx, apt.ID, Actor{ID: owner, Role: model.RoleUser})
	require.NoError(t, err)

	_, err = repo.Get(ctx, apt.ID)
	assert.True(t, errors.IsCode(err, errors.ErrNotFound))
}

func TestDeleteTerminalFrozenByDefault(t *testing.T) {
	repo := newFakeAppointmentRepo()
	svc := newTestService(t, repo, newFakeUserRepo(), lifecycle.Policy{})
	ctx := context.Background()

	owner := uuid.New()
	apt, err := svc.Book(ctx, owner, bookRequest())
	require.NoError(t, err)
	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}

	_, err = svc.Cancel(ctx, apt.ID, admin)
	require.NoError(t, err)

	err = svc.Delete(ctx, apt.ID, Actor{ID: owner, Role: model.RoleUser})
	require.Error(t, err)
	err = svc.Delete(ctx, apt.ID, admin)
	require.Error(t, err)
}

func TestListForEmployeeHidesClaimed(t *testing.T) {
	repo := newFakeAppointmentRepo()
	emp := &model.User{Base: model.Base{ID: uuid.New()}, Email: "clerk@example.com", Role: model.RoleEmployee}
	svc := newTestService(t, repo, newFakeUserRepo(emp), lifecycle.Policy{})
	ctx := context.Background()

	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}
	clerk := Actor{ID: emp.ID, Role: model.RoleEmployee}

	a, err := svc.Book(ctx, uuid.New(), bookRequest())
	require.NoError(t, err)
	b, err := svc.Book(ctx, uuid.New(), bookRequest())
	require.NoError(t, err)
	for _, id := range []uuid.UUID{a.ID, b.ID} {
		_, err = svc.Assign(ctx, id, &emp.ID, admin)
		require.NoError(t, err)
	}
	_, err = svc.Confirm(ctx, a.ID, clerk)
	require.NoError(t, err)
	_, err = svc.SetDone(ctx, a.ID, clerk, true)
	require.NoError(t, err)

	all, err := svc.ListForEmployee(ctx, emp.ID, false)
	require.NoError(t, err)
	assert.Len(t, all, 2)

	open, err := svc.ListForEmployee(ctx, emp.ID, true)
	require.NoError(t, err)
	require.Len(t, open, 1)
	assert.Equal(t, b.ID, open[0].ID)
}

func TestListForAdminAnnotatesAwaiting(t *testing.T) {
	repo := newFakeAppointmentRepo()
	emp := &model.User{Base: model.Base{ID: uuid.New()}, Email: "clerk@example.com", Role: model.RoleEmployee}
	svc := newTestService(t, repo, newFakeUserRepo(emp), lifecycle.Policy{})
	ctx := context.Background()

	admin := Actor{ID: uuid.New(), Role: model.RoleAdmin}
	clerk := Actor{ID: emp.ID, Role: model.RoleEmployee}

	apt, err := svc.Book(ctx, uuid.New(), bookRequest())
	require.NoError(t, err)
	_, err = svc.Assign(ctx, apt.ID, &emp.ID, admin)
	require.NoError(t, err)
	_, err = svc.Confirm(ctx, apt.ID, clerk)
	require.NoError(t, err)
	_, err = svc.SetDone(ctx, apt.ID, clerk, true)
	require.NoError(t, err)

	items, err := svc.ListForAdmin(ctx, view.AdminFilter{})
	require.NoError(t, err)
	require.Len(t, items, 1)
	assert.True(t, items[0].AwaitingConfirmation)
}

func TestListEmployeesReturnsOnlyEmployees(t *testing.T) {
	emp := &model.User{Base: model.Base{ID: uuid.New()}, Email: "clerk@example.com", Role: model.RoleEmployee}
	citizen := &model.User{Base: model.Base{ID: uuid.New()}, Email: "citizen@example.com", Role: model.RoleUser}
	svc := newTestService(t, newFakeAppointmentRepo(), newFakeUserRepo(emp, citizen), lifecycle.Policy{})

	options, err := svc.ListEmployees(context.Background())
	require.NoError(t, err)
	require.Len(t, options, 1)
	assert.Equal(t, emp.ID, options[0].ID)
	assert.Equal(t, "clerk@example.com", options[0].Email)
}
