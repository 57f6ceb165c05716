package employee

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/rs/zerolog"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/Bos243/appointment-booking-app/internal/lifecycle"
	"github.com/Bos243/appointment-booking-app/internal/middleware"
	"github.com/Bos243/appointment-booking-app/internal/model"
	apptsvc "github.com/Bos243/appointment-booking-app/internal/service/appointment"
	"github.com/Bos243/appointment-booking-app/internal/service/watch"
	"github.com/Bos243/appointment-booking-app/pkg/errors"
	"github.com/Bos243/appointment-booking-app/pkg/messaging/memory"
	"github.com/Bos243/appointment-booking-app/pkg/metrics"
)

type fakeAppointmentRepo struct {
	mu    sync.Mutex
	items map[uuid.UUID]*model.Appointment
}

func (r *fakeAppointmentRepo) Create(_ context.Context, a *model.Appointment) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[a.ID] = a
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
	a := r.items[id]
	a.Status = status
	a.EmployeeDone = done
	return nil
}

func (r *fakeAppointmentRepo) SetEmployeeDone(_ context.Context, id uuid.UUID, done bool) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id].EmployeeDone = done
	return nil
}

func (r *fakeAppointmentRepo) SetEmployee(_ context.Context, id uuid.UUID, employeeID *uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.items[id].EmployeeID = employeeID
	return nil
}

func (r *fakeAppointmentRepo) Delete(_ context.Context, id uuid.UUID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.items, id)
	return nil
}

func (r *fakeAppointmentRepo) List(_ context.Context, f *model.AppointmentFilters) ([]*model.Appointment, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	var out []*model.Appointment
	for _, a := range r.items {
		if f != nil && f.EmployeeID != uuid.Nil && (a.EmployeeID == nil || *a.EmployeeID != f.EmployeeID) {
			continue
		}
		cp := *a
		out = append(out, &cp)
	}
	return out, nil
}

type fakeUserRepo struct{}

func (fakeUserRepo) Create(_ context.Context, _ *model.User) error { return nil }
func (fakeUserRepo) Get(_ context.Context, _ uuid.UUID) (*model.User, error) {
	return nil, errors.NotFound("user", nil)
}
func (fakeUserRepo) GetByEmail(_ context.Context, _ string) (*model.User, error) {
	return nil, errors.NotFound("user", nil)
}
func (fakeUserRepo) UpdateEmailVerified(_ context.Context, _ uuid.UUID, _ bool) error { return nil }
func (fakeUserRepo) UpdatePasswordHash(_ context.Context, _ uuid.UUID, _ string) error {
	return nil
}
func (fakeUserRepo) List(_ context.Context, _ *model.UserFilters) ([]*model.User, error) {
	return nil, nil
}

func setupRouter(t *testing.T, repo *fakeAppointmentRepo, actorID uuid.UUID, role model.Role) *gin.Engine {
	t.Helper()
	gin.SetMode(gin.TestMode)

	log := zerolog.Nop()
	broker := memory.NewBroker()
	t.Cleanup(func() { broker.Close() })
	m := metrics.NewMetrics("test", prometheus.NewRegistry())

	svc := apptsvc.NewService(repo, fakeUserRepo{}, lifecycle.Policy{}, watch.NewPublisher(broker, &log), &log, m)
	hub := watch.NewHub(repo, broker, &log, m)
	h := NewHandler(svc, hub)

	engine := gin.New()
	group := engine.Group("/employee")
	group.Use(func(c *gin.Context) {
		c.Set(middleware.ContextUserID, actorID.String())
		c.Set(middleware.ContextUserRole, string(role))
		c.Next()
	})
	h.RegisterRoutes(group)
	return engine
}

func seedAppointment(repo *fakeAppointmentRepo, employeeID uuid.UUID, status model.AppointmentStatus, done bool) *model.Appointment {
	apt := &model.Appointment{
		Base:         model.Base{ID: uuid.New()},
		UserID:       uuid.New(),
		EmployeeID:   &employeeID,
		Datetime:     time.Now().Add(24 * time.Hour),
		ServiceType:  "ID Card Issuance",
		Status:       status,
		EmployeeDone: done,
	}
	repo.items[apt.ID] = apt
	return apt
}

func doRequest(engine *gin.Engine, method, path, body string) *httptest.ResponseRecorder {
	var reader *strings.Reader
	if body == "" {
		reader = strings.NewReader("")
	} else {
		reader = strings.NewReader(body)
	}
	req := httptest.NewRequest(method, path, reader)
	req.Header.Set("Content-Type", "application/json")
	w := httptest.NewRecorder()
	engine.ServeHTTP(w, req)
	return w
}

func TestConfirmEndpoint(t *testing.T) {
	empID := uuid.New()
	repo := &fakeAppointmentRepo{items: make(map[uuid.UUID]*model.Appointment)}
	apt := seedAppointment(repo, empID, model.AppointmentStatusPending, false)
	engine := setupRouter(t, repo, empID, model.RoleEmployee)

	w := doRequest(engine, http.MethodPost, "/employee/appointments/"+apt.ID.String()+"/confirm", "")
	require.Equal(t, http.StatusOK, w.Code)
	assert.Equal(t, model.AppointmentStatusConfirmed, repo.items[apt.ID].Status)
}

func TestConfirmConflictOnTerminal(t *testing.T) {
	empID := uuid.New()
	repo := &fakeAppointmentRepo{items: make(map[uuid.UUID]*model.Appointment)}
	apt := seedAppointment(repo, empID, model.AppointmentStatusCanceled, false)
	engine := setupRouter(t, repo, empID, model.RoleEmployee)

	w := doRequest(engine, http.MethodPost, "/employee/appointments/"+apt.ID.String()+"/confirm", "")
	assert.Equal(t, http.StatusConflict, w.Code)
	assert.Equal(t, model.AppointmentStatusCanceled, repo.items[apt.ID].Status)
}

func TestSetDoneEndpoint(t *testing.T) {
	empID := uuid.New()
	repo := &fakeAppointmentRepo{items: make(map[uuid.UUID]*model.Appointment)}
	apt := seedAppointment(repo, empID, model.AppointmentStatusConfirmed, false)
	engine := setupRouter(t, repo, empID, model.RoleEmployee)

	w := doRequest(engine, http.MethodPut, "/employee/appointments/"+apt.ID.String()+"/done", `{"done":true}`)
	require.Equal(t, http.StatusOK, w.Code)
	assert.True(t, repo.items[apt.ID].EmployeeDone)
}

func TestListHidesClaimed(t *testing.T) {
	empID := uuid.New()
	repo := &fakeAppointmentRepo{items: make(map[uuid.UUID]*model.Appointment)}
	seedAppointment(repo, empID, model.AppointmentStatusConfirmed, true)
	open := seedAppointment(repo, empID, model.AppointmentStatusConfirmed, false)
	engine := setupRouter(t, repo, empID, model.RoleEmployee)

	w := doRequest(engine, http.MethodGet, "/employee/appointments?hide_claimed=true", "")
	require.Equal(t, http.StatusOK, w.Code)

	var resp struct {
		Data []*model.Appointment `json:"data"`
	}
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &resp))
	require.Len(t, resp.Data, 1)
	assert.Equal(t, open.ID, resp.Data[0].ID)
}

func TestInvalidIDRejected(t *testing.T) {
	empID := uuid.New()
	repo := &fakeAppointmentRepo{items: make(map[uuid.UUID]*model.Appointment)}
	engine := setupRouter(t, repo, empID, model.RoleEmployee)

	w := doRequest(engine, http.MethodPost, "/employee/appointments/not-a-uuid/confirm", "")
	assert.Equal(t, http.StatusBadRequest, w.Code)
}
