// Package admin serves the unfiltered appointment overview plus the
// assignment and oversight actions only admins hold.
package admin

import (
	"context"
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"

	"github.com/Bos243/appointment-booking-app/internal/handler"
	"github.com/Bos243/appointment-booking-app/internal/middleware"
	"github.com/Bos243/appointment-booking-app/internal/model"
	apptsvc "github.com/Bos243/appointment-booking-app/internal/service/appointment"
	"github.com/Bos243/appointment-booking-app/internal/service/view"
	"github.com/Bos243/appointment-booking-app/internal/service/watch"
)

type Handler struct {
	svc *apptsvc.Service
	hub *watch.Hub
}

func NewHandler(svc *apptsvc.Service, hub *watch.Hub) *Handler {
	return &Handler{svc: svc, hub: hub}
}

func (h *Handler) RegisterRoutes(r *gin.RouterGroup) {
	appointments := r.Group("/appointments")
	{
		appointments.GET("", h.List)
		appointments.GET("/stream", h.Stream)
		appointments.PUT("/:id/assign", h.Assign)
		appointments.POST("/:id/confirm", h.Confirm)
		appointments.POST("/:id/cancel", h.Cancel)
		appointments.POST("/:id/complete", h.Complete)
		appointments.POST("/:id/confirm-done", h.ConfirmDone)
		appointments.DELETE("/:id", h.Delete)
	}
	r.GET("/employees", h.Employees)
}

// List returns every appointment, optionally narrowed by the display
// filters. Rows awaiting completion confirmation carry a marker.
func (h *Handler) List(c *gin.Context) {
	filter, ok := adminFilter(c)
	if !ok {
		return
	}

	items, err := h.svc.ListForAdmin(c.Request.Context(), filter)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(items))
}

func (h *Handler) Stream(c *gin.Context) {
	filter, ok := adminFilter(c)
	if !ok {
		return
	}
	handler.StreamSnapshots(c, h.hub,
		&model.AppointmentFilters{EmployeeID: filter.EmployeeID, Status: filter.Status},
		view.ForAdmin(filter))
}

// Assign sets or clears the employee on an appointment. A null
// employee_id unassigns.
func (h *Handler) Assign(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req model.AssignEmployeeRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.svc.Assign(c.Request.Context(), id, req.EmployeeID, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) Confirm(c *gin.Context) {
	h.transition(c, h.svc.Confirm)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

func (h *Handler) Complete(c *gin.Context) {
	h.transition(c, h.svc.Complete)
}

// ConfirmDone accepts a raised completion claim, completing the
// appointment and clearing the claim in one step.
func (h *Handler) ConfirmDone(c *gin.Context) {
	h.transition(c, h.svc.ConfirmDone)
}

func (h *Handler) Delete(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}
	if err := h.svc.Delete(c.Request.Context(), id, actor); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

func (h *Handler) Employees(c *gin.Context) {
	options, err := h.svc.ListEmployees(c.Request.Context())
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(options))
}

type transitionFunc func(ctx context.Context, id uuid.UUID, actor apptsvc.Actor) (*model.Appointment, error)

func (h *Handler) transition(c *gin.Context, op transitionFunc) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	apt, err := op(c.Request.Context(), id, actor)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
}

func (h *Handler) actorAndID(c *gin.Context) (apptsvc.Actor, uuid.UUID, bool) {
	userID, role, err := middleware.CurrentActor(c)
	if err != nil {
		handler.RespondError(c, err)
		return apptsvc.Actor{}, uuid.Nil, false
	}
	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return apptsvc.Actor{}, uuid.Nil, false
	}
	return apptsvc.Actor{ID: userID, Role: role}, id, true
}

func adminFilter(c *gin.Context) (view.AdminFilter, bool) {
	var filter view.AdminFilter

	if status := c.Query("status"); status != "" {
		s := model.AppointmentStatus(status)
		if !s.Valid() {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid status filter"))
			return filter, false
		}
		filter.Status = s
	}
	if raw := c.Query("employee_id"); raw != "" {
		id, err := uuid.Parse(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid employee ID filter"))
			return filter, false
		}
		filter.EmployeeID = id
	}
	return filter, true
}
