// Package employee serves the staff dashboard: the appointments assigned
// to the signed-in employee, and their lifecycle actions on them.
package employee

import (
	"context"
	"net/http"
	"strconv"

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
		appointments.POST("/:id/confirm", h.Confirm)
		appointments.POST("/:id/cancel", h.Cancel)
		appointments.PUT("/:id/done", h.SetDone)
	}
}

// List returns the employee's assigned appointments. hide_claimed=true
// drops the ones whose completion claim is already raised.
func (h *Handler) List(c *gin.Context) {
	employeeID, _, err := middleware.CurrentActor(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	hideClaimed, _ := strconv.ParseBool(c.Query("hide_claimed"))

	apts, err := h.svc.ListForEmployee(c.Request.Context(), employeeID, hideClaimed)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apts))
}

func (h *Handler) Stream(c *gin.Context) {
	employeeID, _, err := middleware.CurrentActor(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	hideClaimed, _ := strconv.ParseBool(c.Query("hide_claimed"))
	handler.StreamSnapshots(c, h.hub,
		&model.AppointmentFilters{EmployeeID: employeeID},
		view.ForEmployee(employeeID, hideClaimed))
}

func (h *Handler) Confirm(c *gin.Context) {
	h.transition(c, h.svc.Confirm)
}

func (h *Handler) Cancel(c *gin.Context) {
	h.transition(c, h.svc.Cancel)
}

// SetDone raises or lowers the completion claim on an assigned
// appointment.
func (h *Handler) SetDone(c *gin.Context) {
	actor, id, ok := h.actorAndID(c)
	if !ok {
		return
	}

	var req model.SetDoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.svc.SetDone(c.Request.Context(), id, actor, *req.Done)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apt))
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
