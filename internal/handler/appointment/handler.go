// Package appointment serves the citizen-facing booking endpoints. A
// citizen only ever sees and manages their own appointments.
package appointment

import (
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
		appointments.POST("", h.Book)
		appointments.GET("", h.List)
		appointments.GET("/stream", h.Stream)
		appointments.DELETE("/:id", h.Delete)
	}
	r.GET("/services", h.Services)
	r.GET("/slots", h.Slots)
}

func (h *Handler) Book(c *gin.Context) {
	userID, _, err := middleware.CurrentActor(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	var req model.BookAppointmentRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse(err.Error()))
		return
	}

	apt, err := h.svc.Book(c.Request.Context(), userID, &req)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusCreated, handler.NewSuccessResponse(apt))
}

func (h *Handler) List(c *gin.Context) {
	userID, _, err := middleware.CurrentActor(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	apts, err := h.svc.ListForUser(c.Request.Context(), userID)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(apts))
}

// Stream pushes the citizen's appointments as full snapshots on every
// change.
func (h *Handler) Stream(c *gin.Context) {
	userID, _, err := middleware.CurrentActor(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}
	handler.StreamSnapshots(c, h.hub, &model.AppointmentFilters{UserID: userID}, view.ForUser(userID))
}

func (h *Handler) Delete(c *gin.Context) {
	userID, role, err := middleware.CurrentActor(c)
	if err != nil {
		handler.RespondError(c, err)
		return
	}

	id, err := uuid.Parse(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, handler.NewErrorResponse("invalid appointment ID"))
		return
	}

	if err := h.svc.Delete(c.Request.Context(), id, apptsvc.Actor{ID: userID, Role: role}); err != nil {
		handler.RespondError(c, err)
		return
	}
	c.JSON(http.StatusOK, handler.NewSuccessResponse(nil))
}

// Services lists the bookable service types.
func (h *Handler) Services(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.Services))
}

// Slots lists the bookable time slots.
func (h *Handler) Slots(c *gin.Context) {
	c.JSON(http.StatusOK, handler.NewSuccessResponse(model.Slots))
}
