package handler

import (
	"io"

	"github.com/gin-gonic/gin"

	"github.com/Bos243/appointment-booking-app/internal/model"
	"github.com/Bos243/appointment-booking-app/internal/service/view"
	"github.com/Bos243/appointment-booking-app/internal/service/watch"
)

// StreamSnapshots serves a live query as server-sent events. Every change
// delivers the full current result set for the caller's view; the client
// replaces its state rather than patching it. Appointments that appear in
// a snapshot for the first time are announced in a separate "new" event,
// compared by identifier so a same-length snapshot with different members
// still registers.
func StreamSnapshots(c *gin.Context, hub *watch.Hub, filters *model.AppointmentFilters, project view.Projection) {
	snapshots, release, err := hub.Subscribe(c.Request.Context(), filters, project)
	if err != nil {
		RespondError(c, err)
		return
	}
	defer release()

	c.Header("Content-Type", "text/event-stream")
	c.Header("Cache-Control", "no-cache")
	c.Header("Connection", "keep-alive")

	var prev []*model.Appointment
	first := true

	c.Stream(func(w io.Writer) bool {
		select {
		case snap, ok := <-snapshots:
			if !ok {
				return false
			}
			if !first {
				if added := view.NewIDs(prev, snap); len(added) > 0 {
					c.SSEvent("new", added)
				}
			}
			c.SSEvent("snapshot", snap)
			prev = snap
			first = false
			return true
		case <-c.Request.Context().Done():
			return false
		}
	})
}
