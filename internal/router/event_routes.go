package router

import (
	"github.com/labstack/echo/v4"

	"github.com/iliyamo/event-booking/internal/booking"
	"github.com/iliyamo/event-booking/internal/handler"
)

// registerEvents mounts /api/events.  Reads are cached per role; every
// successful write flushes the cache so booked counts stay current.
func registerEvents(api *echo.Group, h *handler.EventHandler, g guards) {
	r := api.Group("/events")

	r.GET("", h.List, g.cache)
	r.GET("/export.csv", h.ExportCSV, g.adminOnly)
	r.GET("/:id", h.Get, g.cache)
	r.GET("/:id/slots", h.Slots, g.cache)
	r.GET("/:id/bookings.csv", h.BookingsCSV, g.adminOnly)

	r.POST("", h.Create, g.adminOnly, g.invalidate)
	r.PATCH("/:id", h.Update, g.adminOnly, g.invalidate)
	r.DELETE("/:id", h.Delete, g.adminOnly, g.invalidate)
	r.POST("/:id/publish", h.Publish, g.adminOnly, g.invalidate)
	r.POST("/:id/unpublish", h.Unpublish, g.adminOnly, g.invalidate)
	r.POST("/:id/cancel", h.Cancel, g.adminOnly, g.invalidate)
	r.POST("/:id/duplicate", h.Duplicate, g.adminOnly, g.invalidate)
}

// registerBookings mounts /api/bookings.  Creating a booking is public and
// rate limited.  Signed-in users reach their own bookings; the handler
// enforces ownership.
func registerBookings(api *echo.Group, h *handler.BookingHandler, g guards) {
	r := api.Group("/bookings")

	r.POST("", h.Create, g.limit, g.invalidate)
	r.GET("", h.List, g.signedIn)
	r.GET("/export.csv", h.ExportCSV, g.adminOnly)
	r.GET("/:id", h.Get, g.signedIn)
	r.GET("/:id/calendar.ics", h.Calendar, g.signedIn)

	r.PATCH("/:id", h.Patch, g.adminOnly, g.invalidate)
	r.DELETE("/:id", h.Delete, g.adminOnly, g.invalidate)
	r.POST("/:id/cancel", h.Action(booking.ActionCancel), g.signedIn, g.invalidate)
	for _, a := range []booking.Action{booking.ActionApprove, booking.ActionReject, booking.ActionCheckIn, booking.ActionUndoCheckIn} {
		r.POST("/:id/"+string(a), h.Action(a), g.adminOnly, g.invalidate)
	}
}
